// Package config loads the iris-tools-mcp configuration.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML file, and IRIS_MCP_* environment variables. JSON files are
// accepted too since JSON is valid YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/iris-tools-mcp/internal/bridge"
	"github.com/ironsheep/iris-tools-mcp/internal/dispatch"
	"github.com/ironsheep/iris-tools-mcp/internal/imaging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IRIS_MCP_"

// Config holds the application configuration.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Overlay  OverlayConfig  `yaml:"overlay"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// EngineConfig configures the local detection engine.
type EngineConfig struct {
	// Profile is "development" or "production" and picks which candidate
	// list is searched first.
	Profile string `yaml:"profile"`

	// Path skips the search and uses this engine directly.
	Path string `yaml:"path"`

	Candidates bridge.Candidates `yaml:"candidates"`

	// Launcher overrides the command prefix, e.g. [java, -Xmx512m, -jar].
	Launcher []string `yaml:"launcher"`

	Deadline time.Duration `yaml:"deadline"`
}

// DispatchConfig configures route selection and the network transport.
type DispatchConfig struct {
	// Mode is "auto", "embedded" or "detached".
	Mode    string        `yaml:"mode"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// OverlayConfig configures how the editor draws.
type OverlayConfig struct {
	IrisColor      string  `yaml:"iris_color"`
	PupilColor     string  `yaml:"pupil_color"`
	CrosshairColor string  `yaml:"crosshair_color"`
	StrokeWidth    float64 `yaml:"stroke_width"`
	SelectedWidth  float64 `yaml:"selected_width"`
}

// HTTPConfig configures the network analysis service.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Profile:    string(bridge.ProfileProduction),
			Candidates: bridge.DefaultCandidates(),
			Deadline:   bridge.DefaultDeadline,
		},
		Dispatch: DispatchConfig{
			Mode:    string(dispatch.ModeAuto),
			BaseURL: dispatch.DefaultBaseURL,
			Timeout: dispatch.DefaultHTTPTimeout,
		},
		Overlay: OverlayConfig{
			IrisColor:      imaging.DefaultIrisColor,
			PupilColor:     imaging.DefaultPupilColor,
			CrosshairColor: imaging.DefaultCrosshairColor,
			StrokeWidth:    2,
			SelectedWidth:  3,
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			MaxBodyBytes:   20 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load returns the defaults overlaid with the file at path (if path is not
// empty) and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML or JSON file. Keys missing
// from the file keep their defaults.
func LoadFromFile(filename string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(filename); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

// ApplyEnv overrides fields from IRIS_MCP_* variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get("ENGINE_PROFILE"); ok {
		c.Engine.Profile = v
	}
	if v, ok := get("ENGINE_PATH"); ok {
		c.Engine.Path = v
	}
	if v, ok := get("ENGINE_LAUNCHER"); ok {
		c.Engine.Launcher = strings.Fields(v)
	}
	if v, ok := get("ENGINE_DEADLINE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sENGINE_DEADLINE: %w", EnvPrefix, err)
		}
		c.Engine.Deadline = d
	}
	if v, ok := get("MODE"); ok {
		c.Dispatch.Mode = v
	}
	if v, ok := get("BASE_URL"); ok {
		c.Dispatch.BaseURL = v
	}
	if v, ok := get("HTTP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sHTTP_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Dispatch.Timeout = d
	}
	if v, ok := get("HTTP_ADDR"); ok {
		c.HTTP.Addr = v
	}
	if v, ok := get("HTTP_ORIGINS"); ok {
		c.HTTP.AllowedOrigins = splitList(v)
	}
	if v, ok := get("HTTP_MAX_BODY"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sHTTP_MAX_BODY: %w", EnvPrefix, err)
		}
		c.HTTP.MaxBodyBytes = n
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is usable. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if _, err := bridge.ParseProfile(c.Engine.Profile); err != nil {
		errs = append(errs, fmt.Errorf("engine.profile: %w", err))
	}
	if c.Engine.Deadline <= 0 {
		errs = append(errs, errors.New("engine.deadline must be positive"))
	}
	if _, err := dispatch.ParseMode(c.Dispatch.Mode); err != nil {
		errs = append(errs, fmt.Errorf("dispatch.mode: %w", err))
	}
	if c.Dispatch.Timeout <= 0 {
		errs = append(errs, errors.New("dispatch.timeout must be positive"))
	}
	if !strings.HasPrefix(c.Dispatch.BaseURL, "http://") && !strings.HasPrefix(c.Dispatch.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("dispatch.base_url %q must be an http or https URL", c.Dispatch.BaseURL))
	}
	if _, err := c.Palette(); err != nil {
		errs = append(errs, fmt.Errorf("overlay: %w", err))
	}
	if c.Overlay.StrokeWidth <= 0 || c.Overlay.SelectedWidth <= 0 {
		errs = append(errs, errors.New("overlay stroke widths must be positive"))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("http.max_body_bytes must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// Palette parses the overlay colours.
func (c *Config) Palette() (imaging.Palette, error) {
	return imaging.ParsePalette(c.Overlay.IrisColor, c.Overlay.PupilColor, c.Overlay.CrosshairColor)
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
