package bridge

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Profile selects which candidate list is searched first.
type Profile string

const (
	// ProfileDevelopment searches build output paths first.
	ProfileDevelopment Profile = "development"

	// ProfileProduction searches packaged resource paths first.
	ProfileProduction Profile = "production"
)

// ParseProfile converts a config string to a Profile.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case ProfileDevelopment, "dev":
		return ProfileDevelopment, nil
	case ProfileProduction, "prod", "":
		return ProfileProduction, nil
	}
	return "", fmt.Errorf("unknown engine profile %q (want development or production)", s)
}

// Candidates is the ordered search list for the detection engine.
type Candidates struct {
	Development []string `yaml:"development" json:"development"`
	Production  []string `yaml:"production" json:"production"`
	Fallbacks   []string `yaml:"fallbacks" json:"fallbacks"`
}

// DefaultCandidates returns the packaging layouts the engine ships in.
func DefaultCandidates() Candidates {
	return Candidates{
		Development: []string{
			"../engine/target/iris-engine-cli.jar",
			"engine/target/iris-engine-cli.jar",
		},
		Production: []string{
			"resources/engine/iris-engine-cli.jar",
			"../lib/iris-tools-mcp/iris-engine-cli.jar",
		},
		Fallbacks: []string{
			"../engine/target/iris-engine.jar",
			"iris-engine-cli.jar",
			"iris-engine",
		},
	}
}

// EngineLocator finds the detection engine executable.
type EngineLocator interface {
	Locate() (string, error)
}

// Locator searches an ordered candidate list for the engine.
//
// Absolute candidates are checked as-is. Relative candidates are resolved
// against the directory of the running executable (symlinks resolved) and
// then against the working directory. A bare name with no separator is also
// looked up on PATH.
type Locator struct {
	profile    Profile
	candidates Candidates

	executable func() (string, error)
	getwd      func() (string, error)
}

// NewLocator creates a Locator for the given profile.
func NewLocator(profile Profile, candidates Candidates) *Locator {
	return &Locator{
		profile:    profile,
		candidates: candidates,
		executable: os.Executable,
		getwd:      os.Getwd,
	}
}

// Candidates returns the search list in the order Locate uses it.
func (l *Locator) Candidates() []string {
	var first, second []string
	if l.profile == ProfileDevelopment {
		first, second = l.candidates.Development, l.candidates.Production
	} else {
		first, second = l.candidates.Production, l.candidates.Development
	}

	out := make([]string, 0, len(first)+len(second)+len(l.candidates.Fallbacks))
	out = append(out, first...)
	out = append(out, second...)
	out = append(out, l.candidates.Fallbacks...)
	return out
}

// Locate returns the first candidate that exists as a regular file. When
// none does, the error is a KindEngineNotFound *Error listing every path
// checked.
func (l *Locator) Locate() (string, error) {
	bases := l.baseDirs()
	seen := make(map[string]bool)
	var checked []string

	for _, c := range l.Candidates() {
		if c == "" {
			continue
		}
		for _, p := range l.expand(c, bases) {
			if seen[p] {
				continue
			}
			seen[p] = true
			checked = append(checked, p)
			if isFile(p) {
				return p, nil
			}
		}
		if !strings.ContainsRune(c, '/') && !strings.ContainsRune(c, filepath.Separator) {
			if p, err := exec.LookPath(c); err == nil {
				return p, nil
			}
			checked = append(checked, "$PATH/"+c)
		}
	}

	return "", NewNotFoundError(checked)
}

func (l *Locator) expand(candidate string, bases []string) []string {
	if filepath.IsAbs(candidate) {
		return []string{filepath.Clean(candidate)}
	}
	out := make([]string, 0, len(bases))
	for _, b := range bases {
		out = append(out, filepath.Join(b, candidate))
	}
	return out
}

func (l *Locator) baseDirs() []string {
	var dirs []string

	if exePath, err := l.executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		// Resolve symlinks to get actual binary location
		if real, err := filepath.EvalSymlinks(exePath); err == nil {
			exeDir = filepath.Dir(real)
		}
		dirs = append(dirs, exeDir)
	}
	if wd, err := l.getwd(); err == nil {
		if len(dirs) == 0 || dirs[0] != wd {
			dirs = append(dirs, wd)
		}
	}
	return dirs
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// FixedLocator always returns the same engine path.
type FixedLocator string

// Locate returns the path when it exists.
func (f FixedLocator) Locate() (string, error) {
	if !isFile(string(f)) {
		return "", NewNotFoundError([]string{string(f)})
	}
	return string(f), nil
}

// LauncherFor returns the command prefix used to start the engine. An
// explicit launcher wins; otherwise .jar engines run under "java -jar" and
// anything else is executed directly.
func LauncherFor(enginePath string, configured []string) []string {
	if len(configured) > 0 {
		return configured
	}
	if strings.EqualFold(filepath.Ext(enginePath), ".jar") {
		return []string{"java", "-jar"}
	}
	return nil
}
