package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/ironsheep/iris-tools-mcp/internal/imaging"
	"github.com/ironsheep/iris-tools-mcp/internal/overlay"
	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// Analyzer runs a detection. *dispatch.Processor implements it.
type Analyzer interface {
	ProcessImage(ctx context.Context, payload wire.Payload) (wire.DetectionResult, error)
}

// HealthChecker reports whether the network analysis service is up.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// EngineLocator reports where the local engine is. *bridge.Bridge
// implements it.
type EngineLocator interface {
	EnginePath() (string, error)
}

// Options holds the server's collaborators. Analyzer is required; the rest
// fall back to fresh instances or are skipped when nil.
type Options struct {
	Analyzer Analyzer
	Health   HealthChecker
	Engine   EngineLocator

	Editor  *overlay.Editor
	Commits *overlay.Recorder
	Cache   *imaging.ImageCache

	Logger  *slog.Logger
	Version string
}

// Server handles MCP protocol communication
type Server struct {
	analyzer Analyzer
	health   HealthChecker
	engine   EngineLocator

	editor  *overlay.Editor
	commits *overlay.Recorder
	cache   *imaging.ImageCache

	logger  *slog.Logger
	version string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance. When no editor is given, one is
// created that reports its commits to the server's recorder.
func New(opts Options) *Server {
	s := &Server{
		analyzer: opts.Analyzer,
		health:   opts.Health,
		engine:   opts.Engine,
		editor:   opts.Editor,
		commits:  opts.Commits,
		cache:    opts.Cache,
		logger:   opts.Logger,
		version:  opts.Version,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.commits == nil {
		s.commits = &overlay.Recorder{}
	}
	if s.editor == nil {
		s.editor = overlay.NewEditor(s.commits, overlay.WithLogger(s.logger))
	}
	if s.cache == nil {
		s.cache = imaging.NewImageCache()
	}
	if s.version == "" {
		s.version = "dev"
	}
	return s
}

// Run reads requests from in, one per line, and writes responses to out
// until in is exhausted or ctx is canceled. Requests are handled one at a
// time, which also serializes the overlay editor's events.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Image payloads arrive inline, so allow large lines.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 32*1024*1024)

	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			if err := encoder.Encode(s.errorResponse(nil, -32700, "Parse error", err.Error())); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized", "notifications/cancelled":
		// Notifications, no response
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "iris-tools-mcp",
				"version": s.version,
			},
		},
	}
}
