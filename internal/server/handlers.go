package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/iris-tools-mcp/internal/bridge"
	"github.com/ironsheep/iris-tools-mcp/internal/dispatch"
	"github.com/ironsheep/iris-tools-mcp/internal/imaging"
	"github.com/ironsheep/iris-tools-mcp/internal/overlay"
	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "iris_analyze", "overlay_render").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errInvalidArgs marks argument errors so they map to -32602.
var errInvalidArgs = errors.New("invalid arguments")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments return -32602. Other tool errors return -32000; when the
// error came from an analysis, the data is a dispatch.Notice.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errInvalidArgs) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		var be *bridge.Error
		if errors.As(err, &be) {
			return s.errorResponse(req.ID, -32000, be.Error(), dispatch.Explain(err))
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Analysis
	case "iris_analyze":
		return s.handleIrisAnalyze(ctx, args)
	case "iris_health":
		return s.handleIrisHealth(ctx)

	// Overlay editor
	case "overlay_state":
		return s.overlayState(s.editor.State()), nil
	case "overlay_select":
		return s.handleOverlaySelect(args)
	case "overlay_mode":
		return s.handleOverlayMode(args)
	case "overlay_resize":
		return s.handleOverlayResize(args)
	case "overlay_pointer_down":
		return s.handlePointer(args, s.editor.PointerDown)
	case "overlay_pointer_move":
		return s.handlePointer(args, s.editor.PointerMove)
	case "overlay_pointer_up":
		return s.overlayState(s.editor.PointerUp()), nil
	case "overlay_pointer_leave":
		return s.overlayState(s.editor.PointerLeave()), nil
	case "overlay_set_radius":
		return s.handleOverlaySetRadius(args)
	case "overlay_reset":
		return s.handleOverlayReset()
	case "overlay_render":
		return s.handleOverlayRender(args)
	case "overlay_commits":
		return s.handleOverlayCommits(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

// === Analysis Handlers ===

type irisAnalyzeArgs struct {
	Path      string `json:"path"`
	ImageData string `json:"image_data"`
	Load      *bool  `json:"load"`
}

// AnalyzeResult is returned by iris_analyze.
type AnalyzeResult struct {
	Result     wire.DetectionResult      `json:"result"`
	Confidence string                    `json:"confidence"`
	Band       dispatch.Band             `json:"band"`
	Image      *imaging.DimensionsResult `json:"image,omitempty"`
	Loaded     bool                      `json:"loaded"`
}

func (s *Server) handleIrisAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a irisAnalyzeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if s.analyzer == nil {
		return nil, errors.New("no analyzer configured")
	}

	payload, img, err := s.resolveImage(a)
	if err != nil {
		return nil, err
	}

	result, err := s.analyzer.ProcessImage(ctx, payload)
	if err != nil {
		return nil, err
	}

	out := AnalyzeResult{
		Result:     result,
		Confidence: dispatch.ConfidencePercent(result),
		Band:       dispatch.BandOf(result),
	}
	if img != nil {
		dims := imaging.GetDimensions(img)
		out.Image = &dims
	}
	if a.Load == nil || *a.Load {
		s.commits.Reset()
		s.editor.Load(result, img)
		out.Loaded = true
	}
	return out, nil
}

// resolveImage builds the engine payload and the decoded image from a path
// or inline data. A payload the server cannot decode itself is still sent
// to the engine; the editor then works without an image.
func (s *Server) resolveImage(a irisAnalyzeArgs) (wire.Payload, image.Image, error) {
	switch {
	case a.Path != "":
		raw, mimeType, err := imaging.ReadImageFile(a.Path)
		if err != nil {
			return nil, nil, err
		}
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, nil, err
		}
		return wire.NewDataURI(mimeType, raw), img, nil

	case a.ImageData != "":
		payload := wire.Payload(a.ImageData)
		_, raw, err := payload.Split()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: image_data: %v", errInvalidArgs, err)
		}
		img, err := imaging.DecodeBytes(raw)
		if err != nil {
			s.logger.Warn("image data not decodable locally", "error", err)
			img = nil
		}
		return payload, img, nil
	}
	return nil, nil, fmt.Errorf("%w: path or image_data is required", errInvalidArgs)
}

// HealthResult is returned by iris_health.
type HealthResult struct {
	EnginePath   string `json:"engine_path,omitempty"`
	EngineError  string `json:"engine_error,omitempty"`
	ServiceUp    bool   `json:"service_up"`
	ServiceError string `json:"service_error,omitempty"`
}

func (s *Server) handleIrisHealth(ctx context.Context) (interface{}, error) {
	var h HealthResult
	if s.engine != nil {
		path, err := s.engine.EnginePath()
		if err != nil {
			h.EngineError = err.Error()
		}
		h.EnginePath = path
	}
	if s.health != nil {
		if err := s.health.Health(ctx); err != nil {
			h.ServiceError = err.Error()
		} else {
			h.ServiceUp = true
		}
	}
	return h, nil
}

// === Overlay Handlers ===

// OverlayStateResult is returned by every overlay_* tool that changes or
// reads the editor.
type OverlayStateResult struct {
	Loaded       bool          `json:"loaded"`
	State        overlay.State `json:"state"`
	RenderedSize overlay.Size  `json:"rendered_size"`
}

func (s *Server) overlayState(st overlay.State) OverlayStateResult {
	return OverlayStateResult{
		Loaded:       s.editor.Loaded(),
		State:        st,
		RenderedSize: s.editor.RenderedSize(),
	}
}

type circleArgs struct {
	Circle overlay.Circle `json:"circle"`
	Radius *float64       `json:"radius"`
}

func (s *Server) handleOverlaySelect(args json.RawMessage) (interface{}, error) {
	var a circleArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.overlayState(s.editor.Select(a.Circle)), nil
}

type modeArgs struct {
	Mode overlay.Mode `json:"mode"`
}

func (s *Server) handleOverlayMode(args json.RawMessage) (interface{}, error) {
	var a modeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.overlayState(s.editor.SetMode(a.Mode)), nil
}

func (s *Server) handleOverlayResize(args json.RawMessage) (interface{}, error) {
	var a overlay.Size
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := s.editor.Resize(a.W, a.H); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return s.overlayState(s.editor.State()), nil
}

func (s *Server) handlePointer(args json.RawMessage, event func(overlay.Point) overlay.State) (interface{}, error) {
	var p overlay.Point
	if err := decodeArgs(args, &p); err != nil {
		return nil, err
	}
	return s.overlayState(event(p)), nil
}

func (s *Server) handleOverlaySetRadius(args json.RawMessage) (interface{}, error) {
	var a circleArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Radius == nil {
		return nil, fmt.Errorf("%w: radius is required", errInvalidArgs)
	}
	if a.Circle == overlay.CircleNone {
		return nil, fmt.Errorf("%w: circle must be iris or pupil", errInvalidArgs)
	}
	st, err := s.editor.SetRadius(a.Circle, *a.Radius)
	if err != nil {
		return nil, err
	}
	return s.overlayState(st), nil
}

func (s *Server) handleOverlayReset() (interface{}, error) {
	st, err := s.editor.Reset()
	if err != nil {
		return nil, err
	}
	return s.overlayState(st), nil
}

type overlayRenderArgs struct {
	Scale  float64 `json:"scale"`
	Crop   bool    `json:"crop"`
	Margin *int    `json:"margin"`
}

func (s *Server) handleOverlayRender(args json.RawMessage) (interface{}, error) {
	var a overlayRenderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	margin := 20
	if a.Margin != nil {
		margin = *a.Margin
	}

	rendered, err := s.editor.Render()
	if err != nil {
		return nil, err
	}
	var img image.Image = rendered

	if a.Crop {
		g := s.editor.State().Geometry
		cx, cy, r := g.IrisCenterX, g.IrisCenterY, g.IrisRadius
		if s.editor.State().Selected == overlay.CirclePupil {
			cx, cy, r = g.PupilCenterX, g.PupilCenterY, g.PupilRadius
		}
		if img, err = imaging.CropCircle(img, cx, cy, r, margin); err != nil {
			return nil, err
		}
	}
	return imaging.EncodePNG(img, a.Scale)
}

type overlayCommitsArgs struct {
	Clear bool `json:"clear"`
}

// CommitsResult is returned by overlay_commits.
type CommitsResult struct {
	Commits []wire.DetectionResult `json:"commits"`
}

func (s *Server) handleOverlayCommits(args json.RawMessage) (interface{}, error) {
	var a overlayCommitsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	out := CommitsResult{Commits: s.commits.Commits()}
	if a.Clear {
		s.commits.Reset()
	}
	return out, nil
}
