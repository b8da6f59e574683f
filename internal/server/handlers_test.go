package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/iris-tools-mcp/internal/bridge"
	"github.com/ironsheep/iris-tools-mcp/internal/dispatch"
	"github.com/ironsheep/iris-tools-mcp/internal/imaging"
	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

func confidence(v float64) *float64 { return &v }

var testResult = wire.DetectionResult{
	PupilCenterX: 100, PupilCenterY: 100, PupilRadius: 20,
	IrisCenterX: 100, IrisCenterY: 100, IrisRadius: 60,
	EyeConfidence: confidence(0.92),
}

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "eye.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult unmarshals the JSON text content of a successful call.
func decodeToolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result should be a map, got %T", resp.Result)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("unmarshal tool result: %v", err)
	}
}

func wantErrorCode(t *testing.T, resp *MCPResponse, code int) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error %d, got result %v", code, resp.Result)
	}
	if resp.Error.Code != code {
		t.Errorf("error code: got %d, want %d (%s: %v)", resp.Error.Code, code, resp.Error.Message, resp.Error.Data)
	}
}

func TestIrisAnalyze_Path(t *testing.T) {
	analyzer := &fakeAnalyzer{result: testResult}
	s := newTestServer(t, analyzer)
	path := createTestImageFile(t, 200, 150, color.Black)

	var got AnalyzeResult
	decodeToolResult(t, callTool(t, s, "iris_analyze", map[string]interface{}{"path": path}), &got)

	if !got.Result.Equal(testResult) {
		t.Errorf("result: got %+v, want %+v", got.Result, testResult)
	}
	if got.Confidence != "92%" {
		t.Errorf("confidence: got %q, want 92%%", got.Confidence)
	}
	if got.Band != dispatch.BandHigh {
		t.Errorf("band: got %q, want high", got.Band)
	}
	if got.Image == nil || got.Image.Width != 200 || got.Image.Height != 150 {
		t.Errorf("image: got %+v, want 200x150", got.Image)
	}
	if !got.Loaded || !s.editor.Loaded() {
		t.Error("result should be loaded into the editor")
	}

	if len(analyzer.payloads) != 1 {
		t.Fatalf("analyzer called %d times, want 1", len(analyzer.payloads))
	}
	if !strings.HasPrefix(string(analyzer.payloads[0]), "data:image/png;base64,") {
		t.Errorf("payload prefix: got %.40s", analyzer.payloads[0])
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache: got %d images, want 1", s.cache.Len())
	}
}

func TestIrisAnalyze_ImageDataPassedThrough(t *testing.T) {
	analyzer := &fakeAnalyzer{result: testResult}
	s := newTestServer(t, analyzer)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 30))); err != nil {
		t.Fatal(err)
	}
	dataURI := string(wire.NewDataURI("image/png", buf.Bytes()))

	var got AnalyzeResult
	decodeToolResult(t, callTool(t, s, "iris_analyze", map[string]interface{}{
		"image_data": dataURI,
		"load":       false,
	}), &got)

	if string(analyzer.payloads[0]) != dataURI {
		t.Error("inline payload should reach the analyzer unchanged")
	}
	if got.Image == nil || got.Image.Width != 40 {
		t.Errorf("image: got %+v, want 40x30", got.Image)
	}
	if got.Loaded || s.editor.Loaded() {
		t.Error("load=false should leave the editor empty")
	}
}

func TestIrisAnalyze_BadArguments(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{result: testResult})

	wantErrorCode(t, callTool(t, s, "iris_analyze", map[string]interface{}{}), -32602)
	wantErrorCode(t, callTool(t, s, "iris_analyze", map[string]interface{}{"image_data": "data:image/png;base64,"}), -32602)
	wantErrorCode(t, callTool(t, s, "iris_analyze", map[string]interface{}{"path": "/nonexistent/eye.png"}), -32000)
}

func TestIrisAnalyze_RejectionCarriesGuidance(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{err: bridge.NewRejectedError(wire.ErrorCodeNotAnEye, "no eye found")})
	path := createTestImageFile(t, 50, 50, color.White)

	resp := callTool(t, s, "iris_analyze", map[string]interface{}{"path": path})
	wantErrorCode(t, resp, -32000)

	notice, ok := resp.Error.Data.(dispatch.Notice)
	if !ok {
		t.Fatalf("error data: got %T, want dispatch.Notice", resp.Error.Data)
	}
	if notice.Kind != bridge.KindRejected {
		t.Errorf("notice kind: got %s", notice.Kind)
	}
	if len(notice.Guidance) != 4 {
		t.Errorf("guidance: got %v", notice.Guidance)
	}
	if !strings.Contains(resp.Error.Message, wire.ErrorCodeNotAnEye) {
		t.Errorf("message: got %q", resp.Error.Message)
	}
	if s.editor.Loaded() {
		t.Error("a rejected analysis must not load the editor")
	}
}

func TestIrisAnalyze_PlainErrorIsToolFailure(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{err: errors.New("boom")})
	path := createTestImageFile(t, 10, 10, color.White)

	resp := callTool(t, s, "iris_analyze", map[string]interface{}{"path": path})
	wantErrorCode(t, resp, -32000)
	if resp.Error.Message != "Tool execution failed" || resp.Error.Data != "boom" {
		t.Errorf("error: got %+v", resp.Error)
	}
}

type fakeEngine struct {
	path string
	err  error
}

func (f fakeEngine) EnginePath() (string, error) { return f.path, f.err }

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

func TestIrisHealth(t *testing.T) {
	s := New(Options{
		Analyzer: &fakeAnalyzer{},
		Engine:   fakeEngine{err: bridge.NewNotFoundError([]string{"/opt/iris/engine.jar"})},
		Health:   fakeHealth{},
	})

	var got HealthResult
	decodeToolResult(t, callTool(t, s, "iris_health", nil), &got)

	if !got.ServiceUp {
		t.Errorf("service should be up: %+v", got)
	}
	if !strings.Contains(got.EngineError, "/opt/iris/engine.jar") {
		t.Errorf("engine error should list checked paths: %q", got.EngineError)
	}

	s = New(Options{
		Analyzer: &fakeAnalyzer{},
		Engine:   fakeEngine{path: "/opt/iris/engine.jar"},
		Health:   fakeHealth{err: errors.New("connection refused")},
	})
	decodeToolResult(t, callTool(t, s, "iris_health", nil), &got)
	if got.ServiceUp || got.ServiceError == "" {
		t.Errorf("service should be down: %+v", got)
	}
	if got.EnginePath != "/opt/iris/engine.jar" {
		t.Errorf("engine path: got %q", got.EnginePath)
	}
}

func loadedServer(t *testing.T) *Server {
	t.Helper()
	s := newTestServer(t, &fakeAnalyzer{result: testResult})
	path := createTestImageFile(t, 200, 200, color.Black)

	var got AnalyzeResult
	decodeToolResult(t, callTool(t, s, "iris_analyze", map[string]interface{}{"path": path}), &got)
	return s
}

func TestOverlay_DragCommitsThroughTools(t *testing.T) {
	s := loadedServer(t)

	var st OverlayStateResult
	decodeToolResult(t, callTool(t, s, "overlay_resize", map[string]interface{}{"width": 400, "height": 400}), &st)
	if st.RenderedSize.W != 400 {
		t.Errorf("rendered size: got %+v", st.RenderedSize)
	}

	decodeToolResult(t, callTool(t, s, "overlay_pointer_down", map[string]interface{}{"x": 320, "y": 200}), &st)
	if st.State.Selected.String() != "iris" || !st.State.Dragging {
		t.Fatalf("pointer down should grab the iris: %+v", st.State)
	}

	decodeToolResult(t, callTool(t, s, "overlay_pointer_move", map[string]interface{}{"x": 340, "y": 200}), &st)
	if st.State.Geometry.IrisCenterX != 110 {
		t.Errorf("iris x: got %v, want 110", st.State.Geometry.IrisCenterX)
	}

	var commits CommitsResult
	decodeToolResult(t, callTool(t, s, "overlay_commits", nil), &commits)
	if len(commits.Commits) != 0 {
		t.Errorf("no commit expected mid-drag, got %d", len(commits.Commits))
	}

	decodeToolResult(t, callTool(t, s, "overlay_pointer_up", nil), &st)
	if st.State.Dragging {
		t.Error("still dragging after pointer up")
	}

	decodeToolResult(t, callTool(t, s, "overlay_commits", map[string]interface{}{"clear": true}), &commits)
	if len(commits.Commits) != 1 || commits.Commits[0].IrisCenterX != 110 {
		t.Errorf("commits: got %+v", commits.Commits)
	}
	decodeToolResult(t, callTool(t, s, "overlay_commits", nil), &commits)
	if len(commits.Commits) != 0 {
		t.Errorf("clear should drop commits, got %d", len(commits.Commits))
	}
}

func TestOverlay_SelectModeAndSetRadius(t *testing.T) {
	s := loadedServer(t)

	var st OverlayStateResult
	decodeToolResult(t, callTool(t, s, "overlay_select", map[string]interface{}{"circle": "pupil"}), &st)
	if st.State.Selected.String() != "pupil" {
		t.Errorf("selected: got %v", st.State.Selected)
	}
	decodeToolResult(t, callTool(t, s, "overlay_mode", map[string]interface{}{"mode": "radius"}), &st)
	if st.State.Mode.String() != "radius" {
		t.Errorf("mode: got %v", st.State.Mode)
	}

	decodeToolResult(t, callTool(t, s, "overlay_set_radius", map[string]interface{}{"circle": "pupil", "radius": 55}), &st)
	if st.State.Geometry.PupilRadius != 50 {
		t.Errorf("pupil radius: got %v, want 50 (clamped)", st.State.Geometry.PupilRadius)
	}

	decodeToolResult(t, callTool(t, s, "overlay_reset", nil), &st)
	if st.State.Geometry.PupilRadius != 20 {
		t.Errorf("reset pupil radius: got %v, want 20", st.State.Geometry.PupilRadius)
	}

	var commits CommitsResult
	decodeToolResult(t, callTool(t, s, "overlay_commits", nil), &commits)
	if len(commits.Commits) != 2 {
		t.Errorf("commits: got %d, want 2 (set radius, reset)", len(commits.Commits))
	}
}

func TestOverlay_InvalidArguments(t *testing.T) {
	s := loadedServer(t)

	wantErrorCode(t, callTool(t, s, "overlay_set_radius", map[string]interface{}{"circle": "iris"}), -32602)
	wantErrorCode(t, callTool(t, s, "overlay_set_radius", map[string]interface{}{"radius": 40}), -32602)
	wantErrorCode(t, callTool(t, s, "overlay_select", map[string]interface{}{"circle": "eyelid"}), -32602)
	wantErrorCode(t, callTool(t, s, "overlay_mode", map[string]interface{}{"mode": "rotate"}), -32602)
	wantErrorCode(t, callTool(t, s, "overlay_resize", map[string]interface{}{"width": -5, "height": 10}), -32602)
}

func TestOverlay_BeforeAnalysis(t *testing.T) {
	s := newTestServer(t, nil)

	var st OverlayStateResult
	decodeToolResult(t, callTool(t, s, "overlay_state", nil), &st)
	if st.Loaded {
		t.Error("editor should start empty")
	}

	wantErrorCode(t, callTool(t, s, "overlay_render", nil), -32000)
	wantErrorCode(t, callTool(t, s, "overlay_reset", nil), -32000)
	wantErrorCode(t, callTool(t, s, "overlay_set_radius", map[string]interface{}{"circle": "iris", "radius": 40}), -32000)
}

func decodePNG(t *testing.T, enc imaging.EncodedImage) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	return img
}

func TestOverlay_Render(t *testing.T) {
	s := loadedServer(t)

	tests := []struct {
		name  string
		args  map[string]interface{}
		wantW int
		wantH int
	}{
		{"native", nil, 200, 200},
		{"half scale", map[string]interface{}{"scale": 0.5}, 100, 100},
		{"crop to iris", map[string]interface{}{"crop": true}, 160, 160},
		{"crop with margin", map[string]interface{}{"crop": true, "margin": 0}, 120, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var enc imaging.EncodedImage
			decodeToolResult(t, callTool(t, s, "overlay_render", tt.args), &enc)

			if enc.Width != tt.wantW || enc.Height != tt.wantH {
				t.Errorf("size: got %dx%d, want %dx%d", enc.Width, enc.Height, tt.wantW, tt.wantH)
			}
			if enc.MimeType != "image/png" {
				t.Errorf("mime: got %s", enc.MimeType)
			}
			img := decodePNG(t, enc)
			if img.Bounds().Dx() != tt.wantW {
				t.Errorf("decoded width: got %d, want %d", img.Bounds().Dx(), tt.wantW)
			}
		})
	}
}

func TestOverlay_RenderDrawsIris(t *testing.T) {
	s := loadedServer(t)

	var enc imaging.EncodedImage
	decodeToolResult(t, callTool(t, s, "overlay_render", nil), &enc)
	img := decodePNG(t, enc)

	r, g, _, _ := img.At(160, 100).RGBA()
	if r>>8 < 100 || g != 0 {
		t.Errorf("iris outline pixel: got r=%d g=%d, want red", r>>8, g>>8)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t, nil)
	resp := callTool(t, s, "image_ocr_full", nil)
	wantErrorCode(t, resp, -32000)
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	wantErrorCode(t, resp, -32602)
}
