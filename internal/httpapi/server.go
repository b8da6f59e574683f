// Package httpapi serves the detection engine over HTTP so clients without a
// local engine can use it (the detached route of package dispatch).
//
// Endpoints:
//
//	GET  /api/health          plain-text liveness message
//	POST /api/process-base64  {"imageData": "<data URI or base64>"}
//	POST /api/process-file    multipart form, image in field "image"
//
// Successful analyses and engine rejections both answer 200 with the same
// JSON the engine prints, so the network client decodes them with the same
// codec as the subprocess transport.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/iris-tools-mcp/internal/bridge"
	"github.com/ironsheep/iris-tools-mcp/internal/imaging"
	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// HealthMessage is the body of GET /api/health.
const HealthMessage = "Iris analysis server is running"

// DefaultMaxBodyBytes limits request bodies when no limit is configured.
const DefaultMaxBodyBytes = 20 << 20

// Error codes of failed requests.
const (
	CodeMissingData     = "MISSING_DATA"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeDecodeFailed    = "DECODE_FAILED"
	CodeNoFile          = "NO_FILE"
	CodeNotImage        = "NOT_IMAGE"
	CodeReadFailed      = "READ_FAILED"
	CodeTooLarge        = "TOO_LARGE"
	CodeProcessingError = "PROCESSING_ERROR"
)

// Analyzer runs one detection. *bridge.Bridge implements it.
type Analyzer interface {
	Analyze(ctx context.Context, payload wire.Payload) (wire.DetectionResult, error)
}

// Config configures a Server.
type Config struct {
	// AllowedOrigins are the browser origins granted CORS access.
	AllowedOrigins []string

	// MaxBodyBytes bounds request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	Logger *slog.Logger
}

// Server is the HTTP front of an Analyzer.
type Server struct {
	analyzer Analyzer
	origins  map[string]bool
	maxBody  int64
	logger   *slog.Logger
}

// errorBody is the JSON of a failed request. Error repeats Message for
// clients that only read the "error" field.
type errorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

// NewServer creates a Server.
func NewServer(analyzer Analyzer, cfg Config) *Server {
	s := &Server{
		analyzer: analyzer,
		origins:  make(map[string]bool, len(cfg.AllowedOrigins)),
		maxBody:  cfg.MaxBodyBytes,
		logger:   cfg.Logger,
	}
	for _, o := range cfg.AllowedOrigins {
		s.origins[strings.TrimSuffix(o, "/")] = true
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler returns the routed handler with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/process-base64", s.handleProcessBase64)
	mux.HandleFunc("POST /api/process-file", s.handleProcessFile)
	return s.withLogging(s.withCORS(mux))
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", "error", err)
		return server.Close()
	}
	return nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.origins[origin] {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"request_id", id, "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, HealthMessage)
}

func (s *Server) handleProcessBase64(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.readError(w, err)
		return
	}

	payload, err := wire.DecodeNetworkRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidFormat, "Request body must be JSON with an imageData field")
		return
	}
	if len(strings.TrimSpace(string(payload))) == 0 {
		respondError(w, http.StatusBadRequest, CodeMissingData, "Image data is required")
		return
	}

	_, raw, err := payload.Split()
	if err != nil {
		if missingDataURIBody(payload) {
			respondError(w, http.StatusBadRequest, CodeInvalidFormat, "Invalid base64 image format")
			return
		}
		respondError(w, http.StatusBadRequest, CodeDecodeFailed, "Failed to decode image from base64 data")
		return
	}
	if _, err := imaging.InspectBytes(raw); err != nil {
		respondError(w, http.StatusBadRequest, CodeDecodeFailed, "Failed to decode image from base64 data")
		return
	}

	s.analyze(w, r, payload)
}

// missingDataURIBody reports a "data:image..." payload with nothing after
// the comma.
func missingDataURIBody(p wire.Payload) bool {
	if !p.IsDataURI() {
		return false
	}
	_, body, ok := strings.Cut(string(p), ",")
	return !ok || strings.TrimSpace(body) == ""
}

func (s *Server) handleProcessFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.readError(w, err)
			return
		}
		respondError(w, http.StatusBadRequest, CodeNoFile, "No file uploaded")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(w, http.StatusBadRequest, CodeNotImage, "File must be an image")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		s.readError(w, err)
		return
	}
	if len(raw) == 0 {
		respondError(w, http.StatusBadRequest, CodeNoFile, "No file uploaded")
		return
	}
	if _, err := imaging.InspectBytes(raw); err != nil {
		respondError(w, http.StatusBadRequest, CodeReadFailed, "Failed to read image file")
		return
	}

	s.logger.Debug("received file upload", "filename", header.Filename, "bytes", len(raw), "content_type", contentType)
	s.analyze(w, r, wire.NewDataURI(contentType, raw))
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, payload wire.Payload) {
	result, err := s.analyzer.Analyze(r.Context(), payload)
	if err != nil {
		var be *bridge.Error
		if errors.As(err, &be) && be.Kind == bridge.KindRejected {
			out, encErr := wire.EncodeRejection(wire.DetectionError{ErrorCode: be.Code, Message: be.Message})
			if encErr == nil {
				respondRaw(w, http.StatusOK, out)
				return
			}
			err = encErr
		}
		s.logger.Warn("analysis failed", "error", err)
		respondError(w, http.StatusInternalServerError, CodeProcessingError, "Error processing image: "+err.Error())
		return
	}

	out, err := wire.EncodeResult(result)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeProcessingError, "Error processing image: "+err.Error())
		return
	}
	respondRaw(w, http.StatusOK, out)
}

func (s *Server) readError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, CodeTooLarge, "Request body too large")
		return
	}
	respondError(w, http.StatusBadRequest, CodeReadFailed, "Failed to read request body")
}

func respondRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	out, _ := json.Marshal(errorBody{ErrorCode: code, Message: message, Error: message})
	respondRaw(w, status, out)
}
