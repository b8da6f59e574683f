package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ironsheep/iris-tools-mcp/internal/bridge"
	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// DefaultBaseURL is where the network analysis service listens by default.
const DefaultBaseURL = "http://localhost:8080"

// DefaultHTTPTimeout bounds a network analysis when the caller's context has
// no deadline.
const DefaultHTTPTimeout = 60 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// HTTPClient abstracts HTTP operations for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Remote reaches the detection engine through the network analysis service.
type Remote struct {
	baseURL string
	client  HTTPClient
	timeout time.Duration
}

// NewRemote creates a Remote. An empty baseURL selects DefaultBaseURL and a
// nil client selects an *http.Client.
func NewRemote(baseURL string, client HTTPClient, timeout time.Duration) *Remote {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Remote{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		timeout: timeout,
	}
}

// BaseURL returns the service base URL.
func (r *Remote) BaseURL() string {
	return r.baseURL
}

// Analyze posts payload to /api/process-base64 and decodes the reply.
func (r *Remote) Analyze(ctx context.Context, payload wire.Payload) (wire.DetectionResult, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	body, err := wire.EncodeNetworkRequest(payload)
	if err != nil {
		return wire.DetectionResult{}, bridge.NewTransportError(0, "failed to encode request", err)
	}

	status, respBody, err := r.send(ctx, http.MethodPost, "/api/process-base64", body)
	if err != nil {
		return wire.DetectionResult{}, err
	}

	if status < 200 || status > 299 {
		return wire.DetectionResult{}, bridge.NewTransportError(status, serverMessage(status, respBody), nil)
	}

	resp, err := wire.DecodeResponse(respBody)
	if err != nil {
		return wire.DetectionResult{}, bridge.NewTransportError(status,
			"Server returned invalid data. Please check the analysis backend.", err)
	}
	if resp.Rejection != nil {
		return wire.DetectionResult{}, bridge.NewRejectedError(resp.Rejection.ErrorCode, resp.Rejection.Message)
	}
	return *resp.Result, nil
}

// Health reports whether the service answers GET /api/health with a 2xx.
func (r *Remote) Health(ctx context.Context) error {
	status, body, err := r.send(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return bridge.NewTransportError(status, serverMessage(status, body), nil)
	}
	return nil
}

func (r *Remote) send(ctx context.Context, method, endpoint string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, reader)
	if err != nil {
		return 0, nil, bridge.NewTransportError(0, "failed to create request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, nil, &bridge.Error{Kind: bridge.KindCanceled, Message: "analysis canceled", Err: err}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, bridge.NewTransportError(0,
				fmt.Sprintf("The analysis server at %s did not respond in time", r.baseURL), err)
		}
		return 0, nil, bridge.NewTransportError(0, r.connectHint(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, bridge.NewTransportError(resp.StatusCode, "failed to read response", err)
	}
	return resp.StatusCode, respBody, nil
}

func (r *Remote) connectHint() string {
	return fmt.Sprintf("Could not connect to the server. Make sure the analysis backend is running on %s", r.baseURL)
}

// serverMessage extracts the most useful message from an error body.
func serverMessage(status int, body []byte) string {
	var fields struct {
		Error     string `json:"error"`
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &fields); err == nil {
		switch {
		case fields.Error != "":
			return fields.Error
		case fields.ErrorCode != "" && fields.Message != "":
			return fields.ErrorCode + ": " + fields.Message
		case fields.Message != "":
			return fields.Message
		}
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}
