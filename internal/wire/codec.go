package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ErrorCodeNotAnEye is the code the engine uses when the image does not
// look like an eye.
const ErrorCodeNotAnEye = "NOT_AN_EYE"

// DetectionResult is the parametric description of a pupil and an iris in
// native image pixel coordinates.
type DetectionResult struct {
	PupilCenterX float64 `json:"pupilCenterX"`
	PupilCenterY float64 `json:"pupilCenterY"`
	PupilRadius  float64 `json:"pupilRadius"`
	IrisCenterX  float64 `json:"irisCenterX"`
	IrisCenterY  float64 `json:"irisCenterY"`
	IrisRadius   float64 `json:"irisRadius"`

	// EyeConfidence is the engine's confidence (0-1) that the image shows an
	// eye. Nil when the engine did not report one.
	EyeConfidence *float64 `json:"eyeConfidence,omitempty"`
}

// Confidence returns the eye confidence and whether it was reported.
func (r DetectionResult) Confidence() (float64, bool) {
	if r.EyeConfidence == nil {
		return 0, false
	}
	return *r.EyeConfidence, true
}

// Clone returns a deep copy of r.
func (r DetectionResult) Clone() DetectionResult {
	if r.EyeConfidence != nil {
		c := *r.EyeConfidence
		r.EyeConfidence = &c
	}
	return r
}

// Equal reports whether r and o carry the same values, comparing the
// confidence by value rather than by pointer.
func (r DetectionResult) Equal(o DetectionResult) bool {
	if r.PupilCenterX != o.PupilCenterX || r.PupilCenterY != o.PupilCenterY || r.PupilRadius != o.PupilRadius ||
		r.IrisCenterX != o.IrisCenterX || r.IrisCenterY != o.IrisCenterY || r.IrisRadius != o.IrisRadius {
		return false
	}
	if (r.EyeConfidence == nil) != (o.EyeConfidence == nil) {
		return false
	}
	return r.EyeConfidence == nil || *r.EyeConfidence == *o.EyeConfidence
}

// DetectionError is a well-formed engine response rejecting the image.
type DetectionError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message,omitempty"`
}

func (e DetectionError) Error() string {
	if e.Message == "" {
		return e.ErrorCode
	}
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// Response is a decoded engine response. Exactly one field is non-nil.
type Response struct {
	Result    *DetectionResult
	Rejection *DetectionError
}

// IsRejection reports whether the engine rejected the image.
func (r Response) IsRejection() bool {
	return r.Rejection != nil
}

// DecodeError reports engine output that matches neither response shape.
type DecodeError struct {
	// Raw is the text that failed to decode.
	Raw string

	// Reason says which rule the text broke.
	Reason string

	Err error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("undecodable engine response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("undecodable engine response: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeRequest encodes a payload for the subprocess transport. The engine
// reads the raw payload with no envelope.
func EncodeRequest(p Payload) []byte {
	return []byte(p)
}

// networkRequest is the body of a network analysis request.
type networkRequest struct {
	ImageData *string `json:"imageData"`
}

// EncodeNetworkRequest encodes a payload for the network transport.
func EncodeNetworkRequest(p Payload) ([]byte, error) {
	data := string(p)
	b, err := json.Marshal(networkRequest{ImageData: &data})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return b, nil
}

// DecodeNetworkRequest extracts the payload from a network request body.
// A body without an imageData field yields an empty payload.
func DecodeNetworkRequest(body []byte) (Payload, error) {
	var req networkRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.ImageData == nil {
		return nil, nil
	}
	return Payload(*req.ImageData), nil
}

// EncodeResult encodes a detection result in the response format.
func EncodeResult(r DetectionResult) ([]byte, error) {
	if err := validateResult(r); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// EncodeRejection encodes a domain rejection in the response format.
func EncodeRejection(e DetectionError) ([]byte, error) {
	if e.ErrorCode == "" {
		return nil, fmt.Errorf("rejection without an error code")
	}
	return json.Marshal(e)
}

// DecodeResponse decodes engine output into a result or a rejection.
// Surrounding whitespace is ignored.
func DecodeResponse(data []byte) (Response, error) {
	trimmed := bytes.TrimSpace(data)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Response{}, &DecodeError{Raw: string(data), Reason: "response is not a JSON object", Err: err}
	}
	if fields == nil {
		return Response{}, &DecodeError{Raw: string(data), Reason: "response is null"}
	}

	if rawCode, ok := fields["errorCode"]; ok {
		rej, err := decodeRejection(rawCode, fields["message"])
		if err != nil {
			return Response{}, &DecodeError{Raw: string(data), Reason: err.Error()}
		}
		return Response{Rejection: rej}, nil
	}

	var r DetectionResult
	targets := []struct {
		name string
		dst  *float64
	}{
		{"pupilCenterX", &r.PupilCenterX},
		{"pupilCenterY", &r.PupilCenterY},
		{"pupilRadius", &r.PupilRadius},
		{"irisCenterX", &r.IrisCenterX},
		{"irisCenterY", &r.IrisCenterY},
		{"irisRadius", &r.IrisRadius},
	}
	for _, t := range targets {
		raw, ok := fields[t.name]
		if !ok {
			return Response{}, &DecodeError{Raw: string(data), Reason: fmt.Sprintf("missing field %q", t.name)}
		}
		v, err := parseFiniteNumber(raw)
		if err != nil {
			return Response{}, &DecodeError{Raw: string(data), Reason: fmt.Sprintf("field %q", t.name), Err: err}
		}
		*t.dst = v
	}

	if raw, ok := fields["eyeConfidence"]; ok && !isNull(raw) {
		v, err := parseFiniteNumber(raw)
		if err != nil {
			return Response{}, &DecodeError{Raw: string(data), Reason: `field "eyeConfidence"`, Err: err}
		}
		r.EyeConfidence = &v
	}

	return Response{Result: &r}, nil
}

func decodeRejection(rawCode, rawMessage json.RawMessage) (*DetectionError, error) {
	var rej DetectionError
	if err := json.Unmarshal(rawCode, &rej.ErrorCode); err != nil {
		return nil, fmt.Errorf("errorCode is not a string")
	}
	if rej.ErrorCode == "" {
		return nil, fmt.Errorf("errorCode is empty")
	}
	if rawMessage != nil && !isNull(rawMessage) {
		if err := json.Unmarshal(rawMessage, &rej.Message); err != nil {
			return nil, fmt.Errorf("message is not a string")
		}
	}
	return &rej, nil
}

// parseFiniteNumber accepts only a JSON number literal that fits a finite
// float64. Strings, booleans and null are rejected.
func parseFiniteNumber(raw json.RawMessage) (float64, error) {
	s := string(bytes.TrimSpace(raw))
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return 0, fmt.Errorf("not a number: %s", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a finite number: %s", s)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("not a finite number: %s", s)
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func validateResult(r DetectionResult) error {
	values := []float64{r.PupilCenterX, r.PupilCenterY, r.PupilRadius, r.IrisCenterX, r.IrisCenterY, r.IrisRadius}
	if r.EyeConfidence != nil {
		values = append(values, *r.EyeConfidence)
	}
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Errorf("result contains a non-finite value")
		}
	}
	return nil
}
