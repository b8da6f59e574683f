// Package wire defines the schema shared by both analysis transports.
//
// The detection engine can be reached two ways: as a child process speaking
// over its standard streams, or as a network service. Both surfaces speak the
// same response format, and this package is the only place that format is
// encoded and decoded, so the two transports stay bit-compatible.
//
// # Requests
//
// The subprocess transport takes the raw image payload with no envelope
// (EncodeRequest). The network transport wraps it in a single-field object:
//
//	{"imageData": "data:image/png;base64,iVBORw0..."}
//
// # Responses
//
// A response is always a JSON object and is one of two shapes:
//
//   - a DetectionError, recognised by the presence of an "errorCode" key:
//     {"errorCode": "NOT_AN_EYE", "message": "no iris detected"}
//   - a DetectionResult, which must carry all six geometry fields as finite
//     numbers: pupilCenterX, pupilCenterY, pupilRadius, irisCenterX,
//     irisCenterY, irisRadius. eyeConfidence is optional.
//
// Anything else fails with a *DecodeError that keeps the raw text. Missing
// geometry fields are never defaulted to zero: a partially populated result
// is treated as undecodable.
package wire
