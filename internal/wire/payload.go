package wire

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
)

// Payload is an encoded image as handed to the detection engine, normally a
// data URI ("data:image/jpeg;base64,...").
//
// A Payload is treated as immutable once it has been handed to a transport.
type Payload []byte

// dataURIPrefix is the prefix the engine recognises as an embedded image.
const dataURIPrefix = "data:image"

// NewDataURI builds a base64 data URI payload from raw image bytes.
func NewDataURI(mimeType string, raw []byte) Payload {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(raw)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(raw))
	return Payload(b.String())
}

// IsDataURI reports whether the payload carries a "data:image" prefix.
func (p Payload) IsDataURI() bool {
	return bytes.HasPrefix(p, []byte(dataURIPrefix))
}

// Split returns the MIME type and the decoded image bytes of the payload.
//
// A payload with a "data:image...," prefix has the prefix removed first; a
// payload without one is treated as bare base64. The MIME type is empty when
// the payload has no prefix.
func (p Payload) Split() (string, []byte, error) {
	if len(bytes.TrimSpace(p)) == 0 {
		return "", nil, fmt.Errorf("empty image payload")
	}

	mimeType := ""
	data := string(p)
	if p.IsDataURI() {
		header, body, ok := strings.Cut(data, ",")
		if !ok || body == "" {
			return "", nil, fmt.Errorf("invalid base64 image format")
		}
		mimeType = strings.TrimPrefix(header, "data:")
		mimeType, _, _ = strings.Cut(mimeType, ";")
		data = body
	}

	// The engine reads its input line by line and joins the lines, so
	// wrapped base64 is accepted here too.
	data = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(data))

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 data: %w", err)
	}
	return mimeType, raw, nil
}
