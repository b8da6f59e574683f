package wire

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestDecodeResponse_Result(t *testing.T) {
	out := `{"pupilCenterX":100,"pupilCenterY":100,"pupilRadius":20,"irisCenterX":100,"irisCenterY":100,"irisRadius":60,"eyeConfidence":0.92}`

	resp, err := DecodeResponse([]byte(out))
	require.NoError(t, err)
	require.NotNil(t, resp.Result)
	assert.False(t, resp.IsRejection())

	want := DetectionResult{
		PupilCenterX: 100, PupilCenterY: 100, PupilRadius: 20,
		IrisCenterX: 100, IrisCenterY: 100, IrisRadius: 60,
		EyeConfidence: floatPtr(0.92),
	}
	if diff := cmp.Diff(want, *resp.Result); diff != "" {
		t.Errorf("decoded result mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeResponse_KeepsFractionalValues(t *testing.T) {
	out := "  \n{\"pupilCenterX\":100.25,\"pupilCenterY\":-3.5,\"pupilRadius\":20.125,\"irisCenterX\":1e2,\"irisCenterY\":99.999,\"irisRadius\":60.5}\r\n"

	resp, err := DecodeResponse([]byte(out))
	require.NoError(t, err)
	require.NotNil(t, resp.Result)

	r := *resp.Result
	assert.Equal(t, 100.25, r.PupilCenterX)
	assert.Equal(t, -3.5, r.PupilCenterY)
	assert.Equal(t, 20.125, r.PupilRadius)
	assert.Equal(t, 100.0, r.IrisCenterX)
	assert.Equal(t, 99.999, r.IrisCenterY)
	assert.Equal(t, 60.5, r.IrisRadius)
	assert.Nil(t, r.EyeConfidence)

	_, ok := r.Confidence()
	assert.False(t, ok)
}

func TestDecodeResponse_Rejection(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"errorCode":"NOT_AN_EYE","message":"no iris detected"}`))
	require.NoError(t, err)
	require.True(t, resp.IsRejection())
	assert.Nil(t, resp.Result)
	assert.Equal(t, ErrorCodeNotAnEye, resp.Rejection.ErrorCode)
	assert.Equal(t, "no iris detected", resp.Rejection.Message)
	assert.Equal(t, "NOT_AN_EYE: no iris detected", resp.Rejection.Error())
}

func TestDecodeResponse_RejectionWinsOverGeometry(t *testing.T) {
	out := `{"errorCode":"NOT_AN_EYE","pupilCenterX":1,"pupilCenterY":1,"pupilRadius":1,"irisCenterX":1,"irisCenterY":1,"irisRadius":12}`

	resp, err := DecodeResponse([]byte(out))
	require.NoError(t, err)
	require.True(t, resp.IsRejection())
	assert.Empty(t, resp.Rejection.Message)
}

func TestDecodeResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"garbage", "Exception in thread main"},
		{"array", `[1,2,3]`},
		{"null", `null`},
		{"number", `42`},
		{"missing field", `{"pupilCenterX":100,"pupilCenterY":100,"pupilRadius":20,"irisCenterX":100,"irisCenterY":100}`},
		{"string field", `{"pupilCenterX":"100","pupilCenterY":100,"pupilRadius":20,"irisCenterX":100,"irisCenterY":100,"irisRadius":60}`},
		{"null field", `{"pupilCenterX":null,"pupilCenterY":100,"pupilRadius":20,"irisCenterX":100,"irisCenterY":100,"irisRadius":60}`},
		{"bool field", `{"pupilCenterX":true,"pupilCenterY":100,"pupilRadius":20,"irisCenterX":100,"irisCenterY":100,"irisRadius":60}`},
		{"overflow field", `{"pupilCenterX":1e400,"pupilCenterY":100,"pupilRadius":20,"irisCenterX":100,"irisCenterY":100,"irisRadius":60}`},
		{"string confidence", `{"pupilCenterX":100,"pupilCenterY":100,"pupilRadius":20,"irisCenterX":100,"irisCenterY":100,"irisRadius":60,"eyeConfidence":"high"}`},
		{"numeric error code", `{"errorCode":7}`},
		{"empty error code", `{"errorCode":""}`},
		{"numeric message", `{"errorCode":"NOT_AN_EYE","message":3}`},
		{"trailing data", `{"errorCode":"NOT_AN_EYE"} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResponse([]byte(tt.in))
			require.Error(t, err)

			var de *DecodeError
			require.True(t, errors.As(err, &de), "expected *DecodeError, got %T", err)
			assert.Equal(t, tt.in, de.Raw)
			assert.NotEmpty(t, de.Reason)
		})
	}
}

func TestEncodeResult_RoundTrip(t *testing.T) {
	fixture := DetectionResult{
		PupilCenterX: 312.5, PupilCenterY: 240.25, PupilRadius: 38,
		IrisCenterX: 310, IrisCenterY: 241.75, IrisRadius: 121.125,
		EyeConfidence: floatPtr(0.8125),
	}

	b, err := EncodeResult(fixture)
	require.NoError(t, err)

	resp, err := DecodeResponse(b)
	require.NoError(t, err)
	require.NotNil(t, resp.Result)
	assert.True(t, fixture.Equal(*resp.Result))
}

func TestEncodeResult_FieldNames(t *testing.T) {
	b, err := EncodeResult(DetectionResult{PupilRadius: 20, IrisRadius: 60})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"pupilCenterX":0,"pupilCenterY":0,"pupilRadius":20,"irisCenterX":0,"irisCenterY":0,"irisRadius":60}`,
		string(b))
}

func TestEncodeRejection(t *testing.T) {
	b, err := EncodeRejection(DetectionError{ErrorCode: ErrorCodeNotAnEye, Message: "no iris detected"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"errorCode":"NOT_AN_EYE","message":"no iris detected"}`, string(b))

	_, err = EncodeRejection(DetectionError{Message: "no code"})
	assert.Error(t, err)
}

func TestNetworkRequest_RoundTrip(t *testing.T) {
	p := NewDataURI("image/png", []byte{0x89, 'P', 'N', 'G'})

	body, err := EncodeNetworkRequest(p)
	require.NoError(t, err)

	got, err := DecodeNetworkRequest(body)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeNetworkRequest_MissingField(t *testing.T) {
	got, err := DecodeNetworkRequest([]byte(`{"other":"x"}`))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = DecodeNetworkRequest([]byte(`not json`))
	assert.Error(t, err)
}

func TestDetectionResult_CloneIsDeep(t *testing.T) {
	orig := DetectionResult{IrisRadius: 60, EyeConfidence: floatPtr(0.5)}
	c := orig.Clone()
	*c.EyeConfidence = 0.9

	assert.Equal(t, 0.5, *orig.EyeConfidence)
	assert.False(t, orig.Equal(c))
}
