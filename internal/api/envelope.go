package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/layarapp/layar-server/internal/errors"
	"github.com/layarapp/layar-server/internal/http/response"
)

// EnvelopeVersion is sent as "v" in every response body.
const EnvelopeVersion = response.Version

// successEnvelope wraps successful API bodies.
type successEnvelope struct {
	V       int  `json:"v"`
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// errorEnvelope wraps API errors.
type errorEnvelope struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps every huma response body in the versioned
// envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, _ := strconv.Atoi(status)

	switch body := v.(type) {
	case *APIError:
		return errorEnvelope{V: EnvelopeVersion, Code: body.Code, Message: body.Message, Details: body.Details}, nil
	case *domainerrors.Error:
		return errorEnvelope{V: EnvelopeVersion, Code: string(body.Code), Message: body.Message, Details: body.Details}, nil
	case error:
		return errorEnvelope{V: EnvelopeVersion, Code: statusToCode(code), Message: body.Error()}, nil
	}

	if code >= 400 {
		return errorEnvelope{V: EnvelopeVersion, Code: statusToCode(code)}, nil
	}
	return successEnvelope{V: EnvelopeVersion, Success: true, Data: v}, nil
}
