package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/exercise-resolver/internal/http/response"
)

// EnvelopeTransformer wraps every operation response body in response.Envelope.
// Errors become {"v":1,"success":false,"code":...}; everything else is carried in
// "data", with success reflecting the status code.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case *APIError:
		return response.Fail(body.Code, body.Message, body.Details), nil
	case response.Envelope, *response.Envelope:
		return v, nil
	}

	env := response.OK(v)
	if code, err := strconv.Atoi(status); err == nil && code >= 400 {
		env.Success = false
	}
	return env, nil
}
