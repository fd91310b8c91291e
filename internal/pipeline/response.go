package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/deppfellow/predict-lambda/internal/action"
	"github.com/deppfellow/predict-lambda/internal/errs"
)

// Envelope is the transport response of one invocation, in the shape API
// Gateway (HTTP API) and ALB Lambda integrations expect.
//
// See: https://docs.aws.amazon.com/apigateway/latest/developerguide/http-api-develop-integrations-lambda.html
type Envelope struct {
	StatusCode        int               `json:"statusCode"`
	StatusDescription string            `json:"statusDescription,omitempty"`
	Headers           map[string]string `json:"headers"`
	IsBase64Encoded   bool              `json:"isBase64Encoded"`
	Body              string            `json:"body"`
}

// ErrorBody is the JSON body of every failed invocation.
type ErrorBody struct {
	Error        string         `json:"error"`
	ErrorDetails map[string]any `json:"error_details"`
}

func jsonHeaders() map[string]string {
	return map[string]string{"Content-Type": "application/json"}
}

// Build maps the outcome of an invocation to its envelope.
//
// A non-nil err always wins over result.
func Build(result action.Result, err error) Envelope {
	if err != nil {
		return Failure(errs.Classify(err))
	}
	return Success(result)
}

// Success produces a 200 envelope whose body is result.
func Success(result action.Result) Envelope {
	if result == nil {
		result = action.Result{}
	}

	body, err := encode(result)
	if err != nil {
		return Failure(errs.Classify(fmt.Errorf("failed to encode response: %w", err)))
	}

	return Envelope{
		StatusCode:        http.StatusOK,
		StatusDescription: fmt.Sprintf("%d %s", http.StatusOK, http.StatusText(http.StatusOK)),
		Headers:           jsonHeaders(),
		Body:              body,
	}
}

// Failure produces an error envelope with the status of the error kind.
func Failure(e *errs.Error) Envelope {
	return ErrorEnvelope(e.Status(), e.Message, e.Details)
}

// ErrorEnvelope produces an error envelope with an explicit status, for
// failures raised outside the pipeline (routing or throttling in the local
// HTTP adapter).
func ErrorEnvelope(status int, message string, details map[string]any) Envelope {
	body, err := encode(ErrorBody{Error: message, ErrorDetails: details})
	if err != nil {
		// Details are the only part that can fail to encode.
		body, _ = encode(ErrorBody{Error: message})
	}

	return Envelope{
		StatusCode: status,
		Headers:    jsonHeaders(),
		Body:       body,
	}
}

// encode serializes v without HTML escaping and without a trailing newline.
func encode(v any) (string, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
