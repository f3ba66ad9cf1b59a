package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError is a non-2xx answer decoded from the standard error envelope.
// Status mirrors the HTTP status unless the body carries its own.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
	Fields    []FieldError
}

// FieldError pins a validation failure to one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e APIError) Error() string {
	code := e.Code
	if code == "" {
		code = "UNKNOWN"
	}
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("%s (%d)", code, e.Status)
	}
	return code + ": " + msg
}

// Well-known error codes returned by the API.
const (
	ErrorCodeNotFound       = "NOT_FOUND"
	ErrorCodeRateLimited    = "RATE_LIMITED"
	ErrorCodeInvalidRequest = "INVALID_REQUEST"
)

// IsNotFound reports whether err is an APIError for a missing resource.
func IsNotFound(err error) bool {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == ErrorCodeNotFound || apiErr.Status == http.StatusNotFound
}

// IsRateLimited reports whether err is an APIError for a throttled request.
func IsRateLimited(err error) bool {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == ErrorCodeRateLimited || apiErr.Status == http.StatusTooManyRequests
}

// IsInvalidRequest reports whether err is an APIError for a rejected payload.
func IsInvalidRequest(err error) bool {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == ErrorCodeInvalidRequest || apiErr.Status == http.StatusBadRequest
}

// errorEnvelope mirrors the wire shape of error bodies.
type errorEnvelope struct {
	Error struct {
		Code    string       `json:"code"`
		Message string       `json:"message"`
		Status  int          `json:"status"`
		Fields  []FieldError `json:"fields"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

// decodeAPIError turns a failed response into an APIError. Bodies that are
// empty or not JSON still produce a usable error.
func decodeAPIError(resp *http.Response) error {
	apiErr := APIError{Status: resp.StatusCode, Message: resp.Status}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		return apiErr
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		apiErr.Message = string(body)
		return apiErr
	}
	apiErr.Code = env.Error.Code
	apiErr.RequestID = env.RequestID
	apiErr.Fields = env.Error.Fields
	if env.Error.Status != 0 {
		apiErr.Status = env.Error.Status
	}
	if env.Error.Message != "" {
		apiErr.Message = env.Error.Message
	}
	return apiErr
}

// ConfigError indicates the client was misconfigured or misused before any
// request was sent.
type ConfigError struct {
	Reason string
}

// Error implements the error interface.
func (e ConfigError) Error() string {
	return "sdk: " + e.Reason
}

// ProtocolError indicates the server returned a payload that violates the
// wire contract.
type ProtocolError struct {
	Message string
}

// Error implements the error interface.
func (e ProtocolError) Error() string {
	return "sdk: protocol error: " + e.Message
}

// StreamProtocolError indicates a streaming endpoint answered with an
// unexpected content type.
type StreamProtocolError struct {
	ExpectedContentType string
	ReceivedContentType string
	Status              int
}

// Error implements the error interface.
func (e StreamProtocolError) Error() string {
	return fmt.Sprintf("sdk: expected %s stream, got %q (status %d)",
		e.ExpectedContentType, e.ReceivedContentType, e.Status)
}
