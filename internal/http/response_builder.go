// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Kinds used only by the HTTP layer.
const (
	kindBadRequest  = "bad_request"
	kindRateLimited = "rate_limited"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the response. A nil body writes only the status line and headers.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// writeJSON is the common case: status plus body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// badRequestError marks malformed input that never reached the domain layer.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

// statusFor maps an error to its status code and kind.
func statusFor(err error) (int, string) {
	var br *badRequestError
	if errors.As(err, &br) {
		return http.StatusBadRequest, kindBadRequest
	}
	kind := core.ErrorKind(err)
	switch kind {
	case core.KindValidation:
		return http.StatusUnprocessableEntity, kind
	case core.KindNotFound:
		return http.StatusNotFound, kind
	case core.KindConflict:
		return http.StatusConflict, kind
	case core.KindLookup:
		return http.StatusFailedDependency, kind
	default:
		return http.StatusInternalServerError, core.KindInternal
	}
}

// ErrorResponse writes err as {"error", "kind"}. Internal errors are logged and
// their message is not exposed.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

// rateLimited is the limiter's onLimit callback.
func rateLimited(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error: "rate limit exceeded, please try again later",
		Kind:  kindRateLimited,
	})
}
