// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating request data:
// JSON bodies, path ids and date query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	maxBatchSize = 500
)

var errEmptyBody = badRequest("request body is empty")

// decodeJSON reads exactly one JSON value from the body into dst.
// Unknown fields, trailing data and oversized bodies are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errEmptyBody
		case errors.As(err, &maxErr):
			return badRequest(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		default:
			return badRequest("malformed JSON body: " + err.Error())
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := decodeJSON(w, r, dst); err != errEmptyBody {
		return err
	}
	return nil
}

// pathID parses the {id} wildcard as a positive integer.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter. Missing means the zero Date.
func queryDate(r *http.Request, name string) (core.Date, error) {
	v := sanitizeInput(r.URL.Query().Get(name))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest(fmt.Sprintf("invalid %s %q, expected YYYY-MM-DD", name, v))
	}
	return d, nil
}

// parseDateRange reads from/to. Both bounds are inclusive and optional.
func parseDateRange(r *http.Request) (from, to core.Date, err error) {
	if from, err = queryDate(r, "from"); err != nil {
		return
	}
	if to, err = queryDate(r, "to"); err != nil {
		return
	}
	if !from.IsEmpty() && !to.IsEmpty() && to.Before(from) {
		err = badRequest("to must not be before from")
	}
	return
}

// parseStatus reads the status filter. Missing means pending; "all" means every status.
func parseStatus(r *http.Request) (core.TransactionStatus, error) {
	v := core.TransactionStatus(strings.ToLower(sanitizeInput(r.URL.Query().Get("status"))))
	switch v {
	case "":
		return core.StatusPending, nil
	case "all":
		return "", nil
	}
	if !v.IsValid() {
		return "", badRequest(fmt.Sprintf("invalid status %q", v))
	}
	return v, nil
}

// bodyDate parses a date field from a JSON body; errors are validation errors on field.
func bodyDate(field, v string) (core.Date, error) {
	v = sanitizeInput(v)
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.NewValidationError(field, "must be a YYYY-MM-DD date")
	}
	return d, nil
}

// bodyAmount accepts a decimal string ("-12.50") or integer cents. The string wins when both are set.
func bodyAmount(decimal string, cents *int64) (core.Money, error) {
	if d := sanitizeInput(decimal); d != "" {
		c, err := core.ParseDecimalToCents(d)
		if err != nil {
			return core.Money{}, core.NewValidationError("amount", fmt.Sprintf("invalid amount %q", d))
		}
		return core.Money{Cents: c}, nil
	}
	if cents != nil {
		return core.Money{Cents: *cents}, nil
	}
	return core.Money{}, core.NewValidationError("amount", "is required")
}

type batchRequest struct {
	IDs []int64 `json:"ids"`
}

func (b batchRequest) validate() error {
	if len(b.IDs) == 0 {
		return core.NewValidationError("ids", "is required")
	}
	if len(b.IDs) > maxBatchSize {
		return core.NewValidationError("ids", fmt.Sprintf("at most %d ids per batch", maxBatchSize))
	}
	return nil
}

type generateRequest struct {
	AsOf string `json:"as_of"`
}
