package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yashgupta8707/jubilant-system/internal/validation"
)

var (
	// ErrTransport wraps failures to obtain an HTTP response
	ErrTransport = errors.New("api: transport failure")
	// ErrMalformedResponse wraps response bodies that do not decode
	ErrMalformedResponse = errors.New("api: malformed response")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Errors     []validation.FieldError
	RequestID  string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api: %s: status %d", e.Op, e.StatusCode)
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	} else if len(e.Errors) > 0 {
		b.WriteString(": " + validation.Join(e.Errors))
	}
	return b.String()
}

// IsNotFound reports whether err is a 404 response
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status of an *Error in err's chain, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// errorBody covers the error shapes the backend produces:
// {"message": ...}, {"errors": [{field, message}]}, {"error": "..."} and
// {"error": {"code": ..., "message": ..., "details": [...]}}.
type errorBody struct {
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors"`
	Error   json.RawMessage         `json:"error"`
}

type errorInfo struct {
	Message string                  `json:"message"`
	Details []validation.FieldError `json:"details"`
}

func parseError(op string, resp *Response) *Error {
	e := &Error{
		Op:         op,
		StatusCode: resp.StatusCode,
		RequestID:  resp.RequestID,
	}

	var body errorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return e
	}
	e.Message = body.Message
	e.Errors = body.Errors

	if len(body.Error) > 0 && e.Message == "" {
		var s string
		var info errorInfo
		switch {
		case json.Unmarshal(body.Error, &s) == nil:
			e.Message = s
		case json.Unmarshal(body.Error, &info) == nil:
			e.Message = info.Message
			if len(e.Errors) == 0 {
				e.Errors = info.Details
			}
		}
	}
	return e
}

// DisplayMessage extracts the user-facing text from err: the server message,
// else the server field errors joined as "field: message, ...", else the
// error text for failures that are not server responses, else fallback.
func DisplayMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if len(apiErr.Errors) > 0 {
			return validation.Join(apiErr.Errors)
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
