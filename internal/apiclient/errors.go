package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable indicates the platform could not be reached or is
	// temporarily refusing requests.
	ErrUnavailable = errors.New("assessment api unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("assessment api request timed out")

	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRejected indicates the platform refused the payload as invalid.
	ErrRejected = errors.New("request rejected")

	// ErrInvalidResponse indicates a response body that is not the expected JSON.
	ErrInvalidResponse = errors.New("invalid api response")
)

// FieldProblem is one field-level complaint carried by a 422 response.
type FieldProblem struct {
	PlanID  string
	Field   string
	Message string
}

// APIError is a non-2xx response. It matches the sentinel for its status
// class with errors.Is.
type APIError struct {
	Status int
	Code   string
	Detail string
	Fields []FieldProblem
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, msg)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return ErrRejected
	case e.Status == http.StatusTooManyRequests, e.Status >= 500:
		return ErrUnavailable
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrRejected):
		return "REJECTED"
	case errors.Is(err, ErrInvalidResponse):
		return "INVALID_RESPONSE"
	default:
		return "UNKNOWN"
	}
}
