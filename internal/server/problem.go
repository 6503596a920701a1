package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JourneyJu/dsg-sub008/internal/repository"
	"github.com/sirupsen/logrus"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// FieldProblem is one rejected value in a submission.
type FieldProblem struct {
	PlanID  string `json:"plan_id,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ProblemWithErrors extends Problem with field errors.
type ProblemWithErrors struct {
	Problem
	Errors []FieldProblem `json:"errors,omitempty"`
}

const problemBase = "https://dsg.local/problems/"

var problemTypes = map[int]struct {
	typeURI string
	title   string
}{
	http.StatusBadRequest:          {problemBase + "bad-request", "Bad Request"},
	http.StatusUnauthorized:        {problemBase + "unauthorized", "Unauthorized"},
	http.StatusNotFound:            {problemBase + "not-found", "Not Found"},
	http.StatusUnprocessableEntity: {problemBase + "validation", "Validation Error"},
	http.StatusInternalServerError: {problemBase + "internal-error", "Internal Server Error"},
}

func problemFor(r *http.Request, status int, detail string) Problem {
	pt, ok := problemTypes[status]
	if !ok {
		pt.typeURI = problemBase + "unknown"
		pt.title = http.StatusText(status)
	}
	return Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblemBody(w, r, status, problemFor(r, status, detail))
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []FieldProblem) {
	writeProblemBody(w, r, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: problemFor(r, http.StatusUnprocessableEntity, detail),
		Errors:  errs,
	})
}

func writeProblemBody(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logFrom(r).WithError(err).Error("failed to encode problem response")
	}
}

// MapStoreError converts repository errors to Problem Details responses.
func MapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, err.Error())
	default:
		logFrom(r).WithError(err).Error("store error")
		// Never expose internal error details to client
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

func logFrom(r *http.Request) logrus.FieldLogger {
	if l, ok := r.Context().Value(loggerKey{}).(logrus.FieldLogger); ok {
		return l
	}
	return logrus.StandardLogger()
}
