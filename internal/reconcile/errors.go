package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalid is returned by FormData when a displayed row fails validation.
	ErrInvalid = errors.New("plan rows failed validation")

	ErrUnknownRow   = errors.New("row is not displayed")
	ErrUnknownField = errors.New("field is not configured for this plan type")
)

// FieldError is a validation failure on one actual cell.
type FieldError struct {
	RowID       string
	PlanName    string
	Field       string
	TargetField string
	Value       string
	Rule        string
	Message     string
}

func (e FieldError) Error() string {
	name := e.PlanName
	if name == "" {
		name = e.RowID
	}
	return fmt.Sprintf("%s.%s: %s", name, e.Field, e.Message)
}

// ValidationErrors collects field errors. It matches ErrInvalid with errors.Is.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return v[0].Error()
	}
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("%d field errors: %s", len(v), strings.Join(msgs, "; "))
}

func (v ValidationErrors) Unwrap() error { return ErrInvalid }

// ForRow returns the errors belonging to one row.
func (v ValidationErrors) ForRow(id string) []FieldError {
	var out []FieldError
	for _, fe := range v {
		if fe.RowID == id {
			out = append(out, fe)
		}
	}
	return out
}
