package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/reconcile"
)

var (
	// ErrBusy is returned while a submission is in flight.
	ErrBusy = errors.New("a submission is already in progress")

	ErrUnknownPlanType = errors.New("plan type not present in this evaluation")
	ErrUnknownPlan     = errors.New("plan not found in this evaluation")
)

// SectionError holds the validation failures of one plan type section.
type SectionError struct {
	PlanType domain.PlanType
	Errors   []reconcile.FieldError
}

// SubmissionError reports every section that failed validation. It matches
// reconcile.ErrInvalid with errors.Is.
type SubmissionError struct {
	Sections []SectionError
}

func (e *SubmissionError) Error() string {
	parts := make([]string, 0, len(e.Sections))
	for _, s := range e.Sections {
		parts = append(parts, fmt.Sprintf("%s (%d)", s.PlanType, len(s.Errors)))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *SubmissionError) Unwrap() error { return reconcile.ErrInvalid }

// FailedTypes returns the plan types that failed, sorted.
func (e *SubmissionError) FailedTypes() []domain.PlanType {
	out := make([]domain.PlanType, 0, len(e.Sections))
	for _, s := range e.Sections {
		out = append(out, s.PlanType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Section returns the errors of one plan type, or nil.
func (e *SubmissionError) Section(pt domain.PlanType) []reconcile.FieldError {
	for _, s := range e.Sections {
		if s.PlanType == pt {
			return s.Errors
		}
	}
	return nil
}
