package reconcile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
)

// Rule is one check on an actual value. Check returns nil when the value is
// acceptable for the row.
type Rule struct {
	Name  string
	Check func(value string, row *domain.PlanItem) error
}

var (
	errRequired       = errors.New("actual value is required")
	errNotInteger     = errors.New("enter a non-negative integer")
	errZero           = errors.New("actual value must be greater than 0")
	errExceedsTarget  = errors.New("actual value exceeds target")
	errTargetNotFound = errors.New("row has no target for this column")
)

// RulesFor returns the rule chain for an actual column whose limit is held in
// targetField: required, integer pattern, then the zero and upper-bound check.
func RulesFor(targetField string) []Rule {
	return []Rule{
		{
			Name: "required",
			Check: func(value string, _ *domain.PlanItem) error {
				if strings.TrimSpace(value) == "" {
					return errRequired
				}
				return nil
			},
		},
		{
			Name: "pattern",
			Check: func(value string, _ *domain.PlanItem) error {
				if !domain.IsNonNegativeInt(strings.TrimSpace(value)) {
					return errNotInteger
				}
				return nil
			},
		},
		{
			Name: "range",
			Check: func(value string, row *domain.PlanItem) error {
				n, err := strconv.Atoi(strings.TrimSpace(value))
				// A digit string too long for int is larger than any target.
				overflow := errors.Is(err, strconv.ErrRange)
				if err != nil && !overflow {
					return errNotInteger
				}
				if n == 0 && !overflow {
					return errZero
				}
				target, ok := row.Target(targetField)
				if !ok {
					return errTargetNotFound
				}
				if overflow || n > target {
					return fmt.Errorf("%w (%d)", errExceedsTarget, target)
				}
				return nil
			},
		},
	}
}

// Apply runs rules in order and returns the name and error of the first
// failing rule.
func Apply(rules []Rule, value string, row *domain.PlanItem) (string, error) {
	for _, r := range rules {
		if err := r.Check(value, row); err != nil {
			return r.Name, err
		}
	}
	return "", nil
}

// ValidateRow checks every dimension of row that requires input.
func ValidateRow(cfg domain.PlanTypeConfig, row *domain.PlanItem) []FieldError {
	var errs []FieldError
	for _, d := range cfg.Dimensions {
		if fe, ok := validateField(d, row); !ok {
			errs = append(errs, fe)
		}
	}
	return errs
}

// ValidateValue checks a single candidate value for one dimension of row
// without modifying it. Used by interactive inputs before a value is applied.
func ValidateValue(d domain.Dimension, row *domain.PlanItem, value string) error {
	if !row.RequiresInput(d.TargetField) {
		return nil
	}
	_, err := Apply(RulesFor(d.TargetField), value, row)
	return err
}

func validateField(d domain.Dimension, row *domain.PlanItem) (FieldError, bool) {
	// Rows without a positive target need no input for this column.
	if !row.RequiresInput(d.TargetField) {
		return FieldError{}, true
	}
	value := row.Actual(d.ActualField)
	rule, err := Apply(RulesFor(d.TargetField), value, row)
	if err == nil {
		return FieldError{}, true
	}
	return FieldError{
		RowID:       row.ID,
		PlanName:    row.PlanName,
		Field:       d.ActualField,
		TargetField: d.TargetField,
		Value:       value,
		Rule:        rule,
		Message:     err.Error(),
	}, false
}
