package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterState is the active filter on one actual column.
type FilterState struct {
	Status      FilterStatus
	ActualField string
	TargetField string
}

// ParseFilterStatus accepts either the status codes or their names.
func ParseFilterStatus(s string) (FilterStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "0":
		return FilterAll, nil
	case "1", "unfilled":
		return FilterUnfilled, nil
	case "2", "filled":
		return FilterFilled, nil
	case "3", "anomalous", "anomaly":
		return FilterAnomalous, nil
	}
	return FilterAll, fmt.Errorf("unknown filter status %q (use all, unfilled, filled or anomalous)", s)
}

// Name returns the human-readable name of the status.
func (s FilterStatus) Name() string {
	switch s {
	case FilterUnfilled:
		return "unfilled"
	case FilterFilled:
		return "filled"
	case FilterAnomalous:
		return "anomalous"
	default:
		return "all"
	}
}

// Next cycles all → unfilled → filled → anomalous → all.
func (s FilterStatus) Next() FilterStatus {
	switch s {
	case FilterAll:
		return FilterUnfilled
	case FilterUnfilled:
		return FilterFilled
	case FilterFilled:
		return FilterAnomalous
	default:
		return FilterAll
	}
}

// IsUnfilled: target > 0 and actual empty.
func IsUnfilled(p *PlanItem, actualField, targetField string) bool {
	return p.RequiresInput(targetField) && p.Actual(actualField) == ""
}

// IsFilled: actual non-empty, valid or not.
func IsFilled(p *PlanItem, actualField string) bool {
	return p.Actual(actualField) != ""
}

// IsAnomalous: target > 0 and the actual is empty, zero, non-numeric or
// larger than the target.
func IsAnomalous(p *PlanItem, actualField, targetField string) bool {
	if !p.RequiresInput(targetField) {
		return false
	}
	actual := p.Actual(actualField)
	if actual == "" || !IsNonNegativeInt(actual) {
		return true
	}
	n, err := strconv.Atoi(actual)
	if err != nil {
		return true
	}
	target, _ := p.Target(targetField)
	return n == 0 || n > target
}

// Matches reports whether p passes the filter.
func (f FilterState) Matches(p *PlanItem) bool {
	switch f.Status {
	case FilterUnfilled:
		return IsUnfilled(p, f.ActualField, f.TargetField)
	case FilterFilled:
		return IsFilled(p, f.ActualField)
	case FilterAnomalous:
		return IsAnomalous(p, f.ActualField, f.TargetField)
	default:
		return true
	}
}
