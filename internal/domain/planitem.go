package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var nonNegativeIntPattern = regexp.MustCompile(`^[0-9]+$`)

type RelatedPlan struct {
	ID   string
	Name string
}

// PlanItem is one assessment plan's target-vs-actual record.
//
// Targets holds planned quantities keyed by target column; a missing key means
// no target was set. Actuals holds the user-entered values keyed by actual
// column, kept as entered so that invalid input survives until validation.
type PlanItem struct {
	ID           string
	TargetID     string
	PlanType     PlanType
	PlanName     string
	Owner        string
	Description  string
	RelatedPlans []RelatedPlan

	Targets map[string]int
	Actuals map[string]string

	UpdatedAt time.Time
}

// Target returns the planned quantity for field and whether it is set.
func (p *PlanItem) Target(field string) (int, bool) {
	v, ok := p.Targets[field]
	return v, ok
}

// Actual returns the trimmed actual value for field, or "" when empty.
func (p *PlanItem) Actual(field string) string {
	return strings.TrimSpace(p.Actuals[field])
}

// SetActual stores value for field. An empty value clears the field.
func (p *PlanItem) SetActual(field, value string) {
	if p.Actuals == nil {
		p.Actuals = make(map[string]string)
	}
	if strings.TrimSpace(value) == "" {
		delete(p.Actuals, field)
		return
	}
	p.Actuals[field] = value
}

// RequiresInput reports whether the row has a positive target for field.
// Rows without one need no actual value.
func (p *PlanItem) RequiresInput(targetField string) bool {
	t, ok := p.Target(targetField)
	return ok && t > 0
}

// ActualInt parses the actual value for field as a non-negative integer.
func (p *PlanItem) ActualInt(field string) (int, bool) {
	s := p.Actual(field)
	if !IsNonNegativeInt(s) {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Clone returns a deep copy of the plan item.
func (p PlanItem) Clone() PlanItem {
	out := p
	if p.RelatedPlans != nil {
		out.RelatedPlans = append([]RelatedPlan(nil), p.RelatedPlans...)
	}
	if p.Targets != nil {
		out.Targets = make(map[string]int, len(p.Targets))
		for k, v := range p.Targets {
			out.Targets[k] = v
		}
	}
	if p.Actuals != nil {
		out.Actuals = make(map[string]string, len(p.Actuals))
		for k, v := range p.Actuals {
			out.Actuals[k] = v
		}
	}
	return out
}

// ClonePlanItems deep-copies a slice of plan items.
func ClonePlanItems(items []PlanItem) []PlanItem {
	if items == nil {
		return nil
	}
	out := make([]PlanItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

// SameActual reports whether two actual values are equal. Integer values
// compare by number, so "08" and "8" are the same; anything else compares
// as text.
func SameActual(a, b string) bool {
	if a == b {
		return true
	}
	if !IsNonNegativeInt(a) || !IsNonNegativeInt(b) {
		return false
	}
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	return errA == nil && errB == nil && x == y
}

// IsNonNegativeInt reports whether s consists only of ASCII digits.
func IsNonNegativeInt(s string) bool {
	return nonNegativeIntPattern.MatchString(s)
}

// PlanMeta is the descriptive part of a plan that can be edited outside the
// evaluation form.
type PlanMeta struct {
	Owner       string
	PlanName    string
	Description string
}

// Meta returns the plan's current descriptive fields.
func (p *PlanItem) Meta() PlanMeta {
	return PlanMeta{Owner: p.Owner, PlanName: p.PlanName, Description: p.Description}
}

// ApplyMeta overwrites the descriptive fields, keeping current values for
// any field left empty in m.
func (p *PlanItem) ApplyMeta(m PlanMeta) {
	p.Owner = CoalesceStr(m.Owner, p.Owner)
	p.PlanName = CoalesceStr(m.PlanName, p.PlanName)
	p.Description = CoalesceStr(m.Description, p.Description)
}

// RestoreMeta sets the descriptive fields to exactly m.
func (p *PlanItem) RestoreMeta(m PlanMeta) {
	p.Owner = m.Owner
	p.PlanName = m.PlanName
	p.Description = m.Description
}
