package domain

import (
	"fmt"
	"time"
)

// Target is a departmental assessment target. Plans is only populated when
// the target was fetched together with its evaluation detail.
type Target struct {
	ID             string
	Name           string
	Department     string
	Status         TargetStatus
	ResponsibleUID string
	StartDate      *time.Time
	EndDate        *time.Time
	Plans          []PlanItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the fields the platform requires before a target is stored.
func (t *Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("target name is required")
	}
	if t.Status != "" && !ValidTargetStatuses[string(t.Status)] {
		return fmt.Errorf("invalid target status %q", t.Status)
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		return fmt.Errorf("end date %s is before start date %s",
			t.EndDate.Format("2006-01-02"), t.StartDate.Format("2006-01-02"))
	}
	return nil
}

// DisplayID returns the first 8 characters of the ID for display.
func (t *Target) DisplayID() string {
	if len(t.ID) >= 8 {
		return t.ID[:8]
	}
	return t.ID
}

// PlansByType groups the target's plans by plan type, preserving order.
func (t *Target) PlansByType() map[PlanType][]PlanItem {
	out := make(map[PlanType][]PlanItem)
	for _, p := range t.Plans {
		out[p.PlanType] = append(out[p.PlanType], p)
	}
	return out
}
