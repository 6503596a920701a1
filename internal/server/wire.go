package server

import (
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/repository"
)

const wireDate = "2006-01-02"

type targetJSON struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Department     string           `json:"department,omitempty"`
	Status         string           `json:"status"`
	ResponsibleUID string           `json:"responsible_uid,omitempty"`
	StartDate      string           `json:"start_date,omitempty"`
	EndDate        string           `json:"end_date,omitempty"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
	Plans          []map[string]any `json:"plans,omitempty"`
}

type targetPageJSON struct {
	Entries    []targetJSON `json:"entries"`
	TotalCount int          `json:"total_count"`
}

type submissionJSON struct {
	ID          string `json:"id"`
	TargetID    string `json:"target_id"`
	PlanCount   int    `json:"plan_count"`
	SubmittedAt string `json:"submitted_at"`
}

func toTargetJSON(t *domain.Target) targetJSON {
	out := targetJSON{
		ID:             t.ID,
		Name:           t.Name,
		Department:     t.Department,
		Status:         string(t.Status),
		ResponsibleUID: t.ResponsibleUID,
		StartDate:      optDate(t.StartDate),
		EndDate:        optDate(t.EndDate),
		CreatedAt:      t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for i := range t.Plans {
		out.Plans = append(out.Plans, planToWire(&t.Plans[i]))
	}
	return out
}

// planToWire flattens a plan into the platform's shape: quantity columns sit
// next to the descriptive fields and actuals are integers.
func planToWire(p *domain.PlanItem) map[string]any {
	m := map[string]any{
		"id":          p.ID,
		"target_id":   p.TargetID,
		"plan_type":   string(p.PlanType),
		"plan_name":   p.PlanName,
		"owner":       p.Owner,
		"description": p.Description,
		"updated_at":  p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	related := make([]map[string]string, 0, len(p.RelatedPlans))
	for _, rp := range p.RelatedPlans {
		related = append(related, map[string]string{"id": rp.ID, "name": rp.Name})
	}
	m["related_plans"] = related

	cfg, _ := domain.ConfigFor(p.PlanType)
	for _, d := range cfg.Dimensions {
		if v, ok := p.Target(d.TargetField); ok {
			m[d.TargetField] = v
		} else {
			m[d.TargetField] = nil
		}
		if v, ok := p.ActualInt(d.ActualField); ok {
			m[d.ActualField] = v
		} else {
			m[d.ActualField] = nil
		}
	}
	return m
}

func toSubmissionJSON(s repository.Submission) submissionJSON {
	return submissionJSON{
		ID:          s.ID,
		TargetID:    s.TargetID,
		PlanCount:   s.PlanCount,
		SubmittedAt: s.SubmittedAt.UTC().Format(time.RFC3339Nano),
	}
}

func optDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(wireDate)
}
