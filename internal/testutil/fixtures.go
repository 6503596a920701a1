package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/google/uuid"
)

var testPlanCounter atomic.Int64

// Plan options
type PlanOption func(*domain.PlanItem)

func WithTarget(field string, v int) PlanOption {
	return func(p *domain.PlanItem) {
		p.Targets[field] = v
	}
}

func WithActual(field, v string) PlanOption {
	return func(p *domain.PlanItem) {
		p.SetActual(field, v)
	}
}

func WithOwner(owner string) PlanOption {
	return func(p *domain.PlanItem) {
		p.Owner = owner
	}
}

func WithPlanName(name string) PlanOption {
	return func(p *domain.PlanItem) {
		p.PlanName = name
	}
}

func WithDescription(desc string) PlanOption {
	return func(p *domain.PlanItem) {
		p.Description = desc
	}
}

func WithTargetID(id string) PlanOption {
	return func(p *domain.PlanItem) {
		p.TargetID = id
	}
}

func WithRelatedPlan(id, name string) PlanOption {
	return func(p *domain.PlanItem) {
		p.RelatedPlans = append(p.RelatedPlans, domain.RelatedPlan{ID: id, Name: name})
	}
}

// NewTestPlan builds a plan row. An empty id gets a generated one.
func NewTestPlan(id string, planType domain.PlanType, opts ...PlanOption) domain.PlanItem {
	if id == "" {
		id = uuid.New().String()
	}
	n := testPlanCounter.Add(1)
	p := domain.PlanItem{
		ID:        id,
		PlanType:  planType,
		PlanName:  fmt.Sprintf("Plan %02d", n),
		Owner:     "owner",
		Targets:   map[string]int{},
		Actuals:   map[string]string{},
		UpdatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// NewAcquisitionPlan is a data acquisition row with a collection target and
// an optional actual (empty string for none).
func NewAcquisitionPlan(id string, target int, actual string, opts ...PlanOption) domain.PlanItem {
	base := []PlanOption{WithTarget("collection_count", target)}
	if actual != "" {
		base = append(base, WithActual("actual_quantity", actual))
	}
	return NewTestPlan(id, domain.PlanDataAcquisition, append(base, opts...)...)
}

// Target options
type TargetOption func(*domain.Target)

func WithTargetStatus(s domain.TargetStatus) TargetOption {
	return func(t *domain.Target) {
		t.Status = s
	}
}

func WithDepartment(d string) TargetOption {
	return func(t *domain.Target) {
		t.Department = d
	}
}

func WithPlans(plans ...domain.PlanItem) TargetOption {
	return func(t *domain.Target) {
		for _, p := range plans {
			p.TargetID = t.ID
			t.Plans = append(t.Plans, p)
		}
	}
}

func NewTestTarget(name string, opts ...TargetOption) *domain.Target {
	now := time.Now().UTC()
	start := now.AddDate(0, -1, 0)
	end := now.AddDate(0, 2, 0)
	t := &domain.Target{
		ID:         uuid.New().String(),
		Name:       name,
		Department: "Data Office",
		Status:     domain.TargetEvaluating,
		StartDate:  &start,
		EndDate:    &end,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
