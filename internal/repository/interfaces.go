package repository

import (
	"context"
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
)

// TargetFilter narrows a target listing. Zero values do not filter.
type TargetFilter struct {
	Keyword string
	Status  domain.TargetStatus
	Offset  int
	Limit   int
}

// Submission is one accepted evaluation write-back.
type Submission struct {
	ID          string
	TargetID    string
	PlanCount   int
	SubmittedAt time.Time
}

type TargetRepo interface {
	Create(ctx context.Context, t *domain.Target) error
	GetByID(ctx context.Context, id string) (*domain.Target, error)
	List(ctx context.Context, f TargetFilter) ([]*domain.Target, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.TargetStatus) error
	Delete(ctx context.Context, id string) error
}

type PlanRepo interface {
	Create(ctx context.Context, p *domain.PlanItem) error
	GetByID(ctx context.Context, id string) (*domain.PlanItem, error)
	ListByTarget(ctx context.Context, targetID string) ([]domain.PlanItem, error)
	UpdateMeta(ctx context.Context, id string, m domain.PlanMeta) error
	SetActuals(ctx context.Context, id string, values map[string]int) error
}

type SubmissionRepo interface {
	Record(ctx context.Context, s *Submission) error
	ListByTarget(ctx context.Context, targetID string) ([]Submission, error)
}
