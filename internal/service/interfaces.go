package service

import (
	"context"

	"github.com/JourneyJu/dsg-sub008/internal/apiclient"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
)

type EvaluationService interface {
	ListTargets(ctx context.Context, q apiclient.TargetQuery) (*apiclient.TargetPage, error)
	Open(ctx context.Context, targetID string) (*Workspace, error)
	Reload(ctx context.Context, ws *Workspace) error
	Submit(ctx context.Context, ws *Workspace) (*SubmitResult, error)
	UpdatePlan(ctx context.Context, ws *Workspace, planID string, m domain.PlanMeta) error
}
