package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/db"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/repository"
)

// DemoTargetID is the id of the target Seed creates.
const DemoTargetID = "7f3c2a10-demo-4aa1-9d55-0c0ffee2026a"

// Seed loads a demo target with plans of every type. It does nothing when
// the demo target already exists.
func Seed(ctx context.Context, uow db.UnitOfWork, targets repository.TargetRepo) (bool, error) {
	if _, err := targets.GetByID(ctx, DemoTargetID); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	target := &domain.Target{
		ID:             DemoTargetID,
		Name:           "2026 Data Governance Assessment",
		Department:     "Municipal Data Bureau",
		Status:         domain.TargetPending,
		ResponsibleUID: "u-1001",
		StartDate:      &start,
		EndDate:        &end,
	}

	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := repository.NewSQLiteTargetRepo(tx).Create(ctx, target); err != nil {
			return err
		}
		plans := repository.NewSQLitePlanRepo(tx)
		for _, p := range demoPlans() {
			p.TargetID = DemoTargetID
			if err := plans.Create(ctx, &p); err != nil {
				return fmt.Errorf("seeding plan %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func demoPlan(id string, pt domain.PlanType, name, owner string, targets map[string]int) domain.PlanItem {
	return domain.PlanItem{
		ID:       id,
		PlanType: pt,
		PlanName: name,
		Owner:    owner,
		Targets:  targets,
	}
}

func demoPlans() []domain.PlanItem {
	acq := demoPlan("plan-acq-01", domain.PlanDataAcquisition, "Population registry intake", "Li Wei",
		map[string]int{"collection_count": 120})
	acq.RelatedPlans = []domain.RelatedPlan{{ID: "plan-dqi-01", Name: "Registry deduplication"}}

	return []domain.PlanItem{
		acq,
		demoPlan("plan-acq-02", domain.PlanDataAcquisition, "Enterprise licence feed", "Zhang Min",
			map[string]int{"collection_count": 45}),
		demoPlan("plan-acq-03", domain.PlanDataAcquisition, "Open data mirror", "Chen Jie", nil),
		demoPlan("plan-dqi-01", domain.PlanDataQualityImprovement, "Registry deduplication", "Li Wei",
			map[string]int{"improve_count": 30}),
		demoPlan("plan-dqi-02", domain.PlanDataQualityImprovement, "Address normalisation", "Wang Fang",
			map[string]int{"improve_count": 12}),
		demoPlan("plan-cat-01", domain.PlanDataResourceCataloging, "Transport catalogue", "Zhao Lei",
			map[string]int{"catalog_count": 80}),
		demoPlan("plan-cat-02", domain.PlanDataResourceCataloging, "Health catalogue", "Sun Yu",
			map[string]int{"catalog_count": 0}),
		demoPlan("plan-ba-01", domain.PlanBusinessAnalysis, "Permit workflow analysis", "Zhou Ning",
			map[string]int{"model_target_count": 6, "flow_target_count": 14, "table_target_count": 40}),
		demoPlan("plan-ba-02", domain.PlanBusinessAnalysis, "Subsidy process analysis", "Wu Tao",
			map[string]int{"model_target_count": 3, "table_target_count": 18}),
	}
}
