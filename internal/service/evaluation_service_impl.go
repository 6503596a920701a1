package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/apiclient"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/reconcile"
	"golang.org/x/sync/errgroup"
)

// EvaluationOptions tunes an EvaluationService.
type EvaluationOptions struct {
	PageSize          int
	SubmitConcurrency int
}

// BatchResult is the outcome of one plan type's write-back.
type BatchResult struct {
	PlanType domain.PlanType
	Plans    int
	Err      error
}

// SubmitResult summarises a submission.
type SubmitResult struct {
	Batches []BatchResult
}

// Plans returns the number of plans written successfully.
func (r *SubmitResult) Plans() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err == nil {
			n += b.Plans
		}
	}
	return n
}

type evaluationService struct {
	api      apiclient.Client
	opts     EvaluationOptions
	observer UseCaseObserver
}

func NewEvaluationService(api apiclient.Client, opts EvaluationOptions, observers ...UseCaseObserver) EvaluationService {
	if opts.PageSize <= 0 {
		opts.PageSize = reconcile.DefaultPageSize
	}
	if opts.SubmitConcurrency <= 0 {
		opts.SubmitConcurrency = 4
	}
	return &evaluationService{
		api:      api,
		opts:     opts,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *evaluationService) ListTargets(ctx context.Context, q apiclient.TargetQuery) (page *apiclient.TargetPage, err error) {
	fields := map[string]any{"offset": q.Offset, "limit": q.Limit}
	defer observe(ctx, s.observer, "list-targets", time.Now().UTC(), fields, &err)

	page, err = s.api.GetTargetList(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	fields["total"] = page.TotalCount
	return page, nil
}

func (s *evaluationService) Open(ctx context.Context, targetID string) (ws *Workspace, err error) {
	fields := map[string]any{"target_id": targetID}
	defer observe(ctx, s.observer, "open-evaluation", time.Now().UTC(), fields, &err)

	t, err := s.api.GetTargetEvaluationDetail(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("loading evaluation %s: %w", targetID, err)
	}
	fields["plans"] = len(t.Plans)
	return newWorkspace(t, s.opts.PageSize), nil
}

// Reload re-fetches the evaluation and rebases every section, keeping
// unsaved edits on rows that still exist.
func (s *evaluationService) Reload(ctx context.Context, ws *Workspace) (err error) {
	target := ws.Target()
	defer observe(ctx, s.observer, "reload-evaluation", time.Now().UTC(), map[string]any{"target_id": target.ID}, &err)

	t, err := s.api.GetTargetEvaluationDetail(ctx, target.ID)
	if err != nil {
		return fmt.Errorf("reloading evaluation %s: %w", target.ID, err)
	}
	ws.load(t)
	return nil
}

// Submit validates every section and writes changed actual values back, one
// batch per plan type. Only one submission per workspace runs at a time;
// a concurrent call returns ErrBusy. When every batch succeeds the workspace
// is refreshed from the server. On failure local edits are kept.
func (s *evaluationService) Submit(ctx context.Context, ws *Workspace) (res *SubmitResult, err error) {
	if !ws.beginSubmit() {
		return nil, ErrBusy
	}
	defer ws.endSubmit()

	target := ws.Target()
	fields := map[string]any{"target_id": target.ID}
	defer observe(ctx, s.observer, "submit-evaluation", time.Now().UTC(), fields, &err)

	data, err := ws.CollectFormData()
	if err != nil {
		return nil, err
	}

	batches := make(map[domain.PlanType][]apiclient.ActualSubmission)
	for _, pt := range ws.PlanTypes() {
		eng, _ := ws.Engine(pt)
		if subs := toSubmissions(eng.Changes(data[pt])); len(subs) > 0 {
			batches[pt] = subs
		}
	}

	res = &SubmitResult{}
	if len(batches) == 0 {
		fields["plans"] = 0
		return res, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.SubmitConcurrency)
	for _, pt := range domain.PlanTypes {
		subs, ok := batches[pt]
		if !ok {
			continue
		}
		g.Go(func() error {
			err := s.api.SubmitEvaluation(gctx, target.ID, subs)
			mu.Lock()
			res.Batches = append(res.Batches, BatchResult{PlanType: pt, Plans: len(subs), Err: err})
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("submitting %s: %w", pt, err)
			}
			return nil
		})
	}
	err = g.Wait()
	sortBatches(res.Batches)
	fields["plans"] = res.Plans()
	if err != nil {
		return res, err
	}

	t, err := s.api.GetTargetEvaluationDetail(ctx, target.ID)
	if err != nil {
		return res, fmt.Errorf("refreshing after submit: %w", err)
	}
	ws.load(t)
	return res, nil
}

// UpdatePlan applies a metadata edit locally, then writes it to the
// platform. If the write fails the local edit is rolled back.
func (s *evaluationService) UpdatePlan(ctx context.Context, ws *Workspace, planID string, m domain.PlanMeta) (err error) {
	defer observe(ctx, s.observer, "update-plan", time.Now().UTC(), map[string]any{"plan_id": planID}, &err)

	eng, ok := ws.findRow(planID)
	if !ok {
		return fmt.Errorf("plan %s: %w", planID, ErrUnknownPlan)
	}
	prev, err := eng.UpdateMeta(planID, m)
	if err != nil {
		return err
	}

	err = s.api.UpdateTargetAssessmentPlan(ctx, planID, apiclient.PlanUpdate{
		Owner:       m.Owner,
		PlanName:    m.PlanName,
		Description: m.Description,
	})
	if err != nil {
		if rbErr := eng.RestoreMeta(planID, prev); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return fmt.Errorf("updating plan %s: %w", planID, err)
	}
	return nil
}

// toSubmissions groups changes by plan, keeping first-seen plan order.
func toSubmissions(changes []reconcile.ActualChange) []apiclient.ActualSubmission {
	var out []apiclient.ActualSubmission
	pos := make(map[string]int)
	for _, c := range changes {
		i, ok := pos[c.RowID]
		if !ok {
			out = append(out, apiclient.ActualSubmission{PlanID: c.RowID, Values: map[string]int{}})
			i = len(out) - 1
			pos[c.RowID] = i
		}
		out[i].Values[c.Field] = c.Value
	}
	return out
}

func sortBatches(b []BatchResult) {
	order := make(map[domain.PlanType]int, len(domain.PlanTypes))
	for i, pt := range domain.PlanTypes {
		order[pt] = i
	}
	sort.Slice(b, func(i, j int) bool { return order[b[i].PlanType] < order[b[j].PlanType] })
}
