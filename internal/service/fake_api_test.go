package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/JourneyJu/dsg-sub008/internal/apiclient"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
)

// fakeAPI is an in-memory platform holding one target.
type fakeAPI struct {
	mu     sync.Mutex
	target domain.Target

	submitted [][]apiclient.ActualSubmission
	updates   []apiclient.PlanUpdate

	detailCalls int
	submitErr   map[domain.PlanType]error
	updateErr   error
	detailErr   error

	// submitGate, when set, blocks SubmitEvaluation until closed.
	submitGate chan struct{}
	entered    chan struct{}
}

func newFakeAPI(t *domain.Target) *fakeAPI {
	return &fakeAPI{target: *t, submitErr: map[domain.PlanType]error{}}
}

func (f *fakeAPI) GetTargetList(ctx context.Context, q apiclient.TargetQuery) (*apiclient.TargetPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.target
	t.Plans = nil
	return &apiclient.TargetPage{Entries: []domain.Target{t}, TotalCount: 1}, nil
}

func (f *fakeAPI) GetTargetEvaluationDetail(ctx context.Context, id string) (*domain.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if id != f.target.ID {
		return nil, &apiclient.APIError{Status: 404, Detail: "target not found"}
	}
	t := f.target
	t.Plans = domain.ClonePlanItems(f.target.Plans)
	return &t, nil
}

func (f *fakeAPI) UpdateTargetAssessmentPlan(ctx context.Context, planID string, u apiclient.PlanUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, u)
	for i := range f.target.Plans {
		if f.target.Plans[i].ID == planID {
			f.target.Plans[i].ApplyMeta(domain.PlanMeta{Owner: u.Owner, PlanName: u.PlanName, Description: u.Description})
		}
	}
	return nil
}

func (f *fakeAPI) SubmitEvaluation(ctx context.Context, targetID string, subs []apiclient.ActualSubmission) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.submitGate != nil {
		select {
		case <-f.submitGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(subs) > 0 {
		if pt := f.planType(subs[0].PlanID); f.submitErr[pt] != nil {
			return f.submitErr[pt]
		}
	}
	f.submitted = append(f.submitted, subs)
	for _, s := range subs {
		for i := range f.target.Plans {
			if f.target.Plans[i].ID != s.PlanID {
				continue
			}
			for field, v := range s.Values {
				f.target.Plans[i].SetActual(field, strconv.Itoa(v))
			}
		}
	}
	return nil
}

func (f *fakeAPI) planType(id string) domain.PlanType {
	for _, p := range f.target.Plans {
		if p.ID == id {
			return p.PlanType
		}
	}
	return ""
}

func (f *fakeAPI) submissions() [][]apiclient.ActualSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]apiclient.ActualSubmission(nil), f.submitted...)
}
