package service

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/reconcile"
	"golang.org/x/sync/semaphore"
)

// Workspace is one opened evaluation: a target and one reconciliation engine
// per plan type it contains. Submissions through the owning service are
// single-flight per workspace.
type Workspace struct {
	mu       sync.RWMutex
	target   domain.Target
	engines  map[domain.PlanType]*reconcile.Engine
	pageSize int

	submit   *semaphore.Weighted
	inFlight atomic.Bool
}

func newWorkspace(t *domain.Target, pageSize int) *Workspace {
	ws := &Workspace{
		engines:  make(map[domain.PlanType]*reconcile.Engine),
		pageSize: pageSize,
		submit:   semaphore.NewWeighted(1),
	}
	ws.load(t)
	return ws
}

// load installs a fresh snapshot, creating engines for plan types seen for
// the first time. Existing engines are rebased with Refresh. Engines are fed
// outside the workspace lock since their listeners may call back in.
func (ws *Workspace) load(t *domain.Target) {
	byType := t.PlansByType()
	type step struct {
		eng   *reconcile.Engine
		rows  []domain.PlanItem
		fresh bool
	}
	var steps []step

	ws.mu.Lock()
	meta := *t
	meta.Plans = nil
	ws.target = meta
	for _, pt := range domain.PlanTypes {
		rows, present := byType[pt]
		eng, exists := ws.engines[pt]
		switch {
		case exists:
			steps = append(steps, step{eng: eng, rows: rows})
		case present:
			cfg, _ := domain.ConfigFor(pt)
			eng = reconcile.NewEngine(cfg, reconcile.WithPageSize(ws.pageSize))
			ws.engines[pt] = eng
			steps = append(steps, step{eng: eng, rows: rows, fresh: true})
		}
	}
	ws.mu.Unlock()

	for _, st := range steps {
		if st.fresh {
			st.eng.Load(st.rows)
		} else {
			st.eng.Refresh(st.rows)
		}
	}
}

// Target returns the target's descriptive fields.
func (ws *Workspace) Target() domain.Target {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.target
}

// PlanTypes returns the plan types of this evaluation in display order.
func (ws *Workspace) PlanTypes() []domain.PlanType {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	var out []domain.PlanType
	for _, pt := range domain.PlanTypes {
		if _, ok := ws.engines[pt]; ok {
			out = append(out, pt)
		}
	}
	return out
}

// Engine returns the engine of a plan type.
func (ws *Workspace) Engine(pt domain.PlanType) (*reconcile.Engine, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	eng, ok := ws.engines[pt]
	return eng, ok
}

// Busy reports whether a submission is in flight.
func (ws *Workspace) Busy() bool { return ws.inFlight.Load() }

// beginSubmit claims the workspace for a submission. It reports false when
// a submission or an edit already holds it.
func (ws *Workspace) beginSubmit() bool {
	if !ws.submit.TryAcquire(1) {
		return false
	}
	ws.inFlight.Store(true)
	return true
}

func (ws *Workspace) endSubmit() {
	ws.inFlight.Store(false)
	ws.submit.Release(1)
}

// exclusive runs fn while holding the slot a submission needs, so an edit
// and a submission never overlap.
func (ws *Workspace) exclusive(fn func() error) error {
	if !ws.submit.TryAcquire(1) {
		return ErrBusy
	}
	defer ws.submit.Release(1)
	return fn()
}

// ApplyFilter filters one plan type section. It is refused while a
// submission is in flight.
func (ws *Workspace) ApplyFilter(pt domain.PlanType, status domain.FilterStatus, actualField, targetField string) error {
	eng, ok := ws.Engine(pt)
	if !ok {
		return ErrUnknownPlanType
	}
	return ws.exclusive(func() error {
		return eng.ApplyFilter(status, actualField, targetField)
	})
}

// SetActual edits one displayed cell. It is refused while a submission is in
// flight.
func (ws *Workspace) SetActual(pt domain.PlanType, rowID, field, value string) ([]reconcile.FieldError, error) {
	eng, ok := ws.Engine(pt)
	if !ok {
		return nil, ErrUnknownPlanType
	}
	var rowErrs []reconcile.FieldError
	err := ws.exclusive(func() error {
		var err error
		rowErrs, err = eng.SetActual(rowID, field, value)
		return err
	})
	return rowErrs, err
}

// CollectFormData asks every section for its form data. Every section is
// validated even when an earlier one fails; failures are reported together
// as a *SubmissionError.
func (ws *Workspace) CollectFormData() (map[domain.PlanType][]domain.PlanItem, error) {
	out := make(map[domain.PlanType][]domain.PlanItem)
	var failed []SectionError
	for _, pt := range ws.PlanTypes() {
		eng, _ := ws.Engine(pt)
		rows, err := eng.FormData()
		if err != nil {
			var verrs reconcile.ValidationErrors
			if !errors.As(err, &verrs) {
				return nil, err
			}
			failed = append(failed, SectionError{PlanType: pt, Errors: verrs})
			continue
		}
		out[pt] = rows
	}
	if len(failed) > 0 {
		return nil, &SubmissionError{Sections: failed}
	}
	return out, nil
}

// Summaries returns the aggregate figures of every section in display order.
func (ws *Workspace) Summaries() []reconcile.Summary {
	var out []reconcile.Summary
	for _, pt := range ws.PlanTypes() {
		eng, _ := ws.Engine(pt)
		out = append(out, eng.Summary())
	}
	return out
}

// PlanTypeOf returns the plan type of the section holding rowID.
func (ws *Workspace) PlanTypeOf(rowID string) (domain.PlanType, bool) {
	for _, pt := range ws.PlanTypes() {
		eng, _ := ws.Engine(pt)
		if _, ok := eng.Row(rowID); ok {
			return pt, true
		}
	}
	return "", false
}

// findRow returns the engine holding rowID.
func (ws *Workspace) findRow(rowID string) (*reconcile.Engine, bool) {
	pt, ok := ws.PlanTypeOf(rowID)
	if !ok {
		return nil, false
	}
	return ws.Engine(pt)
}
