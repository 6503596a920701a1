// Package reconcile keeps a plan type's working copy of evaluation rows
// consistent with the filtered view that is being edited.
//
// The engine holds two row sets. The displayed set is the form's data source:
// it is what the user sees and edits, and it may be filtered. The canonical
// set is the full working copy and is never filtered. Edits are merged from
// displayed into canonical by row id whenever the view changes or the form
// data is requested, so edits on rows hidden by a filter are never lost.
package reconcile

import (
	"sort"
	"sync"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
)

// DefaultPageSize is the number of rows per page when no size is configured.
const DefaultPageSize = 10

// RevalidateEvent is emitted after every change to the displayed rows.
// Errors holds the field errors of the rows now displayed.
type RevalidateEvent struct {
	PlanType  domain.PlanType
	Displayed int
	Errors    []FieldError
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize sets the number of rows per page.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// Engine is the reconciliation state container for one plan type. All
// methods are safe for concurrent use; mutations are serialised.
type Engine struct {
	mu sync.Mutex

	cfg       domain.PlanTypeConfig
	canonical []domain.PlanItem
	displayed []domain.PlanItem
	filters   map[string]domain.FilterState

	// baseline is the last server-confirmed actual values, by row id.
	baseline map[string]map[string]string

	page     int
	pageSize int

	listeners []func(RevalidateEvent)
}

// NewEngine creates an empty engine for the given plan type configuration.
func NewEngine(cfg domain.PlanTypeConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		filters:  make(map[string]domain.FilterState),
		baseline: make(map[string]map[string]string),
		page:     1,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the plan type configuration the engine was built for.
func (e *Engine) Config() domain.PlanTypeConfig { return e.cfg }

// Subscribe registers fn to receive revalidate events. Listeners run on the
// caller's goroutine after the state change is committed.
func (e *Engine) Subscribe(fn func(RevalidateEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Load replaces all state with a fresh snapshot. Filters and unsaved edits
// are dropped and the page is reset.
func (e *Engine) Load(rows []domain.PlanItem) {
	e.mu.Lock()
	e.canonical = nil
	e.displayed = domain.ClonePlanItems(rows)
	e.filters = make(map[string]domain.FilterState)
	e.resetBaselineLocked(rows)
	e.page = 1
	ev := e.eventLocked()
	listeners := e.listenersLocked()
	e.mu.Unlock()

	emit(listeners, ev)
}

// Refresh rebases the working copy onto a newer fetch. Rows absent from rows
// are discarded. For rows still present, an actual value the user changed
// since the last confirmed snapshot is kept unless it already equals the
// fetched value; every other field takes the fetched value. Active filters are re-applied.
func (e *Engine) Refresh(rows []domain.PlanItem) {
	e.mu.Lock()
	e.mergeLocked()

	local := make(map[string]*domain.PlanItem, len(e.canonical))
	for i := range e.canonical {
		local[e.canonical[i].ID] = &e.canonical[i]
	}

	next := make([]domain.PlanItem, 0, len(rows))
	for _, fresh := range rows {
		row := fresh.Clone()
		if prev, ok := local[row.ID]; ok {
			base := e.baseline[row.ID]
			for _, field := range e.cfg.ActualFields() {
				v := prev.Actual(field)
				if !domain.SameActual(v, base[field]) && !domain.SameActual(v, row.Actual(field)) {
					row.SetActual(field, prev.Actuals[field])
				}
			}
		}
		next = append(next, row)
	}

	e.canonical = next
	e.resetBaselineLocked(rows)
	e.displayed = e.filteredLocked()
	e.clampPageLocked()
	ev := e.eventLocked()
	listeners := e.listenersLocked()
	e.mu.Unlock()

	emit(listeners, ev)
}

// SetActual writes value into a displayed row's actual column and returns the
// row's current field errors for inline display.
func (e *Engine) SetActual(rowID, field, value string) ([]FieldError, error) {
	if _, ok := e.cfg.DimensionFor(field); !ok {
		return nil, ErrUnknownField
	}

	e.mu.Lock()
	idx := e.indexDisplayedLocked(rowID)
	if idx < 0 {
		e.mu.Unlock()
		return nil, ErrUnknownRow
	}
	e.displayed[idx].SetActual(field, value)
	rowErrs := ValidateRow(e.cfg, &e.displayed[idx])
	e.mu.Unlock()

	return rowErrs, nil
}

// ApplyFilter sets or clears the filter on one actual column and rebuilds the
// displayed rows from the canonical set. An empty status removes the filter.
func (e *Engine) ApplyFilter(status domain.FilterStatus, actualField, targetField string) error {
	if !e.cfg.HasPair(actualField, targetField) {
		return ErrUnknownField
	}

	e.mu.Lock()
	e.mergeLocked()
	if status == domain.FilterAll {
		delete(e.filters, actualField)
	} else {
		e.filters[actualField] = domain.FilterState{
			Status:      status,
			ActualField: actualField,
			TargetField: targetField,
		}
	}
	e.displayed = e.filteredLocked()
	e.page = 1
	ev := e.eventLocked()
	listeners := e.listenersLocked()
	e.mu.Unlock()

	emit(listeners, ev)
	return nil
}

// ClearFilters removes every filter while keeping unsaved edits.
func (e *Engine) ClearFilters() {
	e.mu.Lock()
	e.mergeLocked()
	e.filters = make(map[string]domain.FilterState)
	e.displayed = domain.ClonePlanItems(e.canonical)
	e.page = 1
	ev := e.eventLocked()
	listeners := e.listenersLocked()
	e.mu.Unlock()

	emit(listeners, ev)
}

// FormData validates the displayed rows. On success the displayed rows are
// merged into the canonical set and the full canonical set is returned.
// On failure a ValidationErrors value wrapping ErrInvalid is returned and no
// state changes.
func (e *Engine) FormData() ([]domain.PlanItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if errs := e.validateLocked(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	e.mergeLocked()
	return domain.ClonePlanItems(e.canonical), nil
}

// Validate returns the field errors of the displayed rows.
func (e *Engine) Validate() []FieldError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateLocked()
}

// Displayed returns a copy of the rows currently displayed.
func (e *Engine) Displayed() []domain.PlanItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.ClonePlanItems(e.displayed)
}

// Canonical returns a copy of the canonical set as last reconciled. It is
// empty until the first merge.
func (e *Engine) Canonical() []domain.PlanItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.ClonePlanItems(e.canonical)
}

// Row returns the working copy of a row, including unsaved edits.
func (e *Engine) Row(rowID string) (domain.PlanItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.indexDisplayedLocked(rowID); idx >= 0 {
		return e.displayed[idx].Clone(), true
	}
	for i := range e.canonical {
		if e.canonical[i].ID == rowID {
			return e.canonical[i].Clone(), true
		}
	}
	return domain.PlanItem{}, false
}

// Filters returns the active filters ordered by actual column.
func (e *Engine) Filters() []domain.FilterState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sortedFiltersLocked()
}

// FilterFor returns the status currently applied to an actual column.
func (e *Engine) FilterFor(actualField string) domain.FilterStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filters[actualField].Status
}

// UpdateMeta applies m to a row in both row sets, keeping fields left empty,
// and returns the row's previous metadata.
func (e *Engine) UpdateMeta(rowID string, m domain.PlanMeta) (domain.PlanMeta, error) {
	return e.editMeta(rowID, func(p *domain.PlanItem) { p.ApplyMeta(m) })
}

// RestoreMeta sets a row's metadata back to exactly m.
func (e *Engine) RestoreMeta(rowID string, m domain.PlanMeta) error {
	_, err := e.editMeta(rowID, func(p *domain.PlanItem) { p.RestoreMeta(m) })
	return err
}

func (e *Engine) editMeta(rowID string, fn func(*domain.PlanItem)) (domain.PlanMeta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var prev domain.PlanMeta
	found := false
	for i := range e.canonical {
		if e.canonical[i].ID == rowID {
			prev = e.canonical[i].Meta()
			fn(&e.canonical[i])
			found = true
		}
	}
	if idx := e.indexDisplayedLocked(rowID); idx >= 0 {
		if !found {
			prev = e.displayed[idx].Meta()
		}
		fn(&e.displayed[idx])
		found = true
	}
	if !found {
		return domain.PlanMeta{}, ErrUnknownRow
	}
	return prev, nil
}

// ── paging ──────────────────────────────────────────────────────────────────

// Page returns the current 1-based page.
func (e *Engine) Page() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// TotalPages returns the number of pages of displayed rows, at least 1.
func (e *Engine) TotalPages() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalPagesLocked()
}

// SetPage moves to page n, clamped to the available pages.
func (e *Engine) SetPage(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page = n
	e.clampPageLocked()
}

// PageRows returns the displayed rows on the current page.
func (e *Engine) PageRows() []domain.PlanItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := (e.page - 1) * e.pageSize
	if start >= len(e.displayed) {
		return nil
	}
	end := start + e.pageSize
	if end > len(e.displayed) {
		end = len(e.displayed)
	}
	return domain.ClonePlanItems(e.displayed[start:end])
}

func (e *Engine) totalPagesLocked() int {
	n := (len(e.displayed) + e.pageSize - 1) / e.pageSize
	if n < 1 {
		return 1
	}
	return n
}

func (e *Engine) clampPageLocked() {
	if total := e.totalPagesLocked(); e.page > total {
		e.page = total
	}
	if e.page < 1 {
		e.page = 1
	}
}

// ── internals ───────────────────────────────────────────────────────────────

// mergeLocked folds the displayed rows into the canonical set by id. An empty
// canonical set is seeded from the displayed rows.
func (e *Engine) mergeLocked() {
	if len(e.canonical) == 0 {
		e.canonical = domain.ClonePlanItems(e.displayed)
		return
	}
	pos := make(map[string]int, len(e.canonical))
	for i := range e.canonical {
		pos[e.canonical[i].ID] = i
	}
	for _, row := range e.displayed {
		if i, ok := pos[row.ID]; ok {
			e.canonical[i] = row.Clone()
			continue
		}
		e.canonical = append(e.canonical, row.Clone())
		pos[row.ID] = len(e.canonical) - 1
	}
}

// mergedViewLocked returns what the canonical set would be after a merge,
// without changing state.
func (e *Engine) mergedViewLocked() []domain.PlanItem {
	if len(e.canonical) == 0 {
		return e.displayed
	}
	edited := make(map[string]*domain.PlanItem, len(e.displayed))
	for i := range e.displayed {
		edited[e.displayed[i].ID] = &e.displayed[i]
	}
	out := make([]domain.PlanItem, 0, len(e.canonical))
	seen := make(map[string]bool, len(e.canonical))
	for _, row := range e.canonical {
		seen[row.ID] = true
		if d, ok := edited[row.ID]; ok {
			out = append(out, *d)
			continue
		}
		out = append(out, row)
	}
	for _, row := range e.displayed {
		if !seen[row.ID] {
			out = append(out, row)
		}
	}
	return out
}

func (e *Engine) filteredLocked() []domain.PlanItem {
	filters := e.sortedFiltersLocked()
	out := make([]domain.PlanItem, 0, len(e.canonical))
	for i := range e.canonical {
		keep := true
		for _, f := range filters {
			if !f.Matches(&e.canonical[i]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, e.canonical[i].Clone())
		}
	}
	return out
}

func (e *Engine) sortedFiltersLocked() []domain.FilterState {
	out := make([]domain.FilterState, 0, len(e.filters))
	for _, f := range e.filters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActualField < out[j].ActualField })
	return out
}

func (e *Engine) validateLocked() []FieldError {
	var errs []FieldError
	for i := range e.displayed {
		errs = append(errs, ValidateRow(e.cfg, &e.displayed[i])...)
	}
	return errs
}

func (e *Engine) indexDisplayedLocked(rowID string) int {
	for i := range e.displayed {
		if e.displayed[i].ID == rowID {
			return i
		}
	}
	return -1
}

func (e *Engine) resetBaselineLocked(rows []domain.PlanItem) {
	e.baseline = make(map[string]map[string]string, len(rows))
	for _, r := range rows {
		vals := make(map[string]string, len(e.cfg.Dimensions))
		for _, field := range e.cfg.ActualFields() {
			vals[field] = r.Actual(field)
		}
		e.baseline[r.ID] = vals
	}
}

func (e *Engine) eventLocked() RevalidateEvent {
	return RevalidateEvent{
		PlanType:  e.cfg.Type,
		Displayed: len(e.displayed),
		Errors:    e.validateLocked(),
	}
}

func (e *Engine) listenersLocked() []func(RevalidateEvent) {
	return append([]func(RevalidateEvent){}, e.listeners...)
}

func emit(listeners []func(RevalidateEvent), ev RevalidateEvent) {
	for _, fn := range listeners {
		fn(ev)
	}
}
