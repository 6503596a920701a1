package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JourneyJu/dsg-sub008/internal/db"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/reconcile"
	"github.com/JourneyJu/dsg-sub008/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the assessment API from a SQLite store.
type Handler struct {
	targets repository.TargetRepo
	plans   repository.PlanRepo
	subs    repository.SubmissionRepo
	uow     db.UnitOfWork
	token   string
	log     logrus.FieldLogger
}

// NewHandler creates a Handler backed by database. An empty token disables
// authentication.
func NewHandler(database *sql.DB, token string, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		targets: repository.NewSQLiteTargetRepo(database),
		plans:   repository.NewSQLitePlanRepo(database),
		subs:    repository.NewSQLiteSubmissionRepo(database),
		uow:     db.NewSQLiteUnitOfWork(database),
		token:   token,
		log:     log,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.TargetFilter{Keyword: q.Get("keyword")}

	var err error
	if f.Offset, err = queryInt(q.Get("offset")); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "offset: "+err.Error())
		return
	}
	if f.Limit, err = queryInt(q.Get("limit")); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	if s := q.Get("status"); s != "" {
		if !domain.ValidTargetStatuses[s] {
			WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("invalid status %q", s))
			return
		}
		f.Status = domain.TargetStatus(s)
	}

	targets, total, err := h.targets.List(r.Context(), f)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	page := targetPageJSON{Entries: make([]targetJSON, 0, len(targets)), TotalCount: total}
	for _, t := range targets {
		page.Entries = append(page.Entries, toTargetJSON(t))
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	t, err := h.loadTarget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTargetJSON(t))
}

func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.targets.GetByID(r.Context(), id); err != nil {
		MapStoreError(w, r, err)
		return
	}
	subs, err := h.subs.ListByTarget(r.Context(), id)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	out := make([]submissionJSON, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubmissionJSON(s))
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"entries": out})
}

type planUpdateRequest struct {
	Owner       string `json:"owner"`
	PlanName    string `json:"plan_name"`
	Description string `json:"description"`
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req planUpdateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}

	id := chi.URLParam(r, "id")
	meta := domain.PlanMeta{Owner: req.Owner, PlanName: req.PlanName, Description: req.Description}
	if err := h.plans.UpdateMeta(r.Context(), id, meta); err != nil {
		MapStoreError(w, r, err)
		return
	}
	p, err := h.plans.GetByID(r.Context(), id)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, planToWire(p))
}

// SubmitEvaluation writes back actual values. Every value is checked against
// the stored targets first; any rejected value fails the whole request.
func (h *Handler) SubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !gjson.ValidBytes(body) {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}
	entries := gjson.GetBytes(body, "plans")
	if !entries.IsArray() {
		WriteProblem(w, r, http.StatusBadRequest, "plans must be an array")
		return
	}

	t, err := h.loadTarget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writes, problems := checkSubmission(t, entries.Array())
	if len(problems) > 0 {
		WriteProblemWithErrors(w, r, fmt.Sprintf("%d value(s) rejected", len(problems)), problems)
		return
	}

	sub := repository.Submission{TargetID: t.ID, PlanCount: len(writes)}
	err = h.uow.WithinTx(r.Context(), func(ctx context.Context, tx db.DBTX) error {
		plans := repository.NewSQLitePlanRepo(tx)
		for _, wr := range writes {
			if err := plans.SetActuals(ctx, wr.planID, wr.values); err != nil {
				return err
			}
		}
		if err := repository.NewSQLiteSubmissionRepo(tx).Record(ctx, &sub); err != nil {
			return err
		}
		if t.Status == domain.TargetPending {
			return repository.NewSQLiteTargetRepo(tx).UpdateStatus(ctx, t.ID, domain.TargetEvaluating)
		}
		return nil
	})
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	logFrom(r).WithFields(logrus.Fields{
		"target_id":  t.ID,
		"plan_count": sub.PlanCount,
	}).Info("evaluation submitted")
	writeJSON(w, r, http.StatusOK, toSubmissionJSON(sub))
}

type planWrite struct {
	planID string
	values map[string]int
}

// checkSubmission validates each entry against the target's stored plans
// using the same rules as the evaluation form.
func checkSubmission(t *domain.Target, entries []gjson.Result) ([]planWrite, []FieldProblem) {
	byID := make(map[string]*domain.PlanItem, len(t.Plans))
	for i := range t.Plans {
		byID[t.Plans[i].ID] = &t.Plans[i]
	}

	var writes []planWrite
	var problems []FieldProblem
	for _, e := range entries {
		id := e.Get("id").String()
		plan, ok := byID[id]
		if !ok {
			problems = append(problems, FieldProblem{PlanID: id, Field: "id", Message: "plan does not belong to this target"})
			continue
		}
		cfg, _ := domain.ConfigFor(plan.PlanType)

		wr := planWrite{planID: id, values: make(map[string]int)}
		e.ForEach(func(key, value gjson.Result) bool {
			field := key.String()
			if field == "id" {
				return true
			}
			d, ok := cfg.DimensionFor(field)
			if !ok {
				problems = append(problems, FieldProblem{PlanID: id, Field: field, Message: "not an actual column of " + string(plan.PlanType)})
				return true
			}
			if !plan.RequiresInput(d.TargetField) {
				problems = append(problems, FieldProblem{PlanID: id, Field: field, Message: "no target set for " + d.TargetField})
				return true
			}
			raw := strings.TrimSpace(wireValue(value))
			if err := reconcile.ValidateValue(d, plan, raw); err != nil {
				problems = append(problems, FieldProblem{PlanID: id, Field: field, Message: err.Error()})
				return true
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				problems = append(problems, FieldProblem{PlanID: id, Field: field, Message: "enter a non-negative integer"})
				return true
			}
			wr.values[field] = n
			return true
		})
		if len(wr.values) > 0 {
			writes = append(writes, wr)
		}
	}
	return writes, problems
}

// wireValue returns the literal text of a submitted value so that 8.5 or
// "abc" fail the integer rule instead of being coerced.
func wireValue(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		return v.Raw
	case gjson.String:
		return v.Str
	default:
		return ""
	}
}

func (h *Handler) loadTarget(ctx context.Context, id string) (*domain.Target, error) {
	t, err := h.targets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Plans, err = h.plans.ListByTarget(ctx, id); err != nil {
		return nil, err
	}
	return t, nil
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logFrom(r).WithError(err).Error("failed to encode response")
	}
}
