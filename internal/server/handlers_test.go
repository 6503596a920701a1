package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JourneyJu/dsg-sub008/internal/db"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/logging"
	"github.com/JourneyJu/dsg-sub008/internal/repository"
	"github.com/JourneyJu/dsg-sub008/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fixture struct {
	router http.Handler
	repo   *repository.SQLitePlanRepo
	target *repository.SQLiteTargetRepo
	subs   *repository.SQLiteSubmissionRepo
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	targets := repository.NewSQLiteTargetRepo(database)
	created, err := Seed(context.Background(), db.NewSQLiteUnitOfWork(database), targets)
	require.NoError(t, err)
	require.True(t, created)

	return &fixture{
		router: NewRouter(NewHandler(database, token, logging.Discard())),
		repo:   repository.NewSQLitePlanRepo(database),
		target: targets,
		subs:   repository.NewSQLiteSubmissionRepo(database),
	}
}

func (f *fixture) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

const evalPath = "/api/v1/assessment/targets/" + DemoTargetID + "/evaluation"

func TestSeed_IsIdempotent(t *testing.T) {
	database := testutil.NewTestDB(t)
	uow := db.NewSQLiteUnitOfWork(database)
	targets := repository.NewSQLiteTargetRepo(database)

	created, err := Seed(context.Background(), uow, targets)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = Seed(context.Background(), uow, targets)
	require.NoError(t, err)
	assert.False(t, created)

	plans, err := repository.NewSQLitePlanRepo(database).ListByTarget(context.Background(), DemoTargetID)
	require.NoError(t, err)
	assert.Len(t, plans, len(demoPlans()))
}

func TestHealth_NoAuthRequired(t *testing.T) {
	f := newFixture(t, "secret")
	rec := f.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_RejectsMissingToken(t *testing.T) {
	f := newFixture(t, "secret")
	rec := f.do(t, http.MethodGet, "/api/v1/assessment/targets", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = f.do(t, http.MethodGet, "/api/v1/assessment/targets", "", "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListTargets(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, "/api/v1/assessment/targets?status=pending&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := gjson.Parse(rec.Body.String())
	assert.Equal(t, int64(1), body.Get("total_count").Int())
	assert.Equal(t, DemoTargetID, body.Get("entries.0.id").String())
	assert.Equal(t, "2026-01-01", body.Get("entries.0.start_date").String())
}

func TestListTargets_BadQuery(t *testing.T) {
	f := newFixture(t, "")
	for _, q := range []string{"?status=archived", "?offset=-1", "?limit=ten"} {
		rec := f.do(t, http.MethodGet, "/api/v1/assessment/targets"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetEvaluation_FlatPlans(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, evalPath, "")
	require.Equal(t, http.StatusOK, rec.Code)

	plans := gjson.Get(rec.Body.String(), "plans").Array()
	require.Len(t, plans, len(demoPlans()))
	first := plans[0]
	assert.Equal(t, "plan-acq-01", first.Get("id").String())
	assert.Equal(t, int64(120), first.Get("collection_count").Int())
	assert.Equal(t, gjson.Null, first.Get("actual_quantity").Type)
	assert.Equal(t, "plan-dqi-01", first.Get("related_plans.0.id").String())
}

func TestGetEvaluation_UnknownTarget(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, "/api/v1/assessment/targets/nope/evaluation", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "https://dsg.local/problems/not-found", gjson.Get(rec.Body.String(), "type").String())
}

func TestSubmit_PersistsValuesAndAdvancesStatus(t *testing.T) {
	f := newFixture(t, "")
	body := `{"plans":[{"id":"plan-acq-01","actual_quantity":100},{"id":"plan-ba-01","model_actual_count":6,"table_actual_count":"12"}]}`
	rec := f.do(t, http.MethodPost, evalPath, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "plan_count").Int())

	ctx := context.Background()
	p, err := f.repo.GetByID(ctx, "plan-acq-01")
	require.NoError(t, err)
	assert.Equal(t, "100", p.Actual("actual_quantity"))

	ba, err := f.repo.GetByID(ctx, "plan-ba-01")
	require.NoError(t, err)
	assert.Equal(t, "12", ba.Actual("table_actual_count"))

	tg, err := f.target.GetByID(ctx, DemoTargetID)
	require.NoError(t, err)
	assert.Equal(t, domain.TargetEvaluating, tg.Status)

	subs, err := f.subs.ListByTarget(ctx, DemoTargetID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
}

func TestSubmit_RejectsInvalidValuesAtomically(t *testing.T) {
	f := newFixture(t, "")
	body := `{"plans":[
		{"id":"plan-acq-01","actual_quantity":100},
		{"id":"plan-acq-02","actual_quantity":46},
		{"id":"plan-dqi-01","actual_quantity":8.5},
		{"id":"plan-dqi-02","actual_quantity":0},
		{"id":"plan-acq-03","actual_quantity":1},
		{"id":"plan-cat-01","model_actual_count":1},
		{"id":"other-target-plan","actual_quantity":1}
	]}`
	rec := f.do(t, http.MethodPost, evalPath, body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := gjson.Parse(rec.Body.String())
	assert.Equal(t, "https://dsg.local/problems/validation", resp.Get("type").String())
	errs := resp.Get("errors").Array()
	require.Len(t, errs, 6)

	byPlan := map[string]string{}
	for _, e := range errs {
		byPlan[e.Get("plan_id").String()] = e.Get("message").String()
	}
	assert.Contains(t, byPlan["plan-acq-02"], "exceeds target")
	assert.Contains(t, byPlan["plan-dqi-01"], "non-negative integer")
	assert.Contains(t, byPlan["plan-dqi-02"], "greater than 0")
	assert.Contains(t, byPlan["plan-acq-03"], "no target set")
	assert.Contains(t, byPlan["plan-cat-01"], "not an actual column")
	assert.Contains(t, byPlan["other-target-plan"], "does not belong")

	p, err := f.repo.GetByID(context.Background(), "plan-acq-01")
	require.NoError(t, err)
	assert.Empty(t, p.Actual("actual_quantity"), "valid entries are not written when others fail")
}

func TestSubmit_TrimsPaddedStringValues(t *testing.T) {
	f := newFixture(t, "")
	body := `{"plans":[{"id":"plan-acq-01","actual_quantity":" 8 "}]}`
	rec := f.do(t, http.MethodPost, evalPath, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p, err := f.repo.GetByID(context.Background(), "plan-acq-01")
	require.NoError(t, err)
	assert.Equal(t, "8", p.Actual("actual_quantity"))
}

func TestSubmit_RejectsOversizedValue(t *testing.T) {
	f := newFixture(t, "")
	body := `{"plans":[{"id":"plan-acq-01","actual_quantity":"99999999999999999999"}]}`
	rec := f.do(t, http.MethodPost, evalPath, body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, gjson.Get(rec.Body.String(), "errors.0.message").String(), "exceeds target")

	p, err := f.repo.GetByID(context.Background(), "plan-acq-01")
	require.NoError(t, err)
	assert.Empty(t, p.Actual("actual_quantity"))
}

func TestSubmit_BadBody(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, evalPath, `{"plans":`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, evalPath, `{"plans":{}}`).Code)
}

func TestUpdatePlan_KeepsEmptyFields(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodPut, "/api/v1/assessment/plans/plan-cat-01", `{"owner":"Qian Hao"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := gjson.Parse(rec.Body.String())
	assert.Equal(t, "Qian Hao", body.Get("owner").String())
	assert.Equal(t, "Transport catalogue", body.Get("plan_name").String())
}

func TestUpdatePlan_Errors(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodPut, "/api/v1/assessment/plans/missing", `{"owner":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodPut, "/api/v1/assessment/plans/plan-cat-01", `not json`).Code)
}

func TestListSubmissions(t *testing.T) {
	f := newFixture(t, "")
	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, evalPath, `{"plans":[{"id":"plan-cat-01","actual_quantity":80}]}`).Code)

	rec := f.do(t, http.MethodGet, strings.TrimSuffix(evalPath, "evaluation")+"submissions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "entries.#").Int())

	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodGet, "/api/v1/assessment/targets/missing/submissions", "").Code)
}
