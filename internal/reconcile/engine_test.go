package reconcile

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	actualQty  = "actual_quantity"
	collection = "collection_count"
)

func acquisitionEngine(t *testing.T, rows ...domain.PlanItem) *Engine {
	t.Helper()
	cfg, ok := domain.ConfigFor(domain.PlanDataAcquisition)
	require.True(t, ok)
	e := NewEngine(cfg)
	e.Load(rows)
	return e
}

func ids(rows []domain.PlanItem) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func actualOf(t *testing.T, rows []domain.PlanItem, id string) string {
	t.Helper()
	for _, r := range rows {
		if r.ID == id {
			return r.Actual(actualQty)
		}
	}
	t.Fatalf("row %s not found", id)
	return ""
}

func TestEngine_EndToEndScenario(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "5"),
	)

	require.NoError(t, e.ApplyFilter(domain.FilterUnfilled, actualQty, collection))
	assert.Equal(t, []string{"a"}, ids(e.Displayed()))

	errs, err := e.SetActual("a", actualQty, "12")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "exceeds target")

	_, err = e.FormData()
	require.ErrorIs(t, err, ErrInvalid)

	errs, err = e.SetActual("a", actualQty, "8")
	require.NoError(t, err)
	assert.Empty(t, errs)

	require.NoError(t, e.ApplyFilter(domain.FilterAll, actualQty, collection))
	displayed := e.Displayed()
	assert.Equal(t, []string{"a", "b"}, ids(displayed))
	assert.Equal(t, "8", actualOf(t, displayed, "a"))
	assert.Equal(t, "5", actualOf(t, displayed, "b"))
}

func TestEngine_FilterIdempotent(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "5"),
		testutil.NewAcquisitionPlan("c", 3, "abc"),
	)

	for _, status := range []domain.FilterStatus{domain.FilterUnfilled, domain.FilterFilled, domain.FilterAnomalous} {
		require.NoError(t, e.ApplyFilter(status, actualQty, collection))
		once := e.Displayed()
		require.NoError(t, e.ApplyFilter(status, actualQty, collection))
		twice := e.Displayed()
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("status %s: second application changed rows (-once +twice):\n%s", status.Name(), diff)
		}
	}
}

func TestEngine_FilterStatuses(t *testing.T) {
	rows := []domain.PlanItem{
		testutil.NewAcquisitionPlan("empty", 10, ""),
		testutil.NewAcquisitionPlan("ok", 10, "7"),
		testutil.NewAcquisitionPlan("over", 10, "11"),
		testutil.NewAcquisitionPlan("zero", 10, "0"),
		testutil.NewAcquisitionPlan("junk", 10, "x1"),
		testutil.NewAcquisitionPlan("notarget", 0, ""),
	}

	cases := []struct {
		status domain.FilterStatus
		want   []string
	}{
		{domain.FilterAll, []string{"empty", "ok", "over", "zero", "junk", "notarget"}},
		{domain.FilterUnfilled, []string{"empty"}},
		{domain.FilterFilled, []string{"ok", "over", "zero", "junk"}},
		{domain.FilterAnomalous, []string{"empty", "over", "zero", "junk"}},
	}
	for _, tc := range cases {
		t.Run(tc.status.Name(), func(t *testing.T) {
			e := acquisitionEngine(t, rows...)
			require.NoError(t, e.ApplyFilter(tc.status, actualQty, collection))
			assert.Equal(t, tc.want, ids(e.Displayed()))
		})
	}
}

func TestEngine_FiltersCombineWithAnd(t *testing.T) {
	cfg, _ := domain.ConfigFor(domain.PlanBusinessAnalysis)
	e := NewEngine(cfg)
	e.Load([]domain.PlanItem{
		testutil.NewTestPlan("both-filled", domain.PlanBusinessAnalysis,
			testutil.WithTarget("model_target_count", 4), testutil.WithActual("model_actual_count", "4"),
			testutil.WithTarget("flow_target_count", 2), testutil.WithActual("flow_actual_count", "1")),
		testutil.NewTestPlan("model-only", domain.PlanBusinessAnalysis,
			testutil.WithTarget("model_target_count", 4), testutil.WithActual("model_actual_count", "2"),
			testutil.WithTarget("flow_target_count", 2)),
		testutil.NewTestPlan("none", domain.PlanBusinessAnalysis,
			testutil.WithTarget("model_target_count", 4),
			testutil.WithTarget("flow_target_count", 2)),
	})

	require.NoError(t, e.ApplyFilter(domain.FilterFilled, "model_actual_count", "model_target_count"))
	assert.Equal(t, []string{"both-filled", "model-only"}, ids(e.Displayed()))

	require.NoError(t, e.ApplyFilter(domain.FilterUnfilled, "flow_actual_count", "flow_target_count"))
	assert.Equal(t, []string{"model-only"}, ids(e.Displayed()))
	assert.Len(t, e.Filters(), 2)

	require.NoError(t, e.ApplyFilter(domain.FilterAll, "model_actual_count", "model_target_count"))
	assert.Equal(t, []string{"model-only", "none"}, ids(e.Displayed()))
	assert.Equal(t, domain.FilterAll, e.FilterFor("model_actual_count"))
	assert.Equal(t, domain.FilterUnfilled, e.FilterFor("flow_actual_count"))
}

func TestEngine_MergePreservesHiddenEdits(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, ""),
		testutil.NewAcquisitionPlan("c", 5, "5"),
	)

	// Edit b while everything is shown, then hide it behind a filter.
	_, err := e.SetActual("b", actualQty, "3")
	require.NoError(t, err)
	require.NoError(t, e.ApplyFilter(domain.FilterUnfilled, actualQty, collection))
	assert.Equal(t, []string{"a"}, ids(e.Displayed()))

	_, err = e.SetActual("a", actualQty, "9")
	require.NoError(t, err)

	e.ClearFilters()
	displayed := e.Displayed()
	assert.Equal(t, "9", actualOf(t, displayed, "a"))
	assert.Equal(t, "3", actualOf(t, displayed, "b"))
	assert.Equal(t, "5", actualOf(t, displayed, "c"))
	assert.Empty(t, e.Filters())
}

func TestEngine_FormDataReturnsFullCanonicalSet(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "5"),
	)
	require.NoError(t, e.ApplyFilter(domain.FilterUnfilled, actualQty, collection))
	_, err := e.SetActual("a", actualQty, "10")
	require.NoError(t, err)

	rows, err := e.FormData()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(rows))
	assert.Equal(t, "10", actualOf(t, rows, "a"))
}

func TestEngine_FormDataWithoutFilterSeedsCanonical(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, "1"),
		testutil.NewAcquisitionPlan("b", 5, "5"),
	)
	assert.Empty(t, e.Canonical(), "canonical is seeded lazily")

	rows, err := e.FormData()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(rows))
	assert.Len(t, e.Canonical(), 2)
}

func TestEngine_FormDataInvalidLeavesCanonicalUntouched(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "5"),
	)
	require.NoError(t, e.ApplyFilter(domain.FilterUnfilled, actualQty, collection))
	before := e.Canonical()

	_, err := e.SetActual("a", actualQty, "abc")
	require.NoError(t, err)

	rows, err := e.FormData()
	assert.Nil(t, rows)
	require.ErrorIs(t, err, ErrInvalid)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "pattern", verrs[0].Rule)
	assert.Len(t, verrs.ForRow("a"), 1)

	if diff := cmp.Diff(before, e.Canonical()); diff != "" {
		t.Errorf("canonical changed after failed FormData (-before +after):\n%s", diff)
	}
}

func TestEngine_ValidationOnlyCoversDisplayedRows(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "5"),
	)
	// a is empty and would fail "required", but only b is displayed.
	require.NoError(t, e.ApplyFilter(domain.FilterFilled, actualQty, collection))
	assert.Empty(t, e.Validate())

	rows, err := e.FormData()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestEngine_SetActualErrors(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "5"),
	)

	_, err := e.SetActual("a", "model_actual_count", "1")
	require.ErrorIs(t, err, ErrUnknownField)

	_, err = e.SetActual("missing", actualQty, "1")
	require.ErrorIs(t, err, ErrUnknownRow)

	require.NoError(t, e.ApplyFilter(domain.FilterUnfilled, actualQty, collection))
	_, err = e.SetActual("b", actualQty, "1")
	require.ErrorIs(t, err, ErrUnknownRow, "hidden rows are not editable")
}

func TestEngine_ApplyFilterRejectsUnknownPair(t *testing.T) {
	e := acquisitionEngine(t, testutil.NewAcquisitionPlan("a", 10, ""))
	err := e.ApplyFilter(domain.FilterFilled, actualQty, "model_target_count")
	require.ErrorIs(t, err, ErrUnknownField)
	assert.Empty(t, e.Filters())
}

func TestEngine_LoadResetsFiltersAndEdits(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "5"),
	)
	require.NoError(t, e.ApplyFilter(domain.FilterUnfilled, actualQty, collection))
	_, err := e.SetActual("a", actualQty, "4")
	require.NoError(t, err)

	e.Load([]domain.PlanItem{testutil.NewAcquisitionPlan("a", 10, "")})
	assert.Empty(t, e.Filters())
	assert.Equal(t, "", actualOf(t, e.Displayed(), "a"))
	assert.Equal(t, 1, e.Page())
}

func TestEngine_RefreshKeepsEditsAndDropsMissingRows(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "2"),
		testutil.NewAcquisitionPlan("gone", 5, ""),
	)
	_, err := e.SetActual("a", actualQty, "7")
	require.NoError(t, err)
	_, err = e.SetActual("gone", actualQty, "1")
	require.NoError(t, err)

	// Server now reports b updated by someone else and no longer lists "gone".
	e.Refresh([]domain.PlanItem{
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "4"),
	})

	displayed := e.Displayed()
	assert.Equal(t, []string{"a", "b"}, ids(displayed))
	assert.Equal(t, "7", actualOf(t, displayed, "a"), "unsaved edit kept")
	assert.Equal(t, "4", actualOf(t, displayed, "b"), "unedited row takes fetched value")
}

func TestEngine_RefreshReappliesFilters(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, ""),
	)
	require.NoError(t, e.ApplyFilter(domain.FilterUnfilled, actualQty, collection))

	e.Refresh([]domain.PlanItem{
		testutil.NewAcquisitionPlan("a", 10, "10"),
		testutil.NewAcquisitionPlan("b", 5, ""),
	})
	assert.Equal(t, []string{"b"}, ids(e.Displayed()))
}

func TestEngine_Changes(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "5"),
		testutil.NewAcquisitionPlan("c", 5, "2"),
	)
	_, err := e.SetActual("a", actualQty, "8")
	require.NoError(t, err)
	_, err = e.SetActual("c", actualQty, "2")
	require.NoError(t, err)

	rows, err := e.FormData()
	require.NoError(t, err)
	assert.Equal(t, []ActualChange{{RowID: "a", Field: actualQty, Value: 8}}, e.Changes(rows))
}

func TestEngine_ChangesCompareIntegersByValue(t *testing.T) {
	e := acquisitionEngine(t, testutil.NewAcquisitionPlan("a", 10, ""))
	_, err := e.SetActual("a", actualQty, "08")
	require.NoError(t, err)

	rows, err := e.FormData()
	require.NoError(t, err)
	assert.Equal(t, []ActualChange{{RowID: "a", Field: actualQty, Value: 8}}, e.Changes(rows))

	// The server stored 8; the local "08" is not an outstanding edit anymore.
	e.Refresh([]domain.PlanItem{testutil.NewAcquisitionPlan("a", 10, "8")})
	assert.Equal(t, "8", actualOf(t, e.Displayed(), "a"))
	rows, err = e.FormData()
	require.NoError(t, err)
	assert.Empty(t, e.Changes(rows))
}

func TestEngine_Paging(t *testing.T) {
	cfg, _ := domain.ConfigFor(domain.PlanDataAcquisition)
	e := NewEngine(cfg, WithPageSize(2))

	var rows []domain.PlanItem
	for i := 0; i < 5; i++ {
		actual := ""
		if i%2 == 0 {
			actual = "1"
		}
		rows = append(rows, testutil.NewAcquisitionPlan(fmt.Sprintf("r%d", i), 3, actual))
	}
	e.Load(rows)

	assert.Equal(t, 3, e.TotalPages())
	e.SetPage(3)
	assert.Equal(t, []string{"r4"}, ids(e.PageRows()))
	e.SetPage(99)
	assert.Equal(t, 3, e.Page())
	e.SetPage(0)
	assert.Equal(t, 1, e.Page())

	e.SetPage(2)
	require.NoError(t, e.ApplyFilter(domain.FilterUnfilled, actualQty, collection))
	assert.Equal(t, 1, e.Page(), "filter change resets the page")
	assert.Equal(t, []string{"r1", "r3"}, ids(e.PageRows()))
	assert.Equal(t, 1, e.TotalPages())
}

func TestEngine_RevalidateEventFollowsCommit(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, ""),
		testutil.NewAcquisitionPlan("b", 5, "5"),
	)

	var events []RevalidateEvent
	e.Subscribe(func(ev RevalidateEvent) {
		// Listeners may read the engine; the change is already visible.
		assert.Len(t, e.Displayed(), ev.Displayed)
		events = append(events, ev)
	})

	require.NoError(t, e.ApplyFilter(domain.FilterUnfilled, actualQty, collection))
	require.Len(t, events, 1)
	assert.Equal(t, domain.PlanDataAcquisition, events[0].PlanType)
	assert.Equal(t, 1, events[0].Displayed)
	require.Len(t, events[0].Errors, 1)
	assert.Equal(t, "required", events[0].Errors[0].Rule)

	e.ClearFilters()
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[1].Displayed)
}

func TestEngine_MetaUpdateAndRestore(t *testing.T) {
	e := acquisitionEngine(t,
		testutil.NewAcquisitionPlan("a", 10, "", testutil.WithOwner("li"), testutil.WithDescription("first")),
	)

	prev, err := e.UpdateMeta("a", domain.PlanMeta{Owner: "wang"})
	require.NoError(t, err)
	assert.Equal(t, "li", prev.Owner)

	row, ok := e.Row("a")
	require.True(t, ok)
	assert.Equal(t, "wang", row.Owner)
	assert.Equal(t, "first", row.Description, "empty fields keep their value")

	require.NoError(t, e.RestoreMeta("a", prev))
	row, _ = e.Row("a")
	assert.Equal(t, "li", row.Owner)

	_, err = e.UpdateMeta("nope", domain.PlanMeta{Owner: "x"})
	require.ErrorIs(t, err, ErrUnknownRow)
}

func TestEngine_ConcurrentEditsAndFilters(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var rows []domain.PlanItem
	for i := 0; i < 50; i++ {
		rows = append(rows, testutil.NewAcquisitionPlan(fmt.Sprintf("r%02d", i), 10, ""))
	}
	e := acquisitionEngine(t, rows...)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = e.SetActual(fmt.Sprintf("r%02d", i), actualQty, "5")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := domain.FilterFilled
			if i%2 == 1 {
				status = domain.FilterAll
			}
			_ = e.ApplyFilter(status, actualQty, collection)
		}(i)
	}
	wg.Wait()

	e.ClearFilters()
	out, err := e.FormData()
	require.NoError(t, err)
	require.Len(t, out, 50)
	for _, r := range out {
		assert.Equal(t, "5", r.Actual(actualQty), "row %s lost its edit", r.ID)
	}
}
