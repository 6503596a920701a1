package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(target *int, actual string) *PlanItem {
	p := &PlanItem{ID: "r", Targets: map[string]int{}, Actuals: map[string]string{}}
	if target != nil {
		p.Targets["collection_count"] = *target
	}
	if actual != "" {
		p.Actuals["actual_quantity"] = actual
	}
	return p
}

func intp(v int) *int { return &v }

func TestClassification(t *testing.T) {
	cases := []struct {
		name      string
		target    *int
		actual    string
		unfilled  bool
		filled    bool
		anomalous bool
	}{
		{"empty with target", intp(10), "", true, false, true},
		{"valid below target", intp(10), "8", false, true, false},
		{"equal to target", intp(10), "10", false, true, false},
		{"exceeds target", intp(10), "11", false, true, true},
		{"zero", intp(10), "0", false, true, true},
		{"non-numeric", intp(10), "abc", false, true, true},
		{"negative", intp(10), "-1", false, true, true},
		{"zero target empty", intp(0), "", false, false, false},
		{"zero target filled", intp(0), "3", false, true, false},
		{"absent target empty", nil, "", false, false, false},
		{"absent target garbage", nil, "x", false, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := row(tc.target, tc.actual)
			assert.Equal(t, tc.unfilled, IsUnfilled(p, "actual_quantity", "collection_count"), "unfilled")
			assert.Equal(t, tc.filled, IsFilled(p, "actual_quantity"), "filled")
			assert.Equal(t, tc.anomalous, IsAnomalous(p, "actual_quantity", "collection_count"), "anomalous")
			// unfilled and filled never overlap
			assert.False(t, IsUnfilled(p, "actual_quantity", "collection_count") && IsFilled(p, "actual_quantity"))
		})
	}
}

func TestFilterState_MatchesAll(t *testing.T) {
	f := FilterState{Status: FilterAll, ActualField: "actual_quantity", TargetField: "collection_count"}
	assert.True(t, f.Matches(row(intp(10), "abc")))
	assert.True(t, f.Matches(row(nil, "")))
}

func TestParseFilterStatus(t *testing.T) {
	for in, want := range map[string]FilterStatus{
		"":          FilterAll,
		"all":       FilterAll,
		"1":         FilterUnfilled,
		"Unfilled":  FilterUnfilled,
		"2":         FilterFilled,
		"filled":    FilterFilled,
		"3":         FilterAnomalous,
		"anomalous": FilterAnomalous,
	} {
		got, err := ParseFilterStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFilterStatus("broken")
	require.Error(t, err)
}

func TestFilterStatus_NextCycles(t *testing.T) {
	s := FilterAll
	seen := []FilterStatus{s}
	for i := 0; i < 4; i++ {
		s = s.Next()
		seen = append(seen, s)
	}
	assert.Equal(t, []FilterStatus{FilterAll, FilterUnfilled, FilterFilled, FilterAnomalous, FilterAll}, seen)
}

func TestPlanItem_SetActualClearsOnBlank(t *testing.T) {
	p := &PlanItem{}
	p.SetActual("actual_quantity", "4")
	assert.Equal(t, "4", p.Actual("actual_quantity"))
	p.SetActual("actual_quantity", "  ")
	assert.Equal(t, "", p.Actual("actual_quantity"))
	_, present := p.Actuals["actual_quantity"]
	assert.False(t, present)
}

func TestPlanItem_CloneIsDeep(t *testing.T) {
	orig := PlanItem{
		ID:           "a",
		Targets:      map[string]int{"collection_count": 10},
		Actuals:      map[string]string{"actual_quantity": "3"},
		RelatedPlans: []RelatedPlan{{ID: "x", Name: "X"}},
	}
	cp := orig.Clone()
	cp.Targets["collection_count"] = 99
	cp.Actuals["actual_quantity"] = "9"
	cp.RelatedPlans[0].Name = "Y"

	assert.Equal(t, 10, orig.Targets["collection_count"])
	assert.Equal(t, "3", orig.Actuals["actual_quantity"])
	assert.Equal(t, "X", orig.RelatedPlans[0].Name)
}

func TestConfigFor_BusinessAnalysisHasThreeDimensions(t *testing.T) {
	cfg, ok := ConfigFor(PlanBusinessAnalysis)
	require.True(t, ok)
	assert.Len(t, cfg.Dimensions, 3)
	assert.True(t, cfg.HasPair("flow_actual_count", "flow_target_count"))
	assert.False(t, cfg.HasPair("flow_actual_count", "model_target_count"))

	for _, pt := range PlanTypes {
		_, ok := ConfigFor(pt)
		assert.True(t, ok, "missing config for %s", pt)
		assert.True(t, ValidPlanTypes[string(pt)])
	}
}

func TestTarget_Validate(t *testing.T) {
	require.Error(t, (&Target{}).Validate())
	require.Error(t, (&Target{Name: "t", Status: "bogus"}).Validate())
	require.NoError(t, (&Target{Name: "t", Status: TargetPending}).Validate())
}

func TestSameActual(t *testing.T) {
	assert.True(t, SameActual("8", "8"))
	assert.True(t, SameActual("08", "8"))
	assert.True(t, SameActual("", ""))
	assert.False(t, SameActual("8", ""))
	assert.False(t, SameActual("8", "9"))
	assert.False(t, SameActual("abc", "ABC"))
}
