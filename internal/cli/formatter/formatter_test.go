package formatter

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/reconcile"
	"github.com/JourneyJu/dsg-sub008/internal/service"
	"github.com/JourneyJu/dsg-sub008/internal/testutil"
	"github.com/stretchr/testify/assert"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestRenderTable_AlignsStyledCells(t *testing.T) {
	out := stripANSI(RenderTable(
		[]string{"A", "N"},
		[][]string{{StyleRed.Render("x"), "5"}, {"long", "100"}},
		1,
	))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "x       5", lines[2])
	assert.Equal(t, "long  100", lines[3])
}

func TestRenderProgress(t *testing.T) {
	assert.Equal(t, "[█████░░░░░]  50%", stripANSI(RenderProgress(50, 10)))
	assert.Equal(t, "[██████████] 120%", stripANSI(RenderProgress(120, 10)))
	assert.Equal(t, "[░░░░░░░░░░]   0%", stripANSI(RenderProgress(-5, 10)))
}

func TestFormatTargetList(t *testing.T) {
	tg := testutil.NewTestTarget("Q3 assessment", testutil.WithDepartment("Data Bureau"))
	out := stripANSI(FormatTargetList([]domain.Target{*tg}, 3))
	assert.Contains(t, out, "Q3 assessment")
	assert.Contains(t, out, "Data Bureau")
	assert.Contains(t, out, "Evaluating")
	assert.Contains(t, out, "1 of 3 target(s)")
}

func TestFormatPlanTable_MarksInvalidAndMissingTargets(t *testing.T) {
	cfg, _ := domain.ConfigFor(domain.PlanDataAcquisition)
	rows := []domain.PlanItem{
		testutil.NewAcquisitionPlan("a", 10, "11"),
		testutil.NewTestPlan("b", domain.PlanDataAcquisition),
	}
	out := stripANSI(FormatPlanTable(PlanTableData{
		Config:     cfg,
		Rows:       rows,
		Errors:     reconcile.ValidateRow(cfg, &rows[0]),
		Filters:    []domain.FilterState{{Status: domain.FilterAnomalous, ActualField: "actual_quantity", TargetField: "collection_count"}},
		Page:       1,
		TotalPages: 1,
		Displayed:  2,
	}))
	assert.Contains(t, out, "DATA ACQUISITION")
	assert.Contains(t, out, "Collection: anomalous")
	assert.Contains(t, out, "ACTUAL")
	assert.Contains(t, out, "11")
	assert.Contains(t, out, "--")
	assert.Contains(t, out, "page 1/1 · 2 plan(s)")
}

func TestFormatPlanTable_PrefixesMultiDimensionHeaders(t *testing.T) {
	cfg, _ := domain.ConfigFor(domain.PlanBusinessAnalysis)
	out := stripANSI(FormatPlanTable(PlanTableData{Config: cfg, Page: 1, TotalPages: 1}))
	assert.Contains(t, out, "No plans match.")

	out = stripANSI(FormatPlanTable(PlanTableData{
		Config: cfg, Page: 1, TotalPages: 1, Displayed: 1,
		Rows: []domain.PlanItem{testutil.NewTestPlan("ba", domain.PlanBusinessAnalysis, testutil.WithTarget("model_target_count", 2))},
	}))
	assert.Contains(t, out, "MODEL TARGET")
	assert.Contains(t, out, "TABLE ACTUAL")
}

func TestFormatSummaries(t *testing.T) {
	cfg, _ := domain.ConfigFor(domain.PlanDataAcquisition)
	s := reconcile.Summarize(cfg, []domain.PlanItem{
		testutil.NewAcquisitionPlan("a", 10, "5"),
		testutil.NewAcquisitionPlan("b", 10, ""),
	})
	out := stripANSI(FormatSummaries([]reconcile.Summary{s}))
	assert.Contains(t, out, "Data Acquisition")
	assert.Contains(t, out, "25%")
}

func TestFormatSubmissionError(t *testing.T) {
	err := &service.SubmissionError{Sections: []service.SectionError{{
		PlanType: domain.PlanDataAcquisition,
		Errors: []reconcile.FieldError{
			{RowID: "a", PlanName: "Intake", Field: "actual_quantity", Message: "actual value is required"},
		},
	}}}
	out := stripANSI(FormatSubmissionError(err))
	assert.Contains(t, out, "Data Acquisition")
	assert.Contains(t, out, "Intake actual_quantity=empty actual value is required")
}

func TestFormatSubmitResult(t *testing.T) {
	assert.Contains(t, stripANSI(FormatSubmitResult(&service.SubmitResult{})), "Nothing to submit")

	out := stripANSI(FormatSubmitResult(&service.SubmitResult{Batches: []service.BatchResult{
		{PlanType: domain.PlanDataAcquisition, Plans: 2},
		{PlanType: domain.PlanBusinessAnalysis, Plans: 1, Err: errors.New("boom")},
	}}))
	assert.Contains(t, out, "Data Acquisition: 2 plan(s) saved")
	assert.Contains(t, out, "Business Analysis: boom")
}
