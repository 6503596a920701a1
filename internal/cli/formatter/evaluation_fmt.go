package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/reconcile"
	"github.com/JourneyJu/dsg-sub008/internal/service"
)

const nameWidth = 32

// PlanTableData is one page of a plan type section.
type PlanTableData struct {
	Config     domain.PlanTypeConfig
	Rows       []domain.PlanItem
	Errors     []reconcile.FieldError
	Filters    []domain.FilterState
	Page       int
	TotalPages int
	Displayed  int

	// Selected marks one row by id; empty marks none.
	Selected string
}

// FormatPlanTable renders one plan type section. Actual cells that fail
// validation are shown in red; rows without a target for a column show --.
func FormatPlanTable(d PlanTableData) string {
	bad := make(map[string]bool, len(d.Errors))
	for _, e := range d.Errors {
		bad[e.RowID+"/"+e.Field] = true
	}

	headers := []string{"  ID", "PLAN", "OWNER"}
	var right []int
	for _, dim := range d.Config.Dimensions {
		prefix := ""
		if len(d.Config.Dimensions) > 1 {
			prefix = strings.ToUpper(dim.Label) + " "
		}
		right = append(right, len(headers), len(headers)+1)
		headers = append(headers, prefix+"TARGET", prefix+"ACTUAL")
	}

	rows := make([][]string, 0, len(d.Rows))
	for i := range d.Rows {
		p := &d.Rows[i]
		id := "  " + p.ID
		if d.Selected != "" && p.ID == d.Selected {
			id = StyleHeader.Render("▸ " + p.ID)
		}
		row := []string{id, Truncate(p.PlanName, nameWidth), p.Owner}
		for _, dim := range d.Config.Dimensions {
			row = append(row, targetCell(p, dim.TargetField), actualCell(p, dim, bad[p.ID+"/"+dim.ActualField]))
		}
		rows = append(rows, row)
	}

	var b strings.Builder
	b.WriteString(Header(d.Config.Label) + "\n")
	if badges := filterBadges(d.Config, d.Filters); badges != "" {
		b.WriteString(badges + "\n")
	}
	if len(rows) == 0 {
		b.WriteString(Dim("No plans match.") + "\n")
	} else {
		b.WriteString(RenderTable(headers, rows, right...))
	}
	b.WriteString(Dim(fmt.Sprintf("page %d/%d · %d plan(s)", d.Page, d.TotalPages, d.Displayed)))
	return b.String()
}

func targetCell(p *domain.PlanItem, field string) string {
	if v, ok := p.Target(field); ok {
		return strconv.Itoa(v)
	}
	return Dim("--")
}

func actualCell(p *domain.PlanItem, dim domain.Dimension, invalid bool) string {
	v := p.Actual(dim.ActualField)
	switch {
	case invalid && v == "":
		return StyleRed.Render("?")
	case invalid:
		return StyleRed.Render(v)
	case v == "":
		return Dim("--")
	case domain.IsAnomalous(p, dim.ActualField, dim.TargetField):
		return StyleYellow.Render(v)
	default:
		return StyleGreen.Render(v)
	}
}

func filterBadges(cfg domain.PlanTypeConfig, filters []domain.FilterState) string {
	if len(filters) == 0 {
		return ""
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		label := f.ActualField
		if dim, ok := cfg.DimensionFor(f.ActualField); ok {
			label = dim.Label
		}
		parts = append(parts, FilterBadge(label, f.Status))
	}
	return StyleDim.Render("filter ") + strings.Join(parts, "  ")
}

// FormatSummaries renders completion figures for every section.
func FormatSummaries(sums []reconcile.Summary) string {
	headers := []string{"PLAN TYPE", "DIMENSION", "TARGET", "ACTUAL", "UNFILLED", "ANOMALOUS", "COMPLETION"}
	var rows [][]string
	for _, s := range sums {
		for i, d := range s.Dimensions {
			label := s.Label
			if i > 0 {
				label = ""
			}
			rows = append(rows, []string{
				label,
				d.Label,
				strconv.Itoa(d.TotalTarget),
				strconv.Itoa(d.TotalActual),
				countCell(d.Unfilled, StyleYellow.Render),
				countCell(d.Anomalous, StyleRed.Render),
				RenderProgress(d.CompletionPct, 12),
			})
		}
	}
	return RenderBox("Summary", RenderTable(headers, rows, 2, 3, 4, 5))
}

func countCell(n int, style func(...string) string) string {
	if n == 0 {
		return Dim("0")
	}
	return style(strconv.Itoa(n))
}

// FormatSubmissionError lists the rejected cells of every failed section.
func FormatSubmissionError(e *service.SubmissionError) string {
	var b strings.Builder
	b.WriteString(StyleRed.Render("Submission blocked: fix the highlighted values") + "\n")
	for _, s := range e.Sections {
		cfg, _ := domain.ConfigFor(s.PlanType)
		b.WriteString("\n" + StyleBold.Render(cfg.Label) + "\n")
		for _, fe := range s.Errors {
			name := fe.PlanName
			if name == "" {
				name = fe.RowID
			}
			value := fe.Value
			if value == "" {
				value = "empty"
			}
			b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
				StyleRed.Render("✖"), name, Dim(fe.Field+"="+value), fe.Message))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSubmitResult reports the outcome of every batch.
func FormatSubmitResult(r *service.SubmitResult) string {
	if r == nil || len(r.Batches) == 0 {
		return Dim("Nothing to submit: no actual values changed.")
	}
	var b strings.Builder
	for _, batch := range r.Batches {
		cfg, _ := domain.ConfigFor(batch.PlanType)
		if batch.Err != nil {
			b.WriteString(fmt.Sprintf("%s %s: %v\n", StyleRed.Render("✖"), cfg.Label, batch.Err))
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s: %d plan(s) saved\n", StyleGreen.Render("✔"), cfg.Label, batch.Plans))
	}
	return strings.TrimRight(b.String(), "\n")
}
