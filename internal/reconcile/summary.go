package reconcile

import "github.com/JourneyJu/dsg-sub008/internal/domain"

// DimensionSummary aggregates one target/actual column pair.
type DimensionSummary struct {
	Label         string
	TargetField   string
	ActualField   string
	TotalTarget   int
	TotalActual   int
	Unfilled      int
	Filled        int
	Anomalous     int
	CompletionPct float64
}

// Summary aggregates every row of a plan type.
type Summary struct {
	PlanType   domain.PlanType
	Label      string
	Rows       int
	Dimensions []DimensionSummary
}

// Summarize computes totals over rows. Only actuals that parse as
// non-negative integers are added to TotalActual.
func Summarize(cfg domain.PlanTypeConfig, rows []domain.PlanItem) Summary {
	s := Summary{PlanType: cfg.Type, Label: cfg.Label, Rows: len(rows)}
	for _, d := range cfg.Dimensions {
		ds := DimensionSummary{Label: d.Label, TargetField: d.TargetField, ActualField: d.ActualField}
		for i := range rows {
			row := &rows[i]
			if t, ok := row.Target(d.TargetField); ok {
				ds.TotalTarget += t
			}
			if v, ok := row.ActualInt(d.ActualField); ok {
				ds.TotalActual += v
			}
			if domain.IsUnfilled(row, d.ActualField, d.TargetField) {
				ds.Unfilled++
			}
			if domain.IsFilled(row, d.ActualField) {
				ds.Filled++
			}
			if domain.IsAnomalous(row, d.ActualField, d.TargetField) {
				ds.Anomalous++
			}
		}
		if ds.TotalTarget > 0 {
			ds.CompletionPct = float64(ds.TotalActual) / float64(ds.TotalTarget) * 100
		}
		s.Dimensions = append(s.Dimensions, ds)
	}
	return s
}

// Summary aggregates the working copy, including unsaved edits on displayed
// rows. It is recomputed on every call.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Summarize(e.cfg, e.mergedViewLocked())
}
