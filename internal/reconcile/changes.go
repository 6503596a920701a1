package reconcile

import "github.com/JourneyJu/dsg-sub008/internal/domain"

// ActualChange is one actual value that differs from the last confirmed
// snapshot.
type ActualChange struct {
	RowID string
	Field string
	Value int
}

// Changes compares rows, normally the result of FormData, with the last
// confirmed snapshot and returns the actual values to write back. Columns
// that need no input and values that are not integers are skipped; FormData
// has already rejected those where they matter.
func (e *Engine) Changes(rows []domain.PlanItem) []ActualChange {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []ActualChange
	for i := range rows {
		row := &rows[i]
		base := e.baseline[row.ID]
		for _, d := range e.cfg.Dimensions {
			if !row.RequiresInput(d.TargetField) {
				continue
			}
			v, ok := row.ActualInt(d.ActualField)
			if !ok {
				continue
			}
			if domain.SameActual(row.Actual(d.ActualField), base[d.ActualField]) {
				continue
			}
			out = append(out, ActualChange{RowID: row.ID, Field: d.ActualField, Value: v})
		}
	}
	return out
}
