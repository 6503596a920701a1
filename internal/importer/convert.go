package importer

import "sort"

// Assignment is one value to enter into an evaluation.
type Assignment struct {
	PlanID string
	Field  string
	Value  string
}

// Assignments flattens the file in plan order, fields sorted by name.
func (f *ActualsFile) Assignments() []Assignment {
	var out []Assignment
	for _, p := range f.Plans {
		fields := make([]string, 0, len(p.Values))
		for field := range p.Values {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			out = append(out, Assignment{PlanID: p.ID, Field: field, Value: p.Values[field]})
		}
	}
	return out
}
