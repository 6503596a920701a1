package importer

import (
	"fmt"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
)

// knownActualFields is every actual column of every plan type.
var knownActualFields = func() map[string]bool {
	out := make(map[string]bool)
	for _, pt := range domain.PlanTypes {
		cfg, _ := domain.ConfigFor(pt)
		for _, f := range cfg.ActualFields() {
			out[f] = true
		}
	}
	return out
}()

// ValidateActualsFile checks the file's structure. Values themselves are
// validated later against each plan's targets. All problems are returned.
func ValidateActualsFile(f *ActualsFile) []error {
	var errs []error
	if len(f.Plans) == 0 {
		errs = append(errs, fmt.Errorf("plans: at least one plan is required"))
	}

	seen := make(map[string]bool, len(f.Plans))
	for i, p := range f.Plans {
		prefix := fmt.Sprintf("plans[%d]", i)
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else if seen[p.ID] {
			errs = append(errs, fmt.Errorf("%s.id %q is duplicated", prefix, p.ID))
		}
		seen[p.ID] = true

		if len(p.Values) == 0 {
			errs = append(errs, fmt.Errorf("%s.values: at least one value is required", prefix))
		}
		for field := range p.Values {
			if !knownActualFields[field] {
				errs = append(errs, fmt.Errorf("%s.values: unknown actual column %q", prefix, field))
			}
		}
	}
	return errs
}
