package cli

import (
	"fmt"
	"strings"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/spf13/pflag"
)

// filterSpec is one --filter value: [PLAN_TYPE.]ACTUAL_FIELD=STATUS.
type filterSpec struct {
	PlanType    domain.PlanType // empty applies to every type with the field
	ActualField string
	Status      domain.FilterStatus
}

// filterFlag collects repeated --filter values.
type filterFlag []filterSpec

var _ pflag.Value = (*filterFlag)(nil)

func (f *filterFlag) String() string {
	parts := make([]string, 0, len(*f))
	for _, s := range *f {
		field := s.ActualField
		if s.PlanType != "" {
			field = string(s.PlanType) + "." + field
		}
		parts = append(parts, field+"="+s.Status.Name())
	}
	return strings.Join(parts, ",")
}

func (f *filterFlag) Set(v string) error {
	lhs, rhs, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("expected [plan_type.]field=status, got %q", v)
	}
	status, err := domain.ParseFilterStatus(rhs)
	if err != nil {
		return err
	}
	spec := filterSpec{ActualField: strings.TrimSpace(lhs), Status: status}
	if pt, field, ok := strings.Cut(spec.ActualField, "."); ok {
		if !domain.ValidPlanTypes[pt] {
			return fmt.Errorf("unknown plan type %q", pt)
		}
		spec.PlanType = domain.PlanType(pt)
		spec.ActualField = field
	}
	if spec.ActualField == "" {
		return fmt.Errorf("filter field is required")
	}
	*f = append(*f, spec)
	return nil
}

func (f *filterFlag) Type() string { return "filter" }

// appliesTo returns the dimension of cfg the filter targets, if any.
func (s filterSpec) appliesTo(cfg domain.PlanTypeConfig) (domain.Dimension, bool) {
	if s.PlanType != "" && s.PlanType != cfg.Type {
		return domain.Dimension{}, false
	}
	return cfg.DimensionFor(s.ActualField)
}

// setSpec is one --set value: PLAN_ID[:FIELD]=VALUE. Without a field the
// plan type's first actual column is used.
type setSpec struct {
	PlanID string
	Field  string
	Value  string
}

// setFlag collects repeated --set values.
type setFlag []setSpec

var _ pflag.Value = (*setFlag)(nil)

func (f *setFlag) String() string {
	parts := make([]string, 0, len(*f))
	for _, s := range *f {
		id := s.PlanID
		if s.Field != "" {
			id += ":" + s.Field
		}
		parts = append(parts, id+"="+s.Value)
	}
	return strings.Join(parts, ",")
}

func (f *setFlag) Set(v string) error {
	lhs, value, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("expected plan_id[:field]=value, got %q", v)
	}
	id, field, _ := strings.Cut(strings.TrimSpace(lhs), ":")
	if id == "" {
		return fmt.Errorf("plan id is required in %q", v)
	}
	*f = append(*f, setSpec{PlanID: id, Field: field, Value: value})
	return nil
}

func (f *setFlag) Type() string { return "assignment" }
