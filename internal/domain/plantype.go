package domain

// Dimension pairs a planned quantity column with the column holding its
// achieved value.
type Dimension struct {
	Label       string
	TargetField string
	ActualField string
}

// PlanTypeConfig describes the quantity columns a plan type carries.
// Everything that differs between plan types is expressed here.
type PlanTypeConfig struct {
	Type       PlanType
	Label      string
	Dimensions []Dimension
}

var planTypeConfigs = map[PlanType]PlanTypeConfig{
	PlanDataAcquisition: {
		Type:  PlanDataAcquisition,
		Label: "Data Acquisition",
		Dimensions: []Dimension{
			{Label: "Collection", TargetField: "collection_count", ActualField: "actual_quantity"},
		},
	},
	PlanDataQualityImprovement: {
		Type:  PlanDataQualityImprovement,
		Label: "Data Quality Improvement",
		Dimensions: []Dimension{
			{Label: "Improvement", TargetField: "improve_count", ActualField: "actual_quantity"},
		},
	},
	PlanDataResourceCataloging: {
		Type:  PlanDataResourceCataloging,
		Label: "Data Resource Cataloging",
		Dimensions: []Dimension{
			{Label: "Catalog", TargetField: "catalog_count", ActualField: "actual_quantity"},
		},
	},
	PlanBusinessAnalysis: {
		Type:  PlanBusinessAnalysis,
		Label: "Business Analysis",
		Dimensions: []Dimension{
			{Label: "Model", TargetField: "model_target_count", ActualField: "model_actual_count"},
			{Label: "Flow", TargetField: "flow_target_count", ActualField: "flow_actual_count"},
			{Label: "Table", TargetField: "table_target_count", ActualField: "table_actual_count"},
		},
	},
}

// ConfigFor returns the column configuration for a plan type.
func ConfigFor(t PlanType) (PlanTypeConfig, bool) {
	cfg, ok := planTypeConfigs[t]
	return cfg, ok
}

// DimensionFor returns the dimension whose actual column is actualField.
func (c PlanTypeConfig) DimensionFor(actualField string) (Dimension, bool) {
	for _, d := range c.Dimensions {
		if d.ActualField == actualField {
			return d, true
		}
	}
	return Dimension{}, false
}

// HasPair reports whether actualField and targetField name one dimension.
func (c PlanTypeConfig) HasPair(actualField, targetField string) bool {
	d, ok := c.DimensionFor(actualField)
	return ok && d.TargetField == targetField
}

// TargetFields returns every target column of the plan type.
func (c PlanTypeConfig) TargetFields() []string {
	out := make([]string, 0, len(c.Dimensions))
	for _, d := range c.Dimensions {
		out = append(out, d.TargetField)
	}
	return out
}

// ActualFields returns every actual column of the plan type.
func (c PlanTypeConfig) ActualFields() []string {
	out := make([]string, 0, len(c.Dimensions))
	for _, d := range c.Dimensions {
		out = append(out, d.ActualField)
	}
	return out
}
