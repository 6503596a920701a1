package domain

type PlanType string

const (
	PlanDataAcquisition        PlanType = "data_acquisition"
	PlanDataQualityImprovement PlanType = "data_quality_improvement"
	PlanDataResourceCataloging PlanType = "data_resource_cataloging"
	PlanBusinessAnalysis       PlanType = "business_analysis"
)

// PlanTypes lists every plan type in display order.
var PlanTypes = []PlanType{
	PlanDataAcquisition,
	PlanDataQualityImprovement,
	PlanDataResourceCataloging,
	PlanBusinessAnalysis,
}

// ValidPlanTypes is the canonical set of accepted plan type strings.
var ValidPlanTypes = map[string]bool{
	"data_acquisition": true, "data_quality_improvement": true,
	"data_resource_cataloging": true, "business_analysis": true,
}

type TargetStatus string

const (
	TargetPending    TargetStatus = "pending"
	TargetEvaluating TargetStatus = "evaluating"
	TargetCompleted  TargetStatus = "completed"
)

// ValidTargetStatuses is the canonical set of accepted target status strings.
var ValidTargetStatuses = map[string]bool{
	"pending": true, "evaluating": true, "completed": true,
}

// FilterStatus is the per-column filter selection. The values match the
// codes the platform UI uses.
type FilterStatus string

const (
	FilterAll       FilterStatus = ""
	FilterUnfilled  FilterStatus = "1"
	FilterFilled    FilterStatus = "2"
	FilterAnomalous FilterStatus = "3"
)
