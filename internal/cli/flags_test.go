package cli

import (
	"testing"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterFlag_Set(t *testing.T) {
	var f filterFlag
	require.NoError(t, f.Set("actual_quantity=unfilled"))
	require.NoError(t, f.Set("business_analysis.flow_actual_count=3"))

	require.Len(t, f, 2)
	assert.Equal(t, filterSpec{ActualField: "actual_quantity", Status: domain.FilterUnfilled}, f[0])
	assert.Equal(t, domain.PlanBusinessAnalysis, f[1].PlanType)
	assert.Equal(t, domain.FilterAnomalous, f[1].Status)
	assert.Equal(t, "actual_quantity=unfilled,business_analysis.flow_actual_count=anomalous", f.String())
}

func TestFilterFlag_Rejects(t *testing.T) {
	for _, v := range []string{"actual_quantity", "actual_quantity=sometimes", "crm.actual_quantity=1", "=filled"} {
		var f filterFlag
		assert.Error(t, f.Set(v), v)
	}
}

func TestFilterSpec_AppliesTo(t *testing.T) {
	acq, _ := domain.ConfigFor(domain.PlanDataAcquisition)
	ba, _ := domain.ConfigFor(domain.PlanBusinessAnalysis)

	shared := filterSpec{ActualField: "actual_quantity"}
	d, ok := shared.appliesTo(acq)
	require.True(t, ok)
	assert.Equal(t, "collection_count", d.TargetField)
	_, ok = shared.appliesTo(ba)
	assert.False(t, ok)

	scoped := filterSpec{PlanType: domain.PlanDataQualityImprovement, ActualField: "actual_quantity"}
	_, ok = scoped.appliesTo(acq)
	assert.False(t, ok)
}

func TestSetFlag_Set(t *testing.T) {
	var f setFlag
	require.NoError(t, f.Set("plan-1=8"))
	require.NoError(t, f.Set("plan-2:model_actual_count="))

	assert.Equal(t, setSpec{PlanID: "plan-1", Value: "8"}, f[0])
	assert.Equal(t, setSpec{PlanID: "plan-2", Field: "model_actual_count", Value: ""}, f[1])
	assert.Equal(t, "plan-1=8,plan-2:model_actual_count=", f.String())

	assert.Error(t, f.Set("no-equals"))
	assert.Error(t, f.Set(":field=1"))
}
