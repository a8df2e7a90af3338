package providers

import (
	"context"
	"testing"

	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfrastructure_AllServices(t *testing.T) {
	// Arrange
	fake := newFakeArcGIS(t)
	fake.attrs("water/10",
		map[string]interface{}{"NominalDiameter": 150.0, "Material": "PVC"},
		map[string]interface{}{"NominalDiameter": 100.0, "Material": "AC"},
	)
	fake.attrs("water/7", map[string]interface{}{}, map[string]interface{}{})
	fake.attrs("sewer/11", map[string]interface{}{"NominalDiameter": nil}, map[string]interface{}{"Diameter": 225.0})
	fake.attrs("sewer/12", map[string]interface{}{"NominalDiameter": 90.0})
	fake.attrs("waterways/7", map[string]interface{}{"Name": ""}, map[string]interface{}{"GNAME": "Mountain Creek"})
	fake.attrs("stormwater/8", map[string]interface{}{"PipeDiameter_mm": 375.0}, map[string]interface{}{"PipeDiameter_mm": 0.0})
	fake.attrs("stormwater/9", map[string]interface{}{"PipeDiameter_mm": 600.0})
	fake.attrs("stormwater/4", map[string]interface{}{})
	s := NewInfrastructure(fake.client(), fake.endpoints())

	// Act
	infra, err := s.Infrastructure(context.Background(), testPoint)

	// Assert
	require.NoError(t, err)

	assert.True(t, infra.Water.Available)
	assert.Equal(t, 2, infra.Water.MainsCount)
	assert.Equal(t, 2, infra.Water.HydrantsNearby)
	require.NotNil(t, infra.Water.NearestDiameterMM)
	assert.Equal(t, 150, *infra.Water.NearestDiameterMM)
	assert.Equal(t, "Reticulated water available — 150mm PVC main within 100m", infra.Water.Detail)

	assert.True(t, infra.Sewer.Available)
	assert.Equal(t, 3, infra.Sewer.MainsCount)
	assert.Equal(t, "gravity", infra.Sewer.NearestType)
	assert.Equal(t, 225, *infra.Sewer.NearestDiameterMM)
	assert.Equal(t, "Reticulated sewer available — 225mm gravity main within 100m", infra.Sewer.Detail)

	assert.True(t, infra.Stormwater.Available)
	assert.Equal(t, "Mountain Creek", infra.Stormwater.DrainageInfo)
	assert.Equal(t, 600, *infra.Stormwater.LargestDiameterMM)
	assert.Equal(t, 1, infra.Stormwater.PitCount)
	assert.Equal(t,
		"Council stormwater network — 2 pipes, 1 culvert within 200m | Natural drainage via Mountain Creek — 2 waterways within 200m",
		infra.Stormwater.Detail)

	q := fake.lastQuery("water/10")
	assert.Equal(t, "100", q.Get("distance"))
	assert.Equal(t, "200", q.Get("resultRecordCount"))
	assert.Equal(t, "200", fake.lastQuery("water/7").Get("distance"))
}

func TestInfrastructure_NoServices(t *testing.T) {
	fake := newFakeArcGIS(t)
	s := NewInfrastructure(fake.client(), fake.endpoints())

	infra, err := s.Infrastructure(context.Background(), testPoint)

	require.NoError(t, err)
	assert.False(t, infra.Water.Available)
	assert.Equal(t, "No reticulated water — tank/bore required", infra.Water.Detail)
	assert.False(t, infra.Sewer.Available)
	assert.Equal(t, "No reticulated sewer — on-site system required", infra.Sewer.Detail)
	assert.False(t, infra.Stormwater.Available)
	assert.Nil(t, infra.Stormwater.LargestDiameterMM)
	assert.Equal(t, "No council stormwater pipes within 200m", infra.Stormwater.Detail)
}

func TestInfrastructure_AvailabilityLayerFailureFailsCategory(t *testing.T) {
	for _, key := range []string{"water/10", "sewer/11", "sewer/12", "stormwater/8", "stormwater/9"} {
		t.Run(key, func(t *testing.T) {
			fake := newFakeArcGIS(t)
			fake.attrs("water/10", map[string]interface{}{"NominalDiameter": 150.0})
			fake.fail(key)
			s := NewInfrastructure(fake.client(), fake.endpoints())

			_, err := s.Infrastructure(context.Background(), testPoint)

			assert.Error(t, err)
		})
	}
}

func TestInfrastructure_DetailLayerFailureKeepsServices(t *testing.T) {
	// Arrange
	fake := newFakeArcGIS(t)
	fake.attrs("water/10", map[string]interface{}{"NominalDiameter": 150.0})
	fake.attrs("sewer/11", map[string]interface{}{})
	fake.fail("water/7")
	fake.fail("waterways/7")
	fake.fail("stormwater/4")
	s := NewInfrastructure(fake.client(), fake.endpoints())

	// Act
	infra, err := s.Infrastructure(context.Background(), testPoint)

	// Assert
	require.NoError(t, err)
	assert.True(t, infra.Water.Available)
	assert.True(t, infra.Sewer.Available)
	assert.False(t, infra.Stormwater.Available)
}

func TestWaterService_UnknownDiameter(t *testing.T) {
	w := waterService([]arcgis.Feature{arcgis.NewFeature(`{"Material":"PE"}`)}, nil)

	assert.Nil(t, w.NearestDiameterMM)
	assert.Equal(t, "Reticulated water available — ?mm main within 100m", w.Detail)
}

func TestStormwaterService_WaterwaysOnly(t *testing.T) {
	sw := stormwaterService([]arcgis.Feature{arcgis.NewFeature(`{}`)}, nil, nil, nil)

	assert.False(t, sw.Available)
	assert.Equal(t, "No council stormwater pipes within 200m | 1 waterway within 200m", sw.Detail)
}
