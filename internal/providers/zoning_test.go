package providers

import (
	"context"
	"strconv"
	"testing"

	"github.com/jhcramos/urbix-api/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoning_ZoneAndHeight(t *testing.T) {
	tests := []struct {
		name         string
		arrange      func(f *fakeArcGIS)
		wantErr      bool
		wantCode     string
		wantCategory string
		wantHeight   *float64
	}{
		{
			name: "zone and height",
			arrange: func(f *fakeArcGIS) {
				f.attrs("zoning/5", map[string]interface{}{
					"LABEL": "Low Density Residential Zone", "HEADING": " Residential Zones Category ", "DESCRIPT": "LDR",
				})
				f.attrs("overlays/50", map[string]interface{}{
					"HeightRestrictionMetres": 12.0, "LABEL": "12 metres", "ComplexComment": nil,
				})
			},
			wantCode:     "Low Density Residential Zone",
			wantCategory: "Residential Zones Category",
			wantHeight:   ptr(12.0),
		},
		{
			name: "blank heading",
			arrange: func(f *fakeArcGIS) {
				f.attrs("zoning/5", map[string]interface{}{"LABEL": "Rural Zone", "HEADING": "  "})
			},
			wantCode:     "Rural Zone",
			wantCategory: "Unknown Category",
		},
		{
			name: "height failure keeps the zone",
			arrange: func(f *fakeArcGIS) {
				f.attrs("zoning/5", map[string]interface{}{"LABEL": "Rural Zone", "HEADING": "Rural Zones Category"})
				f.fail("overlays/50")
			},
			wantCode:     "Rural Zone",
			wantCategory: "Rural Zones Category",
		},
		{
			name: "zone failure fails the call",
			arrange: func(f *fakeArcGIS) {
				f.fail("zoning/5")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			fake := newFakeArcGIS(t)
			tt.arrange(fake)
			z := NewZoning(fake.client(), fake.endpoints(), 50, nil)

			// Act
			zone, height, err := z.ZoneAndHeight(context.Background(), testPoint)

			// Assert
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, zone)
			assert.Equal(t, tt.wantCode, zone.Code)
			assert.Equal(t, tt.wantCode, zone.Label)
			assert.Equal(t, tt.wantCategory, zone.Category)
			if tt.wantHeight == nil {
				assert.Nil(t, height)
				return
			}
			require.NotNil(t, height)
			assert.Equal(t, *tt.wantHeight, *height.HeightM)
			assert.Empty(t, height.Comment)
		})
	}
}

func TestZoning_Unzoned(t *testing.T) {
	fake := newFakeArcGIS(t)
	z := NewZoning(fake.client(), fake.endpoints(), 50, nil)

	zone, err := z.Zone(context.Background(), testPoint)

	require.NoError(t, err)
	assert.Nil(t, zone)
	assert.Equal(t, "10", fake.lastQuery("zoning/5").Get("resultRecordCount"))
}

func TestOverlays_GroupsInCatalogOrder(t *testing.T) {
	// Arrange
	catalog, err := rules.LoadCatalog()
	require.NoError(t, err)

	fake := newFakeArcGIS(t)
	fake.attrs("overlays/32",
		map[string]interface{}{"LABEL": "High Bushfire Hazard Area", "OBJECTID": 4, "Shape": "x", "GRADE": "High"},
		map[string]interface{}{"LABEL": "High Bushfire Hazard Area", "OBJECTID": 5},
	)
	fake.attrs("overlays/0", map[string]interface{}{"LABEL": "", "HEADING": "Acid Sulfate Soils", "ELEV": nil})
	fake.attrs("overlays/50", map[string]interface{}{"LABEL": "12 metres", "HeightRestrictionMetres": "12"})
	o := NewOverlays(fake.client(), fake.endpoints(), catalog, 4, nil)

	// Act
	groups, err := o.Overlays(context.Background(), testPoint, testParcelGeometry())

	// Assert
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, "Acid Sulfate Soils", groups[0].Category)
	require.Len(t, groups[0].Layers, 1)
	assert.Equal(t, "Acid Sulfate Soils", groups[0].Layers[0].Label, "blank label falls back to the layer name")
	assert.Nil(t, groups[0].Layers[0].Attributes)

	assert.Equal(t, "Bushfire Hazard", groups[1].Category)
	require.Len(t, groups[1].Layers, 1, "same layer and label is one overlay")
	assert.Equal(t, map[string]interface{}{"GRADE": "High"}, groups[1].Layers[0].Attributes)

	assert.Equal(t, "Height of Buildings and Structures", groups[2].Category)
	require.NotNil(t, groups[2].Layers[0].HeightM)
	assert.Equal(t, 12.0, *groups[2].Layers[0].HeightM)

	q := fake.lastQuery("overlays/32")
	assert.Equal(t, "esriGeometryEnvelope", q.Get("geometryType"))
	assertEnvelope(t, q.Get("geometry"), 153.0889, -26.6511, 153.0911, -26.6489)
	assert.Equal(t, "50", q.Get("resultRecordCount"))
	assert.Equal(t, 1, fake.requestCount("overlays/74"))
}

func TestOverlays_PointQueryWithoutPolygon(t *testing.T) {
	catalog, err := rules.LoadCatalog()
	require.NoError(t, err)
	fake := newFakeArcGIS(t)
	o := NewOverlays(fake.client(), fake.endpoints(), catalog, 8, nil)

	groups, err := o.Overlays(context.Background(), testPoint, nil)

	require.NoError(t, err)
	assert.Empty(t, groups)
	q := fake.lastQuery("overlays/0")
	assert.Equal(t, "esriGeometryPoint", q.Get("geometryType"))
	assert.Equal(t, "10", q.Get("resultRecordCount"))
}

func TestOverlays_PartialAndTotalFailure(t *testing.T) {
	catalog, err := rules.LoadCatalog()
	require.NoError(t, err)

	t.Run("one failed layer is skipped", func(t *testing.T) {
		fake := newFakeArcGIS(t)
		fake.fail("overlays/32")
		fake.attrs("overlays/58", map[string]interface{}{"LABEL": "Landslide Hazard Area"})
		o := NewOverlays(fake.client(), fake.endpoints(), catalog, 8, nil)

		groups, err := o.Overlays(context.Background(), testPoint, nil)

		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "Landslide Hazard", groups[0].Category)
	})

	t.Run("every layer failed", func(t *testing.T) {
		fake := newFakeArcGIS(t)
		for _, id := range catalog.LayerIDs() {
			fake.fail("overlays/" + strconv.Itoa(id))
		}
		o := NewOverlays(fake.client(), fake.endpoints(), catalog, 8, nil)

		groups, err := o.Overlays(context.Background(), testPoint, nil)

		assert.Error(t, err)
		assert.Nil(t, groups)
	})
}

func ptr(v float64) *float64 { return &v }
