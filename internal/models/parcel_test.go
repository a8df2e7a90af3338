package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParcel_LotPlanForms(t *testing.T) {
	p := Parcel{Lot: "12", Plan: "RP901532"}

	assert.Equal(t, "12/RP901532", p.LotPlan())
	assert.Equal(t, "12901532", p.CouncilLotPlan())
	assert.Equal(t, "", Parcel{Lot: "12"}.LotPlan())
	assert.Equal(t, "", Parcel{Plan: "SP1"}.CouncilLotPlan())
	assert.Equal(t, "301234", Parcel{Lot: "3", Plan: "SP01234"}.CouncilLotPlan())
}

func TestParcel_Area(t *testing.T) {
	tests := []struct {
		name   string
		area   *float64
		wantOK bool
	}{
		{name: "known", area: ptr(607.0), wantOK: true},
		{name: "missing", area: nil, wantOK: false},
		{name: "zero", area: ptr(0.0), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Parcel{AreaSqm: tt.area}.Area()
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestResolvedParcel_RepresentativePoint(t *testing.T) {
	geom := NewPolygon(square)

	t.Run("address location wins", func(t *testing.T) {
		r := ResolvedParcel{
			Geometry: geom,
			Address:  &AddressCandidate{Lat: ptr(-26.7), Lng: ptr(153.1)},
		}
		p, ok := r.RepresentativePoint()
		require.True(t, ok)
		assert.Equal(t, Point{Lat: -26.7, Lng: 153.1}, p)
	})

	t.Run("falls back to vertex centroid", func(t *testing.T) {
		r := ResolvedParcel{Geometry: geom, Address: &AddressCandidate{Address: "1 Test Street"}}
		p, ok := r.RepresentativePoint()
		require.True(t, ok)
		assert.InDelta(t, 153.0904, p.Lng, 1e-9)
	})

	t.Run("nothing to derive", func(t *testing.T) {
		_, ok := ResolvedParcel{}.RepresentativePoint()
		assert.False(t, ok)
	})
}

func TestSiteSnapshot_Helpers(t *testing.T) {
	snap := SiteSnapshot{
		Height: &HeightRestriction{HeightM: ptr(12.0)},
		Overlays: []OverlayGroup{
			{Category: "Bushfire Hazard", Layers: []OverlayLayer{{LayerID: 32}, {LayerID: 34}}},
			{Category: "Height of Buildings and Structures", Layers: []OverlayLayer{{LayerID: 50}}},
		},
	}

	require.NotNil(t, snap.HeightOverride())
	assert.Equal(t, 12.0, *snap.HeightOverride())
	assert.Equal(t, 3, snap.OverlayLayerCount(""))
	assert.Equal(t, 2, snap.OverlayLayerCount("height of buildings and structures"))

	assert.Nil(t, SiteSnapshot{}.HeightOverride())
	assert.Nil(t, SiteSnapshot{Height: &HeightRestriction{HeightM: ptr(0.0)}}.HeightOverride())
}

func TestDeduction_String(t *testing.T) {
	assert.Equal(t, "Bushfire overlay (-24)", Deduction{Reason: "Bushfire overlay", Delta: -24}.String())
	assert.Equal(t, "Easements (2) (-10)", Deduction{Reason: "Easements (2)", Delta: -10}.String())
}
