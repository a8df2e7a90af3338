package providers

import (
	"context"
	"net/http"
	"testing"

	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoCoverParcels = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"lot":"12","plan":"RP901532","lotplan":"12RP901532","cover_typ":"Easement","lot_area":0},
  "geometry":{"type":"Polygon","coordinates":[[[153.0895,-26.6505],[153.0897,-26.6505],[153.0897,-26.6503],[153.0895,-26.6505]]]}},
 {"type":"Feature","properties":{"lot":"12","plan":"RP901532","lotplan":"12RP901532","cover_typ":"Base","parcel_typ":"Lot Type Parcel",
  "tenure":"Freehold","lot_area":607,"locality":"Buderim","shire_name":"Sunshine Coast Regional","feat_name":""},
  "geometry":{"type":"Polygon","coordinates":[[[153.089,-26.651],[153.091,-26.651],[153.091,-26.649],[153.089,-26.649],[153.089,-26.651]]]}}
]}`

func TestCadastre_ParcelByLotPlan(t *testing.T) {
	// Arrange
	fake := newFakeArcGIS(t)
	fake.raw("cadastre/4", http.StatusOK, twoCoverParcels)
	c := NewCadastre(fake.client(), fake.endpoints())

	// Act
	got, err := c.ParcelByLotPlan(context.Background(), "12", "RP901532")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.CoverTypeBase, got.Parcel.CoverType)
	assert.Equal(t, "Freehold", got.Parcel.Tenure)
	assert.Equal(t, "Lot Type Parcel", got.Parcel.ParcelType)
	require.NotNil(t, got.Parcel.AreaSqm)
	assert.Equal(t, 607.0, *got.Parcel.AreaSqm)
	require.NotNil(t, got.Geometry)
	assert.True(t, got.Geometry.IsClosed())

	q := fake.lastQuery("cadastre/4")
	assert.Equal(t, "lot='12' AND plan='RP901532'", q.Get("where"))
	assert.Equal(t, "geojson", q.Get("f"))
	assert.Equal(t, "5", q.Get("resultRecordCount"))
}

func TestCadastre_ParcelAtPoint(t *testing.T) {
	t.Run("no parcel", func(t *testing.T) {
		fake := newFakeArcGIS(t)
		c := NewCadastre(fake.client(), fake.endpoints())

		got, err := c.ParcelAtPoint(context.Background(), testPoint)

		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, "153.09,-26.65", fake.lastQuery("cadastre/4").Get("geometry"))
	})

	t.Run("authority down", func(t *testing.T) {
		fake := newFakeArcGIS(t)
		fake.fail("cadastre/4")
		c := NewCadastre(fake.client(), fake.endpoints())

		got, err := c.ParcelAtPoint(context.Background(), testPoint)

		assert.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestCadastre_SearchAddresses(t *testing.T) {
	// Arrange
	fake := newFakeArcGIS(t)
	fake.raw("cadastre/0", http.StatusOK, `{"type":"FeatureCollection","features":[
	 {"type":"Feature","properties":{"address":"12 O'Connell Street, Buderim","locality":"Buderim","lot":"12","plan":"RP901532",
	  "lotplan":"12RP901532","street_name":"O'Connell Street","street_number":"12"},
	  "geometry":{"type":"Point","coordinates":[153.09,-26.65]}}]}`)
	c := NewCadastre(fake.client(), fake.endpoints())

	// Act
	got, err := c.SearchAddresses(context.Background(), " 12 O'Connell St ", 10)

	// Assert
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "12", got[0].Lot)
	assert.True(t, got[0].HasLotPlan())
	p, ok := got[0].Point()
	require.True(t, ok)
	assert.Equal(t, -26.65, p.Lat)

	q := fake.lastQuery("cadastre/0")
	assert.Equal(t, "address LIKE '%12 O''Connell Street%'", q.Get("where"))
	assert.Equal(t, "10", q.Get("resultRecordCount"))
}

func TestCadastre_Tenure(t *testing.T) {
	fake := newFakeArcGIS(t)
	fake.raw("cadastre/13", http.StatusOK, `{"features":[{"properties":{"tenure":"Freehold"}}]}`)
	c := NewCadastre(fake.client(), fake.endpoints())

	tenure, err := c.Tenure(context.Background(), "12", "RP901532")

	require.NoError(t, err)
	assert.Equal(t, "Freehold", tenure)
	assert.Equal(t, "1", fake.lastQuery("cadastre/13").Get("resultRecordCount"))
}
