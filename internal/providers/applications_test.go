package providers

import (
	"context"
	"testing"

	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-03-01T00:00:00Z and 2024-05-15T00:00:00Z in epoch milliseconds.
const (
	lodged  = float64(1709251200000)
	decided = float64(1715731200000)
)

// isEnvelope reports whether any request to key was an envelope query.
func isEnvelope(f *fakeArcGIS, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.requests[key] {
		if q.Get("geometryType") == "esriGeometryEnvelope" {
			return true
		}
	}
	return false
}

func TestApplications(t *testing.T) {
	// Arrange
	fake := newFakeArcGIS(t)
	// Both the envelope and the radius query hit the same layer, so each
	// record is returned to both; on-parcel ids must drop out of nearby.
	fake.attrs("applications/1",
		map[string]interface{}{
			"ram_id": "MCU24/0001", "description": " Dual occupancy ", "category_desc": "Material Change of Use",
			"decision": "Approved", "progress": "Decided", "d_date_rec": lodged, "d_decision_made": decided,
		},
		map[string]interface{}{"ram_id": "MCU24/0001", "description": "Dual occupancy", "decision": "Approved"},
		map[string]interface{}{"ram_id": nil, "description": ""},
	)
	fake.attrs("applications/2",
		map[string]interface{}{"ram_id": "BLD24/0100", "description": "Dwelling", "d_date_rec": lodged},
	)
	a := NewApplications(fake.client(), fake.endpoints())

	// Act
	h, err := a.Applications(context.Background(), testPoint, testParcelGeometry(), models.Parcel{Lot: "12", Plan: "RP901532"})

	// Assert
	require.NoError(t, err)
	require.Len(t, h.OnParcel, 2)
	assert.Equal(t, "MCU24/0001", h.OnParcel[0].CaseID, "development layers come first")
	assert.Equal(t, "Dual occupancy", h.OnParcel[0].Description)
	assert.Equal(t, "01/03/2024", h.OnParcel[0].DateReceived)
	assert.Equal(t, "15/05/2024", h.OnParcel[0].DateDecided)
	require.NotNil(t, h.OnParcel[0].DecidedAt)
	assert.Equal(t, "BLD24/0100", h.OnParcel[1].CaseID)

	assert.Empty(t, h.Nearby)
	assert.Equal(t, 2, h.TotalCount)
	assert.Equal(t, 1, h.OnParcelInProgress)
	assert.Equal(t, 1, h.TotalInProgress)
	assert.Equal(t, "2 on parcel (1 in progress)", h.Summary)
	assert.Equal(t, "https://developmenti.sunshinecoast.qld.gov.au/Home/FilterDirect?LotPlan=12/901532", h.PortalLink)
	assert.True(t, isEnvelope(fake, "applications/0"))
}

func TestApplications_NothingFound(t *testing.T) {
	fake := newFakeArcGIS(t)
	a := NewApplications(fake.client(), fake.endpoints())

	h, err := a.Applications(context.Background(), testPoint, nil, models.Parcel{})

	require.NoError(t, err)
	assert.Equal(t, 0, h.TotalCount)
	assert.Empty(t, h.PortalLink)
	assert.Equal(t, "No development applications found in area", h.Summary)
	// Without a polygon the on-parcel query falls back to a small box around the point.
	assert.True(t, isEnvelope(fake, "applications/3"))
}

func TestApplications_PartialFailure(t *testing.T) {
	// Arrange
	fake := newFakeArcGIS(t)
	fake.attrs("applications/0", map[string]interface{}{
		"ram_id": "MCU24/0001", "description": "Dual occupancy", "progress": "Lodged",
	})
	fake.fail("applications/3")
	a := NewApplications(fake.client(), fake.endpoints())

	// Act
	h, err := a.Applications(context.Background(), testPoint, testParcelGeometry(), models.Parcel{Lot: "12", Plan: "RP901532"})

	// Assert
	require.NoError(t, err)
	require.Len(t, h.OnParcel, 1)
	assert.Equal(t, "MCU24/0001", h.OnParcel[0].CaseID)
	assert.Equal(t, 1, h.TotalCount)
}

func TestApplications_AllLayersFailed(t *testing.T) {
	fake := newFakeArcGIS(t)
	for _, key := range []string{"applications/0", "applications/1", "applications/2", "applications/3"} {
		fake.fail(key)
	}
	a := NewApplications(fake.client(), fake.endpoints())

	_, err := a.Applications(context.Background(), testPoint, nil, models.Parcel{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 8 applications queries failed")
}

func TestApplicationSummary(t *testing.T) {
	tests := []struct {
		name string
		h    models.ApplicationHistory
		want string
	}{
		{"nearby only", models.ApplicationHistory{NearbyCount: 4, TotalCount: 4}, "4 nearby"},
		{"both", models.ApplicationHistory{OnParcelCount: 1, NearbyCount: 3, TotalCount: 4, TotalInProgress: 2}, "1 on parcel, 3 nearby (2 in progress)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applicationSummary(tt.h))
		})
	}
}

func TestDedupeApplications(t *testing.T) {
	apps := []models.Application{
		{CaseID: "A"}, {CaseID: "B"}, {CaseID: "A"}, {Description: "no id"}, {Description: "no id"},
	}

	got := dedupeApplications(apps, map[string]bool{"B": true})

	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].CaseID)
	assert.Equal(t, "no id", got[1].Description)
}

func TestApplication_InProgress(t *testing.T) {
	tests := []struct {
		name string
		app  models.Application
		want bool
	}{
		{"lodged not decided", models.Application{DateReceived: "01/01/2024", Decision: "Approved"}, true},
		{"progress current", models.Application{DateDecided: "x", Progress: "Current", Decision: "Approved"}, true},
		{"no decision", models.Application{DateDecided: "x"}, true},
		{"pending decision", models.Application{DateDecided: "x", Decision: "Decision Pending"}, true},
		{"decided", models.Application{DateReceived: "a", DateDecided: "b", Decision: "Approved"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.app.InProgress())
		})
	}
}
