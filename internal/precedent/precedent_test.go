package precedent

import (
	"testing"
	"time"

	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func app(decision, category string) models.Application {
	return models.Application{CaseID: decision + category, Decision: decision, Category: category}
}

func decided(received string, days int) models.Application {
	r, _ := time.Parse("2006-01-02", received)
	d := r.AddDate(0, 0, days)
	return models.Application{Decision: "Approved", ReceivedAt: &r, DecidedAt: &d}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		decision string
		want     string
	}{
		{"Approved", Approved},
		{"Approved subject to conditions", Approved},
		{"REFUSED", Refused},
		{"Lapsed", Lapsed},
		{"", InProgress},
		{"Pending", InProgress},
		{"Withdrawn", InProgress},
	}

	for _, tt := range tests {
		t.Run(tt.decision, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.decision))
		})
	}
}

func TestAnalyze_Outlook(t *testing.T) {
	tests := []struct {
		name           string
		onParcel       []models.Application
		nearby         []models.Application
		wantOutlook    string
		wantAssessment string
		wantApproved   int
		wantRefused    int
	}{
		{
			name:           "no applications",
			wantOutlook:    models.OutlookNone,
			wantAssessment: "No precedent data available in area",
		},
		{
			name:           "all approved",
			nearby:         []models.Application{app("Approved", "MCU"), app("Approved", "MCU"), app("Approved", "ROL")},
			wantOutlook:    models.OutlookPositive,
			wantAssessment: "Strong approval trend — all applications in the area have been approved",
			wantApproved:   3,
		},
		{
			name:           "approvals more than double refusals",
			onParcel:       []models.Application{app("Approved", "")},
			nearby:         []models.Application{app("Approved", ""), app("Approved", ""), app("Refused", "")},
			wantOutlook:    models.OutlookPositive,
			wantAssessment: "Positive approval trend — majority of applications approved",
			wantApproved:   3,
			wantRefused:    1,
		},
		{
			name:           "more refusals",
			nearby:         []models.Application{app("Approved", ""), app("Refused", ""), app("Refused", "")},
			wantOutlook:    models.OutlookNegative,
			wantAssessment: "Challenging area — more refusals than approvals",
			wantApproved:   1,
			wantRefused:    2,
		},
		{
			name:           "even split",
			nearby:         []models.Application{app("Approved", ""), app("Refused", "")},
			wantOutlook:    models.OutlookNeutral,
			wantAssessment: "Mixed results — assess carefully against planning scheme",
			wantApproved:   1,
			wantRefused:    1,
		},
		{
			name:           "only in progress",
			nearby:         []models.Application{app("", ""), app("Pending", "")},
			wantOutlook:    models.OutlookNeutral,
			wantAssessment: "Mixed results — assess carefully against planning scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.onParcel, tt.nearby)

			assert.Equal(t, tt.wantOutlook, got.Outlook)
			assert.Equal(t, tt.wantAssessment, got.Assessment)
			assert.Equal(t, tt.wantApproved, got.ApprovedCount)
			assert.Equal(t, tt.wantRefused, got.RefusedCount)
			assert.Equal(t, len(tt.onParcel)+len(tt.nearby), got.TotalCount)
		})
	}
}

func TestAnalyze_Counts(t *testing.T) {
	// Arrange
	onParcel := []models.Application{app("Approved", "Building Works"), app("", "Building Works")}
	nearby := []models.Application{app("Lapsed", "MCU"), app("Refused", "MCU"), app("Current", "Reconfiguring a Lot")}

	// Act
	got := Analyze(onParcel, nearby)

	// Assert
	assert.Equal(t, 1, got.ApprovedCount)
	assert.Equal(t, 1, got.RefusedCount)
	assert.Equal(t, 1, got.LapsedCount)
	assert.Equal(t, 2, got.InProgressCount)
	assert.Equal(t, 5, got.TotalCount)
	assert.Equal(t, 2, got.OnParcelCount)
	assert.Equal(t, 3, got.NearbyCount)
}

func TestAnalyze_ZeroApplications(t *testing.T) {
	got := Analyze(nil, nil)

	assert.Equal(t, models.OutlookNone, got.Outlook)
	assert.Zero(t, got.TotalCount)
	assert.Zero(t, got.ApprovedCount)
	assert.NotNil(t, got.TopCategories)
	assert.Empty(t, got.TopCategories)
	assert.Nil(t, got.MedianDecisionDays)
	assert.Nil(t, got.MeanDecisionDays)
}

func TestAnalyze_TopCategories(t *testing.T) {
	// Arrange: F and G tie with B and C but are seen later
	var nearby []models.Application
	for _, c := range []string{"A", "B", "C", "A", "D", "B", "E", "F", "C", "A", "", "G", "F", "G"} {
		nearby = append(nearby, app("Approved", c))
	}

	// Act
	got := Analyze(nil, nearby)

	// Assert
	assert.Equal(t, []models.CategoryCount{
		{Category: "A", Count: 3},
		{Category: "B", Count: 2},
		{Category: "C", Count: 2},
		{Category: "F", Count: 2},
		{Category: "G", Count: 2},
	}, got.TopCategories)
}

func TestAnalyze_MissingCategoryIsOther(t *testing.T) {
	got := Analyze([]models.Application{app("Approved", "  ")}, nil)

	require.Len(t, got.TopCategories, 1)
	assert.Equal(t, DefaultCategory, got.TopCategories[0].Category)
}

func TestAnalyze_DecisionTiming(t *testing.T) {
	// Arrange
	undated := app("Approved", "MCU")
	apps := []models.Application{
		decided("2024-01-10", 30),
		decided("2024-02-01", 45),
		decided("2024-03-15", 120),
		decided("2024-04-01", 20),
		undated,
	}

	// Act
	got := Analyze(apps, nil)

	// Assert
	assert.Equal(t, 4, got.DecidedSampleSize)
	require.NotNil(t, got.MedianDecisionDays)
	require.NotNil(t, got.MeanDecisionDays)
	assert.Equal(t, 37.5, *got.MedianDecisionDays)
	assert.Equal(t, 53.8, *got.MeanDecisionDays)
}
