// Package precedent reduces application history into approval statistics
// and an outlook for the surrounding area.
package precedent

import (
	"sort"
	"strings"

	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/montanaflynn/stats"
)

// TopCategoryLimit is how many application categories are reported.
const TopCategoryLimit = 5

// DefaultCategory is used for applications without a category.
const DefaultCategory = "Other"

const (
	assessNone     = "No precedent data available in area"
	assessAllOK    = "Strong approval trend — all applications in the area have been approved"
	assessPositive = "Positive approval trend — majority of applications approved"
	assessNegative = "Challenging area — more refusals than approvals"
	assessMixed    = "Mixed results — assess carefully against planning scheme"
)

// Decision classes.
const (
	Approved   = "approved"
	Refused    = "refused"
	Lapsed     = "lapsed"
	InProgress = "in_progress"
)

// Classify maps decision text to a decision class. Anything without an
// approval, refusal or lapse marker is still in progress.
func Classify(decision string) string {
	d := strings.ToLower(decision)
	switch {
	case strings.Contains(d, Approved):
		return Approved
	case strings.Contains(d, Refused):
		return Refused
	case strings.Contains(d, Lapsed):
		return Lapsed
	default:
		return InProgress
	}
}

// Analyze classifies every on-parcel and nearby application and derives the
// outlook.
func Analyze(onParcel, nearby []models.Application) models.PrecedentAnalysis {
	p := models.PrecedentAnalysis{
		OnParcelCount: len(onParcel),
		NearbyCount:   len(nearby),
		TopCategories: []models.CategoryCount{},
	}

	counts := make(map[string]int)
	var order []string
	var days []float64

	all := make([]models.Application, 0, len(onParcel)+len(nearby))
	all = append(all, onParcel...)
	all = append(all, nearby...)

	for _, app := range all {
		switch Classify(app.Decision) {
		case Approved:
			p.ApprovedCount++
		case Refused:
			p.RefusedCount++
		case Lapsed:
			p.LapsedCount++
		default:
			p.InProgressCount++
		}

		category := strings.TrimSpace(app.Category)
		if category == "" {
			category = DefaultCategory
		}
		if _, seen := counts[category]; !seen {
			order = append(order, category)
		}
		counts[category]++

		if d, ok := decisionDays(app); ok {
			days = append(days, d)
		}
	}

	p.TotalCount = p.ApprovedCount + p.RefusedCount + p.LapsedCount + p.InProgressCount
	p.Outlook, p.Assessment = outlook(p.ApprovedCount, p.RefusedCount, p.TotalCount)
	p.TopCategories = topCategories(order, counts)

	p.DecidedSampleSize = len(days)
	if len(days) > 0 {
		if median, err := stats.Median(days); err == nil {
			median = round1(median)
			p.MedianDecisionDays = &median
		}
		if mean, err := stats.Mean(days); err == nil {
			mean = round1(mean)
			p.MeanDecisionDays = &mean
		}
	}
	return p
}

// outlook checks, in order: no history, no refusals, approvals more than
// double refusals, refusals ahead of approvals.
func outlook(approved, refused, total int) (string, string) {
	switch {
	case total == 0:
		return models.OutlookNone, assessNone
	case refused == 0 && approved > 0:
		return models.OutlookPositive, assessAllOK
	case approved > 2*refused:
		return models.OutlookPositive, assessPositive
	case refused > approved:
		return models.OutlookNegative, assessNegative
	default:
		return models.OutlookNeutral, assessMixed
	}
}

// topCategories sorts by count, keeping first-seen order between ties.
func topCategories(order []string, counts map[string]int) []models.CategoryCount {
	out := make([]models.CategoryCount, 0, len(order))
	for _, c := range order {
		out = append(out, models.CategoryCount{Category: c, Count: counts[c]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > TopCategoryLimit {
		out = out[:TopCategoryLimit]
	}
	return out
}

func decisionDays(app models.Application) (float64, bool) {
	if app.ReceivedAt == nil || app.DecidedAt == nil {
		return 0, false
	}
	d := app.DecidedAt.Sub(*app.ReceivedAt).Hours() / 24
	if d < 0 {
		return 0, false
	}
	return d, true
}

func round1(v float64) float64 {
	r, err := stats.Round(v, 1)
	if err != nil {
		return v
	}
	return r
}
