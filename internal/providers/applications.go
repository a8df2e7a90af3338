package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/models"
)

// Application layers: development then building, each in progress then decided.
var (
	developmentLayers = []int{0, 1}
	buildingLayers    = []int{2, 3}
)

const (
	onParcelBuffer = 0.0005
	nearbyRadiusM  = 500
	portalBase     = "https://developmenti.sunshinecoast.qld.gov.au/Home/FilterDirect?LotPlan="
)

var applicationFields = []string{
	"ram_id", "description", "category_desc", "decision", "progress",
	"assessment_level", "d_date_rec", "d_decision_made", "land_parcel_relationship",
}

// Applications reads development and building application history.
type Applications struct {
	q   arcgis.Querier
	url string
}

// NewApplications builds the application history adapter.
func NewApplications(q arcgis.Querier, ep Endpoints) *Applications {
	return &Applications{q: q, url: ep.Applications}
}

// Applications returns applications on the parcel (its envelope plus a
// small buffer) and within 500m of p, with on-parcel cases removed from the
// nearby list. A failed layer contributes nothing; the call fails only when
// every layer query failed.
func (a *Applications) Applications(ctx context.Context, p models.Point, g *models.Geometry, parcel models.Parcel) (models.ApplicationHistory, error) {
	env := envelopeFor(g, onParcelBuffer)
	if env == nil {
		b := models.PointBBox(p, onParcelBuffer)
		env = &b
	}
	onParcelQuery := arcgis.Query{Envelope: env, OutFields: applicationFields, Limit: 50}
	nearbyQuery := arcgis.Query{Point: &p, DistanceM: nearbyRadiusM, OutFields: applicationFields, Limit: 100}

	layers := append(append([]int{}, developmentLayers...), buildingLayers...)
	calls := make([]layerCall, 0, 2*len(layers))
	for _, layer := range layers {
		calls = append(calls,
			layerCall{url: a.url, layer: layer, query: onParcelQuery},
			layerCall{url: a.url, layer: layer, query: nearbyQuery},
		)
	}
	res := queryLayers(ctx, a.q, calls)
	if err := res.allFailed("applications"); err != nil {
		return models.ApplicationHistory{}, err
	}

	onParcel := make([][]arcgis.Feature, len(layers))
	nearby := make([][]arcgis.Feature, len(layers))
	for i := range layers {
		onParcel[i] = res.features[2*i]
		nearby[i] = res.features[2*i+1]
	}

	h := models.ApplicationHistory{OnParcel: dedupeApplications(toApplications(onParcel), nil)}
	h.Nearby = dedupeApplications(toApplications(nearby), caseIDs(h.OnParcel))
	h.OnParcelCount = len(h.OnParcel)
	h.NearbyCount = len(h.Nearby)
	h.TotalCount = h.OnParcelCount + h.NearbyCount
	h.OnParcelInProgress = countInProgress(h.OnParcel)
	h.NearbyInProgress = countInProgress(h.Nearby)
	h.TotalInProgress = h.OnParcelInProgress + h.NearbyInProgress
	h.PortalLink = PortalLink(parcel)
	h.Summary = applicationSummary(h)
	return h, nil
}

// PortalLink is the council application portal filtered to the parcel.
func PortalLink(parcel models.Parcel) string {
	if parcel.Lot == "" || parcel.Plan == "" {
		return ""
	}
	return portalBase + parcel.Lot + "/" + models.StripPlanPrefix(parcel.Plan)
}

// toApplications flattens per-layer results, keeping layer order.
func toApplications(layers [][]arcgis.Feature) []models.Application {
	var out []models.Application
	for _, features := range layers {
		for _, f := range features {
			app := models.Application{
				CaseID:                 trimmed(f, "ram_id"),
				Description:            trimmed(f, "description"),
				Category:               trimmed(f, "category_desc"),
				Decision:               trimmed(f, "decision"),
				Progress:               trimmed(f, "progress"),
				AssessmentLevel:        trimmed(f, "assessment_level"),
				LandParcelRelationship: trimmed(f, "land_parcel_relationship"),
			}
			if app.CaseID == "" && app.Description == "" {
				continue
			}
			app.DateReceived, app.ReceivedAt = f.EpochDate("d_date_rec", brisbane)
			app.DateDecided, app.DecidedAt = f.EpochDate("d_decision_made", brisbane)
			out = append(out, app)
		}
	}
	return out
}

// dedupeApplications drops repeated case ids and any in exclude.
func dedupeApplications(apps []models.Application, exclude map[string]bool) []models.Application {
	seen := make(map[string]bool)
	out := make([]models.Application, 0, len(apps))
	for _, app := range apps {
		if app.CaseID != "" {
			if exclude[app.CaseID] || seen[app.CaseID] {
				continue
			}
			seen[app.CaseID] = true
		}
		out = append(out, app)
	}
	return out
}

func caseIDs(apps []models.Application) map[string]bool {
	ids := make(map[string]bool, len(apps))
	for _, app := range apps {
		if app.CaseID != "" {
			ids[app.CaseID] = true
		}
	}
	return ids
}

func countInProgress(apps []models.Application) int {
	n := 0
	for _, app := range apps {
		if app.InProgress() {
			n++
		}
	}
	return n
}

func applicationSummary(h models.ApplicationHistory) string {
	if h.TotalCount == 0 {
		return "No development applications found in area"
	}
	var parts []string
	if h.OnParcelCount > 0 {
		parts = append(parts, fmt.Sprintf("%d on parcel", h.OnParcelCount))
	}
	if h.NearbyCount > 0 {
		parts = append(parts, fmt.Sprintf("%d nearby", h.NearbyCount))
	}
	summary := strings.Join(parts, ", ")
	if h.TotalInProgress > 0 {
		summary += fmt.Sprintf(" (%d in progress)", h.TotalInProgress)
	}
	return summary
}
