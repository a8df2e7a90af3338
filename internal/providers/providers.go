// Package providers adapts the government ArcGIS services that describe a
// site into fixed model types. Each provider owns one category of data and
// maps raw attributes at this boundary; nothing loosely typed leaves it.
package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhcramos/urbix-api/internal/address"
	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/models"
	"golang.org/x/sync/errgroup"
)

// Endpoints are the ArcGIS service roots ("…/MapServer" or "…/FeatureServer")
// each provider queries. Tests point them at a local server.
type Endpoints struct {
	Cadastre       string
	Zoning         string
	Overlays       string
	Transport      string
	WaterNetwork   string
	SewerNetwork   string
	InlandWaters   string
	Stormwater     string
	FloodMapping   string
	FloodStudies   string
	Applications   string
	ParcelInfo     string
	Koala          string
	SensitiveAreas string
}

const (
	qldBase      = "https://spatial-gis.information.qld.gov.au/arcgis/rest/services"
	sccGeoimage  = "https://geoimage.scc.qld.gov.au/arcgis/rest/services"
	sccGeopublic = "https://geopublic.scc.qld.gov.au/arcgis/rest/services"
	unitywater   = "https://services2.arcgis.com/tQg86iShPXJPWQWw/ArcGIS/rest/services"
)

// DefaultEndpoints are the live Queensland and Sunshine Coast services.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Cadastre:       qldBase + "/PlanningCadastre/LandParcelPropertyFramework/MapServer",
		Zoning:         sccGeoimage + "/PlanningCadastre/PlanningScheme_SunshineCoast_Zoning_SCC/MapServer",
		Overlays:       sccGeoimage + "/PlanningCadastre/PlanningScheme_SunshineCoast_Overlays_SCC/MapServer",
		Transport:      sccGeoimage + "/PlanningCadastre/PlanningScheme_SunshineCoast_Transport_SCC/MapServer",
		WaterNetwork:   unitywater + "/UWPublicAccessWaterInfrastructureLayers/FeatureServer",
		SewerNetwork:   unitywater + "/UWPublicAccessSewerInfrastructureLayers/FeatureServer",
		InlandWaters:   sccGeopublic + "/InlandWaters/InlandWaters_SCRC/MapServer",
		Stormwater:     sccGeopublic + "/UtilitiesCommunication/Utilities_SCRC/MapServer",
		FloodMapping:   sccGeopublic + "/Emergency/FloodMapping_scrc/MapServer",
		FloodStudies:   qldBase + "/FloodCheck/FloodStudies/MapServer",
		Applications:   sccGeopublic + "/PlanningCadastre/Applications_SCRC/MapServer",
		ParcelInfo:     sccGeopublic + "/PlanningCadastre/ParcelInformation_SCRC/MapServer",
		Koala:          qldBase + "/Environment/KoalaPlan/MapServer",
		SensitiveAreas: qldBase + "/Environment/EnvironmentallySensitiveAreas/MapServer",
	}
}

// Council records are dated in Queensland time, which has no daylight saving.
var brisbane = time.FixedZone("AEST", 10*60*60)

// envelopeFor returns the parcel envelope grown by buffer degrees, or nil
// when the geometry has no extent.
func envelopeFor(g *models.Geometry, buffer float64) *models.BBox {
	if !g.IsPolygonal() {
		return nil
	}
	b, ok := g.BBox()
	if !ok {
		return nil
	}
	b = b.Buffer(buffer)
	return &b
}

// trimmed returns a trimmed string attribute.
func trimmed(f arcgis.Feature, keys ...string) string {
	return strings.TrimSpace(f.Str(keys...))
}

// plural renders "1 pipe" or "3 pipes".
func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// lotPlanWhere is the attribute filter used by the cadastral layers.
func lotPlanWhere(lot, plan string) string {
	return fmt.Sprintf("lot='%s' AND plan='%s'", address.EscapeLiteral(lot), address.EscapeLiteral(plan))
}

// layerCall is one query of a provider's fan-out.
type layerCall struct {
	url   string
	layer int
	query arcgis.Query
}

// layerResults holds each call's features, or its error, by call index.
type layerResults struct {
	features [][]arcgis.Feature
	errs     []error
}

// queryLayers runs every call concurrently. A failed call leaves its slot
// empty and records its error; it never cancels the others.
func queryLayers(ctx context.Context, q arcgis.Querier, calls []layerCall) layerResults {
	res := layerResults{
		features: make([][]arcgis.Feature, len(calls)),
		errs:     make([]error, len(calls)),
	}
	var eg errgroup.Group
	for i, c := range calls {
		eg.Go(func() error {
			layerURL := arcgis.Layer(c.url, c.layer)
			features, err := q.Query(ctx, layerURL, c.query)
			if err != nil {
				res.errs[i] = fmt.Errorf("layer %s: %w", layerURL, err)
				return nil
			}
			res.features[i] = features
			return nil
		})
	}
	_ = eg.Wait()
	return res
}

// allFailed returns an error when there were calls and none succeeded.
func (r layerResults) allFailed(what string) error {
	if len(r.errs) == 0 {
		return nil
	}
	for _, err := range r.errs {
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("all %d %s queries failed: %w", len(r.errs), what, r.errs[0])
}
