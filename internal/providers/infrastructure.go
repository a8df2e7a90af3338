package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/models"
)

// Network layers.
const (
	waterMainLayer     = 10
	hydrantLayer       = 7
	sewerGravityLayer  = 11
	sewerPressureLayer = 12
	waterwayLayer      = 7
	stormPipeLayer     = 8
	stormPitLayer      = 4
	stormCulvertLayer  = 9
)

// Infrastructure reports reticulated services near a point.
type Infrastructure struct {
	q  arcgis.Querier
	ep Endpoints
}

// NewInfrastructure builds the service-network adapter.
func NewInfrastructure(q arcgis.Querier, ep Endpoints) *Infrastructure {
	return &Infrastructure{q: q, ep: ep}
}

type radiusQuery struct {
	url    string
	layer  int
	metres float64
	// decides availability; its failure fails the call
	required bool
}

// Infrastructure queries the water, sewer and stormwater networks around p.
// Mains, sewers, pipes and culverts decide availability, so a failure on any
// of them fails the call rather than reporting a missing network. Hydrants,
// waterways and pits only add detail and read as empty when they fail.
func (s *Infrastructure) Infrastructure(ctx context.Context, p models.Point) (models.Infrastructure, error) {
	queries := []radiusQuery{
		{s.ep.WaterNetwork, waterMainLayer, 100, true},
		{s.ep.WaterNetwork, hydrantLayer, 200, false},
		{s.ep.SewerNetwork, sewerGravityLayer, 100, true},
		{s.ep.SewerNetwork, sewerPressureLayer, 100, true},
		{s.ep.InlandWaters, waterwayLayer, 200, false},
		{s.ep.Stormwater, stormPipeLayer, 200, true},
		{s.ep.Stormwater, stormPitLayer, 200, false},
		{s.ep.Stormwater, stormCulvertLayer, 200, true},
	}

	calls := make([]layerCall, len(queries))
	for i, rq := range queries {
		calls[i] = layerCall{url: rq.url, layer: rq.layer, query: arcgis.Query{
			Point:     &p,
			DistanceM: rq.metres,
			Limit:     200,
		}}
	}
	res := queryLayers(ctx, s.q, calls)
	for i, rq := range queries {
		if rq.required && res.errs[i] != nil {
			return models.Infrastructure{}, fmt.Errorf("failed to query network: %w", res.errs[i])
		}
	}

	f := res.features
	return models.Infrastructure{
		Water:      waterService(f[0], f[1]),
		Sewer:      sewerService(f[2], f[3]),
		Stormwater: stormwaterService(f[4], f[5], f[6], f[7]),
	}, nil
}

// mainDiameter reads NominalDiameter, falling back to Diameter when it is
// absent or zero.
func mainDiameter(f arcgis.Feature) (float64, bool) {
	if d, ok := f.Float("NominalDiameter"); ok && d != 0 {
		return d, true
	}
	return f.Float("Diameter")
}

func diameterText(d *int) string {
	if d == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *d)
}

func positiveInt(v float64) *int {
	if v <= 0 {
		return nil
	}
	n := int(v)
	return &n
}

func waterService(mains, hydrants []arcgis.Feature) models.WaterService {
	w := models.WaterService{
		Available:      len(mains) > 0,
		MainsCount:     len(mains),
		HydrantsNearby: len(hydrants),
	}

	// Results come back nearest first.
	for _, f := range mains {
		if d, ok := mainDiameter(f); ok {
			w.NearestDiameterMM = positiveInt(d)
			w.NearestMaterial = f.Str("Material")
			break
		}
	}

	if !w.Available {
		w.Detail = "No reticulated water — tank/bore required"
		return w
	}
	w.Detail = strings.Join(strings.Fields(fmt.Sprintf("Reticulated water available — %smm %s main within 100m",
		diameterText(w.NearestDiameterMM), w.NearestMaterial)), " ")
	return w
}

func sewerService(gravity, pressure []arcgis.Feature) models.SewerService {
	s := models.SewerService{
		GravityCount:  len(gravity),
		PressureCount: len(pressure),
		MainsCount:    len(gravity) + len(pressure),
	}
	s.Available = s.MainsCount > 0

	found := false
	for _, set := range []struct {
		kind     string
		features []arcgis.Feature
	}{{"gravity", gravity}, {"pressure", pressure}} {
		for _, f := range set.features {
			if d, ok := mainDiameter(f); ok {
				s.NearestDiameterMM = positiveInt(d)
				s.NearestType = set.kind
				found = true
				break
			}
		}
		if found {
			break
		}
	}

	if !s.Available {
		s.Detail = "No reticulated sewer — on-site system required"
		return s
	}
	s.Detail = strings.Join(strings.Fields(fmt.Sprintf("Reticulated sewer available — %smm %s main within 100m",
		diameterText(s.NearestDiameterMM), s.NearestType)), " ")
	return s
}

func stormwaterService(waterways, pipes, pits, culverts []arcgis.Feature) models.StormwaterService {
	sw := models.StormwaterService{
		NearbyWaterways: len(waterways),
		PipeCount:       len(pipes),
		PitCount:        len(pits),
		CulvertCount:    len(culverts),
	}
	sw.Available = sw.PipeCount+sw.CulvertCount > 0

	for _, f := range waterways {
		if name := f.Str("Name", "GNAME", "name"); name != "" {
			sw.DrainageInfo = name
			break
		}
	}

	largest := 0
	for _, f := range append(append([]arcgis.Feature{}, pipes...), culverts...) {
		if d, ok := f.Float("PipeDiameter_mm"); ok && int(d) > largest {
			largest = int(d)
		}
	}
	if largest > 0 {
		sw.LargestDiameterMM = &largest
	}

	var detail string
	if sw.Available {
		detail = "Council stormwater network — " + plural(sw.PipeCount, "pipe")
		if sw.CulvertCount > 0 {
			detail += ", " + plural(sw.CulvertCount, "culvert")
		}
		detail += " within 200m"
	} else {
		detail = "No council stormwater pipes within 200m"
	}

	if sw.NearbyWaterways > 0 {
		ww := plural(sw.NearbyWaterways, "waterway") + " within 200m"
		if sw.DrainageInfo != "" {
			ww = fmt.Sprintf("Natural drainage via %s — %s", sw.DrainageInfo, ww)
		}
		detail += " | " + ww
	}
	sw.Detail = detail
	return sw
}
