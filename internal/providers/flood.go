package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhcramos/urbix-api/internal/address"
	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/models"
)

const (
	floodMappingLayer = 0
	maxFloodStudies   = 5
)

var floodStudyLayers = []int{0, 1, 2}

var floodRecordFields = []string{
	"SCENARIO", "MAX_FLOOD_FORMAT", "MAX_FLOOR_FORMAT", "FREEBOARD", "MAX_VEL_FORMAT",
	"SOURCE", "NOTES", "COMPLEX", "address_format", "lotplan",
}

// Flood combines the council's per-lot flood mapping with state flood studies.
type Flood struct {
	q  arcgis.Querier
	ep Endpoints
}

// NewFlood builds the flood adapter.
func NewFlood(q arcgis.Querier, ep Endpoints) *Flood {
	return &Flood{q: q, ep: ep}
}

// Flood looks up the council record for the parcel's lot/plan, when it has
// one, and the flood studies within 500m of p. The council record and the
// studies come from different servers; a failure on one side leaves the other
// intact and the call fails only when every query failed.
func (f *Flood) Flood(ctx context.Context, p models.Point, parcel models.Parcel) (models.FloodInfo, error) {
	lotplan := parcel.CouncilLotPlan()

	calls := make([]layerCall, 0, len(floodStudyLayers)+1)
	for _, layer := range floodStudyLayers {
		calls = append(calls, layerCall{url: f.ep.FloodStudies, layer: layer, query: arcgis.Query{
			Point:     &p,
			DistanceM: 500,
			Limit:     50,
		}})
	}
	if lotplan != "" {
		calls = append(calls, layerCall{url: f.ep.FloodMapping, layer: floodMappingLayer, query: arcgis.Query{
			Where:     fmt.Sprintf("lotplan='%s'", address.EscapeLiteral(lotplan)),
			OutFields: floodRecordFields,
		}})
	}

	res := queryLayers(ctx, f.q, calls)
	if err := res.allFailed("flood"); err != nil {
		return models.FloodInfo{}, err
	}

	var records []arcgis.Feature
	if lotplan != "" {
		records = res.features[len(floodStudyLayers)]
	}
	info := models.FloodInfo{
		Data:            floodRecord(records),
		Studies:         floodStudies(res.features[:len(floodStudyLayers)]),
		LotPlanSearched: lotplan,
	}
	info.HasFloodData = info.Data != nil
	info.HasFloodStudies = len(info.Studies) > 0
	info.Summary = floodSummary(info)
	return info, nil
}

func floodRecord(features []arcgis.Feature) *models.FloodRecord {
	if len(features) == 0 {
		return nil
	}
	a := features[0]
	r := models.FloodRecord{
		Scenario:      trimmed(a, "SCENARIO"),
		MaxFloodLevel: trimmed(a, "MAX_FLOOD_FORMAT"),
		MinFloorLevel: trimmed(a, "MAX_FLOOR_FORMAT"),
		Freeboard:     trimmed(a, "FREEBOARD"),
		Velocity:      trimmed(a, "MAX_VEL_FORMAT"),
		Source:        trimmed(a, "SOURCE"),
		Notes:         trimmed(a, "NOTES"),
		ComplexNote:   trimmed(a, "COMPLEX"),
		Address:       trimmed(a, "address_format"),
		LotPlan:       trimmed(a, "lotplan"),
	}
	if r == (models.FloodRecord{}) {
		return nil
	}
	return &r
}

func floodStudies(layers [][]arcgis.Feature) []models.FloodStudy {
	seen := make(map[string]bool)
	var out []models.FloodStudy
	for _, features := range layers {
		for _, f := range features {
			name := trimmed(f, "STUDY_NAME", "StudyName", "NAME", "name", "TITLE")
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, models.FloodStudy{
				Name:      name,
				Authority: trimmed(f, "AUTHORITY", "Authority"),
				Date:      trimmed(f, "DATE", "Date"),
				Status:    trimmed(f, "STATUS", "Status"),
				Type:      trimmed(f, "TYPE", "Type"),
			})
		}
	}
	if len(out) > maxFloodStudies {
		out = out[:maxFloodStudies]
	}
	return out
}

func floodSummary(info models.FloodInfo) string {
	var b strings.Builder
	switch {
	case info.HasFloodData && info.Data.MaxFloodLevel != "" && info.Data.MinFloorLevel != "":
		b.WriteString("Flood affected — Floor level " + info.Data.MinFloorLevel)
	case info.HasFloodData:
		b.WriteString("Flood mapping data available — check requirements")
	case info.HasFloodStudies:
		b.WriteString("No direct flood mapping — studies available in area")
	default:
		b.WriteString("No flood mapping or studies identified")
	}

	switch n := len(info.Studies); {
	case n == 1:
		b.WriteString(" (1 flood study in area)")
	case n > 1:
		fmt.Fprintf(&b, " (%d flood studies in area)", n)
	}
	return b.String()
}
