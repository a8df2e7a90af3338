package providers

import (
	"strconv"
	"strings"

	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/jhcramos/urbix-api/internal/rules"
)

const (
	mapGeometryBuffer = 0.002
	mapPointBuffer    = 0.005
	mapSize           = "500,400"
)

// MapBuilder renders export-image URLs for a site.
type MapBuilder struct {
	ep      Endpoints
	catalog *rules.Catalog
}

// NewMapBuilder builds the map URL renderer.
func NewMapBuilder(ep Endpoints, catalog *rules.Catalog) *MapBuilder {
	return &MapBuilder{ep: ep, catalog: catalog}
}

// MapBBox is the parcel extent plus a margin, or a fixed window around p.
func MapBBox(p models.Point, g *models.Geometry) models.BBox {
	if b, ok := g.BBox(); ok {
		return b.Buffer(mapGeometryBuffer).Round(6)
	}
	return models.PointBBox(p, mapPointBuffer).Round(6)
}

// URLs returns the zone, transport and per-category overlay map URLs. An
// overlay map is produced only for categories present in groups.
func (m *MapBuilder) URLs(p models.Point, g *models.Geometry, groups []models.OverlayGroup) models.MapURLs {
	bbox := MapBBox(p, g)

	categories := make([]string, 0, len(groups))
	for _, grp := range groups {
		categories = append(categories, grp.Category)
	}

	overlays := make(map[string]string)
	for _, set := range m.catalog.MapLayersFor(categories) {
		overlays[set.Key] = exportURL(m.ep.Overlays, bbox, set.IDs)
	}

	return models.MapURLs{
		BBox:           bbox,
		ZoneWMS:        exportURL(m.ep.Zoning, bbox, nil),
		OverlayWMSURLs: overlays,
		TransportWMS:   exportURL(m.ep.Transport, bbox, nil),
	}
}

func exportURL(service string, bbox models.BBox, layers []int) string {
	var b strings.Builder
	b.WriteString(service)
	b.WriteString("/export?bbox=")
	b.WriteString(bbox.String())
	b.WriteString("&bboxSR=4326&imageSR=4326&size=")
	b.WriteString(mapSize)
	if len(layers) > 0 {
		ids := make([]string, len(layers))
		for i, id := range layers {
			ids[i] = strconv.Itoa(id)
		}
		b.WriteString("&layers=show:")
		b.WriteString(strings.Join(ids, ","))
	}
	b.WriteString("&format=png&transparent=true&f=image")
	return b.String()
}
