package providers

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/logger"
	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/jhcramos/urbix-api/internal/rules"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// overlayEnvelopeBuffer catches overlays that only touch the parcel edge.
const overlayEnvelopeBuffer = 0.0001

// Attributes that are geometry bookkeeping or already surfaced as fields.
var droppedOverlayAttrs = map[string]bool{
	"OBJECTID":         true,
	"Shape":            true,
	"Shape.STArea()":   true,
	"Shape.STLength()": true,
	"DESCRIPT":         true,
	"HEADING":          true,
	"LABEL":            true,
}

// Overlays queries every catalogued planning-scheme overlay layer.
type Overlays struct {
	q         arcgis.Querier
	url       string
	catalog   *rules.Catalog
	batchSize int64
	log       *logger.Logger
}

// NewOverlays builds the overlay adapter. batchSize bounds in-flight layer
// queries; values below 1 mean 1.
func NewOverlays(q arcgis.Querier, ep Endpoints, catalog *rules.Catalog, batchSize int, log *logger.Logger) *Overlays {
	if batchSize < 1 {
		batchSize = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Overlays{
		q:         q,
		url:       ep.Overlays,
		catalog:   catalog,
		batchSize: int64(batchSize),
		log:       log.WithComponent("overlays"),
	}
}

type layerHit struct {
	id       int
	features []arcgis.Feature
	err      error
}

// Overlays returns the overlay groups intersecting the parcel, grouped by
// category in catalog order. Individual layer failures are logged and
// skipped; the call fails only when every layer failed.
func (o *Overlays) Overlays(ctx context.Context, p models.Point, g *models.Geometry) ([]models.OverlayGroup, error) {
	query := arcgis.Query{Point: &p, Limit: 10}
	if env := envelopeFor(g, overlayEnvelopeBuffer); env != nil {
		query = arcgis.Query{Envelope: env, Limit: 50}
	}

	ids := o.catalog.LayerIDs()
	hits := make([]layerHit, len(ids))
	sem := semaphore.NewWeighted(o.batchSize)
	var eg errgroup.Group

	for i, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			_ = eg.Wait()
			return nil, fmt.Errorf("overlay queries cancelled: %w", err)
		}
		eg.Go(func() error {
			defer sem.Release(1)
			features, err := o.q.Query(ctx, arcgis.Layer(o.url, id), query)
			hits[i] = layerHit{id: id, features: features, err: err}
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, h := range hits {
		if h.err != nil {
			failed++
			o.log.Warn("Overlay layer query failed", map[string]interface{}{
				"layer_id": h.id,
				"error":    h.err.Error(),
			})
		}
	}
	if len(ids) > 0 && failed == len(ids) {
		return nil, fmt.Errorf("all %d overlay layer queries failed: %w", failed, hits[0].err)
	}

	return o.group(hits), nil
}

func (o *Overlays) group(hits []layerHit) []models.OverlayGroup {
	byCategory := make(map[string]*models.OverlayGroup)
	order := make(map[string]int)
	seen := make(map[string]bool)

	for _, h := range hits {
		info, ok := o.catalog.Layer(h.id)
		if !ok {
			continue
		}
		for _, f := range h.features {
			layer := o.overlayLayer(h.id, info.Name, f)
			key := strconv.Itoa(layer.LayerID) + "|" + layer.Label
			if seen[key] {
				continue
			}
			seen[key] = true

			grp, ok := byCategory[info.Category]
			if !ok {
				grp = &models.OverlayGroup{Category: info.Category}
				byCategory[info.Category] = grp
				order[info.Category] = info.Order
			}
			grp.Layers = append(grp.Layers, layer)
		}
	}

	groups := make([]models.OverlayGroup, 0, len(byCategory))
	for _, grp := range byCategory {
		groups = append(groups, *grp)
	}
	sort.Slice(groups, func(i, j int) bool {
		return order[groups[i].Category] < order[groups[j].Category]
	})
	return groups
}

func (o *Overlays) overlayLayer(id int, name string, f arcgis.Feature) models.OverlayLayer {
	label := f.Str("LABEL")
	if label == "" {
		label = name
	}

	layer := models.OverlayLayer{LayerID: id, Name: name, Label: label}
	if id == o.catalog.HeightLayer {
		layer.HeightM = f.FloatPtr("HeightRestrictionMetres")
	}

	f.Each(func(k string, v interface{}) {
		if droppedOverlayAttrs[k] {
			return
		}
		if layer.Attributes == nil {
			layer.Attributes = make(map[string]interface{})
		}
		layer.Attributes[k] = v
	})
	return layer
}
