package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/logger"
	"github.com/jhcramos/urbix-api/internal/models"
	"golang.org/x/sync/errgroup"
)

const zoningLayer = 5

// Zoning reads the base zone and the site height limit from the planning scheme.
type Zoning struct {
	q           arcgis.Querier
	zoningURL   string
	overlaysURL string
	heightLayer int
	log         *logger.Logger
}

// NewZoning builds the zoning adapter. heightLayer is the overlay layer
// carrying HeightRestrictionMetres.
func NewZoning(q arcgis.Querier, ep Endpoints, heightLayer int, log *logger.Logger) *Zoning {
	if log == nil {
		log = logger.Nop()
	}
	return &Zoning{
		q:           q,
		zoningURL:   ep.Zoning,
		overlaysURL: ep.Overlays,
		heightLayer: heightLayer,
		log:         log.WithComponent("zoning"),
	}
}

// Zone returns the zone at p, or nil when the point is unzoned.
func (z *Zoning) Zone(ctx context.Context, p models.Point) (*models.Zone, error) {
	features, err := z.q.Query(ctx, arcgis.Layer(z.zoningURL, zoningLayer), arcgis.Query{Point: &p, Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to query zone: %w", err)
	}
	if len(features) == 0 {
		return nil, nil
	}

	f := features[0]
	label := f.Str("LABEL")
	category := strings.TrimSpace(f.Str("HEADING"))
	if category == "" {
		category = "Unknown Category"
	}
	return &models.Zone{
		Code:        label,
		Category:    category,
		Label:       label,
		Description: f.Str("DESCRIPT"),
	}, nil
}

// Height returns the height overlay at p, or nil when none applies.
func (z *Zoning) Height(ctx context.Context, p models.Point) (*models.HeightRestriction, error) {
	features, err := z.q.Query(ctx, arcgis.Layer(z.overlaysURL, z.heightLayer), arcgis.Query{Point: &p, Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to query height restriction: %w", err)
	}
	if len(features) == 0 {
		return nil, nil
	}

	f := features[0]
	return &models.HeightRestriction{
		HeightM: f.FloatPtr("HeightRestrictionMetres"),
		Label:   f.Str("LABEL"),
		Comment: f.Str("ComplexComment"),
	}, nil
}

// ZoneAndHeight queries both layers together. The height limit is
// supplementary: its failure is logged and leaves it nil, while a zone
// failure fails the call.
func (z *Zoning) ZoneAndHeight(ctx context.Context, p models.Point) (*models.Zone, *models.HeightRestriction, error) {
	var (
		zone   *models.Zone
		height *models.HeightRestriction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		zone, err = z.Zone(gctx, p)
		return err
	})
	g.Go(func() error {
		h, err := z.Height(gctx, p)
		if err != nil {
			z.log.Warn("Height restriction unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			return nil
		}
		height = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return zone, height, nil
}
