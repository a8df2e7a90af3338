package providers

import (
	"context"
	"fmt"

	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/models"
)

const transportTolerancePx = 100

// Transport identifies road hierarchy and transport network mapping
// around the site.
type Transport struct {
	id arcgis.Identifier
	ep Endpoints
}

// NewTransport builds the transport adapter.
func NewTransport(id arcgis.Identifier, ep Endpoints) *Transport {
	return &Transport{id: id, ep: ep}
}

// Transport returns the distinct heading and label pairs identified at p,
// in response order.
func (t *Transport) Transport(ctx context.Context, p models.Point) ([]models.TransportFeature, error) {
	features, err := t.id.Identify(ctx, t.ep.Transport, arcgis.IdentifyQuery{Point: p, TolerancePx: transportTolerancePx})
	if err != nil {
		return nil, fmt.Errorf("failed to identify transport: %w", err)
	}

	out := make([]models.TransportFeature, 0, len(features))
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		tf := models.TransportFeature{
			Heading:     f.Str("HEADING"),
			Label:       f.Str("LABEL"),
			Description: f.Str("DESCRIPT"),
		}
		key := tf.Heading + "|" + tf.Label
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tf)
	}
	return out, nil
}
