package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhcramos/urbix-api/internal/address"
	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/models"
)

// Cadastral layers of the state parcel framework.
const (
	addressLayer = 0
	parcelLayer  = 4
	tenureLayer  = 13
)

// Cadastre is the state parcel authority: the slow, authoritative tier
// behind the local index.
type Cadastre struct {
	q   arcgis.Querier
	url string
}

// NewCadastre builds the parcel authority adapter.
func NewCadastre(q arcgis.Querier, ep Endpoints) *Cadastre {
	return &Cadastre{q: q, url: ep.Cadastre}
}

// ParcelByLotPlan returns the parcel for a lot/plan pair, or nil when the
// authority has no such record.
func (c *Cadastre) ParcelByLotPlan(ctx context.Context, lot, plan string) (*models.ResolvedParcel, error) {
	features, err := c.q.Query(ctx, arcgis.Layer(c.url, parcelLayer), arcgis.Query{
		Where:          lotPlanWhere(lot, plan),
		ReturnGeometry: true,
		GeoJSON:        true,
		Limit:          5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query parcel %s/%s: %w", lot, plan, err)
	}
	return pickParcel(features), nil
}

// ParcelAtPoint returns the parcel containing p, or nil.
func (c *Cadastre) ParcelAtPoint(ctx context.Context, p models.Point) (*models.ResolvedParcel, error) {
	features, err := c.q.Query(ctx, arcgis.Layer(c.url, parcelLayer), arcgis.Query{
		Point:          &p,
		ReturnGeometry: true,
		GeoJSON:        true,
		Limit:          5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query parcel at %f,%f: %w", p.Lat, p.Lng, err)
	}
	return pickParcel(features), nil
}

// SearchAddresses matches addresses containing query once its street types
// are expanded.
func (c *Cadastre) SearchAddresses(ctx context.Context, query string, limit int) ([]models.AddressCandidate, error) {
	q := address.Expand(address.EscapeLiteral(strings.TrimSpace(query)))
	features, err := c.q.Query(ctx, arcgis.Layer(c.url, addressLayer), arcgis.Query{
		Where:          fmt.Sprintf("address LIKE '%%%s%%'", q),
		ReturnGeometry: true,
		GeoJSON:        true,
		Limit:          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search addresses: %w", err)
	}

	out := make([]models.AddressCandidate, 0, len(features))
	for _, f := range features {
		out = append(out, addressCandidate(f))
	}
	return out, nil
}

// Tenure returns the tenure of a lot/plan, or "" when unrecorded.
func (c *Cadastre) Tenure(ctx context.Context, lot, plan string) (string, error) {
	features, err := c.q.Query(ctx, arcgis.Layer(c.url, tenureLayer), arcgis.Query{
		Where:   lotPlanWhere(lot, plan),
		GeoJSON: true,
		Limit:   1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to query tenure for %s/%s: %w", lot, plan, err)
	}
	if len(features) == 0 {
		return "", nil
	}
	return features[0].Str("tenure"), nil
}

// pickParcel prefers the Base cover over easement covers of the same lot.
func pickParcel(features []arcgis.Feature) *models.ResolvedParcel {
	if len(features) == 0 {
		return nil
	}
	chosen := features[0]
	for _, f := range features {
		if f.Str("cover_typ") == models.CoverTypeBase {
			chosen = f
			break
		}
	}
	return &models.ResolvedParcel{
		Parcel:   parcelFrom(chosen),
		Geometry: chosen.Geometry,
		Source:   models.SourceRemote,
	}
}

func parcelFrom(f arcgis.Feature) models.Parcel {
	return models.Parcel{
		Lot:         f.Str("lot"),
		Plan:        f.Str("plan"),
		LotPlanKey:  f.Str("lotplan"),
		ParcelType:  f.Str("parcel_typ"),
		CoverType:   f.Str("cover_typ"),
		Tenure:      f.Str("tenure"),
		AreaSqm:     f.FloatPtr("lot_area"),
		Locality:    f.Str("locality"),
		ShireName:   f.Str("shire_name"),
		FeatureName: f.Str("feat_name"),
	}
}

func addressCandidate(f arcgis.Feature) models.AddressCandidate {
	a := models.AddressCandidate{
		Address:      f.Str("address"),
		Locality:     f.Str("locality"),
		Lot:          f.Str("lot"),
		Plan:         f.Str("plan"),
		LotPlanKey:   f.Str("lotplan"),
		StreetName:   f.Str("street_name"),
		StreetNumber: f.Str("street_number"),
	}
	if f.Geometry != nil && f.Geometry.Type == models.GeometryPoint {
		if p, ok := f.Geometry.Centroid(); ok {
			a.Lat, a.Lng = &p.Lat, &p.Lng
			return a
		}
	}
	// esri geometries arrive projected; the register also carries WGS84 attributes.
	a.Lat, a.Lng = f.FloatPtr("latitude"), f.FloatPtr("longitude")
	return a
}
