package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// SRID is the spatial reference used for every geometry in the service (WGS84).
const SRID = 4326

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// BBox is an axis-aligned envelope in degrees.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// PointBBox returns an envelope of +/- deg around p.
func PointBBox(p Point, deg float64) BBox {
	return BBox{MinLng: p.Lng - deg, MinLat: p.Lat - deg, MaxLng: p.Lng + deg, MaxLat: p.Lat + deg}
}

// Buffer grows the envelope by deg on every side.
func (b BBox) Buffer(deg float64) BBox {
	return BBox{
		MinLng: b.MinLng - deg,
		MinLat: b.MinLat - deg,
		MaxLng: b.MaxLng + deg,
		MaxLat: b.MaxLat + deg,
	}
}

// Round rounds every edge to the given number of decimal places.
func (b BBox) Round(places int) BBox {
	f := math.Pow(10, float64(places))
	r := func(v float64) float64 { return math.Round(v*f) / f }
	return BBox{MinLng: r(b.MinLng), MinLat: r(b.MinLat), MaxLng: r(b.MaxLng), MaxLat: r(b.MaxLat)}
}

// String renders the envelope as "xmin,ymin,xmax,ymax", the ArcGIS envelope form.
func (b BBox) String() string {
	return strconv.FormatFloat(b.MinLng, 'f', -1, 64) + "," +
		strconv.FormatFloat(b.MinLat, 'f', -1, 64) + "," +
		strconv.FormatFloat(b.MaxLng, 'f', -1, 64) + "," +
		strconv.FormatFloat(b.MaxLat, 'f', -1, 64)
}

// Geometry types understood by the service.
const (
	GeometryPoint        = "Point"
	GeometryPolygon      = "Polygon"
	GeometryMultiPolygon = "MultiPolygon"
)

// Geometry is a parcel shape in GeoJSON form: [lng, lat] pairs in WGS84.
// Only one of Polygon, MultiPolygon or Point is populated, matching Type.
type Geometry struct {
	Type         string
	Polygon      [][][2]float64
	MultiPolygon [][][][2]float64
	Point        *[2]float64
}

// NewPolygon builds a polygon geometry from its rings.
func NewPolygon(rings ...[][2]float64) *Geometry {
	return &Geometry{Type: GeometryPolygon, Polygon: rings}
}

// polygons flattens the geometry into a list of polygons.
func (g *Geometry) polygons() [][][][2]float64 {
	if g == nil {
		return nil
	}
	switch g.Type {
	case GeometryPolygon:
		if len(g.Polygon) == 0 {
			return nil
		}
		return [][][][2]float64{g.Polygon}
	case GeometryMultiPolygon:
		return g.MultiPolygon
	}
	return nil
}

// OuterRing returns the exterior ring of the first polygon.
func (g *Geometry) OuterRing() [][2]float64 {
	polys := g.polygons()
	if len(polys) == 0 || len(polys[0]) == 0 {
		return nil
	}
	return polys[0][0]
}

// IsClosed reports whether every ring ends where it starts.
func (g *Geometry) IsClosed() bool {
	polys := g.polygons()
	if len(polys) == 0 {
		return false
	}
	for _, poly := range polys {
		for _, ring := range poly {
			if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
				return false
			}
		}
	}
	return true
}

// Centroid returns the arithmetic mean of the outer ring's vertices, the
// closing vertex included. This is not an area centroid and is biased
// toward densely digitised edges; see AreaCentroid.
func (g *Geometry) Centroid() (Point, bool) {
	if g != nil && g.Type == GeometryPoint && g.Point != nil {
		return Point{Lng: g.Point[0], Lat: g.Point[1]}, true
	}
	ring := g.OuterRing()
	if len(ring) == 0 {
		return Point{}, false
	}
	var sumLng, sumLat float64
	for _, c := range ring {
		sumLng += c[0]
		sumLat += c[1]
	}
	n := float64(len(ring))
	return Point{Lng: sumLng / n, Lat: sumLat / n}, true
}

// AreaCentroid returns the shoelace centroid of the outer ring. It falls back
// to the vertex mean when the ring has no area.
func (g *Geometry) AreaCentroid() (Point, bool) {
	ring := g.OuterRing()
	if len(ring) < 3 {
		return g.Centroid()
	}
	// Work relative to the first vertex to keep the cross products small.
	ox, oy := ring[0][0], ring[0][1]
	var area2, cx, cy float64
	for i := 0; i < len(ring)-1; i++ {
		x0, y0 := ring[i][0]-ox, ring[i][1]-oy
		x1, y1 := ring[i+1][0]-ox, ring[i+1][1]-oy
		cross := x0*y1 - x1*y0
		area2 += cross
		cx += (x0 + x1) * cross
		cy += (y0 + y1) * cross
	}
	if math.Abs(area2) < 1e-18 {
		return g.Centroid()
	}
	return Point{Lng: ox + cx/(3*area2), Lat: oy + cy/(3*area2)}, true
}

// BBox returns the envelope of every coordinate in the geometry.
func (g *Geometry) BBox() (BBox, bool) {
	if g == nil {
		return BBox{}, false
	}
	if g.Type == GeometryPoint && g.Point != nil {
		p := Point{Lng: g.Point[0], Lat: g.Point[1]}
		return PointBBox(p, 0), true
	}
	b := BBox{MinLng: math.Inf(1), MinLat: math.Inf(1), MaxLng: math.Inf(-1), MaxLat: math.Inf(-1)}
	found := false
	for _, poly := range g.polygons() {
		for _, ring := range poly {
			for _, c := range ring {
				found = true
				b.MinLng = math.Min(b.MinLng, c[0])
				b.MinLat = math.Min(b.MinLat, c[1])
				b.MaxLng = math.Max(b.MaxLng, c[0])
				b.MaxLat = math.Max(b.MaxLat, c[1])
			}
		}
	}
	return b, found
}

// IsPolygonal reports whether the geometry has area.
func (g *Geometry) IsPolygonal() bool {
	return len(g.polygons()) > 0
}

type geoJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// MarshalJSON renders the geometry as GeoJSON.
func (g Geometry) MarshalJSON() ([]byte, error) {
	var coords interface{}
	switch g.Type {
	case GeometryPolygon:
		coords = g.Polygon
	case GeometryMultiPolygon:
		coords = g.MultiPolygon
	case GeometryPoint:
		coords = g.Point
	default:
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Type        string      `json:"type"`
		Coordinates interface{} `json:"coordinates"`
	}{Type: g.Type, Coordinates: coords})
}

// UnmarshalJSON parses a GeoJSON Polygon, MultiPolygon or Point.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw geoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal geometry: %w", err)
	}

	out := Geometry{Type: raw.Type}
	var err error
	switch raw.Type {
	case GeometryPolygon:
		err = json.Unmarshal(raw.Coordinates, &out.Polygon)
	case GeometryMultiPolygon:
		err = json.Unmarshal(raw.Coordinates, &out.MultiPolygon)
	case GeometryPoint:
		var pt [2]float64
		err = json.Unmarshal(raw.Coordinates, &pt)
		out.Point = &pt
	default:
		return fmt.Errorf("unsupported geometry type %q", raw.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s coordinates: %w", raw.Type, err)
	}

	*g = out
	return nil
}

// Scan implements sql.Scanner for ST_AsGeoJSON output.
func (g *Geometry) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return g.UnmarshalJSON(v)
	case string:
		return g.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("failed to scan Geometry: expected []byte or string, got %T", value)
	}
}

// Value implements driver.Valuer, producing GeoJSON for ST_GeomFromGeoJSON.
func (g Geometry) Value() (driver.Value, error) {
	if g.Type == "" {
		return nil, nil
	}
	b, err := g.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geometry to GeoJSON: %w", err)
	}
	return string(b), nil
}
