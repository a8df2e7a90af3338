// Package arcgis is a small client for the ArcGIS REST "query" and
// "identify" operations used by every government data source the service
// reads.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jhcramos/urbix-api/internal/cache"
	"github.com/jhcramos/urbix-api/internal/logger"
	"github.com/jhcramos/urbix-api/internal/metrics"
	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/tidwall/gjson"
)

// Spatial reference for all requests.
const wgs84 = "4326"

// Query describes one layer query. Exactly one of Point, Envelope or Where
// selects features; Where may also be combined with a geometry.
type Query struct {
	Point    *models.Point
	Envelope *models.BBox
	// DistanceM buffers a point query, in metres.
	DistanceM float64
	Where     string
	OutFields []string
	// ReturnGeometry requests feature shapes.
	ReturnGeometry bool
	// GeoJSON switches the response format from esri JSON to GeoJSON.
	GeoJSON bool
	Limit   int
}

// Params renders the query string.
func (q Query) Params() url.Values {
	v := url.Values{}
	switch {
	case q.Envelope != nil:
		v.Set("geometry", q.Envelope.String())
		v.Set("geometryType", "esriGeometryEnvelope")
		v.Set("spatialRel", "esriSpatialRelIntersects")
		v.Set("inSR", wgs84)
	case q.Point != nil:
		v.Set("geometry", strconv.FormatFloat(q.Point.Lng, 'f', -1, 64)+","+strconv.FormatFloat(q.Point.Lat, 'f', -1, 64))
		v.Set("geometryType", "esriGeometryPoint")
		v.Set("spatialRel", "esriSpatialRelIntersects")
		v.Set("inSR", wgs84)
		if q.DistanceM > 0 {
			v.Set("distance", strconv.FormatFloat(q.DistanceM, 'f', -1, 64))
			v.Set("units", "esriSRUnit_Meter")
		}
	}

	where := q.Where
	if where == "" {
		where = "1=1"
	}
	v.Set("where", where)

	fields := "*"
	if len(q.OutFields) > 0 {
		fields = strings.Join(q.OutFields, ",")
	}
	v.Set("outFields", fields)
	v.Set("returnGeometry", strconv.FormatBool(q.ReturnGeometry))
	v.Set("outSR", wgs84)

	if q.GeoJSON {
		v.Set("f", "geojson")
	} else {
		v.Set("f", "json")
	}
	if q.Limit > 0 {
		v.Set("resultRecordCount", strconv.Itoa(q.Limit))
	}
	return v
}

// Querier runs layer queries. *Client implements it; tests substitute fakes.
type Querier interface {
	Query(ctx context.Context, layerURL string, q Query) ([]Feature, error)
}

// IdentifyQuery describes an identify call at a point across a map service.
type IdentifyQuery struct {
	Point models.Point
	// TolerancePx is the search radius in screen pixels of the virtual map.
	TolerancePx int
	// ExtentDeg is the half-width of the virtual map around Point, in degrees.
	ExtentDeg float64
}

// Params renders the query string. The virtual map is 400x400 at 96 dpi.
func (q IdentifyQuery) Params() url.Values {
	lng := strconv.FormatFloat(q.Point.Lng, 'f', -1, 64)
	lat := strconv.FormatFloat(q.Point.Lat, 'f', -1, 64)
	ext := q.ExtentDeg
	if ext <= 0 {
		ext = 0.01
	}
	bound := func(v, d float64) string {
		return strconv.FormatFloat(math.Round((v+d)*1e6)/1e6, 'f', -1, 64)
	}

	v := url.Values{}
	v.Set("geometry", `{"x":`+lng+`,"y":`+lat+`,"spatialReference":{"wkid":`+wgs84+`}}`)
	v.Set("geometryType", "esriGeometryPoint")
	v.Set("sr", wgs84)
	v.Set("tolerance", strconv.Itoa(q.TolerancePx))
	v.Set("mapExtent", strings.Join([]string{
		bound(q.Point.Lng, -ext), bound(q.Point.Lat, -ext), bound(q.Point.Lng, ext), bound(q.Point.Lat, ext),
	}, ","))
	v.Set("imageDisplay", "400,400,96")
	v.Set("layers", "all")
	v.Set("returnGeometry", "false")
	v.Set("f", "json")
	return v
}

// Identifier runs identify calls. *Client implements it.
type Identifier interface {
	Identify(ctx context.Context, serviceURL string, q IdentifyQuery) ([]Feature, error)
}

// Layer joins a service URL and a layer id.
func Layer(serviceURL string, id int) string {
	return strings.TrimRight(serviceURL, "/") + "/" + strconv.Itoa(id)
}

// Error is an error body returned by an ArcGIS server with a 200 status.
type Error struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("arcgis error %d: %s (%s)", e.Code, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("arcgis error %d: %s", e.Code, e.Message)
}

// Client queries ArcGIS layers over HTTP, optionally through the redis cache.
type Client struct {
	http  *http.Client
	cache *cache.Cache
	log   *logger.Logger
}

// NewClient builds a client. A nil httpClient gets a default with a 30s timeout;
// per-call deadlines come from the context. c may be nil.
func NewClient(httpClient *http.Client, c *cache.Cache, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{http: httpClient, cache: c, log: log.WithComponent("arcgis")}
}

// Query runs q against layerURL and returns the decoded features.
func (c *Client) Query(ctx context.Context, layerURL string, q Query) ([]Feature, error) {
	return c.get(ctx, layerURL, layerURL+"/query?"+q.Params().Encode(), parseFeatures)
}

// Identify runs q against every visible layer of serviceURL.
func (c *Client) Identify(ctx context.Context, serviceURL string, q IdentifyQuery) ([]Feature, error) {
	serviceURL = strings.TrimRight(serviceURL, "/")
	return c.get(ctx, serviceURL, serviceURL+"/identify?"+q.Params().Encode(), parseIdentify)
}

// get fetches u through the cache. Only bodies that parse are cached.
func (c *Client) get(ctx context.Context, target, u string, parse func([]byte) ([]Feature, error)) ([]Feature, error) {
	host := hostOf(target)
	key := cache.Key("arcgis", u)

	var cached json.RawMessage
	if c.cache.GetJSON(ctx, key, &cached) {
		if features, err := parse(cached); err == nil {
			metrics.ArcGISRequestsTotal.WithLabelValues(host, "cache").Inc()
			return features, nil
		}
	}

	t0 := time.Now()
	body, err := c.fetch(ctx, u)
	var features []Feature
	if err == nil {
		features, err = parse(body)
	}
	metrics.ArcGISDurationMs.WithLabelValues(host).Observe(float64(time.Since(t0).Milliseconds()))
	if err != nil {
		metrics.ArcGISRequestsTotal.WithLabelValues(host, "error").Inc()
		c.log.Debug("ArcGIS request failed", map[string]interface{}{
			"target": target,
			"error":  err.Error(),
		})
		return nil, err
	}
	metrics.ArcGISRequestsTotal.WithLabelValues(host, "ok").Inc()

	c.cache.SetJSON(ctx, key, json.RawMessage(body))
	return features, nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build arcgis request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arcgis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("arcgis request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read arcgis response: %w", err)
	}
	return body, nil
}

// parseFeatures reads an esri JSON or GeoJSON query response. GeoJSON
// features carry "properties", esri features "attributes".
func parseFeatures(body []byte) ([]Feature, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to decode arcgis response: invalid JSON")
	}
	if e := gjson.GetBytes(body, "error"); e.Exists() {
		return nil, parseError(e)
	}

	raw := gjson.GetBytes(body, "features").Array()
	features := make([]Feature, 0, len(raw))
	for _, rf := range raw {
		attrs := rf.Get("properties")
		if !attrs.IsObject() {
			attrs = rf.Get("attributes")
		}
		features = append(features, Feature{Attributes: attrs, Geometry: parseGeometry(rf.Get("geometry"))})
	}
	return features, nil
}

// parseIdentify reads an identify response. Each result carries the layer
// it came from.
func parseIdentify(body []byte) ([]Feature, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to decode arcgis identify response: invalid JSON")
	}
	if e := gjson.GetBytes(body, "error"); e.Exists() {
		return nil, parseError(e)
	}

	raw := gjson.GetBytes(body, "results").Array()
	features := make([]Feature, 0, len(raw))
	for _, r := range raw {
		features = append(features, Feature{
			Attributes: r.Get("attributes"),
			Geometry:   parseGeometry(r.Get("geometry")),
			LayerID:    int(r.Get("layerId").Int()),
			LayerName:  r.Get("layerName").String(),
		})
	}
	return features, nil
}

func parseError(e gjson.Result) *Error {
	out := &Error{Code: int(e.Get("code").Int()), Message: e.Get("message").String()}
	for _, d := range e.Get("details").Array() {
		out.Details = append(out.Details, d.String())
	}
	return out
}

// parseGeometry accepts GeoJSON shapes and esri points; anything else is dropped.
func parseGeometry(g gjson.Result) *models.Geometry {
	if !g.IsObject() {
		return nil
	}
	if g.Get("type").Exists() {
		var geom models.Geometry
		if err := json.Unmarshal([]byte(g.Raw), &geom); err == nil {
			return &geom
		}
		return nil
	}
	x, y := g.Get("x"), g.Get("y")
	if x.Type == gjson.Number && y.Type == gjson.Number {
		return &models.Geometry{Type: models.GeometryPoint, Point: &[2]float64{x.Num, y.Num}}
	}
	return nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
