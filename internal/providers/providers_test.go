package providers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeArcGIS serves canned query responses keyed by "<service>/<layer>".
// Unregistered layers return an empty feature set.
type fakeArcGIS struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	routes   map[string]fakeRoute
	requests map[string][]url.Values
}

type fakeRoute struct {
	status   int
	features []map[string]interface{}
	raw      string
}

func newFakeArcGIS(t *testing.T) *fakeArcGIS {
	t.Helper()
	f := &fakeArcGIS{
		t:        t,
		routes:   make(map[string]fakeRoute),
		requests: make(map[string][]url.Values),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeArcGIS) serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(strings.TrimSuffix(r.URL.Path, "/query"), "/")

	f.mu.Lock()
	f.requests[key] = append(f.requests[key], r.URL.Query())
	route, ok := f.routes[key]
	f.mu.Unlock()

	if !ok {
		route = fakeRoute{status: http.StatusOK}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(route.status)
	if route.raw != "" {
		_, _ = w.Write([]byte(route.raw))
		return
	}
	features := make([]map[string]interface{}, 0, len(route.features))
	features = append(features, route.features...)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"features": features})
}

// attrs registers esri-style features for a layer.
func (f *fakeArcGIS) attrs(key string, rows ...map[string]interface{}) {
	features := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		features = append(features, map[string]interface{}{"attributes": r})
	}
	f.mu.Lock()
	f.routes[key] = fakeRoute{status: http.StatusOK, features: features}
	f.mu.Unlock()
}

// raw registers a literal response body.
func (f *fakeArcGIS) raw(key string, status int, body string) {
	f.mu.Lock()
	f.routes[key] = fakeRoute{status: status, raw: body}
	f.mu.Unlock()
}

func (f *fakeArcGIS) fail(key string) {
	f.raw(key, http.StatusInternalServerError, "boom")
}

func (f *fakeArcGIS) lastQuery(key string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := f.requests[key]
	if len(reqs) == 0 {
		f.t.Fatalf("no request for %s", key)
	}
	return reqs[len(reqs)-1]
}

func (f *fakeArcGIS) requestCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests[key])
}

func (f *fakeArcGIS) endpoints() Endpoints {
	base := f.srv.URL
	return Endpoints{
		Cadastre:       base + "/cadastre",
		Zoning:         base + "/zoning",
		Overlays:       base + "/overlays",
		Transport:      base + "/transport",
		WaterNetwork:   base + "/water",
		SewerNetwork:   base + "/sewer",
		InlandWaters:   base + "/waterways",
		Stormwater:     base + "/stormwater",
		FloodMapping:   base + "/flood",
		FloodStudies:   base + "/floodstudies",
		Applications:   base + "/applications",
		ParcelInfo:     base + "/parcelinfo",
		Koala:          base + "/koala",
		SensitiveAreas: base + "/esa",
	}
}

func (f *fakeArcGIS) client() *arcgis.Client {
	return arcgis.NewClient(f.srv.Client(), nil, nil)
}

var testPoint = models.Point{Lat: -26.6500, Lng: 153.0900}

func testParcelGeometry() *models.Geometry {
	return models.NewPolygon([][2]float64{
		{153.0890, -26.6510}, {153.0910, -26.6510}, {153.0910, -26.6490}, {153.0890, -26.6490}, {153.0890, -26.6510},
	})
}

// assertEnvelope compares an "xmin,ymin,xmax,ymax" parameter within float tolerance.
func assertEnvelope(t *testing.T, got string, want ...float64) {
	t.Helper()
	parts := strings.Split(got, ",")
	require.Len(t, parts, len(want))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		require.NoError(t, err)
		assert.InDelta(t, want[i], v, 1e-9)
	}
}
