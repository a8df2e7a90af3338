package arcgis

import (
	"strings"
	"time"

	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/tidwall/gjson"
)

// Feature is one query result: its attribute object and, when requested, its shape.
// Identify results also name their source layer.
type Feature struct {
	Attributes gjson.Result
	Geometry   *models.Geometry
	LayerID    int
	LayerName  string
}

// NewFeature builds a feature from a JSON attribute object.
func NewFeature(attrs string) Feature {
	return Feature{Attributes: gjson.Parse(attrs)}
}

func (f Feature) get(key string) gjson.Result {
	return f.Attributes.Get(gjson.Escape(key))
}

// Str returns the first non-empty attribute among keys as a string.
// Numbers are rendered without trailing zeros.
func (f Feature) Str(keys ...string) string {
	for _, k := range keys {
		if s := f.get(k).String(); s != "" {
			return s
		}
	}
	return ""
}

// Float returns a numeric attribute. Numeric strings are parsed.
func (f Feature) Float(key string) (float64, bool) {
	r := f.get(key)
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		if n := gjson.Parse(strings.TrimSpace(r.Str)); n.Type == gjson.Number {
			return n.Num, true
		}
	}
	return 0, false
}

// FloatPtr is Float as an optional value.
func (f Feature) FloatPtr(key string) *float64 {
	if v, ok := f.Float(key); ok {
		return &v
	}
	return nil
}

// EpochDate formats an epoch-milliseconds attribute as dd/mm/yyyy in loc
// (UTC when loc is nil). Non-numeric values are returned as text.
func (f Feature) EpochDate(key string, loc *time.Location) (string, *time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	r := f.get(key)
	if r.Type == gjson.Number {
		t := time.UnixMilli(r.Int()).In(loc)
		return t.Format("02/01/2006"), &t
	}
	return r.String(), nil
}

// Each calls fn for every non-null attribute in response order.
func (f Feature) Each(fn func(key string, value interface{})) {
	f.Attributes.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.Null {
			fn(k.String(), v.Value())
		}
		return true
	})
}
