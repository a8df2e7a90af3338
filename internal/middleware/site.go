package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	siteKey = "site"

	// DegradedHeader lists the provider categories that failed for the
	// site, comma separated. It is absent when every category answered.
	DegradedHeader = "X-Degraded-Categories"
)

// Site is what a handler learned about the parcel it served.
type Site struct {
	LotPlan  string
	Source   string
	Degraded []string
}

func (s Site) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if s.LotPlan != "" {
		fields["lotplan"] = s.LotPlan
	}
	if s.Source != "" {
		fields["parcel_source"] = s.Source
	}
	if len(s.Degraded) > 0 {
		fields["degraded"] = strings.Join(s.Degraded, ",")
	}
	return fields
}

// SetSite attaches the served site to the request. Call it before writing
// the body so DegradedHeader reaches the client.
func SetSite(c *gin.Context, s Site) {
	c.Set(siteKey, s)
	if len(s.Degraded) > 0 {
		c.Header(DegradedHeader, strings.Join(s.Degraded, ","))
	}
}

// GetSite returns the site recorded by SetSite.
func GetSite(c *gin.Context) (Site, bool) {
	v, ok := c.Get(siteKey)
	if !ok {
		return Site{}, false
	}
	s, ok := v.(Site)
	return s, ok
}
