package models

import (
	"strings"
	"time"
)

// Zone is the base planning zone at a point.
type Zone struct {
	Code        string `json:"code"`
	Category    string `json:"category"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// HeightRestriction is the site-specific building height overlay.
type HeightRestriction struct {
	HeightM *float64 `json:"height_m"`
	Label   string   `json:"label"`
	Comment string   `json:"comment"`
}

// OverlayLayer is one intersecting feature of an overlay layer.
type OverlayLayer struct {
	LayerID    int                    `json:"layer_id"`
	Name       string                 `json:"name"`
	Label      string                 `json:"label"`
	HeightM    *float64               `json:"height_m,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// OverlayGroup holds the layers of one overlay category, in catalog order.
type OverlayGroup struct {
	Category string         `json:"category"`
	Layers   []OverlayLayer `json:"layers"`
}

// WaterService summarises reticulated water near the site.
type WaterService struct {
	Available         bool   `json:"available"`
	MainsCount        int    `json:"mains_count"`
	NearestDiameterMM *int   `json:"nearest_diameter_mm"`
	NearestMaterial   string `json:"nearest_material,omitempty"`
	HydrantsNearby    int    `json:"hydrants_nearby"`
	Detail            string `json:"detail"`
}

// SewerService summarises reticulated sewer near the site.
type SewerService struct {
	Available         bool   `json:"available"`
	MainsCount        int    `json:"mains_count"`
	GravityCount      int    `json:"gravity_count"`
	PressureCount     int    `json:"pressure_count"`
	NearestDiameterMM *int   `json:"nearest_diameter_mm"`
	NearestType       string `json:"nearest_type,omitempty"`
	Detail            string `json:"detail"`
}

// StormwaterService summarises the council stormwater network and natural drainage.
type StormwaterService struct {
	Available         bool   `json:"available"`
	NearbyWaterways   int    `json:"nearby_waterways"`
	DrainageInfo      string `json:"drainage_info,omitempty"`
	PipeCount         int    `json:"pipe_count"`
	PitCount          int    `json:"pit_count"`
	CulvertCount      int    `json:"culvert_count"`
	LargestDiameterMM *int   `json:"largest_diameter_mm"`
	Detail            string `json:"detail"`
}

// Infrastructure is the service availability around the representative point.
type Infrastructure struct {
	Water      WaterService      `json:"water"`
	Sewer      SewerService      `json:"sewer"`
	Stormwater StormwaterService `json:"stormwater"`
}

// FloodRecord is the council's flood mapping for a lot.
type FloodRecord struct {
	Scenario      string `json:"scenario,omitempty"`
	MaxFloodLevel string `json:"max_flood_level,omitempty"`
	MinFloorLevel string `json:"min_floor_level,omitempty"`
	Freeboard     string `json:"freeboard,omitempty"`
	Velocity      string `json:"velocity,omitempty"`
	Source        string `json:"source,omitempty"`
	Notes         string `json:"notes,omitempty"`
	ComplexNote   string `json:"complex_note,omitempty"`
	Address       string `json:"address,omitempty"`
	LotPlan       string `json:"lotplan,omitempty"`
}

// FloodStudy is a state flood study covering the area.
type FloodStudy struct {
	Name      string `json:"name"`
	Authority string `json:"authority,omitempty"`
	Date      string `json:"date,omitempty"`
	Status    string `json:"status,omitempty"`
	Type      string `json:"type,omitempty"`
}

// FloodInfo combines direct council mapping with nearby studies.
type FloodInfo struct {
	HasFloodData    bool         `json:"has_flood_data"`
	Data            *FloodRecord `json:"flood_data"`
	Studies         []FloodStudy `json:"flood_studies"`
	HasFloodStudies bool         `json:"has_flood_studies"`
	Summary         string       `json:"summary"`
	LotPlanSearched string       `json:"lotplan_searched,omitempty"`
}

// Application is a development or building application record.
type Application struct {
	CaseID                 string     `json:"ram_id"`
	Description            string     `json:"description"`
	Category               string     `json:"category"`
	Decision               string     `json:"decision"`
	Progress               string     `json:"progress"`
	AssessmentLevel        string     `json:"assessment_level"`
	DateReceived           string     `json:"date_received,omitempty"`
	DateDecided            string     `json:"date_decided,omitempty"`
	LandParcelRelationship string     `json:"land_parcel_relationship"`
	ReceivedAt             *time.Time `json:"-"`
	DecidedAt              *time.Time `json:"-"`
}

// InProgress reports whether the application is still under assessment: it
// has been lodged but not decided, or its progress or decision is open.
func (a Application) InProgress() bool {
	if a.DateDecided == "" && a.DateReceived != "" {
		return true
	}
	progress := strings.ToLower(a.Progress)
	if strings.Contains(progress, "progress") || strings.Contains(progress, "current") || strings.Contains(progress, "pending") {
		return true
	}
	decision := strings.ToLower(a.Decision)
	return decision == "" || strings.Contains(decision, "pending") || strings.Contains(decision, "current")
}

// ApplicationHistory splits applications into on-parcel and nearby sets.
type ApplicationHistory struct {
	OnParcel           []Application `json:"on_parcel"`
	Nearby             []Application `json:"nearby"`
	OnParcelCount      int           `json:"on_parcel_count"`
	NearbyCount        int           `json:"nearby_count"`
	TotalCount         int           `json:"total_count"`
	OnParcelInProgress int           `json:"on_parcel_in_progress"`
	NearbyInProgress   int           `json:"nearby_in_progress"`
	TotalInProgress    int           `json:"total_in_progress"`
	PortalLink         string        `json:"portal_link,omitempty"`
	Summary            string        `json:"summary"`
}

// Easement is a registered easement intersecting the parcel.
type Easement struct {
	LotPlan  string `json:"lotplan"`
	Area     string `json:"area"`
	Name     string `json:"name"`
	Purpose  string `json:"purpose"`
	InFavour string `json:"in_favour"`
	Status   string `json:"status"`
}

// Covenant is a registered covenant intersecting the parcel.
type Covenant struct {
	LotPlan  string `json:"lotplan"`
	Name     string `json:"name"`
	Purpose  string `json:"purpose"`
	InFavour string `json:"in_favour"`
	Status   string `json:"status"`
}

// KoalaHabitat is the most significant koala mapping near the site.
type KoalaHabitat struct {
	HasPriority      bool   `json:"has_priority"`
	HasHabitat       bool   `json:"has_habitat"`
	HasCoreHabitat   bool   `json:"has_core_habitat"`
	PriorityCount    int    `json:"priority_count"`
	HabitatCount     int    `json:"habitat_count"`
	CoreHabitatCount int    `json:"core_habitat_count"`
	Status           string `json:"status,omitempty"`
	Significance     string `json:"significance"`
}

// SensitiveArea is the environmentally sensitive area classification near the site.
type SensitiveArea struct {
	HasCategoryA   bool   `json:"has_category_a"`
	HasCategoryB   bool   `json:"has_category_b"`
	CategoryACount int    `json:"category_a_count"`
	CategoryBCount int    `json:"category_b_count"`
	Category       string `json:"category,omitempty"`
	Status         string `json:"status,omitempty"`
	Significance   string `json:"significance"`
}

// SiteConstraints are registered interests and environmental flags on the site.
type SiteConstraints struct {
	Easements      []Easement    `json:"easements"`
	Covenants      []Covenant    `json:"covenants"`
	Koala          KoalaHabitat  `json:"koala"`
	ESA            SensitiveArea `json:"esa"`
	HasConstraints bool          `json:"has_constraints"`
	Summary        string        `json:"summary"`
}

// TransportFeature is one road or transport network classification
// identified around the site.
type TransportFeature struct {
	Heading     string `json:"heading"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Provider categories fanned out per site. Zoning covers the base zone and
// the site height limit.
const (
	CategoryZoning         = "zoning"
	CategoryOverlays       = "overlays"
	CategoryInfrastructure = "infrastructure"
	CategoryApplications   = "applications"
	CategoryFlood          = "flood"
	CategoryConstraints    = "constraints"
	CategoryTransport      = "transport"
)

// SiteSnapshot is every provider result for one resolved parcel. Each
// category is independent; a failed category holds its zero value and is
// listed in Degraded.
type SiteSnapshot struct {
	Zone           *Zone              `json:"zone"`
	Height         *HeightRestriction `json:"height"`
	Overlays       []OverlayGroup     `json:"overlays"`
	Infrastructure Infrastructure     `json:"infrastructure"`
	Flood          FloodInfo          `json:"flood_info"`
	Applications   ApplicationHistory `json:"da_history"`
	Constraints    SiteConstraints    `json:"constraints"`
	Transport      []TransportFeature `json:"transport"`
	Degraded       []string           `json:"degraded,omitempty"`
}

// IsDegraded reports whether a category failed and holds its default value.
func (s SiteSnapshot) IsDegraded(category string) bool {
	for _, c := range s.Degraded {
		if c == category {
			return true
		}
	}
	return false
}

// HeightOverride returns the overlay height limit, if the height provider found one.
func (s SiteSnapshot) HeightOverride() *float64 {
	if s.Height == nil || s.Height.HeightM == nil || *s.Height.HeightM <= 0 {
		return nil
	}
	return s.Height.HeightM
}

// OverlayLayerCount counts layers across all groups, optionally skipping one category.
func (s SiteSnapshot) OverlayLayerCount(exclude string) int {
	n := 0
	for _, g := range s.Overlays {
		if exclude != "" && strings.EqualFold(g.Category, exclude) {
			continue
		}
		n += len(g.Layers)
	}
	return n
}
