package models

import "fmt"

// AppliedRules are the parameters the calculator actually used, after
// defaults and the height override were applied.
type AppliedRules struct {
	MaxHeightM      *float64 `json:"max_height_m"`
	MaxStoreys      *int     `json:"max_storeys"`
	MinLotSizeSqm   *float64 `json:"min_lot_size_sqm"`
	MaxSiteCoverPct float64  `json:"max_site_cover_pct"`
	FrontSetbackM   float64  `json:"front_setback_m"`
	SideSetbackM    float64  `json:"side_setback_m"`
	RearSetbackM    float64  `json:"rear_setback_m"`
	MinFrontageM    *float64 `json:"min_frontage_m"`
}

// BuildableEnvelope is the derived building capacity of a lot.
type BuildableEnvelope struct {
	MaxFootprintSqm               float64 `json:"max_footprint_sqm"`
	SiteCoverFootprintSqm         float64 `json:"site_cover_footprint_sqm"`
	MaxGFASqm                     float64 `json:"max_gfa_sqm"`
	MaxDwellings                  int     `json:"max_dwellings"`
	BuildableWidthM               float64 `json:"buildable_width_m"`
	BuildableDepthM               float64 `json:"buildable_depth_m"`
	BuildableAreaAfterSetbacksSqm float64 `json:"buildable_area_after_setbacks_sqm"`
}

// SubdivisionPotential reports whether the lot can be split under the zone minimum.
type SubdivisionPotential struct {
	CanSubdivide  bool     `json:"can_subdivide"`
	MaxNewLots    int      `json:"max_new_lots"`
	MinLotSizeSqm *float64 `json:"min_lot_size_sqm"`
}

// UseEntitlements lists the zone's accepted and assessable uses.
type UseEntitlements struct {
	Accepted   []string `json:"accepted"`
	Assessable []string `json:"assessable"`
}

// ConstraintNote is a display note derived from one overlay layer.
type ConstraintNote struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// LotCompliance flags lots below the zone minimum and frontage advisories.
type LotCompliance struct {
	Compliant bool     `json:"compliant"`
	Issues    []string `json:"issues"`
}

// BuildabilityZone identifies the zone the calculation ran against.
type BuildabilityZone struct {
	Code       string `json:"code"`
	Category   string `json:"category"`
	RuleSource string `json:"rule_source"`
}

// Buildability is the calculator output for one parcel.
type Buildability struct {
	Zone          BuildabilityZone     `json:"zone"`
	Rules         AppliedRules         `json:"rules"`
	Envelope      BuildableEnvelope    `json:"buildable_envelope"`
	Subdivision   SubdivisionPotential `json:"subdivision"`
	Uses          UseEntitlements      `json:"uses"`
	Constraints   []ConstraintNote     `json:"constraints"`
	LotCompliance LotCompliance        `json:"lot_compliance"`
	Disclaimer    string               `json:"disclaimer"`
}

// Unavailable marks a report section that could not be derived.
type Unavailable struct {
	Reason string `json:"reason"`
}

// Deduction is one scored constraint.
type Deduction struct {
	Reason string `json:"reason"`
	Delta  int    `json:"delta"`
}

// String renders the deduction as "Reason (-N)".
func (d Deduction) String() string {
	return fmt.Sprintf("%s (%d)", d.Reason, d.Delta)
}

// ConstraintsScore is a bounded development-difficulty score; 100 is unconstrained.
type ConstraintsScore struct {
	Score      int         `json:"score"`
	Label      string      `json:"score_label"`
	Color      string      `json:"score_color"`
	Deductions []Deduction `json:"score_deductions"`
}

// CategoryCount is an application category with its frequency.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Precedent outlooks.
const (
	OutlookNone     = "none"
	OutlookPositive = "positive"
	OutlookNeutral  = "neutral"
	OutlookNegative = "negative"
)

// PrecedentAnalysis summarises approval history around the site.
type PrecedentAnalysis struct {
	ApprovedCount      int             `json:"approved_count"`
	RefusedCount       int             `json:"refused_count"`
	InProgressCount    int             `json:"in_progress_count"`
	LapsedCount        int             `json:"lapsed_count"`
	TotalCount         int             `json:"total_count"`
	OnParcelCount      int             `json:"on_parcel_count"`
	NearbyCount        int             `json:"nearby_count"`
	TopCategories      []CategoryCount `json:"top_categories"`
	Assessment         string          `json:"assessment"`
	Outlook            string          `json:"outlook"`
	MedianDecisionDays *float64        `json:"median_decision_days"`
	MeanDecisionDays   *float64        `json:"mean_decision_days"`
	DecidedSampleSize  int             `json:"decided_sample_size"`
}

// SiteInfo is the identity block of a report.
type SiteInfo struct {
	Address      string   `json:"address"`
	LotPlan      string   `json:"lot_plan"`
	LotPlanKey   string   `json:"lotplan"`
	AreaSqm      *float64 `json:"area_sqm"`
	Tenure       string   `json:"tenure"`
	Locality     string   `json:"locality"`
	ShireName    string   `json:"shire_name"`
	ParcelType   string   `json:"parcel_type"`
	CoverType    string   `json:"cover_type"`
	Centroid     Point    `json:"centroid"`
	ParcelSource string   `json:"source"`
}

// DevelopmentPotential is the headline planning capacity of the site.
type DevelopmentPotential struct {
	ZoneCode        string   `json:"zone_code"`
	ZoneCategory    string   `json:"zone_category"`
	ZoneLink        string   `json:"zone_link,omitempty"`
	ZoneColor       string   `json:"zone_color"`
	MaxHeightM      *float64 `json:"max_height_m"`
	MaxStoreys      *int     `json:"max_storeys"`
	MaxSiteCoverPct *float64 `json:"max_site_cover_pct"`
	MaxGFASqm       *float64 `json:"max_gfa_sqm"`
	MaxDwellings    *int     `json:"max_dwellings"`
	CanSubdivide    bool     `json:"can_subdivide"`
	MaxNewLots      int      `json:"max_new_lots"`
	AcceptedUses    []string `json:"accepted_uses"`
	AssessableUses  []string `json:"assessable_uses"`
}

// QuickFacts is a flat digest for list views.
type QuickFacts struct {
	AreaSqm          *float64 `json:"area_sqm"`
	Zone             string   `json:"zone"`
	ZoneColor        string   `json:"zone_color"`
	FloodRisk        string   `json:"flood_risk"`
	DACount          int      `json:"da_count"`
	NearbyDACount    int      `json:"nearby_da_count"`
	ConstraintsScore int      `json:"constraints_score"`
	Easements        int      `json:"easements"`
	OverlayCount     int      `json:"overlay_count"`
}

// ExternalLinks point at the authority portals for the site.
type ExternalLinks struct {
	PlanningScheme string `json:"scc_planning_scheme,omitempty"`
	PDOnline       string `json:"scc_pd_online"`
	QLDGlobe       string `json:"qld_globe"`
	DAPortal       string `json:"da_portal,omitempty"`
}

// MapURLs are pre-built export image URLs for the site.
type MapURLs struct {
	BBox           BBox              `json:"bbox"`
	ZoneWMS        string            `json:"zone_wms"`
	OverlayWMSURLs map[string]string `json:"overlay_wms_urls"`
	TransportWMS   string            `json:"transport_wms"`
}

// SiteAnalysis is the scored, narrated view of a site.
type SiteAnalysis struct {
	ConstraintsScore
	Summary              string               `json:"summary"`
	Strengths            []string             `json:"strengths"`
	Risks                []string             `json:"risks"`
	DevelopmentPotential DevelopmentPotential `json:"development_potential"`
	Precedent            PrecedentAnalysis    `json:"precedent_analysis"`
	QuickFacts           QuickFacts           `json:"quick_facts"`
	ExternalLinks        ExternalLinks        `json:"external_links"`
}

// SiteReport is the full answer for one site.
type SiteReport struct {
	SiteInfo                SiteInfo      `json:"site_info"`
	Snapshot                SiteSnapshot  `json:"snapshot"`
	Buildability            *Buildability `json:"buildability"`
	BuildabilityUnavailable *Unavailable  `json:"buildability_unavailable,omitempty"`
	Geometry                *Geometry     `json:"geometry"`
	Maps                    MapURLs       `json:"maps"`
	Analysis                SiteAnalysis  `json:"ai_summary"`
}
