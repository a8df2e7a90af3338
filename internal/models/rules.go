package models

// ZoneRules are the built-form parameters of one planning zone. Nil numeric
// fields mean the scheme sets no value for that parameter.
type ZoneRules struct {
	ZoneCode           string   `yaml:"code" json:"zone_code"`
	ZoneCategory       string   `yaml:"zone_category" json:"zone_category"`
	MaxHeightM         *float64 `yaml:"max_height_m" json:"max_height_m"`
	MaxStoreys         *int     `yaml:"max_storeys" json:"max_storeys"`
	MaxSiteCoverPct    *float64 `yaml:"max_site_cover_pct" json:"max_site_cover_pct"`
	FrontSetbackM      *float64 `yaml:"front_setback_m" json:"front_setback_m"`
	SideSetbackM       *float64 `yaml:"side_setback_m" json:"side_setback_m"`
	RearSetbackM       *float64 `yaml:"rear_setback_m" json:"rear_setback_m"`
	MinLotSizeSqm      *float64 `yaml:"min_lot_size_sqm" json:"min_lot_size_sqm"`
	MinFrontageM       *float64 `yaml:"min_frontage_m" json:"min_frontage_m"`
	MaxDwellingDensity string   `yaml:"max_dwelling_density" json:"max_dwelling_density"`
	AcceptedUses       []string `yaml:"accepted_uses" json:"accepted_uses"`
	AssessableUses     []string `yaml:"assessable_uses" json:"assessable_uses"`
	Link               string   `yaml:"link" json:"link,omitempty"`
	Color              string   `yaml:"color" json:"color,omitempty"`
	Source             string   `yaml:"-" json:"source"`
}

// Rule sources.
const (
	RuleSourceScheme      = "scc_planning_scheme"
	RuleSourceSchemeFuzzy = "scc_planning_scheme_fuzzy"
	RuleSourceDatabase    = "planning_rules"
)
