// Package report composes the final SiteReport from a resolved parcel, its
// snapshot and the derived buildability, score and precedent.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/jhcramos/urbix-api/internal/rules"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// DefaultZoneColor is used for zones without a map colour.
	DefaultZoneColor = "#999"
	// UnknownZone stands in for the zone code when zoning is unavailable.
	UnknownZone = "Unknown Zone"

	pdOnlineURL = "https://pdonline.sunshinecoast.qld.gov.au/"
	qldGlobeURL = "https://qldglobe.information.qld.gov.au/?ll="

	narrativeTop = 3
)

var printer = message.NewPrinter(language.English)

// MapRenderer builds export-image URLs for a site.
type MapRenderer interface {
	URLs(p models.Point, g *models.Geometry, groups []models.OverlayGroup) models.MapURLs
}

// Input is everything the composer needs for one site.
type Input struct {
	Resolved     models.ResolvedParcel
	Point        models.Point
	Snapshot     models.SiteSnapshot
	Buildability *models.Buildability
	// BuildabilityErr is set when the calculator could not run.
	BuildabilityErr error
	Score           models.ConstraintsScore
	Precedent       models.PrecedentAnalysis
}

// Composer merges derived structures into a report. It is stateless.
type Composer struct {
	zones   *rules.ZoneBook
	scoring *rules.Scoring
	maps    MapRenderer
}

// NewComposer builds a composer. zones supplies zone links and colours and
// scoring supplies the overlay risk texts.
func NewComposer(zones *rules.ZoneBook, scoring *rules.Scoring, maps MapRenderer) *Composer {
	return &Composer{zones: zones, scoring: scoring, maps: maps}
}

// Compose builds the report. Sections that could not be derived are marked
// unavailable rather than failing the whole report.
func (c *Composer) Compose(in Input) models.SiteReport {
	r := models.SiteReport{
		SiteInfo:     c.siteInfo(in),
		Snapshot:     in.Snapshot,
		Buildability: in.Buildability,
		Geometry:     in.Resolved.Geometry,
	}
	if in.Buildability == nil {
		reason := "buildability not calculated"
		if in.BuildabilityErr != nil {
			reason = in.BuildabilityErr.Error()
		}
		r.BuildabilityUnavailable = &models.Unavailable{Reason: reason}
	}
	if c.maps != nil {
		r.Maps = c.maps.URLs(in.Point, in.Resolved.Geometry, in.Snapshot.Overlays)
	}
	r.Analysis = c.analysis(in, r.SiteInfo)
	return r
}

func (c *Composer) siteInfo(in Input) models.SiteInfo {
	p := in.Resolved.Parcel
	info := models.SiteInfo{
		LotPlan:      p.LotPlan(),
		LotPlanKey:   p.LotPlanKey,
		AreaSqm:      p.AreaSqm,
		Tenure:       p.Tenure,
		Locality:     p.Locality,
		ShireName:    p.ShireName,
		ParcelType:   p.ParcelType,
		CoverType:    p.CoverType,
		Centroid:     in.Point,
		ParcelSource: in.Resolved.Source,
	}
	if a := in.Resolved.Address; a != nil {
		info.Address = a.Address
	}
	return info
}

func (c *Composer) analysis(in Input, info models.SiteInfo) models.SiteAnalysis {
	zoneCode := c.zoneCode(in)
	strengths := Strengths(in.Snapshot, in.Buildability, in.Precedent)
	risks := c.Risks(in.Snapshot, in.Buildability, in.Precedent)

	return models.SiteAnalysis{
		ConstraintsScore:     in.Score,
		Summary:              c.narrative(in, info, zoneCode, strengths, risks),
		Strengths:            strengths,
		Risks:                risks,
		DevelopmentPotential: c.developmentPotential(in, zoneCode),
		Precedent:            in.Precedent,
		QuickFacts:           c.quickFacts(in, zoneCode),
		ExternalLinks: models.ExternalLinks{
			PlanningScheme: c.zones.Link(zoneCode),
			PDOnline:       pdOnlineURL,
			QLDGlobe:       qldGlobeURL + coord(in.Point.Lat) + "," + coord(in.Point.Lng),
			DAPortal:       in.Snapshot.Applications.PortalLink,
		},
	}
}

func (c *Composer) zoneCode(in Input) string {
	if z := in.Snapshot.Zone; z != nil && z.Code != "" {
		return z.Code
	}
	if b := in.Buildability; b != nil && b.Zone.Code != "" {
		return b.Zone.Code
	}
	return UnknownZone
}

func (c *Composer) zoneColor(code string) string {
	if color := c.zones.Color(code); color != "" {
		return color
	}
	return DefaultZoneColor
}

// narrative joins template sentences. The opening sentence is always
// present; the rest depend on what was derived.
func (c *Composer) narrative(in Input, info models.SiteInfo, zoneCode string, strengths, risks []string) string {
	var parts []string

	area := "unknown-size"
	if a, ok := in.Resolved.Parcel.Area(); ok {
		area = printer.Sprintf("%d", int(a))
	}
	onRecord := in.Snapshot.Applications.OnParcelCount
	where := "at " + info.Address
	if info.Address == "" {
		where = "(" + info.LotPlan + ")"
	}
	parts = append(parts, fmt.Sprintf("This %sm² %s lot %s has %d development %s on record.",
		area, zoneCode, where, onRecord, plural(onRecord, "application")))

	if len(strengths) > 0 {
		parts = append(parts, "Key strengths: "+strings.Join(top(strengths), "; ")+".")
	}
	if len(risks) > 0 {
		parts = append(parts, "Key risks: "+strings.Join(top(risks), "; ")+".")
	}

	if b := in.Buildability; b != nil {
		var potential []string
		if h := b.Rules.MaxHeightM; h != nil {
			potential = append(potential, "maximum building height is "+number(*h)+"m")
		}
		if b.Rules.MaxSiteCoverPct > 0 {
			potential = append(potential, number(b.Rules.MaxSiteCoverPct)+"% site cover")
		}
		if s := b.Rules.MaxStoreys; s != nil && *s > 0 {
			potential = append(potential, fmt.Sprintf("up to %d storeys", *s))
		}
		if len(potential) > 0 {
			parts = append(parts, fmt.Sprintf("Development potential: Based on %s zoning, %s.", zoneCode, strings.Join(potential, ", ")))
		}
	}

	if p := in.Precedent; p.TotalCount > 0 {
		parts = append(parts, fmt.Sprintf("Precedent: %d %s and %d %s in the surrounding area — %s.",
			p.ApprovedCount, plural(p.ApprovedCount, "approval"),
			p.RefusedCount, plural(p.RefusedCount, "refusal"),
			strings.ToLower(p.Assessment)))
	}

	return strings.Join(parts, " ")
}

func (c *Composer) developmentPotential(in Input, zoneCode string) models.DevelopmentPotential {
	dp := models.DevelopmentPotential{
		ZoneCode:       zoneCode,
		ZoneLink:       c.zones.Link(zoneCode),
		ZoneColor:      c.zoneColor(zoneCode),
		AcceptedUses:   []string{},
		AssessableUses: []string{},
	}
	if z := in.Snapshot.Zone; z != nil {
		dp.ZoneCategory = z.Category
	}

	b := in.Buildability
	if b == nil {
		return dp
	}
	if dp.ZoneCategory == "" {
		dp.ZoneCategory = b.Zone.Category
	}
	cover := b.Rules.MaxSiteCoverPct
	dp.MaxHeightM = b.Rules.MaxHeightM
	dp.MaxStoreys = b.Rules.MaxStoreys
	dp.MaxSiteCoverPct = &cover
	if gfa := b.Envelope.MaxGFASqm; gfa > 0 {
		dp.MaxGFASqm = &gfa
	}
	dwellings := b.Envelope.MaxDwellings
	dp.MaxDwellings = &dwellings
	dp.CanSubdivide = b.Subdivision.CanSubdivide
	dp.MaxNewLots = b.Subdivision.MaxNewLots
	if b.Uses.Accepted != nil {
		dp.AcceptedUses = b.Uses.Accepted
	}
	if b.Uses.Assessable != nil {
		dp.AssessableUses = b.Uses.Assessable
	}
	return dp
}

func (c *Composer) quickFacts(in Input, zoneCode string) models.QuickFacts {
	snap := in.Snapshot
	flood := "No"
	if snap.Flood.HasFloodData {
		flood = "Yes"
	}
	return models.QuickFacts{
		AreaSqm:          in.Resolved.Parcel.AreaSqm,
		Zone:             zoneCode,
		ZoneColor:        c.zoneColor(zoneCode),
		FloodRisk:        flood,
		DACount:          snap.Applications.OnParcelCount,
		NearbyDACount:    snap.Applications.NearbyCount,
		ConstraintsScore: in.Score.Score,
		Easements:        len(snap.Constraints.Easements),
		OverlayCount:     snap.OverlayLayerCount(""),
	}
}

func top(items []string) []string {
	if len(items) > narrativeTop {
		return items[:narrativeTop]
	}
	return items
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// number renders a measure with at least one decimal: 12.0, 8.5, 33.33.
func number(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
