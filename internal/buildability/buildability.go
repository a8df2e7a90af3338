// Package buildability derives what can be built on a lot from its area,
// the zone's planning parameters and the overlays that affect it.
package buildability

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/jhcramos/urbix-api/internal/logger"
	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/jhcramos/urbix-api/internal/rules"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Calculation errors
var (
	ErrMissingArea = errors.New("no lot area data, cannot calculate buildability")
	ErrUnknownZone = errors.New("no planning rules for zone")
)

// Defaults applied when the zone table leaves a parameter unset.
const (
	DefaultSiteCoverPct  = 50.0
	DefaultFrontSetbackM = 6.0
	DefaultSideSetbackM  = 1.5
	DefaultRearSetbackM  = 6.0
	DefaultStoreys       = 1
)

// Disclaimer is attached to every calculation.
const Disclaimer = "Indicative only based on Sunshine Coast Planning Scheme 2014. " +
	"Zone data sourced from SCC ArcGIS services. " +
	"Always verify with Sunshine Coast Council before making decisions."

var printer = message.NewPrinter(language.English)

// Calculator computes buildability. It holds no per-request state.
type Calculator struct {
	scoring *rules.Scoring
	log     *logger.Logger
}

// NewCalculator builds a calculator. scoring supplies the overlay note
// templates.
func NewCalculator(scoring *rules.Scoring, log *logger.Logger) *Calculator {
	return &Calculator{scoring: scoring, log: log.WithComponent("buildability")}
}

// Calculate derives the buildable envelope, subdivision potential, uses,
// overlay notes and lot compliance. heightOverride, when set, replaces the
// zone's default maximum height. It fails with ErrMissingArea when the
// parcel area is unknown.
func (c *Calculator) Calculate(parcel models.Parcel, zone models.Zone, zr models.ZoneRules, overlays []models.OverlayGroup, heightOverride *float64) (*models.Buildability, error) {
	area, ok := parcel.Area()
	if !ok {
		return nil, ErrMissingArea
	}

	cover := orDefault(zr.MaxSiteCoverPct, DefaultSiteCoverPct)
	front := orDefault(zr.FrontSetbackM, DefaultFrontSetbackM)
	side := orDefault(zr.SideSetbackM, DefaultSideSetbackM)
	rear := orDefault(zr.RearSetbackM, DefaultRearSetbackM)
	minLot := positive(zr.MinLotSizeSqm)
	minFrontage := positive(zr.MinFrontageM)

	maxHeight := positive(zr.MaxHeightM)
	if heightOverride != nil && *heightOverride > 0 {
		maxHeight = heightOverride
	}

	// The lot is modelled as a square; boundary geometry is not used.
	siteCoverFootprint := area * cover / 100
	sideLength := math.Sqrt(area)
	width := math.Max(0, sideLength-2*side)
	depth := math.Max(0, sideLength-front-rear)
	afterSetbacks := width * depth
	footprint := math.Min(siteCoverFootprint, afterSetbacks)

	storeys := DefaultStoreys
	if zr.MaxStoreys != nil && *zr.MaxStoreys > 0 {
		storeys = *zr.MaxStoreys
	}

	dwellings, parsed := ParseDensity(zr.MaxDwellingDensity, area)
	if !parsed {
		c.log.Warn("Unrecognised dwelling density rule, assuming one dwelling", map[string]interface{}{
			"zone":    zr.ZoneCode,
			"density": zr.MaxDwellingDensity,
		})
	}

	b := &models.Buildability{
		Zone: models.BuildabilityZone{
			Code:       firstNonEmpty(zone.Code, zr.ZoneCode),
			Category:   firstNonEmpty(zone.Category, zr.ZoneCategory),
			RuleSource: zr.Source,
		},
		Rules: models.AppliedRules{
			MaxHeightM:      maxHeight,
			MaxStoreys:      zr.MaxStoreys,
			MinLotSizeSqm:   minLot,
			MaxSiteCoverPct: cover,
			FrontSetbackM:   front,
			SideSetbackM:    side,
			RearSetbackM:    rear,
			MinFrontageM:    minFrontage,
		},
		Envelope: models.BuildableEnvelope{
			MaxFootprintSqm:               round1(footprint),
			SiteCoverFootprintSqm:         round1(siteCoverFootprint),
			MaxGFASqm:                     round1(footprint * float64(storeys)),
			MaxDwellings:                  dwellings,
			BuildableWidthM:               round1(width),
			BuildableDepthM:               round1(depth),
			BuildableAreaAfterSetbacksSqm: round1(afterSetbacks),
		},
		Subdivision: subdivision(area, minLot),
		Uses: models.UseEntitlements{
			Accepted:   nonNil(zr.AcceptedUses),
			Assessable: nonNil(zr.AssessableUses),
		},
		Constraints:   c.notes(overlays),
		LotCompliance: compliance(area, minLot, minFrontage),
		Disclaimer:    Disclaimer,
	}
	return b, nil
}

// ParseDensity reads a dwelling density rule. "N per M sqm" allows
// N dwellings for every whole M m², never fewer than one. Per-lot and empty
// rules allow one, and "Caretaker only" or "None" allow none.
//
// ok is false when the rule could not be understood. The count is then one.
func ParseDensity(rule string, area float64) (dwellings int, ok bool) {
	rule = strings.TrimSpace(rule)
	lower := strings.ToLower(rule)

	switch {
	case rule == "":
		return 1, true
	case strings.Contains(rule, "per") && !strings.Contains(lower, "lot"):
		before, after, _ := strings.Cut(rule, "per")
		units, err := strconv.Atoi(strings.TrimSpace(before))
		if err != nil {
			return 1, false
		}
		perSqm, err := strconv.Atoi(strings.Map(keepDigits, after))
		if err != nil || perSqm <= 0 {
			return 1, false
		}
		n := int(area/float64(perSqm)) * units
		if n < 1 {
			n = 1
		}
		return n, true
	case strings.Contains(lower, "lot"):
		return 1, true
	case rule == "Caretaker only" || rule == "None":
		return 0, true
	}
	return 1, false
}

func keepDigits(r rune) rune {
	if unicode.IsDigit(r) {
		return r
	}
	return -1
}

func subdivision(area float64, minLot *float64) models.SubdivisionPotential {
	s := models.SubdivisionPotential{MinLotSizeSqm: minLot}
	if minLot == nil {
		return s
	}
	s.CanSubdivide = area >= 2*(*minLot)
	s.MaxNewLots = int(area / *minLot)
	return s
}

func compliance(area float64, minLot, minFrontage *float64) models.LotCompliance {
	lc := models.LotCompliance{Compliant: true, Issues: []string{}}
	if minLot != nil && area < *minLot {
		lc.Compliant = false
		lc.Issues = append(lc.Issues, printer.Sprintf("Lot is %.0fm² but zone requires min %.0fm²", area, *minLot))
	}
	if minFrontage != nil {
		lc.Issues = append(lc.Issues, fmt.Sprintf("Check frontage ≥ %sm (unable to verify without survey)", decimal(*minFrontage)))
	}
	return lc
}

// notes turns every overlay layer into a display note. The height category
// is skipped because it is already applied as the height limit.
func (c *Calculator) notes(overlays []models.OverlayGroup) []models.ConstraintNote {
	out := []models.ConstraintNote{}
	for _, g := range overlays {
		for _, l := range g.Layers {
			label := firstNonEmpty(l.Label, l.Name)
			kind, text, ok := c.scoring.Note(g.Category, label)
			if !ok {
				continue
			}
			out = append(out, models.ConstraintNote{Type: kind, Text: text})
		}
	}
	return out
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// positive drops unset and zero parameters.
func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	out := *v
	return &out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// decimal renders whole numbers with one decimal place, e.g. 12 -> "12.0".
func decimal(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
