package providers

import (
	"context"
	"strings"

	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/models"
)

const (
	covenantLayer = 0
	easementLayer = 1

	koalaPriorityLayer = 1
	koalaHabitatLayer  = 2
	koalaCoreLayer     = 3

	esaCategoryALayer = 0
	esaCategoryBLayer = 1

	registeredInterestBuffer = 0.0001
	environmentalRadiusM     = 200
)

var registeredInterestFields = []string{"LOTPLAN", "GAZETTEDAREA", "NAME", "PURPOSE1", "INFAVOUR1", "STATUS"}

// Significance levels for environmental mapping.
const (
	SignificanceHigh   = "high"
	SignificanceMedium = "medium"
	SignificanceNone   = "none"
)

// Constraints reads registered interests on the parcel and nearby
// environmental mapping.
type Constraints struct {
	q  arcgis.Querier
	ep Endpoints
}

// NewConstraints builds the site constraints adapter.
func NewConstraints(q arcgis.Querier, ep Endpoints) *Constraints {
	return &Constraints{q: q, ep: ep}
}

// Constraints returns easements and covenants intersecting the parcel plus
// koala and sensitive-area mapping within 200m of p. Failed layers read as
// empty; the call fails only when every layer query failed.
func (c *Constraints) Constraints(ctx context.Context, p models.Point, g *models.Geometry) (models.SiteConstraints, error) {
	interests := arcgis.Query{Point: &p, DistanceM: 50, OutFields: registeredInterestFields, ReturnGeometry: true, Limit: 50}
	if env := envelopeFor(g, registeredInterestBuffer); env != nil {
		interests = arcgis.Query{Envelope: env, OutFields: registeredInterestFields, ReturnGeometry: true, Limit: 50}
	}
	nearby := arcgis.Query{Point: &p, DistanceM: environmentalRadiusM, Limit: 20}

	res := queryLayers(ctx, c.q, []layerCall{
		{c.ep.ParcelInfo, easementLayer, interests},
		{c.ep.ParcelInfo, covenantLayer, interests},
		{c.ep.Koala, koalaPriorityLayer, nearby},
		{c.ep.Koala, koalaHabitatLayer, nearby},
		{c.ep.Koala, koalaCoreLayer, nearby},
		{c.ep.SensitiveAreas, esaCategoryALayer, nearby},
		{c.ep.SensitiveAreas, esaCategoryBLayer, nearby},
	})
	if err := res.allFailed("constraint"); err != nil {
		return models.SiteConstraints{}, err
	}
	f := res.features
	easements, covenants := f[0], f[1]
	koalaPriority, koalaHabitat, koalaCore := f[2], f[3], f[4]
	esaA, esaB := f[5], f[6]

	sc := models.SiteConstraints{
		Easements: toEasements(easements),
		Covenants: toCovenants(covenants),
		Koala:     koalaHabitatFrom(len(koalaPriority), len(koalaHabitat), len(koalaCore)),
		ESA:       sensitiveAreaFrom(len(esaA), len(esaB)),
	}
	sc.HasConstraints = len(sc.Easements) > 0 || len(sc.Covenants) > 0 || sc.Koala.Status != "" || sc.ESA.Status != ""
	sc.Summary = constraintsSummary(sc)
	return sc, nil
}

func toEasements(features []arcgis.Feature) []models.Easement {
	out := []models.Easement{}
	for _, f := range features {
		e := models.Easement{
			LotPlan:  trimmed(f, "LOTPLAN"),
			Area:     trimmed(f, "GAZETTEDAREA"),
			Name:     trimmed(f, "NAME"),
			Purpose:  trimmed(f, "PURPOSE1"),
			InFavour: trimmed(f, "INFAVOUR1"),
			Status:   trimmed(f, "STATUS"),
		}
		if e.Name == "" && e.Purpose == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func toCovenants(features []arcgis.Feature) []models.Covenant {
	out := []models.Covenant{}
	for _, f := range features {
		c := models.Covenant{
			LotPlan:  trimmed(f, "LOTPLAN"),
			Name:     trimmed(f, "NAME"),
			Purpose:  trimmed(f, "PURPOSE1"),
			InFavour: trimmed(f, "INFAVOUR1"),
			Status:   trimmed(f, "STATUS"),
		}
		if c.Name == "" && c.Purpose == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func koalaHabitatFrom(priority, habitat, core int) models.KoalaHabitat {
	k := models.KoalaHabitat{
		HasPriority:      priority > 0,
		HasHabitat:       habitat > 0,
		HasCoreHabitat:   core > 0,
		PriorityCount:    priority,
		HabitatCount:     habitat,
		CoreHabitatCount: core,
		Significance:     SignificanceNone,
	}
	switch {
	case k.HasCoreHabitat:
		k.Status, k.Significance = "Core Koala Habitat", SignificanceHigh
	case k.HasHabitat:
		k.Status, k.Significance = "Koala Habitat Area", SignificanceMedium
	case k.HasPriority:
		k.Status, k.Significance = "Koala Priority Area", SignificanceMedium
	}
	return k
}

func sensitiveAreaFrom(catA, catB int) models.SensitiveArea {
	s := models.SensitiveArea{
		HasCategoryA:   catA > 0,
		HasCategoryB:   catB > 0,
		CategoryACount: catA,
		CategoryBCount: catB,
		Significance:   SignificanceNone,
	}
	switch {
	case s.HasCategoryA:
		s.Category, s.Significance = "Category A", SignificanceHigh
	case s.HasCategoryB:
		s.Category, s.Significance = "Category B", SignificanceMedium
	default:
		return s
	}
	s.Status = "Environmentally Sensitive Area (" + s.Category + ")"
	return s
}

func constraintsSummary(sc models.SiteConstraints) string {
	var items []string
	if n := len(sc.Easements); n > 0 {
		items = append(items, plural(n, "easement"))
	}
	if n := len(sc.Covenants); n > 0 {
		items = append(items, plural(n, "covenant"))
	}
	if sc.Koala.Status != "" {
		items = append(items, sc.Koala.Status)
	}
	if sc.ESA.Status != "" {
		items = append(items, sc.ESA.Status)
	}
	if len(items) == 0 {
		return "No major site constraints identified"
	}
	return strings.Join(items, ", ")
}
