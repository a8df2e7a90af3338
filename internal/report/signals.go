package report

import (
	"fmt"
	"strings"

	"github.com/jhcramos/urbix-api/internal/models"
)

// heightCategory is not counted as a planning overlay; it only sets the
// height limit.
const heightCategory = "height of buildings and structures"

// Strengths lists favourable facts about a site. Degraded categories
// contribute nothing.
func Strengths(snap models.SiteSnapshot, b *models.Buildability, p models.PrecedentAnalysis) []string {
	out := []string{}

	if !snap.IsDegraded(models.CategoryInfrastructure) {
		infra := snap.Infrastructure
		switch {
		case infra.Water.Available && infra.Sewer.Available:
			out = append(out, "Full reticulated water and sewer services available")
		case infra.Water.Available:
			out = append(out, "Reticulated water supply available")
		case infra.Sewer.Available:
			out = append(out, "Reticulated sewer available")
		}
		if infra.Stormwater.Available {
			out = append(out, "Council stormwater network available nearby")
		}
	}

	if !snap.IsDegraded(models.CategoryFlood) && !snap.Flood.HasFloodData {
		out = append(out, "No direct flood mapping on parcel")
	}

	if !snap.IsDegraded(models.CategoryOverlays) && snap.OverlayLayerCount(heightCategory) == 0 {
		out = append(out, "No significant planning overlays")
	}

	if !snap.IsDegraded(models.CategoryConstraints) && !snap.Constraints.HasConstraints {
		out = append(out, "No easements, covenants, or environmental constraints")
	}

	if b != nil {
		if b.Subdivision.CanSubdivide && b.Subdivision.MaxNewLots > 1 {
			out = append(out, fmt.Sprintf("Subdivision potential — up to %d lots", b.Subdivision.MaxNewLots))
		}
		if b.Envelope.MaxDwellings > 1 {
			out = append(out, fmt.Sprintf("Multi-dwelling potential — up to %d units", b.Envelope.MaxDwellings))
		}
	}

	if p.Outlook == models.OutlookPositive {
		out = append(out, fmt.Sprintf("Strong approval precedent — %d approvals in area", p.ApprovedCount))
	}

	if b != nil && b.LotCompliance.Compliant {
		out = append(out, "Lot size compliant with zone requirements")
	}
	return out
}

// Risks lists unfavourable facts about a site. It is not the negation of
// Strengths; each rule stands on its own.
func (c *Composer) Risks(snap models.SiteSnapshot, b *models.Buildability, p models.PrecedentAnalysis) []string {
	out := []string{}

	for _, g := range snap.Overlays {
		if h, ok := c.scoring.Classify(g.Category); ok && h.Risk != "" {
			out = append(out, h.Risk)
		}
	}

	if snap.Flood.HasFloodData {
		if d := snap.Flood.Data; d != nil && d.MinFloorLevel != "" {
			out = append(out, "Flood affected — minimum floor level "+d.MinFloorLevel)
		} else {
			out = append(out, "Flood mapping data on parcel — check requirements")
		}
	}

	sc := snap.Constraints
	if n := len(sc.Easements); n > 0 {
		out = append(out, fmt.Sprintf("%d easement(s) on parcel — may restrict building location", n))
	}
	if n := len(sc.Covenants); n > 0 {
		out = append(out, fmt.Sprintf("%d covenant(s) on parcel — may restrict development", n))
	}
	if sc.Koala.Status != "" {
		out = append(out, "Koala habitat: "+sc.Koala.Status)
	}
	if sc.ESA.Status != "" {
		out = append(out, "Environmental: "+sc.ESA.Status)
	}

	if !snap.IsDegraded(models.CategoryInfrastructure) {
		if !snap.Infrastructure.Water.Available {
			out = append(out, "No reticulated water — tank/bore required")
		}
		if !snap.Infrastructure.Sewer.Available {
			out = append(out, "No reticulated sewer — on-site system required")
		}
	}

	if b != nil {
		for _, issue := range b.LotCompliance.Issues {
			if strings.Contains(strings.ToLower(issue), "lot is") {
				out = append(out, issue)
			}
		}
	}

	if p.Outlook == models.OutlookNegative {
		out = append(out, fmt.Sprintf("Challenging approval area — %d refusals vs %d approvals", p.RefusedCount, p.ApprovedCount))
	}
	return out
}
