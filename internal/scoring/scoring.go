// Package scoring reduces a site's constraint data to a bounded
// development-difficulty score with itemised deductions.
package scoring

import (
	"fmt"

	"github.com/jhcramos/urbix-api/internal/metrics"
	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/jhcramos/urbix-api/internal/rules"
)

// Input is what the scorer reads. A nil section contributes nothing, which is
// how degraded provider categories and missing buildability are passed in.
type Input struct {
	Overlays       []models.OverlayGroup
	Flood          *models.FloodInfo
	Constraints    *models.SiteConstraints
	Infrastructure *models.Infrastructure
	Buildability   *models.Buildability
}

// FromSnapshot builds the scorer input, leaving degraded categories out.
func FromSnapshot(snap models.SiteSnapshot, b *models.Buildability) Input {
	in := Input{Buildability: b}
	if !snap.IsDegraded(models.CategoryOverlays) {
		in.Overlays = snap.Overlays
	}
	if !snap.IsDegraded(models.CategoryFlood) {
		in.Flood = &snap.Flood
	}
	if !snap.IsDegraded(models.CategoryConstraints) {
		in.Constraints = &snap.Constraints
	}
	if !snap.IsDegraded(models.CategoryInfrastructure) {
		in.Infrastructure = &snap.Infrastructure
	}
	return in
}

// Scorer applies a scoring table. It is safe for concurrent use.
type Scorer struct {
	table *rules.Scoring
}

// New builds a scorer over the given table.
func New(table *rules.Scoring) *Scorer {
	return &Scorer{table: table}
}

// Score starts at the baseline and applies deductions in a fixed order:
// overlay groups, flood mapping, easements, covenants, koala, ESA, water,
// sewer, then lot compliance. The result is clamped and labelled.
func (s *Scorer) Score(in Input) models.ConstraintsScore {
	t := s.table
	score := t.Baseline
	deductions := []models.Deduction{}

	deduct := func(reason string, points int) {
		if points <= 0 {
			return
		}
		score -= points
		deductions = append(deductions, models.Deduction{Reason: reason, Delta: -points})
	}

	for _, g := range in.Overlays {
		h, ok := t.Classify(g.Category)
		if !ok || len(g.Layers) == 0 {
			continue
		}
		deduct(h.Reason, h.Points(len(g.Layers)))
	}

	d := t.Deductions
	if in.Flood != nil && in.Flood.HasFloodData {
		deduct(d.FloodMapping.Reason, d.FloodMapping.Points)
	}

	if c := in.Constraints; c != nil {
		if n := len(c.Easements); n > 0 {
			deduct(fmt.Sprintf("%s (%d)", d.Easement.Reason, n), d.Easement.Points*n)
		}
		if n := len(c.Covenants); n > 0 {
			deduct(fmt.Sprintf("%s (%d)", d.Covenant.Reason, n), d.Covenant.Points*n)
		}
		if c.Koala.Status != "" {
			deduct(d.Koala.Reason, d.Koala.Points)
		}
		if c.ESA.Status != "" {
			deduct(d.ESA.Reason, d.ESA.Points)
		}
	}

	if i := in.Infrastructure; i != nil {
		if !i.Water.Available {
			deduct(d.NoWater.Reason, d.NoWater.Points)
		}
		if !i.Sewer.Available {
			deduct(d.NoSewer.Reason, d.NoSewer.Points)
		}
	}

	if in.Buildability != nil && !in.Buildability.LotCompliance.Compliant {
		deduct(d.LotNonCompliant.Reason, d.LotNonCompliant.Points)
	}

	score = t.Clamp(score)
	label := t.Label(score)
	metrics.ConstraintsScore.Observe(float64(score))

	return models.ConstraintsScore{
		Score:      score,
		Label:      label.Label,
		Color:      label.Color,
		Deductions: deductions,
	}
}
