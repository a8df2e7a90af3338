// Package aggregator fans a resolved site out to every provider category
// and assembles the SiteSnapshot. A category that fails or times out is
// logged, counted and left at its empty value; it never fails the snapshot.
package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhcramos/urbix-api/internal/logger"
	"github.com/jhcramos/urbix-api/internal/metrics"
	"github.com/jhcramos/urbix-api/internal/models"
	"golang.org/x/sync/errgroup"
)

// ZoningProvider returns the base zone and the site height limit.
type ZoningProvider interface {
	ZoneAndHeight(ctx context.Context, p models.Point) (*models.Zone, *models.HeightRestriction, error)
}

// OverlayProvider returns intersecting overlay layers grouped by category.
type OverlayProvider interface {
	Overlays(ctx context.Context, p models.Point, g *models.Geometry) ([]models.OverlayGroup, error)
}

// InfrastructureProvider returns nearby service availability.
type InfrastructureProvider interface {
	Infrastructure(ctx context.Context, p models.Point) (models.Infrastructure, error)
}

// ApplicationProvider returns on-parcel and nearby application history.
type ApplicationProvider interface {
	Applications(ctx context.Context, p models.Point, g *models.Geometry, parcel models.Parcel) (models.ApplicationHistory, error)
}

// FloodProvider returns council flood mapping and nearby studies.
type FloodProvider interface {
	Flood(ctx context.Context, p models.Point, parcel models.Parcel) (models.FloodInfo, error)
}

// ConstraintProvider returns registered interests and environmental flags.
type ConstraintProvider interface {
	Constraints(ctx context.Context, p models.Point, g *models.Geometry) (models.SiteConstraints, error)
}

// TransportProvider returns road and transport network mapping at the site.
type TransportProvider interface {
	Transport(ctx context.Context, p models.Point) ([]models.TransportFeature, error)
}

// Providers is one provider per category.
type Providers struct {
	Zoning         ZoningProvider
	Overlays       OverlayProvider
	Infrastructure InfrastructureProvider
	Applications   ApplicationProvider
	Flood          FloodProvider
	Constraints    ConstraintProvider
	Transport      TransportProvider
}

// AllCategories lists every category in snapshot order.
var AllCategories = []string{
	models.CategoryZoning,
	models.CategoryOverlays,
	models.CategoryInfrastructure,
	models.CategoryApplications,
	models.CategoryFlood,
	models.CategoryConstraints,
	models.CategoryTransport,
}

// Site is what the providers are queried with.
type Site struct {
	Point    models.Point
	Geometry *models.Geometry
	Parcel   models.Parcel
}

// Aggregator runs provider categories concurrently.
type Aggregator struct {
	p       Providers
	timeout time.Duration
	log     *logger.Logger
}

// New builds an aggregator. timeout is applied to each category on its own.
func New(p Providers, timeout time.Duration, log *logger.Logger) *Aggregator {
	return &Aggregator{p: p, timeout: timeout, log: log.WithComponent("aggregator")}
}

// Aggregate queries the given categories, or all of them when none are
// named, and waits for every one to finish or degrade.
func (a *Aggregator) Aggregate(ctx context.Context, site Site, categories ...string) models.SiteSnapshot {
	if len(categories) == 0 {
		categories = AllCategories
	}
	want := make(map[string]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}

	snap := emptySnapshot()
	var (
		eg       errgroup.Group
		mu       sync.Mutex
		degraded = make(map[string]bool)
	)

	run := func(category string, fn task) {
		if !want[category] {
			return
		}
		eg.Go(func() error {
			apply, err := a.call(ctx, category, fn)
			if err != nil {
				mu.Lock()
				degraded[category] = true
				mu.Unlock()
				return nil
			}
			apply(&snap)
			return nil
		})
	}

	// Each apply writes only its own category's snapshot fields.
	run(models.CategoryZoning, func(ctx context.Context) (func(*models.SiteSnapshot), error) {
		zone, height, err := a.p.Zoning.ZoneAndHeight(ctx, site.Point)
		if err != nil {
			return nil, err
		}
		return func(s *models.SiteSnapshot) { s.Zone, s.Height = zone, height }, nil
	})
	run(models.CategoryOverlays, func(ctx context.Context) (func(*models.SiteSnapshot), error) {
		groups, err := a.p.Overlays.Overlays(ctx, site.Point, site.Geometry)
		if err != nil {
			return nil, err
		}
		return func(s *models.SiteSnapshot) {
			if groups != nil {
				s.Overlays = groups
			}
		}, nil
	})
	run(models.CategoryInfrastructure, func(ctx context.Context) (func(*models.SiteSnapshot), error) {
		infra, err := a.p.Infrastructure.Infrastructure(ctx, site.Point)
		if err != nil {
			return nil, err
		}
		return func(s *models.SiteSnapshot) { s.Infrastructure = infra }, nil
	})
	run(models.CategoryApplications, func(ctx context.Context) (func(*models.SiteSnapshot), error) {
		history, err := a.p.Applications.Applications(ctx, site.Point, site.Geometry, site.Parcel)
		if err != nil {
			return nil, err
		}
		return func(s *models.SiteSnapshot) { s.Applications = history }, nil
	})
	run(models.CategoryFlood, func(ctx context.Context) (func(*models.SiteSnapshot), error) {
		info, err := a.p.Flood.Flood(ctx, site.Point, site.Parcel)
		if err != nil {
			return nil, err
		}
		return func(s *models.SiteSnapshot) { s.Flood = info }, nil
	})
	run(models.CategoryConstraints, func(ctx context.Context) (func(*models.SiteSnapshot), error) {
		sc, err := a.p.Constraints.Constraints(ctx, site.Point, site.Geometry)
		if err != nil {
			return nil, err
		}
		return func(s *models.SiteSnapshot) { s.Constraints = sc }, nil
	})

	run(models.CategoryTransport, func(ctx context.Context) (func(*models.SiteSnapshot), error) {
		features, err := a.p.Transport.Transport(ctx, site.Point)
		if err != nil {
			return nil, err
		}
		return func(s *models.SiteSnapshot) {
			if features != nil {
				s.Transport = features
			}
		}, nil
	})

	_ = eg.Wait()

	for _, c := range AllCategories {
		if degraded[c] {
			snap.Degraded = append(snap.Degraded, c)
		}
	}
	return snap
}

// task fetches one category and returns the function that stores it.
type task func(ctx context.Context) (func(*models.SiteSnapshot), error)

type outcome struct {
	apply func(*models.SiteSnapshot)
	err   error
}

// call runs one category under its own deadline and records the outcome.
// The provider runs in its own goroutine so the deadline holds even when it
// ignores its context; a late result is discarded, never applied. A panic
// inside a provider counts as a failure.
func (a *Aggregator) call(ctx context.Context, category string, fn task) (apply func(*models.SiteSnapshot), err error) {
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	metrics.ProviderCallsTotal.WithLabelValues(category).Inc()

	defer func() {
		elapsed := time.Since(start).Milliseconds()
		metrics.ProviderDurationMs.WithLabelValues(category).Observe(float64(elapsed))
		if err != nil {
			metrics.ProviderFailuresTotal.WithLabelValues(category).Inc()
			a.log.Warn("Provider category degraded", map[string]interface{}{
				"category":    category,
				"error":       err.Error(),
				"duration_ms": elapsed,
			})
			return
		}
		a.log.Debug("Provider category complete", map[string]interface{}{
			"category":    category,
			"duration_ms": elapsed,
		})
	}()

	done := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				o = outcome{err: fmt.Errorf("provider panic: %v", r)}
			}
			done <- o
		}()
		o.apply, o.err = fn(cctx)
	}()

	select {
	case o := <-done:
		if o.err == nil && o.apply == nil {
			return nil, fmt.Errorf("%s returned no result", category)
		}
		return o.apply, o.err
	case <-cctx.Done():
		return nil, fmt.Errorf("%s did not finish within %s: %w", category, a.timeout, cctx.Err())
	}
}

// emptySnapshot holds every category's default value. Lists are empty
// rather than nil so a degraded section still serialises as [].
func emptySnapshot() models.SiteSnapshot {
	return models.SiteSnapshot{
		Overlays: []models.OverlayGroup{},
		Flood: models.FloodInfo{
			Studies: []models.FloodStudy{},
		},
		Applications: models.ApplicationHistory{
			OnParcel: []models.Application{},
			Nearby:   []models.Application{},
		},
		Constraints: models.SiteConstraints{
			Easements: []models.Easement{},
			Covenants: []models.Covenant{},
		},
		Transport: []models.TransportFeature{},
	}
}
