package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jhcramos/urbix-api/internal/aggregator"
	"github.com/jhcramos/urbix-api/internal/buildability"
	"github.com/jhcramos/urbix-api/internal/logger"
	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/jhcramos/urbix-api/internal/precedent"
	"github.com/jhcramos/urbix-api/internal/report"
	"github.com/jhcramos/urbix-api/internal/repository"
	"github.com/jhcramos/urbix-api/internal/resolver"
	"github.com/jhcramos/urbix-api/internal/scoring"
)

// Coordinate validation constants
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Search limits
const (
	MinSearchLength    = 3
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// Service-level errors
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrQueryTooShort      = errors.New("query must be at least 3 characters")
	ErrInvalidLimit       = errors.New("limit must be between 1 and 50")
	ErrIndexUnavailable   = errors.New("local index not available")
)

// Resolver turns a selector into a canonical parcel.
type Resolver interface {
	Resolve(ctx context.Context, sel resolver.Selector) (*models.ResolvedParcel, error)
	SearchAddresses(ctx context.Context, text string, limit int) ([]models.AddressCandidate, string, error)
}

// Aggregator fans a site out to the provider categories.
type Aggregator interface {
	Aggregate(ctx context.Context, site aggregator.Site, categories ...string) models.SiteSnapshot
}

// RuleLookup finds the planning parameters for a zone code.
type RuleLookup interface {
	Lookup(ctx context.Context, zoneCode string) (models.ZoneRules, error)
}

// Calculator derives buildability for a parcel.
type Calculator interface {
	Calculate(parcel models.Parcel, zone models.Zone, zr models.ZoneRules, overlays []models.OverlayGroup, heightOverride *float64) (*models.Buildability, error)
}

// Scorer reduces constraint data to a score.
type Scorer interface {
	Score(in scoring.Input) models.ConstraintsScore
}

// Composer assembles the final report.
type Composer interface {
	Compose(in report.Input) models.SiteReport
}

// IndexStats reports local index table counts.
type IndexStats interface {
	Stats(ctx context.Context) (*repository.IndexStats, error)
}

// LookupResult is a resolved parcel with its zone and centroids.
type LookupResult struct {
	Parcel       models.Parcel            `json:"parcel"`
	Geometry     *models.Geometry         `json:"geometry"`
	Address      *models.AddressCandidate `json:"address,omitempty"`
	Centroid     models.Point             `json:"centroid"`
	AreaCentroid *models.Point            `json:"area_centroid,omitempty"`
	Zone         *models.Zone             `json:"zone"`
	Source       string                   `json:"source"`
	Degraded     []string                 `json:"degraded,omitempty"`
}

// SearchResult is an address search response.
type SearchResult struct {
	Query   string                    `json:"query"`
	Results []models.AddressCandidate `json:"results"`
	Count   int                       `json:"count"`
	Source  string                    `json:"source"`
}

// BuildabilityResult is a buildability-only response.
type BuildabilityResult struct {
	SiteInfo     models.SiteInfo      `json:"site_info"`
	Buildability *models.Buildability `json:"buildability"`
	Unavailable  *models.Unavailable  `json:"buildability_unavailable,omitempty"`
	ZoneOverride bool                 `json:"zone_override"`
	Degraded     []string             `json:"degraded,omitempty"`
}

// SiteService is the site intelligence use-case layer.
type SiteService interface {
	// Report resolves the selector, aggregates every provider category and
	// composes the full report. Only resolution errors are returned; every
	// later stage degrades its own section instead.
	Report(ctx context.Context, sel resolver.Selector) (*models.SiteReport, error)

	// Lookup resolves the selector and fetches the zone.
	Lookup(ctx context.Context, sel resolver.Selector) (*LookupResult, error)

	// Search finds address candidates, local index first.
	Search(ctx context.Context, query string, limit int) (*SearchResult, error)

	// Buildability computes buildability alone. A non-empty zoneOverride is
	// used as the zone code and the zoning provider is skipped.
	Buildability(ctx context.Context, sel resolver.Selector, zoneOverride string) (*BuildabilityResult, error)

	// Stats returns local index statistics or ErrIndexUnavailable.
	Stats(ctx context.Context) (*repository.IndexStats, error)
}

// Deps are the collaborators of the site service.
type Deps struct {
	Resolver   Resolver
	Aggregator Aggregator
	Rules      RuleLookup
	Calculator Calculator
	Scorer     Scorer
	Composer   Composer
	// Index may be nil when no local database is configured.
	Index IndexStats
}

type siteService struct {
	d   Deps
	log *logger.Logger
}

// NewSiteService creates a new instance of SiteService.
func NewSiteService(d Deps, log *logger.Logger) SiteService {
	return &siteService{d: d, log: log.WithComponent("site")}
}

func (s *siteService) Report(ctx context.Context, sel resolver.Selector) (*models.SiteReport, error) {
	rp, point, err := s.resolve(ctx, sel)
	if err != nil {
		return nil, err
	}

	snap := s.d.Aggregator.Aggregate(ctx, site(rp, point))

	b, berr := s.buildability(ctx, rp.Parcel, snap, zoneOf(snap), "")
	score := s.d.Scorer.Score(scoring.FromSnapshot(snap, b))
	prec := precedent.Analyze(snap.Applications.OnParcel, snap.Applications.Nearby)

	r := s.d.Composer.Compose(report.Input{
		Resolved:        *rp,
		Point:           point,
		Snapshot:        snap,
		Buildability:    b,
		BuildabilityErr: berr,
		Score:           score,
		Precedent:       prec,
	})

	s.log.Info("Site report composed", map[string]interface{}{
		"lotplan":  rp.Parcel.LotPlan(),
		"source":   rp.Source,
		"score":    score.Score,
		"degraded": snap.Degraded,
	})
	return &r, nil
}

func (s *siteService) Lookup(ctx context.Context, sel resolver.Selector) (*LookupResult, error) {
	rp, point, err := s.resolve(ctx, sel)
	if err != nil {
		return nil, err
	}

	snap := s.d.Aggregator.Aggregate(ctx, site(rp, point), models.CategoryZoning)

	res := &LookupResult{
		Parcel:   rp.Parcel,
		Geometry: rp.Geometry,
		Address:  rp.Address,
		Centroid: point,
		Zone:     snap.Zone,
		Source:   rp.Source,
		Degraded: snap.Degraded,
	}
	if ac, ok := rp.Geometry.AreaCentroid(); ok {
		res.AreaCentroid = &ac
	}
	return res, nil
}

func (s *siteService) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return nil, ErrQueryTooShort
	}
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	results, source, err := s.d.Resolver.SearchAddresses(ctx, query, limit)
	if err != nil {
		s.log.Error("Address search failed", err, map[string]interface{}{"query": query})
		return nil, fmt.Errorf("failed to search addresses: %w", err)
	}
	if results == nil {
		results = []models.AddressCandidate{}
	}

	return &SearchResult{Query: query, Results: results, Count: len(results), Source: source}, nil
}

func (s *siteService) Buildability(ctx context.Context, sel resolver.Selector, zoneOverride string) (*BuildabilityResult, error) {
	rp, point, err := s.resolve(ctx, sel)
	if err != nil {
		return nil, err
	}

	zoneOverride = strings.TrimSpace(zoneOverride)
	categories := []string{models.CategoryOverlays}
	if zoneOverride == "" {
		categories = append(categories, models.CategoryZoning)
	}
	snap := s.d.Aggregator.Aggregate(ctx, site(rp, point), categories...)

	zone := zoneOf(snap)
	if zoneOverride != "" {
		zone = models.Zone{Code: zoneOverride}
	}

	res := &BuildabilityResult{
		SiteInfo: models.SiteInfo{
			LotPlan:      rp.Parcel.LotPlan(),
			LotPlanKey:   rp.Parcel.LotPlanKey,
			AreaSqm:      rp.Parcel.AreaSqm,
			Tenure:       rp.Parcel.Tenure,
			Locality:     rp.Parcel.Locality,
			ShireName:    rp.Parcel.ShireName,
			ParcelType:   rp.Parcel.ParcelType,
			CoverType:    rp.Parcel.CoverType,
			Centroid:     point,
			ParcelSource: rp.Source,
		},
		ZoneOverride: zoneOverride != "",
		Degraded:     snap.Degraded,
	}
	if rp.Address != nil {
		res.SiteInfo.Address = rp.Address.Address
	}

	b, berr := s.buildability(ctx, rp.Parcel, snap, zone, zoneOverride)
	res.Buildability = b
	if berr != nil {
		res.Unavailable = &models.Unavailable{Reason: berr.Error()}
	}
	return res, nil
}

func (s *siteService) Stats(ctx context.Context) (*repository.IndexStats, error) {
	if s.d.Index == nil {
		return nil, ErrIndexUnavailable
	}
	stats, err := s.d.Index.Stats(ctx)
	if err != nil {
		s.log.Error("Failed to read index stats", err, nil)
		return nil, fmt.Errorf("failed to read index stats: %w", err)
	}
	return stats, nil
}

// resolve validates the selector and resolves it to a parcel with a
// representative point.
func (s *siteService) resolve(ctx context.Context, sel resolver.Selector) (*models.ResolvedParcel, models.Point, error) {
	if p := sel.Point; p != nil {
		if p.Lat < MinLatitude || p.Lat > MaxLatitude {
			return nil, models.Point{}, fmt.Errorf("%w: latitude must be between %f and %f, got %f",
				ErrInvalidCoordinates, MinLatitude, MaxLatitude, p.Lat)
		}
		if p.Lng < MinLongitude || p.Lng > MaxLongitude {
			return nil, models.Point{}, fmt.Errorf("%w: longitude must be between %f and %f, got %f",
				ErrInvalidCoordinates, MinLongitude, MaxLongitude, p.Lng)
		}
	}

	rp, err := s.d.Resolver.Resolve(ctx, sel)
	if err != nil {
		return nil, models.Point{}, err
	}
	point, ok := rp.RepresentativePoint()
	if !ok {
		return nil, models.Point{}, resolver.ErrMissingLocation
	}
	return rp, point, nil
}

// buildability looks up the zone rules and runs the calculator. The height
// overlay applies only when the zone came from the zoning provider.
func (s *siteService) buildability(ctx context.Context, parcel models.Parcel, snap models.SiteSnapshot, zone models.Zone, zoneOverride string) (*models.Buildability, error) {
	if _, ok := parcel.Area(); !ok {
		return nil, s.unavailable(parcel, buildability.ErrMissingArea)
	}

	zr, err := s.d.Rules.Lookup(ctx, zone.Code)
	if err != nil {
		return nil, s.unavailable(parcel, err)
	}

	var height *float64
	if zoneOverride == "" {
		height = snap.HeightOverride()
	}
	overlays := snap.Overlays
	if snap.IsDegraded(models.CategoryOverlays) {
		overlays = nil
	}

	b, err := s.d.Calculator.Calculate(parcel, zone, zr, overlays, height)
	if err != nil {
		return nil, s.unavailable(parcel, err)
	}
	return b, nil
}

func (s *siteService) unavailable(parcel models.Parcel, err error) error {
	s.log.Warn("Buildability unavailable", map[string]interface{}{
		"lotplan": parcel.LotPlan(),
		"error":   err.Error(),
	})
	return err
}

func site(rp *models.ResolvedParcel, point models.Point) aggregator.Site {
	return aggregator.Site{Point: point, Geometry: rp.Geometry, Parcel: rp.Parcel}
}

func zoneOf(snap models.SiteSnapshot) models.Zone {
	if snap.Zone == nil {
		return models.Zone{}
	}
	return *snap.Zone
}
