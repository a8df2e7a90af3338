// Package resolver turns an address, lot/plan pair or coordinate into a
// canonical parcel. The local index is tried first and the state parcel
// authority second.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhcramos/urbix-api/internal/logger"
	"github.com/jhcramos/urbix-api/internal/metrics"
	"github.com/jhcramos/urbix-api/internal/models"
)

// Resolver errors
var (
	ErrAmbiguousInput  = errors.New("provide one of: address, lot+plan, or lat+lng")
	ErrNotFound        = errors.New("parcel not found")
	ErrMissingLocation = errors.New("could not determine parcel location")
)

// Lookup kinds reported in metrics.
const (
	kindLotPlan = "lotplan"
	kindPoint   = "point"
	kindAddress = "address"
	tierMiss    = "miss"
)

// Index is the fast local tier. Lookups return nil, nil when nothing matches.
type Index interface {
	SearchAddresses(ctx context.Context, query string, limit int) ([]models.AddressCandidate, error)
	FindByLotPlan(ctx context.Context, lot, plan string) (*models.ResolvedParcel, error)
	FindByPoint(ctx context.Context, p models.Point) (*models.ResolvedParcel, error)
}

// Authority is the slow remote tier. Lookups return nil, nil when nothing matches.
type Authority interface {
	SearchAddresses(ctx context.Context, query string, limit int) ([]models.AddressCandidate, error)
	ParcelByLotPlan(ctx context.Context, lot, plan string) (*models.ResolvedParcel, error)
	ParcelAtPoint(ctx context.Context, p models.Point) (*models.ResolvedParcel, error)
	Tenure(ctx context.Context, lot, plan string) (string, error)
}

// Selector identifies a site. Lot and plan win over a point, and a point
// wins over an address.
type Selector struct {
	Address string
	Lot     string
	Plan    string
	Point   *models.Point
}

// Normalize trims the selector's text fields and upper-cases the plan.
func (s Selector) Normalize() Selector {
	s.Address = strings.TrimSpace(s.Address)
	s.Lot = strings.TrimSpace(s.Lot)
	s.Plan = strings.ToUpper(strings.TrimSpace(s.Plan))
	return s
}

// Empty reports whether the selector names no site at all.
func (s Selector) Empty() bool {
	n := s.Normalize()
	return (n.Lot == "" || n.Plan == "") && n.Point == nil && n.Address == ""
}

// Resolver runs the local-then-remote fallback chain.
type Resolver struct {
	local   Index
	remote  Authority
	timeout time.Duration
	log     *logger.Logger
}

// New builds a resolver. A nil local index means the remote authority is
// the only tier, which is how the service runs before the index is synced.
func New(local Index, remote Authority, authorityTimeout time.Duration, log *logger.Logger) *Resolver {
	return &Resolver{
		local:   local,
		remote:  remote,
		timeout: authorityTimeout,
		log:     log.WithComponent("resolver"),
	}
}

// HasLocalIndex reports whether the fast tier is configured.
func (r *Resolver) HasLocalIndex() bool {
	return r.local != nil
}

// Resolve finds the parcel named by sel. It returns ErrAmbiguousInput for an
// empty selector, ErrNotFound once both tiers have missed, and
// ErrMissingLocation when the parcel has no usable representative point.
func (r *Resolver) Resolve(ctx context.Context, sel Selector) (*models.ResolvedParcel, error) {
	sel = sel.Normalize()

	var (
		rp  *models.ResolvedParcel
		err error
	)
	switch {
	case sel.Lot != "" && sel.Plan != "":
		rp, err = r.byLotPlan(ctx, sel.Lot, sel.Plan)
	case sel.Point != nil:
		rp, err = r.byPoint(ctx, *sel.Point)
	case sel.Address != "":
		rp, err = r.byAddress(ctx, sel.Address)
	default:
		return nil, ErrAmbiguousInput
	}
	if err != nil {
		return nil, err
	}

	r.enrichTenure(ctx, rp)

	if _, ok := rp.RepresentativePoint(); !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingLocation, rp.Parcel.LotPlan())
	}
	return rp, nil
}

func (r *Resolver) byLotPlan(ctx context.Context, lot, plan string) (*models.ResolvedParcel, error) {
	fields := map[string]interface{}{"lot": lot, "plan": plan}

	if r.local != nil {
		rp, err := r.local.FindByLotPlan(ctx, lot, plan)
		if err != nil {
			r.log.Warn("Local index lookup failed, falling back to parcel authority", withErr(fields, err))
		} else if rp != nil {
			metrics.ResolverTierTotal.WithLabelValues(kindLotPlan, models.SourceLocal).Inc()
			return rp, nil
		}
		r.log.Debug("Local index miss, querying parcel authority", fields)
	}

	actx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	rp, err := r.remote.ParcelByLotPlan(actx, lot, plan)
	if err != nil {
		return nil, fmt.Errorf("parcel authority lookup failed: %w", err)
	}
	if rp == nil {
		metrics.ResolverTierTotal.WithLabelValues(kindLotPlan, tierMiss).Inc()
		return nil, fmt.Errorf("%w: no parcel for Lot %s Plan %s", ErrNotFound, lot, plan)
	}
	metrics.ResolverTierTotal.WithLabelValues(kindLotPlan, models.SourceRemote).Inc()
	return rp, nil
}

func (r *Resolver) byPoint(ctx context.Context, p models.Point) (*models.ResolvedParcel, error) {
	fields := map[string]interface{}{"lat": p.Lat, "lng": p.Lng}

	if r.local != nil {
		rp, err := r.local.FindByPoint(ctx, p)
		if err != nil {
			r.log.Warn("Local index lookup failed, falling back to parcel authority", withErr(fields, err))
		} else if rp != nil {
			metrics.ResolverTierTotal.WithLabelValues(kindPoint, models.SourceLocal).Inc()
			return rp, nil
		}
		r.log.Debug("Local index miss, querying parcel authority", fields)
	}

	actx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	rp, err := r.remote.ParcelAtPoint(actx, p)
	if err != nil {
		return nil, fmt.Errorf("parcel authority lookup failed: %w", err)
	}
	if rp == nil {
		metrics.ResolverTierTotal.WithLabelValues(kindPoint, tierMiss).Inc()
		return nil, fmt.Errorf("%w: no parcel at %f, %f", ErrNotFound, p.Lat, p.Lng)
	}
	metrics.ResolverTierTotal.WithLabelValues(kindPoint, models.SourceRemote).Inc()
	return rp, nil
}

// byAddress picks the best address match, then resolves through its lot/plan
// and, failing that, its coordinate.
func (r *Resolver) byAddress(ctx context.Context, text string) (*models.ResolvedParcel, error) {
	candidates, _, err := r.SearchAddresses(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		metrics.ResolverTierTotal.WithLabelValues(kindAddress, tierMiss).Inc()
		return nil, fmt.Errorf("%w: address not found: %s", ErrNotFound, text)
	}
	cand := candidates[0]

	var rp *models.ResolvedParcel
	if cand.HasLotPlan() {
		rp, err = r.byLotPlan(ctx, cand.Lot, cand.Plan)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	if rp == nil {
		if p, ok := cand.Point(); ok {
			rp, err = r.byPoint(ctx, p)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
	}
	if rp == nil {
		return nil, fmt.Errorf("%w: found address but no parcel: %s", ErrNotFound, text)
	}

	rp.Address = &cand
	return rp, nil
}

// SearchAddresses returns up to limit address matches and the tier that
// answered. The remote authority is asked only when the local index has no
// match or is unavailable.
func (r *Resolver) SearchAddresses(ctx context.Context, text string, limit int) ([]models.AddressCandidate, string, error) {
	fields := map[string]interface{}{"query": text, "limit": limit}

	if r.local != nil {
		found, err := r.local.SearchAddresses(ctx, text, limit)
		if err != nil {
			r.log.Warn("Local address search failed, falling back to parcel authority", withErr(fields, err))
		} else if len(found) > 0 {
			metrics.ResolverTierTotal.WithLabelValues(kindAddress, models.SourceLocal).Inc()
			return found, models.SourceLocal, nil
		}
		r.log.Debug("Local address search miss, querying parcel authority", fields)
	}

	actx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	found, err := r.remote.SearchAddresses(actx, text, limit)
	if err != nil {
		return nil, "", fmt.Errorf("address search failed: %w", err)
	}
	if len(found) > 0 {
		metrics.ResolverTierTotal.WithLabelValues(kindAddress, models.SourceRemote).Inc()
	}
	if found == nil {
		found = []models.AddressCandidate{}
	}
	return found, models.SourceRemote, nil
}

// enrichTenure fills a missing tenure with one authority lookup. Failures
// leave the tenure blank.
func (r *Resolver) enrichTenure(ctx context.Context, rp *models.ResolvedParcel) {
	p := rp.Parcel
	if p.Tenure != "" || p.Lot == "" || p.Plan == "" {
		return
	}

	actx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	tenure, err := r.remote.Tenure(actx, p.Lot, p.Plan)
	if err != nil {
		r.log.Warn("Tenure lookup failed", withErr(map[string]interface{}{"lotplan": p.LotPlan()}, err))
		return
	}
	rp.Parcel.Tenure = tenure
}

func withErr(fields map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
