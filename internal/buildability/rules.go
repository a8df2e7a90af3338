package buildability

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhcramos/urbix-api/internal/logger"
	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/jhcramos/urbix-api/internal/rules"
)

// RuleTable is the jurisdiction's external planning rule table. It returns
// nil, nil when a zone has no row.
type RuleTable interface {
	PlanningRules(ctx context.Context, zoneCode, lga string) (*models.ZoneRules, error)
}

// RuleResolver finds the planning parameters for a zone: the built-in table
// first (exact, then fuzzy), then the external table for the configured LGA.
type RuleResolver struct {
	book  *rules.ZoneBook
	table RuleTable
	lga   string
	log   *logger.Logger
}

// NewRuleResolver builds a resolver. table may be nil when there is no
// local database.
func NewRuleResolver(book *rules.ZoneBook, table RuleTable, lga string, log *logger.Logger) *RuleResolver {
	return &RuleResolver{book: book, table: table, lga: lga, log: log.WithComponent("rules")}
}

// Lookup returns the rules for zoneCode or ErrUnknownZone. A failing
// external table counts as a miss.
func (r *RuleResolver) Lookup(ctx context.Context, zoneCode string) (models.ZoneRules, error) {
	code := strings.TrimSpace(zoneCode)
	if code == "" {
		return models.ZoneRules{}, fmt.Errorf("%w: zone unavailable", ErrUnknownZone)
	}

	if zr, ok := r.book.Lookup(code); ok {
		return zr, nil
	}

	if r.table != nil {
		zr, err := r.table.PlanningRules(ctx, code, r.lga)
		switch {
		case err != nil:
			r.log.Warn("Planning rules table lookup failed", map[string]interface{}{
				"zone":  code,
				"lga":   r.lga,
				"error": err.Error(),
			})
		case zr != nil:
			out := *zr
			out.Source = models.RuleSourceDatabase
			if out.ZoneCode == "" {
				out.ZoneCode = code
			}
			return out, nil
		}
	}

	return models.ZoneRules{}, fmt.Errorf("%w: %s", ErrUnknownZone, code)
}
