package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhcramos/urbix-api/internal/address"
	"github.com/jhcramos/urbix-api/internal/database"
	"github.com/jhcramos/urbix-api/internal/models"
)

// SyncRun is one entry of the sync job's audit log.
type SyncRun struct {
	SyncType      string     `json:"sync_type"`
	LGA           string     `json:"lga"`
	RecordsSynced int64      `json:"records_synced"`
	StartedAt     *time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	Status        string     `json:"status"`
}

// IndexStats describes what the sync job has loaded into the local index.
type IndexStats struct {
	Counts      map[string]int64 `json:"counts"`
	RecentSyncs []SyncRun        `json:"recent_syncs"`
}

// indexTables are the tables reported by Stats.
var indexTables = []string{"parcels", "addresses", "zones", "overlays"}

// ParcelRepository defines the read-only queries against the local parcel index.
type ParcelRepository interface {
	// SearchAddresses returns addresses whose full text contains query after
	// street-type expansion, ordered by address. Returns an empty slice when
	// nothing matches.
	SearchAddresses(ctx context.Context, query string, limit int) ([]models.AddressCandidate, error)

	// FindByLotPlan finds the base cover parcel for a lot/plan pair.
	// Returns nil, nil if no parcel is found (not an error).
	FindByLotPlan(ctx context.Context, lot, plan string) (*models.ResolvedParcel, error)

	// FindByPoint finds the parcel containing p, preferring the base cover.
	// Returns nil, nil if no parcel is found (not an error).
	FindByPoint(ctx context.Context, p models.Point) (*models.ResolvedParcel, error)

	// PlanningRules reads the jurisdiction's rule table entry for a zone code.
	// Returns nil, nil when the zone has no row.
	PlanningRules(ctx context.Context, zoneCode, lga string) (*models.ZoneRules, error)

	// Stats counts the synced tables and lists the latest sync runs.
	Stats(ctx context.Context) (*IndexStats, error)
}

// parcelRepository is the concrete implementation of ParcelRepository.
type parcelRepository struct {
	db *database.Database
}

// NewParcelRepository creates a new instance of ParcelRepository.
func NewParcelRepository(db *database.Database) ParcelRepository {
	return &parcelRepository{
		db: db,
	}
}

// SearchAddresses runs a case-insensitive substring match over full_address.
// Abbreviated street types in query are expanded first so "Smith St" finds
// "SMITH STREET".
func (r *parcelRepository) SearchAddresses(ctx context.Context, query string, limit int) ([]models.AddressCandidate, error) {
	sqlQuery := `
		SELECT
			full_address,
			locality,
			lot,
			plan_number,
			lotplan,
			street_name,
			street_number,
			ST_Y(geom) AS lat,
			ST_X(geom) AS lng
		FROM addresses
		WHERE full_address ILIKE $1
		ORDER BY full_address
		LIMIT $2
	`

	pattern := "%" + address.ExpandLocal(strings.TrimSpace(query)) + "%"
	rows, err := r.db.Pool.Query(ctx, sqlQuery, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search addresses (query=%q): %w", query, err)
	}
	defer rows.Close()

	results := []models.AddressCandidate{}
	for rows.Next() {
		var c models.AddressCandidate
		var addr, locality, lot, plan, lotplan, streetName, streetNumber *string
		if err := rows.Scan(&addr, &locality, &lot, &plan, &lotplan, &streetName, &streetNumber, &c.Lat, &c.Lng); err != nil {
			return nil, fmt.Errorf("failed to scan address row: %w", err)
		}
		c.Address = str(addr)
		c.Locality = str(locality)
		c.Lot = str(lot)
		c.Plan = str(plan)
		c.LotPlanKey = str(lotplan)
		c.StreetName = str(streetName)
		c.StreetNumber = str(streetNumber)
		results = append(results, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating address rows: %w", err)
	}

	return results, nil
}

const parcelColumns = `
			lot,
			plan_number,
			lotplan,
			parcel_type,
			cover_type,
			tenure,
			area_sqm,
			locality,
			shire_name,
			feature_name,
			ST_AsGeoJSON(geom) AS geometry`

// baseCoverFirst ranks the primary cadastral cover ahead of anything else.
const baseCoverFirst = `ORDER BY CASE WHEN cover_type = 'Base' THEN 0 ELSE 1 END`

// FindByLotPlan looks up a parcel by its exact lot and plan.
func (r *parcelRepository) FindByLotPlan(ctx context.Context, lot, plan string) (*models.ResolvedParcel, error) {
	query := `
		SELECT` + parcelColumns + `
		FROM parcels
		WHERE lot = $1 AND plan_number = $2
			AND (cover_type = 'Base' OR cover_type IS NULL)
		` + baseCoverFirst + `
		LIMIT 1
	`

	parcel, err := scanParcel(r.db.Pool.QueryRow(ctx, query, lot, plan))
	if err != nil {
		return nil, fmt.Errorf("failed to query parcel %s/%s: %w", lot, plan, err)
	}
	return parcel, nil
}

// FindByPoint performs a point-in-polygon lookup with ST_Contains.
//
// Note: PostGIS functions expect (longitude, latitude) order, not (lat, lng).
func (r *parcelRepository) FindByPoint(ctx context.Context, p models.Point) (*models.ResolvedParcel, error) {
	query := `
		SELECT` + parcelColumns + `
		FROM parcels
		WHERE ST_Contains(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
			AND (cover_type = 'Base' OR cover_type IS NULL)
		` + baseCoverFirst + `
		LIMIT 1
	`

	parcel, err := scanParcel(r.db.Pool.QueryRow(ctx, query, p.Lng, p.Lat))
	if err != nil {
		return nil, fmt.Errorf("failed to query parcel at point (lat=%f, lng=%f): %w", p.Lat, p.Lng, err)
	}
	return parcel, nil
}

// scanParcel maps one parcels row. A missing row is not an error.
func scanParcel(row pgx.Row) (*models.ResolvedParcel, error) {
	var (
		lot, plan, lotplan, parcelType, coverType *string
		tenure, locality, shireName, featureName  *string
		geomJSON                                  []byte
		parcel                                    models.Parcel
	)

	err := row.Scan(&lot, &plan, &lotplan, &parcelType, &coverType, &tenure,
		&parcel.AreaSqm, &locality, &shireName, &featureName, &geomJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	parcel.Lot = str(lot)
	parcel.Plan = str(plan)
	parcel.LotPlanKey = str(lotplan)
	parcel.ParcelType = str(parcelType)
	parcel.CoverType = str(coverType)
	parcel.Tenure = str(tenure)
	parcel.Locality = str(locality)
	parcel.ShireName = str(shireName)
	parcel.FeatureName = str(featureName)

	resolved := &models.ResolvedParcel{Parcel: parcel, Source: models.SourceLocal}
	if len(geomJSON) > 0 {
		var g models.Geometry
		if err := g.Scan(geomJSON); err != nil {
			return nil, fmt.Errorf("failed to parse geometry for parcel %s: %w", parcel.LotPlanKey, err)
		}
		resolved.Geometry = &g
	}
	return resolved, nil
}

// PlanningRules reads the external rule table used when the built-in zone
// table has no entry.
func (r *parcelRepository) PlanningRules(ctx context.Context, zoneCode, lga string) (*models.ZoneRules, error) {
	query := `
		SELECT
			zone_code,
			zone_category,
			max_height_m,
			max_storeys,
			max_site_cover_pct,
			front_setback_m,
			side_setback_m,
			rear_setback_m,
			min_lot_size_sqm,
			min_frontage_m,
			max_dwelling_density,
			accepted_uses,
			assessable_uses
		FROM planning_rules
		WHERE zone_code = $1 AND lga = $2
		LIMIT 1
	`

	var (
		z                 models.ZoneRules
		category, density *string
	)
	err := r.db.Pool.QueryRow(ctx, query, zoneCode, lga).Scan(
		&z.ZoneCode,
		&category,
		&z.MaxHeightM,
		&z.MaxStoreys,
		&z.MaxSiteCoverPct,
		&z.FrontSetbackM,
		&z.SideSetbackM,
		&z.RearSetbackM,
		&z.MinLotSizeSqm,
		&z.MinFrontageM,
		&density,
		&z.AcceptedUses,
		&z.AssessableUses,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query planning rules (zone=%q, lga=%q): %w", zoneCode, lga, err)
	}

	z.ZoneCategory = str(category)
	z.MaxDwellingDensity = str(density)
	z.Source = models.RuleSourceDatabase
	return &z, nil
}

// Stats counts rows in each synced table and reads the five latest sync runs.
func (r *parcelRepository) Stats(ctx context.Context) (*IndexStats, error) {
	stats := &IndexStats{Counts: make(map[string]int64, len(indexTables)), RecentSyncs: []SyncRun{}}

	for _, table := range indexTables {
		var n int64
		// Table names come from the fixed list above.
		if err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats.Counts[table] = n
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT sync_type, lga, records_synced, started_at, completed_at, status
		FROM sync_log
		ORDER BY completed_at DESC
		LIMIT 5
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var run SyncRun
		var syncType, lga, status *string
		var records *int64
		if err := rows.Scan(&syncType, &lga, &records, &run.StartedAt, &run.CompletedAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan sync log row: %w", err)
		}
		run.SyncType = str(syncType)
		run.LGA = str(lga)
		run.Status = str(status)
		if records != nil {
			run.RecordsSynced = *records
		}
		stats.RecentSyncs = append(stats.RecentSyncs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync log rows: %w", err)
	}

	return stats, nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
