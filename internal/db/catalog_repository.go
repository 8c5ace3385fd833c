package db

import (
	"context"
	"fmt"

	"github.com/mkalvans/skyfence/pkg/intercept"
)

// CatalogRepository reads the defence reference catalog. The catalog is
// static from the solver's point of view: each solve call gets one flattened
// snapshot of every (site, interceptor) offering.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Site is one defence site from the catalog.
type Site struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GetOfferings returns the flattened (site, interceptor) offering snapshot
// in stable catalog order. The order matters: the solver breaks exact cost
// ties in favour of the earliest-listed offering.
func (r *CatalogRepository) GetOfferings(ctx context.Context) ([]intercept.Offering, error) {
	query := `
		SELECT
			s.id, s.name, s.latitude, s.longitude,
			it.id, it.name, it.speed_ms, it.range_m, it.max_altitude_m,
			it.price_model, it.price_value_eur
		FROM sites s
		JOIN site_interceptors si ON si.site_id = s.id
		JOIN interceptor_types it ON it.id = si.interceptor_id
		ORDER BY s.id, it.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query offerings: %w", err)
	}
	defer rows.Close()

	var offerings []intercept.Offering
	for rows.Next() {
		var o intercept.Offering
		var priceModel string
		err := rows.Scan(
			&o.SiteID,
			&o.SiteName,
			&o.SiteLat,
			&o.SiteLon,
			&o.InterceptorID,
			&o.InterceptorName,
			&o.SpeedMS,
			&o.RangeM,
			&o.MaxAltitudeM,
			&priceModel,
			&o.PriceValue,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offering: %w", err)
		}
		o.PriceModel = intercept.PriceModel(priceModel)
		offerings = append(offerings, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offerings: %w", err)
	}

	return offerings, nil
}

// GetSites returns all defence sites.
func (r *CatalogRepository) GetSites(ctx context.Context) ([]Site, error) {
	query := `
		SELECT id, name, latitude, longitude
		FROM sites
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sites: %w", err)
	}

	return sites, nil
}
