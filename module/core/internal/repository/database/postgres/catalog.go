package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/nandanugg/spotwatch/module/core/domain"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/database"
)

var (
	_ database.CatalogRepository = (*CatalogRepo)(nil)
	_ database.CityManifest      = (*CatalogRepo)(nil)
)

type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) ActivePoints(ctx context.Context) ([]domain.PointOfInterest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.group_name, s.city, s.country, s.source, s.latitude, s.longitude, s.radius_meters
		FROM spots s
		JOIN spot_lists l ON l.id = s.list_id
		WHERE l.downloaded AND l.notifications_enabled
		ORDER BY l.position, l.id, s.position, s.id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "query active points")
	}
	defer func() { _ = rows.Close() }()

	var results []domain.PointOfInterest
	for rows.Next() {
		var p domain.PointOfInterest
		if err := rows.Scan(&p.ID, &p.Name, &p.Group, &p.City, &p.Country, &p.Source, &p.Lat, &p.Lon, &p.RadiusMeters); err != nil {
			return nil, eris.Wrap(err, "scan active point")
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func (r *CatalogRepo) ListCities(ctx context.Context) ([]domain.City, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, country FROM cities ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "query cities")
	}
	defer func() { _ = rows.Close() }()

	var results []domain.City
	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Country); err != nil {
			return nil, eris.Wrap(err, "scan city")
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (r *CatalogRepo) IsDownloaded(ctx context.Context, cityID string) (bool, error) {
	return r.cityFlag(ctx, `SELECT downloaded FROM cities WHERE id = $1`, cityID)
}

func (r *CatalogRepo) IsActive(ctx context.Context, cityID string) (bool, error) {
	return r.cityFlag(ctx, `SELECT active FROM cities WHERE id = $1`, cityID)
}

// cityFlag reads a boolean column of one city. Unknown cities read as false.
func (r *CatalogRepo) cityFlag(ctx context.Context, query, cityID string) (bool, error) {
	var v bool
	err := r.db.QueryRowContext(ctx, query, cityID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "read city %s", cityID)
	}
	return v, nil
}
