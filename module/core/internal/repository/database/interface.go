package database

import (
	"context"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

// CatalogRepository returns the points that participate in monitoring:
// spots whose list is downloaded and has notifications enabled.
type CatalogRepository interface {
	ActivePoints(ctx context.Context) ([]domain.PointOfInterest, error)
}

type CityManifest interface {
	ListCities(ctx context.Context) ([]domain.City, error)
	IsDownloaded(ctx context.Context, cityID string) (bool, error)
	IsActive(ctx context.Context, cityID string) (bool, error)
}
