package geocoder

import (
	"context"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, pos domain.Coordinate) (*domain.Place, error)
}
