package device

import (
	"context"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

// LocationProvider drives the device's location primitives. Callbacks flow
// back separately, through the device subscriber.
type LocationProvider interface {
	RequestAlwaysAuthorization(ctx context.Context) (bool, error)
	StartRegionMonitoring(ctx context.Context, id string, center domain.Coordinate, radiusMeters float64) error
	StopRegionMonitoring(ctx context.Context, id string) error
	StartContinuousLocationUpdates(ctx context.Context, desiredAccuracyMeters, minDistanceMeters float64) error
	StopContinuousLocationUpdates(ctx context.Context) error
}
