package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

var jakarta = domain.Coordinate{Lat: -6.2088, Lon: 106.8456}

// offset moves c by the given meters north and east.
func offset(c domain.Coordinate, north, east float64) domain.Coordinate {
	dLat := north / earthRadiusMeters * 180 / math.Pi
	dLon := east / (earthRadiusMeters * math.Cos(toRad(c.Lat))) * 180 / math.Pi
	return domain.Coordinate{Lat: c.Lat + dLat, Lon: c.Lon + dLon}
}

func point(id string, c domain.Coordinate, radius float64) domain.PointOfInterest {
	return domain.PointOfInterest{
		ID:           id,
		Name:         "Spot " + id,
		Group:        "Coffee",
		City:         "Jakarta",
		Country:      "Indonesia",
		Lat:          c.Lat,
		Lon:          c.Lon,
		RadiusMeters: radius,
	}
}

func sample(c domain.Coordinate, accuracy float64, ts time.Time) domain.LocationSample {
	return domain.LocationSample{Position: c, HorizontalAccuracy: accuracy, Timestamp: ts}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockCatalog struct {
	activePointsFn func(ctx context.Context) ([]domain.PointOfInterest, error)
}

func (m *mockCatalog) ActivePoints(ctx context.Context) ([]domain.PointOfInterest, error) {
	return m.activePointsFn(ctx)
}

func staticCatalog(points []domain.PointOfInterest) *mockCatalog {
	return &mockCatalog{
		activePointsFn: func(_ context.Context) ([]domain.PointOfInterest, error) {
			return points, nil
		},
	}
}

type mockProvider struct {
	mu            sync.Mutex
	granted       bool
	authErr       error
	startRegionFn func(id string) error
	monitored     map[string]bool
	started       []string
	stopped       []string
	updatesOn     bool
}

func newMockProvider() *mockProvider {
	return &mockProvider{granted: true, monitored: map[string]bool{}}
}

func (m *mockProvider) RequestAlwaysAuthorization(_ context.Context) (bool, error) {
	return m.granted, m.authErr
}

func (m *mockProvider) StartRegionMonitoring(_ context.Context, id string, _ domain.Coordinate, _ float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startRegionFn != nil {
		if err := m.startRegionFn(id); err != nil {
			return err
		}
	}
	m.monitored[id] = true
	m.started = append(m.started, id)
	return nil
}

func (m *mockProvider) StopRegionMonitoring(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.monitored, id)
	m.stopped = append(m.stopped, id)
	return nil
}

func (m *mockProvider) StartContinuousLocationUpdates(_ context.Context, _, _ float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatesOn = true
	return nil
}

func (m *mockProvider) StopContinuousLocationUpdates(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatesOn = false
	return nil
}

func (m *mockProvider) monitoredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.monitored)
}

type mockDispatcher struct {
	mu    sync.Mutex
	err   error
	calls []*domain.Notification
}

func (m *mockDispatcher) ScheduleLocalNotification(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, n)
	return m.err
}

func (m *mockDispatcher) sent() []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Notification{}, m.calls...)
}

type mockGeocoder struct {
	mu      sync.Mutex
	calls   int
	reverse func(ctx context.Context, pos domain.Coordinate) (*domain.Place, error)
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, pos domain.Coordinate) (*domain.Place, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.reverse(ctx, pos)
}

func (m *mockGeocoder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockManifest struct {
	cities     []domain.City
	downloaded map[string]bool
	active     map[string]bool
	listErr    error
}

func (m *mockManifest) ListCities(_ context.Context) ([]domain.City, error) {
	return m.cities, m.listErr
}

func (m *mockManifest) IsDownloaded(_ context.Context, id string) (bool, error) {
	return m.downloaded[id], nil
}

func (m *mockManifest) IsActive(_ context.Context, id string) (bool, error) {
	return m.active[id], nil
}

func pointsOf(statuses []domain.PointStatus) []domain.PointOfInterest {
	out := make([]domain.PointOfInterest, len(statuses))
	for i, s := range statuses {
		out[i] = s.Point
	}
	return out
}
