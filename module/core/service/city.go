package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/nandanugg/spotwatch/module/core/domain"
	"github.com/nandanugg/spotwatch/module/core/internal/metrics"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/database"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/geocoder"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/publisher"
)

const (
	DefaultGeocodeCooldown       = 5 * time.Minute
	DefaultGeocodeDistanceMeters = 5000
	DefaultGeocodeTimeout        = 10 * time.Second
)

type CityDetectorConfig struct {
	Cooldown       time.Duration
	DistanceMeters float64
	Timeout        time.Duration
}

func (c CityDetectorConfig) withDefaults() CityDetectorConfig {
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultGeocodeCooldown
	}
	if c.DistanceMeters <= 0 {
		c.DistanceMeters = DefaultGeocodeDistanceMeters
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultGeocodeTimeout
	}
	return c
}

// CityDetector notices when the user is in a different city than the last
// one it resolved, and prompts to download or switch to it.
type CityDetector struct {
	cfg        CityDetectorConfig
	geocoder   geocoder.ReverseGeocoder
	manifest   database.CityManifest
	dispatcher publisher.NotificationDispatcher
	log        *zap.Logger

	mu    sync.Mutex
	state domain.CityDetectionState
	// generation is the monitor session the detector currently serves.
	generation uint64
	inflight   sync.WaitGroup
}

func NewCityDetector(cfg CityDetectorConfig, gc geocoder.ReverseGeocoder, manifest database.CityManifest, dispatcher publisher.NotificationDispatcher, log *zap.Logger) *CityDetector {
	return &CityDetector{
		cfg:        cfg.withDefaults(),
		geocoder:   gc,
		manifest:   manifest,
		dispatcher: dispatcher,
		log:        log.Named("city"),
	}
}

// OnLocationSample starts a reverse geocode when both the time and distance
// gates pass. It never waits for the lookup and reports whether one started.
// Samples from a session other than the current one are ignored.
func (d *CityDetector) OnLocationSample(ctx context.Context, gen uint64, pos domain.Coordinate, now time.Time) bool {
	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		d.log.Debug("ignoring sample from an ended session", zap.Uint64("generation", gen))
		return false
	}
	if !d.state.LastGeocodeAttemptAt.IsZero() && now.Sub(d.state.LastGeocodeAttemptAt) < d.cfg.Cooldown {
		d.mu.Unlock()
		return false
	}
	if last := d.state.LastGeocodedLocation; last != nil && Distance(pos, *last) < d.cfg.DistanceMeters {
		d.mu.Unlock()
		return false
	}
	d.state.LastGeocodeAttemptAt = now
	at := pos
	d.state.LastGeocodedLocation = &at
	d.inflight.Add(1)
	d.mu.Unlock()

	go d.lookup(context.WithoutCancel(ctx), pos, gen)
	return true
}

func (d *CityDetector) lookup(ctx context.Context, pos domain.Coordinate, gen uint64) {
	defer d.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	place, err := d.geocoder.ReverseGeocode(ctx, pos)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		d.log.Warn("reverse geocode failed",
			zap.Float64("lat", pos.Lat),
			zap.Float64("lon", pos.Lon),
			zap.Error(err),
		)
		return
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("ok").Inc()

	n := d.classify(ctx, place, gen)
	if n == nil {
		return
	}

	if !d.current(gen) {
		d.log.Debug("session ended before city prompt, dropping", zap.String("city", place.City))
		return
	}
	if err := d.dispatcher.ScheduleLocalNotification(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "failed").Inc()
		d.log.Warn("city notification failed", zap.String("kind", string(n.Kind)), zap.Error(err))
		return
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
}

func (d *CityDetector) classify(ctx context.Context, place *domain.Place, gen uint64) *domain.Notification {
	if place == nil || place.City == "" {
		d.log.Debug("geocode returned no city")
		return nil
	}

	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		d.log.Debug("discarding geocode result from a stopped session", zap.String("city", place.City))
		return nil
	}
	if sameName(place.City, d.state.LastCityName) && sameName(place.Country, d.state.LastCountryName) {
		d.mu.Unlock()
		return nil
	}
	d.state.LastCityName = place.City
	d.state.LastCountryName = place.Country
	d.mu.Unlock()

	d.log.Info("city changed", zap.String("city", place.City), zap.String("country", place.Country))

	cities, err := d.manifest.ListCities(ctx)
	if err != nil {
		d.log.Warn("list cities failed", zap.Error(err))
		return nil
	}
	city, ok := matchCity(cities, place)
	if !ok {
		return nil
	}

	downloaded, err := d.manifest.IsDownloaded(ctx, city.ID)
	if err != nil {
		d.log.Warn("city download lookup failed", zap.String("city_id", city.ID), zap.Error(err))
		return nil
	}
	if !downloaded {
		return cityNotification(domain.NotificationCityAvailable, city)
	}

	active, err := d.manifest.IsActive(ctx, city.ID)
	if err != nil {
		d.log.Warn("active city lookup failed", zap.String("city_id", city.ID), zap.Error(err))
		return nil
	}
	if active {
		return nil
	}
	return cityNotification(domain.NotificationCitySwitch, city)
}

func (d *CityDetector) current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.generation
}

// Reset clears the detection state and binds the detector to session gen.
// Lookups still in flight finish but their results are ignored.
func (d *CityDetector) Reset(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = domain.CityDetectionState{}
	d.generation = gen
}

func (d *CityDetector) State() domain.CityDetectionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	if s.LastGeocodedLocation != nil {
		loc := *s.LastGeocodedLocation
		s.LastGeocodedLocation = &loc
	}
	return s
}

// Wait blocks until every started lookup has returned.
func (d *CityDetector) Wait() {
	d.inflight.Wait()
}

func matchCity(cities []domain.City, place *domain.Place) (domain.City, bool) {
	for _, c := range cities {
		if sameName(c.Name, place.City) && sameName(c.Country, place.Country) {
			return c, true
		}
	}
	return domain.City{}, false
}

func sameName(a, b string) bool {
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}
