package service

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nandanugg/spotwatch/module/core/domain"
	"github.com/nandanugg/spotwatch/module/core/internal/metrics"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/database"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/device"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/publisher"
)

const (
	DefaultReselectDistanceMeters = 1000
	DefaultDesiredAccuracyMeters  = 10
	DefaultMinDistanceMeters      = 25
)

type MonitorConfig struct {
	MonitoredLimit         int
	ReselectDistanceMeters float64
	MaxAccuracyMeters      float64
	NotificationCooldown   time.Duration
	DesiredAccuracyMeters  float64
	MinDistanceMeters      float64
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.MonitoredLimit <= 0 {
		c.MonitoredLimit = DefaultMonitoredLimit
	}
	if c.ReselectDistanceMeters <= 0 {
		c.ReselectDistanceMeters = DefaultReselectDistanceMeters
	}
	if c.MaxAccuracyMeters <= 0 {
		c.MaxAccuracyMeters = DefaultMaxAccuracyMeters
	}
	if c.NotificationCooldown <= 0 {
		c.NotificationCooldown = DefaultNotificationCooldown
	}
	if c.DesiredAccuracyMeters <= 0 {
		c.DesiredAccuracyMeters = DefaultDesiredAccuracyMeters
	}
	if c.MinDistanceMeters <= 0 {
		c.MinDistanceMeters = DefaultMinDistanceMeters
	}
	return c
}

// MonitorService owns one monitoring session. Region callbacks and GPS
// fixes arrive on independent goroutines; all of them go through mu, so
// membership and notification state only change under it, in arrival order.
type MonitorService struct {
	cfg        MonitorConfig
	catalog    database.CatalogRepository
	provider   device.LocationProvider
	dispatcher publisher.NotificationDispatcher
	city       *CityDetector
	log        *zap.Logger
	now        func() time.Time

	mu              sync.Mutex
	active          bool
	generation      uint64
	points          []domain.PointOfInterest
	tracker         *ProximityTracker
	gate            *NotificationGate
	regions         []string
	anchor          *domain.Coordinate
	selectionAnchor *domain.Coordinate
}

// NewMonitorService wires a session owner. city may be nil to disable city detection.
func NewMonitorService(cfg MonitorConfig, catalog database.CatalogRepository, provider device.LocationProvider, dispatcher publisher.NotificationDispatcher, city *CityDetector, log *zap.Logger) *MonitorService {
	cfg = cfg.withDefaults()
	return &MonitorService{
		cfg:        cfg,
		catalog:    catalog,
		provider:   provider,
		dispatcher: dispatcher,
		city:       city,
		log:        log.Named("monitor"),
		now:        time.Now,
		tracker:    NewProximityTracker(cfg.MaxAccuracyMeters),
		gate:       NewNotificationGate(cfg.NotificationCooldown),
	}
}

// Start begins a session. Denied or failed authorization leaves the monitor
// idle without error; an invalid catalog is returned and nothing is started.
func (s *MonitorService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil
	}

	granted, err := s.provider.RequestAlwaysAuthorization(ctx)
	if err != nil {
		s.log.Warn("authorization request failed, staying idle", zap.Error(err))
		return nil
	}
	if !granted {
		s.log.Info("location authorization not granted, staying idle")
		return nil
	}

	points, err := s.loadCatalog(ctx)
	if err != nil {
		return err
	}

	s.points = points
	s.tracker.Load(points)
	s.gate.Reset()
	s.active = true
	s.generation++
	if s.city != nil {
		s.city.Reset(s.generation)
	}
	metrics.TrackedPoints.Set(float64(len(points)))

	s.registerRegions(ctx)
	if err := s.provider.StartContinuousLocationUpdates(ctx, s.cfg.DesiredAccuracyMeters, s.cfg.MinDistanceMeters); err != nil {
		s.log.Warn("start continuous updates failed", zap.Error(err))
	}

	s.log.Info("monitoring started",
		zap.Int("points", len(points)),
		zap.Int("regions", len(s.regions)),
		zap.Uint64("generation", s.generation),
	)
	return nil
}

// Stop tears the session down. Memberships, notification records and city
// state are cleared before it returns.
func (s *MonitorService) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}

	s.unregisterRegions(ctx)
	if err := s.provider.StopContinuousLocationUpdates(ctx); err != nil {
		s.log.Warn("stop continuous updates failed", zap.Error(err))
	}

	s.tracker.Reset()
	s.gate.Reset()
	s.points = nil
	s.selectionAnchor = nil
	s.active = false
	s.generation++
	if s.city != nil {
		s.city.Reset(s.generation)
	}
	metrics.TrackedPoints.Set(0)
	gen := s.generation
	s.mu.Unlock()

	s.log.Info("monitoring stopped", zap.Uint64("generation", gen))
}

// Reload replaces the catalog of a running session and re-registers every
// region. An inactive monitor is started instead. When the new catalog is
// invalid the running session keeps its current points.
func (s *MonitorService) Reload(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return s.Start(ctx)
	}
	defer s.mu.Unlock()

	points, err := s.loadCatalog(ctx)
	if err != nil {
		return err
	}

	s.unregisterRegions(ctx)
	s.points = points
	s.tracker.Load(points)
	metrics.TrackedPoints.Set(float64(len(points)))
	s.registerRegions(ctx)

	s.log.Info("catalog reloaded", zap.Int("points", len(points)), zap.Int("regions", len(s.regions)))
	return nil
}

func (s *MonitorService) loadCatalog(ctx context.Context) ([]domain.PointOfInterest, error) {
	points, err := s.catalog.ActivePoints(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load catalog")
	}
	if err := domain.ValidateCatalog(points); err != nil {
		s.log.Warn("rejecting catalog", zap.Error(err))
		return nil, eris.Wrap(err, "validate catalog")
	}
	return points, nil
}

// registerRegions registers the current selection. The previous set must
// already be torn down.
func (s *MonitorService) registerRegions(ctx context.Context) {
	selected := SelectRegions(s.points, s.anchor, s.cfg.MonitoredLimit)
	s.regions = make([]string, 0, len(selected))
	for _, p := range selected {
		if err := s.provider.StartRegionMonitoring(ctx, p.ID, p.Coordinate(), p.RadiusMeters); err != nil {
			metrics.RegionRegistrationsTotal.WithLabelValues("failed").Inc()
			s.log.Warn("start region monitoring failed", zap.String("point_id", p.ID), zap.Error(err))
			continue
		}
		metrics.RegionRegistrationsTotal.WithLabelValues("ok").Inc()
		s.regions = append(s.regions, p.ID)
	}
	if s.anchor != nil {
		a := *s.anchor
		s.selectionAnchor = &a
	} else {
		s.selectionAnchor = nil
	}
	metrics.MonitoredRegions.Set(float64(len(s.regions)))
}

func (s *MonitorService) unregisterRegions(ctx context.Context) {
	for _, id := range s.regions {
		if err := s.provider.StopRegionMonitoring(ctx, id); err != nil {
			s.log.Warn("stop region monitoring failed", zap.String("point_id", id), zap.Error(err))
		}
	}
	s.regions = nil
	metrics.MonitoredRegions.Set(0)
}

// reselect re-runs region selection when the user has moved far enough
// from the anchor of the last selection. It is a no-op while the whole
// catalog fits under the limit.
func (s *MonitorService) reselect(ctx context.Context) {
	if len(s.points) <= s.cfg.MonitoredLimit || s.anchor == nil {
		return
	}
	if s.selectionAnchor != nil && Distance(*s.selectionAnchor, *s.anchor) <= s.cfg.ReselectDistanceMeters {
		return
	}
	s.log.Debug("reselecting regions", zap.Float64("lat", s.anchor.Lat), zap.Float64("lon", s.anchor.Lon))
	s.unregisterRegions(ctx)
	s.registerRegions(ctx)
}

func (s *MonitorService) HandleRegionEnter(ctx context.Context, id string) {
	s.handleRegion(ctx, id, domain.TransitionEnter)
}

func (s *MonitorService) HandleRegionExit(ctx context.Context, id string) {
	s.handleRegion(ctx, id, domain.TransitionExit)
}

func (s *MonitorService) handleRegion(ctx context.Context, id string, kind domain.TransitionKind) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	if !s.tracker.Tracks(id) {
		s.mu.Unlock()
		s.log.Debug("region event for untracked point", zap.String("point_id", id), zap.String("kind", string(kind)))
		return
	}

	var (
		tr domain.Transition
		ok bool
	)
	if kind == domain.TransitionEnter {
		tr, ok = s.tracker.RegionEnter(id, s.now())
	} else {
		tr, ok = s.tracker.RegionExit(id, s.now())
	}
	var pending []*domain.Notification
	if ok {
		if n := s.onTransition(tr); n != nil {
			pending = append(pending, n)
		}
	}
	gen := s.generation
	s.mu.Unlock()

	s.dispatch(ctx, gen, pending)
}

// HandleRegionFailed records a region the device could not monitor. The
// point keeps its last state and stays tracked by GPS.
func (s *MonitorService) HandleRegionFailed(_ context.Context, id string, cause error) {
	metrics.RegionFailuresTotal.Inc()
	s.log.Warn("region monitoring failed", zap.String("point_id", id), zap.Error(cause))
}

func (s *MonitorService) HandleLocationSample(ctx context.Context, sample domain.LocationSample) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}

	var pending []*domain.Notification
	accepted := s.tracker.Accepts(sample)
	if accepted {
		pos := sample.Position
		s.anchor = &pos
		s.reselect(ctx)
		for _, tr := range s.tracker.Sample(sample) {
			if n := s.onTransition(tr); n != nil {
				pending = append(pending, n)
			}
		}
	} else {
		metrics.SamplesDiscardedTotal.Inc()
		s.log.Debug("discarding imprecise fix", zap.Float64("accuracy", sample.HorizontalAccuracy))
	}
	now := s.now()
	gen := s.generation
	s.mu.Unlock()

	s.dispatch(ctx, gen, pending)

	if s.city != nil && accepted {
		s.city.OnLocationSample(ctx, gen, sample.Position, now)
	}
}

// onTransition logs a canonical transition and returns the alert to send,
// if the gate lets one through. Exits never alert.
func (s *MonitorService) onTransition(tr domain.Transition) *domain.Notification {
	metrics.TransitionsTotal.WithLabelValues(string(tr.Kind), string(tr.DetectedBy)).Inc()
	s.log.Info("transition",
		zap.String("point_id", tr.PointID),
		zap.String("kind", string(tr.Kind)),
		zap.String("detected_by", string(tr.DetectedBy)),
		zap.Float64("distance", tr.DistanceMeters),
	)

	if tr.Kind != domain.TransitionEnter {
		return nil
	}
	now := s.now()
	if !s.gate.ShouldNotify(tr.PointID, now) {
		metrics.NotificationsTotal.WithLabelValues(string(domain.NotificationSpotNearby), "suppressed").Inc()
		s.log.Debug("notification suppressed by cooldown", zap.String("point_id", tr.PointID))
		return nil
	}
	s.gate.RecordNotified(tr.PointID, now)

	p, _ := s.tracker.Point(tr.PointID)
	return spotNotification(p, tr)
}

// dispatch sends alerts built under session gen. Whatever is left once the
// session has ended is dropped.
func (s *MonitorService) dispatch(ctx context.Context, gen uint64, pending []*domain.Notification) {
	for i, n := range pending {
		if !s.current(gen) {
			metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "dropped").Add(float64(len(pending) - i))
			s.log.Debug("session ended, dropping pending alerts", zap.Int("count", len(pending)-i))
			return
		}
		if err := s.dispatcher.ScheduleLocalNotification(ctx, n); err != nil {
			metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "failed").Inc()
			s.log.Warn("schedule notification failed", zap.String("point_id", n.Metadata["point_id"]), zap.Error(err))
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
	}
}

func (s *MonitorService) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.generation == gen
}

func (s *MonitorService) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *MonitorService) Status() *domain.MonitorStatus {
	s.mu.Lock()
	st := &domain.MonitorStatus{
		Active:     s.active,
		Generation: s.generation,
		Regions:    append([]string{}, s.regions...),
		Points:     s.tracker.Snapshot(),
	}
	if s.anchor != nil {
		a := *s.anchor
		st.Anchor = &a
	}
	registered := make(map[string]struct{}, len(s.regions))
	for _, id := range s.regions {
		registered[id] = struct{}{}
	}
	for i := range st.Points {
		_, st.Points[i].Registered = registered[st.Points[i].Point.ID]
	}
	s.mu.Unlock()

	if s.city != nil {
		c := s.city.State()
		st.City = &c
	}
	return st
}
