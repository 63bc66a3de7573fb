package service

import (
	"time"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

const DefaultMaxAccuracyMeters = 50

// ProximityTracker holds the inside/outside state of every tracked point and
// turns region callbacks and GPS fixes into canonical transitions.
// It is not safe for concurrent use; MonitorService serializes access.
type ProximityTracker struct {
	maxAccuracy float64
	order       []string
	points      map[string]domain.PointOfInterest
	states      map[string]*domain.Membership
}

func NewProximityTracker(maxAccuracyMeters float64) *ProximityTracker {
	if maxAccuracyMeters <= 0 {
		maxAccuracyMeters = DefaultMaxAccuracyMeters
	}
	return &ProximityTracker{
		maxAccuracy: maxAccuracyMeters,
		points:      map[string]domain.PointOfInterest{},
		states:      map[string]*domain.Membership{},
	}
}

// Load replaces the tracked set. Every point starts Unknown.
func (t *ProximityTracker) Load(points []domain.PointOfInterest) {
	t.Reset()
	for _, p := range points {
		t.order = append(t.order, p.ID)
		t.points[p.ID] = p
		t.states[p.ID] = &domain.Membership{State: domain.StateUnknown}
	}
}

func (t *ProximityTracker) Reset() {
	t.order = nil
	t.points = map[string]domain.PointOfInterest{}
	t.states = map[string]*domain.Membership{}
}

func (t *ProximityTracker) Len() int {
	return len(t.order)
}

func (t *ProximityTracker) Tracks(id string) bool {
	_, ok := t.states[id]
	return ok
}

func (t *ProximityTracker) Point(id string) (domain.PointOfInterest, bool) {
	p, ok := t.points[id]
	return p, ok
}

func (t *ProximityTracker) Membership(id string) (domain.Membership, bool) {
	m, ok := t.states[id]
	if !ok {
		return domain.Membership{}, false
	}
	return *m, true
}

// Accepts reports whether a fix is precise enough to evaluate.
func (t *ProximityTracker) Accepts(s domain.LocationSample) bool {
	return s.HorizontalAccuracy >= 0 && s.HorizontalAccuracy <= t.maxAccuracy
}

func (t *ProximityTracker) RegionEnter(id string, at time.Time) (domain.Transition, bool) {
	m, ok := t.states[id]
	if !ok || m.State == domain.StateInside {
		return domain.Transition{}, false
	}
	m.State = domain.StateInside
	return domain.Transition{
		PointID:        id,
		Kind:           domain.TransitionEnter,
		DistanceMeters: m.LastDistanceMeters,
		DistanceKnown:  m.DistanceKnown,
		DetectedBy:     domain.DetectedByRegion,
		At:             at,
	}, true
}

func (t *ProximityTracker) RegionExit(id string, at time.Time) (domain.Transition, bool) {
	m, ok := t.states[id]
	if !ok {
		return domain.Transition{}, false
	}
	prev := m.State
	m.State = domain.StateOutside
	if prev != domain.StateInside {
		return domain.Transition{}, false
	}
	return domain.Transition{
		PointID:        id,
		Kind:           domain.TransitionExit,
		DistanceMeters: m.LastDistanceMeters,
		DistanceKnown:  m.DistanceKnown,
		DetectedBy:     domain.DetectedByRegion,
		At:             at,
	}, true
}

// Sample evaluates a fix against every tracked point, in catalog order.
// Fixes failing the accuracy filter produce nothing and touch no state.
func (t *ProximityTracker) Sample(s domain.LocationSample) []domain.Transition {
	if !t.Accepts(s) {
		return nil
	}

	var out []domain.Transition
	for _, id := range t.order {
		p := t.points[id]
		m := t.states[id]

		d := Distance(s.Position, p.Coordinate())
		m.LastDistanceMeters = d
		m.DistanceKnown = true

		inside := d <= p.RadiusMeters
		switch {
		case inside && m.State != domain.StateInside:
			m.State = domain.StateInside
			out = append(out, domain.Transition{
				PointID:        id,
				Kind:           domain.TransitionEnter,
				DistanceMeters: d,
				DistanceKnown:  true,
				DetectedBy:     domain.DetectedByGPS,
				At:             s.Timestamp,
			})
		case !inside && m.State == domain.StateInside:
			m.State = domain.StateOutside
			out = append(out, domain.Transition{
				PointID:        id,
				Kind:           domain.TransitionExit,
				DistanceMeters: d,
				DistanceKnown:  true,
				DetectedBy:     domain.DetectedByGPS,
				At:             s.Timestamp,
			})
		case !inside:
			m.State = domain.StateOutside
		}
	}
	return out
}

func (t *ProximityTracker) Snapshot() []domain.PointStatus {
	out := make([]domain.PointStatus, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, domain.PointStatus{
			Point:      t.points[id],
			Membership: *t.states[id],
		})
	}
	return out
}
