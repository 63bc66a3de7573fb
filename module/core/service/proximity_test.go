package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

var t0 = time.Unix(1715003456, 0)

func newTracker(points ...domain.PointOfInterest) *ProximityTracker {
	tr := NewProximityTracker(50)
	tr.Load(points)
	return tr
}

func TestProximityTracker_InitialStateUnknown(t *testing.T) {
	tr := newTracker(point("p1", jakarta, 100))

	m, ok := tr.Membership("p1")
	require.True(t, ok)
	assert.Equal(t, domain.StateUnknown, m.State)
	assert.False(t, m.DistanceKnown)
}

func TestProximityTracker_BoundaryIsInclusive(t *testing.T) {
	at := offset(jakarta, 100, 0)
	radius := Distance(at, jakarta)
	tr := newTracker(point("p1", jakarta, radius))

	got := tr.Sample(sample(at, 5, t0))

	require.Len(t, got, 1)
	assert.Equal(t, domain.TransitionEnter, got[0].Kind)
	assert.Equal(t, domain.DetectedByGPS, got[0].DetectedBy)
	assert.Equal(t, radius, got[0].DistanceMeters)
}

func TestProximityTracker_DistanceSequence(t *testing.T) {
	tr := newTracker(point("p1", jakarta, 100))

	var enters, exits []float64
	for _, d := range []float64{150, 90, 95, 110} {
		for _, ev := range tr.Sample(sample(offset(jakarta, d, 0), 10, t0)) {
			switch ev.Kind {
			case domain.TransitionEnter:
				enters = append(enters, d)
			case domain.TransitionExit:
				exits = append(exits, d)
			}
		}
	}

	assert.Equal(t, []float64{90}, enters)
	assert.Equal(t, []float64{110}, exits)
	m, _ := tr.Membership("p1")
	assert.Equal(t, domain.StateOutside, m.State)
	assert.InDelta(t, 110, m.LastDistanceMeters, 0.01)
}

func TestProximityTracker_UnknownToOutsideIsSilent(t *testing.T) {
	tr := newTracker(point("p1", jakarta, 100))

	got := tr.Sample(sample(offset(jakarta, 500, 0), 10, t0))

	assert.Empty(t, got)
	m, _ := tr.Membership("p1")
	assert.Equal(t, domain.StateOutside, m.State)
}

func TestProximityTracker_ImpreciseFixDiscarded(t *testing.T) {
	tr := newTracker(point("p1", jakarta, 100))

	got := tr.Sample(sample(jakarta, 80, t0))

	assert.Empty(t, got)
	m, _ := tr.Membership("p1")
	assert.Equal(t, domain.StateUnknown, m.State)
	assert.False(t, m.DistanceKnown, "discarded fix must not be evaluated")
}

func TestProximityTracker_NegativeAccuracyDiscarded(t *testing.T) {
	tr := newTracker(point("p1", jakarta, 100))

	assert.Empty(t, tr.Sample(sample(jakarta, -1, t0)))
	assert.False(t, tr.Accepts(sample(jakarta, -1, t0)))
	assert.True(t, tr.Accepts(sample(jakarta, 50, t0)))
}

func TestProximityTracker_RegionEnterIdempotent(t *testing.T) {
	tr := newTracker(point("p1", jakarta, 100))

	first, ok := tr.RegionEnter("p1", t0)
	require.True(t, ok)
	assert.Equal(t, domain.TransitionEnter, first.Kind)
	assert.Equal(t, domain.DetectedByRegion, first.DetectedBy)
	assert.False(t, first.DistanceKnown)

	_, ok = tr.RegionEnter("p1", t0.Add(time.Second))
	assert.False(t, ok)
}

func TestProximityTracker_CrossSignalDedup(t *testing.T) {
	t.Run("gps after region", func(t *testing.T) {
		tr := newTracker(point("p1", jakarta, 100))
		_, ok := tr.RegionEnter("p1", t0)
		require.True(t, ok)

		assert.Empty(t, tr.Sample(sample(offset(jakarta, 20, 0), 5, t0)))
	})

	t.Run("region after gps", func(t *testing.T) {
		tr := newTracker(point("p1", jakarta, 100))
		require.Len(t, tr.Sample(sample(offset(jakarta, 20, 0), 5, t0)), 1)

		_, ok := tr.RegionEnter("p1", t0)
		assert.False(t, ok)
	})
}

func TestProximityTracker_RegionExit(t *testing.T) {
	tr := newTracker(point("p1", jakarta, 100))

	_, ok := tr.RegionExit("p1", t0)
	assert.False(t, ok, "exit without a prior enter is silent")

	tr.Sample(sample(offset(jakarta, 30, 0), 5, t0))
	ev, ok := tr.RegionExit("p1", t0)
	require.True(t, ok)
	assert.Equal(t, domain.TransitionExit, ev.Kind)
	assert.True(t, ev.DistanceKnown)
	assert.InDelta(t, 30, ev.DistanceMeters, 0.01)

	_, ok = tr.RegionExit("p1", t0)
	assert.False(t, ok)
	assert.Empty(t, tr.Sample(sample(offset(jakarta, 300, 0), 5, t0)))
}

func TestProximityTracker_UntrackedRegion(t *testing.T) {
	tr := newTracker(point("p1", jakarta, 100))

	_, ok := tr.RegionEnter("nope", t0)
	assert.False(t, ok)
	_, ok = tr.RegionExit("nope", t0)
	assert.False(t, ok)
	assert.False(t, tr.Tracks("nope"))
}

func TestProximityTracker_MultiplePoints(t *testing.T) {
	tr := newTracker(
		point("a", jakarta, 50),
		point("b", jakarta, 100), // overlapping
		point("c", offset(jakarta, 5000, 0), 50),
	)

	got := tr.Sample(sample(jakarta, 5, t0))

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].PointID)
	assert.Equal(t, "b", got[1].PointID)
}

func TestProximityTracker_LoadResetsState(t *testing.T) {
	tr := newTracker(point("p1", jakarta, 100))
	tr.Sample(sample(jakarta, 5, t0))

	tr.Load([]domain.PointOfInterest{point("p1", jakarta, 100)})

	m, _ := tr.Membership("p1")
	assert.Equal(t, domain.StateUnknown, m.State)
	assert.Equal(t, 1, tr.Len())

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Snapshot())
}
