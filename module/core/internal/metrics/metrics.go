package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotwatch_transitions_total",
		Help: "Canonical enter/exit transitions",
	}, []string{"kind", "detected_by"})
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotwatch_notifications_total",
		Help: "Local notifications by kind and outcome",
	}, []string{"kind", "result"})
	SamplesDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotwatch_samples_discarded_total",
		Help: "GPS fixes dropped by the accuracy filter",
	})
	RegionRegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotwatch_region_registrations_total",
		Help: "Region monitoring start requests by outcome",
	}, []string{"result"})
	RegionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotwatch_region_failures_total",
		Help: "Region monitoring failures reported by the device",
	})
	GeocodeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotwatch_geocode_requests_total",
		Help: "Reverse geocode lookups by outcome",
	}, []string{"result"})
	GeocodeCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotwatch_geocode_cache_total",
		Help: "Geocode cache lookups by outcome",
	}, []string{"result"})
	MonitoredRegions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spotwatch_monitored_regions",
		Help: "Regions currently registered with the device",
	})
	TrackedPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spotwatch_tracked_points",
		Help: "Points currently tracked by GPS distance",
	})
)
