package service

import (
	"sort"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

const DefaultMonitoredLimit = 20

// SelectRegions picks the points to register for OS region monitoring.
// Without an anchor it keeps catalog order; with one it keeps the limit
// nearest points, ties resolved by catalog order.
func SelectRegions(points []domain.PointOfInterest, anchor *domain.Coordinate, limit int) []domain.PointOfInterest {
	if len(points) == 0 || limit <= 0 {
		return []domain.PointOfInterest{}
	}

	if anchor == nil {
		n := min(limit, len(points))
		out := make([]domain.PointOfInterest, n)
		copy(out, points[:n])
		return out
	}

	type ranked struct {
		point    domain.PointOfInterest
		distance float64
	}
	rs := make([]ranked, len(points))
	for i, p := range points {
		rs[i] = ranked{point: p, distance: Distance(*anchor, p.Coordinate())}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].distance < rs[j].distance
	})

	n := min(limit, len(rs))
	out := make([]domain.PointOfInterest, n)
	for i := range out {
		out[i] = rs[i].point
	}
	return out
}
