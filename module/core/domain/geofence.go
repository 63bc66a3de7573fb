package domain

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var (
	ErrEmptyCatalog = eris.New("catalog is empty")
	ErrInvalidPoint = eris.New("invalid point of interest")
)

// PointOfInterest is a saved spot with its notification radius.
type PointOfInterest struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Group        string  `json:"group"`
	City         string  `json:"city"`
	Country      string  `json:"country"`
	Source       string  `json:"source"`
	Lat          float64 `json:"latitude"`
	Lon          float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

func (p PointOfInterest) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lon: p.Lon}
}

func (p PointOfInterest) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return eris.Wrap(ErrInvalidPoint, "id: required")
	}
	if p.RadiusMeters <= 0 {
		return eris.Wrapf(ErrInvalidPoint, "%s: radius must be positive", p.ID)
	}
	if err := p.Coordinate().Validate(); err != nil {
		return eris.Wrapf(ErrInvalidPoint, "%s: %v", p.ID, err)
	}
	return nil
}

// ValidateCatalog rejects a catalog that cannot be monitored as a whole.
func ValidateCatalog(points []PointOfInterest) error {
	if len(points) == 0 {
		return ErrEmptyCatalog
	}
	seen := make(map[string]struct{}, len(points))
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, ok := seen[p.ID]; ok {
			return eris.Wrapf(ErrInvalidPoint, "%s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

type MembershipState string

const (
	StateUnknown MembershipState = "unknown"
	StateOutside MembershipState = "outside"
	StateInside  MembershipState = "inside"
)

type Membership struct {
	State              MembershipState `json:"state"`
	LastDistanceMeters float64         `json:"last_distance_meters"`
	DistanceKnown      bool            `json:"distance_known"`
}

type TransitionKind string

const (
	TransitionEnter TransitionKind = "enter"
	TransitionExit  TransitionKind = "exit"
)

type Detector string

const (
	DetectedByRegion Detector = "region"
	DetectedByGPS    Detector = "gps"
)

// Transition is the canonical enter/exit event, emitted once per state change
// whichever detector observed it.
type Transition struct {
	PointID        string         `json:"point_id"`
	Kind           TransitionKind `json:"kind"`
	DistanceMeters float64        `json:"distance_meters"`
	DistanceKnown  bool           `json:"distance_known"`
	DetectedBy     Detector       `json:"detected_by"`
	At             time.Time      `json:"at"`
}

type PointStatus struct {
	Point      PointOfInterest `json:"point"`
	Membership Membership      `json:"membership"`
	Registered bool            `json:"registered"`
}

type MonitorStatus struct {
	Active     bool                `json:"active"`
	Generation uint64              `json:"generation"`
	Regions    []string            `json:"regions"`
	Anchor     *Coordinate         `json:"anchor,omitempty"`
	Points     []PointStatus       `json:"points"`
	City       *CityDetectionState `json:"city,omitempty"`
}
