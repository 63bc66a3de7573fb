package domain

import (
	"time"

	"github.com/rotisserie/eris"
)

type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return eris.New("latitude: must be between -90 and 90")
	}
	if c.Lon < -180 || c.Lon > 180 {
		return eris.New("longitude: must be between -180 and 180")
	}
	return nil
}

// LocationSample is a single GPS fix reported by the device.
// HorizontalAccuracy is the 1-sigma radius in meters; negative means invalid.
type LocationSample struct {
	Position           Coordinate `json:"position"`
	HorizontalAccuracy float64    `json:"horizontal_accuracy"`
	Timestamp          time.Time  `json:"timestamp"`
}
