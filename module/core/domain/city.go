package domain

import "time"

// City is an entry of the downloadable city manifest.
type City struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Place is the coarse result of a reverse geocode lookup.
type Place struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

type CityDetectionState struct {
	LastCityName         string      `json:"last_city_name"`
	LastCountryName      string      `json:"last_country_name"`
	LastGeocodedLocation *Coordinate `json:"last_geocoded_location,omitempty"`
	LastGeocodeAttemptAt time.Time   `json:"last_geocode_attempt_at"`
}
