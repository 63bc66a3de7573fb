package service

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func spotNotification(p domain.PointOfInterest, tr domain.Transition) *domain.Notification {
	body := fmt.Sprintf("You're close to %s.", p.Name)
	if tr.DistanceKnown {
		body = fmt.Sprintf("You're %.0f m from %s.", tr.DistanceMeters, p.Name)
	}
	if p.Group != "" {
		body += " Saved in " + p.Group + "."
	}

	meta := map[string]string{
		"kind":        string(domain.NotificationSpotNearby),
		"point_id":    p.ID,
		"name":        p.Name,
		"group":       p.Group,
		"city":        p.City,
		"country":     p.Country,
		"source":      p.Source,
		"latitude":    formatFloat(p.Lat),
		"longitude":   formatFloat(p.Lon),
		"radius":      formatFloat(p.RadiusMeters),
		"detected_by": string(tr.DetectedBy),
	}
	if tr.DistanceKnown {
		meta["distance_meters"] = strconv.FormatFloat(tr.DistanceMeters, 'f', 1, 64)
	}

	return &domain.Notification{
		ID:       uuid.NewString(),
		Kind:     domain.NotificationSpotNearby,
		Title:    p.Name,
		Body:     body,
		Metadata: meta,
	}
}

func cityNotification(kind domain.NotificationKind, c domain.City) *domain.Notification {
	n := &domain.Notification{
		ID:   uuid.NewString(),
		Kind: kind,
		Metadata: map[string]string{
			"kind":      string(kind),
			"city_id":   c.ID,
			"city_name": c.Name,
			"country":   c.Country,
		},
	}
	switch kind {
	case domain.NotificationCityAvailable:
		n.Title = fmt.Sprintf("Welcome to %s", c.Name)
		n.Body = fmt.Sprintf("Spots for %s, %s are available to download.", c.Name, c.Country)
	case domain.NotificationCitySwitch:
		n.Title = fmt.Sprintf("You're in %s", c.Name)
		n.Body = fmt.Sprintf("Switch your active city to %s?", c.Name)
	}
	return n
}
