package domain

type NotificationKind string

const (
	NotificationSpotNearby    NotificationKind = "spot_nearby"
	NotificationCityAvailable NotificationKind = "city_available"
	NotificationCitySwitch    NotificationKind = "city_switch"
)

// Notification is a local alert scheduled on the device. Metadata carries
// enough to act on a tap without another catalog lookup.
type Notification struct {
	ID       string            `json:"id"`
	Kind     NotificationKind  `json:"kind"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata"`
}
