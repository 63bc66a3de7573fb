package service

import (
	"time"
)

const DefaultNotificationCooldown = 60 * time.Second

// NotificationGate throttles alerts per point id. It does not care which
// detector produced the candidate alert.
type NotificationGate struct {
	cooldown time.Duration
	last     map[string]time.Time
}

func NewNotificationGate(cooldown time.Duration) *NotificationGate {
	if cooldown <= 0 {
		cooldown = DefaultNotificationCooldown
	}
	return &NotificationGate{cooldown: cooldown, last: map[string]time.Time{}}
}

func (g *NotificationGate) ShouldNotify(id string, now time.Time) bool {
	last, ok := g.last[id]
	if !ok {
		return true
	}
	return now.Sub(last) >= g.cooldown
}

// RecordNotified stamps id. It is called before the send so a failed
// delivery still counts.
func (g *NotificationGate) RecordNotified(id string, now time.Time) {
	g.last[id] = now
}

func (g *NotificationGate) Reset() {
	g.last = map[string]time.Time{}
}
