package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotificationGate_FirstNotificationAllowed(t *testing.T) {
	g := NewNotificationGate(time.Minute)

	assert.True(t, g.ShouldNotify("p1", time.Unix(1715003456, 0)))
}

func TestNotificationGate_Cooldown(t *testing.T) {
	g := NewNotificationGate(time.Minute)
	t0 := time.Unix(1715003456, 0)

	g.RecordNotified("p1", t0)

	assert.False(t, g.ShouldNotify("p1", t0.Add(30*time.Second)))
	assert.False(t, g.ShouldNotify("p1", t0.Add(59*time.Second)))
	assert.True(t, g.ShouldNotify("p1", t0.Add(time.Minute)))
	assert.True(t, g.ShouldNotify("p1", t0.Add(2*time.Minute)))
	assert.True(t, g.ShouldNotify("p2", t0), "other ids are independent")
}

func TestNotificationGate_Reset(t *testing.T) {
	g := NewNotificationGate(time.Minute)
	t0 := time.Unix(1715003456, 0)
	g.RecordNotified("p1", t0)

	g.Reset()

	assert.True(t, g.ShouldNotify("p1", t0))
}

func TestNotificationGate_DefaultCooldown(t *testing.T) {
	g := NewNotificationGate(0)
	t0 := time.Unix(1715003456, 0)
	g.RecordNotified("p1", t0)

	assert.False(t, g.ShouldNotify("p1", t0.Add(DefaultNotificationCooldown-time.Second)))
	assert.True(t, g.ShouldNotify("p1", t0.Add(DefaultNotificationCooldown)))
}
