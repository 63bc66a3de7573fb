package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rotisserie/eris"

	"github.com/nandanugg/spotwatch/module/core/domain"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/device"
)

var _ device.LocationProvider = (*Provider)(nil)

const (
	CommandRequestAuthorization = "request_authorization"
	CommandStartRegion          = "start_region"
	CommandStopRegion           = "stop_region"
	CommandStartUpdates         = "start_updates"
	CommandStopUpdates          = "stop_updates"
)

// CommandTopic is where the device listens for location commands.
func CommandTopic(deviceID string) string {
	return fmt.Sprintf("/spotwatch/device/%s/commands", deviceID)
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

type Command struct {
	Command         string  `json:"command"`
	RegionID        string  `json:"region_id,omitempty"`
	Latitude        float64 `json:"latitude,omitempty"`
	Longitude       float64 `json:"longitude,omitempty"`
	RadiusMeters    float64 `json:"radius_meters,omitempty"`
	DesiredAccuracy float64 `json:"desired_accuracy,omitempty"`
	MinDistance     float64 `json:"min_distance,omitempty"`
}

// Provider drives a device's location primitives over MQTT. The device
// reports its authorization status back, see SetAuthorized.
type Provider struct {
	client     publisher
	topic      string
	authorized atomic.Bool
}

func NewProvider(client paho.Client, deviceID string) *Provider {
	return &Provider{client: client, topic: CommandTopic(deviceID)}
}

// SetAuthorized records the last authorization status the device reported.
func (p *Provider) SetAuthorized(granted bool) {
	p.authorized.Store(granted)
}

func (p *Provider) RequestAlwaysAuthorization(ctx context.Context) (bool, error) {
	if p.authorized.Load() {
		return true, nil
	}
	if err := p.send(ctx, Command{Command: CommandRequestAuthorization}); err != nil {
		return false, err
	}
	return p.authorized.Load(), nil
}

func (p *Provider) StartRegionMonitoring(ctx context.Context, id string, center domain.Coordinate, radiusMeters float64) error {
	return p.send(ctx, Command{
		Command:      CommandStartRegion,
		RegionID:     id,
		Latitude:     center.Lat,
		Longitude:    center.Lon,
		RadiusMeters: radiusMeters,
	})
}

func (p *Provider) StopRegionMonitoring(ctx context.Context, id string) error {
	return p.send(ctx, Command{Command: CommandStopRegion, RegionID: id})
}

func (p *Provider) StartContinuousLocationUpdates(ctx context.Context, desiredAccuracyMeters, minDistanceMeters float64) error {
	return p.send(ctx, Command{
		Command:         CommandStartUpdates,
		DesiredAccuracy: desiredAccuracyMeters,
		MinDistance:     minDistanceMeters,
	})
}

func (p *Provider) StopContinuousLocationUpdates(ctx context.Context) error {
	return p.send(ctx, Command{Command: CommandStopUpdates})
}

func (p *Provider) send(ctx context.Context, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return eris.Wrap(err, "marshal command")
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return eris.Wrapf(ctx.Err(), "publish %s", cmd.Command)
	}
	if err := token.Error(); err != nil {
		return eris.Wrapf(err, "publish %s", cmd.Command)
	}
	return nil
}
