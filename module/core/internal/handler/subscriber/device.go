package subscriber

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

const (
	LocationTopic      = "/spotwatch/device/+/location"
	RegionTopic        = "/spotwatch/device/+/region"
	AuthorizationTopic = "/spotwatch/device/+/authorization"
)

type monitorService interface {
	Start(ctx context.Context) error
	HandleRegionEnter(ctx context.Context, id string)
	HandleRegionExit(ctx context.Context, id string)
	HandleRegionFailed(ctx context.Context, id string, cause error)
	HandleLocationSample(ctx context.Context, sample domain.LocationSample)
}

type authorizationSink interface {
	SetAuthorized(granted bool)
}

type LocationMessage struct {
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	HorizontalAccuracy float64 `json:"horizontal_accuracy"`
	Timestamp          int64   `json:"timestamp"`
}

type RegionMessage struct {
	RegionID string `json:"region_id"`
	Event    string `json:"event"`
	Error    string `json:"error,omitempty"`
}

type AuthorizationMessage struct {
	Status string `json:"status"`
}

const (
	RegionEventEnter  = "enter"
	RegionEventExit   = "exit"
	RegionEventFailed = "failed"

	AuthorizationAlways = "always"
)

const (
	queueSize = 1024
	// handlerTimeout bounds the device commands a handler may publish.
	handlerTimeout = 10 * time.Second
)

// DeviceSubscriber turns device callbacks arriving over MQTT into monitor
// calls. Messages are handed to a single worker in arrival order; handlers
// publish device commands, which must not happen on paho's router goroutine.
type DeviceSubscriber struct {
	client  mqtt.Client
	monitor monitorService
	auth    authorizationSink
	log     *zap.Logger
	queue   chan func()
}

func NewDeviceSubscriber(client mqtt.Client, monitor monitorService, auth authorizationSink, log *zap.Logger) *DeviceSubscriber {
	return &DeviceSubscriber{
		client:  client,
		monitor: monitor,
		auth:    auth,
		log:     log.Named("subscriber"),
		queue:   make(chan func(), queueSize),
	}
}

// Start subscribes to the device topics and processes messages until ctx
// is done.
func (s *DeviceSubscriber) Start(ctx context.Context) error {
	go s.run(ctx)

	routes := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{LocationTopic, s.handleLocation},
		{RegionTopic, s.handleRegion},
		{AuthorizationTopic, s.handleAuthorization},
	}
	for _, r := range routes {
		token := s.client.Subscribe(r.topic, 1, s.enqueue(r.handler))
		token.Wait()
		if err := token.Error(); err != nil {
			return eris.Wrapf(err, "subscribe %s", r.topic)
		}
	}
	return nil
}

// enqueue blocks the router when the queue is full.
func (s *DeviceSubscriber) enqueue(h mqtt.MessageHandler) mqtt.MessageHandler {
	return func(c mqtt.Client, msg mqtt.Message) {
		s.queue <- func() { h(c, msg) }
	}
}

func (s *DeviceSubscriber) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.queue:
			fn()
		}
	}
}

func (s *DeviceSubscriber) handleLocation(_ mqtt.Client, msg mqtt.Message) {
	var raw LocationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.log.Warn("invalid location message", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	if err := validateLocationMessage(&raw); err != nil {
		s.log.Warn("location validation error", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	s.monitor.HandleLocationSample(ctx, domain.LocationSample{
		Position:           domain.Coordinate{Lat: raw.Latitude, Lon: raw.Longitude},
		HorizontalAccuracy: raw.HorizontalAccuracy,
		Timestamp:          time.Unix(raw.Timestamp, 0),
	})
}

func (s *DeviceSubscriber) handleRegion(_ mqtt.Client, msg mqtt.Message) {
	var raw RegionMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.log.Warn("invalid region message", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}
	if raw.RegionID == "" {
		s.log.Warn("region message without region_id", zap.String("topic", msg.Topic()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	switch raw.Event {
	case RegionEventEnter:
		s.monitor.HandleRegionEnter(ctx, raw.RegionID)
	case RegionEventExit:
		s.monitor.HandleRegionExit(ctx, raw.RegionID)
	case RegionEventFailed:
		s.monitor.HandleRegionFailed(ctx, raw.RegionID, eris.New(raw.Error))
	default:
		s.log.Warn("unknown region event", zap.String("event", raw.Event), zap.String("region_id", raw.RegionID))
	}
}

// handleAuthorization records the device's permission and starts monitoring
// once it is granted. Denials leave the monitor idle.
func (s *DeviceSubscriber) handleAuthorization(_ mqtt.Client, msg mqtt.Message) {
	var raw AuthorizationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.log.Warn("invalid authorization message", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	granted := raw.Status == AuthorizationAlways
	s.auth.SetAuthorized(granted)
	s.log.Info("device authorization", zap.String("status", raw.Status))
	if !granted {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := s.monitor.Start(ctx); err != nil {
		s.log.Warn("start monitoring after authorization failed", zap.Error(err))
	}
}

func validateLocationMessage(msg *LocationMessage) error {
	if msg.Latitude < -90 || msg.Latitude > 90 {
		return eris.New("latitude: must be between -90 and 90")
	}
	if msg.Longitude < -180 || msg.Longitude > 180 {
		return eris.New("longitude: must be between -180 and 180")
	}
	if msg.Timestamp <= 0 {
		return eris.New("timestamp: must be positive")
	}
	return nil
}
