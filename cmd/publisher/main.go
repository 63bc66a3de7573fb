package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/nandanugg/spotwatch/config"
	"github.com/nandanugg/spotwatch/module/core/domain"
	"github.com/nandanugg/spotwatch/module/core/service"
)

type command struct {
	Command      string  `json:"command"`
	RegionID     string  `json:"region_id,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	RadiusMeters float64 `json:"radius_meters,omitempty"`
}

type locationMessage struct {
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	HorizontalAccuracy float64 `json:"horizontal_accuracy"`
	Timestamp          int64   `json:"timestamp"`
}

type regionMessage struct {
	RegionID string `json:"region_id"`
	Event    string `json:"event"`
}

type region struct {
	center domain.Coordinate
	radius float64
	inside bool
}

// device plays the phone side: it obeys monitoring commands and reports
// fixes and region crossings from a random walk.
type device struct {
	client mqtt.Client
	id     string
	log    *zap.Logger

	mu       sync.Mutex
	regions  map[string]*region
	updating bool
	pos      domain.Coordinate
}

func (d *device) topic(kind string) string {
	return fmt.Sprintf("/spotwatch/device/%s/%s", d.id, kind)
}

func (d *device) publish(kind string, v interface{}) {
	payload, _ := json.Marshal(v)
	token := d.client.Publish(d.topic(kind), 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		d.log.Warn("publish failed", zap.String("topic", d.topic(kind)), zap.Error(err))
		return
	}
	d.log.Debug("published", zap.String("topic", d.topic(kind)), zap.ByteString("payload", payload))
}

func (d *device) handleCommand(_ mqtt.Client, msg mqtt.Message) {
	var cmd command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		d.log.Warn("invalid command", zap.Error(err))
		return
	}
	d.log.Info("command", zap.String("command", cmd.Command), zap.String("region_id", cmd.RegionID))

	switch cmd.Command {
	case "request_authorization":
		go d.publish("authorization", map[string]string{"status": "always"})
	case "start_region":
		d.mu.Lock()
		d.regions[cmd.RegionID] = &region{
			center: domain.Coordinate{Lat: cmd.Latitude, Lon: cmd.Longitude},
			radius: cmd.RadiusMeters,
		}
		d.mu.Unlock()
	case "stop_region":
		d.mu.Lock()
		delete(d.regions, cmd.RegionID)
		d.mu.Unlock()
	case "start_updates":
		d.mu.Lock()
		d.updating = true
		d.mu.Unlock()
	case "stop_updates":
		d.mu.Lock()
		d.updating = false
		d.mu.Unlock()
	}
}

// step moves the device 20 to 150 m in a random direction.
func (d *device) step() {
	dist := 20 + rand.Float64()*130
	bearing := rand.Float64() * 2 * math.Pi
	d.pos.Lat += dist * math.Cos(bearing) / 111320
	d.pos.Lon += dist * math.Sin(bearing) / (111320 * math.Cos(d.pos.Lat*math.Pi/180))
}

func (d *device) tick() {
	d.mu.Lock()
	d.step()
	pos := d.pos
	updating := d.updating

	var events []regionMessage
	for id, r := range d.regions {
		inside := service.Distance(pos, r.center) <= r.radius
		if inside == r.inside {
			continue
		}
		r.inside = inside
		ev := regionMessage{RegionID: id, Event: "exit"}
		if inside {
			ev.Event = "enter"
		}
		events = append(events, ev)
	}
	d.mu.Unlock()

	for _, ev := range events {
		d.publish("region", ev)
	}
	if !updating {
		return
	}

	// one fix in five is too imprecise to be used
	accuracy := 5 + rand.Float64()*30
	if rand.Float64() < 0.2 {
		accuracy = 60 + rand.Float64()*100
	}
	d.publish("location", locationMessage{
		Latitude:           pos.Lat,
		Longitude:          pos.Lon,
		HorizontalAccuracy: accuracy,
		Timestamp:          time.Now().Unix(),
	})
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := config.NewMQTT(cfg, "spotwatch-device-"+cfg.MQTTDeviceID)
	if err != nil {
		logger.Fatal("mqtt", zap.Error(err))
	}
	defer client.Disconnect(250)

	d := &device{
		client:  client,
		id:      cfg.MQTTDeviceID,
		log:     logger.Named("device"),
		regions: make(map[string]*region),
		pos:     domain.Coordinate{Lat: -6.2088, Lon: 106.8456},
	}

	if token := client.Subscribe(d.topic("commands"), 1, d.handleCommand); token.Wait() && token.Error() != nil {
		logger.Fatal("subscribe commands", zap.Error(token.Error()))
	}
	d.publish("authorization", map[string]string{"status": "always"})

	logger.Info("device simulator running",
		zap.String("broker", cfg.MQTTBroker),
		zap.String("device_id", d.id),
		zap.Int("interval_seconds", intervalSec),
	)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		d.tick()
	}
}
