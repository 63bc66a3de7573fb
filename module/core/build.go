package core

import (
	"context"
	"database/sql"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	handler "github.com/nandanugg/spotwatch/module/core/internal/handler/http"
	"github.com/nandanugg/spotwatch/module/core/internal/handler/subscriber"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/database/postgres"
	devicemqtt "github.com/nandanugg/spotwatch/module/core/internal/repository/device/mqtt"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/geocoder"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/geocoder/nominatim"
	georedis "github.com/nandanugg/spotwatch/module/core/internal/repository/geocoder/redis"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/spotwatch/module/core/service"
)

type Options struct {
	DeviceID           string
	NominatimURL       string
	NominatimUserAgent string
	GeocodeCacheTTL    time.Duration
	Monitor            service.MonitorConfig
	City               service.CityDetectorConfig
}

type Deps struct {
	DB     *sql.DB
	AMQP   *amqp.Connection
	MQTT   mqtt.Client
	Redis  *goredis.Client
	Logger *zap.Logger
}

type Module struct {
	MonitorSvc *service.MonitorService
	CitySvc    *service.CityDetector
	handler    *handler.MonitorHandler
	subscriber *subscriber.DeviceSubscriber
}

func Build(deps Deps, opts Options) (*Module, error) {
	catalogRepo := postgres.NewCatalogRepo(deps.DB)

	notificationPub, err := rabbitmq.NewNotificationPublisher(deps.AMQP)
	if err != nil {
		return nil, eris.Wrap(err, "notification publisher")
	}

	provider := devicemqtt.NewProvider(deps.MQTT, opts.DeviceID)

	var gc geocoder.ReverseGeocoder = nominatim.NewClient(opts.NominatimURL, opts.NominatimUserAgent, opts.City.Timeout)
	if deps.Redis != nil {
		gc = georedis.NewCachedGeocoder(deps.Redis, gc, opts.GeocodeCacheTTL, deps.Logger)
	}

	citySvc := service.NewCityDetector(opts.City, gc, catalogRepo, notificationPub, deps.Logger)
	monitorSvc := service.NewMonitorService(opts.Monitor, catalogRepo, provider, notificationPub, citySvc, deps.Logger)

	h := handler.NewMonitorHandler(monitorSvc)
	sub := subscriber.NewDeviceSubscriber(deps.MQTT, monitorSvc, provider, deps.Logger)

	return &Module{
		MonitorSvc: monitorSvc,
		CitySvc:    citySvc,
		handler:    h,
		subscriber: sub,
	}, nil
}

// Migrate creates the catalog tables when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	return postgres.EnsureSchema(ctx, db)
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
}

func (m *Module) StartSubscribers(ctx context.Context) error {
	return m.subscriber.Start(ctx)
}

// Shutdown ends the monitoring session and waits for city lookups still in
// flight.
func (m *Module) Shutdown(ctx context.Context) {
	m.MonitorSvc.Stop(ctx)
	m.CitySvc.Wait()
}
