package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nandanugg/spotwatch/config"
	"github.com/nandanugg/spotwatch/module/core"
	"github.com/nandanugg/spotwatch/module/core/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.NewPostgres(ctx, cfg)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if err := core.Migrate(ctx, db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		logger.Fatal("rabbitmq", zap.Error(err))
	}
	defer func() { _ = amqpConn.Close() }()

	mqttClient, err := config.NewMQTT(cfg, cfg.MQTTClientID)
	if err != nil {
		logger.Fatal("mqtt", zap.Error(err))
	}
	defer mqttClient.Disconnect(250)

	rdb, err := config.NewRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	} else {
		logger.Info("redis not configured, geocode cache disabled")
	}

	coreModule, err := core.Build(core.Deps{
		DB:     db,
		AMQP:   amqpConn,
		MQTT:   mqttClient,
		Redis:  rdb,
		Logger: logger,
	}, core.Options{
		DeviceID:           cfg.MQTTDeviceID,
		NominatimURL:       cfg.NominatimURL,
		NominatimUserAgent: cfg.NominatimUserAgent,
		GeocodeCacheTTL:    cfg.GeocodeCacheTTL,
		Monitor: service.MonitorConfig{
			MonitoredLimit:         cfg.MonitoredLimit,
			ReselectDistanceMeters: cfg.ReselectDistanceMeters,
			MaxAccuracyMeters:      cfg.MaxAccuracyMeters,
			NotificationCooldown:   cfg.NotificationCooldown,
			DesiredAccuracyMeters:  cfg.DesiredAccuracyMeters,
			MinDistanceMeters:      cfg.MinDistanceMeters,
		},
		City: service.CityDetectorConfig{
			Cooldown:       cfg.GeocodeCooldown,
			DistanceMeters: cfg.GeocodeDistanceMeters,
			Timeout:        cfg.GeocodeTimeout,
		},
	})
	if err != nil {
		logger.Fatal("core module", zap.Error(err))
	}

	if err := coreModule.StartSubscribers(ctx); err != nil {
		logger.Fatal("start subscribers", zap.Error(err))
	}

	// The device may not have granted authorization yet; it retries Start
	// when it reports "always".
	if err := coreModule.MonitorSvc.Start(ctx); err != nil {
		logger.Warn("initial monitor start failed", zap.Error(err))
	}

	r := gin.Default()

	health := config.NewHealthChecker(db, amqpConn, mqttClient, rdb)
	health.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !eris.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		coreModule.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server", zap.Error(err))
	}
}
