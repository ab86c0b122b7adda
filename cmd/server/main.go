package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/application"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/config"
	sessionDomain "github.com/Kilat-Pet-Delivery/service-trip/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/domain/trip"
	tripEvents "github.com/Kilat-Pet-Delivery/service-trip/internal/events"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/mapview"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/database"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/health"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/logger"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-trip/internal/repository"
)

const serviceName = "service-trip"

// pingableStore is a session store that can report its readiness.
type pingableStore interface {
	sessionDomain.SessionRepository
	Ping(ctx context.Context) error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
		zap.Bool("kafka", cfg.KafkaConfig.Enabled),
	)

	// Open the session store
	store, closeStore, err := openSessionStore(cfg, log)
	if err != nil {
		log.Fatal("failed to open session store", zap.Error(err))
	}
	defer closeStore()

	// Initialize session tokens
	tokens, err := auth.NewSessionTokenManager(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer)
	if err != nil {
		log.Fatal("failed to create session token manager", zap.Error(err))
	}

	// Initialize fare estimator
	estimator, err := trip.NewStandardFareEstimator(trip.FareSchedule{
		BaseFare:        cfg.FareConfig.BaseFare,
		PerKmRate:       cfg.FareConfig.PerKmRate,
		AverageSpeedKmh: cfg.FareConfig.AverageSpeedKmh,
	})
	if err != nil {
		log.Fatal("invalid fare schedule", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Map websocket hub: renders markers/routes and mirrors the trip list
	hub := mapview.NewHub(cfg.CORSOrigins, log.Named("mapview"))
	go hub.Run(ctx)

	listeners := []application.TripsListener{hub}

	// Initialize Kafka producer
	var kafkaProducer *kafka.Producer
	if cfg.KafkaConfig.Enabled {
		kafkaProducer = kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		listeners = append(listeners, tripEvents.NewTripPublisher(kafkaProducer, cfg.KafkaConfig.TripEventsTopic, log))
	}

	// Initialize application service
	tripService := application.NewTripService(
		store,
		estimator,
		tokens,
		hub,
		cfg.SessionConfig.TTL,
		log,
		listeners...,
	)
	hub.SetLocationPicker(tripService)

	// Start location pick consumer in a goroutine
	if cfg.KafkaConfig.Enabled {
		groupID := cfg.KafkaConfig.GroupPrefix + "-location-picks"
		locationConsumer := tripEvents.NewLocationPickConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			cfg.KafkaConfig.LocationPicksTopic,
			tripService,
			log,
		)
		defer func() { _ = locationConsumer.Close() }()

		go func() {
			log.Info("starting location pick consumer", zap.String("topic", cfg.KafkaConfig.LocationPicksTopic))
			if err := locationConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("location pick consumer error", zap.Error(err))
			}
		}()
	}

	// Start expired session sweeper
	go tripService.RunSweeper(ctx, cfg.SessionConfig.SweepInterval)

	// Initialize HTTP handlers
	sessionHandler := handler.NewSessionHandler(tripService)
	tripHandler := handler.NewTripHandler(tripService)
	mapHandler := handler.NewMapHandler(hub)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(serviceName, health.Check{Name: cfg.StoreDriver, Ping: store.Ping})
	healthHandler.RegisterRoutes(router)

	// Register routes
	sessionHandler.RegisterRoutes(&router.RouterGroup, tokens)
	tripHandler.RegisterRoutes(&router.RouterGroup, tokens)
	mapHandler.RegisterRoutes(&router.RouterGroup, tokens)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Stop the hub, consumer and sweeper
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

// openSessionStore builds the configured session store and a func releasing it.
func openSessionStore(cfg *config.ServiceConfig, log *zap.Logger) (pingableStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("redis connected", zap.String("addr", cfg.RedisConfig.Addr))
		return repository.NewRedisSessionRepository(client), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		db, err := database.Connect(cfg.DBConfig, log)
		if err != nil {
			return nil, nil, err
		}

		// Run database migrations
		if cfg.AppEnv == "development" {
			if err := db.AutoMigrate(&repository.SessionModel{}); err != nil {
				return nil, nil, fmt.Errorf("failed to run auto-migration: %w", err)
			}
			log.Info("database migration completed (dev auto-migrate)")
		} else if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), cfg.MigrationsPath, log); err != nil {
			return nil, nil, err
		}

		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewGormSessionRepository(db), closeDB, nil

	default:
		log.Warn("using in-memory session store; sessions are lost on restart")
		return repository.NewMemorySessionRepository(), func() {}, nil
	}
}
