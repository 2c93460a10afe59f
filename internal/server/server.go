// Package server wires repositories, services and handlers into the HTTP API
// and owns the startup graph of its infrastructure.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Farcas-Consult/rams-sub000/config"
	"github.com/Farcas-Consult/rams-sub000/db"
	"github.com/Farcas-Consult/rams-sub000/internal/handlers"
	assetrepo "github.com/Farcas-Consult/rams-sub000/internal/repositories/asset"
	"github.com/Farcas-Consult/rams-sub000/internal/repositories/presence"
	"github.com/Farcas-Consult/rams-sub000/internal/repositories/readevent"
	"github.com/Farcas-Consult/rams-sub000/internal/repositories/tagbinding"
	undiscoveredrepo "github.com/Farcas-Consult/rams-sub000/internal/repositories/undiscovered"
	assetsvc "github.com/Farcas-Consult/rams-sub000/internal/services/asset"
	"github.com/Farcas-Consult/rams-sub000/internal/services/ingest"
	liveviewsvc "github.com/Farcas-Consult/rams-sub000/internal/services/liveview"
	undiscoveredsvc "github.com/Farcas-Consult/rams-sub000/internal/services/undiscovered"
	"github.com/Farcas-Consult/rams-sub000/pkg/database"
	"github.com/Farcas-Consult/rams-sub000/pkg/health"
	"github.com/Farcas-Consult/rams-sub000/pkg/kafka"
	"github.com/Farcas-Consult/rams-sub000/pkg/middleware"
	"github.com/Farcas-Consult/rams-sub000/pkg/redis"
	"github.com/Farcas-Consult/rams-sub000/pkg/startup"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
	"github.com/Farcas-Consult/rams-sub000/pkg/undiscovered"
)

const (
	DependencyDatabase   = "database"
	DependencyMigrations = "migrations"
	DependencyKafka      = "kafka"
	DependencyRedis      = "redis"
	DependencyHTTP       = "http"

	shutdownTimeout = 15 * time.Second
)

type Server struct {
	config  *config.Config
	logger  ectologger.Logger
	startup *startup.Startup
	health  *health.Checker

	db         database.DB
	producer   *kafka.Producer
	redis      *redis.Client
	notifier   *ingest.Notifier
	httpServer *http.Server
}

func New(cfg *config.Config, logger ectologger.Logger) *Server {
	s := &Server{
		config:  cfg,
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
		health:  health.NewChecker(cfg.Version),
	}

	s.startup.AddDependency(&startup.Dependency{
		Name:      DependencyDatabase,
		StartFunc: s.startDatabase,
		StopFunc: func(context.Context) error {
			return s.db.Close()
		},
	})
	s.startup.AddDependency(&startup.Dependency{
		Name:      DependencyMigrations,
		Requires:  []string{DependencyDatabase},
		StartFunc: s.migrate,
	})

	httpRequires := []string{DependencyDatabase, DependencyMigrations}
	if cfg.KafkaEnabled {
		s.startup.AddDependency(&startup.Dependency{
			Name:      DependencyKafka,
			StartFunc: s.startProducer,
			StopFunc: func(context.Context) error {
				return s.producer.Close()
			},
		})
		httpRequires = append(httpRequires, DependencyKafka)
	}
	if cfg.RedisEnabled {
		s.startup.AddDependency(&startup.Dependency{
			Name:      DependencyRedis,
			StartFunc: s.startRedis,
			StopFunc: func(context.Context) error {
				return s.redis.Close()
			},
		})
		httpRequires = append(httpRequires, DependencyRedis)
	}

	s.startup.AddDependency(&startup.Dependency{
		Name:      DependencyHTTP,
		Requires:  httpRequires,
		StartFunc: s.startHTTP,
		StopFunc:  s.stopHTTP,
	})

	return s
}

// Run starts every dependency, serves until ctx is cancelled and then stops
// them in reverse order.
func (s *Server) Run(ctx context.Context) error {
	if s.config.OtelEnabled {
		shutdown, err := tracing.Setup(ctx, s.config)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(stopCtx); err != nil {
				s.logger.WithError(err).Error("Failed to flush traces")
			}
		}()
	}

	if err := s.startup.Start(ctx); err != nil {
		s.stop()
		return err
	}

	s.health.SetReady(true)
	s.logger.WithField("port", s.config.Port).Info("Server ready")

	<-ctx.Done()

	s.logger.Info("Shutting down")
	s.health.SetReady(false)
	return s.stop()
}

func (s *Server) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.startup.Stop(ctx)
}

func (s *Server) startDatabase(ctx context.Context) error {
	conn, err := Connect(ctx, s.config, s.logger)
	if err != nil {
		return err
	}
	s.db = conn
	s.health.AddCheck(DependencyDatabase, health.PingFunc(conn.PingContext))
	return nil
}

func (s *Server) migrate(context.Context) error {
	migrations := database.NewMigrationService(s.logger, &database.MigrationConfig{
		MigrationFolderPath: s.config.MigrationFolderPath,
		Embedded:            db.Migrations,
		EmbeddedPath:        db.MigrationsPath,
		Version:             uint(s.config.MigrationVersion),
		Force:               s.config.MigrationForce,
		AutoRollback:        s.config.MigrationAutoRollback,
	})
	return migrations.Migrate(s.db.SQL(), s.config.DatabaseName)
}

func (s *Server) startProducer(context.Context) error {
	cfg := kafka.DefaultProducerConfig()
	cfg.Brokers = s.config.KafkaBrokers
	cfg.Topic = s.config.KafkaSightingsTopic

	producer, err := kafka.NewProducer(cfg, s.logger)
	if err != nil {
		return err
	}
	s.producer = producer
	return nil
}

func (s *Server) startRedis(ctx context.Context) error {
	client, err := ConnectRedis(ctx, s.config, s.logger)
	if err != nil {
		return err
	}
	s.redis = client
	s.health.AddOptionalCheck(DependencyRedis, client)
	return nil
}

func (s *Server) startHTTP(context.Context) error {
	e := s.newEcho()

	addr := ":" + strconv.Itoa(s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      e,
		ReadTimeout:  s.config.HttpReadTimeout,
		WriteTimeout: s.config.HttpWriteTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP server stopped")
		}
	}()

	s.logger.WithField("addr", addr).Info("HTTP server listening")
	return nil
}

func (s *Server) stopHTTP(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.notifier.Wait()
	return err
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(s.logger)

	e.Use(middleware.Context())
	if s.config.OtelEnabled {
		e.Use(otelecho.Middleware(s.config.AppName))
	}
	e.Use(middleware.Logger(s.logger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.health.RegisterRoutes(e)

	s.routes(e.Group("/api/v1"))
	return e
}

func (s *Server) routes(g *echo.Group) {
	assets := assetrepo.NewRepository(s.db, s.logger)
	bindings := tagbinding.NewRepository(s.db, s.logger)
	events := readevent.NewRepository(s.db, s.logger)
	presences := presence.NewRepository(s.db, s.logger)

	var sinks []ingest.Sink
	if s.producer != nil {
		sinks = append(sinks, ingest.NewKafkaSink(s.producer))
	}
	if s.redis != nil {
		sinks = append(sinks, ingest.NewRedisSink(s.redis, s.config.RedisSightingsChannel))
	}
	s.notifier = ingest.NewNotifier(s.logger, sinks...)

	ingestService := ingest.NewService(bindings, events, presences, assets, s.notifier, s.logger)
	assetService := assetsvc.NewService(assets, s.logger)
	liveViewService := liveviewsvc.NewService(presences, events, s.logger)
	undiscoveredService := NewUndiscoveredService(s.config, s.db, s.redis, s.logger)

	handlers.NewReadHandler(ingestService, s.logger).Register(g)
	handlers.NewAssetHandler(assetService, s.logger).Register(g)
	handlers.NewLiveViewHandler(liveViewService, s.logger).Register(g)
	handlers.NewUndiscoveredHandler(undiscoveredService, s.logger).Register(g)
}

// Connect opens the postgres pool described by cfg
func Connect(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (database.DB, error) {
	return database.Connect(ctx, database.Config{
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
}

// ConnectRedis opens the Redis client described by cfg
func ConnectRedis(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (*redis.Client, error) {
	return redis.NewClient(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
}

// NewUndiscoveredService builds the undiscovered-asset service. Without a
// Redis client imports are not serialised across processes.
func NewUndiscoveredService(cfg *config.Config, conn database.DB, client *redis.Client, logger ectologger.Logger) *undiscoveredsvc.Service {
	var locker undiscoveredsvc.Locker
	if client != nil {
		locker = redis.NewLocker(client, "")
	}

	return undiscoveredsvc.NewService(
		undiscovered.NewRegistry(),
		undiscoveredrepo.NewRepository(conn, logger),
		assetrepo.NewRepository(conn, logger),
		tagbinding.NewRepository(conn, logger),
		conn,
		locker,
		undiscoveredsvc.Config{
			DefaultMapping: cfg.UndiscoveredMapping,
			LockTTL:        cfg.UndiscoveredImportLockTTL,
		},
		logger,
	)
}
