package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	_ "github.com/99minutos/inventory-web/docs"
	"github.com/99minutos/inventory-web/internal/api"
	"github.com/99minutos/inventory-web/internal/api/metrics"
	"github.com/99minutos/inventory-web/internal/api/middleware"
	"github.com/99minutos/inventory-web/internal/api/view"
	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/ports"
	"github.com/99minutos/inventory-web/internal/core/service"
	"github.com/99minutos/inventory-web/internal/infrastructure/db/mongo"
	"github.com/99minutos/inventory-web/internal/infrastructure/db/redis"
	"github.com/99minutos/inventory-web/internal/infrastructure/http/handlers"
	"github.com/99minutos/inventory-web/internal/infrastructure/queue"
	"github.com/99minutos/inventory-web/internal/infrastructure/supabase"
	"github.com/99minutos/inventory-web/internal/pkg/config"
	"github.com/99minutos/inventory-web/pkg/logger"
)

const serviceName = "inventory-web"

// backend is what a driver contributes: credentials, the two tables, a
// readiness check and a way to release it.
type backend struct {
	creds    ports.CredentialService
	profiles ports.ProfileRepository
	products ports.ProductRepository
	checks   map[string]handlers.Check
	close    func(context.Context) error
}

// @title       Inventory Web API
// @version     1.0
// @description Session-backed inventory management: sign-in, products and the manager dashboard.
// @BasePath    /
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.Init(logger.Options{Level: "info", Service: serviceName})
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction(), Service: serviceName})
	log.Info().Str("port", cfg.Port).Str("driver", cfg.BackendDriver).Msg("starting inventory web")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	be, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open backend")
	}
	be.checks["redis"] = handlers.RedisCheck(rdb)

	// Session change notifications: redis pub/sub -> sharded workers -> subscribers.
	store := redis.NewSessionStore(rdb, cfg.SessionTTL, logger.Component("session_store"))
	dispatcher := queue.NewDispatcher(cfg.Workers, func(ctx context.Context, ev domain.SessionEvent) {
		metrics.SessionEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
		store.Deliver(ctx, ev)
	}, logger.Component("dispatcher"))
	dispatcher.ObserveDepth(func(workerID string, depth int) {
		metrics.SessionQueueDepth.WithLabelValues(workerID).Set(float64(depth))
	})
	dispatcher.Start(ctx)
	go func() {
		if err := store.Run(ctx, dispatcher.Enqueue); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("session notification listener stopped")
		}
	}()

	profileService := service.NewProfileService(be.profiles)
	productService := service.NewProductService(be.products, logger.Component("products"))

	var refreshes singleflight.Group
	clientLog := logger.Component("auth_client")
	registry := service.NewAuthRegistry(func(sid string) ports.AuthClient {
		return service.NewAuthClient(sid, be.creds, store, &refreshes, clientLog)
	}, profileService, cfg.EmailDomain, cfg.AuthIdleTTL, logger.Component("auth"))
	if err := registry.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start auth registry")
	}
	metrics.RegisterAuthStates(func() float64 { return float64(registry.Len()) })

	renderer, err := view.NewRenderer(logger.Component("view"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse templates")
	}

	router := api.NewRouter(api.Deps{
		States:   registry,
		Products: productService,
		Profiles: profileService,
		Renderer: renderer,
		Checks:   be.checks,
		Cookie: middleware.CookieOptions{
			Secure: cfg.CookieSecure,
			MaxAge: int(cfg.SessionTTL.Seconds()),
		},
		Logger: log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	registry.Stop()
	cancel()
	shutdown(shutdownCtx, log, rdb, be)
	log.Info().Msg("server exited")
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.BackendDriver {
	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		tokens, err := mongo.NewTokens(cfg.JWTSecret, 0)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &backend{
			creds:    mongo.NewCredentialService(db, tokens),
			profiles: mongo.NewProfileRepository(db, tokens),
			products: mongo.NewProductRepository(db, tokens),
			checks:   map[string]handlers.Check{"mongo": handlers.MongoCheck(db)},
			close:    client.Disconnect,
		}, nil
	default:
		client, err := supabase.NewClient(supabase.Config{URL: cfg.Supabase.URL, AnonKey: cfg.Supabase.AnonKey})
		if err != nil {
			return nil, err
		}
		return &backend{
			creds:    supabase.NewAuthService(client),
			profiles: supabase.NewProfileRepository(client),
			products: supabase.NewProductRepository(client),
			checks:   map[string]handlers.Check{"supabase": client.Ping},
			close:    func(context.Context) error { return nil },
		}, nil
	}
}

func shutdown(ctx context.Context, log zerolog.Logger, rdb *goredis.Client, be *backend) {
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close failed")
	}
	if err := be.close(ctx); err != nil {
		log.Error().Err(err).Msg("backend close failed")
	}
}
