package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/inventoryhub/internal/auth"
	"github.com/geocoder89/inventoryhub/internal/cache"
	"github.com/geocoder89/inventoryhub/internal/config"
	"github.com/geocoder89/inventoryhub/internal/db"
	httpx "github.com/geocoder89/inventoryhub/internal/http"
	"github.com/geocoder89/inventoryhub/internal/observability"
	"github.com/geocoder89/inventoryhub/internal/repo/memory"
	mongorepo "github.com/geocoder89/inventoryhub/internal/repo/mongo"
	"github.com/geocoder89/inventoryhub/internal/repo/observed"
	"github.com/geocoder89/inventoryhub/internal/repo/postgres"
	"github.com/geocoder89/inventoryhub/internal/stats"
)

const serviceName = "inventoryhub-api"

type stores struct {
	items observed.ItemStore
	users observed.UserStore
	close func()
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := db.NewMongoClient(db.MongoConfig{
			URI:                    cfg.MongoURI,
			TLS:                    cfg.MongoTLS,
			ServerSelectionTimeout: cfg.MongoServerSelectionTimeout,
		})

		if err != nil {
			return stores{}, fmt.Errorf("mongo connect: %w", err)
		}

		database := client.Database(cfg.MongoDatabase)
		items := mongorepo.NewItemsRepo(database)
		users := mongorepo.NewUsersRepo(database)

		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return stores{}, fmt.Errorf("users indexes: %w", err)
		}

		if err := items.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return stores{}, fmt.Errorf("items indexes: %w", err)
		}

		return stores{
			items: items,
			users: users,
			close: func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.StorePostgres:
		pool, err := db.NewPool(cfg.DBURL)

		if err != nil {
			return stores{}, fmt.Errorf("postgres connect: %w", err)
		}

		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("postgres schema: %w", err)
		}

		return stores{
			items: postgres.NewItemsRepo(pool),
			users: postgres.NewUsersRepo(pool),
			close: pool.Close,
		}, nil

	default:
		return stores{
			items: memory.NewItemsRepo(),
			users: memory.NewUsersRepo(),
			close: func() {},
		}, nil
	}
}

func openCache(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.Store, func()) {
	if cfg.RedisAddr == "" {
		// a process-local cache is only coherent when the data is process-local too
		if cfg.StoreDriver == config.StoreMemory {
			return cache.New(cfg.StatsCacheTTL), func() {}
		}

		log.Info("REDIS_ADDR not set, stats are computed on every request")
		return nil, func() {}
	}

	rdb := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	c := cache.NewRedis(rdb, cfg.StatsCacheTTL, "inventoryhub:")

	pctx, cancel := config.WithTimeoutFrom(ctx, 2*time.Second)
	defer cancel()

	if err := c.Ping(pctx); err != nil {
		// still usable; every failure is a miss
		log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
	}

	return c, func() { _ = rdb.Close() }
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-only-secret"
		log.Warn("JWT_SECRET_KEY not set, using an insecure development secret")
	}

	bootCtx, cancelBoot := config.WithTimeout(30 * time.Second)
	defer cancelBoot()

	shutdownTracer, err := observability.InitTracer(bootCtx, observability.TracerConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.OTLPSampleRatio,
	})

	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	st, err := openStores(bootCtx, cfg)

	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}

	prom := observability.NewProm()

	items := observed.NewItems(st.items, prom, cfg.StoreDriver)
	users := observed.NewUsers(st.users, prom, cfg.StoreDriver)

	statsCache, closeCache := openCache(bootCtx, cfg, log)

	if created, err := db.EnsureSeedUser(bootCtx, users, cfg); err != nil {
		log.Error("seed user failed", "err", err)
	} else if created {
		log.Info("seed user created", "email", cfg.SeedEmail)
	}

	tokens := auth.NewManager(cfg.JWTSecret, config.AccessTokenTTL)

	router := httpx.NewRouter(httpx.Deps{
		Log:                log,
		Env:                cfg.Env,
		ServiceName:        serviceName,
		Items:              items,
		Auth:               auth.NewAuthenticator(users, tokens),
		Tokens:             tokens,
		Stats:              stats.NewService(items, statsCache),
		Ready:              items.Ping,
		Prom:               prom,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		closeCache()
		st.close()

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
