package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"linked_friend_services/src/account"
	"linked_friend_services/src/auth"
	"linked_friend_services/src/cache"
	"linked_friend_services/src/config"
	"linked_friend_services/src/friends"
	h "linked_friend_services/src/handlers"
	"linked_friend_services/src/inits"
	"linked_friend_services/src/logging"
	"linked_friend_services/src/metrics"
	"linked_friend_services/src/network"
	"linked_friend_services/src/notify"
	"linked_friend_services/src/search"
	"linked_friend_services/src/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mtr := metrics.New(registry)

	// Postgres Initialization
	connPool, err := inits.CreatePostgresPool(ctx, cfg.DatabaseURL, inits.PostgresOptions{
		MaxConns:       cfg.PGMaxConns,
		ConnectTimeout: cfg.PGConnectTimeout,
		MaxIdleTime:    cfg.PGMaxIdleTime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer connPool.Pool.Close()
	if err := inits.ApplySchema(ctx, connPool); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	// Redis Initialization
	rdb := inits.CreateRedisClient(ctx, inits.RedisOptions{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.RedisDialTimeout,
		ReadTimeout:  cfg.RedisReadTimeout,
		WriteTimeout: cfg.RedisWriteTimeout,
		PoolTimeout:  cfg.RedisPoolTimeout,
	}, logger)
	defer inits.CloseRedis(rdb, logger)

	users := store.NewUserRepository(connPool)
	requests := store.NewFriendRequestRepository(connPool)

	healthChecks := map[string]func(context.Context) error{
		"postgres": connPool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	// OpenSearch Initialization, falling back to Postgres ILIKE search
	var primary, fallback search.Index = search.NewRepositoryIndex(users), nil
	if cfg.SearchEnabled() {
		client, err := inits.CreateOpenSearchClient(cfg.OpenSearchAddresses)
		if err != nil {
			logger.Fatal("Failed to create OpenSearch client", zap.Error(err))
		}
		index := search.NewOpenSearchIndex(client, cfg.OpenSearchIndex)
		if err := inits.InitOpenSearch(ctx, index, users, logger); err != nil {
			logger.Warn("OpenSearch unavailable, using database search", zap.Error(err))
		} else {
			primary, fallback = index, search.NewRepositoryIndex(users)
			healthChecks["opensearch"] = func(ctx context.Context) error {
				res, err := client.Ping(client.Ping.WithContext(ctx))
				if err != nil {
					return err
				}
				defer res.Body.Close()
				if res.IsError() {
					return errors.New(res.Status())
				}
				return nil
			}
		}
	}

	profiles := cache.NewProfileCache(cache.NewRedisStore(rdb), users, cache.Options{
		ProfileTTL: cfg.ProfileTTL,
		FriendsTTL: cfg.FriendsTTL,
	}, logger, mtr)

	publisher := notify.NewRedisPublisher(rdb, cfg.NotificationsChannel)
	notifications := notify.NewService(store.NewNotificationRepository(connPool), publisher, logger)

	authSettings := auth.Settings{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	tokens, err := auth.NewTokenIssuer(authSettings)
	if err != nil {
		logger.Fatal("Failed to create token issuer", zap.Error(err))
	}
	jwtValidator, err := auth.NewValidator(authSettings)
	if err != nil {
		logger.Fatal("Failed to create token validator", zap.Error(err))
	}

	searchService := search.NewService(primary, fallback, users, requests, logger)

	router := h.NewRouter(h.Services{
		Accounts:      account.NewService(users, profiles, searchService, tokens, logger),
		Profiles:      profiles,
		Friends:       friends.NewService(users, requests, profiles, notifications, logger),
		Network:       network.NewResolver(users, requests, cfg.NetworkCandidateLimit, logger, mtr),
		Search:        searchService,
		Notifications: notifications,
		Stream:        publisher,
		HealthChecks:  healthChecks,
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, h.RouterOptions{
		Auth:           auth.Middleware(jwtValidator, logger),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	//Start Server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server is starting", zap.String("address", cfg.ServerAddress), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("Server failed", zap.Error(err))
	case <-ctx.Done():
		logger.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}
