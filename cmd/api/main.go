package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"moments/api/internal/app"
	"moments/api/internal/auth"
	"moments/api/internal/authpw"
	"moments/api/internal/blob"
	"moments/api/internal/cache"
	"moments/api/internal/config"
	"moments/api/internal/content"
	"moments/api/internal/notify"
	"moments/api/internal/relation"
	"moments/api/internal/search"
	"moments/api/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(2)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		return err
	}
	dataStore := store.NewPostgresStore(db)

	redisClient, err := cache.Dial(ctx, cfg.Redis.URL)
	switch {
	case errors.Is(err, cache.ErrUnreachable):
		logger.Warn("redis unreachable at startup, cache and push delivery degrade until it returns", "error", err)
	case err != nil:
		return err
	}
	defer redisClient.Close()

	var tokenCache cache.Cache = cache.Nop{}
	if cfg.Redis.CacheEnabled {
		tokenCache = cache.NewRedisCache(redisClient, cfg.Redis.CacheTTL, logger)
	} else {
		logger.Info("read-through cache disabled")
	}

	authority := auth.NewAuthority(dataStore, auth.Options{
		Secret: []byte(cfg.TokenSecret),
		Pepper: []byte(cfg.CryptPepper),
		Cache:  tokenCache,
		Logger: logger,
	})

	blobs, err := blob.NewMinioStore(blob.Config{
		Endpoint:   cfg.Storage.Endpoint,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		UseSSL:     cfg.Storage.UseSSL,
		PresignTTL: cfg.Storage.PresignTTL,
	})
	if err != nil {
		return err
	}
	defer blobs.Close()
	if err := blobs.EnsureBucket(ctx); err != nil {
		return err
	}

	publisher := notify.NewRedisPublisher(redisClient, cfg.Redis.HistorySize)
	fanout := notify.NewFanout(dataStore, publisher, []byte(cfg.ChannelSecret), logger)

	var meiliClient *search.Meili
	var index search.Index
	if strings.TrimSpace(cfg.Search.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.Search.MeiliURL, cfg.Search.MeiliMasterKey, logger)
		defer meiliClient.Close()
		index = meiliClient
	}
	searchService := search.NewService(index, dataStore, logger)
	if err := searchService.ReindexAllFromPG(ctx); err != nil {
		logger.Warn("search reindex failed", "error", err)
	}

	pipeline := content.NewPipeline(content.NewPostgresStore(dataStore), blobs, fanout, searchService, logger)
	relations := relation.NewService(relation.NewPostgresStore(dataStore), logger)
	identities := authpw.NewService(authpw.NewPostgresStore(dataStore), authority, authpw.Options{
		Blobs:         blobs,
		DefaultAvatar: cfg.Storage.DefaultAvatar,
		Logger:        logger,
	})

	service := app.NewService(app.Deps{
		Auth:          authority,
		Identities:    identities,
		Content:       pipeline,
		Relations:     relations,
		Notifications: fanout,
		Search:        searchService,
		Checks: map[string]app.Check{
			"database": db.PingContext,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("moments api listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := fanout.Wait(shutdownCtx); err != nil {
		logger.Warn("notification fanout still running at shutdown", "error", err)
	}
	if err := searchService.Wait(shutdownCtx); err != nil {
		logger.Warn("search indexing still running at shutdown", "error", err)
	}
	return nil
}
