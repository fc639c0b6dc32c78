// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Warden HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Run database migrations (idempotent).
//  5. Connect to Redis. Startup continues without a cache when it is unreachable.
//  6. Wire services and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/warden/internal/api"
	"github.com/taibuivan/warden/internal/platform/config"
	"github.com/taibuivan/warden/internal/platform/constants"
	"github.com/taibuivan/warden/internal/platform/errlog"
	"github.com/taibuivan/warden/internal/platform/mailer"
	"github.com/taibuivan/warden/internal/platform/middleware"
	"github.com/taibuivan/warden/internal/platform/migration"
	pgstore "github.com/taibuivan/warden/internal/platform/postgres"
	redisstore "github.com/taibuivan/warden/internal/platform/redis"
	"github.com/taibuivan/warden/internal/platform/sec"
	"github.com/taibuivan/warden/internal/platform/storage"
	"github.com/taibuivan/warden/internal/users/account"
	"github.com/taibuivan/warden/internal/users/auth"
	"github.com/taibuivan/warden/internal/users/emaillink"
	"github.com/taibuivan/warden/internal/users/otp"
	"github.com/taibuivan/warden/internal/users/session"
	"github.com/taibuivan/warden/internal/users/totp"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[Warden] service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("cache", cfg.CacheEnabled()),
		slog.Bool("storage", cfg.StorageEnabled()),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 5. Redis ──────────────────────────────────────────────────────────
	// The cache only speeds up lookups. Every entry has a durable copy in
	// PostgreSQL, so an unreachable Redis degrades to database-only reads.
	var rdb *goredis.Client
	if cfg.CacheEnabled() {
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		if err != nil {
			log.Warn("redis_unavailable_running_without_cache", slog.Any("error", err))
			rdb = nil
		}
	}
	if rdb != nil {
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()
	}
	cache := redisstore.NewCache(rdb, log)

	// ── 6. Platform Services ──────────────────────────────────────────────
	txManager := pgstore.NewTxManager(pool)
	recorder := errlog.NewRecorder(errlog.NewPostgresStore(pool), log)

	sessionService := session.NewService(session.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        constants.AppName,
	}, session.NewPostgresRepository(pool), cache, log)

	otpService := otp.NewService(otp.NewPostgresRepository(pool), cache, log)
	totpService := totp.NewService(totp.Config{Issuer: cfg.WebsiteName})

	linkService, err := emaillink.NewService(emaillink.Config{
		Key:      cfg.EmailLinkKey,
		Protocol: cfg.LinkProtocol,
		Domain:   cfg.LinkDomain,
		Port:     cfg.LinkPort,
	})
	must(log, err, "initialize email links")

	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, log)

	// Interfaces holding a nil *storage.Storage are not nil, so the avatar
	// store is only assigned when a bucket is configured.
	var (
		authAvatars    auth.AvatarStore
		accountAvatars account.AvatarRemover
	)
	if cfg.StorageEnabled() {
		objects, err := storage.New(startupCtx, storage.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicURL:       cfg.S3PublicURL,
		}, log)
		must(log, err, "initialize object storage")
		authAvatars, accountAvatars = objects, objects
	}

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	health := api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
	}
	if rdb != nil {
		health.CheckCache = func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}
	}
	liveness, readiness := api.NewHealthHandlers(health, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	cookie := &middleware.AccessCookie{
		Signer:     sec.NewCookieSigner(cfg.CookieSecret),
		TimeToLive: cfg.AccessTokenTTL,
		Secure:     cfg.IsProduction(),
	}
	csrf := middleware.NewCSRF(cfg.CSRFSecret, cfg.IsProduction(), cfg.UseCSRF)

	userRepository := auth.NewUserRepository(pool)
	authService := auth.NewService(auth.Dependencies{
		Users:         userRepository,
		Sessions:      sessionService,
		Codes:         otpService,
		Authenticator: totpService,
		Links:         linkService,
		Mailer:        mail,
		Avatars:       authAvatars,
		Hasher:        sec.NewHasher(cfg.BcryptCost),
		Tx:            txManager,
	}, log)
	accountService := account.NewService(userRepository, sessionService, otpService, accountAvatars, txManager, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, api.Dependencies{
		Sessions: sessionService,
		Cookie:   cookie,
		Recorder: recorder,
	}, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, cookie, csrf, cfg.FrontendURL),
		Account:   account.NewHandler(accountService, cookie, csrf),
	})

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", "warden"))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
