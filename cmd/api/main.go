package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/delordemm1/notes-api/internal/cache"
	"github.com/delordemm1/notes-api/internal/config"
	"github.com/delordemm1/notes-api/internal/database"
	"github.com/delordemm1/notes-api/internal/identity"
	"github.com/delordemm1/notes-api/internal/jwtauth"
	"github.com/delordemm1/notes-api/internal/middleware"
	"github.com/delordemm1/notes-api/internal/modules/auth"
	"github.com/delordemm1/notes-api/internal/modules/note"
	"github.com/delordemm1/notes-api/internal/notification"
	"github.com/delordemm1/notes-api/internal/notification/templates"
	"github.com/delordemm1/notes-api/internal/ratelimit"
	"github.com/delordemm1/notes-api/internal/server"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Options for the CLI.
type Options struct {
	Port int `help:"Port to listen on, overrides SERVER_PORT" short:"p"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		cfg, err := config.Load()
		if err != nil {
			logger.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}))
		slog.SetDefault(logger)
		logger.Info("configuration loaded successfully", "env", cfg.Server.Env)

		ctx := context.Background()

		// --- Database & Cache ---
		dbPool, err := database.NewPostgresPool(ctx, cfg.Database.URL, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully connected to postgres database")

		var redisClient *redis.Client
		var limiter ratelimit.Limiter
		if cfg.Redis.URL != "" {
			redisClient, err = cache.NewRedisClient(ctx, cfg.Redis.URL)
			if err != nil {
				logger.Error("failed to connect to redis", "error", err)
				os.Exit(1)
			}
			logger.Info("successfully connected to redis")
			limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		} else {
			logger.Warn("REDIS_URL not set, rate limits are per instance")
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		}

		// --- Shared infrastructure ---
		issuer, err := jwtauth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
		if err != nil {
			logger.Error("failed to create token issuer", "error", err)
			os.Exit(1)
		}
		requireAuth := middleware.BearerAuth(issuer, logger)

		if cfg.Google.ClientID == "" {
			logger.Warn("GOOGLE_CLIENT_ID not set, google sign-in will reject every token")
		}
		google, err := identity.NewGoogleVerifier(ctx, cfg.Google.ClientID, &http.Client{Timeout: 10 * time.Second})
		if err != nil {
			logger.Error("failed to create google verifier", "error", err)
			os.Exit(1)
		}

		var sender notification.EmailSender
		if cfg.SMTP.Host != "" {
			sender = notification.NewSMTPEmailSender(notification.SMTPConfig{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			})
		} else {
			logger.Warn("SMTP_HOST not set, emails will not be sent")
			sender = notification.NewLogEmailSender(logger)
		}
		notifier := notification.NewService(&notification.Config{
			Sender:       sender,
			Templates:    templates.NewEngine(templates.Config{}),
			Logger:       logger,
			AppName:      "Notes",
			ValidMinutes: int(auth.CodeTTL / time.Minute),
		})

		// --- Module Initialization (Bottom-Up) ---

		// Auth Module
		authRepo := auth.NewRepository(dbPool)
		authService := auth.NewService(&auth.Config{
			Repo:            authRepo,
			Logger:          logger,
			Tokens:          issuer,
			Identity:        google,
			Deliverer:       notifier,
			Hasher:          auth.NewBcryptHasher(bcrypt.DefaultCost),
			DeliveryTimeout: cfg.Delivery.Timeout,
			LogFallback:     cfg.Delivery.LogFallback,
		})
		authHandler := auth.NewHandler(&auth.HandlerConfig{
			Service:     authService,
			Logger:      logger,
			RequireAuth: requireAuth,
			Throttle:    ratelimit.Middleware(limiter, "auth", logger),
		})
		housekeeper := auth.NewHousekeeper(authRepo, logger, cfg.Housekeeping.Interval)

		// Note Module
		noteService := note.NewService(note.NewRepository(dbPool), logger)
		noteHandler := note.NewHandler(noteService, logger, requireAuth)

		router := server.New(cfg, logger, authHandler, noteHandler)

		port := cfg.Server.Port
		if options.Port != 0 {
			port = options.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			housekeeper.Start()
			logger.Info(fmt.Sprintf("Starting server on port %d...", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server failed to start", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown failed", "error", err)
			}
			housekeeper.Stop()
			if redisClient != nil {
				_ = redisClient.Close()
			}
			dbPool.Close()
			logger.Info("server stopped")
		})
	})
	cli.Run()
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
