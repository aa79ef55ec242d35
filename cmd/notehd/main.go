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

	"notehd/internal/auth"
	"notehd/internal/config"
	httpserver "notehd/internal/http_server"
	"notehd/internal/http_server/handlers/google"
	"notehd/internal/http_server/handlers/health"
	"notehd/internal/lib/logger/sl"
	"notehd/internal/lib/verification"
	"notehd/internal/mailer"
	"notehd/internal/notes"
	googleoauth "notehd/internal/oauth/google"
	"notehd/internal/rabbitmq"
	"notehd/internal/session"
	"notehd/internal/storage/memory"
	"notehd/internal/storage/postgres"
	"notehd/internal/storage/redis"

	"github.com/common-nighthawk/go-figure"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type repository interface {
	auth.AccountSaver
	auth.AccountProvider
	notes.Storage
	Close()
}

func main() {
	cfg := config.MustLoad(config.FetchConfigPath())

	log := setupLogger(cfg.Env)

	if cfg.Env == envLocal {
		figure.NewFigure("notehd", "", true).Print()
	}

	log.Info("starting notehd",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("notifier", cfg.Notifier.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pingers := map[string]health.Pinger{}

	repo, err := setupStorage(ctx, cfg, pingers)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}
	defer repo.Close()

	publisher, closePublisher, err := setupPublisher(log, cfg)
	if err != nil {
		log.Error("failed to init notifier", sl.Err(err))
		os.Exit(1)
	}
	defer closePublisher()

	sessions := session.New(cfg.Tokens.SessionSecret, cfg.Tokens.SessionTTL)

	notifier := verification.New(log, publisher, cfg.Notifier.SenderName, cfg.Notifier.SenderEmail, cfg.OTP.TTL)

	authService := auth.New(log, repo, repo, notifier, sessions, cfg.OTP.TTL)
	noteService := notes.New(log, repo)

	googleRoutes, closeStates, err := setupGoogle(ctx, log, cfg, repo, pingers)
	if err != nil {
		log.Error("failed to init google sign-in", sl.Err(err))
		os.Exit(1)
	}
	defer closeStates()

	go authService.RunJanitor(ctx, cfg.Signup.PurgeInterval, cfg.Signup.PurgeGrace)

	router := httpserver.NewRouter(httpserver.Deps{
		Log:            log,
		Accounts:       authService,
		Sessions:       sessions,
		Notes:          noteService,
		Google:         googleRoutes,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Health:         pingers,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("notehd stopped")
}

func setupStorage(ctx context.Context, cfg *config.Config, pingers map[string]health.Pinger) (repository, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StoragePostgres:
		repo, err := postgres.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		pingers["postgres"] = repo

		return repo, nil
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Storage.Driver)
	}
}

func setupPublisher(log *slog.Logger, cfg *config.Config) (verification.Publisher, func(), error) {
	switch cfg.Notifier.Driver {
	case config.NotifierRabbitMQ:
		client, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			return nil, nil, err
		}

		return client, client.Close, nil
	case config.NotifierSMTP:
		m := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)

		return m, func() {}, nil
	case config.NotifierLog:
		return verification.NewLogPublisher(log), func() {}, nil
	default:
		return nil, nil, errors.New("unknown notifier driver: " + cfg.Notifier.Driver)
	}
}

func setupGoogle(
	ctx context.Context,
	log *slog.Logger,
	cfg *config.Config,
	repo repository,
	pingers map[string]health.Pinger,
) (*httpserver.GoogleRoutes, func(), error) {
	if !cfg.GoogleEnabled() {
		log.Warn("google sign-in disabled, client credentials not configured")
		return nil, func() {}, nil
	}

	provider, err := googleoauth.New(ctx,
		cfg.Google.ClientID,
		cfg.Google.ClientSecret,
		cfg.Google.RedirectURL,
		cfg.Google.Issuer,
	)
	if err != nil {
		return nil, nil, err
	}

	var (
		states google.StateStore
		closer = func() {}
	)

	switch cfg.OAuth.StateStore {
	case config.StateStoreRedis:
		rdb, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		pingers["redis"] = rdb
		states, closer = rdb, rdb.Close
	case config.StateStoreMemory:
		if m, ok := repo.(*memory.Storage); ok {
			states = m
		} else {
			states = memory.New()
		}
	default:
		return nil, nil, errors.New("unknown oauth state store: " + cfg.OAuth.StateStore)
	}

	return &httpserver.GoogleRoutes{
		Provider:   provider,
		States:     states,
		StateTTL:   cfg.OAuth.StateTTL,
		SuccessURL: cfg.OAuth.SuccessURL,
		FailureURL: cfg.OAuth.FailureURL,
	}, closer, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
