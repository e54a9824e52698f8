package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/hammer-mt/FireFlask/api/routes"
	"github.com/hammer-mt/FireFlask/internal/analytics"
	"github.com/hammer-mt/FireFlask/internal/auth"
	"github.com/hammer-mt/FireFlask/internal/authz"
	"github.com/hammer-mt/FireFlask/internal/connectors"
	"github.com/hammer-mt/FireFlask/internal/memberships"
	"github.com/hammer-mt/FireFlask/internal/teams"
	"github.com/hammer-mt/FireFlask/internal/users"
	"github.com/hammer-mt/FireFlask/pkg/auth/cookie"
	"github.com/hammer-mt/FireFlask/pkg/auth/session"
	"github.com/hammer-mt/FireFlask/pkg/config"
	"github.com/hammer-mt/FireFlask/pkg/db"
	"github.com/hammer-mt/FireFlask/pkg/instance"
	"github.com/hammer-mt/FireFlask/pkg/logger"
	"github.com/hammer-mt/FireFlask/pkg/metrics"
	"github.com/hammer-mt/FireFlask/pkg/migrate"
	"github.com/hammer-mt/FireFlask/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: cfg.Service.Name,
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	handler, err := buildHandler(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildHandler wires repositories, services and the router.
func buildHandler(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	upstream := metrics.NewUpstreamMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return nil, err
	}
	oauthState, err := cookie.NewOAuthStateStore(cfg.Session)
	if err != nil {
		return nil, err
	}

	membershipRepo := memberships.NewRepository(dbClient.DB())
	teamRepo := teams.NewRepository(dbClient.DB())

	gate, err := authz.NewGate(membershipRepo)
	if err != nil {
		return nil, err
	}

	userService, err := users.NewService(users.ServiceParams{
		DB:             dbClient,
		Resets:         redisClient,
		Notifier:       users.NewLogNotifier(logg),
		PasswordConfig: cfg.Password,
		ResetTTL:       cfg.Redis.ResetTTL,
	})
	if err != nil {
		return nil, err
	}

	teamService, err := teams.NewService(teams.ServiceParams{
		DB:          dbClient,
		Teams:       teamRepo,
		Memberships: membershipRepo,
		Gate:        gate,
		Users:       userService,
	})
	if err != nil {
		return nil, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          userService,
		Teams:          membershipRepo,
		Gate:           gate,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		return nil, err
	}

	connectorService, err := connectors.NewService(connectors.ServiceParams{
		Teams:   teamRepo,
		Config:  cfg.Facebook,
		Metrics: upstream,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}

	analyticsService, err := analytics.NewService(analytics.ServiceParams{
		Teams:   teamRepo,
		Config:  cfg.Analytics,
		Metrics: upstream,
	})
	if err != nil {
		return nil, err
	}

	return routes.NewRouter(routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		RateLimiter: redisClient,
		Sessions:    sessionManager,
		OAuthState:  oauthState,
		Gatherer:    registry,
		Gate:        gate,
		Auth:        authService,
		Users:       userService,
		Teams:       teamService,
		Connectors:  connectorService,
		Analytics:   analyticsService,
	}), nil
}
