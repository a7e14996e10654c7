// Package server initializes and runs the authorization core server.
// It wires configuration, storage, the directory client, and the services,
// starts the HTTP endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sgescolar/authcore/internal/logging"
	"github.com/sgescolar/authcore/internal/server/config"
	"github.com/sgescolar/authcore/internal/server/directory"
	"github.com/sgescolar/authcore/internal/server/httpapi"
	"github.com/sgescolar/authcore/internal/server/repositories/repomanager"
	"github.com/sgescolar/authcore/internal/server/services"
)

type App struct {
	config             *config.Config
	logger             logging.Logger
	repoManager        *repomanager.PostgresRepositoryManager
	sessionService     *services.SessionService
	entitlementService *services.EntitlementService
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	rm, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	dir := directory.NewHTTPClient(cfg.DirectoryBaseURL, cfg.DirectoryTimeout)

	sessions, err := services.NewSessionService(rm.Conn(), rm, dir, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("session service init error: %w", err)
	}
	entitlements := services.NewEntitlementService(rm.Conn(), rm, dir, logger)

	return &App{
		config:             cfg,
		logger:             logger,
		repoManager:        rm,
		sessionService:     sessions,
		entitlementService: entitlements,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	api := httpapi.NewServer(app.sessionService, app.entitlementService, app.logger)
	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "http shutdown error", "error", err.Error())
	}
	if err := app.repoManager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	return nil
}
