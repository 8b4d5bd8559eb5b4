// Package server initializes and runs the authentication server: it opens
// the database, runs migrations, wires the services and starts the HTTP
// endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dbelyaev/srpvault/internal/logging"
	"github.com/dbelyaev/srpvault/internal/server/auth"
	"github.com/dbelyaev/srpvault/internal/server/config"
	"github.com/dbelyaev/srpvault/internal/server/httpapi"
	"github.com/dbelyaev/srpvault/internal/server/repositories/repomanager"
	"github.com/dbelyaev/srpvault/internal/server/services"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	sessions *auth.LoginSessionStore
	pairings *auth.PairingStore
	pake     *services.PakeService
	pairing  *services.PairingService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	sessions := auth.NewLoginSessionStore(cfg.LoginSessionTTL)
	pairings := auth.NewPairingStore(cfg.PairingSessionTTL)
	limiter := auth.NewAttemptLimiter(cfg.AuthFailureThreshold, cfg.AuthFailureWindow, cfg.AuthBlockDuration)

	pake := services.NewPakeService(db, rm, sessions, limiter, logger, cfg)
	pairing := services.NewPairingService(db, pairings, limiter, pake, logger)

	return &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		sessions: sessions,
		pairings: pairings,
		pake:     pake,
		pairing:  pairing,
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.pake, app.pairing, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.sessions.Close()
	app.pairings.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
