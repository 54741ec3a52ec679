// Package server wires the application together: configuration, logging,
// database, migrations, media uploader, services, and the REST server, with
// graceful shutdown on OS signals.
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

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/media"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/notekeeper/internal/server/rest"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	sessionService *services.SessionService
	userService    *services.UserService
	noteService    *services.NoteService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	uploader, err := media.NewS3Uploader(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("media uploader init error: %w", err)
	}

	ss := services.NewSessionService(db, m, cfg)
	us := services.NewUserService(db, m, uploader, logger)
	ns := services.NewNoteService(db, m, uploader, logger)

	return &App{
		config:         cfg,
		logger:         logger,
		db:             db,
		sessionService: ss,
		userService:    us,
		noteService:    ns,
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

func (app *App) startRESTServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := rest.NewRESTServer(app.config, app.logger, app.sessionService, app.userService, app.noteService)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startRESTServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
