// Package rest exposes the application over HTTP: a chi router, the uniform
// response envelope, auth/CORS/logging/metrics middleware, and the handlers
// for user and note operations.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionService is the slice of the session service the handlers need.
type SessionService interface {
	Login(ctx context.Context, identifier, password string) (*services.TokenPair, *models.PublicUser, error)
	Refresh(ctx context.Context, presented string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// UserService is the slice of the user service the handlers need.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput, avatarPath string) (*models.PublicUser, error)
	GetCurrent(ctx context.Context, userID string) (*models.PublicUser, error)
	UpdateDetails(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID, avatarPath string) (*models.PublicUser, error)
}

// NoteService is the slice of the note service the handlers need.
type NoteService interface {
	Create(ctx context.Context, authorID, title, content string, imagePaths []string) (*models.Note, error)
	List(ctx context.Context, authorID string) ([]*models.Note, error)
	Update(ctx context.Context, noteID, authorID, title, content string, imagePaths []string) (*models.Note, error)
	Delete(ctx context.Context, noteID, authorID string) (*models.Note, error)
}

// RESTServer serves the JSON API.
type RESTServer struct {
	address           string
	sessions          SessionService
	users             UserService
	notes             NoteService
	logger            logging.Logger
	accessTokenSecret []byte
	accessTokenTTL    time.Duration
	refreshTokenTTL   time.Duration
	corsOrigin        string
	cookieSecure      bool
	tempUploadDir     string
	metrics           *metrics
	registry          *prometheus.Registry
}

// NewRESTServer wires the handlers and middleware into a server listening on
// the configured address.
func NewRESTServer(cfg *config.Config, l logging.Logger, ss SessionService, us UserService, ns NoteService) (*RESTServer, error) {
	registry := prometheus.NewRegistry()

	return &RESTServer{
		address:           cfg.EndpointAddr,
		sessions:          ss,
		users:             us,
		notes:             ns,
		logger:            l.With("module", "rest_server"),
		accessTokenSecret: []byte(cfg.AccessTokenSecret),
		accessTokenTTL:    cfg.AccessTokenValidityDuration,
		refreshTokenTTL:   cfg.RefreshTokenValidityDuration,
		corsOrigin:        cfg.CORSOrigin,
		cookieSecure:      cfg.CookieSecure,
		tempUploadDir:     cfg.TempUploadDir,
		metrics:           newMetrics(registry),
		registry:          registry,
	}, nil
}

// Router builds the route table. Auth-free routes (health, register, login,
// refresh) sit outside the auth group.
func (s *RESTServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(corsMiddleware(s.corsOrigin))
	r.Use(s.loggingMiddleware)
	r.Use(s.metrics.middleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/health", s.handleHealth)
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh-token", s.handleRefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/logout", s.handleLogout)
				r.Post("/change-password", s.handleChangePassword)
				r.Get("/current", s.handleCurrentUser)
				r.Patch("/update", s.handleUpdateDetails)
				r.Patch("/avatar", s.handleUpdateAvatar)
			})
		})

		r.Route("/notes", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.handleListNotes)
			r.Post("/create", s.handleCreateNote)
			r.Put("/update/{id}", s.handleUpdateNote)
			r.Delete("/delete/{id}", s.handleDeleteNote)
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *RESTServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.address,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "Starting REST server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping REST server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}
