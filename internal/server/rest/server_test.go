package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/auth"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

const testAccessSecret = "test-access-secret"

// ---- fakes ----

type fakeSessions struct {
	loginPair *services.TokenPair
	loginUser *models.PublicUser
	loginErr  error

	refreshPair *services.TokenPair
	refreshErr  error

	logoutErr error

	changeErr error

	logoutUserID string
}

func (f *fakeSessions) Login(ctx context.Context, identifier, password string) (*services.TokenPair, *models.PublicUser, error) {
	return f.loginPair, f.loginUser, f.loginErr
}

func (f *fakeSessions) Refresh(ctx context.Context, presented string) (*services.TokenPair, error) {
	return f.refreshPair, f.refreshErr
}

func (f *fakeSessions) Logout(ctx context.Context, userID string) error {
	f.logoutUserID = userID
	return f.logoutErr
}

func (f *fakeSessions) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	return f.changeErr
}

type fakeUsers struct {
	user *models.PublicUser
	err  error

	registerIn     services.RegisterInput
	registerAvatar string
}

func (f *fakeUsers) Register(ctx context.Context, in services.RegisterInput, avatarPath string) (*models.PublicUser, error) {
	f.registerIn = in
	f.registerAvatar = avatarPath
	return f.user, f.err
}

func (f *fakeUsers) GetCurrent(ctx context.Context, userID string) (*models.PublicUser, error) {
	return f.user, f.err
}

func (f *fakeUsers) UpdateDetails(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error) {
	return f.user, f.err
}

func (f *fakeUsers) UpdateAvatar(ctx context.Context, userID, avatarPath string) (*models.PublicUser, error) {
	return f.user, f.err
}

type fakeNotes struct {
	note  *models.Note
	notes []*models.Note
	err   error

	lastAuthorID string
	lastNoteID   string
}

func (f *fakeNotes) Create(ctx context.Context, authorID, title, content string, imagePaths []string) (*models.Note, error) {
	f.lastAuthorID = authorID
	return f.note, f.err
}

func (f *fakeNotes) List(ctx context.Context, authorID string) ([]*models.Note, error) {
	f.lastAuthorID = authorID
	return f.notes, f.err
}

func (f *fakeNotes) Update(ctx context.Context, noteID, authorID, title, content string, imagePaths []string) (*models.Note, error) {
	f.lastNoteID = noteID
	f.lastAuthorID = authorID
	return f.note, f.err
}

func (f *fakeNotes) Delete(ctx context.Context, noteID, authorID string) (*models.Note, error) {
	f.lastNoteID = noteID
	f.lastAuthorID = authorID
	return f.note, f.err
}

// ---- helpers ----

func newTestServer(t *testing.T, ss SessionService, us UserService, ns NoteService) *RESTServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AccessTokenSecret = testAccessSecret
	cfg.RefreshTokenSecret = "test-refresh-secret"
	cfg.AccessTokenValidityDuration = time.Minute
	cfg.RefreshTokenValidityDuration = time.Hour
	cfg.TempUploadDir = "tmp-test-uploads"

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	s, err := NewRESTServer(cfg, logger, ss, us, ns)
	if err != nil {
		t.Fatalf("NewRESTServer error: %v", err)
	}
	return s
}

func testAccessToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.NewAccessToken(&models.User{ID: userID, Username: "alice"}, []byte(testAccessSecret), time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	return token
}

// ---- error translation ----

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", common.ErrorValidation, http.StatusBadRequest},
		{"wrapped validation", errors.Join(common.ErrorValidation, errors.New("details")), http.StatusBadRequest},
		{"unauthorized", common.ErrorUnauthorized, http.StatusUnauthorized},
		{"invalid token", common.ErrInvalidToken, http.StatusUnauthorized},
		{"token expired", common.ErrTokenExpired, http.StatusUnauthorized},
		{"refresh token expired", common.ErrRefreshTokenExpired, http.StatusUnauthorized},
		{"not found", common.ErrorNotFound, http.StatusNotFound},
		{"conflict", common.ErrorAlreadyExists, http.StatusConflict},
		{"internal", common.ErrorInternal, http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
