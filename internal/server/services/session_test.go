package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	notesrepo "github.com/dmitrijs2005/notekeeper/internal/server/repositories/notes"
	usersrepo "github.com/dmitrijs2005/notekeeper/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	mock.MatchExpectationsInOrder(false)
	return db, mock
}

func newSessionService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *SessionService {
	t.Helper()
	cfg := &config.Config{
		AccessTokenSecret:            "access-k",
		RefreshTokenSecret:           "refresh-k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewSessionService(db, rm, cfg)
}

// fakeUsersRepo keeps a single user in memory and emulates refresh-token
// rotation by mutating it in place.
type fakeUsersRepo struct {
	user *models.User

	getErr    error
	updateErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.user == nil || f.user.ID != id {
		return nil, common.ErrorNotFound
	}
	u := *f.user
	return &u, nil
}

func (f *fakeUsersRepo) GetByLogin(ctx context.Context, identifier string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.user == nil || (f.user.Username != identifier && f.user.Email != identifier) {
		return nil, common.ErrorNotFound
	}
	u := *f.user
	return &u, nil
}

func (f *fakeUsersRepo) Exists(ctx context.Context, username, email string) (bool, error) {
	return f.user != nil && (f.user.Username == username || f.user.Email == email), nil
}

func (f *fakeUsersRepo) UpdateRefreshToken(ctx context.Context, userID, token string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.user == nil || f.user.ID != userID {
		return common.ErrorNotFound
	}
	f.user.RefreshToken = token
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if f.user == nil || f.user.ID != userID {
		return common.ErrorNotFound
	}
	f.user.PasswordHash = passwordHash
	return nil
}

func (f *fakeUsersRepo) UpdateDetails(ctx context.Context, userID, fullName, email string) (*models.User, error) {
	if f.user == nil || f.user.ID != userID {
		return nil, common.ErrorNotFound
	}
	if fullName != "" {
		f.user.FullName = fullName
	}
	if email != "" {
		f.user.Email = email
	}
	return f.user, nil
}

func (f *fakeUsersRepo) UpdateAvatar(ctx context.Context, userID, avatarURL, avatarKey string) (*models.User, error) {
	if f.user == nil || f.user.ID != userID {
		return nil, common.ErrorNotFound
	}
	f.user.Avatar = avatarURL
	f.user.AvatarKey = avatarKey
	return f.user, nil
}

type fakeRepoManager struct {
	users *fakeUsersRepo
	notes notesrepo.Repository
}

func (f *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository             { return f.users }
func (f *fakeRepoManager) Notes(db dbx.DBTX) notesrepo.Repository             { return f.notes }

func storedUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	return &models.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        "a@x.com",
		FullName:     "Alice Smith",
		PasswordHash: hash,
	}
}

// --- Login ---

func TestLogin_Success_RotatesStoredToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{users: &fakeUsersRepo{user: storedUser(t, "secret1")}}
	s := newSessionService(t, db, rm)

	pair, pub, err := s.Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair: %+v", pair)
	}
	if rm.users.user.RefreshToken != pair.RefreshToken {
		t.Fatalf("stored refresh token must equal the issued one")
	}
	if pub.Username != "alice" {
		t.Fatalf("unexpected public user: %+v", pub)
	}
}

func TestLogin_ByEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{users: &fakeUsersRepo{user: storedUser(t, "secret1")}}
	s := newSessionService(t, db, rm)

	_, _, err := s.Login(context.Background(), "A@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login by email error: %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{users: &fakeUsersRepo{}}
	s := newSessionService(t, db, rm)

	_, _, err := s.Login(context.Background(), "ghost", "whatever")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{users: &fakeUsersRepo{user: storedUser(t, "secret1")}}
	s := newSessionService(t, db, rm)

	_, _, err := s.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected common.ErrorUnauthorized, got %v", err)
	}
	if rm.users.user.RefreshToken != "" {
		t.Fatalf("failed login must not rotate the stored token")
	}
}

// --- Refresh ---

func TestRefresh_SucceedsOnceThenOriginalTokenIsStale(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{users: &fakeUsersRepo{user: storedUser(t, "secret1")}}
	s := newSessionService(t, db, rm)

	pair, _, err := s.Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectCommit()
	newPair, err := s.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("first Refresh error: %v", err)
	}
	if newPair.RefreshToken == pair.RefreshToken {
		t.Fatalf("refresh must rotate the token")
	}

	// replaying the original token after rotation must fail
	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = s.Refresh(context.Background(), pair.RefreshToken)
	if !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("expected common.ErrRefreshTokenExpired for stale token, got %v", err)
	}
}

func TestRefresh_AfterNewLogin_OldTokenRejected(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{users: &fakeUsersRepo{user: storedUser(t, "secret1")}}
	s := newSessionService(t, db, rm)

	first, _, err := s.Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	// a concurrent login from another device rotates the stored value
	if _, _, err := s.Login(context.Background(), "alice", "secret1"); err != nil {
		t.Fatalf("second Login error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = s.Refresh(context.Background(), first.RefreshToken)
	if !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("expected common.ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{users: &fakeUsersRepo{user: storedUser(t, "secret1")}}
	s := newSessionService(t, db, rm)

	_, err := s.Refresh(context.Background(), "not.a.jwt")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected common.ErrorUnauthorized, got %v", err)
	}
}

func TestRefresh_AfterLogout_Rejected(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{users: &fakeUsersRepo{user: storedUser(t, "secret1")}}
	s := newSessionService(t, db, rm)

	pair, _, err := s.Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if err := s.Logout(context.Background(), "u-1"); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if rm.users.user.RefreshToken != "" {
		t.Fatalf("logout must clear the stored refresh token")
	}

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = s.Refresh(context.Background(), pair.RefreshToken)
	if !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("expected common.ErrRefreshTokenExpired after logout, got %v", err)
	}
}

// --- ChangePassword ---

func TestChangePassword_SamePasswords(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	user := storedUser(t, "secret1")
	origHash := user.PasswordHash
	rm := &fakeRepoManager{users: &fakeUsersRepo{user: user}}
	s := newSessionService(t, db, rm)

	err := s.ChangePassword(context.Background(), "u-1", "secret1", "secret1")
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("expected common.ErrorValidation, got %v", err)
	}
	if user.PasswordHash != origHash {
		t.Fatalf("hash must be untouched on validation failure")
	}
}

func TestChangePassword_MissingFields(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{users: &fakeUsersRepo{user: storedUser(t, "secret1")}}
	s := newSessionService(t, db, rm)

	err := s.ChangePassword(context.Background(), "u-1", "", "new")
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("expected common.ErrorValidation, got %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{users: &fakeUsersRepo{user: storedUser(t, "secret1")}}
	s := newSessionService(t, db, rm)

	err := s.ChangePassword(context.Background(), "u-1", "wrong", "newpass")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected common.ErrorUnauthorized, got %v", err)
	}
}

func TestChangePassword_Success_KeepsRefreshToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	user := storedUser(t, "secret1")
	rm := &fakeRepoManager{users: &fakeUsersRepo{user: user}}
	s := newSessionService(t, db, rm)

	pair, _, err := s.Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	origHash := user.PasswordHash
	if err := s.ChangePassword(context.Background(), "u-1", "secret1", "secret2"); err != nil {
		t.Fatalf("ChangePassword error: %v", err)
	}
	if user.PasswordHash == origHash {
		t.Fatalf("hash must change")
	}
	if user.RefreshToken != pair.RefreshToken {
		t.Fatalf("refresh token must be untouched by password change")
	}

	// the still-stored refresh token remains usable
	mock.ExpectBegin()
	mock.ExpectCommit()
	if _, err := s.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("Refresh after password change error: %v", err)
	}
}
