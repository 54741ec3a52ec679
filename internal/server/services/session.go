// Package services contains server-side business logic. This file implements
// SessionService, which owns the session-token lifecycle: login, logout,
// refresh-token rotation, and password changes.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/auth"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService provides authentication-related operations:
//   - Login: verify credentials and mint tokens
//   - Refresh: rotate the stored refresh token and mint a new pair
//   - Logout: revoke the stored refresh token
//   - ChangePassword: re-hash and persist a new password
//
// At most one refresh token per user is valid at any time: every successful
// login or refresh overwrites the single stored value, and a presented token
// that does not match it exactly is rejected as stale.
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	accessTokenSecret            []byte
	refreshTokenSecret           []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewSessionService constructs a SessionService using repositories and server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		accessTokenSecret:            []byte(cfg.AccessTokenSecret),
		refreshTokenSecret:           []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Login looks the user up by username or email and verifies the password.
// On success it issues a fresh token pair, overwriting the stored refresh
// token (the single rotation point shared with Refresh), and returns the
// pair together with the public user projection.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*TokenPair, *models.PublicUser, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByLogin(ctx, normalizeIdentifier(identifier))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, common.ErrorInternal
	}

	if !s.checkPassword(user.PasswordHash, password) {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, nil, err
	}

	return pair, user.Public(), nil
}

// Refresh validates a presented refresh token, checks it against the single
// stored value, and rotates it transactionally. A verification failure or an
// unknown user yields common.ErrorUnauthorized; a valid-but-superseded token
// yields common.ErrRefreshTokenExpired (stale after a newer login/refresh).
func (s *SessionService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	claims, err := auth.ParseRefreshToken(presented, s.refreshTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return common.ErrorInternal
		}

		// a token that verified but is not the stored value was superseded
		// by a newer login or refresh
		if subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(presented)) != 1 {
			return common.ErrRefreshTokenExpired
		}

		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout clears the stored refresh token for userID. Any refresh token issued
// earlier fails Refresh from this point on, even before its own expiry.
// Access tokens already in flight remain valid until they expire.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)

	if err := repo.UpdateRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	return nil
}

// ChangePassword verifies the old password and persists a hash of the new
// one. The stored refresh token is left untouched.
func (s *SessionService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: both old and new password are required", common.ErrorValidation)
	}
	if oldPassword == newPassword {
		return fmt.Errorf("%w: old and new password cannot be the same", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	if !s.checkPassword(user.PasswordHash, oldPassword) {
		return common.ErrorUnauthorized
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// --- helpers below ---

// HashPassword produces a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func (s *SessionService) checkPassword(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

func (s *SessionService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.NewAccessToken(user, s.accessTokenSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := auth.NewRefreshToken(user.ID, s.refreshTokenSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	repo := s.repomanager.Users(tx)
	if err := repo.UpdateRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
