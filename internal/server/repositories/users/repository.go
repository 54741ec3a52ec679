// Package users declares the credential-store contract for user records.
// The refresh_token column is written only through UpdateRefreshToken; it is
// the single stored value backing refresh-token rotation.
package users

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

// Repository defines persistence operations for user records.
type Repository interface {
	// Create inserts a new user and returns it with the generated ID and
	// timestamps. A username/email collision yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns the user with the given ID or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByLogin returns the user whose username or email equals identifier,
	// or common.ErrorNotFound.
	GetByLogin(ctx context.Context, identifier string) (*models.User, error)

	// Exists reports whether a user with the given username or email exists.
	Exists(ctx context.Context, username, email string) (bool, error)

	// UpdateRefreshToken overwrites the stored refresh token value. An empty
	// token logs the user out.
	UpdateRefreshToken(ctx context.Context, userID, token string) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// UpdateDetails sets full name and/or email (blank keeps the current
	// value) and returns the updated record.
	UpdateDetails(ctx context.Context, userID, fullName, email string) (*models.User, error)

	// UpdateAvatar replaces the avatar URL and storage key and returns the
	// updated record.
	UpdateAvatar(ctx context.Context, userID, avatarURL, avatarKey string) (*models.User, error)
}
