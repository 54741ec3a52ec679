package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/media"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
)

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// UserService handles account management: registration, profile reads and
// updates, and avatar replacement.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	uploader    media.Uploader
	logger      logging.Logger
}

// NewUserService constructs a UserService.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, uploader media.Uploader, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		uploader:    uploader,
		logger:      logger.With("module", "user_service"),
	}
}

// Register validates the input, rejects duplicate username/email before any
// upload happens, pushes the avatar to the media host, and creates the user.
// If the insert fails after the avatar was uploaded, the uploaded object is
// deleted best-effort.
func (s *UserService) Register(ctx context.Context, in RegisterInput, avatarPath string) (*models.PublicUser, error) {
	if anyBlank(in.FullName, in.Username, in.Email, in.Password) {
		return nil, fmt.Errorf("%w: all fields are required", common.ErrorValidation)
	}
	if avatarPath == "" {
		return nil, fmt.Errorf("%w: avatar is required", common.ErrorValidation)
	}

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))

	repo := s.repomanager.Users(s.db)

	exists, err := repo.Exists(ctx, username, email)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if exists {
		return nil, common.ErrorAlreadyExists
	}

	avatar, err := s.uploader.Upload(ctx, avatarPath)
	if err != nil {
		return nil, fmt.Errorf("avatar upload failed: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Avatar:       avatar.URL,
		AvatarKey:    avatar.Key,
		PasswordHash: hash,
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		s.cleanupObject(ctx, avatar.Key)
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return created.Public(), nil
}

// GetCurrent returns the public projection of the user with the given ID.
func (s *UserService) GetCurrent(ctx context.Context, userID string) (*models.PublicUser, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user.Public(), nil
}

// UpdateDetails sets full name and/or email; at least one must be provided.
func (s *UserService) UpdateDetails(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))

	if fullName == "" && email == "" {
		return nil, fmt.Errorf("%w: at least one field is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.UpdateDetails(ctx, userID, fullName, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, common.ErrorInternal
	}
	return user.Public(), nil
}

// UpdateAvatar uploads the new avatar, persists its URL, and then deletes the
// previous object best-effort.
func (s *UserService) UpdateAvatar(ctx context.Context, userID, avatarPath string) (*models.PublicUser, error) {
	if avatarPath == "" {
		return nil, fmt.Errorf("%w: avatar is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)

	current, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	avatar, err := s.uploader.Upload(ctx, avatarPath)
	if err != nil {
		return nil, fmt.Errorf("avatar upload failed: %w", err)
	}

	user, err := repo.UpdateAvatar(ctx, userID, avatar.URL, avatar.Key)
	if err != nil {
		s.cleanupObject(ctx, avatar.Key)
		return nil, common.ErrorInternal
	}

	if current.AvatarKey != "" {
		s.cleanupObject(ctx, current.AvatarKey)
	}

	return user.Public(), nil
}

// cleanupObject deletes an uploaded object that is no longer referenced.
// Failures are logged, not propagated: the record is already consistent.
func (s *UserService) cleanupObject(ctx context.Context, key string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.Warn(ctx, "orphaned media object could not be deleted", "key", key, "error", err)
	}
}

func anyBlank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}
