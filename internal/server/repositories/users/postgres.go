package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, email, full_name, avatar, avatar_key, password_hash, refresh_token, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.Avatar, &user.AvatarKey, &user.PasswordHash, &user.RefreshToken,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, email, full_name, avatar, avatar_key, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.FullName, user.Avatar, user.AvatarKey, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, identifier string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *PostgresRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, userID, token string) error {
	query := `UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, userID, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateDetails(ctx context.Context, userID, fullName, email string) (*models.User, error) {
	query := `
		UPDATE users
		SET full_name = COALESCE(NULLIF($2, ''), full_name),
		    email = COALESCE(NULLIF($3, ''), email),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID, fullName, email))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, common.ErrorAlreadyExists
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, userID, avatarURL, avatarKey string) (*models.User, error) {
	query := `
		UPDATE users
		SET avatar = $2, avatar_key = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, userID, avatarURL, avatarKey))
}
