package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/lib/pq"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const noteColumns = `id, title, content, author_id, images, is_deleted, deleted_at, created_at, updated_at`

func scanNote(row *sql.Row) (*models.Note, error) {
	note := &models.Note{}
	err := row.Scan(&note.ID, &note.Title, &note.Content, &note.AuthorID,
		pq.Array(&note.Images), &note.IsDeleted, &note.DeletedAt,
		&note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return note, nil
}

func (r *PostgresRepository) Create(ctx context.Context, note *models.Note) (*models.Note, error) {

	query :=
		`INSERT INTO notes (title, content, author_id, images)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, is_deleted, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		note.Title, note.Content, note.AuthorID, pq.Array(note.Images)).
		Scan(&note.ID, &note.IsDeleted, &note.CreatedAt, &note.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return note, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`
	return scanNote(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE author_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note := &models.Note{}
		err := rows.Scan(&note.ID, &note.Title, &note.Content, &note.AuthorID,
			pq.Array(&note.Images), &note.IsDeleted, &note.DeletedAt,
			&note.CreatedAt, &note.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return notes, nil
}

func (r *PostgresRepository) Update(ctx context.Context, note *models.Note) (*models.Note, error) {
	query := `
		UPDATE notes
		SET title = $2, content = $3, images = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + noteColumns

	return scanNote(r.db.QueryRowContext(ctx, query,
		note.ID, note.Title, note.Content, pq.Array(note.Images)))
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id string) (*models.Note, error) {
	// COALESCE keeps the original deletion stamp on repeat deletes
	query := `
		UPDATE notes
		SET is_deleted = TRUE, deleted_at = COALESCE(deleted_at, now()), updated_at = now()
		WHERE id = $1
		RETURNING ` + noteColumns

	return scanNote(r.db.QueryRowContext(ctx, query, id))
}
