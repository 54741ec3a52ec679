// Package notes declares the persistence contract for note records.
package notes

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

// Repository defines persistence operations for notes. Deletes are logical:
// SoftDelete flips is_deleted and stamps deleted_at, never removing the row.
type Repository interface {
	// Create inserts a new note and returns it with the generated ID and
	// timestamps.
	Create(ctx context.Context, note *models.Note) (*models.Note, error)

	// GetByID returns the note with the given ID or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Note, error)

	// ListByAuthor returns all notes owned by authorID, newest first.
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Note, error)

	// Update replaces title, content and images and returns the updated
	// record, or common.ErrorNotFound.
	Update(ctx context.Context, note *models.Note) (*models.Note, error)

	// SoftDelete marks the note deleted and returns the updated record.
	// Deleting an already deleted note succeeds and keeps the original
	// deleted_at stamp.
	SoftDelete(ctx context.Context, id string) (*models.Note, error)
}
