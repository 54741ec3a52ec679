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
	"github.com/microcosm-cc/bluemonday"
)

// NoteService handles note CRUD. Content passes through an HTML sanitizer
// before persistence; images are pushed to the media host first and the note
// row references their URLs.
type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	uploader    media.Uploader
	content     *bluemonday.Policy
	title       *bluemonday.Policy
	logger      logging.Logger
}

// NewNoteService constructs a NoteService.
func NewNoteService(db *sql.DB, m repomanager.RepositoryManager, uploader media.Uploader, logger logging.Logger) *NoteService {
	return &NoteService{
		db:          db,
		repomanager: m,
		uploader:    uploader,
		content:     bluemonday.UGCPolicy(),
		title:       bluemonday.StrictPolicy(),
		logger:      logger.With("module", "note_service"),
	}
}

// Create validates and sanitizes the fields, uploads the staged images, and
// inserts the note. If the insert fails, already-uploaded objects are deleted
// best-effort.
func (s *NoteService) Create(ctx context.Context, authorID, title, content string, imagePaths []string) (*models.Note, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: title and content are required", common.ErrorValidation)
	}

	urls, keys, err := s.uploadImages(ctx, imagePaths)
	if err != nil {
		return nil, err
	}

	note := &models.Note{
		Title:    s.title.Sanitize(title),
		Content:  s.content.Sanitize(content),
		AuthorID: authorID,
		Images:   urls,
	}

	repo := s.repomanager.Notes(s.db)
	created, err := repo.Create(ctx, note)
	if err != nil {
		s.cleanupObjects(ctx, keys)
		return nil, fmt.Errorf("error creating note: %w", err)
	}

	return created, nil
}

// List returns all notes owned by authorID, newest first.
func (s *NoteService) List(ctx context.Context, authorID string) ([]*models.Note, error) {
	repo := s.repomanager.Notes(s.db)

	notes, err := repo.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return notes, nil
}

// Update replaces title, content and (when new images are staged) the image
// list of a note owned by authorID. Only these three fields ever mutate.
func (s *NoteService) Update(ctx context.Context, noteID, authorID, title, content string, imagePaths []string) (*models.Note, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: title and content are required", common.ErrorValidation)
	}

	repo := s.repomanager.Notes(s.db)

	note, err := s.getOwned(ctx, repo.GetByID, noteID, authorID)
	if err != nil {
		return nil, err
	}

	images := note.Images
	var keys []string
	if len(imagePaths) > 0 {
		images, keys, err = s.uploadImages(ctx, imagePaths)
		if err != nil {
			return nil, err
		}
	}

	note.Title = s.title.Sanitize(title)
	note.Content = s.content.Sanitize(content)
	note.Images = images

	updated, err := repo.Update(ctx, note)
	if err != nil {
		s.cleanupObjects(ctx, keys)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	return updated, nil
}

// Delete soft-deletes a note owned by authorID. Deleting a note that is
// already deleted succeeds again and reports isDeleted: true.
func (s *NoteService) Delete(ctx context.Context, noteID, authorID string) (*models.Note, error) {
	repo := s.repomanager.Notes(s.db)

	if _, err := s.getOwned(ctx, repo.GetByID, noteID, authorID); err != nil {
		return nil, err
	}

	note, err := repo.SoftDelete(ctx, noteID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return note, nil
}

// --- helpers below ---

func (s *NoteService) getOwned(ctx context.Context, get func(context.Context, string) (*models.Note, error), noteID, authorID string) (*models.Note, error) {
	note, err := get(ctx, noteID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	if note.AuthorID != authorID {
		return nil, common.ErrorUnauthorized
	}
	return note, nil
}

// uploadImages pushes every staged file to the media host. A failure rolls
// back the objects uploaded so far (best-effort) and fails the request.
func (s *NoteService) uploadImages(ctx context.Context, paths []string) ([]string, []string, error) {
	urls := make([]string, 0, len(paths))
	keys := make([]string, 0, len(paths))

	for _, path := range paths {
		obj, err := s.uploader.Upload(ctx, path)
		if err != nil {
			s.cleanupObjects(ctx, keys)
			return nil, nil, fmt.Errorf("image upload failed: %w", err)
		}
		urls = append(urls, obj.URL)
		keys = append(keys, obj.Key)
	}

	return urls, keys, nil
}

func (s *NoteService) cleanupObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.uploader.Delete(ctx, key); err != nil {
			s.logger.Warn(ctx, "orphaned media object could not be deleted", "key", key, "error", err)
		}
	}
}
