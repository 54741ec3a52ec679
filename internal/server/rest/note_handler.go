package rest

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/go-chi/chi/v5"
)

func (s *RESTServer) handleListNotes(w http.ResponseWriter, r *http.Request) {
	claims := sessionFrom(r.Context())

	notes, err := s.notes.List(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Notes retrieved successfully", notes)
}

func (s *RESTServer) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("%w: multipart form expected", common.ErrorValidation))
		return
	}

	paths, err := s.stageFiles(r, "images")
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	claims := sessionFrom(r.Context())

	note, err := s.notes.Create(r.Context(), claims.UserID, r.FormValue("title"), r.FormValue("content"), paths)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Note created successfully", note)
}

func (s *RESTServer) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("%w: multipart form expected", common.ErrorValidation))
		return
	}

	paths, err := s.stageFiles(r, "images")
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	claims := sessionFrom(r.Context())
	noteID := chi.URLParam(r, "id")

	note, err := s.notes.Update(r.Context(), noteID, claims.UserID, r.FormValue("title"), r.FormValue("content"), paths)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Note updated successfully", note)
}

func (s *RESTServer) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	claims := sessionFrom(r.Context())
	noteID := chi.URLParam(r, "id")

	note, err := s.notes.Delete(r.Context(), noteID, claims.UserID)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Note deleted successfully", note)
}

// stageFiles copies every uploaded file under field into the temp upload
// directory. No files staged is fine; the services decide whether images
// are required.
func (s *RESTServer) stageFiles(r *http.Request, field string) ([]string, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var paths []string
	for _, header := range r.MultipartForm.File[field] {
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable %s upload", common.ErrorValidation, field)
		}

		path, err := s.stage(header.Filename, file)
		file.Close()
		if err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}
