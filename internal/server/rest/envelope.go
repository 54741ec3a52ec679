package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// apiResponse is the uniform success envelope. Success mirrors the status
// code so clients can branch on a single boolean.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// apiError is the uniform failure envelope. Data is always null.
type apiError struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Data       any      `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, apiResponse{
		StatusCode: status,
		Success:    status >= 200 && status <= 299,
		Message:    message,
		Data:       data,
	})
}

// writeError is the single boundary where service errors become HTTP
// responses. Anything not matching a known sentinel is reported as a 500
// with a generic message; the cause goes to the server log only.
func (s *RESTServer) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusForError(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", "error", err)
		message = "Something went wrong"
	}

	writeJSON(w, status, apiError{
		StatusCode: status,
		Success:    false,
		Message:    message,
		Errors:     []string{message},
		Data:       nil,
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
