package rest

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

const maxMultipartMemory = 32 << 20

func (s *RESTServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "Server is running", nil)
}

func (s *RESTServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("%w: multipart form expected", common.ErrorValidation))
		return
	}

	avatarPath, err := s.stageFile(r, "avatar")
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	in := services.RegisterInput{
		FullName: r.FormValue("fullName"),
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}

	user, err := s.users.Register(r.Context(), in, avatarPath)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "User registered successfully", user)
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *RESTServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("%w: invalid JSON body", common.ErrorValidation))
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		s.writeError(r.Context(), w, fmt.Errorf("%w: username or email is required", common.ErrorValidation))
		return
	}
	if req.Password == "" {
		s.writeError(r.Context(), w, fmt.Errorf("%w: password is required", common.ErrorValidation))
		return
	}

	pair, user, err := s.sessions.Login(r.Context(), identifier, req.Password)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.setSessionCookies(w, pair)
	writeSuccess(w, http.StatusOK, "User logged in successfully", user)
}

func (s *RESTServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := sessionFrom(r.Context())

	if err := s.sessions.Logout(r.Context(), claims.UserID); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.clearSessionCookies(w)
	writeSuccess(w, http.StatusOK, "User logged out successfully", nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *RESTServer) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		token = c.Value
	}
	if token == "" && r.Body != nil {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.RefreshToken
		}
	}
	if token == "" {
		s.writeError(r.Context(), w, common.ErrorUnauthorized)
		return
	}

	pair, err := s.sessions.Refresh(r.Context(), token)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.setSessionCookies(w, pair)
	writeSuccess(w, http.StatusOK, "Access token refreshed successfully", map[string]string{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *RESTServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("%w: invalid JSON body", common.ErrorValidation))
		return
	}

	claims := sessionFrom(r.Context())

	if err := s.sessions.ChangePassword(r.Context(), claims.UserID, req.OldPassword, req.NewPassword); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

func (s *RESTServer) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := sessionFrom(r.Context())

	user, err := s.users.GetCurrent(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User found successfully", user)
}

type updateDetailsRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (s *RESTServer) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	var req updateDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("%w: invalid JSON body", common.ErrorValidation))
		return
	}

	claims := sessionFrom(r.Context())

	user, err := s.users.UpdateDetails(r.Context(), claims.UserID, req.FullName, req.Email)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User updated successfully", user)
}

func (s *RESTServer) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("%w: multipart form expected", common.ErrorValidation))
		return
	}

	avatarPath, err := s.stageFile(r, "avatar")
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	claims := sessionFrom(r.Context())

	user, err := s.users.UpdateAvatar(r.Context(), claims.UserID, avatarPath)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User avatar updated successfully", user)
}

// stageFile copies one uploaded form file into the temp upload directory and
// returns the staged path. A missing file is a validation error.
func (s *RESTServer) stageFile(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%w: %s file is required", common.ErrorValidation, field)
	}
	defer file.Close()

	return s.stage(header.Filename, file)
}

func (s *RESTServer) stage(name string, src multipart.File) (string, error) {
	dir, err := filex.EnsureSubDir(s.tempUploadDir)
	if err != nil {
		return "", fmt.Errorf("staging dir: %w", err)
	}

	path, err := filex.SaveUpload(dir, name, src)
	if err != nil {
		return "", fmt.Errorf("staging upload: %w", err)
	}

	return path, nil
}
