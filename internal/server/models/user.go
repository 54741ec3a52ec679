package models

import "time"

// User is the credential-store record. Username and Email are stored
// lowercase and trimmed; RefreshToken holds the single currently valid
// refresh token value (empty means logged out).
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Avatar       string
	AvatarKey    string
	PasswordHash string
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the client-facing projection of User with the password hash
// and refresh token stripped.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public returns the client-facing projection of u.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
