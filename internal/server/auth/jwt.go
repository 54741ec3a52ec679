// Package auth implements the token codec: signing and verification of the
// two JWT kinds (access and refresh) with independent secrets and lifetimes.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims are carried by short-lived access tokens. Besides the
// registered claims they identify the user well enough to render a session
// without a store round trip.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// RefreshClaims are carried by long-lived refresh tokens and identify the
// user only. Everything else is looked up at refresh time.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// NewAccessToken signs an access token for user with the given secret and
// validity duration (HS256).
func NewAccessToken(user *models.User, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// NewRefreshToken signs a refresh token for userID with the given secret and
// validity duration (HS256). Each token carries a unique jti: timestamps have
// second resolution, and rotation relies on every issued token being a
// distinct string.
func NewRefreshToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseAccessToken verifies tokenString against secretKey and returns its
// claims. Expiry is reported as common.ErrTokenExpired; any other
// verification failure (bad signature, malformed payload) is
// common.ErrInvalidToken.
func ParseAccessToken(tokenString string, secretKey []byte) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parseToken(tokenString, claims, secretKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefreshToken verifies tokenString against secretKey and returns its
// claims, with the same error mapping as ParseAccessToken.
func ParseRefreshToken(tokenString string, secretKey []byte) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parseToken(tokenString, claims, secretKey); err != nil {
		return nil, err
	}
	return claims, nil
}

func parseToken(tokenString string, claims jwt.Claims, secretKey []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return common.ErrInvalidToken
	}

	if !token.Valid {
		return common.ErrInvalidToken
	}

	return nil
}
