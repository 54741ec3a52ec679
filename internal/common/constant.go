// Package common contains shared constants and sentinel errors used across
// NoteKeeper components.
package common

// AccessTokenCookieName and RefreshTokenCookieName are the cookie names used
// to carry the session token pair between server and browser clients.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AuthorizationHeaderName is the HTTP header that may carry the access token
// as "Bearer <token>" for non-browser clients.
const AuthorizationHeaderName = "Authorization"
