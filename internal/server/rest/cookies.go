package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

// setSessionCookies installs the token pair as httpOnly cookies. Max-Age
// follows each token's validity so the browser drops them together with
// their JWT expiry.
func (s *RESTServer) setSessionCookies(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, s.sessionCookie(common.AccessTokenCookieName, pair.AccessToken, s.accessTokenTTL))
	http.SetCookie(w, s.sessionCookie(common.RefreshTokenCookieName, pair.RefreshToken, s.refreshTokenTTL))
}

func (s *RESTServer) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.sessionCookie(common.AccessTokenCookieName, "", -time.Second))
	http.SetCookie(w, s.sessionCookie(common.RefreshTokenCookieName, "", -time.Second))
}

func (s *RESTServer) sessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
