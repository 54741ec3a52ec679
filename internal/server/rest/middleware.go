package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/auth"
)

type ctxKey string

const sessionKey ctxKey = "session"

// sessionFrom returns the access-token claims stored by the auth middleware,
// or nil when the request was not authenticated.
func sessionFrom(ctx context.Context) *auth.AccessClaims {
	claims, _ := ctx.Value(sessionKey).(*auth.AccessClaims)
	return claims
}

// corsMiddleware allows a single credentialed origin. Wildcards do not work
// with cookies, so the origin is configured explicitly.
func corsMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code written by the handler chain.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *RESTServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// authMiddleware verifies the access token from the accessToken cookie or
// the Authorization header and stores its claims in the request context.
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessTokenFromRequest(r)
		if token == "" {
			s.writeError(r.Context(), w, common.ErrorUnauthorized)
			return
		}

		claims, err := auth.ParseAccessToken(token, s.accessTokenSecret)
		if err != nil {
			s.writeError(r.Context(), w, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(common.AccessTokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get(common.AuthorizationHeaderName)
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}

	return ""
}
