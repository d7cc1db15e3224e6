package api

import (
	"context"
	"net/http"
	"strings"

	"gatisathi/internal/auth"
)

// TokenValidator resolves a bearer token to its claims.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

type callerKey struct{}

// Caller is the authenticated identity attached to a request.
type Caller struct {
	UserID string
	Role   string
}

func withCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the identity resolved by the bearer middleware.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok && c.UserID != ""
}

// identify attaches the caller when a valid bearer token is present.
// Protected routes reject requests without one in requireAuth.
func (s *HTTPServer) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || s.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := s.tokens.ValidateToken(token)
		if err != nil {
			s.logger.Debug().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("bearer token rejected")
			next.ServeHTTP(w, r)
			return
		}
		ctx := withCaller(r.Context(), Caller{UserID: claims.Subject, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *HTTPServer) requireAuth(h func(http.ResponseWriter, *http.Request, Caller)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}
		h(w, r, caller)
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
