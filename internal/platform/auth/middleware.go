package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/biovolt/marketplace-api/internal/platform/httpx"
	"github.com/biovolt/marketplace-api/internal/platform/requestctx"
)

// SessionTokenHeader carries the anonymous cart session token.
const SessionTokenHeader = "X-Session-Token"

// Middleware builds authentication middleware around a token verifier.
type Middleware struct {
	verifier *Verifier
}

// NewMiddleware constructs the middleware set.
func NewMiddleware(verifier *Verifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Optional attaches an identity to the context when a valid bearer token is
// present and otherwise lets the request through anonymously. A malformed
// token is rejected rather than silently downgraded.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := m.verifier.Verify(raw)
		if err != nil {
			requestctx.Logger(r.Context()).Warn("rejected bearer token", zap.Error(err))
			httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "invalid or expired token", http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireAuth rejects unauthenticated requests. When roles are given, the
// identity must additionally hold one of them; a valid token with the wrong
// role yields 403, not 401.
func (m *Middleware) RequireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
				return
			}
			identity, err := m.verifier.Verify(raw)
			if err != nil {
				requestctx.Logger(r.Context()).Warn("rejected bearer token", zap.Error(err))
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "invalid or expired token", http.StatusUnauthorized))
				return
			}
			if len(roles) > 0 && !hasRole(identity, roles) {
				httpx.WriteError(r.Context(), w, httpx.NewError("forbidden", "insufficient privileges", http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func hasRole(identity Identity, roles []string) bool {
	for _, role := range roles {
		if identity.Role == role {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// SessionToken returns the anonymous session token header value, if any.
func SessionToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(SessionTokenHeader))
}
