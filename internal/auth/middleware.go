package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Middleware validates bearer JWTs, enforces the role policy and the token's
// instance scope.
type Middleware struct {
	Secret []byte
	Policy Policy
	Logger zerolog.Logger
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{Secret: secret, Policy: policy, Logger: zerolog.Nop()}
}

// Wrap applies auth and RBAC to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, ok := m.Policy.RequiredRole(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := ParseJWT(extractBearer(r), m.Secret)
		if err != nil {
			m.Logger.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected token")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		identity := claims.Identity()
		if !RoleAtLeast(identity.Role, required) {
			m.forbid(w, r, identity, "role below "+string(required))
			return
		}
		if instance, ok := InstanceFromPath(r.URL.Path); ok && !identity.CanAccess(instance) {
			m.forbid(w, r, identity, "instance outside token scope")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func (m *Middleware) forbid(w http.ResponseWriter, r *http.Request, identity Identity, reason string) {
	m.Logger.Info().
		Str("subject", identity.Subject).
		Str("role", string(identity.Role)).
		Str("scope", identity.Scope()).
		Str("path", r.URL.Path).
		Msg(reason)
	http.Error(w, "forbidden", http.StatusForbidden)
}

func extractBearer(r *http.Request) string {
	if r == nil {
		return ""
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
