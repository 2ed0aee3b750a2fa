package httpx

import (
	"context"
	"net/http"

	"github.com/harbourlane/foyer/pkg/slogx"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "foyer_session"

// SessionVerifier resolves a raw session cookie value to an authenticated
// identity. Implemented by the auth service; kept as an interface here so the
// middleware has no dependency on internal packages.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (Identity, error)
}

// SessionMiddleware authenticates the request via the session cookie and
// attaches the resulting Identity to the request context. Requests without a
// valid session get a 401 with a stable error body.
func SessionMiddleware(v SessionVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			id, err := v.VerifySession(ctx, cookie.Value)
			if err != nil {
				log.Warn("session verification failed", "err", err)
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(ctx, id)))
		})
	}
}

// RequireRole gates a handler on the authenticated identity holding one of
// the listed roles. Must run inside SessionMiddleware.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		want[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			if _, ok := want[id.Role]; !ok {
				WriteError(w, http.StatusForbidden, "forbidden", "Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
