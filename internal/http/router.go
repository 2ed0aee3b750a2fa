package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/service"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	secureCookie bool

	store store.Store

	AuthService      *service.AuthService
	AccountService   *service.AccountService
	SessionService   *service.SessionService
	GuestCodeService *service.GuestCodeService
	AdminService     *service.AdminService
	TwoFactorService *service.TwoFactorService
	Audit            *service.AuditRecorder
}

func NewRouter(
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	secureCookie bool,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		secureCookie: secureCookie,
		store:        st,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerGuest()
	r.registerAccount()
	r.registerSessions()
	r.registerTwoFactor()
	r.registerAdminCodes()
	r.registerAdminUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// audited attaches a rate_limit_exceeded audit hook to a profile, so abusive
// sources show up in the admin audit trail.
func (r *Router) audited(cfg httpx.RateLimitConfig) httpx.RateLimitConfig {
	cfg.OnLimited = func(req *http.Request, key string) {
		r.Audit.Record(req.Context(), service.AuditEvent{
			Type:        domain.AuditRateLimitExceeded,
			Description: "rate limit exceeded",
			Success:     false,
			Metadata:    map[string]any{"key": key, "path": req.URL.Path},
			Meta:        requestMeta(req),
		})
	}
	return cfg
}

func (r *Router) session() httpx.Middleware {
	return httpx.SessionMiddleware(r.AuthService)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService, SecureCookie: r.secureCookie}

	// Credential endpoints get the strict profile; they are the brute-force
	// surface.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.audited(httpx.StrictLimit)),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(r.audited(httpx.StrictLimit)),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.ModerateLimit)),
		),
	)
	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.LenientLimit)),
		),
	)
	r.Mux.Handle("POST /v1/auth/verify-email",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyEmail),
			httpx.RateLimitByIP(r.audited(httpx.ModerateLimit)),
		),
	)
	r.Mux.Handle("POST /v1/auth/password-reset/request",
		httpx.Chain(http.HandlerFunc(h.HandlePasswordResetRequest),
			httpx.RateLimitByIP(r.audited(httpx.StrictLimit)),
		),
	)
	r.Mux.Handle("POST /v1/auth/password-reset/confirm",
		httpx.Chain(http.HandlerFunc(h.HandlePasswordResetConfirm),
			httpx.RateLimitByIP(r.audited(httpx.StrictLimit)),
		),
	)
}

func (r *Router) registerGuest() {
	h := &GuestHandler{GuestCodeService: r.GuestCodeService, SecureCookie: r.secureCookie}

	// Public endpoints; strict limits keep code guessing impractical.
	r.Mux.Handle("POST /v1/guest/validate",
		httpx.Chain(http.HandlerFunc(h.HandleValidate),
			httpx.RateLimitByIP(r.audited(httpx.StrictLimit)),
		),
	)
	r.Mux.Handle("POST /v1/guest/redeem",
		httpx.Chain(http.HandlerFunc(h.HandleRedeem),
			httpx.RateLimitByIP(r.audited(httpx.StrictLimit)),
		),
	)
}

func (r *Router) registerAccount() {
	h := &AccountHandler{AccountService: r.AccountService, SecureCookie: r.secureCookie}

	r.Mux.Handle("POST /v1/account/email-change/request",
		httpx.Chain(http.HandlerFunc(h.HandleEmailChangeRequest),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.StrictLimit)),
		),
	)
	// Confirmation arrives from a mail link, possibly without a session.
	r.Mux.Handle("POST /v1/account/email-change/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleEmailChangeConfirm),
			httpx.RateLimitByIP(r.audited(httpx.ModerateLimit)),
		),
	)
	r.Mux.Handle("GET /v1/account/email-change",
		httpx.Chain(http.HandlerFunc(h.HandleEmailChangePending),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.LenientLimit)),
		),
	)
	r.Mux.Handle("POST /v1/account/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.StrictLimit)),
		),
	)
	r.Mux.Handle("GET /v1/account/export",
		httpx.Chain(http.HandlerFunc(h.HandleExport),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.ModerateLimit)),
		),
	)
	r.Mux.Handle("DELETE /v1/account",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.StrictLimit)),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionService: r.SessionService}

	r.Mux.Handle("GET /v1/account/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.LenientLimit)),
		),
	)
	r.Mux.Handle("DELETE /v1/account/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.ModerateLimit)),
		),
	)
	r.Mux.Handle("POST /v1/account/sessions/revoke-all",
		httpx.Chain(http.HandlerFunc(h.HandleRevokeAll),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.ModerateLimit)),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{TwoFactorService: r.TwoFactorService}

	r.Mux.Handle("POST /v1/account/two-factor/enroll",
		httpx.Chain(http.HandlerFunc(h.HandleEnroll),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.ModerateLimit)),
		),
	)
	// Strict: TOTP codes are guessable at volume.
	r.Mux.Handle("POST /v1/account/two-factor/activate",
		httpx.Chain(http.HandlerFunc(h.HandleActivate),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.StrictLimit)),
		),
	)
	r.Mux.Handle("DELETE /v1/account/two-factor",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			r.session(),
			httpx.RateLimitByUser(r.audited(httpx.ModerateLimit)),
		),
	)
}

func (r *Router) registerAdminCodes() {
	h := &AdminCodesHandler{GuestCodeService: r.GuestCodeService}

	admin := func(next http.HandlerFunc, cfg httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(next,
			r.session(),
			httpx.RequireRole(domain.RoleAdmin),
			httpx.RateLimitByUser(r.audited(cfg)),
		)
	}

	r.Mux.Handle("POST /v1/admin/session-codes", admin(h.HandleGenerate, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/admin/session-codes", admin(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/admin/session-codes/{id}/invalidate", admin(h.HandleInvalidate, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/admin/session-codes/{id}", admin(h.HandleDelete, httpx.ModerateLimit))
}

func (r *Router) registerAdminUsers() {
	h := &AdminUsersHandler{AdminService: r.AdminService}

	admin := func(next http.HandlerFunc, cfg httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(next,
			r.session(),
			httpx.RequireRole(domain.RoleAdmin),
			httpx.RateLimitByUser(r.audited(cfg)),
		)
	}

	r.Mux.Handle("GET /v1/admin/users", admin(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/admin/users/{id}/ban", admin(h.HandleBan, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/admin/users/{id}/unban", admin(h.HandleUnban, httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/admin/users/{id}/role", admin(h.HandleChangeRole, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/admin/users/{id}", admin(h.HandleDelete, httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
