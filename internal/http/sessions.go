package http

import (
	"errors"
	"net/http"

	"github.com/harbourlane/foyer/internal/service"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

type SessionsHandler struct {
	SessionService *service.SessionService
}

func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	sessions, err := h.SessionService.List(ctx, ident)
	if err != nil {
		log.Error("failed to list sessions", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list sessions")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	sessionID := r.PathValue("id")
	if sessionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "session id is required")
		return
	}

	if err := h.SessionService.Revoke(ctx, ident, sessionID, requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrCurrentSession):
			httpx.WriteError(w, http.StatusBadRequest, "current_session", "Use logout to end the current session")
		case errors.Is(err, service.ErrSessionNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Session not found")
		case errors.Is(err, service.ErrSessionNotOwned):
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "Session belongs to another user")
		default:
			log.Error("failed to revoke session", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to revoke session")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	n, err := h.SessionService.RevokeAll(ctx, ident, requestMeta(r))
	if err != nil {
		log.Error("failed to revoke sessions", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to revoke sessions")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int{"revoked": n})
}
