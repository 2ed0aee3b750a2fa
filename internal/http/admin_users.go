package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/harbourlane/foyer/internal/service"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

type AdminUsersHandler struct {
	AdminService *service.AdminService
}

func (h *AdminUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	q := r.URL.Query()
	filter := store.UserFilter{
		Role:   q.Get("role"),
		Status: q.Get("status"),
	}
	if v := q.Get("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	page, err := h.AdminService.ListUsers(ctx, filter)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRole) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "role must be user or admin")
			return
		}
		log.Error("failed to list users", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list users")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *AdminUsersHandler) HandleBan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	var req struct {
		Reason    string `json:"reason"`
		ExpiresAt string `json:"expires_at,omitempty"` // RFC 3339; empty bans indefinitely
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	var expires *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil || t.Before(time.Now()) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "expires_at must be a future RFC 3339 timestamp")
			return
		}
		expires = &t
	}

	if err := h.AdminService.BanUser(ctx, ident, r.PathValue("id"), req.Reason, expires, requestMeta(r)); err != nil {
		writeAdminUserError(w, log, err, "Failed to ban user")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"banned": true})
}

func (h *AdminUsersHandler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	if err := h.AdminService.UnbanUser(ctx, ident, r.PathValue("id"), requestMeta(r)); err != nil {
		writeAdminUserError(w, log, err, "Failed to unban user")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"banned": false})
}

func (h *AdminUsersHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "role is required")
		return
	}

	if err := h.AdminService.ChangeRole(ctx, ident, r.PathValue("id"), req.Role, requestMeta(r)); err != nil {
		if errors.Is(err, service.ErrInvalidRole) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "role must be user or admin")
			return
		}
		writeAdminUserError(w, log, err, "Failed to change role")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"role": req.Role})
}

func (h *AdminUsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	if err := h.AdminService.DeleteUser(ctx, ident, r.PathValue("id"), requestMeta(r)); err != nil {
		writeAdminUserError(w, log, err, "Failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeAdminUserError(w http.ResponseWriter, log *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, service.ErrSelfAction):
		httpx.WriteError(w, http.StatusBadRequest, "self_action", "Admins cannot perform this action on themselves")
	default:
		log.Error("admin user operation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", fallback)
	}
}
