package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harbourlane/foyer/internal/service"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

type TwoFactorHandler struct {
	TwoFactorService *service.TwoFactorService
}

func (h *TwoFactorHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	enrollment, err := h.TwoFactorService.Enroll(ctx, ident)
	if err != nil {
		if errors.Is(err, service.ErrTwoFactorAlreadyEnabled) {
			httpx.WriteError(w, http.StatusConflict, "already_enabled", "Two-factor is already enabled")
			return
		}
		log.Error("two-factor enroll failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to enroll")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, enrollment)
}

func (h *TwoFactorHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	if err := h.TwoFactorService.Activate(ctx, ident, req.Code, requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrTwoFactorNotEnrolled):
			httpx.WriteError(w, http.StatusBadRequest, "not_enrolled", "Enroll before activating")
		case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
			httpx.WriteError(w, http.StatusConflict, "already_enabled", "Two-factor is already enabled")
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_totp", "Invalid two-factor code")
		default:
			log.Error("two-factor activate failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to activate")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.TwoFactorService.Disable(ctx, ident, req.Password, requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrTwoFactorNotEnrolled):
			httpx.WriteError(w, http.StatusBadRequest, "not_enrolled", "Two-factor is not enabled")
		case errors.Is(err, service.ErrWrongPassword):
			httpx.WriteError(w, http.StatusUnauthorized, "wrong_password", "Password is incorrect")
		case errors.Is(err, service.ErrNoCredentialAccount):
			httpx.WriteError(w, http.StatusBadRequest, "no_credential", "This account has no password login")
		default:
			log.Error("two-factor disable failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to disable")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": false})
}
