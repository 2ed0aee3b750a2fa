package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/harbourlane/foyer/internal/service"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

type AccountHandler struct {
	AccountService *service.AccountService
	SecureCookie   bool
}

func (h *AccountHandler) HandleEmailChangeRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	var req struct {
		NewEmail string `json:"new_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewEmail == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "new_email is required")
		return
	}

	if err := h.AccountService.RequestEmailChange(ctx, ident, req.NewEmail, requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "A valid email address is required")
		case errors.Is(err, service.ErrSameEmail):
			httpx.WriteError(w, http.StatusBadRequest, "same_email", "New email matches the current address")
		case errors.Is(err, service.ErrEmailAlreadyTaken):
			httpx.WriteError(w, http.StatusConflict, "email_taken", "An account with this email already exists")
		case errors.Is(err, service.ErrEmailChangePending):
			httpx.WriteError(w, http.StatusConflict, "change_pending", "An email change is already pending")
		default:
			log.Error("email change request failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to request email change")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Confirmation link sent to the new address",
	})
}

func (h *AccountHandler) HandleEmailChangeConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := h.AccountService.ConfirmEmailChange(ctx, req.Token, requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrTokenInvalid):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_token", "Token is invalid or expired")
		case errors.Is(err, service.ErrEmailAlreadyTaken):
			httpx.WriteError(w, http.StatusConflict, "email_taken", "The address was claimed while the request was pending")
		default:
			log.Error("email change confirm failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to confirm email change")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"changed": true})
}

func (h *AccountHandler) HandleEmailChangePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, _ := httpx.IdentityFromContext(ctx)

	req, err := h.AccountService.PendingEmailChange(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"pending": false})
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to load pending change")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"pending":   true,
		"newEmail":  req.NewEmail,
		"expiresAt": req.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	var req struct {
		CurrentPassword     string `json:"current_password"`
		NewPassword         string `json:"new_password"`
		RevokeOtherSessions bool   `json:"revoke_other_sessions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	err := h.AccountService.ChangePassword(ctx, ident, req.CurrentPassword, req.NewPassword, req.RevokeOtherSessions, requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordTooWeak):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Password must be between 8 and 128 characters")
		case errors.Is(err, service.ErrWrongPassword):
			httpx.WriteError(w, http.StatusUnauthorized, "wrong_password", "Current password is incorrect")
		case errors.Is(err, service.ErrNoCredentialAccount):
			httpx.WriteError(w, http.StatusBadRequest, "no_credential", "This account has no password login")
		default:
			log.Error("password change failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to change password")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"changed": true})
}

func (h *AccountHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	export, err := h.AccountService.ExportData(ctx, ident)
	if err != nil {
		log.Error("data export failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to export data")
		return
	}

	filename := fmt.Sprintf("account-data-%s-%d.json", ident.UserID, time.Now().Unix())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	httpx.WriteJSON(w, http.StatusOK, export)
}

func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	var req struct {
		Password     string `json:"password"`
		Confirmation string `json:"confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if err := h.AccountService.DeleteAccount(ctx, ident, req.Password, req.Confirmation, requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrConfirmationMismatch):
			httpx.WriteError(w, http.StatusBadRequest, "confirmation_mismatch",
				fmt.Sprintf("Type %q to confirm deletion", service.DeleteConfirmationPhrase))
		case errors.Is(err, service.ErrWrongPassword):
			httpx.WriteError(w, http.StatusUnauthorized, "wrong_password", "Password is incorrect")
		default:
			log.Error("account deletion failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to delete account")
		}
		return
	}

	clearSessionCookie(w, h.SecureCookie)
	w.WriteHeader(http.StatusNoContent)
}
