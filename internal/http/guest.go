package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/harbourlane/foyer/internal/service"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

type GuestHandler struct {
	GuestCodeService *service.GuestCodeService
	SecureCookie     bool
}

type guestCodeRequest struct {
	Code string `json:"code"`
}

func (h *GuestHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req guestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	code, err := h.GuestCodeService.Validate(ctx, req.Code)
	if err != nil {
		writeCodeError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"valid":     true,
		"codeId":    code.ID,
		"expiresAt": code.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *GuestHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req guestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	user, token, err := h.GuestCodeService.Redeem(ctx, req.Code, requestMeta(r))
	if err != nil {
		writeCodeError(w, log, err)
		return
	}

	setSessionCookie(w, token, h.SecureCookie)
	httpx.WriteJSON(w, http.StatusOK, userResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Role:          user.Role,
		Anonymous:     user.Anonymous,
		CreatedAt:     user.CreatedAt,
	})
}

func writeCodeError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrCodeNotFound):
		httpx.WriteError(w, http.StatusNotFound, "code_not_found", "Session code not found")
	case errors.Is(err, service.ErrCodeAlreadyUsed):
		httpx.WriteError(w, http.StatusConflict, "code_used", "Session code has already been used")
	case errors.Is(err, service.ErrCodeExpired):
		httpx.WriteError(w, http.StatusGone, "code_expired", "Session code has expired")
	default:
		log.Error("session code operation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to process session code")
	}
}
