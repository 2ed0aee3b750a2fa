package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/harbourlane/foyer/internal/service"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

type AuthHandler struct {
	AuthService  *service.AuthService
	SecureCookie bool
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Role          string    `json:"role"`
	Anonymous     bool      `json:"anonymous"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	user, token, err := h.AuthService.Register(ctx, req.Name, req.Email, req.Password, requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Name and a valid email are required")
		case errors.Is(err, service.ErrPasswordTooWeak):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Password must be between 8 and 128 characters")
		case errors.Is(err, service.ErrEmailAlreadyTaken):
			httpx.WriteError(w, http.StatusConflict, "email_taken", "An account with this email already exists")
		default:
			log.Error("registration failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create account")
		}
		return
	}

	setSessionCookie(w, token, h.SecureCookie)
	httpx.WriteJSON(w, http.StatusCreated, userResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Role:          user.Role,
		Anonymous:     user.Anonymous,
		CreatedAt:     user.CreatedAt,
	})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	user, token, err := h.AuthService.Login(ctx, req.Email, req.Password, req.TOTPCode, requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		case errors.Is(err, service.ErrUserBanned):
			httpx.WriteError(w, http.StatusForbidden, "account_banned", "This account is banned")
		case errors.Is(err, service.ErrTwoFactorRequired):
			httpx.WriteError(w, http.StatusUnauthorized, "totp_required", "A two-factor code is required")
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_totp", "Invalid two-factor code")
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to sign in")
		}
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

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	ident, _ := httpx.IdentityFromContext(ctx)
	if err := h.AuthService.Logout(ctx, ident, requestMeta(r)); err != nil {
		log.Error("logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to sign out")
		return
	}

	clearSessionCookie(w, h.SecureCookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, _ := httpx.IdentityFromContext(ctx)

	user, err := h.AuthService.Store.Users().GetUserByID(ctx, ident.UserID)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to load profile")
		return
	}

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

func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := h.AuthService.VerifyEmail(ctx, req.Token, requestMeta(r)); err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_token", "Token is invalid or expired")
			return
		}
		log.Error("email verification failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to verify email")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (h *AuthHandler) HandlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.AuthService.RequestPasswordReset(ctx, req.Email, requestMeta(r)); err != nil {
		log.Error("password reset request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to process request")
		return
	}

	// Always the same answer; the address may or may not exist.
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "If an account exists for this address, a reset link has been sent",
	})
}

func (h *AuthHandler) HandlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token and new_password are required")
		return
	}

	if err := h.AuthService.ConfirmPasswordReset(ctx, req.Token, req.NewPassword, requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordTooWeak):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Password must be between 8 and 128 characters")
		case errors.Is(err, service.ErrTokenInvalid):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_token", "Token is invalid or expired")
		default:
			log.Error("password reset confirm failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to reset password")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"reset": true})
}
