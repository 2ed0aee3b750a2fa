package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/service"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

type AdminCodesHandler struct {
	GuestCodeService *service.GuestCodeService
}

type sessionCodeResponse struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Status       string     `json:"status"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	UsedAt       *time.Time `json:"usedAt,omitempty"`
	UsedByUserID string     `json:"usedByUserId,omitempty"`
	CreatorName  string     `json:"creatorName,omitempty"`
	CreatorEmail string     `json:"creatorEmail,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// codeStatus derives the display state; expiry is never stored, only derived.
func codeStatus(c domain.SessionCode, now time.Time) string {
	switch {
	case c.Used:
		return "used"
	case c.Expired(now):
		return "expired"
	default:
		return "active"
	}
}

func (h *AdminCodesHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	// The expiry window is optional; absent means the default.
	var req struct {
		ExpiresInHours *int `json:"expires_in_hours"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return
		}
	}

	var expiresIn time.Duration
	if req.ExpiresInHours != nil {
		if *req.ExpiresInHours <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "expires_in_hours must be positive")
			return
		}
		expiresIn = time.Duration(*req.ExpiresInHours) * time.Hour
	}

	code, err := h.GuestCodeService.Generate(ctx, ident.UserID, expiresIn, requestMeta(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidExpiry) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "expires_in_hours must be positive")
			return
		}
		log.Error("failed to generate session code", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to generate code")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, sessionCodeResponse{
		ID:        code.ID,
		Code:      code.Code,
		Status:    "active",
		ExpiresAt: code.ExpiresAt,
		CreatedAt: code.CreatedAt,
	})
}

func (h *AdminCodesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	codes, err := h.GuestCodeService.List(ctx)
	if err != nil {
		log.Error("failed to list session codes", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list codes")
		return
	}

	now := time.Now()
	out := make([]sessionCodeResponse, 0, len(codes))
	for _, c := range codes {
		out = append(out, sessionCodeResponse{
			ID:           c.ID,
			Code:         c.Code,
			Status:       codeStatus(c.SessionCode, now),
			ExpiresAt:    c.ExpiresAt,
			UsedAt:       c.UsedAt,
			UsedByUserID: c.UsedByUserID,
			CreatorName:  c.CreatorName,
			CreatorEmail: c.CreatorEmail,
			CreatedAt:    c.CreatedAt,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"codes": out})
}

func (h *AdminCodesHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	codeID := r.PathValue("id")
	if err := h.GuestCodeService.Invalidate(ctx, codeID, ident.UserID, requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			httpx.WriteError(w, http.StatusNotFound, "code_not_found", "Session code not found")
		case errors.Is(err, service.ErrCodeAlreadyUsed):
			httpx.WriteError(w, http.StatusConflict, "code_used", "Session code has already been used")
		default:
			log.Error("failed to invalidate session code", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to invalidate code")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"invalidated": true})
}

func (h *AdminCodesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ident, _ := httpx.IdentityFromContext(ctx)

	codeID := r.PathValue("id")
	if err := h.GuestCodeService.Delete(ctx, codeID, ident.UserID, requestMeta(r)); err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "code_not_found", "Session code not found")
			return
		}
		log.Error("failed to delete session code", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to delete code")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
