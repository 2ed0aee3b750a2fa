package service

import (
	"context"
	"errors"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/uaparse"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionNotOwned = errors.New("session belongs to another user")
	ErrCurrentSession  = errors.New("cannot revoke the current session here")
)

// SessionView is a session prepared for display: parsed device info, masked
// address, and a marker for the session making the request.
type SessionView struct {
	ID           string       `json:"id"`
	Device       uaparse.Info `json:"device"`
	IPAddress    string       `json:"ipAddress"`
	IsCurrent    bool         `json:"isCurrent"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastActiveAt time.Time    `json:"lastActiveAt"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

// SessionService lists and revokes the caller's own sessions.
type SessionService struct {
	Store store.Store
	Audit *AuditRecorder
}

// List returns the caller's sessions, most recently active first, with the
// raw user agent parsed into display fields and the address masked.
func (s *SessionService) List(ctx context.Context, ident httpx.Identity) ([]SessionView, error) {
	sessions, err := s.Store.Sessions().ListSessionsByUser(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, SessionView{
			ID:           sess.ID,
			Device:       uaparse.Parse(sess.UserAgent),
			IPAddress:    uaparse.MaskAddress(sess.IPAddress),
			IsCurrent:    sess.ID == ident.SessionID,
			CreatedAt:    sess.CreatedAt,
			LastActiveAt: sess.UpdatedAt,
			ExpiresAt:    sess.ExpiresAt,
		})
	}
	return views, nil
}

// Revoke terminates one of the caller's other sessions. The current session
// must go through logout instead.
func (s *SessionService) Revoke(ctx context.Context, ident httpx.Identity, sessionID string, meta RequestMeta) error {
	if sessionID == ident.SessionID {
		return ErrCurrentSession
	}

	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if sess.UserID != ident.UserID {
		return ErrSessionNotOwned
	}

	if err := s.Store.Sessions().DeleteSession(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditSessionRevoked,
		ActorID:     ident.UserID,
		ActorEmail:  ident.Email,
		ActorRole:   ident.Role,
		SessionID:   ident.SessionID,
		Description: "session revoked",
		Success:     true,
		Metadata:    map[string]any{"revoked_session_id": sessionID},
		Meta:        meta,
	})
	return nil
}

// RevokeAll terminates every session except the current one and returns how
// many were removed.
func (s *SessionService) RevokeAll(ctx context.Context, ident httpx.Identity, meta RequestMeta) (int, error) {
	n, err := s.Store.Sessions().DeleteUserSessions(ctx, ident.UserID, ident.SessionID)
	if err != nil {
		return 0, err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditAllSessionsRevoked,
		ActorID:     ident.UserID,
		ActorEmail:  ident.Email,
		ActorRole:   ident.Role,
		SessionID:   ident.SessionID,
		Description: "all other sessions revoked",
		Success:     true,
		Metadata:    map[string]any{"revoked_count": n},
		Meta:        meta,
	})
	return n, nil
}
