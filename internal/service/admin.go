package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrSelfAction   = errors.New("admins cannot perform this action on themselves")
	ErrInvalidRole  = errors.New("invalid role")
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// AdminUserView is a user row prepared for the admin dashboard.
type AdminUserView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	Role          string     `json:"role"`
	Anonymous     bool       `json:"anonymous"`
	Banned        bool       `json:"banned"`
	BanReason     string     `json:"banReason,omitempty"`
	BanExpires    *time.Time `json:"banExpires,omitempty"`
	Providers     []string   `json:"providers"`
	LastSignIn    *time.Time `json:"lastSignIn,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// UserPage is the paginated admin listing envelope.
type UserPage struct {
	Users      []AdminUserView `json:"users"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"totalPages"`
}

// AdminService is the admin-only user management surface.
type AdminService struct {
	Store store.Store
	Audit *AuditRecorder
}

// ListUsers returns one page of users with provider linkages and last
// sign-in attached.
func (s *AdminService) ListUsers(ctx context.Context, f store.UserFilter) (UserPage, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Role != "" && f.Role != domain.RoleUser && f.Role != domain.RoleAdmin {
		return UserPage{}, ErrInvalidRole
	}

	users, total, err := s.Store.Users().ListUsers(ctx, f)
	if err != nil {
		return UserPage{}, err
	}

	page := UserPage{
		Users:      make([]AdminUserView, 0, len(users)),
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: (total + f.Limit - 1) / f.Limit,
	}

	for _, u := range users {
		view := AdminUserView{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			EmailVerified: u.EmailVerified,
			Role:          u.Role,
			Anonymous:     u.Anonymous,
			Banned:        u.Banned,
			BanReason:     u.BanReason,
			BanExpires:    u.BanExpires,
			Providers:     []string{},
			CreatedAt:     u.CreatedAt,
		}

		accounts, err := s.Store.Accounts().ListAccountsByUser(ctx, u.ID)
		if err != nil {
			return UserPage{}, err
		}
		for _, acc := range accounts {
			view.Providers = append(view.Providers, acc.ProviderID)
		}

		if last, err := s.Store.Sessions().LastSignIn(ctx, u.ID); err == nil {
			view.LastSignIn = &last
		} else if !errors.Is(err, store.ErrNotFound) {
			return UserPage{}, err
		}

		page.Users = append(page.Users, view)
	}
	return page, nil
}

// BanUser bans a target and revokes all their sessions. An empty expiry bans
// indefinitely.
func (s *AdminService) BanUser(
	ctx context.Context,
	admin httpx.Identity,
	targetID, reason string,
	expires *time.Time,
	meta RequestMeta,
) error {
	log := slogx.FromContext(ctx)

	if targetID == admin.UserID {
		return ErrSelfAction
	}

	target, err := s.Store.Users().GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetBan(ctx, target.ID, true, reason, expires); err != nil {
			return err
		}
		// A banned user keeps no live sessions.
		_, err := tx.Sessions().DeleteUserSessions(ctx, target.ID, "")
		return err
	})
	if err != nil {
		log.Error("failed to ban user", slog.Any("error", err))
		return err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:            domain.AuditUserBanned,
		ActorID:         admin.UserID,
		ActorEmail:      admin.Email,
		ActorRole:       admin.Role,
		TargetUserID:    target.ID,
		TargetUserEmail: target.Email,
		SessionID:       admin.SessionID,
		Description:     "user banned",
		Success:         true,
		Metadata:        map[string]any{"reason": reason},
		Meta:            meta,
	})
	return nil
}

// UnbanUser lifts a ban.
func (s *AdminService) UnbanUser(ctx context.Context, admin httpx.Identity, targetID string, meta RequestMeta) error {
	target, err := s.Store.Users().GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.Store.Users().SetBan(ctx, target.ID, false, "", nil); err != nil {
		return err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:            domain.AuditUserUnbanned,
		ActorID:         admin.UserID,
		ActorEmail:      admin.Email,
		ActorRole:       admin.Role,
		TargetUserID:    target.ID,
		TargetUserEmail: target.Email,
		SessionID:       admin.SessionID,
		Description:     "user unbanned",
		Success:         true,
		Meta:            meta,
	})
	return nil
}

// ChangeRole promotes or demotes a target. Admins cannot change their own
// role, so the last admin can't demote themselves by accident.
func (s *AdminService) ChangeRole(ctx context.Context, admin httpx.Identity, targetID, role string, meta RequestMeta) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return ErrInvalidRole
	}
	if targetID == admin.UserID {
		return ErrSelfAction
	}

	target, err := s.Store.Users().GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.Store.Users().UpdateRole(ctx, target.ID, role); err != nil {
		return err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:            domain.AuditUserRoleChanged,
		ActorID:         admin.UserID,
		ActorEmail:      admin.Email,
		ActorRole:       admin.Role,
		TargetUserID:    target.ID,
		TargetUserEmail: target.Email,
		SessionID:       admin.SessionID,
		Description:     "user role changed",
		Success:         true,
		Metadata:        map[string]any{"previous_role": target.Role, "new_role": role},
		Meta:            meta,
	})
	return nil
}

// DeleteUser removes a target account and everything attached to it.
func (s *AdminService) DeleteUser(ctx context.Context, admin httpx.Identity, targetID string, meta RequestMeta) error {
	log := slogx.FromContext(ctx)

	if targetID == admin.UserID {
		return ErrSelfAction
	}

	target, err := s.Store.Users().GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.Store.Users().DeleteUser(ctx, target.ID); err != nil {
		log.Error("failed to delete user", slog.Any("error", err))
		return err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:            domain.AuditUserDeleted,
		ActorID:         admin.UserID,
		ActorEmail:      admin.Email,
		ActorRole:       admin.Role,
		TargetUserID:    target.ID,
		TargetUserEmail: target.Email,
		SessionID:       admin.SessionID,
		Description:     "user deleted by admin",
		Success:         true,
		Meta:            meta,
	})
	return nil
}
