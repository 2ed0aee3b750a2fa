package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/notify"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/cryptox"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/idx"
	"github.com/harbourlane/foyer/pkg/slogx"
	"github.com/harbourlane/foyer/pkg/uaparse"
)

var (
	ErrSameEmail            = errors.New("new email matches the current address")
	ErrEmailChangePending   = errors.New("an email change is already pending")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrConfirmationMismatch = errors.New("confirmation phrase does not match")
	ErrNoCredentialAccount  = errors.New("account has no password login")
)

const (
	emailChangeTTL = 1 * time.Hour

	// DeleteConfirmationPhrase must be typed verbatim to destroy an account.
	DeleteConfirmationPhrase = "DELETE MY ACCOUNT"
)

// AccountService covers self-service on the caller's own account: email
// change, password change, data export and deletion.
type AccountService struct {
	Store  store.Store
	Mailer *notify.Mailer
	Audit  *AuditRecorder
}

// RequestEmailChange starts the two-step email change. A confirmation link
// goes to the new address and a heads-up notice to the current one.
func (s *AccountService) RequestEmailChange(ctx context.Context, ident httpx.Identity, newEmail string, meta RequestMeta) error {
	log := slogx.FromContext(ctx)

	newEmail, err := normalizeEmail(newEmail)
	if err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, ident.UserID)
	if err != nil {
		return err
	}
	if newEmail == user.Email {
		return ErrSameEmail
	}

	// 1. The target address must be free.
	if _, err := s.Store.Users().GetUserByEmail(ctx, newEmail); err == nil {
		return ErrEmailAlreadyTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	// 2. One live request per user.
	if _, err := s.Store.EmailChangeRequests().GetLiveRequestByUser(ctx, user.ID, time.Now()); err == nil {
		return ErrEmailChangePending
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	// 3. Mint the confirmation token and store its fingerprint.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	req := domain.EmailChangeRequest{
		ID:           idx.New().String(),
		UserID:       user.ID,
		CurrentEmail: user.Email,
		NewEmail:     newEmail,
		TokenHash:    cryptox.FingerprintToken(token),
		ExpiresAt:    now.Add(emailChangeTTL),
		CreatedAt:    now,
	}

	// Lapsed rows are swept first so the per-user unique index only ever
	// blocks on a genuinely live request. The index, not the read above,
	// arbitrates concurrent requests.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.EmailChangeRequests().DeleteExpiredRequestsForUser(ctx, user.ID, now); err != nil {
			return err
		}
		return tx.EmailChangeRequests().CreateEmailChangeRequest(ctx, req)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrEmailChangePending
		}
		return err
	}

	// 4. Both sends are independent and best-effort; a delivery failure never
	// fails the request. The housekeeping sweep reclaims the row if the link
	// never arrives.
	if err := s.Mailer.SendEmailChangeConfirmation(ctx, newEmail, token); err != nil {
		log.Warn("failed to send email change confirmation", slog.Any("error", err))
	}
	if err := s.Mailer.SendEmailChangeNotice(ctx, user.Email, newEmail); err != nil {
		log.Warn("failed to send email change notice", slog.Any("error", err))
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditEmailChangeRequest,
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		ActorRole:   user.Role,
		SessionID:   ident.SessionID,
		Description: "email change requested",
		Success:     true,
		Metadata:    map[string]any{"new_email": newEmail},
		Meta:        meta,
	})
	return nil
}

// ConfirmEmailChange consumes the confirmation token and swaps the address.
func (s *AccountService) ConfirmEmailChange(ctx context.Context, token string, meta RequestMeta) error {
	log := slogx.FromContext(ctx)

	fingerprint := cryptox.FingerprintToken(token)
	req, err := s.Store.EmailChangeRequests().GetLiveRequestByTokenHash(ctx, fingerprint, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Audit.Record(ctx, AuditEvent{
				Type:         domain.AuditInvalidToken,
				Description:  "email change confirmation attempted with invalid token",
				Success:      false,
				ErrorMessage: "token not found or expired",
				Meta:         meta,
			})
			return ErrTokenInvalid
		}
		return err
	}

	// The address may have been taken while the request was pending. A dead
	// request is useless, so it goes too.
	if _, err := s.Store.Users().GetUserByEmail(ctx, req.NewEmail); err == nil {
		_ = s.Store.EmailChangeRequests().DeleteRequest(ctx, req.ID)
		return ErrEmailAlreadyTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, req.UserID)
	if err != nil {
		return ErrTokenInvalid
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateEmail(ctx, user.ID, req.NewEmail); err != nil {
			return err
		}
		return tx.EmailChangeRequests().DeleteRequestsForUser(ctx, user.ID)
	})
	if err != nil {
		log.Error("failed to confirm email change", slog.Any("error", err))
		return err
	}

	// Both inboxes hear about the switch.
	if err := s.Mailer.SendEmailChangeCompleted(ctx, req.CurrentEmail, req.NewEmail); err != nil {
		log.Warn("failed to notify previous address", slog.Any("error", err))
	}
	if err := s.Mailer.SendEmailChangeCompleted(ctx, req.NewEmail, req.NewEmail); err != nil {
		log.Warn("failed to notify new address", slog.Any("error", err))
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditEmailChangeComplete,
		ActorID:     user.ID,
		ActorEmail:  req.NewEmail,
		ActorRole:   user.Role,
		Description: "email change completed",
		Success:     true,
		Metadata:    map[string]any{"previous_email": req.CurrentEmail, "new_email": req.NewEmail},
		Meta:        meta,
	})
	return nil
}

// PendingEmailChange returns the caller's live request, if any.
func (s *AccountService) PendingEmailChange(ctx context.Context, userID string) (domain.EmailChangeRequest, error) {
	return s.Store.EmailChangeRequests().GetLiveRequestByUser(ctx, userID, time.Now())
}

// ChangePassword verifies the current password and sets a new one.
// revokeOther additionally signs out every other session.
func (s *AccountService) ChangePassword(
	ctx context.Context,
	ident httpx.Identity,
	currentPassword, newPassword string,
	revokeOther bool,
	meta RequestMeta,
) error {
	log := slogx.FromContext(ctx)

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	account, err := s.Store.Accounts().GetCredentialAccount(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoCredentialAccount
		}
		return err
	}

	if err := cryptox.VerifyPassword(currentPassword, account.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			s.Audit.Record(ctx, AuditEvent{
				Type:         domain.AuditPasswordChange,
				ActorID:      ident.UserID,
				ActorEmail:   ident.Email,
				ActorRole:    ident.Role,
				SessionID:    ident.SessionID,
				Description:  "password change rejected",
				Success:      false,
				ErrorMessage: "current password incorrect",
				Meta:         meta,
			})
			return ErrWrongPassword
		}
		return err
	}

	passwordHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().UpdatePasswordHash(ctx, account.ID, passwordHash); err != nil {
			return err
		}
		if revokeOther {
			if _, err := tx.Sessions().DeleteUserSessions(ctx, ident.UserID, ident.SessionID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to change password", slog.Any("error", err))
		return err
	}

	if err := s.Mailer.SendPasswordChangedNotice(ctx, ident.Email); err != nil {
		log.Warn("failed to send password changed notice", slog.Any("error", err))
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditPasswordChange,
		ActorID:     ident.UserID,
		ActorEmail:  ident.Email,
		ActorRole:   ident.Role,
		SessionID:   ident.SessionID,
		Description: "password changed",
		Success:     true,
		Metadata:    map[string]any{"other_sessions_revoked": revokeOther},
		Meta:        meta,
	})
	return nil
}

// DeleteAccount permanently destroys the caller's account. Credential users
// must re-enter their password; everyone types the confirmation phrase.
func (s *AccountService) DeleteAccount(
	ctx context.Context,
	ident httpx.Identity,
	password, confirmation string,
	meta RequestMeta,
) error {
	log := slogx.FromContext(ctx)

	if confirmation != DeleteConfirmationPhrase {
		return ErrConfirmationMismatch
	}

	user, err := s.Store.Users().GetUserByID(ctx, ident.UserID)
	if err != nil {
		return err
	}

	account, err := s.Store.Accounts().GetCredentialAccount(ctx, user.ID)
	switch {
	case err == nil:
		if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
			if errors.Is(err, cryptox.ErrPasswordMismatch) {
				return ErrWrongPassword
			}
			return err
		}
	case errors.Is(err, store.ErrNotFound):
		// Guests have no password to confirm with.
	default:
		return err
	}

	// Sessions, accounts and pending requests go with the user row.
	if err := s.Store.Users().DeleteUser(ctx, user.ID); err != nil {
		log.Error("failed to delete account", slog.Any("error", err))
		return err
	}

	if !user.Anonymous {
		if err := s.Mailer.SendAccountDeleted(ctx, user.Email); err != nil {
			log.Warn("failed to send account deleted notice", slog.Any("error", err))
		}
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditAccountDeleted,
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		ActorRole:   user.Role,
		SessionID:   ident.SessionID,
		Description: "account deleted by owner",
		Success:     true,
		Meta:        meta,
	})

	log.Info("account deleted", slog.String("user_id", user.ID))
	return nil
}

// DataExport is the takeout document. OAuth secrets and password hashes are
// deliberately absent.
type DataExport struct {
	ExportedAt time.Time       `json:"exportedAt"`
	User       ExportUser      `json:"user"`
	Sessions   []ExportSession `json:"sessions"`
	Accounts   []ExportAccount `json:"accounts"`
}

type ExportUser struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Role          string    `json:"role"`
	Anonymous     bool      `json:"anonymous"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type ExportSession struct {
	ID        string       `json:"id"`
	IPAddress string       `json:"ipAddress"`
	Device    uaparse.Info `json:"device"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type ExportAccount struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"providerId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ExportData assembles everything held about the caller.
func (s *AccountService) ExportData(ctx context.Context, ident httpx.Identity) (DataExport, error) {
	user, err := s.Store.Users().GetUserByID(ctx, ident.UserID)
	if err != nil {
		return DataExport{}, err
	}

	sessions, err := s.Store.Sessions().ListSessionsByUser(ctx, user.ID)
	if err != nil {
		return DataExport{}, err
	}
	accounts, err := s.Store.Accounts().ListAccountsByUser(ctx, user.ID)
	if err != nil {
		return DataExport{}, err
	}

	export := DataExport{
		ExportedAt: time.Now().UTC(),
		User: ExportUser{
			ID:            user.ID,
			Name:          user.Name,
			Email:         user.Email,
			EmailVerified: user.EmailVerified,
			Role:          user.Role,
			Anonymous:     user.Anonymous,
			CreatedAt:     user.CreatedAt,
			UpdatedAt:     user.UpdatedAt,
		},
	}
	for _, sess := range sessions {
		export.Sessions = append(export.Sessions, ExportSession{
			ID:        sess.ID,
			IPAddress: uaparse.MaskAddress(sess.IPAddress),
			Device:    uaparse.Parse(sess.UserAgent),
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
		})
	}
	for _, acc := range accounts {
		export.Accounts = append(export.Accounts, ExportAccount{
			ID:         acc.ID,
			ProviderID: acc.ProviderID,
			CreatedAt:  acc.CreatedAt,
		})
	}
	return export, nil
}
