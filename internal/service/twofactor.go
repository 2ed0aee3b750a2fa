package service

import (
	"context"
	"errors"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/cryptox"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidTOTPCode         = errors.New("invalid two-factor code")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	ErrTwoFactorNotEnrolled    = errors.New("two-factor not enrolled")
)

// TwoFactorEnrollment is returned from Enroll so the client can render the
// provisioning QR code.
type TwoFactorEnrollment struct {
	Secret  string `json:"secret"`
	URL     string `json:"url"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// TwoFactorService manages optional TOTP on credential accounts.
type TwoFactorService struct {
	Store  store.Store
	Audit  *AuditRecorder
	Issuer string
}

// Enroll generates a TOTP secret for the caller. Two-factor is not active
// until the first code is verified through Activate.
func (s *TwoFactorService) Enroll(ctx context.Context, ident httpx.Identity) (TwoFactorEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, ident.UserID)
	if err != nil {
		return TwoFactorEnrollment{}, err
	}
	if user.TwoFactorEnabled != nil {
		return TwoFactorEnrollment{}, ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TwoFactorEnrollment{}, err
	}

	secret := key.Secret()
	if err := s.Store.Users().SetTwoFactor(ctx, user.ID, &secret, nil); err != nil {
		return TwoFactorEnrollment{}, err
	}

	return TwoFactorEnrollment{
		Secret:  secret,
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: user.Email,
	}, nil
}

// Activate verifies the first code and switches two-factor on.
func (s *TwoFactorService) Activate(ctx context.Context, ident httpx.Identity, code string, meta RequestMeta) error {
	user, err := s.Store.Users().GetUserByID(ctx, ident.UserID)
	if err != nil {
		return err
	}
	if user.TwoFactorSecret == nil || *user.TwoFactorSecret == "" {
		return ErrTwoFactorNotEnrolled
	}
	if user.TwoFactorEnabled != nil {
		return ErrTwoFactorAlreadyEnabled
	}

	if !totp.Validate(code, *user.TwoFactorSecret) {
		return ErrInvalidTOTPCode
	}

	now := time.Now().UTC()
	if err := s.Store.Users().SetTwoFactor(ctx, user.ID, user.TwoFactorSecret, &now); err != nil {
		return err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditTwoFactorEnabled,
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		ActorRole:   user.Role,
		SessionID:   ident.SessionID,
		Description: "two-factor authentication enabled",
		Success:     true,
		Meta:        meta,
	})
	return nil
}

// Disable switches two-factor off after a password check.
func (s *TwoFactorService) Disable(ctx context.Context, ident httpx.Identity, password string, meta RequestMeta) error {
	user, err := s.Store.Users().GetUserByID(ctx, ident.UserID)
	if err != nil {
		return err
	}
	if user.TwoFactorSecret == nil {
		return ErrTwoFactorNotEnrolled
	}

	account, err := s.Store.Accounts().GetCredentialAccount(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoCredentialAccount
		}
		return err
	}
	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrWrongPassword
		}
		return err
	}

	if err := s.Store.Users().SetTwoFactor(ctx, user.ID, nil, nil); err != nil {
		return err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditTwoFactorDisabled,
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		ActorRole:   user.Role,
		SessionID:   ident.SessionID,
		Description: "two-factor authentication disabled",
		Success:     true,
		Meta:        meta,
	})
	return nil
}
