package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/notify"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/cryptox"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/harbourlane/foyer/pkg/idx"
	"github.com/harbourlane/foyer/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyTaken  = errors.New("email already in use")
	ErrUserBanned         = errors.New("account is banned")
	ErrPasswordTooWeak    = errors.New("password does not meet requirements")
	ErrTwoFactorRequired  = errors.New("two-factor code required")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128

	// DefaultSessionTTL is how long a session (and its cookie) lives.
	DefaultSessionTTL = 24 * time.Hour

	emailVerifyTTL   = 24 * time.Hour
	passwordResetTTL = 1 * time.Hour
)

type AuthService struct {
	Store         store.Store
	Mailer        *notify.Mailer
	Audit         *AuditRecorder
	SessionSecret []byte
	SessionTTL    time.Duration
}

func (s *AuthService) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return DefaultSessionTTL
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrPasswordTooWeak
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidRequest
	}
	return email, nil
}

// Register creates a new account with a credential login and signs the user
// in. The very first account on a fresh database is seeded as admin.
func (s *AuthService) Register(
	ctx context.Context,
	name, email, password string,
	meta RequestMeta,
) (domain.User, string, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, "", ErrInvalidRequest
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.User{}, "", err
	}
	if err := validatePassword(password); err != nil {
		return domain.User{}, "", err
	}

	// 2. Check email availability up front for a friendly error. The unique
	// index is the real guard.
	_, err = s.Store.Users().GetUserByEmail(ctx, email)
	if err == nil {
		return domain.User{}, "", ErrEmailAlreadyTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check email availability", slog.Any("error", err))
		return domain.User{}, "", err
	}

	// 3. Hash the password using Argon2id
	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, "", err
	}

	// 4. The first registered user becomes the admin.
	count, err := s.Store.Users().CountUsers(ctx)
	if err != nil {
		log.Error("failed to count users", slog.Any("error", err))
		return domain.User{}, "", err
	}
	role := domain.RoleUser
	if count == 0 {
		role = domain.RoleAdmin
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:        idx.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 5. Create user, credential account and session atomically.
	var cookieToken string
	var session domain.Session
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailAlreadyTaken
			}
			return err
		}

		account := domain.Account{
			ID:           idx.New().String(),
			UserID:       user.ID,
			ProviderID:   domain.ProviderCredential,
			AccountID:    user.ID,
			PasswordHash: passwordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			return err
		}

		cookieToken, session, err = s.issueSession(ctx, tx, user.ID, meta)
		return err
	})
	if err != nil {
		log.Error("registration failed", slog.Any("error", err))
		return domain.User{}, "", err
	}

	// 6. Mail the verification link. Delivery failure never fails signup.
	if err := s.sendEmailVerification(ctx, user); err != nil {
		log.Warn("failed to send verification email", slog.Any("error", err))
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditSignup,
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		ActorRole:   user.Role,
		SessionID:   session.ID,
		Description: "new account registered",
		Success:     true,
		Meta:        meta,
	})

	log.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)
	return user, cookieToken, nil
}

// Login verifies credentials and issues a session. Users with two-factor
// enabled must supply a valid TOTP code.
func (s *AuthService) Login(
	ctx context.Context,
	email, password, totpCode string,
	meta RequestMeta,
) (domain.User, string, error) {
	log := slogx.FromContext(ctx)

	email, err := normalizeEmail(email)
	if err != nil {
		return domain.User{}, "", ErrInvalidCredentials
	}

	fail := func(reason string) {
		s.Audit.Record(ctx, AuditEvent{
			Type:         domain.AuditLoginFailure,
			ActorEmail:   email,
			Description:  "login attempt failed",
			Success:      false,
			ErrorMessage: reason,
			Meta:         meta,
		})
	}

	// 1. Resolve the user; unknown emails and wrong passwords collapse into
	// the same error.
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail("unknown email")
			return domain.User{}, "", ErrInvalidCredentials
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return domain.User{}, "", err
	}

	// 2. Banned users cannot sign in.
	if user.BanActive(time.Now()) {
		fail("account banned")
		return domain.User{}, "", ErrUserBanned
	}

	// 3. Verify the credential password.
	account, err := s.Store.Accounts().GetCredentialAccount(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail("no credential account")
			return domain.User{}, "", ErrInvalidCredentials
		}
		log.Error("failed to fetch credential account", slog.Any("error", err))
		return domain.User{}, "", err
	}
	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			fail("wrong password")
			return domain.User{}, "", ErrInvalidCredentials
		}
		log.Error("failed to verify password", slog.Any("error", err))
		return domain.User{}, "", err
	}

	// 4. Two-factor gate.
	if user.TwoFactorEnabled != nil && user.TwoFactorSecret != nil {
		if totpCode == "" {
			return domain.User{}, "", ErrTwoFactorRequired
		}
		if !totp.Validate(totpCode, *user.TwoFactorSecret) {
			fail("invalid two-factor code")
			return domain.User{}, "", ErrInvalidTOTPCode
		}
	}

	// 5. Issue the session.
	var cookieToken string
	var session domain.Session
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		cookieToken, session, err = s.issueSession(ctx, tx, user.ID, meta)
		return err
	})
	if err != nil {
		log.Error("failed to issue session", slog.Any("error", err))
		return domain.User{}, "", err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditLoginSuccess,
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		ActorRole:   user.Role,
		SessionID:   session.ID,
		Description: "user signed in",
		Success:     true,
		Meta:        meta,
	})

	log.Info("user signed in", slog.String("user_id", user.ID))
	return user, cookieToken, nil
}

// Logout destroys the caller's session.
func (s *AuthService) Logout(ctx context.Context, ident httpx.Identity, meta RequestMeta) error {
	if err := s.Store.Sessions().DeleteSession(ctx, ident.SessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditLogout,
		ActorID:     ident.UserID,
		ActorEmail:  ident.Email,
		ActorRole:   ident.Role,
		SessionID:   ident.SessionID,
		Description: "user signed out",
		Success:     true,
		Meta:        meta,
	})
	return nil
}

// VerifySession resolves a session cookie to an identity. The cookie is a
// signed wrapper; the session row decides validity, so revocation is
// immediate.
func (s *AuthService) VerifySession(ctx context.Context, raw string) (httpx.Identity, error) {
	sessionID, opaque, err := parseSessionToken(s.SessionSecret, raw)
	if err != nil {
		return httpx.Identity{}, ErrInvalidSessionToken
	}

	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		return httpx.Identity{}, ErrInvalidSessionToken
	}
	if session.TokenHash != cryptox.FingerprintToken(opaque) {
		return httpx.Identity{}, ErrInvalidSessionToken
	}
	if session.Expired(time.Now()) {
		return httpx.Identity{}, ErrInvalidSessionToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		return httpx.Identity{}, ErrInvalidSessionToken
	}
	if user.BanActive(time.Now()) {
		return httpx.Identity{}, ErrUserBanned
	}

	// Sliding activity marker; failure is harmless.
	_ = s.Store.Sessions().TouchSession(ctx, session.ID, time.Now().UTC())

	return httpx.Identity{
		UserID:    user.ID,
		SessionID: session.ID,
		Email:     user.Email,
		Role:      user.Role,
	}, nil
}

// VerifyEmail consumes a verification token and flags the address confirmed.
func (s *AuthService) VerifyEmail(ctx context.Context, token string, meta RequestMeta) error {
	log := slogx.FromContext(ctx)

	fingerprint := cryptox.FingerprintToken(token)
	v, err := s.Store.Verifications().GetLiveVerification(ctx, fingerprint, domain.VerifyEmail, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Audit.Record(ctx, AuditEvent{
				Type:         domain.AuditInvalidToken,
				Description:  "email verification attempted with invalid token",
				Success:      false,
				ErrorMessage: "token not found or expired",
				Meta:         meta,
			})
			return ErrTokenInvalid
		}
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, v.Identifier)
	if err != nil {
		return ErrTokenInvalid
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetEmailVerified(ctx, user.ID, true); err != nil {
			return err
		}
		return tx.Verifications().DeleteVerificationsForIdentifier(ctx, user.ID, domain.VerifyEmail)
	})
	if err != nil {
		log.Error("failed to verify email", slog.Any("error", err))
		return err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditEmailVerification,
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		ActorRole:   user.Role,
		Description: "email address verified",
		Success:     true,
		Meta:        meta,
	})
	return nil
}

// RequestPasswordReset mails a reset link if the address belongs to a
// credential account. It always reports success to the caller so addresses
// cannot be enumerated.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string, meta RequestMeta) error {
	log := slogx.FromContext(ctx)

	email, err := normalizeEmail(email)
	if err != nil {
		return nil
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := s.Store.Accounts().GetCredentialAccount(ctx, user.ID); err != nil {
		return nil
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	v := domain.Verification{
		ID:         idx.New().String(),
		Identifier: user.ID,
		Purpose:    domain.VerifyPasswordReset,
		TokenHash:  cryptox.FingerprintToken(token),
		ExpiresAt:  now.Add(passwordResetTTL),
		CreatedAt:  now,
	}
	if err := s.Store.Verifications().CreateVerification(ctx, v); err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		log.Warn("failed to send password reset email", slog.Any("error", err))
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditPasswordResetRequest,
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		ActorRole:   user.Role,
		Description: "password reset requested",
		Success:     true,
		Meta:        meta,
	})
	return nil
}

// ConfirmPasswordReset consumes a reset token, sets the new password and
// revokes every session.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string, meta RequestMeta) error {
	log := slogx.FromContext(ctx)

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	fingerprint := cryptox.FingerprintToken(token)
	v, err := s.Store.Verifications().GetLiveVerification(ctx, fingerprint, domain.VerifyPasswordReset, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Audit.Record(ctx, AuditEvent{
				Type:         domain.AuditInvalidToken,
				Description:  "password reset attempted with invalid token",
				Success:      false,
				ErrorMessage: "token not found or expired",
				Meta:         meta,
			})
			return ErrTokenInvalid
		}
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, v.Identifier)
	if err != nil {
		return ErrTokenInvalid
	}
	account, err := s.Store.Accounts().GetCredentialAccount(ctx, user.ID)
	if err != nil {
		return ErrTokenInvalid
	}

	passwordHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().UpdatePasswordHash(ctx, account.ID, passwordHash); err != nil {
			return err
		}
		if err := tx.Verifications().DeleteVerificationsForIdentifier(ctx, user.ID, domain.VerifyPasswordReset); err != nil {
			return err
		}
		_, err := tx.Sessions().DeleteUserSessions(ctx, user.ID, "")
		return err
	})
	if err != nil {
		log.Error("failed to complete password reset", slog.Any("error", err))
		return err
	}

	if err := s.Mailer.SendPasswordChangedNotice(ctx, user.Email); err != nil {
		log.Warn("failed to send password changed notice", slog.Any("error", err))
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditPasswordResetComplete,
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		ActorRole:   user.Role,
		Description: "password reset completed, all sessions revoked",
		Success:     true,
		Meta:        meta,
	})
	return nil
}

// issueSession creates a session row and returns the signed cookie value.
func (s *AuthService) issueSession(
	ctx context.Context,
	tx store.Tx,
	userID string,
	meta RequestMeta,
) (string, domain.Session, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", domain.Session{}, err
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(opaque),
		ExpiresAt: now.Add(s.sessionTTL()),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Sessions().CreateSession(ctx, session); err != nil {
		return "", domain.Session{}, err
	}

	cookieToken, err := mintSessionToken(s.SessionSecret, session.ID, opaque, session.ExpiresAt)
	if err != nil {
		return "", domain.Session{}, err
	}
	return cookieToken, session, nil
}

func (s *AuthService) sendEmailVerification(ctx context.Context, user domain.User) error {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	v := domain.Verification{
		ID:         idx.New().String(),
		Identifier: user.ID,
		Purpose:    domain.VerifyEmail,
		TokenHash:  cryptox.FingerprintToken(token),
		ExpiresAt:  now.Add(emailVerifyTTL),
		CreatedAt:  now,
	}
	if err := s.Store.Verifications().CreateVerification(ctx, v); err != nil {
		return err
	}
	return s.Mailer.SendEmailVerification(ctx, user.Email, token)
}
