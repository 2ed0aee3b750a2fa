package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/cryptox"
	"github.com/harbourlane/foyer/pkg/idx"
	"github.com/harbourlane/foyer/pkg/slogx"
)

var (
	ErrCodeNotFound    = errors.New("session code not found")
	ErrCodeAlreadyUsed = errors.New("session code has already been used")
	ErrCodeExpired     = errors.New("session code has expired")
	ErrInvalidExpiry   = errors.New("code expiry must be positive")
)

const (
	// DefaultCodeTTL is the validity window for freshly minted codes.
	DefaultCodeTTL = 24 * time.Hour

	// codeGenerateRetries bounds retries on the (vanishingly rare) code
	// string collision.
	codeGenerateRetries = 3
)

// GuestCodeService mints, validates and redeems one-time guest access codes.
// Redeeming a code provisions a throwaway guest account and signs it in.
type GuestCodeService struct {
	Store store.Store
	Audit *AuditRecorder
	Auth  *AuthService
	TTL   time.Duration
}

func (s *GuestCodeService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultCodeTTL
}

// Generate mints a new code on behalf of an admin. A zero expiresIn falls
// back to the configured default window.
func (s *GuestCodeService) Generate(ctx context.Context, createdBy string, expiresIn time.Duration, meta RequestMeta) (domain.SessionCode, error) {
	log := slogx.FromContext(ctx)

	if expiresIn < 0 {
		return domain.SessionCode{}, ErrInvalidExpiry
	}
	if expiresIn == 0 {
		expiresIn = s.ttl()
	}

	now := time.Now().UTC()
	code := domain.SessionCode{
		ExpiresAt: now.Add(expiresIn),
		CreatedBy: createdBy,
		CreatedAt: now,
	}

	// Retry on code collisions; the unique index arbitrates.
	var err error
	for range codeGenerateRetries {
		code.ID = idx.New().String()
		code.Code, err = cryptox.GenerateCode(domain.CodeLength)
		if err != nil {
			return domain.SessionCode{}, err
		}

		err = s.Store.SessionCodes().CreateSessionCode(ctx, code)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			log.Error("failed to create session code", slog.Any("error", err))
			return domain.SessionCode{}, err
		}
	}
	if err != nil {
		return domain.SessionCode{}, err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditCodeGenerated,
		ActorID:     createdBy,
		Description: "guest session code generated",
		Success:     true,
		Metadata:    map[string]any{"code_id": code.ID},
		Meta:        meta,
	})

	log.Info("session code generated",
		slog.String("code_id", code.ID),
		slog.String("created_by", createdBy),
	)
	return code, nil
}

// Validate checks a code without consuming it. Lookup is case-insensitive.
func (s *GuestCodeService) Validate(ctx context.Context, raw string) (domain.SessionCode, error) {
	code, err := s.Store.SessionCodes().GetSessionCodeByCode(ctx, strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SessionCode{}, ErrCodeNotFound
		}
		return domain.SessionCode{}, err
	}
	if code.Used {
		return domain.SessionCode{}, ErrCodeAlreadyUsed
	}
	if code.Expired(time.Now()) {
		return domain.SessionCode{}, ErrCodeExpired
	}
	return code, nil
}

// Redeem consumes a code and provisions a guest login: a throwaway anonymous
// user, a session, and the used stamp all land in one transaction. The
// conditional update on the used flag makes concurrent redemption a
// single-winner race.
func (s *GuestCodeService) Redeem(ctx context.Context, raw string, meta RequestMeta) (domain.User, string, error) {
	log := slogx.FromContext(ctx)

	code, err := s.Validate(ctx, raw)
	if err != nil {
		return domain.User{}, "", err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:            idx.New().String(),
		Name:          "Guest_" + code.Code,
		Email:         fmt.Sprintf("guest_%s@temp.local", strings.ToLower(code.Code)),
		EmailVerified: false,
		Role:          domain.RoleUser,
		Anonymous:     true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var cookieToken string
	var session domain.Session
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}

		cookieToken, session, err = s.Auth.issueSession(ctx, tx, user.ID, meta)
		if err != nil {
			return err
		}

		ok, err := tx.SessionCodes().MarkSessionCodeUsed(ctx, code.ID, session.ID, user.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race; roll everything back.
			return ErrCodeAlreadyUsed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCodeAlreadyUsed) {
			return domain.User{}, "", ErrCodeAlreadyUsed
		}
		log.Error("failed to redeem session code", slog.Any("error", err))
		return domain.User{}, "", err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditLoginSuccess,
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		ActorRole:   user.Role,
		SessionID:   session.ID,
		Description: "guest signed in via session code",
		Success:     true,
		Metadata:    map[string]any{"code_id": code.ID},
		Meta:        meta,
	})

	log.Info("session code redeemed",
		slog.String("code_id", code.ID),
		slog.String("guest_user_id", user.ID),
	)
	return user, cookieToken, nil
}

// Invalidate marks an unused code as used without a redemption, blocking any
// future use. Already-used codes are reported as such.
func (s *GuestCodeService) Invalidate(ctx context.Context, codeID, adminID string, meta RequestMeta) error {
	code, err := s.Store.SessionCodes().GetSessionCodeByID(ctx, codeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCodeNotFound
		}
		return err
	}
	if code.Used {
		return ErrCodeAlreadyUsed
	}

	ok, err := s.Store.SessionCodes().MarkSessionCodeUsed(ctx, code.ID, "", "", time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeAlreadyUsed
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditCodeInvalidated,
		ActorID:     adminID,
		Description: "guest session code invalidated by admin",
		Success:     true,
		Metadata:    map[string]any{"code_id": code.ID},
		Meta:        meta,
	})
	return nil
}

// Delete removes a code outright.
func (s *GuestCodeService) Delete(ctx context.Context, codeID, adminID string, meta RequestMeta) error {
	if err := s.Store.SessionCodes().DeleteSessionCode(ctx, codeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCodeNotFound
		}
		return err
	}

	s.Audit.Record(ctx, AuditEvent{
		Type:        domain.AuditCodeDeleted,
		ActorID:     adminID,
		Description: "guest session code deleted by admin",
		Success:     true,
		Metadata:    map[string]any{"code_id": codeID},
		Meta:        meta,
	})
	return nil
}

// List returns every code, newest first, with creator identity attached.
func (s *GuestCodeService) List(ctx context.Context) ([]domain.SessionCodeWithCreator, error) {
	return s.Store.SessionCodes().ListSessionCodes(ctx)
}
