package service

import (
	"context"
	"testing"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/notify"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestEmailChangeFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	alice, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	require.NoError(t, env.account.RequestEmailChange(ctx, ident, "alice@new.example", testMeta))

	// The current address gets a heads-up, the new one the confirmation link.
	notice := env.sender.lastTo(t, "alice@example.com")
	require.Contains(t, notice.Body, "alice@new.example")
	confirmToken := tokenFromMessage(t, env.sender.lastTo(t, "alice@new.example"))

	pending, err := env.account.PendingEmailChange(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@new.example", pending.NewEmail)

	require.NoError(t, env.account.ConfirmEmailChange(ctx, confirmToken, testMeta))

	got, err := env.store.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@new.example", got.Email)
	require.True(t, got.EmailVerified)

	// The request is consumed.
	_, err = env.account.PendingEmailChange(ctx, alice.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, env.account.ConfirmEmailChange(ctx, confirmToken, testMeta), ErrTokenInvalid)

	// The old address is free again.
	_, _, err = env.auth.Register(ctx, "Newcomer", "alice@example.com", "correct horse battery", testMeta)
	require.NoError(t, err)
}

func TestRequestEmailChangeRejections(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "Bob", "bob@example.com", "correct horse battery")
	_, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	t.Run("same address", func(t *testing.T) {
		err := env.account.RequestEmailChange(ctx, ident, "alice@example.com", testMeta)
		require.ErrorIs(t, err, ErrSameEmail)
	})

	t.Run("address in use", func(t *testing.T) {
		err := env.account.RequestEmailChange(ctx, ident, "bob@example.com", testMeta)
		require.ErrorIs(t, err, ErrEmailAlreadyTaken)
	})

	t.Run("malformed address", func(t *testing.T) {
		err := env.account.RequestEmailChange(ctx, ident, "not-an-email", testMeta)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("one live request at a time", func(t *testing.T) {
		require.NoError(t, env.account.RequestEmailChange(ctx, ident, "alice@new.example", testMeta))
		err := env.account.RequestEmailChange(ctx, ident, "alice@other.example", testMeta)
		require.ErrorIs(t, err, ErrEmailChangePending)
	})

	t.Run("bogus confirmation token", func(t *testing.T) {
		require.ErrorIs(t, env.account.ConfirmEmailChange(ctx, "bogus", testMeta), ErrTokenInvalid)
	})
}

func TestRequestEmailChangeSurvivesDeliveryFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	alice, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	broken := &AccountService{
		Store:  env.store,
		Mailer: notify.NewMailer(failingSender{}, "http://localhost:8080"),
		Audit:  env.audit,
	}

	// Delivery trouble is logged, never surfaced; the request row survives.
	require.NoError(t, broken.RequestEmailChange(ctx, ident, "alice@new.example", testMeta))

	pending, err := broken.PendingEmailChange(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@new.example", pending.NewEmail)
}

func TestEmailChangeRequestUniquePerUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	alice, _ := env.register(t, "Alice", "alice@example.com", "correct horse battery")

	now := time.Now().UTC()
	first := domain.EmailChangeRequest{
		ID:           "req-first",
		UserID:       alice.ID,
		CurrentEmail: alice.Email,
		NewEmail:     "alice@new.example",
		TokenHash:    "hash-first",
		ExpiresAt:    now.Add(time.Hour),
		CreatedAt:    now,
	}
	require.NoError(t, env.store.EmailChangeRequests().CreateEmailChangeRequest(ctx, first))

	// The unique index, not the service's read, arbitrates the second insert.
	second := first
	second.ID = "req-second"
	second.TokenHash = "hash-second"
	second.NewEmail = "alice@other.example"
	err := env.store.EmailChangeRequests().CreateEmailChangeRequest(ctx, second)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestRequestEmailChangeSweepsLapsedRequest(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	alice, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	stale := domain.EmailChangeRequest{
		ID:           "req-stale",
		UserID:       alice.ID,
		CurrentEmail: alice.Email,
		NewEmail:     "alice@stale.example",
		TokenHash:    "hash-stale",
		ExpiresAt:    time.Now().Add(-time.Minute),
		CreatedAt:    time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, env.store.EmailChangeRequests().CreateEmailChangeRequest(ctx, stale))

	// The expired leftover must not block a fresh request.
	require.NoError(t, env.account.RequestEmailChange(ctx, ident, "alice@new.example", testMeta))

	pending, err := env.account.PendingEmailChange(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@new.example", pending.NewEmail)
}

func TestConfirmEmailChangeRejectsExpiredToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	alice, _ := env.register(t, "Alice", "alice@example.com", "correct horse battery")

	staleToken := "lapsed-change-token"
	req := domain.EmailChangeRequest{
		ID:           "req-lapsed",
		UserID:       alice.ID,
		CurrentEmail: alice.Email,
		NewEmail:     "alice@new.example",
		TokenHash:    cryptox.FingerprintToken(staleToken),
		ExpiresAt:    time.Now().Add(-time.Minute),
		CreatedAt:    time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, env.store.EmailChangeRequests().CreateEmailChangeRequest(ctx, req))

	require.ErrorIs(t, env.account.ConfirmEmailChange(ctx, staleToken, testMeta), ErrTokenInvalid)

	got, err := env.store.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got.Email)
}

func TestConfirmEmailChangeDetectsTakenAddress(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	require.NoError(t, env.account.RequestEmailChange(ctx, ident, "contested@example.com", testMeta))
	confirmToken := tokenFromMessage(t, env.sender.lastTo(t, "contested@example.com"))

	// Someone registers the address while the request is pending.
	env.register(t, "Sniper", "contested@example.com", "correct horse battery")

	err := env.account.ConfirmEmailChange(ctx, confirmToken, testMeta)
	require.ErrorIs(t, err, ErrEmailAlreadyTaken)

	// The dead request is cleaned up with it.
	_, err = env.account.PendingEmailChange(ctx, ident.UserID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	t.Run("wrong current password", func(t *testing.T) {
		err := env.account.ChangePassword(ctx, ident, "not the password", "replacement phrase", false, testMeta)
		require.ErrorIs(t, err, ErrWrongPassword)
	})

	t.Run("weak new password", func(t *testing.T) {
		err := env.account.ChangePassword(ctx, ident, "correct horse battery", "short", false, testMeta)
		require.ErrorIs(t, err, ErrPasswordTooWeak)
	})

	t.Run("success swaps the credential", func(t *testing.T) {
		require.NoError(t, env.account.ChangePassword(ctx, ident, "correct horse battery", "replacement phrase", false, testMeta))

		_, _, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "", testMeta)
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, _, err = env.auth.Login(ctx, "alice@example.com", "replacement phrase", "", testMeta)
		require.NoError(t, err)
	})
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	_, otherToken, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "", testMeta)
	require.NoError(t, err)

	require.NoError(t, env.account.ChangePassword(ctx, ident, "correct horse battery", "replacement phrase", true, testMeta))

	// The requesting session survives, the other one is gone.
	_, err = env.auth.VerifySession(ctx, token)
	require.NoError(t, err)
	_, err = env.auth.VerifySession(ctx, otherToken)
	require.ErrorIs(t, err, ErrInvalidSessionToken)
}

func TestDeleteAccount(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	alice, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	t.Run("wrong confirmation phrase", func(t *testing.T) {
		err := env.account.DeleteAccount(ctx, ident, "correct horse battery", "delete my account", testMeta)
		require.ErrorIs(t, err, ErrConfirmationMismatch)
	})

	t.Run("wrong password", func(t *testing.T) {
		err := env.account.DeleteAccount(ctx, ident, "not the password", DeleteConfirmationPhrase, testMeta)
		require.ErrorIs(t, err, ErrWrongPassword)
	})

	t.Run("success removes the user and sessions", func(t *testing.T) {
		require.NoError(t, env.account.DeleteAccount(ctx, ident, "correct horse battery", DeleteConfirmationPhrase, testMeta))

		_, err := env.store.Users().GetUserByID(ctx, alice.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = env.auth.VerifySession(ctx, token)
		require.ErrorIs(t, err, ErrInvalidSessionToken)

		_, _, err = env.auth.Login(ctx, "alice@example.com", "correct horse battery", "", testMeta)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestGuestDeletesAccountWithoutPassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	admin, _ := env.register(t, "Admin", "admin@example.com", "correct horse battery")
	code, err := env.codes.Generate(ctx, admin.ID, 0, testMeta)
	require.NoError(t, err)

	guest, token, err := env.codes.Redeem(ctx, code.Code, testMeta)
	require.NoError(t, err)
	ident := env.identity(t, token)

	require.NoError(t, env.account.DeleteAccount(ctx, ident, "", DeleteConfirmationPhrase, testMeta))

	_, err = env.store.Users().GetUserByID(ctx, guest.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestExportData(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	alice, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	_, _, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "", testMeta)
	require.NoError(t, err)

	export, err := env.account.ExportData(ctx, ident)
	require.NoError(t, err)

	require.Equal(t, alice.ID, export.User.ID)
	require.Equal(t, "alice@example.com", export.User.Email)
	require.False(t, export.User.Anonymous)

	require.Len(t, export.Sessions, 2)
	for _, sess := range export.Sessions {
		// Addresses are masked down to the first octet.
		require.Equal(t, "203.xxx.xxx.xxx", sess.IPAddress)
		require.NotEmpty(t, sess.Device.Browser)
	}

	require.Len(t, export.Accounts, 1)
	require.Equal(t, domain.ProviderCredential, export.Accounts[0].ProviderID)
}
