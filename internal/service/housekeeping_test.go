package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	alice, liveToken := env.register(t, "Alice", "alice@example.com", "correct horse battery")

	now := time.Now().UTC()

	// An expired session next to the live one Register issued.
	expiredSession := domain.Session{
		ID:        idx.New().String(),
		UserID:    alice.ID,
		TokenHash: "stale-fingerprint",
		ExpiresAt: now.Add(-time.Hour),
		CreatedAt: now.Add(-25 * time.Hour),
		UpdatedAt: now.Add(-25 * time.Hour),
	}
	require.NoError(t, env.store.Sessions().CreateSession(ctx, expiredSession))

	expiredVerification := domain.Verification{
		ID:         idx.New().String(),
		Identifier: alice.ID,
		Purpose:    domain.VerifyPasswordReset,
		TokenHash:  "stale-verification",
		ExpiresAt:  now.Add(-time.Hour),
		CreatedAt:  now.Add(-2 * time.Hour),
	}
	require.NoError(t, env.store.Verifications().CreateVerification(ctx, expiredVerification))

	expiredRequest := domain.EmailChangeRequest{
		ID:           idx.New().String(),
		UserID:       alice.ID,
		CurrentEmail: alice.Email,
		NewEmail:     "alice@new.example",
		TokenHash:    "stale-request",
		ExpiresAt:    now.Add(-time.Hour),
		CreatedAt:    now.Add(-2 * time.Hour),
	}
	require.NoError(t, env.store.EmailChangeRequests().CreateEmailChangeRequest(ctx, expiredRequest))

	target, _ := env.register(t, "Target", "target@example.com", "correct horse battery")
	lapsed := now.Add(-time.Minute)
	require.NoError(t, env.store.Users().SetBan(ctx, target.ID, true, "cooldown", &lapsed))

	hk := NewHousekeepingService(env.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.cleanup()

	_, err := env.store.Sessions().GetSessionByID(ctx, expiredSession.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// The live session is untouched.
	_, err = env.auth.VerifySession(ctx, liveToken)
	require.NoError(t, err)

	_, err = env.store.Verifications().GetLiveVerification(ctx, "stale-verification", domain.VerifyPasswordReset, now.Add(-90*time.Minute))
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.store.EmailChangeRequests().GetLiveRequestByUser(ctx, alice.ID, now.Add(-90*time.Minute))
	require.ErrorIs(t, err, store.ErrNotFound)

	banned, err := env.store.Users().GetUserByID(ctx, target.ID)
	require.NoError(t, err)
	require.False(t, banned.Banned)
}
