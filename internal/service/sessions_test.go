package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListSessions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	_, _, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "", testMeta)
	require.NoError(t, err)

	views, err := env.sessions.List(ctx, ident)
	require.NoError(t, err)
	require.Len(t, views, 2)

	current := 0
	for _, v := range views {
		if v.IsCurrent {
			current++
			require.Equal(t, ident.SessionID, v.ID)
		}
		require.Equal(t, "203.xxx.xxx.xxx", v.IPAddress)
		require.Equal(t, "Firefox", v.Device.Browser)
	}
	require.Equal(t, 1, current)
}

func TestRevokeSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	_, otherToken, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "", testMeta)
	require.NoError(t, err)
	otherIdent := env.identity(t, otherToken)

	t.Run("current session must use logout", func(t *testing.T) {
		require.ErrorIs(t, env.sessions.Revoke(ctx, ident, ident.SessionID, testMeta), ErrCurrentSession)
	})

	t.Run("unknown session", func(t *testing.T) {
		require.ErrorIs(t, env.sessions.Revoke(ctx, ident, "no-such-session", testMeta), ErrSessionNotFound)
	})

	t.Run("someone else's session", func(t *testing.T) {
		_, bobToken := env.register(t, "Bob", "bob@example.com", "correct horse battery")
		bobIdent := env.identity(t, bobToken)
		require.ErrorIs(t, env.sessions.Revoke(ctx, bobIdent, otherIdent.SessionID, testMeta), ErrSessionNotOwned)
	})

	t.Run("owned session is revoked", func(t *testing.T) {
		require.NoError(t, env.sessions.Revoke(ctx, ident, otherIdent.SessionID, testMeta))
		_, err := env.auth.VerifySession(ctx, otherToken)
		require.ErrorIs(t, err, ErrInvalidSessionToken)
	})
}

func TestRevokeAllKeepsCurrentSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	var others []string
	for range 2 {
		_, extra, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "", testMeta)
		require.NoError(t, err)
		others = append(others, extra)
	}

	n, err := env.sessions.RevokeAll(ctx, ident, testMeta)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = env.auth.VerifySession(ctx, token)
	require.NoError(t, err)
	for _, extra := range others {
		_, err = env.auth.VerifySession(ctx, extra)
		require.ErrorIs(t, err, ErrInvalidSessionToken)
	}
}
