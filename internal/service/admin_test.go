package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/stretchr/testify/require"
)

func TestListUsers(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "Admin", "admin@example.com", "correct horse battery")
	for i := range 4 {
		env.register(t, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i), "correct horse battery")
	}

	t.Run("defaults return everyone", func(t *testing.T) {
		page, err := env.admin.ListUsers(ctx, store.UserFilter{})
		require.NoError(t, err)
		require.Equal(t, 5, page.Total)
		require.Equal(t, 1, page.Page)
		require.Equal(t, 10, page.Limit)
		require.Equal(t, 1, page.TotalPages)
		require.Len(t, page.Users, 5)

		for _, u := range page.Users {
			require.Contains(t, u.Providers, domain.ProviderCredential)
			// Register signs everyone in, so a last sign-in exists.
			require.NotNil(t, u.LastSignIn)
		}
	})

	t.Run("pagination splits the listing", func(t *testing.T) {
		page, err := env.admin.ListUsers(ctx, store.UserFilter{Page: 2, Limit: 2})
		require.NoError(t, err)
		require.Equal(t, 5, page.Total)
		require.Equal(t, 3, page.TotalPages)
		require.Len(t, page.Users, 2)

		last, err := env.admin.ListUsers(ctx, store.UserFilter{Page: 3, Limit: 2})
		require.NoError(t, err)
		require.Len(t, last.Users, 1)
	})

	t.Run("role filter", func(t *testing.T) {
		page, err := env.admin.ListUsers(ctx, store.UserFilter{Role: domain.RoleAdmin})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		require.Equal(t, "admin@example.com", page.Users[0].Email)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		_, err := env.admin.ListUsers(ctx, store.UserFilter{Role: "superuser"})
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("limit is capped", func(t *testing.T) {
		page, err := env.admin.ListUsers(ctx, store.UserFilter{Limit: 10000})
		require.NoError(t, err)
		require.Equal(t, 100, page.Limit)
	})
}

func TestBanAndUnbanUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, adminToken := env.register(t, "Admin", "admin@example.com", "correct horse battery")
	adminIdent := env.identity(t, adminToken)
	target, targetToken := env.register(t, "Target", "target@example.com", "correct horse battery")

	require.NoError(t, env.admin.BanUser(ctx, adminIdent, target.ID, "abuse", nil, testMeta))

	t.Run("banned user cannot sign in and loses sessions", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "target@example.com", "correct horse battery", "", testMeta)
		require.ErrorIs(t, err, ErrUserBanned)

		_, err = env.auth.VerifySession(ctx, targetToken)
		require.ErrorIs(t, err, ErrInvalidSessionToken)
	})

	t.Run("ban shows up in the listing", func(t *testing.T) {
		page, err := env.admin.ListUsers(ctx, store.UserFilter{Status: "banned"})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		require.Equal(t, target.ID, page.Users[0].ID)
		require.Equal(t, "abuse", page.Users[0].BanReason)
	})

	t.Run("unban restores access", func(t *testing.T) {
		require.NoError(t, env.admin.UnbanUser(ctx, adminIdent, target.ID, testMeta))
		_, _, err := env.auth.Login(ctx, "target@example.com", "correct horse battery", "", testMeta)
		require.NoError(t, err)
	})

	t.Run("self ban is refused", func(t *testing.T) {
		require.ErrorIs(t, env.admin.BanUser(ctx, adminIdent, adminIdent.UserID, "oops", nil, testMeta), ErrSelfAction)
	})

	t.Run("unknown target", func(t *testing.T) {
		require.ErrorIs(t, env.admin.BanUser(ctx, adminIdent, "no-such-user", "spam", nil, testMeta), ErrUserNotFound)
		require.ErrorIs(t, env.admin.UnbanUser(ctx, adminIdent, "no-such-user", testMeta), ErrUserNotFound)
	})
}

func TestTemporaryBanExpires(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "Admin", "admin@example.com", "correct horse battery")
	target, _ := env.register(t, "Target", "target@example.com", "correct horse battery")

	expired := time.Now().Add(-time.Minute)
	require.NoError(t, env.store.Users().SetBan(ctx, target.ID, true, "cooldown", &expired))

	// A lapsed ban no longer blocks sign-in.
	_, _, err := env.auth.Login(ctx, "target@example.com", "correct horse battery", "", testMeta)
	require.NoError(t, err)
}

func TestChangeRole(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, adminToken := env.register(t, "Admin", "admin@example.com", "correct horse battery")
	adminIdent := env.identity(t, adminToken)
	target, _ := env.register(t, "Target", "target@example.com", "correct horse battery")

	require.NoError(t, env.admin.ChangeRole(ctx, adminIdent, target.ID, domain.RoleAdmin, testMeta))

	got, err := env.store.Users().GetUserByID(ctx, target.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, got.Role)

	t.Run("invalid role", func(t *testing.T) {
		require.ErrorIs(t, env.admin.ChangeRole(ctx, adminIdent, target.ID, "superuser", testMeta), ErrInvalidRole)
	})

	t.Run("own role is off limits", func(t *testing.T) {
		require.ErrorIs(t, env.admin.ChangeRole(ctx, adminIdent, adminIdent.UserID, domain.RoleUser, testMeta), ErrSelfAction)
	})
}

func TestAdminDeleteUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, adminToken := env.register(t, "Admin", "admin@example.com", "correct horse battery")
	adminIdent := env.identity(t, adminToken)
	target, targetToken := env.register(t, "Target", "target@example.com", "correct horse battery")

	require.NoError(t, env.admin.DeleteUser(ctx, adminIdent, target.ID, testMeta))

	_, err := env.store.Users().GetUserByID(ctx, target.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.auth.VerifySession(ctx, targetToken)
	require.ErrorIs(t, err, ErrInvalidSessionToken)

	t.Run("self delete is refused", func(t *testing.T) {
		require.ErrorIs(t, env.admin.DeleteUser(ctx, adminIdent, adminIdent.UserID, testMeta), ErrSelfAction)
	})

	t.Run("unknown target", func(t *testing.T) {
		require.ErrorIs(t, env.admin.DeleteUser(ctx, adminIdent, "no-such-user", testMeta), ErrUserNotFound)
	})
}
