package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	enrollment, err := env.twofa.Enroll(ctx, ident)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.URL, "otpauth://totp/")
	require.Equal(t, "foyer-test", enrollment.Issuer)
	require.Equal(t, "alice@example.com", enrollment.Account)

	t.Run("enrollment alone does not gate login", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "", testMeta)
		require.NoError(t, err)
	})

	t.Run("activation requires a valid code", func(t *testing.T) {
		require.ErrorIs(t, env.twofa.Activate(ctx, ident, "000000", testMeta), ErrInvalidTOTPCode)

		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, env.twofa.Activate(ctx, ident, code, testMeta))
	})

	t.Run("login now demands a code", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "", testMeta)
		require.ErrorIs(t, err, ErrTwoFactorRequired)

		_, _, err = env.auth.Login(ctx, "alice@example.com", "correct horse battery", "000000", testMeta)
		require.ErrorIs(t, err, ErrInvalidTOTPCode)

		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)
		_, _, err = env.auth.Login(ctx, "alice@example.com", "correct horse battery", code, testMeta)
		require.NoError(t, err)
	})

	t.Run("re-enrollment while enabled is refused", func(t *testing.T) {
		_, err := env.twofa.Enroll(ctx, ident)
		require.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)
	})

	t.Run("disable needs the password", func(t *testing.T) {
		require.ErrorIs(t, env.twofa.Disable(ctx, ident, "not the password", testMeta), ErrWrongPassword)
		require.NoError(t, env.twofa.Disable(ctx, ident, "correct horse battery", testMeta))

		_, _, err := env.auth.Login(ctx, "alice@example.com", "correct horse battery", "", testMeta)
		require.NoError(t, err)
	})
}

func TestActivateWithoutEnrollment(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, token := env.register(t, "Alice", "alice@example.com", "correct horse battery")
	ident := env.identity(t, token)

	require.ErrorIs(t, env.twofa.Activate(ctx, ident, "123456", testMeta), ErrTwoFactorNotEnrolled)
	require.ErrorIs(t, env.twofa.Disable(ctx, ident, "correct horse battery", testMeta), ErrTwoFactorNotEnrolled)
}
