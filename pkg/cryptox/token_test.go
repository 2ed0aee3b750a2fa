package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	token, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, token, 43) // 32 bytes base64url, no padding

	other, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, token, other)

	_, err = GenerateToken(0)
	require.Error(t, err)
	_, err = GenerateToken(-1)
	require.Error(t, err)
}

func TestFingerprintTokenIsDeterministic(t *testing.T) {
	t.Parallel()

	fp := FingerprintToken("some-token")
	require.Equal(t, fp, FingerprintToken("some-token"))
	require.NotEqual(t, fp, FingerprintToken("other-token"))
	require.Len(t, fp, 43) // sha256 base64url
}

func TestGenerateCode(t *testing.T) {
	t.Parallel()

	code, err := GenerateCode(8)
	require.NoError(t, err)
	require.Len(t, code, 8)

	for _, c := range code {
		require.Contains(t, codeCharset, string(c))
	}

	_, err = GenerateCode(0)
	require.Error(t, err)
}
