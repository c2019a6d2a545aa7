package credential_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/auth-service/internal/credential"
)

func TestHashPasswordAndVerify(t *testing.T) {
	hash, err := credential.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	ok, err := credential.VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = credential.VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashClientSecretSharesPasswordAlgorithm(t *testing.T) {
	secretHash, err := credential.HashClientSecret("s3cr3t")
	require.NoError(t, err)

	ok, err := credential.VerifyClientSecret("s3cr3t", secretHash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = credential.VerifyPassword("s3cr3t", secretHash)
	require.NoError(t, err)
	require.True(t, ok, "argon2id verification is algorithm-identical regardless of which helper hashed it")
}

func TestNewRefreshTokenUnique(t *testing.T) {
	a, err := credential.NewRefreshToken(32)
	require.NoError(t, err)
	b, err := credential.NewRefreshToken(32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.NotEmpty(t, credential.HashToken(a))
}

func TestNewAuthorizationCodeFitsColumn(t *testing.T) {
	code, err := credential.NewAuthorizationCode()
	require.NoError(t, err)
	require.LessOrEqual(t, len(code), 128)
}

func TestVerifyPKCE(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	require.True(t, credential.VerifyPKCE(verifier, challenge))
	require.False(t, credential.VerifyPKCE("wrong-verifier", challenge))
	require.False(t, credential.VerifyPKCE("", challenge))
}
