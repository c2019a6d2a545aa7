package engine

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/auth-service/internal/jwt"
)

func newTestGenerator(t *testing.T) *jwt.Generator {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privBytes := x509.MarshalPKCS1PrivateKey(key)
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privBytes}), 0o600))

	pubBytes := x509.MarshalPKCS1PublicKey(&key.PublicKey)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: pubBytes}), 0o600))

	keys, err := jwt.LoadKeyStore(privPath, pubPath)
	require.NoError(t, err)

	return jwt.NewGenerator(keys, "auth-service", time.Hour)
}
