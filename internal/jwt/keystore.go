// Package jwt owns the RSA keypair and the RS256 access-token codec built
// on top of it, including the JWKS document derived from the public key.
package jwt

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/go-jose/go-jose/v4"
)

// KeyStore holds the process-wide RSA keypair, loaded once at startup and
// treated as immutable thereafter. There is no in-process key rotation —
// per the spec's resolved open question, scaling beyond a single replica
// requires an external key-distribution mechanism this package does not
// provide.
type KeyStore struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	kid     string
}

// LoadKeyStore reads PEM-encoded RSA keys from the given paths. It fails
// loudly — returning an error rather than falling back to any default — if
// either file is missing or malformed, since an authorization server with
// no signing key cannot safely start.
func LoadKeyStore(privatePath, publicPath string) (*KeyStore, error) {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	pubPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	priv, err := parsePrivateKey(privPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := parsePublicKey(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &KeyStore{private: priv, public: pub, kid: fingerprint(pub)}, nil
}

func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not RSA")
	}
	return rsaKey, nil
}

func parsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key is not RSA")
	}
	return rsaKey, nil
}

// fingerprint derives a stable kid from the SHA-256 of the modulus, matching
// the teacher's convention of deriving a short, non-secret key identifier
// from the key material itself rather than minting a random one.
func fingerprint(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:])[:16]
}

// JWKS returns the JSON Web Key Set document for the public key.
func (k *KeyStore) JWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       k.public,
				KeyID:     k.kid,
				Algorithm: string(jose.RS256),
				Use:       "sig",
			},
		},
	}
}
