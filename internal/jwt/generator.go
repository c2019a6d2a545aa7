package jwt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// Generator issues and verifies RS256 access tokens against a KeyStore.
type Generator struct {
	keys      *KeyStore
	issuer    string
	accessTTL time.Duration
}

// NewGenerator builds a Generator bound to keys, issuing tokens with issuer
// iss and the given access-token lifetime.
func NewGenerator(keys *KeyStore, issuer string, accessTTL time.Duration) *Generator {
	return &Generator{keys: keys, issuer: issuer, accessTTL: accessTTL}
}

// IssueAccessToken mints a compact RS256 JWS for the given subject, scopes,
// role, and audience (the requesting client's client_id).
func (g *Generator) IssueAccessToken(subject, audience, role string, scopes []string) (string, AccessTokenClaims, error) {
	now := time.Now().UTC()
	claims := AccessTokenClaims{
		Subject:   subject,
		Audience:  audience,
		Issuer:    g.issuer,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(g.accessTTL).Unix(),
		Scopes:    scopes,
		Role:      role,
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: g.keys.private}, &jose.SignerOptions{})
	if err != nil {
		return "", AccessTokenClaims{}, fmt.Errorf("create signer: %w", err)
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", AccessTokenClaims{}, fmt.Errorf("marshal claims: %w", err)
	}

	jws, err := signer.Sign(payload)
	if err != nil {
		return "", AccessTokenClaims{}, fmt.Errorf("sign token: %w", err)
	}

	compact, err := jws.CompactSerialize()
	if err != nil {
		return "", AccessTokenClaims{}, fmt.Errorf("serialize token: %w", err)
	}

	return compact, claims, nil
}

// VerifyAccessToken parses and verifies a compact JWS, checking signature,
// issuer, and expiry. It deliberately does not check audience — see
// AccessTokenClaims's doc comment.
func (g *Generator) VerifyAccessToken(token string) (AccessTokenClaims, error) {
	parsed, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		return AccessTokenClaims{}, fmt.Errorf("parse token: %w", err)
	}

	payload, err := parsed.Verify(g.keys.public)
	if err != nil {
		return AccessTokenClaims{}, fmt.Errorf("verify signature: %w", err)
	}

	var claims AccessTokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return AccessTokenClaims{}, fmt.Errorf("unmarshal claims: %w", err)
	}

	if claims.Issuer != g.issuer {
		return AccessTokenClaims{}, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if claims.Expired(time.Now().UTC()) {
		return AccessTokenClaims{}, fmt.Errorf("token expired")
	}

	return claims, nil
}

// JWKS exposes the public signing key as a JSON Web Key Set.
func (g *Generator) JWKS() jose.JSONWebKeySet {
	return g.keys.JWKS()
}
