package jwt

import "time"

// AccessTokenClaims is the full claim set an access token carries.
//
// Audience validation is intentionally never delegated to the JWT library's
// auto-check: go-jose's jwt.Claims.Validate would reject a token whose aud
// doesn't match an expected value, but this service inspects aud
// programmatically only where a caller actually needs to (the spec's
// documented contract, not an oversight).
type AccessTokenClaims struct {
	Subject   string   `json:"sub"`
	Audience  string   `json:"aud"`
	Issuer    string   `json:"iss"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
	Scopes    []string `json:"scopes"`
	Role      string   `json:"role"`
}

// Expired reports whether the claims' exp has passed as of now.
func (c AccessTokenClaims) Expired(now time.Time) bool {
	return now.Unix() >= c.ExpiresAt
}

// HasScope reports whether scope is present in the claim's scope list.
func (c AccessTokenClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
