// Package engine implements the token and authorization-code state
// machines (C6, C7) and the account-linking flow (C12), wiring together
// the credential, jwt, provider, and repository packages.
package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/smallbiznis/auth-service/internal/engine")

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// TokenPair is the RFC 6749 JSON token response shape.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}

// IntrospectionResult is the introspect response shape.
type IntrospectionResult struct {
	Active bool
	Sub    string
	Aud    string
	Scopes []string
	Role   string
	Exp    int64
	Iat    int64
}

func requireLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
