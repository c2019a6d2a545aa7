package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/auth-service/internal/provider"
)

func TestFactoryDispatchesByProviderID(t *testing.T) {
	factory := provider.NewFactory(provider.PasswordProvider{}, provider.TestProvider{})

	p, err := factory.Create("password")
	require.NoError(t, err)
	require.Equal(t, "password", p.ProviderID())

	_, err = factory.Create("unknown")
	require.ErrorIs(t, err, provider.ErrProviderNotSupported)
}

func TestPasswordProviderNormalizesIdentifier(t *testing.T) {
	p := provider.PasswordProvider{}
	info, err := p.Authenticate(context.Background(), nil, provider.PasswordCredential{Identifier: "a@b.com"})
	require.NoError(t, err)
	require.Equal(t, "a@b.com", info.ProviderAccountID)
}

func TestTestProviderDeterministic(t *testing.T) {
	p := provider.TestProvider{}
	info, err := p.Authenticate(context.Background(), nil, provider.TestCredential{AccountID: "acct-1", Email: "x@y.com"})
	require.NoError(t, err)
	require.Equal(t, "acct-1", info.ProviderAccountID)
	require.Equal(t, "x@y.com", info.Email)
}
