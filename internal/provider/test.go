package provider

import "context"

// TestCredential is a deterministic credential used only in integration
// tests; never registered outside test wiring.
type TestCredential struct {
	AccountID string
	Email     string
	Name      string
}

// TestProvider returns a deterministic UserInfo for integration tests.
type TestProvider struct{}

var _ AuthProvider = TestProvider{}

func (TestProvider) ProviderID() string { return "test" }

func (TestProvider) Authenticate(_ context.Context, _ map[string]any, credential any) (UserInfo, error) {
	cred, ok := credential.(TestCredential)
	if !ok {
		return UserInfo{}, ErrProviderNotSupported
	}
	return UserInfo{
		ProviderAccountID: cred.AccountID,
		Email:             cred.Email,
		Name:              cred.Name,
	}, nil
}
