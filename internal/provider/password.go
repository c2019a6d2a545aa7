package provider

import "context"

// PasswordCredential is the credential shape the password provider expects.
type PasswordCredential struct {
	Identifier string // email or user id
	Password   string
}

// PasswordProvider only normalizes the identifier into a UserInfo; password
// verification itself happens against the Account.Credential column by the
// caller, which already holds the Argon2id hash to check against.
type PasswordProvider struct{}

var _ AuthProvider = PasswordProvider{}

func (PasswordProvider) ProviderID() string { return "password" }

func (PasswordProvider) Authenticate(_ context.Context, _ map[string]any, credential any) (UserInfo, error) {
	cred, ok := credential.(PasswordCredential)
	if !ok {
		return UserInfo{}, ErrProviderNotSupported
	}
	return UserInfo{
		ProviderAccountID: cred.Identifier,
		Email:             cred.Identifier,
	}, nil
}
