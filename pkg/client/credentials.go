package client

import "context"

// CredentialProvider supplies the bearer token attached to every
// authenticated request.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a bearer token fixed at startup.
type StaticToken string

// Token implements CredentialProvider.
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}
