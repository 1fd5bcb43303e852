// Package identity defines the boundary to the external identity provider
// (IdP). Implementations live in sub-packages and only report identity
// facts; all decisions about local accounts are made by the caller.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrConnectivity means the provider could not be reached or answered
	// with a transient server-side failure.
	ErrConnectivity = errors.New("identity provider unreachable")
	// ErrNotFound means the provider does not know the requested identity.
	ErrNotFound = errors.New("identity not found")
	// ErrUnexpectedResponse means the provider answered, but not in a way we
	// can use (auth rejected, malformed payload, unexpected status).
	ErrUnexpectedResponse = errors.New("unexpected identity provider response")
	// ErrInvalidToken means a bearer token was rejected by the provider.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// RemoteIdentity is a user as the provider sees it. Role claims are not
// embedded; they are fetched separately through Provider.RealmRoles.
type RemoteIdentity struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string
	Enabled   bool
}

// Provider is the read-only view of the identity provider used by user sync.
type Provider interface {
	// ListIdentities returns every identity in provider order.
	ListIdentities(ctx context.Context) ([]RemoteIdentity, error)
	// RealmRoles returns the realm-level role claims of one identity.
	RealmRoles(ctx context.Context, remoteID string) ([]string, error)
}

// TokenClaims is what a verified bearer token tells us about its caller.
type TokenClaims struct {
	Subject string
	Email   string
}

// TokenVerifier delegates bearer token validation to the provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*TokenClaims, error)
}
