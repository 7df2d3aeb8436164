package ports

import (
	"context"
	"crypto/rsa"
)

// SigningKeyProvider resolves a token's key identifier to a verification key
// from the identity provider's published key set. Returns
// domain.ErrSigningKeyNotFound when no key in the current set matches kid;
// any other error means the set could not be retrieved.
type SigningKeyProvider interface {
	SigningKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}
