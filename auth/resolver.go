package auth

import (
	"courier/domain"
	"courier/errors"
	"fmt"
)

// TokenResolver maps a session token to a verified identity.
// The relay consumes it through contract.IIdentityResolver; resolution
// failure leaves a connection unresolved but does not close it.
type TokenResolver struct{}

func NewTokenResolver() TokenResolver {
	return TokenResolver{}
}

func (TokenResolver) Resolve(credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, errors.ErrCredentialAbsent
	}
	claims, err := ValidateToken(credential)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrCredentialInvalid, err)
	}
	return domain.Identity{ID: claims.UserID, DisplayName: claims.Username}, nil
}
