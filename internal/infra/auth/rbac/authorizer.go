package rbac

import "coffeeshop/internal/domain"

// Authorizer checks a verified claim set for a required permission string.
type Authorizer struct{}

func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// Require fails with invalid_claims (400) when the token has no permissions attribute
// and with unauthorized (403) when the attribute is present but lacks permission. The
// presence check always runs first.
func (a *Authorizer) Require(claims domain.ClaimSet, permission string) error {
	if !claims.HasPermissions {
		return domain.ErrPermissionsMissing()
	}
	if permission == "" {
		return nil
	}
	if !claims.HasPermission(permission) {
		return domain.ErrPermissionDenied()
	}
	return nil
}
