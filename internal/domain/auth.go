package domain

import (
	"context"
	"slices"
	"time"
)

// ClaimSet is the verified payload of a bearer token. It lives for one request.
type ClaimSet struct {
	Issuer    string
	Subject   string
	Audience  []string
	ExpiresAt time.Time

	// HasPermissions is false when the token carried no permissions attribute at all,
	// which is a different failure than a present but non-matching list.
	HasPermissions bool
	Permissions    []string
}

func (c ClaimSet) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (ClaimSet, error)
}

type Authorizer interface {
	Require(claims ClaimSet, permission string) error
}

const (
	PermDrinksDetail = "get:drinks-detail"
	PermDrinksCreate = "post:drinks"
	PermDrinksUpdate = "patch:drinks"
	PermDrinksDelete = "delete:drinks"
)
