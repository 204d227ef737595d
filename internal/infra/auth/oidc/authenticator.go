package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"coffeeshop/internal/config"
	"coffeeshop/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const discoveryPath = "/.well-known/openid-configuration"

// Authenticator verifies bearer tokens issued by a single OIDC provider. Exactly one
// signing algorithm is accepted.
type Authenticator struct {
	issuer    string
	audience  string
	alg       string
	clockSkew time.Duration
	now       func() time.Time

	httpClient *http.Client
	jwks       *jwksCache
	parser     *jwt.Parser
}

type Option func(*Authenticator)

func WithHTTPClient(client *http.Client) Option {
	return func(a *Authenticator) {
		if client != nil {
			a.httpClient = client
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAuthenticator(cfg config.Config, opts ...Option) (*Authenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Authenticator{
		issuer:     cfg.OIDCIssuerURL,
		audience:   cfg.OIDCAudience,
		alg:        cfg.SigningAlg(),
		clockSkew:  cfg.ClockSkew(),
		now:        time.Now,
		httpClient: &http.Client{Timeout: cfg.JWKSTimeout()},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.jwks = newJWKSCache(cfg.OIDCJWKSURL, a.httpClient, cfg.JWKSTimeout())
	if cfg.OIDCJWKSURL == "" {
		// Discovery waits for the first key fetch and is retried by later ones.
		a.jwks.discover = func(ctx context.Context) (string, error) {
			return discoverJWKSURL(ctx, a.httpClient, a.issuer)
		}
	}
	a.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{a.alg}),
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return a.now() }),
	)
	return a, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	// Permissions stays nil when the attribute is absent; an empty JSON array decodes
	// to a non-nil empty slice.
	Permissions []string `json:"permissions,omitempty"`
}

// Authenticate runs the checks in order and stops at the first failure: header and kid,
// trusted key lookup, signature under the allowlisted algorithm, expiry, issuer and
// audience. Every failure is a *domain.AuthError.
func (a *Authenticator) Authenticate(ctx context.Context, bearerToken string) (domain.ClaimSet, error) {
	if a == nil {
		return domain.ClaimSet{}, domain.ErrTokenUnparseable(errors.New("authenticator not configured"))
	}
	tokenString := strings.TrimSpace(bearerToken)
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return domain.ClaimSet{}, domain.ErrTokenUnparseable(err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return domain.ClaimSet{}, domain.ErrHeaderMalformed("Authorization malformed.")
	}
	key, err := a.jwks.getKey(ctx, kid)
	if err != nil {
		return domain.ClaimSet{}, domain.ErrKeyNotFound(err)
	}

	var claims tokenClaims
	_, err = a.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return domain.ClaimSet{}, classifyParseError(err)
	}
	return claims.toClaimSet(), nil
}

func classifyParseError(err error) *domain.AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrTokenUnparseable(err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired(err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return domain.ErrIncorrectClaims(err)
	default:
		return domain.ErrTokenUnparseable(err)
	}
}

func (c tokenClaims) toClaimSet() domain.ClaimSet {
	set := domain.ClaimSet{
		Issuer:         c.Issuer,
		Subject:        c.Subject,
		Audience:       []string(c.Audience),
		HasPermissions: c.Permissions != nil,
		Permissions:    c.Permissions,
	}
	if c.ExpiresAt != nil {
		set.ExpiresAt = c.ExpiresAt.Time
	}
	return set
}

func discoverJWKSURL(ctx context.Context, client *http.Client, issuer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(issuer, "/")+discoveryPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var payload struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.JWKSURI == "" {
		return "", errors.New("discovery document missing jwks_uri")
	}
	return payload.JWKSURI, nil
}
