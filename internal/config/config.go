package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultSigningAlg = "RS256"

var supportedSigningAlgs = map[string]bool{
	"RS256": true,
	"RS384": true,
	"RS512": true,
	"PS256": true,
	"PS384": true,
	"PS512": true,
}

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	DBReset     bool
	LogLevel    string

	Auth0Domain         string
	OIDCIssuerURL       string
	OIDCAudience        string
	OIDCJWKSURL         string
	OIDCSigningAlg      string
	OIDCClockSkewSecs   int
	OIDCJWKSTimeoutSecs int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	cfg := Config{
		HTTPAddr:               addr,
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		DBReset:                envBoolDefault("DB_RESET", false),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		Auth0Domain:            strings.TrimSpace(os.Getenv("AUTH0_DOMAIN")),
		OIDCIssuerURL:          strings.TrimSpace(os.Getenv("OIDC_ISSUER_URL")),
		OIDCAudience:           strings.TrimSpace(os.Getenv("OIDC_AUDIENCE")),
		OIDCJWKSURL:            strings.TrimSpace(os.Getenv("OIDC_JWKS_URL")),
		OIDCSigningAlg:         envDefault("OIDC_SIGNING_ALG", DefaultSigningAlg),
		OIDCClockSkewSecs:      envIntDefault("OIDC_CLOCK_SKEW_SECONDS", 0),
		OIDCJWKSTimeoutSecs:    envIntDefault("OIDC_JWKS_TIMEOUT_SECONDS", 5),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
	}
	cfg.applyAuth0Domain()
	return cfg
}

// applyAuth0Domain fills issuer and JWKS URL from AUTH0_DOMAIN when they are not set
// explicitly. Auth0 issuers carry a trailing slash.
func (c *Config) applyAuth0Domain() {
	domain := strings.TrimSuffix(strings.TrimPrefix(c.Auth0Domain, "https://"), "/")
	if domain == "" {
		return
	}
	if c.OIDCIssuerURL == "" {
		c.OIDCIssuerURL = "https://" + domain + "/"
	}
	if c.OIDCJWKSURL == "" {
		c.OIDCJWKSURL = "https://" + domain + "/.well-known/jwks.json"
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.OIDCIssuerURL == "" {
		errs = append(errs, errors.New("OIDC_ISSUER_URL or AUTH0_DOMAIN is required"))
	}
	if c.OIDCAudience == "" {
		errs = append(errs, errors.New("OIDC_AUDIENCE is required"))
	}
	if !supportedSigningAlgs[c.SigningAlg()] {
		errs = append(errs, fmt.Errorf("unsupported OIDC_SIGNING_ALG %q", c.OIDCSigningAlg))
	}
	return errors.Join(errs...)
}

func (c Config) SigningAlg() string {
	alg := strings.ToUpper(strings.TrimSpace(c.OIDCSigningAlg))
	if alg == "" {
		return DefaultSigningAlg
	}
	return alg
}

func (c Config) ClockSkew() time.Duration {
	return time.Duration(c.OIDCClockSkewSecs) * time.Second
}

func (c Config) JWKSTimeout() time.Duration {
	if c.OIDCJWKSTimeoutSecs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.OIDCJWKSTimeoutSecs) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
