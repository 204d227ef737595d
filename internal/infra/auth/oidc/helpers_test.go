package oidc

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://issuer.test/"
	testAudience = "cafe"
	testJWKSURL  = "https://issuer.test/.well-known/jwks.json"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

type jwkEntry struct {
	kid string
	key *rsa.PublicKey
}

func buildJWKS(t *testing.T, entries ...jwkEntry) string {
	t.Helper()
	keys := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, map[string]any{
			"kty": "RSA",
			"kid": entry.kid,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(entry.key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(entry.key.E)).Bytes()),
		})
	}
	out, err := json.Marshal(map[string]any{"keys": keys})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return string(out)
}

// jwksServer answers JWKS requests with whatever body currently holds and counts fetches.
type jwksServer struct {
	body    atomic.Value
	fetches atomic.Int32
}

func newJWKSServer(body string) *jwksServer {
	s := &jwksServer{}
	s.body.Store(body)
	return s
}

func (s *jwksServer) set(body string) {
	s.body.Store(body)
}

func (s *jwksServer) client() *http.Client {
	return &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.String() != testJWKSURL {
				return jsonResponse(http.StatusNotFound, `{}`), nil
			}
			s.fetches.Add(1)
			return jsonResponse(http.StatusOK, s.body.Load().(string)), nil
		}),
	}
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func keysN(key *rsa.PrivateKey) string {
	return base64.RawURLEncoding.EncodeToString(key.N.Bytes())
}
