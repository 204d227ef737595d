package oidc

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"
)

const (
	defaultJWKSFetchTimeout = 5 * time.Second
	maxJWKSBodyBytes        = 1 << 20
)

var errKeyNotFound = errors.New("jwks key not found")

// jwksCache holds the provider's signing keys for the life of the process. A kid that is
// not in the cache triggers a fetch of the key set; concurrent fetches share one request.
type jwksCache struct {
	httpClient   *http.Client
	fetchTimeout time.Duration
	// discover resolves the JWKS URL when none was configured.
	discover func(ctx context.Context) (string, error)

	mu   sync.RWMutex
	url  string
	keys map[string]*rsa.PublicKey

	group   singleflight.Group
	fetches atomic.Int64
}

func newJWKSCache(url string, httpClient *http.Client, fetchTimeout time.Duration) *jwksCache {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultJWKSFetchTimeout}
	}
	if fetchTimeout <= 0 {
		fetchTimeout = defaultJWKSFetchTimeout
	}
	return &jwksCache{
		url:          url,
		httpClient:   httpClient,
		fetchTimeout: fetchTimeout,
		keys:         map[string]*rsa.PublicKey{},
	}
}

// getKey returns the key for kid, refreshing the set on a miss. A miss may join a
// refresh that was already in flight; when that refresh started before the miss and the
// kid is still absent, the key set may have rotated after it was read, so one fetch of
// its own follows.
func (c *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, errors.New("kid is required")
	}
	seen := c.fetches.Load()
	if key := c.lookup(kid); key != nil {
		return key, nil
	}
	seq, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if key := c.lookup(kid); key != nil {
		return key, nil
	}
	if seq <= seen {
		if _, err := c.refresh(ctx); err != nil {
			return nil, err
		}
		if key := c.lookup(kid); key != nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: kid %q", errKeyNotFound, kid)
}

func (c *jwksCache) lookup(kid string) *rsa.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[kid]
}

// refresh reports the sequence number of the fetch that served it.
func (c *jwksCache) refresh(ctx context.Context) (int64, error) {
	ch := c.group.DoChan("jwks", func() (any, error) {
		// The shared fetch must not die with whichever caller happened to start it.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.doRefresh(fetchCtx)
	})
	select {
	case res := <-ch:
		seq, _ := res.Val.(int64)
		return seq, res.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *jwksCache) doRefresh(ctx context.Context) (int64, error) {
	seq := c.fetches.Add(1)
	url, err := c.keySetURL(ctx)
	if err != nil {
		return seq, err
	}
	keys, err := c.fetchOnce(ctx, url)
	if err != nil {
		return seq, err
	}
	c.mu.Lock()
	c.keys = keys
	c.mu.Unlock()
	return seq, nil
}

// keySetURL returns the configured JWKS URL or resolves it through discovery. A failed
// discovery is retried by the next refresh.
func (c *jwksCache) keySetURL(ctx context.Context) (string, error) {
	c.mu.RLock()
	url := c.url
	c.mu.RUnlock()
	if url != "" || c.discover == nil {
		return url, nil
	}
	url, err := c.discover(ctx)
	if err != nil {
		return "", fmt.Errorf("oidc discovery: %w", err)
	}
	c.mu.Lock()
	c.url = url
	c.mu.Unlock()
	return url, nil
}

func (c *jwksCache) fetchOnce(ctx context.Context, url string) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read jwks: %w", err)
	}
	return parseRSAKeys(body)
}

func parseRSAKeys(body []byte) (map[string]*rsa.PublicKey, error) {
	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if key.KeyType() != jwa.RSA || key.KeyID() == "" {
			continue
		}
		if use := key.KeyUsage(); use != "" && use != string(jwk.ForSignature) {
			continue
		}
		var raw any
		if err := key.Raw(&raw); err != nil {
			continue
		}
		pub, ok := raw.(*rsa.PublicKey)
		if !ok {
			continue
		}
		keys[key.KeyID()] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks contains no usable keys")
	}
	return keys, nil
}
