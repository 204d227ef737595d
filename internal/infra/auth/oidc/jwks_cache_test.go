package oidc

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestJWKSCache_KidMissRefreshes(t *testing.T) {
	key := generateKey(t)
	srv := newJWKSServer(buildJWKS(t, jwkEntry{kid: "kid-1", key: &key.PublicKey}))
	cache := newJWKSCache(testJWKSURL, srv.client(), time.Second)

	if _, err := cache.getKey(context.Background(), "kid-1"); err != nil {
		t.Fatalf("get kid-1: %v", err)
	}
	srv.set(buildJWKS(t, jwkEntry{kid: "kid-2", key: &key.PublicKey}))
	if _, err := cache.getKey(context.Background(), "kid-2"); err != nil {
		t.Fatalf("get kid-2: %v", err)
	}
	if got := srv.fetches.Load(); got != 2 {
		t.Fatalf("expected 2 fetches, got %d", got)
	}
}

func TestJWKSCache_ReusesKeysForProcessLifetime(t *testing.T) {
	key := generateKey(t)
	srv := newJWKSServer(buildJWKS(t, jwkEntry{kid: "kid-1", key: &key.PublicKey}))
	cache := newJWKSCache(testJWKSURL, srv.client(), time.Second)

	for i := 0; i < 5; i++ {
		if _, err := cache.getKey(context.Background(), "kid-1"); err != nil {
			t.Fatalf("get kid-1: %v", err)
		}
	}
	if got := srv.fetches.Load(); got != 1 {
		t.Fatalf("expected a single fetch, got %d", got)
	}
}

func TestJWKSCache_UnknownKidFetchesOnce(t *testing.T) {
	key := generateKey(t)
	srv := newJWKSServer(buildJWKS(t, jwkEntry{kid: "kid-1", key: &key.PublicKey}))
	cache := newJWKSCache(testJWKSURL, srv.client(), time.Second)

	if _, err := cache.getKey(context.Background(), "kid-1"); err != nil {
		t.Fatalf("get kid-1: %v", err)
	}
	_, err := cache.getKey(context.Background(), "kid-unknown")
	if !errors.Is(err, errKeyNotFound) {
		t.Fatalf("expected errKeyNotFound, got %v", err)
	}
	if got := srv.fetches.Load(); got != 2 {
		t.Fatalf("expected exactly one re-fetch, got %d fetches", got)
	}
	if _, err := cache.getKey(context.Background(), "kid-1"); err != nil {
		t.Fatalf("known key must survive a miss: %v", err)
	}
}

func TestJWKSCache_RefreshSingleflight(t *testing.T) {
	key := generateKey(t)
	srv := newJWKSServer(buildJWKS(t, jwkEntry{kid: "kid-1", key: &key.PublicKey}))
	cache := newJWKSCache(testJWKSURL, srv.client(), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.getKey(ctx, "kid-1"); err != nil {
				t.Errorf("get key: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := srv.fetches.Load(); got != 1 {
		t.Fatalf("expected single fetch, got %d", got)
	}
}

func TestJWKSCache_KidRotatedDuringInFlightFetch(t *testing.T) {
	key := generateKey(t)
	before := buildJWKS(t, jwkEntry{kid: "kid-1", key: &key.PublicKey})
	after := buildJWKS(t, jwkEntry{kid: "kid-1", key: &key.PublicKey}, jwkEntry{kid: "kid-2", key: &key.PublicKey})

	started := make(chan struct{})
	release := make(chan struct{})
	var fetches atomic.Int32
	client := &http.Client{
		Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			if fetches.Add(1) == 1 {
				close(started)
				<-release
				return jsonResponse(http.StatusOK, before), nil
			}
			return jsonResponse(http.StatusOK, after), nil
		}),
	}
	cache := newJWKSCache(testJWKSURL, client, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first := make(chan error, 1)
	go func() {
		_, err := cache.getKey(ctx, "kid-1")
		first <- err
	}()
	<-started

	// kid-2 is published after the in-flight fetch read the old key set.
	second := make(chan error, 1)
	go func() {
		_, err := cache.getKey(ctx, "kid-2")
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	if err := <-first; err != nil {
		t.Fatalf("get kid-1: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("get kid-2 after rotation: %v", err)
	}
	if got := fetches.Load(); got != 2 {
		t.Fatalf("expected 2 fetches, got %d", got)
	}
}

func TestJWKSCache_FetchFailures(t *testing.T) {
	cases := []struct {
		name string
		resp func() (*http.Response, error)
	}{
		{name: "transport error", resp: func() (*http.Response, error) { return nil, errors.New("fetch failed") }},
		{name: "non-2xx", resp: func() (*http.Response, error) { return jsonResponse(http.StatusBadGateway, `{}`), nil }},
		{name: "not json", resp: func() (*http.Response, error) { return jsonResponse(http.StatusOK, `<html>`), nil }},
		{name: "no rsa keys", resp: func() (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"keys":[{"kty":"oct","kid":"k","k":"c2VjcmV0"}]}`), nil
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &http.Client{
				Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) { return tc.resp() }),
			}
			cache := newJWKSCache(testJWKSURL, client, time.Second)
			if _, err := cache.getKey(context.Background(), "kid-1"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseRSAKeysSkipsEncryptionKeys(t *testing.T) {
	key := generateKey(t)
	body := buildJWKS(t, jwkEntry{kid: "kid-1", key: &key.PublicKey})
	keys, err := parseRSAKeys([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, ok := keys["kid-1"]
	if !ok {
		t.Fatal("expected kid-1")
	}
	if got.N.Cmp(key.PublicKey.N) != 0 || got.E != key.PublicKey.E {
		t.Fatal("parsed key does not match")
	}

	enc := `{"keys":[{"kty":"RSA","kid":"enc-1","use":"enc","n":"` +
		keysN(key) + `","e":"AQAB"}]}`
	if _, err := parseRSAKeys([]byte(enc)); err == nil {
		t.Fatal("expected encryption-only set to be rejected")
	}
}
