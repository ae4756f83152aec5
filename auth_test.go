package foundry

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestAuthCachesTokensPerScope(t *testing.T) {
	cred := &fakeCredential{token: "tok"}
	cfg := testConfig("https://example.com", cred)
	auth := newAuth(cfg)

	for i := 0; i < 3; i++ {
		h, err := auth.Headers(context.Background())
		if err != nil {
			t.Fatalf("headers: %v", err)
		}
		if h.Get("Authorization") != "Bearer tok" {
			t.Fatalf("unexpected auth header %q", h.Get("Authorization"))
		}
		if h.Get("User-Agent") == "" {
			t.Fatalf("expected user agent")
		}
	}
	if cred.calls.Load() != 1 {
		t.Fatalf("expected one token request, got %d", cred.calls.Load())
	}
	scopes, _ := cred.scopes.Load().([]string)
	if !slices.Equal(scopes, []string{DefaultAgentsScope}) {
		t.Fatalf("unexpected scopes %v", scopes)
	}
}

func TestAuthSkipsCacheForShortLivedTokens(t *testing.T) {
	cred := &fakeCredential{token: "tok", expiry: time.Minute}
	auth := newAuth(testConfig("https://example.com", cred))

	for i := 0; i < 2; i++ {
		if _, err := auth.Headers(context.Background()); err != nil {
			t.Fatalf("headers: %v", err)
		}
	}
	if cred.calls.Load() != 2 {
		t.Fatalf("expected tokens inside the refresh window to be refetched, got %d calls", cred.calls.Load())
	}
}

func TestAuthAPIKey(t *testing.T) {
	cfg := testConfig("https://example.com", nil)
	cfg.APIKey = "Bearer my-key"
	h, err := newAuth(cfg).Headers(context.Background())
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	if h.Get("api-key") != "my-key" || h.Get("Authorization") != "" {
		t.Fatalf("unexpected headers %v", h)
	}
}

func TestAuthCredentialError(t *testing.T) {
	boom := errors.New("expired login")
	_, err := newAuth(testConfig("https://example.com", &fakeCredential{err: boom})).Headers(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped credential error, got %v", err)
	}

	_, err = newAuth(testConfig("https://example.com", nil)).Headers(context.Background())
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}
