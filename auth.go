package foundry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/patrickmn/go-cache"
)

const userAgent = "foundry-go/0.1.0"

// tokens are refreshed this long before they expire.
const tokenRefreshSkew = 5 * time.Minute

// Auth handles header generation.
type Auth struct {
	cfg    Config
	tokens *cache.Cache
}

func newAuth(cfg Config) Auth {
	return Auth{cfg: cfg, tokens: cache.New(cache.NoExpiration, 10*time.Minute)}
}

// Headers returns default headers including auth. API keys take precedence
// over token credentials.
func (a Auth) Headers(ctx context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("User-Agent", userAgent)

	if a.cfg.APIKey != "" {
		// Strip "Bearer " prefix if user accidentally included it
		key := a.cfg.APIKey
		if strings.HasPrefix(strings.ToLower(key), "bearer ") {
			key = strings.TrimSpace(key[7:])
		}
		h.Set("api-key", key)
		return h, nil
	}

	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

func (a Auth) token(ctx context.Context) (string, error) {
	if a.cfg.Credential == nil {
		return "", ErrMissingCredential
	}
	if a.tokens != nil {
		if cached, ok := a.tokens.Get(a.cfg.Scope); ok {
			return cached.(string), nil
		}
	}

	tok, err := a.cfg.Credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{a.cfg.Scope}})
	if err != nil {
		return "", fmt.Errorf("acquire token for %s: %w", a.cfg.Scope, err)
	}
	a.remember(tok)
	return tok.Token, nil
}

func (a Auth) remember(tok azcore.AccessToken) {
	if a.tokens == nil {
		return
	}
	ttl := time.Until(tok.ExpiresOn) - tokenRefreshSkew
	if ttl <= 0 {
		return
	}
	a.tokens.Set(a.cfg.Scope, tok.Token, ttl)
}
