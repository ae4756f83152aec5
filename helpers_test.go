package foundry

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start test server listener: %v", err)
	}
	server := httptest.NewUnstartedServer(handler)
	server.Listener = ln
	server.Start()
	return server
}

// fakeCredential hands out a fixed token and counts how often it was asked.
type fakeCredential struct {
	token  string
	expiry time.Duration
	err    error
	calls  atomic.Int32
	scopes atomic.Value
}

func (f *fakeCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.calls.Add(1)
	f.scopes.Store(opts.Scopes)
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	expiry := f.expiry
	if expiry == 0 {
		expiry = time.Hour
	}
	return azcore.AccessToken{Token: f.token, ExpiresOn: time.Now().Add(expiry)}, nil
}

func testConfig(endpoint string, cred azcore.TokenCredential) Config {
	return Config{
		Endpoint:             endpoint,
		APIVersion:           DefaultAgentsAPIVersion,
		Scope:                DefaultAgentsScope,
		Credential:           cred,
		Timeout:              2 * time.Second,
		MaxRetries:           0,
		RetryInitialInterval: 5 * time.Millisecond,
		RetryMaxInterval:     5 * time.Millisecond,
		RetryMultiplier:      1,
		RequestIDHeader:      defaultRequestIDHeader,
		AutoRequestID:        true,
		PollInterval:         10 * time.Millisecond,
	}
}
