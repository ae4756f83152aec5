package foundry

import "github.com/Azure/azure-sdk-for-go/sdk/azcore"

// Client talks to the agents data plane of a project endpoint.
type Client struct {
	Config Config
	auth   Auth
	http   *httpClient

	Agents   *AgentsAPI
	Threads  *ThreadsAPI
	Messages *MessagesAPI
	Runs     *RunsAPI
	Files    *FilesAPI
}

// NewClient constructs a Client for a project endpoint. A nil credential
// falls back to FOUNDRY_API_KEY or DefaultAzureCredential.
func NewClient(endpoint string, credential azcore.TokenCredential) (*Client, error) {
	cfg, err := LoadConfig(endpoint, credential)
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithParams constructs a Client from structured configuration parameters.
func NewClientWithParams(params ConfigParams) (*Client, error) {
	cfg, err := LoadConfigWithParams(params)
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig builds a Client from a fully parsed Config.
func NewClientWithConfig(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAgentsAPIVersion
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultAgentsScope
	}
	if cfg.Credential == nil && cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}

	auth := newAuth(cfg)
	httpClient := newHTTPClient(cfg, auth)

	return &Client{
		Config:   cfg,
		auth:     auth,
		http:     httpClient,
		Agents:   &AgentsAPI{httpClient: httpClient},
		Threads:  &ThreadsAPI{httpClient: httpClient},
		Messages: &MessagesAPI{httpClient: httpClient},
		Runs:     &RunsAPI{cfg: cfg, httpClient: httpClient},
		Files:    &FilesAPI{httpClient: httpClient},
	}, nil
}

// Close releases HTTP resources.
func (c *Client) Close() {
	if c == nil || c.http == nil {
		return
	}
	c.http.close()
}
