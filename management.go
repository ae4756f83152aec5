package foundry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// ManagementClient talks to Azure Resource Manager for the resources that
// back a project: account connections and projects.
type ManagementClient struct {
	Config         Config
	SubscriptionID string
	http           *httpClient

	Connections *AccountConnectionsAPI
	Projects    *ProjectsAPI
}

// NewManagementClient constructs a ManagementClient for one subscription.
// A nil credential falls back to DefaultAzureCredential.
func NewManagementClient(subscriptionID string, credential azcore.TokenCredential) (*ManagementClient, error) {
	return NewManagementClientWithParams(subscriptionID, ConfigParams{Credential: credential})
}

// NewManagementClientWithParams builds a ManagementClient from structured
// options. Endpoint, APIVersion and Scope default to the public ARM values;
// FOUNDRY_MANAGEMENT_ENDPOINT and FOUNDRY_MANAGEMENT_API_VERSION override them.
// API keys are never sent to ARM.
func NewManagementClientWithParams(subscriptionID string, params ConfigParams) (*ManagementClient, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("subscription id cannot be empty")
	}
	params.Endpoint = firstNonEmpty(params.Endpoint, os.Getenv("FOUNDRY_MANAGEMENT_ENDPOINT"), DefaultManagementEndpoint)
	params.APIVersion = firstNonEmpty(params.APIVersion, os.Getenv("FOUNDRY_MANAGEMENT_API_VERSION"), DefaultManagementAPIVersion)
	params.Scope = firstNonEmpty(params.Scope, DefaultManagementScope)
	params.APIKey = ""
	if params.Credential == nil {
		cred, err := newDefaultCredential()
		if err != nil {
			return nil, errors.Join(ErrMissingCredential, err)
		}
		params.Credential = cred
	}

	cfg, err := LoadConfigWithParams(params)
	if err != nil {
		return nil, err
	}
	cfg.APIKey = ""

	httpClient := newHTTPClient(cfg, newAuth(cfg))
	return &ManagementClient{
		Config:         cfg,
		SubscriptionID: subscriptionID,
		http:           httpClient,
		Connections:    &AccountConnectionsAPI{subscriptionID: subscriptionID, httpClient: httpClient},
		Projects:       &ProjectsAPI{subscriptionID: subscriptionID, cfg: cfg, httpClient: httpClient},
	}, nil
}

// Close releases HTTP resources.
func (m *ManagementClient) Close() {
	if m == nil || m.http == nil {
		return
	}
	m.http.close()
}

const accountPath = "/subscriptions/%s/resourceGroups/%s/providers/Microsoft.CognitiveServices/accounts/%s"

// AccountConnectionsAPI manages connections stored on a Cognitive Services account.
type AccountConnectionsAPI struct {
	subscriptionID string
	httpClient     *httpClient
}

func (a *AccountConnectionsAPI) path(resourceGroup, account, name string) (string, error) {
	values := []pathValue{
		param("subscriptionID", a.subscriptionID),
		param("resourceGroup", resourceGroup),
		param("account", account),
	}
	format := accountPath + "/connections"
	if name != "" {
		values = append(values, param("connectionName", name))
		format += "/%s"
	}
	return expandPath(format, values...)
}

// Create creates or replaces a connection.
func (a *AccountConnectionsAPI) Create(resourceGroup, account, name string, conn ConnectionResource) (ConnectionResource, error) {
	return a.CreateWithContext(context.Background(), resourceGroup, account, name, conn)
}

// CreateWithContext creates or replaces a connection with a caller-supplied context.
func (a *AccountConnectionsAPI) CreateWithContext(ctx context.Context, resourceGroup, account, name string, conn ConnectionResource) (ConnectionResource, error) {
	if name == "" {
		return ConnectionResource{}, fmt.Errorf("connectionName cannot be empty")
	}
	path, err := a.path(resourceGroup, account, name)
	if err != nil {
		return ConnectionResource{}, err
	}
	var resp ConnectionResource
	if err := a.httpClient.putJSONWithContext(ctx, path, conn, nil, &resp); err != nil {
		return ConnectionResource{}, fmt.Errorf("create connection %s: %w", name, err)
	}
	return resp, nil
}

func (a *AccountConnectionsAPI) Retrieve(resourceGroup, account, name string) (ConnectionResource, error) {
	return a.RetrieveWithContext(context.Background(), resourceGroup, account, name)
}

func (a *AccountConnectionsAPI) RetrieveWithContext(ctx context.Context, resourceGroup, account, name string) (ConnectionResource, error) {
	if name == "" {
		return ConnectionResource{}, fmt.Errorf("connectionName cannot be empty")
	}
	path, err := a.path(resourceGroup, account, name)
	if err != nil {
		return ConnectionResource{}, err
	}
	var resp ConnectionResource
	if err := a.httpClient.getWithContext(ctx, path, nil, &resp); err != nil {
		return ConnectionResource{}, fmt.Errorf("retrieve connection %s: %w", name, err)
	}
	return resp, nil
}

// List returns every connection on the account, following nextLink.
func (a *AccountConnectionsAPI) List(resourceGroup, account string) ([]ConnectionResource, error) {
	return a.ListWithContext(context.Background(), resourceGroup, account)
}

func (a *AccountConnectionsAPI) ListWithContext(ctx context.Context, resourceGroup, account string) ([]ConnectionResource, error) {
	path, err := a.path(resourceGroup, account, "")
	if err != nil {
		return nil, err
	}
	var all []ConnectionResource
	for path != "" {
		var page ARMList[ConnectionResource]
		if err := a.httpClient.getWithContext(ctx, path, nil, &page); err != nil {
			return nil, fmt.Errorf("list connections on %s: %w", account, err)
		}
		all = append(all, page.Value...)
		path = a.httpClient.relativeLink(page.NextLink)
	}
	return all, nil
}

func (a *AccountConnectionsAPI) Delete(resourceGroup, account, name string) error {
	return a.DeleteWithContext(context.Background(), resourceGroup, account, name)
}

func (a *AccountConnectionsAPI) DeleteWithContext(ctx context.Context, resourceGroup, account, name string) error {
	if name == "" {
		return fmt.Errorf("connectionName cannot be empty")
	}
	path, err := a.path(resourceGroup, account, name)
	if err != nil {
		return err
	}
	if err := a.httpClient.deleteWithContext(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("delete connection %s: %w", name, err)
	}
	return nil
}

// ProjectsAPI manages projects under a Cognitive Services account.
type ProjectsAPI struct {
	subscriptionID string
	cfg            Config
	httpClient     *httpClient
}

func (p *ProjectsAPI) path(resourceGroup, account, project string) (string, error) {
	return expandPath(accountPath+"/projects/%s",
		param("subscriptionID", p.subscriptionID),
		param("resourceGroup", resourceGroup),
		param("account", account),
		param("projectName", project),
	)
}

// Create creates or replaces a project. The response usually still reports
// a non-terminal provisioningState; use WaitForProvisioning to block on it.
func (p *ProjectsAPI) Create(resourceGroup, account, project string, res ProjectResource) (ProjectResource, error) {
	return p.CreateWithContext(context.Background(), resourceGroup, account, project, res)
}

func (p *ProjectsAPI) CreateWithContext(ctx context.Context, resourceGroup, account, project string, res ProjectResource) (ProjectResource, error) {
	if res.Location == "" {
		return ProjectResource{}, fmt.Errorf("location cannot be empty")
	}
	path, err := p.path(resourceGroup, account, project)
	if err != nil {
		return ProjectResource{}, err
	}
	if res.Identity == nil {
		res.Identity = &ManagedIdentity{Type: "SystemAssigned"}
	}
	var resp ProjectResource
	if err := p.httpClient.putJSONWithContext(ctx, path, res, nil, &resp); err != nil {
		return ProjectResource{}, fmt.Errorf("create project %s: %w", project, err)
	}
	return resp, nil
}

// Update patches display name, description and tags of a project.
func (p *ProjectsAPI) Update(resourceGroup, account, project string, res ProjectResource) (ProjectResource, error) {
	return p.UpdateWithContext(context.Background(), resourceGroup, account, project, res)
}

func (p *ProjectsAPI) UpdateWithContext(ctx context.Context, resourceGroup, account, project string, res ProjectResource) (ProjectResource, error) {
	path, err := p.path(resourceGroup, account, project)
	if err != nil {
		return ProjectResource{}, err
	}
	payload := map[string]any{"properties": res.Properties}
	if len(res.Tags) > 0 {
		payload["tags"] = res.Tags
	}
	var resp ProjectResource
	if err := p.httpClient.patchJSONWithContext(ctx, path, payload, nil, &resp); err != nil {
		return ProjectResource{}, fmt.Errorf("update project %s: %w", project, err)
	}
	return resp, nil
}

func (p *ProjectsAPI) Retrieve(resourceGroup, account, project string) (ProjectResource, error) {
	return p.RetrieveWithContext(context.Background(), resourceGroup, account, project)
}

func (p *ProjectsAPI) RetrieveWithContext(ctx context.Context, resourceGroup, account, project string) (ProjectResource, error) {
	path, err := p.path(resourceGroup, account, project)
	if err != nil {
		return ProjectResource{}, err
	}
	var resp ProjectResource
	if err := p.httpClient.getWithContext(ctx, path, nil, &resp); err != nil {
		return ProjectResource{}, fmt.Errorf("retrieve project %s: %w", project, err)
	}
	return resp, nil
}

func (p *ProjectsAPI) Delete(resourceGroup, account, project string) error {
	return p.DeleteWithContext(context.Background(), resourceGroup, account, project)
}

func (p *ProjectsAPI) DeleteWithContext(ctx context.Context, resourceGroup, account, project string) error {
	path, err := p.path(resourceGroup, account, project)
	if err != nil {
		return err
	}
	if err := p.httpClient.deleteWithContext(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("delete project %s: %w", project, err)
	}
	return nil
}

// WaitForProvisioning polls a project until its provisioningState is
// Succeeded, Failed or Canceled. A Failed or Canceled project is returned
// together with an error.
func (p *ProjectsAPI) WaitForProvisioning(ctx context.Context, resourceGroup, account, project string, interval, timeout time.Duration) (ProjectResource, error) {
	if interval <= 0 {
		interval = p.cfg.PollInterval
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := p.RetrieveWithContext(ctx, resourceGroup, account, project)
		if err != nil {
			return ProjectResource{}, err
		}
		state := res.Properties.ProvisioningState
		if state.IsTerminal() {
			if state != ProvisioningSucceeded {
				return res, fmt.Errorf("project %s provisioning ended in state %s", project, state)
			}
			return res, nil
		}
		p.httpClient.logf("project %s provisioning state %s", project, state)

		select {
		case <-ctx.Done():
			return res, fmt.Errorf("project %s wait cancelled: %w", project, ctx.Err())
		case <-ticker.C:
		}
	}
}

// relativeLink turns an absolute ARM nextLink into a path on this client's
// endpoint. Links to other hosts are ignored.
func (c *httpClient) relativeLink(link string) string {
	if link == "" {
		return ""
	}
	base := strings.TrimSuffix(c.cfg.Endpoint, "/")
	if !strings.HasPrefix(link, base) {
		c.logf("ignoring nextLink outside %s: %s", base, link)
		return ""
	}
	return strings.TrimPrefix(link, base)
}
