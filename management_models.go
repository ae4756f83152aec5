package foundry

import "fmt"

// ConnectionAuthType is the authType of an account connection.
type ConnectionAuthType string

const (
	ConnectionAuthAPIKey  ConnectionAuthType = "ApiKey"
	ConnectionAuthAAD     ConnectionAuthType = "AAD"
	ConnectionAuthNone    ConnectionAuthType = "None"
	ConnectionAuthCustom  ConnectionAuthType = "CustomKeys"
	ConnectionAuthManaged ConnectionAuthType = "ManagedIdentity"
)

// ConnectionCategory is the kind of service a connection reaches.
type ConnectionCategory string

const (
	CategoryCognitiveSearch   ConnectionCategory = "CognitiveSearch"
	CategoryAzureOpenAI       ConnectionCategory = "AzureOpenAI"
	CategoryCognitiveService  ConnectionCategory = "CognitiveService"
	CategoryCustomKeys        ConnectionCategory = "CustomKeys"
	CategoryAzureBlob         ConnectionCategory = "AzureBlob"
	CategoryAppInsights       ConnectionCategory = "AppInsights"
	CategoryBingGrounding     ConnectionCategory = "GroundingWithBingSearch"
	CategoryApiKeyConnections ConnectionCategory = "ApiKey"
)

// ConnectionCredentials holds the secret part of a connection. Only Key is
// used by ApiKey connections.
type ConnectionCredentials struct {
	Key      string            `json:"key,omitempty"`
	Keys     map[string]string `json:"keys,omitempty"`
	ClientID string            `json:"clientId,omitempty"`
}

// ConnectionProperties is the properties block of an account connection.
type ConnectionProperties struct {
	AuthType           ConnectionAuthType     `json:"authType"`
	Category           ConnectionCategory     `json:"category"`
	IsSharedToAll      bool                   `json:"isSharedToAll"`
	Target             string                 `json:"target"`
	Credentials        *ConnectionCredentials `json:"credentials,omitempty"`
	Metadata           map[string]string      `json:"metadata,omitempty"`
	ExpiryTime         string                 `json:"expiryTime,omitempty"`
	CreatedByWorkspace string                 `json:"createdByWorkspaceArmId,omitempty"`
}

// ConnectionResource is the ARM envelope of an account connection.
type ConnectionResource struct {
	ID         string               `json:"id,omitempty"`
	Name       string               `json:"name,omitempty"`
	Type       string               `json:"type,omitempty"`
	Properties ConnectionProperties `json:"properties"`
}

// SearchConnectionParams are the inputs of the CognitiveSearch connection payload.
type SearchConnectionParams struct {
	SubscriptionID    string
	ResourceGroup     string
	SearchServiceName string
	APIKey            string
	Location          string
	// IsSharedToAll defaults to true when nil.
	IsSharedToAll *bool
}

// NewSearchConnection builds the payload that connects an account to an
// Azure AI Search service with an admin key.
func NewSearchConnection(p SearchConnectionParams) (ConnectionResource, error) {
	switch {
	case p.SubscriptionID == "":
		return ConnectionResource{}, fmt.Errorf("subscription id cannot be empty")
	case p.ResourceGroup == "":
		return ConnectionResource{}, fmt.Errorf("resource group cannot be empty")
	case p.SearchServiceName == "":
		return ConnectionResource{}, fmt.Errorf("search service name cannot be empty")
	case p.APIKey == "":
		return ConnectionResource{}, fmt.Errorf("search api key cannot be empty")
	case p.Location == "":
		return ConnectionResource{}, fmt.Errorf("location cannot be empty")
	}
	shared := true
	if p.IsSharedToAll != nil {
		shared = *p.IsSharedToAll
	}
	metadata := map[string]string{
		"ApiType":    "Azure",
		"resourceId": SearchServiceResourceID(p.SubscriptionID, p.ResourceGroup, p.SearchServiceName),
		"location":   p.Location,
	}
	return ConnectionResource{
		Properties: ConnectionProperties{
			AuthType:      ConnectionAuthAPIKey,
			Category:      CategoryCognitiveSearch,
			IsSharedToAll: shared,
			Target:        fmt.Sprintf("https://%s.search.windows.net/", p.SearchServiceName),
			Credentials:   &ConnectionCredentials{Key: p.APIKey},
			Metadata:      metadata,
		},
	}, nil
}

// SearchServiceResourceID is the ARM id of a search service.
func SearchServiceResourceID(subscriptionID, resourceGroup, serviceName string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Search/searchServices/%s", subscriptionID, resourceGroup, serviceName)
}

// ProvisioningState of an ARM resource.
type ProvisioningState string

const (
	ProvisioningSucceeded ProvisioningState = "Succeeded"
	ProvisioningFailed    ProvisioningState = "Failed"
	ProvisioningCanceled  ProvisioningState = "Canceled"
	ProvisioningCreating  ProvisioningState = "Creating"
	ProvisioningUpdating  ProvisioningState = "Updating"
	ProvisioningDeleting  ProvisioningState = "Deleting"
	ProvisioningAccepted  ProvisioningState = "Accepted"
)

func (s ProvisioningState) IsTerminal() bool {
	return s == ProvisioningSucceeded || s == ProvisioningFailed || s == ProvisioningCanceled
}

// ManagedIdentity is the identity block of a project.
type ManagedIdentity struct {
	Type        string `json:"type"`
	PrincipalID string `json:"principalId,omitempty"`
	TenantID    string `json:"tenantId,omitempty"`
}

// ProjectProperties is the properties block of a project.
type ProjectProperties struct {
	DisplayName       string            `json:"displayName,omitempty"`
	Description       string            `json:"description,omitempty"`
	ProvisioningState ProvisioningState `json:"provisioningState,omitempty"`
	IsDefault         bool              `json:"isDefault,omitempty"`
	Endpoints         map[string]string `json:"endpoints,omitempty"`
}

// ProjectResource is the ARM envelope of a project under an account.
type ProjectResource struct {
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name,omitempty"`
	Type       string            `json:"type,omitempty"`
	Location   string            `json:"location"`
	Identity   *ManagedIdentity  `json:"identity,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
	Properties ProjectProperties `json:"properties"`
}

// ARMList is the value/nextLink envelope of ARM list operations.
type ARMList[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"nextLink,omitempty"`
}
