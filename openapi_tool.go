package foundry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIToolParams describes an OpenAPI document exposed to an agent as a tool.
type OpenAPIToolParams struct {
	Name          string
	Description   string
	Spec          []byte
	Auth          OpenAPIAuthDetails
	DefaultParams []string

	// Strict fails construction when the document does not validate.
	// Otherwise validation problems are kept in ValidationError and the
	// service gets the document as written.
	Strict bool
}

// OpenAPITool is a validated OpenAPI tool ready to be attached to an agent.
type OpenAPITool struct {
	definition OpenAPIFunctionDefinition
	doc        *openapi3.T
	invalid    error
}

// NewOpenAPITool keeps the document's JSON object for the wire. The spec must
// be a JSON object; anything beyond that is checked only when Strict is set.
func NewOpenAPITool(params OpenAPIToolParams) (*OpenAPITool, error) {
	return NewOpenAPIToolWithContext(context.Background(), params)
}

// NewOpenAPIToolWithContext is NewOpenAPITool with a caller-supplied context for validation.
func NewOpenAPIToolWithContext(ctx context.Context, params OpenAPIToolParams) (*OpenAPITool, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("openapi tool name cannot be empty")
	}
	if len(params.Spec) == 0 {
		return nil, fmt.Errorf("openapi tool %s: spec cannot be empty", params.Name)
	}
	if params.Auth.Type == "" {
		params.Auth = OpenAPIAnonymousAuth()
	}
	if params.Auth.Type == OpenAPIAuthConnection && (params.Auth.SecurityScheme == nil || params.Auth.SecurityScheme.ConnectionID == "") {
		return nil, fmt.Errorf("openapi tool %s: connection auth requires a connection id", params.Name)
	}

	var raw map[string]any
	if err := json.Unmarshal(params.Spec, &raw); err != nil {
		return nil, fmt.Errorf("openapi tool %s: spec must be a JSON object: %w", params.Name, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("openapi tool %s: spec must be a JSON object", params.Name)
	}

	doc, invalid := loadOpenAPIDoc(ctx, params.Spec)
	if invalid != nil {
		invalid = fmt.Errorf("openapi tool %s: %w", params.Name, invalid)
		if params.Strict {
			return nil, invalid
		}
	}

	return &OpenAPITool{
		definition: OpenAPIFunctionDefinition{
			Name:          params.Name,
			Description:   params.Description,
			Spec:          raw,
			Auth:          params.Auth,
			DefaultParams: params.DefaultParams,
		},
		doc:     doc,
		invalid: invalid,
	}, nil
}

// loadOpenAPIDoc parses and validates the document. The parsed document is
// returned even when validation fails so operations can still be listed.
func loadOpenAPIDoc(ctx context.Context, spec []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return doc, fmt.Errorf("invalid spec: %w", err)
	}
	return doc, nil
}

// ValidationError reports why the document did not parse or validate as
// OpenAPI 3.0, or nil when it did.
func (t *OpenAPITool) ValidationError() error {
	return t.invalid
}

// Definitions returns the tool list entries for CreateAgentParams.Tools.
func (t *OpenAPITool) Definitions() []ToolDefinition {
	def := t.definition
	return []ToolDefinition{{Type: ToolTypeOpenAPI, OpenAPI: &def}}
}

// Title is the document's info.title.
func (t *OpenAPITool) Title() string {
	if t.doc == nil || t.doc.Info == nil {
		return ""
	}
	return t.doc.Info.Title
}

// Operations lists the operationIds the agent will be able to call, sorted.
func (t *OpenAPITool) Operations() []string {
	if t.doc == nil || t.doc.Paths == nil {
		return nil
	}
	var ids []string
	for _, item := range t.doc.Paths.Map() {
		for _, op := range item.Operations() {
			if op != nil && op.OperationID != "" {
				ids = append(ids, op.OperationID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}
