package foundry

import (
	"encoding/json"
	"strconv"
)

// ToolType names a tool kind understood by the agents service.
type ToolType string

const (
	ToolTypeFunction        ToolType = "function"
	ToolTypeOpenAPI         ToolType = "openapi"
	ToolTypeCodeInterpreter ToolType = "code_interpreter"
	ToolTypeFileSearch      ToolType = "file_search"
)

// ToolDefinition is one entry of an agent's tools list.
type ToolDefinition struct {
	Type     ToolType                   `json:"type"`
	OpenAPI  *OpenAPIFunctionDefinition `json:"openapi,omitempty"`
	Function *FunctionDefinition        `json:"function,omitempty"`
}

// FunctionDefinition describes a client-side function tool.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// OpenAPIFunctionDefinition binds an OpenAPI document to an agent.
type OpenAPIFunctionDefinition struct {
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	Spec          map[string]any     `json:"spec"`
	Auth          OpenAPIAuthDetails `json:"auth"`
	DefaultParams []string           `json:"default_params,omitempty"`
}

// OpenAPIAuthType selects how the service authenticates to the described API.
type OpenAPIAuthType string

const (
	OpenAPIAuthAnonymous       OpenAPIAuthType = "anonymous"
	OpenAPIAuthConnection      OpenAPIAuthType = "connection"
	OpenAPIAuthManagedIdentity OpenAPIAuthType = "managed_identity"
)

// OpenAPIAuthDetails is the auth block of an OpenAPI tool.
type OpenAPIAuthDetails struct {
	Type           OpenAPIAuthType        `json:"type"`
	SecurityScheme *OpenAPISecurityScheme `json:"security_scheme,omitempty"`
}

// OpenAPISecurityScheme carries either a project connection or a managed identity audience.
type OpenAPISecurityScheme struct {
	ConnectionID string `json:"connection_id,omitempty"`
	Audience     string `json:"audience,omitempty"`
}

// OpenAPIAnonymousAuth calls the API without credentials.
func OpenAPIAnonymousAuth() OpenAPIAuthDetails {
	return OpenAPIAuthDetails{Type: OpenAPIAuthAnonymous}
}

// OpenAPIConnectionAuth authenticates with the secret stored in a project connection.
func OpenAPIConnectionAuth(connectionID string) OpenAPIAuthDetails {
	return OpenAPIAuthDetails{
		Type:           OpenAPIAuthConnection,
		SecurityScheme: &OpenAPISecurityScheme{ConnectionID: connectionID},
	}
}

// OpenAPIManagedIdentityAuth authenticates with the project's managed identity.
func OpenAPIManagedIdentityAuth(audience string) OpenAPIAuthDetails {
	return OpenAPIAuthDetails{
		Type:           OpenAPIAuthManagedIdentity,
		SecurityScheme: &OpenAPISecurityScheme{Audience: audience},
	}
}

// Agent is a provider-managed conversational entity.
type Agent struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	CreatedAt      int64             `json:"created_at"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Model          string            `json:"model"`
	Instructions   string            `json:"instructions"`
	Tools          []ToolDefinition  `json:"tools"`
	ToolResources  map[string]any    `json:"tool_resources,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	TopP           *float64          `json:"top_p,omitempty"`
	ResponseFormat json.RawMessage   `json:"response_format,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// CreateAgentParams is the body of an agent create call.
type CreateAgentParams struct {
	Model          string            `json:"model"`
	Name           string            `json:"name,omitempty"`
	Description    string            `json:"description,omitempty"`
	Instructions   string            `json:"instructions,omitempty"`
	Tools          []ToolDefinition  `json:"tools,omitempty"`
	ToolResources  map[string]any    `json:"tool_resources,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	TopP           *float64          `json:"top_p,omitempty"`
	ResponseFormat json.RawMessage   `json:"response_format,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// UpdateAgentParams only sends the fields that are set.
type UpdateAgentParams struct {
	Model        string            `json:"model,omitempty"`
	Name         string            `json:"name,omitempty"`
	Description  string            `json:"description,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Tools        []ToolDefinition  `json:"tools,omitempty"`
	Temperature  *float64          `json:"temperature,omitempty"`
	TopP         *float64          `json:"top_p,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Thread is a remote conversation context.
type Thread struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	CreatedAt     int64             `json:"created_at"`
	ToolResources map[string]any    `json:"tool_resources,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CreateThreadParams optionally seeds a thread with messages.
type CreateThreadParams struct {
	Messages []CreateMessageParams `json:"messages,omitempty"`
	Metadata map[string]string     `json:"metadata,omitempty"`
}

// CreateMessageParams is the body of a message create call.
type CreateMessageParams struct {
	Role     MessageRole       `json:"role"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MessageText is the text payload of a text content block.
type MessageText struct {
	Value       string           `json:"value"`
	Annotations []map[string]any `json:"annotations,omitempty"`
}

// MessageContent is one content block of a message.
type MessageContent struct {
	Type      string         `json:"type"`
	Text      *MessageText   `json:"text,omitempty"`
	ImageFile map[string]any `json:"image_file,omitempty"`
}

// ThreadMessage is a message stored on a thread.
type ThreadMessage struct {
	ID          string            `json:"id"`
	Object      string            `json:"object"`
	CreatedAt   int64             `json:"created_at"`
	ThreadID    string            `json:"thread_id"`
	Status      string            `json:"status,omitempty"`
	Role        MessageRole       `json:"role"`
	Content     []MessageContent  `json:"content"`
	AssistantID *string           `json:"assistant_id"`
	RunID       *string           `json:"run_id"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// TextMessages returns the text content blocks in order.
func (m ThreadMessage) TextMessages() []MessageText {
	var texts []MessageText
	for _, c := range m.Content {
		if c.Type == "text" && c.Text != nil {
			texts = append(texts, *c.Text)
		}
	}
	return texts
}

// LastText returns the value of the final text block, if any.
func (m ThreadMessage) LastText() (string, bool) {
	texts := m.TextMessages()
	if len(texts) == 0 {
		return "", false
	}
	return texts[len(texts)-1].Value, true
}

// ListMessagesParams filters message listings.
type ListMessagesParams struct {
	ListParams
	RunID string
}

// RunError is the last_error of a failed run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RunError) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// ToolCall is a function call requested by a run in requires_action.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// RequiredAction describes what a run needs before it can continue.
type RequiredAction struct {
	Type              string `json:"type"`
	SubmitToolOutputs *struct {
		ToolCalls []ToolCall `json:"tool_calls"`
	} `json:"submit_tool_outputs,omitempty"`
}

// RunUsage reports token consumption.
type RunUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Run is one execution of an agent over a thread.
type Run struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	ThreadID       string            `json:"thread_id"`
	AssistantID    string            `json:"assistant_id"`
	Status         RunStatus         `json:"status"`
	RequiredAction *RequiredAction   `json:"required_action,omitempty"`
	LastError      *RunError         `json:"last_error"`
	Model          string            `json:"model"`
	Instructions   string            `json:"instructions"`
	Tools          []ToolDefinition  `json:"tools,omitempty"`
	CreatedAt      int64             `json:"created_at"`
	StartedAt      *int64            `json:"started_at"`
	CompletedAt    *int64            `json:"completed_at"`
	CancelledAt    *int64            `json:"cancelled_at"`
	FailedAt       *int64            `json:"failed_at"`
	ExpiresAt      *int64            `json:"expires_at"`
	Usage          *RunUsage         `json:"usage"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// CreateRunParams is the body of a run create call. AgentID is sent as assistant_id.
type CreateRunParams struct {
	AgentID                string            `json:"assistant_id"`
	Model                  string            `json:"model,omitempty"`
	Instructions           string            `json:"instructions,omitempty"`
	AdditionalInstructions string            `json:"additional_instructions,omitempty"`
	Tools                  []ToolDefinition  `json:"tools,omitempty"`
	Temperature            *float64          `json:"temperature,omitempty"`
	Metadata               map[string]string `json:"metadata,omitempty"`
}

// ToolOutput answers one ToolCall.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// FileInfo describes an uploaded file.
type FileInfo struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
	Status    string `json:"status,omitempty"`
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
