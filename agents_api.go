package foundry

import (
	"context"
	"fmt"
)

// AgentsAPI manages agent definitions.
type AgentsAPI struct {
	httpClient *httpClient
}

// Create creates a new agent.
func (a *AgentsAPI) Create(params CreateAgentParams) (Agent, error) {
	return a.CreateWithContext(context.Background(), params)
}

// CreateWithContext creates a new agent with a caller-supplied context.
func (a *AgentsAPI) CreateWithContext(ctx context.Context, params CreateAgentParams) (Agent, error) {
	if params.Model == "" {
		return Agent{}, fmt.Errorf("model cannot be empty")
	}
	var resp Agent
	if err := a.httpClient.postJSONWithContext(ctx, "/assistants", params, nil, &resp); err != nil {
		return Agent{}, fmt.Errorf("create agent %s: %w", params.Name, err)
	}
	return resp, nil
}

// Retrieve fetches an agent.
func (a *AgentsAPI) Retrieve(agentID string) (Agent, error) {
	return a.RetrieveWithContext(context.Background(), agentID)
}

// RetrieveWithContext fetches an agent with a caller-supplied context.
func (a *AgentsAPI) RetrieveWithContext(ctx context.Context, agentID string) (Agent, error) {
	path, err := expandPath("/assistants/%s", param("agentID", agentID))
	if err != nil {
		return Agent{}, err
	}
	var resp Agent
	if err := a.httpClient.getWithContext(ctx, path, nil, &resp); err != nil {
		return Agent{}, fmt.Errorf("retrieve agent %s: %w", agentID, err)
	}
	return resp, nil
}

// List returns one page of agents.
func (a *AgentsAPI) List(params ListParams) (ListResponse[Agent], error) {
	return a.ListWithContext(context.Background(), params)
}

// ListWithContext returns one page of agents with a caller-supplied context.
func (a *AgentsAPI) ListWithContext(ctx context.Context, params ListParams) (ListResponse[Agent], error) {
	var resp ListResponse[Agent]
	if err := a.httpClient.getWithContext(ctx, "/assistants", params.query(), &resp); err != nil {
		return ListResponse[Agent]{}, fmt.Errorf("list agents: %w", err)
	}
	return resp, nil
}

// Update modifies an agent.
func (a *AgentsAPI) Update(agentID string, params UpdateAgentParams) (Agent, error) {
	return a.UpdateWithContext(context.Background(), agentID, params)
}

// UpdateWithContext modifies an agent with a caller-supplied context.
func (a *AgentsAPI) UpdateWithContext(ctx context.Context, agentID string, params UpdateAgentParams) (Agent, error) {
	path, err := expandPath("/assistants/%s", param("agentID", agentID))
	if err != nil {
		return Agent{}, err
	}
	var resp Agent
	if err := a.httpClient.postJSONWithContext(ctx, path, params, nil, &resp); err != nil {
		return Agent{}, fmt.Errorf("update agent %s: %w", agentID, err)
	}
	return resp, nil
}

// Delete removes an agent.
func (a *AgentsAPI) Delete(agentID string) (DeletionStatus, error) {
	return a.DeleteWithContext(context.Background(), agentID)
}

// DeleteWithContext removes an agent with a caller-supplied context.
func (a *AgentsAPI) DeleteWithContext(ctx context.Context, agentID string) (DeletionStatus, error) {
	path, err := expandPath("/assistants/%s", param("agentID", agentID))
	if err != nil {
		return DeletionStatus{}, err
	}
	var resp DeletionStatus
	if err := a.httpClient.deleteWithContext(ctx, path, nil, &resp); err != nil {
		return DeletionStatus{}, fmt.Errorf("delete agent %s: %w", agentID, err)
	}
	return resp, nil
}

// ThreadsAPI manages conversation threads.
type ThreadsAPI struct {
	httpClient *httpClient
}

func (t *ThreadsAPI) Create(params CreateThreadParams) (Thread, error) {
	return t.CreateWithContext(context.Background(), params)
}

func (t *ThreadsAPI) CreateWithContext(ctx context.Context, params CreateThreadParams) (Thread, error) {
	var resp Thread
	if err := t.httpClient.postJSONWithContext(ctx, "/threads", params, nil, &resp); err != nil {
		return Thread{}, fmt.Errorf("create thread: %w", err)
	}
	return resp, nil
}

func (t *ThreadsAPI) Retrieve(threadID string) (Thread, error) {
	return t.RetrieveWithContext(context.Background(), threadID)
}

func (t *ThreadsAPI) RetrieveWithContext(ctx context.Context, threadID string) (Thread, error) {
	path, err := expandPath("/threads/%s", param("threadID", threadID))
	if err != nil {
		return Thread{}, err
	}
	var resp Thread
	if err := t.httpClient.getWithContext(ctx, path, nil, &resp); err != nil {
		return Thread{}, fmt.Errorf("retrieve thread %s: %w", threadID, err)
	}
	return resp, nil
}

func (t *ThreadsAPI) Delete(threadID string) (DeletionStatus, error) {
	return t.DeleteWithContext(context.Background(), threadID)
}

func (t *ThreadsAPI) DeleteWithContext(ctx context.Context, threadID string) (DeletionStatus, error) {
	path, err := expandPath("/threads/%s", param("threadID", threadID))
	if err != nil {
		return DeletionStatus{}, err
	}
	var resp DeletionStatus
	if err := t.httpClient.deleteWithContext(ctx, path, nil, &resp); err != nil {
		return DeletionStatus{}, fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return resp, nil
}

// MessagesAPI manages the messages of a thread.
type MessagesAPI struct {
	httpClient *httpClient
}

func (m *MessagesAPI) Create(threadID string, params CreateMessageParams) (ThreadMessage, error) {
	return m.CreateWithContext(context.Background(), threadID, params)
}

func (m *MessagesAPI) CreateWithContext(ctx context.Context, threadID string, params CreateMessageParams) (ThreadMessage, error) {
	path, err := expandPath("/threads/%s/messages", param("threadID", threadID))
	if err != nil {
		return ThreadMessage{}, err
	}
	if params.Role == "" {
		params.Role = RoleUser
	}
	var resp ThreadMessage
	if err := m.httpClient.postJSONWithContext(ctx, path, params, nil, &resp); err != nil {
		return ThreadMessage{}, fmt.Errorf("create message on thread %s: %w", threadID, err)
	}
	return resp, nil
}

func (m *MessagesAPI) Retrieve(threadID, messageID string) (ThreadMessage, error) {
	return m.RetrieveWithContext(context.Background(), threadID, messageID)
}

func (m *MessagesAPI) RetrieveWithContext(ctx context.Context, threadID, messageID string) (ThreadMessage, error) {
	path, err := expandPath("/threads/%s/messages/%s", param("threadID", threadID), param("messageID", messageID))
	if err != nil {
		return ThreadMessage{}, err
	}
	var resp ThreadMessage
	if err := m.httpClient.getWithContext(ctx, path, nil, &resp); err != nil {
		return ThreadMessage{}, err
	}
	return resp, nil
}

// List returns one page of messages.
func (m *MessagesAPI) List(threadID string, params ListMessagesParams) (ListResponse[ThreadMessage], error) {
	return m.ListWithContext(context.Background(), threadID, params)
}

func (m *MessagesAPI) ListWithContext(ctx context.Context, threadID string, params ListMessagesParams) (ListResponse[ThreadMessage], error) {
	path, err := expandPath("/threads/%s/messages", param("threadID", threadID))
	if err != nil {
		return ListResponse[ThreadMessage]{}, err
	}
	query := params.query()
	if params.RunID != "" {
		query["run_id"] = params.RunID
	}
	var resp ListResponse[ThreadMessage]
	if err := m.httpClient.getWithContext(ctx, path, query, &resp); err != nil {
		return ListResponse[ThreadMessage]{}, fmt.Errorf("list messages on thread %s: %w", threadID, err)
	}
	return resp, nil
}

// ListAll follows the has_more cursor until every message has been read.
func (m *MessagesAPI) ListAll(threadID string, params ListMessagesParams) ([]ThreadMessage, error) {
	return m.ListAllWithContext(context.Background(), threadID, params)
}

func (m *MessagesAPI) ListAllWithContext(ctx context.Context, threadID string, params ListMessagesParams) ([]ThreadMessage, error) {
	var all []ThreadMessage
	for {
		page, err := m.ListWithContext(ctx, threadID, params)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)
		if !page.HasMore || page.LastID == "" || page.LastID == params.After {
			return all, nil
		}
		params.After = page.LastID
	}
}

// FilesAPI uploads files that agents can reference.
type FilesAPI struct {
	httpClient *httpClient
}

// FilePurposeAgents marks files for use by agents.
const FilePurposeAgents = "assistants"

func (f *FilesAPI) Upload(file FileUpload, purpose string) (FileInfo, error) {
	return f.UploadWithContext(context.Background(), file, purpose)
}

func (f *FilesAPI) UploadWithContext(ctx context.Context, file FileUpload, purpose string) (FileInfo, error) {
	if purpose == "" {
		purpose = FilePurposeAgents
	}
	var resp FileInfo
	if err := f.httpClient.postMultipartWithContext(ctx, "/files", "file", file, map[string]string{"purpose": purpose}, &resp); err != nil {
		return FileInfo{}, fmt.Errorf("upload file %s: %w", file.filename(), err)
	}
	return resp, nil
}

func (f *FilesAPI) Retrieve(fileID string) (FileInfo, error) {
	return f.RetrieveWithContext(context.Background(), fileID)
}

func (f *FilesAPI) RetrieveWithContext(ctx context.Context, fileID string) (FileInfo, error) {
	path, err := expandPath("/files/%s", param("fileID", fileID))
	if err != nil {
		return FileInfo{}, err
	}
	var resp FileInfo
	if err := f.httpClient.getWithContext(ctx, path, nil, &resp); err != nil {
		return FileInfo{}, err
	}
	return resp, nil
}

func (f *FilesAPI) Delete(fileID string) (DeletionStatus, error) {
	return f.DeleteWithContext(context.Background(), fileID)
}

func (f *FilesAPI) DeleteWithContext(ctx context.Context, fileID string) (DeletionStatus, error) {
	path, err := expandPath("/files/%s", param("fileID", fileID))
	if err != nil {
		return DeletionStatus{}, err
	}
	var resp DeletionStatus
	if err := f.httpClient.deleteWithContext(ctx, path, nil, &resp); err != nil {
		return DeletionStatus{}, fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return resp, nil
}
