package foundry

import (
	"context"
	"fmt"
	"time"
)

// RunsAPI creates and tracks runs on threads.
type RunsAPI struct {
	cfg        Config
	httpClient *httpClient
}

func (r *RunsAPI) Create(threadID string, params CreateRunParams) (Run, error) {
	return r.CreateWithContext(context.Background(), threadID, params)
}

func (r *RunsAPI) CreateWithContext(ctx context.Context, threadID string, params CreateRunParams) (Run, error) {
	path, err := expandPath("/threads/%s/runs", param("threadID", threadID))
	if err != nil {
		return Run{}, err
	}
	if params.AgentID == "" {
		return Run{}, fmt.Errorf("agentID cannot be empty")
	}
	var resp Run
	if err := r.httpClient.postJSONWithContext(ctx, path, params, nil, &resp); err != nil {
		return Run{}, fmt.Errorf("create run on thread %s: %w", threadID, err)
	}
	return resp, nil
}

func (r *RunsAPI) Retrieve(threadID, runID string) (Run, error) {
	return r.RetrieveWithContext(context.Background(), threadID, runID)
}

func (r *RunsAPI) RetrieveWithContext(ctx context.Context, threadID, runID string) (Run, error) {
	path, err := expandPath("/threads/%s/runs/%s", param("threadID", threadID), param("runID", runID))
	if err != nil {
		return Run{}, err
	}
	var resp Run
	if err := r.httpClient.getWithContext(ctx, path, nil, &resp); err != nil {
		return Run{}, fmt.Errorf("retrieve run %s: %w", runID, err)
	}
	return resp, nil
}

func (r *RunsAPI) List(threadID string, params ListParams) (ListResponse[Run], error) {
	return r.ListWithContext(context.Background(), threadID, params)
}

func (r *RunsAPI) ListWithContext(ctx context.Context, threadID string, params ListParams) (ListResponse[Run], error) {
	path, err := expandPath("/threads/%s/runs", param("threadID", threadID))
	if err != nil {
		return ListResponse[Run]{}, err
	}
	var resp ListResponse[Run]
	if err := r.httpClient.getWithContext(ctx, path, params.query(), &resp); err != nil {
		return ListResponse[Run]{}, fmt.Errorf("list runs on thread %s: %w", threadID, err)
	}
	return resp, nil
}

func (r *RunsAPI) Cancel(threadID, runID string) (Run, error) {
	return r.CancelWithContext(context.Background(), threadID, runID)
}

func (r *RunsAPI) CancelWithContext(ctx context.Context, threadID, runID string) (Run, error) {
	path, err := expandPath("/threads/%s/runs/%s/cancel", param("threadID", threadID), param("runID", runID))
	if err != nil {
		return Run{}, err
	}
	var resp Run
	if err := r.httpClient.postJSONWithContext(ctx, path, nil, nil, &resp); err != nil {
		return Run{}, fmt.Errorf("cancel run %s: %w", runID, err)
	}
	return resp, nil
}

func (r *RunsAPI) SubmitToolOutputs(threadID, runID string, outputs []ToolOutput) (Run, error) {
	return r.SubmitToolOutputsWithContext(context.Background(), threadID, runID, outputs)
}

func (r *RunsAPI) SubmitToolOutputsWithContext(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error) {
	path, err := expandPath("/threads/%s/runs/%s/submit_tool_outputs", param("threadID", threadID), param("runID", runID))
	if err != nil {
		return Run{}, err
	}
	payload := map[string]any{"tool_outputs": outputs}
	var resp Run
	if err := r.httpClient.postJSONWithContext(ctx, path, payload, nil, &resp); err != nil {
		return Run{}, fmt.Errorf("submit tool outputs for run %s: %w", runID, err)
	}
	return resp, nil
}

// ToolHandler answers the tool calls of a run waiting in requires_action.
type ToolHandler func(ctx context.Context, run Run, calls []ToolCall) ([]ToolOutput, error)

// ProcessOptions tune CreateAndProcess.
type ProcessOptions struct {
	// Run overrides the create body; AgentID is always taken from the call.
	Run CreateRunParams

	// PollInterval defaults to Config.PollInterval.
	PollInterval time.Duration

	// Timeout bounds the whole wait; zero waits until ctx is done.
	Timeout time.Duration

	// ToolHandler answers submit_tool_outputs actions. Without one, such
	// runs are cancelled.
	ToolHandler ToolHandler

	// FailOnError turns non-completed terminal states into *RunFailedError.
	FailOnError bool

	// OnStatus observes every polled status.
	OnStatus func(Run)
}

// CreateAndProcess creates a run and polls it until it reaches a terminal status.
func (r *RunsAPI) CreateAndProcess(threadID, agentID string, opts ProcessOptions) (Run, error) {
	return r.CreateAndProcessWithContext(context.Background(), threadID, agentID, opts)
}

// CreateAndProcessWithContext creates a run and polls it with a caller-supplied context.
func (r *RunsAPI) CreateAndProcessWithContext(ctx context.Context, threadID, agentID string, opts ProcessOptions) (Run, error) {
	params := opts.Run
	params.AgentID = agentID
	run, err := r.CreateWithContext(ctx, threadID, params)
	if err != nil {
		return Run{}, err
	}
	return r.WaitWithContext(ctx, withThread(run, threadID), opts)
}

// WaitWithContext polls an existing run until it reaches a terminal status.
func (r *RunsAPI) WaitWithContext(ctx context.Context, run Run, opts ProcessOptions) (Run, error) {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = r.cfg.PollInterval
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	threadID := run.ThreadID
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if opts.OnStatus != nil {
			opts.OnStatus(run)
		}
		if run.Status.IsTerminal() {
			return r.finish(run, opts)
		}

		select {
		case <-ctx.Done():
			return run, fmt.Errorf("run %s wait cancelled: %w", run.ID, ctx.Err())
		case <-ticker.C:
		}

		current, err := r.RetrieveWithContext(ctx, threadID, run.ID)
		if err != nil {
			return run, err
		}
		run = withThread(current, threadID)

		if run.Status == RunRequiresAction {
			next, err := r.handleRequiredAction(ctx, run, opts)
			if err != nil {
				return run, err
			}
			run = withThread(next, threadID)
		}
	}
}

// withThread fills in a thread id the service left out of a run response.
func withThread(run Run, threadID string) Run {
	if run.ThreadID == "" {
		run.ThreadID = threadID
	}
	return run
}

func (r *RunsAPI) handleRequiredAction(ctx context.Context, run Run, opts ProcessOptions) (Run, error) {
	action := run.RequiredAction
	if action == nil || action.SubmitToolOutputs == nil {
		return run, nil
	}
	if opts.ToolHandler == nil {
		r.httpClient.logf("run %s requires tool outputs but no handler is set; cancelling", run.ID)
		return r.CancelWithContext(ctx, run.ThreadID, run.ID)
	}

	outputs, err := opts.ToolHandler(ctx, run, action.SubmitToolOutputs.ToolCalls)
	if err != nil {
		if _, cancelErr := r.CancelWithContext(ctx, run.ThreadID, run.ID); cancelErr != nil {
			r.httpClient.logf("cancel run %s after tool failure: %v", run.ID, cancelErr)
		}
		return run, fmt.Errorf("tool handler for run %s: %w", run.ID, err)
	}
	return r.SubmitToolOutputsWithContext(ctx, run.ThreadID, run.ID, outputs)
}

func (r *RunsAPI) finish(run Run, opts ProcessOptions) (Run, error) {
	if opts.FailOnError && run.Status != RunCompleted {
		return run, &RunFailedError{RunID: run.ID, ThreadID: run.ThreadID, Status: run.Status, LastError: run.LastError}
	}
	return run, nil
}
