package foundry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// runServer plays a scripted sequence of run statuses. Each GET of the run
// advances the script; cancel and submit_tool_outputs are recorded.
type runServer struct {
	t        *testing.T
	mu       sync.Mutex
	statuses []string
	gets     int
	created  map[string]any
	canceled bool
	outputs  []ToolOutput
}

func (s *runServer) runJSON(status string) string {
	body := fmt.Sprintf(`{"id":"run_1","thread_id":"thread_1","assistant_id":"asst_1","status":%q`, status)
	switch status {
	case "requires_action":
		body += `,"required_action":{"type":"submit_tool_outputs","submit_tool_outputs":{"tool_calls":[{"id":"call_1","type":"function","function":{"name":"lookup","arguments":"{\"q\":\"x\"}"}}]}}`
	case "failed":
		body += `,"last_error":{"code":"server_error","message":"tool timed out"}`
	}
	return body + "}"
}

func (s *runServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_1/runs":
		_ = json.NewDecoder(r.Body).Decode(&s.created)
		_, _ = w.Write([]byte(s.runJSON("queued")))
	case r.Method == http.MethodGet && r.URL.Path == "/threads/thread_1/runs/run_1":
		status := s.statuses[len(s.statuses)-1]
		if s.gets < len(s.statuses) {
			status = s.statuses[s.gets]
		}
		s.gets++
		_, _ = w.Write([]byte(s.runJSON(status)))
	case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_1/runs/run_1/cancel":
		s.canceled = true
		s.statuses = []string{"cancelled"}
		s.gets = 0
		_, _ = w.Write([]byte(s.runJSON("cancelling")))
	case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_1/runs/run_1/submit_tool_outputs":
		var body struct {
			ToolOutputs []ToolOutput `json:"tool_outputs"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.outputs = body.ToolOutputs
		_, _ = w.Write([]byte(s.runJSON("in_progress")))
	default:
		s.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newRunsClient(t *testing.T, statuses ...string) (*Client, *runServer) {
	t.Helper()
	srv := &runServer{t: t, statuses: statuses}
	server := newTestServer(t, srv)
	t.Cleanup(server.Close)
	client, err := NewClientWithConfig(testConfig(server.URL, &fakeCredential{token: "tok"}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(client.Close)
	return client, srv
}

func TestCreateAndProcessPollsUntilCompleted(t *testing.T) {
	client, srv := newRunsClient(t, "in_progress", "in_progress", "completed")

	var seen []RunStatus
	run, err := client.Runs.CreateAndProcess("thread_1", "asst_1", ProcessOptions{
		Run:      CreateRunParams{AdditionalInstructions: "be brief"},
		OnStatus: func(r Run) { seen = append(seen, r.Status) },
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if run.Status != RunCompleted {
		t.Fatalf("expected completed, got %s", run.Status)
	}
	want := []RunStatus{RunQueued, RunInProgress, RunInProgress, RunCompleted}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("expected statuses %v, got %v", want, seen)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.created["assistant_id"] != "asst_1" || srv.created["additional_instructions"] != "be brief" {
		t.Fatalf("unexpected create body %v", srv.created)
	}
}

func TestCreateAndProcessReturnsFailedRun(t *testing.T) {
	client, _ := newRunsClient(t, "failed")

	run, err := client.Runs.CreateAndProcess("thread_1", "asst_1", ProcessOptions{})
	if err != nil {
		t.Fatalf("expected no error without FailOnError, got %v", err)
	}
	if run.Status != RunFailed || run.LastError.String() != "server_error: tool timed out" {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestCreateAndProcessFailOnError(t *testing.T) {
	client, _ := newRunsClient(t, "failed")

	_, err := client.Runs.CreateAndProcess("thread_1", "asst_1", ProcessOptions{FailOnError: true})
	var runErr *RunFailedError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunFailedError, got %v", err)
	}
	if runErr.Status != RunFailed || runErr.ThreadID != "thread_1" || runErr.LastError.Code != "server_error" {
		t.Fatalf("unexpected error %+v", runErr)
	}
}

func TestCreateAndProcessSubmitsToolOutputs(t *testing.T) {
	client, srv := newRunsClient(t, "requires_action", "completed")

	run, err := client.Runs.CreateAndProcess("thread_1", "asst_1", ProcessOptions{
		ToolHandler: func(ctx context.Context, run Run, calls []ToolCall) ([]ToolOutput, error) {
			if len(calls) != 1 || calls[0].Function.Name != "lookup" {
				return nil, fmt.Errorf("unexpected calls %+v", calls)
			}
			return []ToolOutput{{ToolCallID: calls[0].ID, Output: "42"}}, nil
		},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if run.Status != RunCompleted {
		t.Fatalf("expected completed, got %s", run.Status)
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.outputs) != 1 || srv.outputs[0].ToolCallID != "call_1" || srv.outputs[0].Output != "42" {
		t.Fatalf("unexpected outputs %+v", srv.outputs)
	}
	if srv.canceled {
		t.Fatalf("run must not be cancelled")
	}
}

func TestCreateAndProcessCancelsWithoutToolHandler(t *testing.T) {
	client, srv := newRunsClient(t, "requires_action")

	run, err := client.Runs.CreateAndProcess("thread_1", "asst_1", ProcessOptions{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if run.Status != RunCancelled {
		t.Fatalf("expected cancelled, got %s", run.Status)
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if !srv.canceled {
		t.Fatalf("expected cancel request")
	}
}

func TestCreateAndProcessToolHandlerError(t *testing.T) {
	client, srv := newRunsClient(t, "requires_action")
	boom := errors.New("boom")

	_, err := client.Runs.CreateAndProcess("thread_1", "asst_1", ProcessOptions{
		ToolHandler: func(ctx context.Context, run Run, calls []ToolCall) ([]ToolOutput, error) {
			return nil, boom
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if !srv.canceled {
		t.Fatalf("expected run to be cancelled after handler failure")
	}
}

func TestCreateAndProcessTimeout(t *testing.T) {
	client, _ := newRunsClient(t, "in_progress")

	start := time.Now()
	_, err := client.Runs.CreateAndProcess("thread_1", "asst_1", ProcessOptions{Timeout: 50 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not honoured")
	}
}

func TestCreateRunRequiresAgent(t *testing.T) {
	client, _ := newRunsClient(t, "completed")
	if _, err := client.Runs.Create("thread_1", CreateRunParams{}); err == nil || !strings.Contains(err.Error(), "agentID") {
		t.Fatalf("expected agent id error, got %v", err)
	}
	if _, err := client.Runs.Create("", CreateRunParams{AgentID: "asst_1"}); err == nil {
		t.Fatalf("expected thread id error")
	}
}

func TestRunsListAndCancel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "GET /api/projects/demo/threads/thread_1/runs":
			if r.URL.Query().Get("limit") != "1" {
				t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
			}
			_, _ = w.Write([]byte(`{"data":[{"id":"run_1","thread_id":"thread_1","status":"in_progress"}],"has_more":false}`))
		case "POST /api/projects/demo/threads/thread_1/runs/run_1/cancel":
			_, _ = w.Write([]byte(`{"id":"run_1","thread_id":"thread_1","status":"cancelling"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	page, err := client.Runs.List("thread_1", ListParams{Limit: 1})
	if err != nil || len(page.Data) != 1 || page.Data[0].Status != RunInProgress {
		t.Fatalf("list: %+v %v", page, err)
	}
	run, err := client.Runs.Cancel("thread_1", "run_1")
	if err != nil || run.Status != RunCancelling || run.Status.IsTerminal() {
		t.Fatalf("cancel: %+v %v", run, err)
	}
}

func TestCreateAndProcessKeepsThreadWhenResponsesOmitIt(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "POST /api/projects/demo/threads/thread_1/runs":
			_, _ = w.Write([]byte(`{"id":"run_1","status":"queued"}`))
		case "GET /api/projects/demo/threads/thread_1/runs/run_1":
			mu.Lock()
			polls++
			status := "in_progress"
			if polls > 1 {
				status = "completed"
			}
			mu.Unlock()
			_, _ = w.Write([]byte(`{"id":"run_1","status":"` + status + `"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	run, err := client.Runs.CreateAndProcess("thread_1", "asst_1", ProcessOptions{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if run.Status != RunCompleted || run.ThreadID != "thread_1" {
		t.Fatalf("unexpected run %+v", run)
	}
}
