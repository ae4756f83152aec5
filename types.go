package foundry

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCancelled      RunStatus = "cancelled"
	RunFailed         RunStatus = "failed"
	RunCompleted      RunStatus = "completed"
	RunExpired        RunStatus = "expired"
	RunIncomplete     RunStatus = "incomplete"
)

func (s RunStatus) String() string {
	return string(s)
}

func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired, RunIncomplete:
		return true
	default:
		return false
	}
}

// MessageRole identifies the author of a thread message.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleAgent MessageRole = "assistant"
)

// ListSortOrder controls the created_at ordering of list endpoints.
type ListSortOrder string

const (
	SortAscending  ListSortOrder = "asc"
	SortDescending ListSortOrder = "desc"
)

// ListParams are the cursor parameters shared by list endpoints.
type ListParams struct {
	Limit  int
	Order  ListSortOrder
	After  string
	Before string
}

func (p ListParams) query() map[string]string {
	q := map[string]string{}
	if p.Limit > 0 {
		q["limit"] = itoa(p.Limit)
	}
	if p.Order != "" {
		q["order"] = string(p.Order)
	}
	if p.After != "" {
		q["after"] = p.After
	}
	if p.Before != "" {
		q["before"] = p.Before
	}
	return q
}

// ListResponse wraps cursor-paginated results.
type ListResponse[T any] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	FirstID string `json:"first_id"`
	LastID  string `json:"last_id"`
	HasMore bool   `json:"has_more"`
}

// DeletionStatus is returned by delete endpoints of the data plane.
type DeletionStatus struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}
