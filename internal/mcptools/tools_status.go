package mcptools

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/patentlens/kernel/internal/collab"
	"github.com/patentlens/kernel/internal/taskregistry"
)

// CollaborationStatusInput is the input schema for the collaboration_status
// tool. At least one of the three lookup keys must be set; each is resolved
// independently and absent keys are simply omitted from the result.
type CollaborationStatusInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"collaboration session id to look up"`
	WorkerID  string `json:"worker_id,omitempty"  jsonschema:"worker id to look up"`
	TaskID    string `json:"task_id,omitempty"    jsonschema:"task id to look up"`
}

// CollaborationStatusResult bundles whichever lookups the caller requested.
type CollaborationStatusResult struct {
	Session *SessionView `json:"session,omitempty"`
	Worker  *WorkerView  `json:"worker,omitempty"`
	Task    *TaskView    `json:"task,omitempty"`
}

// SessionView is the JSON-safe projection of a collab.Session.
type SessionView struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Participants []string       `json:"participants"`
	SharedData   map[string]any `json:"shared_data"`
	Ended        bool           `json:"ended"`
	Result       map[string]any `json:"result,omitempty"`
}

// WorkerView is the JSON-safe projection of a collab.WorkerInfo.
type WorkerView struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	Capabilities []string `json:"capabilities"`
	Specialties  []string `json:"specialties"`
	Capacity     int      `json:"capacity"`
}

// TaskView is the JSON-safe projection of a taskregistry.Task.
type TaskView struct {
	ID         string `json:"id"`
	WorkerID   string `json:"worker_id"`
	TaskType   string `json:"task_type"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
}

// handleCollaborationStatus processes collaboration_status tool calls.
func (s *Server) handleCollaborationStatus(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input CollaborationStatusInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.SessionID == "" && input.WorkerID == "" && input.TaskID == "" {
		return errorResult(ErrNoLookupKey)
	}

	var out CollaborationStatusResult

	if input.SessionID != "" {
		if sess, ok := s.collab.Session(input.SessionID); ok {
			out.Session = sessionView(sess)
		}
	}

	if input.WorkerID != "" {
		if w, ok := s.collab.Worker(input.WorkerID); ok {
			out.Worker = workerView(w)
		}
	}

	if input.TaskID != "" {
		if t, ok := s.tasks.Get(input.TaskID); ok {
			out.Task = taskView(t)
		}
	}

	return jsonResult(out)
}

func sessionView(s *collab.Session) *SessionView {
	return &SessionView{
		ID:           s.ID,
		Type:         s.Type,
		Participants: s.Participants,
		SharedData:   s.SharedData(),
		Ended:        s.EndedAt != nil,
		Result:       s.Result,
	}
}

func workerView(w collab.WorkerInfo) *WorkerView {
	return &WorkerView{
		ID:           w.ID,
		Type:         w.Type,
		Status:       string(w.Status),
		Capabilities: w.Capabilities,
		Specialties:  w.Specialties,
		Capacity:     w.Capacity,
	}
}

func taskView(t taskregistry.Task) *TaskView {
	return &TaskView{
		ID:         t.ID,
		WorkerID:   t.WorkerID,
		TaskType:   t.TaskType,
		Status:     string(t.Status),
		RetryCount: t.RetryCount,
	}
}
