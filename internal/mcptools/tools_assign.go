package mcptools

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// AssignTaskInput is the input schema for the assign_task tool.
type AssignTaskInput struct {
	TaskType        string         `json:"task_type"                   jsonschema:"task type, e.g. search_patents or generate_report"`
	TaskData        map[string]any `json:"task_data,omitempty"         jsonschema:"opaque payload handed to the assigned worker"`
	PreferredWorker string         `json:"preferred_worker,omitempty"  jsonschema:"worker id to prefer, falls back to load-balancer selection if offline or unset"`
	Priority        int            `json:"priority,omitempty"          jsonschema:"task priority, higher runs first (default 0)"`
}

// AssignTaskResult is the structured output for a successful assignment.
type AssignTaskResult struct {
	TaskID string `json:"task_id"`
}

// handleAssignTask processes assign_task tool calls.
func (s *Server) handleAssignTask(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input AssignTaskInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.TaskType == "" {
		return errorResult(ErrEmptyTaskType)
	}

	taskID, err := s.collab.AssignTask(input.TaskType, input.TaskData, input.PreferredWorker, input.Priority)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(AssignTaskResult{TaskID: taskID})
}
