// Package mcptools implements a Model Context Protocol server exposing the
// orchestration kernel's collaboration and reporting surface as MCP tools
// over stdio transport, so an external agent can assign tasks, poll
// collaboration state, and trigger report generation without a bespoke
// client for this module's internal types.
package mcptools

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameAssignTask           = "assign_task"
	ToolNameCollaborationStatus  = "collaboration_status"
	ToolNameGenerateReport       = "generate_report"
)

// Sentinel errors for tool input validation.
var (
	ErrEmptyTaskType    = errors.New("task_type parameter is required and must not be empty")
	ErrNoLookupKey      = errors.New("at least one of session_id, worker_id, or task_id is required")
	ErrEmptyReportID    = errors.New("report_id parameter is required and must not be empty")
	ErrEmptyKeywords    = errors.New("keywords parameter is required and must not be empty")
	ErrEmptyBundle      = errors.New("bundle parameter is required and must not be empty")
)

// ToolOutput is a generic wrapper for tool results, mirroring the structured
// output every tool also returns alongside its text content.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
