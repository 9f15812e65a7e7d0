package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/patentlens/kernel/internal/collab"
	"github.com/patentlens/kernel/internal/observability"
	"github.com/patentlens/kernel/internal/report"
	"github.com/patentlens/kernel/internal/taskregistry"
)

const (
	serverName    = "patentkernel"
	serverVersion = "1.0.0"

	toolCount = 3
)

// ServerDeps holds injectable dependencies for the MCP server. Collab,
// Tasks, and Reports are required; Logger, Metrics, and Tracer are optional
// and fall back to no-ops.
type ServerDeps struct {
	Collab  *collab.Manager
	Tasks   *taskregistry.Registry
	Reports *report.Pipeline

	Logger  *slog.Logger
	Metrics *observability.REDMetrics
	Tracer  trace.Tracer
}

// Server wraps the MCP SDK server with the kernel's tool registrations.
type Server struct {
	inner *mcpsdk.Server

	collab  *collab.Manager
	tasks   *taskregistry.Registry
	reports *report.Pipeline

	mu      sync.RWMutex
	tools   []string
	metrics *observability.REDMetrics
	tracer  trace.Tracer
}

// NewServer creates a new MCP server with all kernel tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		opts,
	)

	srv := &Server{
		inner:   inner,
		collab:  deps.Collab,
		tasks:   deps.Tasks,
		reports: deps.Reports,
		tools:   make([]string, 0, toolCount),
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameAssignTask,
		Description: assignTaskDescription,
	}, withMetrics(s.metrics, ToolNameAssignTask, withTracing(s.tracer, ToolNameAssignTask, s.handleAssignTask)))
	s.trackTool(ToolNameAssignTask)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameCollaborationStatus,
		Description: collaborationStatusDescription,
	}, withMetrics(s.metrics, ToolNameCollaborationStatus, withTracing(s.tracer, ToolNameCollaborationStatus, s.handleCollaborationStatus)))
	s.trackTool(ToolNameCollaborationStatus)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameGenerateReport,
		Description: generateReportDescription,
	}, withMetrics(s.metrics, ToolNameGenerateReport, withTracing(s.tracer, ToolNameGenerateReport, s.handleGenerateReport)))
	s.trackTool(ToolNameGenerateReport)
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

const (
	assignTaskDescription = "Assign a task to a worker, via a preferred worker id or the " +
		"load balancer's selection policy. Returns the assigned task id."

	collaborationStatusDescription = "Look up the current state of a collaboration session, a " +
		"worker, and/or a task by id. Any combination of the three lookup keys may be supplied."

	generateReportDescription = "Run the report pipeline over an already-computed analysis bundle: " +
		"compose content, render charts, and export to the requested formats."
)

const mcpSpanPrefix = "mcp."

const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to record RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.REDMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		done := metrics.TrackInflight(ctx, "mcp."+toolName)
		defer done()

		result, output, err := handler(ctx, req, input)

		status := "ok"
		if err != nil || (result != nil && result.IsError) {
			status = "error"
		}

		metrics.RecordRequest(ctx, "mcp."+toolName, status, time.Since(start))

		return result, output, err
	}
}
