package mcptools_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/patentlens/kernel/internal/bus"
	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/collab"
	"github.com/patentlens/kernel/internal/loadbalancer"
	"github.com/patentlens/kernel/internal/mcptools"
	"github.com/patentlens/kernel/internal/report"
	"github.com/patentlens/kernel/internal/taskregistry"
)

func newTestServer(t *testing.T) *mcptools.Server {
	t.Helper()

	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tasks := taskregistry.New(c)
	manager := collab.New(c, bus.New(c), loadbalancer.New(), tasks)
	pipeline := report.New(c, t.TempDir(), report.Collaborators{})

	return mcptools.NewServer(mcptools.ServerDeps{
		Collab:  manager,
		Tasks:   tasks,
		Reports: pipeline,
	})
}

func TestNewServerReturnsNonNil(t *testing.T) {
	t.Parallel()

	require.NotNil(t, newTestServer(t))
}

func TestNewServerToolsRegistered(t *testing.T) {
	t.Parallel()

	tools := newTestServer(t).ListToolNames()
	assert.Len(t, tools, 3)
	assert.Contains(t, tools, "assign_task")
	assert.Contains(t, tools, "collaboration_status")
	assert.Contains(t, tools, "generate_report")
}

func TestServerRunCancelledContext(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Run(ctx)
	require.Error(t, err)
}

func TestMCPServerInMemoryTransportCallAssignTask(t *testing.T) {
	t.Parallel()

	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tasks := taskregistry.New(c)
	manager := collab.New(c, bus.New(c), loadbalancer.New(), tasks)
	manager.RegisterWorker("worker-1", "search", []string{"search_patents"}, nil, 5)

	srv := mcptools.NewServer(mcptools.ServerDeps{
		Collab:  manager,
		Tasks:   tasks,
		Reports: report.New(c, t.TempDir(), report.Collaborators{}),
	})

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverDone := make(chan error, 1)
	go func() { serverDone <- srv.RunWithTransport(ctx, serverTransport) }()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: "assign_task",
		Arguments: map[string]any{
			"task_type":        "search_patents",
			"preferred_worker": "worker-1",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.NotEmpty(t, result.Content)

	cancel()
	<-serverDone
}

func TestMCPServerInMemoryTransportCallAssignTaskError(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverDone := make(chan error, 1)
	go func() { serverDone <- srv.RunWithTransport(ctx, serverTransport) }()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "assign_task",
		Arguments: map[string]any{"task_type": ""},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)

	cancel()
	<-serverDone
}
