package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/patentlens/kernel/internal/bus"
	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/collab"
	"github.com/patentlens/kernel/internal/loadbalancer"
	"github.com/patentlens/kernel/internal/mcptools"
	"github.com/patentlens/kernel/internal/observability"
	"github.com/patentlens/kernel/internal/report"
	"github.com/patentlens/kernel/internal/report/chartrender"
	"github.com/patentlens/kernel/internal/taskregistry"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		debug     bool
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server exposing assign_task/collaboration_status/generate_report",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the orchestration kernel's collaboration and
reporting surface as tools an AI agent can discover and invoke:
  - assign_task: assign a task to a worker via the load balancer
  - collaboration_status: look up session/worker/task state
  - generate_report: run the report pipeline over an analysis bundle`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			providers, err := initMCPObservability(debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			c := clock.RealClock{}
			tasks := taskregistry.New(c)
			manager := collab.New(c, bus.New(c), loadbalancer.New(), tasks)
			pipeline := report.New(c, outputDir, report.Collaborators{
				ChartRenderer: chartrender.New(),
			})

			deps := mcptools.ServerDeps{
				Collab:  manager,
				Tasks:   tasks,
				Reports: pipeline,
				Logger:  providers.Logger,
				Metrics: red,
				Tracer:  providers.Tracer,
			}

			srv := mcptools.NewServer(deps)

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")
	cmd.Flags().StringVar(&outputDir, "output-dir", "./data/reports", "directory reports are written under")

	return cmd
}

func initMCPObservability(debug bool) (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeMCP
	cfg.LogJSON = true

	if debug {
		cfg.LogLevel = slog.LevelDebug
		cfg.DebugTrace = true
	}

	return observability.Init(cfg)
}
