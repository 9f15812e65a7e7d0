package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/patentlens/kernel/internal/observability"
)

// NewMetricsCommand runs one synthetic request through the RED metrics
// instruments and prints what landed in the in-process Prometheus registry.
// No CLI command starts the diagnostics server's HTTP /metrics endpoint;
// this command reads the registry directly, proving the OTel-to-Prometheus
// bridge wired in [observability.Init] is actually exercised.
func NewMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Run a synthetic request and print the in-process metrics snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printMetricsSnapshot(cmd)
		},
	}
}

func printMetricsSnapshot(cmd *cobra.Command) error {
	providers, err := observability.Init(observability.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() { _ = providers.Shutdown(cmd.Context()) }()

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return err
	}

	km, err := observability.NewKernelMetrics(providers.Meter)
	if err != nil {
		return err
	}

	done := red.TrackInflight(cmd.Context(), "cli.metrics")
	red.RecordRequest(cmd.Context(), "cli.metrics", "ok", 5*time.Millisecond)
	done()

	km.RecordBusPublish(cmd.Context(), 1)
	km.RecordSearchQuery(cmd.Context(), "demo", true)
	km.RecordQualityCheck(cmd.Context(), true)
	km.RecordReportGenerated(cmd.Context(), []string{"html"})

	families, err := providers.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Type", "Samples"})

	for _, family := range families {
		t.AppendRow(table.Row{family.GetName(), family.GetType().String(), len(family.GetMetric())})
	}

	t.Render()

	return nil
}
