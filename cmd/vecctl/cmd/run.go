package cmd

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"rawvec/infra/metrics"
	"rawvec/service"
)

var showMetrics bool

var runCmd = &cobra.Command{
	Use:   "run FILE...",
	Short: "Replay scenario files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

func init() {
	runCmd.Flags().BoolVar(&showMetrics, "metrics", false, "append allocator metrics in the Prometheus text format")
	rootCmd.AddCommand(runCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	runner := service.NewRunner(service.Config{Allocator: newAllocator(reg), Logger: logger})

	var results []service.Result
	for _, path := range args {
		scenarios, err := service.LoadFile(path)
		if err != nil {
			return err
		}
		rs, err := runner.ReplayAll(cmd.Context(), scenarios)
		results = append(results, rs...)
		if err != nil {
			return errors.Wrapf(err, "replay %s", path)
		}
	}

	out := cmd.OutOrStdout()
	if err := renderResults(out, results); err != nil {
		return err
	}
	if showMetrics {
		fmt.Fprintln(out)
		if err := metrics.WriteText(out, reg); err != nil {
			return err
		}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return errors.Newf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

func renderResults(w io.Writer, results []service.Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Scenario", "Len", "Cap", "Copies", "Moves", "Assigns", "Destroys", "Result")
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		table.Append(
			r.Name,
			fmt.Sprint(r.Len),
			fmt.Sprint(r.Cap),
			fmt.Sprint(r.Stats.Copies),
			fmt.Sprint(r.Stats.Moves),
			fmt.Sprint(r.Stats.Assigns),
			fmt.Sprint(r.Stats.Destroys),
			status,
		)
	}
	return table.Render()
}
