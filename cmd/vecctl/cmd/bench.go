package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-kit/log/level"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rawvec/domain/element"
	"rawvec/domain/vector"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure push_back growth for plain and probe elements",
	Args:  cobra.NoArgs,
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().Int("count", 1<<20, "number of elements to push")
	_ = viper.BindPFlag("bench.count", benchCmd.Flags().Lookup("count"))
	rootCmd.AddCommand(benchCmd)
}

type benchResult struct {
	name        string
	count       int
	capacity    int
	allocations uint64
	bytes       uint64
	elapsed     time.Duration
	stats       element.Stats
}

func runBench(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	count := viper.GetInt("bench.count")
	if count <= 0 {
		return errors.Newf("count must be positive, got %d", count)
	}

	before, err := mem.VirtualMemory()
	if err != nil {
		return errors.Wrap(err, "read system memory")
	}

	var results []benchResult
	plain, err := benchPush("int64", count, func(_ *element.Counters, i int64) int64 { return i })
	if err != nil {
		return err
	}
	results = append(results, plain)

	probe, err := benchPush("probe", count, (*element.Counters).Probe)
	if err != nil {
		return err
	}
	results = append(results, probe)

	nothrow, err := benchPush("nothrow-probe", count, (*element.Counters).NothrowProbe)
	if err != nil {
		return err
	}
	results = append(results, nothrow)

	after, err := mem.VirtualMemory()
	if err != nil {
		return errors.Wrap(err, "read system memory")
	}
	level.Debug(logger).Log("msg", "bench finished", "count", count,
		"available_before", before.Available, "available_after", after.Available)

	out := cmd.OutOrStdout()
	if err := renderBench(out, results); err != nil {
		return err
	}
	fmt.Fprintf(out, "system memory: %d MiB total, %d MiB available\n", after.Total>>20, after.Available>>20)
	return nil
}

func benchPush[T any](name string, count int, mk func(*element.Counters, int64) T) (benchResult, error) {
	res := benchResult{name: name, count: count}
	alloc := newAllocator(prometheus.NewRegistry())
	c := element.NewCounters()
	v := vector.New[T](vector.WithAllocator(alloc))

	start := time.Now()
	for i := 0; i < count; i++ {
		if _, err := v.PushBack(mk(c, int64(i))); err != nil {
			v.Destroy()
			return res, errors.Wrapf(err, "%s: push %d", name, i)
		}
	}
	res.elapsed = time.Since(start)
	res.capacity = v.Cap()
	res.allocations = alloc.Allocations()
	res.bytes = alloc.AllocatedBytes()

	v.Destroy()
	res.stats = c.Snapshot()
	return res, nil
}

func renderBench(w io.Writer, results []benchResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("Case", "Elements", "Cap", "Reallocations", "Bytes", "Duration", "ns/elem", "Copies", "Moves")
	for _, r := range results {
		table.Append(
			r.name,
			fmt.Sprint(r.count),
			fmt.Sprint(r.capacity),
			fmt.Sprint(r.allocations),
			fmt.Sprint(r.bytes),
			r.elapsed.Round(time.Microsecond).String(),
			fmt.Sprintf("%.1f", float64(r.elapsed.Nanoseconds())/float64(r.count)),
			fmt.Sprint(r.stats.Copies),
			fmt.Sprint(r.stats.Moves),
		)
	}
	return table.Render()
}
