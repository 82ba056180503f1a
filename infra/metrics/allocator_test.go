package metrics

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"rawvec/domain/vector"
	"rawvec/infra/memory"
)

func TestAllocatorCountsVectorGrowth(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewAllocator(memory.NewLimited(1<<10), reg)

	v := vector.New[int64](vector.WithAllocator(a))
	for i := range int64(5) {
		_, err := v.PushBack(i)
		require.NoError(t, err)
	}

	// Capacities 1, 2, 4 and 8.
	require.Equal(t, 4.0, testutil.ToFloat64(a.allocations))
	require.Equal(t, float64(8+16+32+64), testutil.ToFloat64(a.allocated))
	require.Equal(t, 64.0, testutil.ToFloat64(a.inUse))
	require.Equal(t, uint64(4), a.Allocations())
	require.Equal(t, uint64(120), a.AllocatedBytes())

	v.Destroy()
	require.Zero(t, testutil.ToFloat64(a.inUse))
	require.Equal(t, testutil.ToFloat64(a.allocated), testutil.ToFloat64(a.released))
}

func TestAllocatorCountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewAllocator(memory.NewLimited(8), reg)

	v := vector.New[int64](vector.WithAllocator(a))
	err := v.Reserve(2)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory))
	require.Equal(t, 1.0, testutil.ToFloat64(a.failures))
	require.Zero(t, testutil.ToFloat64(a.allocations))
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewAllocator(nil, reg)
	require.NoError(t, a.Allocate(16))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	require.Contains(t, buf.String(), "rawvec_allocations_total 1")
	require.Contains(t, buf.String(), "rawvec_bytes_in_use 16")
}
