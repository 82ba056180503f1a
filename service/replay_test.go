package service

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"rawvec/infra/memory"
)

func TestReplayTestdata(t *testing.T) {
	scenarios, err := LoadFile("testdata/scenarios.yaml")
	require.NoError(t, err)
	require.Len(t, scenarios, 3)

	r := NewRunner(Config{})
	results, err := r.ReplayAll(context.Background(), scenarios)
	require.NoError(t, err)

	for _, res := range results {
		require.NoError(t, res.Err, res.Name)
		require.Zero(t, res.Stats.Live, res.Name)
	}

	// nothrow-reserve: two copies in, two moves on reallocation.
	require.Equal(t, int64(2), results[1].Stats.Copies)
	require.Equal(t, int64(2), results[1].Stats.Moves)
}

func TestReplayReportsMismatch(t *testing.T) {
	scenarios, err := Load(strings.NewReader(`
name: wrong
steps:
  - {op: push, value: 1}
expect:
  values: [2]
`))
	require.NoError(t, err)

	res := NewRunner(Config{}).Replay(context.Background(), scenarios[0])
	require.True(t, errors.Is(res.Err, ErrExpectation))
	require.Equal(t, []int64{1}, res.Values)
}

func TestReplayExpectedErrorMissing(t *testing.T) {
	s := Scenario{
		Name:  "no failure",
		Steps: []Step{{Op: OpPush, Value: 1, Error: "injected"}},
	}
	res := NewRunner(Config{}).Replay(context.Background(), s)
	require.True(t, errors.Is(res.Err, ErrExpectation))
}

func TestReplayOutOfMemory(t *testing.T) {
	s := Scenario{
		Name: "budget",
		Steps: []Step{
			{Op: OpPush, Value: 1},
			{Op: OpReserve, N: 1 << 20, Error: "out_of_memory"},
		},
	}
	res := NewRunner(Config{Allocator: memory.NewLimited(1 << 10)}).Replay(context.Background(), s)
	require.NoError(t, res.Err)
	require.Equal(t, 1, res.Cap)
}

func TestReplayInvalidStep(t *testing.T) {
	s := Scenario{Name: "oob", Steps: []Step{{Op: OpErase, Index: 0}}}
	res := NewRunner(Config{}).Replay(context.Background(), s)
	require.True(t, errors.Is(res.Err, ErrInvalidStep))
}

func TestReplayAllHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := NewRunner(Config{}).ReplayAll(ctx, []Scenario{{Name: "x"}})
	require.True(t, errors.Is(err, context.Canceled))
	require.Empty(t, results)
}

func TestLoadRejectsUnknownOps(t *testing.T) {
	_, err := Load(strings.NewReader("name: bad\nsteps:\n  - {op: shuffle}\n"))
	require.Error(t, err)

	_, err = Load(strings.NewReader("name: bad\nsteps:\n  - {op: push, error: nope}\n"))
	require.Error(t, err)

	_, err = Load(strings.NewReader("name: bad\nbogus: 1\n"))
	require.Error(t, err)
}
