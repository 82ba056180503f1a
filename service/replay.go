package service

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"rawvec/domain/element"
	"rawvec/domain/vector"
	"rawvec/infra/memory"
)

var (
	// ErrExpectation is wrapped by every mismatch between a scenario's
	// expectations and the replayed state.
	ErrExpectation = errors.New("scenario expectation not met")
	// ErrInvalidStep is returned for a step whose position is out of range
	// for the vector it is applied to.
	ErrInvalidStep = errors.New("invalid scenario step")
)

// Config configures a Runner.
type Config struct {
	Allocator memory.Allocator
	Logger    log.Logger
}

// Runner replays scenarios. Every scenario gets a fresh vector and fresh
// counters; only the allocator is shared.
type Runner struct {
	alloc  memory.Allocator
	logger log.Logger
}

// NewRunner creates a Runner from cfg, filling in defaults.
func NewRunner(cfg Config) *Runner {
	if cfg.Allocator == nil {
		cfg.Allocator = memory.Default
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}
	return &Runner{alloc: cfg.Allocator, logger: cfg.Logger}
}

// Result is the outcome of one replay.
type Result struct {
	Name   string
	Values []int64
	Len    int
	Cap    int
	// Stats are taken after the vector was destroyed, so Live is the number
	// of leaked probes.
	Stats element.Stats
	Err   error
}

// ReplayAll replays scenarios in order. It stops early only when ctx is done.
func (r *Runner) ReplayAll(ctx context.Context, scenarios []Scenario) ([]Result, error) {
	results := make([]Result, 0, len(scenarios))
	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, r.Replay(ctx, s))
	}
	return results, nil
}

// Replay runs s against a new vector of probes.
func (r *Runner) Replay(ctx context.Context, s Scenario) Result {
	var res Result
	if s.NothrowMove {
		res = replay(ctx, r, s, nothrowProbes)
	} else {
		res = replay(ctx, r, s, fallibleProbes)
	}

	logger := log.With(r.logger, "scenario", s.Name)
	if res.Err != nil {
		level.Warn(logger).Log("msg", "scenario failed", "err", res.Err)
	} else {
		level.Info(logger).Log("msg", "scenario passed", "len", res.Len, "cap", res.Cap,
			"copies", res.Stats.Copies, "moves", res.Stats.Moves, "destroys", res.Stats.Destroys)
	}
	return res
}

type probeKind[P any] struct {
	make  func(*element.Counters, int64) P
	value func(*P) int64
}

var (
	fallibleProbes = probeKind[element.Probe]{
		make:  (*element.Counters).Probe,
		value: func(p *element.Probe) int64 { return p.Value },
	}
	nothrowProbes = probeKind[element.NothrowProbe]{
		make:  (*element.Counters).NothrowProbe,
		value: func(p *element.NothrowProbe) int64 { return p.Value },
	}
)

func replay[P any](ctx context.Context, r *Runner, s Scenario, k probeKind[P]) Result {
	res := Result{Name: s.Name}
	c := element.NewCounters()
	v := vector.New[P](vector.WithAllocator(r.alloc))
	logger := log.With(r.logger, "scenario", s.Name)

	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		if st.FailCopyAt > 0 {
			c.FailNextCopy(st.FailCopyAt)
		}
		err := apply(v, c, k, st)
		c.FailCopyAt = 0

		level.Debug(logger).Log("msg", "step", "step", i, "op", st.Op, "len", v.Len(), "cap", v.Cap(), "err", err)
		if err := checkStep(st, err); err != nil {
			res.Err = errors.Wrapf(err, "step %d (%s)", i, st.Op)
			break
		}
	}

	res.Len, res.Cap = v.Len(), v.Cap()
	res.Values = make([]int64, 0, v.Len())
	for _, p := range v.All() {
		res.Values = append(res.Values, k.value(p))
	}
	if res.Err == nil && s.Expect != nil {
		res.Err = checkExpect(s.Expect, res)
	}

	v.Destroy()
	res.Stats = c.Snapshot()
	if res.Err == nil && (res.Stats.Live != 0 || res.Stats.Invalid != 0) {
		res.Err = errors.Wrapf(ErrExpectation, "%d probes leaked, %d invalid destructions",
			res.Stats.Live, res.Stats.Invalid)
	}
	return res
}

func apply[P any](v *vector.Vector[P], c *element.Counters, k probeKind[P], st Step) error {
	switch st.Op {
	case OpPush:
		_, err := v.PushBack(k.make(c, st.Value))
		return err
	case OpPop:
		v.PopBack()
		return nil
	case OpInsert:
		if st.Index < 0 || st.Index > v.Len() {
			return errors.Wrapf(ErrInvalidStep, "insert position %d out of range [0, %d]", st.Index, v.Len())
		}
		_, err := v.Insert(st.Index, k.make(c, st.Value))
		return err
	case OpErase:
		if st.Index < 0 || st.Index >= v.Len() {
			return errors.Wrapf(ErrInvalidStep, "erase position %d out of range [0, %d)", st.Index, v.Len())
		}
		_, err := v.Erase(st.Index)
		return err
	case OpReserve:
		return v.Reserve(st.N)
	case OpResize:
		if st.N < 0 {
			return errors.Wrapf(ErrInvalidStep, "negative size %d", st.N)
		}
		return v.Resize(st.N)
	case OpClear:
		v.Clear()
		return nil
	case OpClone:
		cp, err := v.Clone()
		if err != nil {
			return err
		}
		v.MoveFrom(cp)
		return nil
	}
	return errors.Wrapf(ErrInvalidStep, "unknown op %q", st.Op)
}

func checkStep(st Step, err error) error {
	if st.Error == "" {
		return err
	}
	if err == nil {
		return errors.Wrapf(ErrExpectation, "expected %s failure", st.Error)
	}
	if !errors.Is(err, errorKinds[st.Error]) {
		return errors.Wrapf(ErrExpectation, "expected %s failure, got %v", st.Error, err)
	}
	return nil
}

func checkExpect(e *Expect, res Result) error {
	if e.Values != nil && !slices.Equal(e.Values, res.Values) {
		return errors.Wrapf(ErrExpectation, "values %v, want %v", res.Values, e.Values)
	}
	if e.Len != nil && *e.Len != res.Len {
		return errors.Wrapf(ErrExpectation, "len %d, want %d", res.Len, *e.Len)
	}
	if e.Cap != nil && *e.Cap != res.Cap {
		return errors.Wrapf(ErrExpectation, "cap %d, want %d", res.Cap, *e.Cap)
	}
	return nil
}
