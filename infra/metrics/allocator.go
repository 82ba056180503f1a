// Package metrics instruments allocators with Prometheus collectors.
package metrics

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"rawvec/infra/memory"
)

// Allocator forwards to another memory.Allocator and records every request.
type Allocator struct {
	next memory.Allocator

	allocations prometheus.Counter
	failures    prometheus.Counter
	allocated   prometheus.Counter
	released    prometheus.Counter
	inUse       prometheus.Gauge
}

// NewAllocator wraps next, registering its collectors on reg.
func NewAllocator(next memory.Allocator, reg prometheus.Registerer) *Allocator {
	if next == nil {
		next = memory.Default
	}
	f := promauto.With(reg)
	return &Allocator{
		next: next,
		allocations: f.NewCounter(prometheus.CounterOpts{
			Name: "rawvec_allocations_total",
			Help: "Number of element blocks allocated.",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Name: "rawvec_allocation_failures_total",
			Help: "Number of allocation requests that were refused.",
		}),
		allocated: f.NewCounter(prometheus.CounterOpts{
			Name: "rawvec_allocated_bytes_total",
			Help: "Bytes handed out to element blocks.",
		}),
		released: f.NewCounter(prometheus.CounterOpts{
			Name: "rawvec_released_bytes_total",
			Help: "Bytes returned by released element blocks.",
		}),
		inUse: f.NewGauge(prometheus.GaugeOpts{
			Name: "rawvec_bytes_in_use",
			Help: "Bytes currently held by element blocks.",
		}),
	}
}

// Allocate implements memory.Allocator.
func (a *Allocator) Allocate(bytes uint64) error {
	if err := a.next.Allocate(bytes); err != nil {
		a.failures.Inc()
		return err
	}
	a.allocations.Inc()
	a.allocated.Add(float64(bytes))
	a.inUse.Add(float64(bytes))
	return nil
}

// Deallocate implements memory.Allocator.
func (a *Allocator) Deallocate(bytes uint64) {
	a.next.Deallocate(bytes)
	a.released.Add(float64(bytes))
	a.inUse.Sub(float64(bytes))
}

// Allocations returns the number of successful allocations so far.
func (a *Allocator) Allocations() uint64 { return uint64(value(a.allocations)) }

// AllocatedBytes returns the total bytes allocated so far.
func (a *Allocator) AllocatedBytes() uint64 { return uint64(value(a.allocated)) }

func value(c prometheus.Metric) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	if g := m.GetGauge(); g != nil {
		return g.GetValue()
	}
	return m.GetCounter().GetValue()
}

// WriteText renders everything g gathers in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrapf(err, "encode %s", mf.GetName())
		}
	}
	return nil
}
