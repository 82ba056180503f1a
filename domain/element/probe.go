package element

import "github.com/cockroachdb/errors"

// ErrInjected is the failure produced by a probe whose copy or move was
// scheduled to fail.
var ErrInjected = errors.New("element: injected failure")

// Counters records the lifecycle calls made on probes attached to it and
// tracks which probes are currently live.
type Counters struct {
	Copies   int64
	Moves    int64
	Assigns  int64
	Destroys int64
	// Invalid counts destructions of probes that were not live.
	Invalid int64

	// FailCopyAt makes the copy with this ordinal fail. Copy construction
	// and copy assignment share the ordinal. Zero disables injection.
	FailCopyAt int64
	// FailMoveAt does the same for Probe moves.
	FailMoveAt int64

	copyCalls int64
	moveCalls int64
	nextID    uint64
	live      map[uint64]struct{}
}

// NewCounters returns an empty set of counters.
func NewCounters() *Counters {
	return &Counters{live: make(map[uint64]struct{})}
}

// Live returns the number of probes constructed by a hook and not yet
// destroyed.
func (c *Counters) Live() int { return len(c.live) }

// FailNextCopy schedules the n-th copy from now to fail.
func (c *Counters) FailNextCopy(n int64) { c.FailCopyAt = c.copyCalls + n }

// FailNextMove schedules the n-th move from now to fail.
func (c *Counters) FailNextMove(n int64) { c.FailMoveAt = c.moveCalls + n }

// Stats is a point-in-time copy of Counters.
type Stats struct {
	Copies   int64
	Moves    int64
	Assigns  int64
	Destroys int64
	Invalid  int64
	Live     int
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() Stats {
	return Stats{
		Copies:   c.Copies,
		Moves:    c.Moves,
		Assigns:  c.Assigns,
		Destroys: c.Destroys,
		Invalid:  c.Invalid,
		Live:     len(c.live),
	}
}

// Probe builds an unattached Probe source value. It is not live: only values
// constructed by a lifecycle hook are.
func (c *Counters) Probe(v int64) Probe { return Probe{probe{Value: v, C: c}} }

// NothrowProbe builds an unattached NothrowProbe source value.
func (c *Counters) NothrowProbe(v int64) NothrowProbe {
	return NothrowProbe{probe{Value: v, C: c}}
}

func (c *Counters) copyCall() error {
	c.copyCalls++
	if c.FailCopyAt > 0 && c.copyCalls == c.FailCopyAt {
		return errors.Wrapf(ErrInjected, "copy #%d", c.copyCalls)
	}
	return nil
}

func (c *Counters) moveCall() error {
	c.moveCalls++
	if c.FailMoveAt > 0 && c.moveCalls == c.FailMoveAt {
		return errors.Wrapf(ErrInjected, "move #%d", c.moveCalls)
	}
	return nil
}

type probe struct {
	Value int64
	C     *Counters
	Moved bool

	id uint64
}

func (p *probe) attach(v int64, c *Counters) {
	*p = probe{Value: v, C: c}
	if c == nil {
		return
	}
	c.nextID++
	p.id = c.nextID
	c.live[p.id] = struct{}{}
}

func (p *probe) copyFrom(src *probe) error {
	if src.C != nil {
		if err := src.C.copyCall(); err != nil {
			return err
		}
		src.C.Copies++
	}
	p.attach(src.Value, src.C)
	return nil
}

func (p *probe) moveFrom(src *probe, fallible bool) error {
	if src.C != nil {
		if fallible {
			if err := src.C.moveCall(); err != nil {
				return err
			}
		}
		src.C.Moves++
	}
	p.attach(src.Value, src.C)
	src.Value = 0
	src.Moved = true
	return nil
}

func (p *probe) assignFrom(src *probe) error {
	if src.C != nil {
		if err := src.C.copyCall(); err != nil {
			return err
		}
		src.C.Assigns++
	}
	p.Value = src.Value
	p.Moved = false
	return nil
}

func (p *probe) destroy() {
	if p.C == nil || p.id == 0 {
		return
	}
	p.C.Destroys++
	if _, ok := p.C.live[p.id]; !ok {
		p.C.Invalid++
		return
	}
	delete(p.C.live, p.id)
}

// Probe is an instrumented element whose move can fail, so containers copy
// it during reallocation.
type Probe struct{ probe }

func (p *Probe) CopyFrom(src *Probe) error   { return p.copyFrom(&src.probe) }
func (p *Probe) MoveFrom(src *Probe) error   { return p.moveFrom(&src.probe, true) }
func (p *Probe) AssignFrom(src *Probe) error { return p.assignFrom(&src.probe) }
func (p *Probe) Destroy()                    { p.destroy() }

// NothrowProbe is an instrumented element whose move never fails.
type NothrowProbe struct{ probe }

func (p *NothrowProbe) CopyFrom(src *NothrowProbe) error   { return p.copyFrom(&src.probe) }
func (p *NothrowProbe) MoveFrom(src *NothrowProbe) error   { return p.moveFrom(&src.probe, false) }
func (p *NothrowProbe) AssignFrom(src *NothrowProbe) error { return p.assignFrom(&src.probe) }
func (p *NothrowProbe) Destroy()                           { p.destroy() }
func (*NothrowProbe) NothrowMove()                         {}
