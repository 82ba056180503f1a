package service

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"rawvec/domain/element"
	"rawvec/infra/memory"
)

// Operation names accepted in a scenario step.
const (
	OpPush    = "push"
	OpPop     = "pop"
	OpInsert  = "insert"
	OpErase   = "erase"
	OpReserve = "reserve"
	OpResize  = "resize"
	OpClear   = "clear"
	OpClone   = "clone"
)

// Error kinds a step may expect.
var errorKinds = map[string]error{
	"out_of_memory": memory.ErrOutOfMemory,
	"injected":      element.ErrInjected,
	"not_copyable":  element.ErrNotCopyable,
}

// Scenario is one scripted workload.
type Scenario struct {
	Name string `yaml:"name"`
	// NothrowMove selects NothrowProbe elements instead of Probe.
	NothrowMove bool    `yaml:"nothrow_move"`
	Steps       []Step  `yaml:"steps"`
	Expect      *Expect `yaml:"expect"`
}

// Step is a single operation.
type Step struct {
	Op    string `yaml:"op"`
	Index int    `yaml:"index"`
	Value int64  `yaml:"value"`
	N     int    `yaml:"n"`
	// FailCopyAt makes the n-th copy performed by this step fail.
	FailCopyAt int64 `yaml:"fail_copy_at"`
	// Error is the kind of failure the step must produce, if any.
	Error string `yaml:"error"`
}

// Expect describes the state after the last step.
type Expect struct {
	Values []int64 `yaml:"values"`
	Len    *int    `yaml:"len"`
	Cap    *int    `yaml:"cap"`
}

// Validate checks the scenario for unknown operations and error kinds.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("scenario: missing name")
	}
	for i, st := range s.Steps {
		switch st.Op {
		case OpPush, OpPop, OpInsert, OpErase, OpReserve, OpResize, OpClear, OpClone:
		default:
			return errors.Newf("scenario %q step %d: unknown op %q", s.Name, i, st.Op)
		}
		if st.Error != "" {
			if _, ok := errorKinds[st.Error]; !ok {
				return errors.Newf("scenario %q step %d: unknown error kind %q", s.Name, i, st.Error)
			}
		}
		if st.FailCopyAt < 0 {
			return errors.Newf("scenario %q step %d: negative fail_copy_at", s.Name, i)
		}
	}
	return nil
}

// Load decodes every YAML document in r as a scenario.
func Load(r io.Reader) ([]Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []Scenario
	for {
		var s Scenario
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decode scenario %d", len(out))
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}

// LoadFile loads the scenarios stored at path.
func LoadFile(path string) ([]Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open scenario file")
	}
	defer f.Close()

	scenarios, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return scenarios, nil
}
