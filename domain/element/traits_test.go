package element_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"rawvec/domain/element"
)

type handle struct{ fd int }

func (h *handle) MoveFrom(src *handle) error {
	h.fd = src.fd
	src.fd = -1
	return nil
}
func (*handle) NothrowMove() {}
func (*handle) NoCopy()      {}

type copyOnly struct{ v []int }

func (c *copyOnly) CopyFrom(src *copyOnly) error {
	c.v = append([]int(nil), src.v...)
	return nil
}

type session struct{ conn *int }

func (s *session) MoveFrom(src *session) error {
	s.conn, src.conn = src.conn, nil
	return nil
}

type defaulted struct{ n int }

func (d *defaulted) Init() error {
	d.n = 7
	return nil
}

func TestTraitsClassification(t *testing.T) {
	tests := []struct {
		name        string
		copyable    bool
		nothrow     bool
		preferMove  bool
		trivial     bool
		resolveFunc func() (bool, bool, bool, bool)
	}{
		{
			name: "plain int", copyable: true, nothrow: true, preferMove: true, trivial: true,
			resolveFunc: resolve[int],
		},
		{
			name: "copy only", copyable: true, nothrow: false, preferMove: false,
			resolveFunc: resolve[copyOnly],
		},
		{
			name: "move only handle", copyable: false, nothrow: true, preferMove: true,
			resolveFunc: resolve[handle],
		},
		{
			name: "mover without copier", copyable: false, nothrow: false, preferMove: true,
			resolveFunc: resolve[session],
		},
		{
			name: "fallible move", copyable: true, nothrow: false, preferMove: false,
			resolveFunc: resolve[element.Probe],
		},
		{
			name: "nothrow move", copyable: true, nothrow: true, preferMove: true,
			resolveFunc: resolve[element.NothrowProbe],
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			copyable, nothrow, preferMove, trivial := tt.resolveFunc()
			require.Equal(t, tt.copyable, copyable, "copyable")
			require.Equal(t, tt.nothrow, nothrow, "nothrow")
			require.Equal(t, tt.preferMove, preferMove, "prefer move")
			require.Equal(t, tt.trivial, trivial, "trivial")
		})
	}
}

func resolve[T any]() (bool, bool, bool, bool) {
	tr := element.Of[T]()
	return tr.Copyable(), tr.NothrowMove(), tr.PreferMove(), tr.Trivial()
}

func TestTraitsNonCopyable(t *testing.T) {
	tr := element.Of[handle]()
	src := handle{fd: 3}

	var dst handle
	err := tr.Copy(&dst, &src)
	require.True(t, errors.Is(err, element.ErrNotCopyable))

	require.NoError(t, tr.Move(&dst, &src))
	require.Equal(t, 3, dst.fd)
	require.Equal(t, -1, src.fd)
}

func TestMoverWithoutCopierIsMoveOnly(t *testing.T) {
	tr := element.Of[session]()
	conn := 1
	src := session{conn: &conn}

	var dst session
	require.True(t, errors.Is(tr.Copy(&dst, &src), element.ErrNotCopyable))
	require.Nil(t, dst.conn)

	require.NoError(t, tr.Move(&dst, &src))
	require.Same(t, &conn, dst.conn)
	require.Nil(t, src.conn)
}

func TestTraitsInit(t *testing.T) {
	var d defaulted
	require.NoError(t, element.Of[defaulted]().Init(&d))
	require.Equal(t, 7, d.n)

	n := 5
	require.NoError(t, element.Of[int]().Init(&n))
	require.Zero(t, n)
}

func TestTraitsCopyIsDeep(t *testing.T) {
	tr := element.Of[copyOnly]()
	src := copyOnly{v: []int{1, 2}}

	var dst copyOnly
	require.NoError(t, tr.Copy(&dst, &src))
	dst.v[0] = 9
	require.Equal(t, []int{1, 2}, src.v)

	// Without a Mover a move copies and leaves the source alone.
	var moved copyOnly
	require.NoError(t, tr.Move(&moved, &src))
	require.Equal(t, []int{1, 2}, src.v)
}

func TestProbeCountsAndLiveness(t *testing.T) {
	c := element.NewCounters()
	tr := element.Of[element.Probe]()
	src := c.Probe(4)

	var a, b element.Probe
	require.NoError(t, tr.Copy(&a, &src))
	require.NoError(t, tr.Move(&b, &a))
	require.Equal(t, 2, c.Live())
	require.True(t, a.Moved)
	require.Equal(t, int64(4), b.Value)

	tr.Destroy(&a)
	tr.Destroy(&b)
	require.Equal(t, element.Stats{Copies: 1, Moves: 1, Destroys: 2}, c.Snapshot())
}

func TestProbeFailureInjection(t *testing.T) {
	c := element.NewCounters()
	tr := element.Of[element.Probe]()
	src := c.Probe(1)

	c.FailNextCopy(2)
	var a, b element.Probe
	require.NoError(t, tr.Copy(&a, &src))
	err := tr.Copy(&b, &src)
	require.True(t, errors.Is(err, element.ErrInjected))
	require.Equal(t, element.Probe{}, b, "failed copy leaves zeroed storage")
	require.Equal(t, 1, c.Live())

	c.FailNextMove(1)
	require.True(t, errors.Is(tr.Move(&b, &a), element.ErrInjected))
	require.False(t, a.Moved)
}

func TestCopyAssignKeepsTargetOnFailure(t *testing.T) {
	c := element.NewCounters()
	tr := element.Of[element.Probe]()
	src := c.Probe(1)
	other := c.Probe(2)

	var dst element.Probe
	require.NoError(t, tr.Copy(&dst, &src))

	c.FailNextCopy(1)
	require.Error(t, tr.CopyAssign(&dst, &other))
	require.Equal(t, int64(1), dst.Value)

	require.NoError(t, tr.CopyAssign(&dst, &other))
	require.Equal(t, int64(2), dst.Value)
	require.Equal(t, int64(1), c.Assigns)
}
