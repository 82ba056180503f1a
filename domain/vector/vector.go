// Package vector implements a growable, contiguous sequence of values built on
// a memory.RawBuffer. Element lifetimes are managed explicitly through
// element.Traits: slots [0, Len) hold live values, slots [Len, Cap) are
// unconstructed storage.
//
// Reallocation is strongly exception safe: when an element's move may fail,
// elements are copied into the new block and the old block is discarded only
// after every copy succeeded. A Vector is not safe for concurrent use.
package vector

import (
	"iter"

	"github.com/cockroachdb/errors"

	"rawvec/domain/element"
	"rawvec/infra/memory"
)

// Option configures a Vector.
type Option func(*options)

type options struct {
	alloc memory.Allocator
}

// WithAllocator makes the vector account its storage against a.
func WithAllocator(a memory.Allocator) Option {
	return func(o *options) { o.alloc = a }
}

// Vector is a dynamic array of T. The zero value is an empty vector using
// memory.Default. A Vector must not be copied; use Clone, Assign or MoveFrom.
type Vector[T any] struct {
	buf    memory.RawBuffer[T]
	length int

	alloc    memory.Allocator
	traits   element.Traits[T]
	resolved bool
}

// New returns an empty vector with no storage.
func New[T any](opts ...Option) *Vector[T] {
	o := options{alloc: memory.Default}
	for _, opt := range opts {
		opt(&o)
	}
	return &Vector[T]{
		alloc:    o.alloc,
		traits:   element.Of[T](),
		resolved: true,
	}
}

// NewSized returns a vector of n default-constructed elements.
func NewSized[T any](n int, opts ...Option) (*Vector[T], error) {
	v := New[T](opts...)
	if err := v.Resize(n); err != nil {
		v.Destroy()
		return nil, err
	}
	return v, nil
}

func (v *Vector[T]) tr() element.Traits[T] {
	if !v.resolved {
		v.traits = element.Of[T]()
		v.resolved = true
	}
	return v.traits
}

func (v *Vector[T]) allocator() memory.Allocator {
	if v.alloc == nil {
		return memory.Default
	}
	return v.alloc
}

// Len returns the number of live elements.
func (v *Vector[T]) Len() int { return v.length }

// Cap returns the number of element slots in the current block.
func (v *Vector[T]) Cap() int { return v.buf.Capacity() }

// At returns the address of element i. i must be below Len.
func (v *Vector[T]) At(i int) *T {
	if uint(i) >= uint(v.length) {
		panic(errors.AssertionFailedf("vector: index %d out of range [0, %d)", i, v.length))
	}
	return v.buf.Slot(i)
}

// Back returns the address of the last element. The vector must not be empty.
func (v *Vector[T]) Back() *T { return v.At(v.length - 1) }

// Data returns the live elements. The slice aliases the vector's storage and
// is invalidated by any operation that reallocates or shifts elements.
func (v *Vector[T]) Data() []T { return v.buf.Slots(0, v.length) }

// All iterates over the live elements in order.
func (v *Vector[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := 0; i < v.length; i++ {
			if !yield(i, v.buf.Slot(i)) {
				return
			}
		}
	}
}

// Reserve grows the storage to exactly n slots when n exceeds Cap. On error
// the vector is unchanged.
func (v *Vector[T]) Reserve(n int) error {
	if n <= v.buf.Capacity() {
		return nil
	}
	next, err := memory.NewRawBuffer[T](v.allocator(), n)
	if err != nil {
		return err
	}
	if err := v.relocate(next.Slots(0, v.length), v.Data()); err != nil {
		next.Release()
		return err
	}
	v.adopt(&next)
	return nil
}

// Resize destroys trailing elements or appends default-constructed ones until
// Len is n. If a default construction fails the length is unchanged.
func (v *Vector[T]) Resize(n int) error {
	if n < 0 {
		panic(errors.AssertionFailedf("vector: negative size %d", n))
	}
	tr := v.tr()
	if n <= v.length {
		tr.DestroyAll(v.buf.Slots(n, v.length))
		v.length = n
		return nil
	}
	if err := v.Reserve(n); err != nil {
		return err
	}
	tail := v.buf.Slots(v.length, n)
	for i := range tail {
		if err := tr.Init(&tail[i]); err != nil {
			tr.DestroyAll(tail[:i])
			return err
		}
	}
	v.length = n
	return nil
}

// PushBack appends a copy of value and returns its address.
func (v *Vector[T]) PushBack(value T) (*T, error) {
	return v.EmplaceBack(v.tr().CopyOf(&value))
}

// PushBackMove appends a value moved out of src and returns its address.
func (v *Vector[T]) PushBackMove(src *T) (*T, error) {
	return v.EmplaceBack(v.tr().MoveOf(src))
}

// EmplaceBack appends a value built by ctor and returns its address.
func (v *Vector[T]) EmplaceBack(ctor element.Ctor[T]) (*T, error) {
	i, err := v.Emplace(v.length, ctor)
	if err != nil {
		return nil, err
	}
	return v.buf.Slot(i), nil
}

// PopBack destroys the last element. It is a no-op on an empty vector.
func (v *Vector[T]) PopBack() {
	if v.length == 0 {
		return
	}
	v.length--
	v.tr().Destroy(v.buf.Slot(v.length))
}

// Insert places a copy of value before position pos and returns pos.
func (v *Vector[T]) Insert(pos int, value T) (int, error) {
	return v.Emplace(pos, v.tr().CopyOf(&value))
}

// InsertMove places a value moved out of src before position pos.
func (v *Vector[T]) InsertMove(pos int, src *T) (int, error) {
	return v.Emplace(pos, v.tr().MoveOf(src))
}

// Emplace constructs a value with ctor before position pos, which must lie in
// [0, Len], and returns pos. A failing ctor leaves the vector unchanged, as
// does a failed reallocation.
func (v *Vector[T]) Emplace(pos int, ctor element.Ctor[T]) (int, error) {
	if pos < 0 || pos > v.length {
		panic(errors.AssertionFailedf("vector: position %d out of range [0, %d]", pos, v.length))
	}

	var err error
	switch {
	case v.length == v.buf.Capacity():
		err = v.emplaceGrow(pos, ctor)
	case pos == v.length:
		if err = ctor(v.buf.Slot(pos)); err == nil {
			v.length++
		}
	default:
		err = v.emplaceShift(pos, ctor)
	}
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// emplaceGrow builds the new element in a doubled block before relocating the
// existing ones around it.
func (v *Vector[T]) emplaceGrow(pos int, ctor element.Ctor[T]) error {
	next, err := memory.NewRawBuffer[T](v.allocator(), max(1, v.length*2))
	if err != nil {
		return err
	}
	if err := ctor(next.Slot(pos)); err != nil {
		next.Release()
		return err
	}

	tr := v.tr()
	if err := v.relocate(next.Slots(0, pos), v.buf.Slots(0, pos)); err != nil {
		tr.Destroy(next.Slot(pos))
		next.Release()
		return err
	}
	if err := v.relocate(next.Slots(pos+1, v.length+1), v.buf.Slots(pos, v.length)); err != nil {
		tr.DestroyAll(next.Slots(0, pos+1))
		next.Release()
		return err
	}

	length := v.length + 1
	v.adopt(&next)
	v.length = length
	return nil
}

// emplaceShift opens a gap at pos inside the current block. The new value is
// built in a temporary first so a failing ctor has no visible effect.
func (v *Vector[T]) emplaceShift(pos int, ctor element.Ctor[T]) error {
	tr := v.tr()
	var tmp T
	if err := ctor(&tmp); err != nil {
		return err
	}

	if tr.Trivial() {
		s := v.buf.Slots(0, v.length+1)
		copy(s[pos+1:], s[pos:v.length])
		s[pos] = tmp
		v.length++
		return nil
	}

	last := v.length
	if err := tr.Transfer(v.buf.Slot(last), v.buf.Slot(last-1)); err != nil {
		tr.Destroy(&tmp)
		return err
	}
	v.length++

	for i := last - 1; i > pos; i-- {
		if err := tr.TransferAssign(v.buf.Slot(i), v.buf.Slot(i-1)); err != nil {
			tr.Destroy(&tmp)
			return errors.Wrapf(err, "vector: shifting element %d", i-1)
		}
	}
	if err := tr.MoveAssign(v.buf.Slot(pos), &tmp); err != nil {
		tr.Destroy(&tmp)
		return errors.Wrapf(err, "vector: placing element %d", pos)
	}
	tr.Destroy(&tmp)
	return nil
}

// Erase removes the element at pos, which must be below Len, and returns pos,
// now the position of the following element.
func (v *Vector[T]) Erase(pos int) (int, error) {
	if pos < 0 || pos >= v.length {
		panic(errors.AssertionFailedf("vector: erase position %d out of range [0, %d)", pos, v.length))
	}
	tr := v.tr()
	live := v.Data()

	if tr.Trivial() {
		copy(live[pos:], live[pos+1:])
	} else {
		for i := pos; i < v.length-1; i++ {
			if err := tr.TransferAssign(&live[i], &live[i+1]); err != nil {
				return 0, errors.Wrapf(err, "vector: shifting element %d", i+1)
			}
		}
	}
	v.length--
	tr.Destroy(&live[v.length])
	return pos, nil
}

// Clone returns a deep copy with capacity equal to Len.
func (v *Vector[T]) Clone() (*Vector[T], error) {
	c := &Vector[T]{alloc: v.alloc, traits: v.tr(), resolved: true}
	if err := c.copyIn(v.Data(), v.allocator()); err != nil {
		return nil, err
	}
	return c, nil
}

// Assign replaces the contents with copies of src's elements. When src does
// not fit the current block a full copy is built first, so a failure leaves
// v unchanged. Otherwise elements are overwritten in place and a failure
// leaves v partially assigned.
func (v *Vector[T]) Assign(src *Vector[T]) error {
	if v == src {
		return nil
	}
	if src.length > v.buf.Capacity() {
		var tmp Vector[T]
		tmp.traits, tmp.resolved = v.tr(), true
		if err := tmp.copyIn(src.Data(), v.allocator()); err != nil {
			return err
		}
		v.swapStorage(&tmp)
		tmp.Destroy()
		return nil
	}

	tr := v.tr()
	dst, from := v.buf.Slots(0, src.length), src.Data()
	overlap := min(v.length, src.length)
	for i := 0; i < overlap; i++ {
		if err := tr.CopyAssign(&dst[i], &from[i]); err != nil {
			return errors.Wrapf(err, "vector: assigning element %d", i)
		}
	}
	if src.length < v.length {
		tr.DestroyAll(v.buf.Slots(src.length, v.length))
	} else if err := construct(dst[overlap:], from[overlap:], tr, tr.Copy); err != nil {
		return err
	}
	v.length = src.length
	return nil
}

// MoveFrom destroys v's elements and takes ownership of src's storage and
// allocator. src is left empty on the same allocator.
func (v *Vector[T]) MoveFrom(src *Vector[T]) {
	if v == src {
		return
	}
	v.Destroy()
	v.swapStorage(src)
	v.alloc = src.alloc
}

// Swap exchanges the contents of v and other.
func (v *Vector[T]) Swap(other *Vector[T]) {
	v.swapStorage(other)
	v.alloc, other.alloc = other.alloc, v.alloc
}

// Clear destroys every element and keeps the storage.
func (v *Vector[T]) Clear() {
	v.tr().DestroyAll(v.Data())
	v.length = 0
}

// Destroy destroys every element and releases the storage. The vector is
// empty and reusable afterwards.
func (v *Vector[T]) Destroy() {
	v.Clear()
	v.buf.Release()
}

func (v *Vector[T]) swapStorage(other *Vector[T]) {
	v.buf.Swap(&other.buf)
	v.length, other.length = other.length, v.length
}

// adopt destroys the live elements, which must already have been relocated
// into next, and switches to the new block.
func (v *Vector[T]) adopt(next *memory.RawBuffer[T]) {
	v.tr().DestroyAll(v.Data())
	v.buf.Swap(next)
	next.Release()
}

// relocate constructs dst from src with the strategy the element traits
// prefer. The source values stay live either way.
func (v *Vector[T]) relocate(dst, src []T) error {
	tr := v.tr()
	return construct(dst, src, tr, tr.Transfer)
}

// copyIn fills an empty vector with copies of src in a block of exactly
// len(src) slots.
func (v *Vector[T]) copyIn(src []T, a memory.Allocator) error {
	buf, err := memory.NewRawBuffer[T](a, len(src))
	if err != nil {
		return err
	}
	tr := v.tr()
	if err := construct(buf.Slots(0, len(src)), src, tr, tr.Copy); err != nil {
		buf.Release()
		return err
	}
	v.buf.MoveFrom(&buf)
	v.length = len(src)
	return nil
}

// construct builds dst[i] from src[i] with op. On failure the values already
// built in dst are destroyed and dst is left unconstructed.
func construct[T any](dst, src []T, tr element.Traits[T], op func(dst, src *T) error) error {
	if tr.Trivial() {
		copy(dst, src)
		return nil
	}
	for i := range src {
		if err := op(&dst[i], &src[i]); err != nil {
			tr.DestroyAll(dst[:i])
			return errors.Wrapf(err, "vector: constructing element %d", i)
		}
	}
	return nil
}
