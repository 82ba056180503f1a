package memory

import "github.com/cockroachdb/errors"

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// RawBuffer owns a block of capacity element slots of T. It never constructs
// or destroys values in its slots; that is the owner's job, as is destroying
// every live value before Release.
//
// A RawBuffer must not be copied. Transfer ownership with MoveFrom or Swap.
type RawBuffer[T any] struct {
	_ noCopy

	block []T
	bytes uint64
	alloc Allocator
}

// NewRawBuffer acquires storage for exactly capacity elements from a. A nil
// allocator means Default. A zero capacity allocates nothing.
func NewRawBuffer[T any](a Allocator, capacity int) (RawBuffer[T], error) {
	if capacity < 0 {
		panic(errors.AssertionFailedf("memory: negative capacity %d", capacity))
	}
	if capacity == 0 {
		return RawBuffer[T]{}, nil
	}
	if a == nil {
		a = Default
	}
	bytes, err := BlockBytes[T](capacity)
	if err != nil {
		return RawBuffer[T]{}, err
	}
	if err := a.Allocate(bytes); err != nil {
		return RawBuffer[T]{}, err
	}
	return RawBuffer[T]{
		block: make([]T, capacity),
		bytes: bytes,
		alloc: a,
	}, nil
}

// Capacity returns the number of element slots.
func (b *RawBuffer[T]) Capacity() int { return len(b.block) }

// Slot returns the address of slot i. i must be below Capacity.
func (b *RawBuffer[T]) Slot(i int) *T {
	if uint(i) >= uint(len(b.block)) {
		panic(errors.AssertionFailedf("memory: slot %d out of range [0, %d)", i, len(b.block)))
	}
	return &b.block[i]
}

// Slots returns slots [from, to). to may equal Capacity.
func (b *RawBuffer[T]) Slots(from, to int) []T {
	if from < 0 || from > to || to > len(b.block) {
		panic(errors.AssertionFailedf("memory: slots [%d, %d) out of range [0, %d]", from, to, len(b.block)))
	}
	return b.block[from:to:to]
}

// Swap exchanges the blocks of b and other.
func (b *RawBuffer[T]) Swap(other *RawBuffer[T]) {
	b.block, other.block = other.block, b.block
	b.bytes, other.bytes = other.bytes, b.bytes
	b.alloc, other.alloc = other.alloc, b.alloc
}

// MoveFrom releases b's block and takes ownership of src's, leaving src
// empty.
func (b *RawBuffer[T]) MoveFrom(src *RawBuffer[T]) {
	if b == src {
		return
	}
	b.Release()
	b.Swap(src)
}

// Release returns the block to its allocator. b is empty afterwards.
func (b *RawBuffer[T]) Release() {
	if b.block == nil {
		return
	}
	b.alloc.Deallocate(b.bytes)
	b.block = nil
	b.bytes = 0
	b.alloc = nil
}
