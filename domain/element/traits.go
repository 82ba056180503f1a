// Package element describes how a container creates, duplicates, relocates
// and destroys values of an element type.
//
// A container never assumes a Go assignment is a faithful copy. Instead it
// asks Of[T] which lifecycle hooks *T implements and routes every
// construction and destruction through the resulting Traits. Types without
// hooks behave as plain values: assignment copies, moves never fail.
package element

import "github.com/cockroachdb/errors"

// ErrNotCopyable is returned when a copy is requested for a NonCopyable type.
var ErrNotCopyable = errors.New("element: type is not copy-constructible")

// Ctor constructs a value into uninitialized storage. A non-nil error means
// dst holds no live value.
type Ctor[T any] func(dst *T) error

// Initializer is implemented by types whose default value is not the zero
// value, or whose default construction can fail.
type Initializer interface {
	Init() error
}

// Copier is implemented by types whose copy does more than an assignment.
// CopyFrom is called on uninitialized (zeroed) storage.
type Copier[T any] interface {
	CopyFrom(src *T) error
}

// Assigner is implemented by types with a dedicated copy assignment. AssignFrom
// is called on a live receiver.
type Assigner[T any] interface {
	AssignFrom(src *T) error
}

// Mover is implemented by types that can steal the resources of src. The
// moved-from src must remain destructible; the container destroys it.
// A type implementing Mover but not Copier is move-only.
type Mover[T any] interface {
	MoveFrom(src *T) error
}

// NothrowMovable marks types whose MoveFrom never returns an error.
type NothrowMovable interface {
	NothrowMove()
}

// NonCopyable marks types that have no copy constructor.
type NonCopyable interface {
	NoCopy()
}

// Destroyer is implemented by types that release resources on destruction.
type Destroyer interface {
	Destroy()
}

// Traits is the resolved capability set of T.
type Traits[T any] struct {
	init      bool
	copier    bool
	assigner  bool
	mover     bool
	destroyer bool
	nothrow   bool
	noCopy    bool
}

// Of resolves the lifecycle hooks implemented by *T.
func Of[T any]() Traits[T] {
	var p *T
	_, init := any(p).(Initializer)
	_, copier := any(p).(Copier[T])
	_, assigner := any(p).(Assigner[T])
	_, mover := any(p).(Mover[T])
	_, destroyer := any(p).(Destroyer)
	_, marker := any(p).(NothrowMovable)
	_, noCopy := any(p).(NonCopyable)
	// A Mover without a Copier is move-only: a plain copy would alias the
	// resources MoveFrom exists to transfer.
	noCopy = noCopy || (mover && !copier)

	return Traits[T]{
		init:      init,
		copier:    copier && !noCopy,
		assigner:  assigner && !noCopy,
		mover:     mover,
		destroyer: destroyer,
		// Without a Mover a move is either a plain transfer (never fails)
		// or falls back to CopyFrom (may fail).
		nothrow: (mover && marker) || (!mover && (!copier || noCopy)),
		noCopy:  noCopy,
	}
}

// Copyable reports whether T can be copy-constructed.
func (t Traits[T]) Copyable() bool { return !t.noCopy }

// NothrowMove reports whether Move is statically known never to fail.
func (t Traits[T]) NothrowMove() bool { return t.nothrow }

// PreferMove reports whether relocating elements between buffers should
// move rather than copy. Copying keeps the source intact, so it is the only
// strategy that can be undone when a transfer fails halfway.
func (t Traits[T]) PreferMove() bool { return t.nothrow || t.noCopy }

// Trivial reports whether T has no hooks at all.
func (t Traits[T]) Trivial() bool {
	return !t.init && !t.copier && !t.assigner && !t.mover && !t.destroyer && !t.noCopy
}

// Init default-constructs a value into dst.
func (t Traits[T]) Init(dst *T) error {
	var zero T
	*dst = zero
	if !t.init {
		return nil
	}
	if err := any(dst).(Initializer).Init(); err != nil {
		*dst = zero
		return err
	}
	return nil
}

// Copy copy-constructs src into uninitialized dst.
func (t Traits[T]) Copy(dst, src *T) error {
	if t.noCopy {
		return errors.WithStack(ErrNotCopyable)
	}
	if !t.copier {
		*dst = *src
		return nil
	}
	var zero T
	*dst = zero
	if err := any(dst).(Copier[T]).CopyFrom(src); err != nil {
		*dst = zero
		return err
	}
	return nil
}

// Move move-constructs src into uninitialized dst. On success src is left
// moved-from and must still be destroyed.
func (t Traits[T]) Move(dst, src *T) error {
	var zero T
	switch {
	case t.mover:
		*dst = zero
		if err := any(dst).(Mover[T]).MoveFrom(src); err != nil {
			*dst = zero
			return err
		}
		return nil
	case t.copier:
		return t.Copy(dst, src)
	default:
		*dst = *src
		*src = zero
		return nil
	}
}

// Transfer constructs dst from src using the relocation strategy chosen by
// PreferMove.
func (t Traits[T]) Transfer(dst, src *T) error {
	if t.PreferMove() {
		return t.Move(dst, src)
	}
	return t.Copy(dst, src)
}

// CopyAssign copy-assigns src onto live dst. Without an Assigner the copy is
// built in a temporary first, so a failure leaves dst untouched.
func (t Traits[T]) CopyAssign(dst, src *T) error {
	if dst == src {
		return nil
	}
	if t.noCopy {
		return errors.WithStack(ErrNotCopyable)
	}
	if t.assigner {
		return any(dst).(Assigner[T]).AssignFrom(src)
	}
	if t.Trivial() {
		*dst = *src
		return nil
	}
	var tmp T
	if err := t.Copy(&tmp, src); err != nil {
		return err
	}
	t.Destroy(dst)
	*dst = tmp
	return nil
}

// MoveAssign move-assigns src onto live dst. src is left moved-from.
func (t Traits[T]) MoveAssign(dst, src *T) error {
	if dst == src {
		return nil
	}
	var tmp T
	if err := t.Move(&tmp, src); err != nil {
		return err
	}
	t.Destroy(dst)
	*dst = tmp
	return nil
}

// TransferAssign assigns src onto live dst using the PreferMove strategy.
func (t Traits[T]) TransferAssign(dst, src *T) error {
	if t.PreferMove() {
		return t.MoveAssign(dst, src)
	}
	return t.CopyAssign(dst, src)
}

// Destroy runs the destructor of the live value at p and zeroes the slot.
func (t Traits[T]) Destroy(p *T) {
	if t.destroyer {
		any(p).(Destroyer).Destroy()
	}
	var zero T
	*p = zero
}

// DestroyAll destroys every value in s.
func (t Traits[T]) DestroyAll(s []T) {
	if !t.destroyer {
		clear(s)
		return
	}
	for i := range s {
		t.Destroy(&s[i])
	}
}

// CopyOf returns a Ctor copying *src.
func (t Traits[T]) CopyOf(src *T) Ctor[T] {
	return func(dst *T) error { return t.Copy(dst, src) }
}

// MoveOf returns a Ctor moving out of *src.
func (t Traits[T]) MoveOf(src *T) Ctor[T] {
	return func(dst *T) error { return t.Move(dst, src) }
}
