// Package optional provides a slot holding zero or one value of T, constructed
// and destroyed through the same element.Traits as a vector's elements.
package optional

import (
	"github.com/cockroachdb/errors"

	"rawvec/domain/element"
)

// ErrBadOptionalAccess is returned by the checked accessors of an empty slot.
var ErrBadOptionalAccess = errors.New("optional: bad optional access")

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Optional holds a value iff HasValue reports true. The zero value is empty.
// An Optional must not be copied; use Clone, Assign or MoveFrom.
type Optional[T any] struct {
	_ noCopy

	value   T
	engaged bool

	traits   element.Traits[T]
	resolved bool
}

func (o *Optional[T]) tr() element.Traits[T] {
	if !o.resolved {
		o.traits = element.Of[T]()
		o.resolved = true
	}
	return o.traits
}

// Of returns a slot holding a copy of v.
func Of[T any](v T) (*Optional[T], error) {
	o := new(Optional[T])
	if err := o.Set(v); err != nil {
		return nil, err
	}
	return o, nil
}

// HasValue reports whether the slot is engaged.
func (o *Optional[T]) HasValue() bool { return o.engaged }

// Set copy-assigns v onto the held value, or copy-constructs it into an
// empty slot.
func (o *Optional[T]) Set(v T) error {
	tr := o.tr()
	if o.engaged {
		return tr.CopyAssign(&o.value, &v)
	}
	if err := tr.Copy(&o.value, &v); err != nil {
		return err
	}
	o.engaged = true
	return nil
}

// SetMove is Set for a value moved out of src.
func (o *Optional[T]) SetMove(src *T) error {
	tr := o.tr()
	if o.engaged {
		return tr.MoveAssign(&o.value, src)
	}
	if err := tr.Move(&o.value, src); err != nil {
		return err
	}
	o.engaged = true
	return nil
}

// Emplace destroys the held value, if any, then constructs a new one with
// ctor. If ctor fails the slot is left empty: the old value is already gone.
func (o *Optional[T]) Emplace(ctor element.Ctor[T]) (*T, error) {
	o.Reset()
	if err := ctor(&o.value); err != nil {
		var zero T
		o.value = zero
		return nil, err
	}
	o.engaged = true
	return &o.value, nil
}

// Reset destroys the held value. It is a no-op on an empty slot.
func (o *Optional[T]) Reset() {
	if !o.engaged {
		return
	}
	o.tr().Destroy(&o.value)
	o.engaged = false
}

// Value returns the address of the held value, or ErrBadOptionalAccess.
func (o *Optional[T]) Value() (*T, error) {
	if !o.engaged {
		return nil, errors.WithStack(ErrBadOptionalAccess)
	}
	return &o.value, nil
}

// MoveValue moves the held value into uninitialized dst. The slot stays
// engaged with the moved-from value.
func (o *Optional[T]) MoveValue(dst *T) error {
	if !o.engaged {
		return errors.WithStack(ErrBadOptionalAccess)
	}
	return o.tr().Move(dst, &o.value)
}

// Get returns the address of the value storage without checking engagement.
// The caller must know the slot is engaged.
func (o *Optional[T]) Get() *T { return &o.value }

// Clone returns a slot with a copy of o's value, or an empty slot.
func (o *Optional[T]) Clone() (*Optional[T], error) {
	c := new(Optional[T])
	if err := c.Assign(o); err != nil {
		return nil, err
	}
	return c, nil
}

// Assign makes o match src: empty when src is empty, otherwise holding a copy
// of src's value.
func (o *Optional[T]) Assign(src *Optional[T]) error {
	if o == src {
		return nil
	}
	if !src.engaged {
		o.Reset()
		return nil
	}
	tr := o.tr()
	if o.engaged {
		return tr.CopyAssign(&o.value, &src.value)
	}
	if err := tr.Copy(&o.value, &src.value); err != nil {
		return err
	}
	o.engaged = true
	return nil
}

// MoveFrom makes o match src by moving src's value. src keeps its engagement
// and holds the moved-from value.
func (o *Optional[T]) MoveFrom(src *Optional[T]) error {
	if o == src {
		return nil
	}
	if !src.engaged {
		o.Reset()
		return nil
	}
	return o.SetMove(&src.value)
}
