package astrophe

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// NewList creates a list of n elements of elemSize bytes copied from data,
// with capacity for 2n elements.
func (h *Heap) NewList(data []byte, n, elemSize int) (*Object, error) {
	if elemSize <= 0 {
		return nil, fmt.Errorf("list element size %d: %w", elemSize, ErrElemSize)
	}
	size, err := mulSize(n, elemSize)
	if err != nil {
		return nil, err
	}
	if len(data) < size {
		return nil, fmt.Errorf("list of %d×%d from %d bytes: %w", n, elemSize, len(data), ErrRange)
	}
	o := h.New(ShapeList)
	o.elemSize = elemSize
	if err := o.realloc(2 * n); err != nil {
		h.stats.Allocs--
		return nil, err
	}
	copy(o.data, data[:size])
	o.count = n
	return o, nil
}

// NewString creates a list of bytes holding s.
func (h *Heap) NewString(s string) (*Object, error) {
	return h.NewList([]byte(s), len(s), 1)
}

// NewScalar creates a single-element object whose element size is len(value).
func (h *Heap) NewScalar(value []byte) (*Object, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("scalar of zero bytes: %w", ErrElemSize)
	}
	o := h.New(ShapeScalar)
	o.elemSize = len(value)
	if err := o.realloc(1); err != nil {
		h.stats.Allocs--
		return nil, err
	}
	copy(o.data, value)
	o.count = 1
	return o, nil
}

// NewRefList creates an empty list that owns the objects pushed into it.
func (h *Heap) NewRefList() *Object {
	o := h.New(ShapeList)
	o.elemSize = RefSize
	o.recurse = true
	return o
}

// NewRefScalar creates a Scalar holding one reference to child, which it
// retains. Releasing the Scalar releases child.
func (h *Heap) NewRefScalar(child *Object) (*Object, error) {
	if err := child.live(); err != nil {
		return nil, err
	}
	if err := h.reserve(0, RefSize); err != nil {
		return nil, err
	}
	child.refcount++
	s := h.New(ShapeScalar)
	s.elemSize = RefSize
	s.recurse = true
	s.refs = []*Object{child}
	s.count, s.capacity = 1, 1
	return s, nil
}

// Resize grows the buffer to hold 2n elements. It never shrinks.
func (o *Object) Resize(n int) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("resize to %d: %w", n, ErrRange)
	}
	if n > math.MaxInt/2 {
		return fmt.Errorf("resize to %d: %w", n, ErrAlloc)
	}
	if 2*n <= o.capacity {
		return nil
	}
	return o.realloc(2 * n)
}

// Trim reallocates the buffer down to exactly Len elements.
func (o *Object) Trim() error {
	if err := o.live(); err != nil {
		return err
	}
	if o.capacity == o.count {
		return nil
	}
	return o.realloc(o.count)
}

// Collapse turns a single-element list into a Scalar. It reports whether
// the shape changed; Scalars never turn back into lists.
func (o *Object) Collapse() bool {
	if o.live() != nil || o.shape != ShapeList || o.count != 1 {
		return false
	}
	if err := o.Trim(); err != nil {
		return false
	}
	o.shape = ShapeScalar
	return true
}

// Clear empties a list and releases any children it held. The buffer keeps
// its capacity.
func (o *Object) Clear() error {
	if err := o.mutable(); err != nil {
		return err
	}
	if !o.recurse {
		o.count = 0
		return nil
	}
	held := slices.Clone(o.refs[:o.count])
	clear(o.refs[:o.count])
	o.count = 0
	var errs []error
	for _, c := range held {
		if err := c.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// realloc replaces the buffer with one of n elements, keeping the first
// min(n, count) elements.
func (o *Object) realloc(n int) error {
	slot := o.elemSize
	if o.recurse {
		slot = RefSize
	}
	size, err := mulSize(n, slot)
	if err != nil {
		return err
	}
	if err := o.heap.reserve(o.bufBytes(), size); err != nil {
		return err
	}
	keep := min(n, o.count)
	if o.recurse {
		refs := make([]*Object, n)
		copy(refs, o.refs[:keep])
		o.refs = refs
	} else {
		data := make([]byte, size)
		copy(data, o.data[:keep*o.elemSize])
		o.data = data
	}
	o.capacity = n
	o.count = keep
	return nil
}

// mutable rejects objects whose shape cannot grow or shrink in place.
func (o *Object) mutable() error {
	if err := o.live(); err != nil {
		return err
	}
	if o.shape != ShapeList && o.shape != ShapeEmpty {
		return fmt.Errorf("%s: %w", o.shape, ErrShape)
	}
	return nil
}
