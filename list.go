package astrophe

import "fmt"

// Append copies other's elements after o's. other is neither consumed nor
// released; on a reference list each copied child is retained once more.
func (o *Object) Append(other *Object) error {
	if err := o.compatible(other); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	n := other.count
	if o.capacity <= o.count+n {
		if err := o.Resize(o.capacity + n); err != nil {
			return fmt.Errorf("append: %w", err)
		}
	}
	if o.recurse {
		src := other.refs[:n]
		for _, child := range src {
			child.refcount++
		}
		copy(o.refs[o.count:], src)
	} else {
		sz := o.elemSize
		copy(o.data[o.count*sz:], other.data[:n*sz])
	}
	o.count += n
	o.heap.debug(catList, "append", "added", n, "count", o.count, "capacity", o.capacity)
	return nil
}

// Prepend writes other's elements before o's into a new buffer of
// Cap+other.Len elements. It always reallocates.
func (o *Object) Prepend(other *Object) error {
	if err := o.compatible(other); err != nil {
		return fmt.Errorf("prepend: %w", err)
	}
	n := other.count
	capacity := o.capacity + n
	if o.recurse {
		if err := o.heap.reserve(o.bufBytes(), capacity*RefSize); err != nil {
			return fmt.Errorf("prepend: %w", err)
		}
		refs := make([]*Object, capacity)
		copy(refs, other.refs[:n])
		copy(refs[n:], o.refs[:o.count])
		for _, child := range refs[:n] {
			child.refcount++
		}
		o.refs = refs
	} else {
		sz := o.elemSize
		size, err := mulSize(capacity, sz)
		if err != nil {
			return fmt.Errorf("prepend: %w", err)
		}
		if err := o.heap.reserve(o.bufBytes(), size); err != nil {
			return fmt.Errorf("prepend: %w", err)
		}
		data := make([]byte, size)
		copy(data, other.data[:n*sz])
		copy(data[n*sz:], o.data[:o.count*sz])
		o.data = data
	}
	o.count += n
	o.capacity = capacity
	o.heap.debug(catList, "prepend", "added", n, "count", o.count, "capacity", o.capacity)
	return nil
}

// PopFront removes element 0 and returns it as a new Scalar owned by the
// caller. The remaining elements move into a buffer of Cap-1 elements.
func (o *Object) PopFront() (*Object, error) {
	if err := o.poppable(); err != nil {
		return nil, fmt.Errorf("pop front: %w", err)
	}
	front, err := o.single(0)
	if err != nil {
		return nil, fmt.Errorf("pop front: %w", err)
	}
	if o.recurse {
		refs := make([]*Object, o.capacity-1)
		copy(refs, o.refs[1:o.count])
		o.refs = refs
		o.heap.free(RefSize)
	} else {
		sz := o.elemSize
		data := make([]byte, (o.capacity-1)*sz)
		copy(data, o.data[sz:o.count*sz])
		o.data = data
		o.heap.free(sz)
	}
	o.capacity--
	o.count--
	return front, nil
}

// PopBack removes the last element and returns it as a new Scalar owned by
// the caller. The buffer is left as is.
func (o *Object) PopBack() (*Object, error) {
	if err := o.poppable(); err != nil {
		return nil, fmt.Errorf("pop back: %w", err)
	}
	back, err := o.single(o.count - 1)
	if err != nil {
		return nil, fmt.Errorf("pop back: %w", err)
	}
	if o.recurse {
		o.refs[o.count-1] = nil
	}
	o.count--
	return back, nil
}

// PushFront retains value and inserts it at the front of a reference list.
// On a byte list it does nothing.
func (o *Object) PushFront(value *Object) error {
	ok, err := o.pushable(value)
	if !ok {
		return err
	}
	capacity := o.capacity + 1
	if err := o.heap.reserve(o.bufBytes(), capacity*RefSize); err != nil {
		return fmt.Errorf("push front: %w", err)
	}
	value.refcount++
	refs := make([]*Object, capacity)
	refs[0] = value
	copy(refs[1:], o.refs[:o.count])
	o.refs = refs
	o.capacity = capacity
	o.count++
	o.heap.debug(catList, "push front", "count", o.count, "child refcount", value.refcount)
	return nil
}

// PushBack retains value and appends it to a reference list, growing the
// buffer when full. On a byte list it does nothing.
func (o *Object) PushBack(value *Object) error {
	ok, err := o.pushable(value)
	if !ok {
		return err
	}
	if o.count >= o.capacity {
		if err := o.Resize(o.capacity + 1); err != nil {
			return fmt.Errorf("push back: %w", err)
		}
	}
	value.refcount++
	o.refs[o.count] = value
	o.count++
	o.heap.debug(catList, "push back", "count", o.count, "child refcount", value.refcount)
	return nil
}

// single copies element i into a new Scalar. For reference lists the slot's
// reference moves into the Scalar without changing the child's refcount.
func (o *Object) single(i int) (*Object, error) {
	if !o.recurse {
		sz := o.elemSize
		return o.heap.NewScalar(o.data[i*sz : (i+1)*sz])
	}
	s, err := o.heap.NewRefScalar(o.refs[i])
	if err != nil {
		return nil, err
	}
	// the slot's reference moves into s
	o.refs[i].refcount--
	return s, nil
}

func (o *Object) compatible(other *Object) error {
	if err := o.mutable(); err != nil {
		return err
	}
	if err := other.live(); err != nil {
		return err
	}
	if o.elemSize != other.elemSize {
		return fmt.Errorf("%d and %d: %w", o.elemSize, other.elemSize, ErrElemSize)
	}
	if o.recurse != other.recurse {
		return ErrRefList
	}
	return nil
}

func (o *Object) poppable() error {
	if err := o.mutable(); err != nil {
		return err
	}
	if o.count == 0 {
		return ErrEmpty
	}
	return nil
}

// pushable reports whether a push should proceed. Pushing onto a byte list
// is a no-op and returns (false, nil).
func (o *Object) pushable(value *Object) (bool, error) {
	if err := o.mutable(); err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	if err := value.live(); err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	if !o.recurse {
		o.heap.warn(catList, "push ignored on byte list", "elem size", o.elemSize)
		return false, nil
	}
	return true, nil
}
