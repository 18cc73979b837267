package astrophe

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/rawbytedev/astrophe/internal/common"
)

// Fixed is the set of element types with a fixed little-endian encoding.
type Fixed interface {
	~bool | ~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 |
		~int64 | ~uint64 | ~float32 | ~float64
}

func sizeOf[T Fixed]() int {
	return common.FixedSize(reflect.TypeFor[T]().Kind())
}

// FromSlice creates a list holding vals, one element per value.
func FromSlice[T Fixed](h *Heap, vals []T) (*Object, error) {
	sz := sizeOf[T]()
	buf := make([]byte, len(vals)*sz)
	for i := range vals {
		common.PutFixed(buf[i*sz:], reflect.ValueOf(vals[i]))
	}
	return h.NewList(buf, len(vals), sz)
}

// ScalarOf creates a Scalar holding v.
func ScalarOf[T Fixed](h *Heap, v T) (*Object, error) {
	buf := make([]byte, sizeOf[T]())
	common.PutFixed(buf, reflect.ValueOf(v))
	return h.NewScalar(buf)
}

// ValueAt decodes element i of o as a T. T's width must match o's element size.
func ValueAt[T Fixed](o *Object, i int) (T, error) {
	var v T
	if sz := sizeOf[T](); sz != o.elemSize {
		return v, fmt.Errorf("read %T from %d-byte elements: %w", v, o.elemSize, ErrElemSize)
	}
	b, err := o.At(i)
	if err != nil {
		return v, err
	}
	common.SetFixed(reflect.ValueOf(&v).Elem(), b)
	return v, nil
}

// All yields each element of a byte list with its index. Mutating o while
// ranging is not supported.
func (o *Object) All() iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		for i := 0; i < o.count && !o.recurse; i++ {
			sz := o.elemSize
			if !yield(i, o.data[i*sz:(i+1)*sz]) {
				return
			}
		}
	}
}

// Children yields the borrowed references held by a reference list.
func (o *Object) Children() iter.Seq2[int, *Object] {
	return func(yield func(int, *Object) bool) {
		for i := 0; i < o.count && o.recurse; i++ {
			if !yield(i, o.refs[i]) {
				return
			}
		}
	}
}

// Values yields each element of o decoded as a T. It yields nothing when
// T's width differs from o's element size.
func Values[T Fixed](o *Object) iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if o.recurse || sizeOf[T]() != o.elemSize {
			return
		}
		for i, b := range o.All() {
			var v T
			common.SetFixed(reflect.ValueOf(&v).Elem(), b)
			if !yield(i, v) {
				return
			}
		}
	}
}
