package astrophe

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"unsafe"
)

var (
	ErrAlloc     = errors.New("allocation failed")
	ErrReleased  = errors.New("object already released")
	ErrElemSize  = errors.New("element size mismatch")
	ErrEmpty     = errors.New("empty container")
	ErrShape     = errors.New("operation not supported for shape")
	ErrRange     = errors.New("index out of range")
	ErrDelimiter = errors.New("invalid delimiter")
	ErrRefList   = errors.New("operation not supported on reference list")
)

// Shape is the logical interpretation of an object's storage.
type Shape uint8

const (
	ShapeEmpty Shape = iota
	ShapeList
	ShapeMap // reserved, no operations
	ShapeScalar
)

func (s Shape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapeList:
		return "list"
	case ShapeMap:
		return "map"
	case ShapeScalar:
		return "scalar"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// RefSize is the element size of a reference list.
const RefSize = int(unsafe.Sizeof((*Object)(nil)))

// Options configures a Heap.
type Options struct {
	// MaxBytes bounds the bytes held by live buffers. Zero means unbounded.
	MaxBytes int
	// Logger receives lifecycle events. Nil discards them.
	Logger *slog.Logger
}

// Stats is a snapshot of heap bookkeeping.
type Stats struct {
	Allocs int
	Frees  int
	Live   int
	Bytes  int
}

// Heap is the allocation domain objects are created from. It is not safe
// for concurrent use; objects share their heap's single-threaded discipline.
type Heap struct {
	Opts  Options
	log   *slog.Logger
	stats Stats
}

func NewHeap(opts Options) *Heap {
	l := opts.Logger
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return &Heap{Opts: opts, log: l}
}

func (h *Heap) Stats() Stats {
	s := h.stats
	s.Live = s.Allocs - s.Frees
	return s
}

// Object is a reference-counted, type-erased container. Byte lists keep
// their elements in data; reference lists keep them in refs.
type Object struct {
	heap     *Heap
	shape    Shape
	data     []byte
	refs     []*Object
	elemSize int
	count    int
	capacity int
	recurse  bool
	refcount int
}

// New creates an object of the given shape with refcount 1 and no storage.
func (h *Heap) New(shape Shape) *Object {
	h.stats.Allocs++
	return &Object{heap: h, shape: shape, refcount: 1}
}

// Retain adds an owning reference.
func (o *Object) Retain() error {
	if o.refcount == 0 {
		return ErrReleased
	}
	o.refcount++
	o.heap.debug(catMemory, "retain", "refcount", o.refcount, "shape", o.shape)
	return nil
}

// Release drops an owning reference. At zero the buffer is freed and, for
// reference lists, every held child is released once.
func (o *Object) Release() error {
	if o.refcount == 0 {
		return ErrReleased
	}
	o.refcount--
	o.heap.debug(catMemory, "release", "refcount", o.refcount, "shape", o.shape)
	if o.refcount > 0 {
		return nil
	}
	var errs []error
	if o.recurse {
		for _, child := range o.refs[:o.count] {
			if err := child.Release(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	o.heap.free(o.bufBytes())
	o.data, o.refs = nil, nil
	o.count, o.capacity = 0, 0
	o.heap.stats.Frees++
	o.heap.debug(catMemory, "freed", "shape", o.shape)
	return errors.Join(errs...)
}

func (o *Object) RefCount() int { return o.refcount }
func (o *Object) Shape() Shape { return o.shape }
func (o *Object) Len() int { return o.count }
func (o *Object) Cap() int { return o.capacity }
func (o *Object) ElemSize() int { return o.elemSize }
func (o *Object) OwnsChildren() bool { return o.recurse }

// Released reports whether the refcount has reached zero.
func (o *Object) Released() bool { return o.refcount == 0 }

// At returns element i of a byte list. The slice aliases the buffer and is
// invalidated by the next mutation.
func (o *Object) At(i int) ([]byte, error) {
	if err := o.live(); err != nil {
		return nil, err
	}
	if o.recurse {
		return nil, ErrRefList
	}
	if i < 0 || i >= o.count {
		return nil, fmt.Errorf("at %d of %d: %w", i, o.count, ErrRange)
	}
	return o.data[i*o.elemSize : (i+1)*o.elemSize], nil
}

// Bytes returns the first Len elements of a byte list as raw bytes.
func (o *Object) Bytes() []byte {
	if o.recurse || o.refcount == 0 {
		return nil
	}
	return o.data[:o.count*o.elemSize]
}

// Child returns a borrowed reference to element i of a reference list.
// Callers that keep it past the list's lifetime must Retain it.
func (o *Object) Child(i int) (*Object, error) {
	if err := o.live(); err != nil {
		return nil, err
	}
	if !o.recurse {
		return nil, fmt.Errorf("child of byte list: %w", ErrShape)
	}
	if i < 0 || i >= o.count {
		return nil, fmt.Errorf("child %d of %d: %w", i, o.count, ErrRange)
	}
	return o.refs[i], nil
}

func (o *Object) String() string {
	if o.refcount == 0 {
		return "<released>"
	}
	if o.recurse {
		return fmt.Sprintf("<%s of %d refs>", o.shape, o.count)
	}
	return string(o.Bytes())
}

func (o *Object) live() error {
	if o == nil || o.refcount == 0 {
		return ErrReleased
	}
	return nil
}

// bufBytes is the size accounted for the object's current buffer.
func (o *Object) bufBytes() int {
	if o.recurse {
		return o.capacity * RefSize
	}
	return o.capacity * o.elemSize
}

// reserve accounts for a buffer growing from old to n bytes.
func (h *Heap) reserve(old, n int) error {
	if n < 0 {
		return fmt.Errorf("buffer of negative size: %w", ErrAlloc)
	}
	next := h.stats.Bytes - old + n
	if h.Opts.MaxBytes > 0 && next > h.Opts.MaxBytes {
		return fmt.Errorf("%d bytes exceeds limit %d: %w", next, h.Opts.MaxBytes, ErrAlloc)
	}
	h.stats.Bytes = next
	return nil
}

func (h *Heap) free(n int) { h.stats.Bytes -= n }

// mulSize multiplies element counts by sizes, failing on overflow.
func mulSize(n, size int) (int, error) {
	if n < 0 || size < 0 {
		return 0, fmt.Errorf("size %d×%d: %w", n, size, ErrAlloc)
	}
	if size != 0 && n > math.MaxInt/size {
		return 0, fmt.Errorf("size %d×%d overflows: %w", n, size, ErrAlloc)
	}
	return n * size, nil
}

const (
	catMemory = "memory"
	catList   = "list"
	catSplit  = "split"
)

func (h *Heap) debug(cat, msg string, args ...any) {
	h.log.Debug(msg, append([]any{slog.String("cat", cat)}, args...)...)
}

func (h *Heap) warn(cat, msg string, args ...any) {
	h.log.Warn(msg, append([]any{slog.String("cat", cat)}, args...)...)
}
