package astrophe

import (
	"bytes"
	"fmt"
)

// Split partitions o at every occurrence of delim, an n-element run of o's
// element size. It returns a new reference list owning one byte list per
// segment. Adjacent, leading and trailing delimiters produce empty
// segments, so joining the segments with delim gives back o's bytes.
func (o *Object) Split(delim []byte, n int) (*Object, error) {
	if err := o.live(); err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	if o.recurse {
		return nil, fmt.Errorf("split: %w", ErrRefList)
	}
	sz := o.elemSize
	if sz <= 0 {
		return nil, fmt.Errorf("split %s: %w", o.shape, ErrElemSize)
	}
	if n <= 0 {
		return nil, fmt.Errorf("split on %d elements: %w", n, ErrDelimiter)
	}
	if len(delim) != n*sz {
		return nil, fmt.Errorf("split: delimiter of %d bytes for %d×%d: %w", len(delim), n, sz, ErrElemSize)
	}

	out := o.heap.NewRefList()
	data := o.data[:o.count*sz]
	cursor := 0
	for i := 0; i+n <= o.count; {
		if !bytes.Equal(data[i*sz:(i+n)*sz], delim) {
			i++
			continue
		}
		if err := pushSegment(out, data, cursor, i, sz); err != nil {
			out.Release()
			return nil, fmt.Errorf("split: %w", err)
		}
		i += n
		cursor = i
	}
	if err := pushSegment(out, data, cursor, o.count, sz); err != nil {
		out.Release()
		return nil, fmt.Errorf("split: %w", err)
	}
	o.heap.debug(catSplit, "split", "source", o.count, "segments", out.count)
	return out, nil
}

// SplitOn splits o on the contents of delim.
func (o *Object) SplitOn(delim *Object) (*Object, error) {
	if err := delim.live(); err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	if delim.recurse {
		return nil, fmt.Errorf("split: %w", ErrRefList)
	}
	if delim.elemSize != o.elemSize {
		return nil, fmt.Errorf("split: %d and %d: %w", o.elemSize, delim.elemSize, ErrElemSize)
	}
	return o.Split(delim.Bytes(), delim.count)
}

// pushSegment materializes elements [from, to) of data as a list and hands
// it to out, which keeps the only reference.
func pushSegment(out *Object, data []byte, from, to, sz int) error {
	seg, err := out.heap.NewList(data[from*sz:to*sz], to-from, sz)
	if err != nil {
		return err
	}
	defer seg.Release()
	return out.PushBack(seg)
}
