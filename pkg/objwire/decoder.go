package objwire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/rawbytedev/astrophe"
	"github.com/rawbytedev/astrophe/internal/common"
)

// Decode parses a frame and rebuilds its object tree on h. The returned
// object carries one reference owned by the caller.
func Decode(h *astrophe.Heap, data []byte) (*astrophe.Object, Header, error) {
	hdr, body, err := ParseFrame(data)
	if err != nil {
		return nil, hdr, err
	}
	d := decoder{heap: h, body: body}
	root, err := d.readNode(0)
	if err == nil && d.pos != len(d.body) {
		root.Release()
		err = fmt.Errorf("%d trailing body bytes: %w", len(d.body)-d.pos, ErrMalformed)
	}
	if err != nil {
		d.discard()
		return nil, hdr, err
	}
	return root, hdr, nil
}

// ParseFrame checks a frame's envelope and returns its header and the
// decompressed body. Compressed bodies may expand to at most MaxBodySize.
func ParseFrame(data []byte) (Header, []byte, error) {
	return parseFrame(data, MaxBodySize)
}

func parseFrame(data []byte, limit uint64) (Header, []byte, error) {
	var hdr Header
	if len(data) < fixedHeaderSize+1+crcSize {
		return hdr, nil, ErrTruncated
	}
	if data[0] != Magic0 || data[1] != Magic1 {
		return hdr, nil, ErrMagic
	}
	hdr.Version = data[2]
	hdr.Flags = data[3]
	if hdr.Version != VersionV1 {
		return hdr, nil, fmt.Errorf("version %d: %w", hdr.Version, ErrVersion)
	}
	end := len(data) - crcSize
	want := binary.LittleEndian.Uint32(data[end:])
	if crc32.ChecksumIEEE(data[2:end]) != want {
		return hdr, nil, ErrCRC
	}
	copy(hdr.ID[:], data[4:fixedHeaderSize])

	size, n := common.ReadVarUint(data[fixedHeaderSize:end])
	if n == 0 {
		return hdr, nil, ErrTruncated
	}
	start := fixedHeaderSize + n
	if size != uint64(end-start) {
		return hdr, nil, fmt.Errorf("body of %d bytes, frame holds %d: %w", size, end-start, ErrTruncated)
	}
	body := data[start:end]
	if hdr.Flags&FlagZstd != 0 {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
		if err != nil {
			return hdr, nil, err
		}
		defer dec.Close()
		body, err = dec.DecodeAll(body, nil)
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return hdr, nil, fmt.Errorf("decompress body past %d bytes: %w", limit, ErrTooLarge)
		}
		if err != nil {
			return hdr, nil, fmt.Errorf("decompress body: %w", err)
		}
	}
	return hdr, body, nil
}

type decoder struct {
	heap  *astrophe.Heap
	body  []byte
	pos   int
	table []*astrophe.Object // by preorder index; nil while a scalar is being built
}

// discard frees whatever a failed decode left alive. Failure paths already
// drop their own references, so anything still live is held up by a cycle;
// clearing each surviving list breaks it.
func (d *decoder) discard() {
	for _, o := range d.table {
		if o == nil || o.Released() || !o.OwnsChildren() || o.Shape() != astrophe.ShapeList {
			continue
		}
		o.Clear()
	}
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.body) {
		return 0, ErrTruncated
	}
	b := d.body[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) uvarint() (int, error) {
	x, n := common.ReadVarUint(d.body[d.pos:])
	if n == 0 {
		return 0, ErrTruncated
	}
	if x > math.MaxInt32 {
		return 0, fmt.Errorf("length %d: %w", x, ErrMalformed)
	}
	d.pos += n
	return int(x), nil
}

// readNode decodes one node and returns it with a reference for the caller.
func (d *decoder) readNode(depth int) (*astrophe.Object, error) {
	if depth > MaxDepth {
		return nil, ErrDepth
	}
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagRef:
		idx, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		if idx >= len(d.table) || d.table[idx] == nil {
			return nil, fmt.Errorf("reference to node %d: %w", idx, ErrMalformed)
		}
		o := d.table[idx]
		if err := o.Retain(); err != nil {
			return nil, err
		}
		return o, nil
	case tagNode:
	default:
		return nil, fmt.Errorf("tag 0x%02x: %w", tag, ErrNodeTag)
	}

	shapeByte, err := d.readByte()
	if err != nil {
		return nil, err
	}
	owns, err := d.readByte()
	if err != nil {
		return nil, err
	}
	elemSize, err := d.uvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.uvarint()
	if err != nil {
		return nil, err
	}
	shape := astrophe.Shape(shapeByte)
	if owns != 0 {
		return d.readRefs(shape, count, depth)
	}
	return d.readBytes(shape, elemSize, count)
}

func (d *decoder) readBytes(shape astrophe.Shape, elemSize, count int) (*astrophe.Object, error) {
	var o *astrophe.Object
	switch {
	case shape == astrophe.ShapeEmpty || shape == astrophe.ShapeMap || elemSize == 0:
		if count != 0 {
			return nil, fmt.Errorf("%s with %d elements: %w", shape, count, ErrMalformed)
		}
		o = d.heap.New(shape)
	case shape == astrophe.ShapeScalar || shape == astrophe.ShapeList:
		size := uint64(count) * uint64(elemSize)
		if size > uint64(len(d.body)-d.pos) {
			return nil, ErrTruncated
		}
		raw := d.body[d.pos : d.pos+int(size)]
		d.pos += int(size)
		var err error
		if shape == astrophe.ShapeScalar {
			if count != 1 {
				return nil, fmt.Errorf("scalar with %d elements: %w", count, ErrMalformed)
			}
			o, err = d.heap.NewScalar(raw)
		} else {
			o, err = d.heap.NewList(raw, count, elemSize)
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s: %w", shape, ErrMalformed)
	}
	d.table = append(d.table, o)
	return o, nil
}

func (d *decoder) readRefs(shape astrophe.Shape, count, depth int) (*astrophe.Object, error) {
	switch shape {
	case astrophe.ShapeScalar:
		if count != 1 {
			return nil, fmt.Errorf("scalar with %d elements: %w", count, ErrMalformed)
		}
		slot := len(d.table)
		d.table = append(d.table, nil)
		child, err := d.readNode(depth + 1)
		if err != nil {
			return nil, err
		}
		defer child.Release()
		o, err := d.heap.NewRefScalar(child)
		if err != nil {
			return nil, err
		}
		d.table[slot] = o
		return o, nil
	case astrophe.ShapeList:
		o := d.heap.NewRefList()
		d.table = append(d.table, o)
		for range count {
			child, err := d.readNode(depth + 1)
			if err != nil {
				o.Release()
				return nil, err
			}
			err = o.PushBack(child)
			child.Release()
			if err != nil {
				o.Release()
				return nil, err
			}
		}
		return o, nil
	default:
		return nil, fmt.Errorf("%s owning children: %w", shape, ErrMalformed)
	}
}
