package objwire

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/rawbytedev/astrophe"
	"github.com/rawbytedev/astrophe/internal/common"
)

// Encoder serializes object trees. Its buffers are reused between calls.
type Encoder struct {
	body  []byte
	out   []byte
	index map[*astrophe.Object]uint64
}

// Encode serializes o and everything it references.
func Encode(o *astrophe.Object, opts Options) ([]byte, error) {
	var e Encoder
	return e.Encode(o, opts)
}

func (e *Encoder) Encode(o *astrophe.Object, opts Options) ([]byte, error) {
	e.body = e.body[:0]
	e.index = make(map[*astrophe.Object]uint64)
	if err := e.writeNode(o, 0); err != nil {
		return nil, err
	}

	body := e.body
	var flags byte
	if opts.Compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, err
		}
		body = enc.EncodeAll(e.body, nil)
		enc.Close()
		flags |= FlagZstd
	}
	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	e.out = append(e.out[:0], Magic0, Magic1, VersionV1, flags)
	e.out = append(e.out, id[:]...)
	e.out = seal(e.out, body)

	out := make([]byte, len(e.out))
	copy(out, e.out)
	return out, nil
}

// seal appends the body length, the body and the checksum to a header.
func seal(frame, body []byte) []byte {
	frame = common.WriteVarUint(frame, uint64(len(body)))
	frame = append(frame, body...)
	return binary.LittleEndian.AppendUint32(frame, crc32.ChecksumIEEE(frame[2:]))
}

// writeNode writes o in preorder. Trees nested deeper than MaxDepth are
// rejected here since Decode would refuse them.
func (e *Encoder) writeNode(o *astrophe.Object, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("encode: nesting past %d: %w", MaxDepth, ErrDepth)
	}
	if o.Released() {
		return fmt.Errorf("encode: %w", astrophe.ErrReleased)
	}
	if idx, seen := e.index[o]; seen {
		e.body = append(e.body, tagRef)
		e.body = common.WriteVarUint(e.body, idx)
		return nil
	}
	e.index[o] = uint64(len(e.index))

	var owns byte
	if o.OwnsChildren() {
		owns = 1
	}
	e.body = append(e.body, tagNode, byte(o.Shape()), owns)
	e.body = common.WriteVarUint(e.body, uint64(o.ElemSize()))
	e.body = common.WriteVarUint(e.body, uint64(o.Len()))
	if !o.OwnsChildren() {
		e.body = append(e.body, o.Bytes()...)
		return nil
	}
	for _, child := range o.Children() {
		if err := e.writeNode(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
