// Package objwire serializes object trees into self-checking binary frames.
//
// Frame layout:
//
//	magic "AS" | version (1B) | flags (1B) | snapshot ID (16B)
//	| body length (uvarint) | body | CRC32 (4B, little-endian)
//
// The CRC covers every byte after the magic up to the checksum. The body is
// a preorder node stream. A node is either a full node
//
//	tagNode | shape (1B) | owns children (1B) | elem size (uvarint)
//	| count (uvarint) | count×elem size raw bytes, or count child nodes
//
// or a back-reference (tagRef | uvarint index) to a node already emitted,
// which keeps shared children shared and lets cycles round-trip.
package objwire

import (
	"errors"

	"github.com/google/uuid"
)

const (
	Magic0    = 'A'
	Magic1    = 'S'
	VersionV1 = 1

	FlagZstd = 0x01

	tagNode = 0x01
	tagRef  = 0x02

	fixedHeaderSize = 2 + 1 + 1 + 16
	crcSize         = 4

	// MaxDepth bounds nesting on both encode and decode.
	MaxDepth = 1 << 10

	// MaxBodySize caps a decompressed body.
	MaxBodySize = 64 << 20
)

var (
	ErrMagic     = errors.New("not an object frame")
	ErrVersion   = errors.New("unsupported frame version")
	ErrCRC       = errors.New("crc mismatch")
	ErrTruncated = errors.New("frame truncated")
	ErrNodeTag   = errors.New("unknown node tag")
	ErrMalformed = errors.New("malformed node")
	ErrDepth     = errors.New("frame nested too deeply")
	ErrTooLarge  = errors.New("frame body too large")
)

// Header describes a decoded frame.
type Header struct {
	Version byte
	Flags   byte
	ID      uuid.UUID
}

// Options controls encoding.
type Options struct {
	// Compress stores the body zstd-compressed.
	Compress bool
	// ID names the snapshot. A zero ID is replaced by a random one.
	ID uuid.UUID
}
