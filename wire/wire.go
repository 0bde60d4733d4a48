// Package wire turns tag trees into bytes and back.
//
// Three encodings are provided: a compact binary form (Encode/Decode), a
// canonical CBOR form and a YAML text form for inspection and diffs. Pack
// wraps an encoded tree in a small container with optional compression and
// a BLAKE3 integrity digest.
package wire

import (
	"errors"
	"fmt"

	"github.com/chazu/tagtree/tag"
)

// Decode errors.
var (
	ErrInvalidMagic    = errors.New("wire: invalid magic: expected TAGT")
	ErrVersionMismatch = errors.New("wire: version mismatch")
	ErrCorruptHeader   = errors.New("wire: corrupt header")
	ErrCorruptData     = errors.New("wire: corrupt data")
	ErrDigestMismatch  = errors.New("wire: digest mismatch")
	ErrUnknownCodec    = errors.New("wire: unknown codec")
)

// ErrTooDeep is returned by the encoders for trees nested deeper than
// MaxDepth.
var ErrTooDeep = errors.New("wire: tree too deep")

// Codec identifies how a tag tree is encoded. Values are stored in pack
// headers and must not change.
type Codec uint8

const (
	CodecBinary Codec = 1
	CodecCBOR   Codec = 2
	CodecYAML   Codec = 3
)

func (c Codec) String() string {
	switch c {
	case CodecBinary:
		return "binary"
	case CodecCBOR:
		return "cbor"
	case CodecYAML:
		return "yaml"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCodec parses a codec name as written in configuration.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "binary", "":
		return CodecBinary, nil
	case "cbor":
		return CodecCBOR, nil
	case "yaml":
		return CodecYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// Marshal encodes t with codec.
func Marshal(t tag.Tag, codec Codec) ([]byte, error) {
	switch codec {
	case CodecBinary:
		return Encode(t)
	case CodecCBOR:
		return MarshalCBOR(t)
	case CodecYAML:
		return MarshalYAML(t)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(codec))
	}
}

// Unmarshal decodes data that was encoded with codec.
func Unmarshal(data []byte, codec Codec) (tag.Tag, error) {
	switch codec {
	case CodecBinary:
		return Decode(data)
	case CodecCBOR:
		return UnmarshalCBOR(data)
	case CodecYAML:
		return UnmarshalYAML(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(codec))
	}
}
