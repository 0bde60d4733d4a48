package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/chazu/tagtree/tag"
)

// ---------------------------------------------------------------------------
// Pack container
//
// Layout (all integers big-endian):
//
//	magic        [4]byte  "TAGT"
//	version      uint8
//	codec        uint8
//	compression  uint8
//	reserved     uint8
//	size         uint32   uncompressed payload length
//	digest       [32]byte BLAKE3-256 of the uncompressed payload
//	payload      rest of the input
// ---------------------------------------------------------------------------

// PackMagic opens every packed tree.
var PackMagic = [4]byte{'T', 'A', 'G', 'T'}

const (
	// PackVersion is the container version written by Pack.
	PackVersion uint8 = 1

	// PackHeaderSize is the fixed size of the container header.
	PackHeaderSize = 4 + 1 + 1 + 1 + 1 + 4 + 32

	// MaxPayloadSize bounds the uncompressed payload Unpack will allocate.
	MaxPayloadSize = 1 << 30
)

// PackOptions selects how Pack encodes a tree. The zero value is binary
// and uncompressed.
type PackOptions struct {
	Codec       Codec
	Compression Compression
}

// Header is the parsed container header.
type Header struct {
	Version     uint8
	Codec       Codec
	Compression Compression
	Size        uint32
	Digest      [32]byte
	PayloadLen  int
}

// Pack encodes t into a container.
func Pack(t tag.Tag, opts PackOptions) ([]byte, error) {
	codec := opts.Codec
	if codec == 0 {
		codec = CodecBinary
	}
	payload, err := Marshal(t, codec)
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("wire: payload of %d bytes exceeds %d", len(payload), MaxPayloadSize)
	}
	digest := blake3.Sum256(payload)

	compression := opts.Compression
	body, err := Compress(payload, compression)
	if errors.Is(err, ErrIncompressible) {
		compression, body = CompressionNone, payload
	} else if err != nil {
		return nil, err
	}

	out := make([]byte, PackHeaderSize, PackHeaderSize+len(body))
	copy(out[0:4], PackMagic[:])
	out[4] = PackVersion
	out[5] = byte(codec)
	out[6] = byte(compression)
	binary.BigEndian.PutUint32(out[8:12], uint32(len(payload)))
	copy(out[12:44], digest[:])
	return append(out, body...), nil
}

// ReadHeader parses and validates the container header of data.
func ReadHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < 4 {
		return h, ErrCorruptHeader
	}
	if [4]byte(data[0:4]) != PackMagic {
		return h, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[0:4])
	}
	if len(data) < PackHeaderSize {
		return h, ErrCorruptHeader
	}
	h.Version = data[4]
	if h.Version != PackVersion {
		return h, fmt.Errorf("%w: expected %d, got %d", ErrVersionMismatch, PackVersion, h.Version)
	}
	h.Codec = Codec(data[5])
	switch h.Codec {
	case CodecBinary, CodecCBOR, CodecYAML:
	default:
		return h, fmt.Errorf("%w: %d", ErrUnknownCodec, data[5])
	}
	h.Compression = Compression(data[6])
	if h.Compression > CompressionZstd {
		return h, fmt.Errorf("%w: unknown compression %d", ErrCorruptHeader, data[6])
	}
	h.Size = binary.BigEndian.Uint32(data[8:12])
	if h.Size > MaxPayloadSize {
		return h, fmt.Errorf("%w: payload size %d exceeds %d", ErrCorruptHeader, h.Size, MaxPayloadSize)
	}
	copy(h.Digest[:], data[12:44])
	h.PayloadLen = len(data) - PackHeaderSize
	return h, nil
}

// Unpack decodes a container produced by Pack, verifying its digest.
func Unpack(data []byte) (tag.Tag, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	payload, err := Decompress(data[PackHeaderSize:], h.Compression, int(h.Size))
	if err != nil {
		return nil, err
	}
	if blake3.Sum256(payload) != h.Digest {
		return nil, ErrDigestMismatch
	}
	return Unmarshal(payload, h.Codec)
}

// WritePacked packs t and writes the container to w.
func WritePacked(w io.Writer, t tag.Tag, opts PackOptions) error {
	data, err := Pack(t, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("wire: write: %w", err)
	}
	return nil
}

// ReadPacked reads a whole container from r and unpacks it.
func ReadPacked(r io.Reader) (tag.Tag, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("wire: read: %w", err)
	}
	return Unpack(data)
}
