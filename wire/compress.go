package wire

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm applied to a packed payload. Values
// are stored in pack headers and must not change.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

// ErrIncompressible is returned by Compress when the output would not be
// smaller than the input. Pack falls back to CompressionNone.
var ErrIncompressible = errors.New("wire: data is incompressible")

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as written in configuration.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("wire: unknown compression %q", name)
	}
}

// Compress compresses data with c. For CompressionNone it returns data
// unchanged.
func Compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		return compressLZ4(data)
	case CompressionZstd:
		return compressZstd(data)
	default:
		return nil, fmt.Errorf("wire: unsupported compression %d", uint8(c))
	}
}

// Decompress reverses Compress. size must be the exact uncompressed length.
// Sizes the input could not possibly expand to are rejected before any
// output buffer is allocated.
func Decompress(data []byte, c Compression, size int) ([]byte, error) {
	if size < 0 || size > MaxPayloadSize {
		return nil, fmt.Errorf("%w: uncompressed size %d out of range", ErrCorruptData, size)
	}
	switch c {
	case CompressionNone:
		if len(data) != size {
			return nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrCorruptData, len(data), size)
		}
		return data, nil
	case CompressionLZ4:
		return decompressLZ4(data, size)
	case CompressionZstd:
		return decompressZstd(data, size)
	default:
		return nil, fmt.Errorf("wire: unsupported compression %d", uint8(c))
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("wire: lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for data it cannot shrink.
	if n == 0 || n >= len(data) {
		return nil, ErrIncompressible
	}
	return dst[:n], nil
}

// lz4MaxRatio is the most an LZ4 block can expand: a run costs at least one
// byte per 255 bytes of output.
const lz4MaxRatio = 255

func decompressLZ4(data []byte, size int) ([]byte, error) {
	if int64(size) > int64(len(data))*lz4MaxRatio+16 {
		return nil, fmt.Errorf("%w: lz4 decompress: %d bytes cannot expand to %d", ErrCorruptData, len(data), size)
	}
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decompress: %v", ErrCorruptData, err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: lz4 decompress: got %d bytes, expected %d", ErrCorruptData, n, size)
	}
	return dst, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("wire: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(MaxPayloadSize)))
	if err != nil {
		panic("wire: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	out := zstdEncoder.EncodeAll(data, nil)
	if len(out) >= len(data) {
		return nil, ErrIncompressible
	}
	return out, nil
}

func decompressZstd(data []byte, size int) ([]byte, error) {
	var h zstd.Header
	if err := h.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: zstd header: %v", ErrCorruptData, err)
	}
	if h.HasFCS && h.FrameContentSize != uint64(size) {
		return nil, fmt.Errorf("%w: zstd frame holds %d bytes, expected %d", ErrCorruptData, h.FrameContentSize, size)
	}
	// Without a content size in the frame the buffer grows as data arrives.
	capacity := size
	if !h.HasFCS {
		capacity = min(size, 4*len(data)+64)
	}
	out, err := zstdDecoder.DecodeAll(data, make([]byte, 0, capacity))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decompress: %v", ErrCorruptData, err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("%w: zstd decompress: got %d bytes, expected %d", ErrCorruptData, len(out), size)
	}
	return out, nil
}
