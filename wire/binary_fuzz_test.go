package wire

import (
	"testing"

	"github.com/chazu/tagtree/tag"
)

// ---------------------------------------------------------------------------
// FuzzDecode: the binary decoder must never panic or over-allocate on
// arbitrary input. Errors are expected; panics are bugs. Whatever decodes
// must re-encode to the same bytes.
// ---------------------------------------------------------------------------

func FuzzDecode(f *testing.F) {
	if data, err := Encode(sampleTree()); err == nil {
		f.Add(data)
	}
	if data, err := Encode(tag.NewList("l", tag.KindByteArray, []tag.Tag{tag.NewByteArray("", []byte("x"))})); err == nil {
		f.Add(data)
	}
	f.Add([]byte{BinaryVersion})
	f.Add([]byte{BinaryVersion, byte(tag.KindNull), 0, 0, 0, 0})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		got, err := Decode(data)
		if err != nil {
			return
		}
		again, err := Encode(got)
		if err != nil {
			t.Fatalf("re-encode of decoded tree failed: %v", err)
		}
		if string(again) != string(data) {
			t.Fatalf("re-encode differs:\n in: %x\nout: %x", data, again)
		}
	})
}

func FuzzUnpack(f *testing.F) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		if data, err := Pack(bigTree(), PackOptions{Compression: c}); err == nil {
			f.Add(data)
		}
	}
	f.Add(PackMagic[:])

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = Unpack(data)
	})
}
