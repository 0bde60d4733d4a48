package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chazu/tagtree/tag"
)

// ---------------------------------------------------------------------------
// Binary encoding of a tag tree.
//
// Encoding conventions:
//   - First byte: BinaryVersion
//   - Node: kind byte, name, payload
//   - List items: kind byte, payload (items are unnamed)
//   - Integers: big-endian fixed width, signed
//   - Floats: IEEE 754 big-endian bits
//   - Strings and byte arrays: uint32 big-endian length + bytes
//   - Compound payload: int32 id, type string, uint32 count, children
//   - List payload: elem kind byte, uint32 count, items
// ---------------------------------------------------------------------------

// BinaryVersion is the first byte of every binary-encoded tree.
const BinaryVersion byte = 0x01

// MaxDepth bounds tag nesting in every codec. Encoders refuse deeper
// trees so that nothing is written that the decoders would reject.
const MaxDepth = 4096

// Encode produces the binary encoding of t.
func Encode(t tag.Tag) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("wire: cannot encode a nil tag")
	}
	e := &encoder{buf: make([]byte, 0, 256)}
	e.writeByte(BinaryVersion)
	if err := e.encodeNode(t, true, 0); err != nil {
		return nil, err
	}
	return e.buf, nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) writeByte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *encoder) writeUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) writeString(v string) {
	e.writeUint32(uint32(len(v)))
	e.buf = append(e.buf, v...)
}

func (e *encoder) writeBytes(v []byte) {
	e.writeUint32(uint32(len(v)))
	e.buf = append(e.buf, v...)
}

func (e *encoder) encodeNode(t tag.Tag, named bool, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrTooDeep, MaxDepth)
	}
	e.writeByte(byte(t.Kind()))
	if named {
		e.writeString(t.Name())
	}

	switch n := t.(type) {
	case *tag.Null:
	case *tag.Byte:
		e.writeByte(n.Value)
	case *tag.Short:
		e.writeUint16(uint16(n.Value))
	case *tag.Int:
		e.writeUint32(uint32(n.Value))
	case *tag.Long:
		e.writeUint64(uint64(n.Value))
	case *tag.Float:
		e.writeUint32(math.Float32bits(n.Value))
	case *tag.Double:
		e.writeUint64(math.Float64bits(n.Value))
	case *tag.String:
		e.writeString(n.Value)
	case *tag.ByteArray:
		e.writeBytes(n.Value)

	case *tag.List:
		if !n.ElemKind.Valid() {
			return fmt.Errorf("wire: list %q has invalid element kind %d", n.Name(), n.ElemKind)
		}
		e.writeByte(byte(n.ElemKind))
		e.writeUint32(uint32(len(n.Items)))
		for i, item := range n.Items {
			if item == nil {
				return fmt.Errorf("wire: list %q item %d is nil", n.Name(), i)
			}
			if n.ElemKind != tag.KindCompound && item.Kind() != n.ElemKind {
				return fmt.Errorf("wire: list %q of %s holds %s at %d", n.Name(), n.ElemKind, item.Kind(), i)
			}
			if err := e.encodeNode(item, false, depth+1); err != nil {
				return err
			}
		}

	case *tag.Compound:
		e.writeUint32(uint32(n.SerializedID))
		e.writeString(n.SerializedType)
		children := n.Tags()
		e.writeUint32(uint32(len(children)))
		for i, child := range children {
			if child == nil {
				return fmt.Errorf("wire: compound %q child %d is nil", n.Name(), i)
			}
			if err := e.encodeNode(child, true, depth+1); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("wire: unsupported tag type %T", t)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// Decode parses the binary encoding produced by Encode. It never panics on
// malformed input; every structural problem is reported as ErrCorruptData.
func Decode(data []byte) (tag.Tag, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrCorruptData)
	}
	if data[0] != BinaryVersion {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrVersionMismatch, BinaryVersion, data[0])
	}
	d := &decoder{data: data, offset: 1}
	t, err := d.decodeNode(true, 0)
	if err != nil {
		return nil, err
	}
	if d.offset != len(d.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptData, len(d.data)-d.offset)
	}
	return t, nil
}

type decoder struct {
	data   []byte
	offset int
}

func (d *decoder) remaining() int {
	return len(d.data) - d.offset
}

func (d *decoder) eof(what string) error {
	return fmt.Errorf("%w: unexpected end of data reading %s at offset %d", ErrCorruptData, what, d.offset)
}

func (d *decoder) readByte(what string) (byte, error) {
	if d.remaining() < 1 {
		return 0, d.eof(what)
	}
	b := d.data[d.offset]
	d.offset++
	return b, nil
}

func (d *decoder) readUint16(what string) (uint16, error) {
	if d.remaining() < 2 {
		return 0, d.eof(what)
	}
	v := binary.BigEndian.Uint16(d.data[d.offset:])
	d.offset += 2
	return v, nil
}

func (d *decoder) readUint32(what string) (uint32, error) {
	if d.remaining() < 4 {
		return 0, d.eof(what)
	}
	v := binary.BigEndian.Uint32(d.data[d.offset:])
	d.offset += 4
	return v, nil
}

func (d *decoder) readUint64(what string) (uint64, error) {
	if d.remaining() < 8 {
		return 0, d.eof(what)
	}
	v := binary.BigEndian.Uint64(d.data[d.offset:])
	d.offset += 8
	return v, nil
}

func (d *decoder) readBytes(what string) ([]byte, error) {
	n, err := d.readUint32(what)
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(d.remaining()) {
		return nil, d.eof(what)
	}
	out := make([]byte, n)
	copy(out, d.data[d.offset:d.offset+int(n)])
	d.offset += int(n)
	return out, nil
}

func (d *decoder) readString(what string) (string, error) {
	n, err := d.readUint32(what)
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(d.remaining()) {
		return "", d.eof(what)
	}
	s := string(d.data[d.offset : d.offset+int(n)])
	d.offset += int(n)
	return s, nil
}

// readCount reads an element count and rejects counts that could not
// possibly fit in the remaining input, so that a corrupt count cannot
// trigger a huge allocation.
func (d *decoder) readCount(what string, minSize int) (int, error) {
	n, err := d.readUint32(what)
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(minSize) > uint64(d.remaining()) {
		return 0, fmt.Errorf("%w: %s count %d exceeds remaining %d bytes", ErrCorruptData, what, n, d.remaining())
	}
	return int(n), nil
}

func (d *decoder) decodeNode(named bool, depth int) (tag.Tag, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrCorruptData, MaxDepth)
	}
	kb, err := d.readByte("kind")
	if err != nil {
		return nil, err
	}
	kind := tag.Kind(kb)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: invalid kind 0x%02x at offset %d", ErrCorruptData, kb, d.offset-1)
	}
	name := ""
	if named {
		if name, err = d.readString("name"); err != nil {
			return nil, err
		}
	}
	return d.decodePayload(kind, name, depth)
}

func (d *decoder) decodePayload(kind tag.Kind, name string, depth int) (tag.Tag, error) {
	switch kind {
	case tag.KindNull:
		return tag.NewNull(name), nil

	case tag.KindByte:
		v, err := d.readByte("byte")
		if err != nil {
			return nil, err
		}
		return tag.NewByte(name, v), nil

	case tag.KindShort:
		v, err := d.readUint16("short")
		if err != nil {
			return nil, err
		}
		return tag.NewShort(name, int16(v)), nil

	case tag.KindInt:
		v, err := d.readUint32("int")
		if err != nil {
			return nil, err
		}
		return tag.NewInt(name, int32(v)), nil

	case tag.KindLong:
		v, err := d.readUint64("long")
		if err != nil {
			return nil, err
		}
		return tag.NewLong(name, int64(v)), nil

	case tag.KindFloat:
		v, err := d.readUint32("float")
		if err != nil {
			return nil, err
		}
		return tag.NewFloat(name, math.Float32frombits(v)), nil

	case tag.KindDouble:
		v, err := d.readUint64("double")
		if err != nil {
			return nil, err
		}
		return tag.NewDouble(name, math.Float64frombits(v)), nil

	case tag.KindString:
		v, err := d.readString("string")
		if err != nil {
			return nil, err
		}
		return tag.NewString(name, v), nil

	case tag.KindByteArray:
		v, err := d.readBytes("byte array")
		if err != nil {
			return nil, err
		}
		return tag.NewByteArray(name, v), nil

	case tag.KindList:
		eb, err := d.readByte("list element kind")
		if err != nil {
			return nil, err
		}
		elemKind := tag.Kind(eb)
		if !elemKind.Valid() {
			return nil, fmt.Errorf("%w: invalid list element kind 0x%02x", ErrCorruptData, eb)
		}
		n, err := d.readCount("list", 1)
		if err != nil {
			return nil, err
		}
		items := make([]tag.Tag, n)
		for i := range items {
			item, err := d.decodeNode(false, depth+1)
			if err != nil {
				return nil, err
			}
			if elemKind != tag.KindCompound && item.Kind() != elemKind {
				return nil, fmt.Errorf("%w: list of %s holds %s at %d", ErrCorruptData, elemKind, item.Kind(), i)
			}
			items[i] = item
		}
		return tag.NewList(name, elemKind, items), nil

	case tag.KindCompound:
		id, err := d.readUint32("compound id")
		if err != nil {
			return nil, err
		}
		typeName, err := d.readString("compound type")
		if err != nil {
			return nil, err
		}
		// A child is at least a kind byte and an empty name.
		n, err := d.readCount("compound", 5)
		if err != nil {
			return nil, err
		}
		c := tag.NewCompound(name)
		c.SerializedID = int32(id)
		c.SerializedType = typeName
		for i := 0; i < n; i++ {
			child, err := d.decodeNode(true, depth+1)
			if err != nil {
				return nil, err
			}
			c.Add(child)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: unhandled kind %s", ErrCorruptData, kind)
}
