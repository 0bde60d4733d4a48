package tag

import "fmt"

// ---------------------------------------------------------------------------
// Frozen kind bytes for tag variants.
//
// IMPORTANT: These values are FROZEN. They are written verbatim by the wire
// codecs, so a kind byte must never change meaning. Adding new kinds is fine;
// changing existing ones breaks every previously written tag tree.
// ---------------------------------------------------------------------------

// Kind identifies a tag variant.
type Kind byte

const (
	KindNull      Kind = 0x00
	KindByte      Kind = 0x01
	KindShort     Kind = 0x02
	KindInt       Kind = 0x03
	KindLong      Kind = 0x04
	KindFloat     Kind = 0x05
	KindDouble    Kind = 0x06
	KindString    Kind = 0x07
	KindByteArray Kind = 0x08
	KindList      Kind = 0x09
	KindCompound  Kind = 0x0A
)

// allKinds lists every defined kind for uniqueness verification in tests.
var allKinds = []Kind{
	KindNull, KindByte, KindShort, KindInt, KindLong, KindFloat,
	KindDouble, KindString, KindByteArray, KindList, KindCompound,
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k <= KindCompound
}

// Primitive reports whether tags of this kind hold a single scalar value.
func (k Kind) Primitive() bool {
	return k >= KindByte && k <= KindByteArray
}

// String returns the human-readable name of a kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindByte:
		return "Byte"
	case KindShort:
		return "Short"
	case KindInt:
		return "Int"
	case KindLong:
		return "Long"
	case KindFloat:
		return "Float"
	case KindDouble:
		return "Double"
	case KindString:
		return "String"
	case KindByteArray:
		return "ByteArray"
	case KindList:
		return "List"
	case KindCompound:
		return "Compound"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// ParseKind parses a kind from its String form.
func ParseKind(name string) (Kind, error) {
	for _, k := range allKinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown tag kind: %q", name)
}
