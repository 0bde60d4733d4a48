// Package tag defines the intermediate tree produced by the serializer.
//
// A tree is built from a closed set of variants: a null marker, fixed-width
// scalars, strings and byte arrays, homogeneous lists, and named compounds.
// Every tag carries a name; a child's name is its key inside the parent
// compound. Elements of a List carry the empty name because their position
// is their identity.
package tag

// Tag is one node of a tag tree.
type Tag interface {
	// Kind returns the variant of this tag.
	Kind() Kind

	// Name returns the tag's name within its parent compound.
	Name() string

	// SetName renames the tag.
	SetName(name string)

	// Clone returns a deep copy of the tag. Mutating the copy never affects
	// the original, including nested children and byte buffers.
	Clone() Tag
}

type named struct {
	name string
}

func (n *named) Name() string        { return n.name }
func (n *named) SetName(name string) { n.name = name }

// Null marks an absent value. A field that was present but nil is written as
// Null so that decode can tell it apart from a missing field.
type Null struct{ named }

// NewNull creates a Null tag.
func NewNull(name string) *Null { return &Null{named{name}} }

func (t *Null) Kind() Kind { return KindNull }
func (t *Null) Clone() Tag { return NewNull(t.name) }

// Byte holds a single unsigned byte. Booleans are written as Byte 0 or 1.
type Byte struct {
	named
	Value uint8
}

// NewByte creates a Byte tag.
func NewByte(name string, v uint8) *Byte { return &Byte{named{name}, v} }

func (t *Byte) Kind() Kind { return KindByte }
func (t *Byte) Clone() Tag { return NewByte(t.name, t.Value) }

// Short holds a 16-bit signed integer.
type Short struct {
	named
	Value int16
}

// NewShort creates a Short tag.
func NewShort(name string, v int16) *Short { return &Short{named{name}, v} }

func (t *Short) Kind() Kind { return KindShort }
func (t *Short) Clone() Tag { return NewShort(t.name, t.Value) }

// Int holds a 32-bit signed integer.
type Int struct {
	named
	Value int32
}

// NewInt creates an Int tag.
func NewInt(name string, v int32) *Int { return &Int{named{name}, v} }

func (t *Int) Kind() Kind { return KindInt }
func (t *Int) Clone() Tag { return NewInt(t.name, t.Value) }

// Long holds a 64-bit signed integer.
type Long struct {
	named
	Value int64
}

// NewLong creates a Long tag.
func NewLong(name string, v int64) *Long { return &Long{named{name}, v} }

func (t *Long) Kind() Kind { return KindLong }
func (t *Long) Clone() Tag { return NewLong(t.name, t.Value) }

// Float holds a 32-bit IEEE 754 value.
type Float struct {
	named
	Value float32
}

// NewFloat creates a Float tag.
func NewFloat(name string, v float32) *Float { return &Float{named{name}, v} }

func (t *Float) Kind() Kind { return KindFloat }
func (t *Float) Clone() Tag { return NewFloat(t.name, t.Value) }

// Double holds a 64-bit IEEE 754 value.
type Double struct {
	named
	Value float64
}

// NewDouble creates a Double tag.
func NewDouble(name string, v float64) *Double { return &Double{named{name}, v} }

func (t *Double) Kind() Kind { return KindDouble }
func (t *Double) Clone() Tag { return NewDouble(t.name, t.Value) }

// String holds a UTF-8 string.
type String struct {
	named
	Value string
}

// NewString creates a String tag.
func NewString(name, v string) *String { return &String{named{name}, v} }

func (t *String) Kind() Kind { return KindString }
func (t *String) Clone() Tag { return NewString(t.name, t.Value) }

// ByteArray holds a raw byte buffer.
type ByteArray struct {
	named
	Value []byte
}

// NewByteArray creates a ByteArray tag. The buffer is not copied.
func NewByteArray(name string, v []byte) *ByteArray { return &ByteArray{named{name}, v} }

func (t *ByteArray) Kind() Kind { return KindByteArray }

func (t *ByteArray) Clone() Tag {
	var buf []byte
	if t.Value != nil {
		buf = make([]byte, len(t.Value))
		copy(buf, t.Value)
	}
	return NewByteArray(t.name, buf)
}
