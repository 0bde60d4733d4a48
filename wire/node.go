package wire

import (
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/chazu/tagtree/tag"
)

// node mirrors a tag as a plain struct so that generic encoders (CBOR,
// YAML) can carry a tree. Scalars share a few value fields keyed by kind.
type node struct {
	Kind     nodeKind `cbor:"1,keyasint" yaml:"kind"`
	Name     string   `cbor:"2,keyasint,omitempty" yaml:"name,omitempty"`
	ID       int32    `cbor:"3,keyasint,omitempty" yaml:"id,omitempty"`
	Type     string   `cbor:"4,keyasint,omitempty" yaml:"type,omitempty"`
	Elem     nodeKind `cbor:"5,keyasint,omitempty" yaml:"elem,omitempty"`
	Int      int64    `cbor:"6,keyasint,omitempty" yaml:"int,omitempty"`
	Float    float64  `cbor:"7,keyasint,omitempty" yaml:"float,omitempty"`
	String   string   `cbor:"8,keyasint,omitempty" yaml:"string,omitempty"`
	Bytes    hexBytes `cbor:"9,keyasint,omitempty" yaml:"bytes,omitempty"`
	Items    []*node  `cbor:"10,keyasint,omitempty" yaml:"items,omitempty"`
	Children []*node  `cbor:"11,keyasint,omitempty" yaml:"children,omitempty"`
}

// nodeKind is a tag kind that reads and writes its name in YAML.
type nodeKind tag.Kind

func (k nodeKind) MarshalYAML() (any, error) {
	return tag.Kind(k).String(), nil
}

func (k *nodeKind) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	parsed, err := tag.ParseKind(name)
	if err != nil {
		return err
	}
	*k = nodeKind(parsed)
	return nil
}

// hexBytes is a byte slice written as a hex string in YAML. CBOR keeps it
// as a byte string.
type hexBytes []byte

func (b hexBytes) MarshalYAML() (any, error) {
	return hex.EncodeToString(b), nil
}

func (b *hexBytes) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = raw
	return nil
}

func toNode(t tag.Tag, depth int) (*node, error) {
	if t == nil {
		return nil, fmt.Errorf("wire: cannot encode a nil tag")
	}
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrTooDeep, MaxDepth)
	}
	n := &node{Kind: nodeKind(t.Kind()), Name: t.Name()}
	switch v := t.(type) {
	case *tag.Null:
	case *tag.Byte:
		n.Int = int64(v.Value)
	case *tag.Short:
		n.Int = int64(v.Value)
	case *tag.Int:
		n.Int = int64(v.Value)
	case *tag.Long:
		n.Int = v.Value
	case *tag.Float:
		n.Float = float64(v.Value)
	case *tag.Double:
		n.Float = v.Value
	case *tag.String:
		n.String = v.Value
	case *tag.ByteArray:
		n.Bytes = hexBytes(v.Value)
	case *tag.List:
		n.Elem = nodeKind(v.ElemKind)
		n.Items = make([]*node, len(v.Items))
		for i, item := range v.Items {
			child, err := toNode(item, depth+1)
			if err != nil {
				return nil, err
			}
			child.Name = ""
			n.Items[i] = child
		}
	case *tag.Compound:
		n.ID = v.SerializedID
		n.Type = v.SerializedType
		n.Children = make([]*node, v.Len())
		for i, c := range v.Tags() {
			child, err := toNode(c, depth+1)
			if err != nil {
				return nil, err
			}
			n.Children[i] = child
		}
	default:
		return nil, fmt.Errorf("wire: unsupported tag type %T", t)
	}
	return n, nil
}

func fromNode(n *node, depth int) (tag.Tag, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: missing node", ErrCorruptData)
	}
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrCorruptData, MaxDepth)
	}

	switch kind := tag.Kind(n.Kind); kind {
	case tag.KindNull:
		return tag.NewNull(n.Name), nil
	case tag.KindByte:
		return tag.NewByte(n.Name, uint8(n.Int)), nil
	case tag.KindShort:
		return tag.NewShort(n.Name, int16(n.Int)), nil
	case tag.KindInt:
		return tag.NewInt(n.Name, int32(n.Int)), nil
	case tag.KindLong:
		return tag.NewLong(n.Name, n.Int), nil
	case tag.KindFloat:
		return tag.NewFloat(n.Name, float32(n.Float)), nil
	case tag.KindDouble:
		return tag.NewDouble(n.Name, n.Float), nil
	case tag.KindString:
		return tag.NewString(n.Name, n.String), nil
	case tag.KindByteArray:
		buf := make([]byte, len(n.Bytes))
		copy(buf, n.Bytes)
		return tag.NewByteArray(n.Name, buf), nil

	case tag.KindList:
		elemKind := tag.Kind(n.Elem)
		if !elemKind.Valid() {
			return nil, fmt.Errorf("%w: invalid list element kind %d", ErrCorruptData, n.Elem)
		}
		items := make([]tag.Tag, len(n.Items))
		for i, in := range n.Items {
			item, err := fromNode(in, depth+1)
			if err != nil {
				return nil, err
			}
			if elemKind != tag.KindCompound && item.Kind() != elemKind {
				return nil, fmt.Errorf("%w: list of %s holds %s at %d", ErrCorruptData, elemKind, item.Kind(), i)
			}
			item.SetName("")
			items[i] = item
		}
		return tag.NewList(n.Name, elemKind, items), nil

	case tag.KindCompound:
		c := tag.NewCompound(n.Name)
		c.SerializedID = n.ID
		c.SerializedType = n.Type
		for _, cn := range n.Children {
			child, err := fromNode(cn, depth+1)
			if err != nil {
				return nil, err
			}
			c.Add(child)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("%w: invalid kind %d", ErrCorruptData, uint8(kind))
	}
}
