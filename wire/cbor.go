package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/tagtree/tag"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	// Each tag level is a map plus an array in the mirror, so the default
	// nesting limit of 32 would cap trees at about 16 levels.
	dm, err := cbor.DecOptions{
		MaxNestedLevels: 2*MaxDepth + 4,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// MarshalCBOR encodes t as canonical CBOR. Equal trees always produce
// identical bytes.
func MarshalCBOR(t tag.Tag) ([]byte, error) {
	n, err := toNode(t, 0)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(n)
}

// UnmarshalCBOR decodes a tree written by MarshalCBOR.
func UnmarshalCBOR(data []byte) (tag.Tag, error) {
	var n node
	if err := cborDecMode.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: unmarshal cbor: %v", ErrCorruptData, err)
	}
	return fromNode(&n, 0)
}
