package asset

import (
	"fmt"

	"github.com/chazu/tagtree/serial"
	"github.com/chazu/tagtree/tag"
)

// Prefab keeps a pre-serialized object graph that can be instantiated any
// number of times. The tree is embedded as-is when the prefab itself is
// saved.
type Prefab struct {
	Root *tag.Compound
}

// NewPrefab captures the current state of v.
func NewPrefab(v any) (*Prefab, error) {
	t, err := serial.Serialize(v, "root")
	if err != nil {
		return nil, fmt.Errorf("asset: prefab: %w", err)
	}
	root, ok := t.(*tag.Compound)
	if !ok {
		return nil, fmt.Errorf("asset: prefab: %T encodes as %s, want an object", v, t.Kind())
	}
	return &Prefab{Root: root}, nil
}

// Instantiate decodes a fresh object graph from p. Every call yields new
// instances; p itself is left untouched.
func Instantiate[T any](p *Prefab) (T, error) {
	if p == nil || p.Root == nil {
		var zero T
		return zero, fmt.Errorf("asset: instantiate: empty prefab")
	}
	return serial.Deserialize[T](p.Root)
}
