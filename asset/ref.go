package asset

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/tagtree/serial"
	"github.com/chazu/tagtree/tag"
)

// refTypeName is the registered type name of Ref compounds.
const refTypeName = "tagtree.AssetRef"

const refIDTag = "AssetID"

// Ref points at another asset by id. Serializing a Ref records the id as a
// dependency on the active context.
type Ref struct {
	ID uuid.UUID
}

// NewRef returns a reference to the asset id.
func NewRef(id uuid.UUID) Ref {
	return Ref{ID: id}
}

// IsZero reports whether the reference points nowhere.
func (r *Ref) IsZero() bool {
	return r.ID == uuid.Nil
}

func (r *Ref) SerializeTag(ctx *serial.Context) (*tag.Compound, error) {
	c := tag.NewCompound("")
	if r.ID != uuid.Nil {
		c.Add(tag.NewString(refIDTag, r.ID.String()))
		ctx.AddDependency(r.ID)
	}
	return c, nil
}

func (r *Ref) DeserializeTag(c *tag.Compound, ctx *serial.Context) error {
	s, ok := c.GetString(refIDTag)
	if !ok {
		r.ID = uuid.Nil
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("asset: reference id %q: %w", s, err)
	}
	r.ID = id
	ctx.AddDependency(id)
	return nil
}

// ScanDependencies returns the ids of every Ref in t, in tree order and
// without duplicates. It reads the tree directly, so it works for trees
// whose types are not registered in this process.
func ScanDependencies(t tag.Tag) []uuid.UUID {
	var deps []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	tag.Walk(t, func(n tag.Tag) bool {
		c, ok := n.(*tag.Compound)
		if !ok || c.SerializedType != refTypeName {
			return true
		}
		s, ok := c.GetString(refIDTag)
		if !ok {
			return false
		}
		id, err := uuid.Parse(s)
		if err != nil || id == uuid.Nil || seen[id] {
			return false
		}
		seen[id] = true
		deps = append(deps, id)
		return false
	})
	return deps
}
