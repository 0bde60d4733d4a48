package serial

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/chazu/tagtree/tag"
)

// encode converts v into a tag named name.
func (c *Context) encode(v reflect.Value, name string) (tag.Tag, error) {
	if err := c.enter(name); err != nil {
		return nil, err
	}
	defer c.leave()

	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return tag.NewNull(name), nil
		}
		v = v.Elem()
	}
	if isNil(v) {
		return tag.NewNull(name), nil
	}

	t := v.Type()
	switch Classify(t) {
	case ClassTag:
		out := v.Interface().(tag.Tag).Clone()
		out.SetName(name)
		return out, nil
	case ClassPrimitive:
		return encodePrimitive(v, name)
	case ClassArray:
		return c.encodeList(v, name)
	case ClassDictionary:
		return c.encodeMap(v, name)
	}

	switch t.Kind() {
	case reflect.Ptr:
		if isObjectPtr(t) {
			return c.encodeObject(v, name)
		}
		return c.encode(v.Elem(), name)
	case reflect.Struct:
		if !v.CanAddr() {
			cp := reflect.New(t).Elem()
			cp.Set(v)
			v = cp
		}
		// Struct values have no reference identity.
		return c.encodeStruct(v.Addr(), name, 0)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPrimitive, t)
}

// isObjectPtr reports whether t is a pointer to a struct that is walked
// field by field, which is the only shape that receives identity.
func isObjectPtr(t reflect.Type) bool {
	return t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct && Classify(t.Elem()) == ClassObject
}

// encodeObject writes the struct ptr points to, or a back-reference when
// the pointer was already visited by this context.
func (c *Context) encodeObject(ptr reflect.Value, name string) (tag.Tag, error) {
	if id, ok := c.objectIndex[objectKey{ptr.Pointer(), ptr.Type()}]; ok {
		ref := tag.NewCompound(name)
		ref.SerializedID = id
		return ref, nil
	}
	// Registered before descending so a cycle back to ptr ends in the
	// branch above.
	id := c.register(ptr)
	return c.encodeStruct(ptr, name, id)
}

func (c *Context) encodeStruct(ptr reflect.Value, name string, id int32) (tag.Tag, error) {
	st := ptr.Type().Elem()
	obj := ptr.Interface()

	if h, ok := obj.(PreSerializer); ok {
		h.PreSerialize()
	}

	var out *tag.Compound
	if s, ok := obj.(Serializable); ok {
		custom, err := s.SerializeTag(c)
		if err != nil {
			return nil, wrapPath(err, st.Name())
		}
		if custom == nil {
			custom = tag.NewCompound(name)
		}
		if err := checkChildNames(custom); err != nil {
			return nil, wrapPath(err, st.Name())
		}
		custom.SetName(name)
		out = custom
	} else {
		out = tag.NewCompound(name)
		info := c.registry.describe(st)
		for i := range info.fields {
			f := &info.fields[i]
			fv, ok := f.value(ptr.Elem(), false)
			if !ok {
				continue
			}
			if f.omitNil && isNilable(fv.Kind()) && fv.IsNil() {
				continue
			}
			child, err := c.encode(fv, f.name)
			if err != nil {
				return nil, wrapPath(err, st.Name()+"."+f.goName)
			}
			out.Add(child)
		}
	}

	out.SerializedID = id
	out.SerializedType = c.registry.NameOf(st)

	if h, ok := obj.(PostSerializer); ok {
		h.PostSerialize()
	}
	return out, nil
}

func checkChildNames(c *tag.Compound) error {
	for i, child := range c.Tags() {
		if child == nil {
			return fmt.Errorf("%w: child %d of %q is nil", ErrMissingTagName, i, c.Name())
		}
		if child.Name() == "" {
			return fmt.Errorf("%w: child %d (%s) of %q", ErrMissingTagName, i, child.Kind(), c.Name())
		}
	}
	return nil
}

// encodeList writes a slice or array. The element kind comes from the
// static element type so that empty and nil-free lists agree.
func (c *Context) encodeList(v reflect.Value, name string) (tag.Tag, error) {
	elemType := v.Type().Elem()
	kind := listElemKind(elemType)

	n := v.Len()
	items := make([]tag.Tag, n)
	for i := 0; i < n; i++ {
		ev := v.Index(i)
		if kind == tag.KindByteArray && ev.IsNil() {
			// Keep byte-slice lists homogeneous.
			items[i] = tag.NewByteArray("", nil)
			continue
		}
		item, err := c.encode(ev, "")
		if err != nil {
			return nil, wrapPath(err, fmt.Sprintf("%s[%d]", name, i))
		}
		items[i] = item
	}
	return tag.NewList(name, kind, items), nil
}

// encodeMap writes a map as an untyped compound, one child per entry,
// ordered by key.
func (c *Context) encodeMap(v reflect.Value, name string) (tag.Tag, error) {
	mt := v.Type()
	keyKind := mt.Key().Kind()
	if keyKind != reflect.String && keyKind != reflect.Interface {
		return nil, fmt.Errorf("%w: %s in %q", ErrUnsupportedKeyType, mt.Key(), name)
	}

	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k := iter.Key()
		if k.Kind() == reflect.Interface {
			k = k.Elem()
		}
		if !k.IsValid() || k.Kind() != reflect.String {
			return nil, fmt.Errorf("%w: key %v in %q", ErrUnsupportedKeyType, iter.Key(), name)
		}
		if k.String() == "" {
			return nil, fmt.Errorf("%w: empty key in %q", ErrMissingTagName, name)
		}
		entries = append(entries, entry{k.String(), iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	out := tag.NewCompound(name)
	for _, e := range entries {
		child, err := c.encode(e.value, e.key)
		if err != nil {
			return nil, wrapPath(err, fmt.Sprintf("%s[%q]", name, e.key))
		}
		out.Add(child)
	}
	return out, nil
}
