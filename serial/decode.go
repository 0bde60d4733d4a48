package serial

import (
	"fmt"
	"reflect"

	"github.com/chazu/tagtree/tag"
)

var stringAnyMapType = reflect.TypeOf(map[string]any(nil))

// decode assigns the value described by t to dst, which must be settable.
func (c *Context) decode(t tag.Tag, dst reflect.Value) error {
	if t == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if err := c.enter(t.Name()); err != nil {
		return err
	}
	defer c.leave()

	dt := dst.Type()
	if _, ok := t.(*tag.Null); ok {
		dst.Set(reflect.Zero(dt))
		return nil
	}

	switch Classify(dt) {
	case ClassTag:
		cv := reflect.ValueOf(t.Clone())
		if !cv.Type().AssignableTo(dt) {
			return conversionError(t, dt)
		}
		dst.Set(cv)
		return nil
	case ClassPrimitive:
		return decodePrimitive(t, dst)
	case ClassArray:
		return c.decodeList(t, dst)
	case ClassDictionary:
		return c.decodeMap(t, dst)
	}

	switch dt.Kind() {
	case reflect.Interface:
		return c.decodeInterface(t, dst)
	case reflect.Ptr:
		if isObjectPtr(dt) {
			return c.decodeObjectInto(t, dst)
		}
		p := reflect.New(dt.Elem())
		if err := c.decode(t, p.Elem()); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	case reflect.Struct:
		comp, ok := t.(*tag.Compound)
		if !ok {
			return conversionError(t, dt)
		}
		p := reflect.New(dt)
		if err := c.populate(comp, p); err != nil {
			return err
		}
		dst.Set(p.Elem())
		return nil
	}
	return conversionError(t, dt)
}

// decodeObjectInto decodes a compound into a pointer-to-struct destination.
func (c *Context) decodeObjectInto(t tag.Tag, dst reflect.Value) error {
	dt := dst.Type()
	comp, ok := t.(*tag.Compound)
	if !ok {
		return conversionError(t, dt)
	}
	// Make sure the destination's own type resolves even when nothing in
	// this process has encoded or registered it yet.
	c.registry.NameOf(dt)

	ptr, err := c.decodeObject(comp)
	if err != nil {
		return err
	}
	if !ptr.IsValid() {
		dst.Set(reflect.Zero(dt))
		return nil
	}
	if !ptr.Type().AssignableTo(dt) {
		return fmt.Errorf("%w: %s (%q) into %s", ErrUnsupportedConversion, ptr.Type(), comp.Name(), dt)
	}
	dst.Set(ptr)
	return nil
}

// decodeObject materializes the object a compound describes and returns a
// pointer to it. An invalid Value with a nil error means "no object".
func (c *Context) decodeObject(comp *tag.Compound) (reflect.Value, error) {
	id := comp.SerializedID
	if id != 0 {
		if existing, ok := c.objects[id]; ok {
			return existing, nil
		}
	}
	if comp.SerializedType == "" {
		return reflect.Value{}, nil
	}
	typ, ok := c.registry.Lookup(comp.SerializedType)
	if !ok {
		return reflect.Value{}, c.resolveFailed(comp)
	}

	ptr := reflect.New(typ)
	if id != 0 {
		// Registered before population so that references back to this
		// object, including cycles, resolve to the same instance.
		c.objects[id] = ptr
		c.objectIndex[objectKey{ptr.Pointer(), ptr.Type()}] = id
		if id >= c.nextID {
			c.nextID = id + 1
		}
	}
	if err := c.populate(comp, ptr); err != nil {
		return reflect.Value{}, err
	}
	return ptr, nil
}

// resolveFailed handles a compound whose type name is not registered. In
// strict mode it is an error; otherwise it is logged and recorded, and the
// subtree decodes as nil.
func (c *Context) resolveFailed(comp *tag.Compound) error {
	err := fmt.Errorf("%w: %q in %q", ErrUnresolvedType, comp.SerializedType, comp.Name())
	if c.strict {
		return err
	}
	c.logger.Warningf("%s; decoding as nil", err)
	c.unresolved = append(c.unresolved, err)
	return nil
}

// populate runs the decode lifecycle of a freshly allocated object.
func (c *Context) populate(comp *tag.Compound, ptr reflect.Value) error {
	obj := ptr.Interface()
	st := ptr.Type().Elem()

	if h, ok := obj.(PostCreator); ok {
		h.PostCreate()
	}
	if h, ok := obj.(PreDeserializer); ok {
		h.PreDeserialize()
	}

	if s, ok := obj.(Serializable); ok {
		if err := s.DeserializeTag(comp, c); err != nil {
			return wrapPath(err, st.Name())
		}
	} else if err := c.populateFields(comp, ptr.Elem()); err != nil {
		return err
	}

	if h, ok := obj.(PostDeserializer); ok {
		h.PostDeserialize()
	}
	return nil
}

func (c *Context) populateFields(comp *tag.Compound, sv reflect.Value) error {
	info := c.registry.describe(sv.Type())
	for i := range info.fields {
		f := &info.fields[i]
		child, ok := comp.Get(f.name)
		if !ok {
			for _, former := range f.formerly {
				if child, ok = comp.Get(former); ok {
					c.logger.Debugf("%s.%s: read from former name %q", sv.Type().Name(), f.goName, former)
					break
				}
			}
		}
		if !ok {
			// Missing fields keep their zero value.
			continue
		}
		fv, _ := f.value(sv, true)
		if err := c.decode(child, fv); err != nil {
			return wrapPath(err, sv.Type().Name()+"."+f.goName)
		}
	}
	return nil
}

// decodeInterface decodes into an interface destination, choosing the
// concrete type from the tag itself.
func (c *Context) decodeInterface(t tag.Tag, dst reflect.Value) error {
	dt := dst.Type()
	var v reflect.Value

	switch tt := t.(type) {
	case *tag.List:
		v = reflect.New(naturalListType(tt.ElemKind)).Elem()
		if err := c.decodeList(tt, v); err != nil {
			return err
		}
	case *tag.Compound:
		if tt.SerializedType == "" && tt.SerializedID == 0 {
			// A dictionary. An empty one is indistinguishable from the
			// "no object" placeholder and decodes as nil.
			if tt.Len() == 0 {
				dst.Set(reflect.Zero(dt))
				return nil
			}
			v = reflect.New(stringAnyMapType).Elem()
			if err := c.decodeMap(tt, v); err != nil {
				return err
			}
			break
		}
		ptr, err := c.decodeObject(tt)
		if err != nil {
			return err
		}
		if !ptr.IsValid() {
			dst.Set(reflect.Zero(dt))
			return nil
		}
		v = ptr
		if tt.SerializedID == 0 && ptr.Elem().Type().AssignableTo(dt) {
			// Written from a struct value rather than a pointer.
			v = ptr.Elem()
		}
	default:
		nv, ok := naturalValue(t)
		if !ok {
			return conversionError(t, dt)
		}
		v = nv
	}

	if !v.Type().AssignableTo(dt) {
		return fmt.Errorf("%w: %s (%q) into %s", ErrUnsupportedConversion, v.Type(), t.Name(), dt)
	}
	dst.Set(v)
	return nil
}

// decodeList decodes a List into a slice or array destination. Elements
// take the destination's element type.
func (c *Context) decodeList(t tag.Tag, dst reflect.Value) error {
	dt := dst.Type()
	l, ok := t.(*tag.List)
	if !ok {
		return conversionError(t, dt)
	}
	n := len(l.Items)

	var out reflect.Value
	switch dt.Kind() {
	case reflect.Slice:
		out = reflect.MakeSlice(dt, n, n)
	case reflect.Array:
		if n > dt.Len() {
			return fmt.Errorf("%w: list of %d into %s", ErrUnsupportedConversion, n, dt)
		}
		out = reflect.New(dt).Elem()
	default:
		return conversionError(t, dt)
	}

	for i, item := range l.Items {
		if err := c.decode(item, out.Index(i)); err != nil {
			return wrapPath(err, fmt.Sprintf("%s[%d]", l.Name(), i))
		}
	}
	dst.Set(out)
	return nil
}

// decodeMap decodes a compound into a map destination, one entry per child.
func (c *Context) decodeMap(t tag.Tag, dst reflect.Value) error {
	dt := dst.Type()
	comp, ok := t.(*tag.Compound)
	if !ok {
		return conversionError(t, dt)
	}
	kt := dt.Key()
	if kt.Kind() != reflect.String && kt.Kind() != reflect.Interface {
		return fmt.Errorf("%w: %s", ErrUnsupportedKeyType, kt)
	}

	m := reflect.MakeMapWithSize(dt, comp.Len())
	for _, child := range comp.Tags() {
		val := reflect.New(dt.Elem()).Elem()
		if err := c.decode(child, val); err != nil {
			return wrapPath(err, fmt.Sprintf("%s[%q]", comp.Name(), child.Name()))
		}
		m.SetMapIndex(reflect.ValueOf(child.Name()).Convert(kt), val)
	}
	dst.Set(m)
	return nil
}
