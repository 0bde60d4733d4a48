package serial

import "github.com/chazu/tagtree/tag"

// Serialize converts value into a tag tree rooted at a tag named rootName,
// using a fresh Context. On error no tag is returned.
func Serialize(value any, rootName string) (tag.Tag, error) {
	return NewContext().Serialize(value, rootName)
}

// SerializeWith is Serialize within an existing identity space. Objects
// already written through ctx are emitted as back-references.
func SerializeWith(value any, rootName string, ctx *Context) (tag.Tag, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	return ctx.Serialize(value, rootName)
}

// Deserialize rebuilds a value of type T from t using a fresh Context.
func Deserialize[T any](t tag.Tag) (T, error) {
	return DeserializeWith[T](t, NewContext())
}

// DeserializeWith is Deserialize within an existing identity space.
func DeserializeWith[T any](t tag.Tag, ctx *Context) (T, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	var out T
	if err := ctx.DeserializeInto(t, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
