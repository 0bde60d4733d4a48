package serial

import "github.com/chazu/tagtree/tag"

// Lifecycle hooks. A type opts in by implementing any subset of these on
// its pointer receiver.

// PreSerializer is called right before an object is written, so it can
// refresh cached state it wants captured.
type PreSerializer interface {
	PreSerialize()
}

// PostSerializer is called right after an object has been written.
type PostSerializer interface {
	PostSerialize()
}

// PostCreator is called right after a zero instance is allocated during
// decode and registered under its identity id. Constructors never run on
// decode, so this is where defaults that must always hold get restored.
type PostCreator interface {
	PostCreate()
}

// PreDeserializer is called after PostCreate and before any field is
// populated.
type PreDeserializer interface {
	PreDeserialize()
}

// PostDeserializer is called after all fields have been populated.
type PostDeserializer interface {
	PostDeserialize()
}

// Callbacks groups the four serialize/deserialize hooks.
type Callbacks interface {
	PreSerializer
	PostSerializer
	PreDeserializer
	PostDeserializer
}

// Serializable types own their compound shape instead of having their
// fields enumerated. Both methods receive the active Context so nested
// values keep sharing the identity space, and so dependencies can be
// recorded.
//
// The serializer still assigns identity and stamps the id and type name on
// the compound returned by SerializeTag, and every child of that compound
// must be named.
type Serializable interface {
	SerializeTag(ctx *Context) (*tag.Compound, error)
	DeserializeTag(c *tag.Compound, ctx *Context) error
}
