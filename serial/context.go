package serial

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/tagtree/tag"
)

// DefaultMaxDepth bounds how deeply a walk may nest before it is abandoned
// with ErrDepthExceeded. It matches the nesting limit of the wire codecs.
const DefaultMaxDepth = 4096

var log = commonlog.GetLogger("tagtree.serial")

// Config configures a Context.
type Config struct {
	// Registry resolves type names. Nil selects DefaultRegistry.
	Registry *Registry

	// Strict makes unresolved type names abort the decode instead of
	// degrading the affected subtree to nil.
	Strict bool

	// MaxDepth bounds nesting. Zero selects DefaultMaxDepth.
	MaxDepth int

	// Logger receives warnings about degraded decodes. Nil selects the
	// "tagtree.serial" logger.
	Logger commonlog.Logger
}

// objectKey identifies an object by address and type. The type is part of
// the key because a struct and its first field share an address.
type objectKey struct {
	ptr uintptr
	typ reflect.Type
}

// Context carries identity state for one serialize or deserialize call. A
// Context may be reused across related calls to share one id space, but it
// is not safe for concurrent use.
type Context struct {
	registry *Registry
	strict   bool
	maxDepth int
	logger   commonlog.Logger

	// Identity: object -> id for encode, id -> object for both directions.
	objectIndex map[objectKey]int32
	objects     map[int32]reflect.Value
	nextID      int32

	dependencies []uuid.UUID
	depIndex     map[uuid.UUID]struct{}

	unresolved []error
	depth      int
}

// NewContext creates a Context with the default configuration.
func NewContext() *Context {
	return NewContextWithConfig(Config{})
}

// NewContextWithConfig creates a Context from cfg.
func NewContextWithConfig(cfg Config) *Context {
	c := &Context{
		registry:    cfg.Registry,
		strict:      cfg.Strict,
		maxDepth:    cfg.MaxDepth,
		logger:      cfg.Logger,
		objectIndex: make(map[objectKey]int32),
		objects:     make(map[int32]reflect.Value),
		nextID:      1,
		depIndex:    make(map[uuid.UUID]struct{}),
	}
	if c.registry == nil {
		c.registry = defaultRegistry
	}
	if c.maxDepth <= 0 {
		c.maxDepth = DefaultMaxDepth
	}
	if c.logger == nil {
		c.logger = log
	}
	return c
}

// Registry returns the registry the context resolves types with.
func (c *Context) Registry() *Registry {
	return c.registry
}

// NextID returns the id the next newly visited object will receive.
func (c *Context) NextID() int32 {
	return c.nextID
}

// ObjectCount returns the number of objects registered under an id.
func (c *Context) ObjectCount() int {
	return len(c.objects)
}

// IDOf returns the identity id assigned to obj during encode.
func (c *Context) IDOf(obj any) (int32, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return 0, false
	}
	id, ok := c.objectIndex[objectKey{v.Pointer(), v.Type()}]
	return id, ok
}

// Lookup returns the object registered under id.
func (c *Context) Lookup(id int32) (any, bool) {
	v, ok := c.objects[id]
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

// register assigns the next id to the pointer v.
func (c *Context) register(v reflect.Value) int32 {
	id := c.nextID
	c.nextID++
	c.objectIndex[objectKey{v.Pointer(), v.Type()}] = id
	c.objects[id] = v
	return id
}

// AddDependency records an external resource the walk depends on. Adding
// the same id twice has no effect.
func (c *Context) AddDependency(id uuid.UUID) {
	if id == uuid.Nil {
		return
	}
	if _, ok := c.depIndex[id]; ok {
		return
	}
	c.depIndex[id] = struct{}{}
	c.dependencies = append(c.dependencies, id)
}

// Dependencies returns the recorded dependencies in the order they were
// first added.
func (c *Context) Dependencies() []uuid.UUID {
	out := make([]uuid.UUID, len(c.dependencies))
	copy(out, c.dependencies)
	return out
}

// Unresolved returns the ErrUnresolvedType errors for subtrees that decoded
// to nil.
func (c *Context) Unresolved() []error {
	return c.unresolved
}

// Serialize converts value into a tag named name, sharing this context's
// identity space. A failed call leaves the context as it was, so objects it
// visited are written in full by a later call.
func (c *Context) Serialize(value any, name string) (tag.Tag, error) {
	firstID, deps := c.nextID, len(c.dependencies)
	t, err := c.encode(reflect.ValueOf(value), name)
	if err != nil {
		c.rollback(firstID, deps)
		return nil, err
	}
	return t, nil
}

// rollback forgets objects registered from firstID on and dependencies
// added after the first deps entries.
func (c *Context) rollback(firstID int32, deps int) {
	for id := firstID; id < c.nextID; id++ {
		v, ok := c.objects[id]
		if !ok {
			continue
		}
		delete(c.objects, id)
		key := objectKey{v.Pointer(), v.Type()}
		if c.objectIndex[key] == id {
			delete(c.objectIndex, key)
		}
	}
	c.nextID = firstID
	for _, id := range c.dependencies[deps:] {
		delete(c.depIndex, id)
	}
	c.dependencies = c.dependencies[:deps]
}

// DeserializeInto decodes t into the value target points to. Objects
// already registered in this context are reused rather than rebuilt.
func (c *Context) DeserializeInto(t tag.Tag, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("%w: got %T", ErrInvalidTarget, target)
	}
	return c.decode(t, v.Elem())
}

// enter tracks nesting depth. Every call must be paired with leave.
func (c *Context) enter(name string) error {
	c.depth++
	if c.depth > c.maxDepth {
		c.depth--
		return fmt.Errorf("%w: %d levels at %q", ErrDepthExceeded, c.maxDepth, name)
	}
	return nil
}

func (c *Context) leave() {
	c.depth--
}
