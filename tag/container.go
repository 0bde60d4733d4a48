package tag

// List is an ordered sequence of unnamed tags. ElemKind declares the kind of
// every element; KindCompound means elements are arbitrary full tags
// (objects, nested lists, or a mix including Null).
type List struct {
	named
	ElemKind Kind
	Items    []Tag
}

// NewList creates a List tag.
func NewList(name string, elemKind Kind, items []Tag) *List {
	return &List{named: named{name}, ElemKind: elemKind, Items: items}
}

func (t *List) Kind() Kind { return KindList }

// Len returns the number of elements.
func (t *List) Len() int { return len(t.Items) }

// At returns the element at position i.
func (t *List) At(i int) Tag { return t.Items[i] }

// Add appends an element. Elements are stored unnamed.
func (t *List) Add(item Tag) {
	item.SetName("")
	t.Items = append(t.Items, item)
}

func (t *List) Clone() Tag {
	items := make([]Tag, len(t.Items))
	for i, item := range t.Items {
		items[i] = item.Clone()
	}
	return NewList(t.name, t.ElemKind, items)
}

// Compound is a named, ordered collection of child tags representing an
// object or a dictionary.
//
// SerializedID is the identity id of the object the compound was produced
// from; 0 means the compound has no identity. A compound carrying an id and
// no children is a back-reference to an object written earlier in the tree.
// SerializedType names the concrete type of the object, or is empty for
// dictionaries and custom shapes that do not need one.
type Compound struct {
	named
	SerializedID   int32
	SerializedType string

	children []Tag
}

// NewCompound creates an empty Compound tag.
func NewCompound(name string) *Compound {
	return &Compound{named: named{name}}
}

func (t *Compound) Kind() Kind { return KindCompound }

// Len returns the number of children.
func (t *Compound) Len() int { return len(t.children) }

// Tags returns the children in tree order. The slice must not be modified.
func (t *Compound) Tags() []Tag { return t.children }

// Add appends a child. Children are looked up by name, so callers are
// expected to give each child a distinct non-empty name.
func (t *Compound) Add(child Tag) {
	t.children = append(t.children, child)
}

// Get returns the first child with the given name.
func (t *Compound) Get(name string) (Tag, bool) {
	for _, child := range t.children {
		if child.Name() == name {
			return child, true
		}
	}
	return nil, false
}

// Has reports whether a child with the given name exists.
func (t *Compound) Has(name string) bool {
	_, ok := t.Get(name)
	return ok
}

// Set replaces the first child named like child, or appends it.
func (t *Compound) Set(child Tag) {
	for i, existing := range t.children {
		if existing.Name() == child.Name() {
			t.children[i] = child
			return
		}
	}
	t.children = append(t.children, child)
}

// Remove deletes the first child with the given name and reports whether
// one was found.
func (t *Compound) Remove(name string) bool {
	for i, child := range t.children {
		if child.Name() == name {
			t.children = append(t.children[:i], t.children[i+1:]...)
			return true
		}
	}
	return false
}

// IsReference reports whether the compound only points at an object that
// was written earlier in the tree.
func (t *Compound) IsReference() bool {
	return t.SerializedID != 0 && len(t.children) == 0 && t.SerializedType == ""
}

func (t *Compound) Clone() Tag {
	c := &Compound{
		named:          named{t.name},
		SerializedID:   t.SerializedID,
		SerializedType: t.SerializedType,
	}
	if len(t.children) > 0 {
		c.children = make([]Tag, len(t.children))
		for i, child := range t.children {
			c.children[i] = child.Clone()
		}
	}
	return c
}

// Typed child accessors. Each returns false when the child is missing or of
// a different kind.

// GetString returns the value of a String child.
func (t *Compound) GetString(name string) (string, bool) {
	child, ok := t.Get(name)
	if !ok {
		return "", false
	}
	s, ok := child.(*String)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// GetLong returns the value of an integer child widened to int64.
func (t *Compound) GetLong(name string) (int64, bool) {
	child, ok := t.Get(name)
	if !ok {
		return 0, false
	}
	return IntegerValue(child)
}

// GetCompound returns a Compound child.
func (t *Compound) GetCompound(name string) (*Compound, bool) {
	child, ok := t.Get(name)
	if !ok {
		return nil, false
	}
	c, ok := child.(*Compound)
	return c, ok
}

// GetList returns a List child.
func (t *Compound) GetList(name string) (*List, bool) {
	child, ok := t.Get(name)
	if !ok {
		return nil, false
	}
	l, ok := child.(*List)
	return l, ok
}

// IntegerValue returns the value of a Byte, Short, Int or Long tag widened
// to int64. Byte is unsigned.
func IntegerValue(t Tag) (int64, bool) {
	switch v := t.(type) {
	case *Byte:
		return int64(v.Value), true
	case *Short:
		return int64(v.Value), true
	case *Int:
		return int64(v.Value), true
	case *Long:
		return v.Value, true
	}
	return 0, false
}
