package serial

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unsafe"
)

// Struct tag keys read from serializable struct fields.
//
//	Health int    `tag:"hp"`                  // written as "hp"
//	Cache  []byte `tag:"-"`                   // never written
//	Owner  *Actor `tag:",omitnil"`            // skipped when nil
//	Level  int    `formerly:"lvl,level_num"`  // older names tried on decode
//	seed   int64  `tag:"seed"`                // unexported, opted in
const (
	nameTagKey     = "tag"
	formerlyTagKey = "formerly"
)

// Registry maps type names to Go struct types and caches the field layout
// of every struct type it has described. A Registry is safe for concurrent
// use; it is normally populated from init functions.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]reflect.Type
	names   map[reflect.Type]string
	auto    map[reflect.Type]bool // names assigned by NameOf, not by RegisterName
	aliases map[string]string
	infos   map[reflect.Type]*typeInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]reflect.Type),
		names:   make(map[reflect.Type]string),
		auto:    make(map[reflect.Type]bool),
		aliases: make(map[string]string),
		infos:   make(map[reflect.Type]*typeInfo),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by contexts that
// are not configured with their own.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds T to the default registry under name. T may be a struct
// type or a pointer to one. It panics if name is already taken by another
// type, so it belongs in init functions.
func Register[T any](name string) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if err := defaultRegistry.RegisterName(name, t); err != nil {
		panic(err)
	}
}

// RegisterName adds t under name. Registering the same pair twice is a
// no-op.
func (r *Registry) RegisterName(name string, t reflect.Type) error {
	t = structType(t)
	if t == nil {
		return fmt.Errorf("serial: cannot register %q: not a struct type", name)
	}
	if name == "" {
		return fmt.Errorf("serial: cannot register %s under an empty name", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok && existing != t {
		if !r.auto[existing] || r.names[existing] != name {
			return fmt.Errorf("serial: name %q already registered for %s", name, existing)
		}
		// An explicit registration takes a default name back from a
		// type that only received it implicitly.
		delete(r.names, existing)
		delete(r.auto, existing)
	}
	if prev, ok := r.names[t]; ok && prev != name {
		if !r.auto[t] {
			// A type keeps its first explicit name; later names become
			// aliases of it.
			r.aliases[name] = prev
			return nil
		}
		// The implicit default name keeps resolving as an alias.
		delete(r.byName, prev)
		r.aliases[prev] = name
	}
	r.byName[name] = t
	r.names[t] = name
	delete(r.auto, t)
	return nil
}

// Alias makes oldName resolve to the type currently registered as newName.
// Used when a type is renamed and existing trees still carry the old name.
func (r *Registry) Alias(oldName, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[newName]; !ok {
		return fmt.Errorf("serial: cannot alias %q: %q is not registered", oldName, newName)
	}
	if existing, ok := r.byName[oldName]; ok {
		return fmt.Errorf("serial: cannot alias %q: name is registered for %s", oldName, existing)
	}
	r.aliases[oldName] = newName
	return nil
}

// Lookup resolves a type name, following aliases.
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.byName[name]; ok {
		return t, true
	}
	if target, ok := r.aliases[name]; ok {
		t, ok := r.byName[target]
		return t, ok
	}
	return nil, false
}

// NameOf returns the name recorded for struct type t. Types that were
// never registered explicitly are registered under their default name,
// the import path plus type name.
func (r *Registry) NameOf(t reflect.Type) string {
	t = structType(t)
	if t == nil {
		return ""
	}

	r.mu.RLock()
	name, ok := r.names[t]
	r.mu.RUnlock()
	if ok {
		return name
	}

	name = defaultTypeName(t)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.names[t]; ok {
		return existing
	}
	if _, taken := r.byName[name]; !taken {
		r.byName[name] = t
	}
	r.names[t] = name
	r.auto[t] = true
	return name
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func defaultTypeName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// structType returns t, or its element for pointer types, when it is a
// struct type.
func structType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

// ---------------------------------------------------------------------------
// Type descriptors: each struct type is described once and cached
// ---------------------------------------------------------------------------

type typeInfo struct {
	typ    reflect.Type
	fields []fieldInfo
}

type fieldInfo struct {
	name       string // effective tag name
	goName     string // Go field name, for error messages
	index      []int  // field index path through embedded structs
	typ        reflect.Type
	omitNil    bool
	formerly   []string // former names, tried in order on decode
	unexported bool
	depth      int
}

// describe returns the cached descriptor for struct type t.
func (r *Registry) describe(t reflect.Type) *typeInfo {
	r.mu.RLock()
	info, ok := r.infos[t]
	r.mu.RUnlock()
	if ok {
		return info
	}

	info = &typeInfo{typ: t, fields: collectFields(t)}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.infos[t]; ok {
		return existing
	}
	r.infos[t] = info
	return info
}

// collectFields enumerates the serializable fields of t in declaration
// order, flattening embedded structs. When two fields share a name the
// shallower one wins, mirroring Go's own promotion rules.
func collectFields(t reflect.Type) []fieldInfo {
	var all []fieldInfo
	walkFields(t, nil, 0, map[reflect.Type]bool{t: true}, &all)

	shallowest := make(map[string]int, len(all))
	for _, f := range all {
		if d, ok := shallowest[f.name]; !ok || f.depth < d {
			shallowest[f.name] = f.depth
		}
	}

	fields := make([]fieldInfo, 0, len(all))
	taken := make(map[string]bool, len(all))
	for _, f := range all {
		if f.depth != shallowest[f.name] || taken[f.name] {
			continue
		}
		taken[f.name] = true
		fields = append(fields, f)
	}
	return fields
}

func walkFields(t reflect.Type, prefix []int, depth int, visiting map[reflect.Type]bool, out *[]fieldInfo) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tagValue, hasTag := sf.Tag.Lookup(nameTagKey)
		if tagValue == "-" {
			continue
		}
		name, opts := parseTag(tagValue)

		index := make([]int, len(prefix)+1)
		copy(index, prefix)
		index[len(prefix)] = i

		if sf.Anonymous && name == "" {
			if et := embeddedStruct(sf); et != nil && !visiting[et] {
				visiting[et] = true
				walkFields(et, index, depth+1, visiting, out)
				delete(visiting, et)
				continue
			}
		}

		if !sf.IsExported() && (!hasTag || name == "") {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		f := fieldInfo{
			name:       name,
			goName:     sf.Name,
			index:      index,
			typ:        sf.Type,
			omitNil:    opts.has("omitnil"),
			unexported: !sf.IsExported(),
			depth:      depth,
		}
		if former, ok := sf.Tag.Lookup(formerlyTagKey); ok {
			for _, n := range strings.Split(former, ",") {
				if n = strings.TrimSpace(n); n != "" {
					f.formerly = append(f.formerly, n)
				}
			}
		}
		*out = append(*out, f)
	}
}

// embeddedStruct returns the struct type an anonymous field should be
// flattened into, or nil when the field is kept as a regular field.
func embeddedStruct(sf reflect.StructField) reflect.Type {
	t := sf.Type
	if t.Kind() == reflect.Ptr {
		// A nil embedded pointer can only be allocated through an
		// exported field.
		if !sf.IsExported() {
			return nil
		}
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || Classify(t) != ClassObject {
		return nil
	}
	return t
}

type tagOptions string

func parseTag(value string) (string, tagOptions) {
	name, opts, _ := strings.Cut(value, ",")
	return name, tagOptions(opts)
}

func (o tagOptions) has(option string) bool {
	for _, current := range strings.Split(string(o), ",") {
		if current == option {
			return true
		}
	}
	return false
}

// value returns the field inside structVal, which must be addressable.
// When alloc is false and the path crosses a nil embedded pointer it
// reports false; when alloc is true the pointer is allocated.
func (f *fieldInfo) value(structVal reflect.Value, alloc bool) (reflect.Value, bool) {
	v := structVal
	for i, idx := range f.index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !alloc {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(idx)
	}
	if f.unexported {
		v = reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
	}
	return v, true
}
