package serial

import (
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/tagtree/tag"
)

// Class is the traversal strategy chosen for a Go type.
type Class int

const (
	// ClassPrimitive values are copied by value into a single scalar tag.
	ClassPrimitive Class = iota
	// ClassTag values already are tags and are embedded as deep clones.
	ClassTag
	// ClassArray values are slices and arrays, written as List tags.
	ClassArray
	// ClassDictionary values are maps, written as Compound tags keyed by
	// the map keys.
	ClassDictionary
	// ClassObject values are structs, pointers and interfaces, written as
	// Compound tags through field enumeration.
	ClassObject
)

func (c Class) String() string {
	switch c {
	case ClassPrimitive:
		return "primitive"
	case ClassTag:
		return "tag"
	case ClassArray:
		return "array"
	case ClassDictionary:
		return "dictionary"
	case ClassObject:
		return "object"
	default:
		return "unknown"
	}
}

var (
	tagType   = reflect.TypeOf((*tag.Tag)(nil)).Elem()
	timeType  = reflect.TypeOf(time.Time{})
	uuidType  = reflect.TypeOf(uuid.UUID{})
	bytesType = reflect.TypeOf([]byte(nil))
	anyType   = reflect.TypeOf((*any)(nil)).Elem()
)

// Classify decides how values of type t are traversed. A nil type (the type
// of a nil interface) classifies as an object.
func Classify(t reflect.Type) Class {
	if t == nil {
		return ClassObject
	}
	if t.Implements(tagType) {
		return ClassTag
	}
	if t == timeType || t == uuidType {
		return ClassPrimitive
	}

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String,
		reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return ClassPrimitive
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return ClassPrimitive
		}
		return ClassArray
	case reflect.Array:
		return ClassArray
	case reflect.Map:
		return ClassDictionary
	default:
		return ClassObject
	}
}

// primitiveKind returns the tag kind a primitive type is written as.
// Named integer types (enumerations) use the kind of their underlying width.
func primitiveKind(t reflect.Type) (tag.Kind, bool) {
	switch t {
	case timeType:
		return tag.KindLong, true
	case uuidType:
		return tag.KindString, true
	}

	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return tag.KindByte, true
	case reflect.Int16, reflect.Uint16:
		return tag.KindShort, true
	case reflect.Int32, reflect.Uint32:
		return tag.KindInt, true
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64:
		return tag.KindLong, true
	case reflect.Float32:
		return tag.KindFloat, true
	case reflect.Float64:
		return tag.KindDouble, true
	case reflect.String:
		return tag.KindString, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return tag.KindByteArray, true
		}
	}
	return 0, false
}

// listElemKind returns the ElemKind of a List holding elements of type t.
// Anything without a homogeneous scalar encoding is KindCompound.
func listElemKind(t reflect.Type) tag.Kind {
	if Classify(t) != ClassPrimitive {
		return tag.KindCompound
	}
	if k, ok := primitiveKind(t); ok {
		return k
	}
	return tag.KindCompound
}

// naturalListType is the slice type a List decodes to when the target is an
// interface and no element type is known.
func naturalListType(k tag.Kind) reflect.Type {
	switch k {
	case tag.KindByte:
		return reflect.TypeOf([]uint8(nil))
	case tag.KindShort:
		return reflect.TypeOf([]int16(nil))
	case tag.KindInt:
		return reflect.TypeOf([]int32(nil))
	case tag.KindLong:
		return reflect.TypeOf([]int64(nil))
	case tag.KindFloat:
		return reflect.TypeOf([]float32(nil))
	case tag.KindDouble:
		return reflect.TypeOf([]float64(nil))
	case tag.KindString:
		return reflect.TypeOf([]string(nil))
	case tag.KindByteArray:
		return reflect.TypeOf([][]byte(nil))
	default:
		return reflect.TypeOf([]any(nil))
	}
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func isNil(v reflect.Value) bool {
	return !v.IsValid() || (isNilable(v.Kind()) && v.IsNil())
}
