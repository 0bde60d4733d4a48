package serial

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/chazu/tagtree/tag"
)

var (
	// ErrUnsupportedPrimitive is returned when a scalar value has no tag
	// mapping (complex numbers, uintptr, non-nil funcs and channels).
	ErrUnsupportedPrimitive = errors.New("unsupported primitive")

	// ErrUnsupportedKeyType is returned when a map with non-string keys is
	// serialized.
	ErrUnsupportedKeyType = errors.New("dictionary keys must be strings")

	// ErrMissingTagName is returned when a compound child ends up without a
	// name, which would make it unaddressable on decode.
	ErrMissingTagName = errors.New("tag name is missing")

	// ErrUnsupportedConversion is returned when a tag cannot be decoded into
	// the requested Go type.
	ErrUnsupportedConversion = errors.New("unsupported conversion")

	// ErrUnresolvedType is reported when a compound names a type that is not
	// in the registry. Outside strict mode the subtree decodes to nil and the
	// error is only recorded on the Context.
	ErrUnresolvedType = errors.New("unresolved type")

	// ErrDepthExceeded is returned when a walk nests deeper than the
	// configured maximum.
	ErrDepthExceeded = errors.New("maximum depth exceeded")

	// ErrInvalidTarget is returned when a decode target is not a non-nil
	// pointer.
	ErrInvalidTarget = errors.New("decode target must be a non-nil pointer")
)

func conversionError(t tag.Tag, dst reflect.Type) error {
	return fmt.Errorf("%w: %s tag %q into %s", ErrUnsupportedConversion, t.Kind(), t.Name(), dst)
}

// maxPathSegments bounds how many path segments a PathError keeps. Deeper
// paths keep the innermost half and the most recent outer segments.
const maxPathSegments = 16

// PathError is an error annotated with where in a value it occurred, for
// example "Player.Pet: Pet.Owner: unsupported primitive".
type PathError struct {
	Err error

	// segments runs from the innermost outward.
	segments []string
	elided   int
}

// wrapPath adds an outer path segment to err in constant time.
func wrapPath(err error, segment string) error {
	pe, ok := err.(*PathError)
	if !ok {
		return &PathError{Err: err, segments: []string{segment}}
	}
	if len(pe.segments) < maxPathSegments {
		pe.segments = append(pe.segments, segment)
		return pe
	}
	keep := maxPathSegments / 2
	copy(pe.segments[keep:], pe.segments[keep+1:])
	pe.segments[len(pe.segments)-1] = segment
	pe.elided++
	return pe
}

// Path returns the location of the failure, outermost segment first.
func (e *PathError) Path() string {
	var b strings.Builder
	for i := len(e.segments) - 1; i >= 0; i-- {
		b.WriteString(e.segments[i])
		if i > 0 {
			b.WriteString(": ")
		}
		if e.elided > 0 && i == maxPathSegments/2 {
			fmt.Fprintf(&b, "(%d more): ", e.elided)
		}
	}
	return b.String()
}

func (e *PathError) Error() string {
	return e.Path() + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}
