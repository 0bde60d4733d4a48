// Package asset stores object graphs as self-contained asset files.
//
// A SerializedAsset holds one main object plus any number of sub-assets,
// all written through one identity context so references between them
// survive. References to other assets are expressed with Ref and are
// collected as dependencies while saving.
package asset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/tagtree/serial"
	"github.com/chazu/tagtree/tag"
	"github.com/chazu/tagtree/wire"
)

// RootName is the name of the root tag of an encoded asset.
const RootName = "asset"

var (
	// ErrNoMain is returned when saving an asset without a main object.
	ErrNoMain = errors.New("asset: no main object")

	// ErrNotObject is returned when a main or sub-asset is not a non-nil
	// pointer to a struct.
	ErrNotObject = errors.New("asset: object must be a non-nil pointer to a struct")

	// ErrDuplicate is returned when an object is added to an asset twice.
	ErrDuplicate = errors.New("asset: object already in asset")
)

var log = commonlog.GetLogger("tagtree.asset")

func init() {
	serial.Register[SerializedAsset]("tagtree.SerializedAsset")
	serial.Register[Ref]("tagtree.AssetRef")
	serial.Register[Prefab]("tagtree.Prefab")
}

// SerializedAsset is the unit written to an asset file.
type SerializedAsset struct {
	Main      any
	SubAssets []any
}

// HasMain reports whether the main object is set.
func (a *SerializedAsset) HasMain() bool {
	return a.Main != nil
}

// SetMain sets the main object. obj must not already be a sub-asset.
func (a *SerializedAsset) SetMain(obj any) error {
	if !isObject(obj) {
		return ErrNotObject
	}
	for _, sub := range a.SubAssets {
		if sameObject(sub, obj) {
			return fmt.Errorf("%w: %T", ErrDuplicate, obj)
		}
	}
	a.Main = obj
	return nil
}

// AddSubAsset appends obj and returns its index among the sub-assets.
func (a *SerializedAsset) AddSubAsset(obj any) (int, error) {
	if !isObject(obj) {
		return -1, ErrNotObject
	}
	if sameObject(a.Main, obj) {
		return -1, fmt.Errorf("%w: %T is the main object", ErrDuplicate, obj)
	}
	for _, sub := range a.SubAssets {
		if sameObject(sub, obj) {
			return -1, fmt.Errorf("%w: %T", ErrDuplicate, obj)
		}
	}
	a.SubAssets = append(a.SubAssets, obj)
	return len(a.SubAssets) - 1, nil
}

func isObject(obj any) bool {
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Kind() == reflect.Struct
}

func sameObject(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	return va.Kind() == reflect.Ptr && va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
}

// Encode converts a to a tag tree and reports the assets it references.
func Encode(a *SerializedAsset) (tag.Tag, []uuid.UUID, error) {
	if a == nil || !a.HasMain() {
		return nil, nil, ErrNoMain
	}
	ctx := serial.NewContext()
	t, err := ctx.Serialize(a, RootName)
	if err != nil {
		return nil, nil, fmt.Errorf("asset: encode: %w", err)
	}
	return t, ctx.Dependencies(), nil
}

// Decode rebuilds an asset from a tag tree.
func Decode(t tag.Tag, cfg serial.Config) (*SerializedAsset, error) {
	ctx := serial.NewContextWithConfig(cfg)
	a, err := serial.DeserializeWith[*SerializedAsset](t, ctx)
	if err != nil {
		return nil, fmt.Errorf("asset: decode: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("asset: decode: %w", ErrNoMain)
	}
	for _, u := range ctx.Unresolved() {
		log.Warningf("asset loaded partially: %s", u)
	}
	return a, nil
}

// Save writes a to w as a packed tree and returns its dependencies.
func Save(w io.Writer, a *SerializedAsset, opts wire.PackOptions) ([]uuid.UUID, error) {
	t, deps, err := Encode(a)
	if err != nil {
		return nil, err
	}
	if err := wire.WritePacked(w, t, opts); err != nil {
		return nil, err
	}
	return deps, nil
}

// SaveFile writes a to path, creating the parent directory if needed.
func SaveFile(path string, a *SerializedAsset, opts wire.PackOptions) ([]uuid.UUID, error) {
	t, deps, err := Encode(a)
	if err != nil {
		return nil, err
	}
	data, err := wire.Pack(t, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("asset: create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("asset: write %s: %w", path, err)
	}
	log.Debugf("saved %s (%d bytes, %d dependencies)", path, len(data), len(deps))
	return deps, nil
}

// Load reads an asset written by Save with the default configuration.
func Load(r io.Reader) (*SerializedAsset, error) {
	return LoadWith(r, serial.Config{})
}

// LoadWith reads an asset written by Save.
func LoadWith(r io.Reader, cfg serial.Config) (*SerializedAsset, error) {
	t, err := wire.ReadPacked(r)
	if err != nil {
		return nil, err
	}
	return Decode(t, cfg)
}

// LoadFile reads the asset at path with the default configuration.
func LoadFile(path string) (*SerializedAsset, error) {
	return LoadFileWith(path, serial.Config{})
}

// LoadFileWith reads the asset at path.
func LoadFileWith(path string, cfg serial.Config) (*SerializedAsset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("asset: %w", err)
	}
	defer f.Close()
	return LoadWith(f, cfg)
}
