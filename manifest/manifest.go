// Package manifest handles tagtree.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chazu/tagtree/serial"
	"github.com/chazu/tagtree/wire"
)

// FileName is the name of the manifest file.
const FileName = "tagtree.toml"

// DefaultStorePath is the asset database location, relative to the
// manifest directory, used when [store] leaves it unset.
const DefaultStorePath = ".tagtree/assets.db"

// Manifest represents a tagtree.toml project configuration.
type Manifest struct {
	Project    Project           `toml:"project"`
	Serializer SerializerConfig  `toml:"serializer"`
	Wire       WireConfig        `toml:"wire"`
	Store      StoreConfig       `toml:"store"`
	Aliases    map[string]string `toml:"aliases"`

	// Dir is the directory containing the tagtree.toml file (set at load time).
	Dir string `toml:"-"`

	codec       wire.Codec
	compression wire.Compression
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// SerializerConfig configures decoding.
type SerializerConfig struct {
	Strict   bool `toml:"strict"`
	MaxDepth int  `toml:"max-depth"`
}

// WireConfig selects how assets are packed.
type WireConfig struct {
	Codec       string `toml:"codec"`
	Compression string `toml:"compression"`
}

// StoreConfig configures the asset database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// Default returns the manifest used when no tagtree.toml exists, rooted at
// dir.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses a tagtree.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a tagtree.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Wire.Codec == "" {
		m.Wire.Codec = wire.CodecBinary.String()
	}
	if m.Wire.Compression == "" {
		m.Wire.Compression = wire.CompressionNone.String()
	}
	if m.Store.Path == "" {
		m.Store.Path = DefaultStorePath
	}
	m.codec = wire.CodecBinary
	m.compression = wire.CompressionNone
}

func (m *Manifest) validate() error {
	var err error
	if m.codec, err = wire.ParseCodec(m.Wire.Codec); err != nil {
		return fmt.Errorf("[wire] codec: %w", err)
	}
	if m.compression, err = wire.ParseCompression(m.Wire.Compression); err != nil {
		return fmt.Errorf("[wire] compression: %w", err)
	}
	if m.Serializer.MaxDepth < 0 {
		return fmt.Errorf("[serializer] max-depth must not be negative, got %d", m.Serializer.MaxDepth)
	}
	if m.Serializer.MaxDepth > wire.MaxDepth {
		return fmt.Errorf("[serializer] max-depth must not exceed %d, got %d", wire.MaxDepth, m.Serializer.MaxDepth)
	}
	for old, cur := range m.Aliases {
		if old == "" || cur == "" {
			return fmt.Errorf("[aliases] entries need both names, got %q = %q", old, cur)
		}
	}
	return nil
}

// SerialConfig returns the decode configuration for the project.
func (m *Manifest) SerialConfig() serial.Config {
	return serial.Config{
		Strict:   m.Serializer.Strict,
		MaxDepth: m.Serializer.MaxDepth,
	}
}

// PackOptions returns how assets of the project are packed.
func (m *Manifest) PackOptions() wire.PackOptions {
	return wire.PackOptions{Codec: m.codec, Compression: m.compression}
}

// StorePath returns the absolute path of the asset database.
func (m *Manifest) StorePath() string {
	if filepath.IsAbs(m.Store.Path) {
		return m.Store.Path
	}
	return filepath.Join(m.Dir, m.Store.Path)
}

// ApplyAliases registers the [aliases] table (old type name = current
// type name) on r. The current names must already be registered.
func (m *Manifest) ApplyAliases(r *serial.Registry) error {
	olds := make([]string, 0, len(m.Aliases))
	for old := range m.Aliases {
		olds = append(olds, old)
	}
	sort.Strings(olds)
	for _, old := range olds {
		if err := r.Alias(old, m.Aliases[old]); err != nil {
			return err
		}
	}
	return nil
}
