package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/tagtree/serial"
	"github.com/chazu/tagtree/wire"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "quarry"
version = "0.3.0"

[serializer]
strict = true
max-depth = 64

[wire]
codec = "cbor"
compression = "zstd"

[store]
path = "data/assets.db"

[aliases]
"game.OldPlayer" = "game.Player"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "quarry" {
		t.Errorf("project name = %q, want quarry", m.Project.Name)
	}
	if m.Project.Version != "0.3.0" {
		t.Errorf("project version = %q, want 0.3.0", m.Project.Version)
	}

	cfg := m.SerialConfig()
	if !cfg.Strict || cfg.MaxDepth != 64 {
		t.Errorf("SerialConfig() = %+v, want strict with depth 64", cfg)
	}

	opts := m.PackOptions()
	if opts.Codec != wire.CodecCBOR {
		t.Errorf("codec = %s, want cbor", opts.Codec)
	}
	if opts.Compression != wire.CompressionZstd {
		t.Errorf("compression = %s, want zstd", opts.Compression)
	}

	want := filepath.Join(m.Dir, "data", "assets.db")
	if got := m.StorePath(); got != want {
		t.Errorf("StorePath() = %q, want %q", got, want)
	}
	if m.Aliases["game.OldPlayer"] != "game.Player" {
		t.Errorf("aliases = %v", m.Aliases)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Wire.Codec != "binary" || m.Wire.Compression != "none" {
		t.Errorf("wire defaults = %+v, want binary/none", m.Wire)
	}
	if opts := m.PackOptions(); opts != (wire.PackOptions{Codec: wire.CodecBinary, Compression: wire.CompressionNone}) {
		t.Errorf("PackOptions() = %+v", opts)
	}
	if cfg := m.SerialConfig(); cfg.Strict || cfg.MaxDepth != 0 {
		t.Errorf("SerialConfig() = %+v, want zero", cfg)
	}
	if got, want := m.StorePath(), filepath.Join(m.Dir, DefaultStorePath); got != want {
		t.Errorf("StorePath() = %q, want %q", got, want)
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad codec", "[wire]\ncodec = \"xml\"\n", "codec"},
		{"bad compression", "[wire]\ncompression = \"gzip\"\n", "compression"},
		{"negative depth", "[serializer]\nmax-depth = -1\n", "max-depth"},
		{"depth over wire limit", "[serializer]\nmax-depth = 1000000\n", "max-depth must not exceed"},
		{"empty alias", "[aliases]\n\"a.B\" = \"\"\n", "aliases"},
		{"syntax", "[project\n", "parse error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tc.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no tagtree.toml exists")
	}
}

func TestStorePathAbsolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "shared.db")
	m := Default("/app")
	m.Store.Path = abs
	if got := m.StorePath(); got != abs {
		t.Errorf("StorePath() = %q, want %q", got, abs)
	}
}

type current struct{ N int }

func TestApplyAliases(t *testing.T) {
	r := serial.NewRegistry()
	if err := r.RegisterName("proj.Current", reflect.TypeOf(current{})); err != nil {
		t.Fatal(err)
	}

	m := Default("/app")
	m.Aliases = map[string]string{"proj.Legacy": "proj.Current"}
	if err := m.ApplyAliases(r); err != nil {
		t.Fatalf("ApplyAliases: %v", err)
	}
	if typ, ok := r.Lookup("proj.Legacy"); !ok || typ != reflect.TypeOf(current{}) {
		t.Errorf("Lookup(proj.Legacy) = %v, %v", typ, ok)
	}

	m.Aliases = map[string]string{"proj.Other": "proj.Missing"}
	if err := m.ApplyAliases(r); err == nil {
		t.Error("expected error aliasing to an unregistered name")
	}
}
