package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/chazu/tagtree/asset"
	"github.com/chazu/tagtree/serial"
	"github.com/chazu/tagtree/tag"
	"github.com/chazu/tagtree/wire"
)

type mesh struct {
	Name     string
	Vertices []float32
	Material asset.Ref
}

func init() {
	serial.Register[mesh]("storetest.Mesh")
}

var (
	meshID  = uuid.MustParse("11111111-2222-4333-8444-555555555555")
	matID   = uuid.MustParse("aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee")
	texID   = uuid.MustParse("99999999-8888-4777-8666-555555555555")
	otherID = uuid.MustParse("01234567-89ab-4cde-8f01-23456789abcd")
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "assets.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)

	data := []byte("payload")
	rec, err := s.Put(Record{ID: matID, Name: "stone", Data: data, Dependencies: []uuid.UUID{texID, uuid.Nil, texID}})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if rec.Size != len(data) || rec.Updated.IsZero() {
		t.Errorf("Put record = %+v", rec)
	}
	if len(rec.Dependencies) != 1 || rec.Dependencies[0] != texID {
		t.Errorf("Put dependencies = %v, want [%s]", rec.Dependencies, texID)
	}

	got, err := s.Get(matID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "stone" || string(got.Data) != "payload" {
		t.Errorf("Get = %q %q", got.Name, got.Data)
	}
	if got.Digest != rec.Digest {
		t.Errorf("digest = %x, want %x", got.Digest, rec.Digest)
	}
	if !got.Updated.Equal(rec.Updated) {
		t.Errorf("updated = %v, want %v", got.Updated, rec.Updated)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != texID {
		t.Errorf("dependencies = %v", got.Dependencies)
	}
}

func TestPutReplaces(t *testing.T) {
	s := openTemp(t)

	if _, err := s.Put(Record{ID: matID, Name: "v1", Data: []byte{1}, Dependencies: []uuid.UUID{texID}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Put(Record{ID: matID, Name: "v2", Data: []byte{2}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(matID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "v2" || got.Data[0] != 2 || len(got.Dependencies) != 0 {
		t.Errorf("after replace = %+v", got)
	}
	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List = %d records, want 1", len(list))
	}
}

func TestPutRequiresID(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Put(Record{Name: "anon", Data: []byte{1}}); err == nil {
		t.Fatal("expected an error for a nil id")
	}
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Get(otherID); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
	if _, err := s.Dependencies(otherID); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("Dependencies err = %v, want ErrAssetNotFound", err)
	}
	if err := s.Delete(otherID); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("Delete err = %v, want ErrAssetNotFound", err)
	}
}

func TestCorruptData(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Put(Record{ID: matID, Name: "stone", Data: []byte("payload")}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.db.Exec("UPDATE assets SET data = ? WHERE id = ?", []byte("tampered"), matID.String()); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if _, err := s.Get(matID); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("err = %v, want ErrCorruptRecord", err)
	}
}

func TestListOrder(t *testing.T) {
	s := openTemp(t)
	for _, r := range []Record{
		{ID: texID, Name: "b-texture", Data: []byte{1, 2, 3}},
		{ID: matID, Name: "a-material", Data: []byte{1}},
		{ID: meshID, Name: "c-mesh", Data: []byte{1, 2}},
	} {
		if _, err := s.Put(r); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a-material", "b-texture", "c-mesh"}
	if len(list) != len(want) {
		t.Fatalf("List = %d records, want %d", len(list), len(want))
	}
	for i, name := range want {
		if list[i].Name != name {
			t.Errorf("list[%d].Name = %q, want %q", i, list[i].Name, name)
		}
		if list[i].Data != nil {
			t.Errorf("list[%d] carries data", i)
		}
	}
	if list[1].Size != 3 {
		t.Errorf("texture size = %d, want 3", list[1].Size)
	}
}

func TestDependencyGraph(t *testing.T) {
	s := openTemp(t)
	put := func(id uuid.UUID, name string, deps ...uuid.UUID) {
		t.Helper()
		if _, err := s.Put(Record{ID: id, Name: name, Data: []byte(name), Dependencies: deps}); err != nil {
			t.Fatalf("Put %s: %v", name, err)
		}
	}
	put(texID, "texture")
	put(matID, "material", texID)
	put(meshID, "mesh", matID, texID)

	deps, err := s.Dependencies(meshID)
	if err != nil {
		t.Fatalf("Dependencies: %v", err)
	}
	if len(deps) != 2 || deps[0] != matID || deps[1] != texID {
		t.Errorf("Dependencies(mesh) = %v", deps)
	}

	users, err := s.Dependents(texID)
	if err != nil {
		t.Fatalf("Dependents: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("Dependents(texture) = %v", users)
	}
	// Ordered by id string.
	if users[0] != meshID || users[1] != matID {
		t.Errorf("Dependents(texture) = %v, want [%s %s]", users, meshID, matID)
	}

	if err := s.Delete(matID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	users, err = s.Dependents(texID)
	if err != nil {
		t.Fatalf("Dependents: %v", err)
	}
	if len(users) != 1 || users[0] != meshID {
		t.Errorf("Dependents after delete = %v", users)
	}
	// The mesh still records its now-dangling dependency.
	users, err = s.Dependents(matID)
	if err != nil {
		t.Fatalf("Dependents: %v", err)
	}
	if len(users) != 1 || users[0] != meshID {
		t.Errorf("Dependents(material) = %v", users)
	}
}

func TestPutLoadAsset(t *testing.T) {
	s := openTemp(t)

	a := &asset.SerializedAsset{}
	if err := a.SetMain(&mesh{Name: "cube", Vertices: []float32{0, 1, 2}, Material: asset.NewRef(matID)}); err != nil {
		t.Fatalf("SetMain: %v", err)
	}
	rec, err := s.PutAsset(meshID, "cube", a, wire.PackOptions{Compression: wire.CompressionLZ4})
	if err != nil {
		t.Fatalf("PutAsset: %v", err)
	}
	if len(rec.Dependencies) != 1 || rec.Dependencies[0] != matID {
		t.Errorf("dependencies = %v", rec.Dependencies)
	}

	got, err := s.LoadAsset(meshID, serial.Config{Strict: true})
	if err != nil {
		t.Fatalf("LoadAsset: %v", err)
	}
	m, ok := got.Main.(*mesh)
	if !ok {
		t.Fatalf("Main is %T", got.Main)
	}
	if m.Name != "cube" || len(m.Vertices) != 3 || m.Material.ID != matID {
		t.Errorf("mesh = %+v", m)
	}
}

func TestPutPacked(t *testing.T) {
	s := openTemp(t)

	ref := tag.NewCompound("Material")
	ref.SerializedType = "tagtree.AssetRef"
	ref.Add(tag.NewString("AssetID", matID.String()))
	root := tag.NewCompound("root")
	root.Add(ref)
	data, err := wire.Pack(root, wire.PackOptions{})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	rec, err := s.PutPacked(meshID, "raw", data)
	if err != nil {
		t.Fatalf("PutPacked: %v", err)
	}
	if len(rec.Dependencies) != 1 || rec.Dependencies[0] != matID {
		t.Errorf("dependencies = %v", rec.Dependencies)
	}

	if _, err := s.PutPacked(otherID, "junk", []byte("not packed")); !errors.Is(err, wire.ErrInvalidMagic) {
		t.Errorf("junk: err = %v, want ErrInvalidMagic", err)
	}
}
