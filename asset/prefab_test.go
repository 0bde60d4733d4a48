package asset

import (
	"bytes"
	"testing"

	"github.com/chazu/tagtree/wire"
)

type enemy struct {
	Kind   string
	Health int32
	Drops  []string
	Weapon *texture
}

func TestPrefabInstantiate(t *testing.T) {
	proto := &enemy{Kind: "goblin", Health: 30, Drops: []string{"coin"}, Weapon: &texture{Path: "club.png"}}
	p, err := NewPrefab(proto)
	if err != nil {
		t.Fatalf("NewPrefab: %v", err)
	}

	// Later changes to the source do not leak into the prefab.
	proto.Health = 1

	a, err := Instantiate[*enemy](p)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	b, err := Instantiate[*enemy](p)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if a == b || a.Weapon == b.Weapon {
		t.Fatal("instances share objects")
	}
	if a.Health != 30 || a.Kind != "goblin" || a.Weapon.Path != "club.png" {
		t.Errorf("instance = %+v", a)
	}

	a.Drops[0] = "gem"
	a.Health = 5
	c, err := Instantiate[*enemy](p)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if c.Health != 30 || c.Drops[0] != "coin" {
		t.Errorf("prefab was modified through an instance: %+v", c)
	}
}

func TestPrefabRejectsNonObject(t *testing.T) {
	if _, err := NewPrefab(42); err == nil {
		t.Fatal("expected an error for a primitive")
	}
	if _, err := Instantiate[*enemy](&Prefab{}); err == nil {
		t.Fatal("expected an error for an empty prefab")
	}
}

func TestPrefabAsAsset(t *testing.T) {
	p, err := NewPrefab(&enemy{Kind: "orc", Health: 80})
	if err != nil {
		t.Fatalf("NewPrefab: %v", err)
	}
	a := &SerializedAsset{}
	if err := a.SetMain(p); err != nil {
		t.Fatalf("SetMain: %v", err)
	}

	var buf bytes.Buffer
	if _, err := Save(&buf, a, wire.PackOptions{Codec: wire.CodecYAML}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	loaded, ok := got.Main.(*Prefab)
	if !ok {
		t.Fatalf("Main is %T", got.Main)
	}
	e, err := Instantiate[*enemy](loaded)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if e.Kind != "orc" || e.Health != 80 {
		t.Errorf("instance = %+v", e)
	}
}
