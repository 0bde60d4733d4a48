package serial

import (
	"reflect"
	"testing"
)

type regA struct{ N int }
type regB struct{ N int }

func TestRegistryRegisterLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterName("game.A", reflect.TypeOf(regA{})); err != nil {
		t.Fatalf("RegisterName: %v", err)
	}
	// Same pair again is a no-op, pointer form included.
	if err := r.RegisterName("game.A", reflect.TypeOf(&regA{})); err != nil {
		t.Fatalf("RegisterName again: %v", err)
	}
	if err := r.RegisterName("game.A", reflect.TypeOf(regB{})); err == nil {
		t.Error("RegisterName with a taken name should fail")
	}
	if err := r.RegisterName("game.I", reflect.TypeOf(0)); err == nil {
		t.Error("RegisterName with a non-struct type should fail")
	}

	got, ok := r.Lookup("game.A")
	if !ok || got != reflect.TypeOf(regA{}) {
		t.Errorf("Lookup(game.A) = (%v, %v), want (regA, true)", got, ok)
	}
	if _, ok := r.Lookup("game.Missing"); ok {
		t.Error("Lookup(game.Missing) should fail")
	}
	if name := r.NameOf(reflect.TypeOf(&regA{})); name != "game.A" {
		t.Errorf("NameOf(*regA) = %q, want %q", name, "game.A")
	}
}

func TestRegisterPanicsOnConflict(t *testing.T) {
	Register[regA]("serial_test.conflict")
	defer func() {
		if recover() == nil {
			t.Error("Register with a conflicting name should panic")
		}
	}()
	Register[regB]("serial_test.conflict")
}

func TestRegistryAutoNameReclaimed(t *testing.T) {
	r := NewRegistry()
	typ := reflect.TypeOf(regB{})

	auto := r.NameOf(typ)
	if auto != "github.com/chazu/tagtree/serial.regB" {
		t.Errorf("NameOf = %q, want the import path qualified name", auto)
	}
	if err := r.RegisterName("game.B", typ); err != nil {
		t.Fatalf("RegisterName after NameOf: %v", err)
	}
	if name := r.NameOf(typ); name != "game.B" {
		t.Errorf("NameOf after RegisterName = %q, want %q", name, "game.B")
	}
	// Trees written under the implicit name still resolve.
	if got, ok := r.Lookup(auto); !ok || got != typ {
		t.Errorf("Lookup(%q) = (%v, %v), want (regB, true)", auto, got, ok)
	}
}

func TestRegistryAlias(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterName("game.Hero", reflect.TypeOf(regA{})); err != nil {
		t.Fatal(err)
	}
	if err := r.Alias("game.Player", "game.Hero"); err != nil {
		t.Fatalf("Alias: %v", err)
	}
	if got, ok := r.Lookup("game.Player"); !ok || got != reflect.TypeOf(regA{}) {
		t.Errorf("Lookup(alias) = (%v, %v), want (regA, true)", got, ok)
	}
	if err := r.Alias("x", "game.Unknown"); err == nil {
		t.Error("Alias to an unregistered name should fail")
	}
	if err := r.Alias("game.Hero", "game.Hero"); err == nil {
		t.Error("Alias over a registered name should fail")
	}

	names := r.Names()
	if len(names) != 1 || names[0] != "game.Hero" {
		t.Errorf("Names() = %v, want [game.Hero]", names)
	}
}

// ---------------------------------------------------------------------------
// Field descriptors
// ---------------------------------------------------------------------------

type describeBase struct {
	ID   int
	Name string
}

type describeDerived struct {
	describeBase
	Name    string
	Extra   bool   `tag:"extra"`
	Skip    int    `tag:"-"`
	Maybe   *regA  `tag:",omitnil"`
	Level   int    `formerly:"lvl, level_num"`
	seed    int64  `tag:"seed"`
	private string
}

func TestDescribeFields(t *testing.T) {
	info := NewRegistry().describe(reflect.TypeOf(describeDerived{}))

	var names []string
	for _, f := range info.fields {
		names = append(names, f.name)
	}
	want := []string{"ID", "Name", "extra", "Maybe", "Level", "seed"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("field names = %v, want %v", names, want)
	}

	byName := map[string]fieldInfo{}
	for _, f := range info.fields {
		byName[f.name] = f
	}
	if f := byName["Name"]; f.depth != 0 || len(f.index) != 1 {
		t.Errorf("Name resolved to depth %d index %v, want the outer field", f.depth, f.index)
	}
	if f := byName["ID"]; !reflect.DeepEqual(f.index, []int{0, 0}) {
		t.Errorf("ID index = %v, want [0 0]", f.index)
	}
	if !byName["Maybe"].omitNil {
		t.Error("Maybe should be omitnil")
	}
	if got := byName["Level"].formerly; !reflect.DeepEqual(got, []string{"lvl", "level_num"}) {
		t.Errorf("Level formerly = %v, want [lvl level_num]", got)
	}
	if !byName["seed"].unexported {
		t.Error("seed should be marked unexported")
	}
}

func TestDescribeCached(t *testing.T) {
	r := NewRegistry()
	a := r.describe(reflect.TypeOf(describeDerived{}))
	b := r.describe(reflect.TypeOf(describeDerived{}))
	if a != b {
		t.Error("describe should return the cached descriptor")
	}
}

func TestFieldValueUnexported(t *testing.T) {
	d := &describeDerived{seed: 41}
	info := NewRegistry().describe(reflect.TypeOf(*d))
	for _, f := range info.fields {
		if f.name != "seed" {
			continue
		}
		v, ok := f.value(reflect.ValueOf(d).Elem(), false)
		if !ok {
			t.Fatal("value(seed) not reachable")
		}
		if v.Int() != 41 {
			t.Errorf("seed = %d, want 41", v.Int())
		}
		v.SetInt(42)
	}
	if d.seed != 42 {
		t.Errorf("seed after set = %d, want 42", d.seed)
	}
}
