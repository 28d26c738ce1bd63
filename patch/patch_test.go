package patch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokensAndPointer(t *testing.T) {
	cases := []struct {
		path    string
		tokens  []string
		pointer string
	}{
		{"firstName", []string{"firstName"}, "/firstName"},
		{"children[0].childName", []string{"children", "0", "childName"}, "/children/0/childName"},
		{"company.data.name", []string{"company", "data", "name"}, "/company/data/name"},
		{"grid[1].toys[2].name", []string{"grid", "1", "toys", "2", "name"}, "/grid/1/toys/2/name"},
		{"a/b", []string{"a/b"}, "/a~1b"},
		{"", nil, ""},
	}
	for _, c := range cases {
		if diff := cmp.Diff(c.tokens, Tokens(c.path)); diff != "" {
			t.Errorf("Tokens(%q) mismatch (-want +got):\n%s", c.path, diff)
		}
		if got := Pointer(c.path); got != c.pointer {
			t.Errorf("Pointer(%q) = %q, want %q", c.path, got, c.pointer)
		}
	}
	if got := PathFromPointer("/children/0/childName"); got != "children[0].childName" {
		t.Errorf("PathFromPointer = %q", got)
	}
}

func TestPathHelpers(t *testing.T) {
	if got := StripIndices("grid[1].toys[22].name"); got != "grid.toys.name" {
		t.Errorf("StripIndices = %q", got)
	}
	if !IsDescendant("children[0].name", "children") {
		t.Error("children[0].name should be below children")
	}
	if IsDescendant("children", "children") {
		t.Error("a path is not its own descendant")
	}
	if IsDescendant("childrenX.name", "children") {
		t.Error("prefix match on a partial key must not count")
	}
	if n, ok := RowIndexAfter("children[3].name", "children"); !ok || n != 3 {
		t.Errorf("RowIndexAfter = %d, %v", n, ok)
	}
	if _, ok := RowIndexAfter("company.data.name", "company"); ok {
		t.Error("no index follows company")
	}
	base, n, ok := TrailingIndex("children[2]")
	if !ok || base != "children" || n != 2 {
		t.Errorf("TrailingIndex = %q %d %v", base, n, ok)
	}
}

func TestApplyCreatesIntermediates(t *testing.T) {
	doc, err := Apply(nil, []Operation{
		Set("children[0].childName", "Alice"),
		Set("children[0].age", float64(4)),
		Set("children[1].childName", "Bob"),
		Set("company.data.name", "Acme"),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := map[string]any{
		"children": []any{
			map[string]any{"childName": "Alice", "age": float64(4)},
			map[string]any{"childName": "Bob"},
		},
		"company": map[string]any{"data": map[string]any{"name": "Acme"}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyReplacesExisting(t *testing.T) {
	doc := map[string]any{"children": []any{map[string]any{"childName": "Alice"}}}
	out, err := Apply(doc, []Operation{Set("children[0].childName", "Alicia")})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	got, ok := Lookup(out, "children[0].childName")
	if !ok || got != "Alicia" {
		t.Fatalf("Lookup = %v, %v", got, ok)
	}
	if rows := out["children"].([]any); len(rows) != 1 {
		t.Errorf("replace must not insert rows, got %d", len(rows))
	}
}

func TestFixOperation(t *testing.T) {
	doc := map[string]any{"a": "x"}
	ops := FixOperation(doc, []Operation{
		{Op: OperationReplace, Path: "/a", Value: "y"},
		{Op: OperationReplace, Path: "/b", Value: "z"},
		{Op: OperationRemove, Path: "/missing"},
	})
	if len(ops) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(ops))
	}
	if ops[0].Op != OperationReplace || ops[1].Op != OperationAdd {
		t.Errorf("unexpected ops: %+v", ops)
	}
}

func TestValidateOperations(t *testing.T) {
	allowed := map[string]bool{"/firstName": true, "/children/-/childName": true}
	if err := ValidateOperations([]Operation{Set("children[4].childName", "x")}, allowed); err != nil {
		t.Errorf("wildcard row should be allowed: %v", err)
	}
	if err := ValidateOperations([]Operation{Set("lastName", "x")}, allowed); err == nil {
		t.Error("expected lastName to be rejected")
	}
	if err := ValidateOperations([]Operation{Set("anything", "x")}, nil); err != nil {
		t.Errorf("empty set allows all: %v", err)
	}
}

func TestApplyReportsFailingOperation(t *testing.T) {
	_, err := Apply(nil, []Operation{
		Set("name", "Joe"),
		Set("address", "flat"),
		Set("address.street", "Main St"),
	})
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected an operation error, got %v", err)
	}
	if opErr.Op.Path != "/address/street" {
		t.Errorf("failing op = %+v", opErr.Op)
	}
}
