// Package testcases holds fixture forms shared by the package tests and
// end-to-end collection scenarios.
package testcases

import (
	"embed"
	"fmt"
	"testing"

	"github.com/tbxark/formcollect/component"
)

//go:embed testdata/*.json
var fixtures embed.FS

const (
	FormSimple     = "simple"
	FormDataGrid   = "datagrid"
	FormNestedForm = "nestedform"
	FormKitchen    = "kitchen"
)

// Definition returns the raw JSON of a fixture form.
func Definition(name string) ([]byte, error) {
	data, err := fixtures.ReadFile("testdata/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("fixture %q: %w", name, err)
	}
	return data, nil
}

func Tree(name string) (*component.Tree, error) {
	data, err := Definition(name)
	if err != nil {
		return nil, err
	}
	return component.Parse(data)
}

// MustTree loads a fixture or fails the test.
func MustTree(t testing.TB, name string) *component.Tree {
	t.Helper()
	tree, err := Tree(name)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return tree
}
