package conditional_test

import (
	"context"
	"testing"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/conditional"
	"github.com/tbxark/formcollect/testcases"
)

func hiddenPaths(t *testing.T, data map[string]any) map[string]bool {
	t.Helper()
	tree := testcases.MustTree(t, testcases.FormKitchen)
	eval := conditional.New(nil)
	hidden := map[string]bool{}
	tree.WalkData(data, func(n component.DataNode) bool {
		h, err := eval.Hidden(context.Background(), n, data)
		if err != nil {
			t.Fatalf("Hidden(%s) failed: %v", n.Path, err)
		}
		hidden[n.Path] = h
		return true
	})
	return hidden
}

func TestSimpleConditional(t *testing.T) {
	if !hiddenPaths(t, map[string]any{})["agreeReason"] {
		t.Error("agreeReason should be hidden until agree is checked")
	}
	if hiddenPaths(t, map[string]any{"agree": true})["agreeReason"] {
		t.Error("agreeReason should show once agree is checked")
	}
}

func TestCustomConditional(t *testing.T) {
	if !hiddenPaths(t, map[string]any{"age": float64(12)})["adultOnly"] {
		t.Error("adultOnly should be hidden for minors")
	}
	if hiddenPaths(t, map[string]any{"age": float64(30)})["adultOnly"] {
		t.Error("adultOnly should show for adults")
	}
}

func TestUnconditionalComponents(t *testing.T) {
	hidden := hiddenPaths(t, map[string]any{})
	for _, path := range []string{"nickname", "agree", "address.street"} {
		if hidden[path] {
			t.Errorf("%s has no conditional and must be visible", path)
		}
	}
}
