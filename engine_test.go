package formcollect_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tbxark/formcollect"
	"github.com/tbxark/formcollect/testcases"
	"github.com/tbxark/formcollect/types"
)

func TestFieldsStructuralError(t *testing.T) {
	engine := formcollect.New()
	tree := testcases.MustTree(t, testcases.FormSimple)
	for _, parent := range []string{"firstName", "missing"} {
		_, err := engine.Fields(context.Background(), tree, formcollect.FieldsRequest{ParentPath: parent})
		if !errors.Is(err, types.ErrStructural) {
			t.Errorf("parent %q: expected structural error, got %v", parent, err)
		}
	}
}

func TestFieldsCriteria(t *testing.T) {
	engine := formcollect.New()
	tree := testcases.MustTree(t, testcases.FormSimple)
	data := map[string]any{"firstName": "Joe"}

	step, err := engine.Fields(context.Background(), tree, formcollect.FieldsRequest{FormData: data})
	if err != nil {
		t.Fatalf("Fields failed: %v", err)
	}
	if step.Phase != types.PhaseDiscover || len(step.State.Required.Components) != 2 || len(step.State.Optional.Components) != 0 {
		t.Errorf("unexpected required step: %+v", step.State)
	}

	step, err = engine.Fields(context.Background(), tree, formcollect.FieldsRequest{FormData: data, Criteria: formcollect.CriteriaAll})
	if err != nil {
		t.Fatalf("Fields failed: %v", err)
	}
	var optional []string
	for _, f := range step.State.Optional.Components {
		optional = append(optional, f.Path)
	}
	if diff := cmp.Diff([]string{"firstName", "phone"}, optional); diff != "" {
		t.Errorf("optional mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectBlocked(t *testing.T) {
	engine := formcollect.New()
	tree := testcases.MustTree(t, testcases.FormSimple)
	step, err := engine.Collect(context.Background(), tree, formcollect.CollectRequest{
		Updates: []types.FieldUpdate{{DataPath: "email", NewValue: "not-an-email"}},
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if !step.Blocked() || len(step.Errors) != 1 || step.Errors[0].Path != "email" {
		t.Errorf("expected a blocking email error, got %+v", step.Errors)
	}
}

func TestCollectRejectsUnknownPath(t *testing.T) {
	engine := formcollect.New()
	tree := testcases.MustTree(t, testcases.FormSimple)
	_, err := engine.Collect(context.Background(), tree, formcollect.CollectRequest{
		Updates: []types.FieldUpdate{{DataPath: "nickname", NewValue: "Jo"}},
	})
	if !errors.Is(err, types.ErrStructural) {
		t.Errorf("expected structural error, got %v", err)
	}
}

func TestCollectCompletesRoot(t *testing.T) {
	engine := formcollect.New()
	tree := testcases.MustTree(t, testcases.FormSimple)
	step, err := engine.Collect(context.Background(), tree, formcollect.CollectRequest{
		FormData: map[string]any{"firstName": "Joe", "lastName": "Smith"},
		Updates:  []types.FieldUpdate{{DataPath: "email", NewValue: "joe@example.com"}},
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if step.Phase != types.PhaseConfirming || !step.Complete {
		t.Errorf("unexpected step phase %s complete=%v", step.Phase, step.Complete)
	}
	if step.Scope == nil || step.Scope.Kind != types.ScopeRoot || step.Scope.Label != "the **Simple Form (simple)** form" {
		t.Errorf("unexpected scope %+v", step.Scope)
	}
	if len(step.Display) != 3 {
		t.Errorf("expected 3 display records, got %v", step.Display)
	}
}

func TestOptionalGuard(t *testing.T) {
	engine := formcollect.New()
	tree := testcases.MustTree(t, testcases.FormSimple)
	step, err := engine.Optional(context.Background(), tree, map[string]any{"firstName": "Joe"})
	if err != nil {
		t.Fatalf("Optional failed: %v", err)
	}
	if step.Phase != types.PhaseCollecting || len(step.State.Required.Components) != 2 {
		t.Errorf("required fields must come first: %+v", step)
	}

	step, err = engine.Optional(context.Background(), tree, map[string]any{"firstName": "Joe", "lastName": "Smith", "email": "joe@example.com"})
	if err != nil {
		t.Fatalf("Optional failed: %v", err)
	}
	if len(step.State.Optional.Components) != 1 || step.State.Optional.Components[0].Path != "phone" {
		t.Errorf("unexpected optional fields: %+v", step.State.Optional.Components)
	}
}

func TestConfirmReportsNestedRequired(t *testing.T) {
	engine := formcollect.New()
	tree := testcases.MustTree(t, testcases.FormDataGrid)
	step, err := engine.Confirm(context.Background(), tree, map[string]any{
		"firstName":            "Joe",
		"lastName":             "Smith",
		"email":                "joe@example.com",
		"children[0].childAge": float64(4),
	})
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	want := []types.FieldError{{Label: "Child Name", Path: "children[0].childName", Message: "Child Name is required", Rule: types.RuleRequired}}
	if diff := cmp.Diff(want, step.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	if step.Complete {
		t.Error("confirm must not complete with errors")
	}

	step, err = engine.Submission(context.Background(), tree, map[string]any{
		"firstName":             "Joe",
		"lastName":              "Smith",
		"email":                 "joe@example.com",
		"children[0].childName": "Alice",
	})
	if err != nil {
		t.Fatalf("Submission failed: %v", err)
	}
	if step.Phase != types.PhaseSubmitted || step.Submission == nil || step.Submission.Form != "dataGrid" {
		t.Errorf("unexpected submission step: %+v", step)
	}
}

func TestUpdate(t *testing.T) {
	engine := formcollect.New()
	tree := testcases.MustTree(t, testcases.FormSimple)
	sub := &types.Submission{ID: "abc123", Form: "simple", Data: map[string]any{
		"firstName": "Joe", "lastName": "Smith", "email": "joe@example.com",
	}}
	step, err := engine.Update(context.Background(), tree, sub, []types.FieldUpdate{{DataPath: "lastName", NewValue: "Doe"}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if step.Phase != types.PhaseUpdated || step.Submission.Data["lastName"] != "Doe" || step.Submission.ID != "abc123" {
		t.Errorf("unexpected update step: %+v", step)
	}
	if sub.Data["lastName"] != "Smith" {
		t.Error("Update must not modify the input submission")
	}
	want := []types.FieldChange{{DataPath: "lastName", Label: "Last Name", Previous: "Smith", NewValue: "Doe"}}
	if diff := cmp.Diff(want, step.Changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldInfoNotFound(t *testing.T) {
	engine := formcollect.New()
	tree := testcases.MustTree(t, testcases.FormSimple)
	if _, err := engine.FieldInfo(context.Background(), tree, []string{"nope"}); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	step, err := engine.FieldInfo(context.Background(), tree, []string{"email", "phone"})
	if err != nil {
		t.Fatalf("FieldInfo failed: %v", err)
	}
	if n := len(step.State.Required.Components) + len(step.State.Optional.Components); n != 2 {
		t.Errorf("expected 2 descriptors, got %d", n)
	}
}

func TestCollectThroughScalarValue(t *testing.T) {
	engine := formcollect.New()
	tree := testcases.MustTree(t, testcases.FormKitchen)
	_, err := engine.Collect(context.Background(), tree, formcollect.CollectRequest{
		FormData: map[string]any{"address": "flat"},
		Updates:  []types.FieldUpdate{{DataPath: "address.street", NewValue: "Main St"}},
	})
	var se *types.StructuralError
	if !errors.As(err, &se) || se.Path != "address.street" {
		t.Errorf("expected a structural error on address.street, got %v", err)
	}
}
