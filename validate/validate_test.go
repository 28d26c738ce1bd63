package validate_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/conditional"
	"github.com/tbxark/formcollect/testcases"
	"github.com/tbxark/formcollect/types"
	"github.com/tbxark/formcollect/validate"
)

func rulesOf(errs []types.FieldError) map[string]string {
	out := map[string]string{}
	for _, e := range errs {
		out[e.Path] = e.Rule
	}
	return out
}

func TestRequired(t *testing.T) {
	v := validate.New()
	tree := testcases.MustTree(t, testcases.FormSimple)
	errs, err := v.Validate(context.Background(), tree, &types.Submission{Data: map[string]any{"firstName": "Joe"}})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	want := []types.FieldError{
		{Label: "Last Name", Path: "lastName", Message: "Last Name is required", Rule: types.RuleRequired},
		{Label: "Email", Path: "email", Message: "Email is required", Rule: types.RuleRequired},
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclaredRules(t *testing.T) {
	v := validate.New(validate.WithConditions(conditional.New(nil)))
	tree := testcases.MustTree(t, testcases.FormKitchen)
	errs, err := v.Validate(context.Background(), tree, &types.Submission{Data: map[string]any{
		"nickname":  "b0",
		"agree":     true,
		"age":       float64(12),
		"address":   map[string]any{"street": "Main"},
		"size":      "m",
		"contact":   "1",
		"interests": map[string]any{"music": true, "golf": true},
		"bio":       "hey",
	}})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	want := map[string]string{
		"nickname":  validate.RulePattern,
		"age":       validate.RuleMin,
		"interests": validate.RuleSelect,
		"size":      validate.RuleSelect,
		"bio":       validate.RuleCustom,
	}
	if diff := cmp.Diff(want, rulesOf(errs)); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
	for _, e := range errs {
		if e.Path == "bio" && e.Message != "Bio is too short" {
			t.Errorf("custom message = %q", e.Message)
		}
	}
}

func TestRowFields(t *testing.T) {
	v := validate.New()
	tree := testcases.MustTree(t, testcases.FormDataGrid)
	errs, err := v.Validate(context.Background(), tree, &types.Submission{Data: map[string]any{
		"firstName": "Joe",
		"lastName":  "Smith",
		"email":     "not-an-email",
		"children": []any{
			map[string]any{"childName": "A", "childAge": "7"},
			map[string]any{"childAge": float64(30)},
		},
	}})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	want := map[string]string{
		"email":                 validate.RuleEmail,
		"children[1].childName": types.RuleRequired,
		"children[1].childAge":  validate.RuleMax,
	}
	if diff := cmp.Diff(want, rulesOf(errs)); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestHiddenSkipped(t *testing.T) {
	v := validate.New(validate.WithConditions(conditional.New(nil)))
	tree := testcases.MustTree(t, testcases.FormKitchen)
	errs, err := v.Validate(context.Background(), tree, &types.Submission{Data: map[string]any{
		"agree":       false,
		"agreeReason": "",
	}})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	for _, e := range errs {
		if e.Path == "agreeReason" {
			t.Errorf("hidden field validated: %+v", e)
		}
	}
}

func TestFunc(t *testing.T) {
	called := false
	var v interface {
		Validate(context.Context, *component.Tree, *types.Submission) ([]types.FieldError, error)
	} = validate.Func(func(ctx context.Context, tree *component.Tree, sub *types.Submission) ([]types.FieldError, error) {
		called = true
		return nil, nil
	})
	if _, err := v.Validate(context.Background(), nil, nil); err != nil || !called {
		t.Errorf("Func not invoked: %v", err)
	}
}
