package testcases_test

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tbxark/formcollect"
	"github.com/tbxark/formcollect/testcases"
	"github.com/tbxark/formcollect/types"
)

func required(step *types.Step) []string {
	var out []string
	for _, f := range step.State.Required.Components {
		out = append(out, f.Path)
	}
	return out
}

// session 模拟调用方：每轮把更新合并进自己保存的扁平数据
type session struct {
	t      *testing.T
	engine *formcollect.Engine
	form   string
	data   map[string]any
}

func newSession(t *testing.T, form string) *session {
	return &session{t: t, engine: formcollect.New(), data: map[string]any{}, form: form}
}

func (s *session) collect(parent string, updates ...types.FieldUpdate) *types.Step {
	s.t.Helper()
	step, err := s.engine.Collect(context.Background(), testcases.MustTree(s.t, s.form), formcollect.CollectRequest{
		FormData:   s.data,
		Updates:    updates,
		ParentPath: parent,
	})
	if err != nil {
		s.t.Fatalf("Collect(%q) failed: %v", parent, err)
	}
	if !step.Blocked() {
		for _, u := range updates {
			s.data[u.DataPath] = u.NewValue
		}
	}
	return step
}

func (s *session) fields(parent string) *types.Step {
	s.t.Helper()
	step, err := s.engine.Fields(context.Background(), testcases.MustTree(s.t, s.form), formcollect.FieldsRequest{
		FormData:   s.data,
		ParentPath: parent,
	})
	if err != nil {
		s.t.Fatalf("Fields(%q) failed: %v", parent, err)
	}
	return step
}

func set(path string, value any) types.FieldUpdate {
	return types.FieldUpdate{DataPath: path, NewValue: value}
}

// 简单表单：逐个收集必填字段，完成后进入确认阶段
func TestSimpleFormScenario(t *testing.T) {
	s := newSession(t, testcases.FormSimple)

	step := s.fields("")
	if diff := cmp.Diff([]string{"firstName", "lastName", "email"}, required(step)); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	step = s.collect("", set("firstName", "Joe"))
	if diff := cmp.Diff([]string{"lastName", "email"}, required(step)); diff != "" {
		t.Errorf("required mismatch (-want +got):\n%s", diff)
	}

	step = s.collect("", set("email", "joe"))
	if !step.Blocked() || step.Errors[0].Message != "Email must be a valid email." {
		t.Fatalf("invalid email must block: %+v", step.Errors)
	}

	step = s.collect("", set("lastName", "Smith"), set("email", "joe@example.com"))
	if step.Phase != types.PhaseConfirming || !step.Complete {
		t.Fatalf("expected confirming, got %s", step.Phase)
	}

	step, err := s.engine.Optional(context.Background(), testcases.MustTree(t, s.form), s.data)
	if err != nil {
		t.Fatal(err)
	}
	if len(step.State.Optional.Components) != 1 || step.State.Optional.Components[0].Path != "phone" {
		t.Errorf("unexpected optional fields %+v", step.State.Optional.Components)
	}

	step, err = s.engine.Submission(context.Background(), testcases.MustTree(t, s.form), s.data)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"firstName": "Joe", "lastName": "Smith", "email": "joe@example.com"}
	if diff := cmp.Diff(want, step.Submission.Data); diff != "" {
		t.Errorf("submission mismatch (-want +got):\n%s", diff)
	}
}

// 表格：根作用域只把表格本身列为必填，行内字段在表格作用域中逐行收集
func TestDataGridScenario(t *testing.T) {
	s := newSession(t, testcases.FormDataGrid)

	step := s.fields("")
	if diff := cmp.Diff([]string{"firstName", "lastName", "email", "children"}, required(step)); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	step = s.collect("", set("firstName", "Joe"), set("lastName", "Smith"), set("email", "joe@example.com"))
	if diff := cmp.Diff([]string{"children"}, required(step)); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if !step.State.Required.Components[0].IsNested {
		t.Error("children must be marked as nested")
	}

	step = s.fields("children")
	if diff := cmp.Diff([]string{"children[0].childName"}, required(step)); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if step.Scope.Kind != types.ScopeTable || step.Scope.DataPath != "children[0]" {
		t.Errorf("unexpected scope %+v", step.Scope)
	}

	step = s.collect("children[0]", set("children[0].childName", "Alice"), set("children[0].childAge", float64(4)))
	if step.Phase != types.PhaseScopeComplete || !step.Complete {
		t.Fatalf("row 0 should be complete, got %s", step.Phase)
	}
	if step.Scope.NextRowPath != "children[1]" {
		t.Errorf("NextRowPath = %q", step.Scope.NextRowPath)
	}

	step = s.fields(step.Scope.NextRowPath)
	if diff := cmp.Diff([]string{"children[1].childName"}, required(step)); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	step = s.collect("children[1]", set("children[1].childAge", float64(30)))
	if !step.Blocked() || step.Errors[0].Path != "children[1].childAge" {
		t.Fatalf("age above max must block: %+v", step.Errors)
	}
	step = s.collect("children[1]", set("children[1].childName", "Bob"))
	if step.Phase != types.PhaseScopeComplete || step.Scope.NextRowPath != "children[2]" {
		t.Fatalf("unexpected step %s %+v", step.Phase, step.Scope)
	}

	step = s.fields("")
	if step.Phase != types.PhaseConfirming || len(required(step)) != 0 {
		t.Fatalf("root should be complete: %+v", required(step))
	}

	step, err := s.engine.Confirm(context.Background(), testcases.MustTree(t, s.form), s.data)
	if err != nil {
		t.Fatal(err)
	}
	if !step.Complete {
		t.Fatalf("unexpected errors %+v", step.Errors)
	}
	rows := step.Submission.Data["children"].([]any)
	if len(rows) != 2 || rows[1].(map[string]any)["childName"] != "Bob" {
		t.Errorf("unexpected rows %v", rows)
	}
	if !slices.ContainsFunc(step.Display, func(r types.DisplayRecord) bool { return r.Heading && r.Label == "Children" }) {
		t.Errorf("display must carry the Children heading: %+v", step.Display)
	}
}

// 子表单：值写在 <key>.data 之下，完成后回到根作用域
func TestNestedFormScenario(t *testing.T) {
	s := newSession(t, testcases.FormNestedForm)

	step := s.collect("", set("firstName", "Joe"))
	if diff := cmp.Diff([]string{"company"}, required(step)); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	step = s.fields("company")
	if diff := cmp.Diff([]string{"company.data.name"}, required(step)); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if step.Scope.Kind != types.ScopeForm || step.Scope.DataPath != "company.data" {
		t.Errorf("unexpected scope %+v", step.Scope)
	}

	step = s.collect("company", set("company.data.name", "Acme"))
	if step.Phase != types.PhaseScopeComplete {
		t.Fatalf("sub-form should be complete, got %s", step.Phase)
	}

	step = s.fields("")
	if step.Phase != types.PhaseConfirming || !step.Complete {
		t.Fatalf("root should be complete, got %s", step.Phase)
	}

	step, err := s.engine.Submission(context.Background(), testcases.MustTree(t, s.form), s.data)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"firstName": "Joe",
		"company":   map[string]any{"data": map[string]any{"name": "Acme"}},
	}
	if step.Phase != types.PhaseSubmitted {
		t.Errorf("Phase = %s", step.Phase)
	}
	if diff := cmp.Diff(want, step.Submission.Data); diff != "" {
		t.Errorf("submission mismatch (-want +got):\n%s", diff)
	}
}
