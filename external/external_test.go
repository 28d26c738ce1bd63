package external_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/external"
	"github.com/tbxark/formcollect/types"
)

func tree(t *testing.T, components ...map[string]any) *component.Tree {
	t.Helper()
	tr, err := component.FromDefinition(component.Meta{Name: "lookup", Title: "Lookup"}, components)
	if err != nil {
		t.Fatalf("failed to build tree: %v", err)
	}
	return tr
}

func fetch(t *testing.T, f *external.Fetcher, tr *component.Tree, path string, data map[string]any, search string) ([]external.Option, error) {
	t.Helper()
	c, ok := tr.Lookup(path)
	if !ok {
		t.Fatalf("no component %s", path)
	}
	return f.Fetch(context.Background(), external.Request{Tree: tr, Component: c, Data: data, Search: search})
}

func TestFetchURL(t *testing.T) {
	var query, token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		token = r.Header.Get("X-Token")
		_, _ = w.Write([]byte(`{"results":[{"id":1,"name":"Alpha"},{"id":2,"name":"Beta"}]}`))
	}))
	defer srv.Close()

	tr := tree(t, map[string]any{
		"type": "select", "key": "item", "label": "Item", "dataSrc": "url",
		"data": map[string]any{
			"url":     srv.URL + "/items",
			"headers": []any{map[string]any{"key": "X-Token", "value": "{{ data.token }}"}, map[string]any{"key": "X-Empty", "value": ""}},
		},
		"template":      "<span>{{ item.name }}</span>",
		"valueProperty": "id",
		"selectValues":  "results",
		"filter":        "type={{ data.kind }}",
		"searchField":   "name",
	})
	got, err := fetch(t, external.New(), tr, "item", map[string]any{"kind": "tool", "token": "secret"}, "al")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	want := []external.Option{{Label: "Alpha", Value: float64(1)}, {Label: "Beta", Value: float64(2)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
	for _, part := range []string{"type=tool", "name=al", "limit=100"} {
		if !strings.Contains(query, part) {
			t.Errorf("query %q missing %s", query, part)
		}
	}
	if token != "secret" {
		t.Errorf("X-Token = %q", token)
	}
}

func TestFetchURLNotArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	tr := tree(t, map[string]any{"type": "select", "key": "item", "dataSrc": "url", "data": map[string]any{"url": srv.URL}})
	if _, err := fetch(t, external.New(), tr, "item", nil, ""); err == nil || !strings.Contains(err.Error(), "not an array") {
		t.Errorf("expected a not-an-array error, got %v", err)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := tree(t, map[string]any{"type": "select", "key": "item", "dataSrc": "url", "data": map[string]any{"url": srv.URL}})
	if _, err := fetch(t, external.New(), tr, "item", nil, ""); err == nil || !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("expected an HTTP 500 error, got %v", err)
	}
}

func TestFetchDatasource(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		_, _ = w.Write([]byte(`{"title":"Report","pages":3}`))
	}))
	defer srv.Close()

	tr := tree(t, map[string]any{
		"type": "datasource", "key": "report", "label": "Report",
		"fetch": map[string]any{"url": srv.URL, "method": "post"},
	})
	got, err := fetch(t, external.New(), tr, "report", nil, "")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if method != http.MethodPost {
		t.Errorf("method = %s", method)
	}
	if len(got) != 1 || got[0].Label != "Report" {
		t.Errorf("single objects should be wrapped, got %+v", got)
	}
}

type resources struct {
	forms map[string]*component.Tree
	subs  []*types.Submission
}

func (r resources) Form(_ context.Context, name string) (*component.Tree, error) {
	if tr, ok := r.forms[name]; ok {
		return tr, nil
	}
	return nil, types.NotFoundf("form %s", name)
}

func (r resources) List(context.Context, string) ([]*types.Submission, error) {
	return r.subs, nil
}

func TestFetchResource(t *testing.T) {
	users := tree(t, map[string]any{"type": "textfield", "key": "firstName"})
	res := resources{
		forms: map[string]*component.Tree{"users": users},
		subs: []*types.Submission{
			{ID: "1", Form: "users", Data: map[string]any{"firstName": "Joe", "email": "joe@example.com", "team": "red"}},
			{ID: "2", Form: "users", Data: map[string]any{"firstName": "Joan", "email": "joan@example.com", "team": "blue"}},
			{ID: "3", Form: "users", Data: map[string]any{"firstName": "Ann", "email": "ann@example.com", "team": "red"}},
		},
	}
	tr := tree(t, map[string]any{
		"type": "select", "key": "owner", "dataSrc": "resource",
		"data":          map[string]any{"resource": "users"},
		"template":      "<span>{{ item.data.firstName }}</span>",
		"valueProperty": "data.email",
		"searchField":   "firstName",
		"filter":        "data.team=red",
	})
	f := external.New(external.WithResources(res))

	got, err := fetch(t, f, tr, "owner", nil, "jo")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	want := []external.Option{{Label: "Joe", Value: "joe@example.com"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}

	missing := tree(t, map[string]any{"type": "select", "key": "owner", "dataSrc": "resource", "data": map[string]any{"resource": "teams"}})
	if _, err := fetch(t, f, missing, "owner", nil, ""); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected not found for an unknown resource, got %v", err)
	}
}

func TestFetchRejectsStaticOptions(t *testing.T) {
	tr := tree(t,
		map[string]any{"type": "textfield", "key": "name"},
		map[string]any{"type": "select", "key": "size", "data": map[string]any{"values": []any{map[string]any{"label": "Small", "value": "s"}}}},
	)
	for _, path := range []string{"name", "size"} {
		if _, err := fetch(t, external.New(), tr, path, nil, ""); !errors.Is(err, types.ErrStructural) {
			t.Errorf("%s: expected a structural error, got %v", path, err)
		}
	}
}
