package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tbxark/formcollect/testcases"
	"github.com/tbxark/formcollect/types"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache[int]()
	_ = cache.Set(ctx, "a:2", 2)
	_ = cache.Set(ctx, "a:1", 1)
	_ = cache.Set(ctx, "b:1", 3)

	if v, ok, _ := cache.Get(ctx, "a:1"); !ok || v != 1 {
		t.Errorf("Get = %v %v", v, ok)
	}
	keys, _ := cache.Keys(ctx, "a:")
	if diff := cmp.Diff([]string{"a:1", "a:2"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	_ = cache.Del(ctx, "a:1")
	if ok, _ := cache.Exists(ctx, "a:1"); ok {
		t.Error("deleted key still exists")
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("FORMCOLLECT_REDIS_ADDR")
	if addr == "" {
		t.Skip("FORMCOLLECT_REDIS_ADDR not set")
	}
	ctx := context.Background()
	cache := NewRedisCache[*types.Submission](RedisConfig{Addr: addr, Prefix: "formcollect-test:", TTL: time.Minute})
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	subs := NewSubmissionStore(cache, "")
	sub, err := subs.Create(ctx, "simple", map[string]any{"firstName": "Joe"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer subs.Delete(ctx, "simple", sub.ID)
	got, err := subs.Load(ctx, "simple", sub.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Data["firstName"] != "Joe" {
		t.Errorf("unexpected data %v", got.Data)
	}
}

func TestSubmissionStore(t *testing.T) {
	ctx := context.Background()
	subs := NewSubmissionStore(NewMemoryCache[*types.Submission](), "")
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	subs.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, err := subs.Create(ctx, "simple", map[string]any{"firstName": "Joe"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(first.ID) != 32 || first.Form != "simple" {
		t.Errorf("unexpected submission %+v", first)
	}
	second, _ := subs.Create(ctx, "simple", map[string]any{"firstName": "Ann"})
	_, _ = subs.Create(ctx, "dataGrid", map[string]any{})

	first.Data["firstName"] = "Changed"
	loaded, err := subs.Load(ctx, "simple", first.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Data["firstName"] != "Joe" {
		t.Error("stored data must not alias the returned submission")
	}

	list, err := subs.List(ctx, "simple")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("expected newest first, got %v", list)
	}

	loaded.Data["lastName"] = "Smith"
	saved, err := subs.Save(ctx, loaded)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !saved.Modified.After(*saved.Created) {
		t.Error("modified time not bumped")
	}

	if _, err := subs.Load(ctx, "simple", "missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := subs.Save(ctx, &types.Submission{ID: "missing", Form: "simple"}); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestFormRegistry(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{testcases.FormSimple, testcases.FormKitchen} {
		data, err := testcases.Definition(name)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	yamlForm := `name: contact
title: Contact
components:
  - type: textfield
    key: name
    label: Name
    input: true
    validate:
      required: true
`
	if err := os.WriteFile(filepath.Join(dir, "contact.yaml"), []byte(yamlForm), 0o644); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644)

	reg := NewFormRegistry()
	n, err := reg.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if n != 3 {
		t.Errorf("loaded %d forms, want 3", n)
	}
	var names []string
	for _, f := range reg.Forms(context.Background()) {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"contact", "kitchen", "simple"}, names); diff != "" {
		t.Errorf("forms mismatch (-want +got):\n%s", diff)
	}
	tree, err := reg.Form(context.Background(), "contact")
	if err != nil {
		t.Fatalf("Form failed: %v", err)
	}
	if c, ok := tree.Lookup("name"); !ok || !c.IsRequired() {
		t.Error("yaml component not decoded")
	}
	if _, err := reg.Form(context.Background(), "nope"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := reg.Register(tree); err == nil {
		t.Error("duplicate registration must fail")
	}

	tagged := NewFormRegistry(WithTag("uag"))
	n, err = tagged.LoadDir(dir)
	if err != nil || n != 1 {
		t.Errorf("tag filter loaded %d forms, err %v", n, err)
	}
}
