package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"": slog.LevelInfo, "debug": slog.LevelDebug, "WARN": slog.LevelWarn} {
		got, err := parseLevel(in)
		if err != nil || got != want {
			t.Errorf("parseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := parseLevel("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestReadFormData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(`{"firstName":"Joe","children[0].childAge":4}`), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := readFormData(path)
	if err != nil {
		t.Fatalf("readFormData failed: %v", err)
	}
	if data["firstName"] != "Joe" || data["children[0].childAge"] != float64(4) {
		t.Errorf("unexpected data %v", data)
	}
	if data, err := readFormData(""); err != nil || len(data) != 0 {
		t.Errorf("empty path must yield empty data, got %v %v", data, err)
	}
}
