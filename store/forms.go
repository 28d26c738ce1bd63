package store

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/types"
)

// FormRegistry holds the form definitions available to the tools.
type FormRegistry struct {
	mu    sync.RWMutex
	tag   string
	forms map[string]*component.Tree
}

type RegistryOption func(*FormRegistry)

// WithTag only accepts forms carrying tag.
func WithTag(tag string) RegistryOption {
	return func(r *FormRegistry) {
		r.tag = tag
	}
}

func NewFormRegistry(opts ...RegistryOption) *FormRegistry {
	r := &FormRegistry{forms: map[string]*component.Tree{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a form. It reports whether the form was accepted by the
// tag filter.
func (r *FormRegistry) Register(tree *component.Tree) (bool, error) {
	if tree == nil || tree.Name == "" {
		return false, fmt.Errorf("form without name")
	}
	if r.tag != "" && !slices.Contains(tree.Tags, r.tag) {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.forms[tree.Name]; ok {
		return false, fmt.Errorf("form %q already registered", tree.Name)
	}
	r.forms[tree.Name] = tree
	return true, nil
}

// LoadDir registers every .json, .yaml and .yml definition in dir.
func (r *FormRegistry) LoadDir(dir string) (int, error) {
	return r.LoadFS(os.DirFS(dir), ".")
}

func (r *FormRegistry) LoadFS(fsys fs.FS, dir string) (int, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read forms dir: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := path.Join(dir, entry.Name())
		var tree *component.Tree
		switch strings.ToLower(path.Ext(name)) {
		case ".json":
			tree, err = parseJSON(fsys, name)
		case ".yaml", ".yml":
			tree, err = parseYAML(fsys, name)
		default:
			continue
		}
		if err != nil {
			return count, fmt.Errorf("%s: %w", name, err)
		}
		ok, err := r.Register(tree)
		if err != nil {
			return count, fmt.Errorf("%s: %w", name, err)
		}
		if !ok {
			slog.Debug("form skipped", "file", name, "form", tree.Name, "tag", r.tag)
			continue
		}
		slog.Debug("form loaded", "file", name, "form", tree.Name, "components", tree.Len())
		count++
	}
	return count, nil
}

func parseJSON(fsys fs.FS, name string) (*component.Tree, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return component.Parse(data)
}

// parseYAML re-encodes the definition as JSON so both formats share one
// decoder.
func parseYAML(fsys fs.FS, name string) (*component.Tree, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var def map[string]any
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	raw, err := sonic.Marshal(def)
	if err != nil {
		return nil, err
	}
	return component.Parse(raw)
}

// Forms lists the registered forms sorted by name.
func (r *FormRegistry) Forms(ctx context.Context) []types.FormInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]types.FormInfo, 0, len(r.forms))
	for _, tree := range r.forms {
		infos = append(infos, tree.Info())
	}
	slices.SortFunc(infos, func(a, b types.FormInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos
}

func (r *FormRegistry) Form(ctx context.Context, name string) (*component.Tree, error) {
	r.mu.RLock()
	tree, ok := r.forms[name]
	r.mu.RUnlock()
	if !ok {
		return nil, types.NotFoundf("form %s", name)
	}
	return tree, nil
}
