// Package external loads the options of url and resource selects and the
// data of datasource components.
package external

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/patch"
	"github.com/tbxark/formcollect/script"
	"github.com/tbxark/formcollect/search"
	"github.com/tbxark/formcollect/types"
)

const (
	DefaultLimit   = 100
	DefaultTimeout = 10 * time.Second

	maxBody = 4 << 20
)

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resources resolves the forms and submissions behind resource selects.
type Resources interface {
	Form(ctx context.Context, name string) (*component.Tree, error)
	List(ctx context.Context, form string) ([]*types.Submission, error)
}

type Option struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

type Fetcher struct {
	client    Doer
	scripts   *script.Engine
	resources Resources
}

type FetcherOption func(*Fetcher)

func WithClient(c Doer) FetcherOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

func WithScripts(e *script.Engine) FetcherOption {
	return func(f *Fetcher) {
		f.scripts = e
	}
}

func WithResources(r Resources) FetcherOption {
	return func(f *Fetcher) {
		f.resources = r
	}
}

func New(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: DefaultTimeout}
	}
	if f.scripts == nil {
		f.scripts = script.New()
	}
	return f
}

// Request names the component to load. Data is the current submission
// document, used to resolve {{ expression }} tokens.
type Request struct {
	Tree      *component.Tree
	Component *component.Component
	Data      map[string]any
	Search    string
}

// Fetch returns the options of an external select, or the items of a
// datasource labelled by their name, label or title.
func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]Option, error) {
	c := req.Component
	if !c.IsExternal() {
		return nil, &types.StructuralError{
			Path:   c.Path,
			Reason: fmt.Sprintf("%s component does not load external data; only url or resource selects and datasources do", c.Kind),
		}
	}
	data := req.Data
	if data == nil {
		data = map[string]any{}
	}
	env := map[string]any{
		"data":       data,
		"row":        data,
		"submission": map[string]any{"data": data},
		"form":       map[string]any{"name": req.Tree.Name, "title": req.Tree.Title},
		"component":  map[string]any{"key": c.Key, "label": c.Label, "type": c.Type},
	}

	if c.Kind == component.KindDataSource {
		items, err := f.datasource(ctx, c, env)
		if err != nil {
			return nil, err
		}
		out := make([]Option, 0, len(items))
		for _, item := range items {
			out = append(out, Option{Label: fallbackLabel(item), Value: item})
		}
		return out, nil
	}

	var items []any
	var err error
	switch c.DataSrc {
	case "url":
		items, err = f.url(ctx, c, req.Search, env)
	case "resource":
		items, err = f.resource(ctx, c, req.Search, env)
	}
	if err != nil {
		return nil, err
	}
	out := make([]Option, 0, len(items))
	for _, item := range items {
		out = append(out, Option{Label: f.label(ctx, c, item, env), Value: value(c, item)})
	}
	return out, nil
}

func (f *Fetcher) datasource(ctx context.Context, c *component.Component, env map[string]any) ([]any, error) {
	if c.Source.URL == "" {
		return nil, fmt.Errorf("no URL configured for datasource %s", c.Path)
	}
	u, err := url.Parse(f.interpolate(ctx, c.Source.URL, env))
	if err != nil {
		return nil, fmt.Errorf("invalid datasource URL: %w", err)
	}
	method := strings.ToUpper(c.Source.Method)
	if method == "" {
		method = http.MethodGet
	}
	result, err := f.get(ctx, method, u, f.headers(ctx, c.Source.Headers, env))
	if err != nil {
		return nil, err
	}
	switch v := result.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if list, ok := v["results"].([]any); ok {
			return list, nil
		}
	}
	return []any{result}, nil
}

func (f *Fetcher) url(ctx context.Context, c *component.Component, searchValue string, env map[string]any) ([]any, error) {
	if c.Source.URL == "" {
		return nil, fmt.Errorf("no URL configured for %s", c.Path)
	}
	u, err := url.Parse(f.interpolate(ctx, c.Source.URL, env))
	if err != nil {
		return nil, fmt.Errorf("invalid options URL: %w", err)
	}
	q := u.Query()
	if c.Source.Filter != "" {
		filter, err := url.ParseQuery(f.interpolate(ctx, c.Source.Filter, env))
		if err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
		for k := range filter {
			q.Set(k, filter.Get(k))
		}
	}
	if searchValue != "" && c.Source.SearchField != "" {
		q.Set(c.Source.SearchField, searchValue)
	}
	q.Set("limit", fmt.Sprint(limit(c)))
	u.RawQuery = q.Encode()

	result, err := f.get(ctx, http.MethodGet, u, f.headers(ctx, c.Source.Headers, env))
	if err != nil {
		return nil, err
	}
	if c.Source.SelectValues != "" {
		if v, ok := patch.Lookup(result, c.Source.SelectValues); ok {
			result = v
		}
	}
	list, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("response is not an array; check the URL and selectValues of %s", c.Path)
	}
	return list, nil
}

func (f *Fetcher) resource(ctx context.Context, c *component.Component, searchValue string, env map[string]any) ([]any, error) {
	if c.Resource == "" {
		return nil, fmt.Errorf("no resource configured for %s", c.Path)
	}
	if f.resources == nil {
		return nil, fmt.Errorf("resource %s cannot be loaded: no resource store configured", c.Resource)
	}
	tree, err := f.resources.Form(ctx, c.Resource)
	if err != nil {
		return nil, err
	}

	var criteria []search.Criterion
	if searchValue != "" && c.Source.SearchField != "" {
		criteria = append(criteria, search.Criterion{DataPath: c.Source.SearchField, Operator: search.Contains, SearchValue: searchValue})
	}
	if c.Source.Filter != "" {
		filter, err := url.ParseQuery(f.interpolate(ctx, c.Source.Filter, env))
		if err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
		for k := range filter {
			if k == "limit" || filter.Get(k) == "" {
				continue
			}
			criteria = append(criteria, search.Criterion{
				DataPath:    strings.TrimPrefix(k, "data."),
				Operator:    search.Equals,
				SearchValue: filter.Get(k),
			})
		}
	}
	q, err := search.Compile(criteria)
	if err != nil {
		return nil, err
	}
	subs, err := f.resources.List(ctx, tree.Name)
	if err != nil {
		return nil, err
	}
	matches, err := q.Filter(subs, limit(c))
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(matches))
	for _, sub := range matches {
		items = append(items, map[string]any{
			"_id":      sub.ID,
			"form":     sub.Form,
			"created":  sub.Created,
			"modified": sub.Modified,
			"data":     sub.Data,
		})
	}
	return items, nil
}

func (f *Fetcher) get(ctx context.Context, method string, u *url.URL, headers map[string]string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", u.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var result any
	if err := sonic.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

func (f *Fetcher) headers(ctx context.Context, headers []component.Header, env map[string]any) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		k := f.interpolate(ctx, h.Key, env)
		v := f.interpolate(ctx, h.Value, env)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

var (
	tokenPattern = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}`)
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
)

// interpolate replaces each {{ expression }} with its value evaluated
// against env. Expressions that fail or yield nothing become "".
func (f *Fetcher) interpolate(ctx context.Context, s string, env map[string]any) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(m string) string {
		expr := tokenPattern.FindStringSubmatch(m)[1]
		v, err := f.scripts.Run(ctx, "value = ("+expr+");", maps.Clone(env), "value")
		if err != nil {
			slog.Debug("interpolation failed", "expression", expr, "error", err)
			return ""
		}
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
}

func (f *Fetcher) label(ctx context.Context, c *component.Component, item any, env map[string]any) string {
	if c.Source.Template != "" {
		vars := maps.Clone(env)
		vars["item"] = item
		if label := strings.TrimSpace(tagPattern.ReplaceAllString(f.interpolate(ctx, c.Source.Template, vars), "")); label != "" {
			return label
		}
	}
	return fallbackLabel(item)
}

func fallbackLabel(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return fmt.Sprint(item)
	}
	for _, k := range []string{"label", "name", "title"} {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	raw, err := sonic.MarshalString(m)
	if err != nil {
		return fmt.Sprint(m)
	}
	return raw
}

func value(c *component.Component, item any) any {
	if c.Source.ValueProperty == "" {
		return item
	}
	v, _ := patch.Lookup(item, c.Source.ValueProperty)
	return v
}

func limit(c *component.Component) int {
	if c.Source.Limit > 0 {
		return c.Source.Limit
	}
	return DefaultLimit
}
