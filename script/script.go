// Package script runs the JavaScript snippets embedded in form definitions
// (custom conditionals and custom validation) in a sandboxed runtime.
package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

const DefaultTimeout = 200 * time.Millisecond

type Engine struct {
	timeout  time.Duration
	programs sync.Map
}

type Option func(*Engine)

func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) compile(src string) (*goja.Program, error) {
	if p, ok := e.programs.Load(src); ok {
		return p.(*goja.Program), nil
	}
	p, err := goja.Compile("", src, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}
	e.programs.Store(src, p)
	return p, nil
}

// Run executes src with vars defined as globals and returns the exported
// value of the global named result.
func (e *Engine) Run(ctx context.Context, src string, vars map[string]any, result string) (any, error) {
	program, err := e.compile(src)
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	for k, v := range vars {
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("failed to set variable %s: %w", k, err)
		}
	}

	timer := time.AfterFunc(e.timeout, func() {
		vm.Interrupt("execution timeout")
	})
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	if _, err := vm.RunProgram(program); err != nil {
		return nil, fmt.Errorf("script failed: %w", err)
	}
	value := vm.Get(result)
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	return value.Export(), nil
}

// Bool runs src and reads result as a boolean, falling back to def when
// the script leaves it unset.
func (e *Engine) Bool(ctx context.Context, src string, vars map[string]any, result string, def bool) (bool, error) {
	if _, ok := vars[result]; !ok {
		vars[result] = def
	}
	v, err := e.Run(ctx, src, vars, result)
	if err != nil {
		return def, err
	}
	switch b := v.(type) {
	case nil:
		return def, nil
	case bool:
		return b, nil
	default:
		return def, fmt.Errorf("script set %s to %T, want bool", result, v)
	}
}
