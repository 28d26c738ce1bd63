package formcollect

import (
	"context"
	"log/slog"

	"github.com/cloudwego/eino/callbacks"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/conditional"
	"github.com/tbxark/formcollect/convert"
	"github.com/tbxark/formcollect/extract"
	"github.com/tbxark/formcollect/patch"
	"github.com/tbxark/formcollect/scope"
	"github.com/tbxark/formcollect/script"
	"github.com/tbxark/formcollect/types"
	"github.com/tbxark/formcollect/validate"
)

// Engine 是无状态的字段收集引擎，每次调用都从表单定义和调用方携带的数据重新计算
type Engine struct {
	extractor *extract.Extractor
	collected *extract.Extractor
	validator extract.Validator
}

type engineOptions struct {
	scripts    *script.Engine
	validator  extract.Validator
	conditions extract.Conditions
}

type Option func(*engineOptions)

// WithValidator 替换默认的字段校验器
func WithValidator(v extract.Validator) Option {
	return func(o *engineOptions) {
		o.validator = v
	}
}

// WithConditions 替换默认的条件显示判断
func WithConditions(c extract.Conditions) Option {
	return func(o *engineOptions) {
		o.conditions = c
	}
}

// WithScripts 设置默认校验器与条件判断共用的脚本引擎
func WithScripts(e *script.Engine) Option {
	return func(o *engineOptions) {
		o.scripts = e
	}
}

// New 创建引擎，未指定的钩子使用基于表单声明规则的默认实现
func New(opts ...Option) *Engine {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.scripts == nil {
		o.scripts = script.New()
	}
	if o.conditions == nil {
		o.conditions = conditional.New(o.scripts)
	}
	if o.validator == nil {
		o.validator = validate.New(validate.WithScripts(o.scripts), validate.WithConditions(o.conditions))
	}
	return &Engine{
		extractor: extract.New(extract.WithValidator(o.validator), extract.WithConditions(o.conditions)),
		collected: extract.New(extract.WithValidator(o.validator), extract.WithConditions(o.conditions), extract.WithCollected()),
		validator: o.validator,
	}
}

// Fields 列出作用域内仍需收集的字段
func (e *Engine) Fields(ctx context.Context, tree *component.Tree, req FieldsRequest) (*types.Step, error) {
	return invoke(ctx, "Fields", req, func(ctx context.Context) (*types.Step, error) {
		if err := scope.Check(tree, req.ParentPath); err != nil {
			return nil, err
		}
		doc, err := convert.New(tree).ToDocument(req.FormData)
		if err != nil {
			return nil, err
		}
		extractor := e.extractor
		if req.Criteria == CriteriaAll {
			extractor = e.collected
		}
		state, err := extractor.Extract(ctx, tree, &types.Submission{Form: tree.Name, Data: doc}, scopeOf(req.ParentPath))
		if err != nil {
			return nil, err
		}
		complete := len(state.Required.Components) == 0
		switch req.Criteria {
		case CriteriaOptional:
			state.Required = types.NewFieldGroup()
		case CriteriaAll:
		default:
			state.Optional = types.NewFieldGroup()
		}

		phase := types.PhaseDiscover
		if complete {
			phase = completePhase(req.ParentPath)
		}
		slog.Debug("fields", "form", tree.Name, "parent", req.ParentPath, "criteria", req.Criteria, "phase", phase)
		return &types.Step{
			Phase:    phase,
			Form:     tree.Info(),
			Scope:    resolve(tree, doc, req.ParentPath, state.RowIndex),
			State:    state,
			Complete: complete,
		}, nil
	})
}

// FieldInfo 返回指定路径字段的详细描述，不依赖已收集的数据
func (e *Engine) FieldInfo(ctx context.Context, tree *component.Tree, paths []string) (*types.Step, error) {
	return invoke(ctx, "FieldInfo", paths, func(ctx context.Context) (*types.Step, error) {
		for _, p := range paths {
			if _, ok := tree.Lookup(p); !ok {
				return nil, types.NotFoundf("field %s in form %s", p, tree.Name)
			}
		}
		state, err := e.collected.Extract(ctx, tree, &types.Submission{Form: tree.Name}, extract.Only(paths...))
		if err != nil {
			return nil, err
		}
		state.Errors = []types.FieldError{}
		return &types.Step{
			Phase: types.PhaseDiscover,
			Form:  tree.Info(),
			State: state,
		}, nil
	})
}

// Collect 合并本轮更新并计算下一批需要收集的字段
// 校验失败时返回错误列表，调用方需修正后重试
func (e *Engine) Collect(ctx context.Context, tree *component.Tree, req CollectRequest) (*types.Step, error) {
	return invoke(ctx, "Collect", req, func(ctx context.Context) (*types.Step, error) {
		if err := scope.Check(tree, req.ParentPath); err != nil {
			return nil, err
		}
		if err := checkUpdates(tree, req.Updates); err != nil {
			return nil, err
		}
		conv := convert.New(tree)
		flat := convert.Merge(req.FormData, req.Updates)
		doc, err := conv.ToDocument(flat)
		if err != nil {
			return nil, err
		}

		state, err := e.extractor.Extract(ctx, tree, &types.Submission{Form: tree.Name, Data: doc}, scopeOf(req.ParentPath))
		if err != nil {
			return nil, err
		}
		step := &types.Step{
			Phase:  types.PhaseCollecting,
			Form:   tree.Info(),
			Scope:  resolve(tree, doc, req.ParentPath, state.RowIndex),
			State:  state,
			Errors: state.Errors,
		}
		if len(state.Errors) > 0 {
			slog.Debug("collect blocked", "form", tree.Name, "errors", len(state.Errors))
			return step, nil
		}
		if len(state.Required.Components) == 0 {
			step.Phase = completePhase(req.ParentPath)
			step.Complete = true
			step.Display = conv.ToDisplayList(doc)
		}
		slog.Debug("collect", "form", tree.Name, "parent", req.ParentPath, "phase", step.Phase,
			"required", len(state.Required.Components))
		return step, nil
	})
}

// Optional 在必填字段全部收集后列出可选字段
func (e *Engine) Optional(ctx context.Context, tree *component.Tree, formData map[string]any) (*types.Step, error) {
	return invoke(ctx, "Optional", formData, func(ctx context.Context) (*types.Step, error) {
		conv := convert.New(tree)
		doc, err := conv.ToDocument(formData)
		if err != nil {
			return nil, err
		}
		state, err := e.extractor.Extract(ctx, tree, &types.Submission{Form: tree.Name, Data: doc}, extract.Root())
		if err != nil {
			return nil, err
		}
		if len(state.Required.Components) > 0 {
			state.Optional = types.NewFieldGroup()
			return &types.Step{
				Phase: types.PhaseCollecting,
				Form:  tree.Info(),
				Scope: scope.Root(tree),
				State: state,
			}, nil
		}
		state.Required = types.NewFieldGroup()
		return &types.Step{
			Phase:    types.PhaseConfirming,
			Form:     tree.Info(),
			Scope:    scope.Root(tree),
			State:    state,
			Display:  conv.ToDisplayList(doc),
			Complete: true,
		}, nil
	})
}

// Confirm 汇总已收集的数据，并返回包含嵌套必填项在内的全部校验错误
func (e *Engine) Confirm(ctx context.Context, tree *component.Tree, formData map[string]any) (*types.Step, error) {
	return invoke(ctx, "Confirm", formData, func(ctx context.Context) (*types.Step, error) {
		return e.confirm(ctx, tree, formData)
	})
}

func (e *Engine) confirm(ctx context.Context, tree *component.Tree, formData map[string]any) (*types.Step, error) {
	conv := convert.New(tree)
	doc, err := conv.ToDocument(formData)
	if err != nil {
		return nil, err
	}
	errs, err := e.validate(ctx, tree, &types.Submission{Form: tree.Name, Data: doc})
	if err != nil {
		return nil, err
	}
	return &types.Step{
		Phase:      types.PhaseConfirming,
		Form:       tree.Info(),
		Scope:      scope.Root(tree),
		Errors:     errs,
		Display:    conv.ToDisplayList(doc),
		Complete:   len(errs) == 0,
		Submission: &types.Submission{Form: tree.Name, Data: doc},
	}, nil
}

// Submission 生成可提交的文档；存在校验错误时保持在确认阶段
func (e *Engine) Submission(ctx context.Context, tree *component.Tree, formData map[string]any) (*types.Step, error) {
	return invoke(ctx, "Submission", formData, func(ctx context.Context) (*types.Step, error) {
		step, err := e.confirm(ctx, tree, formData)
		if err != nil {
			return nil, err
		}
		if step.Complete {
			step.Phase = types.PhaseSubmitted
		}
		return step, nil
	})
}

// Update 修改已有提交中的字段并返回逐字段的变更
func (e *Engine) Update(ctx context.Context, tree *component.Tree, sub *types.Submission, updates []types.FieldUpdate) (*types.Step, error) {
	return invoke(ctx, "Update", updates, func(ctx context.Context) (*types.Step, error) {
		if sub == nil {
			return nil, types.NotFoundf("submission for form %s", tree.Name)
		}
		if err := checkUpdates(tree, updates); err != nil {
			return nil, err
		}
		conv := convert.New(tree)
		doc, changes, err := conv.Update(sub.Data, updates)
		if err != nil {
			return nil, err
		}
		updated := *sub
		updated.Data = doc
		errs, err := e.validate(ctx, tree, &updated)
		if err != nil {
			return nil, err
		}
		step := &types.Step{
			Phase:      types.PhaseUpdated,
			Form:       tree.Info(),
			Errors:     errs,
			Changes:    changes,
			Display:    conv.ToDisplayList(doc),
			Complete:   len(errs) == 0,
			Submission: &updated,
		}
		if !step.Complete {
			step.Phase = types.PhaseConfirming
		}
		return step, nil
	})
}

func (e *Engine) validate(ctx context.Context, tree *component.Tree, sub *types.Submission) ([]types.FieldError, error) {
	errs, err := e.validator.Validate(ctx, tree, sub)
	if err != nil {
		return nil, types.HookFailure("validator", err)
	}
	if errs == nil {
		errs = []types.FieldError{}
	}
	return errs, nil
}

func invoke[I any](ctx context.Context, name string, input I, fn func(ctx context.Context) (*types.Step, error)) (*types.Step, error) {
	ctx = callbacks.EnsureRunInfo(ctx, name, "FormCollect")
	ctx = callbacks.OnStart(ctx, input)
	step, err := fn(ctx)
	if err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}
	callbacks.OnEnd(ctx, step)
	return step, nil
}

func scopeOf(parentPath string) extract.Scope {
	if parentPath == "" {
		return extract.Root()
	}
	return extract.Under(parentPath)
}

func completePhase(parentPath string) types.Phase {
	if parentPath == "" {
		return types.PhaseConfirming
	}
	return types.PhaseScopeComplete
}

// resolve 解析作用域，表格作用域使用当前行并给出下一行的路径
func resolve(tree *component.Tree, doc map[string]any, parentPath string, rowIndex int) *types.ParentScope {
	if parentPath == "" {
		return scope.Root(tree)
	}
	base, _, _ := patch.TrailingIndex(parentPath)
	rows := 0
	if v, ok := patch.Lookup(doc, base); ok {
		if list, ok := v.([]any); ok {
			rows = len(list)
		}
	}
	return scope.ResolveOrRoot(tree, parentPath, scope.WithRowIndex(rowIndex), scope.WithRowCount(rows))
}

// checkUpdates 确认每个更新都指向表单中的输入字段
func checkUpdates(tree *component.Tree, updates []types.FieldUpdate) error {
	ops := make([]patch.Operation, 0, len(updates))
	for _, u := range updates {
		if u.DataPath == "" {
			return &types.StructuralError{Path: u.DataPath, Reason: "empty data path"}
		}
		ops = append(ops, patch.Set(u.DataPath, u.NewValue))
	}
	if err := patch.ValidateOperations(ops, tree.AllowedPointers()); err != nil {
		return &types.StructuralError{Path: "updates", Reason: err.Error()}
	}
	return nil
}
