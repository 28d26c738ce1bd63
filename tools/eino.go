package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

type definition struct {
	name string
	tool tool.InvokableTool
	call func(ctx context.Context, args []byte) (*Result, error)
}

func define[I any](name, desc string, fn func(context.Context, I) (*Result, error)) (definition, error) {
	t, err := utils.InferTool[I, *Result](name, desc, fn, utils.WithMarshalOutput(marshalResult))
	if err != nil {
		return definition{}, fmt.Errorf("failed to infer tool %s: %w", name, err)
	}
	call := func(ctx context.Context, args []byte) (*Result, error) {
		var in I
		if len(bytes.TrimSpace(args)) > 0 {
			if err := sonic.Unmarshal(args, &in); err != nil {
				return &Result{Text: fmt.Sprintf("Error: invalid arguments for %s: %v", name, err), IsError: true}, nil
			}
		}
		return fn(ctx, in)
	}
	return definition{name: name, tool: t, call: call}, nil
}

func marshalResult(_ context.Context, output any) (string, error) {
	if r, ok := output.(*Result); ok {
		return r.String(), nil
	}
	return sonic.MarshalString(output)
}

func (h *Handlers) definitions() ([]definition, error) {
	var (
		defs []definition
		errs []error
	)
	add := func(d definition, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		defs = append(defs, d)
	}
	add(define(NameGetForms, h.descriptions[NameGetForms], h.GetForms))
	add(define(NameGetFormFields, h.descriptions[NameGetFormFields], h.GetFormFields))
	add(define(NameGetFieldInfo, h.descriptions[NameGetFieldInfo], h.GetFieldInfo))
	add(define(NameCollectFieldData, h.descriptions[NameCollectFieldData], h.CollectFieldData))
	add(define(NameGetOptionalFields, h.descriptions[NameGetOptionalFields], h.GetOptionalFields))
	add(define(NameConfirmSubmission, h.descriptions[NameConfirmSubmission], h.ConfirmSubmission))
	add(define(NameSubmitForm, h.descriptions[NameSubmitForm], h.SubmitCompletedForm))
	add(define(NameFindSubmission, h.descriptions[NameFindSubmission], h.FindSubmission))
	add(define(NameSubmissionUpdate, h.descriptions[NameSubmissionUpdate], h.SubmissionUpdate))
	add(define(NameFetchExternalData, h.descriptions[NameFetchExternalData], h.FetchExternalData))
	add(define(NameAgentProvideData, h.descriptions[NameAgentProvideData], h.AgentProvideData))
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return defs, nil
}

// EinoTools returns every tool as an eino invokable tool.
func (h *Handlers) EinoTools() ([]tool.BaseTool, error) {
	defs, err := h.definitions()
	if err != nil {
		return nil, err
	}
	out := make([]tool.BaseTool, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.tool)
	}
	return out, nil
}

func getToolInfo(ctx context.Context, t tool.InvokableTool) (*schema.ToolInfo, error) {
	info, err := t.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool info: %w", err)
	}
	return info, nil
}
