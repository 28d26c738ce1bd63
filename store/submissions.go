package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofrs/uuid/v5"

	"github.com/tbxark/formcollect/types"
)

// SubmissionStore keeps submissions under "<namespace>:<form>:<id>".
type SubmissionStore struct {
	core      Cache[*types.Submission]
	namespace string
	now       func() time.Time
}

func NewSubmissionStore(core Cache[*types.Submission], namespace string) *SubmissionStore {
	if namespace == "" {
		namespace = "submission"
	}
	return &SubmissionStore{core: core, namespace: namespace, now: time.Now}
}

func (s *SubmissionStore) key(form, id string) string {
	return s.namespace + ":" + form + ":" + id
}

// Create stores data as a new submission of form.
func (s *SubmissionStore) Create(ctx context.Context, form string, data map[string]any) (*types.Submission, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate submission id: %w", err)
	}
	now := s.now().UTC()
	sub := &types.Submission{
		ID:       strings.ReplaceAll(id.String(), "-", ""),
		Form:     form,
		Data:     data,
		Created:  &now,
		Modified: &now,
	}
	if err := s.set(ctx, sub); err != nil {
		return nil, err
	}
	return clone(sub)
}

func (s *SubmissionStore) Load(ctx context.Context, form, id string) (*types.Submission, error) {
	sub, ok, err := s.core.Get(ctx, s.key(form, id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NotFoundf("submission %s in form %s", id, form)
	}
	return clone(sub)
}

// Save replaces an existing submission and bumps its modified time.
func (s *SubmissionStore) Save(ctx context.Context, sub *types.Submission) (*types.Submission, error) {
	ok, err := s.core.Exists(ctx, s.key(sub.Form, sub.ID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NotFoundf("submission %s in form %s", sub.ID, sub.Form)
	}
	updated, err := clone(sub)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	updated.Modified = &now
	if err := s.set(ctx, updated); err != nil {
		return nil, err
	}
	return clone(updated)
}

func (s *SubmissionStore) Delete(ctx context.Context, form, id string) error {
	return s.core.Del(ctx, s.key(form, id))
}

// List returns the submissions of form, newest first.
func (s *SubmissionStore) List(ctx context.Context, form string) ([]*types.Submission, error) {
	keys, err := s.core.Keys(ctx, s.key(form, ""))
	if err != nil {
		return nil, err
	}
	subs := make([]*types.Submission, 0, len(keys))
	for _, key := range keys {
		sub, ok, err := s.core.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		c, err := clone(sub)
		if err != nil {
			return nil, err
		}
		subs = append(subs, c)
	}
	slices.SortStableFunc(subs, func(a, b *types.Submission) int {
		return created(b).Compare(created(a))
	})
	return subs, nil
}

func (s *SubmissionStore) set(ctx context.Context, sub *types.Submission) error {
	c, err := clone(sub)
	if err != nil {
		return err
	}
	if err := s.core.Set(ctx, s.key(sub.Form, sub.ID), c); err != nil {
		return fmt.Errorf("failed to store submission %s: %w", sub.ID, err)
	}
	return nil
}

func created(sub *types.Submission) time.Time {
	if sub.Created == nil {
		return time.Time{}
	}
	return *sub.Created
}

// clone deep copies a submission so callers never share the stored data.
func clone(sub *types.Submission) (*types.Submission, error) {
	raw, err := sonic.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to copy submission: %w", err)
	}
	var out types.Submission
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to copy submission: %w", err)
	}
	return &out, nil
}
