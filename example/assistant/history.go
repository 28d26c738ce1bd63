package main

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/formcollect/store"
)

type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// KeepSystemLastNTrimmer keeps all system messages and the last N non-system messages.
// When N <= 0, it keeps only system messages.
type KeepSystemLastNTrimmer struct {
	N int
}

func (t KeepSystemLastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	if len(history) == 0 {
		return history
	}
	nonSystem := 0
	for _, m := range history {
		if m == nil {
			continue
		}
		if m.Role != schema.System {
			nonSystem++
		}
	}
	drop := nonSystem - max(t.N, 0)
	if drop <= 0 {
		return history
	}
	out := make([]*schema.Message, 0, len(history)-drop)
	for _, m := range history {
		if m == nil {
			continue
		}
		if m.Role != schema.System && drop > 0 {
			drop--
			continue
		}
		out = append(out, m)
	}
	return out
}

// HistoryStore keeps the conversation of each chat session.
type HistoryStore struct {
	core    store.Cache[[]*schema.Message]
	trimmer Trimmer
}

func NewHistoryStore(core store.Cache[[]*schema.Message], trimmer Trimmer) *HistoryStore {
	return &HistoryStore{core: core, trimmer: trimmer}
}

func (s *HistoryStore) key(session string) string {
	return "assistant:history:" + session
}

func (s *HistoryStore) Load(ctx context.Context, session string) ([]*schema.Message, error) {
	hist, _, err := s.core.Get(ctx, s.key(session))
	return hist, err
}

func (s *HistoryStore) Clear(ctx context.Context, session string) error {
	return s.core.Del(ctx, s.key(session))
}

// Append adds msgs, skipping nil messages and repeats of the last one,
// then trims and saves. It returns the saved history.
func (s *HistoryStore) Append(ctx context.Context, session string, msgs ...*schema.Message) ([]*schema.Message, error) {
	hist, err := s.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if n := len(hist); n > 0 && hist[n-1].Role == msg.Role && hist[n-1].Content == msg.Content && len(msg.ToolCalls) == 0 {
			continue
		}
		hist = append(hist, msg)
	}
	if s.trimmer != nil {
		hist = s.trimmer.Trim(hist)
	}
	if err := s.core.Set(ctx, s.key(session), hist); err != nil {
		return nil, err
	}
	return hist, nil
}
