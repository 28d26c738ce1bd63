package main

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/formcollect/store"
)

func TestKeepSystemLastNTrimmer(t *testing.T) {
	history := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("a"),
		schema.AssistantMessage("b", nil),
		schema.UserMessage("c"),
	}
	got := KeepSystemLastNTrimmer{N: 2}.Trim(history)
	if len(got) != 3 || got[0].Content != "sys" || got[1].Content != "b" || got[2].Content != "c" {
		t.Errorf("unexpected trim result %v", got)
	}
	if got := (KeepSystemLastNTrimmer{}).Trim(history); len(got) != 1 {
		t.Errorf("N=0 must keep only system messages, got %v", got)
	}

	withNil := []*schema.Message{schema.SystemMessage("sys"), nil, schema.UserMessage("a"), schema.UserMessage("b")}
	got = KeepSystemLastNTrimmer{N: 1}.Trim(withNil)
	if len(got) != 2 || got[0].Content != "sys" || got[1].Content != "b" {
		t.Errorf("unexpected trim result with nil message %v", got)
	}
}

func TestHistoryStoreAppend(t *testing.T) {
	ctx := context.Background()
	s := NewHistoryStore(store.NewMemoryCache[[]*schema.Message](), KeepSystemLastNTrimmer{N: 10})
	if _, err := s.Append(ctx, "s1", schema.UserMessage("hi"), nil, schema.UserMessage("hi")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	hist, err := s.Append(ctx, "s1", schema.AssistantMessage("hello", nil))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(hist) != 2 {
		t.Errorf("expected de-duplicated history of 2, got %d", len(hist))
	}
	if other, _ := s.Load(ctx, "s2"); len(other) != 0 {
		t.Error("sessions must not share history")
	}
	_ = s.Clear(ctx, "s1")
	if hist, _ := s.Load(ctx, "s1"); len(hist) != 0 {
		t.Error("history not cleared")
	}
}
