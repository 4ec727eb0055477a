package session_test

import (
	"context"
	"errors"
	"quotecard/internal/card"
	"quotecard/internal/session"
	"quotecard/internal/templates"
	"testing"
	"time"
)

func TestNewSessionDefaults(t *testing.T) {
	store := session.NewStore()

	s, created := store.Get(42)
	if !created {
		t.Fatalf("expected a new session")
	}

	if s.TemplateKey() != templates.Default {
		t.Fatalf("expected default template, got %q", s.TemplateKey())
	}

	if s.Card() != nil {
		t.Fatalf("expected no generated card")
	}

	again, created := store.Get(42)
	if created || again != s {
		t.Fatalf("expected the same session on second lookup")
	}
}

func TestSetTemplateRejectsUnknownKey(t *testing.T) {
	s, _ := session.NewStore().Get(1)

	if err := s.SetTemplate("warm"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.SetTemplate("neon"); !errors.Is(err, templates.ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}

	if s.TemplateKey() != "warm" {
		t.Fatalf("expected selection to stay warm, got %q", s.TemplateKey())
	}
}

func TestApplySummaryReplacesText(t *testing.T) {
	s, _ := session.NewStore().Get(1)
	s.SetText("original text")

	ticket, ctx := s.BeginSummary(context.Background())

	if !s.Progress(ticket, "partial") {
		t.Fatalf("expected progress to be accepted")
	}

	state, ok := s.Stream()
	if !ok || state.Accumulated != "partial" {
		t.Fatalf("unexpected stream state: %+v, %v", state, ok)
	}

	if err := s.ApplySummary(ticket, "summary"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Text() != "summary" {
		t.Fatalf("expected summary as text, got %q", s.Text())
	}

	if _, ok = s.Stream(); ok {
		t.Fatalf("expected stream to end")
	}

	if ctx.Err() == nil {
		t.Fatalf("expected request context to be released")
	}
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	s, _ := session.NewStore().Get(1)
	s.SetText("original text")

	first, firstCtx := s.BeginSummary(context.Background())
	second, secondCtx := s.BeginSummary(context.Background())

	if firstCtx.Err() == nil {
		t.Fatalf("expected first request to be cancelled")
	}

	if secondCtx.Err() != nil {
		t.Fatalf("expected second request to stay active")
	}

	if s.Current(first) || !s.Current(second) {
		t.Fatalf("expected only the second ticket to be current")
	}

	if s.Progress(first, "late") {
		t.Fatalf("expected stale progress to be rejected")
	}

	if err := s.ApplySummary(first, "stale summary"); !errors.Is(err, session.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}

	if s.Text() != "original text" {
		t.Fatalf("expected stale summary to be ignored, got %q", s.Text())
	}

	if err := s.ApplySummary(second, "fresh summary"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Text() != "fresh summary" {
		t.Fatalf("expected fresh summary, got %q", s.Text())
	}

	if err := s.ApplySummary(second, "again"); !errors.Is(err, session.ErrStale) {
		t.Fatalf("expected applied ticket to become stale, got %v", err)
	}
}

func TestFailSummaryKeepsText(t *testing.T) {
	s, _ := session.NewStore().Get(1)
	s.SetText("keep me")

	ticket, _ := s.BeginSummary(context.Background())
	s.Progress(ticket, "half a sen")

	if err := s.FailSummary(ticket); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Text() != "keep me" {
		t.Fatalf("expected text untouched, got %q", s.Text())
	}

	if _, ok := s.Stream(); ok {
		t.Fatalf("expected no active stream after failure")
	}

	next, _ := s.BeginSummary(context.Background())
	if next == ticket {
		t.Fatalf("expected a fresh ticket after failure")
	}
}

func TestSetCardReplacesWholesale(t *testing.T) {
	s, _ := session.NewStore().Get(1)

	first := &session.GeneratedCard{Export: card.Export{Filename: "quote_1.png"}}
	second := &session.GeneratedCard{Export: card.Export{Filename: "quote_2.png"}}

	if err := s.SetCard(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.SetCard(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := s.Card(); got != second {
		t.Fatalf("expected second card, got %+v", got)
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	store := session.NewStore()

	idle, _ := store.Get(1)
	idle.SetText("idle")

	busy, _ := store.Get(2)
	busy.BeginSummary(context.Background())

	time.Sleep(20 * time.Millisecond)

	fresh, _ := store.Get(3)
	fresh.SetText("fresh")

	evicted, err := store.Sweep(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if evicted != 1 {
		t.Fatalf("expected one evicted session, got %d", evicted)
	}

	if store.Len() != 2 {
		t.Fatalf("expected two sessions left, got %d", store.Len())
	}

	if _, created := store.Get(1); !created {
		t.Fatalf("expected idle session to be recreated")
	}
}
