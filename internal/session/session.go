package session

import (
	"context"
	"errors"
	"quotecard/internal/card"
	"quotecard/internal/templates"
	"sync"
	"time"
)

var ErrStale = errors.New("summary request is stale")

// Ticket identifies one summarization request. Only the ticket returned by
// the latest BeginSummary may apply its result.
type Ticket uint64

// StreamState is the in-flight summarization visible to the UI.
type StreamState struct {
	Ticket      Ticket
	Accumulated string
	StartedAt   time.Time
}

// GeneratedCard is the most recent full-resolution card of a session.
type GeneratedCard struct {
	Surface     *card.Surface
	Export      card.Export
	TemplateKey string
	CreatedAt   time.Time
}

// Session is the state of one UI surface: the working text, the selected
// template, the last generated card and at most one active summary stream.
type Session struct {
	mu          sync.Mutex
	id          int64
	text        string
	templateKey string
	generated   *GeneratedCard
	generation  uint64
	stream      *StreamState
	cancel      context.CancelFunc
	lastSeen    time.Time
	now         func() time.Time
}

func newSession(id int64, now func() time.Time) *Session {
	return &Session{
		id:          id,
		templateKey: templates.Default,
		lastSeen:    now(),
		now:         now,
	}
}

func (s *Session) ID() int64 {
	return s.id
}

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.text
}

func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = text
	s.touchLocked()
}

func (s *Session) TemplateKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.templateKey
}

// SetTemplate selects a template for subsequent compositions. Unknown keys
// are rejected and leave the selection unchanged.
func (s *Session) SetTemplate(key string) error {
	tmpl, err := templates.Get(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.templateKey = tmpl.Key
	s.touchLocked()

	return nil
}

// Card returns the current generated card or nil.
func (s *Session) Card() *GeneratedCard {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generated
}

// SetCard replaces the generated card wholesale and releases the previous
// surface.
func (s *Session) SetCard(c *GeneratedCard) error {
	s.mu.Lock()
	prev := s.generated
	s.generated = c
	s.touchLocked()
	s.mu.Unlock()

	if prev == nil || prev.Surface == nil || (c != nil && prev.Surface == c.Surface) {
		return nil
	}

	return prev.Surface.Close()
}

// BeginSummary starts a new summarization request. Any request still in
// flight is cancelled and its ticket becomes stale.
func (s *Session) BeginSummary(parent context.Context) (Ticket, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	s.generation++
	ticket := Ticket(s.generation)

	s.stream = &StreamState{Ticket: ticket, StartedAt: s.now()}
	s.cancel = cancel
	s.touchLocked()

	return ticket, ctx
}

// Current reports whether ticket belongs to the latest request.
func (s *Session) Current(ticket Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentLocked(ticket)
}

// Progress records the accumulated text of the active request. It returns
// false when the ticket is stale.
func (s *Session) Progress(ticket Ticket, accumulated string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(ticket) || s.stream == nil {
		return false
	}

	s.stream.Accumulated = accumulated

	return true
}

// Stream returns a copy of the active stream state.
func (s *Session) Stream() (StreamState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return StreamState{}, false
	}

	return *s.stream, true
}

// ApplySummary stores the summary as the working text when ticket is still
// current. Stale completions are discarded with ErrStale.
func (s *Session) ApplySummary(ticket Ticket, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(ticket) {
		return ErrStale
	}

	s.text = summary
	s.endStreamLocked()

	return nil
}

// FailSummary ends the active request without touching the working text.
func (s *Session) FailSummary(ticket Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(ticket) {
		return ErrStale
	}

	s.endStreamLocked()

	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.stream = nil
	generated := s.generated
	s.generated = nil
	s.mu.Unlock()

	if generated != nil && generated.Surface != nil {
		return generated.Surface.Close()
	}

	return nil
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen, s.stream != nil
}

func (s *Session) currentLocked(ticket Ticket) bool {
	return uint64(ticket) == s.generation && s.stream != nil && s.stream.Ticket == ticket
}

func (s *Session) endStreamLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.stream = nil
	s.touchLocked()
}

func (s *Session) touchLocked() {
	s.lastSeen = s.now()
}
