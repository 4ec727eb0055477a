package ratelimiter

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type stubAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	err  error
}

func (s *stubAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, c)

	return tgbotapi.Message{MessageID: len(s.sent)}, s.err
}

func (s *stubAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestGetChatID(t *testing.T) {
	doc := tgbotapi.NewDocument(7, tgbotapi.FileBytes{Name: "quote.png", Bytes: []byte{1}})
	photo := tgbotapi.NewPhoto(-8, tgbotapi.FileBytes{Name: "preview.png", Bytes: []byte{1}})

	tests := []struct {
		name string
		msg  tgbotapi.Chattable
		want int64
	}{
		{name: "message", msg: tgbotapi.NewMessage(5, "hi"), want: 5},
		{name: "edit", msg: tgbotapi.NewEditMessageText(6, 1, "hi"), want: 6},
		{name: "document", msg: doc, want: 7},
		{name: "photo", msg: photo, want: -8},
		{name: "callback", msg: tgbotapi.NewCallback("id", ""), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getChatID(tt.msg); got != tt.want {
				t.Fatalf("expected chat %d, got %d", tt.want, got)
			}
		})
	}
}

func TestDelay(t *testing.T) {
	rl := New(&stubAPI{}, slog.Default())
	defer rl.Stop()

	if d := rl.delay(1, time.Now().Add(-2*time.Second)); d != 0 {
		t.Fatalf("expected no delay after the rate window, got %s", d)
	}

	if d := rl.delay(1, time.Now()); d <= 0 || d > privateChatRate {
		t.Fatalf("expected private chat delay within rate, got %s", d)
	}

	if d := rl.delay(-1, time.Now()); d <= privateChatRate {
		t.Fatalf("expected group chat delay above private rate, got %s", d)
	}
}

func TestWithChatRates(t *testing.T) {
	rl := New(&stubAPI{}, slog.Default(), WithChatRates(0, 0))
	defer rl.Stop()

	for range 3 {
		if _, err := rl.Send(tgbotapi.NewMessage(5, "hi")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if !rl.Ready(5) {
		t.Fatalf("expected zero rate to never delay")
	}
}

func TestSendForwardsResult(t *testing.T) {
	api := &stubAPI{err: errors.New("bad request")}
	rl := New(api, slog.Default())
	defer rl.Stop()

	if !rl.Ready(5) {
		t.Fatalf("expected unseen chat to be ready")
	}

	msg, err := rl.Send(tgbotapi.NewMessage(5, "hi"))
	if err == nil || msg.MessageID != 1 {
		t.Fatalf("expected forwarded message and error, got %+v, %v", msg, err)
	}

	if rl.Ready(5) {
		t.Fatalf("expected chat to be rate limited right after a send")
	}
}

func TestSendAfterStop(t *testing.T) {
	rl := New(&stubAPI{}, slog.Default())
	rl.Stop()


	if _, err := rl.Send(tgbotapi.NewMessage(5, "hi")); err == nil {
		t.Fatalf("expected error after stop")
	}
}
