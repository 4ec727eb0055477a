package relay_test

import (
	"context"
	"errors"
	"io"
	"quotecard/internal/relay"
	"slices"
	"strings"
	"testing"
	"testing/iotest"
)

func frame(content string) string {
	return `data: {"choices":[{"index":0,"delta":{"content":"` + content + `"}}]}` + "\n"
}

func collect(deltas []relay.Delta) string {
	var b strings.Builder
	for _, d := range deltas {
		b.WriteString(d.Text)
	}
	return b.String()
}

func TestParserSingleFrame(t *testing.T) {
	p := relay.NewParser(nil)

	deltas := p.Feed([]byte(frame("Hello")))
	if len(deltas) != 1 || deltas[0].Text != "Hello" {
		t.Fatalf("unexpected deltas: %+v", deltas)
	}

	got, err := p.Finish()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", got)
	}
}

func TestParserSplitFrameMatchesUnsplit(t *testing.T) {
	stream := frame("Less is ") + frame("more. 少即是多") + "data: [DONE]\n"

	whole := relay.NewParser(nil)
	whole.Feed([]byte(stream))
	want, err := whole.Finish()
	if err != nil {
		t.Fatalf("unsplit stream: unexpected error: %v", err)
	}

	for offset := 1; offset < len(stream); offset++ {
		p := relay.NewParser(nil)

		var deltas []relay.Delta
		deltas = append(deltas, p.Feed([]byte(stream[:offset]))...)
		deltas = append(deltas, p.Feed([]byte(stream[offset:]))...)

		got, err := p.Finish()
		if err != nil {
			t.Fatalf("offset %d: unexpected error: %v", offset, err)
		}

		if got != want {
			t.Fatalf("offset %d: expected %q, got %q", offset, want, got)
		}

		if collect(deltas) != want {
			t.Fatalf("offset %d: emitted deltas %q do not match %q", offset, collect(deltas), want)
		}
	}
}

func TestParserSentinelOnlyIsEmptyResult(t *testing.T) {
	p := relay.NewParser(nil)
	p.Feed([]byte("data: [DONE]\n"))

	if _, err := p.Finish(); !errors.Is(err, relay.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}

	if !p.SentinelSeen() {
		t.Fatalf("expected sentinel to be recorded")
	}
}

func TestParserEmptyStreamIsEmptyResult(t *testing.T) {
	p := relay.NewParser(nil)

	if _, err := p.Finish(); !errors.Is(err, relay.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestParserWhitespaceOnlyIsEmptyResult(t *testing.T) {
	p := relay.NewParser(nil)
	p.Feed([]byte(frame(" ") + frame("\\n")))

	if _, err := p.Finish(); !errors.Is(err, relay.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestParserSkipsMalformedFrame(t *testing.T) {
	p := relay.NewParser(nil)

	deltas := p.Feed([]byte("data: {not json\n" + frame("first") + frame(" second")))
	if collect(deltas) != "first second" {
		t.Fatalf("unexpected deltas: %+v", deltas)
	}

	got, err := p.Finish()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "first second" {
		t.Fatalf("expected %q, got %q", "first second", got)
	}

	if p.MalformedCount() != 1 {
		t.Fatalf("expected one malformed frame, got %d", p.MalformedCount())
	}

	if p.DeltaCount() != 2 {
		t.Fatalf("expected two deltas, got %d", p.DeltaCount())
	}
}

func TestParserSkipsOversizeFrame(t *testing.T) {
	p := relay.NewParser(nil)

	huge := "data: " + strings.Repeat("x", relay.MaxFrameBytes+1) + "\n"
	stream := frame("before") + huge + frame(" after")

	var deltas []relay.Delta
	for chunk := range slices.Chunk([]byte(stream), 1000) {
		deltas = append(deltas, p.Feed(chunk)...)
	}

	if collect(deltas) != "before after" {
		t.Fatalf("unexpected deltas: %q", collect(deltas))
	}

	if p.MalformedCount() != 1 {
		t.Fatalf("expected the oversize frame to count once, got %d", p.MalformedCount())
	}

	got, err := p.Finish()
	if err != nil || got != "before after" {
		t.Fatalf("expected %q, got %q, %v", "before after", got, err)
	}
}

func TestParserDropsOversizeUnterminatedFrame(t *testing.T) {
	p := relay.NewParser(nil)

	p.Feed([]byte(frame("kept")))
	for range 3 {
		p.Feed([]byte(strings.Repeat("y", relay.MaxFrameBytes/2)))
	}

	got, err := p.Finish()
	if err != nil || got != "kept" {
		t.Fatalf("expected %q, got %q, %v", "kept", got, err)
	}

	if p.MalformedCount() != 1 {
		t.Fatalf("expected one malformed frame, got %d", p.MalformedCount())
	}
}

func TestParserIgnoresOutOfBandLines(t *testing.T) {
	p := relay.NewParser(nil)

	stream := ": keep-alive\n" +
		"event: message\n" +
		"\n" +
		`data: {"choices":[{"delta":{"role":"assistant"}}]}` + "\n" +
		frame("ok")

	p.Feed([]byte(stream))

	got, err := p.Finish()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "ok" || p.MalformedCount() != 0 {
		t.Fatalf("expected %q with no malformed frames, got %q (%d)", "ok", got, p.MalformedCount())
	}
}

func TestParserAcceptsCRLFAndNoSpace(t *testing.T) {
	p := relay.NewParser(nil)
	p.Feed([]byte(`data:{"choices":[{"delta":{"content":"a"}}]}` + "\r\n" + "data: [DONE]\r\n"))

	got, err := p.Finish()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "a" || !p.SentinelSeen() {
		t.Fatalf("expected %q with sentinel, got %q", "a", got)
	}
}

func TestParserResponsesTextDelta(t *testing.T) {
	p := relay.NewParser(nil)
	p.Feed([]byte(`data: {"type":"response.created","response":{}}` + "\n" +
		`data: {"type":"response.output_text.delta","delta":"golden"}` + "\n"))

	got, err := p.Finish()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "golden" {
		t.Fatalf("expected %q, got %q", "golden", got)
	}
}

func TestParserFinishFlushesUnterminatedFrame(t *testing.T) {
	p := relay.NewParser(nil)

	if deltas := p.Feed([]byte(strings.TrimSuffix(frame("tail"), "\n"))); len(deltas) != 0 {
		t.Fatalf("expected partial frame to be buffered, got %+v", deltas)
	}

	got, err := p.Finish()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "tail" {
		t.Fatalf("expected %q, got %q", "tail", got)
	}
}

func TestParserTransportErrorDiscardsText(t *testing.T) {
	p := relay.NewParser(nil)
	p.Feed([]byte(frame("partial")))

	cause := errors.New("connection reset")
	p.Fail(cause)

	got, err := p.Finish()

	var transportErr *relay.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	if !errors.Is(err, cause) {
		t.Fatalf("expected error to wrap cause, got %v", err)
	}

	if got != "" {
		t.Fatalf("expected no text on transport failure, got %q", got)
	}

	if p.Text() != "partial" {
		t.Fatalf("expected progress text to remain readable, got %q", p.Text())
	}
}

func TestPumpOneByteReads(t *testing.T) {
	stream := frame("Knowledge ") + "data: garbage\n" + frame("is power.") + "data: [DONE]\n"
	p := relay.NewParser(nil)

	var progress []string
	got, err := relay.Pump(
		context.Background(),
		iotest.OneByteReader(strings.NewReader(stream)),
		p,
		func(relay.Delta) { progress = append(progress, p.Text()) },
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Knowledge is power." {
		t.Fatalf("unexpected text: %q", got)
	}

	if len(progress) != 2 || progress[0] != "Knowledge " || progress[1] != "Knowledge is power." {
		t.Fatalf("unexpected progress snapshots: %q", progress)
	}
}

func TestPumpReadError(t *testing.T) {
	cause := errors.New("timeout")
	r := io.MultiReader(strings.NewReader(frame("half")), iotest.ErrReader(cause))

	_, err := relay.Pump(context.Background(), r, relay.NewParser(nil), nil)

	var transportErr *relay.TransportError
	if !errors.As(err, &transportErr) || !errors.Is(err, cause) {
		t.Fatalf("expected TransportError wrapping cause, got %v", err)
	}
}

func TestPumpCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := relay.Pump(ctx, strings.NewReader(frame("never")), relay.NewParser(nil), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
