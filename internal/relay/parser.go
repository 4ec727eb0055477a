package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

const (
	FramePrefix = "data:"
	Sentinel    = "[DONE]"

	responsesTextDeltaType = "response.output_text.delta"
	maxLoggedFrameBytes    = 256

	// MaxFrameBytes bounds one buffered line of the stream.
	MaxFrameBytes = 64 << 10
)

// Delta is one incremental fragment of the upstream text.
type Delta struct {
	Text string
}

// frame covers both chat-completions chunks and Responses API text events.
type frame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Type  string          `json:"type"`
	Delta json.RawMessage `json:"delta"`
}

// Parser reassembles text deltas from a newline-delimited event stream whose
// chunks are not aligned to line boundaries. It is not safe for concurrent
// use; one stream drives one Parser.
type Parser struct {
	carry     []byte
	oversize  bool
	text      strings.Builder
	deltas    int
	malformed int
	sentinel  bool
	err       error
	log       *slog.Logger
}

func NewParser(log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{log: log}
}

// Feed consumes one network chunk and returns the deltas completed by it.
// A trailing partial line is kept until the next Feed, Flush or Finish.
// A line growing past MaxFrameBytes is dropped as malformed.
func (p *Parser) Feed(chunk []byte) []Delta {
	if len(chunk) == 0 {
		return nil
	}

	var out []Delta

	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			p.buffer(chunk)
			break
		}

		p.buffer(chunk[:i])
		chunk = chunk[i+1:]

		if p.oversize {
			p.oversize = false
			continue
		}

		if d, ok := p.handleFrame(p.carry); ok {
			out = append(out, d)
		}
		p.carry = p.carry[:0]
	}

	return out
}

// buffer appends part of a line to the carry. A line exceeding MaxFrameBytes
// is counted as malformed once and the rest of it is skipped.
func (p *Parser) buffer(partial []byte) {
	if p.oversize {
		return
	}

	if len(p.carry)+len(partial) <= MaxFrameBytes {
		p.carry = append(p.carry, partial...)
		return
	}

	p.malformed++
	p.oversize = true

	frameErr := &MalformedFrameError{
		Frame: truncate(append(p.carry, partial...), maxLoggedFrameBytes),
		Err:   ErrFrameTooLarge,
	}
	p.log.DebugContext(context.Background(), "Skipping oversize stream frame",
		"error", frameErr,
		"maxFrameBytes", MaxFrameBytes,
		"malformedCount", p.malformed)

	p.carry = p.carry[:0]
}

// Flush treats buffered bytes as a final, unterminated frame.
func (p *Parser) Flush() []Delta {
	if p.oversize {
		p.oversize = false
		p.carry = p.carry[:0]
		return nil
	}

	if len(p.carry) == 0 {
		return nil
	}

	line := p.carry
	p.carry = nil

	if d, ok := p.handleFrame(line); ok {
		return []Delta{d}
	}
	return nil
}

// Fail records a transport failure. The first failure wins.
func (p *Parser) Fail(err error) {
	if err != nil && p.err == nil {
		p.err = err
	}
}

// Finish returns the accumulated text, ErrEmptyResult when nothing usable
// arrived, or a *TransportError when Fail was called.
func (p *Parser) Finish() (string, error) {
	p.Flush()

	if p.err != nil {
		return "", &TransportError{Err: p.err}
	}

	if strings.TrimSpace(p.text.String()) == "" {
		return "", ErrEmptyResult
	}

	return p.text.String(), nil
}

// Text is the text accumulated so far.
func (p *Parser) Text() string {
	return p.text.String()
}

func (p *Parser) DeltaCount() int {
	return p.deltas
}

func (p *Parser) MalformedCount() int {
	return p.malformed
}

func (p *Parser) SentinelSeen() bool {
	return p.sentinel
}

func (p *Parser) handleFrame(line []byte) (Delta, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})

	payload, ok := bytes.CutPrefix(line, []byte(FramePrefix))
	if !ok {
		return Delta{}, false
	}
	payload = bytes.TrimPrefix(payload, []byte{' '})

	if string(bytes.TrimSpace(payload)) == Sentinel {
		p.sentinel = true
		return Delta{}, false
	}

	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		p.malformed++

		frameErr := &MalformedFrameError{Frame: truncate(payload, maxLoggedFrameBytes), Err: err}
		p.log.DebugContext(context.Background(), "Skipping malformed stream frame",
			"error", frameErr,
			"malformedCount", p.malformed)

		return Delta{}, false
	}

	content := f.content()
	if content == "" {
		return Delta{}, false
	}

	p.text.WriteString(content)
	p.deltas++

	return Delta{Text: content}, true
}

func (f *frame) content() string {
	if len(f.Choices) > 0 {
		return f.Choices[0].Delta.Content
	}

	if f.Type == responsesTextDeltaType && len(f.Delta) > 0 {
		var s string
		if err := json.Unmarshal(f.Delta, &s); err == nil {
			return s
		}
	}

	return ""
}

func truncate(b []byte, limit int) string {
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "…"
}
