package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"
)

const (
	fallbackSummaryMaxChars = 200
	fallbackChunkRunes      = 16
)

// FallbackStreamer serves the first sentence of the input in the same event
// format as the remote service. It is used when no API key is configured.
type FallbackStreamer struct{}

func (FallbackStreamer) Stream(_ context.Context, input Input) (io.ReadCloser, error) {
	summary := fallbackSummary(input.Text)
	if summary == "" {
		return nil, ErrEmptyInput
	}

	var buf bytes.Buffer
	runes := []rune(summary)

	for start := 0; start < len(runes); start += fallbackChunkRunes {
		end := min(start+fallbackChunkRunes, len(runes))

		if err := writeChunkFrame(&buf, string(runes[start:end])); err != nil {
			return nil, err
		}
	}
	buf.WriteString("data: [DONE]\n\n")

	return io.NopCloser(&buf), nil
}

func writeChunkFrame(w io.Writer, content string) error {
	type delta struct {
		Content string `json:"content"`
	}
	type choice struct {
		Index int   `json:"index"`
		Delta delta `json:"delta"`
	}

	payload, err := json.Marshal(struct {
		Object  string   `json:"object"`
		Choices []choice `json:"choices"`
	}{
		Object:  "chat.completion.chunk",
		Choices: []choice{{Delta: delta{Content: content}}},
	})
	if err != nil {
		return fmt.Errorf("marshal chunk: %w", err)
	}

	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

func fallbackSummary(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}

	runes := []rune(normalized)
	for i, r := range runes {
		if isSentenceEnd(r) {
			runes = runes[:i+1]
			break
		}
	}

	if len(runes) <= fallbackSummaryMaxChars {
		return string(runes)
	}

	return strings.TrimRightFunc(string(runes[:fallbackSummaryMaxChars]), unicode.IsSpace) + "…"
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	default:
		return false
	}
}
