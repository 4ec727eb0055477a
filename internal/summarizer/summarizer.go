package summarizer

import (
	"context"
	"errors"
	"io"
)

var ErrEmptyInput = errors.New("input is empty")

// Input describes the payload for a summary request.
type Input struct {
	// Text contains the original plain text to summarise.
	Text string
	// SourceURL is optional metadata that helps the model reference the origin.
	SourceURL string
}

// ProgressFunc receives every delta together with the text accumulated so far.
type ProgressFunc func(delta string, accumulated string)

// Streamer opens the raw upstream event stream for one summary request.
// The caller closes the returned body.
type Streamer interface {
	Stream(ctx context.Context, input Input) (io.ReadCloser, error)
}

// Summarizer produces a single summary for a given input text, reporting
// partial results through progress as they arrive.
type Summarizer interface {
	Summarize(ctx context.Context, input Input, progress ProgressFunc) (string, error)
}
