package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"quotecard/internal/relay"
	"strings"
	"time"
)

// RelaySummarizer opens an upstream stream through a Streamer and
// reassembles it with the relay parser. Successful summaries are cached.
type RelaySummarizer struct {
	streamer Streamer
	cache    *summaryCache
	now      func() time.Time
	log      *slog.Logger
}

func NewRelaySummarizer(streamer Streamer, cacheTTL time.Duration, log *slog.Logger) *RelaySummarizer {
	return &RelaySummarizer{
		streamer: streamer,
		cache:    newSummaryCache(cacheTTL, summaryCacheCapacity),
		now:      time.Now,
		log:      log,
	}
}

func (s *RelaySummarizer) Summarize(
	ctx context.Context,
	input Input,
	progress ProgressFunc,
) (string, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return "", ErrEmptyInput
	}

	if cached, ok := s.cache.lookup(text, s.now()); ok {
		s.log.DebugContext(ctx, "Summary cache hit",
			"textLen", len(text))

		if progress != nil {
			progress(cached, cached)
		}

		return cached, nil
	}

	body, err := s.streamer.Stream(ctx, input)
	if err != nil {
		return "", &relay.TransportError{Err: fmt.Errorf("open stream: %w", err)}
	}
	defer func() {
		if err = body.Close(); err != nil {
			s.log.WarnContext(ctx, "Failed to close stream body",
				"error", err,
				"operation", "Summarize")
		}
	}()

	start := s.now()
	parser := relay.NewParser(s.log)

	summary, err := relay.Pump(ctx, body, parser, func(d relay.Delta) {
		if progress != nil {
			progress(d.Text, parser.Text())
		}
	})

	fields := []any{
		"textLen", len(text),
		"deltaCount", parser.DeltaCount(),
		"malformedCount", parser.MalformedCount(),
		"sentinelSeen", parser.SentinelSeen(),
		"durationMs", s.now().Sub(start).Milliseconds(),
	}

	if err != nil {
		s.log.WarnContext(ctx, "Summary stream failed", append(fields, "error", err)...)

		return "", err
	}

	summary = strings.TrimSpace(summary)
	s.log.InfoContext(ctx, "Summary stream completed", append(fields, "summaryLen", len(summary))...)

	s.cache.store(text, summary, s.now())

	return summary, nil
}
