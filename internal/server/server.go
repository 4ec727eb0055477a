package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"quotecard/internal/card"
	"quotecard/internal/summarizer"
	"time"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	maxRequestBytes   = 1 << 20
)

type Server struct {
	composer      *card.Composer
	summarizer    summarizer.Summarizer
	maxInputChars int
	now           func() time.Time
	log           *slog.Logger
}

func New(
	composer *card.Composer,
	s summarizer.Summarizer,
	maxInputChars int,
	log *slog.Logger,
) *Server {
	return &Server{
		composer:      composer,
		summarizer:    s,
		maxInputChars: maxInputChars,
		now:           time.Now,
		log:           log,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("POST /api/summarize", s.handleSummarize)
	mux.HandleFunc("POST /api/cards", s.handleCard)
	mux.HandleFunc("POST /api/cards/preview", s.handlePreview)

	return requestIDMiddleware(s.logMiddleware(corsMiddleware(mux)))
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
