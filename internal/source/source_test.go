package source_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"quotecard/internal/source"
	"strings"
	"testing"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback title</title>
  <meta property="og:title" content="On Simplicity">
</head>
<body>
  <nav><p>Home</p></nav>
  <article>
    <p>Simplicity is prerequisite for reliability, and it is rarely free.</p>
    <p>Short.</p>
    <p>The price of reliability is the pursuit of the utmost simplicity.</p>
  </article>
</body>
</html>`

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Quotes</title>
  <link>https://example.com</link>
  <description>Daily quotes</description>
  <item>
    <title>Old</title>
    <description>An old quote.</description>
    <pubDate>Mon, 03 Mar 2025 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>New</title>
    <description><![CDATA[<p>The <b>newest</b> quote.</p>]]></description>
    <pubDate>Fri, 07 Mar 2025 09:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, articlePage)
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, rssFeed)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html><body><nav>menu</nav></body></html>")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestResolveArticle(t *testing.T) {
	srv := newTestServer(t)
	r := source.NewResolver(slog.Default())

	src, err := r.Resolve(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.Title != "On Simplicity" {
		t.Fatalf("unexpected title: %q", src.Title)
	}

	want := "Simplicity is prerequisite for reliability, and it is rarely free.\n" +
		"The price of reliability is the pursuit of the utmost simplicity."
	if src.Text != want {
		t.Fatalf("unexpected text: %q", src.Text)
	}
}

func TestResolveFeedUsesNewestItem(t *testing.T) {
	srv := newTestServer(t)
	r := source.NewResolver(slog.Default())

	src, err := r.Resolve(context.Background(), srv.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.Title != "New" || src.Text != "The newest quote." {
		t.Fatalf("unexpected source: %+v", src)
	}
}

func TestResolveFailures(t *testing.T) {
	srv := newTestServer(t)
	r := source.NewResolver(slog.Default())

	if _, err := r.Resolve(context.Background(), srv.URL+"/empty"); !errors.Is(err, source.ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}

	_, err := r.Resolve(context.Background(), srv.URL+"/missing")
	if err == nil || !strings.Contains(err.Error(), "unexpected status: 404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFindURL(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{name: "bare link", text: " https://example.com/post/1 ", want: "https://example.com/post/1", ok: true},
		{name: "link inside text", text: "read https://example.com now"},
		{name: "plain text", text: "less is more"},
		{name: "non-http scheme", text: "ftp://example.com/file"},
		{name: "empty", text: "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := source.FindURL(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("FindURL(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}
