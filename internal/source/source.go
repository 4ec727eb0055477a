package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"quotecard/internal/domain"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"mvdan.cc/xurls/v2"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	clientTimeout   = 20 * time.Second
	maxBodyBytes    = 2 << 20
	paragraphMinLen = 40
)

var ErrNoText = errors.New("no text found")

// FindURL returns the link when the message consists of a single URL and
// nothing else.
func FindURL(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	match := xurls.Strict().FindString(text)
	if match == "" || match != text {
		return "", false
	}

	u, err := url.Parse(match)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}

	return match, true
}

// Resolver turns a link into plain text: the newest item of a feed, the
// text of a Telegram post or the paragraphs of an article.
type Resolver struct {
	client    *http.Client
	libParser *gofeed.Parser
	log       *slog.Logger
}

func NewResolver(log *slog.Logger) *Resolver {
	return &Resolver{
		client:    &http.Client{Timeout: clientTimeout},
		libParser: gofeed.NewParser(),
		log:       log,
	}
}

func (r *Resolver) Resolve(ctx context.Context, rawURL string) (domain.Source, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return domain.Source{}, errors.New("URL is empty")
	}

	fetchURL := rawURL
	if embedURL, ok := telegramPostEmbedURL(rawURL); ok {
		fetchURL = embedURL
	}

	body, err := r.fetch(ctx, fetchURL)
	if err != nil {
		return domain.Source{}, fmt.Errorf("fetch %s: %w", fetchURL, err)
	}

	if parsed, parseErr := r.libParser.Parse(bytes.NewReader(body)); parseErr == nil {
		src, ok := newestItem(parsed)
		if ok {
			src.URL = rawURL
			return src, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.Source{}, fmt.Errorf("create document from reader: %w", err)
	}

	src := domain.Source{
		URL:   rawURL,
		Title: documentTitle(doc),
		Text:  documentText(doc),
	}

	if src.Text == "" {
		return domain.Source{}, fmt.Errorf("extract %s: %w", rawURL, ErrNoText)
	}

	r.log.DebugContext(ctx, "Source is resolved",
		"url", rawURL,
		"title", src.Title,
		"textLen", len(src.Text))

	return src, nil
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req) //nolint:gosec // URL comes from the chat owner
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			r.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", rawURL,
				"operation", "fetch")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

func newestItem(parsed *gofeed.Feed) (domain.Source, bool) {
	if parsed == nil || len(parsed.Items) == 0 {
		return domain.Source{}, false
	}

	newest := parsed.Items[0]
	for _, item := range parsed.Items[1:] {
		if item.PublishedParsed == nil {
			continue
		}
		if newest.PublishedParsed == nil || item.PublishedParsed.After(*newest.PublishedParsed) {
			newest = item
		}
	}

	html := newest.Content
	if strings.TrimSpace(html) == "" {
		html = newest.Description
	}

	text := htmlText(html)
	if text == "" {
		text = normalizeSpace(newest.Title)
	}
	if text == "" {
		return domain.Source{}, false
	}

	return domain.Source{Title: normalizeSpace(newest.Title), Text: text}, true
}

func documentTitle(doc *goquery.Document) string {
	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		return normalizeSpace(content)
	}

	return normalizeSpace(doc.Find("title").First().Text())
}

func documentText(doc *goquery.Document) string {
	// Telegram post embeds.
	if msg := doc.Find(".tgme_widget_message_text").First(); msg.Length() > 0 {
		msg.Find("br").Each(func(_ int, br *goquery.Selection) {
			br.ReplaceWithHtml("\n")
		})

		if text := strings.TrimSpace(msg.Text()); text != "" {
			return text
		}
	}

	for _, selector := range []string{"article p", "main p", "p"} {
		var paragraphs []string

		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			p := normalizeSpace(s.Text())
			if len(p) >= paragraphMinLen {
				paragraphs = append(paragraphs, p)
			}
		})

		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n")
		}
	}

	if content, ok := doc.Find("meta[name='description'], meta[property='og:description']").Attr("content"); ok {
		return normalizeSpace(content)
	}

	return ""
}

func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return normalizeSpace(fragment)
	}

	return normalizeSpace(doc.Text())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
