package summarizer

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

const summaryCacheCapacity = 1024

// summaryCache remembers finished summaries by normalized input text. The
// least recently used entry goes first when the cache is full.
type summaryCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	byDigest map[string]*list.Element
	recency  *list.List
}

type cachedSummary struct {
	digest   string
	summary  string
	storedAt time.Time
}

// newSummaryCache returns nil when caching is disabled. A nil cache misses
// on every lookup and drops every store.
func newSummaryCache(ttl time.Duration, capacity int) *summaryCache {
	if ttl <= 0 || capacity <= 0 {
		return nil
	}

	return &summaryCache{
		ttl:      ttl,
		capacity: capacity,
		byDigest: make(map[string]*list.Element, capacity),
		recency:  list.New(),
	}
}

// textDigest hashes the text with runs of whitespace collapsed, so inputs
// that only differ in spacing share one entry.
func textDigest(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(normalized))

	return hex.EncodeToString(sum[:])
}

func (c *summaryCache) lookup(text string, now time.Time) (string, bool) {
	digest := textDigest(text)
	if c == nil || digest == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byDigest[digest]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*cachedSummary)
	if c.expired(entry, now) {
		c.dropLocked(elem)
		return "", false
	}

	c.recency.MoveToFront(elem)

	return entry.summary, true
}

func (c *summaryCache) store(text string, summary string, now time.Time) {
	digest := textDigest(text)
	if c == nil || digest == "" || summary == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byDigest[digest]; ok {
		entry := elem.Value.(*cachedSummary)
		entry.summary = summary
		entry.storedAt = now
		c.recency.MoveToFront(elem)

		return
	}

	c.byDigest[digest] = c.recency.PushFront(&cachedSummary{
		digest:   digest,
		summary:  summary,
		storedAt: now,
	})

	c.pruneLocked(now)
}

func (c *summaryCache) size() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.recency.Len()
}

func (c *summaryCache) expired(entry *cachedSummary, now time.Time) bool {
	return now.Sub(entry.storedAt) >= c.ttl
}

// pruneLocked walks from the oldest entry, dropping expired ones and then
// anything over capacity.
func (c *summaryCache) pruneLocked(now time.Time) {
	for elem := c.recency.Back(); elem != nil; {
		prev := elem.Prev()

		if c.recency.Len() > c.capacity || c.expired(elem.Value.(*cachedSummary), now) {
			c.dropLocked(elem)
		}

		elem = prev
	}
}

func (c *summaryCache) dropLocked(elem *list.Element) {
	delete(c.byDigest, elem.Value.(*cachedSummary).digest)
	c.recency.Remove(elem)
}
