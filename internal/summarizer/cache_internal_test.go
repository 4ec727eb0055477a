package summarizer

import (
	"testing"
	"time"
)

var cacheEpoch = time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)

func TestTextDigestNormalizesWhitespace(t *testing.T) {
	spaced := textDigest("  Less   is\nmore ")
	plain := textDigest("Less is more")

	if spaced == "" || spaced != plain {
		t.Fatalf("expected matching digests, got %q and %q", spaced, plain)
	}

	if got := textDigest(" \t\n"); got != "" {
		t.Fatalf("expected empty digest for blank text, got %q", got)
	}
}

func TestSummaryCacheLookupAfterStore(t *testing.T) {
	cache := newSummaryCache(time.Hour, 4)

	cache.store("some long text", "short", cacheEpoch)

	got, ok := cache.lookup("some  long text", cacheEpoch.Add(time.Minute))
	if !ok || got != "short" {
		t.Fatalf("expected cached summary, got %q, %v", got, ok)
	}
}

func TestSummaryCacheExpires(t *testing.T) {
	cache := newSummaryCache(time.Minute, 4)

	cache.store("text", "summary", cacheEpoch)

	if _, ok := cache.lookup("text", cacheEpoch.Add(time.Minute)); ok {
		t.Fatalf("expected entry to expire once the ttl has passed")
	}

	if cache.size() != 0 {
		t.Fatalf("expected expired entry to be dropped, size %d", cache.size())
	}
}

func TestSummaryCacheDropsLeastRecentlyUsed(t *testing.T) {
	cache := newSummaryCache(time.Hour, 2)

	cache.store("a", "summary a", cacheEpoch)
	cache.store("b", "summary b", cacheEpoch)

	if _, ok := cache.lookup("a", cacheEpoch); !ok {
		t.Fatalf("expected a to be cached")
	}

	cache.store("c", "summary c", cacheEpoch)

	for text, want := range map[string]bool{"a": true, "b": false, "c": true} {
		if _, ok := cache.lookup(text, cacheEpoch); ok != want {
			t.Errorf("lookup %q: expected present=%v", text, want)
		}
	}
}

func TestDisabledSummaryCache(t *testing.T) {
	if cache := newSummaryCache(0, 4); cache != nil {
		t.Fatalf("expected zero ttl to disable the cache")
	}

	var cache *summaryCache
	cache.store("text", "summary", cacheEpoch)

	if _, ok := cache.lookup("text", cacheEpoch); ok {
		t.Fatalf("expected disabled cache to miss")
	}
}
