package pipeline

import (
	"testing"
	"time"

	"docsum/internal/domain"
)

func cachedSummary(text string) domain.Summary {
	return domain.Summary{ID: text, Text: text}
}

func TestSummaryCacheGetSet(t *testing.T) {
	cache := newSummaryCache(2)
	if cache == nil {
		t.Fatalf("expected cache instance")
	}

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	cache.set("key", cachedSummary("value"), now.Add(time.Hour), now)

	summary, ok := cache.get("key", now)
	if !ok {
		t.Fatalf("expected cached summary to be present")
	}

	if summary.Text != "value" {
		t.Fatalf("unexpected summary: %q", summary.Text)
	}
}

func TestSummaryCacheDisabled(t *testing.T) {
	cache := newSummaryCache(0)
	if cache != nil {
		t.Fatalf("expected nil cache when disabled")
	}

	now := time.Now()
	cache.set("key", cachedSummary("value"), now.Add(time.Hour), now)

	if _, ok := cache.get("key", now); ok {
		t.Fatalf("expected miss on disabled cache")
	}
}

func TestSummaryCacheIgnoresEmptyValues(t *testing.T) {
	cache := newSummaryCache(2)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	cache.set("", cachedSummary("value"), now.Add(time.Hour), now)
	cache.set("key", cachedSummary(""), now.Add(time.Hour), now)
	cache.set("past", cachedSummary("value"), now, now)

	if n := cache.len(); n != 0 {
		t.Fatalf("expected empty cache, got %d entries", n)
	}
}

func TestSummaryCacheExpiresEntries(t *testing.T) {
	cache := newSummaryCache(2)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	cache.set("key", cachedSummary("value"), now.Add(time.Minute), now)

	if _, ok := cache.get("key", now.Add(2*time.Minute)); ok {
		t.Fatalf("expected cache entry to expire")
	}

	if cache.len() != 0 {
		t.Fatalf("expected expired cache entry to be removed")
	}
}

func TestSummaryCacheEvictsExpiredOnSet(t *testing.T) {
	cache := newSummaryCache(4)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	cache.set("short", cachedSummary("a"), now.Add(time.Minute), now)
	cache.set("long", cachedSummary("b"), now.Add(time.Hour), now)
	cache.set("new", cachedSummary("c"), now.Add(3*time.Hour), now.Add(2*time.Minute))

	if n := cache.len(); n != 2 {
		t.Fatalf("expected expired entry to be evicted, got %d entries", n)
	}
}

func TestSummaryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := newSummaryCache(2)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	expiresAt := now.Add(time.Hour)

	cache.set("a", cachedSummary("summary-a"), expiresAt, now)
	cache.set("b", cachedSummary("summary-b"), expiresAt, now)

	if _, ok := cache.get("a", now); !ok {
		t.Fatalf("expected entry a to exist before eviction check")
	}

	cache.set("c", cachedSummary("summary-c"), expiresAt, now)

	if _, ok := cache.get("a", now); !ok {
		t.Fatalf("expected entry a to remain after evicting least recently used")
	}

	if _, ok := cache.get("b", now); ok {
		t.Fatalf("expected entry b to be evicted")
	}

	if _, ok := cache.get("c", now); !ok {
		t.Fatalf("expected entry c to be cached")
	}
}
