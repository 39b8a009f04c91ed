// Package cache memoizes token counts so repeated requests for the same text
// skip the tokenizer.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	"github.com/jbctechsolutions/tokencalc/internal/domain/tokencount"
)

// Stats reports cache effectiveness.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CountCache wraps a TokenCounter with a bounded, expiring memo of counts.
// Only successful counts are stored. It is safe for concurrent use.
type CountCache struct {
	counter ports.TokenCounter
	entries *expirable.LRU[string, int] // nil when caching is disabled

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCountCache caches up to size counts from counter, each for at most ttl.
// A size of zero or less passes every call straight through; a ttl of zero
// keeps entries until they are evicted.
func NewCountCache(counter ports.TokenCounter, size int, ttl time.Duration) *CountCache {
	c := &CountCache{counter: counter}
	if size > 0 {
		c.entries = expirable.NewLRU[string, int](size, nil, ttl)
	}
	return c
}

// CountTokens returns the memoized count for text under enc, counting on a miss.
func (c *CountCache) CountTokens(ctx context.Context, text string, enc encoding.ID) (int, error) {
	if c.entries == nil || text == "" {
		return c.counter.CountTokens(ctx, text, enc)
	}

	key := fingerprint(text, enc)
	if n, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return n, nil
	}
	c.misses.Add(1)

	n, err := c.counter.CountTokens(ctx, text, enc)
	if err != nil {
		return 0, err
	}
	c.entries.Add(key, n)
	return n, nil
}

// CountAll counts text under every supported encoding, in display order.
func (c *CountCache) CountAll(ctx context.Context, text string) ([]tokencount.Result, error) {
	results := make([]tokencount.Result, 0, len(encoding.Supported()))
	for _, enc := range encoding.Supported() {
		n, err := c.CountTokens(ctx, text, enc)
		if err != nil {
			return nil, err
		}
		results = append(results, tokencount.Result{Count: n, Encoding: enc})
	}
	return results, nil
}

// Purge drops every cached count.
func (c *CountCache) Purge() {
	if c.entries != nil {
		c.entries.Purge()
	}
}

// Stats returns the hit and miss counters and the current size.
func (c *CountCache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if c.entries != nil {
		s.Size = c.entries.Len()
	}
	return s
}

// fingerprint keys a count by encoding and a digest of the text, so large
// documents are not held in memory as keys.
func fingerprint(text string, enc encoding.ID) string {
	h := sha256.New()
	h.Write([]byte(enc))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
