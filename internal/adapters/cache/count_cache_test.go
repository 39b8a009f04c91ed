package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
)

// stubCounter counts runes and records how often it was called.
type stubCounter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubCounter) CountTokens(_ context.Context, text string, enc encoding.ID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	if !enc.IsValid() {
		return 0, domainErrors.NewTokenizationError("unsupported encoding", domainErrors.ErrUnsupportedEncoding)
	}
	return len([]rune(text)), nil
}

func (s *stubCounter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestCountCache_HitsAfterFirstCount(t *testing.T) {
	stub := &stubCounter{}
	c := NewCountCache(stub, 16, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, err := c.CountTokens(ctx, "hello", encoding.CL100KBase)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	}

	assert.Equal(t, 1, stub.Calls())
	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.InDelta(t, 2.0/3.0, stats.HitRate(), 1e-9)
}

func TestCountCache_KeysIncludeEncoding(t *testing.T) {
	stub := &stubCounter{}
	c := NewCountCache(stub, 16, time.Hour)
	ctx := context.Background()

	_, err := c.CountTokens(ctx, "hello", encoding.CL100KBase)
	require.NoError(t, err)
	_, err = c.CountTokens(ctx, "hello", encoding.P50KBase)
	require.NoError(t, err)

	assert.Equal(t, 2, stub.Calls())
	assert.NotEqual(t, fingerprint("hello", encoding.CL100KBase), fingerprint("hello", encoding.P50KBase))
}

func TestCountCache_ErrorsAreNotCached(t *testing.T) {
	stub := &stubCounter{err: errors.New("engine down")}
	c := NewCountCache(stub, 16, time.Hour)
	ctx := context.Background()

	_, err := c.CountTokens(ctx, "hello", encoding.CL100KBase)
	require.Error(t, err)

	stub.mu.Lock()
	stub.err = nil
	stub.mu.Unlock()

	n, err := c.CountTokens(ctx, "hello", encoding.CL100KBase)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 2, stub.Calls())
}

func TestCountCache_UnsupportedEncoding(t *testing.T) {
	c := NewCountCache(&stubCounter{}, 16, time.Hour)

	_, err := c.CountTokens(context.Background(), "hello", encoding.ID("o200k_base"))

	assert.Equal(t, domainErrors.CodeTokenization, domainErrors.CodeOf(err))
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCountCache_Disabled(t *testing.T) {
	stub := &stubCounter{}
	c := NewCountCache(stub, 0, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.CountTokens(ctx, "hello", encoding.CL100KBase)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, stub.Calls())
	assert.Equal(t, Stats{}, c.Stats())
}

func TestCountCache_EmptyTextBypassesCache(t *testing.T) {
	stub := &stubCounter{}
	c := NewCountCache(stub, 16, time.Hour)

	n, err := c.CountTokens(context.Background(), "", encoding.CL100KBase)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCountCache_Eviction(t *testing.T) {
	stub := &stubCounter{}
	c := NewCountCache(stub, 2, time.Hour)
	ctx := context.Background()

	for _, text := range []string{"a", "bb", "ccc"} {
		_, err := c.CountTokens(ctx, text, encoding.CL100KBase)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Stats().Size)

	// "a" was evicted and must be counted again.
	_, err := c.CountTokens(ctx, "a", encoding.CL100KBase)
	require.NoError(t, err)
	assert.Equal(t, 4, stub.Calls())
}

func TestCountCache_Expiry(t *testing.T) {
	stub := &stubCounter{}
	c := NewCountCache(stub, 16, 20*time.Millisecond)
	ctx := context.Background()

	_, err := c.CountTokens(ctx, "hello", encoding.CL100KBase)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.Stats().Size == 0 }, time.Second, 10*time.Millisecond)

	_, err = c.CountTokens(ctx, "hello", encoding.CL100KBase)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.Calls())
}

func TestCountCache_CountAll(t *testing.T) {
	stub := &stubCounter{}
	c := NewCountCache(stub, 16, time.Hour)

	results, err := c.CountAll(context.Background(), "héllo")
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, enc := range encoding.Supported() {
		assert.Equal(t, enc, results[i].Encoding)
		assert.Equal(t, 5, results[i].Count)
	}

	c.Purge()
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCountCache_Concurrent(t *testing.T) {
	c := NewCountCache(&stubCounter{}, 64, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, enc := range encoding.Supported() {
				n, err := c.CountTokens(ctx, "shared text", enc)
				assert.NoError(t, err)
				assert.Equal(t, 11, n)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, c.Stats().Size)
}
