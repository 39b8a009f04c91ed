// Package tokenizer provides token counting infrastructure using tiktoken.
// It implements the application TokenCounter port for every supported encoding.
package tokenizer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
	"github.com/jbctechsolutions/tokencalc/internal/domain/tokencount"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/logging"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/tracing"
)

// engine is the part of *tiktoken.Tiktoken the counter relies on.
type engine interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// loadFunc resolves an encoding name to an engine.
type loadFunc func(name string) (engine, error)

func loadTiktoken(name string) (engine, error) {
	return tiktoken.GetEncoding(name)
}

var offlineOnce sync.Once

// UseOfflineVocabulary switches tiktoken to the vocabularies embedded in
// tiktoken-go-loader so counts never require network access.
// Safe to call more than once.
func UseOfflineVocabulary() {
	offlineOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
}

// UseCacheDir points the downloading loader at dir. An empty dir is a no-op.
func UseCacheDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create tiktoken cache dir: %w", err)
	}
	return os.Setenv("TIKTOKEN_CACHE_DIR", dir)
}

// Counter provides token counting using tiktoken-go.
// Loaded encodings are memoized; the counter is safe for concurrent use.
type Counter struct {
	mu       sync.Mutex
	encoders map[encoding.ID]engine
	load     loadFunc
	logger   *logging.Logger
	tracer   *tracing.Tracer
}

// Ensure Counter implements ports.TokenCounter.
var _ ports.TokenCounter = (*Counter)(nil)

// Option configures a Counter.
type Option func(*Counter)

// WithLogger sets the logger used for count diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(c *Counter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used for count spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(c *Counter) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewCounter creates a new token counter. Encodings are loaded lazily on
// first use.
func NewCounter(opts ...Option) *Counter {
	c := &Counter{
		encoders: make(map[encoding.ID]engine),
		load:     loadTiktoken,
		logger:   logging.Nop(),
		tracer:   tracing.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CountTokens returns the number of tokens text occupies under enc.
// Empty text is zero tokens for every supported encoding. Text containing a
// special-token string fails with a TOKENIZATION error.
func (c *Counter) CountTokens(ctx context.Context, text string, enc encoding.ID) (n int, err error) {
	if !enc.IsValid() {
		return 0, domainErrors.WithContext(
			domainErrors.NewTokenizationError(
				fmt.Sprintf("unsupported encoding %q", enc), domainErrors.ErrUnsupportedEncoding),
			"encoding", string(enc),
		)
	}
	if text == "" {
		return 0, nil
	}

	ctx, span := c.tracer.StartCountSpan(ctx, enc.String(), len(text))
	start := time.Now()
	defer func() {
		if err != nil {
			span.EndWithError(err)
			logging.LogTokenizationFailed(ctx, c.logger, enc.String(), err)
			return
		}
		span.SetTokens(n)
		span.End()
		logging.LogTokensCounted(ctx, c.logger, enc.String(), len(text), n, time.Since(start))
	}()

	e, err := c.encoder(enc)
	if err != nil {
		return 0, err
	}
	return encode(e, text, enc)
}

// CountAll counts text under every supported encoding, in display order.
func (c *Counter) CountAll(ctx context.Context, text string) ([]tokencount.Result, error) {
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

// Preload loads the given encodings ahead of the first count.
func (c *Counter) Preload(ids ...encoding.ID) error {
	for _, id := range ids {
		if _, err := c.encoder(id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Counter) encoder(enc encoding.ID) (engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.encoders[enc]; ok {
		return e, nil
	}
	e, err := c.load(enc.String())
	if err != nil {
		return nil, domainErrors.WithContext(
			domainErrors.NewTokenizationError("failed to load encoding", err),
			"encoding", enc.String(),
		)
	}
	c.encoders[enc] = e
	return e, nil
}

var disallowAll = []string{"all"}

// encode runs the engine, converting a panic into a TOKENIZATION error.
// Special-token strings such as <|endoftext|> are disallowed and make the
// engine panic, so they fail the count instead of being encoded.
func encode(e engine, text string, enc encoding.ID) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domainErrors.WithContext(
				domainErrors.NewTokenizationError(fmt.Sprintf("tokenizer panicked: %v", r), nil),
				"encoding", enc.String(),
			)
		}
	}()
	return len(e.Encode(text, nil, disallowAll)), nil
}
