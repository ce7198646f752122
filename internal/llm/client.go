package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/time/rate"

	"conflux/internal/cache"
)

// Client wraps a Provider with rate limiting, response caching and bounded
// retry on transport failures. Components receive a Client (through the
// Completer interface) so call policy stays out of the scoring logic.
type Client struct {
	provider   Provider
	limiter    *rate.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
	maxRetries int
	sleep      func(time.Duration) // Injectable for tests
}

// NewClient creates a client around a provider. A nil cache disables caching.
func NewClient(provider Provider, config Config, store cache.Cache, cacheTTL time.Duration) *Client {
	limit := rate.Limit(config.RateLimit)
	if config.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := config.RateBurst
	if burst <= 0 {
		burst = 1
	}

	retries := config.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		provider:   provider,
		limiter:    rate.NewLimiter(limit, burst),
		cache:      store,
		cacheTTL:   cacheTTL,
		maxRetries: retries,
		sleep:      time.Sleep,
	}
}

// Name returns the underlying provider name
func (c *Client) Name() string {
	if c.provider == nil {
		return ""
	}
	return c.provider.Name()
}

// Complete runs one collaborator call through the limiter, cache and retry policy
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if c.provider == nil {
		return nil, &TransportError{Provider: "none", Err: context.Canceled}
	}

	key := requestKey(req)
	if c.cache != nil {
		if raw, found := c.cache.Get(key); found {
			var resp CompletionResponse
			if err := json.Unmarshal(raw, &resp); err == nil {
				return &resp, nil
			}
		}
	}

	var resp *CompletionResponse
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if lerr := c.limiter.Wait(ctx); lerr != nil {
			return nil, &TransportError{Provider: c.provider.Name(), Err: lerr}
		}

		resp, err = c.provider.Complete(ctx, req)
		if err == nil {
			break
		}
		// Only transport failures are worth retrying; schema failures are
		// deterministic for the same prompt shape.
		if !IsTransport(err) || attempt == c.maxRetries {
			return nil, err
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		c.sleep(backoff)
	}

	if c.cache != nil && resp != nil {
		if raw, merr := json.Marshal(resp); merr == nil {
			_ = c.cache.Set(key, raw, c.cacheTTL)
		}
	}

	return resp, nil
}

// requestKey hashes the full request so cached responses never cross prompts
func requestKey(req CompletionRequest) string {
	h := sha256.New()
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.User))
	h.Write([]byte{0})
	h.Write([]byte(req.Model))
	return cache.Key(hex.EncodeToString(h.Sum(nil)))
}
