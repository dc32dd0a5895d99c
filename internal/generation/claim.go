package generation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-content/internal/platform/cache"
)

// Claimer guards a key so only one caller persists it.
type Claimer interface {
	// Claim reports whether the caller won key.
	Claim(ctx context.Context, key string) (bool, error)
	// Release gives up a key won by this claimer.
	Release(ctx context.Context, key string) error
}

// MemoryClaimer is a process-local Claimer.
type MemoryClaimer struct {
	ttl  time.Duration
	keys map[string]time.Time
	mu   sync.Mutex
	now  func() time.Time
}

// NewMemoryClaimer creates a claimer whose claims lapse after ttl.
func NewMemoryClaimer(ttl time.Duration) *MemoryClaimer {
	return &MemoryClaimer{ttl: ttl, keys: make(map[string]time.Time), now: time.Now}
}

func (c *MemoryClaimer) Claim(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.keys[key] = now.Add(c.ttl)
	return true, nil
}

func (c *MemoryClaimer) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.keys, key)
	return nil
}

// RedisClaimer shares claims across instances through the cache.
type RedisClaimer struct {
	cache  *cache.Cache
	prefix string
	ttl    time.Duration

	// Tokens of keys this instance won, so Release never frees a claim
	// that has expired and been taken by someone else.
	tokens map[string]string
	mu     sync.Mutex
}

// NewRedisClaimer creates a claimer storing keys under prefix.
func NewRedisClaimer(c *cache.Cache, prefix string, ttl time.Duration) *RedisClaimer {
	return &RedisClaimer{cache: c, prefix: prefix, ttl: ttl, tokens: make(map[string]string)}
}

func (c *RedisClaimer) Claim(ctx context.Context, key string) (bool, error) {
	token := uuid.NewString()
	ok, err := c.cache.Claim(ctx, c.prefix+key, token, c.ttl)
	if err != nil || !ok {
		return false, err
	}

	c.mu.Lock()
	c.tokens[key] = token
	c.mu.Unlock()
	return true, nil
}

func (c *RedisClaimer) Release(ctx context.Context, key string) error {
	c.mu.Lock()
	token, ok := c.tokens[key]
	delete(c.tokens, key)
	c.mu.Unlock()

	if !ok {
		return cache.ErrNotHeld
	}
	return c.cache.Release(ctx, c.prefix+key, token)
}
