// Package media resolves time-limited download URLs for private media objects and
// memoizes them so repeated renders do not sign the same object again.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"eco/pkg/types"
)

const (
	MinExpiry     = 60 * time.Second
	MaxExpiry     = 300 * time.Second
	DefaultExpiry = MaxExpiry

	safetyMargin = 20 * time.Second
	MinCacheTTL  = 20 * time.Second
	MaxCacheTTL  = 120 * time.Second
)

// ClampExpiry turns a requested expiry in seconds into the duration actually signed for.
// Zero or negative requests get DefaultExpiry.
func ClampExpiry(seconds int) time.Duration {
	if seconds <= 0 {
		return DefaultExpiry
	}
	return clamp(time.Duration(seconds)*time.Second, MinExpiry, MaxExpiry)
}

// CacheTTL is how long a URL signed for expiry may be served from cache. Entries leave the
// cache well before the URL itself dies.
func CacheTTL(expiry time.Duration) time.Duration {
	return clamp(expiry-safetyMargin, MinCacheTTL, MaxCacheTTL)
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// Resolver performs the remote lookups. It receives the already clamped expiry.
type Resolver interface {
	SignMedia(ctx context.Context, token, mediaID string, expiry time.Duration) (*types.SignedURL, error)
	SignEntity(ctx context.Context, token, entityType, entityID string, expiry time.Duration) ([]*types.SignedURL, error)
}

type Options struct {
	ExpiresIn    int
	ForceRefresh bool
}

type Cache struct {
	resolver Resolver
	store    Store
}

func NewCache(resolver Resolver, store Store) *Cache {
	return &Cache{resolver: resolver, store: store}
}

func (c *Cache) URLForMedia(ctx context.Context, token, mediaID string, opts Options) (*types.SignedURL, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, types.ErrAuthRequired
	}

	expiry := ClampExpiry(opts.ExpiresIn)
	key := mediaKey(token, mediaID)

	if !opts.ForceRefresh {
		if urls, ok := c.store.Get(ctx, key); ok && len(urls) == 1 {
			return &urls[0], nil
		}
	}

	signed, err := c.resolver.SignMedia(ctx, token, mediaID, expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign media %s: %w", mediaID, err)
	}

	c.store.Set(ctx, key, []types.SignedURL{*signed}, CacheTTL(expiry))

	return signed, nil
}

// URLsForEntity signs every media object attached to an entity. Each returned URL is also
// cached under its media id.
func (c *Cache) URLsForEntity(ctx context.Context, token, entityType, entityID string, opts Options) ([]*types.SignedURL, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, types.ErrAuthRequired
	}

	expiry := ClampExpiry(opts.ExpiresIn)
	ttl := CacheTTL(expiry)
	key := entityKey(token, entityType, entityID)

	if !opts.ForceRefresh {
		if urls, ok := c.store.Get(ctx, key); ok {
			out := make([]*types.SignedURL, 0, len(urls))
			for i := range urls {
				out = append(out, &urls[i])
			}
			return out, nil
		}
	}

	signed, err := c.resolver.SignEntity(ctx, token, entityType, entityID, expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign media for %s %s: %w", entityType, entityID, err)
	}

	values := make([]types.SignedURL, 0, len(signed))
	for _, s := range signed {
		values = append(values, *s)
		c.store.Set(ctx, mediaKey(token, s.MediaID), []types.SignedURL{*s}, ttl)
	}
	c.store.Set(ctx, key, values, ttl)

	return signed, nil
}

// Keys are scoped to the bearer so one viewer never receives a URL signed for another.
func mediaKey(token, mediaID string) string {
	return "media:" + tokenScope(token) + ":" + mediaID
}

func entityKey(token, entityType, entityID string) string {
	return "entity:" + tokenScope(token) + ":" + entityType + ":" + entityID
}

func tokenScope(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
