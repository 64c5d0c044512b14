// Package cache keeps each viewer's liked content ids in Redis sets so feed
// fetches can annotate like status without a per-fetch Postgres query. The
// cache is strictly an accelerator: a cold or failing key falls back to the
// database and is rewarmed from the result.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"instagen/internal/model"
)

const (
	// LikedSetPrefix is the key prefix for per-viewer liked-id sets.
	LikedSetPrefix = "liked:"

	// LikedSetTTL bounds staleness for sessions that stop mutating.
	LikedSetTTL = 24 * time.Hour
)

// ErrCacheCold signals that the viewer has no warmed liked-set; the caller
// should consult the database and call WarmLiked with the result.
var ErrCacheCold = fmt.Errorf("like cache cold")

// LikeCache tracks which content a viewer has liked, per content kind.
type LikeCache struct {
	client *redis.Client
}

// NewLikeCache creates a LikeCache from a Redis URL.
// URL format: redis://[:password@]host:port[/db]
func NewLikeCache(redisURL string) (*LikeCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &LikeCache{client: redis.NewClient(opts)}, nil
}

// Ping verifies the connection. Call on startup to fail fast.
func (c *LikeCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *LikeCache) Close() error {
	return c.client.Close()
}

func likedKey(viewerID string, kind model.ContentKind) string {
	return fmt.Sprintf("%s%s:%s", LikedSetPrefix, kind, viewerID)
}

// CheckLiked reports which of the given ids the viewer has liked. Returns
// ErrCacheCold when the viewer's set has not been warmed (or expired).
func (c *LikeCache) CheckLiked(ctx context.Context, viewerID string, kind model.ContentKind, ids []string) (map[string]bool, error) {
	key := likedKey(viewerID, kind)

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("exists: %w", err)
	}
	if exists == 0 {
		return nil, ErrCacheCold
	}

	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	hits, err := c.client.SMIsMember(ctx, key, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("smismember: %w", err)
	}

	result := make(map[string]bool, len(ids))
	for i, id := range ids {
		result[id] = hits[i]
	}
	return result, nil
}

// WarmLiked installs the viewer's liked ids from the database. A sentinel
// member keeps the set non-empty so an all-unliked viewer still counts as
// warmed.
func (c *LikeCache) WarmLiked(ctx context.Context, viewerID string, kind model.ContentKind, likedIDs []string) error {
	key := likedKey(viewerID, kind)

	pipe := c.client.Pipeline()
	members := make([]interface{}, 0, len(likedIDs)+1)
	members = append(members, "_warm")
	for _, id := range likedIDs {
		members = append(members, id)
	}
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, LikedSetTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("warm liked set: %w", err)
	}
	return nil
}

// SetLiked records one like/unlike in the warmed set. A cold set is left
// alone; the next fetch warms it from the database.
func (c *LikeCache) SetLiked(ctx context.Context, viewerID string, kind model.ContentKind, contentID string, liked bool) error {
	key := likedKey(viewerID, kind)

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("exists: %w", err)
	}
	if exists == 0 {
		return nil
	}

	if liked {
		err = c.client.SAdd(ctx, key, contentID).Err()
	} else {
		err = c.client.SRem(ctx, key, contentID).Err()
	}
	if err != nil {
		return fmt.Errorf("update liked set: %w", err)
	}
	return nil
}

// Invalidate drops the viewer's liked sets, e.g. on logout.
func (c *LikeCache) Invalidate(ctx context.Context, viewerID string) error {
	keys := []string{
		likedKey(viewerID, model.KindPost),
		likedKey(viewerID, model.KindReel),
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate liked sets: %w", err)
	}
	return nil
}
