// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// comments.go caches each post's approved-comment listing in Valkey so the
// public post page skips the comments query on repeat views. Moderation,
// replies and deletions invalidate the affected post's entry.
//
// Every post also has a generation counter that Invalidate bumps. A fill
// carries the generation its reader saw on the miss and is dropped if an
// invalidation happened in between, so a listing read before a write can
// never be cached after it.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"inkpress/internal/models"
)

const (
	// commentKeyPrefix is the Valkey key prefix for cached comment listings.
	commentKeyPrefix = "comments:"
	// commentGenPrefix is the Valkey key prefix for listing generations.
	commentGenPrefix = commentKeyPrefix + "gen:"

	// DefaultCommentTTL bounds how long a listing may be served without
	// an invalidation reaching it.
	DefaultCommentTTL = 5 * time.Minute

	// commentGenTTL keeps generation counters around far longer than any
	// read-then-fill can take.
	commentGenTTL = 24 * time.Hour
)

// fillScript stores KEYS[1] only while KEYS[2] still holds the generation
// in ARGV[1]. A missing counter is generation 0.
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if (gen or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// CommentCache manages approved-comment listings in Valkey. Failures are
// logged and treated as misses; the database stays the source of truth.
type CommentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCommentCache creates a comment cache backed by the given Valkey client.
func NewCommentCache(client *redis.Client, ttl time.Duration) *CommentCache {
	if ttl == 0 {
		ttl = DefaultCommentTTL
	}
	return &CommentCache{client: client, ttl: ttl}
}

// CommentKey returns the cache key for a post's approved comments.
func CommentKey(postID uuid.UUID) string {
	return commentKeyPrefix + postID.String()
}

// GenerationKey returns the key of a post's listing generation.
func GenerationKey(postID uuid.UUID) string {
	return commentGenPrefix + postID.String()
}

// Get returns the cached listing for a post. The bool is false on a miss,
// and gen is the generation to hand to Set when filling it.
func (cc *CommentCache) Get(ctx context.Context, postID uuid.UUID) (comments []models.Comment, gen int64, ok bool) {
	key := CommentKey(postID)
	vals, err := cc.client.MGet(ctx, key, GenerationKey(postID)).Result()
	if err != nil {
		slog.Warn("comment cache get error", "key", key, "error", err)
		return nil, -1, false
	}

	if s, isStr := vals[1].(string); isStr {
		if gen, err = strconv.ParseInt(s, 10, 64); err != nil {
			slog.Warn("comment cache generation error", "key", key, "error", err)
			return nil, -1, false
		}
	}

	raw, isStr := vals[0].(string)
	if !isStr {
		return nil, gen, false
	}
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		slog.Warn("comment cache decode error", "key", key, "error", err)
		return nil, gen, false
	}
	slog.Debug("comment cache hit", "key", key)
	return comments, gen, true
}

// Set stores a post's approved listing with the configured TTL, unless
// the post was invalidated since the Get that returned gen. A negative
// gen never fills.
func (cc *CommentCache) Set(ctx context.Context, postID uuid.UUID, gen int64, comments []models.Comment) {
	if gen < 0 {
		return
	}
	key := CommentKey(postID)
	data, err := json.Marshal(comments)
	if err != nil {
		slog.Warn("comment cache encode error", "key", key, "error", err)
		return
	}

	keys := []string{key, GenerationKey(postID)}
	stored, err := fillScript.Run(ctx, cc.client, keys, strconv.FormatInt(gen, 10), data, cc.ttl.Milliseconds()).Int()
	if err != nil {
		slog.Warn("comment cache set error", "key", key, "error", err)
		return
	}
	if stored == 0 {
		slog.Debug("comment cache fill skipped, listing changed", "key", key)
	}
}

// Invalidate drops a post's cached listing and bumps its generation.
func (cc *CommentCache) Invalidate(ctx context.Context, postID uuid.UUID) {
	key := CommentKey(postID)
	genKey := GenerationKey(postID)
	_, err := cc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, commentGenTTL)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		slog.Warn("comment cache invalidate error", "key", key, "error", err)
		return
	}
	slog.Debug("comment cache invalidated", "key", key)
}
