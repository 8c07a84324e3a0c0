package fiscal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	summaryVersionKey = "fiscal:summary:version"
	summaryBumpTopic  = "fiscal.summary.bump"
)

// SummaryCache stores computed summaries in Redis under a global version that
// is bumped whenever payment state changes.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache instantiates the cache helper.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *SummaryCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, summaryVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, summaryVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, summaryVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes a versioned key.
func (c *SummaryCache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(append([]string{"fiscal", "summary"}, parts...), ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// Get loads a cached summary. The boolean reports a hit.
func (c *SummaryCache) Get(ctx context.Context, key string) (Summary, bool, error) {
	if c == nil || c.client == nil {
		return Summary{}, false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, err
	}
	var summary Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return Summary{}, false, err
	}
	return summary, true, nil
}

// Set stores a summary with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, key string, summary Summary) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates every cached summary and announces the new version.
func (c *SummaryCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, summaryVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, summaryBumpTopic, ver).Err()
}
