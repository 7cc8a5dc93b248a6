package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/repository"
)

var _ repository.SubmissionCache = (*redisSubmissionCache)(nil)

const (
	submissionKeyPrefix = "workbench:submission:"
	defaultTTL          = 24 * time.Hour
)

type redisSubmissionCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

// NewSubmissionCache creates a Redis-backed cache for judged submissions.
func NewSubmissionCache(client goredis.Cmdable, ttl time.Duration) repository.SubmissionCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisSubmissionCache{client: client, ttl: ttl}
}

func submissionKey(id int64) string {
	return submissionKeyPrefix + strconv.FormatInt(id, 10)
}

func (c *redisSubmissionCache) Get(ctx context.Context, id int64) (*domain.SubmissionRecord, bool, error) {
	raw, err := c.client.Get(ctx, submissionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get submission: %w", err)
	}
	var rec domain.SubmissionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		// Drop the entry so the next read repopulates it.
		c.client.Del(ctx, submissionKey(id))
		return nil, false, fmt.Errorf("redis: decode submission: %w", err)
	}
	return &rec, true, nil
}

// Set stores rec only once its verdict is final.
func (c *redisSubmissionCache) Set(ctx context.Context, rec *domain.SubmissionRecord) error {
	if !rec.Status.IsTerminal() {
		return nil
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: encode submission: %w", err)
	}
	if err := c.client.Set(ctx, submissionKey(rec.ID), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set submission: %w", err)
	}
	return nil
}
