package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/sharpedge/internal/pkg/config"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

var _ UnresolvedReporter = (*RedisUnresolvedReporter)(nil)

// listClient is the part of redis.Cmdable the reporter uses.
type listClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisUnresolvedReporter appends unresolved events as JSON to a capped list.
type RedisUnresolvedReporter struct {
	client  listClient
	key     string
	maxSize int64
}

func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisUnresolvedReporter(client listClient, key string, maxSize int64) *RedisUnresolvedReporter {
	if key == "" {
		key = "unresolved:events"
	}
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &RedisUnresolvedReporter{client: client, key: key, maxSize: maxSize}
}

func (r *RedisUnresolvedReporter) ReportUnresolved(ctx context.Context, events []models.UnresolvedEvent) error {
	if len(events) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(events))
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			return &Failure{Op: "encode unresolved", Rows: len(events), Err: err}
		}
		values = append(values, string(b))
	}

	if err := r.client.RPush(ctx, r.key, values...).Err(); err != nil {
		return &Failure{Op: "rpush unresolved", Rows: len(events), Err: err}
	}
	if err := r.client.LTrim(ctx, r.key, -r.maxSize, -1).Err(); err != nil {
		return &Failure{Op: "ltrim unresolved", Rows: len(events), Err: err}
	}
	return nil
}

// Recent returns up to limit of the newest events, oldest first. Malformed entries are skipped.
func (r *RedisUnresolvedReporter) Recent(ctx context.Context, limit int64) ([]models.UnresolvedEvent, error) {
	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := r.client.LRange(ctx, r.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read unresolved events: %w", err)
	}
	out := make([]models.UnresolvedEvent, 0, len(raw))
	for _, s := range raw {
		var ev models.UnresolvedEvent
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			slog.Warn("Skipping malformed unresolved event", "error", err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
