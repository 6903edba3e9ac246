package alias

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
)

// RedisOverlay keeps curated aliases in hashes:
//
//	<prefix>:team:<book>  raw name -> team id
//	<prefix>:market       raw label -> market type
type RedisOverlay struct {
	client redis.Cmdable
	prefix string
}

func NewRedisOverlay(client redis.Cmdable, prefix string) *RedisOverlay {
	if prefix == "" {
		prefix = "aliases"
	}
	return &RedisOverlay{client: client, prefix: prefix}
}

func (r *RedisOverlay) teamKey(book string) string {
	return fmt.Sprintf("%s:team:%s", r.prefix, bookKey(book))
}

func (r *RedisOverlay) marketKey() string {
	return r.prefix + ":market"
}

// LoadOverlay reads every curated hash.
func (r *RedisOverlay) LoadOverlay(ctx context.Context) (Overlay, error) {
	o := Overlay{
		TeamAliases: make(map[string]map[string]string),
		Markets:     make(map[string]enums.MarketType),
	}

	pattern := r.prefix + ":team:*"
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		book := strings.TrimPrefix(key, r.prefix+":team:")
		aliases, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return Overlay{}, fmt.Errorf("read %s: %w", key, err)
		}
		o.TeamAliases[book] = aliases
	}
	if err := iter.Err(); err != nil {
		return Overlay{}, fmt.Errorf("scan %s: %w", pattern, err)
	}

	markets, err := r.client.HGetAll(ctx, r.marketKey()).Result()
	if err != nil {
		return Overlay{}, fmt.Errorf("read %s: %w", r.marketKey(), err)
	}
	for label, mt := range markets {
		o.Markets[label] = enums.MarketType(mt)
	}
	return o, nil
}

// AddTeamAlias records a curated (book, raw) -> team mapping. It is picked up at the next reload.
func (r *RedisOverlay) AddTeamAlias(ctx context.Context, book, raw, teamID string) error {
	if err := r.client.HSet(ctx, r.teamKey(book), raw, teamID).Err(); err != nil {
		return fmt.Errorf("failed to store team alias: %w", err)
	}
	return nil
}

// AddMarketAlias records a curated market label.
func (r *RedisOverlay) AddMarketAlias(ctx context.Context, label string, mt enums.MarketType) error {
	if !mt.IsValid() {
		return fmt.Errorf("unknown market type %q", mt)
	}
	if err := r.client.HSet(ctx, r.marketKey(), label, string(mt)).Err(); err != nil {
		return fmt.Errorf("failed to store market alias: %w", err)
	}
	return nil
}
