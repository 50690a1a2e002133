package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/westtrac/parts-insights/internal/config"
	"github.com/westtrac/parts-insights/internal/domain"
)

const (
	seasonalAnalysisKeyPrefix = "seasonal:analysis"
	seasonalScanBatchSize     = 100
	defaultSeasonalTTL        = time.Hour
)

// SeasonalCache stores finished analyses keyed by the usage filter they were computed for.
type SeasonalCache interface {
	GetAnalysis(ctx context.Context, filter domain.UsageFilter) (*domain.SeasonalAnalysis, bool, error)
	SetAnalysis(ctx context.Context, filter domain.UsageFilter, analysis *domain.SeasonalAnalysis) error
	InvalidateAll(ctx context.Context) error
}

// analysisStore is the subset of *redis.Client the seasonal cache uses.
type analysisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSeasonalCache struct {
	client analysisStore
	ttl    time.Duration
}

type noopSeasonalCache struct{}

func NewSeasonalCache(cfg config.CacheConfig) (SeasonalCache, error) {
	if !cfg.Enabled {
		return &noopSeasonalCache{}, nil
	}

	opts, err := seasonalRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("seasonal cache: redis ping %s failed: %w", opts.Addr, err)
	}

	return newRedisSeasonalCache(client, time.Duration(cfg.SeasonalTTLSeconds)*time.Second), nil
}

func newRedisSeasonalCache(client analysisStore, ttl time.Duration) *redisSeasonalCache {
	if ttl <= 0 {
		ttl = defaultSeasonalTTL
	}
	return &redisSeasonalCache{client: client, ttl: ttl}
}

// seasonalRedisOptions prefers REDIS_URL and falls back to host, port,
// password and db.
func seasonalRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("seasonal cache: invalid redis url: %w", err)
		}
		return opt, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func NewNoopSeasonalCache() SeasonalCache {
	return &noopSeasonalCache{}
}

func (c *redisSeasonalCache) GetAnalysis(ctx context.Context, filter domain.UsageFilter) (*domain.SeasonalAnalysis, bool, error) {
	key := buildSeasonalAnalysisKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("seasonal cache: redis get failed: %w", err)
	}

	var analysis domain.SeasonalAnalysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return nil, false, fmt.Errorf("seasonal cache: decode analysis: %w", err)
	}

	return &analysis, true, nil
}

func (c *redisSeasonalCache) SetAnalysis(ctx context.Context, filter domain.UsageFilter, analysis *domain.SeasonalAnalysis) error {
	key := buildSeasonalAnalysisKey(filter)
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("seasonal cache: encode analysis: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("seasonal cache: redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll deletes every cached analysis. Keys outside the
// seasonal:analysis namespace are left alone.
func (c *redisSeasonalCache) InvalidateAll(ctx context.Context) error {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, seasonalAnalysisKeyPrefix+":*", seasonalScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("seasonal cache: redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("seasonal cache: redis delete failed: %w", err)
			}
			deleted += len(keys)
		}
		if cursor = next; cursor == 0 {
			break
		}
	}
	log.Info().Int("keys", deleted).Msg("seasonal cache invalidated")
	return nil
}

func (n *noopSeasonalCache) GetAnalysis(ctx context.Context, filter domain.UsageFilter) (*domain.SeasonalAnalysis, bool, error) {
	return nil, false, nil
}

func (n *noopSeasonalCache) SetAnalysis(ctx context.Context, filter domain.UsageFilter, analysis *domain.SeasonalAnalysis) error {
	return nil
}

func (n *noopSeasonalCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildSeasonalAnalysisKey(filter domain.UsageFilter) string {
	return fmt.Sprintf("%s:%s", seasonalAnalysisKeyPrefix, usageFilterHash(filter))
}

func usageFilterHash(filter domain.UsageFilter) string {
	parts := []string{}

	if filter.From != nil {
		parts = append(parts, "from="+filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		parts = append(parts, "to="+filter.To.UTC().Format(time.RFC3339))
	}
	if v := joinStrings(filter.Clients); v != "" {
		parts = append(parts, "clients="+v)
	}
	if v := joinStrings(filter.Categories); v != "" {
		parts = append(parts, "categories="+v)
	}
	if v := joinStrings(filter.PartNumbers); v != "" {
		parts = append(parts, "parts="+v)
	}
	if filter.ExcludeZeroInvoices {
		parts = append(parts, "exclude_zero_invoices=true")
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// joinStrings trims and sorts values. Case is kept because the SQL filters
// compare exactly.
func joinStrings(values []string) string {
	c := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			c = append(c, v)
		}
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
