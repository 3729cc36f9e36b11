package cache

import (
	"context"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const generationKey = "generation"

// Redis is a rueidis-backed Store for deployments where the cache
// must be shared across instances. The generation counter lives in a
// Redis key so every instance observes a clear.
type Redis struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// RedisConfig holds connection parameters for the redis cache backend.
type RedisConfig struct {
	Addrs    []string
	Password string
	Prefix   string
	TTL      time.Duration
	Logger   *zap.Logger
}

// NewRedis creates a redis cache backend.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &Redis{
		client: client,
		prefix: cfg.Prefix,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Get implements Store. Any Redis failure is treated as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	cmd := r.client.B().Get().Key(r.prefix + key).Build()
	data, err := r.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			r.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// Put implements Store.
func (r *Redis) Put(ctx context.Context, key string, value []byte) {
	cmd := r.client.B().Set().Key(r.prefix + key).Value(string(value)).Ex(r.ttl).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		r.logger.Warn("cache put failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear implements Store: bumps the generation counter, then deletes
// all prefixed entries via SCAN.
func (r *Redis) Clear(ctx context.Context) error {
	incr := r.client.B().Incr().Key(r.prefix + generationKey).Build()
	if err := r.client.Do(ctx, incr).Error(); err != nil {
		return err
	}

	var cursor uint64
	for {
		scan := r.client.B().Scan().Cursor(cursor).
			Match(r.prefix + "search|*").Count(200).Build()
		entry, err := r.client.Do(ctx, scan).AsScanEntry()
		if err != nil {
			return err
		}
		if len(entry.Elements) > 0 {
			del := r.client.B().Del().Key(entry.Elements...).Build()
			if err := r.client.Do(ctx, del).Error(); err != nil {
				return err
			}
		}
		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}

	// Intelligent-search entries carry the generation in their key,
	// so they become unreachable immediately; their TTL reclaims them.
	return nil
}

// Generation implements Store. Returns 0 when the counter key is
// missing or Redis is unreachable.
func (r *Redis) Generation(ctx context.Context) uint64 {
	cmd := r.client.B().Get().Key(r.prefix + generationKey).Build()
	n, err := r.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			r.logger.Warn("cache generation read failed", zap.Error(err))
		}
		return 0
	}
	return uint64(n)
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	cmd := r.client.B().Ping().Build()
	return r.client.Do(ctx, cmd).Error()
}

// Close shuts down the client.
func (r *Redis) Close() {
	r.client.Close()
}
