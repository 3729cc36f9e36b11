package cache

import (
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// NewRedisForTest creates a Redis backend with the provided rueidis
// client (test-only).
func NewRedisForTest(c rueidis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: c, prefix: prefix, ttl: ttl, logger: zap.NewNop()}
}
