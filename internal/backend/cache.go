// internal/backend/cache.go
package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"pricelens/internal/common/logger"
	"pricelens/internal/common/metrics"
	"pricelens/internal/common/textfold"
	"pricelens/internal/models"

	"github.com/redis/go-redis/v9"
)

// CompareCache keeps raw comparison payloads in Redis so repeated visits to
// the same compare page skip the backend. Cache failures are never fatal.
type CompareCache struct {
	redis  redis.Cmdable
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

func NewCompareCache(client redis.Cmdable, prefix string, ttl time.Duration, log logger.Logger) *CompareCache {
	if prefix == "" {
		prefix = "pricelens"
	}
	return &CompareCache{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.ForComponent(log, "compare-cache"),
	}
}

// Key returns the Redis key for product. Case, accents and spacing are
// ignored but punctuation is not, so "C++ Primer" and "C Primer" differ.
func (c *CompareCache) Key(product string) string {
	folded := strings.Join(strings.Fields(textfold.Fold(product)), " ")
	sum := sha256.Sum256([]byte(folded))
	return c.prefix + ":compare:" + textfold.Compact(folded) + ":" + hex.EncodeToString(sum[:8])
}

// Get returns the cached payload. ok is false on a miss or any error.
func (c *CompareCache) Get(ctx context.Context, product string) (*models.CompareResponse, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	val, err := c.redis.Get(ctx, c.Key(product)).Bytes()
	if err == redis.Nil {
		metrics.CompareCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.CompareCache.WithLabelValues("error").Inc()
		c.logger.Warn("compare cache read failed", map[string]interface{}{
			"product": product,
			"error":   err.Error(),
		})
		return nil, false
	}

	var resp models.CompareResponse
	if err := models.DecodeJSON(val, &resp); err != nil {
		metrics.CompareCache.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.CompareCache.WithLabelValues("hit").Inc()
	return &resp, true
}

// Set stores the payload for the configured TTL. Errors are logged only.
func (c *CompareCache) Set(ctx context.Context, product string, resp *models.CompareResponse) {
	if c == nil || c.redis == nil || resp == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.Key(product), data, c.ttl).Err(); err != nil {
		metrics.CompareCache.WithLabelValues("error").Inc()
		c.logger.Warn("compare cache write failed", map[string]interface{}{
			"product": product,
			"error":   err.Error(),
		})
	}
}
