// Package storage is the key-value service behind favorites, saved lists
// and tokens. Values are opaque bytes; callers own the encoding.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pricelens/internal/common/config"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Driver names accepted in the storage config section.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}

// New picks the Store named by cfg.Driver. The redis and postgres drivers
// need their client; an empty driver means memory.
func New(cfg config.StorageConfig, rdb redis.Cmdable, db *sql.DB) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(cfg.Prefix), nil
	case DriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("%w: redis client not configured", ErrUnknownDriver)
		}
		return NewRedisStore(rdb, cfg.Prefix), nil
	case DriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("%w: postgres connection not configured", ErrUnknownDriver)
		}
		return NewPostgresStore(db, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
