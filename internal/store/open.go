package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// Options tune backends opened through Open.
type Options struct {
	// TTL expires idle rooms on backends that support it (Redis).
	TTL time.Duration
}

// Open picks a backend from a connection string:
//
//	""  or "memory://"            in-process map
//	"redis://..." "rediss://..."  Redis, pinged before returning
//	"sqlite://<path>" "file:..."  SQLite database file
func Open(ctx context.Context, dsn string, opts Options, logger *log.Logger) (Store, error) {
	logger = logger.WithPrefix("store")

	switch {
	case dsn == "" || dsn == "memory://":
		logger.Info("Using in-memory room store")
		return NewMemory(), nil

	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		ropts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(ropts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close() // Ignore close errors on a dead connection
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", ropts.Addr, err)
		}
		logger.Info("Using redis room store", "addr", ropts.Addr, "db", ropts.DB, "ttl", opts.TTL)
		return NewRedis(client, WithTTL(opts.TTL)), nil

	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		s, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		logger.Info("Using sqlite room store", "path", path)
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported store url %q", dsn)
	}
}
