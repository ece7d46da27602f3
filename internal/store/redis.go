package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions locates the hash that holds one kiosk's settings.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Redis keeps the settings in a single Redis hash.
type Redis struct {
	*values
	client *redis.Client
	key    string
	logger *zap.Logger

	flushMu sync.Mutex
}

// OpenRedis connects and loads the hash.
func OpenRedis(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	data, err := client.HGetAll(ctx, opts.Key).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to load settings hash: %w", err)
	}
	logger.Debug("settings loaded", zap.String("key", opts.Key), zap.Int("fields", len(data)))

	return &Redis{values: newValues(data), client: client, key: opts.Key, logger: logger}, nil
}

// Flush writes changed fields and removes deleted ones in one transaction.
func (r *Redis) Flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	p := r.snapshot()
	if p.empty() {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(p.set) > 0 {
			fields := make([]any, 0, len(p.set)*2)
			for k, v := range p.set {
				fields = append(fields, k, v)
			}
			pipe.HSet(ctx, r.key, fields...)
		}
		if len(p.deleted) > 0 {
			pipe.HDel(ctx, r.key, p.deleted...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to flush settings: %w", err)
	}

	r.markClean(p)
	return nil
}

// Reload merges the hash into memory, keeping unflushed edits.
func (r *Redis) Reload(ctx context.Context) error {
	data, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return err
	}
	r.merge(data)
	return nil
}

// Close flushes and disconnects.
func (r *Redis) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	flushErr := r.Flush(ctx)
	if err := r.client.Close(); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}
