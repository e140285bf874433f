package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyStore keeps the state document under a single key in Valkey. Useful
// when the monitor runs on a host without durable local disk. The JSON
// shape is identical to FileStore's, so switching store types preserves the
// baseline.
type ValkeyStore struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

func NewValkeyStore(addr, password, key string, logger *slog.Logger) *ValkeyStore {
	if key == "" {
		key = "docwatch:state"
	}
	if logger == nil {
		logger = slog.Default()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password, // no password set
		DB:       0,        // use default DB
	})
	return &ValkeyStore{client: rdb, key: key, logger: logger}
}

func (s *ValkeyStore) Load(ctx context.Context) *State {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	val, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return New()
	} else if err != nil {
		s.logger.Warn("Failed to read state from valkey, starting fresh", "error", err)
		return New()
	}
	return decode([]byte(val), s.logger)
}

func (s *ValkeyStore) Save(ctx context.Context, st *State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write state to valkey: %w", err)
	}
	return nil
}
