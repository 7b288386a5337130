package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/campus-timetable-api/pkg/config"
)

// KeyPrefix namespaces every key this service writes to a shared Redis.
const KeyPrefix = "timetable"

// NewRedis returns a configured Redis client, failing fast when the server is
// unreachable.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", client.Options().Addr, err)
	}

	return client, nil
}

// Key joins parts under KeyPrefix, e.g. Key("session", id) -> "timetable:session:<id>".
func Key(parts ...string) string {
	return KeyPrefix + ":" + strings.Join(parts, ":")
}
