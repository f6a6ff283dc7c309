package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig selects where snapshots are written.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Key      string `mapstructure:"key" yaml:"key"`
	Channel  string `mapstructure:"channel" yaml:"channel"`
	// Timeout caps dialing and each read or write. Updates are not retried.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

const defaultRedisTimeout = 100 * time.Millisecond

// RedisSink stores the snapshot as a hash and publishes it as JSON on a channel.
type RedisSink struct {
	client  *redis.Client
	key     string
	channel string
}

func NewRedisSink(cfg RedisConfig) *RedisSink {
	return newRedisSink(redis.NewClient(redisOptions(cfg)), cfg)
}

func redisOptions(cfg RedisConfig) *redis.Options {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return &redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		DialTimeout:           timeout,
		ReadTimeout:           timeout,
		WriteTimeout:          timeout,
		PoolTimeout:           timeout,
		ContextTimeoutEnabled: true,
		MaxRetries:            -1,
	}
}

func newRedisSink(client *redis.Client, cfg RedisConfig) *RedisSink {
	key, channel := cfg.Key, cfg.Channel
	if key == "" {
		key = "tidevalve"
	}
	if channel == "" {
		channel = key
	}
	return &RedisSink{client: client, key: key, channel: channel}
}

// Ping checks connectivity so misconfiguration surfaces at startup.
func (r *RedisSink) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSink) Show(ctx context.Context, s Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, r.key, Encode(s))
	pipe.Publish(ctx, r.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis status update: %w", err)
	}
	return nil
}

func (r *RedisSink) Close() error {
	return r.client.Close()
}
