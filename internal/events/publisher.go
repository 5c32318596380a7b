// Package events fans click events out to a Redis stream so other
// consumers can follow visits without touching the service.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/darkodi/shortlinks/internal/config"
	"github.com/darkodi/shortlinks/internal/model"
)

// RedisPublisher appends click events to a capped Redis stream
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher connects to Redis and checks the connection with PING
func NewRedisPublisher(ctx context.Context, cfg *config.RedisConfig) (*RedisPublisher, error) {
	// ContextTimeoutEnabled lets per-call deadlines from the redirect path cut reads and writes short
	client := redis.NewClient(&redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		DialTimeout:           cfg.DialTimeout,
		ReadTimeout:           cfg.Timeout,
		WriteTimeout:          cfg.Timeout,
		ContextTimeoutEnabled: true,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return newRedisPublisher(client, cfg.Stream, cfg.StreamMaxLen), nil
}

func newRedisPublisher(client *redis.Client, stream string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// PublishClick adds one stream entry per visit
func (p *RedisPublisher) PublishClick(ctx context.Context, shortcode string, event model.ClickEvent) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: clickValues(shortcode, event),
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Close releases the Redis connection pool
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// clickValues flattens an event into stream fields. Absent values are
// sent as empty strings since stream fields can't be null.
func clickValues(shortcode string, event model.ClickEvent) map[string]any {
	values := map[string]any{
		"event_id":   uuid.NewString(),
		"shortcode":  shortcode,
		"timestamp":  event.Timestamp.UTC().Format(time.RFC3339Nano),
		"location":   event.Location,
		"referrer":   "",
		"user_agent": "",
	}
	if event.Referrer != nil {
		values["referrer"] = *event.Referrer
	}
	if event.UserAgent != nil {
		values["user_agent"] = *event.UserAgent
	}
	return values
}
