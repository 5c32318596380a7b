package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/shortlinks/internal/config"
	"github.com/darkodi/shortlinks/internal/model"
)

func TestClickValues(t *testing.T) {
	ts := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	ref, ua := "https://ref.example", "curl/8.0"

	t.Run("full event", func(t *testing.T) {
		v := clickValues("abc123", model.ClickEvent{
			Timestamp: ts,
			Referrer:  &ref,
			Location:  "198.51.100.4",
			UserAgent: &ua,
		})

		assert.Equal(t, "abc123", v["shortcode"])
		assert.Equal(t, "2026-10-17T08:00:00Z", v["timestamp"])
		assert.Equal(t, "198.51.100.4", v["location"])
		assert.Equal(t, ref, v["referrer"])
		assert.Equal(t, ua, v["user_agent"])

		_, err := uuid.Parse(v["event_id"].(string))
		assert.NoError(t, err)
	})

	t.Run("absent fields are empty", func(t *testing.T) {
		v := clickValues("abc123", model.ClickEvent{Timestamp: ts, Location: "Unknown"})
		assert.Equal(t, "", v["referrer"])
		assert.Equal(t, "", v["user_agent"])
	})

	t.Run("event ids differ", func(t *testing.T) {
		a := clickValues("x", model.ClickEvent{Timestamp: ts})
		b := clickValues("x", model.ClickEvent{Timestamp: ts})
		assert.NotEqual(t, a["event_id"], b["event_id"])
	})
}

func TestNewRedisPublisher_Unreachable(t *testing.T) {
	_, err := NewRedisPublisher(context.Background(), &config.RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		Timeout:     100 * time.Millisecond,
		Stream:      "clicks",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis 127.0.0.1:1")
}

func TestPublishClick_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	p := newRedisPublisher(client, "clicks", 1000)
	defer p.Close()

	err := p.PublishClick(context.Background(), "abc", model.ClickEvent{Timestamp: time.Now(), Location: "Unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xadd clicks")
}
