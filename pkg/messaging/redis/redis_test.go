package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisBrokerRejectsBadURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "not-a-url"}, zerolog.Nop())
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

func TestPublishRejectsUnmarshalable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	b := NewWithClient(client, zerolog.Nop())

	err := b.Publish(context.Background(), "appointments", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal message")
}

func TestPublishOpensBreakerAfterRepeatedFailures(t *testing.T) {
	// Nothing listens on port 1, so every publish fails fast.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()
	b := NewWithClient(client, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		require.Error(t, b.Publish(ctx, "appointments", map[string]string{"n": "x"}))
	}

	err := b.Publish(ctx, "appointments", map[string]string{"n": "x"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
