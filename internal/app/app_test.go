package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-scheduling/internal/config"
	"github.com/hackgods/hospital-scheduling/internal/notify"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

func TestNewNotifier_NothingConfigured(t *testing.T) {
	n := NewNotifier(config.Config{NotifyChannel: "events"}, nil, zerolog.Nop())
	assert.IsType(t, scheduling.NopNotifier{}, n)
}

func TestNewNotifier_RedisAndEmail(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.Config{
		NotifyChannel: "events",
		SMTPHost:      "smtp.example.com",
		SMTPPort:      587,
		SMTPFrom:      "clinic@example.com",
	}
	n := NewNotifier(cfg, rdb, zerolog.Nop())

	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 2)
	assert.IsType(t, &notify.RedisPublisher{}, multi[0])
	assert.IsType(t, &notify.EmailNotifier{}, multi[1])
}

func TestRedisCheck(t *testing.T) {
	assert.Nil(t, RedisCheck(nil))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	check := RedisCheck(rdb)
	require.NotNil(t, check)
	assert.NoError(t, check(context.Background()))

	mr.Close()
	assert.Error(t, check(context.Background()))
}
