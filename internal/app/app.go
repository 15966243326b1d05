// Package app wires configuration into the long lived dependencies shared
// by the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-scheduling/internal/config"
	"github.com/hackgods/hospital-scheduling/internal/db"
	"github.com/hackgods/hospital-scheduling/internal/notify"
	redisclient "github.com/hackgods/hospital-scheduling/internal/redis"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

type Deps struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client // nil when opened without Redis
	Service *scheduling.Service
}

// Open connects Postgres and, when withRedis is set, Redis, then builds the
// scheduling service on top of them.
func Open(ctx context.Context, cfg config.Config, name string, log zerolog.Logger, withRedis bool) (*Deps, error) {
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, name)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("connected to Postgres")

	d := &Deps{Pool: pool}
	var publisher redis.UniversalClient
	if withRedis {
		rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			pool.Close()
			return nil, err
		}
		d.Redis = rdb
		publisher = rdb
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
	}

	d.Service = scheduling.NewService(
		scheduling.NewPgRepository(pool),
		NewNotifier(cfg, publisher, log),
		log,
		scheduling.Options{
			MaxGenerateDays: cfg.MaxGenerateDays,
			NotifyTimeout:   cfg.NotifyTimeout,
		},
	)
	return d, nil
}

// Close releases the connections in reverse order of opening.
func (d *Deps) Close(log zerolog.Logger) {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
	d.Pool.Close()
}

// NewNotifier fans out to Redis Pub/Sub and SMTP, whichever is configured.
func NewNotifier(cfg config.Config, rdb redis.UniversalClient, log zerolog.Logger) scheduling.Notifier {
	var senders notify.Multi
	if rdb != nil && cfg.NotifyChannel != "" {
		senders = append(senders, notify.NewRedisPublisher(rdb, cfg.NotifyChannel))
	}
	if cfg.EmailEnabled() {
		senders = append(senders, notify.NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom))
	}

	log.Info().
		Bool("redis", rdb != nil && cfg.NotifyChannel != "").
		Bool("email", cfg.EmailEnabled()).
		Msg("notifications configured")

	if len(senders) == 0 {
		return scheduling.NopNotifier{}
	}
	return senders
}

// PostgresCheck and RedisCheck adapt the clients to health probes.
func PostgresCheck(pool *pgxpool.Pool) func(context.Context) error {
	return pool.Ping
}

func RedisCheck(rdb redis.UniversalClient) func(context.Context) error {
	if rdb == nil {
		return nil
	}
	return func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		return nil
	}
}
