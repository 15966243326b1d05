// Package worker runs the periodic slot materialization job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/hospital-scheduling/internal/redis"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

const lockName = "slot-worker"

type Materializer interface {
	Today() scheduling.Date
	MaterializeHorizon(ctx context.Context, from scheduling.Date, days int) (scheduling.HorizonResult, error)
}

// HorizonJob keeps every active schedule materialized for the next Days
// days. Replicas share a lock so a run happens on one of them at a time.
type HorizonJob struct {
	svc    Materializer
	locker redisclient.Locker
	days   int
	log    zerolog.Logger
}

func NewHorizonJob(svc Materializer, locker redisclient.Locker, days int, log zerolog.Logger) *HorizonJob {
	return &HorizonJob{
		svc:    svc,
		locker: locker,
		days:   days,
		log:    log.With().Str("job", lockName).Logger(),
	}
}

// RunOnce performs a single pass. Losing the lock to another replica is
// not an error.
func (j *HorizonJob) RunOnce(ctx context.Context) error {
	start := time.Now()
	from := j.svc.Today()

	var res scheduling.HorizonResult
	err := j.locker.WithLock(ctx, lockName, func(ctx context.Context) error {
		var err error
		res, err = j.svc.MaterializeHorizon(ctx, from, j.days)
		return err
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		j.log.Info().Msg("another replica holds the lock, skipping run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("materialize horizon: %w", err)
	}

	j.log.Info().
		Stringer("from", from).
		Int("days", j.days).
		Int("doctors", res.Doctors).
		Int("created", res.Created).
		Int("failed", res.Failed).
		Dur("took", time.Since(start)).
		Msg("slot horizon materialized")
	return nil
}

// Schedule registers the job on a cron scheduler using spec. Overlapping
// runs in the same process are skipped.
func (j *HorizonJob) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	logger := cronLogger{log: j.log}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := c.AddFunc(spec, func() {
		if err := j.RunOnce(ctx); err != nil {
			j.log.Error().Err(err).Msg("slot worker run failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return c, nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
