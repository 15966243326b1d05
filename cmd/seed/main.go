package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-scheduling/internal/app"
	"github.com/hackgods/hospital-scheduling/internal/config"
	"github.com/hackgods/hospital-scheduling/internal/db"
	"github.com/hackgods/hospital-scheduling/internal/logging"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("seed", "info", true).Fatal().Err(err).Msg("config load error")
	}
	log := logging.New("seed", cfg.LogLevel, !cfg.IsProd())
	log.Info().Msg("seed starting")

	ctx := context.Background()

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Open(connCtx, cfg, "seed", log, false)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer deps.Close(log)

	if _, err := db.Migrate(ctx, deps.Pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	doctors, err := seedDoctors(ctx, deps.Pool, faker, envInt("SEED_DOCTORS", 25), log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(ctx, deps.Pool, faker, envInt("SEED_PATIENTS", 2000), log); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedSchedules(ctx, deps.Service, faker, doctors, log); err != nil {
		log.Fatal().Err(err).Msg("seed schedules")
	}

	res, err := deps.Service.MaterializeHorizon(ctx, deps.Service.Today(), cfg.SlotHorizonDays)
	if err != nil {
		log.Fatal().Err(err).Msg("materialize slots")
	}
	log.Info().Int("doctors", res.Doctors).Int("slots", res.Created).Msg("seed complete")
}

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, log zerolog.Logger) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding doctors")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specialties[faker.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, "Dr. "+faker.Name(), spec, faker.Email())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, log zerolog.Logger) error {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), faker.Name(), faker.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}
	return nil
}

// seedSchedules gives every doctor a weekday clinic with a random shape.
func seedSchedules(ctx context.Context, svc *scheduling.Service, faker *gofakeit.Faker, doctors []uuid.UUID, log zerolog.Logger) error {
	durations := []int{15, 20, 30, 45}
	created := 0

	for _, doctorID := range doctors {
		for day := scheduling.Monday; day <= scheduling.Friday; day++ {
			if faker.Number(1, 10) <= 2 {
				continue
			}
			startHour := faker.Number(7, 11)
			tpl := &scheduling.ScheduleTemplate{
				DoctorID:            doctorID,
				Weekday:             day,
				StartTime:           scheduling.NewTimeOfDay(startHour, 0, 0),
				EndTime:             scheduling.NewTimeOfDay(startHour+faker.Number(3, 6), 0, 0),
				SlotDurationMinutes: durations[faker.Number(0, len(durations)-1)],
				IsActive:            true,
			}
			if err := svc.CreateSchedule(ctx, tpl); err != nil {
				return err
			}
			created++
		}
	}

	log.Info().Int("templates", created).Msg("schedules seeded")
	return nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
