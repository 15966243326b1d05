package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/hospital-scheduling/internal/app"
	"github.com/hackgods/hospital-scheduling/internal/config"
	"github.com/hackgods/hospital-scheduling/internal/db"
	"github.com/hackgods/hospital-scheduling/internal/logging"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "schedctl",
		Short:        "Operator tooling for the hospital scheduling engine",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(bookCmd())
	rootCmd.AddCommand(cancelCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withDeps loads config, connects Postgres and hands the result to fn.
func withDeps(cmd *cobra.Command, fn func(ctx context.Context, deps *app.Deps, log zerolog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New("schedctl", cfg.LogLevel, true)

	ctx := cmd.Context()
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Open(connCtx, cfg, "schedctl", log, false)
	cancel()
	if err != nil {
		return err
	}
	defer deps.Close(log)

	return fn(ctx, deps, log)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(ctx context.Context, deps *app.Deps, log zerolog.Logger) error {
				applied, err := db.Migrate(ctx, deps.Pool)
				if err != nil {
					return err
				}
				log.Info().Int("applied", applied).Msg("migrations complete")
				return nil
			})
		},
	}
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate slots for one doctor or for every active schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctor, _ := cmd.Flags().GetString("doctor")
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			horizon, _ := cmd.Flags().GetInt("horizon")

			return withDeps(cmd, func(ctx context.Context, deps *app.Deps, log zerolog.Logger) error {
				if horizon > 0 {
					res, err := deps.Service.MaterializeHorizon(ctx, deps.Service.Today(), horizon)
					if err != nil {
						return err
					}
					log.Info().Int("doctors", res.Doctors).Int("created", res.Created).Int("failed", res.Failed).Msg("horizon materialized")
					return nil
				}

				doctorID, err := uuid.Parse(doctor)
				if err != nil {
					return fmt.Errorf("invalid --doctor: %w", err)
				}
				from, err := scheduling.ParseDate(start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				to, err := scheduling.ParseDate(end)
				if err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}

				res, err := deps.Service.GenerateSlots(ctx, doctorID, from, to)
				if err != nil {
					return err
				}
				log.Info().Stringer("doctor_id", doctorID).Int("created", res.Created).Msg("slots generated")
				return nil
			})
		},
	}
	cmd.Flags().String("doctor", "", "Doctor ID")
	cmd.Flags().String("start", "", "First day, YYYY-MM-DD")
	cmd.Flags().String("end", "", "Last day, YYYY-MM-DD (inclusive)")
	cmd.Flags().Int("horizon", 0, "Materialize this many days from today for every doctor instead")
	return cmd
}

func bookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book the slot at a doctor's date and time for a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctor, _ := cmd.Flags().GetString("doctor")
			patient, _ := cmd.Flags().GetString("patient")
			date, _ := cmd.Flags().GetString("date")
			at, _ := cmd.Flags().GetString("time")
			kind, _ := cmd.Flags().GetString("type")
			reason, _ := cmd.Flags().GetString("reason")

			doctorID, err := uuid.Parse(doctor)
			if err != nil {
				return fmt.Errorf("invalid --doctor: %w", err)
			}
			patientID, err := uuid.Parse(patient)
			if err != nil {
				return fmt.Errorf("invalid --patient: %w", err)
			}
			day, err := scheduling.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			tod, err := scheduling.ParseTimeOfDay(at)
			if err != nil {
				return fmt.Errorf("invalid --time: %w", err)
			}

			return withDeps(cmd, func(ctx context.Context, deps *app.Deps, _ zerolog.Logger) error {
				appt, err := deps.Service.BookAppointment(ctx, doctorID, day, tod, scheduling.AppointmentDraft{
					PatientID: patientID,
					Type:      scheduling.AppointmentType(kind),
					Reason:    reason,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, appt)
			})
		},
	}
	cmd.Flags().String("doctor", "", "Doctor ID")
	cmd.Flags().String("patient", "", "Patient ID")
	cmd.Flags().String("date", "", "Slot date, YYYY-MM-DD")
	cmd.Flags().String("time", "", "Slot time, HH:MM:SS")
	cmd.Flags().String("type", string(scheduling.TypeInPerson), "Appointment type")
	cmd.Flags().String("reason", "", "Reason for the visit")
	return cmd
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <appointment-id>",
		Short: "Cancel an appointment and release its slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid appointment id: %w", err)
			}
			return withDeps(cmd, func(ctx context.Context, deps *app.Deps, _ zerolog.Logger) error {
				res, err := deps.Service.CancelAppointment(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
