package scheduling

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ExpandSlots lists the slots the active templates call for between start
// and end inclusive, ordered by date then time. A trailing step shorter
// than the slot duration is dropped, so 09:00-09:50 at 30 minutes gives
// only 09:00.
func ExpandSlots(templates []ScheduleTemplate, start, end Date) []SlotKey {
	byDay := make(map[Weekday][]ScheduleTemplate)
	for _, t := range templates {
		if !t.IsActive || t.SlotDurationMinutes <= 0 {
			continue
		}
		byDay[t.Weekday] = append(byDay[t.Weekday], t)
	}
	if len(byDay) == 0 || start.After(end) {
		return nil
	}

	seen := make(map[SlotKey]struct{})
	var keys []SlotKey
	for d := start; !d.After(end); d = d.AddDays(1) {
		for _, t := range byDay[d.Weekday()] {
			step := t.SlotDuration()
			for at := t.StartTime; at.Add(step) <= t.EndTime; at = at.Add(step) {
				k := SlotKey{DoctorID: t.DoctorID, Date: d, Time: at}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date.Before(keys[j].Date)
		}
		return keys[i].Time < keys[j].Time
	})
	return keys
}

// GenerateSlots materializes the doctor's slots for [start, end]. Slots that
// already exist are skipped, so repeated calls converge and report zero.
func (s *Service) GenerateSlots(ctx context.Context, doctorID uuid.UUID, start, end Date) (GenerateResult, error) {
	if start.IsZero() || end.IsZero() {
		return GenerateResult{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidRange)
	}
	if start.After(end) {
		return GenerateResult{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	if days := start.DaysUntil(end) + 1; s.opts.MaxGenerateDays > 0 && days > s.opts.MaxGenerateDays {
		return GenerateResult{}, fmt.Errorf("%w: %d days requested, at most %d allowed", ErrInvalidRange, days, s.opts.MaxGenerateDays)
	}

	if _, err := s.store.GetDoctorByID(ctx, doctorID); err != nil {
		return GenerateResult{}, fmt.Errorf("load doctor: %w", err)
	}

	templates, err := s.store.ListSchedulesByDoctor(ctx, doctorID)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("list schedules: %w", err)
	}
	var active []ScheduleTemplate
	for _, t := range templates {
		if t.IsActive {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return GenerateResult{}, fmt.Errorf("%w: doctor %s has no active schedule", ErrScheduleNotFound, doctorID)
	}

	keys := ExpandSlots(active, start, end)
	created := 0
	if len(keys) > 0 {
		created, err = s.store.InsertSlots(ctx, keys)
		if err != nil {
			return GenerateResult{}, fmt.Errorf("insert slots: %w", err)
		}
	}

	s.log.Info().
		Stringer("doctor_id", doctorID).
		Stringer("start", start).
		Stringer("end", end).
		Int("candidates", len(keys)).
		Int("created", created).
		Msg("slots generated")

	s.logEvent(ctx, nil, EventSlotsGenerated, map[string]any{
		"doctor_id":  doctorID.String(),
		"start_date": start.String(),
		"end_date":   end.String(),
		"candidates": len(keys),
		"created":    created,
	})

	return GenerateResult{Created: created}, nil
}

// HorizonResult summarizes one rolling materialization pass.
type HorizonResult struct {
	Doctors int
	Created int
	Failed  int
}

// MaterializeHorizon generates slots for every doctor with an active
// schedule over [from, from+days-1]. A failing doctor is logged and skipped
// so one bad template does not starve the rest.
func (s *Service) MaterializeHorizon(ctx context.Context, from Date, days int) (HorizonResult, error) {
	if days <= 0 {
		return HorizonResult{}, fmt.Errorf("%w: horizon must be at least one day", ErrInvalidRange)
	}
	doctors, err := s.store.ListDoctorsWithActiveSchedules(ctx)
	if err != nil {
		return HorizonResult{}, fmt.Errorf("list doctors with schedules: %w", err)
	}

	end := from.AddDays(days - 1)
	var res HorizonResult
	for _, id := range doctors {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out, err := s.GenerateSlots(ctx, id, from, end)
		if err != nil {
			res.Failed++
			s.log.Error().Err(err).Stringer("doctor_id", id).Msg("materialize horizon")
			continue
		}
		res.Doctors++
		res.Created += out.Created
	}
	return res, nil
}
