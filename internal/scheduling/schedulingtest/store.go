// Package schedulingtest provides an in-memory scheduling.Store for tests.
package schedulingtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

// Store keeps everything in maps behind one mutex. WithinTx records an undo
// step for every write so a failing unit of work leaves no trace.
type Store struct {
	mu           sync.Mutex
	doctors      map[uuid.UUID]scheduling.Doctor
	patients     map[uuid.UUID]scheduling.Patient
	schedules    map[uuid.UUID]scheduling.ScheduleTemplate
	slots        map[uuid.UUID]scheduling.Slot
	slotKeys     map[scheduling.SlotKey]uuid.UUID
	appointments map[uuid.UUID]scheduling.Appointment
	events       []scheduling.EventLog

	// FailEvents makes InsertEvent return an error.
	FailEvents bool
}

var _ scheduling.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		doctors:      make(map[uuid.UUID]scheduling.Doctor),
		patients:     make(map[uuid.UUID]scheduling.Patient),
		schedules:    make(map[uuid.UUID]scheduling.ScheduleTemplate),
		slots:        make(map[uuid.UUID]scheduling.Slot),
		slotKeys:     make(map[scheduling.SlotKey]uuid.UUID),
		appointments: make(map[uuid.UUID]scheduling.Appointment),
	}
}

// AddDoctor registers a doctor and returns its id.
func (s *Store) AddDoctor(name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	d := scheduling.Doctor{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	s.doctors[d.ID] = d
	return d.ID
}

// AddPatient registers a patient with an optional email and returns its id.
func (s *Store) AddPatient(name, email string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p := scheduling.Patient{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	if email != "" {
		p.Email = &email
	}
	s.patients[p.ID] = p
	return p.ID
}

// Events returns a copy of the recorded audit rows.
func (s *Store) Events() []scheduling.EventLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scheduling.EventLog(nil), s.events...)
}

// SlotCount reports how many slots exist.
func (s *Store) SlotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Transactions

type undoKey struct{}

type undoLog struct {
	steps []func()
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, undoKey{}, log)); err != nil {
		s.mu.Lock()
		for i := len(log.steps) - 1; i >= 0; i-- {
			log.steps[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// onRollback registers undo for the current unit of work. Callers hold s.mu.
func onRollback(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.steps = append(log.steps, undo)
	}
}

// Directory

func (s *Store) GetDoctorByID(_ context.Context, id uuid.UUID) (*scheduling.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[id]
	if !ok {
		return nil, scheduling.ErrDoctorNotFound
	}
	return &d, nil
}

func (s *Store) GetPatientByID(_ context.Context, id uuid.UUID) (*scheduling.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, scheduling.ErrPatientNotFound
	}
	return &p, nil
}

// Schedules

func (s *Store) activeClash(t scheduling.ScheduleTemplate) bool {
	if !t.IsActive {
		return false
	}
	for _, e := range s.schedules {
		if e.ID != t.ID && e.DoctorID == t.DoctorID && e.IsActive && e.Weekday == t.Weekday {
			return true
		}
	}
	return false
}

func (s *Store) CreateSchedule(ctx context.Context, t *scheduling.ScheduleTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeClash(*t) {
		return fmt.Errorf("%w: active %s schedule already exists", scheduling.ErrConflict, t.Weekday)
	}
	id := t.ID
	s.schedules[id] = *t
	onRollback(ctx, func() { delete(s.schedules, id) })
	return nil
}

func (s *Store) GetSchedule(_ context.Context, id uuid.UUID) (*scheduling.ScheduleTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.schedules[id]
	if !ok {
		return nil, scheduling.ErrScheduleNotFound
	}
	return &t, nil
}

func (s *Store) ListSchedulesByDoctor(_ context.Context, doctorID uuid.UUID) ([]scheduling.ScheduleTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []scheduling.ScheduleTemplate
	for _, t := range s.schedules {
		if t.DoctorID == doctorID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *Store) UpdateSchedule(ctx context.Context, t *scheduling.ScheduleTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.schedules[t.ID]
	if !ok {
		return scheduling.ErrScheduleNotFound
	}
	if s.activeClash(*t) {
		return fmt.Errorf("%w: active %s schedule already exists", scheduling.ErrConflict, t.Weekday)
	}
	s.schedules[t.ID] = *t
	onRollback(ctx, func() { s.schedules[prev.ID] = prev })
	return nil
}

func (s *Store) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.schedules[id]
	if !ok {
		return scheduling.ErrScheduleNotFound
	}
	delete(s.schedules, id)
	onRollback(ctx, func() { s.schedules[id] = prev })
	return nil
}

func (s *Store) ListDoctorsWithActiveSchedules(context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, t := range s.schedules {
		if t.IsActive && !seen[t.DoctorID] {
			seen[t.DoctorID] = true
			ids = append(ids, t.DoctorID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// Slots

func sortSlots(items []scheduling.Slot) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.DoctorID.String() < b.DoctorID.String()
	})
}

func (s *Store) ListSlots(_ context.Context, limit, offset int) ([]scheduling.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]scheduling.Slot, 0, len(s.slots))
	for _, sl := range s.slots {
		all = append(all, sl)
	}
	sortSlots(all)

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) ListSlotsByDoctorAndDate(_ context.Context, doctorID uuid.UUID, date scheduling.Date) ([]scheduling.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []scheduling.Slot
	for _, sl := range s.slots {
		if sl.DoctorID == doctorID && sl.Date == date {
			out = append(out, sl)
		}
	}
	sortSlots(out)
	return out, nil
}

func (s *Store) GetSlot(_ context.Context, id uuid.UUID) (*scheduling.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[id]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}
	return &sl, nil
}

func (s *Store) GetSlotByKey(_ context.Context, key scheduling.SlotKey) (*scheduling.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.slotKeys[key]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}
	sl := s.slots[id]
	return &sl, nil
}

func (s *Store) InsertSlots(ctx context.Context, keys []scheduling.SlotKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	created := 0
	for _, k := range keys {
		if _, exists := s.slotKeys[k]; exists {
			continue
		}
		sl := scheduling.Slot{
			ID:          uuid.New(),
			DoctorID:    k.DoctorID,
			Date:        k.Date,
			Time:        k.Time,
			IsAvailable: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.slots[sl.ID] = sl
		s.slotKeys[k] = sl.ID
		created++

		key, id := k, sl.ID
		onRollback(ctx, func() {
			delete(s.slots, id)
			delete(s.slotKeys, key)
		})
	}
	return created, nil
}

func (s *Store) ClaimSlot(ctx context.Context, slotID, appointmentID uuid.UUID) (*scheduling.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[slotID]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}
	if !sl.IsAvailable || sl.IsBlocked || sl.AppointmentID != nil {
		return nil, fmt.Errorf("%w: slot %s is taken or blocked", scheduling.ErrSlotUnavailable, slotID)
	}

	prev := sl
	holder := appointmentID
	sl.IsAvailable = false
	sl.AppointmentID = &holder
	sl.UpdatedAt = time.Now()
	s.slots[slotID] = sl

	onRollback(ctx, func() {
		cur := s.slots[slotID]
		if cur.AppointmentID != nil && *cur.AppointmentID == appointmentID {
			s.slots[slotID] = prev
		}
	})
	return &sl, nil
}

// release frees sl and records the matching undo. Callers hold s.mu.
func (s *Store) release(ctx context.Context, sl scheduling.Slot) {
	prev := sl
	sl.AppointmentID = nil
	sl.IsAvailable = !sl.IsBlocked
	sl.UpdatedAt = time.Now()
	s.slots[sl.ID] = sl
	onRollback(ctx, func() { s.slots[prev.ID] = prev })
}

func (s *Store) ReleaseSlot(ctx context.Context, slotID, appointmentID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[slotID]
	if !ok || sl.AppointmentID == nil || *sl.AppointmentID != appointmentID {
		return false, nil
	}
	s.release(ctx, sl)
	return true, nil
}

func (s *Store) ReleaseAppointmentSlots(ctx context.Context, appointmentID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, sl := range s.slots {
		if sl.AppointmentID != nil && *sl.AppointmentID == appointmentID {
			s.release(ctx, sl)
			n++
		}
	}
	return n, nil
}

func (s *Store) SetSlotBlocked(ctx context.Context, id uuid.UUID, blocked bool) (*scheduling.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[id]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}
	if blocked && sl.AppointmentID != nil {
		return nil, fmt.Errorf("%w: slot %s is booked", scheduling.ErrSlotUnavailable, id)
	}

	prev := sl
	sl.IsBlocked = blocked
	sl.IsAvailable = sl.AppointmentID == nil && !blocked
	sl.UpdatedAt = time.Now()
	s.slots[id] = sl
	onRollback(ctx, func() { s.slots[id] = prev })
	return &sl, nil
}

func (s *Store) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[id]
	if !ok {
		return scheduling.ErrSlotNotFound
	}
	if sl.AppointmentID != nil {
		return fmt.Errorf("%w: slot %s is booked", scheduling.ErrConflict, id)
	}
	delete(s.slots, id)
	delete(s.slotKeys, sl.Key())
	onRollback(ctx, func() {
		s.slots[id] = sl
		s.slotKeys[sl.Key()] = id
	})
	return nil
}

// Appointments

func (s *Store) CreateAppointment(ctx context.Context, a *scheduling.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.appointments[a.ID]; exists {
		return fmt.Errorf("%w: appointment %s exists", scheduling.ErrConflict, a.ID)
	}
	id := a.ID
	s.appointments[id] = *a
	onRollback(ctx, func() { delete(s.appointments, id) })
	return nil
}

func (s *Store) GetAppointment(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	return &a, nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to scheduling.AppointmentStatus) (*scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	if a.Status != from {
		return nil, fmt.Errorf("%w: appointment %s is no longer %s", scheduling.ErrInvalidTransition, id, from)
	}

	prev := a
	a.Status = to
	a.UpdatedAt = time.Now()
	s.appointments[id] = a
	onRollback(ctx, func() { s.appointments[id] = prev })
	return &a, nil
}

func (s *Store) MoveAppointment(ctx context.Context, id uuid.UUID, from scheduling.AppointmentStatus, slot scheduling.Slot) (*scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	if a.Status != from {
		return nil, fmt.Errorf("%w: appointment %s is no longer %s", scheduling.ErrInvalidTransition, id, from)
	}

	prev := a
	slotID := slot.ID
	a.Date = slot.Date
	a.Time = slot.Time
	a.SlotID = &slotID
	a.UpdatedAt = time.Now()
	s.appointments[id] = a
	onRollback(ctx, func() { s.appointments[id] = prev })
	return &a, nil
}

func (s *Store) listAppointments(match func(scheduling.Appointment) bool, less func(a, b scheduling.Appointment) bool, limit, offset int) []scheduling.Appointment {
	var out []scheduling.Appointment
	for _, a := range s.appointments {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })

	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (s *Store) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID, date *scheduling.Date, limit, offset int) ([]scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match := func(a scheduling.Appointment) bool {
		return a.DoctorID == doctorID && (date == nil || a.Date == *date)
	}
	less := func(a, b scheduling.Appointment) bool {
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.Time < b.Time
	}
	return s.listAppointments(match, less, limit, offset), nil
}

func (s *Store) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match := func(a scheduling.Appointment) bool { return a.PatientID == patientID }
	less := func(a, b scheduling.Appointment) bool { return a.CreatedAt.After(b.CreatedAt) }
	return s.listAppointments(match, less, limit, offset), nil
}

// Events

var errEventsDown = errors.New("event log unavailable")

func (s *Store) InsertEvent(_ context.Context, ev scheduling.EventLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailEvents {
		return errEventsDown
	}
	ev.ID = int64(len(s.events) + 1)
	s.events = append(s.events, ev)
	return nil
}
