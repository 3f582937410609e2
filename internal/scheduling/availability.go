package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicore/consult-booking/internal/timex"
)

// AvailabilityService creates and maintains consulting windows.
type AvailabilityService struct {
	repo       Repository
	clock      timex.Clock
	weeksAhead int
	log        *zap.Logger
}

func NewAvailabilityService(repo Repository, clock timex.Clock, weeksAhead int, log *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		repo:       repo,
		clock:      clock,
		weeksAhead: weeksAhead,
		log:        log,
	}
}

type CreateAvailabilityInput struct {
	Date            *time.Time
	Weekdays        []string
	Session         Session
	ConsultingStart string // HH:MM
	ConsultingEnd   string // HH:MM
	BookingStartAt  time.Time
	BookingEndAt    time.Time
}

// CreatedAvailability pairs the stored row with the human readable
// renderings returned to the doctor.
type CreatedAvailability struct {
	Availability     Availability
	DateText         string
	BookingStartText string
	BookingEndText   string
}

// Create resolves the target dates (one concrete date, or the weekday
// recurrence expanded over the configured horizon) and creates one
// availability per date. Dates that already hold an identical non-deleted
// window are skipped; only when every date is taken does the call fail.
func (s *AvailabilityService) Create(ctx context.Context, doctorID uuid.UUID, in CreateAvailabilityInput) ([]CreatedAvailability, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	if in.Session != SessionMorning && in.Session != SessionEvening {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSession, in.Session)
	}

	startMin, err := timex.ParseMinutes(in.ConsultingStart)
	if err != nil {
		return nil, err
	}
	endMin, err := timex.ParseMinutes(in.ConsultingEnd)
	if err != nil {
		return nil, err
	}
	if startMin >= endMin {
		return nil, ErrConsultingWindowOrder
	}

	now := s.clock.Now()

	dates, err := s.resolveDates(in, now)
	if err != nil {
		return nil, err
	}

	if !in.BookingStartAt.Before(in.BookingEndAt) {
		return nil, ErrBookingWindowOrder
	}
	if in.BookingStartAt.Before(now) || in.BookingEndAt.Before(now) {
		return nil, ErrBookingWindowInPast
	}
	for _, date := range dates {
		consultingStartAt := timex.CombineMinutes(date, startMin)
		if in.BookingEndAt.After(consultingStartAt) {
			return nil, fmt.Errorf("%w: consultation starts %s",
				ErrBookingAfterConsulting, consultingStartAt.Format("Mon Jan 02 2006 15:04"))
		}
	}

	// Weekdays are persisted only for recurring creations.
	var weekdays []string
	if in.Date == nil {
		weekdays = in.Weekdays
	}

	var created []CreatedAvailability
	skipped := 0
	for _, date := range dates {
		exists, err := s.repo.AvailabilityExists(ctx, doctorID, date, in.Session, startMin, endMin)
		if err != nil {
			return nil, fmt.Errorf("check availability uniqueness: %w", err)
		}
		if exists {
			skipped++
			continue
		}

		a := Availability{
			ID:              uuid.New(),
			DoctorID:        doctorID,
			Date:            date,
			Weekdays:        weekdays,
			Session:         in.Session,
			ConsultingStart: startMin,
			ConsultingEnd:   endMin,
			BookingStartAt:  in.BookingStartAt,
			BookingEndAt:    in.BookingEndAt,
		}
		if err := s.repo.CreateAvailability(ctx, &a); err != nil {
			return nil, fmt.Errorf("create availability: %w", err)
		}

		created = append(created, CreatedAvailability{
			Availability:     a,
			DateText:         date.Format("Mon Jan 02 2006"),
			BookingStartText: in.BookingStartAt.Format("Mon Jan 02 2006 15:04"),
			BookingEndText:   in.BookingEndAt.Format("Mon Jan 02 2006 15:04"),
		})
	}

	if len(created) == 0 {
		return nil, fmt.Errorf("%w (session: %s)", ErrAvailabilityExists, in.Session)
	}
	if skipped > 0 {
		s.log.Info("availability dates skipped as duplicates",
			zap.String("doctor_id", doctorID.String()),
			zap.Int("created", len(created)),
			zap.Int("skipped", skipped))
	}

	return created, nil
}

func (s *AvailabilityService) resolveDates(in CreateAvailabilityInput, now time.Time) ([]time.Time, error) {
	if in.Date != nil {
		date := timex.DateOnly(*in.Date)
		if date.Before(timex.DateOnly(now)) {
			return nil, ErrDateInPast
		}
		return []time.Time{date}, nil
	}

	if len(in.Weekdays) == 0 {
		return nil, ErrDateOrWeekdaysRequired
	}
	weekdays := make([]time.Weekday, 0, len(in.Weekdays))
	for _, name := range in.Weekdays {
		wd, err := timex.ParseWeekday(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDateOrWeekdaysRequired, err)
		}
		weekdays = append(weekdays, wd)
	}
	return timex.FutureDatesForWeekdays(weekdays, s.weeksAhead, now), nil
}

type UpdateAvailabilityInput struct {
	Date            *time.Time
	Session         *Session
	ConsultingStart *string
	ConsultingEnd   *string
	BookingStartAt  *time.Time
	BookingEndAt    *time.Time
}

// Update applies partial changes to an availability that has no scheduled
// appointments under it. The live-appointment veto runs inside the
// repository transaction.
func (s *AvailabilityService) Update(ctx context.Context, doctorID, availabilityID uuid.UUID, in UpdateAvailabilityInput) (*Availability, error) {
	a, err := s.ownedAvailability(ctx, doctorID, availabilityID)
	if err != nil {
		return nil, err
	}

	if in.Date != nil {
		a.Date = timex.DateOnly(*in.Date)
	}
	if in.Session != nil {
		if *in.Session != SessionMorning && *in.Session != SessionEvening {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSession, *in.Session)
		}
		a.Session = *in.Session
	}
	if in.ConsultingStart != nil {
		min, err := timex.ParseMinutes(*in.ConsultingStart)
		if err != nil {
			return nil, err
		}
		a.ConsultingStart = min
	}
	if in.ConsultingEnd != nil {
		min, err := timex.ParseMinutes(*in.ConsultingEnd)
		if err != nil {
			return nil, err
		}
		a.ConsultingEnd = min
	}
	if in.BookingStartAt != nil {
		a.BookingStartAt = *in.BookingStartAt
	}
	if in.BookingEndAt != nil {
		a.BookingEndAt = *in.BookingEndAt
	}

	if a.ConsultingStart >= a.ConsultingEnd {
		return nil, ErrConsultingWindowOrder
	}
	if !a.BookingStartAt.Before(a.BookingEndAt) {
		return nil, ErrBookingWindowOrder
	}
	if a.BookingEndAt.After(timex.CombineMinutes(a.Date, a.ConsultingStart)) {
		return nil, ErrBookingAfterConsulting
	}

	if err := s.repo.UpdateAvailabilityGuarded(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SoftDelete removes an availability with no scheduled appointments and
// cascades the soft delete to its time slots.
func (s *AvailabilityService) SoftDelete(ctx context.Context, doctorID, availabilityID uuid.UUID) error {
	if _, err := s.ownedAvailability(ctx, doctorID, availabilityID); err != nil {
		return err
	}
	return s.repo.SoftDeleteAvailabilityGuarded(ctx, availabilityID)
}

// UpdateScheduleType switches a doctor between STREAM and WAVE. Existing
// slots keep their capacity; the mode only shapes new slot creation.
func (s *AvailabilityService) UpdateScheduleType(ctx context.Context, doctorID uuid.UUID, st ScheduleType) error {
	if st != ScheduleStream && st != ScheduleWave {
		return fmt.Errorf("%w: %q", ErrInvalidScheduleType, st)
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return err
	}
	return s.repo.UpdateDoctorScheduleType(ctx, doctorID, st)
}

// ownedAvailability loads a non-deleted availability and hides rows owned
// by other doctors behind not-found.
func (s *AvailabilityService) ownedAvailability(ctx context.Context, doctorID, availabilityID uuid.UUID) (*Availability, error) {
	a, err := s.repo.GetAvailabilityByID(ctx, availabilityID)
	if err != nil {
		return nil, err
	}
	if a.IsDeleted || a.DoctorID != doctorID {
		return nil, ErrAvailabilityNotFound
	}
	return a, nil
}
