package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/clinicore/consult-booking/internal/redis"
	"github.com/clinicore/consult-booking/internal/scheduling"
	"github.com/clinicore/consult-booking/internal/timex"
)

// Service is the booking engine: it decides booking eligibility, reserves
// capacity atomically, computes staggered reporting times and drives the
// appointment lifecycle.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	clock  timex.Clock
	log    *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, clock timex.Clock, log *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		clock:  clock,
		log:    log,
	}
}

type BookInput struct {
	DoctorID   uuid.UUID
	TimeSlotID uuid.UUID
	Reason     *string
	Notes      *string
}

type BookingResult struct {
	Appointment       Appointment
	ReportingTimeText string
}

// Book runs the eligibility checks against committed state, then reserves
// the seat inside the per-slot lock. The reservation transaction re-reads
// the live count under a row lock, so two concurrent bookers for the last
// seat cannot both succeed.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, in BookInput) (*BookingResult, error) {
	slot, availability, err := s.repo.GetSlotWithAvailability(ctx, in.TimeSlotID)
	if err != nil {
		return nil, err
	}
	if slot.Status != scheduling.SlotAvailable {
		return nil, ErrSlotUnavailable
	}

	now := s.clock.Now()
	if now.Before(availability.BookingStartAt) {
		return nil, ErrBookingNotOpen
	}
	if now.After(availability.BookingEndAt) {
		return nil, ErrBookingClosed
	}

	// Defends against stale client state: the slot id must match the
	// doctor the patient believes they are booking.
	if slot.DoctorID != in.DoctorID {
		return nil, ErrDoctorMismatch
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	dup, err := s.repo.HasScheduledInSession(ctx, patientID, slot.DoctorID, availability.Date, availability.Session)
	if err != nil {
		return nil, fmt.Errorf("check session duplicate: %w", err)
	}
	if dup {
		return nil, ErrDuplicateSessionBooking
	}

	var created *Appointment
	err = s.locker.WithSlotLock(ctx, slot.ID, func(lockCtx context.Context) error {
		appt, err := s.repo.ReserveSeat(lockCtx, ReserveSeatParams{
			SlotID:      slot.ID,
			DoctorID:    slot.DoctorID,
			PatientID:   patientID,
			ScheduledOn: now,
			Reason:      in.Reason,
			Notes:       in.Notes,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("timeslot_id", slot.ID.String()),
		zap.String("reporting_time", timex.FormatMinutes(created.ReportingTime)))

	return &BookingResult{
		Appointment:       *created,
		ReportingTimeText: timex.FormatMinutes(created.ReportingTime),
	}, nil
}

// Cancel transitions SCHEDULED to CANCELLED for the appointment's patient
// or doctor, strictly before the consultation starts, and releases the
// seat so a BOOKED slot becomes bookable again.
func (s *Service) Cancel(ctx context.Context, appointmentID, callerID uuid.UUID, role Role) error {
	appt, err := s.repo.GetAppointmentContext(ctx, appointmentID)
	if err != nil {
		return err
	}

	switch role {
	case RolePatient:
		if appt.PatientID != callerID {
			return ErrNotParticipant
		}
	case RoleDoctor:
		if appt.DoctorID != callerID {
			return ErrNotParticipant
		}
	default:
		return ErrNotParticipant
	}

	if appt.Status == StatusCancelled || appt.Status == StatusCompleted {
		return ErrAlreadyFinalized
	}

	consultationStart := timex.CombineMinutes(appt.Date, appt.SlotStart)
	if !s.clock.Now().Before(consultationStart) {
		return ErrCancelDeadlinePassed
	}

	if err := s.repo.CancelAndRelease(ctx, appointmentID); err != nil {
		return err
	}

	s.log.Info("appointment cancelled",
		zap.String("appointment_id", appointmentID.String()),
		zap.String("cancelled_by", string(role)))
	return nil
}

type Direction string

const (
	DirectionEarlier Direction = "EARLIER"
	DirectionLater   Direction = "LATER"
)

type RescheduleInput struct {
	AppointmentIDs []uuid.UUID // empty means all of today's scheduled appointments
	ShiftMinutes   int
	Direction      Direction
}

type RescheduleResult struct {
	AppointmentsShifted int
	SlotsShifted        int
}

// Reschedule shifts today's scheduled appointments of a doctor by moving
// their slots. Appointments sharing a slot move together, keeping the
// relative reporting-time stagger. Every shifted slot is re-validated
// against its consulting window and against sibling slots; any violation
// rejects the whole batch.
func (s *Service) Reschedule(ctx context.Context, doctorID uuid.UUID, in RescheduleInput) (*RescheduleResult, error) {
	if in.ShiftMinutes <= 0 {
		return nil, ErrInvalidShift
	}
	var delta int
	switch in.Direction {
	case DirectionEarlier:
		delta = -in.ShiftMinutes
	case DirectionLater:
		delta = in.ShiftMinutes
	default:
		return nil, ErrInvalidDirection
	}

	today := timex.DateOnly(s.clock.Now())
	appts, err := s.repo.ListScheduledForDoctorOnDate(ctx, doctorID, today)
	if err != nil {
		return nil, fmt.Errorf("list today's appointments: %w", err)
	}
	if len(in.AppointmentIDs) > 0 {
		appts = filterByID(appts, in.AppointmentIDs)
	}
	if len(appts) == 0 {
		return nil, ErrNoAppointments
	}

	// The affected slot set is the union of the selected appointments'
	// slots, grouped by availability for window and overlap validation.
	type slotCtx struct {
		start, end int
	}
	shiftedByAvail := make(map[uuid.UUID]map[uuid.UUID]slotCtx)
	windows := make(map[uuid.UUID][2]int)
	for _, a := range appts {
		m, ok := shiftedByAvail[a.AvailabilityID]
		if !ok {
			m = make(map[uuid.UUID]slotCtx)
			shiftedByAvail[a.AvailabilityID] = m
			windows[a.AvailabilityID] = [2]int{a.ConsultingStart, a.ConsultingEnd}
		}
		m[a.TimeSlotID] = slotCtx{start: a.SlotStart + delta, end: a.SlotEnd + delta}
	}

	var shifts []SlotShift
	for availabilityID, shifted := range shiftedByAvail {
		window := windows[availabilityID]
		siblings, err := s.repo.ListSlotsByAvailability(ctx, availabilityID)
		if err != nil {
			return nil, fmt.Errorf("list sibling slots: %w", err)
		}

		// Effective ranges: shifted where selected, stored otherwise.
		ranges := make([]scheduling.TimeSlot, 0, len(siblings))
		for _, sib := range siblings {
			eff := sib
			if sc, ok := shifted[sib.ID]; ok {
				eff.StartTime = sc.start
				eff.EndTime = sc.end
				if eff.StartTime < window[0] || eff.EndTime > window[1] {
					return nil, fmt.Errorf("%w: %s-%s",
						ErrShiftOutsideWindow,
						timex.FormatMinutes(eff.StartTime), timex.FormatMinutes(eff.EndTime))
				}
				shifts = append(shifts, SlotShift{
					SlotID:       sib.ID,
					NewStart:     eff.StartTime,
					NewEnd:       eff.EndTime,
					DeltaMinutes: delta,
				})
			}
			ranges = append(ranges, eff)
		}

		for i := 0; i < len(ranges); i++ {
			for j := i + 1; j < len(ranges); j++ {
				if timex.RangesOverlap(ranges[i].StartTime, ranges[i].EndTime, ranges[j].StartTime, ranges[j].EndTime) {
					return nil, fmt.Errorf("%w: %s-%s conflicts with %s-%s",
						ErrShiftOverlap,
						timex.FormatMinutes(ranges[i].StartTime), timex.FormatMinutes(ranges[i].EndTime),
						timex.FormatMinutes(ranges[j].StartTime), timex.FormatMinutes(ranges[j].EndTime))
				}
			}
		}
	}

	if err := s.repo.ShiftSlots(ctx, shifts); err != nil {
		return nil, fmt.Errorf("shift slots: %w", err)
	}

	s.log.Info("appointments rescheduled",
		zap.String("doctor_id", doctorID.String()),
		zap.Int("appointments", len(appts)),
		zap.Int("slots", len(shifts)),
		zap.Int("delta_minutes", delta))

	return &RescheduleResult{
		AppointmentsShifted: len(appts),
		SlotsShifted:        len(shifts),
	}, nil
}

func filterByID(appts []AppointmentContext, ids []uuid.UUID) []AppointmentContext {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []AppointmentContext
	for _, a := range appts {
		if wanted[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

// IsLockContention reports whether err is the per-slot lock being held by
// another booking attempt.
func IsLockContention(err error) bool {
	return errors.Is(err, redisclient.ErrLockNotAcquired)
}
