package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicore/consult-booking/internal/timex"
)

// SlotService carves bookable time slots out of availabilities, keeping
// siblings overlap-free and capacities aligned with the doctor's
// scheduling mode.
type SlotService struct {
	repo Repository
	log  *zap.Logger
}

func NewSlotService(repo Repository, log *zap.Logger) *SlotService {
	return &SlotService{repo: repo, log: log}
}

type CreateTimeSlotInput struct {
	AvailabilityID uuid.UUID
	StartTime      string // HH:MM
	EndTime        string // HH:MM
	MaxPatients    *int   // required for WAVE doctors, ignored for STREAM
}

func (s *SlotService) Create(ctx context.Context, doctorID uuid.UUID, in CreateTimeSlotInput) (*TimeSlot, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	maxPatients := 1
	if doctor.ScheduleType == ScheduleWave {
		if in.MaxPatients == nil || *in.MaxPatients < 1 {
			return nil, ErrMaxPatientsRequired
		}
		maxPatients = *in.MaxPatients
	}

	a, err := s.repo.GetAvailabilityByID(ctx, in.AvailabilityID)
	if err != nil {
		return nil, err
	}
	if a.IsDeleted || a.DoctorID != doctorID {
		return nil, ErrAvailabilityNotFound
	}

	startMin, endMin, err := s.validateRange(in.StartTime, in.EndTime, a)
	if err != nil {
		return nil, err
	}

	if err := s.checkOverlap(ctx, a.ID, startMin, endMin, uuid.Nil); err != nil {
		return nil, err
	}

	slot := TimeSlot{
		ID:             uuid.New(),
		AvailabilityID: a.ID,
		DoctorID:       doctorID,
		StartTime:      startMin,
		EndTime:        endMin,
		MaxPatients:    maxPatients,
		Status:         SlotAvailable,
	}
	if err := s.repo.CreateTimeSlot(ctx, &slot); err != nil {
		return nil, fmt.Errorf("create time slot: %w", err)
	}

	s.log.Info("time slot created",
		zap.String("timeslot_id", slot.ID.String()),
		zap.String("availability_id", a.ID.String()),
		zap.String("range", timex.FormatMinutes(startMin)+"-"+timex.FormatMinutes(endMin)))

	return &slot, nil
}

type UpdateTimeSlotInput struct {
	StartTime   *string
	EndTime     *string
	MaxPatients *int
}

// Update applies partial changes to a slot whose parent availability has no
// scheduled appointments anywhere under it; the shifted range is
// re-validated against the consulting window and the other slots.
func (s *SlotService) Update(ctx context.Context, doctorID, timeslotID uuid.UUID, in UpdateTimeSlotInput) (*TimeSlot, error) {
	slot, a, err := s.ownedSlot(ctx, doctorID, timeslotID)
	if err != nil {
		return nil, err
	}

	if in.StartTime != nil {
		min, err := timex.ParseMinutes(*in.StartTime)
		if err != nil {
			return nil, err
		}
		slot.StartTime = min
	}
	if in.EndTime != nil {
		min, err := timex.ParseMinutes(*in.EndTime)
		if err != nil {
			return nil, err
		}
		slot.EndTime = min
	}
	if in.MaxPatients != nil {
		if *in.MaxPatients < 1 {
			return nil, ErrMaxPatientsRequired
		}
		slot.MaxPatients = *in.MaxPatients
	}

	if slot.StartTime >= slot.EndTime {
		return nil, ErrInvalidSlotRange
	}
	if slot.StartTime < a.ConsultingStart || slot.EndTime > a.ConsultingEnd {
		return nil, ErrSlotOutsideWindow
	}
	if err := s.checkOverlap(ctx, a.ID, slot.StartTime, slot.EndTime, slot.ID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTimeSlotGuarded(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *SlotService) SoftDelete(ctx context.Context, doctorID, timeslotID uuid.UUID) error {
	if _, _, err := s.ownedSlot(ctx, doctorID, timeslotID); err != nil {
		return err
	}
	return s.repo.SoftDeleteTimeSlotGuarded(ctx, timeslotID)
}

// ListAvailable pages through a doctor's AVAILABLE slots for patients
// browsing bookable times.
func (s *SlotService) ListAvailable(ctx context.Context, doctorID uuid.UUID, page, limit int) ([]SlotListing, int, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.ListAvailableSlots(ctx, doctorID, limit, (page-1)*limit)
}

func (s *SlotService) validateRange(start, end string, a *Availability) (int, int, error) {
	startMin, err := timex.ParseMinutes(start)
	if err != nil {
		return 0, 0, err
	}
	endMin, err := timex.ParseMinutes(end)
	if err != nil {
		return 0, 0, err
	}
	if startMin >= endMin {
		return 0, 0, ErrInvalidSlotRange
	}
	if startMin < a.ConsultingStart || endMin > a.ConsultingEnd {
		return 0, 0, ErrSlotOutsideWindow
	}
	return startMin, endMin, nil
}

// checkOverlap compares [startMin,endMin) against every other non-deleted
// slot of the availability, naming the first conflict found.
func (s *SlotService) checkOverlap(ctx context.Context, availabilityID uuid.UUID, startMin, endMin int, exclude uuid.UUID) error {
	siblings, err := s.repo.ListSlotsByAvailability(ctx, availabilityID)
	if err != nil {
		return fmt.Errorf("list sibling slots: %w", err)
	}
	for _, sib := range siblings {
		if sib.ID == exclude {
			continue
		}
		if timex.RangesOverlap(startMin, endMin, sib.StartTime, sib.EndTime) {
			return fmt.Errorf("%w: %s-%s conflicts with %s-%s",
				ErrSlotOverlap,
				timex.FormatMinutes(startMin), timex.FormatMinutes(endMin),
				timex.FormatMinutes(sib.StartTime), timex.FormatMinutes(sib.EndTime))
		}
	}
	return nil
}

func (s *SlotService) ownedSlot(ctx context.Context, doctorID, timeslotID uuid.UUID) (*TimeSlot, *Availability, error) {
	slot, err := s.repo.GetTimeSlotByID(ctx, timeslotID)
	if err != nil {
		return nil, nil, err
	}
	if slot.IsDeleted || slot.DoctorID != doctorID {
		return nil, nil, ErrSlotNotFound
	}
	a, err := s.repo.GetAvailabilityByID(ctx, slot.AvailabilityID)
	if err != nil {
		return nil, nil, err
	}
	return slot, a, nil
}
