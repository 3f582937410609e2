package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the availability and
// slot services. The Guarded mutators run their live-appointment veto in
// the same transaction as the write, so a booking cannot slip between the
// check and the destructive edit.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	UpdateDoctorScheduleType(ctx context.Context, id uuid.UUID, st ScheduleType) error

	CreateAvailability(ctx context.Context, a *Availability) error
	GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*Availability, error)
	// AvailabilityExists probes the uniqueness key among non-deleted rows.
	AvailabilityExists(ctx context.Context, doctorID uuid.UUID, date time.Time, session Session, consultingStart, consultingEnd int) (bool, error)
	UpdateAvailabilityGuarded(ctx context.Context, a *Availability) error
	// SoftDeleteAvailabilityGuarded cascades is_deleted to the slots.
	SoftDeleteAvailabilityGuarded(ctx context.Context, id uuid.UUID) error

	CreateTimeSlot(ctx context.Context, s *TimeSlot) error
	GetTimeSlotByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	// ListSlotsByAvailability returns the non-deleted slots of an availability.
	ListSlotsByAvailability(ctx context.Context, availabilityID uuid.UUID) ([]TimeSlot, error)
	UpdateTimeSlotGuarded(ctx context.Context, s *TimeSlot) error
	SoftDeleteTimeSlotGuarded(ctx context.Context, id uuid.UUID) error

	ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]SlotListing, int, error)
}
