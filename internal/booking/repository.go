package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/consult-booking/internal/scheduling"
)

type ReserveSeatParams struct {
	SlotID      uuid.UUID
	DoctorID    uuid.UUID
	PatientID   uuid.UUID
	ScheduledOn time.Time
	Reason      *string
	Notes       *string
}

// SlotShift moves one slot's boundaries; DeltaMinutes also applies to the
// stored reporting times of the slot's scheduled appointments.
type SlotShift struct {
	SlotID       uuid.UUID
	NewStart     int
	NewEnd       int
	DeltaMinutes int
}

// Repository contains all DB interactions needed by the booking engine.
// ReserveSeat and CancelAndRelease are the two linearizable sections: each
// runs as one transaction holding the slot row lock, so the capacity
// check, the write and the status flip cannot interleave with a
// concurrent booking for the same slot.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetSlotWithAvailability(ctx context.Context, slotID uuid.UUID) (*scheduling.TimeSlot, *scheduling.Availability, error)

	HasScheduledInSession(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, session scheduling.Session) (bool, error)

	// ReserveSeat re-reads the live count under lock, inserts the
	// appointment with its computed reporting time, and flips the slot to
	// BOOKED when the last seat goes.
	ReserveSeat(ctx context.Context, p ReserveSeatParams) (*Appointment, error)

	GetAppointmentContext(ctx context.Context, id uuid.UUID) (*AppointmentContext, error)
	// CancelAndRelease flips SCHEDULED to CANCELLED and reverts the slot to
	// AVAILABLE if the cancelled seat was the one keeping it BOOKED.
	CancelAndRelease(ctx context.Context, appointmentID uuid.UUID) error

	ListScheduledForDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]AppointmentContext, error)
	ListSlotsByAvailability(ctx context.Context, availabilityID uuid.UUID) ([]scheduling.TimeSlot, error)
	// ShiftSlots applies the whole batch in one transaction.
	ShiftSlots(ctx context.Context, shifts []SlotShift) error

	ListViewsByPatient(ctx context.Context, patientID uuid.UUID, status *Status) ([]View, error)
	ListViewsByDoctor(ctx context.Context, doctorID uuid.UUID, status *Status) ([]View, error)
}
