package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/consult-booking/internal/scheduling"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID            uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	TimeSlotID    uuid.UUID
	Status        Status
	ScheduledOn   time.Time
	ReportingTime int // minutes since midnight
	Reason        *string
	Notes         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AppointmentContext is an appointment joined with the slot and
// availability fields the cancellation deadline and reschedule math need.
type AppointmentContext struct {
	Appointment
	AvailabilityID  uuid.UUID
	Date            time.Time
	Session         scheduling.Session
	SlotStart       int
	SlotEnd         int
	ConsultingStart int
	ConsultingEnd   int
}

// Party identifies the counterpart embedded in a read-side projection:
// the doctor for patient-facing rows, the patient for doctor-facing rows.
type Party struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
}

type View struct {
	AppointmentID uuid.UUID
	Status        Status
	ScheduledOn   time.Time
	ReportingTime int
	Reason        *string
	Notes         *string
	Date          time.Time
	Session       scheduling.Session
	SlotStart     int
	SlotEnd       int
	Doctor        *Party
	Patient       *Party
}
