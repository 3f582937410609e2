package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type Session string

const (
	SessionMorning Session = "MORNING"
	SessionEvening Session = "EVENING"
)

// ScheduleType controls slot capacity: STREAM doctors see one patient per
// slot, WAVE doctors batch several with staggered reporting times.
type ScheduleType string

const (
	ScheduleStream ScheduleType = "STREAM"
	ScheduleWave   ScheduleType = "WAVE"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotBooked    SlotStatus = "BOOKED"
)

type Doctor struct {
	ID           uuid.UUID
	Name         string
	Specialty    *string
	ScheduleType ScheduleType
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Availability is a doctor's consulting window for one concrete date and
// session. Weekday-recurring input is expanded at creation time, so every
// stored row carries a concrete date; Weekdays is retained only to show
// which recurrence produced the row.
type Availability struct {
	ID              uuid.UUID
	DoctorID        uuid.UUID
	Date            time.Time
	Weekdays        []string
	Session         Session
	ConsultingStart int // minutes since midnight
	ConsultingEnd   int
	BookingStartAt  time.Time
	BookingEndAt    time.Time
	IsDeleted       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type TimeSlot struct {
	ID             uuid.UUID
	AvailabilityID uuid.UUID
	DoctorID       uuid.UUID
	StartTime      int // minutes since midnight
	EndTime        int
	MaxPatients    int
	Status         SlotStatus
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SlotListing is a bookable slot joined with its availability's date and
// session for patient-facing listings.
type SlotListing struct {
	Slot    TimeSlot
	Date    time.Time
	Session Session
}
