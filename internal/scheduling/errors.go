package scheduling

import "errors"

var (
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrAvailabilityNotFound = errors.New("availability not found")
	ErrSlotNotFound         = errors.New("time slot not found")

	ErrDateOrWeekdaysRequired = errors.New("either date or weekdays must be provided")
	ErrDateInPast             = errors.New("consulting date must be in the future")
	ErrConsultingWindowOrder  = errors.New("consulting start must be before consulting end")
	ErrBookingWindowOrder     = errors.New("booking start must be before booking end")
	ErrBookingWindowInPast    = errors.New("booking window cannot be in the past")
	ErrBookingAfterConsulting = errors.New("booking window must close before the consultation begins")
	ErrAvailabilityExists     = errors.New("availability already exists for the requested dates")

	ErrMaxPatientsRequired = errors.New("max_patients is required for wave scheduling")
	ErrInvalidSlotRange    = errors.New("invalid start or end time")
	ErrSlotOutsideWindow   = errors.New("time slot must lie within the consulting window")
	ErrSlotOverlap         = errors.New("time slot overlaps an existing time slot")

	// ErrLiveAppointments vetoes destructive edits: an availability or slot
	// with scheduled appointments anywhere under the availability keeps its
	// shape.
	ErrLiveAppointments = errors.New("availability has scheduled appointments")

	ErrInvalidScheduleType = errors.New("invalid schedule type")
	ErrInvalidSession      = errors.New("invalid session")
)
