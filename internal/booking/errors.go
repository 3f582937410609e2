package booking

import "errors"

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrSlotNotFound        = errors.New("time slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrSlotUnavailable         = errors.New("time slot is no longer available")
	ErrBookingNotOpen          = errors.New("booking window not opened yet")
	ErrBookingClosed           = errors.New("booking window closed")
	ErrDoctorMismatch          = errors.New("time slot does not belong to this doctor")
	ErrDuplicateSessionBooking = errors.New("patient already has an appointment with this doctor in this session")
	ErrSlotFull                = errors.New("time slot is already full")

	ErrNotParticipant       = errors.New("only the appointment's patient or doctor may cancel it")
	ErrAlreadyFinalized     = errors.New("appointment already cancelled or completed")
	ErrCancelDeadlinePassed = errors.New("appointments can only be cancelled before the consultation starts")

	ErrInvalidShift       = errors.New("shift must be a positive number of minutes")
	ErrInvalidDirection   = errors.New("direction must be EARLIER or LATER")
	ErrNoAppointments     = errors.New("no scheduled appointments found for today")
	ErrShiftOutsideWindow = errors.New("shifted slot falls outside the consulting window")
	ErrShiftOverlap       = errors.New("shifted slot overlaps a sibling slot")

	ErrInvalidRole = errors.New("invalid caller role")
)
