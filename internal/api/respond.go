package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/clinicore/consult-booking/internal/booking"
	redisclient "github.com/clinicore/consult-booking/internal/redis"
	"github.com/clinicore/consult-booking/internal/scheduling"
	"github.com/clinicore/consult-booking/internal/timex"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

type errorMapping struct {
	sentinel error
	status   int
	code     string
}

// Business violations surface with their specific kind and message;
// anything unmapped collapses to a generic 500 so internals never leak.
var errorMappings = []errorMapping{
	// not found
	{scheduling.ErrDoctorNotFound, http.StatusNotFound, "doctor_not_found"},
	{scheduling.ErrAvailabilityNotFound, http.StatusNotFound, "availability_not_found"},
	{scheduling.ErrSlotNotFound, http.StatusNotFound, "timeslot_not_found"},
	{booking.ErrPatientNotFound, http.StatusNotFound, "patient_not_found"},
	{booking.ErrSlotNotFound, http.StatusNotFound, "timeslot_not_found"},
	{booking.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
	{booking.ErrNoAppointments, http.StatusNotFound, "no_appointments"},

	// conflict
	{scheduling.ErrAvailabilityExists, http.StatusConflict, "availability_exists"},
	{scheduling.ErrSlotOverlap, http.StatusConflict, "timeslot_overlap"},
	{scheduling.ErrLiveAppointments, http.StatusConflict, "live_appointments"},
	{booking.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
	{booking.ErrBookingNotOpen, http.StatusConflict, "booking_window_not_open"},
	{booking.ErrBookingClosed, http.StatusConflict, "booking_window_closed"},
	{booking.ErrDuplicateSessionBooking, http.StatusConflict, "duplicate_session_booking"},
	{booking.ErrSlotFull, http.StatusConflict, "slot_full"},
	{booking.ErrNotParticipant, http.StatusConflict, "not_participant"},
	{booking.ErrAlreadyFinalized, http.StatusConflict, "appointment_finalized"},
	{booking.ErrCancelDeadlinePassed, http.StatusConflict, "cancel_deadline_passed"},
	{booking.ErrShiftOutsideWindow, http.StatusConflict, "shift_outside_window"},
	{booking.ErrShiftOverlap, http.StatusConflict, "shift_overlap"},
	{redisclient.ErrLockNotAcquired, http.StatusConflict, "slot_being_booked"},

	// bad request
	{timex.ErrInvalidTimeFormat, http.StatusBadRequest, "invalid_time_format"},
	{scheduling.ErrDateOrWeekdaysRequired, http.StatusBadRequest, "date_or_weekdays_required"},
	{scheduling.ErrDateInPast, http.StatusBadRequest, "date_in_past"},
	{scheduling.ErrConsultingWindowOrder, http.StatusBadRequest, "invalid_consulting_window"},
	{scheduling.ErrBookingWindowOrder, http.StatusBadRequest, "invalid_booking_window"},
	{scheduling.ErrBookingWindowInPast, http.StatusBadRequest, "booking_window_in_past"},
	{scheduling.ErrBookingAfterConsulting, http.StatusBadRequest, "booking_after_consulting"},
	{scheduling.ErrMaxPatientsRequired, http.StatusBadRequest, "max_patients_required"},
	{scheduling.ErrInvalidSlotRange, http.StatusBadRequest, "invalid_slot_range"},
	{scheduling.ErrSlotOutsideWindow, http.StatusBadRequest, "slot_outside_window"},
	{scheduling.ErrInvalidScheduleType, http.StatusBadRequest, "invalid_schedule_type"},
	{scheduling.ErrInvalidSession, http.StatusBadRequest, "invalid_session"},
	{booking.ErrDoctorMismatch, http.StatusBadRequest, "doctor_mismatch"},
	{booking.ErrInvalidShift, http.StatusBadRequest, "invalid_shift"},
	{booking.ErrInvalidDirection, http.StatusBadRequest, "invalid_direction"},
	{booking.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
}

func handleDomainError(w http.ResponseWriter, log *zap.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	log.Error("unhandled domain error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "")
}
