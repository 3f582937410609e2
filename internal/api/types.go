package api

import (
	"time"

	"github.com/google/uuid"
)

type CreateAvailabilityRequest struct {
	Date            string    `json:"date,omitempty"` // YYYY-MM-DD, mutually exclusive with weekdays
	Weekdays        []string  `json:"weekdays,omitempty"`
	Session         string    `json:"session"`
	ConsultingStart string    `json:"consulting_start_time"` // HH:MM
	ConsultingEnd   string    `json:"consulting_end_time"`   // HH:MM
	BookingStartAt  time.Time `json:"booking_start_at"`
	BookingEndAt    time.Time `json:"booking_end_at"`
}

type UpdateAvailabilityRequest struct {
	Date            *string    `json:"date,omitempty"`
	Session         *string    `json:"session,omitempty"`
	ConsultingStart *string    `json:"consulting_start_time,omitempty"`
	ConsultingEnd   *string    `json:"consulting_end_time,omitempty"`
	BookingStartAt  *time.Time `json:"booking_start_at,omitempty"`
	BookingEndAt    *time.Time `json:"booking_end_at,omitempty"`
}

type AvailabilityResponse struct {
	ID              uuid.UUID `json:"availability_id"`
	Date            string    `json:"date"`
	Session         string    `json:"session"`
	ConsultingStart string    `json:"consulting_start_time"`
	ConsultingEnd   string    `json:"consulting_end_time"`
	BookingStartAt  string    `json:"booking_start_at"`
	BookingEndAt    string    `json:"booking_end_at"`
	Weekdays        []string  `json:"weekdays,omitempty"`
}

type CreateTimeSlotRequest struct {
	AvailabilityID string `json:"availability_id"`
	StartTime      string `json:"start_time"` // HH:MM
	EndTime        string `json:"end_time"`   // HH:MM
	MaxPatients    *int   `json:"max_patients,omitempty"`
}

type UpdateTimeSlotRequest struct {
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	MaxPatients *int    `json:"max_patients,omitempty"`
}

type TimeSlotResponse struct {
	ID             uuid.UUID `json:"timeslot_id"`
	AvailabilityID uuid.UUID `json:"availability_id"`
	Date           string    `json:"date,omitempty"`
	Session        string    `json:"session,omitempty"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	MaxPatients    int       `json:"max_patients"`
	Status         string    `json:"status"`
}

type SlotListResponse struct {
	Total int                `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Slots []TimeSlotResponse `json:"slots"`
}

type UpdateScheduleTypeRequest struct {
	ScheduleType string `json:"schedule_type"`
}

type BookAppointmentRequest struct {
	DoctorID   string  `json:"doctor_id"`
	TimeSlotID string  `json:"timeslot_id"`
	Reason     *string `json:"reason,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID            uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	TimeSlotID    uuid.UUID `json:"timeslot_id"`
	Status        string    `json:"status"`
	ScheduledOn   time.Time `json:"scheduled_on"`
	ReportingTime string    `json:"reporting_time"`
	Reason        *string   `json:"reason,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
}

type RescheduleRequest struct {
	AppointmentIDs []string `json:"appointment_ids,omitempty"`
	ShiftMinutes   int      `json:"shift_minutes"`
	Direction      string   `json:"direction"` // EARLIER or LATER
}

type RescheduleResponse struct {
	AppointmentsShifted int `json:"appointments_shifted"`
	SlotsShifted        int `json:"slots_shifted"`
}

type PartyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

type AppointmentViewResponse struct {
	ID            uuid.UUID      `json:"appointment_id"`
	Status        string         `json:"status"`
	ScheduledOn   time.Time      `json:"scheduled_on"`
	ReportingTime string         `json:"reporting_time"`
	Reason        *string        `json:"reason,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
	Date          string         `json:"date"`
	Session       string         `json:"session"`
	StartTime     string         `json:"start_time"`
	EndTime       string         `json:"end_time"`
	Doctor        *PartyResponse `json:"doctor,omitempty"`
	Patient       *PartyResponse `json:"patient,omitempty"`
}

type AppointmentListResponse struct {
	Total        int                       `json:"total"`
	Appointments []AppointmentViewResponse `json:"appointments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
