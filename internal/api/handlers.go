package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicore/consult-booking/internal/booking"
	"github.com/clinicore/consult-booking/internal/scheduling"
	"github.com/clinicore/consult-booking/internal/timex"
)

const dateLayout = "2006-01-02"

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

// Availability handlers

func createAvailabilityHandler(svc *scheduling.AvailabilityService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req CreateAvailabilityRequest
		if !decodeBody(w, r, &req) {
			return
		}

		in := scheduling.CreateAvailabilityInput{
			Weekdays:        req.Weekdays,
			Session:         scheduling.Session(req.Session),
			ConsultingStart: req.ConsultingStart,
			ConsultingEnd:   req.ConsultingEnd,
			BookingStartAt:  req.BookingStartAt,
			BookingEndAt:    req.BookingEndAt,
		}
		if req.Date != "" {
			date, err := time.Parse(dateLayout, req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			in.Date = &date
		}

		created, err := svc.Create(r.Context(), doctorID, in)
		if err != nil {
			handleDomainError(w, log, err)
			return
		}

		resp := make([]AvailabilityResponse, 0, len(created))
		for _, c := range created {
			resp = append(resp, availabilityResponse(c))
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func availabilityResponse(c scheduling.CreatedAvailability) AvailabilityResponse {
	a := c.Availability
	return AvailabilityResponse{
		ID:              a.ID,
		Date:            c.DateText,
		Session:         string(a.Session),
		ConsultingStart: timex.FormatMinutes(a.ConsultingStart),
		ConsultingEnd:   timex.FormatMinutes(a.ConsultingEnd),
		BookingStartAt:  c.BookingStartText,
		BookingEndAt:    c.BookingEndText,
		Weekdays:        a.Weekdays,
	}
}

func updateAvailabilityHandler(svc *scheduling.AvailabilityService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		availabilityID, ok := parseUUIDParam(w, r, "availabilityID")
		if !ok {
			return
		}
		var req UpdateAvailabilityRequest
		if !decodeBody(w, r, &req) {
			return
		}

		in := scheduling.UpdateAvailabilityInput{
			ConsultingStart: req.ConsultingStart,
			ConsultingEnd:   req.ConsultingEnd,
			BookingStartAt:  req.BookingStartAt,
			BookingEndAt:    req.BookingEndAt,
		}
		if req.Session != nil {
			session := scheduling.Session(*req.Session)
			in.Session = &session
		}
		if req.Date != nil {
			date, err := time.Parse(dateLayout, *req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			in.Date = &date
		}

		a, err := svc.Update(r.Context(), doctorID, availabilityID, in)
		if err != nil {
			handleDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, AvailabilityResponse{
			ID:              a.ID,
			Date:            a.Date.Format("Mon Jan 02 2006"),
			Session:         string(a.Session),
			ConsultingStart: timex.FormatMinutes(a.ConsultingStart),
			ConsultingEnd:   timex.FormatMinutes(a.ConsultingEnd),
			BookingStartAt:  a.BookingStartAt.Format("Mon Jan 02 2006 15:04"),
			BookingEndAt:    a.BookingEndAt.Format("Mon Jan 02 2006 15:04"),
			Weekdays:        a.Weekdays,
		})
	}
}

func deleteAvailabilityHandler(svc *scheduling.AvailabilityService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		availabilityID, ok := parseUUIDParam(w, r, "availabilityID")
		if !ok {
			return
		}
		if err := svc.SoftDelete(r.Context(), doctorID, availabilityID); err != nil {
			handleDomainError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func updateScheduleTypeHandler(svc *scheduling.AvailabilityService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req UpdateScheduleTypeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.UpdateScheduleType(r.Context(), doctorID, scheduling.ScheduleType(req.ScheduleType)); err != nil {
			handleDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"schedule_type": req.ScheduleType})
	}
}

// Time slot handlers

func createTimeSlotHandler(svc *scheduling.SlotService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req CreateTimeSlotRequest
		if !decodeBody(w, r, &req) {
			return
		}
		availabilityID, err := uuid.Parse(req.AvailabilityID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_availability_id", "availability_id must be a valid UUID")
			return
		}

		slot, err := svc.Create(r.Context(), doctorID, scheduling.CreateTimeSlotInput{
			AvailabilityID: availabilityID,
			StartTime:      req.StartTime,
			EndTime:        req.EndTime,
			MaxPatients:    req.MaxPatients,
		})
		if err != nil {
			handleDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, timeSlotResponse(*slot, nil, ""))
	}
}

func timeSlotResponse(s scheduling.TimeSlot, date *time.Time, session string) TimeSlotResponse {
	resp := TimeSlotResponse{
		ID:             s.ID,
		AvailabilityID: s.AvailabilityID,
		StartTime:      timex.FormatMinutes(s.StartTime),
		EndTime:        timex.FormatMinutes(s.EndTime),
		MaxPatients:    s.MaxPatients,
		Status:         string(s.Status),
		Session:        session,
	}
	if date != nil {
		resp.Date = date.Format(dateLayout)
	}
	return resp
}

func updateTimeSlotHandler(svc *scheduling.SlotService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		timeslotID, ok := parseUUIDParam(w, r, "timeslotID")
		if !ok {
			return
		}
		var req UpdateTimeSlotRequest
		if !decodeBody(w, r, &req) {
			return
		}

		slot, err := svc.Update(r.Context(), doctorID, timeslotID, scheduling.UpdateTimeSlotInput{
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			MaxPatients: req.MaxPatients,
		})
		if err != nil {
			handleDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, timeSlotResponse(*slot, nil, ""))
	}
}

func deleteTimeSlotHandler(svc *scheduling.SlotService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		timeslotID, ok := parseUUIDParam(w, r, "timeslotID")
		if !ok {
			return
		}
		if err := svc.SoftDelete(r.Context(), doctorID, timeslotID); err != nil {
			handleDomainError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listAvailableTimeSlotsHandler(svc *scheduling.SlotService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if page < 1 {
			page = 1
		}
		if limit <= 0 {
			limit = 20
		}

		listings, total, err := svc.ListAvailable(r.Context(), doctorID, page, limit)
		if err != nil {
			handleDomainError(w, log, err)
			return
		}

		slots := make([]TimeSlotResponse, 0, len(listings))
		for _, l := range listings {
			slots = append(slots, timeSlotResponse(l.Slot, &l.Date, string(l.Session)))
		}
		writeJSON(w, http.StatusOK, SlotListResponse{
			Total: total,
			Page:  page,
			Limit: limit,
			Slots: slots,
		})
	}
}

// Appointment handlers

func bookAppointmentHandler(svc *booking.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subj, ok := requireSubject(w, r)
		if !ok {
			return
		}
		if subj.Role != booking.RolePatient {
			writeError(w, http.StatusBadRequest, "invalid_role", "only patients can book appointments")
			return
		}
		var req BookAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		timeslotID, err := uuid.Parse(req.TimeSlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_timeslot_id", "timeslot_id must be a valid UUID")
			return
		}

		result, err := svc.Book(r.Context(), subj.ID, booking.BookInput{
			DoctorID:   doctorID,
			TimeSlotID: timeslotID,
			Reason:     req.Reason,
			Notes:      req.Notes,
		})
		if err != nil {
			handleDomainError(w, log, err)
			return
		}

		appt := result.Appointment
		writeJSON(w, http.StatusCreated, AppointmentResponse{
			ID:            appt.ID,
			DoctorID:      appt.DoctorID,
			PatientID:     appt.PatientID,
			TimeSlotID:    appt.TimeSlotID,
			Status:        string(appt.Status),
			ScheduledOn:   appt.ScheduledOn,
			ReportingTime: result.ReportingTimeText,
			Reason:        appt.Reason,
			Notes:         appt.Notes,
		})
	}
}

func cancelAppointmentHandler(svc *booking.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subj, ok := requireSubject(w, r)
		if !ok {
			return
		}
		appointmentID, ok := parseUUIDParam(w, r, "appointmentID")
		if !ok {
			return
		}
		if err := svc.Cancel(r.Context(), appointmentID, subj.ID, subj.Role); err != nil {
			handleDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(booking.StatusCancelled)})
	}
}

func rescheduleHandler(svc *booking.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req RescheduleRequest
		if !decodeBody(w, r, &req) {
			return
		}

		ids := make([]uuid.UUID, 0, len(req.AppointmentIDs))
		for _, raw := range req.AppointmentIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_ids must be valid UUIDs")
				return
			}
			ids = append(ids, id)
		}

		result, err := svc.Reschedule(r.Context(), doctorID, booking.RescheduleInput{
			AppointmentIDs: ids,
			ShiftMinutes:   req.ShiftMinutes,
			Direction:      booking.Direction(req.Direction),
		})
		if err != nil {
			handleDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, RescheduleResponse{
			AppointmentsShifted: result.AppointmentsShifted,
			SlotsShifted:        result.SlotsShifted,
		})
	}
}

func listAppointmentsHandler(svc *booking.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subj, ok := requireSubject(w, r)
		if !ok {
			return
		}
		var status *booking.Status
		if raw := r.URL.Query().Get("status"); raw != "" {
			s := booking.Status(raw)
			if s != booking.StatusScheduled && s != booking.StatusCancelled && s != booking.StatusCompleted {
				writeError(w, http.StatusBadRequest, "invalid_status", "status must be SCHEDULED, CANCELLED or COMPLETED")
				return
			}
			status = &s
		}

		views, err := svc.ListAppointments(r.Context(), subj.ID, subj.Role, status)
		if err != nil {
			handleDomainError(w, log, err)
			return
		}

		appts := make([]AppointmentViewResponse, 0, len(views))
		for _, v := range views {
			appts = append(appts, viewResponse(v))
		}
		writeJSON(w, http.StatusOK, AppointmentListResponse{
			Total:        len(appts),
			Appointments: appts,
		})
	}
}

func viewResponse(v booking.View) AppointmentViewResponse {
	resp := AppointmentViewResponse{
		ID:            v.AppointmentID,
		Status:        string(v.Status),
		ScheduledOn:   v.ScheduledOn,
		ReportingTime: timex.FormatMinutes(v.ReportingTime),
		Reason:        v.Reason,
		Notes:         v.Notes,
		Date:          v.Date.Format(dateLayout),
		Session:       string(v.Session),
		StartTime:     timex.FormatMinutes(v.SlotStart),
		EndTime:       timex.FormatMinutes(v.SlotEnd),
	}
	if v.Doctor != nil {
		resp.Doctor = &PartyResponse{ID: v.Doctor.ID, Name: v.Doctor.Name, Specialty: v.Doctor.Specialty}
	}
	if v.Patient != nil {
		resp.Patient = &PartyResponse{ID: v.Patient.ID, Name: v.Patient.Name, Specialty: v.Patient.Specialty}
	}
	return resp
}
