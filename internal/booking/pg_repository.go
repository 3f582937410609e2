package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/consult-booking/internal/scheduling"
	"github.com/clinicore/consult-booking/internal/timex"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.TimeSlotID,
		&a.Status,
		&a.ScheduledOn,
		&a.ReportingTime,
		&a.Reason,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) GetSlotWithAvailability(ctx context.Context, slotID uuid.UUID) (*scheduling.TimeSlot, *scheduling.Availability, error) {
	var s scheduling.TimeSlot
	var a scheduling.Availability
	err := r.pool.QueryRow(ctx, `
		SELECT ts.id, ts.availability_id, ts.doctor_id, ts.start_time, ts.end_time,
		       ts.max_patients, ts.status, ts.is_deleted, ts.created_at, ts.updated_at,
		       av.id, av.doctor_id, av.date, av.weekdays, av.session,
		       av.consulting_start, av.consulting_end, av.booking_start_at, av.booking_end_at,
		       av.is_deleted, av.created_at, av.updated_at
		FROM time_slots ts
		JOIN availabilities av ON av.id = ts.availability_id
		WHERE ts.id = $1 AND ts.is_deleted = false AND av.is_deleted = false
	`, slotID).Scan(
		&s.ID, &s.AvailabilityID, &s.DoctorID, &s.StartTime, &s.EndTime,
		&s.MaxPatients, &s.Status, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt,
		&a.ID, &a.DoctorID, &a.Date, &a.Weekdays, &a.Session,
		&a.ConsultingStart, &a.ConsultingEnd, &a.BookingStartAt, &a.BookingEndAt,
		&a.IsDeleted, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrSlotNotFound
		}
		return nil, nil, err
	}
	return &s, &a, nil
}

func (r *PgRepository) HasScheduledInSession(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, session scheduling.Session) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments a
			JOIN time_slots ts ON ts.id = a.timeslot_id
			JOIN availabilities av ON av.id = ts.availability_id
			WHERE a.patient_id = $1
			  AND a.doctor_id = $2
			  AND a.status = 'SCHEDULED'
			  AND av.date = $3
			  AND av.session = $4
		)
	`, patientID, doctorID, date, session).Scan(&exists)
	return exists, err
}

// ReserveSeat is the linearization point of booking: the slot row lock
// serializes the count-compare-insert-flip sequence against every other
// booking, cancellation or destructive edit touching this slot.
func (r *PgRepository) ReserveSeat(ctx context.Context, p ReserveSeatParams) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var startMin, endMin, maxPatients int
	var status scheduling.SlotStatus
	err = tx.QueryRow(ctx, `
		SELECT start_time, end_time, max_patients, status
		FROM time_slots
		WHERE id = $1 AND is_deleted = false
		FOR UPDATE
	`, p.SlotID).Scan(&startMin, &endMin, &maxPatients, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if status != scheduling.SlotAvailable {
		return nil, ErrSlotUnavailable
	}

	var count int
	err = tx.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE timeslot_id = $1 AND status = 'SCHEDULED'
	`, p.SlotID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("count live appointments: %w", err)
	}
	if count >= maxPatients {
		return nil, ErrSlotFull
	}

	reporting := timex.ReportingTime(startMin, endMin, maxPatients, count)

	appt := Appointment{
		ID:            uuid.New(),
		DoctorID:      p.DoctorID,
		PatientID:     p.PatientID,
		TimeSlotID:    p.SlotID,
		Status:        StatusScheduled,
		ScheduledOn:   p.ScheduledOn,
		ReportingTime: reporting,
		Reason:        p.Reason,
		Notes:         p.Notes,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, doctor_id, patient_id, timeslot_id, status, scheduled_on, reporting_time, reason, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'SCHEDULED', $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`, appt.ID, appt.DoctorID, appt.PatientID, appt.TimeSlotID, appt.ScheduledOn, appt.ReportingTime, appt.Reason, appt.Notes).
		Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if count+1 == maxPatients {
		if _, err := tx.Exec(ctx, `
			UPDATE time_slots SET status = 'BOOKED', updated_at = now() WHERE id = $1
		`, p.SlotID); err != nil {
			return nil, fmt.Errorf("flip slot to booked: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &appt, nil
}

func (r *PgRepository) GetAppointmentContext(ctx context.Context, id uuid.UUID) (*AppointmentContext, error) {
	var a AppointmentContext
	err := r.pool.QueryRow(ctx, `
		SELECT a.id, a.doctor_id, a.patient_id, a.timeslot_id, a.status, a.scheduled_on,
		       a.reporting_time, a.reason, a.notes, a.created_at, a.updated_at,
		       ts.availability_id, av.date, av.session, ts.start_time, ts.end_time,
		       av.consulting_start, av.consulting_end
		FROM appointments a
		JOIN time_slots ts ON ts.id = a.timeslot_id
		JOIN availabilities av ON av.id = ts.availability_id
		WHERE a.id = $1
	`, id).Scan(
		&a.ID, &a.DoctorID, &a.PatientID, &a.TimeSlotID, &a.Status, &a.ScheduledOn,
		&a.ReportingTime, &a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		&a.AvailabilityID, &a.Date, &a.Session, &a.SlotStart, &a.SlotEnd,
		&a.ConsultingStart, &a.ConsultingEnd,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PgRepository) CancelAndRelease(ctx context.Context, appointmentID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var slotID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT timeslot_id FROM appointments WHERE id = $1 FOR UPDATE
	`, appointmentID).Scan(&slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return err
	}

	// Same lock order as ReserveSeat: slot row first, then the write.
	if _, err := tx.Exec(ctx, `
		SELECT 1 FROM time_slots WHERE id = $1 FOR UPDATE
	`, slotID); err != nil {
		return fmt.Errorf("lock slot: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED',
		    updated_at = now()
		WHERE id = $1 AND status = 'SCHEDULED'
	`, appointmentID)
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFinalized
	}

	// The freed seat makes a full slot bookable again.
	if _, err := tx.Exec(ctx, `
		UPDATE time_slots
		SET status = 'AVAILABLE',
		    updated_at = now()
		WHERE id = $1 AND status = 'BOOKED'
	`, slotID); err != nil {
		return fmt.Errorf("release slot capacity: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListScheduledForDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]AppointmentContext, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.doctor_id, a.patient_id, a.timeslot_id, a.status, a.scheduled_on,
		       a.reporting_time, a.reason, a.notes, a.created_at, a.updated_at,
		       ts.availability_id, av.date, av.session, ts.start_time, ts.end_time,
		       av.consulting_start, av.consulting_end
		FROM appointments a
		JOIN time_slots ts ON ts.id = a.timeslot_id
		JOIN availabilities av ON av.id = ts.availability_id
		WHERE a.doctor_id = $1
		  AND a.status = 'SCHEDULED'
		  AND av.date = $2
		  AND ts.is_deleted = false
		  AND av.is_deleted = false
		ORDER BY ts.start_time, a.scheduled_on
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentContext
	for rows.Next() {
		var a AppointmentContext
		err := rows.Scan(
			&a.ID, &a.DoctorID, &a.PatientID, &a.TimeSlotID, &a.Status, &a.ScheduledOn,
			&a.ReportingTime, &a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
			&a.AvailabilityID, &a.Date, &a.Session, &a.SlotStart, &a.SlotEnd,
			&a.ConsultingStart, &a.ConsultingEnd,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListSlotsByAvailability(ctx context.Context, availabilityID uuid.UUID) ([]scheduling.TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, availability_id, doctor_id, start_time, end_time, max_patients, status, is_deleted, created_at, updated_at
		FROM time_slots
		WHERE availability_id = $1 AND is_deleted = false
		ORDER BY start_time
	`, availabilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []scheduling.TimeSlot
	for rows.Next() {
		var s scheduling.TimeSlot
		err := rows.Scan(
			&s.ID, &s.AvailabilityID, &s.DoctorID, &s.StartTime, &s.EndTime,
			&s.MaxPatients, &s.Status, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *PgRepository) ShiftSlots(ctx context.Context, shifts []SlotShift) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sh := range shifts {
		tag, err := tx.Exec(ctx, `
			UPDATE time_slots
			SET start_time = $2,
			    end_time = $3,
			    updated_at = now()
			WHERE id = $1 AND is_deleted = false
		`, sh.SlotID, sh.NewStart, sh.NewEnd)
		if err != nil {
			return fmt.Errorf("shift slot %s: %w", sh.SlotID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrSlotNotFound
		}

		// Reporting times move with the slot so the stagger is preserved.
		if _, err := tx.Exec(ctx, `
			UPDATE appointments
			SET reporting_time = reporting_time + $2,
			    updated_at = now()
			WHERE timeslot_id = $1 AND status = 'SCHEDULED'
		`, sh.SlotID, sh.DeltaMinutes); err != nil {
			return fmt.Errorf("shift reporting times for slot %s: %w", sh.SlotID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListViewsByPatient(ctx context.Context, patientID uuid.UUID, status *Status) ([]View, error) {
	query := `
		SELECT a.id, a.status, a.scheduled_on, a.reporting_time, a.reason, a.notes,
		       av.date, av.session, ts.start_time, ts.end_time,
		       d.id, d.name, d.specialty
		FROM appointments a
		JOIN time_slots ts ON ts.id = a.timeslot_id
		JOIN availabilities av ON av.id = ts.availability_id
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.patient_id = $1`
	return r.listViews(ctx, query, patientID, status, true)
}

func (r *PgRepository) ListViewsByDoctor(ctx context.Context, doctorID uuid.UUID, status *Status) ([]View, error) {
	query := `
		SELECT a.id, a.status, a.scheduled_on, a.reporting_time, a.reason, a.notes,
		       av.date, av.session, ts.start_time, ts.end_time,
		       p.id, p.name, NULL::text
		FROM appointments a
		JOIN time_slots ts ON ts.id = a.timeslot_id
		JOIN availabilities av ON av.id = ts.availability_id
		JOIN patients p ON p.id = a.patient_id
		WHERE a.doctor_id = $1`
	return r.listViews(ctx, query, doctorID, status, false)
}

func (r *PgRepository) listViews(ctx context.Context, base string, id uuid.UUID, status *Status, patientFacing bool) ([]View, error) {
	args := []any{id}
	query := base
	order := " ORDER BY a.scheduled_on DESC"
	if status != nil {
		query += " AND a.status = $2"
		args = append(args, *status)
		if *status == StatusScheduled {
			order = " ORDER BY a.scheduled_on ASC"
		}
	}
	query += order

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []View
	for rows.Next() {
		var v View
		var party Party
		err := rows.Scan(
			&v.AppointmentID, &v.Status, &v.ScheduledOn, &v.ReportingTime, &v.Reason, &v.Notes,
			&v.Date, &v.Session, &v.SlotStart, &v.SlotEnd,
			&party.ID, &party.Name, &party.Specialty,
		)
		if err != nil {
			return nil, err
		}
		if patientFacing {
			v.Doctor = &party
		} else {
			v.Patient = &party
		}
		result = append(result, v)
	}
	return result, rows.Err()
}
