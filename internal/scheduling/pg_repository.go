package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.ScheduleType,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.Date,
		&a.Weekdays,
		&a.Session,
		&a.ConsultingStart,
		&a.ConsultingEnd,
		&a.BookingStartAt,
		&a.BookingEndAt,
		&a.IsDeleted,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanTimeSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot
	err := row.Scan(
		&s.ID,
		&s.AvailabilityID,
		&s.DoctorID,
		&s.StartTime,
		&s.EndTime,
		&s.MaxPatients,
		&s.Status,
		&s.IsDeleted,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, schedule_type, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) UpdateDoctorScheduleType(ctx context.Context, id uuid.UUID, st ScheduleType) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctors
		SET schedule_type = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, st)
	if err != nil {
		return fmt.Errorf("update schedule type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PgRepository) CreateAvailability(ctx context.Context, a *Availability) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availabilities
			(id, doctor_id, date, weekdays, session, consulting_start, consulting_end,
			 booking_start_at, booking_end_at, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.DoctorID, a.Date, a.Weekdays, a.Session, a.ConsultingStart, a.ConsultingEnd,
		a.BookingStartAt, a.BookingEndAt)
	return row.Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *PgRepository) GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*Availability, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, date, weekdays, session, consulting_start, consulting_end,
		       booking_start_at, booking_end_at, is_deleted, created_at, updated_at
		FROM availabilities
		WHERE id = $1
	`, id)
	return scanAvailability(row)
}

func (r *PgRepository) AvailabilityExists(ctx context.Context, doctorID uuid.UUID, date time.Time, session Session, consultingStart, consultingEnd int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM availabilities
			WHERE doctor_id = $1
			  AND date = $2
			  AND session = $3
			  AND consulting_start = $4
			  AND consulting_end = $5
			  AND is_deleted = false
		)
	`, doctorID, date, session, consultingStart, consultingEnd).Scan(&exists)
	return exists, err
}

// lockSlotsAndCountLive locks every non-deleted slot row of the
// availability, then counts scheduled appointments under them. Bookings
// lock the slot row before inserting, so holding all sibling locks
// serializes the veto against in-flight bookings.
func lockSlotsAndCountLive(ctx context.Context, tx pgx.Tx, availabilityID uuid.UUID) (int, error) {
	rows, err := tx.Query(ctx, `
		SELECT id FROM time_slots
		WHERE availability_id = $1 AND is_deleted = false
		FOR UPDATE
	`, availabilityID)
	if err != nil {
		return 0, fmt.Errorf("lock slots: %w", err)
	}
	if _, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID]); err != nil {
		return 0, fmt.Errorf("collect slot locks: %w", err)
	}

	var live int
	err = tx.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments ap
		JOIN time_slots ts ON ts.id = ap.timeslot_id
		WHERE ts.availability_id = $1
		  AND ts.is_deleted = false
		  AND ap.status = 'SCHEDULED'
	`, availabilityID).Scan(&live)
	if err != nil {
		return 0, fmt.Errorf("count live appointments: %w", err)
	}
	return live, nil
}

func (r *PgRepository) UpdateAvailabilityGuarded(ctx context.Context, a *Availability) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var deleted bool
	err = tx.QueryRow(ctx, `
		SELECT is_deleted FROM availabilities WHERE id = $1 FOR UPDATE
	`, a.ID).Scan(&deleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAvailabilityNotFound
		}
		return err
	}
	if deleted {
		return ErrAvailabilityNotFound
	}

	live, err := lockSlotsAndCountLive(ctx, tx, a.ID)
	if err != nil {
		return err
	}
	if live > 0 {
		return ErrLiveAppointments
	}

	_, err = tx.Exec(ctx, `
		UPDATE availabilities
		SET date = $2,
		    session = $3,
		    consulting_start = $4,
		    consulting_end = $5,
		    booking_start_at = $6,
		    booking_end_at = $7,
		    updated_at = now()
		WHERE id = $1
	`, a.ID, a.Date, a.Session, a.ConsultingStart, a.ConsultingEnd, a.BookingStartAt, a.BookingEndAt)
	if err != nil {
		return fmt.Errorf("update availability: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) SoftDeleteAvailabilityGuarded(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var deleted bool
	err = tx.QueryRow(ctx, `
		SELECT is_deleted FROM availabilities WHERE id = $1 FOR UPDATE
	`, id).Scan(&deleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAvailabilityNotFound
		}
		return err
	}
	if deleted {
		return ErrAvailabilityNotFound
	}

	live, err := lockSlotsAndCountLive(ctx, tx, id)
	if err != nil {
		return err
	}
	if live > 0 {
		return ErrLiveAppointments
	}

	if _, err := tx.Exec(ctx, `
		UPDATE availabilities SET is_deleted = true, updated_at = now() WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("soft delete availability: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE time_slots SET is_deleted = true, updated_at = now() WHERE availability_id = $1
	`, id); err != nil {
		return fmt.Errorf("cascade soft delete to slots: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) CreateTimeSlot(ctx context.Context, s *TimeSlot) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO time_slots
			(id, availability_id, doctor_id, start_time, end_time, max_patients, status, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, now(), now())
		RETURNING created_at, updated_at
	`, s.ID, s.AvailabilityID, s.DoctorID, s.StartTime, s.EndTime, s.MaxPatients, s.Status)
	return row.Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *PgRepository) GetTimeSlotByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, availability_id, doctor_id, start_time, end_time, max_patients, status, is_deleted, created_at, updated_at
		FROM time_slots
		WHERE id = $1
	`, id)
	return scanTimeSlot(row)
}

func (r *PgRepository) ListSlotsByAvailability(ctx context.Context, availabilityID uuid.UUID) ([]TimeSlot, error) {
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

	var result []TimeSlot
	for rows.Next() {
		s, err := scanTimeSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateTimeSlotGuarded(ctx context.Context, s *TimeSlot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	live, err := lockSlotsAndCountLive(ctx, tx, s.AvailabilityID)
	if err != nil {
		return err
	}
	if live > 0 {
		return ErrLiveAppointments
	}

	tag, err := tx.Exec(ctx, `
		UPDATE time_slots
		SET start_time = $2,
		    end_time = $3,
		    max_patients = $4,
		    updated_at = now()
		WHERE id = $1 AND is_deleted = false
	`, s.ID, s.StartTime, s.EndTime, s.MaxPatients)
	if err != nil {
		return fmt.Errorf("update time slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) SoftDeleteTimeSlotGuarded(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var availabilityID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT availability_id FROM time_slots WHERE id = $1 AND is_deleted = false FOR UPDATE
	`, id).Scan(&availabilityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSlotNotFound
		}
		return err
	}

	live, err := lockSlotsAndCountLive(ctx, tx, availabilityID)
	if err != nil {
		return err
	}
	if live > 0 {
		return ErrLiveAppointments
	}

	if _, err := tx.Exec(ctx, `
		UPDATE time_slots SET is_deleted = true, updated_at = now() WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("soft delete time slot: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]SlotListing, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM time_slots ts
		JOIN availabilities av ON av.id = ts.availability_id
		WHERE ts.doctor_id = $1
		  AND ts.status = 'AVAILABLE'
		  AND ts.is_deleted = false
		  AND av.is_deleted = false
	`, doctorID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ts.id, ts.availability_id, ts.doctor_id, ts.start_time, ts.end_time,
		       ts.max_patients, ts.status, ts.is_deleted, ts.created_at, ts.updated_at,
		       av.date, av.session
		FROM time_slots ts
		JOIN availabilities av ON av.id = ts.availability_id
		WHERE ts.doctor_id = $1
		  AND ts.status = 'AVAILABLE'
		  AND ts.is_deleted = false
		  AND av.is_deleted = false
		ORDER BY av.date, av.session, ts.start_time
		LIMIT $2 OFFSET $3
	`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []SlotListing
	for rows.Next() {
		var l SlotListing
		err := rows.Scan(
			&l.Slot.ID,
			&l.Slot.AvailabilityID,
			&l.Slot.DoctorID,
			&l.Slot.StartTime,
			&l.Slot.EndTime,
			&l.Slot.MaxPatients,
			&l.Slot.Status,
			&l.Slot.IsDeleted,
			&l.Slot.CreatedAt,
			&l.Slot.UpdatedAt,
			&l.Date,
			&l.Session,
		)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, l)
	}
	return result, total, rows.Err()
}
