package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicore/consult-booking/internal/timex"
)

type fakeRepo struct {
	doctors map[uuid.UUID]*Doctor
	avails  map[uuid.UUID]*Availability
	slots   map[uuid.UUID]*TimeSlot

	// liveAppointments makes every guarded mutator veto, standing in for
	// scheduled appointments under the availability.
	liveAppointments bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		doctors: make(map[uuid.UUID]*Doctor),
		avails:  make(map[uuid.UUID]*Availability),
		slots:   make(map[uuid.UUID]*TimeSlot),
	}
}

func (f *fakeRepo) addDoctor(st ScheduleType) uuid.UUID {
	id := uuid.New()
	f.doctors[id] = &Doctor{ID: id, Name: "Dr. Test", ScheduleType: st}
	return id
}

func (f *fakeRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

func (f *fakeRepo) UpdateDoctorScheduleType(_ context.Context, id uuid.UUID, st ScheduleType) error {
	d, ok := f.doctors[id]
	if !ok {
		return ErrDoctorNotFound
	}
	d.ScheduleType = st
	return nil
}

func (f *fakeRepo) CreateAvailability(_ context.Context, a *Availability) error {
	cp := *a
	f.avails[a.ID] = &cp
	return nil
}

func (f *fakeRepo) GetAvailabilityByID(_ context.Context, id uuid.UUID) (*Availability, error) {
	a, ok := f.avails[id]
	if !ok {
		return nil, ErrAvailabilityNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) AvailabilityExists(_ context.Context, doctorID uuid.UUID, date time.Time, session Session, consultingStart, consultingEnd int) (bool, error) {
	for _, a := range f.avails {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Session == session &&
			a.ConsultingStart == consultingStart && a.ConsultingEnd == consultingEnd && !a.IsDeleted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) UpdateAvailabilityGuarded(_ context.Context, a *Availability) error {
	if f.liveAppointments {
		return ErrLiveAppointments
	}
	if _, ok := f.avails[a.ID]; !ok {
		return ErrAvailabilityNotFound
	}
	cp := *a
	f.avails[a.ID] = &cp
	return nil
}

func (f *fakeRepo) SoftDeleteAvailabilityGuarded(_ context.Context, id uuid.UUID) error {
	if f.liveAppointments {
		return ErrLiveAppointments
	}
	a, ok := f.avails[id]
	if !ok {
		return ErrAvailabilityNotFound
	}
	a.IsDeleted = true
	for _, s := range f.slots {
		if s.AvailabilityID == id {
			s.IsDeleted = true
		}
	}
	return nil
}

func (f *fakeRepo) CreateTimeSlot(_ context.Context, s *TimeSlot) error {
	cp := *s
	f.slots[s.ID] = &cp
	return nil
}

func (f *fakeRepo) GetTimeSlotByID(_ context.Context, id uuid.UUID) (*TimeSlot, error) {
	s, ok := f.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) ListSlotsByAvailability(_ context.Context, availabilityID uuid.UUID) ([]TimeSlot, error) {
	var out []TimeSlot
	for _, s := range f.slots {
		if s.AvailabilityID == availabilityID && !s.IsDeleted {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateTimeSlotGuarded(_ context.Context, s *TimeSlot) error {
	if f.liveAppointments {
		return ErrLiveAppointments
	}
	if _, ok := f.slots[s.ID]; !ok {
		return ErrSlotNotFound
	}
	cp := *s
	f.slots[s.ID] = &cp
	return nil
}

func (f *fakeRepo) SoftDeleteTimeSlotGuarded(_ context.Context, id uuid.UUID) error {
	if f.liveAppointments {
		return ErrLiveAppointments
	}
	s, ok := f.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	s.IsDeleted = true
	return nil
}

func (f *fakeRepo) ListAvailableSlots(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]SlotListing, int, error) {
	var all []SlotListing
	for _, s := range f.slots {
		if s.DoctorID != doctorID || s.Status != SlotAvailable || s.IsDeleted {
			continue
		}
		a := f.avails[s.AvailabilityID]
		if a == nil || a.IsDeleted {
			continue
		}
		all = append(all, SlotListing{Slot: *s, Date: a.Date, Session: a.Session})
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// Fixed test instant: Monday 2026-03-09 08:00.
var testNow = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

func newAvailabilityService(repo *fakeRepo) *AvailabilityService {
	return NewAvailabilityService(repo, timex.FixedClock{T: testNow}, 4, zap.NewNop())
}

func validCreateInput(date time.Time) CreateAvailabilityInput {
	bookingStart := testNow.Add(1 * time.Hour)
	bookingEnd := timex.CombineMinutes(date, 8*60+30)
	return CreateAvailabilityInput{
		Date:            &date,
		Session:         SessionMorning,
		ConsultingStart: "09:00",
		ConsultingEnd:   "12:00",
		BookingStartAt:  bookingStart,
		BookingEndAt:    bookingEnd,
	}
}

func TestCreateAvailabilitySingleDate(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	svc := newAvailabilityService(repo)

	date := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(context.Background(), doctorID, validCreateInput(date))
	require.NoError(t, err)
	require.Len(t, created, 1)

	a := created[0].Availability
	assert.Equal(t, doctorID, a.DoctorID)
	assert.Equal(t, 540, a.ConsultingStart)
	assert.Equal(t, 720, a.ConsultingEnd)
	assert.Equal(t, "Mon Mar 16 2026", created[0].DateText)
	assert.Empty(t, a.Weekdays)
}

func TestCreateAvailabilityPastDate(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	svc := newAvailabilityService(repo)

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	in := validCreateInput(date)
	in.BookingEndAt = testNow.Add(2 * time.Hour)

	_, err := svc.Create(context.Background(), doctorID, in)
	assert.ErrorIs(t, err, ErrDateInPast)
}

func TestCreateAvailabilityWeekdayRecurrence(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	svc := newAvailabilityService(repo)

	in := CreateAvailabilityInput{
		Weekdays:        []string{"MONDAY"},
		Session:         SessionMorning,
		ConsultingStart: "09:00",
		ConsultingEnd:   "12:00",
		BookingStartAt:  testNow.Add(1 * time.Hour),
		BookingEndAt:    testNow.Add(2 * time.Hour),
	}
	created, err := svc.Create(context.Background(), doctorID, in)
	require.NoError(t, err)

	// Today is a Monday and is excluded, so 4 weeks yield 3 future Mondays.
	require.Len(t, created, 3)
	for _, c := range created {
		assert.Equal(t, time.Monday, c.Availability.Date.Weekday())
		assert.True(t, c.Availability.Date.After(testNow))
		assert.Equal(t, []string{"MONDAY"}, c.Availability.Weekdays)
	}
}

func TestCreateAvailabilitySkipsDuplicateDates(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	svc := newAvailabilityService(repo)

	in := CreateAvailabilityInput{
		Weekdays:        []string{"TUESDAY"},
		Session:         SessionMorning,
		ConsultingStart: "09:00",
		ConsultingEnd:   "12:00",
		BookingStartAt:  testNow.Add(1 * time.Hour),
		BookingEndAt:    testNow.Add(2 * time.Hour),
	}
	first, err := svc.Create(context.Background(), doctorID, in)
	require.NoError(t, err)
	require.Len(t, first, 4)

	// Remove one so exactly one date is free again.
	delete(repo.avails, first[0].Availability.ID)

	second, err := svc.Create(context.Background(), doctorID, in)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	// With every date taken the call fails instead of silently no-oping.
	_, err = svc.Create(context.Background(), doctorID, in)
	assert.ErrorIs(t, err, ErrAvailabilityExists)
}

func TestCreateAvailabilityValidation(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	svc := newAvailabilityService(repo)
	date := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*CreateAvailabilityInput)
		wantErr error
	}{
		{
			name:    "unknown doctor",
			mutate:  func(in *CreateAvailabilityInput) {},
			wantErr: ErrDoctorNotFound,
		},
		{
			name:    "invalid session",
			mutate:  func(in *CreateAvailabilityInput) { in.Session = "AFTERNOON" },
			wantErr: ErrInvalidSession,
		},
		{
			name:    "bad time format",
			mutate:  func(in *CreateAvailabilityInput) { in.ConsultingStart = "9am" },
			wantErr: timex.ErrInvalidTimeFormat,
		},
		{
			name: "consulting start after end",
			mutate: func(in *CreateAvailabilityInput) {
				in.ConsultingStart = "13:00"
				in.ConsultingEnd = "12:00"
			},
			wantErr: ErrConsultingWindowOrder,
		},
		{
			name:    "neither date nor weekdays",
			mutate:  func(in *CreateAvailabilityInput) { in.Date = nil },
			wantErr: ErrDateOrWeekdaysRequired,
		},
		{
			name: "booking window inverted",
			mutate: func(in *CreateAvailabilityInput) {
				in.BookingStartAt = testNow.Add(3 * time.Hour)
				in.BookingEndAt = testNow.Add(1 * time.Hour)
			},
			wantErr: ErrBookingWindowOrder,
		},
		{
			name: "booking window in the past",
			mutate: func(in *CreateAvailabilityInput) {
				in.BookingStartAt = testNow.Add(-2 * time.Hour)
				in.BookingEndAt = testNow.Add(1 * time.Hour)
			},
			wantErr: ErrBookingWindowInPast,
		},
		{
			name: "booking ends after consultation starts",
			mutate: func(in *CreateAvailabilityInput) {
				in.BookingEndAt = timex.CombineMinutes(date, 10*60)
			},
			wantErr: ErrBookingAfterConsulting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreateInput(date)
			tt.mutate(&in)

			id := doctorID
			if tt.wantErr == ErrDoctorNotFound {
				id = uuid.New()
			}
			_, err := svc.Create(context.Background(), id, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateAvailability(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	svc := newAvailabilityService(repo)

	date := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(context.Background(), doctorID, validCreateInput(date))
	require.NoError(t, err)
	availID := created[0].Availability.ID

	newStart := "10:00"
	updated, err := svc.Update(context.Background(), doctorID, availID, UpdateAvailabilityInput{
		ConsultingStart: &newStart,
	})
	require.NoError(t, err)
	assert.Equal(t, 600, updated.ConsultingStart)
	assert.Equal(t, 720, updated.ConsultingEnd)

	// Another doctor cannot see the row, let alone edit it.
	_, err = svc.Update(context.Background(), uuid.New(), availID, UpdateAvailabilityInput{})
	assert.ErrorIs(t, err, ErrAvailabilityNotFound)
}

func TestUpdateAvailabilityVetoedByLiveAppointments(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	svc := newAvailabilityService(repo)

	date := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(context.Background(), doctorID, validCreateInput(date))
	require.NoError(t, err)
	availID := created[0].Availability.ID

	repo.liveAppointments = true

	newStart := "10:00"
	_, err = svc.Update(context.Background(), doctorID, availID, UpdateAvailabilityInput{ConsultingStart: &newStart})
	assert.ErrorIs(t, err, ErrLiveAppointments)

	err = svc.SoftDelete(context.Background(), doctorID, availID)
	assert.ErrorIs(t, err, ErrLiveAppointments)
}

func TestSoftDeleteAvailabilityCascades(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	svc := newAvailabilityService(repo)
	slotSvc := NewSlotService(repo, zap.NewNop())

	date := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(context.Background(), doctorID, validCreateInput(date))
	require.NoError(t, err)
	availID := created[0].Availability.ID

	slot, err := slotSvc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "09:00",
		EndTime:        "09:20",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(context.Background(), doctorID, availID))

	assert.True(t, repo.avails[availID].IsDeleted)
	assert.True(t, repo.slots[slot.ID].IsDeleted)
}

func TestUpdateScheduleType(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	svc := newAvailabilityService(repo)

	require.NoError(t, svc.UpdateScheduleType(context.Background(), doctorID, ScheduleWave))
	assert.Equal(t, ScheduleWave, repo.doctors[doctorID].ScheduleType)

	err := svc.UpdateScheduleType(context.Background(), doctorID, "BLOCK")
	assert.ErrorIs(t, err, ErrInvalidScheduleType)

	err = svc.UpdateScheduleType(context.Background(), uuid.New(), ScheduleStream)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func seedAvailability(t *testing.T, repo *fakeRepo, doctorID uuid.UUID) uuid.UUID {
	t.Helper()
	svc := newAvailabilityService(repo)
	date := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(context.Background(), doctorID, validCreateInput(date))
	require.NoError(t, err)
	return created[0].Availability.ID
}

func TestCreateTimeSlotStreamForcesCapacityOne(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	availID := seedAvailability(t, repo, doctorID)
	svc := NewSlotService(repo, zap.NewNop())

	five := 5
	slot, err := svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "09:00",
		EndTime:        "09:20",
		MaxPatients:    &five,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, slot.MaxPatients)
	assert.Equal(t, SlotAvailable, slot.Status)
}

func TestCreateTimeSlotWaveRequiresCapacity(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleWave)
	availID := seedAvailability(t, repo, doctorID)
	svc := NewSlotService(repo, zap.NewNop())

	_, err := svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "09:00",
		EndTime:        "10:00",
	})
	assert.ErrorIs(t, err, ErrMaxPatientsRequired)

	three := 3
	slot, err := svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "09:00",
		EndTime:        "10:00",
		MaxPatients:    &three,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, slot.MaxPatients)
}

func TestCreateTimeSlotBoundaries(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	availID := seedAvailability(t, repo, doctorID) // window 09:00-12:00
	svc := NewSlotService(repo, zap.NewNop())

	_, err := svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "08:30",
		EndTime:        "09:30",
	})
	assert.ErrorIs(t, err, ErrSlotOutsideWindow)

	_, err = svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "10:00",
		EndTime:        "10:00",
	})
	assert.ErrorIs(t, err, ErrInvalidSlotRange)

	// Slots covering the exact window edges are fine.
	_, err = svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "09:00",
		EndTime:        "12:00",
	})
	assert.NoError(t, err)
}

func TestCreateTimeSlotRejectsOverlap(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	availID := seedAvailability(t, repo, doctorID)
	svc := NewSlotService(repo, zap.NewNop())

	_, err := svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "09:00",
		EndTime:        "09:30",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "09:15",
		EndTime:        "09:45",
	})
	assert.ErrorIs(t, err, ErrSlotOverlap)

	// Touching boundaries do not overlap.
	_, err = svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "09:30",
		EndTime:        "10:00",
	})
	assert.NoError(t, err)
}

func TestUpdateTimeSlotExcludesSelfFromOverlap(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	availID := seedAvailability(t, repo, doctorID)
	svc := NewSlotService(repo, zap.NewNop())

	slot, err := svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "09:00",
		EndTime:        "09:30",
	})
	require.NoError(t, err)

	// Shrinking inside its own old range must not self-conflict.
	newEnd := "09:20"
	updated, err := svc.Update(context.Background(), doctorID, slot.ID, UpdateTimeSlotInput{EndTime: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, 560, updated.EndTime)
}

func TestDeleteTimeSlotVetoedByLiveAppointments(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	availID := seedAvailability(t, repo, doctorID)
	svc := NewSlotService(repo, zap.NewNop())

	slot, err := svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
		AvailabilityID: availID,
		StartTime:      "09:00",
		EndTime:        "09:20",
	})
	require.NoError(t, err)

	repo.liveAppointments = true
	err = svc.SoftDelete(context.Background(), doctorID, slot.ID)
	assert.ErrorIs(t, err, ErrLiveAppointments)
}

func TestListAvailablePaging(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor(ScheduleStream)
	availID := seedAvailability(t, repo, doctorID)
	svc := NewSlotService(repo, zap.NewNop())

	starts := []string{"09:00", "09:20", "09:40", "10:00", "10:20"}
	ends := []string{"09:20", "09:40", "10:00", "10:20", "10:40"}
	for i := range starts {
		_, err := svc.Create(context.Background(), doctorID, CreateTimeSlotInput{
			AvailabilityID: availID,
			StartTime:      starts[i],
			EndTime:        ends[i],
		})
		require.NoError(t, err)
	}

	listings, total, err := svc.ListAvailable(context.Background(), doctorID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, listings, 2)

	listings, total, err = svc.ListAvailable(context.Background(), doctorID, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, listings, 1)

	_, _, err = svc.ListAvailable(context.Background(), uuid.New(), 1, 2)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}
