package booking

import (
	"context"

	"github.com/google/uuid"
)

// ListAppointments returns the caller's appointments, optionally filtered
// by status. SCHEDULED listings read soonest-booked first; everything else
// reads newest first. Patient-facing rows embed the doctor, doctor-facing
// rows embed the patient.
func (s *Service) ListAppointments(ctx context.Context, callerID uuid.UUID, role Role, status *Status) ([]View, error) {
	switch role {
	case RolePatient:
		return s.repo.ListViewsByPatient(ctx, callerID, status)
	case RoleDoctor:
		return s.repo.ListViewsByDoctor(ctx, callerID, status)
	default:
		return nil, ErrInvalidRole
	}
}
