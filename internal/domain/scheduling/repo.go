package scheduling

import (
	"context"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	ListDetailed(ctx context.Context, limit, offset int) ([]*AppointmentDetail, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Appointment, int, error)
	// SlotTaken reports whether a non-cancelled appointment other than
	// exclude already occupies the doctor's slot. Pass uuid.Nil to consider
	// every appointment.
	SlotTaken(ctx context.Context, doctorID uuid.UUID, date, slot string, exclude uuid.UUID) (bool, error)
}

// DoctorDirectory is the slice of the doctor store that booking needs.
// identity.DoctorRepository satisfies it.
type DoctorDirectory interface {
	AvailableDays(ctx context.Context, userID uuid.UUID) ([]string, error)
}
