package prescription

import (
	"context"

	"github.com/google/uuid"

	"github.com/careconnect/careconnect/internal/platform/money"
)

// AppointmentMeta is the slice of an appointment that prescriptions need.
type AppointmentMeta struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error)

	// AppointmentMeta resolves the owning appointment's patient and doctor.
	AppointmentMeta(ctx context.Context, appointmentID uuid.UUID) (*AppointmentMeta, error)
	// AdjustAppointmentTotal adds delta (possibly negative) to the owning
	// appointment's total. Callers run it in the same transaction as the
	// prescription write so the total never drifts.
	AdjustAppointmentTotal(ctx context.Context, appointmentID uuid.UUID, delta money.Amount) error
}
