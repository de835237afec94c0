package prescription

import (
	"time"

	"github.com/google/uuid"

	"github.com/careconnect/careconnect/internal/platform/money"
)

// Prescription maps to the prescriptions table. Patient and doctor ids are
// denormalized from the owning appointment at creation time.
type Prescription struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	AppointmentID uuid.UUID    `db:"appointment_id" json:"appointment_id"`
	DoctorID      uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	PatientID     uuid.UUID    `db:"patient_id" json:"patient_id"`
	Notes         string       `db:"notes" json:"notes"`
	Amount        money.Amount `db:"amount" json:"amount"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

type CreateRequest struct {
	AppointmentID uuid.UUID    `json:"appointment_id"`
	Notes         string       `json:"notes"`
	Amount        money.Amount `json:"amount"`
}

// UpdateRequest carries the mutable fields. Nil pointers keep the stored
// value.
type UpdateRequest struct {
	Notes  *string       `json:"notes,omitempty"`
	Amount *money.Amount `json:"amount,omitempty"`
}
