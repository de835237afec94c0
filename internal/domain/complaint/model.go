package complaint

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusClosed     = "Closed"
)

var validStatuses = map[string]bool{
	StatusOpen:       true,
	StatusInProgress: true,
	StatusResolved:   true,
	StatusClosed:     true,
}

// Complaint maps to the complaints table.
type Complaint struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	UserID               uuid.UUID  `db:"user_id" json:"user_id"`
	RelatedAppointmentID *uuid.UUID `db:"related_appointment_id" json:"related_appointment_id,omitempty"`
	Subject              string     `db:"subject" json:"subject"`
	Description          string     `db:"description" json:"description"`
	Status               string     `db:"complaint_status" json:"complaint_status"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

type CreateRequest struct {
	RelatedAppointmentID *uuid.UUID `json:"related_appointment_id,omitempty"`
	Subject              string     `json:"subject"`
	Description          string     `json:"description"`
}

// UpdateRequest carries the mutable text fields. Nil pointers keep the
// stored value.
type UpdateRequest struct {
	Subject     *string `json:"subject,omitempty"`
	Description *string `json:"description,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"complaint_status"`
}
