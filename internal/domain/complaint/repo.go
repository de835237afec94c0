package complaint

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Complaint) error
	GetByID(ctx context.Context, id uuid.UUID) (*Complaint, error)
	Update(ctx context.Context, c *Complaint) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Complaint, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Complaint, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Complaint, int, error)

	// AppointmentExists backs the optional appointment reference check.
	AppointmentExists(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}
