package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careconnect/careconnect/internal/platform/money"
)

// AppointmentInfo is the slice of an appointment that billing needs.
type AppointmentInfo struct {
	OwnerID uuid.UUID
	Total   money.Amount
	Status  string
}

type Repository interface {
	// InsertIfAbsent writes the payment unless a row with the same
	// transaction id already exists. Returns false when the row was skipped.
	InsertIfAbsent(ctx context.Context, p *Payment) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	// UpdateResult records the provider outcome for a pending payment.
	UpdateResult(ctx context.Context, id uuid.UUID, status string, transactionID *string, paidAt *time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, limit, offset int) ([]*Payment, int, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Payment, error)

	AppointmentInfo(ctx context.Context, appointmentID uuid.UUID) (*AppointmentInfo, error)
}
