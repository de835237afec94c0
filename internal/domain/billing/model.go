package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/careconnect/careconnect/internal/platform/money"
)

const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
	PaymentFailed  = "Failed"
)

var validPaymentStatuses = map[string]bool{
	PaymentPending: true,
	PaymentPaid:    true,
	PaymentFailed:  true,
}

const (
	MethodCard  = "card"
	MethodMpesa = "mpesa"
)

// Payment maps to the payments table. TransactionID is the provider's
// reference (payment intent id or M-Pesa receipt) and is unique when set, so
// replayed provider events collapse into one row.
type Payment struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	AppointmentID uuid.UUID    `db:"appointment_id" json:"appointment_id"`
	Amount        money.Amount `db:"amount" json:"amount"`
	Status        string       `db:"payment_status" json:"payment_status"`
	TransactionID *string      `db:"transaction_id" json:"transaction_id,omitempty"`
	PaymentMethod string       `db:"payment_method" json:"payment_method"`
	PaymentDate   *time.Time   `db:"payment_date" json:"payment_date,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

type CheckoutRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
}

type MpesaRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Phone         string    `json:"phone"`
}

type UpdateStatusRequest struct {
	Status string `json:"payment_status"`
}
