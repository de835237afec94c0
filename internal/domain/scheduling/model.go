package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/careconnect/careconnect/internal/platform/money"
)

const (
	StatusPending   = "Pending"
	StatusConfirmed = "Confirmed"
	StatusCancelled = "Cancelled"
)

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusCancelled: true,
}

// BaseConsultationFee is charged at booking time. Prescriptions add to it.
var BaseConsultationFee = money.MustParse("1000.00")

// Appointment maps to the appointments table. Dates and slots travel as
// strings in DateOnly and HH:MM:SS form; the store holds DATE and TIME
// columns.
type Appointment struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	UserID          uuid.UUID    `db:"user_id" json:"user_id"`
	DoctorID        uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	AppointmentDate string       `db:"appointment_date" json:"appointment_date"`
	TimeSlot        string       `db:"time_slot" json:"time_slot"`
	TotalAmount     money.Amount `db:"total_amount" json:"total_amount"`
	Status          string       `db:"appointment_status" json:"appointment_status"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// AppointmentDetail joins patient and doctor names onto an appointment for
// the admin listing.
type AppointmentDetail struct {
	Appointment
	PatientFirstName string `json:"patient_first_name"`
	PatientLastName  string `json:"patient_last_name"`
	PatientEmail     string `json:"patient_email"`
	DoctorFirstName  string `json:"doctor_first_name"`
	DoctorLastName   string `json:"doctor_last_name"`
	Specialization   string `json:"specialization"`
}

// BookRequest is the payload for POST /appointment/register.
type BookRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	AppointmentDate string    `json:"appointment_date"`
	TimeSlot        string    `json:"time_slot"`
}

// RescheduleRequest moves an appointment to a new doctor, date or slot.
// Empty fields keep the stored value.
type RescheduleRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id,omitempty"`
	AppointmentDate string    `json:"appointment_date,omitempty"`
	TimeSlot        string    `json:"time_slot,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"appointment_status"`
}

// parseDate accepts DateOnly form only.
func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// parseSlot accepts HH:MM or HH:MM:SS and canonicalizes to HH:MM:SS.
func parseSlot(s string) (string, error) {
	if t, err := time.Parse("15:04:05", s); err == nil {
		return t.Format("15:04:05"), nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", err
	}
	return t.Format("15:04:05"), nil
}
