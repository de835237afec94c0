package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultImageURL = "https://www.gravatar.com/avatar/00000000000000000000000000000000?d=mp&f=y"

// User maps to the users table.
type User struct {
	ID               uuid.UUID `db:"id" json:"id"`
	FirstName        string    `db:"first_name" json:"first_name"`
	LastName         string    `db:"last_name" json:"last_name"`
	Email            string    `db:"email" json:"email"`
	PasswordHash     string    `db:"password" json:"-"`
	ContactPhone     *string   `db:"contact_phone" json:"contact_phone,omitempty"`
	Address          *string   `db:"address" json:"address,omitempty"`
	Role             string    `db:"role" json:"role"`
	ImageURL         string    `db:"image_url" json:"image_url"`
	IsVerified       bool      `db:"is_verified" json:"is_verified"`
	VerificationCode *string   `db:"verification_code" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Doctor maps to the doctors table. The primary key is the owning user's id;
// a row exists exactly while that user's role is doctor.
type Doctor struct {
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Specialization string    `db:"specialization" json:"specialization"`
	AvailableDays  []string  `db:"available_days" json:"available_days"`
	Rating         *float64  `db:"rating" json:"rating,omitempty"`
	Experience     *int      `db:"experience" json:"experience,omitempty"`
	Patients       *int      `db:"patients" json:"patients,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DoctorProfile joins a doctor with the owning user for listings.
type DoctorProfile struct {
	UserID         uuid.UUID `json:"user_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	ContactPhone   *string   `json:"contact_phone,omitempty"`
	ImageURL       string    `json:"image_url"`
	Specialization string    `json:"specialization"`
	AvailableDays  []string  `json:"available_days"`
	Rating         *float64  `json:"rating,omitempty"`
	Experience     *int      `json:"experience,omitempty"`
	Patients       *int      `json:"patients,omitempty"`
}

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	ContactPhone *string `json:"contact_phone,omitempty"`
	Address      *string `json:"address,omitempty"`
	Role         string  `json:"role"`

	// Doctor fields, required when role is doctor.
	Specialization string   `json:"specialization,omitempty"`
	AvailableDays  []string `json:"available_days,omitempty"`
	Experience     *int     `json:"experience,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// UpdateUserRequest carries the mutable user fields. Nil pointers leave the
// stored value unchanged.
type UpdateUserRequest struct {
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	ContactPhone *string `json:"contact_phone,omitempty"`
	Address      *string `json:"address,omitempty"`
	ImageURL     *string `json:"image_url,omitempty"`

	// Role changes are admin only and drive the doctor row lockstep.
	Role           *string  `json:"role,omitempty"`
	Specialization *string  `json:"specialization,omitempty"`
	AvailableDays  []string `json:"available_days,omitempty"`
	Experience     *int     `json:"experience,omitempty"`
}

var weekdays = map[string]string{
	"monday": "Monday", "tuesday": "Tuesday", "wednesday": "Wednesday",
	"thursday": "Thursday", "friday": "Friday", "saturday": "Saturday",
	"sunday": "Sunday",
}

// NormalizeDays canonicalizes weekday names to title case. The second return
// is the first name that is not a weekday, or "" when all are valid.
func NormalizeDays(days []string) ([]string, string) {
	out := make([]string, 0, len(days))
	for _, d := range days {
		canonical, ok := weekdays[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return nil, d
		}
		out = append(out, canonical)
	}
	return out, ""
}
