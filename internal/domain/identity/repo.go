package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	SetVerified(ctx context.Context, id uuid.UUID) error
}

type DoctorRepository interface {
	Upsert(ctx context.Context, d *Doctor) error
	Get(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	Delete(ctx context.Context, userID uuid.UUID) error
	ListProfiles(ctx context.Context, limit, offset int) ([]*DoctorProfile, int, error)
	ListProfilesBySpecialization(ctx context.Context, specialization string, limit, offset int) ([]*DoctorProfile, int, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error)
	AvailableDays(ctx context.Context, userID uuid.UUID) ([]string, error)
}
