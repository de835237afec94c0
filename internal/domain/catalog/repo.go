package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *CareService) error
	GetByID(ctx context.Context, id uuid.UUID) (*CareService, error)
	Update(ctx context.Context, s *CareService) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*CareService, int, error)

	// ReplaceDoctorServices drops the doctor's current associations and
	// inserts the given set in one transaction-friendly sweep.
	ReplaceDoctorServices(ctx context.Context, doctorUserID uuid.UUID, serviceIDs []uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorUserID uuid.UUID) ([]*CareService, error)
	ListDoctorIDsByService(ctx context.Context, serviceID uuid.UUID) ([]uuid.UUID, error)

	DoctorExists(ctx context.Context, doctorUserID uuid.UUID) (bool, error)
}
