package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careconnect/careconnect/internal/platform/auth"
	"github.com/careconnect/careconnect/internal/platform/db"
	"github.com/careconnect/careconnect/internal/platform/errs"
)

// Service manages the catalog of offerings and which doctors provide them.
type Service struct {
	repo Repository
	tx   db.Runner
	log  zerolog.Logger
}

func NewService(repo Repository, tx db.Runner, log zerolog.Logger) *Service {
	return &Service{repo: repo, tx: tx, log: log}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*CareService, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errs.Invalidf("title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, errs.Invalidf("description is required")
	}

	svc := &CareService{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Features:    req.Features,
	}
	if svc.Features == nil {
		svc.Features = []string{}
	}
	if err := s.repo.Create(ctx, svc); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, errs.Conflictf("service %q already exists", svc.Title)
		}
		return nil, err
	}
	s.log.Info().Str("service_id", svc.ID.String()).Str("title", svc.Title).Msg("service created")
	return svc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CareService, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NotFoundf("service %s not found", id)
		}
		return nil, err
	}
	return svc, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*CareService, error) {
	svc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, errs.Invalidf("title cannot be blank")
		}
		svc.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return nil, errs.Invalidf("description cannot be blank")
		}
		svc.Description = strings.TrimSpace(*req.Description)
	}
	if req.Features != nil {
		svc.Features = *req.Features
		if svc.Features == nil {
			svc.Features = []string{}
		}
	}
	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.NotFoundf("service %s not found", id)
		}
		return err
	}
	s.log.Info().Str("service_id", id.String()).Msg("service deleted")
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*CareService, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// AssignDoctorServices replaces the doctor's association set wholesale. A
// doctor may edit their own list; admins may edit anyone's.
func (s *Service) AssignDoctorServices(ctx context.Context, actor auth.Principal, doctorUserID uuid.UUID, req AssignRequest) ([]*CareService, error) {
	if !actor.IsAdmin() && actor.ID != doctorUserID {
		return nil, errs.Forbiddenf("cannot edit another doctor's services")
	}
	ok, err := s.repo.DoctorExists(ctx, doctorUserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NotFoundf("doctor %s not found", doctorUserID)
	}

	seen := make(map[uuid.UUID]struct{}, len(req.ServiceIDs))
	ids := make([]uuid.UUID, 0, len(req.ServiceIDs))
	for _, sid := range req.ServiceIDs {
		if sid == uuid.Nil {
			return nil, errs.Invalidf("service id cannot be empty")
		}
		if _, dup := seen[sid]; dup {
			continue
		}
		seen[sid] = struct{}{}
		ids = append(ids, sid)
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		for _, sid := range ids {
			if _, err := s.repo.GetByID(ctx, sid); err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return errs.NotFoundf("service %s not found", sid)
				}
				return err
			}
		}
		return s.repo.ReplaceDoctorServices(ctx, doctorUserID, ids)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("doctor_id", doctorUserID.String()).
		Int("services", len(ids)).
		Msg("doctor services assigned")
	return s.repo.ListByDoctor(ctx, doctorUserID)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorUserID uuid.UUID) ([]*CareService, error) {
	return s.repo.ListByDoctor(ctx, doctorUserID)
}

func (s *Service) ListDoctorsByService(ctx context.Context, serviceID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.Get(ctx, serviceID); err != nil {
		return nil, err
	}
	return s.repo.ListDoctorIDsByService(ctx, serviceID)
}
