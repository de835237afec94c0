package complaint

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careconnect/careconnect/internal/platform/auth"
	"github.com/careconnect/careconnect/internal/platform/errs"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create files a complaint for the acting user, optionally tied to one of
// their appointments.
func (s *Service) Create(ctx context.Context, actor auth.Principal, req CreateRequest) (*Complaint, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, errs.Invalidf("subject is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, errs.Invalidf("description is required")
	}
	if req.RelatedAppointmentID != nil {
		exists, err := s.repo.AppointmentExists(ctx, *req.RelatedAppointmentID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errs.NotFoundf("appointment %s not found", *req.RelatedAppointmentID)
		}
	}

	c := &Complaint{
		ID:                   uuid.New(),
		UserID:               actor.ID,
		RelatedAppointmentID: req.RelatedAppointmentID,
		Subject:              strings.TrimSpace(req.Subject),
		Description:          req.Description,
		Status:               StatusOpen,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("complaint_id", c.ID.String()).Msg("complaint filed")
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Complaint, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Complaint, error) {
	if req.Subject != nil && strings.TrimSpace(*req.Subject) == "" {
		return nil, errs.Invalidf("subject cannot be empty")
	}
	if req.Description != nil && strings.TrimSpace(*req.Description) == "" {
		return nil, errs.Invalidf("description cannot be empty")
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Subject != nil {
		c.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateStatus moves a complaint between the four workflow states. Any
// transition is allowed; the route is admin gated.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Complaint, error) {
	if !validStatuses[status] {
		return nil, errs.Invalidf("unknown complaint status %q", status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Complaint, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Complaint, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Complaint, int, error) {
	if !validStatuses[status] {
		return nil, 0, errs.Invalidf("unknown complaint status %q", status)
	}
	return s.repo.ListByStatus(ctx, status, limit, offset)
}
