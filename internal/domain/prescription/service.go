package prescription

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careconnect/careconnect/internal/platform/auth"
	"github.com/careconnect/careconnect/internal/platform/db"
	"github.com/careconnect/careconnect/internal/platform/errs"
	"github.com/careconnect/careconnect/internal/platform/money"
)

// Service keeps the appointment total equal to the base fee plus the sum of
// its active prescription amounts. Every mutation pairs the prescription
// write with the total adjustment in one transaction.
type Service struct {
	repo Repository
	tx   db.Runner
	log  zerolog.Logger
}

func NewService(repo Repository, tx db.Runner, log zerolog.Logger) *Service {
	return &Service{repo: repo, tx: tx, log: log}
}

// Create records a prescription against an appointment and adds its amount
// to the appointment total. Patient and doctor are taken from the
// appointment, not the request.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Prescription, error) {
	if req.AppointmentID == uuid.Nil {
		return nil, errs.Invalidf("appointment_id is required")
	}
	if strings.TrimSpace(req.Notes) == "" {
		return nil, errs.Invalidf("notes is required")
	}
	if req.Amount.IsNegative() {
		return nil, errs.Invalidf("amount cannot be negative")
	}

	p := &Prescription{
		ID:            uuid.New(),
		AppointmentID: req.AppointmentID,
		Notes:         req.Notes,
		Amount:        req.Amount,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		meta, err := s.repo.AppointmentMeta(ctx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.NotFoundf("appointment %s not found", req.AppointmentID)
			}
			return err
		}
		p.PatientID = meta.PatientID
		p.DoctorID = meta.DoctorID
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.repo.AdjustAppointmentTotal(ctx, req.AppointmentID, req.Amount)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("prescription_id", p.ID.String()).
		Str("appointment_id", p.AppointmentID.String()).
		Str("amount", p.Amount.String()).
		Msg("prescription created")
	return p, nil
}

// Update rewrites notes and amount, applying the amount delta to the owning
// appointment total.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Prescription, error) {
	if req.Notes != nil && strings.TrimSpace(*req.Notes) == "" {
		return nil, errs.Invalidf("notes cannot be empty")
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		return nil, errs.Invalidf("amount cannot be negative")
	}

	var p *Prescription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		delta := money.Zero
		if req.Notes != nil {
			p.Notes = *req.Notes
		}
		if req.Amount != nil {
			delta = req.Amount.Sub(p.Amount)
			p.Amount = *req.Amount
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		if delta.IsZero() {
			return nil
		}
		return s.repo.AdjustAppointmentTotal(ctx, p.AppointmentID, delta)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a prescription and deducts its amount from the appointment
// total.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		if p.Amount.IsZero() {
			return nil
		}
		return s.repo.AdjustAppointmentTotal(ctx, p.AppointmentID, money.Zero.Sub(p.Amount))
	})
}

// Get returns a prescription. Patients can only read their own.
func (s *Service) Get(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleUser && actor.ID != p.PatientID {
		return nil, errs.Forbiddenf("cannot view another patient's prescription")
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}
