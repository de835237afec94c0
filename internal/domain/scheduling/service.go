package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careconnect/careconnect/internal/platform/auth"
	"github.com/careconnect/careconnect/internal/platform/errs"
)

type Service struct {
	appointments AppointmentRepository
	doctors      DoctorDirectory
	log          zerolog.Logger
	now          func() time.Time
}

func NewService(appointments AppointmentRepository, doctors DoctorDirectory, log zerolog.Logger) *Service {
	return &Service{appointments: appointments, doctors: doctors, log: log, now: time.Now}
}

// checkAvailability verifies the doctor exists and works on the weekday of
// the candidate date. Pure read, no side effects.
func (s *Service) checkAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	days, err := s.doctors.AvailableDays(ctx, doctorID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.NotFoundf("doctor %s not found", doctorID)
		}
		return err
	}
	weekday := date.Weekday().String()
	for _, d := range days {
		if strings.EqualFold(d, weekday) {
			return nil
		}
	}
	return errs.Invalidf("doctor is not available on %s, available days: %s",
		weekday, strings.Join(days, ", "))
}

// Book creates a Pending appointment for the acting patient at the base
// consultation fee. The slot pre-check catches most double bookings; the
// partial unique index on (doctor_id, date, slot) catches the concurrent
// remainder and surfaces as Conflict.
func (s *Service) Book(ctx context.Context, actor auth.Principal, req BookRequest) (*Appointment, error) {
	if req.DoctorID == uuid.Nil {
		return nil, errs.Invalidf("doctor_id is required")
	}
	date, err := parseDate(req.AppointmentDate)
	if err != nil {
		return nil, errs.Invalidf("appointment_date must be YYYY-MM-DD")
	}
	slot, err := parseSlot(req.TimeSlot)
	if err != nil {
		return nil, errs.Invalidf("time_slot must be HH:MM")
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return nil, errs.Invalidf("appointment_date is in the past")
	}

	if err := s.checkAvailability(ctx, req.DoctorID, date); err != nil {
		return nil, err
	}

	taken, err := s.appointments.SlotTaken(ctx, req.DoctorID, req.AppointmentDate, slot, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errs.Conflictf("slot %s %s is already booked", req.AppointmentDate, slot)
	}

	appt := &Appointment{
		ID:              uuid.New(),
		UserID:          actor.ID,
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate,
		TimeSlot:        slot,
		TotalAmount:     BaseConsultationFee,
		Status:          StatusPending,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", appt.DoctorID.String()).
		Str("date", appt.AppointmentDate).
		Str("slot", appt.TimeSlot).
		Msg("appointment booked")
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// Reschedule moves an appointment to a new doctor, date or slot, re-running
// the availability and conflict checks.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return nil, errs.Conflictf("cancelled appointments cannot be rescheduled")
	}

	if req.DoctorID != uuid.Nil {
		appt.DoctorID = req.DoctorID
	}
	if req.AppointmentDate != "" {
		appt.AppointmentDate = req.AppointmentDate
	}
	if req.TimeSlot != "" {
		slot, err := parseSlot(req.TimeSlot)
		if err != nil {
			return nil, errs.Invalidf("time_slot must be HH:MM")
		}
		appt.TimeSlot = slot
	}

	date, err := parseDate(appt.AppointmentDate)
	if err != nil {
		return nil, errs.Invalidf("appointment_date must be YYYY-MM-DD")
	}
	if err := s.checkAvailability(ctx, appt.DoctorID, date); err != nil {
		return nil, err
	}
	taken, err := s.appointments.SlotTaken(ctx, appt.DoctorID, appt.AppointmentDate, appt.TimeSlot, appt.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errs.Conflictf("slot %s %s is already booked", appt.AppointmentDate, appt.TimeSlot)
	}

	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// UpdateStatus enforces the transition matrix: Pending to Confirmed by a
// doctor or admin, anything to Cancelled by the owning patient or admin.
// Unknown statuses fail before the appointment is even loaded; a missing
// appointment fails before role checks.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Principal, id uuid.UUID, status string) (*Appointment, error) {
	if !validStatuses[status] {
		return nil, errs.Invalidf("unknown appointment status %q", status)
	}

	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch status {
	case StatusConfirmed:
		if appt.Status != StatusPending {
			return nil, errs.Forbiddenf("only pending appointments can be confirmed")
		}
		if actor.Role != auth.RoleDoctor && !actor.IsAdmin() {
			return nil, errs.Forbiddenf("only a doctor or admin can confirm an appointment")
		}
	case StatusCancelled:
		if actor.ID != appt.UserID && !actor.IsAdmin() {
			return nil, errs.Forbiddenf("only the owning patient or an admin can cancel")
		}
	default:
		return nil, errs.Forbiddenf("appointments cannot return to %s", status)
	}

	if err := s.appointments.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	appt.Status = status
	return appt, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.appointments.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.List(ctx, limit, offset)
}

func (s *Service) ListDetailed(ctx context.Context, limit, offset int) ([]*AppointmentDetail, int, error) {
	return s.appointments.ListDetailed(ctx, limit, offset)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Appointment, int, error) {
	if !validStatuses[status] {
		return nil, 0, errs.Invalidf("unknown appointment status %q", status)
	}
	return s.appointments.ListByStatus(ctx, status, limit, offset)
}
