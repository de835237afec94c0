package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careconnect/careconnect/internal/platform/auth"
	"github.com/careconnect/careconnect/internal/platform/errs"
	"github.com/careconnect/careconnect/internal/platform/gateway"
)

type Service struct {
	repo   Repository
	card   gateway.CardGateway
	mobile gateway.MobileGateway
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, card gateway.CardGateway, mobile gateway.MobileGateway, log zerolog.Logger) *Service {
	return &Service{repo: repo, card: card, mobile: mobile, log: log, now: time.Now}
}

// appointmentFor loads the appointment and enforces that the actor owns it
// (admins bypass).
func (s *Service) appointmentFor(ctx context.Context, actor auth.Principal, appointmentID uuid.UUID) (*AppointmentInfo, error) {
	if appointmentID == uuid.Nil {
		return nil, errs.Invalidf("appointment_id is required")
	}
	info, err := s.repo.AppointmentInfo(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NotFoundf("appointment %s not found", appointmentID)
		}
		return nil, err
	}
	if actor.ID != info.OwnerID && !actor.IsAdmin() {
		return nil, errs.Forbiddenf("cannot pay for another patient's appointment")
	}
	return info, nil
}

// CreateCheckoutSession opens a hosted card checkout for the appointment's
// full outstanding total and returns the redirect URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, actor auth.Principal, req CheckoutRequest) (string, error) {
	info, err := s.appointmentFor(ctx, actor, req.AppointmentID)
	if err != nil {
		return "", err
	}
	if !info.Total.IsPositive() {
		return "", errs.Invalidf("appointment total must be positive, got %s", info.Total)
	}

	session, err := s.card.CreateCheckoutSession(ctx, req.AppointmentID,
		"CareConnect consultation", info.Total)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	s.log.Info().
		Str("appointment_id", req.AppointmentID.String()).
		Str("session_id", session.ID).
		Msg("checkout session created")
	return session.URL, nil
}

// HandleCardWebhook verifies and processes a card provider event. A bad
// signature or malformed payload is the caller's 400; processing failures
// after that are logged and swallowed so the provider does not retry a
// payload we have already judged well-formed.
func (s *Service) HandleCardWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.card.ParseWebhook(payload, signature)
	if err != nil {
		return errs.Invalidf("webhook rejected: %v", err)
	}
	if ev.Type != gateway.CardCompleted {
		s.log.Debug().Str("type", ev.Type).Msg("ignoring card event")
		return nil
	}
	if err := s.recordCardPayment(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("transaction_id", ev.TransactionID).
			Msg("card payment not recorded")
	}
	return nil
}

func (s *Service) recordCardPayment(ctx context.Context, ev *gateway.CardEvent) error {
	appointmentID, err := uuid.Parse(ev.AppointmentID)
	if err != nil {
		return fmt.Errorf("event carries bad appointment id %q", ev.AppointmentID)
	}
	info, err := s.repo.AppointmentInfo(ctx, appointmentID)
	if err != nil {
		return err
	}
	if !ev.Amount.Equal(info.Total) {
		s.log.Warn().
			Str("appointment_id", ev.AppointmentID).
			Str("charged", ev.Amount.String()).
			Str("expected", info.Total.String()).
			Msg("card payment amount differs from appointment total")
	}

	txID := ev.TransactionID
	paidAt := s.now()
	inserted, err := s.repo.InsertIfAbsent(ctx, &Payment{
		AppointmentID: appointmentID,
		Amount:        ev.Amount,
		Status:        PaymentPaid,
		TransactionID: &txID,
		PaymentMethod: MethodCard,
		PaymentDate:   &paidAt,
	})
	if err != nil {
		return err
	}
	if !inserted {
		s.log.Info().Str("transaction_id", txID).Msg("card event replayed, payment already recorded")
	}
	return nil
}

// InitiateMpesa sends an STK push for the appointment total and records a
// Pending payment keyed on the push's checkout request id.
func (s *Service) InitiateMpesa(ctx context.Context, actor auth.Principal, req MpesaRequest) (*gateway.PushResponse, error) {
	if strings.TrimSpace(req.Phone) == "" {
		return nil, errs.Invalidf("phone is required")
	}
	info, err := s.appointmentFor(ctx, actor, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !info.Total.IsPositive() {
		return nil, errs.Invalidf("appointment total must be positive, got %s", info.Total)
	}

	resp, err := s.mobile.RequestPush(ctx, gateway.PushRequest{
		Phone:         req.Phone,
		Amount:        info.Total,
		AccountRef:    "CareConnect",
		AppointmentID: req.AppointmentID.String(),
	})
	if err != nil {
		return nil, err
	}

	checkoutID := resp.CheckoutRequestID
	if _, err := s.repo.InsertIfAbsent(ctx, &Payment{
		AppointmentID: req.AppointmentID,
		Amount:        info.Total,
		Status:        PaymentPending,
		TransactionID: &checkoutID,
		PaymentMethod: MethodMpesa,
	}); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("appointment_id", req.AppointmentID.String()).
		Str("checkout_request_id", checkoutID).
		Msg("mpesa push initiated")
	return resp, nil
}

// HandleMpesaCallback resolves the pending payment for the push and records
// the provider outcome. Replays with an already-recorded receipt are no-ops.
func (s *Service) HandleMpesaCallback(ctx context.Context, appointmentID uuid.UUID, cb *gateway.StkCallback) error {
	if cb.Succeeded() {
		if existing, err := s.repo.GetByTransactionID(ctx, cb.ReceiptNumber); err == nil && existing != nil {
			s.log.Info().Str("receipt", cb.ReceiptNumber).Msg("mpesa callback replayed, payment already recorded")
			return nil
		}
	}

	pending, err := s.repo.GetByTransactionID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		// No pending row (server restarted mid-flight, or push recorded
		// elsewhere); record the outcome directly.
		return s.recordMpesaDirect(ctx, appointmentID, cb)
	}

	if cb.Succeeded() {
		info, err := s.repo.AppointmentInfo(ctx, appointmentID)
		if err == nil && !cb.Amount.Equal(info.Total) {
			s.log.Warn().
				Str("appointment_id", appointmentID.String()).
				Str("charged", cb.Amount.String()).
				Str("expected", info.Total.String()).
				Msg("mpesa payment amount differs from appointment total")
		}
		receipt := cb.ReceiptNumber
		paidAt := s.now()
		return s.repo.UpdateResult(ctx, pending.ID, PaymentPaid, &receipt, &paidAt)
	}

	s.log.Info().
		Str("checkout_request_id", cb.CheckoutRequestID).
		Int("result_code", cb.ResultCode).
		Str("result_desc", cb.ResultDesc).
		Msg("mpesa push failed")
	return s.repo.UpdateResult(ctx, pending.ID, PaymentFailed, nil, nil)
}

func (s *Service) recordMpesaDirect(ctx context.Context, appointmentID uuid.UUID, cb *gateway.StkCallback) error {
	status := PaymentFailed
	var txID *string
	var paidAt *time.Time
	amount := cb.Amount
	if cb.Succeeded() {
		status = PaymentPaid
		receipt := cb.ReceiptNumber
		now := s.now()
		txID, paidAt = &receipt, &now
	}
	_, err := s.repo.InsertIfAbsent(ctx, &Payment{
		AppointmentID: appointmentID,
		Amount:        amount,
		Status:        status,
		TransactionID: txID,
		PaymentMethod: MethodMpesa,
		PaymentDate:   paidAt,
	})
	return err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Payment, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ListByAppointment returns an appointment's payments. Patients can only
// read their own appointments' payments.
func (s *Service) ListByAppointment(ctx context.Context, actor auth.Principal, appointmentID uuid.UUID) ([]*Payment, error) {
	if _, err := s.appointmentFor(ctx, actor, appointmentID); err != nil {
		return nil, err
	}
	return s.repo.ListByAppointment(ctx, appointmentID)
}

// UpdateStatus is the admin correction endpoint for provider hiccups.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Payment, error) {
	if !validPaymentStatuses[status] {
		return nil, errs.Invalidf("unknown payment status %q", status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
