package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careconnect/careconnect/internal/platform/auth"
	"github.com/careconnect/careconnect/internal/platform/errs"
)

// -- Mock Repositories --

type mockApptRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	for _, existing := range m.appts {
		if existing.DoctorID == a.DoctorID && existing.AppointmentDate == a.AppointmentDate &&
			existing.TimeSlot == a.TimeSlot && existing.Status != StatusCancelled {
			return errs.Conflictf("appointments_doctor_slot_key")
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return errs.ErrNotFound
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	a, ok := m.appts[id]
	if !ok {
		return errs.ErrNotFound
	}
	a.Status = status
	return nil
}

func (m *mockApptRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.appts[id]; !ok {
		return errs.ErrNotFound
	}
	delete(m.appts, id)
	return nil
}

func (m *mockApptRepo) List(_ context.Context, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockApptRepo) ListDetailed(_ context.Context, limit, offset int) ([]*AppointmentDetail, int, error) {
	var result []*AppointmentDetail
	for _, a := range m.appts {
		result = append(result, &AppointmentDetail{Appointment: *a})
	}
	return result, len(result), nil
}

func (m *mockApptRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockApptRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockApptRepo) ListByStatus(_ context.Context, status string, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.Status == status {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockApptRepo) SlotTaken(_ context.Context, doctorID uuid.UUID, date, slot string, exclude uuid.UUID) (bool, error) {
	for _, a := range m.appts {
		if a.ID != exclude && a.DoctorID == doctorID && a.AppointmentDate == date &&
			a.TimeSlot == slot && a.Status != StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

type mockDirectory struct {
	days map[uuid.UUID][]string
}

func (m *mockDirectory) AvailableDays(_ context.Context, userID uuid.UUID) ([]string, error) {
	days, ok := m.days[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return days, nil
}

// -- Fixtures --

// fixedNow is a Thursday.
var fixedNow = time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockApptRepo, *mockDirectory) {
	repo := newMockApptRepo()
	dir := &mockDirectory{days: make(map[uuid.UUID][]string)}
	svc := NewService(repo, dir, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, dir
}

func addDoctor(dir *mockDirectory, days ...string) uuid.UUID {
	id := uuid.New()
	dir.days[id] = days
	return id
}

func patient() auth.Principal {
	return auth.Principal{ID: uuid.New(), Role: auth.RoleUser, Verified: true}
}

// "2026-03-06" is a Friday.
const friday = "2026-03-06"

func TestBook(t *testing.T) {
	svc, _, dir := newTestService()
	doctorID := addDoctor(dir, "Friday")
	p := patient()

	appt, err := svc.Book(context.Background(), p, BookRequest{
		DoctorID:        doctorID,
		AppointmentDate: friday,
		TimeSlot:        "10:00",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appt.Status != StatusPending {
		t.Errorf("status = %q, want Pending", appt.Status)
	}
	if appt.TotalAmount.String() != "1000.00" {
		t.Errorf("total = %s, want 1000.00", appt.TotalAmount)
	}
	if appt.TimeSlot != "10:00:00" {
		t.Errorf("slot = %q, want canonical 10:00:00", appt.TimeSlot)
	}
	if appt.UserID != p.ID {
		t.Error("appointment not owned by the booking patient")
	}
}

func TestBookDoctorUnavailableDay(t *testing.T) {
	svc, _, dir := newTestService()
	doctorID := addDoctor(dir, "Monday", "Tuesday")

	_, err := svc.Book(context.Background(), patient(), BookRequest{
		DoctorID:        doctorID,
		AppointmentDate: friday,
		TimeSlot:        "10:00",
	})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if !strings.Contains(err.Error(), "Monday") {
		t.Errorf("reason should list available days, got %q", err)
	}
}

func TestBookAvailabilityIsCaseInsensitive(t *testing.T) {
	svc, _, dir := newTestService()
	doctorID := addDoctor(dir, "friday")

	_, err := svc.Book(context.Background(), patient(), BookRequest{
		DoctorID:        doctorID,
		AppointmentDate: friday,
		TimeSlot:        "10:00",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
}

func TestBookUnknownDoctor(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Book(context.Background(), patient(), BookRequest{
		DoctorID:        uuid.New(),
		AppointmentDate: friday,
		TimeSlot:        "10:00",
	})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBookValidation(t *testing.T) {
	svc, _, dir := newTestService()
	doctorID := addDoctor(dir, "Friday")

	cases := []struct {
		name string
		req  BookRequest
	}{
		{"MissingDoctor", BookRequest{AppointmentDate: friday, TimeSlot: "10:00"}},
		{"BadDate", BookRequest{DoctorID: doctorID, AppointmentDate: "06/03/2026", TimeSlot: "10:00"}},
		{"BadSlot", BookRequest{DoctorID: doctorID, AppointmentDate: friday, TimeSlot: "ten"}},
		{"PastDate", BookRequest{DoctorID: doctorID, AppointmentDate: "2020-01-03", TimeSlot: "10:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Book(context.Background(), patient(), tc.req); !errors.Is(err, errs.ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestBookSlotConflict(t *testing.T) {
	svc, _, dir := newTestService()
	doctorID := addDoctor(dir, "Friday")
	req := BookRequest{DoctorID: doctorID, AppointmentDate: friday, TimeSlot: "10:00"}

	if _, err := svc.Book(context.Background(), patient(), req); err != nil {
		t.Fatalf("first Book: %v", err)
	}
	if _, err := svc.Book(context.Background(), patient(), req); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestBookCancelledSlotIsRebookable(t *testing.T) {
	svc, _, dir := newTestService()
	doctorID := addDoctor(dir, "Friday")
	req := BookRequest{DoctorID: doctorID, AppointmentDate: friday, TimeSlot: "10:00"}
	owner := patient()

	appt, err := svc.Book(context.Background(), owner, req)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), owner, appt.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Book(context.Background(), patient(), req); err != nil {
		t.Errorf("rebooking a cancelled slot: %v", err)
	}
}

// -- UpdateStatus --

func bookOne(t *testing.T, svc *Service, dir *mockDirectory) (auth.Principal, *Appointment) {
	t.Helper()
	doctorID := addDoctor(dir, "Friday")
	owner := patient()
	appt, err := svc.Book(context.Background(), owner, BookRequest{
		DoctorID: doctorID, AppointmentDate: friday, TimeSlot: "09:00",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	return owner, appt
}

func TestConfirmByDoctor(t *testing.T) {
	svc, _, dir := newTestService()
	_, appt := bookOne(t, svc, dir)
	doctor := auth.Principal{ID: appt.DoctorID, Role: auth.RoleDoctor}

	updated, err := svc.UpdateStatus(context.Background(), doctor, appt.ID, StatusConfirmed)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("status = %q", updated.Status)
	}
}

func TestConfirmByPatientForbidden(t *testing.T) {
	svc, _, dir := newTestService()
	owner, appt := bookOne(t, svc, dir)

	_, err := svc.UpdateStatus(context.Background(), owner, appt.ID, StatusConfirmed)
	if !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestCancelByOwner(t *testing.T) {
	svc, _, dir := newTestService()
	owner, appt := bookOne(t, svc, dir)

	updated, err := svc.UpdateStatus(context.Background(), owner, appt.ID, StatusCancelled)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Errorf("status = %q", updated.Status)
	}
}

func TestCancelByStrangerForbidden(t *testing.T) {
	svc, _, dir := newTestService()
	_, appt := bookOne(t, svc, dir)

	_, err := svc.UpdateStatus(context.Background(), patient(), appt.ID, StatusCancelled)
	if !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestConfirmCancelledForbidden(t *testing.T) {
	svc, _, dir := newTestService()
	owner, appt := bookOne(t, svc, dir)
	if _, err := svc.UpdateStatus(context.Background(), owner, appt.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	admin := auth.Principal{ID: uuid.New(), Role: auth.RoleAdmin}
	_, err := svc.UpdateStatus(context.Background(), admin, appt.ID, StatusConfirmed)
	if !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestUpdateStatusUnknownStatusCheckedFirst(t *testing.T) {
	svc, _, _ := newTestService()
	admin := auth.Principal{ID: uuid.New(), Role: auth.RoleAdmin}
	// Unknown status wins over the missing appointment.
	_, err := svc.UpdateStatus(context.Background(), admin, uuid.New(), "Done")
	if !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestUpdateStatusMissingAppointmentBeforeRoles(t *testing.T) {
	svc, _, _ := newTestService()
	// A patient with no rights still learns the appointment does not exist.
	_, err := svc.UpdateStatus(context.Background(), patient(), uuid.New(), StatusConfirmed)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// -- Reschedule --

func TestReschedule(t *testing.T) {
	svc, _, dir := newTestService()
	_, appt := bookOne(t, svc, dir)

	updated, err := svc.Reschedule(context.Background(), appt.ID, RescheduleRequest{TimeSlot: "11:30"})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if updated.TimeSlot != "11:30:00" {
		t.Errorf("slot = %q", updated.TimeSlot)
	}
}

func TestRescheduleKeepingOwnSlot(t *testing.T) {
	svc, _, dir := newTestService()
	_, appt := bookOne(t, svc, dir)

	updated, err := svc.Reschedule(context.Background(), appt.ID, RescheduleRequest{TimeSlot: appt.TimeSlot})
	if err != nil {
		t.Fatalf("Reschedule into own slot: %v", err)
	}
	if updated.TimeSlot != appt.TimeSlot {
		t.Errorf("slot = %q, want %q", updated.TimeSlot, appt.TimeSlot)
	}

	if _, err := svc.Reschedule(context.Background(), appt.ID, RescheduleRequest{}); err != nil {
		t.Fatalf("Reschedule with no changes: %v", err)
	}
}

func TestRescheduleToTakenSlot(t *testing.T) {
	svc, _, dir := newTestService()
	doctorID := addDoctor(dir, "Friday")
	first, err := svc.Book(context.Background(), patient(), BookRequest{
		DoctorID: doctorID, AppointmentDate: friday, TimeSlot: "09:00",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	second, err := svc.Book(context.Background(), patient(), BookRequest{
		DoctorID: doctorID, AppointmentDate: friday, TimeSlot: "10:00",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	_, err = svc.Reschedule(context.Background(), second.ID, RescheduleRequest{TimeSlot: first.TimeSlot})
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestRescheduleCancelled(t *testing.T) {
	svc, _, dir := newTestService()
	owner, appt := bookOne(t, svc, dir)
	if _, err := svc.UpdateStatus(context.Background(), owner, appt.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := svc.Reschedule(context.Background(), appt.ID, RescheduleRequest{TimeSlot: "12:00"})
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

// -- Lists --

func TestListByStatusValidates(t *testing.T) {
	svc, _, _ := newTestService()
	if _, _, err := svc.ListByStatus(context.Background(), "Done", 20, 0); !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestListByUser(t *testing.T) {
	svc, _, dir := newTestService()
	owner, _ := bookOne(t, svc, dir)
	bookOne(t, svc, dir)

	items, total, err := svc.ListByUser(context.Background(), owner.ID, 20, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("total = %d, len = %d, want 1", total, len(items))
	}
}
