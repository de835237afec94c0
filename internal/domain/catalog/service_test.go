package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careconnect/careconnect/internal/platform/auth"
	"github.com/careconnect/careconnect/internal/platform/errs"
)

// -- Mock Repository --

type mockRepo struct {
	services       map[uuid.UUID]*CareService
	doctorServices map[uuid.UUID][]uuid.UUID
	doctors        map[uuid.UUID]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		services:       make(map[uuid.UUID]*CareService),
		doctorServices: make(map[uuid.UUID][]uuid.UUID),
		doctors:        make(map[uuid.UUID]bool),
	}
}

func (m *mockRepo) Create(_ context.Context, s *CareService) error {
	for _, existing := range m.services {
		if existing.Title == s.Title {
			return errs.Conflictf("services_title_key")
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	cp := *s
	m.services[s.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*CareService, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, s *CareService) error {
	if _, ok := m.services[s.ID]; !ok {
		return errs.ErrNotFound
	}
	cp := *s
	m.services[s.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.services[id]; !ok {
		return errs.ErrNotFound
	}
	delete(m.services, id)
	for doctorID := range m.doctorServices {
		kept := m.doctorServices[doctorID][:0]
		for _, sid := range m.doctorServices[doctorID] {
			if sid != id {
				kept = append(kept, sid)
			}
		}
		m.doctorServices[doctorID] = kept
	}
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*CareService, int, error) {
	result := []*CareService{}
	for _, s := range m.services {
		result = append(result, s)
	}
	return result, len(result), nil
}

func (m *mockRepo) ReplaceDoctorServices(_ context.Context, doctorUserID uuid.UUID, serviceIDs []uuid.UUID) error {
	m.doctorServices[doctorUserID] = append([]uuid.UUID{}, serviceIDs...)
	return nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorUserID uuid.UUID) ([]*CareService, error) {
	result := []*CareService{}
	for _, sid := range m.doctorServices[doctorUserID] {
		if s, ok := m.services[sid]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockRepo) ListDoctorIDsByService(_ context.Context, serviceID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	for doctorID, sids := range m.doctorServices {
		for _, sid := range sids {
			if sid == serviceID {
				ids = append(ids, doctorID)
				break
			}
		}
	}
	return ids, nil
}

func (m *mockRepo) DoctorExists(_ context.Context, doctorUserID uuid.UUID) (bool, error) {
	return m.doctors[doctorUserID], nil
}

type passthroughTx struct{}

func (passthroughTx) InTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, passthroughTx{}, zerolog.Nop()), repo
}

func seedService(t *testing.T, svc *Service, title string) *CareService {
	t.Helper()
	s, err := svc.Create(context.Background(), CreateRequest{
		Title:       title,
		Description: "Description of " + title,
		Features:    []string{"consultation", "follow-up"},
	})
	if err != nil {
		t.Fatalf("seed %s: %v", title, err)
	}
	return s
}

// -- CRUD --

func TestCreate(t *testing.T) {
	svc, _ := newTestService()

	s, err := svc.Create(context.Background(), CreateRequest{
		Title:       "Antenatal care",
		Description: "Routine pregnancy checkups.",
		Features:    []string{"ultrasound", "nutrition advice"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID == uuid.Nil {
		t.Error("id not assigned")
	}
	if len(s.Features) != 2 {
		t.Errorf("features = %v", s.Features)
	}
}

func TestCreate_NilFeatures(t *testing.T) {
	svc, _ := newTestService()

	s, err := svc.Create(context.Background(), CreateRequest{
		Title:       "Dental checkup",
		Description: "Twice-yearly cleaning.",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Features == nil {
		t.Error("features should be an empty slice, not nil")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()

	cases := []struct {
		name string
		req  CreateRequest
	}{
		{"missing title", CreateRequest{Description: "d"}},
		{"missing description", CreateRequest{Title: "t"}},
		{"blank title", CreateRequest{Title: "   ", Description: "d"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req)
			if !errors.Is(err, errs.ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestCreate_DuplicateTitle(t *testing.T) {
	svc, _ := newTestService()
	seedService(t, svc, "Physiotherapy")

	_, err := svc.Create(context.Background(), CreateRequest{
		Title:       "Physiotherapy",
		Description: "Again.",
	})
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService()
	s := seedService(t, svc, "Lab tests")

	title := "Laboratory tests"
	features := []string{"blood panel"}
	got, err := svc.Update(context.Background(), s.ID, UpdateRequest{
		Title:    &title,
		Features: &features,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "Laboratory tests" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Description != s.Description {
		t.Error("description should be unchanged")
	}
	if len(got.Features) != 1 || got.Features[0] != "blood panel" {
		t.Errorf("features = %v", got.Features)
	}
}

func TestUpdate_BlankTitle(t *testing.T) {
	svc, _ := newTestService()
	s := seedService(t, svc, "Radiology")

	blank := ""
	_, err := svc.Update(context.Background(), s.ID, UpdateRequest{Title: &blank})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService()
	s := seedService(t, svc, "Vaccination")

	if err := svc.Delete(context.Background(), s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), s.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Get after delete: %v, want ErrNotFound", err)
	}
}

func TestDelete_Missing(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.Delete(context.Background(), uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// -- Doctor associations --

func TestAssignDoctorServices(t *testing.T) {
	svc, repo := newTestService()
	doctorID := uuid.New()
	repo.doctors[doctorID] = true
	a := seedService(t, svc, "Cardiology consult")
	b := seedService(t, svc, "ECG")

	actor := auth.Principal{ID: doctorID, Role: auth.RoleDoctor}
	got, err := svc.AssignDoctorServices(context.Background(), actor, doctorID, AssignRequest{
		ServiceIDs: []uuid.UUID{a.ID, b.ID, a.ID},
	})
	if err != nil {
		t.Fatalf("AssignDoctorServices: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d services, want 2 (duplicates collapsed)", len(got))
	}
}

func TestAssignDoctorServices_Replaces(t *testing.T) {
	svc, repo := newTestService()
	doctorID := uuid.New()
	repo.doctors[doctorID] = true
	a := seedService(t, svc, "Old offering")
	b := seedService(t, svc, "New offering")

	admin := auth.Principal{ID: uuid.New(), Role: auth.RoleAdmin}
	if _, err := svc.AssignDoctorServices(context.Background(), admin, doctorID, AssignRequest{
		ServiceIDs: []uuid.UUID{a.ID},
	}); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	got, err := svc.AssignDoctorServices(context.Background(), admin, doctorID, AssignRequest{
		ServiceIDs: []uuid.UUID{b.ID},
	})
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("assignments = %v, want only the new offering", got)
	}
}

func TestAssignDoctorServices_OtherDoctorForbidden(t *testing.T) {
	svc, repo := newTestService()
	doctorID := uuid.New()
	repo.doctors[doctorID] = true

	other := auth.Principal{ID: uuid.New(), Role: auth.RoleDoctor}
	_, err := svc.AssignDoctorServices(context.Background(), other, doctorID, AssignRequest{})
	if !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestAssignDoctorServices_UnknownDoctor(t *testing.T) {
	svc, _ := newTestService()
	admin := auth.Principal{ID: uuid.New(), Role: auth.RoleAdmin}

	_, err := svc.AssignDoctorServices(context.Background(), admin, uuid.New(), AssignRequest{})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAssignDoctorServices_UnknownService(t *testing.T) {
	svc, repo := newTestService()
	doctorID := uuid.New()
	repo.doctors[doctorID] = true

	admin := auth.Principal{ID: uuid.New(), Role: auth.RoleAdmin}
	_, err := svc.AssignDoctorServices(context.Background(), admin, doctorID, AssignRequest{
		ServiceIDs: []uuid.UUID{uuid.New()},
	})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(repo.doctorServices[doctorID]) != 0 {
		t.Error("failed assign should not persist associations")
	}
}

func TestAssignDoctorServices_Clear(t *testing.T) {
	svc, repo := newTestService()
	doctorID := uuid.New()
	repo.doctors[doctorID] = true
	a := seedService(t, svc, "To be cleared")

	admin := auth.Principal{ID: uuid.New(), Role: auth.RoleAdmin}
	if _, err := svc.AssignDoctorServices(context.Background(), admin, doctorID, AssignRequest{
		ServiceIDs: []uuid.UUID{a.ID},
	}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	got, err := svc.AssignDoctorServices(context.Background(), admin, doctorID, AssignRequest{})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("assignments = %v, want none", got)
	}
}

func TestListDoctorsByService(t *testing.T) {
	svc, repo := newTestService()
	d1, d2 := uuid.New(), uuid.New()
	repo.doctors[d1], repo.doctors[d2] = true, true
	a := seedService(t, svc, "Shared offering")

	admin := auth.Principal{ID: uuid.New(), Role: auth.RoleAdmin}
	for _, d := range []uuid.UUID{d1, d2} {
		if _, err := svc.AssignDoctorServices(context.Background(), admin, d, AssignRequest{
			ServiceIDs: []uuid.UUID{a.ID},
		}); err != nil {
			t.Fatalf("assign %s: %v", d, err)
		}
	}

	ids, err := svc.ListDoctorsByService(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("ListDoctorsByService: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d doctors, want 2", len(ids))
	}
}

func TestListDoctorsByService_UnknownService(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.ListDoctorsByService(context.Background(), uuid.New())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
