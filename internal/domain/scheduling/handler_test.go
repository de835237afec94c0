package scheduling

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careconnect/careconnect/internal/platform/auth"
)

func newTestHandler() (*Handler, *Service, *mockDirectory, *echo.Echo) {
	svc, _, dir := newTestService()
	return NewHandler(svc), svc, dir, echo.New()
}

func withPrincipal(c echo.Context, p auth.Principal) {
	c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), p)))
}

func TestHandler_Book(t *testing.T) {
	h, _, dir, e := newTestHandler()
	doctorID := addDoctor(dir, "Friday")

	body := `{"doctor_id":"` + doctorID.String() + `","appointment_date":"` + friday + `","time_slot":"10:00"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	withPrincipal(c, patient())

	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total_amount":"1000.00"`) {
		t.Errorf("body missing base fee: %s", rec.Body.String())
	}
}

func TestHandler_Book_Conflict(t *testing.T) {
	h, _, dir, e := newTestHandler()
	doctorID := addDoctor(dir, "Friday")
	body := `{"doctor_id":"` + doctorID.String() + `","appointment_date":"` + friday + `","time_slot":"10:00"}`

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		withPrincipal(c, patient())

		err := h.Book(c)
		if i == 0 {
			if err != nil {
				t.Fatalf("first booking: %v", err)
			}
			continue
		}
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != want {
			t.Errorf("second booking err = %v, want %d", err, want)
		}
	}
}

func TestHandler_UpdateStatus(t *testing.T) {
	h, svc, dir, e := newTestHandler()
	owner, appt := bookOne(t, svc, dir)

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"appointment_status":"Cancelled"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(appt.ID.String())
	withPrincipal(c, owner)

	if err := h.UpdateStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	got, err := svc.Get(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %q", got.Status)
	}
}

func TestHandler_UpdateStatus_BadStatus(t *testing.T) {
	h, svc, dir, e := newTestHandler()
	owner, appt := bookOne(t, svc, dir)

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"appointment_status":"Done"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(appt.ID.String())
	withPrincipal(c, owner)

	err := h.UpdateStatus(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("err = %v, want 400", err)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, _, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Get(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Errorf("err = %v, want 404", err)
	}
}

func TestHandler_Delete(t *testing.T) {
	h, svc, dir, e := newTestHandler()
	_, appt := bookOne(t, svc, dir)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(appt.ID.String())

	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
