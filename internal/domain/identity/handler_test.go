package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careconnect/careconnect/internal/platform/auth"
)

func newTestHandler() (*Handler, *fixture, *echo.Echo) {
	f := newFixture()
	return NewHandler(f.svc), f, echo.New()
}

func withPrincipal(c echo.Context, p auth.Principal) {
	c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), p)))
}

func TestHandler_Register(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"first_name":"Grace","last_name":"Wanjiru","email":"grace@example.com","password":"s3cret-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "s3cret-pass") {
		t.Error("response leaks the password")
	}
}

func TestHandler_Register_Duplicate(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"first_name":"Grace","last_name":"Wanjiru","email":"grace@example.com","password":"s3cret-pass"}`
	for i, want := range []int{0, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		err := h.Register(c)
		if i == 0 {
			if err != nil {
				t.Fatalf("first register: %v", err)
			}
			continue
		}
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != want {
			t.Errorf("second register err = %v, want %d", err, want)
		}
	}
}

func TestHandler_Login(t *testing.T) {
	h, f, e := newTestHandler()
	if _, err := f.svc.Register(context.Background(), patientRequest()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	body := `{"email":"grace@example.com","password":"s3cret-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if _, ok := resp["token"]; !ok {
		t.Error("response missing token")
	}
}

func TestHandler_Login_BadPassword(t *testing.T) {
	h, f, e := newTestHandler()
	if _, err := f.svc.Register(context.Background(), patientRequest()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	body := `{"email":"grace@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Login(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Errorf("err = %v, want 401", err)
	}
}

func TestHandler_GetUser(t *testing.T) {
	h, f, e := newTestHandler()
	user, err := f.svc.Register(context.Background(), patientRequest())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(user.ID.String())

	if err := h.GetUser(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), user.PasswordHash) {
		t.Error("response leaks the password hash")
	}
}

func TestHandler_UpdateUser_OtherAccountForbidden(t *testing.T) {
	h, f, e := newTestHandler()
	user, err := f.svc.Register(context.Background(), patientRequest())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"first_name":"Eve"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(user.ID.String())
	withPrincipal(c, auth.Principal{ID: uuid.New(), Role: auth.RoleUser})

	err = h.UpdateUser(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Errorf("err = %v, want 403", err)
	}
}

func TestHandler_GetUser_BadID(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	withPrincipal(c, auth.Principal{ID: uuid.New(), Role: auth.RoleAdmin})

	err := h.GetUser(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("err = %v, want 400", err)
	}
}

func TestHandler_ListDoctors(t *testing.T) {
	h, f, e := newTestHandler()
	if _, err := f.svc.Register(context.Background(), doctorRequest()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListDoctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Cardiology") {
		t.Error("doctor listing missing specialization")
	}
}

func TestHandler_GetDoctor_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetDoctor(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Errorf("err = %v, want 404", err)
	}
}

func TestHandler_DeleteUser(t *testing.T) {
	h, f, e := newTestHandler()
	user, err := f.svc.Register(context.Background(), patientRequest())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(user.ID.String())

	if err := h.DeleteUser(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
