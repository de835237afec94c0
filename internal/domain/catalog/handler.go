package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careconnect/careconnect/internal/platform/auth"
	"github.com/careconnect/careconnect/internal/platform/errs"
	"github.com/careconnect/careconnect/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.GET("/services", h.List)
	public.GET("/service/:id", h.Get)
	public.GET("/doctor/:doctorId/services", h.ListByDoctor)
	public.GET("/service/:id/doctors", h.ListDoctors)

	api.POST("/doctor/:doctorId/services", h.AssignDoctorServices,
		auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/services", h.Create)
	admin.PUT("/service/:id", h.Update)
	admin.DELETE("/service/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	svc, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "service created",
		"service": svc,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	svc, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, svc)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	svc, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "service updated",
		"service": svc,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "service deleted"})
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)
	services, total, err := h.svc.List(c.Request().Context(), page.Limit, page.Offset)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(services, total, page.Limit, page.Offset))
}

func (h *Handler) AssignDoctorServices(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	services, err := h.svc.AssignDoctorServices(c.Request().Context(), principal, doctorID, req)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "doctor services updated",
		"services": services,
	})
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	services, err := h.svc.ListByDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"services": services})
}

func (h *Handler) ListDoctors(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorIDs, err := h.svc.ListDoctorsByService(c.Request().Context(), id)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"doctor_ids": doctorIDs})
}
