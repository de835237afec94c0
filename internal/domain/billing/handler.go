package billing

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careconnect/careconnect/internal/platform/auth"
	"github.com/careconnect/careconnect/internal/platform/errs"
	"github.com/careconnect/careconnect/internal/platform/gateway"
	"github.com/careconnect/careconnect/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts payment routes. Provider callbacks go on the public
// group: Stripe authenticates with its signature header and Safaricom posts
// to an unauthenticated callback URL.
func (h *Handler) RegisterRoutes(public *echo.Group, api *echo.Group) {
	public.POST("/payment/webhook", h.CardWebhook)
	public.POST("/payment/mpesa/callback/:appointmentId", h.MpesaCallback)

	api.POST("/payment/checkout-session", h.CreateCheckoutSession, auth.RequireRole(auth.RoleUser))
	api.POST("/payment/mpesa/initiate", h.InitiateMpesa, auth.RequireRole(auth.RoleUser))
	api.GET("/payment/:id", h.Get)
	api.GET("/payments/appointment/:appointmentId", h.ListByAppointment)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/payments", h.List)
	admin.PATCH("/payment/status/:id", h.UpdateStatus)
}

func (h *Handler) CreateCheckoutSession(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	url, err := h.svc.CreateCheckoutSession(c.Request().Context(), p, req)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

func (h *Handler) CardWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read payload")
	}
	signature := c.Request().Header.Get("Stripe-Signature")
	if err := h.svc.HandleCardWebhook(c.Request().Context(), payload, signature); err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

func (h *Handler) InitiateMpesa(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req MpesaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := h.svc.InitiateMpesa(c.Request().Context(), p, req)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) MpesaCallback(c echo.Context) error {
	appointmentID, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointmentId")
	}
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read payload")
	}
	cb, err := gateway.ParseStkCallback(payload)
	if err != nil {
		return errs.HTTP(err)
	}
	if err := h.svc.HandleMpesaCallback(c.Request().Context(), appointmentID, cb); err != nil {
		// The payload was well formed; never make Safaricom retry it.
		c.Logger().Error(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	payment, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, payment)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByAppointment(c echo.Context) error {
	appointmentID, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointmentId")
	}
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	items, err := h.svc.ListByAppointment(c.Request().Context(), p, appointmentID)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	payment, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return errs.HTTP(err)
	}
	return c.JSON(http.StatusOK, payment)
}
