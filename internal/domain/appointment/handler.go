package appointment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/treatment"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/auth"
	"github.com/RobertAguilera712/ERPDentalCare/pkg/pagination"
)

type Handler struct {
	svc *Service
	fin *Finalizer
}

func NewHandler(svc *Service, fin *Finalizer) *Handler {
	return &Handler{svc: svc, fin: fin}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Patients only see and book their own appointments.
	all := api.Group("", auth.RequireRole(auth.RoleDentist, auth.RolePatient))
	all.GET("/appointments", h.ListAppointments)
	all.GET("/appointments/:id", h.GetAppointment)
	all.POST("/appointments", h.CreateAppointment)

	staff := api.Group("", auth.RequireRole(auth.RoleDentist))
	staff.POST("/appointments/:id/cancel", h.CancelAppointment)
	staff.POST("/appointments/:id/finish", h.FinishAppointment)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// patientScope returns the caller's patient id when the caller is a patient
// without staff roles, and nil for staff.
func (h *Handler) patientScope(c echo.Context) (*uuid.UUID, error) {
	ctx := c.Request().Context()
	if auth.HasRole(auth.RolesFromContext(ctx), auth.RoleDentist) {
		return nil, nil
	}
	userID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusForbidden, "unknown user")
	}
	p, err := h.svc.PatientFor(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusForbidden, "no patient record for user")
		}
		return nil, apperr.HTTPError(err)
	}
	return &p.ID, nil
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	scope, err := h.patientScope(c)
	if err != nil {
		return err
	}
	if scope != nil {
		a.PatientID = *scope
	}
	if err := h.svc.Create(c.Request().Context(), &a); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	scope, err := h.patientScope(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if scope != nil && a.PatientID != *scope {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{Status: c.QueryParam("status")}
	var err error
	if f.DentistID, err = queryUUID(c, "dentist_id"); err != nil {
		return err
	}
	if f.PatientID, err = queryUUID(c, "patient_id"); err != nil {
		return err
	}
	scope, err := h.patientScope(c)
	if err != nil {
		return err
	}
	if scope != nil {
		f.PatientID = scope
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) FinishAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req FinishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sell, err := h.fin.Finish(c.Request().Context(), id, req)
	var shortfall *treatment.ShortfallError
	var insufficient *inventory.InsufficientStockError
	switch {
	case errors.As(err, &shortfall):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"message":   "there are not enough supplies to perform the requested services",
			"shortfall": shortfall.Shortfalls,
		})
	case errors.As(err, &insufficient):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"message":   insufficient.Error(),
			"available": insufficient.Available,
		})
	case err != nil:
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "appointment finished",
		"sell":    sell,
	})
}
