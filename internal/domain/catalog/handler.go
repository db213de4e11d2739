package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/auth"
	"github.com/RobertAguilera712/ERPDentalCare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	anyone := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDentist, auth.RolePatient))
	anyone.GET("/catalog/tax-regimes", h.ListTaxRegimes)
	anyone.GET("/catalog/weekdays", h.ListWeekdays)
	anyone.GET("/catalog/frequencies", h.ListFrequencies)
	anyone.GET("/catalog/payment-methods", h.ListPaymentMethods)
	anyone.GET("/allergies", h.ListAllergies)
	anyone.GET("/allergies/:id", h.GetAllergy)

	staff := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDentist))
	staff.POST("/allergies", h.CreateAllergy)
	staff.PUT("/allergies/:id", h.UpdateAllergy)
	staff.DELETE("/allergies/:id", h.DeleteAllergy)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) ListTaxRegimes(c echo.Context) error {
	items, err := h.svc.TaxRegimes(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListWeekdays(c echo.Context) error {
	items, err := h.svc.Weekdays(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListFrequencies(c echo.Context) error {
	items, err := h.svc.Frequencies(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListPaymentMethods(c echo.Context) error {
	items, err := h.svc.PaymentMethods(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateAllergy(c echo.Context) error {
	var a Allergy
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateAllergy(c.Request().Context(), &a); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAllergy(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAllergy(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAllergies(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAllergies(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateAllergy(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var u AllergyUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateAllergy(c.Request().Context(), id, u)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAllergy(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAllergy(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
