package inventory

import (
	"net/http"
	"strconv"

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
	staff := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDentist))
	staff.GET("/supplies", h.ListSupplies)
	staff.GET("/supplies/:id", h.GetSupply)
	staff.GET("/supplies/:id/inventory", h.GetInventory)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/supplies", h.CreateSupply)
	admin.PUT("/supplies/:id", h.UpdateSupply)
	admin.DELETE("/supplies/:id", h.DeleteSupply)
	admin.POST("/supplies/:id/buys", h.BuySupply)
	admin.GET("/supplies/:id/buys", h.ListBuys)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateSupply(c echo.Context) error {
	var sp Supply
	if err := c.Bind(&sp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSupply(c.Request().Context(), &sp); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, sp)
}

func (h *Handler) GetSupply(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sp, err := h.svc.GetSupply(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *Handler) ListSupplies(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := SupplyFilter{Status: c.QueryParam("status"), Name: c.QueryParam("name")}
	if v := c.QueryParam("salable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "salable must be a boolean")
		}
		f.Salable = &b
	}
	items, total, err := h.svc.ListSupplies(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateSupply(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var u SupplyUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sp, err := h.svc.UpdateSupply(c.Request().Context(), id, u)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *Handler) DeleteSupply(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSupply(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) BuySupply(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req BuyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	lot, err := h.svc.Buy(c.Request().Context(), id, req)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, lot)
}

func (h *Handler) ListBuys(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBuys(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetInventory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	view, err := h.svc.Inventory(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, view)
}
