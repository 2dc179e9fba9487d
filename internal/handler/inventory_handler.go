package handler

import (
	"net/http"

	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"

	"github.com/labstack/echo/v4"
)

const inventoryAccessHeader = "x-inventory-access-code"

type InventoryHandler struct {
	uc *usecase.InventoryUsecase
}

func NewInventoryHandler(uc *usecase.InventoryUsecase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

func (h *InventoryHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/inventory", h.search)
	g.GET("/inventory/lookup", h.lookup)
}

// GET /api/inventory?q=&field=any|item|customer|desc
func (h *InventoryHandler) search(c echo.Context) error {
	out, err := h.uc.Search(
		c.Request().Context(),
		c.QueryParam("q"),
		c.QueryParam("field"),
		c.Request().Header.Get(inventoryAccessHeader),
	)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/inventory/lookup?partNo=
func (h *InventoryHandler) lookup(c echo.Context) error {
	out, err := h.uc.Lookup(
		c.Request().Context(),
		c.QueryParam("partNo"),
		c.Request().Header.Get(inventoryAccessHeader),
	)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
