package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-flujo/internal/application/dto"
	"github.com/jhoicas/inventario-flujo/internal/application/inventory"
)

// StockHandler consultas de saldos, kardex y reposición (protegido).
type StockHandler struct {
	uc *inventory.StockUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *inventory.StockUseCase) *StockHandler {
	return &StockHandler{uc: uc}
}

// Balance godoc
// @Summary      Saldo de un producto en una bodega
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  true  "ID de la bodega"
// @Param        product_id    query  string  true  "ID del producto"
// @Success      200  {object}  dto.StockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/stock [get]
func (h *StockHandler) Balance(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return nil
	}
	out, err := h.uc.Balance(c.UserContext(), companyID, c.Query("warehouse_id"), c.Query("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ByWarehouse godoc
// @Summary      Saldos de una bodega
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {array}   dto.StockResponse
// @Router       /api/stock/warehouses/{id} [get]
func (h *StockHandler) ByWarehouse(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return nil
	}
	out, err := h.uc.ListByWarehouse(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// LowStock godoc
// @Summary      Productos bajo el stock mínimo con sugerencia de reposición
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {array}   dto.LowStockSuggestionDTO
// @Router       /api/stock/warehouses/{id}/low [get]
func (h *StockHandler) LowStock(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return nil
	}
	out, err := h.uc.LowStockList(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Movements godoc
// @Summary      Kardex de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  true   "ID del producto"
// @Param        from        query  string  false  "Desde (RFC3339)"
// @Param        to          query  string  false  "Hasta (RFC3339)"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *StockHandler) Movements(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return nil
	}
	productID := c.Query("product_id")
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "product_id es requerido"})
	}
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339"})
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339"})
	}
	out, err := h.uc.MovementsByProduct(c.UserContext(), companyID, productID, from, to, pageFromQuery(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
