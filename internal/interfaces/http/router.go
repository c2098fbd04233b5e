package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-flujo/internal/application/inventory"
	"github.com/jhoicas/inventario-flujo/internal/application/usecase"
	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
	"github.com/jhoicas/inventario-flujo/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	WarehouseUC *usecase.WarehouseUseCase
	ProductUC   *usecase.ProductUseCase
	DocumentUC  *inventory.DocumentUseCase
	StockUC     *inventory.StockUseCase
	Auth        AuthConfig
}

// Router registra las rutas de la API. Todo /api exige Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.Auth))

	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)

	products := api.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)

	// Documentos: despacho, donación, compra y traslado
	documents := api.Group("/documents")
	docHandler := NewDocumentHandler(deps.DocumentUC)
	documents.Post("/", docHandler.Create)
	documents.Get("/", docHandler.List)
	documents.Get("/:id", docHandler.GetByID)
	documents.Put("/:id/lines", docHandler.UpdateLines)
	documents.Get("/:id/status", docHandler.Status)
	documents.Get("/:id/movements", docHandler.Movements)

	// Aprobar, rechazar y cumplir sin aprobación quedan reservados a revisores.
	reviewers := RequireRole(jwt.RoleAdmin, jwt.RoleSupervisor)
	for _, ev := range workflow.Events {
		path := "/:id/" + string(ev)
		if ev == workflow.EventApprove || ev == workflow.EventReject || ev == workflow.EventQuickFulfill {
			documents.Post(path, reviewers, docHandler.Transition(ev))
			continue
		}
		documents.Post(path, docHandler.Transition(ev))
	}

	stockHandler := NewStockHandler(deps.StockUC)
	api.Get("/stock", stockHandler.Balance)
	api.Get("/stock/warehouses/:id", stockHandler.ByWarehouse)
	api.Get("/stock/warehouses/:id/low", stockHandler.LowStock)
	api.Get("/movements", stockHandler.Movements)
}
