package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-flujo/internal/application/dto"
	"github.com/jhoicas/inventario-flujo/internal/application/inventory"
	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
)

// DocumentHandler maneja el ciclo de vida de los documentos de inventario (protegido).
type DocumentHandler struct {
	uc *inventory.DocumentUseCase
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(uc *inventory.DocumentUseCase) *DocumentHandler {
	return &DocumentHandler{uc: uc}
}

// Create godoc
// @Summary      Crear documento en borrador
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateDocumentRequest  true  "type, bodegas según el tipo y líneas"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/documents [post]
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	companyID, userID, ok := identity(c)
	if !ok {
		return nil
	}
	var in dto.CreateDocumentRequest
	if !bindAndValidate(c, &in) {
		return nil
	}
	out, err := h.uc.Create(c.UserContext(), companyID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar documentos
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        type    query  string  false  "dispatch, donation, purchase, transfer"
// @Param        state   query  string  false  "draft, pending, approved, fulfilled, cancelled, rejected"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.DocumentListResponse
// @Router       /api/documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return nil
	}
	in := dto.DocumentListRequest{
		Type:        c.Query("type"),
		State:       c.Query("state"),
		PageRequest: pageFromQuery(c),
	}
	out, err := h.uc.List(c.UserContext(), companyID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener documento
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return nil
	}
	out, err := h.uc.Get(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateLines godoc
// @Summary      Reemplazar líneas del documento
// @Description  Solo en borrador, o en rechazado para donaciones y compras.
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del documento"
// @Param        body  body  dto.UpdateDocumentRequest  true  "Nuevas líneas"
// @Success      200   {object}  dto.DocumentResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/lines [put]
func (h *DocumentHandler) UpdateLines(c *fiber.Ctx) error {
	companyID, userID, ok := identity(c)
	if !ok {
		return nil
	}
	var in dto.UpdateDocumentRequest
	if !bindAndValidate(c, &in) {
		return nil
	}
	out, err := h.uc.UpdateLines(c.UserContext(), companyID, userID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Status godoc
// @Summary      Estado y acciones disponibles
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentStatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/status [get]
func (h *DocumentHandler) Status(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return nil
	}
	out, err := h.uc.Status(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Movements godoc
// @Summary      Movimientos de kardex generados por el documento
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {array}   dto.MovementResponse
// @Router       /api/documents/{id}/movements [get]
func (h *DocumentHandler) Movements(c *fiber.Ctx) error {
	companyID, _, ok := identity(c)
	if !ok {
		return nil
	}
	out, err := h.uc.Movements(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Transition godoc
// @Summary      Aplicar un evento del flujo
// @Description  submit, approve, reject, fulfill, quick-fulfill o cancel. approve, reject y quick-fulfill exigen rol admin o supervisor.
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/{event} [post]
func (h *DocumentHandler) Transition(event workflow.Event) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, userID, ok := identity(c)
		if !ok {
			return nil
		}
		out, err := h.uc.Transition(c.UserContext(), companyID, userID, c.Params("id"), event)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(out)
	}
}
