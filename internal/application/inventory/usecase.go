package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flujo/internal/application/dto"
	"github.com/jhoicas/inventario-flujo/internal/domain"
	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-flujo/internal/domain/inventory"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
	"github.com/jhoicas/inventario-flujo/pkg/logger"
)

// WorkflowConfig parámetros del motor de transiciones.
type WorkflowConfig struct {
	MaxRetries   int           // intentos ante conflicto de versión en stock/documento
	RetryBackoff time.Duration // espera base entre intentos (lineal)
	LockTTL      time.Duration // vida del candado por documento
}

func (c WorkflowConfig) withDefaults() WorkflowConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 5 * time.Millisecond
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 15 * time.Second
	}
	return c
}

// DocumentUseCase gestiona el ciclo de vida de los documentos de inventario:
// creación y edición en borrador, transiciones de estado y afectación de stock
// exactamente una vez al entrar a fulfilled.
type DocumentUseCase struct {
	txRunner      TxRunner
	docRepo       repository.DocumentRepository
	movRepo       repository.MovementRepository
	stockRepo     repository.StockRepository
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	notifier      Notifier
	locker        DocumentLocker
	log           *logger.Logger
	cfg           WorkflowConfig
	now           func() time.Time
}

// NewDocumentUseCase construye el caso de uso. notifier y locker pueden ser nil.
func NewDocumentUseCase(
	txRunner TxRunner,
	docRepo repository.DocumentRepository,
	movRepo repository.MovementRepository,
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	notifier Notifier,
	locker DocumentLocker,
	log *logger.Logger,
	cfg WorkflowConfig,
) *DocumentUseCase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if locker == nil {
		locker = nopLocker{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentUseCase{
		txRunner:      txRunner,
		docRepo:       docRepo,
		movRepo:       movRepo,
		stockRepo:     stockRepo,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		notifier:      notifier,
		locker:        locker,
		log:           log.Component("documents"),
		cfg:           cfg.withDefaults(),
		now:           time.Now,
	}
}

// Create valida y guarda un documento nuevo en estado Borrador.
func (uc *DocumentUseCase) Create(ctx context.Context, companyID, userID string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if companyID == "" {
		return nil, domain.ErrInvalidInput
	}
	policy, err := workflow.PolicyFor(workflow.DocumentType(in.Type))
	if err != nil {
		return nil, err
	}
	if err := policy.ValidateWarehouses(in.OriginWarehouseID, in.DestinationWarehouseID); err != nil {
		return nil, err
	}
	if err := uc.checkWarehouses(ctx, companyID, policy, in.OriginWarehouseID, in.DestinationWarehouseID); err != nil {
		return nil, err
	}
	if in.Quick && !policy.QuickAllowed {
		return nil, policy.AllowQuick(true)
	}

	now := uc.now()
	doc := &entity.Document{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		Type:           policy.Type,
		State:          workflow.StateDraft,
		CounterpartyID: in.CounterpartyID,
		Notes:          in.Notes,
		Quick:          in.Quick,
		Lines:          buildLines(in.Lines),
		CreatedAt:      now,
		CreatedBy:      userID,
		UpdatedAt:      now,
		StateChangedAt: now,
		StateChangedBy: userID,
	}
	if policy.Outbound() {
		doc.OriginWarehouseID = in.OriginWarehouseID
	}
	if policy.Inbound() {
		doc.DestinationWarehouseID = in.DestinationWarehouseID
	}
	if err := uc.validateLines(ctx, doc, policy); err != nil {
		return nil, err
	}
	if err := uc.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("document_id", doc.ID).
		Str("type", string(doc.Type)).
		Int("lines", len(doc.Lines)).
		Msg("documento creado")
	return toDocumentResponse(doc, policy), nil
}

// Get obtiene un documento de la empresa.
func (uc *DocumentUseCase) Get(ctx context.Context, companyID, id string) (*dto.DocumentResponse, error) {
	doc, policy, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, policy), nil
}

// List lista documentos de la empresa filtrando por tipo y estado.
func (uc *DocumentUseCase) List(ctx context.Context, companyID string, in dto.DocumentListRequest) (*dto.DocumentListResponse, error) {
	in.DefaultPage()
	filter := repository.DocumentFilter{
		CompanyID: companyID,
		Type:      workflow.DocumentType(in.Type),
		State:     workflow.State(in.State),
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	if filter.Type != "" {
		if _, err := workflow.PolicyFor(filter.Type); err != nil {
			return nil, err
		}
	}
	if filter.State != "" && !filter.State.Valid() {
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, in.State)
	}
	list, err := uc.docRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := uc.docRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.DocumentResponse, 0, len(list))
	for _, doc := range list {
		policy, err := workflow.PolicyFor(doc.Type)
		if err != nil {
			return nil, err
		}
		items = append(items, *toDocumentResponse(doc, policy))
	}
	return &dto.DocumentListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}

// UpdateLines edita cabecera y reemplaza las líneas. Solo en estados editables
// (Borrador; Rechazado para documentos de entrada), si no ErrEditNotAllowed.
func (uc *DocumentUseCase) UpdateLines(ctx context.Context, companyID, userID, id string, in dto.UpdateDocumentRequest) (*dto.DocumentResponse, error) {
	doc, policy, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !policy.Editable(doc.State) {
		return nil, fmt.Errorf("%w: estado %s", domain.ErrEditNotAllowed, policy.Label(doc.State))
	}
	if in.CounterpartyID != nil {
		doc.CounterpartyID = *in.CounterpartyID
	}
	if in.Notes != nil {
		doc.Notes = *in.Notes
	}
	if in.Quick != nil {
		if *in.Quick && !policy.QuickAllowed {
			return nil, policy.AllowQuick(true)
		}
		doc.Quick = *in.Quick
	}
	doc.Lines = buildLines(in.Lines)
	if err := uc.validateLines(ctx, doc, policy); err != nil {
		return nil, err
	}
	doc.UpdatedAt = uc.now()
	if err := uc.docRepo.Update(ctx, doc); err != nil {
		if errors.Is(err, domain.ErrStaleWrite) {
			return nil, fmt.Errorf("%w: el documento cambió durante la edición", domain.ErrConflict)
		}
		return nil, err
	}
	uc.log.Info().
		Str("document_id", doc.ID).
		Str("user_id", userID).
		Int("lines", len(doc.Lines)).
		Msg("líneas actualizadas")
	return toDocumentResponse(doc, policy), nil
}

// Status estado actual, etiqueta y acciones habilitadas del documento.
func (uc *DocumentUseCase) Status(ctx context.Context, companyID, id string) (*dto.DocumentStatusResponse, error) {
	doc, policy, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	events := workflow.AllowedEvents(doc.State, policy.QuickEnabled(doc.Quick))
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, string(e))
	}
	return &dto.DocumentStatusResponse{
		ID:       doc.ID,
		Type:     string(doc.Type),
		State:    string(doc.State),
		Label:    policy.Label(doc.State),
		Terminal: doc.State.Terminal(),
		Editable: policy.Editable(doc.State),
		Quick:    doc.Quick,
		Actions:  actions,
	}, nil
}

// Movements movimientos del kardex generados por el documento.
func (uc *DocumentUseCase) Movements(ctx context.Context, companyID, id string) ([]dto.MovementResponse, error) {
	if _, _, err := uc.load(ctx, companyID, id); err != nil {
		return nil, err
	}
	list, err := uc.movRepo.ListByDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return toMovementResponses(list), nil
}

func (uc *DocumentUseCase) load(ctx context.Context, companyID, id string) (*entity.Document, workflow.Policy, error) {
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, workflow.Policy{}, err
	}
	if doc == nil {
		return nil, workflow.Policy{}, domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return nil, workflow.Policy{}, domain.ErrForbidden
	}
	policy, err := workflow.PolicyFor(doc.Type)
	if err != nil {
		return nil, workflow.Policy{}, err
	}
	return doc, policy, nil
}

func (uc *DocumentUseCase) checkWarehouses(ctx context.Context, companyID string, policy workflow.Policy, originID, destinationID string) error {
	ids := make([]string, 0, 2)
	if policy.Outbound() {
		ids = append(ids, originID)
	}
	if policy.Inbound() {
		ids = append(ids, destinationID)
	}
	for _, id := range ids {
		wh, err := uc.warehouseRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if wh == nil {
			return fmt.Errorf("%w: bodega %s", domain.ErrNotFound, id)
		}
		if wh.CompanyID != companyID {
			return domain.ErrForbidden
		}
		if !wh.Active {
			return fmt.Errorf("%w: bodega %s inactiva", domain.ErrInvalidInput, wh.Code)
		}
	}
	return nil
}

// validateLines verifica productos, cantidades y, en documentos de salida,
// que la suma por producto no supere el stock disponible en la bodega origen.
// Es una lectura sin bloqueo; la verificación definitiva ocurre al cumplir.
func (uc *DocumentUseCase) validateLines(ctx context.Context, doc *entity.Document, policy workflow.Policy) error {
	if len(doc.Lines) == 0 {
		return fmt.Errorf("%w: el documento requiere al menos una línea", domain.ErrInvalidInput)
	}
	for _, l := range doc.Lines {
		if l.ProductID == "" || !l.Quantity.GreaterThan(decimal.Zero) {
			return fmt.Errorf("%w: línea %d con producto o cantidad inválidos", domain.ErrInvalidInput, l.Position)
		}
		if l.EstimatedValue != nil && l.EstimatedValue.LessThan(decimal.Zero) {
			return fmt.Errorf("%w: línea %d con valor estimado negativo", domain.ErrInvalidInput, l.Position)
		}
		product, err := uc.productRepo.GetByID(ctx, l.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, l.ProductID)
		}
		if product.CompanyID != doc.CompanyID {
			return domain.ErrForbidden
		}
	}
	if !policy.Outbound() {
		return nil
	}
	required := doc.RequiredByKey(doc.OriginWarehouseID)
	for _, k := range sortedKeys(required) {
		need := required[k]
		stock, err := uc.stockRepo.Get(ctx, k.WarehouseID, k.ProductID)
		if err != nil {
			return err
		}
		if stock.Quantity.LessThan(need) {
			return insufficient(k, stock.Quantity, need)
		}
	}
	return nil
}

func buildLines(in []dto.LineItemRequest) []entity.LineItem {
	lines := make([]entity.LineItem, 0, len(in))
	for i, l := range in {
		lines = append(lines, entity.LineItem{
			ID:             uuid.New().String(),
			Position:       i + 1,
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			LotNumber:      l.LotNumber,
			ExpiresAt:      l.ExpiresAt,
			EstimatedValue: l.EstimatedValue,
		})
	}
	return lines
}

func insufficient(k entity.StockKey, available, required decimal.Decimal) error {
	return fmt.Errorf("%w: producto %s en bodega %s (disponible %s, requerido %s)",
		domain.ErrInsufficientStock, k.ProductID, k.WarehouseID, available.String(), required.String())
}

func toDocumentResponse(doc *entity.Document, policy workflow.Policy) *dto.DocumentResponse {
	lines := make([]dto.LineItemResponse, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		lines = append(lines, dto.LineItemResponse{
			ID:             l.ID,
			Position:       l.Position,
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			LotNumber:      l.LotNumber,
			ExpiresAt:      l.ExpiresAt,
			EstimatedValue: l.EstimatedValue,
		})
	}
	return &dto.DocumentResponse{
		ID:                     doc.ID,
		CompanyID:              doc.CompanyID,
		Type:                   string(doc.Type),
		State:                  string(doc.State),
		StateLabel:             policy.Label(doc.State),
		OriginWarehouseID:      doc.OriginWarehouseID,
		DestinationWarehouseID: doc.DestinationWarehouseID,
		CounterpartyID:         doc.CounterpartyID,
		Notes:                  doc.Notes,
		Quick:                  doc.Quick,
		Lines:                  lines,
		TotalQuantity:          domaininv.TotalQuantity(doc.Lines),
		EstimatedTotal:         domaininv.EstimatedTotal(doc.Lines),
		CreatedAt:              doc.CreatedAt,
		CreatedBy:              doc.CreatedBy,
		UpdatedAt:              doc.UpdatedAt,
		StateChangedAt:         doc.StateChangedAt,
		StateChangedBy:         doc.StateChangedBy,
	}
}

func toMovementResponses(list []*entity.Movement) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, dto.MovementResponse{
			ID:           m.ID,
			DocumentID:   m.DocumentID,
			DocumentType: string(m.DocumentType),
			LineID:       m.LineID,
			Type:         m.Type,
			ProductID:    m.ProductID,
			WarehouseID:  m.WarehouseID,
			Quantity:     m.Quantity,
			Balance:      m.Balance,
			LotNumber:    m.LotNumber,
			CreatedAt:    m.CreatedAt,
			CreatedBy:    m.CreatedBy,
		})
	}
	return out
}
