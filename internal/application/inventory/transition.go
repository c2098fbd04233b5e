package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flujo/internal/application/dto"
	"github.com/jhoicas/inventario-flujo/internal/domain"
	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-flujo/internal/domain/inventory"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
)

// Submit Borrador/Rechazado -> Pendiente.
func (uc *DocumentUseCase) Submit(ctx context.Context, companyID, userID, id string) (*dto.DocumentResponse, error) {
	return uc.Transition(ctx, companyID, userID, id, workflow.EventSubmit)
}

// Approve Pendiente -> Aprobado. Notifica <tipo>.approved.
func (uc *DocumentUseCase) Approve(ctx context.Context, companyID, userID, id string) (*dto.DocumentResponse, error) {
	return uc.Transition(ctx, companyID, userID, id, workflow.EventApprove)
}

// Reject Pendiente -> Rechazado.
func (uc *DocumentUseCase) Reject(ctx context.Context, companyID, userID, id string) (*dto.DocumentResponse, error) {
	return uc.Transition(ctx, companyID, userID, id, workflow.EventReject)
}

// Fulfill Aprobado -> Cumplido (Despachado/Recibida/Transferido). Afecta stock.
func (uc *DocumentUseCase) Fulfill(ctx context.Context, companyID, userID, id string) (*dto.DocumentResponse, error) {
	return uc.Transition(ctx, companyID, userID, id, workflow.EventFulfill)
}

// QuickFulfill Borrador -> Cumplido sin aprobación; requiere la bandera Quick y un tipo que lo admita.
func (uc *DocumentUseCase) QuickFulfill(ctx context.Context, companyID, userID, id string) (*dto.DocumentResponse, error) {
	return uc.Transition(ctx, companyID, userID, id, workflow.EventQuickFulfill)
}

// Cancel Borrador/Pendiente/Aprobado/Rechazado -> Cancelado. Nunca desde Cumplido.
func (uc *DocumentUseCase) Cancel(ctx context.Context, companyID, userID, id string) (*dto.DocumentResponse, error) {
	return uc.Transition(ctx, companyID, userID, id, workflow.EventCancel)
}

type transitionResult struct {
	doc       *entity.Document
	policy    workflow.Policy
	from      workflow.State
	movements []*entity.Movement
}

// Transition aplica event al documento. Los conflictos de versión (ErrStaleWrite) se
// reintentan hasta cfg.MaxRetries; agotarlos devuelve ErrConflict. Errores de negocio
// (stock insuficiente, transición inválida) no se reintentan.
func (uc *DocumentUseCase) Transition(ctx context.Context, companyID, userID, id string, event workflow.Event) (*dto.DocumentResponse, error) {
	release, err := uc.locker.Lock(ctx, "lock:document:"+id, uc.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	var res *transitionResult
	for attempt := 1; ; attempt++ {
		res, err = uc.runTransition(ctx, companyID, userID, id, event)
		if !errors.Is(err, domain.ErrStaleWrite) {
			break
		}
		if attempt >= uc.cfg.MaxRetries {
			uc.log.Warn().
				Str("document_id", id).
				Str("event", string(event)).
				Int("attempts", attempt).
				Msg("reintentos agotados por concurrencia")
			return nil, fmt.Errorf("%w: reintentos agotados", domain.ErrConflict)
		}
		uc.log.Debug().
			Str("document_id", id).
			Str("event", string(event)).
			Int("attempt", attempt).
			Msg("conflicto de versión, reintentando")
		if err := sleepCtx(ctx, uc.cfg.RetryBackoff*time.Duration(attempt)); err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("document_id", res.doc.ID).
		Str("type", string(res.doc.Type)).
		Str("from", string(res.from)).
		Str("to", string(res.doc.State)).
		Str("event", string(event)).
		Int("movements", len(res.movements)).
		Msg("transición aplicada")
	uc.notifyTransition(ctx, res, userID)
	return toDocumentResponse(res.doc, res.policy), nil
}

func (uc *DocumentUseCase) runTransition(ctx context.Context, companyID, userID, id string, event workflow.Event) (*transitionResult, error) {
	var res *transitionResult
	err := uc.txRunner.Run(ctx, func(
		docRepo repository.DocumentRepository,
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
	) error {
		res = nil
		doc, err := docRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrNotFound
		}
		if doc.CompanyID != companyID {
			return domain.ErrForbidden
		}
		policy, err := workflow.PolicyFor(doc.Type)
		if err != nil {
			return err
		}
		to, err := workflow.Next(doc.State, event)
		if err != nil {
			return err
		}
		// La tabla solo admite quick-fulfill desde Borrador; aquí se valida la elegibilidad.
		if event == workflow.EventQuickFulfill {
			if err := policy.AllowQuick(doc.Quick); err != nil {
				return fmt.Errorf("%w: documento %s", err, doc.ID)
			}
		}

		now := uc.now()
		from := doc.State
		var movements []*entity.Movement
		if to.AffectsStock() {
			movements, err = applyStock(ctx, stockRepo, movRepo, doc, policy, userID, now)
			if err != nil {
				return err
			}
		}
		doc.State = to
		doc.StateChangedAt = now
		doc.StateChangedBy = userID
		doc.UpdatedAt = now
		if err := docRepo.Update(ctx, doc); err != nil {
			return err
		}
		res = &transitionResult{doc: doc, policy: policy, from: from, movements: movements}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// applyStock re-lee los saldos afectados (bloqueados en orden de clave), verifica que
// las salidas alcancen para todas las líneas y solo entonces escribe movimientos y saldos.
// Todo o nada: si una línea no alcanza no se escribe nada.
func applyStock(
	ctx context.Context,
	stockRepo repository.StockRepository,
	movRepo repository.MovementRepository,
	doc *entity.Document,
	policy workflow.Policy,
	userID string,
	now time.Time,
) ([]*entity.Movement, error) {
	keys := make(map[entity.StockKey]decimal.Decimal)
	var outNeed map[entity.StockKey]decimal.Decimal
	if policy.Outbound() {
		outNeed = doc.RequiredByKey(doc.OriginWarehouseID)
		for k, v := range outNeed {
			keys[k] = v
		}
	}
	if policy.Inbound() {
		for k, v := range doc.RequiredByKey(doc.DestinationWarehouseID) {
			keys[k] = v
		}
	}

	stocks := make(map[entity.StockKey]*entity.Stock, len(keys))
	versions := make(map[entity.StockKey]int64, len(keys))
	ordered := sortedKeys(keys)
	for _, k := range ordered {
		s, err := stockRepo.GetForUpdate(ctx, k.WarehouseID, k.ProductID)
		if err != nil {
			return nil, err
		}
		stocks[k] = s
		versions[k] = s.Version
	}
	for _, k := range sortedKeys(outNeed) {
		if stocks[k].Quantity.LessThan(outNeed[k]) {
			return nil, insufficient(k, stocks[k].Quantity, outNeed[k])
		}
	}

	movements := make([]*entity.Movement, 0, len(doc.Lines)*2)
	emit := func(l entity.LineItem, warehouseID string, delta decimal.Decimal) error {
		s := stocks[entity.StockKey{WarehouseID: warehouseID, ProductID: l.ProductID}]
		s.Quantity = s.Quantity.Add(delta)
		m := &entity.Movement{
			ID:           uuid.New().String(),
			CompanyID:    doc.CompanyID,
			DocumentID:   doc.ID,
			DocumentType: doc.Type,
			LineID:       l.ID,
			Type:         policy.MovementType,
			ProductID:    l.ProductID,
			WarehouseID:  warehouseID,
			Quantity:     delta,
			Balance:      s.Quantity,
			LotNumber:    l.LotNumber,
			CreatedAt:    now,
			CreatedBy:    userID,
		}
		if err := movRepo.Create(ctx, m); err != nil {
			return err
		}
		movements = append(movements, m)
		return nil
	}
	for _, l := range doc.Lines {
		if policy.Outbound() {
			if err := emit(l, doc.OriginWarehouseID, l.Quantity.Neg()); err != nil {
				return nil, err
			}
		}
		if policy.Inbound() {
			if err := emit(l, doc.DestinationWarehouseID, l.Quantity); err != nil {
				return nil, err
			}
		}
	}

	for _, k := range ordered {
		s := stocks[k]
		if s.Quantity.LessThan(decimal.Zero) {
			return nil, insufficient(k, s.Quantity, decimal.Zero)
		}
		s.UpdatedAt = now
		if err := stockRepo.CompareAndSwap(ctx, s, versions[k]); err != nil {
			return nil, err
		}
	}
	return movements, nil
}

func (uc *DocumentUseCase) notifyTransition(ctx context.Context, res *transitionResult, userID string) {
	now := uc.now()
	if topic := res.policy.Topic(res.doc.State); topic != "" {
		uc.publish(ctx, entity.Notification{
			ID:           uuid.New().String(),
			Topic:        topic,
			CompanyID:    res.doc.CompanyID,
			DocumentID:   res.doc.ID,
			DocumentType: string(res.doc.Type),
			State:        string(res.doc.State),
			UserID:       userID,
			CreatedAt:    now,
		})
	}
	if !res.policy.Outbound() {
		return
	}
	// Umbral de stock bajo: último saldo por (bodega, producto) de las salidas.
	last := make(map[entity.StockKey]decimal.Decimal)
	for _, m := range res.movements {
		if m.Quantity.IsNegative() {
			last[entity.StockKey{WarehouseID: m.WarehouseID, ProductID: m.ProductID}] = m.Balance
		}
	}
	for _, k := range sortedKeys(last) {
		product, err := uc.productRepo.GetByID(ctx, k.ProductID)
		if err != nil || product == nil {
			uc.log.Warn().Err(err).Str("product_id", k.ProductID).Msg("no se pudo leer el mínimo del producto")
			continue
		}
		balance := last[k]
		if !domaininv.BelowMinimum(balance, product.MinStock) {
			continue
		}
		minStock := product.MinStock
		uc.publish(ctx, entity.Notification{
			ID:           uuid.New().String(),
			Topic:        entity.TopicLowStock,
			CompanyID:    res.doc.CompanyID,
			DocumentID:   res.doc.ID,
			DocumentType: string(res.doc.Type),
			WarehouseID:  k.WarehouseID,
			ProductID:    k.ProductID,
			Balance:      &balance,
			MinStock:     &minStock,
			CreatedAt:    now,
		})
	}
}

func (uc *DocumentUseCase) publish(ctx context.Context, n entity.Notification) {
	if err := uc.notifier.Notify(ctx, n); err != nil {
		uc.log.Warn().Err(err).Str("topic", n.Topic).Str("document_id", n.DocumentID).Msg("notificación no encolada")
	}
}

func sortedKeys(m map[entity.StockKey]decimal.Decimal) []entity.StockKey {
	keys := make([]entity.StockKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
