package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-flujo/internal/application/dto"
	"github.com/jhoicas/inventario-flujo/internal/application/inventory"
	"github.com/jhoicas/inventario-flujo/internal/domain"
	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
	"github.com/jhoicas/inventario-flujo/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-flujo/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	company  = "c1"
	user     = "u1"
	whMain   = "w-main"
	whBranch = "w-branch"
	prodRice = "p-rice"
	prodOil  = "p-oil"
)

type recordingNotifier struct {
	mu    sync.Mutex
	items []entity.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, item entity.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
	return nil
}

func (n *recordingNotifier) topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.items))
	for _, i := range n.items {
		out = append(out, i.Topic)
	}
	return out
}

type fixture struct {
	store    *memory.Store
	uc       *inventory.DocumentUseCase
	stock    *inventory.StockUseCase
	notifier *recordingNotifier
}

func newFixture(t *testing.T, cfg inventory.WorkflowConfig) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, w := range []*entity.Warehouse{
		{ID: whMain, CompanyID: company, Code: "MAIN", Name: "Bodega principal", Active: true},
		{ID: whBranch, CompanyID: company, Code: "BR1", Name: "Sucursal", Active: true},
		{ID: "w-closed", CompanyID: company, Code: "OLD", Name: "Cerrada", Active: false},
		{ID: "w-other", CompanyID: "c2", Code: "X", Name: "Otra empresa", Active: true},
	} {
		require.NoError(t, store.Warehouses().Create(ctx, w))
	}
	for _, p := range []*entity.Product{
		{ID: prodRice, CompanyID: company, SKU: "ARROZ-1KG", Name: "Arroz 1kg", MinStock: decimal.NewFromInt(10)},
		{ID: prodOil, CompanyID: company, SKU: "ACEITE-1L", Name: "Aceite 1L"},
	} {
		require.NoError(t, store.Products().Create(ctx, p))
	}
	notifier := &recordingNotifier{}
	uc := inventory.NewDocumentUseCase(
		store, store.Documents(), store.Movements(), store.Stock(),
		store.Products(), store.Warehouses(), notifier, nil, logger.Nop(), cfg,
	)
	stockUC := inventory.NewStockUseCase(store.Stock(), store.Movements(), store.Products(), store.Warehouses())
	return &fixture{store: store, uc: uc, stock: stockUC, notifier: notifier}
}

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func (f *fixture) balance(t *testing.T, warehouseID, productID string) decimal.Decimal {
	t.Helper()
	s, err := f.store.Stock().Get(context.Background(), warehouseID, productID)
	require.NoError(t, err)
	return s.Quantity
}

func (f *fixture) movements(t *testing.T, docID string) []*entity.Movement {
	t.Helper()
	list, err := f.store.Movements().ListByDocument(context.Background(), docID)
	require.NoError(t, err)
	return list
}

func dispatchReq(quick bool, lines ...dto.LineItemRequest) dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		Type:              string(workflow.TypeDispatch),
		OriginWarehouseID: whMain,
		CounterpartyID:    "cliente-1",
		Quick:             quick,
		Lines:             lines,
	}
}

func line(productID string, q int64) dto.LineItemRequest {
	return dto.LineItemRequest{ProductID: productID, Quantity: qty(q)}
}

// approved crea un despacho y lo lleva hasta Aprobado.
func (f *fixture) approved(t *testing.T, lines ...dto.LineItemRequest) string {
	t.Helper()
	ctx := context.Background()
	doc, err := f.uc.Create(ctx, company, user, dispatchReq(false, lines...))
	require.NoError(t, err)
	_, err = f.uc.Submit(ctx, company, user, doc.ID)
	require.NoError(t, err)
	_, err = f.uc.Approve(ctx, company, user, doc.ID)
	require.NoError(t, err)
	return doc.ID
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo estándar
// ──────────────────────────────────────────────────────────────────────────────

func TestDespacho_100Menos20Queda80YSegundoFulfillEsInvalido(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	id := f.approved(t, line(prodRice, 20))
	doc, err := f.uc.Fulfill(ctx, company, user, id)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateFulfilled), doc.State)
	assert.Equal(t, "Despachado", doc.StateLabel)

	movs := f.movements(t, id)
	require.Len(t, movs, 1)
	assert.Equal(t, "sale", movs[0].Type)
	assert.True(t, movs[0].Quantity.Equal(qty(-20)))
	assert.True(t, movs[0].Balance.Equal(qty(80)))
	assert.True(t, f.balance(t, whMain, prodRice).Equal(qty(80)))

	_, err = f.uc.Fulfill(ctx, company, user, id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Len(t, f.movements(t, id), 1, "no se duplican movimientos")
	assert.True(t, f.balance(t, whMain, prodRice).Equal(qty(80)))
}

func TestDonacion_30Mas50Queda80(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 30)

	doc, err := f.uc.Create(ctx, company, user, dto.CreateDocumentRequest{
		Type:                   string(workflow.TypeDonation),
		DestinationWarehouseID: whMain,
		CounterpartyID:         "donante-1",
		Lines:                  []dto.LineItemRequest{line(prodRice, 50)},
	})
	require.NoError(t, err)
	for _, step := range []func(context.Context, string, string, string) (*dto.DocumentResponse, error){
		f.uc.Submit, f.uc.Approve, f.uc.Fulfill,
	} {
		doc, err = step(ctx, company, user, doc.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, "Recibida", doc.StateLabel)

	movs := f.movements(t, doc.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, "donation", movs[0].Type)
	assert.True(t, movs[0].Quantity.Equal(qty(50)))
	assert.True(t, f.balance(t, whMain, prodRice).Equal(qty(80)))
}

func TestTraslado_MueveEntreBodegasConDosMovimientos(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodOil, 100)

	doc, err := f.uc.Create(ctx, company, user, dto.CreateDocumentRequest{
		Type:                   string(workflow.TypeTransfer),
		OriginWarehouseID:      whMain,
		DestinationWarehouseID: whBranch,
		Lines:                  []dto.LineItemRequest{line(prodOil, 30)},
	})
	require.NoError(t, err)
	_, err = f.uc.Submit(ctx, company, user, doc.ID)
	require.NoError(t, err)
	_, err = f.uc.Approve(ctx, company, user, doc.ID)
	require.NoError(t, err)
	_, err = f.uc.Fulfill(ctx, company, user, doc.ID)
	require.NoError(t, err)

	assert.True(t, f.balance(t, whMain, prodOil).Equal(qty(70)))
	assert.True(t, f.balance(t, whBranch, prodOil).Equal(qty(30)))
	movs := f.movements(t, doc.ID)
	require.Len(t, movs, 2)
	assert.True(t, movs[0].Quantity.Equal(qty(-30)))
	assert.True(t, movs[1].Quantity.Equal(qty(30)))
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones inválidas y estados terminales
// ──────────────────────────────────────────────────────────────────────────────

func TestTransicionInvalida_NoCambiaEstadoNiStock(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	doc, err := f.uc.Create(ctx, company, user, dispatchReq(false, line(prodRice, 10)))
	require.NoError(t, err)

	for _, step := range []func(context.Context, string, string, string) (*dto.DocumentResponse, error){
		f.uc.Approve, f.uc.Fulfill, f.uc.Reject,
	} {
		_, err := step(ctx, company, user, doc.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	}
	got, err := f.uc.Get(ctx, company, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateDraft), got.State)
	assert.True(t, f.balance(t, whMain, prodRice).Equal(qty(100)))
	assert.Empty(t, f.movements(t, doc.ID))
}

func TestCancelar_SinMovimientosYProhibidoDesdeFulfilled(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	cancelled := f.approved(t, line(prodRice, 10))
	doc, err := f.uc.Cancel(ctx, company, user, cancelled)
	require.NoError(t, err)
	assert.Equal(t, "Cancelado", doc.StateLabel)
	assert.Empty(t, f.movements(t, cancelled))
	_, err = f.uc.Fulfill(ctx, company, user, cancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	fulfilled := f.approved(t, line(prodRice, 10))
	_, err = f.uc.Fulfill(ctx, company, user, fulfilled)
	require.NoError(t, err)
	_, err = f.uc.Cancel(ctx, company, user, fulfilled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Len(t, f.movements(t, fulfilled), 1)
	assert.True(t, f.balance(t, whMain, prodRice).Equal(qty(90)))
}

func TestRechazo_ReenvioDesdeRechazado(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	doc, err := f.uc.Create(ctx, company, user, dispatchReq(false, line(prodRice, 10)))
	require.NoError(t, err)
	_, err = f.uc.Submit(ctx, company, user, doc.ID)
	require.NoError(t, err)
	rejected, err := f.uc.Reject(ctx, company, user, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rechazado", rejected.StateLabel)

	again, err := f.uc.Submit(ctx, company, user, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatePending), again.State)
}

// ──────────────────────────────────────────────────────────────────────────────
// Stock insuficiente
// ──────────────────────────────────────────────────────────────────────────────

func TestCrear_ValidaStockDisponibleSumandoLineas(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	_, err := f.uc.Create(ctx, company, user, dispatchReq(false, line(prodRice, 200)))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = f.uc.Create(ctx, company, user, dispatchReq(false, line(prodRice, 60), line(prodRice, 60)))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = f.uc.Create(ctx, company, user, dispatchReq(false, line(prodRice, 60), line(prodRice, 40)))
	assert.NoError(t, err)
}

func TestFulfill_TodoONadaConStockConsumidoPorOtroDocumento(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)
	f.store.Stock().Seed(whMain, prodOil, 5)

	id := f.approved(t, line(prodRice, 20), line(prodOil, 5))

	other, err := f.uc.Create(ctx, company, user, dispatchReq(true, line(prodOil, 5)))
	require.NoError(t, err)
	_, err = f.uc.QuickFulfill(ctx, company, user, other.ID)
	require.NoError(t, err)

	_, err = f.uc.Fulfill(ctx, company, user, id)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := f.uc.Get(ctx, company, id)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateApproved), got.State)
	assert.Empty(t, f.movements(t, id))
	assert.True(t, f.balance(t, whMain, prodRice).Equal(qty(100)), "ninguna línea se aplica parcialmente")
	assert.True(t, f.balance(t, whMain, prodOil).IsZero())
}

func TestFulfill_ConcurrenteNuncaDejaSaldoNegativo(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{MaxRetries: 200, RetryBackoff: time.Millisecond})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	const docs = 10
	ids := make([]string, 0, docs)
	for i := 0; i < docs; i++ {
		ids = append(ids, f.approved(t, line(prodRice, 20)))
	}

	var wg sync.WaitGroup
	errs := make([]error, docs)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.uc.Fulfill(ctx, company, user, id)
		}(i, id)
	}
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}
	}
	assert.LessOrEqual(t, succeeded, 5)
	if conflicts == 0 {
		assert.Equal(t, 5, succeeded, "con reintentos suficientes se consume todo el stock")
	}

	final := f.balance(t, whMain, prodRice)
	assert.False(t, final.IsNegative())
	assert.True(t, final.Equal(qty(100-20*int64(succeeded))))

	total := 0
	for _, id := range ids {
		movs := f.movements(t, id)
		got, err := f.uc.Get(ctx, company, id)
		require.NoError(t, err)
		if got.State == string(workflow.StateFulfilled) {
			assert.Len(t, movs, 1)
		} else {
			assert.Empty(t, movs, "sin movimiento si no está cumplido")
		}
		total += len(movs)
	}
	assert.Equal(t, succeeded, total)
}

// ──────────────────────────────────────────────────────────────────────────────
// Edición y flujo rápido
// ──────────────────────────────────────────────────────────────────────────────

func TestEdicion_SoloEnBorrador(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	doc, err := f.uc.Create(ctx, company, user, dispatchReq(false, line(prodRice, 10)))
	require.NoError(t, err)

	notes := "entregar en la mañana"
	edited, err := f.uc.UpdateLines(ctx, company, user, doc.ID, dto.UpdateDocumentRequest{
		Notes: &notes,
		Lines: []dto.LineItemRequest{line(prodRice, 15), line(prodRice, 5)},
	})
	require.NoError(t, err)
	assert.Len(t, edited.Lines, 2)
	assert.Equal(t, notes, edited.Notes)
	assert.True(t, edited.TotalQuantity.Equal(qty(20)))

	_, err = f.uc.Submit(ctx, company, user, doc.ID)
	require.NoError(t, err)
	_, err = f.uc.UpdateLines(ctx, company, user, doc.ID, dto.UpdateDocumentRequest{Lines: []dto.LineItemRequest{line(prodRice, 1)}})
	assert.ErrorIs(t, err, domain.ErrEditNotAllowed)

	_, err = f.uc.Approve(ctx, company, user, doc.ID)
	require.NoError(t, err)
	_, err = f.uc.UpdateLines(ctx, company, user, doc.ID, dto.UpdateDocumentRequest{Lines: []dto.LineItemRequest{line(prodRice, 1)}})
	assert.ErrorIs(t, err, domain.ErrEditNotAllowed)

	_, err = f.uc.Fulfill(ctx, company, user, doc.ID)
	require.NoError(t, err)
	_, err = f.uc.UpdateLines(ctx, company, user, doc.ID, dto.UpdateDocumentRequest{Lines: []dto.LineItemRequest{line(prodRice, 1)}})
	assert.ErrorIs(t, err, domain.ErrEditNotAllowed)
}

func TestEdicion_RechazadoSoloParaEntradas(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	donation, err := f.uc.Create(ctx, company, user, dto.CreateDocumentRequest{
		Type:                   string(workflow.TypeDonation),
		DestinationWarehouseID: whMain,
		Lines:                  []dto.LineItemRequest{line(prodRice, 5)},
	})
	require.NoError(t, err)
	_, err = f.uc.Submit(ctx, company, user, donation.ID)
	require.NoError(t, err)
	_, err = f.uc.Reject(ctx, company, user, donation.ID)
	require.NoError(t, err)
	_, err = f.uc.UpdateLines(ctx, company, user, donation.ID, dto.UpdateDocumentRequest{Lines: []dto.LineItemRequest{line(prodRice, 8)}})
	assert.NoError(t, err)

	dispatch, err := f.uc.Create(ctx, company, user, dispatchReq(false, line(prodRice, 5)))
	require.NoError(t, err)
	_, err = f.uc.Submit(ctx, company, user, dispatch.ID)
	require.NoError(t, err)
	_, err = f.uc.Reject(ctx, company, user, dispatch.ID)
	require.NoError(t, err)
	_, err = f.uc.UpdateLines(ctx, company, user, dispatch.ID, dto.UpdateDocumentRequest{Lines: []dto.LineItemRequest{line(prodRice, 8)}})
	assert.ErrorIs(t, err, domain.ErrEditNotAllowed)
}

func TestQuickFulfill_SinBanderaNoPermitido(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	doc, err := f.uc.Create(ctx, company, user, dispatchReq(false, line(prodRice, 10)))
	require.NoError(t, err)
	_, err = f.uc.QuickFulfill(ctx, company, user, doc.ID)
	assert.ErrorIs(t, err, domain.ErrQuickWorkflowNotPermitted)

	got, err := f.uc.Get(ctx, company, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateDraft), got.State)
	assert.True(t, f.balance(t, whMain, prodRice).Equal(qty(100)))
}

func TestQuickFulfill_ConBanderaDesdeBorrador(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	doc, err := f.uc.Create(ctx, company, user, dispatchReq(true, line(prodRice, 10)))
	require.NoError(t, err)
	status, err := f.uc.Status(ctx, company, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"submit", "quick-fulfill", "cancel"}, status.Actions)
	assert.True(t, status.Editable)

	_, err = f.uc.QuickFulfill(ctx, company, user, doc.ID)
	require.NoError(t, err)
	assert.True(t, f.balance(t, whMain, prodRice).Equal(qty(90)))

	status, err = f.uc.Status(ctx, company, doc.ID)
	require.NoError(t, err)
	assert.True(t, status.Terminal)
	assert.False(t, status.Editable)
	assert.Empty(t, status.Actions)
	assert.Equal(t, "Despachado", status.Label)
}

func TestQuickFulfill_FueraDeBorradorEsTransicionInvalida(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	id := f.approved(t, line(prodRice, 20))
	_, err := f.uc.QuickFulfill(ctx, company, user, id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NotErrorIs(t, err, domain.ErrQuickWorkflowNotPermitted)

	_, err = f.uc.Fulfill(ctx, company, user, id)
	require.NoError(t, err)
	_, err = f.uc.QuickFulfill(ctx, company, user, id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	quick, err := f.uc.Create(ctx, company, user, dispatchReq(true, line(prodRice, 5)))
	require.NoError(t, err)
	_, err = f.uc.Submit(ctx, company, user, quick.ID)
	require.NoError(t, err)
	_, err = f.uc.QuickFulfill(ctx, company, user, quick.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "con bandera tampoco aplica desde Pendiente")
	assert.True(t, f.balance(t, whMain, prodRice).Equal(qty(80)))
}

func TestQuickFulfill_TipoQueExigeAprobacion(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodOil, 100)

	req := dto.CreateDocumentRequest{
		Type:                   string(workflow.TypeTransfer),
		OriginWarehouseID:      whMain,
		DestinationWarehouseID: whBranch,
		Quick:                  true,
		Lines:                  []dto.LineItemRequest{line(prodOil, 10)},
	}
	_, err := f.uc.Create(ctx, company, user, req)
	assert.ErrorIs(t, err, domain.ErrQuickWorkflowNotPermitted)

	req.Quick = false
	doc, err := f.uc.Create(ctx, company, user, req)
	require.NoError(t, err)
	quick := true
	_, err = f.uc.UpdateLines(ctx, company, user, doc.ID, dto.UpdateDocumentRequest{
		Quick: &quick,
		Lines: []dto.LineItemRequest{line(prodOil, 10)},
	})
	assert.ErrorIs(t, err, domain.ErrQuickWorkflowNotPermitted)

	status, err := f.uc.Status(ctx, company, doc.ID)
	require.NoError(t, err)
	assert.NotContains(t, status.Actions, "quick-fulfill")
	_, err = f.uc.QuickFulfill(ctx, company, user, doc.ID)
	assert.ErrorIs(t, err, domain.ErrQuickWorkflowNotPermitted)
}

// ──────────────────────────────────────────────────────────────────────────────
// Notificaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestNotificaciones_AprobacionCumplimientoYStockBajo(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 25)

	id := f.approved(t, line(prodRice, 20))
	_, err := f.uc.Fulfill(ctx, company, user, id)
	require.NoError(t, err)

	assert.Equal(t, []string{"dispatch.approved", "dispatch.fulfilled", entity.TopicLowStock}, f.notifier.topics())
	low := f.notifier.items[2]
	assert.Equal(t, prodRice, low.ProductID)
	assert.True(t, low.Balance.Equal(qty(5)))
	assert.True(t, low.MinStock.Equal(qty(10)))
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, entity.Notification) error {
	return errors.New("redis caído")
}

func TestNotificacionFallida_NoAfectaLaTransicion(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{ID: whMain, CompanyID: company, Active: true}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{ID: prodRice, CompanyID: company, SKU: "A", MinStock: qty(1000)}))
	store.Stock().Seed(whMain, prodRice, 50)
	uc := inventory.NewDocumentUseCase(store, store.Documents(), store.Movements(), store.Stock(),
		store.Products(), store.Warehouses(), failingNotifier{}, nil, nil, inventory.WorkflowConfig{})

	doc, err := uc.Create(ctx, company, user, dispatchReq(true, line(prodRice, 10)))
	require.NoError(t, err)
	got, err := uc.QuickFulfill(ctx, company, user, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StateFulfilled), got.State)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia, candados y permisos
// ──────────────────────────────────────────────────────────────────────────────

type staleTxRunner struct {
	attempts int
}

func (r *staleTxRunner) Run(context.Context, func(repository.DocumentRepository, repository.MovementRepository, repository.StockRepository) error) error {
	r.attempts++
	return domain.ErrStaleWrite
}

func TestTransition_ReintentosAgotadosDevuelveConflict(t *testing.T) {
	store := memory.NewStore()
	runner := &staleTxRunner{}
	uc := inventory.NewDocumentUseCase(runner, store.Documents(), store.Movements(), store.Stock(),
		store.Products(), store.Warehouses(), nil, nil, nil,
		inventory.WorkflowConfig{MaxRetries: 3, RetryBackoff: time.Microsecond})

	_, err := uc.Fulfill(context.Background(), company, user, "d1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 3, runner.attempts)
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrConflict
}

func TestTransition_DocumentoBloqueadoPorOtroProceso(t *testing.T) {
	store := memory.NewStore()
	uc := inventory.NewDocumentUseCase(store, store.Documents(), store.Movements(), store.Stock(),
		store.Products(), store.Warehouses(), nil, busyLocker{}, nil, inventory.WorkflowConfig{})
	_, err := uc.Submit(context.Background(), company, user, "d1")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPermisos_OtraEmpresaYNoEncontrado(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	doc, err := f.uc.Create(ctx, company, user, dispatchReq(false, line(prodRice, 1)))
	require.NoError(t, err)

	_, err = f.uc.Get(ctx, "c2", doc.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.uc.Submit(ctx, "c2", user, doc.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.uc.Submit(ctx, company, user, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.Create(ctx, company, user, dto.CreateDocumentRequest{
		Type: string(workflow.TypeDispatch), OriginWarehouseID: "w-closed",
		Lines: []dto.LineItemRequest{line(prodRice, 1)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.uc.Create(ctx, company, user, dto.CreateDocumentRequest{
		Type: string(workflow.TypeDispatch), OriginWarehouseID: "w-other",
		Lines: []dto.LineItemRequest{line(prodRice, 1)},
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.uc.Create(ctx, company, user, dispatchReq(false, line("p-missing", 1)))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas de stock
// ──────────────────────────────────────────────────────────────────────────────

func TestLowStockList_OrdenaPorDeficit(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	require.NoError(t, f.store.Products().Create(ctx, &entity.Product{ID: "p-salt", CompanyID: company, SKU: "SAL", MinStock: qty(100)}))
	f.store.Stock().Seed(whMain, prodRice, 8)  // déficit 20%
	f.store.Stock().Seed(whMain, "p-salt", 10) // déficit 90%
	f.store.Stock().Seed(whMain, prodOil, 1)   // sin mínimo

	list, err := f.stock.LowStockList(ctx, company, whMain)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p-salt", list[0].ProductID)
	assert.Equal(t, 1, list[0].Priority)
	assert.True(t, list[0].SuggestedOrderQty.Equal(qty(140)))
	assert.Equal(t, prodRice, list[1].ProductID)
	assert.True(t, list[1].SuggestedOrderQty.Equal(qty(7)))

	_, err = f.stock.LowStockList(ctx, company, "w-other")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestMovementsByProduct_Kardex(t *testing.T) {
	f := newFixture(t, inventory.WorkflowConfig{})
	ctx := context.Background()
	f.store.Stock().Seed(whMain, prodRice, 100)

	for i := 0; i < 3; i++ {
		doc, err := f.uc.Create(ctx, company, user, dispatchReq(true, line(prodRice, 10)))
		require.NoError(t, err)
		_, err = f.uc.QuickFulfill(ctx, company, user, doc.ID)
		require.NoError(t, err)
	}
	list, err := f.stock.MovementsByProduct(ctx, company, prodRice, nil, nil, dto.PageRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Balance.Equal(qty(70)), "más reciente primero")

	bal, err := f.stock.Balance(ctx, company, whMain, prodRice)
	require.NoError(t, err)
	assert.True(t, bal.Quantity.Equal(qty(70)))
}
