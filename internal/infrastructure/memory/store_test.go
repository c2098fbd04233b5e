package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-flujo/internal/domain"
	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
)

func TestRun_CommitAplicaTodoORollback(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Stock().Seed("w1", "p1", 10)

	errBoom := errors.New("boom")
	err := s.Run(ctx, func(_ repository.DocumentRepository, movRepo repository.MovementRepository, stockRepo repository.StockRepository) error {
		st, err := stockRepo.GetForUpdate(ctx, "w1", "p1")
		require.NoError(t, err)
		st.Quantity = st.Quantity.Sub(decimal.NewFromInt(3))
		require.NoError(t, stockRepo.CompareAndSwap(ctx, st, st.Version))
		require.NoError(t, movRepo.Create(ctx, &entity.Movement{ID: "m1", DocumentID: "d1", ProductID: "p1"}))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	st, _ := s.Stock().Get(ctx, "w1", "p1")
	assert.True(t, st.Quantity.Equal(decimal.NewFromInt(10)), "rollback no debe tocar el saldo")
	movs, _ := s.Movements().ListByDocument(ctx, "d1")
	assert.Empty(t, movs)
}

func TestRun_LeeSusPropiasEscrituras(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Stock().Seed("w1", "p1", 10)

	err := s.Run(ctx, func(_ repository.DocumentRepository, _ repository.MovementRepository, stockRepo repository.StockRepository) error {
		st, _ := stockRepo.GetForUpdate(ctx, "w1", "p1")
		v := st.Version
		st.Quantity = decimal.NewFromInt(4)
		require.NoError(t, stockRepo.CompareAndSwap(ctx, st, v))

		again, _ := stockRepo.Get(ctx, "w1", "p1")
		assert.True(t, again.Quantity.Equal(decimal.NewFromInt(4)))
		assert.Equal(t, v+1, again.Version)
		return nil
	})
	require.NoError(t, err)
}

func TestRun_VersionVencidaFallaConStaleWrite(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Stock().Seed("w1", "p1", 10)

	err := s.Run(ctx, func(_ repository.DocumentRepository, _ repository.MovementRepository, stockRepo repository.StockRepository) error {
		st, _ := stockRepo.GetForUpdate(ctx, "w1", "p1")
		expected := st.Version

		// Otra escritura gana mientras la transacción está abierta.
		s.Stock().Seed("w1", "p1", 1)

		st.Quantity = st.Quantity.Sub(decimal.NewFromInt(5))
		return stockRepo.CompareAndSwap(ctx, st, expected)
	})
	require.ErrorIs(t, err, domain.ErrStaleWrite)

	st, _ := s.Stock().Get(ctx, "w1", "p1")
	assert.True(t, st.Quantity.Equal(decimal.NewFromInt(11)))
}

func TestDocumentRepo_UpdateConVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	docs := s.Documents()

	doc := &entity.Document{ID: "d1", CompanyID: "c1", Type: workflow.TypeDispatch, State: workflow.StateDraft}
	require.NoError(t, docs.Create(ctx, doc))
	assert.Equal(t, int64(1), doc.Version)
	assert.ErrorIs(t, docs.Create(ctx, doc), domain.ErrDuplicate)

	a, _ := docs.GetByID(ctx, "d1")
	b, _ := docs.GetByID(ctx, "d1")
	a.Notes = "primero"
	require.NoError(t, docs.Update(ctx, a))
	b.Notes = "segundo"
	assert.ErrorIs(t, docs.Update(ctx, b), domain.ErrStaleWrite)

	got, _ := docs.GetByID(ctx, "d1")
	assert.Equal(t, "primero", got.Notes)
	assert.Equal(t, int64(2), got.Version)

	missing, err := docs.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentRepo_ListFiltraYPagina(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	docs := s.Documents()
	for _, d := range []*entity.Document{
		{ID: "a", CompanyID: "c1", Type: workflow.TypeDispatch, State: workflow.StateDraft},
		{ID: "b", CompanyID: "c1", Type: workflow.TypeDonation, State: workflow.StateDraft},
		{ID: "c", CompanyID: "c1", Type: workflow.TypeDispatch, State: workflow.StatePending},
		{ID: "d", CompanyID: "c2", Type: workflow.TypeDispatch, State: workflow.StateDraft},
	} {
		require.NoError(t, docs.Create(ctx, d))
	}

	list, err := docs.List(ctx, repository.DocumentFilter{CompanyID: "c1", Type: workflow.TypeDispatch})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	drafts := repository.DocumentFilter{CompanyID: "c1", State: workflow.StateDraft, Limit: 1}
	list, _ = docs.List(ctx, drafts)
	assert.Len(t, list, 1)
	n, err := docs.Count(ctx, drafts)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "el conteo ignora la paginación")

	list, _ = docs.List(ctx, repository.DocumentFilter{CompanyID: "c1", Offset: 10})
	assert.Empty(t, list)
	n, _ = docs.Count(ctx, repository.DocumentFilter{CompanyID: "c3"})
	assert.Zero(t, n)
}

func TestProductRepo_SKUUnicoPorEmpresa(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	products := s.Products()
	require.NoError(t, products.Create(ctx, &entity.Product{ID: "p1", CompanyID: "c1", SKU: "ARROZ"}))
	assert.ErrorIs(t, products.Create(ctx, &entity.Product{ID: "p2", CompanyID: "c1", SKU: "ARROZ"}), domain.ErrDuplicate)
	require.NoError(t, products.Create(ctx, &entity.Product{ID: "p3", CompanyID: "c2", SKU: "ARROZ"}))

	p, err := products.GetByCompanyAndSKU(ctx, "c2", "ARROZ")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "p3", p.ID)
}
