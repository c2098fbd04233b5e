package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flujo/internal/application/dto"
	"github.com/jhoicas/inventario-flujo/internal/domain"
	domaininv "github.com/jhoicas/inventario-flujo/internal/domain/inventory"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
)

// StockUseCase consultas de saldos, kardex y lista de reposición por bodega.
type StockUseCase struct {
	stockRepo     repository.StockRepository
	movRepo       repository.MovementRepository
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
}

// NewStockUseCase construye el caso de uso de consultas de stock.
func NewStockUseCase(
	stockRepo repository.StockRepository,
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
) *StockUseCase {
	return &StockUseCase{
		stockRepo:     stockRepo,
		movRepo:       movRepo,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
	}
}

// Balance saldo actual de un producto en una bodega de la empresa.
func (uc *StockUseCase) Balance(ctx context.Context, companyID, warehouseID, productID string) (*dto.StockResponse, error) {
	if warehouseID == "" || productID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.checkWarehouse(ctx, companyID, warehouseID); err != nil {
		return nil, err
	}
	s, err := uc.stockRepo.Get(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	return &dto.StockResponse{WarehouseID: s.WarehouseID, ProductID: s.ProductID, Quantity: s.Quantity, UpdatedAt: s.UpdatedAt}, nil
}

// ListByWarehouse saldos de todos los productos de una bodega.
func (uc *StockUseCase) ListByWarehouse(ctx context.Context, companyID, warehouseID string) ([]dto.StockResponse, error) {
	if err := uc.checkWarehouse(ctx, companyID, warehouseID); err != nil {
		return nil, err
	}
	list, err := uc.stockRepo.ListByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.StockResponse{WarehouseID: s.WarehouseID, ProductID: s.ProductID, Quantity: s.Quantity, UpdatedAt: s.UpdatedAt})
	}
	return out, nil
}

// MovementsByProduct kardex de un producto en un rango de fechas.
func (uc *StockUseCase) MovementsByProduct(ctx context.Context, companyID, productID string, from, to *time.Time, page dto.PageRequest) ([]dto.MovementResponse, error) {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if product.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	page.DefaultPage()
	list, err := uc.movRepo.ListByProduct(ctx, productID, from, to, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return toMovementResponses(list), nil
}

// LowStockList productos de la bodega por debajo de su mínimo con la cantidad sugerida
// de pedido (IdealStock = MinStock * 1.5), ordenados por mayor déficit relativo.
func (uc *StockUseCase) LowStockList(ctx context.Context, companyID, warehouseID string) ([]dto.LowStockSuggestionDTO, error) {
	if err := uc.checkWarehouse(ctx, companyID, warehouseID); err != nil {
		return nil, err
	}
	balances, err := uc.stockRepo.ListByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	factor := decimal.NewFromFloat(1.5)
	suggestions := make([]dto.LowStockSuggestionDTO, 0)
	for _, s := range balances {
		product, err := uc.productRepo.GetByID(ctx, s.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil || !domaininv.BelowMinimum(s.Quantity, product.MinStock) {
			continue
		}
		ideal := product.MinStock.Mul(factor)
		suggested := ideal.Sub(s.Quantity)
		if suggested.LessThan(decimal.Zero) {
			suggested = decimal.Zero
		}
		suggestions = append(suggestions, dto.LowStockSuggestionDTO{
			ProductID:         product.ID,
			SKU:               product.SKU,
			ProductName:       product.Name,
			WarehouseID:       warehouseID,
			CurrentStock:      s.Quantity,
			MinStock:          product.MinStock,
			IdealStock:        ideal,
			SuggestedOrderQty: suggested,
		})
	}

	// Mayor déficit relativo primero; desempate por SKU para un orden estable.
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		ra := a.MinStock.Sub(a.CurrentStock).Div(a.MinStock)
		rb := b.MinStock.Sub(b.CurrentStock).Div(b.MinStock)
		if !ra.Equal(rb) {
			return ra.GreaterThan(rb)
		}
		return a.SKU < b.SKU
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

func (uc *StockUseCase) checkWarehouse(ctx context.Context, companyID, warehouseID string) error {
	wh, err := uc.warehouseRepo.GetByID(ctx, warehouseID)
	if err != nil {
		return err
	}
	if wh == nil {
		return domain.ErrNotFound
	}
	if wh.CompanyID != companyID {
		return domain.ErrForbidden
	}
	return nil
}
