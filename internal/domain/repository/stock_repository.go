package repository

import (
	"context"

	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar stock por bodega+producto.
// Get y GetForUpdate devuelven saldo cero con Version 0 si no hay fila.
type StockRepository interface {
	Get(ctx context.Context, warehouseID, productID string) (*entity.Stock, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción cuando el adaptador lo soporta
	// (SELECT FOR UPDATE); los adaptadores optimistas solo registran la versión leída.
	GetForUpdate(ctx context.Context, warehouseID, productID string) (*entity.Stock, error)
	// CompareAndSwap guarda stock solo si la versión persistida es expectedVersion.
	// Devuelve domain.ErrStaleWrite si otra escritura ganó.
	CompareAndSwap(ctx context.Context, stock *entity.Stock, expectedVersion int64) error
	ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Stock, error)
}
