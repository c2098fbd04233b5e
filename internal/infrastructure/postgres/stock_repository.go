package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flujo/internal/domain"
	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `warehouse_id, product_id, quantity, version, updated_at`

// Get obtiene el stock actual de un producto en una bodega (cero si no hay fila).
func (r *StockRepo) Get(ctx context.Context, warehouseID, productID string) (*entity.Stock, error) {
	return r.get(ctx, `SELECT `+stockColumns+` FROM stock WHERE warehouse_id = $1 AND product_id = $2`, warehouseID, productID)
}

// GetForUpdate obtiene el stock y bloquea la fila hasta el fin de la tx (SELECT FOR UPDATE).
// Si la fila no existe no hay nada que bloquear; el INSERT de CompareAndSwap resuelve la carrera.
func (r *StockRepo) GetForUpdate(ctx context.Context, warehouseID, productID string) (*entity.Stock, error) {
	return r.get(ctx, `SELECT `+stockColumns+` FROM stock WHERE warehouse_id = $1 AND product_id = $2 FOR UPDATE`, warehouseID, productID)
}

func (r *StockRepo) get(ctx context.Context, query, warehouseID, productID string) (*entity.Stock, error) {
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, warehouseID, productID).Scan(
		&s.WarehouseID, &s.ProductID, &s.Quantity, &s.Version, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Stock{WarehouseID: warehouseID, ProductID: productID, Quantity: decimal.Zero}, nil
		}
		return nil, mapError("get stock", err)
	}
	return &s, nil
}

// CompareAndSwap guarda el saldo solo si la versión persistida es expectedVersion.
// expectedVersion 0 significa "no existía fila": se inserta y un choque con otra
// inserción concurrente cuenta como escritura vencida.
func (r *StockRepo) CompareAndSwap(ctx context.Context, stock *entity.Stock, expectedVersion int64) error {
	var query string
	var args []any
	if expectedVersion == 0 {
		query = `
			INSERT INTO stock (warehouse_id, product_id, quantity, version, updated_at)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (warehouse_id, product_id) DO NOTHING`
		args = []any{stock.WarehouseID, stock.ProductID, stock.Quantity, stock.UpdatedAt}
	} else {
		query = `
			UPDATE stock SET quantity = $3, version = version + 1, updated_at = $4
			WHERE warehouse_id = $1 AND product_id = $2 AND version = $5`
		args = []any{stock.WarehouseID, stock.ProductID, stock.Quantity, stock.UpdatedAt, expectedVersion}
	}
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return mapError("save stock", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: stock %s/%s versión %d", domain.ErrStaleWrite, stock.WarehouseID, stock.ProductID, expectedVersion)
	}
	stock.Version = expectedVersion + 1
	return nil
}

// ListByWarehouse saldos de la bodega ordenados por producto.
func (r *StockRepo) ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Stock, error) {
	rows, err := r.q.Query(ctx, `SELECT `+stockColumns+` FROM stock WHERE warehouse_id = $1 ORDER BY product_id`, warehouseID)
	if err != nil {
		return nil, mapError("list stock", err)
	}
	defer rows.Close()
	list := make([]*entity.Stock, 0)
	for rows.Next() {
		var s entity.Stock
		if err := rows.Scan(&s.WarehouseID, &s.ProductID, &s.Quantity, &s.Version, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// AddQuantity suma delta al saldo creando la fila si falta (carga inicial de datos).
func (r *StockRepo) AddQuantity(ctx context.Context, warehouseID, productID string, delta decimal.Decimal) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock (warehouse_id, product_id, quantity, version, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (warehouse_id, product_id)
		DO UPDATE SET quantity = stock.quantity + EXCLUDED.quantity, version = stock.version + 1, updated_at = now()`,
		warehouseID, productID, delta,
	)
	return mapError("add stock", err)
}
