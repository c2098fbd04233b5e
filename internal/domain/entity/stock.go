package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock representa el saldo de un producto en una bodega.
// Version se incrementa en cada escritura y respalda el compare-and-swap.
type Stock struct {
	WarehouseID string
	ProductID   string
	Quantity    decimal.Decimal
	Version     int64
	UpdatedAt   time.Time
}

// Key clave (bodega, producto) del saldo.
func (s *Stock) Key() StockKey {
	return StockKey{WarehouseID: s.WarehouseID, ProductID: s.ProductID}
}
