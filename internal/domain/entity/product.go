package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del inventario (multi-bodega).
// MinStock es el umbral de stock bajo; cruzarlo hacia abajo genera una notificación.
type Product struct {
	ID          string
	CompanyID   string
	SKU         string // código único por empresa
	Name        string
	UnitMeasure string
	MinStock    decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
