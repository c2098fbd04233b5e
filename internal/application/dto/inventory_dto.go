package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementResponse salida de un movimiento del kardex.
type MovementResponse struct {
	ID           string          `json:"id"`
	DocumentID   string          `json:"document_id"`
	DocumentType string          `json:"document_type"`
	LineID       string          `json:"line_id"`
	Type         string          `json:"type"`
	ProductID    string          `json:"product_id"`
	WarehouseID  string          `json:"warehouse_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Balance      decimal.Decimal `json:"balance"`
	LotNumber    string          `json:"lot_number,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CreatedBy    string          `json:"created_by,omitempty"`
}

// StockResponse saldo de un producto en una bodega.
type StockResponse struct {
	WarehouseID string          `json:"warehouse_id"`
	ProductID   string          `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LowStockSuggestionDTO producto bajo su stock mínimo con la cantidad sugerida de reposición.
type LowStockSuggestionDTO struct {
	ProductID         string          `json:"product_id"`
	SKU               string          `json:"sku"`
	ProductName       string          `json:"product_name"`
	WarehouseID       string          `json:"warehouse_id"`
	CurrentStock      decimal.Decimal `json:"current_stock"`
	MinStock          decimal.Decimal `json:"min_stock"`
	IdealStock        decimal.Decimal `json:"ideal_stock"`         // MinStock * 1.5
	SuggestedOrderQty decimal.Decimal `json:"suggested_order_qty"` // IdealStock - CurrentStock
	Priority          int             `json:"priority"`            // 1 = mayor déficit
}
