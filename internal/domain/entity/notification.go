package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Temas de notificación fuera del flujo de documentos.
const TopicLowStock = "stock.low"

// Notification evento que consume el despachador externo (in-app + email).
type Notification struct {
	ID           string           `json:"id"`
	Topic        string           `json:"topic"`
	CompanyID    string           `json:"company_id"`
	DocumentID   string           `json:"document_id,omitempty"`
	DocumentType string           `json:"document_type,omitempty"`
	State        string           `json:"state,omitempty"`
	WarehouseID  string           `json:"warehouse_id,omitempty"`
	ProductID    string           `json:"product_id,omitempty"`
	Balance      *decimal.Decimal `json:"balance,omitempty"`
	MinStock     *decimal.Decimal `json:"min_stock,omitempty"`
	UserID       string           `json:"user_id,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}
