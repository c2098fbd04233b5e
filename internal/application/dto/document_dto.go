package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItemRequest línea de producto en el body de creación/edición.
type LineItemRequest struct {
	ProductID      string           `json:"product_id" validate:"required"`
	Quantity       decimal.Decimal  `json:"quantity" validate:"gt=0"`
	LotNumber      string           `json:"lot_number,omitempty" validate:"max=100"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
	EstimatedValue *decimal.Decimal `json:"estimated_value,omitempty"`
}

// CreateDocumentRequest body para POST /api/documents.
// Según el tipo se exige bodega origen (dispatch), destino (donation, purchase) o ambas (transfer).
type CreateDocumentRequest struct {
	Type                   string            `json:"type" validate:"required,oneof=dispatch donation purchase transfer"`
	OriginWarehouseID      string            `json:"origin_warehouse_id,omitempty"`
	DestinationWarehouseID string            `json:"destination_warehouse_id,omitempty"`
	CounterpartyID         string            `json:"counterparty_id,omitempty"`
	Notes                  string            `json:"notes,omitempty" validate:"max=2000"`
	Quick                  bool              `json:"quick"`
	Lines                  []LineItemRequest `json:"lines" validate:"required,min=1,dive"`
}

// UpdateDocumentRequest body para PUT /api/documents/:id/lines. Lines reemplaza todas las líneas.
type UpdateDocumentRequest struct {
	CounterpartyID *string           `json:"counterparty_id,omitempty"`
	Notes          *string           `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Quick          *bool             `json:"quick,omitempty"`
	Lines          []LineItemRequest `json:"lines" validate:"required,min=1,dive"`
}

// DocumentListRequest filtros de GET /api/documents.
type DocumentListRequest struct {
	Type  string `query:"type"`
	State string `query:"state"`
	PageRequest
}

// LineItemResponse salida de una línea.
type LineItemResponse struct {
	ID             string           `json:"id"`
	Position       int              `json:"position"`
	ProductID      string           `json:"product_id"`
	Quantity       decimal.Decimal  `json:"quantity"`
	LotNumber      string           `json:"lot_number,omitempty"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
	EstimatedValue *decimal.Decimal `json:"estimated_value,omitempty"`
}

// DocumentResponse salida de un documento.
type DocumentResponse struct {
	ID                     string             `json:"id"`
	CompanyID              string             `json:"company_id"`
	Type                   string             `json:"type"`
	State                  string             `json:"state"`
	StateLabel             string             `json:"state_label"`
	OriginWarehouseID      string             `json:"origin_warehouse_id,omitempty"`
	DestinationWarehouseID string             `json:"destination_warehouse_id,omitempty"`
	CounterpartyID         string             `json:"counterparty_id,omitempty"`
	Notes                  string             `json:"notes,omitempty"`
	Quick                  bool               `json:"quick"`
	Lines                  []LineItemResponse `json:"lines"`
	TotalQuantity          decimal.Decimal    `json:"total_quantity"`
	EstimatedTotal         decimal.Decimal    `json:"estimated_total"`
	CreatedAt              time.Time          `json:"created_at"`
	CreatedBy              string             `json:"created_by"`
	UpdatedAt              time.Time          `json:"updated_at"`
	StateChangedAt         time.Time          `json:"state_changed_at"`
	StateChangedBy         string             `json:"state_changed_by,omitempty"`
}

// DocumentListResponse lista paginada de documentos.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// DocumentStatusResponse estado actual y acciones habilitadas (badges y botones de la UI).
type DocumentStatusResponse struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	State    string   `json:"state"`
	Label    string   `json:"label"`
	Terminal bool     `json:"terminal"`
	Editable bool     `json:"editable"`
	Quick    bool     `json:"quick"`
	Actions  []string `json:"actions"`
}
