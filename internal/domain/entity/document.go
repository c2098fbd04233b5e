package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
)

// Document representa un documento de inventario (despacho, donación, compra o traslado).
// Las líneas pertenecen al documento y se reemplazan junto con él.
type Document struct {
	ID                     string
	CompanyID              string
	Type                   workflow.DocumentType
	State                  workflow.State
	OriginWarehouseID      string // bodega que entrega (despachos y traslados)
	DestinationWarehouseID string // bodega que recibe (donaciones, compras y traslados)
	CounterpartyID         string // cliente, donante o proveedor
	Notes                  string
	Quick                  bool // flujo rápido: Borrador -> Cumplido sin aprobación
	Lines                  []LineItem
	CreatedAt              time.Time
	CreatedBy              string
	UpdatedAt              time.Time
	StateChangedAt         time.Time
	StateChangedBy         string
	Version                int64
}

// LineItem una línea de producto dentro de un documento.
type LineItem struct {
	ID             string
	Position       int
	ProductID      string
	Quantity       decimal.Decimal // siempre positiva; el signo lo define el tipo de documento
	LotNumber      string
	ExpiresAt      *time.Time
	EstimatedValue *decimal.Decimal
}

// Clone copia profunda del documento (incluye líneas y punteros).
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Lines = make([]LineItem, len(d.Lines))
	for i, l := range d.Lines {
		if l.ExpiresAt != nil {
			t := *l.ExpiresAt
			l.ExpiresAt = &t
		}
		if l.EstimatedValue != nil {
			v := *l.EstimatedValue
			l.EstimatedValue = &v
		}
		c.Lines[i] = l
	}
	return &c
}

// StockKey identifica un saldo por (bodega, producto).
type StockKey struct {
	WarehouseID string
	ProductID   string
}

// Less orden total de claves; usado para bloquear filas siempre en el mismo orden.
func (k StockKey) Less(o StockKey) bool {
	if k.WarehouseID != o.WarehouseID {
		return k.WarehouseID < o.WarehouseID
	}
	return k.ProductID < o.ProductID
}

// RequiredByKey suma las cantidades de las líneas por producto en la bodega indicada.
func (d *Document) RequiredByKey(warehouseID string) map[StockKey]decimal.Decimal {
	out := make(map[StockKey]decimal.Decimal, len(d.Lines))
	for _, l := range d.Lines {
		k := StockKey{WarehouseID: warehouseID, ProductID: l.ProductID}
		out[k] = out[k].Add(l.Quantity)
	}
	return out
}
