package entity

import "time"

// Warehouse representa una bodega donde se almacena inventario (multi-bodega).
// Una bodega inactiva no puede usarse en documentos nuevos.
type Warehouse struct {
	ID        string
	CompanyID string
	Code      string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
