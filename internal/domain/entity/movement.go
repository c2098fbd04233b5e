package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
)

// Movement registro inmutable del kardex. Se crea una sola vez al cumplirse un documento
// y sobrevive aunque el documento se archive.
type Movement struct {
	ID           string
	CompanyID    string
	DocumentID   string
	DocumentType workflow.DocumentType
	LineID       string
	Type         string // sale, donation, purchase, transfer
	ProductID    string
	WarehouseID  string
	Quantity     decimal.Decimal // delta con signo: negativo salida, positivo entrada
	Balance      decimal.Decimal // saldo resultante en la bodega
	LotNumber    string
	CreatedAt    time.Time
	CreatedBy    string
}
