package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
)

// EstimatedTotal valor estimado de un documento: Σ cantidad × valor unitario estimado.
// Las líneas sin valor estimado no suman.
func EstimatedTotal(lines []entity.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if l.EstimatedValue == nil {
			continue
		}
		total = total.Add(l.Quantity.Mul(*l.EstimatedValue))
	}
	return total
}

// TotalQuantity suma de cantidades de todas las líneas.
func TotalQuantity(lines []entity.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Quantity)
	}
	return total
}

// BelowMinimum indica si el saldo quedó por debajo del mínimo configurado.
// Un mínimo cero o negativo desactiva la alerta.
func BelowMinimum(balance, minStock decimal.Decimal) bool {
	if !minStock.GreaterThan(decimal.Zero) {
		return false
	}
	return balance.LessThan(minStock)
}
