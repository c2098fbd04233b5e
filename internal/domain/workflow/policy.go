package workflow

import (
	"fmt"

	"github.com/jhoicas/inventario-flujo/internal/domain"
)

// DocumentType tipo de documento de inventario.
type DocumentType string

const (
	TypeDispatch DocumentType = "dispatch" // despacho a cliente
	TypeDonation DocumentType = "donation" // donación recibida
	TypePurchase DocumentType = "purchase" // compra a proveedor
	TypeTransfer DocumentType = "transfer" // traslado entre bodegas
)

// Flow sentido del movimiento de stock al cumplirse el documento.
type Flow int

const (
	FlowOutbound Flow = iota // descuenta de la bodega origen
	FlowInbound              // suma en la bodega destino
	FlowTransfer             // descuenta en origen y suma en destino
)

// Policy parametriza la máquina de estados para un tipo de documento.
type Policy struct {
	Type         DocumentType
	Flow         Flow
	MovementType string
	// QuickAllowed habilita el flujo rápido (Borrador → Cumplido sin aprobación) para el tipo.
	QuickAllowed bool
	Labels       map[State]string
}

var policies = map[DocumentType]Policy{
	TypeDispatch: {
		Type:         TypeDispatch,
		Flow:         FlowOutbound,
		MovementType: "sale",
		QuickAllowed: true,
		Labels: map[State]string{
			StateDraft:     "Borrador",
			StatePending:   "Pendiente",
			StateApproved:  "Aprobado",
			StateFulfilled: "Despachado",
			StateCancelled: "Cancelado",
			StateRejected:  "Rechazado",
		},
	},
	TypeDonation: {
		Type:         TypeDonation,
		Flow:         FlowInbound,
		MovementType: "donation",
		QuickAllowed: true,
		Labels: map[State]string{
			StateDraft:     "Borrador",
			StatePending:   "Pendiente",
			StateApproved:  "Aprobada",
			StateFulfilled: "Recibida",
			StateCancelled: "Cancelada",
			StateRejected:  "Rechazada",
		},
	},
	TypePurchase: {
		Type:         TypePurchase,
		Flow:         FlowInbound,
		MovementType: "purchase",
		Labels: map[State]string{
			StateDraft:     "Borrador",
			StatePending:   "Pendiente",
			StateApproved:  "Aprobada",
			StateFulfilled: "Recibida",
			StateCancelled: "Cancelada",
			StateRejected:  "Rechazada",
		},
	},
	TypeTransfer: {
		Type:         TypeTransfer,
		Flow:         FlowTransfer,
		MovementType: "transfer",
		Labels: map[State]string{
			StateDraft:     "Borrador",
			StatePending:   "Pendiente",
			StateApproved:  "Aprobado",
			StateFulfilled: "Transferido",
			StateCancelled: "Cancelado",
			StateRejected:  "Rechazado",
		},
	},
}

// PolicyFor devuelve la política del tipo o ErrInvalidInput si el tipo no existe.
func PolicyFor(t DocumentType) (Policy, error) {
	p, ok := policies[t]
	if !ok {
		return Policy{}, fmt.Errorf("%w: tipo de documento %q", domain.ErrInvalidInput, t)
	}
	return p, nil
}

// Label etiqueta visible del estado para este tipo de documento.
func (p Policy) Label(s State) string {
	if l, ok := p.Labels[s]; ok {
		return l
	}
	return string(s)
}

// AllowQuick verifica que el documento pueda usar el flujo rápido: el tipo debe
// admitirlo y el documento debe estar marcado como rápido.
func (p Policy) AllowQuick(flagged bool) error {
	if !p.QuickAllowed {
		return fmt.Errorf("%w: el tipo %s siempre requiere aprobación", domain.ErrQuickWorkflowNotPermitted, p.Type)
	}
	if !flagged {
		return fmt.Errorf("%w: documento sin marca de flujo rápido", domain.ErrQuickWorkflowNotPermitted)
	}
	return nil
}

// QuickEnabled indica si un documento con la marca flagged puede cumplirse sin aprobación.
func (p Policy) QuickEnabled(flagged bool) bool {
	return p.AllowQuick(flagged) == nil
}

// Outbound indica si el documento consume stock de una bodega origen.
func (p Policy) Outbound() bool {
	return p.Flow == FlowOutbound || p.Flow == FlowTransfer
}

// Inbound indica si el documento ingresa stock a una bodega destino.
func (p Policy) Inbound() bool {
	return p.Flow == FlowInbound || p.Flow == FlowTransfer
}

// Editable indica si las líneas pueden modificarse en el estado dado.
// Los rechazados solo son editables para documentos de entrada.
func (p Policy) Editable(s State) bool {
	switch s {
	case StateDraft:
		return true
	case StateRejected:
		return p.Flow == FlowInbound
	}
	return false
}

// ValidateWarehouses verifica las bodegas requeridas según el sentido del flujo.
func (p Policy) ValidateWarehouses(originID, destinationID string) error {
	switch p.Flow {
	case FlowOutbound:
		if originID == "" {
			return fmt.Errorf("%w: bodega origen requerida", domain.ErrInvalidInput)
		}
	case FlowInbound:
		if destinationID == "" {
			return fmt.Errorf("%w: bodega destino requerida", domain.ErrInvalidInput)
		}
	case FlowTransfer:
		if originID == "" || destinationID == "" {
			return fmt.Errorf("%w: bodegas origen y destino requeridas", domain.ErrInvalidInput)
		}
		if originID == destinationID {
			return fmt.Errorf("%w: origen y destino deben ser distintos", domain.ErrInvalidInput)
		}
	}
	return nil
}

// Topic tema de notificación emitido al entrar a un estado: "<tipo>.<estado>",
// ej. "dispatch.approved" o "donation.fulfilled". Devuelve "" si la transición no notifica.
func (p Policy) Topic(to State) string {
	switch to {
	case StateApproved, StateFulfilled:
		return fmt.Sprintf("%s.%s", p.Type, to)
	}
	return ""
}
