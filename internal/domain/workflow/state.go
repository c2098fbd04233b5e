// Package workflow modela la máquina de estados compartida por todos los documentos
// de inventario (despachos, donaciones, compras, traslados).
//
// La tabla de transiciones está centralizada en Next; la persistencia y los efectos
// sobre el stock viven en la capa de aplicación.
package workflow

import (
	"fmt"

	"github.com/jhoicas/inventario-flujo/internal/domain"
)

// State estado de un documento.
type State string

const (
	StateDraft     State = "draft"
	StatePending   State = "pending"
	StateApproved  State = "approved"
	StateFulfilled State = "fulfilled"
	StateCancelled State = "cancelled"
	StateRejected  State = "rejected"
)

// Event acción solicitada sobre un documento.
type Event string

const (
	EventSubmit       Event = "submit"
	EventApprove      Event = "approve"
	EventReject       Event = "reject"
	EventFulfill      Event = "fulfill"
	EventQuickFulfill Event = "quick-fulfill"
	EventCancel       Event = "cancel"
)

// Events orden canónico de eventos (para respuestas deterministas).
var Events = []Event{EventSubmit, EventApprove, EventReject, EventFulfill, EventQuickFulfill, EventCancel}

type transitionKey struct {
	from  State
	event Event
}

var transitions = map[transitionKey]State{
	{StateDraft, EventSubmit}:       StatePending,
	{StatePending, EventApprove}:    StateApproved,
	{StateApproved, EventFulfill}:   StateFulfilled,
	{StateDraft, EventQuickFulfill}: StateFulfilled,
	{StateDraft, EventCancel}:       StateCancelled,
	{StatePending, EventCancel}:     StateCancelled,
	{StateApproved, EventCancel}:    StateCancelled,
	{StatePending, EventReject}:     StateRejected,
	{StateRejected, EventSubmit}:    StatePending,
	{StateRejected, EventCancel}:    StateCancelled,
}

// Next devuelve el estado destino para (state, event) o ErrInvalidTransition.
func Next(state State, event Event) (State, error) {
	to, ok := transitions[transitionKey{state, event}]
	if !ok {
		return state, fmt.Errorf("%w: %s desde %s", domain.ErrInvalidTransition, event, state)
	}
	return to, nil
}

// Valid indica si el estado es conocido.
func (s State) Valid() bool {
	switch s {
	case StateDraft, StatePending, StateApproved, StateFulfilled, StateCancelled, StateRejected:
		return true
	}
	return false
}

// Terminal indica que el estado no tiene transiciones salientes.
func (s State) Terminal() bool {
	return s == StateFulfilled || s == StateCancelled
}

// AffectsStock indica si entrar a este estado mueve inventario. Solo fulfilled.
func (s State) AffectsStock() bool {
	return s == StateFulfilled
}

// AllowedEvents lista los eventos legales desde state. quick-fulfill solo aparece
// si el documento está marcado para flujo rápido.
func AllowedEvents(state State, quick bool) []Event {
	out := make([]Event, 0, len(Events))
	for _, e := range Events {
		if e == EventQuickFulfill && !quick {
			continue
		}
		if _, ok := transitions[transitionKey{state, e}]; ok {
			out = append(out, e)
		}
	}
	return out
}
