package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-flujo/internal/domain"
	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
)

var allStates = []workflow.State{
	workflow.StateDraft, workflow.StatePending, workflow.StateApproved,
	workflow.StateFulfilled, workflow.StateCancelled, workflow.StateRejected,
}

func TestNext_TablaDeTransiciones(t *testing.T) {
	cases := []struct {
		from  workflow.State
		event workflow.Event
		to    workflow.State
	}{
		{workflow.StateDraft, workflow.EventSubmit, workflow.StatePending},
		{workflow.StatePending, workflow.EventApprove, workflow.StateApproved},
		{workflow.StateApproved, workflow.EventFulfill, workflow.StateFulfilled},
		{workflow.StateDraft, workflow.EventQuickFulfill, workflow.StateFulfilled},
		{workflow.StateDraft, workflow.EventCancel, workflow.StateCancelled},
		{workflow.StatePending, workflow.EventCancel, workflow.StateCancelled},
		{workflow.StateApproved, workflow.EventCancel, workflow.StateCancelled},
		{workflow.StatePending, workflow.EventReject, workflow.StateRejected},
		{workflow.StateRejected, workflow.EventSubmit, workflow.StatePending},
		{workflow.StateRejected, workflow.EventCancel, workflow.StateCancelled},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"_"+string(tc.event), func(t *testing.T) {
			to, err := workflow.Next(tc.from, tc.event)
			require.NoError(t, err)
			assert.Equal(t, tc.to, to)
		})
	}
}

func TestNext_EventoIlegalDevuelveInvalidTransition(t *testing.T) {
	legal := 0
	for _, s := range allStates {
		for _, e := range workflow.Events {
			to, err := workflow.Next(s, e)
			if err == nil {
				legal++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.Equal(t, s, to, "el estado no debe cambiar en una transición ilegal")
		}
	}
	assert.Equal(t, 10, legal, "la tabla tiene exactamente 10 transiciones legales")
}

func TestTerminales_SinTransicionesSalientes(t *testing.T) {
	for _, s := range []workflow.State{workflow.StateFulfilled, workflow.StateCancelled} {
		assert.True(t, s.Terminal())
		assert.Empty(t, workflow.AllowedEvents(s, true))
	}
}

func TestCancelarDesdeFulfilledProhibido(t *testing.T) {
	_, err := workflow.Next(workflow.StateFulfilled, workflow.EventCancel)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAllowedEvents_QuickSoloConBandera(t *testing.T) {
	assert.Equal(t,
		[]workflow.Event{workflow.EventSubmit, workflow.EventCancel},
		workflow.AllowedEvents(workflow.StateDraft, false))
	assert.Equal(t,
		[]workflow.Event{workflow.EventSubmit, workflow.EventQuickFulfill, workflow.EventCancel},
		workflow.AllowedEvents(workflow.StateDraft, true))
	assert.Equal(t,
		[]workflow.Event{workflow.EventApprove, workflow.EventReject, workflow.EventCancel},
		workflow.AllowedEvents(workflow.StatePending, false))
}

func TestSoloFulfilledAfectaStock(t *testing.T) {
	for _, s := range allStates {
		assert.Equal(t, s == workflow.StateFulfilled, s.AffectsStock(), string(s))
	}
}

func TestPolicy_EtiquetasYEdicion(t *testing.T) {
	dispatch, err := workflow.PolicyFor(workflow.TypeDispatch)
	require.NoError(t, err)
	donation, err := workflow.PolicyFor(workflow.TypeDonation)
	require.NoError(t, err)

	assert.Equal(t, "Despachado", dispatch.Label(workflow.StateFulfilled))
	assert.Equal(t, "Recibida", donation.Label(workflow.StateFulfilled))

	assert.True(t, dispatch.Editable(workflow.StateDraft))
	assert.False(t, dispatch.Editable(workflow.StateRejected))
	assert.True(t, donation.Editable(workflow.StateRejected))
	for _, s := range []workflow.State{workflow.StatePending, workflow.StateApproved, workflow.StateFulfilled} {
		assert.False(t, dispatch.Editable(s))
		assert.False(t, donation.Editable(s))
	}

	assert.Equal(t, "dispatch.approved", dispatch.Topic(workflow.StateApproved))
	assert.Equal(t, "donation.fulfilled", donation.Topic(workflow.StateFulfilled))
	assert.Empty(t, dispatch.Topic(workflow.StatePending))
}

func TestPolicy_ValidateWarehouses(t *testing.T) {
	transfer, _ := workflow.PolicyFor(workflow.TypeTransfer)
	assert.NoError(t, transfer.ValidateWarehouses("a", "b"))
	assert.ErrorIs(t, transfer.ValidateWarehouses("a", "a"), domain.ErrInvalidInput)
	assert.ErrorIs(t, transfer.ValidateWarehouses("", "b"), domain.ErrInvalidInput)

	dispatch, _ := workflow.PolicyFor(workflow.TypeDispatch)
	assert.ErrorIs(t, dispatch.ValidateWarehouses("", "b"), domain.ErrInvalidInput)

	_, err := workflow.PolicyFor("adjustment")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPolicy_FlujoRapidoPorTipo(t *testing.T) {
	for _, tc := range []struct {
		typ     workflow.DocumentType
		allowed bool
	}{
		{workflow.TypeDispatch, true},
		{workflow.TypeDonation, true},
		{workflow.TypePurchase, false},
		{workflow.TypeTransfer, false},
	} {
		p, err := workflow.PolicyFor(tc.typ)
		require.NoError(t, err)
		assert.Equal(t, tc.allowed, p.QuickEnabled(true), tc.typ)
		assert.False(t, p.QuickEnabled(false), tc.typ)
		assert.ErrorIs(t, p.AllowQuick(false), domain.ErrQuickWorkflowNotPermitted)
		if !tc.allowed {
			assert.ErrorIs(t, p.AllowQuick(true), domain.ErrQuickWorkflowNotPermitted)
		}
	}
}
