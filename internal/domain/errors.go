package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Errores del flujo de documentos de inventario.
	ErrInsufficientStock         = errors.New("stock insuficiente")
	ErrInvalidTransition         = errors.New("transición no permitida desde el estado actual")
	ErrEditNotAllowed            = errors.New("el documento no es editable en su estado actual")
	ErrQuickWorkflowNotPermitted = errors.New("el documento no admite flujo rápido")

	// ErrStaleWrite indica que otra transacción modificó la fila leída (versión distinta).
	// Es reintentable; nunca debe llegar al cliente HTTP.
	ErrStaleWrite = errors.New("escritura concurrente detectada")
)
