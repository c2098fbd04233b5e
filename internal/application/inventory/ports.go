package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad del cambio de estado, los movimientos y los saldos.
// Si fn devuelve error se hace Rollback; el commit puede fallar con domain.ErrStaleWrite.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		docRepo repository.DocumentRepository,
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
	) error) error
}

// Notifier publica eventos para el despachador de notificaciones (in-app + email, externo).
type Notifier interface {
	Notify(ctx context.Context, n entity.Notification) error
}

// DocumentLocker serializa transiciones de un mismo documento entre instancias de la API.
// Lock devuelve domain.ErrConflict si otro proceso tiene el candado.
type DocumentLocker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, entity.Notification) error { return nil }

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string, time.Duration) (func(), error) { return func() {}, nil }
