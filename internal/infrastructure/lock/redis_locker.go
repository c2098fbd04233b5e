// Package lock implementa inventory.DocumentLocker: con Redis (varias instancias
// de la API) o en proceso (una sola instancia, tests).
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"github.com/jhoicas/inventario-flujo/internal/application/inventory"
	"github.com/jhoicas/inventario-flujo/internal/domain"
	"github.com/jhoicas/inventario-flujo/pkg/logger"
)

var _ inventory.DocumentLocker = (*RedisLocker)(nil)

// RedisLocker candado distribuido por clave sobre redislock.
type RedisLocker struct {
	client *redislock.Client
	retry  redislock.RetryStrategy
	log    *logger.Logger
}

// NewRedisLocker construye el locker. Reintenta obtener el candado cada 50ms hasta 20 veces.
func NewRedisLocker(client redislock.RedisClient, log *logger.Logger) *RedisLocker {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisLocker{
		client: redislock.New(client),
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
		log:    log.Component("lock"),
	}
}

// Lock obtiene el candado key por ttl. Si otro proceso lo tiene devuelve domain.ErrConflict.
func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lk, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s en uso", domain.ErrConflict, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func() {
		// El ctx del request puede estar cancelado; liberar igual.
		if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el candado")
		}
	}, nil
}
