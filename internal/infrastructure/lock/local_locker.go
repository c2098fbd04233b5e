package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/inventario-flujo/internal/application/inventory"
	"github.com/jhoicas/inventario-flujo/internal/domain"
)

var _ inventory.DocumentLocker = (*LocalLocker)(nil)

// LocalLocker candado por clave dentro del proceso. Sirve cuando corre una sola
// instancia (STORAGE_DRIVER=memory o sin Redis).
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*slot
	wait time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker espera hasta wait por el candado antes de devolver domain.ErrConflict.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	if wait <= 0 {
		wait = time.Second
	}
	return &LocalLocker{keys: make(map[string]*slot), wait: wait}
}

// Lock ttl se ignora: el candado vive hasta que se llama release.
func (l *LocalLocker) Lock(ctx context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	s, ok := l.keys[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.keys[key] = s
	}
	s.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ctx.Err()
	case <-timer.C:
		l.unref(key, s)
		return nil, fmt.Errorf("%w: %s en uso", domain.ErrConflict, key)
	}
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.keys, key)
	}
}
