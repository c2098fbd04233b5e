// Package queue encola notificaciones en listas de Redis y las consume con un
// pool de workers (LPUSH / BRPOP). Los trabajos que agotan sus intentos pasan a
// una dead letter queue "dlq:<cola>" para revisión manual.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-flujo/internal/application/inventory"
	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
)

// DefaultQueue cola de notificaciones del flujo de documentos.
const DefaultQueue = "jobs:notifications"

// Client subconjunto de *redis.Client que usa el paquete.
type Client interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

var _ Client = (*redis.Client)(nil)

// Job sobre genérico de los trabajos encolados.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

var _ inventory.Notifier = (*Dispatcher)(nil)

// Dispatcher encola notificaciones; implementa inventory.Notifier.
type Dispatcher struct {
	rdb   Client
	queue string
}

// NewDispatcher construye el despachador sobre la cola dada (DefaultQueue si es vacía).
func NewDispatcher(rdb Client, queue string) *Dispatcher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Dispatcher{rdb: rdb, queue: queue}
}

// Notify encola la notificación con su tema como tipo de trabajo.
func (d *Dispatcher) Notify(ctx context.Context, n entity.Notification) error {
	return d.enqueue(ctx, n.Topic, n)
}

func (d *Dispatcher) enqueue(ctx context.Context, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return push(ctx, d.rdb, d.queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := rdb.LPush(ctx, queue, encoded).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", queue, err)
	}
	return nil
}
