package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/pkg/logger"
)

// Handler procesa un trabajo. Un error provoca reintento o DLQ.
type Handler func(ctx context.Context, job Job) error

// PoolConfig parámetros del pool de workers.
type PoolConfig struct {
	Queue       string
	Workers     int
	MaxAttempts int
	PopTimeout  time.Duration // espera máxima de BRPOP antes de revisar ctx
}

// Pool consume la cola con N goroutines bloqueadas en BRPOP (cero CPU en reposo).
type Pool struct {
	rdb         Client
	queue       string
	workers     int
	maxAttempts int
	popTimeout  time.Duration
	handler     Handler
	log         *logger.Logger
	now         func() time.Time
}

// NewPool construye el pool. Valores no positivos toman defaults (1 worker, 3 intentos, 5s).
func NewPool(rdb Client, cfg PoolConfig, handler Handler, log *logger.Logger) *Pool {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pool{
		rdb:         rdb,
		queue:       cfg.Queue,
		workers:     cfg.Workers,
		maxAttempts: cfg.MaxAttempts,
		popTimeout:  cfg.PopTimeout,
		handler:     handler,
		log:         log.Component("notify-worker"),
		now:         time.Now,
	}
}

// Run bloquea hasta que ctx se cancela y todos los workers terminan.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id)
		}(i)
	}
	p.log.Info().Int("workers", p.workers).Str("queue", p.queue).Msg("pool de workers iniciado")
	wg.Wait()
	return nil
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			p.log.Debug().Int("worker", id).Msg("worker detenido")
			return
		}
		result, err := p.rdb.BRPop(ctx, p.popTimeout, p.queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				p.log.Warn().Err(err).Int("worker", id).Msg("brpop falló")
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		p.process(ctx, result[1])
	}
}

// process ejecuta el handler; si falla reencola con Attempts+1 o manda a la DLQ.
func (p *Pool) process(ctx context.Context, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		p.log.Error().Err(err).Str("queue", p.queue).Msg("trabajo ilegible")
		p.sendToDLQ(ctx, Job{Type: "unknown", Payload: json.RawMessage(`null`)}, "unmarshal: "+err.Error())
		return
	}
	job.Attempts++
	err := p.handler(ctx, job)
	if err == nil {
		p.log.Debug().Str("type", job.Type).Int("attempt", job.Attempts).Msg("trabajo procesado")
		return
	}
	if job.Attempts >= p.maxAttempts {
		p.sendToDLQ(ctx, job, err.Error())
		return
	}
	p.log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("trabajo fallido, reencolando")
	if err := push(ctx, p.rdb, p.queue, job); err != nil {
		p.log.Error().Err(err).Str("type", job.Type).Msg("no se pudo reencolar")
	}
}

// LogHandler registra cada notificación en los logs del backend. BRPOP retira el trabajo,
// así que el pool es el único consumidor de la cola: un servicio de entrega (in-app, email)
// necesita su propia cola y no debe leer de esta.
func LogHandler(log *logger.Logger) Handler {
	l := log.Component("notifications")
	return func(_ context.Context, job Job) error {
		var n entity.Notification
		if err := json.Unmarshal(job.Payload, &n); err != nil {
			return err
		}
		ev := l.Info().
			Str("topic", n.Topic).
			Str("company_id", n.CompanyID)
		if n.DocumentID != "" {
			ev = ev.Str("document_id", n.DocumentID).Str("state", n.State)
		}
		if n.Topic == entity.TopicLowStock && n.Balance != nil {
			ev = ev.Str("warehouse_id", n.WarehouseID).
				Str("product_id", n.ProductID).
				Str("balance", n.Balance.String())
		}
		ev.Msg("notificación")
		return nil
	}
}
