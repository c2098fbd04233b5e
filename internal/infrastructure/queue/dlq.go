package queue

import (
	"context"
	"encoding/json"
	"time"
)

// DLQPrefix prefijo de las dead letter queues: dlq:{cola_original}.
const DLQPrefix = "dlq:"

// DLQEntry trabajo fallido con metadatos para depuración.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // RFC 3339
	Attempts      int             `json:"attempts"`
}

func (p *Pool) sendToDLQ(ctx context.Context, job Job, reason string) {
	entry := DLQEntry{
		OriginalQueue: p.queue,
		JobType:       job.Type,
		Payload:       job.Payload,
		Reason:        reason,
		FailedAt:      p.now().UTC().Format(time.RFC3339),
		Attempts:      job.Attempts,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		p.log.Error().Err(err).Str("queue", p.queue).Msg("dlq: no se pudo serializar la entrada")
		return
	}
	key := DLQPrefix + p.queue
	if err := p.rdb.LPush(ctx, key, data).Err(); err != nil {
		p.log.Error().Err(err).Str("dlq_key", key).Msg("dlq: no se pudo encolar")
		return
	}
	p.log.Warn().
		Str("queue", p.queue).
		Str("job_type", job.Type).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("dlq: trabajo movido a la dead letter queue")
}

// DLQLength número de entradas en la DLQ de una cola (monitoreo).
func DLQLength(ctx context.Context, rdb Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
