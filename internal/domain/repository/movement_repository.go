package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
)

// MovementRepository puerto del kardex (solo inserción y lectura).
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.Movement, error)
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error)
}
