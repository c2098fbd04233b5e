package repository

import (
	"context"

	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
)

// DocumentFilter filtros del listado de documentos.
type DocumentFilter struct {
	CompanyID string
	Type      workflow.DocumentType // vacío = todos
	State     workflow.State        // vacío = todos
	Limit     int
	Offset    int
}

// DocumentRepository define el puerto de persistencia para documentos y sus líneas.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	// GetByID devuelve (nil, nil) si el documento no existe.
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	// GetForUpdate igual que GetByID pero bloquea la fila dentro de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Document, error)
	// Update persiste cabecera, estado y líneas si doc.Version coincide con la versión guardada;
	// incrementa doc.Version. Devuelve domain.ErrStaleWrite si no coincide.
	Update(ctx context.Context, doc *entity.Document) error
	List(ctx context.Context, filter DocumentFilter) ([]*entity.Document, error)
	// Count total de documentos que cumplen el filtro, sin paginar.
	Count(ctx context.Context, filter DocumentFilter) (int, error)
}
