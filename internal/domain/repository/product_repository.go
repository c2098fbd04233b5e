package repository

import (
	"context"

	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByID devuelve (nil, nil) si el producto no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByCompanyAndSKU devuelve (nil, nil) si no existe el SKU en la empresa.
	GetByCompanyAndSKU(ctx context.Context, companyID, sku string) (*entity.Product, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Product, error)
	CountByCompany(ctx context.Context, companyID string) (int, error)
}
