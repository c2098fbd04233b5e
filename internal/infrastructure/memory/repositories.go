package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flujo/internal/domain"
	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
)

var (
	_ repository.DocumentRepository  = (*DocumentRepo)(nil)
	_ repository.StockRepository     = (*StockRepo)(nil)
	_ repository.MovementRepository  = (*MovementRepo)(nil)
	_ repository.ProductRepository   = (*ProductRepo)(nil)
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
)

// DocumentRepo documentos en memoria (directo o dentro de una transacción).
type DocumentRepo struct {
	b     backend
	store *Store
}

// Create guarda el documento con versión 1.
func (r *DocumentRepo) Create(_ context.Context, doc *entity.Document) error {
	if doc.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := r.b.putDocument(doc, 0, true); err != nil {
		return err
	}
	doc.Version = 1
	return nil
}

// GetByID devuelve una copia del documento o (nil, nil).
func (r *DocumentRepo) GetByID(_ context.Context, id string) (*entity.Document, error) {
	return r.b.getDocument(id), nil
}

// GetForUpdate en memoria no bloquea; el commit valida la versión.
func (r *DocumentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	return r.GetByID(ctx, id)
}

// Update guarda si doc.Version coincide y la incrementa.
func (r *DocumentRepo) Update(_ context.Context, doc *entity.Document) error {
	if err := r.b.putDocument(doc, doc.Version, false); err != nil {
		return err
	}
	doc.Version++
	return nil
}

// List lista documentos comprometidos (no ve escrituras pendientes de una tx).
func (r *DocumentRepo) List(_ context.Context, f repository.DocumentFilter) ([]*entity.Document, error) {
	r.store.mu.RLock()
	list := make([]*entity.Document, 0)
	for _, d := range r.store.documents {
		if matchDocument(d, f) {
			list = append(list, d.Clone())
		}
	}
	r.store.mu.RUnlock()
	sortDocuments(list)
	return page(list, f.Limit, f.Offset), nil
}

// Count cuenta los documentos comprometidos que cumplen el filtro.
func (r *DocumentRepo) Count(_ context.Context, f repository.DocumentFilter) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := 0
	for _, d := range r.store.documents {
		if matchDocument(d, f) {
			n++
		}
	}
	return n, nil
}

func matchDocument(d *entity.Document, f repository.DocumentFilter) bool {
	if d.CompanyID != f.CompanyID {
		return false
	}
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	return f.State == "" || d.State == f.State
}

// StockRepo saldos en memoria.
type StockRepo struct {
	b     backend
	store *Store
}

// Get saldo actual (cero si no existe).
func (r *StockRepo) Get(_ context.Context, warehouseID, productID string) (*entity.Stock, error) {
	return r.b.getStock(entity.StockKey{WarehouseID: warehouseID, ProductID: productID}), nil
}

// GetForUpdate en memoria no bloquea; CompareAndSwap valida la versión leída.
func (r *StockRepo) GetForUpdate(ctx context.Context, warehouseID, productID string) (*entity.Stock, error) {
	return r.Get(ctx, warehouseID, productID)
}

// CompareAndSwap guarda el saldo si la versión vigente es expectedVersion.
func (r *StockRepo) CompareAndSwap(_ context.Context, stock *entity.Stock, expectedVersion int64) error {
	if err := r.b.casStock(stock, expectedVersion); err != nil {
		return err
	}
	stock.Version = expectedVersion + 1
	return nil
}

// ListByWarehouse saldos comprometidos de la bodega ordenados por producto.
func (r *StockRepo) ListByWarehouse(_ context.Context, warehouseID string) ([]*entity.Stock, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	list := make([]*entity.Stock, 0)
	for k, s := range r.store.stock {
		if k.WarehouseID != warehouseID {
			continue
		}
		c := *s
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ProductID < list[j].ProductID })
	return list, nil
}

// Seed fija un saldo inicial (carga de datos y tests).
func (r *StockRepo) Seed(warehouseID, productID string, quantity int64) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	k := entity.StockKey{WarehouseID: warehouseID, ProductID: productID}
	cur := s.stockOrZero(k)
	cur.Quantity = cur.Quantity.Add(decimal.NewFromInt(quantity))
	cur.Version++
	cur.UpdatedAt = time.Now()
	s.stock[k] = cur
}

// MovementRepo kardex en memoria (solo inserción).
type MovementRepo struct {
	b     backend
	store *Store
}

// Create agrega el movimiento al kardex.
func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	if m.ID == "" || m.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	r.b.appendMovement(m)
	return nil
}

// ListByDocument movimientos del documento en orden de creación.
func (r *MovementRepo) ListByDocument(_ context.Context, documentID string) ([]*entity.Movement, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*entity.Movement, 0)
	for _, m := range r.store.movements {
		if m.DocumentID == documentID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

// ListByProduct movimientos del producto, más recientes primero.
func (r *MovementRepo) ListByProduct(_ context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error) {
	r.store.mu.RLock()
	out := make([]*entity.Movement, 0)
	for i := len(r.store.movements) - 1; i >= 0; i-- {
		m := r.store.movements[i]
		if m.ProductID != productID {
			continue
		}
		if from != nil && m.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && m.CreatedAt.After(*to) {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	r.store.mu.RUnlock()
	return page(out, limit, offset), nil
}

// ProductRepo catálogo de productos en memoria.
type ProductRepo struct {
	store *Store
}

// Create guarda un producto; SKU único por empresa.
func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.products {
		if cur.CompanyID == p.CompanyID && cur.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	c := *p
	s.products[p.ID] = &c
	return nil
}

// GetByID devuelve el producto o (nil, nil).
func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

// GetByCompanyAndSKU busca por SKU dentro de la empresa.
func (r *ProductRepo) GetByCompanyAndSKU(_ context.Context, companyID, sku string) (*entity.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, p := range r.store.products {
		if p.CompanyID == companyID && p.SKU == sku {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

// ListByCompany productos de la empresa ordenados por SKU.
func (r *ProductRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.Product, error) {
	r.store.mu.RLock()
	list := make([]*entity.Product, 0)
	for _, p := range r.store.products {
		if p.CompanyID == companyID {
			c := *p
			list = append(list, &c)
		}
	}
	r.store.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].SKU < list[j].SKU })
	return page(list, limit, offset), nil
}

// CountByCompany número de productos de la empresa.
func (r *ProductRepo) CountByCompany(_ context.Context, companyID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := 0
	for _, p := range r.store.products {
		if p.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

// WarehouseRepo bodegas en memoria.
type WarehouseRepo struct {
	store *Store
}

// Create guarda una bodega.
func (r *WarehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.warehouses[w.ID]; ok {
		return domain.ErrDuplicate
	}
	c := *w
	s.warehouses[w.ID] = &c
	return nil
}

// GetByID devuelve la bodega o (nil, nil).
func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.warehouses[id]
	if !ok {
		return nil, nil
	}
	c := *w
	return &c, nil
}

// ListByCompany bodegas de la empresa ordenadas por código.
func (r *WarehouseRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.Warehouse, error) {
	r.store.mu.RLock()
	list := make([]*entity.Warehouse, 0)
	for _, w := range r.store.warehouses {
		if w.CompanyID == companyID {
			c := *w
			list = append(list, &c)
		}
	}
	r.store.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return page(list, limit, offset), nil
}

// CountByCompany número de bodegas de la empresa.
func (r *WarehouseRepo) CountByCompany(_ context.Context, companyID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := 0
	for _, w := range r.store.warehouses {
		if w.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}
