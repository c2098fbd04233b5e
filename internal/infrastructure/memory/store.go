// Package memory implementa los puertos de persistencia en memoria.
//
// Las transacciones son optimistas: las escrituras se acumulan en un buffer y al
// hacer commit se valida, bajo un único candado, que las versiones leídas sigan
// vigentes. Si otra transacción ganó, el commit falla con domain.ErrStaleWrite.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/inventario-flujo/internal/application/inventory"
	"github.com/jhoicas/inventario-flujo/internal/domain"
	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store estado compartido de todos los repositorios en memoria.
type Store struct {
	mu         sync.RWMutex
	documents  map[string]*entity.Document
	stock      map[entity.StockKey]*entity.Stock
	movements  []*entity.Movement
	products   map[string]*entity.Product
	warehouses map[string]*entity.Warehouse
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		documents:  make(map[string]*entity.Document),
		stock:      make(map[entity.StockKey]*entity.Stock),
		products:   make(map[string]*entity.Product),
		warehouses: make(map[string]*entity.Warehouse),
	}
}

// backend operaciones primitivas que comparten el store y las transacciones.
type backend interface {
	getDocument(id string) *entity.Document
	putDocument(doc *entity.Document, expectedVersion int64, create bool) error
	getStock(k entity.StockKey) *entity.Stock
	casStock(s *entity.Stock, expectedVersion int64) error
	appendMovement(m *entity.Movement)
}

// Repositorios sin transacción (cada operación es atómica por sí misma).
func (s *Store) Documents() *DocumentRepo   { return &DocumentRepo{b: s, store: s} }
func (s *Store) Stock() *StockRepo          { return &StockRepo{b: s, store: s} }
func (s *Store) Movements() *MovementRepo   { return &MovementRepo{b: s, store: s} }
func (s *Store) Products() *ProductRepo     { return &ProductRepo{store: s} }
func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{store: s} }

// Run ejecuta fn con repositorios atados a una transacción optimista.
func (s *Store) Run(ctx context.Context, fn func(
	docRepo repository.DocumentRepository,
	movRepo repository.MovementRepository,
	stockRepo repository.StockRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	if err := fn(&DocumentRepo{b: t, store: s}, &MovementRepo{b: t, store: s}, &StockRepo{b: t, store: s}); err != nil {
		return err
	}
	return t.commit()
}

func (s *Store) getDocument(id string) *entity.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents[id].Clone()
}

func (s *Store) putDocument(doc *entity.Document, expectedVersion int64, create bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDocument(doc.ID, expectedVersion, create); err != nil {
		return err
	}
	c := doc.Clone()
	c.Version = expectedVersion + 1
	s.documents[doc.ID] = c
	return nil
}

func (s *Store) checkDocument(id string, expectedVersion int64, create bool) error {
	cur, ok := s.documents[id]
	if create {
		if ok {
			return domain.ErrDuplicate
		}
		return nil
	}
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrStaleWrite
	}
	return nil
}

func (s *Store) getStock(k entity.StockKey) *entity.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stockOrZero(k)
}

func (s *Store) stockOrZero(k entity.StockKey) *entity.Stock {
	if cur, ok := s.stock[k]; ok {
		c := *cur
		return &c
	}
	return &entity.Stock{WarehouseID: k.WarehouseID, ProductID: k.ProductID}
}

func (s *Store) casStock(st *entity.Stock, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stockOrZero(st.Key()).Version != expectedVersion {
		return domain.ErrStaleWrite
	}
	c := *st
	c.Version = expectedVersion + 1
	s.stock[st.Key()] = &c
	return nil
}

func (s *Store) appendMovement(m *entity.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *m
	s.movements = append(s.movements, &c)
}

// tx buffer de escrituras de una transacción optimista.
type tx struct {
	store       *Store
	docs        map[string]*entity.Document
	docExpected map[string]int64
	docCreate   map[string]bool
	stock       map[entity.StockKey]*entity.Stock
	stockExpect map[entity.StockKey]int64
	movements   []*entity.Movement
}

func newTx(s *Store) *tx {
	return &tx{
		store:       s,
		docs:        make(map[string]*entity.Document),
		docExpected: make(map[string]int64),
		docCreate:   make(map[string]bool),
		stock:       make(map[entity.StockKey]*entity.Stock),
		stockExpect: make(map[entity.StockKey]int64),
	}
}

func (t *tx) getDocument(id string) *entity.Document {
	if d, ok := t.docs[id]; ok {
		return d.Clone()
	}
	return t.store.getDocument(id)
}

func (t *tx) putDocument(doc *entity.Document, expectedVersion int64, create bool) error {
	if buf, ok := t.docs[doc.ID]; ok {
		if create {
			return domain.ErrDuplicate
		}
		if buf.Version != expectedVersion {
			return domain.ErrStaleWrite
		}
	} else {
		t.docExpected[doc.ID] = expectedVersion
		t.docCreate[doc.ID] = create
	}
	c := doc.Clone()
	c.Version = expectedVersion + 1
	t.docs[doc.ID] = c
	return nil
}

func (t *tx) getStock(k entity.StockKey) *entity.Stock {
	if s, ok := t.stock[k]; ok {
		c := *s
		return &c
	}
	return t.store.getStock(k)
}

func (t *tx) casStock(s *entity.Stock, expectedVersion int64) error {
	k := s.Key()
	if buf, ok := t.stock[k]; ok {
		if buf.Version != expectedVersion {
			return domain.ErrStaleWrite
		}
	} else {
		t.stockExpect[k] = expectedVersion
	}
	c := *s
	c.Version = expectedVersion + 1
	t.stock[k] = &c
	return nil
}

func (t *tx) appendMovement(m *entity.Movement) {
	c := *m
	t.movements = append(t.movements, &c)
}

// commit valida todas las versiones esperadas y aplica el buffer completo, o nada.
func (t *tx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, expected := range t.docExpected {
		if err := s.checkDocument(id, expected, t.docCreate[id]); err != nil {
			return err
		}
	}
	for k, expected := range t.stockExpect {
		if s.stockOrZero(k).Version != expected {
			return domain.ErrStaleWrite
		}
	}
	for id, d := range t.docs {
		s.documents[id] = d
	}
	for k, st := range t.stock {
		s.stock[k] = st
	}
	s.movements = append(s.movements, t.movements...)
	return nil
}

func sortDocuments(list []*entity.Document) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
