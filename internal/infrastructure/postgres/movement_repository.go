package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo kardex sobre PostgreSQL (usable con pool o tx). Solo inserción.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, company_id, document_id, document_type, line_id, type, product_id, warehouse_id, quantity, balance, lot_number, created_at, created_by`

// Create persiste un movimiento. (line_id, warehouse_id) es único: un movimiento por línea y bodega.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `INSERT INTO movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.CompanyID, m.DocumentID, string(m.DocumentType), m.LineID, m.Type,
		m.ProductID, m.WarehouseID, m.Quantity, m.Balance, m.LotNumber, m.CreatedAt, m.CreatedBy,
	)
	return mapError("create movement", err)
}

// ListByDocument movimientos generados por un documento en orden de creación.
func (r *MovementRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE document_id = $1 ORDER BY created_at, id`, documentID)
	if err != nil {
		return nil, mapError("list movements by document", err)
	}
	return scanMovements(rows)
}

// ListByProduct kardex del producto en un rango de fechas, más recientes primero.
func (r *MovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE product_id = $1`
	args := []any{productID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list movements by product", err)
	}
	return scanMovements(rows)
}

func scanMovements(rows pgx.Rows) ([]*entity.Movement, error) {
	defer rows.Close()
	list := make([]*entity.Movement, 0)
	for rows.Next() {
		var m entity.Movement
		var docType string
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.DocumentID, &docType, &m.LineID, &m.Type,
			&m.ProductID, &m.WarehouseID, &m.Quantity, &m.Balance, &m.LotNumber, &m.CreatedAt, &m.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.DocumentType = workflow.DocumentType(docType)
		list = append(list, &m)
	}
	return list, rows.Err()
}
