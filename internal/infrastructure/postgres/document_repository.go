package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-flujo/internal/domain"
	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
	"github.com/jhoicas/inventario-flujo/internal/domain/workflow"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo documentos y sus líneas sobre PostgreSQL (usable con pool o tx).
// Las escrituras de cabecera y líneas deben correr dentro de una tx para ser atómicas.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `id, company_id, type, state, origin_warehouse_id, destination_warehouse_id,
	counterparty_id, notes, quick, created_at, created_by, updated_at, state_changed_at, state_changed_by, version`

// Create inserta cabecera y líneas con versión 1.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	query := `INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.CompanyID, string(doc.Type), string(doc.State),
		nullIfEmpty(doc.OriginWarehouseID), nullIfEmpty(doc.DestinationWarehouseID),
		doc.CounterpartyID, doc.Notes, doc.Quick,
		doc.CreatedAt, doc.CreatedBy, doc.UpdatedAt, doc.StateChangedAt, doc.StateChangedBy,
	)
	if err != nil {
		return mapError("insert document", err)
	}
	if err := r.insertLines(ctx, doc); err != nil {
		return err
	}
	doc.Version = 1
	return nil
}

// GetByID obtiene el documento con sus líneas; (nil, nil) si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	return r.get(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila del documento hasta el fin de la tx.
func (r *DocumentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	return r.get(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id)
}

func (r *DocumentRepo) get(ctx context.Context, query, id string) (*entity.Document, error) {
	doc, err := scanDocument(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get document", err)
	}
	if doc.Lines, err = r.lines(ctx, doc.ID); err != nil {
		return nil, err
	}
	return doc, nil
}

// Update guarda cabecera y reemplaza las líneas si doc.Version sigue vigente.
func (r *DocumentRepo) Update(ctx context.Context, doc *entity.Document) error {
	query := `
		UPDATE documents SET state = $2, counterparty_id = $3, notes = $4, quick = $5,
			updated_at = $6, state_changed_at = $7, state_changed_by = $8, version = version + 1
		WHERE id = $1 AND version = $9`
	cmd, err := r.q.Exec(ctx, query,
		doc.ID, string(doc.State), doc.CounterpartyID, doc.Notes, doc.Quick,
		doc.UpdatedAt, doc.StateChangedAt, doc.StateChangedBy, doc.Version,
	)
	if err != nil {
		return mapError("update document", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: documento %s versión %d", domain.ErrStaleWrite, doc.ID, doc.Version)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, doc.ID); err != nil {
		return mapError("delete document lines", err)
	}
	if err := r.insertLines(ctx, doc); err != nil {
		return err
	}
	doc.Version++
	return nil
}

// List documentos de la empresa, más recientes primero. Incluye las líneas.
func (r *DocumentRepo) List(ctx context.Context, f repository.DocumentFilter) ([]*entity.Document, error) {
	where, args := documentWhere(f)
	pos := len(args) + 1
	query := `SELECT ` + documentColumns + ` FROM documents` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list documents", err)
	}
	list := make([]*entity.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan document: %w", err)
		}
		list = append(list, doc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for _, doc := range list {
		if doc.Lines, err = r.lines(ctx, doc.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Count total de documentos que cumplen el filtro (sin LIMIT/OFFSET).
func (r *DocumentRepo) Count(ctx context.Context, f repository.DocumentFilter) (int, error) {
	where, args := documentWhere(f)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&n); err != nil {
		return 0, mapError("count documents", err)
	}
	return n, nil
}

func documentWhere(f repository.DocumentFilter) (string, []any) {
	where := " WHERE company_id = $1"
	args := []any{f.CompanyID}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.State != "" {
		args = append(args, string(f.State))
		where += fmt.Sprintf(" AND state = $%d", len(args))
	}
	return where, args
}

func (r *DocumentRepo) insertLines(ctx context.Context, doc *entity.Document) error {
	batch := &pgx.Batch{}
	for _, l := range doc.Lines {
		batch.Queue(`
			INSERT INTO document_lines (id, document_id, position, product_id, quantity, lot_number, expires_at, estimated_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			l.ID, doc.ID, l.Position, l.ProductID, l.Quantity, l.LotNumber, l.ExpiresAt, l.EstimatedValue,
		)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return mapError("insert document lines", err)
	}
	return nil
}

func (r *DocumentRepo) lines(ctx context.Context, documentID string) ([]entity.LineItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, position, product_id, quantity, lot_number, expires_at, estimated_value
		FROM document_lines WHERE document_id = $1 ORDER BY position`, documentID)
	if err != nil {
		return nil, mapError("list document lines", err)
	}
	defer rows.Close()
	lines := make([]entity.LineItem, 0)
	for rows.Next() {
		var l entity.LineItem
		if err := rows.Scan(&l.ID, &l.Position, &l.ProductID, &l.Quantity, &l.LotNumber, &l.ExpiresAt, &l.EstimatedValue); err != nil {
			return nil, fmt.Errorf("scan document line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var d entity.Document
	var docType, state string
	var origin, destination *string
	if err := row.Scan(&d.ID, &d.CompanyID, &docType, &state, &origin, &destination,
		&d.CounterpartyID, &d.Notes, &d.Quick, &d.CreatedAt, &d.CreatedBy, &d.UpdatedAt,
		&d.StateChangedAt, &d.StateChangedBy, &d.Version); err != nil {
		return nil, err
	}
	d.Type = workflow.DocumentType(docType)
	d.State = workflow.State(state)
	if origin != nil {
		d.OriginWarehouseID = *origin
	}
	if destination != nil {
		d.DestinationWarehouseID = *destination
	}
	return &d, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
