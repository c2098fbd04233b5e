package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-flujo/internal/domain"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError("op", nil))
	assert.ErrorIs(t, mapError("op", &pgconn.PgError{Code: "23505"}), domain.ErrDuplicate)
	assert.ErrorIs(t, mapError("op", &pgconn.PgError{Code: "40001"}), domain.ErrStaleWrite)
	assert.ErrorIs(t, mapError("op", &pgconn.PgError{Code: "40P01"}), domain.ErrStaleWrite)

	boom := errors.New("conexión rechazada")
	err := mapError("get stock", boom)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "get stock: conexión rechazada", err.Error())
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	got := nullIfEmpty("w1")
	if assert.NotNil(t, got) {
		assert.Equal(t, "w1", *got)
	}
}

func TestSchemaEmbebido(t *testing.T) {
	for _, table := range []string{"documents", "document_lines", "movements", "stock", "products", "warehouses"} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table)
	}
}
