// seed crea bodegas, productos y saldos iniciales de demostración e imprime un JWT
// de supervisor para probar la API.
//
// Uso: go run ./cmd/seed [company_id]
// Con STORAGE_DRIVER=memory solo imprime el token (el store en memoria vive en el proceso de la API).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flujo/internal/domain/entity"
	"github.com/jhoicas/inventario-flujo/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-flujo/pkg/config"
	"github.com/jhoicas/inventario-flujo/pkg/jwt"
)

type seedProduct struct {
	sku, name string
	minStock  int64
	initial   int64
}

var products = []seedProduct{
	{"ARROZ-1KG", "Arroz 1kg", 20, 120},
	{"ACEITE-1L", "Aceite 1L", 10, 40},
	{"LENTEJA-500G", "Lenteja 500g", 15, 8},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	companyID := uuid.New().String()
	if len(os.Args) > 1 {
		companyID = os.Args[1]
	}

	if cfg.Storage.Driver == config.StoragePostgres {
		if err := seed(context.Background(), cfg, companyID); err != nil {
			fmt.Fprintf(os.Stderr, "Seed: %v\n", err)
			os.Exit(1)
		}
	}

	token, err := jwt.Generate(cfg.JWT.Secret, cfg.JWT.Issuer, jwt.Identity{
		UserID:    uuid.New().String(),
		CompanyID: companyID,
		Role:      jwt.RoleSupervisor,
	}, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("company_id: %s\n", companyID)
	fmt.Printf("Authorization: Bearer %s\n", token)
}

func seed(ctx context.Context, cfg *config.Config, companyID string) error {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	now := time.Now()
	warehouses := postgres.NewWarehouseRepository(pool)
	principal := &entity.Warehouse{ID: uuid.New().String(), CompanyID: companyID, Code: "PRINCIPAL", Name: "Bodega principal", Active: true, CreatedAt: now, UpdatedAt: now}
	branch := &entity.Warehouse{ID: uuid.New().String(), CompanyID: companyID, Code: "SUCURSAL-1", Name: "Sucursal norte", Active: true, CreatedAt: now, UpdatedAt: now}
	for _, w := range []*entity.Warehouse{principal, branch} {
		if err := warehouses.Create(ctx, w); err != nil {
			return fmt.Errorf("bodega %s: %w", w.Code, err)
		}
		fmt.Printf("bodega   %-12s %s\n", w.Code, w.ID)
	}

	productRepo := postgres.NewProductRepository(pool)
	stock := postgres.NewStockRepository(pool)
	for _, sp := range products {
		p := &entity.Product{
			ID: uuid.New().String(), CompanyID: companyID, SKU: sp.sku, Name: sp.name,
			UnitMeasure: "unidad", MinStock: decimal.NewFromInt(sp.minStock), CreatedAt: now, UpdatedAt: now,
		}
		if err := productRepo.Create(ctx, p); err != nil {
			return fmt.Errorf("producto %s: %w", sp.sku, err)
		}
		if err := stock.AddQuantity(ctx, principal.ID, p.ID, decimal.NewFromInt(sp.initial)); err != nil {
			return fmt.Errorf("saldo %s: %w", sp.sku, err)
		}
		fmt.Printf("producto %-12s %s (saldo %d)\n", sp.sku, p.ID, sp.initial)
	}
	return nil
}
