package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/swaggo/swag"
	"golang.org/x/sync/errgroup"

	_ "github.com/jhoicas/inventario-flujo/docs"
	"github.com/jhoicas/inventario-flujo/internal/application/inventory"
	"github.com/jhoicas/inventario-flujo/internal/application/usecase"
	"github.com/jhoicas/inventario-flujo/internal/domain/repository"
	"github.com/jhoicas/inventario-flujo/internal/infrastructure/lock"
	"github.com/jhoicas/inventario-flujo/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-flujo/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-flujo/internal/infrastructure/queue"
	httpRouter "github.com/jhoicas/inventario-flujo/internal/interfaces/http"
	"github.com/jhoicas/inventario-flujo/pkg/config"
	"github.com/jhoicas/inventario-flujo/pkg/logger"
)

// storage repositorios y transacciones del driver elegido.
type storage struct {
	tx         inventory.TxRunner
	documents  repository.DocumentRepository
	movements  repository.MovementRepository
	stock      repository.StockRepository
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: todas las rutas /api responderán 401")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer store.close()

	// Sin Redis: candado en proceso y notificaciones solo a logs.
	var (
		notifier inventory.Notifier = logNotifier{log: log.Component("notifications")}
		locker   inventory.DocumentLocker = lock.NewLocalLocker(cfg.Workflow.LockTTL())
		workers  *queue.Pool
	)
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("REDIS_URL inválida")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		notifier = queue.NewDispatcher(rdb, cfg.Notify.Queue)
		locker = lock.NewRedisLocker(rdb, log)
		workers = queue.NewPool(rdb, queue.PoolConfig{
			Queue:       cfg.Notify.Queue,
			Workers:     cfg.Notify.Workers,
			MaxAttempts: cfg.Notify.MaxAttempts,
		}, queue.LogHandler(log), log)
	}

	documentUC := inventory.NewDocumentUseCase(
		store.tx, store.documents, store.movements, store.stock,
		store.products, store.warehouses, notifier, locker, log,
		inventory.WorkflowConfig{
			MaxRetries:   cfg.Workflow.MaxRetries,
			RetryBackoff: cfg.Workflow.RetryBackoff(),
			LockTTL:      cfg.Workflow.LockTTL(),
		},
	)
	stockUC := inventory.NewStockUseCase(store.stock, store.movements, store.products, store.warehouses)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario Flujo API",
	}))

	// Misma especificación embebida en el binario, para clientes que generan código.
	app.Get("/openapi.json", func(c *fiber.Ctx) error {
		doc, err := swag.ReadDoc()
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(doc)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Storage.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		WarehouseUC: usecase.NewWarehouseUseCase(store.warehouses),
		ProductUC:   usecase.NewProductUseCase(store.products),
		DocumentUC:  documentUC,
		StockUC:     stockUC,
		Auth:        httpRouter.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(cfg.HTTP.Addr())
	})
	if workers != nil {
		g.Go(func() error { return workers.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("servidor finalizado con error")
		os.Exit(1)
	}
	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &storage{
			tx: s, documents: s.Documents(), movements: s.Movements(), stock: s.Stock(),
			products: s.Products(), warehouses: s.Warehouses(), close: func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.ApplySchema {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema aplicado")
	}
	return &storage{
		tx:         postgres.NewTxRunner(pool),
		documents:  postgres.NewDocumentRepository(pool),
		movements:  postgres.NewMovementRepository(pool),
		stock:      postgres.NewStockRepository(pool),
		products:   postgres.NewProductRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		close:      pool.Close,
	}, nil
}
