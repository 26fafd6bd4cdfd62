package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/enstockapp/mono-stock/internal/adjustments"
	"github.com/enstockapp/mono-stock/internal/app"
	"github.com/enstockapp/mono-stock/internal/auth"
	"github.com/enstockapp/mono-stock/internal/clients"
	"github.com/enstockapp/mono-stock/internal/masterdata/categories"
	"github.com/enstockapp/mono-stock/internal/masterdata/customers"
	"github.com/enstockapp/mono-stock/internal/masterdata/suppliers"
	"github.com/enstockapp/mono-stock/internal/observability"
	"github.com/enstockapp/mono-stock/internal/platform/cache"
	"github.com/enstockapp/mono-stock/internal/platform/db"
	"github.com/enstockapp/mono-stock/internal/products"
	"github.com/enstockapp/mono-stock/internal/purchases"
	"github.com/enstockapp/mono-stock/internal/rbac"
	"github.com/enstockapp/mono-stock/internal/sales"
	"github.com/enstockapp/mono-stock/internal/shared"
	"github.com/enstockapp/mono-stock/internal/variants"
	"github.com/enstockapp/mono-stock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionTTL)
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, rbacService, sessionManager)
	authHandler := auth.NewHandler(logger, authService)
	authenticator := auth.Authenticator{Logger: logger, Sessions: sessionManager}

	clientsService := clients.NewService(clients.NewRepository(dbpool))
	clientsHandler := clients.NewHandler(logger, clientsService)

	variantsService := variants.NewService(variants.NewRepository(dbpool))
	variantsHandler := variants.NewHandler(logger, variantsService, rbacMiddleware)

	productsService := products.NewService(products.NewRepository(dbpool), variantsService)
	productsHandler := products.NewHandler(logger, productsService, rbacMiddleware)

	purchasesService := purchases.NewService(purchases.NewRepository(dbpool), clientsService, auditLogger, cfg.StockAllowNegative)
	purchasesHandler := purchases.NewHandler(logger, purchasesService, rbacMiddleware, idempotencyStore)

	salesService := sales.NewService(sales.NewRepository(dbpool), clientsService, auditLogger, cfg.StockAllowNegative)
	salesHandler := sales.NewHandler(logger, salesService, rbacMiddleware, idempotencyStore)

	adjustmentsService := adjustments.NewService(adjustments.NewRepository(dbpool), auditLogger, cfg.StockAllowNegative)
	adjustmentsHandler := adjustments.NewHandler(logger, adjustmentsService, rbacMiddleware)

	suppliersHandler := suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(dbpool)), rbacMiddleware)
	customersHandler := customers.NewHandler(logger, customers.NewService(customers.NewRepository(dbpool)), rbacMiddleware)
	categoriesHandler := categories.NewHandler(logger, categories.NewService(categories.NewRepository(dbpool)), rbacMiddleware)

	metrics := observability.NewMetrics()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Authenticator:      authenticator,
		AuthHandler:        authHandler,
		ClientsHandler:     clientsHandler,
		VariantsHandler:    variantsHandler,
		ProductsHandler:    productsHandler,
		PurchasesHandler:   purchasesHandler,
		SalesHandler:       salesHandler,
		AdjustmentsHandler: adjustmentsHandler,
		SuppliersHandler:   suppliersHandler,
		CustomersHandler:   customersHandler,
		CategoriesHandler:  categoriesHandler,
		RBACHandler:        rbacHandler,
		JobsHandler:        jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
