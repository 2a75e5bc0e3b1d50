package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/therma-erp/therma-erp/internal/analytics"
	"github.com/therma-erp/therma-erp/internal/app"
	"github.com/therma-erp/therma-erp/internal/auth"
	"github.com/therma-erp/therma-erp/internal/catalog"
	"github.com/therma-erp/therma-erp/internal/dashboard"
	"github.com/therma-erp/therma-erp/internal/finance"
	"github.com/therma-erp/therma-erp/internal/inventory"
	"github.com/therma-erp/therma-erp/internal/notify"
	"github.com/therma-erp/therma-erp/internal/orders"
	"github.com/therma-erp/therma-erp/internal/platform/cache"
	"github.com/therma-erp/therma-erp/internal/platform/db"
	"github.com/therma-erp/therma-erp/internal/procurement"
	"github.com/therma-erp/therma-erp/internal/production"
	"github.com/therma-erp/therma-erp/internal/rbac"
	"github.com/therma-erp/therma-erp/internal/shared"
	"github.com/therma-erp/therma-erp/internal/users"
)

func main() {
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

	sessionManager := shared.NewSessionManager(redisClient, "therma_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(dbpool)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Source: rbacService, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService, rbacMiddleware)

	procurementRepo := procurement.NewRepository(dbpool)
	procurementService := procurement.NewService(procurementRepo, auditLogger)
	procurementHandler := procurement.NewHandler(logger, procurementService, rbacMiddleware)

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, catalogService, auditLogger, cfg.StrictValidation)
	ordersHandler := orders.NewHandler(logger, ordersService, rbacMiddleware)

	productionRepo := production.NewRepository(dbpool)
	productionService := production.NewService(productionRepo, auditLogger)
	productionHandler := production.NewHandler(logger, productionService, rbacMiddleware)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	financeRepo := finance.NewRepository(dbpool)
	financeService := finance.NewService(financeRepo, auditLogger)
	financeHandler := finance.NewHandler(logger, financeService, rbacMiddleware)

	notifyRepo := notify.NewRepository(dbpool)
	notifyService := notify.NewService(notifyRepo)
	notifyHandler := notify.NewHandler(logger, notifyService, rbacMiddleware)

	analyticsRepo := analytics.NewRepository(dbpool)
	analyticsService := analytics.NewService(analyticsRepo)

	dashboardHandler := dashboard.NewHandler(
		logger,
		rbacMiddleware,
		usersService,
		ordersService,
		procurementService,
		inventoryService,
		productionService,
		financeService,
		analyticsService,
	)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		CatalogHandler:     catalogHandler,
		ProcurementHandler: procurementHandler,
		OrdersHandler:      ordersHandler,
		ProductionHandler:  productionHandler,
		InventoryHandler:   inventoryHandler,
		FinanceHandler:     financeHandler,
		NotifyHandler:      notifyHandler,
		DashboardHandler:   dashboardHandler,
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
