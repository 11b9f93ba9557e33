package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/config"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/repository"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/expenseflow/expenseflow/internal/interfaces/http"
	"github.com/expenseflow/expenseflow/internal/report"
	"github.com/expenseflow/expenseflow/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense approval service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := sqlite.Open(sqlite.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := sqlite.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	workflowRepo := repository.NewWorkflowRepository(db.DB, logger)
	instanceRepo := repository.NewInstanceRepository(db.DB, logger)
	approvalRepo := repository.NewApprovalRepository(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	auditRepo := repository.NewAuditLogRepository(db.DB, logger)

	selector := service.NewWorkflowSelector(workflowRepo, logger)
	resolver := service.NewApproverResolver(userRepo, logger)
	instances := service.NewInstanceManager(
		workflowRepo, instanceRepo, approvalRepo, expenseRepo, auditRepo,
		selector, resolver, db, logger,
	)
	progress := service.NewProgressReporter(
		workflowRepo, instanceRepo, approvalRepo, expenseRepo, userRepo, logger,
	)
	inbox := service.NewApprovalInbox(approvalRepo, expenseRepo, auditRepo, userRepo, logger)
	admin := service.NewWorkflowAdminService(workflowRepo, db, logger)
	exporter := report.NewExpenseExporter(expenseRepo, userRepo, logger)

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		instances, progress, inbox, admin, exporter, userRepo, logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
