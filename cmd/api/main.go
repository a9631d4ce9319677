package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ticketdesk/lottery-backoffice/api/routes"
	"github.com/ticketdesk/lottery-backoffice/internal/config"
	"github.com/ticketdesk/lottery-backoffice/internal/handlers"
	"github.com/ticketdesk/lottery-backoffice/internal/logger"
	mongorepo "github.com/ticketdesk/lottery-backoffice/internal/repositories/mongodb"
	"github.com/ticketdesk/lottery-backoffice/internal/services"
	"github.com/ticketdesk/lottery-backoffice/internal/utils"
	"github.com/ticketdesk/lottery-backoffice/pkg/mongodb"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	lotteryRepo := mongorepo.NewLotteryRepository(db)
	ticketRepo := mongorepo.NewTicketRepository(db)
	customerRepo := mongorepo.NewCustomerRepository(db)
	sellerRepo := mongorepo.NewSellerRepository(db)

	phones, err := utils.NewPhoneValidator(cfg.Sale.PhonePatterns)
	if err != nil {
		return err
	}
	weekStart, err := utils.ParseWeekday(cfg.Commission.WeekStart)
	if err != nil {
		return err
	}
	if err := handlers.RegisterValidators(phones); err != nil {
		return err
	}

	lotteryService := services.NewLotteryManager(lotteryRepo, ticketRepo, mongoClient)
	saleService := services.NewSaleAllocator(lotteryRepo, ticketRepo, customerRepo, sellerRepo, mongoClient, phones)
	winnerService := services.NewWinnerResolver(lotteryRepo, ticketRepo, mongoClient)
	notificationService := services.NewNotificationTracker(lotteryRepo, ticketRepo)
	commissionService := services.NewCommissionCalculator(lotteryRepo, ticketRepo, sellerRepo, cfg.Commission.TrendClamp, weekStart)

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		LotteryHandler:      handlers.NewLotteryHandler(lotteryService),
		SaleHandler:         handlers.NewSaleHandler(saleService, cfg.Polling),
		WinnerHandler:       handlers.NewWinnerHandler(winnerService),
		NotificationHandler: handlers.NewNotificationHandler(notificationService),
		CommissionHandler:   handlers.NewCommissionHandler(commissionService),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("Server exiting")
	return nil
}
