// Command import-sales replays a CSV sheet of paper sales into the database.
//
// Usage:
//
//	import-sales [-config path] [-report] sales.csv
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/ticketdesk/lottery-backoffice/internal/config"
	"github.com/ticketdesk/lottery-backoffice/internal/logger"
	mongorepo "github.com/ticketdesk/lottery-backoffice/internal/repositories/mongodb"
	"github.com/ticketdesk/lottery-backoffice/internal/services"
	"github.com/ticketdesk/lottery-backoffice/internal/utils"
	"github.com/ticketdesk/lottery-backoffice/pkg/mongodb"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the config file")
	printReport := flag.Bool("report", false, "print the per-row report as JSON")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: import-sales [-config path] [-report] sales.csv")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	report, err := run(cfg, flag.Arg(0))
	if err != nil {
		slog.Error("Import failed", "error", err)
		os.Exit(1)
	}
	if *printReport {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	if report.Errors > 0 {
		os.Exit(1)
	}
}

func run(cfg *config.Config, path string) (*services.ImportReport, error) {
	ctx := logger.WithRequestID(context.Background(), logger.GenerateRequestID())

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}

	phones, err := utils.NewPhoneValidator(cfg.Sale.PhonePatterns)
	if err != nil {
		return nil, err
	}
	sales := services.NewSaleAllocator(
		mongorepo.NewLotteryRepository(db),
		mongorepo.NewTicketRepository(db),
		mongorepo.NewCustomerRepository(db),
		mongorepo.NewSellerRepository(db),
		client,
		phones,
	)
	return services.NewSaleImporter(sales).Import(ctx, file)
}
