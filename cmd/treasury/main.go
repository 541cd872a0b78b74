// Command treasury runs the treasury operations API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tresfinos/treasury/api"
	"github.com/tresfinos/treasury/internal/accounting"
	"github.com/tresfinos/treasury/internal/automation"
	"github.com/tresfinos/treasury/internal/config"
	"github.com/tresfinos/treasury/internal/database"
	"github.com/tresfinos/treasury/internal/ledger"
	"github.com/tresfinos/treasury/internal/organization"
	"github.com/tresfinos/treasury/internal/reconciliation"
	"github.com/tresfinos/treasury/internal/reporting"
	"github.com/tresfinos/treasury/internal/wallet"
	"github.com/tresfinos/treasury/pkg/logger"
)

func main() {
	// .env is optional; real deployments use TRES_ environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	accountingSvc := accounting.NewService(log, db)
	services := api.Services{
		Organizations:  organization.NewService(log, db),
		Wallets:        wallet.NewService(log, db),
		Ledger:         ledger.NewService(log, db, accountingSvc),
		Accounting:     accountingSvc,
		Reconciliation: reconciliation.NewService(log, db, accountingSvc),
		Reporting:      reporting.NewService(log, db),
		Automation:     automation.NewService(log, db),
	}

	srv := api.NewServer(log, services)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx, cfg.Server.Addr); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
