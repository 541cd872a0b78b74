// Package api exposes the treasury services over HTTP with gin.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/internal/accounting"
	"github.com/tresfinos/treasury/internal/automation"
	"github.com/tresfinos/treasury/internal/ledger"
	"github.com/tresfinos/treasury/internal/organization"
	"github.com/tresfinos/treasury/internal/reconciliation"
	"github.com/tresfinos/treasury/internal/reporting"
	"github.com/tresfinos/treasury/internal/wallet"
)

const apiVersion = "1.0.0"

// Services bundles the domain services the server routes to
type Services struct {
	Organizations  organization.OrganizationService
	Wallets        wallet.WalletService
	Ledger         ledger.LedgerService
	Accounting     accounting.AccountingService
	Reconciliation reconciliation.ReconciliationService
	Reporting      reporting.ReportingService
	Automation     automation.AutomationService
}

// Server is the HTTP front for the treasury platform
type Server struct {
	logger   *zap.Logger
	engine   *gin.Engine
	services Services
	httpSrv  *http.Server
}

// NewServer wires middleware and routes around the given services
func NewServer(logger *zap.Logger, services Services) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{logger: logger, engine: engine, services: services}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "treasury-api"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	v1.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "treasury-api", "version": apiVersion})
	})

	v1.GET("/organizations", s.listOrganizations)
	v1.POST("/organizations", s.createOrganization)
	v1.GET("/organizations/:id", s.getOrganization)
	v1.PATCH("/organizations/:id", s.updateOrganization)

	v1.GET("/team-members", s.listTeamMembers)
	v1.POST("/team-members", s.createTeamMember)
	v1.PATCH("/team-members/:id", s.updateTeamMember)

	v1.GET("/dashboard/summary", s.dashboardSummary)
	v1.GET("/dashboard/top-assets", s.dashboardTopAssets)

	v1.GET("/wallets", s.listWallets)
	v1.POST("/wallets", s.createWallet)
	v1.GET("/wallets/:id", s.getWallet)
	v1.PATCH("/wallets/:id", s.updateWallet)

	v1.GET("/transactions", s.listTransactions)
	v1.POST("/transactions", s.createTransaction)
	v1.POST("/transactions/bulk", s.bulkCreateTransactions)
	v1.GET("/transactions/export", s.exportTransactions)
	v1.GET("/transactions/:id/notes", s.listTransactionNotes)
	v1.POST("/transactions/:id/notes", s.createTransactionNote)
	v1.GET("/transactions/:id/splits", s.listTransactionSplits)
	v1.POST("/transactions/:id/splits", s.createTransactionSplit)

	v1.GET("/transaction-groups", s.listTransactionGroups)
	v1.POST("/transaction-groups", s.createTransactionGroup)

	v1.POST("/cost-basis/calculate", s.calculateCostBasis)

	v1.GET("/reconciliations", s.listReconciliations)
	v1.POST("/reconciliations", s.createReconciliation)
	v1.PATCH("/reconciliations/:id", s.updateReconciliation)
	v1.POST("/reconciliations/auto-run", s.autoRunReconciliation)

	v1.GET("/reports", s.listReports)
	v1.POST("/reports", s.createReport)
	v1.GET("/reports/:id", s.getReport)
	v1.POST("/reports/:id/run", s.runReport)

	v1.GET("/alerts", s.listAlerts)
	v1.POST("/alerts", s.createAlert)
	v1.PATCH("/alerts/:id", s.updateAlert)

	v1.GET("/rules", s.listRules)
	v1.POST("/rules", s.createRule)
	v1.PATCH("/rules/:id", s.updateRule)

	v1.GET("/webhooks", s.listWebhooks)
	v1.POST("/webhooks", s.createWebhook)
	v1.PATCH("/webhooks/:id", s.updateWebhook)
	v1.GET("/webhooks/:id/events", s.listWebhookEvents)
	v1.POST("/webhooks/:id/test", s.testWebhook)

	v1.GET("/integrations/erp", s.listErpConnections)
	v1.POST("/integrations/erp", s.createErpConnection)
	v1.POST("/integrations/erp/:id/sync", s.syncErpConnection)
}

// Router exposes the underlying engine for tests
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Start serves until the context is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// respondError maps a service error onto an RFC 7807 response
func respondError(c *gin.Context, err error) {
	apierr.Respond(c, err)
}

func bindError(c *gin.Context, err error) {
	apierr.Respond(c, apierr.InvalidInput("invalid request body: %v", err))
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryTime(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

func queryFloat(c *gin.Context, name string) *float64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
