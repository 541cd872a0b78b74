// Package reporting derives dashboard aggregates and generates stored
// reports from the ledger and reconciliation tables.
package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/pkg/models"
)

// Report types understood by Run. Anything else falls back to the
// treasury summary.
const (
	ReportTransactionHistory    = "TRANSACTION_HISTORY"
	ReportReconciliationSummary = "RECONCILIATION_SUMMARY"
	ReportTreasurySummary       = "TREASURY_SUMMARY"
)

// ReportingService defines dashboard and report operations
type ReportingService interface {
	DashboardSummary(ctx context.Context, organizationID string, periodDays int) (*DashboardSummary, error)
	TopAssets(ctx context.Context, organizationID string, limit int) ([]AssetAggregate, error)
	CreateReport(ctx context.Context, input ReportInput) (*models.Report, error)
	GetReport(ctx context.Context, reportID string) (*models.Report, error)
	ListReports(ctx context.Context, organizationID string, limit int) ([]models.Report, error)
	RunReport(ctx context.Context, reportID string) (*RunResult, error)
}

// DashboardSummary aggregates treasury activity over a trailing window
type DashboardSummary struct {
	PeriodDays                int     `json:"periodDays"`
	WalletCount               int64   `json:"walletCount"`
	ActiveWalletCount         int64   `json:"activeWalletCount"`
	TransactionCount          int64   `json:"transactionCount"`
	ConfirmedTransactionCount int64   `json:"confirmedTransactionCount"`
	ActiveChains              int64   `json:"activeChains"`
	InflowUsd                 float64 `json:"inflowUsd"`
	OutflowUsd                float64 `json:"outflowUsd"`
	NetFlowUsd                float64 `json:"netFlowUsd"`
	GrossUsd                  float64 `json:"grossUsd"`
	OpenReconciliationCount   int64   `json:"openReconciliationCount"`
}

// AssetAggregate is one token's all-time totals
type AssetAggregate struct {
	TokenSymbol string  `json:"token_symbol"`
	TxCount     int64   `json:"tx_count"`
	AmountSum   float64 `json:"amount_sum"`
	UsdSum      float64 `json:"usd_sum"`
}

// ReportInput is the report creation payload
type ReportInput struct {
	OrganizationID string
	ReportType     string
	Title          string
	Parameters     string // JSON text
}

// RunResult is the outcome of generating a report
type RunResult struct {
	ID      string                 `json:"id"`
	Status  string                 `json:"status"`
	Payload map[string]interface{} `json:"payload"`
}

// Service implements ReportingService
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new ReportingService
func NewService(logger *zap.Logger, db *gorm.DB) *Service {
	return &Service{logger: logger, db: db}
}

// DashboardSummary aggregates wallets, ledger flows and open reconciliations
// for the trailing periodDays window (clamped to 1..365, default 30).
func (s *Service) DashboardSummary(ctx context.Context, organizationID string, periodDays int) (*DashboardSummary, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	if periodDays <= 0 {
		periodDays = 30
	}
	if periodDays > 365 {
		periodDays = 365
	}
	from := time.Now().UTC().AddDate(0, 0, -periodDays)

	summary := &DashboardSummary{PeriodDays: periodDays}

	var walletAgg struct {
		WalletCount       int64
		ActiveWalletCount int64
	}
	err := s.db.WithContext(ctx).Model(&models.Wallet{}).
		Select("COUNT(*) AS wallet_count, COUNT(CASE WHEN is_active THEN 1 END) AS active_wallet_count").
		Where("organization_id = ?", organizationID).
		Scan(&walletAgg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate wallets: %w", err)
	}
	summary.WalletCount = walletAgg.WalletCount
	summary.ActiveWalletCount = walletAgg.ActiveWalletCount

	var txAgg struct {
		TransactionCount          int64
		ConfirmedTransactionCount int64
		InflowUsd                 float64
		OutflowUsd                float64
		GrossUsd                  float64
		ActiveChains              int64
	}
	err = s.db.WithContext(ctx).Model(&models.LedgerTransaction{}).
		Select(`COUNT(*) AS transaction_count,
			COUNT(CASE WHEN status = 'CONFIRMED' THEN 1 END) AS confirmed_transaction_count,
			COALESCE(SUM(CASE WHEN direction = 'IN' THEN COALESCE(CAST(fiat_value_usd AS REAL), 0) ELSE 0 END), 0) AS inflow_usd,
			COALESCE(SUM(CASE WHEN direction = 'OUT' THEN COALESCE(CAST(fiat_value_usd AS REAL), 0) ELSE 0 END), 0) AS outflow_usd,
			COALESCE(SUM(COALESCE(CAST(fiat_value_usd AS REAL), 0)), 0) AS gross_usd,
			COUNT(DISTINCT chain) AS active_chains`).
		Where("organization_id = ? AND occurred_at >= ?", organizationID, from).
		Scan(&txAgg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	summary.TransactionCount = txAgg.TransactionCount
	summary.ConfirmedTransactionCount = txAgg.ConfirmedTransactionCount
	summary.InflowUsd = txAgg.InflowUsd
	summary.OutflowUsd = txAgg.OutflowUsd
	summary.NetFlowUsd = txAgg.InflowUsd - txAgg.OutflowUsd
	summary.GrossUsd = txAgg.GrossUsd
	summary.ActiveChains = txAgg.ActiveChains

	err = s.db.WithContext(ctx).Model(&models.ReconciliationRun{}).
		Where("organization_id = ? AND status != 'COMPLETED'", organizationID).
		Count(&summary.OpenReconciliationCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count open reconciliations: %w", err)
	}

	return summary, nil
}

// TopAssets groups the ledger by token symbol and ranks by USD volume.
// Limit is clamped to 1..50 with a 10 default.
func (s *Service) TopAssets(ctx context.Context, organizationID string, limit int) ([]AssetAggregate, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	assets := []AssetAggregate{}
	err := s.db.WithContext(ctx).Model(&models.LedgerTransaction{}).
		Select(`COALESCE(token_symbol, 'UNKNOWN') AS token_symbol,
			COUNT(*) AS tx_count,
			ROUND(SUM(CAST(amount_decimal AS REAL)), 8) AS amount_sum,
			ROUND(SUM(COALESCE(CAST(fiat_value_usd AS REAL), 0)), 2) AS usd_sum`).
		Where("organization_id = ?", organizationID).
		Group("COALESCE(token_symbol, 'UNKNOWN')").
		Order("usd_sum DESC").
		Limit(limit).
		Scan(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate assets: %w", err)
	}
	return assets, nil
}

// CreateReport stores a DRAFT report definition
func (s *Service) CreateReport(ctx context.Context, input ReportInput) (*models.Report, error) {
	title := strings.TrimSpace(input.Title)
	if input.OrganizationID == "" || input.ReportType == "" || title == "" {
		return nil, apierr.InvalidInput("organizationId, reportType and title are required")
	}

	report := &models.Report{
		ID:             models.NewID("rpt"),
		OrganizationID: input.OrganizationID,
		ReportType:     strings.ToUpper(input.ReportType),
		Title:          title,
		ParametersJSON: input.Parameters,
		Status:         "DRAFT",
	}
	if report.ParametersJSON == "" {
		report.ParametersJSON = "{}"
	}

	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return report, nil
}

// GetReport loads one report by id
func (s *Service) GetReport(ctx context.Context, reportID string) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("report %s not found", reportID)
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return &report, nil
}

// ListReports returns an organization's reports newest first
func (s *Service) ListReports(ctx context.Context, organizationID string, limit int) ([]models.Report, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	if limit <= 0 || limit > 300 {
		limit = 100
	}

	var reports []models.Report
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// RunReport generates the report payload by type, persists the result and
// marks the report COMPLETED.
func (s *Service) RunReport(ctx context.Context, reportID string) (*RunResult, error) {
	report, err := s.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	reportType := strings.ToUpper(report.ReportType)
	if reportType == "" {
		reportType = ReportTreasurySummary
	}

	payload := map[string]interface{}{}
	switch reportType {
	case ReportTransactionHistory:
		var rows []models.LedgerTransaction
		err = s.db.WithContext(ctx).
			Where("organization_id = ?", report.OrganizationID).
			Order("occurred_at DESC").
			Limit(100).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load transaction history: %w", err)
		}
		payload["items"] = rows
	case ReportReconciliationSummary:
		var runs []models.ReconciliationRun
		err = s.db.WithContext(ctx).
			Where("organization_id = ?", report.OrganizationID).
			Order("period_start DESC").
			Limit(100).
			Find(&runs).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load reconciliation runs: %w", err)
		}
		payload["items"] = runs
	default:
		summary, err := s.DashboardSummary(ctx, report.OrganizationID, 30)
		if err != nil {
			return nil, err
		}
		assets, err := s.TopAssets(ctx, report.OrganizationID, 10)
		if err != nil {
			return nil, err
		}
		payload["summary"] = summary
		payload["topAssets"] = assets
	}

	resultJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report result: %w", err)
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", report.ID).
		Updates(map[string]interface{}{
			"status":       "COMPLETED",
			"generated_at": now,
			"result_json":  string(resultJSON),
			"updated_at":   now,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to persist report result: %w", err)
	}

	s.logger.Info("report generated",
		zap.String("report_id", report.ID),
		zap.String("report_type", reportType))
	return &RunResult{ID: report.ID, Status: "COMPLETED", Payload: payload}, nil
}
