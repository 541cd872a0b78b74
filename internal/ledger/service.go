// Package ledger manages the append-only ledger transaction stream:
// ingestion with rule-based auto-classification, filtered queries, CSV
// export and transaction annotations.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/internal/accounting"
	"github.com/tresfinos/treasury/pkg/models"
)

var (
	ingestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treasury_transactions_ingested_total",
		Help: "Number of ledger transactions ingested.",
	})
	autoClassifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treasury_transactions_autoclassified_total",
		Help: "Number of ingested transactions classified by a rule.",
	})
)

// LedgerService defines ledger transaction operations
type LedgerService interface {
	Ingest(ctx context.Context, input TransactionInput) (*models.LedgerTransaction, error)
	IngestBulk(ctx context.Context, organizationID, walletID string, items []TransactionInput) (*BulkResult, error)
	List(ctx context.Context, organizationID string, filter TransactionFilter) ([]models.LedgerTransaction, error)
	ExportRows(ctx context.Context, organizationID string, limit int) ([]models.LedgerTransaction, error)

	CreateNote(ctx context.Context, transactionID string, input NoteInput) (*models.TransactionNote, error)
	ListNotes(ctx context.Context, transactionID string, limit int) ([]NoteView, error)
	CreateSplit(ctx context.Context, transactionID string, input SplitInput) (*models.TransactionSplit, error)
	ListSplits(ctx context.Context, transactionID string, limit int) ([]models.TransactionSplit, error)
	CreateGroup(ctx context.Context, input GroupInput) (*GroupResult, error)
	ListGroups(ctx context.Context, organizationID string, limit int) ([]GroupView, error)
}

// TransactionInput is the ingestion payload. AmountDecimal is a magnitude;
// Direction carries the sign.
type TransactionInput struct {
	OrganizationID string
	WalletID       string
	TxHash         string
	Chain          string
	AmountDecimal  string
	Direction      string
	Status         string
	OccurredAt     time.Time
	TokenSymbol    string
	TokenAddress   string
	FiatValueUsd   string
	CostBasisUsd   string
	Classification string
	Counterparty   string
	Metadata       string // JSON text
}

// BulkResult reports a bulk ingest outcome. Duplicate or invalid rows are
// skipped without failing the batch.
type BulkResult struct {
	InsertedCount int      `json:"insertedCount"`
	SkippedCount  int      `json:"skippedCount"`
	Inserted      []string `json:"inserted"`
	Skipped       []string `json:"skipped"`
}

// TransactionFilter narrows a ledger listing. Zero values mean no
// constraint; Limit is clamped to 1..500 with a 200 default.
type TransactionFilter struct {
	WalletID    string
	Chain       string
	TokenSymbol string
	Direction   string
	Status      string
	Search      string
	From        *time.Time
	To          *time.Time
	MinUsd      *float64
	MaxUsd      *float64
	Limit       int
}

// Service implements LedgerService
type Service struct {
	logger     *zap.Logger
	db         *gorm.DB
	accounting accounting.AccountingService
}

// NewService creates a new LedgerService
func NewService(logger *zap.Logger, db *gorm.DB, accountingSvc accounting.AccountingService) *Service {
	return &Service{logger: logger, db: db, accounting: accountingSvc}
}

func (s *Service) organizationExists(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check organization: %w", err)
	}
	if count == 0 {
		return apierr.NotFound("organization %s not found", id)
	}
	return nil
}

func (s *Service) walletExists(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Wallet{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check wallet: %w", err)
	}
	if count == 0 {
		return apierr.NotFound("wallet %s not found", id)
	}
	return nil
}

// resolveClassification keeps a user-supplied classification, otherwise asks
// the accounting core for a rule match. Classification is set at ingest time
// only; the row is immutable afterwards.
func (s *Service) resolveClassification(ctx context.Context, input TransactionInput) (*string, error) {
	if c := strings.TrimSpace(input.Classification); c != "" {
		return &c, nil
	}

	fiat, _ := accounting.ParseAmount(input.FiatValueUsd).Float64()
	candidate := accounting.NewCandidate(
		input.WalletID,
		input.Chain,
		input.Direction,
		input.TokenSymbol,
		input.Counterparty,
		fiat,
	)

	classification, ok, err := s.accounting.Classify(ctx, input.OrganizationID, candidate)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	autoClassifiedTotal.Inc()
	return &classification, nil
}

func (s *Service) buildRow(input TransactionInput, classification *string) *models.LedgerTransaction {
	row := &models.LedgerTransaction{
		ID:             models.NewID("tx"),
		OrganizationID: input.OrganizationID,
		WalletID:       input.WalletID,
		TxHash:         input.TxHash,
		Chain:          strings.ToLower(input.Chain),
		AmountDecimal:  input.AmountDecimal,
		Direction:      strings.ToUpper(input.Direction),
		Status:         strings.ToUpper(input.Status),
		Classification: classification,
		OccurredAt:     input.OccurredAt,
	}
	if row.Status == "" {
		row.Status = models.StatusConfirmed
	}
	if t := strings.ToUpper(strings.TrimSpace(input.TokenSymbol)); t != "" {
		row.TokenSymbol = &t
	}
	if a := strings.ToLower(strings.TrimSpace(input.TokenAddress)); a != "" {
		row.TokenAddress = &a
	}
	if input.FiatValueUsd != "" {
		v := input.FiatValueUsd
		row.FiatValueUsd = &v
	}
	if input.CostBasisUsd != "" {
		v := input.CostBasisUsd
		row.CostBasisUsd = &v
	}
	if input.Counterparty != "" {
		v := input.Counterparty
		row.Counterparty = &v
	}
	row.MetadataJSON = input.Metadata
	if row.MetadataJSON == "" {
		row.MetadataJSON = "{}"
	}
	return row
}

func validateInput(input TransactionInput) error {
	if input.OrganizationID == "" || input.WalletID == "" || input.TxHash == "" ||
		input.Chain == "" || input.AmountDecimal == "" || input.Direction == "" || input.OccurredAt.IsZero() {
		return apierr.InvalidInput("organizationId, walletId, txHash, chain, amountDecimal, direction, occurredAt are required")
	}
	return nil
}

// Ingest persists one transaction, auto-classifying it when no
// classification was supplied.
func (s *Service) Ingest(ctx context.Context, input TransactionInput) (*models.LedgerTransaction, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := s.organizationExists(ctx, input.OrganizationID); err != nil {
		return nil, err
	}
	if err := s.walletExists(ctx, input.WalletID); err != nil {
		return nil, err
	}

	classification, err := s.resolveClassification(ctx, input)
	if err != nil {
		return nil, err
	}

	row := s.buildRow(input, classification)
	if err := models.Validate(row); err != nil {
		return nil, apierr.InvalidInput("invalid transaction: %v", err)
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, apierr.Conflict("transaction already exists or references are invalid")
	}

	ingestedTotal.Inc()
	s.logger.Info("transaction ingested",
		zap.String("transaction_id", row.ID),
		zap.String("organization_id", row.OrganizationID),
		zap.String("direction", row.Direction))
	return row, nil
}

// IngestBulk persists a batch for one wallet. Rows that fail insertion
// (duplicate tx hashes included) are reported as skipped by hash.
func (s *Service) IngestBulk(ctx context.Context, organizationID, walletID string, items []TransactionInput) (*BulkResult, error) {
	if organizationID == "" || walletID == "" || len(items) == 0 {
		return nil, apierr.InvalidInput("organizationId, walletId and items are required")
	}
	if err := s.organizationExists(ctx, organizationID); err != nil {
		return nil, err
	}
	if err := s.walletExists(ctx, walletID); err != nil {
		return nil, err
	}

	result := &BulkResult{Inserted: []string{}, Skipped: []string{}}
	for _, item := range items {
		item.OrganizationID = organizationID
		item.WalletID = walletID

		if err := validateInput(item); err != nil {
			result.Skipped = append(result.Skipped, item.TxHash)
			continue
		}

		classification, err := s.resolveClassification(ctx, item)
		if err != nil {
			return nil, err
		}

		row := s.buildRow(item, classification)
		if err := models.Validate(row); err != nil {
			result.Skipped = append(result.Skipped, item.TxHash)
			continue
		}
		if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
			result.Skipped = append(result.Skipped, item.TxHash)
			continue
		}
		ingestedTotal.Inc()
		result.Inserted = append(result.Inserted, row.ID)
	}

	result.InsertedCount = len(result.Inserted)
	result.SkippedCount = len(result.Skipped)
	return result, nil
}

// List queries the ledger newest first with the given filter.
func (s *Service) List(ctx context.Context, organizationID string, filter TransactionFilter) ([]models.LedgerTransaction, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	q := s.db.WithContext(ctx).Where("organization_id = ?", organizationID)
	if filter.WalletID != "" {
		q = q.Where("wallet_id = ?", filter.WalletID)
	}
	if filter.Chain != "" {
		q = q.Where("chain = ?", strings.ToLower(filter.Chain))
	}
	if filter.TokenSymbol != "" {
		q = q.Where("COALESCE(token_symbol, '') = ?", strings.ToUpper(filter.TokenSymbol))
	}
	if filter.Direction != "" {
		q = q.Where("direction = ?", strings.ToUpper(filter.Direction))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", strings.ToUpper(filter.Status))
	}
	if filter.From != nil {
		q = q.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("occurred_at <= ?", *filter.To)
	}
	if filter.MinUsd != nil {
		q = q.Where("COALESCE(CAST(fiat_value_usd AS REAL), 0) >= ?", *filter.MinUsd)
	}
	if filter.MaxUsd != nil {
		q = q.Where("COALESCE(CAST(fiat_value_usd AS REAL), 0) <= ?", *filter.MaxUsd)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		q = q.Where("(tx_hash LIKE ? OR COALESCE(token_symbol, '') LIKE ? OR COALESCE(counterparty, '') LIKE ?)",
			pattern, pattern, pattern)
	}

	var rows []models.LedgerTransaction
	if err := q.Order("occurred_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rows, nil
}

// ExportRows fetches the newest rows for a CSV or JSON export.
func (s *Service) ExportRows(ctx context.Context, organizationID string, limit int) ([]models.LedgerTransaction, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	if limit <= 0 || limit > 2000 {
		limit = 500
	}

	var rows []models.LedgerTransaction
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to export transactions: %w", err)
	}
	return rows, nil
}

func (s *Service) transactionInOrganization(ctx context.Context, transactionID, organizationID string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.LedgerTransaction{}).
		Where("id = ? AND organization_id = ?", transactionID, organizationID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check transaction: %w", err)
	}
	if count == 0 {
		return apierr.NotFound("transaction %s not found", transactionID)
	}
	return nil
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
