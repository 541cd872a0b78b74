package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tresfinos/treasury/pkg/models"
)

// maxRulesPerEvaluation caps the rule set considered per classification.
const maxRulesPerEvaluation = 200

// Store is the persistence boundary of the accounting core. Implementations
// return freshly fetched snapshots; the core keeps no state across calls.
type Store interface {
	// ListActiveClassificationRules returns the active classification rules
	// for an organization ordered by (priority ASC, created_at ASC), capped
	// at 200.
	ListActiveClassificationRules(ctx context.Context, organizationID string) ([]models.AutomationRule, error)

	// ListTransactionsChronological returns the full history for an
	// organization+token (case-insensitive symbol match) ascending by
	// occurred_at.
	ListTransactionsChronological(ctx context.Context, organizationID, tokenSymbol string) ([]models.LedgerTransaction, error)

	// CountTransactionsInWindow counts transactions with occurred_at in
	// [periodStart, periodEnd] and how many of those are CONFIRMED.
	CountTransactionsInWindow(ctx context.Context, organizationID string, periodStart, periodEnd time.Time) (total, matched int64, err error)
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a gorm-backed accounting store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ListActiveClassificationRules(ctx context.Context, organizationID string) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ? AND rule_type IN ?",
			organizationID, true, []string{models.RuleTypeClassification, models.RuleTypeAutoClassification}).
		Order("priority ASC, created_at ASC").
		Limit(maxRulesPerEvaluation).
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list classification rules: %w", err)
	}
	return rules, nil
}

func (s *gormStore) ListTransactionsChronological(ctx context.Context, organizationID, tokenSymbol string) ([]models.LedgerTransaction, error) {
	var rows []models.LedgerTransaction
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND UPPER(COALESCE(token_symbol, '')) = ?",
			organizationID, strings.ToUpper(tokenSymbol)).
		Order("occurred_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rows, nil
}

func (s *gormStore) CountTransactionsInWindow(ctx context.Context, organizationID string, periodStart, periodEnd time.Time) (int64, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.LedgerTransaction{}).
		Where("organization_id = ? AND occurred_at >= ? AND occurred_at <= ?",
			organizationID, periodStart, periodEnd)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var matched int64
	err := s.db.WithContext(ctx).Model(&models.LedgerTransaction{}).
		Where("organization_id = ? AND occurred_at >= ? AND occurred_at <= ? AND status = ?",
			organizationID, periodStart, periodEnd, models.StatusConfirmed).
		Count(&matched).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count matched transactions: %w", err)
	}

	return total, matched, nil
}
