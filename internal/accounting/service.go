// Package accounting implements the deterministic accounting core: rule
// based auto-classification, cost-basis lot replay and reconciliation
// aggregation. Every computation is a stateless single pass over a freshly
// fetched, chronologically ordered transaction snapshot.
package accounting

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountingService is the contract consumed by the CRUD layer.
type AccountingService interface {
	// Classify evaluates the active rules for the organization against the
	// candidate and returns the first matching rule's classification. ok is
	// false when no rule produced one.
	Classify(ctx context.Context, organizationID string, candidate Candidate) (classification string, ok bool, err error)

	// ComputeCostBasis replays the token's history under the method. An
	// empty history yields a zero-valued summary, not an error.
	ComputeCostBasis(ctx context.Context, organizationID, tokenSymbol string, method CostBasisMethod) (*CostBasisSummary, error)

	// AutoRun counts transactions in [periodStart, periodEnd] by
	// confirmation status.
	AutoRun(ctx context.Context, organizationID string, periodStart, periodEnd time.Time) (*ReconciliationSummary, error)
}

// Service implements AccountingService over a Store.
type Service struct {
	logger *zap.Logger
	store  Store
}

// NewService creates the accounting core over a gorm database.
func NewService(logger *zap.Logger, db *gorm.DB) *Service {
	return NewServiceWithStore(logger, NewGormStore(db))
}

// NewServiceWithStore creates the accounting core over an explicit store.
func NewServiceWithStore(logger *zap.Logger, store Store) *Service {
	return &Service{logger: logger, store: store}
}

// Classify returns the first matching active rule's classification action.
// Rules whose conditions hold but that carry no classification action are
// skipped and evaluation continues. Storage failures propagate unchanged.
func (s *Service) Classify(ctx context.Context, organizationID string, candidate Candidate) (string, bool, error) {
	rules, err := s.store.ListActiveClassificationRules(ctx, organizationID)
	if err != nil {
		return "", false, err
	}

	for _, rule := range rules {
		if !DecodeConditions(rule.ConditionsJSON).Matches(candidate) {
			continue
		}
		if classification := DecodeActionClassification(rule.ActionsJSON); classification != "" {
			s.logger.Debug("transaction auto-classified",
				zap.String("organization_id", organizationID),
				zap.String("rule_id", rule.ID),
				zap.String("classification", classification))
			return classification, true, nil
		}
	}

	return "", false, nil
}

// ComputeCostBasis fetches the chronological history and replays it.
func (s *Service) ComputeCostBasis(ctx context.Context, organizationID, tokenSymbol string, method CostBasisMethod) (*CostBasisSummary, error) {
	rows, err := s.store.ListTransactionsChronological(ctx, organizationID, tokenSymbol)
	if err != nil {
		return nil, err
	}
	return Replay(organizationID, tokenSymbol, method, rows), nil
}

// AutoRun aggregates the reconciliation window counts.
func (s *Service) AutoRun(ctx context.Context, organizationID string, periodStart, periodEnd time.Time) (*ReconciliationSummary, error) {
	total, matched, err := s.store.CountTransactionsInWindow(ctx, organizationID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	return SummarizeWindow(total, matched), nil
}
