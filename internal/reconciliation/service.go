// Package reconciliation manages reconciliation runs: manual drafts and
// automatic runs whose counts come from the accounting core.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/internal/accounting"
	"github.com/tresfinos/treasury/pkg/models"
)

// ReconciliationService defines reconciliation run operations
type ReconciliationService interface {
	Create(ctx context.Context, input RunInput) (*models.ReconciliationRun, error)
	Update(ctx context.Context, organizationID, runID string, update RunUpdate) (*models.ReconciliationRun, error)
	List(ctx context.Context, organizationID string, limit int) ([]models.ReconciliationRun, error)
	AutoRun(ctx context.Context, organizationID string, periodStart, periodEnd *time.Time) (*models.ReconciliationRun, error)
}

// RunInput is the manual run creation payload
type RunInput struct {
	OrganizationID string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Status         string
	Notes          string
}

// RunUpdate carries a partial update; nil fields are left untouched
type RunUpdate struct {
	Status           *string
	Notes            *string
	MatchedCount     *int64
	UnmatchedCount   *int64
	DiscrepancyCount *int64
}

// Service implements ReconciliationService
type Service struct {
	logger     *zap.Logger
	db         *gorm.DB
	accounting accounting.AccountingService
}

// NewService creates a new ReconciliationService
func NewService(logger *zap.Logger, db *gorm.DB, accountingSvc accounting.AccountingService) *Service {
	return &Service{logger: logger, db: db, accounting: accountingSvc}
}

// Create records a manual reconciliation run
func (s *Service) Create(ctx context.Context, input RunInput) (*models.ReconciliationRun, error) {
	if input.OrganizationID == "" || input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, apierr.InvalidInput("organizationId, periodStart and periodEnd are required")
	}
	if input.PeriodEnd.Before(input.PeriodStart) {
		return nil, apierr.InvalidInput("periodEnd must not precede periodStart")
	}

	run := &models.ReconciliationRun{
		ID:             models.NewID("rec"),
		OrganizationID: input.OrganizationID,
		PeriodStart:    input.PeriodStart,
		PeriodEnd:      input.PeriodEnd,
		Status:         input.Status,
	}
	if run.Status == "" {
		run.Status = "DRAFT"
	}
	if input.Notes != "" {
		run.Notes = &input.Notes
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to create reconciliation run: %w", err)
	}
	return run, nil
}

// Update applies a partial update to a run
func (s *Service) Update(ctx context.Context, organizationID, runID string, update RunUpdate) (*models.ReconciliationRun, error) {
	fields := map[string]interface{}{}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.Notes != nil {
		fields["notes"] = *update.Notes
	}
	if update.MatchedCount != nil {
		fields["matched_count"] = *update.MatchedCount
	}
	if update.UnmatchedCount != nil {
		fields["unmatched_count"] = *update.UnmatchedCount
	}
	if update.DiscrepancyCount != nil {
		fields["discrepancy_count"] = *update.DiscrepancyCount
	}
	if len(fields) == 0 {
		return nil, apierr.InvalidInput("no fields to update")
	}
	fields["updated_at"] = time.Now().UTC()

	result := s.db.WithContext(ctx).Model(&models.ReconciliationRun{}).
		Where("id = ? AND organization_id = ?", runID, organizationID).
		Updates(fields)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update reconciliation run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apierr.NotFound("reconciliation run %s not found", runID)
	}

	var run models.ReconciliationRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("reconciliation run %s not found", runID)
		}
		return nil, fmt.Errorf("failed to load reconciliation run: %w", err)
	}
	return &run, nil
}

// List returns an organization's runs, most recent period first
func (s *Service) List(ctx context.Context, organizationID string, limit int) ([]models.ReconciliationRun, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	if limit <= 0 || limit > 300 {
		limit = 100
	}

	var runs []models.ReconciliationRun
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("period_start DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation runs: %w", err)
	}
	return runs, nil
}

// AutoRun computes window counts from the ledger and persists a COMPLETED
// run. The window defaults to the trailing 30 days.
func (s *Service) AutoRun(ctx context.Context, organizationID string, periodStart, periodEnd *time.Time) (*models.ReconciliationRun, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}

	now := time.Now().UTC()
	end := now
	if periodEnd != nil {
		end = *periodEnd
	}
	start := now.AddDate(0, 0, -30)
	if periodStart != nil {
		start = *periodStart
	}
	if end.Before(start) {
		return nil, apierr.InvalidInput("periodEnd must not precede periodStart")
	}

	summary, err := s.accounting.AutoRun(ctx, organizationID, start, end)
	if err != nil {
		return nil, err
	}

	notes := "Auto-run reconciliation generated from ledger snapshot"
	run := &models.ReconciliationRun{
		ID:               models.NewID("rec"),
		OrganizationID:   organizationID,
		PeriodStart:      start,
		PeriodEnd:        end,
		Status:           "COMPLETED",
		MatchedCount:     summary.MatchedCount,
		UnmatchedCount:   summary.UnmatchedCount,
		DiscrepancyCount: summary.DiscrepancyCount,
		Notes:            &notes,
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to persist reconciliation run: %w", err)
	}

	s.logger.Info("reconciliation auto-run completed",
		zap.String("organization_id", organizationID),
		zap.Int64("matched", run.MatchedCount),
		zap.Int64("unmatched", run.UnmatchedCount))
	return run, nil
}
