// Package wallet manages the tracked wallets of an organization.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/pkg/models"
)

// WalletService defines wallet operations
type WalletService interface {
	CreateWallet(ctx context.Context, input WalletInput) (*models.Wallet, error)
	UpdateWallet(ctx context.Context, id string, update WalletUpdate) (*models.Wallet, error)
	ListWallets(ctx context.Context, organizationID string) ([]models.Wallet, error)
	GetWallet(ctx context.Context, id string) (*models.Wallet, error)
}

// WalletInput is the creation payload for a wallet
type WalletInput struct {
	OrganizationID string
	Chain          string
	Address        string
	Label          string
	SourceType     string
}

// WalletUpdate carries PATCH semantics; nil fields are left unchanged.
type WalletUpdate struct {
	Label      *string
	SourceType *string
	IsActive   *bool
}

// Service implements WalletService
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new WalletService
func NewService(logger *zap.Logger, db *gorm.DB) *Service {
	return &Service{logger: logger, db: db}
}

// CreateWallet registers a wallet; chain and address are lowercased and
// unique per organization.
func (s *Service) CreateWallet(ctx context.Context, input WalletInput) (*models.Wallet, error) {
	if input.OrganizationID == "" || input.Chain == "" || input.Address == "" {
		return nil, apierr.InvalidInput("organizationId, chain and address are required")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", input.OrganizationID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check organization: %w", err)
	}
	if count == 0 {
		return nil, apierr.NotFound("organization %s not found", input.OrganizationID)
	}

	sourceType := strings.ToUpper(strings.TrimSpace(input.SourceType))
	if sourceType == "" {
		sourceType = "ONCHAIN"
	}

	w := &models.Wallet{
		ID:             models.NewID("wal"),
		OrganizationID: input.OrganizationID,
		Chain:          strings.ToLower(input.Chain),
		Address:        strings.ToLower(input.Address),
		SourceType:     sourceType,
		IsActive:       true,
	}
	if label := strings.TrimSpace(input.Label); label != "" {
		w.Label = &label
	}

	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		return nil, apierr.Conflict("wallet already exists or references are invalid")
	}

	s.logger.Info("wallet created",
		zap.String("wallet_id", w.ID),
		zap.String("organization_id", w.OrganizationID),
		zap.String("chain", w.Chain))
	return w, nil
}

// UpdateWallet applies a partial update
func (s *Service) UpdateWallet(ctx context.Context, id string, update WalletUpdate) (*models.Wallet, error) {
	var w models.Wallet
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("wallet %s not found", id)
		}
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}

	fields := map[string]interface{}{}
	if update.Label != nil && strings.TrimSpace(*update.Label) != "" {
		fields["label"] = strings.TrimSpace(*update.Label)
	}
	if update.SourceType != nil {
		fields["source_type"] = strings.ToUpper(*update.SourceType)
	}
	if update.IsActive != nil {
		fields["is_active"] = *update.IsActive
	}
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.db.WithContext(ctx).Model(&w).Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("failed to update wallet: %w", err)
		}
	}

	return &w, nil
}

// ListWallets lists an organization's wallets newest first
func (s *Service) ListWallets(ctx context.Context, organizationID string) ([]models.Wallet, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}

	var wallets []models.Wallet
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

// GetWallet fetches one wallet
func (s *Service) GetWallet(ctx context.Context, id string) (*models.Wallet, error) {
	var w models.Wallet
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("wallet %s not found", id)
		}
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	return &w, nil
}
