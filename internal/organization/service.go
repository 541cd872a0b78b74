// Package organization manages treasury tenants and their team members.
package organization

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

// OrganizationService defines organization and team member operations
type OrganizationService interface {
	CreateOrganization(ctx context.Context, name, baseCurrency string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, id string, update OrganizationUpdate) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)

	CreateTeamMember(ctx context.Context, input TeamMemberInput) (*models.TeamMember, error)
	UpdateTeamMember(ctx context.Context, id string, update TeamMemberUpdate) (*models.TeamMember, error)
	ListTeamMembers(ctx context.Context, organizationID string, limit int) ([]models.TeamMember, error)
}

// OrganizationUpdate carries PATCH semantics; nil fields are left unchanged.
type OrganizationUpdate struct {
	Name         *string
	Status       *string
	BaseCurrency *string
}

// TeamMemberInput is the creation payload for a team member
type TeamMemberInput struct {
	OrganizationID string
	Email          string
	DisplayName    string
	Role           string
	Permissions    string // JSON text
}

// TeamMemberUpdate carries PATCH semantics; nil fields are left unchanged.
type TeamMemberUpdate struct {
	DisplayName *string
	Role        *string
	Status      *string
	Permissions *string
}

// Service implements OrganizationService
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new OrganizationService
func NewService(logger *zap.Logger, db *gorm.DB) *Service {
	return &Service{logger: logger, db: db}
}

// CreateOrganization creates an organization with USD as the default base currency
func (s *Service) CreateOrganization(ctx context.Context, name, baseCurrency string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.InvalidInput("name is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(baseCurrency))
	if currency == "" {
		currency = "USD"
	}

	org := &models.Organization{
		ID:           models.NewID("org"),
		Name:         name,
		BaseCurrency: currency,
		Status:       "ACTIVE",
	}
	if err := models.Validate(org); err != nil {
		return nil, apierr.InvalidInput("invalid organization: %v", err)
	}
	if err := s.db.WithContext(ctx).Create(org).Error; err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	s.logger.Info("organization created", zap.String("organization_id", org.ID), zap.String("name", name))
	return org, nil
}

// UpdateOrganization applies a partial update
func (s *Service) UpdateOrganization(ctx context.Context, id string, update OrganizationUpdate) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("organization %s not found", id)
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	fields := map[string]interface{}{}
	if update.Name != nil && strings.TrimSpace(*update.Name) != "" {
		fields["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Status != nil {
		fields["status"] = strings.ToUpper(*update.Status)
	}
	if update.BaseCurrency != nil {
		fields["base_currency"] = strings.ToUpper(*update.BaseCurrency)
	}
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.db.WithContext(ctx).Model(&org).Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("failed to update organization: %w", err)
		}
	}

	return &org, nil
}

// ListOrganizations lists all organizations newest first
func (s *Service) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// GetOrganization fetches one organization
func (s *Service) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("organization %s not found", id)
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return &org, nil
}

// CreateTeamMember adds a member to an organization; the email must be
// unique within it.
func (s *Service) CreateTeamMember(ctx context.Context, input TeamMemberInput) (*models.TeamMember, error) {
	if input.OrganizationID == "" || strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.DisplayName) == "" {
		return nil, apierr.InvalidInput("organizationId, email and displayName are required")
	}

	if _, err := s.GetOrganization(ctx, input.OrganizationID); err != nil {
		return nil, err
	}

	role := strings.ToUpper(strings.TrimSpace(input.Role))
	if role == "" {
		role = "ACCOUNTANT"
	}
	permissions := input.Permissions
	if permissions == "" {
		permissions = "{}"
	}

	member := &models.TeamMember{
		ID:              models.NewID("usr"),
		OrganizationID:  input.OrganizationID,
		Email:           strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName:     strings.TrimSpace(input.DisplayName),
		Role:            role,
		Status:          "ACTIVE",
		PermissionsJSON: permissions,
	}
	if err := models.Validate(member); err != nil {
		return nil, apierr.InvalidInput("invalid team member: %v", err)
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, apierr.Conflict("team member already exists in organization")
	}

	return member, nil
}

// UpdateTeamMember applies a partial update
func (s *Service) UpdateTeamMember(ctx context.Context, id string, update TeamMemberUpdate) (*models.TeamMember, error) {
	var member models.TeamMember
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("team member %s not found", id)
		}
		return nil, fmt.Errorf("failed to find team member: %w", err)
	}

	fields := map[string]interface{}{}
	if update.DisplayName != nil && strings.TrimSpace(*update.DisplayName) != "" {
		fields["display_name"] = strings.TrimSpace(*update.DisplayName)
	}
	if update.Role != nil {
		fields["role"] = strings.ToUpper(*update.Role)
	}
	if update.Status != nil {
		fields["status"] = strings.ToUpper(*update.Status)
	}
	if update.Permissions != nil {
		fields["permissions_json"] = *update.Permissions
	}
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.db.WithContext(ctx).Model(&member).Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("failed to update team member: %w", err)
		}
	}

	return &member, nil
}

// ListTeamMembers lists the members of an organization newest first
func (s *Service) ListTeamMembers(ctx context.Context, organizationID string, limit int) ([]models.TeamMember, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var members []models.TeamMember
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}
