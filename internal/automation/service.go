// Package automation manages classification rules, threshold alerts,
// webhook subscriptions and ERP connections.
package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/pkg/models"
)

// AutomationService defines rule, alert, webhook and ERP operations
type AutomationService interface {
	CreateRule(ctx context.Context, input RuleInput) (*models.AutomationRule, error)
	UpdateRule(ctx context.Context, ruleID string, update RuleUpdate) (*models.AutomationRule, error)
	ListRules(ctx context.Context, organizationID string, limit int) ([]models.AutomationRule, error)

	CreateAlert(ctx context.Context, input AlertInput) (*models.Alert, error)
	UpdateAlert(ctx context.Context, alertID string, update AlertUpdate) (*models.Alert, error)
	ListAlerts(ctx context.Context, organizationID string, limit int) ([]models.Alert, error)

	CreateWebhook(ctx context.Context, input WebhookInput) (*models.WebhookSubscription, error)
	UpdateWebhook(ctx context.Context, webhookID string, update WebhookUpdate) (*models.WebhookSubscription, error)
	ListWebhooks(ctx context.Context, organizationID string, limit int) ([]models.WebhookSubscription, error)
	ListWebhookEvents(ctx context.Context, webhookID string, limit int) ([]models.WebhookEvent, error)
	TestWebhook(ctx context.Context, webhookID, eventType, payload string) (*models.WebhookEvent, error)

	CreateErpConnection(ctx context.Context, input ErpInput) (*models.ErpConnection, error)
	ListErpConnections(ctx context.Context, organizationID string, limit int) ([]models.ErpConnection, error)
	SyncErpConnection(ctx context.Context, connectionID string) (*models.ErpConnection, error)
}

// RuleInput is the rule creation payload. Conditions and Actions are raw
// JSON text; the matcher tolerates malformed payloads.
type RuleInput struct {
	OrganizationID string
	Name           string
	RuleType       string
	Conditions     string
	Actions        string
	Priority       *int
	IsActive       *bool
}

// RuleUpdate carries a partial rule update
type RuleUpdate struct {
	Name       *string
	Conditions *string
	Actions    *string
	Priority   *int
	IsActive   *bool
}

// AlertInput is the alert creation payload
type AlertInput struct {
	OrganizationID    string
	Name              string
	AlertType         string
	ThresholdOperator string
	ThresholdValue    *float64
	Channel           string
	Severity          string
	IsActive          *bool
}

// AlertUpdate carries a partial alert update
type AlertUpdate struct {
	Name              *string
	ThresholdOperator *string
	ThresholdValue    *float64
	Channel           *string
	Severity          *string
	IsActive          *bool
	LastTriggeredAt   *time.Time
}

// Service implements AutomationService
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new AutomationService
func NewService(logger *zap.Logger, db *gorm.DB) *Service {
	return &Service{logger: logger, db: db}
}

// CreateRule stores a new automation rule. Priority defaults to 100 and
// rules are active unless disabled explicitly.
func (s *Service) CreateRule(ctx context.Context, input RuleInput) (*models.AutomationRule, error) {
	name := strings.TrimSpace(input.Name)
	if input.OrganizationID == "" || name == "" || input.RuleType == "" {
		return nil, apierr.InvalidInput("organizationId, name and ruleType are required")
	}

	rule := &models.AutomationRule{
		ID:             models.NewID("rul"),
		OrganizationID: input.OrganizationID,
		Name:           name,
		RuleType:       strings.ToUpper(input.RuleType),
		ConditionsJSON: input.Conditions,
		ActionsJSON:    input.Actions,
		Priority:       100,
		IsActive:       true,
	}
	if rule.ConditionsJSON == "" {
		rule.ConditionsJSON = "{}"
	}
	if rule.ActionsJSON == "" {
		rule.ActionsJSON = "{}"
	}
	if input.Priority != nil {
		rule.Priority = *input.Priority
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}

	if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	return rule, nil
}

// UpdateRule applies a partial update to a rule
func (s *Service) UpdateRule(ctx context.Context, ruleID string, update RuleUpdate) (*models.AutomationRule, error) {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Conditions != nil {
		fields["conditions_json"] = *update.Conditions
	}
	if update.Actions != nil {
		fields["actions_json"] = *update.Actions
	}
	if update.Priority != nil {
		fields["priority"] = *update.Priority
	}
	if update.IsActive != nil {
		fields["is_active"] = *update.IsActive
	}
	if len(fields) == 0 {
		return nil, apierr.InvalidInput("no fields to update")
	}
	fields["updated_at"] = time.Now().UTC()

	var rule models.AutomationRule
	if err := s.applyUpdate(ctx, &models.AutomationRule{}, ruleID, fields, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules returns an organization's rules, highest priority first
func (s *Service) ListRules(ctx context.Context, organizationID string, limit int) ([]models.AutomationRule, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	limit = clampLimit(limit, 100, 300)

	var rules []models.AutomationRule
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("priority ASC, created_at DESC").
		Limit(limit).
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

// CreateAlert stores a threshold alert definition
func (s *Service) CreateAlert(ctx context.Context, input AlertInput) (*models.Alert, error) {
	name := strings.TrimSpace(input.Name)
	if input.OrganizationID == "" || name == "" || input.AlertType == "" {
		return nil, apierr.InvalidInput("organizationId, name and alertType are required")
	}

	alert := &models.Alert{
		ID:             models.NewID("alt"),
		OrganizationID: input.OrganizationID,
		Name:           name,
		AlertType:      strings.ToUpper(input.AlertType),
		ThresholdValue: input.ThresholdValue,
		Channel:        "EMAIL",
		Severity:       "MEDIUM",
		IsActive:       true,
	}
	if op := strings.ToUpper(strings.TrimSpace(input.ThresholdOperator)); op != "" {
		alert.ThresholdOperator = &op
	}
	if input.Channel != "" {
		alert.Channel = strings.ToUpper(input.Channel)
	}
	if input.Severity != "" {
		alert.Severity = strings.ToUpper(input.Severity)
	}
	if input.IsActive != nil {
		alert.IsActive = *input.IsActive
	}

	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	return alert, nil
}

// UpdateAlert applies a partial update to an alert
func (s *Service) UpdateAlert(ctx context.Context, alertID string, update AlertUpdate) (*models.Alert, error) {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = strings.TrimSpace(*update.Name)
	}
	if update.ThresholdOperator != nil {
		fields["threshold_operator"] = strings.ToUpper(*update.ThresholdOperator)
	}
	if update.ThresholdValue != nil {
		fields["threshold_value"] = *update.ThresholdValue
	}
	if update.Channel != nil {
		fields["channel"] = strings.ToUpper(*update.Channel)
	}
	if update.Severity != nil {
		fields["severity"] = strings.ToUpper(*update.Severity)
	}
	if update.IsActive != nil {
		fields["is_active"] = *update.IsActive
	}
	if update.LastTriggeredAt != nil {
		fields["last_triggered_at"] = *update.LastTriggeredAt
	}
	if len(fields) == 0 {
		return nil, apierr.InvalidInput("no fields to update")
	}
	fields["updated_at"] = time.Now().UTC()

	var alert models.Alert
	if err := s.applyUpdate(ctx, &models.Alert{}, alertID, fields, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListAlerts returns an organization's alerts newest first
func (s *Service) ListAlerts(ctx context.Context, organizationID string, limit int) ([]models.Alert, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	limit = clampLimit(limit, 100, 300)

	var alerts []models.Alert
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// applyUpdate runs a field-map update against one row and reloads it into
// dest. A zero row count means the id does not exist.
func (s *Service) applyUpdate(ctx context.Context, model interface{}, id string, fields map[string]interface{}, dest interface{}) error {
	result := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apierr.NotFound("record %s not found", id)
	}
	if err := s.db.WithContext(ctx).First(dest, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to reload record: %w", err)
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
