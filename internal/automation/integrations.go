package automation

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

// WebhookInput is the subscription creation payload
type WebhookInput struct {
	OrganizationID string
	Name           string
	EndpointURL    string
	SecretHint     string
	EventTypes     string // JSON array text
	Status         string
}

// WebhookUpdate carries a partial subscription update
type WebhookUpdate struct {
	Name        *string
	EndpointURL *string
	SecretHint  *string
	EventTypes  *string
	Status      *string
}

// ErpInput is the ERP connection creation payload
type ErpInput struct {
	OrganizationID string
	SystemName     string
	Config         string // JSON text
	Status         string
}

// CreateWebhook registers an outbound event endpoint. New subscriptions
// default to the transaction.created event type.
func (s *Service) CreateWebhook(ctx context.Context, input WebhookInput) (*models.WebhookSubscription, error) {
	name := strings.TrimSpace(input.Name)
	endpoint := strings.TrimSpace(input.EndpointURL)
	if input.OrganizationID == "" || name == "" || endpoint == "" {
		return nil, apierr.InvalidInput("organizationId, name and endpointUrl are required")
	}

	webhook := &models.WebhookSubscription{
		ID:             models.NewID("whk"),
		OrganizationID: input.OrganizationID,
		Name:           name,
		EndpointURL:    endpoint,
		EventTypesJSON: input.EventTypes,
		Status:         "ACTIVE",
	}
	if webhook.EventTypesJSON == "" {
		webhook.EventTypesJSON = `["transaction.created"]`
	}
	if hint := strings.TrimSpace(input.SecretHint); hint != "" {
		webhook.SecretHint = &hint
	}
	if input.Status != "" {
		webhook.Status = strings.ToUpper(input.Status)
	}

	if err := s.db.WithContext(ctx).Create(webhook).Error; err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	return webhook, nil
}

// UpdateWebhook applies a partial update to a subscription
func (s *Service) UpdateWebhook(ctx context.Context, webhookID string, update WebhookUpdate) (*models.WebhookSubscription, error) {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = strings.TrimSpace(*update.Name)
	}
	if update.EndpointURL != nil {
		fields["endpoint_url"] = strings.TrimSpace(*update.EndpointURL)
	}
	if update.SecretHint != nil {
		fields["secret_hint"] = strings.TrimSpace(*update.SecretHint)
	}
	if update.EventTypes != nil {
		fields["event_types_json"] = *update.EventTypes
	}
	if update.Status != nil {
		fields["status"] = strings.ToUpper(*update.Status)
	}
	if len(fields) == 0 {
		return nil, apierr.InvalidInput("no fields to update")
	}
	fields["updated_at"] = time.Now().UTC()

	var webhook models.WebhookSubscription
	if err := s.applyUpdate(ctx, &models.WebhookSubscription{}, webhookID, fields, &webhook); err != nil {
		return nil, err
	}
	return &webhook, nil
}

// ListWebhooks returns an organization's subscriptions newest first
func (s *Service) ListWebhooks(ctx context.Context, organizationID string, limit int) ([]models.WebhookSubscription, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	limit = clampLimit(limit, 100, 500)

	var webhooks []models.WebhookSubscription
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&webhooks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return webhooks, nil
}

// ListWebhookEvents returns a subscription's delivery records newest first
func (s *Service) ListWebhookEvents(ctx context.Context, webhookID string, limit int) ([]models.WebhookEvent, error) {
	limit = clampLimit(limit, 100, 500)

	var events []models.WebhookEvent
	err := s.db.WithContext(ctx).
		Where("webhook_id = ?", webhookID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}
	return events, nil
}

// TestWebhook records a simulated delivery without calling out to the
// endpoint. Nothing leaves the process.
func (s *Service) TestWebhook(ctx context.Context, webhookID, eventType, payload string) (*models.WebhookEvent, error) {
	var webhook models.WebhookSubscription
	if err := s.db.WithContext(ctx).First(&webhook, "id = ?", webhookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("webhook %s not found", webhookID)
		}
		return nil, fmt.Errorf("failed to load webhook: %w", err)
	}

	now := time.Now().UTC()
	event := &models.WebhookEvent{
		ID:             models.NewID("whe"),
		OrganizationID: webhook.OrganizationID,
		WebhookID:      webhook.ID,
		EventType:      strings.TrimSpace(eventType),
		PayloadJSON:    payload,
		DeliveryStatus: "SIMULATED",
		DeliveredAt:    &now,
	}
	if event.EventType == "" {
		event.EventType = "webhook.test"
	}
	if event.PayloadJSON == "" {
		event.PayloadJSON = fmt.Sprintf(`{"ping":true,"source":"treasury-api","generatedAt":%q}`, now.Format(time.RFC3339))
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to record webhook event: %w", err)
	}

	s.logger.Info("webhook test fired",
		zap.String("webhook_id", webhook.ID),
		zap.String("event_type", event.EventType))
	return event, nil
}

// CreateErpConnection stores a configured ERP integration
func (s *Service) CreateErpConnection(ctx context.Context, input ErpInput) (*models.ErpConnection, error) {
	system := strings.TrimSpace(input.SystemName)
	if input.OrganizationID == "" || system == "" {
		return nil, apierr.InvalidInput("organizationId and systemName are required")
	}

	conn := &models.ErpConnection{
		ID:             models.NewID("erp"),
		OrganizationID: input.OrganizationID,
		SystemName:     strings.ToUpper(system),
		Status:         "CONNECTED",
		ConfigJSON:     input.Config,
	}
	if conn.ConfigJSON == "" {
		conn.ConfigJSON = "{}"
	}
	if input.Status != "" {
		conn.Status = strings.ToUpper(input.Status)
	}

	if err := s.db.WithContext(ctx).Create(conn).Error; err != nil {
		return nil, fmt.Errorf("failed to create erp connection: %w", err)
	}
	return conn, nil
}

// ListErpConnections returns an organization's ERP connections newest first
func (s *Service) ListErpConnections(ctx context.Context, organizationID string, limit int) ([]models.ErpConnection, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	limit = clampLimit(limit, 100, 300)

	var conns []models.ErpConnection
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&conns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list erp connections: %w", err)
	}
	return conns, nil
}

// SyncErpConnection stamps a sync and flips the connection to SYNCED
func (s *Service) SyncErpConnection(ctx context.Context, connectionID string) (*models.ErpConnection, error) {
	now := time.Now().UTC()
	fields := map[string]interface{}{
		"last_sync_at": now,
		"status":       "SYNCED",
		"updated_at":   now,
	}

	var conn models.ErpConnection
	if err := s.applyUpdate(ctx, &models.ErpConnection{}, connectionID, fields, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}
