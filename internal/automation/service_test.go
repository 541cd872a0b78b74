package automation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/pkg/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.AutomationRule{},
		&models.Alert{},
		&models.WebhookSubscription{},
		&models.WebhookEvent{},
		&models.ErpConnection{},
	))
	return NewService(zap.NewNop(), db)
}

func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestCreateRuleDefaults(t *testing.T) {
	svc := newTestService(t)

	rule, err := svc.CreateRule(context.Background(), RuleInput{
		OrganizationID: "org_1",
		Name:           "  inbound eth  ",
		RuleType:       "classification",
	})
	require.NoError(t, err)
	assert.Equal(t, "inbound eth", rule.Name)
	assert.Equal(t, models.RuleTypeClassification, rule.RuleType)
	assert.Equal(t, 100, rule.Priority)
	assert.True(t, rule.IsActive)
	assert.Equal(t, "{}", rule.ConditionsJSON)
	assert.Equal(t, "{}", rule.ActionsJSON)
}

func TestRuleUpdateAndListOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	low, err := svc.CreateRule(ctx, RuleInput{
		OrganizationID: "org_1", Name: "low", RuleType: "CLASSIFICATION", Priority: intPtr(200),
	})
	require.NoError(t, err)
	high, err := svc.CreateRule(ctx, RuleInput{
		OrganizationID: "org_1", Name: "high", RuleType: "CLASSIFICATION", Priority: intPtr(5),
	})
	require.NoError(t, err)

	rules, err := svc.ListRules(ctx, "org_1", 0)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, high.ID, rules[0].ID)
	assert.Equal(t, low.ID, rules[1].ID)

	updated, err := svc.UpdateRule(ctx, low.ID, RuleUpdate{
		Priority: intPtr(1),
		IsActive: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Priority)
	assert.False(t, updated.IsActive)

	_, err = svc.UpdateRule(ctx, low.ID, RuleUpdate{})
	assert.True(t, apierr.IsInvalidInput(err))

	_, err = svc.UpdateRule(ctx, "rul_missing", RuleUpdate{Priority: intPtr(1)})
	assert.True(t, apierr.IsNotFound(err))
}

func TestAlertLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alert, err := svc.CreateAlert(ctx, AlertInput{
		OrganizationID:    "org_1",
		Name:              "large outflow",
		AlertType:         "outflow_threshold",
		ThresholdOperator: "gt",
		ThresholdValue:    floatPtr(100000),
	})
	require.NoError(t, err)
	assert.Equal(t, "OUTFLOW_THRESHOLD", alert.AlertType)
	require.NotNil(t, alert.ThresholdOperator)
	assert.Equal(t, "GT", *alert.ThresholdOperator)
	assert.Equal(t, "EMAIL", alert.Channel)
	assert.Equal(t, "MEDIUM", alert.Severity)
	assert.True(t, alert.IsActive)

	triggered := time.Now().UTC()
	updated, err := svc.UpdateAlert(ctx, alert.ID, AlertUpdate{
		Severity:        strPtr("high"),
		LastTriggeredAt: &triggered,
	})
	require.NoError(t, err)
	assert.Equal(t, "HIGH", updated.Severity)
	require.NotNil(t, updated.LastTriggeredAt)

	alerts, err := svc.ListAlerts(ctx, "org_1", 0)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	_, err = svc.CreateAlert(ctx, AlertInput{OrganizationID: "org_1", Name: "x"})
	assert.True(t, apierr.IsInvalidInput(err))
}

func TestWebhookLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	webhook, err := svc.CreateWebhook(ctx, WebhookInput{
		OrganizationID: "org_1",
		Name:           "ops hook",
		EndpointURL:    "https://hooks.acme.dev/treasury",
	})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", webhook.Status)
	assert.Equal(t, `["transaction.created"]`, webhook.EventTypesJSON)

	updated, err := svc.UpdateWebhook(ctx, webhook.ID, WebhookUpdate{Status: strPtr("paused")})
	require.NoError(t, err)
	assert.Equal(t, "PAUSED", updated.Status)

	webhooks, err := svc.ListWebhooks(ctx, "org_1", 0)
	require.NoError(t, err)
	assert.Len(t, webhooks, 1)
}

func TestTestWebhookRecordsSimulatedDelivery(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	webhook, err := svc.CreateWebhook(ctx, WebhookInput{
		OrganizationID: "org_1", Name: "ops hook", EndpointURL: "https://hooks.acme.dev/treasury",
	})
	require.NoError(t, err)

	event, err := svc.TestWebhook(ctx, webhook.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "webhook.test", event.EventType)
	assert.Equal(t, "SIMULATED", event.DeliveryStatus)
	require.NotNil(t, event.DeliveredAt)
	assert.Contains(t, event.PayloadJSON, `"ping":true`)

	events, err := svc.ListWebhookEvents(ctx, webhook.ID, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = svc.TestWebhook(ctx, "whk_missing", "", "")
	assert.True(t, apierr.IsNotFound(err))
}

func TestErpConnectionSync(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	conn, err := svc.CreateErpConnection(ctx, ErpInput{
		OrganizationID: "org_1",
		SystemName:     "netsuite",
	})
	require.NoError(t, err)
	assert.Equal(t, "NETSUITE", conn.SystemName)
	assert.Equal(t, "CONNECTED", conn.Status)
	assert.Nil(t, conn.LastSyncAt)

	synced, err := svc.SyncErpConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "SYNCED", synced.Status)
	require.NotNil(t, synced.LastSyncAt)

	conns, err := svc.ListErpConnections(ctx, "org_1", 0)
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	_, err = svc.SyncErpConnection(ctx, "erp_missing")
	assert.True(t, apierr.IsNotFound(err))
}
