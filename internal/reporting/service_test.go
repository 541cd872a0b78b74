package reporting

import (
	"context"
	"encoding/json"
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

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Wallet{},
		&models.LedgerTransaction{},
		&models.ReconciliationRun{},
		&models.Report{},
	))
	return NewService(zap.NewNop(), db), db
}

func strPtr(v string) *string { return &v }

func seedLedger(t *testing.T, db *gorm.DB) {
	t.Helper()
	now := time.Now().UTC()

	require.NoError(t, db.Create(&models.Wallet{
		ID: "wal_1", OrganizationID: "org_1", Chain: "ethereum", Address: "0x1", IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&models.Wallet{
		ID: "wal_2", OrganizationID: "org_1", Chain: "polygon", Address: "0x2", IsActive: false,
	}).Error)

	rows := []models.LedgerTransaction{
		{ID: "tx_1", OrganizationID: "org_1", WalletID: "wal_1", TxHash: "0xa", Chain: "ethereum",
			TokenSymbol: strPtr("ETH"), AmountDecimal: "2", FiatValueUsd: strPtr("4000"),
			Direction: models.DirectionIn, Status: models.StatusConfirmed, OccurredAt: now.AddDate(0, 0, -1)},
		{ID: "tx_2", OrganizationID: "org_1", WalletID: "wal_1", TxHash: "0xb", Chain: "ethereum",
			TokenSymbol: strPtr("ETH"), AmountDecimal: "1", FiatValueUsd: strPtr("1500"),
			Direction: models.DirectionOut, Status: models.StatusPending, OccurredAt: now.AddDate(0, 0, -2)},
		{ID: "tx_3", OrganizationID: "org_1", WalletID: "wal_2", TxHash: "0xc", Chain: "polygon",
			AmountDecimal: "100", FiatValueUsd: strPtr("100"),
			Direction: models.DirectionIn, Status: models.StatusConfirmed, OccurredAt: now.AddDate(0, 0, -3)},
		// outside any reasonable dashboard window
		{ID: "tx_4", OrganizationID: "org_1", WalletID: "wal_1", TxHash: "0xd", Chain: "ethereum",
			TokenSymbol: strPtr("ETH"), AmountDecimal: "9", FiatValueUsd: strPtr("9999"),
			Direction: models.DirectionIn, Status: models.StatusConfirmed, OccurredAt: now.AddDate(-2, 0, 0)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}
}

func TestDashboardSummary(t *testing.T) {
	svc, db := newTestService(t)
	seedLedger(t, db)

	require.NoError(t, db.Create(&models.ReconciliationRun{
		ID: "rec_1", OrganizationID: "org_1", Status: "DRAFT",
		PeriodStart: time.Now().UTC().AddDate(0, -1, 0), PeriodEnd: time.Now().UTC(),
	}).Error)

	summary, err := svc.DashboardSummary(context.Background(), "org_1", 30)
	require.NoError(t, err)

	assert.Equal(t, 30, summary.PeriodDays)
	assert.Equal(t, int64(2), summary.WalletCount)
	assert.Equal(t, int64(1), summary.ActiveWalletCount)
	assert.Equal(t, int64(3), summary.TransactionCount)
	assert.Equal(t, int64(2), summary.ConfirmedTransactionCount)
	assert.Equal(t, int64(2), summary.ActiveChains)
	assert.InDelta(t, 4100, summary.InflowUsd, 0.01)
	assert.InDelta(t, 1500, summary.OutflowUsd, 0.01)
	assert.InDelta(t, 2600, summary.NetFlowUsd, 0.01)
	assert.InDelta(t, 5600, summary.GrossUsd, 0.01)
	assert.Equal(t, int64(1), summary.OpenReconciliationCount)
}

func TestDashboardSummaryClampsPeriod(t *testing.T) {
	svc, _ := newTestService(t)

	summary, err := svc.DashboardSummary(context.Background(), "org_1", 9000)
	require.NoError(t, err)
	assert.Equal(t, 365, summary.PeriodDays)

	summary, err = svc.DashboardSummary(context.Background(), "org_1", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, summary.PeriodDays)
}

func TestTopAssets(t *testing.T) {
	svc, db := newTestService(t)
	seedLedger(t, db)

	assets, err := svc.TopAssets(context.Background(), "org_1", 10)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	assert.Equal(t, "ETH", assets[0].TokenSymbol)
	assert.Equal(t, int64(3), assets[0].TxCount)
	assert.InDelta(t, 15499, assets[0].UsdSum, 0.01)
	assert.Equal(t, "UNKNOWN", assets[1].TokenSymbol)
	assert.Equal(t, int64(1), assets[1].TxCount)
}

func TestReportLifecycle(t *testing.T) {
	svc, db := newTestService(t)
	seedLedger(t, db)
	ctx := context.Background()

	report, err := svc.CreateReport(ctx, ReportInput{
		OrganizationID: "org_1",
		ReportType:     "treasury_summary",
		Title:          "  Month close  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "TREASURY_SUMMARY", report.ReportType)
	assert.Equal(t, "Month close", report.Title)
	assert.Equal(t, "DRAFT", report.Status)
	assert.Equal(t, "{}", report.ParametersJSON)

	result, err := svc.RunReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", result.Status)
	assert.Contains(t, result.Payload, "summary")
	assert.Contains(t, result.Payload, "topAssets")

	stored, err := svc.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", stored.Status)
	require.NotNil(t, stored.GeneratedAt)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stored.ResultJSON), &decoded))
	assert.Contains(t, decoded, "summary")

	reports, err := svc.ListReports(ctx, "org_1", 0)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestRunReportTransactionHistory(t *testing.T) {
	svc, db := newTestService(t)
	seedLedger(t, db)
	ctx := context.Background()

	report, err := svc.CreateReport(ctx, ReportInput{
		OrganizationID: "org_1", ReportType: ReportTransactionHistory, Title: "History",
	})
	require.NoError(t, err)

	result, err := svc.RunReport(ctx, report.ID)
	require.NoError(t, err)
	items, ok := result.Payload["items"].([]models.LedgerTransaction)
	require.True(t, ok)
	assert.Len(t, items, 4)
	assert.Equal(t, "tx_1", items[0].ID)
}

func TestRunReportReconciliationSummary(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.ReconciliationRun{
		ID: "rec_1", OrganizationID: "org_1", Status: "COMPLETED",
		PeriodStart: time.Now().UTC().AddDate(0, -1, 0), PeriodEnd: time.Now().UTC(),
	}).Error)

	report, err := svc.CreateReport(ctx, ReportInput{
		OrganizationID: "org_1", ReportType: ReportReconciliationSummary, Title: "Recon",
	})
	require.NoError(t, err)

	result, err := svc.RunReport(ctx, report.ID)
	require.NoError(t, err)
	items, ok := result.Payload["items"].([]models.ReconciliationRun)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestReportValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateReport(ctx, ReportInput{OrganizationID: "org_1", ReportType: "X"})
	assert.True(t, apierr.IsInvalidInput(err))

	_, err = svc.GetReport(ctx, "rpt_missing")
	assert.True(t, apierr.IsNotFound(err))

	_, err = svc.RunReport(ctx, "rpt_missing")
	assert.True(t, apierr.IsNotFound(err))
}
