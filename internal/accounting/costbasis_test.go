package accounting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tresfinos/treasury/pkg/models"
)

func strPtr(s string) *string { return &s }

func ledgerRow(direction, amount string, fiatUsd, costUsd *string, at time.Time) models.LedgerTransaction {
	return models.LedgerTransaction{
		ID:             models.NewID("tx"),
		OrganizationID: "org_test",
		WalletID:       "wal_test",
		TokenSymbol:    strPtr("USDC"),
		AmountDecimal:  amount,
		FiatValueUsd:   fiatUsd,
		CostBasisUsd:   costUsd,
		Direction:      direction,
		Status:         models.StatusConfirmed,
		OccurredAt:     at,
	}
}

func baseTime() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

// Two IN lots of 10 units costing 100 then 200, then an OUT of 15.
func twoLotHistory() []models.LedgerTransaction {
	t0 := baseTime()
	return []models.LedgerTransaction{
		ledgerRow(models.DirectionIn, "10", nil, strPtr("100"), t0),
		ledgerRow(models.DirectionIn, "10", nil, strPtr("200"), t0.Add(time.Hour)),
		ledgerRow(models.DirectionOut, "15", nil, nil, t0.Add(2*time.Hour)),
	}
}

func TestReplayFIFO(t *testing.T) {
	summary := Replay("org_test", "usdc", MethodFIFO, twoLotHistory())

	// Lot 1 fully consumed (cost 100) plus 5 units of lot 2 at unit cost 20.
	assert.True(t, summary.RemainingQuantity.Equal(decimal.RequireFromString("5")), summary.RemainingQuantity.String())
	assert.True(t, summary.RemainingCostUsd.Equal(decimal.RequireFromString("100")), summary.RemainingCostUsd.String())
	assert.True(t, summary.RealizedGainLossUsd.Equal(decimal.RequireFromString("-200")), summary.RealizedGainLossUsd.String())
	assert.True(t, summary.InQuantity.Equal(decimal.RequireFromString("20")))
	assert.True(t, summary.OutQuantity.Equal(decimal.RequireFromString("15")))
	assert.Equal(t, "USDC", summary.TokenSymbol)
	assert.Equal(t, MethodFIFO, summary.Method)
	assert.Equal(t, 3, summary.SampleSize)
}

func TestReplayLIFO(t *testing.T) {
	summary := Replay("org_test", "USDC", MethodLIFO, twoLotHistory())

	// Lot 2 fully consumed (cost 200) plus 5 units of lot 1 at unit cost 10.
	assert.True(t, summary.RemainingQuantity.Equal(decimal.RequireFromString("5")))
	assert.True(t, summary.RemainingCostUsd.Equal(decimal.RequireFromString("50")))
	assert.True(t, summary.RealizedGainLossUsd.Equal(decimal.RequireFromString("-250")))
}

func TestReplayWAC(t *testing.T) {
	t0 := baseTime()
	rows := []models.LedgerTransaction{
		ledgerRow(models.DirectionIn, "10", nil, strPtr("100"), t0),
		ledgerRow(models.DirectionIn, "10", nil, strPtr("200"), t0.Add(time.Hour)),
		ledgerRow(models.DirectionOut, "5", nil, nil, t0.Add(2*time.Hour)),
	}

	summary := Replay("org_test", "USDC", MethodWAC, rows)

	// Pool of 20 units costing 300 (avg 15); 5 out consumes 75.
	assert.True(t, summary.RemainingQuantity.Equal(decimal.RequireFromString("15")))
	assert.True(t, summary.RemainingCostUsd.Equal(decimal.RequireFromString("225")))
	assert.True(t, summary.RealizedGainLossUsd.Equal(decimal.RequireFromString("-75")))
	assert.True(t, summary.AverageCostPerUnitUsd.Equal(decimal.RequireFromString("15")))
}

func TestReplaySpecificLotSelection(t *testing.T) {
	t0 := baseTime()
	rows := []models.LedgerTransaction{
		ledgerRow(models.DirectionIn, "10", nil, strPtr("200"), t0),               // unit cost 20
		ledgerRow(models.DirectionIn, "10", nil, strPtr("100"), t0.Add(time.Hour)), // unit cost 10
		ledgerRow(models.DirectionOut, "5", strPtr("150"), nil, t0.Add(2*time.Hour)),
	}

	gain := Replay("org_test", "USDC", MethodSpecificMaxGain, rows)
	// Cheapest lot first: 5 units at unit cost 10; gain = 150 - 50.
	assert.True(t, gain.RealizedGainLossUsd.Equal(decimal.RequireFromString("100")))
	assert.True(t, gain.RemainingCostUsd.Equal(decimal.RequireFromString("250")))

	loss := Replay("org_test", "USDC", MethodSpecificMaxLoss, rows)
	// Most expensive lot first: 5 units at unit cost 20; gain = 150 - 100.
	assert.True(t, loss.RealizedGainLossUsd.Equal(decimal.RequireFromString("50")))
	assert.True(t, loss.RemainingCostUsd.Equal(decimal.RequireFromString("200")))
}

func TestReplayScenarioFIFO(t *testing.T) {
	t0 := baseTime()
	rows := []models.LedgerTransaction{
		ledgerRow(models.DirectionIn, "100", nil, strPtr("100"), t0),
		ledgerRow(models.DirectionIn, "50", nil, strPtr("60"), t0.Add(time.Hour)),
		ledgerRow(models.DirectionOut, "120", strPtr("150"), nil, t0.Add(2*time.Hour)),
	}

	summary := Replay("org_1", "USDC", MethodFIFO, rows)

	// 100 units from lot 1 (cost 100) + 20 units from lot 2 at 1.2 (cost 24).
	assert.True(t, summary.RealizedGainLossUsd.Equal(decimal.RequireFromString("26")), summary.RealizedGainLossUsd.String())
	assert.True(t, summary.RemainingQuantity.Equal(decimal.RequireFromString("30")))
	assert.True(t, summary.RemainingCostUsd.Equal(decimal.RequireFromString("36")))
	assert.True(t, summary.AverageCostPerUnitUsd.Equal(decimal.RequireFromString("1.2")))
}

func TestReplayIdempotent(t *testing.T) {
	rows := twoLotHistory()

	first := Replay("org_test", "USDC", MethodFIFO, rows)
	second := Replay("org_test", "USDC", MethodFIFO, rows)

	require.Equal(t, first, second)
}

func TestReplayConservation(t *testing.T) {
	t0 := baseTime()
	rows := []models.LedgerTransaction{
		ledgerRow(models.DirectionIn, "3.14159265", strPtr("10"), nil, t0),
		ledgerRow(models.DirectionInternal, "2.71828182", strPtr("8"), nil, t0.Add(time.Minute)),
		ledgerRow(models.DirectionOut, "1.5", strPtr("6"), nil, t0.Add(2*time.Minute)),
		ledgerRow(models.DirectionOut, "0.25", nil, nil, t0.Add(3*time.Minute)),
	}

	tolerance := decimal.New(1, -8)
	for _, method := range []CostBasisMethod{MethodFIFO, MethodLIFO, MethodWAC, MethodSpecificMaxGain, MethodSpecificMaxLoss} {
		summary := Replay("org_test", "USDC", method, rows)
		diff := summary.InQuantity.Sub(summary.OutQuantity).Sub(summary.RemainingQuantity).Abs()
		assert.True(t, diff.LessThanOrEqual(tolerance), "method %s: conservation off by %s", method, diff.String())
	}
}

func TestReplayOversoldInventory(t *testing.T) {
	t0 := baseTime()
	rows := []models.LedgerTransaction{
		ledgerRow(models.DirectionIn, "5", nil, strPtr("50"), t0),
		ledgerRow(models.DirectionOut, "8", strPtr("90"), nil, t0.Add(time.Hour)),
	}

	summary := Replay("org_test", "USDC", MethodFIFO, rows)

	// Demand past the open lots is consumed at zero cost; floors hold at 0.
	assert.True(t, summary.RealizedGainLossUsd.Equal(decimal.RequireFromString("40")))
	assert.True(t, summary.RemainingQuantity.IsZero())
	assert.True(t, summary.RemainingCostUsd.IsZero())
	assert.True(t, summary.AverageCostPerUnitUsd.IsZero())
}

func TestReplayOutWithNoHistory(t *testing.T) {
	t0 := baseTime()
	rows := []models.LedgerTransaction{
		ledgerRow(models.DirectionOut, "10", strPtr("100"), nil, t0),
	}

	for _, method := range []CostBasisMethod{MethodFIFO, MethodWAC} {
		summary := Replay("org_test", "USDC", method, rows)
		assert.True(t, summary.RealizedGainLossUsd.Equal(decimal.RequireFromString("100")), "method %s", method)
		assert.True(t, summary.RemainingQuantity.IsZero())
	}
}

func TestReplayEmptyHistory(t *testing.T) {
	summary := Replay("org_test", "usdc", MethodFIFO, nil)

	assert.Equal(t, "USDC", summary.TokenSymbol)
	assert.True(t, summary.InQuantity.IsZero())
	assert.True(t, summary.OutQuantity.IsZero())
	assert.True(t, summary.RemainingQuantity.IsZero())
	assert.True(t, summary.RealizedGainLossUsd.IsZero())
	assert.Equal(t, 0, summary.SampleSize)
}

func TestReplaySkipsZeroMagnitudeRows(t *testing.T) {
	t0 := baseTime()
	rows := []models.LedgerTransaction{
		ledgerRow(models.DirectionIn, "0", nil, strPtr("999"), t0),
		ledgerRow(models.DirectionIn, "not-a-number", nil, strPtr("999"), t0.Add(time.Minute)),
		ledgerRow(models.DirectionIn, "10", nil, strPtr("100"), t0.Add(2*time.Minute)),
	}

	summary := Replay("org_test", "USDC", MethodFIFO, rows)

	assert.True(t, summary.InQuantity.Equal(decimal.RequireFromString("10")))
	assert.True(t, summary.RemainingCostUsd.Equal(decimal.RequireFromString("100")))
	// Skipped rows still count toward the sample size.
	assert.Equal(t, 3, summary.SampleSize)
}

func TestReplayInternalAddsInventory(t *testing.T) {
	t0 := baseTime()
	rows := []models.LedgerTransaction{
		ledgerRow(models.DirectionInternal, "10", strPtr("100"), nil, t0),
	}

	summary := Replay("org_test", "USDC", MethodFIFO, rows)

	assert.True(t, summary.InQuantity.Equal(decimal.RequireFromString("10")))
	assert.True(t, summary.RemainingQuantity.Equal(decimal.RequireFromString("10")))
	assert.True(t, summary.RemainingCostUsd.Equal(decimal.RequireFromString("100")))
}

func TestReplayCostBasisOverridesFiatValue(t *testing.T) {
	t0 := baseTime()
	rows := []models.LedgerTransaction{
		ledgerRow(models.DirectionIn, "10", strPtr("500"), strPtr("100"), t0),
	}

	summary := Replay("org_test", "USDC", MethodFIFO, rows)

	assert.True(t, summary.RemainingCostUsd.Equal(decimal.RequireFromString("100")))
}

func TestReplayNegativeAmountUsesMagnitude(t *testing.T) {
	t0 := baseTime()
	rows := []models.LedgerTransaction{
		ledgerRow(models.DirectionIn, "-10", nil, strPtr("100"), t0),
	}

	summary := Replay("org_test", "USDC", MethodFIFO, rows)

	assert.True(t, summary.InQuantity.Equal(decimal.RequireFromString("10")))
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		in   string
		want CostBasisMethod
	}{
		{"FIFO", MethodFIFO},
		{"fifo", MethodFIFO},
		{"lifo", MethodLIFO},
		{" wac ", MethodWAC},
		{"specific_max_gain", MethodSpecificMaxGain},
		{"SPECIFIC_MAX_LOSS", MethodSpecificMaxLoss},
		{"", MethodFIFO},
		{"HIFO", MethodFIFO},
		{"average", MethodFIFO},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeMethod(tt.in), "input %q", tt.in)
	}
}
