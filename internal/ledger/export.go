package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/tresfinos/treasury/pkg/models"
)

var exportHeader = []string{
	"id", "wallet_id", "tx_hash", "chain", "token_symbol", "amount_decimal",
	"fiat_value_usd", "cost_basis_usd", "direction", "status", "classification",
	"counterparty", "occurred_at",
}

// ExportFilename names a transaction export for the organization and day.
func ExportFilename(organizationID string, now time.Time) string {
	return fmt.Sprintf("transactions-%s-%s.csv", organizationID, now.UTC().Format("2006-01-02"))
}

// RenderCSV renders export rows as RFC 4180 CSV with a header row.
func RenderCSV(rows []models.LedgerTransaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.ID,
			row.WalletID,
			row.TxHash,
			row.Chain,
			deref(row.TokenSymbol),
			row.AmountDecimal,
			deref(row.FiatValueUsd),
			deref(row.CostBasisUsd),
			row.Direction,
			row.Status,
			deref(row.Classification),
			deref(row.Counterparty),
			row.OccurredAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush export: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
