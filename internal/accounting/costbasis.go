package accounting

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tresfinos/treasury/pkg/models"
)

// CostBasisMethod selects the lot consumption strategy for a replay.
type CostBasisMethod string

const (
	MethodFIFO            CostBasisMethod = "FIFO"
	MethodLIFO            CostBasisMethod = "LIFO"
	MethodWAC             CostBasisMethod = "WAC"
	MethodSpecificMaxGain CostBasisMethod = "SPECIFIC_MAX_GAIN"
	MethodSpecificMaxLoss CostBasisMethod = "SPECIFIC_MAX_LOSS"
)

// NormalizeMethod maps any input onto a supported method, defaulting to FIFO.
func NormalizeMethod(s string) CostBasisMethod {
	switch CostBasisMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case MethodLIFO:
		return MethodLIFO
	case MethodWAC:
		return MethodWAC
	case MethodSpecificMaxGain:
		return MethodSpecificMaxGain
	case MethodSpecificMaxLoss:
		return MethodSpecificMaxLoss
	default:
		return MethodFIFO
	}
}

// Lot is an open inflow tracked during a single replay. It never outlives
// the Replay call that created it.
type Lot struct {
	Qty       decimal.Decimal
	TotalCost decimal.Decimal
}

// CostBasisSummary is the result of replaying a token's history.
type CostBasisSummary struct {
	OrganizationID        string          `json:"organizationId"`
	TokenSymbol           string          `json:"tokenSymbol"`
	Method                CostBasisMethod `json:"method"`
	InQuantity            decimal.Decimal `json:"inQuantity"`
	OutQuantity           decimal.Decimal `json:"outQuantity"`
	RemainingQuantity     decimal.Decimal `json:"remainingQuantity"`
	RemainingCostUsd      decimal.Decimal `json:"remainingCostUsd"`
	RealizedGainLossUsd   decimal.Decimal `json:"realizedGainLossUsd"`
	AverageCostPerUnitUsd decimal.Decimal `json:"averageCostPerUnitUsd"`
	SampleSize            int             `json:"sampleSize"`
}

// Replay folds a chronological transaction history into remaining inventory
// and realized gain/loss under the given method. Rows must be the full
// history for one organization+token in ascending OccurredAt order. The fold
// is deterministic and side-effect free; identical input yields identical
// output.
func Replay(organizationID, tokenSymbol string, method CostBasisMethod, rows []models.LedgerTransaction) *CostBasisSummary {
	var lots []Lot

	inventoryQty := decimal.Zero
	inventoryCost := decimal.Zero
	inQuantity := decimal.Zero
	outQuantity := decimal.Zero
	realized := decimal.Zero

	for _, row := range rows {
		qty := ParseAmount(row.AmountDecimal).Abs()
		if qty.Sign() <= 0 {
			continue
		}

		direction := strings.ToUpper(row.Direction)

		// Explicit cost override wins over the fiat reference.
		var costReference decimal.Decimal
		if row.CostBasisUsd != nil {
			costReference = ParseAmount(*row.CostBasisUsd)
		} else {
			costReference = ParseOptionalAmount(row.FiatValueUsd)
		}

		if direction == models.DirectionIn || direction == models.DirectionInternal {
			// INTERNAL is treated as an inflow to the token's inventory,
			// matching the recorded ledger semantics even when the transfer
			// only moved funds between the organization's own wallets.
			inQuantity = inQuantity.Add(qty)
			inventoryQty = inventoryQty.Add(qty)
			inventoryCost = inventoryCost.Add(costReference)
			if method != MethodWAC {
				lots = append(lots, Lot{Qty: qty, TotalCost: costReference})
			}
			continue
		}

		if direction != models.DirectionOut {
			continue
		}

		outQuantity = outQuantity.Add(qty)
		proceeds := ParseOptionalAmount(row.FiatValueUsd)

		var consumedCost decimal.Decimal
		if method == MethodWAC {
			if inventoryQty.Sign() > 0 {
				consumedCost = qty.Mul(inventoryCost.Div(inventoryQty))
			}
		} else {
			consumedCost, lots = consumeLots(lots, qty, method)
		}

		inventoryQty = decimal.Max(decimal.Zero, inventoryQty.Sub(qty))
		inventoryCost = decimal.Max(decimal.Zero, inventoryCost.Sub(consumedCost))

		realized = realized.Add(proceeds.Sub(consumedCost))
	}

	average := decimal.Zero
	if inventoryQty.Sign() > 0 {
		average = inventoryCost.Div(inventoryQty)
	}

	return &CostBasisSummary{
		OrganizationID:        organizationID,
		TokenSymbol:           strings.ToUpper(tokenSymbol),
		Method:                method,
		InQuantity:            roundQty(inQuantity),
		OutQuantity:           roundQty(outQuantity),
		RemainingQuantity:     roundQty(inventoryQty),
		RemainingCostUsd:      roundUsd(inventoryCost),
		RealizedGainLossUsd:   roundUsd(realized),
		AverageCostPerUnitUsd: average.Round(8),
		SampleSize:            len(rows),
	}
}

// consumeLots draws the demanded quantity out of the open lots, selecting a
// lot per the method each iteration, and returns the consumed cost with the
// surviving lot set. When lots run out, the remaining demand is consumed at
// zero cost.
func consumeLots(lots []Lot, demand decimal.Decimal, method CostBasisMethod) (decimal.Decimal, []Lot) {
	remaining := demand
	consumed := decimal.Zero

	for remaining.GreaterThan(lotEpsilon) && len(lots) > 0 {
		idx := selectLot(lots, method)

		if lots[idx].Qty.Sign() <= 0 {
			lots = append(lots[:idx], lots[idx+1:]...)
			continue
		}

		unitCost := lots[idx].TotalCost.Div(lots[idx].Qty)
		taken := decimal.Min(remaining, lots[idx].Qty)
		cost := taken.Mul(unitCost)

		consumed = consumed.Add(cost)
		lots[idx].Qty = lots[idx].Qty.Sub(taken)
		lots[idx].TotalCost = lots[idx].TotalCost.Sub(cost)
		remaining = remaining.Sub(taken)

		if lots[idx].Qty.LessThanOrEqual(lotEpsilon) {
			lots = append(lots[:idx], lots[idx+1:]...)
		}
	}

	return consumed, lots
}

// selectLot applies the method's selection rule against the current lot set.
// Ties break toward the lowest index.
func selectLot(lots []Lot, method CostBasisMethod) int {
	switch method {
	case MethodLIFO:
		return len(lots) - 1
	case MethodSpecificMaxGain:
		best := -1
		var bestUnit decimal.Decimal
		for i := range lots {
			if lots[i].Qty.Sign() <= 0 {
				continue
			}
			unit := lots[i].TotalCost.Div(lots[i].Qty)
			if best < 0 || unit.LessThan(bestUnit) {
				best = i
				bestUnit = unit
			}
		}
		if best < 0 {
			return 0
		}
		return best
	case MethodSpecificMaxLoss:
		best := -1
		var bestUnit decimal.Decimal
		for i := range lots {
			if lots[i].Qty.Sign() <= 0 {
				continue
			}
			unit := lots[i].TotalCost.Div(lots[i].Qty)
			if best < 0 || unit.GreaterThan(bestUnit) {
				best = i
				bestUnit = unit
			}
		}
		if best < 0 {
			return 0
		}
		return best
	default: // FIFO
		return 0
	}
}
