package accounting

import (
	"encoding/json"
	"strings"
)

// Candidate carries the normalized view of an incoming transaction that
// classification rules are evaluated against.
type Candidate struct {
	WalletID     string
	Chain        string // lowercased
	Direction    string // uppercased
	TokenSymbol  string // uppercased
	Counterparty string // lowercased
	FiatValueUsd float64
}

// NewCandidate builds a Candidate with the casing conventions rules rely on.
func NewCandidate(walletID, chain, direction, tokenSymbol, counterparty string, fiatValueUsd float64) Candidate {
	return Candidate{
		WalletID:     walletID,
		Chain:        strings.ToLower(chain),
		Direction:    strings.ToUpper(direction),
		TokenSymbol:  strings.ToUpper(tokenSymbol),
		Counterparty: strings.ToLower(counterparty),
		FiatValueUsd: fiatValueUsd,
	}
}

// RuleConditions is the recognized condition set of a classification rule.
// A nil field means "no constraint". Unknown keys in the stored payload are
// ignored; a payload that is not a JSON object at all decodes to the zero
// value, which matches every candidate.
type RuleConditions struct {
	WalletID             *string
	Chain                *string
	Direction            *string
	TokenSymbol          *string
	Counterparty         *string
	CounterpartyContains *string
	MinUsd               *float64
	MaxUsd               *float64
}

// DecodeConditions interprets a stored conditions payload permissively.
func DecodeConditions(raw string) RuleConditions {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload == nil {
		return RuleConditions{}
	}

	var cond RuleConditions
	for key, value := range payload {
		switch key {
		case "walletId":
			if s, ok := value.(string); ok {
				cond.WalletID = &s
			}
		case "chain":
			if s, ok := value.(string); ok {
				cond.Chain = &s
			}
		case "direction":
			if s, ok := value.(string); ok {
				cond.Direction = &s
			}
		case "tokenSymbol":
			if s, ok := value.(string); ok {
				cond.TokenSymbol = &s
			}
		case "counterparty":
			if s, ok := value.(string); ok {
				cond.Counterparty = &s
			}
		case "counterpartyContains":
			if s, ok := value.(string); ok {
				cond.CounterpartyContains = &s
			}
		case "minUsd":
			if f, ok := asFloat(value); ok {
				cond.MinUsd = &f
			}
		case "maxUsd":
			if f, ok := asFloat(value); ok {
				cond.MaxUsd = &f
			}
		}
	}
	return cond
}

// DecodeActionClassification extracts the classification action from a stored
// actions payload. Returns "" when the payload carries none.
func DecodeActionClassification(raw string) string {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return ""
	}
	if s, ok := payload["classification"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// Matches evaluates all recognized conditions against the candidate. Every
// present condition must hold; absent conditions are vacuously true.
func (cond RuleConditions) Matches(c Candidate) bool {
	if cond.WalletID != nil && *cond.WalletID != c.WalletID {
		return false
	}
	if cond.Chain != nil && strings.ToLower(*cond.Chain) != c.Chain {
		return false
	}
	if cond.Direction != nil && strings.ToUpper(*cond.Direction) != c.Direction {
		return false
	}
	if cond.TokenSymbol != nil && strings.ToUpper(*cond.TokenSymbol) != c.TokenSymbol {
		return false
	}
	if cond.Counterparty != nil && strings.ToLower(*cond.Counterparty) != c.Counterparty {
		return false
	}
	if cond.CounterpartyContains != nil && !strings.Contains(c.Counterparty, strings.ToLower(*cond.CounterpartyContains)) {
		return false
	}
	if cond.MinUsd != nil && c.FiatValueUsd < *cond.MinUsd {
		return false
	}
	if cond.MaxUsd != nil && c.FiatValueUsd > *cond.MaxUsd {
		return false
	}
	return true
}
