package accounting

import (
	"strings"

	"github.com/shopspring/decimal"
)

// lotEpsilon is the quantity below which a lot counts as exhausted. It also
// bounds the consumption loop so float-noise remainders never spin.
var lotEpsilon = decimal.New(1, -9) // 1e-9

// ParseAmount converts a stored decimal string into a Decimal, falling back
// to zero for empty or unparseable input.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseOptionalAmount is ParseAmount over a nullable column.
func ParseOptionalAmount(s *string) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return ParseAmount(*s)
}

func roundQty(d decimal.Decimal) decimal.Decimal { return d.Round(8) }

func roundUsd(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// asFloat coerces a decoded JSON value into a float64 the way the rule
// payloads expect: numbers pass through, numeric strings parse, everything
// else is rejected.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		f, _ := d.Float64()
		return f, true
	default:
		return 0, false
	}
}
