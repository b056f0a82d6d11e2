package currency

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jpcontreras/vendia-backend/pkg/enums"
)

// Rates carries a vendor's exchange rate snapshot. Secondary is VES per USD,
// Tertiary is COP per USD. Cross is COP per VES; when set it takes precedence
// over Tertiary so COP amounts are cross rated through VES.
type Rates struct {
	Secondary decimal.Decimal
	Tertiary  decimal.Decimal
	Cross     decimal.Decimal
}

// Validate ensures every conversion path reachable from these rates is usable.
func (r Rates) Validate() error {
	if !r.Secondary.IsPositive() {
		return fmt.Errorf("secondary rate must be positive, got %s", r.Secondary)
	}
	if r.Cross.IsZero() && !r.Tertiary.IsPositive() {
		return fmt.Errorf("tertiary rate must be positive when no cross rate is set, got %s", r.Tertiary)
	}
	if !r.Cross.IsZero() && !r.Cross.IsPositive() {
		return fmt.Errorf("cross rate must be positive when set, got %s", r.Cross)
	}
	return nil
}

// ToUSD converts an amount denominated in cur into canonical USD.
func ToUSD(r Rates, amount decimal.Decimal, cur enums.Currency) (decimal.Decimal, error) {
	switch cur {
	case enums.CurrencyUSD:
		return amount, nil
	case enums.CurrencyVES:
		if !r.Secondary.IsPositive() {
			return decimal.Zero, fmt.Errorf("secondary rate unavailable")
		}
		return amount.Div(r.Secondary), nil
	case enums.CurrencyCOP:
		if r.Cross.IsPositive() {
			if !r.Secondary.IsPositive() {
				return decimal.Zero, fmt.Errorf("secondary rate unavailable for cross path")
			}
			return amount.Div(r.Cross).Div(r.Secondary), nil
		}
		if !r.Tertiary.IsPositive() {
			return decimal.Zero, fmt.Errorf("tertiary rate unavailable")
		}
		return amount.Div(r.Tertiary), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported currency %q", cur)
	}
}

// FromUSD converts a canonical USD amount into cur for display.
func FromUSD(r Rates, amount decimal.Decimal, cur enums.Currency) (decimal.Decimal, error) {
	switch cur {
	case enums.CurrencyUSD:
		return amount, nil
	case enums.CurrencyVES:
		if !r.Secondary.IsPositive() {
			return decimal.Zero, fmt.Errorf("secondary rate unavailable")
		}
		return amount.Mul(r.Secondary), nil
	case enums.CurrencyCOP:
		if r.Cross.IsPositive() {
			if !r.Secondary.IsPositive() {
				return decimal.Zero, fmt.Errorf("secondary rate unavailable for cross path")
			}
			return amount.Mul(r.Secondary).Mul(r.Cross), nil
		}
		if !r.Tertiary.IsPositive() {
			return decimal.Zero, fmt.Errorf("tertiary rate unavailable")
		}
		return amount.Mul(r.Tertiary), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported currency %q", cur)
	}
}

// Round2 rounds to the two decimal places amounts are presented with.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
