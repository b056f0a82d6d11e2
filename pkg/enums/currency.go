package enums

import "fmt"

// Currency represents the monetary denominations the ledger understands.
// USD is the canonical unit; VES and COP are display currencies converted
// through the vendor's exchange rate profile.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyVES Currency = "VES"
	CurrencyCOP Currency = "COP"
)

var validCurrencies = []Currency{
	CurrencyUSD,
	CurrencyVES,
	CurrencyCOP,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsCanonical reports whether amounts in this currency are stored as-is.
func (c Currency) IsCanonical() bool {
	return c == CurrencyUSD
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
