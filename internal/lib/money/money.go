// Package money converts between minor currency units, as the payment
// provider reports them, and decimal amounts shown to people.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// FromMinor converts pence/cents to a decimal major-unit amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// ToMinor parses a major-unit amount such as "5" or "5.50" into minor units.
// More than two decimal places is rejected rather than rounded.
func ToMinor(amount string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	minor := d.Mul(hundred)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q has more than two decimal places", ErrInvalidAmount, amount)
	}

	return minor.IntPart(), nil
}

// Format renders minor units with the currency code, e.g. "GBP 10.00".
func Format(minor int64, currency string) string {
	return strings.TrimSpace(strings.ToUpper(currency) + " " + FromMinor(minor).StringFixed(2))
}
