// Package pricing computes line totals, subtotals, tax and profit for orders
// and work orders. All amounts are fixed-point decimals rounded to currency
// precision; nothing in here touches the database.
package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places stored for money amounts.
const CurrencyPlaces = 2

// MaxAmount is the largest money amount a NUMERIC(10,2) column holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

// ErrOutOfRange is returned for input whose magnitude or precision no money
// or rate column can hold.
var ErrOutOfRange = errors.New("amount out of range")

const (
	maxInputLen       = 32
	maxIntegerDigits  = 8
	maxFractionDigits = 12
)

// DefaultTaxRate is applied to work orders when the caller supplies no usable rate.
var DefaultTaxRate = decimal.RequireFromString("0.0875")

// Line is a single priced line: unit price times quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int32
	Taxed     bool
}

// Totals is the result of pricing a full work order.
type Totals struct {
	LineTotals []decimal.Decimal
	Subtotal   decimal.Decimal
	TaxRate    decimal.Decimal
	TaxAmount  decimal.Decimal
	Total      decimal.Decimal
}

// Round rounds d to currency precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// LineTotal returns unitPrice * quantity at currency precision.
func LineTotal(unitPrice decimal.Decimal, quantity int32) decimal.Decimal {
	return Round(unitPrice.Mul(decimal.NewFromInt32(quantity)))
}

// Subtotal sums the line totals of lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l.UnitPrice, l.Quantity))
	}
	return sum
}

// Tax returns subtotal * rate at currency precision.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Mul(rate))
}

// Compute prices lines and applies taxRate to the whole subtotal.
// The per-line Taxed flag is carried for display only.
func Compute(lines []Line, taxRate decimal.Decimal) Totals {
	t := Totals{
		LineTotals: make([]decimal.Decimal, len(lines)),
		Subtotal:   decimal.Zero,
		TaxRate:    taxRate,
	}
	for i, l := range lines {
		lt := LineTotal(l.UnitPrice, l.Quantity)
		t.LineTotals[i] = lt
		t.Subtotal = t.Subtotal.Add(lt)
	}
	t.TaxAmount = Tax(t.Subtotal, taxRate)
	t.Total = t.Subtotal.Add(t.TaxAmount)
	return t
}

// Profit returns salePrice - total, or nil when no sale price is known.
func Profit(salePrice *decimal.Decimal, total decimal.Decimal) *decimal.Decimal {
	if salePrice == nil {
		return nil
	}
	p := Round(salePrice.Sub(total))
	return &p
}

// ParseDecimal parses raw and rejects out-of-range exponents before any
// arithmetic gets a chance to rescale them.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxInputLen {
		return decimal.Zero, ErrOutOfRange
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	exp := int(d.Exponent())
	if exp < -maxFractionDigits || d.NumDigits()+exp > maxIntegerDigits {
		return decimal.Zero, ErrOutOfRange
	}
	return d, nil
}

// ParseAmount parses a money amount at currency precision. Amounts above
// MaxAmount in magnitude are ErrOutOfRange.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return decimal.Zero, err
	}
	d = Round(d)
	if d.Abs().GreaterThan(MaxAmount) {
		return decimal.Zero, ErrOutOfRange
	}
	return d, nil
}

// ParseRate parses a fractional rate such as "0.0875". Empty or non-numeric
// input yields fallback; out-of-range input is ErrOutOfRange.
func ParseRate(raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := ParseDecimal(raw)
	if errors.Is(err, ErrOutOfRange) {
		return decimal.Zero, err
	}
	if err != nil {
		return fallback, nil
	}
	return d, nil
}
