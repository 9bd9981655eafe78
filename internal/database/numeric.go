package database

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a NUMERIC column. NULL and unparsable values
// become zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalToNumeric converts d to a NUMERIC fixed at places decimals.
func DecimalToNumeric(d decimal.Decimal, places int32) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(places))
	return n
}

// NullableNumeric maps a nil decimal to SQL NULL.
func NullableNumeric(d *decimal.Decimal, places int32) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}
	return DecimalToNumeric(*d, places)
}

// FormatNumeric renders n with a fixed number of decimals ("19.00").
func FormatNumeric(n pgtype.Numeric, places int32) string {
	return NumericToDecimal(n).StringFixed(places)
}

// FormatNullableNumeric is FormatNumeric that keeps NULL as nil.
func FormatNullableNumeric(n pgtype.Numeric, places int32) *string {
	if !n.Valid {
		return nil
	}
	s := FormatNumeric(n, places)
	return &s
}
