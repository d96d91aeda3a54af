package models

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a deposit value. Decoding never fails: anything that is not a
// number (or a numeric string) leaves the amount invalid, and invalid
// amounts count as zero in every total.
type Amount struct {
	decimal.NullDecimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{decimal.NewNullDecimal(d)}
}

// ParseAmount is the lenient parser used for JSON input and legacy rows.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}
	}
	return NewAmount(d)
}

// Decimal returns the value, or zero when the amount is invalid.
func (a Amount) Decimal() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.NullDecimal.Decimal
}

func (a Amount) IsNegative() bool {
	return a.Valid && a.NullDecimal.Decimal.IsNegative()
}

func (a Amount) String() string {
	return a.Decimal().String()
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	*a = ParseAmount(strings.Trim(string(data), `"`))
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.NullDecimal.Decimal.String()), nil
}
