// Package money holds monetary amounts as exact decimals. Amounts render as
// strings with two fraction digits ("1000.00") in JSON and in SQL parameters
// so no float arithmetic ever touches a charge.
package money

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Amount struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{}

// New builds an Amount from a decimal.
func New(d decimal.Decimal) Amount {
	return Amount{d: d}
}

// Parse reads an amount from its string form, e.g. "1000.00".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{d: d}, nil
}

// MustParse is Parse for constants known to be valid. It panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

func (a Amount) Equal(b Amount) bool    { return a.d.Equal(b.d) }
func (a Amount) LessThan(b Amount) bool { return a.d.LessThan(b.d) }
func (a Amount) IsNegative() bool       { return a.d.IsNegative() }
func (a Amount) IsPositive() bool       { return a.d.IsPositive() }
func (a Amount) IsZero() bool           { return a.d.IsZero() }

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Cents returns the amount in minor units, rounding half up. Card providers
// take charge amounts in cents.
func (a Amount) Cents() int64 {
	return a.d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Units returns the amount in whole currency units, rounding half up. The
// mobile money provider takes whole shillings.
func (a Amount) Units() int64 {
	return a.d.Round(0).IntPart()
}

// String renders the amount with exactly two fraction digits.
func (a Amount) String() string {
	return a.d.StringFixed(2)
}

// Scan reads an amount from a database column. Queries cast numeric columns
// to text so the value arrives in exact string form.
func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		return a.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into money.Amount", src)
	}
}

// Value renders the amount for a SQL parameter.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*a = Amount{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
