/*
Package generic provides the domain-agnostic primitives of the bonus engine.

PURPOSE:
  This package contains the building blocks that carry no compensation
  rules of their own: money amounts, identifiers, calendar months and
  semester windows, and the error vocabulary shared by every layer. The
  scoring rules live in package bonus and build on these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A monetary quantity with a currency unit (e.g., R$ 566.67)
  - ProviderID / RecordID: Type-safe identifiers
  - Ratio helpers: exact decimal fractions used for weights and shares

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift in money
  2. Type Safety: Strong typing for IDs prevents mixing provider/record IDs
  3. Immutability: Amount operations return new values

USAGE:
  salary := generic.NewAmountFromString("8500", generic.UnitBRL)
  cap := salary.Mul(generic.MustParseDecimal("0.4"))

SEE ALSO:
  - period.go: Month labels and semester windows
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Monetary quantity with currency unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

// Unit is an ISO 4217 currency code.
type Unit string

const (
	UnitBRL Unit = "BRL"
	UnitUSD Unit = "USD"
	UnitEUR Unit = "EUR"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

func NewAmountFromString(value string, unit Unit) Amount {
	return Amount{Value: MustParseDecimal(value), Unit: unit}
}

func ZeroAmount(unit Unit) Amount {
	return Amount{Value: decimal.Zero, Unit: unit}
}

// MustParseDecimal parses s, returning zero for malformed input.
// Intended for literals; use decimal.NewFromString for user input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Unit == b.Unit && a.Value.Equal(b.Value) }

// Cents rounds half-up to two decimal places.
func (a Amount) Cents() Amount { return Amount{Value: a.Value.Round(2), Unit: a.Unit} }

// String renders the amount with two decimals and its unit, e.g. "566.67 BRL".
func (a Amount) String() string { return a.Value.StringFixed(2) + " " + string(a.Unit) }

// SumAmounts adds amounts of the same unit. An empty slice sums to zero in unit.
func SumAmounts(unit Unit, amounts ...Amount) Amount {
	total := ZeroAmount(unit)
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProviderID string
type RecordID string
