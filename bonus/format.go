package bonus

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// =============================================================================
// FORMATTING - Presentation helpers, no rules
// =============================================================================

var currencySymbols = map[generic.Unit]string{
	generic.UnitBRL: "R$",
	generic.UnitUSD: "$",
	generic.UnitEUR: "€",
}

// Formatter renders amounts and percentages for one locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	symbol  string
}

// NewFormatter builds a formatter for a BCP 47 locale (e.g. "pt-BR") and an
// ISO 4217 currency code.
func NewFormatter(locale string, unit generic.Unit) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	code, err := currency.ParseISO(string(unit))
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", unit, err)
	}
	symbol, ok := currencySymbols[unit]
	if !ok {
		symbol = code.String()
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag), symbol: symbol}, nil
}

// Locale returns the formatter's language tag.
func (f *Formatter) Locale() language.Tag { return f.tag }

// FormatCurrency rounds to cents and groups digits per locale: "R$ 1.234,57".
func (f *Formatter) FormatCurrency(a generic.Amount) string {
	return f.symbol + " " + f.FormatNumber(a.Value, 2)
}

// FormatNumber rounds half-up to places and applies the locale's separators.
func (f *Formatter) FormatNumber(v decimal.Decimal, places int32) string {
	rounded := v.Round(places).InexactFloat64()
	return f.printer.Sprintf(fmt.Sprintf("%%.%df", places), rounded)
}

// FormatPercent renders a fraction with one decimal and the locale's
// separator: 0.333 -> "33,3%" in pt-BR.
func (f *Formatter) FormatPercent(fraction decimal.Decimal) string {
	return f.FormatNumber(fraction.Mul(decimal.NewFromInt(100)), 1) + "%"
}

// FormatPercent is the locale-neutral form: 0.4 -> "40.0%".
func FormatPercent(fraction decimal.Decimal) string {
	return fraction.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}
