// Package currency converts marketplace amounts between currencies and
// formats them for display.
//
// Rates come from configuration and are expressed relative to a single base
// currency (units of base per one unit of the quoted currency). Conversion
// pivots through the base, so any configured pair converts to any other.
// All arithmetic uses decimal to keep money exact; rounding to display
// precision happens only in Format.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bidpilot/internal/config"
)

// symbols maps ISO 4217 codes to display symbols. Codes without an entry
// fall back to the code itself.
var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
	"CHF": "CHF",
	"PLN": "zł",
	"SEK": "kr",
	"DKK": "kr",
}

// Converter converts and formats amounts using a fixed rates table.
type Converter struct {
	base    string
	display string
	rates   map[string]decimal.Decimal // code -> units of base per 1 unit
}

// NewConverter builds a converter from config. The base currency always has
// an implicit rate of 1.
func NewConverter(cfg config.CurrencyConfig) (*Converter, error) {
	rates := make(map[string]decimal.Decimal, len(cfg.Rates)+1)
	rates[cfg.Base] = decimal.NewFromInt(1)
	for code, rate := range cfg.Rates {
		d := decimal.NewFromFloat(rate)
		if d.Sign() <= 0 {
			return nil, fmt.Errorf("currency: non-positive rate %v for %s", rate, code)
		}
		rates[strings.ToUpper(code)] = d
	}

	display := strings.ToUpper(cfg.Display)
	if display == "" {
		display = cfg.Base
	}
	if _, ok := rates[display]; !ok {
		return nil, fmt.Errorf("currency: display currency %s has no configured rate", display)
	}

	return &Converter{base: cfg.Base, display: display, rates: rates}, nil
}

// Display reports the configured display currency code.
func (c *Converter) Display() string {
	return c.display
}

// Convert converts amount from one currency to another by pivoting through
// the base currency.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	fromRate, ok := c.rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("currency: no rate for %s", from)
	}
	toRate, ok := c.rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("currency: no rate for %s", to)
	}

	inBase := amount.Mul(fromRate)
	return inBase.Div(toRate), nil
}

// ToDisplay converts amount from its listing currency into the configured
// display currency.
func (c *Converter) ToDisplay(amount decimal.Decimal, from string) (decimal.Decimal, error) {
	return c.Convert(amount, from, c.display)
}

// Format renders an amount in the given currency with its symbol and
// thousands separators, rounded to two decimal places: "€1,234.50".
func Format(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	symbol, ok := symbols[code]
	if !ok {
		symbol = code + " "
	}

	neg := amount.Sign() < 0
	fixed := amount.Abs().StringFixed(2)

	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatDisplay converts and formats in one step: the amount in its listing
// currency rendered in the display currency.
func (c *Converter) FormatDisplay(amount decimal.Decimal, from string) (string, error) {
	converted, err := c.ToDisplay(amount, from)
	if err != nil {
		return "", err
	}
	return Format(converted, c.display), nil
}
