package currency

import (
	"testing"

	"github.com/shopspring/decimal"

	"bidpilot/internal/config"
)

func testConverter(t *testing.T) *Converter {
	t.Helper()
	c, err := NewConverter(config.CurrencyConfig{
		Base:    "EUR",
		Display: "USD",
		Rates: map[string]float64{
			"USD": 0.92, // 1 USD = 0.92 EUR
			"GBP": 1.15,
		},
	})
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	return c
}

func TestConvertSameCurrency(t *testing.T) {
	t.Parallel()
	c := testConverter(t)

	got, err := c.Convert(decimal.NewFromInt(100), "EUR", "EUR")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("got %s, want 100", got)
	}
}

func TestConvertPivotsThroughBase(t *testing.T) {
	t.Parallel()
	c := testConverter(t)

	// 100 GBP = 115 EUR = 125 USD at 0.92.
	got, err := c.Convert(decimal.NewFromInt(100), "GBP", "USD")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := decimal.NewFromInt(125)
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestConvertUnknownCurrency(t *testing.T) {
	t.Parallel()
	c := testConverter(t)

	if _, err := c.Convert(decimal.NewFromInt(1), "XXX", "EUR"); err == nil {
		t.Error("expected error for unknown from-currency")
	}
	if _, err := c.Convert(decimal.NewFromInt(1), "EUR", "XXX"); err == nil {
		t.Error("expected error for unknown to-currency")
	}
}

func TestNewConverterRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewConverter(config.CurrencyConfig{
		Base:  "EUR",
		Rates: map[string]float64{"USD": -1},
	})
	if err == nil {
		t.Error("expected error for negative rate")
	}

	_, err = NewConverter(config.CurrencyConfig{
		Base:    "EUR",
		Display: "USD",
		Rates:   map[string]float64{},
	})
	if err == nil {
		t.Error("expected error for display currency without a rate")
	}
}

func TestNewConverterDefaultsDisplayToBase(t *testing.T) {
	t.Parallel()

	c, err := NewConverter(config.CurrencyConfig{Base: "EUR"})
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	if c.Display() != "EUR" {
		t.Errorf("Display() = %s, want EUR", c.Display())
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount string
		code   string
		want   string
	}{
		{"1234.5", "EUR", "€1,234.50"},
		{"0.99", "USD", "$0.99"},
		{"1000000", "GBP", "£1,000,000.00"},
		{"-42", "EUR", "-€42.00"},
		{"17.375", "USD", "$17.38"},
		{"500", "NOK", "NOK 500.00"},
	}
	for _, tt := range tests {
		got := Format(decimal.RequireFromString(tt.amount), tt.code)
		if got != tt.want {
			t.Errorf("Format(%s, %s) = %q, want %q", tt.amount, tt.code, got, tt.want)
		}
	}
}

func TestFormatDisplay(t *testing.T) {
	t.Parallel()
	c := testConverter(t)

	// 92 EUR = 100 USD at 0.92.
	got, err := c.FormatDisplay(decimal.NewFromInt(92), "EUR")
	if err != nil {
		t.Fatalf("FormatDisplay: %v", err)
	}
	if got != "$100.00" {
		t.Errorf("got %q, want $100.00", got)
	}
}
