package bidding

import (
	"testing"

	"github.com/shopspring/decimal"

	"bidpilot/pkg/types"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestResolveIncrementSimplified(t *testing.T) {
	t.Parallel()

	tests := []struct {
		price string
		want  string
	}{
		{"0", "1"},
		{"50", "1"},
		{"100", "1"},      // inclusive boundary
		{"100.01", "5"},   // just past the boundary
		{"1000", "5"},     // inclusive boundary
		{"1000.01", "25"},
		{"10000", "25"},   // inclusive boundary
		{"10000.01", "100"},
		{"15000", "100"},
		{"250000", "100"},
	}

	for _, tt := range tests {
		got := ResolveIncrement(types.ScheduleSimplified, dec(tt.price))
		if !got.Equal(dec(tt.want)) {
			t.Errorf("ResolveIncrement(simplified, %s) = %s, want %s", tt.price, got, tt.want)
		}
	}
}

func TestResolveIncrementTiered(t *testing.T) {
	t.Parallel()

	tests := []struct {
		price string
		want  string
	}{
		{"0", "5"},
		{"99.99", "5"},    // just under the exclusive boundary
		{"100", "10"},     // exclusive boundary
		{"499.99", "10"},
		{"500", "25"},
		{"999.99", "25"},
		{"1000", "50"},
		{"4999.99", "50"},
		{"5000", "100"},
		{"9999.99", "100"},
		{"10000", "250"},
		{"49999.99", "250"},
		{"50000", "500"},
		{"99999.99", "500"},
		{"100000", "1000"}, // exclusive boundary into the open band
		{"2000000", "1000"},
	}

	for _, tt := range tests {
		got := ResolveIncrement(types.ScheduleTiered, dec(tt.price))
		if !got.Equal(dec(tt.want)) {
			t.Errorf("ResolveIncrement(tiered, %s) = %s, want %s", tt.price, got, tt.want)
		}
	}
}

func TestResolveIncrementAlwaysPositive(t *testing.T) {
	t.Parallel()

	prices := []string{"0", "0.01", "1", "99.99", "100", "1000", "9999", "10000", "49999", "100000", "1000000"}
	for _, schedule := range []types.IncrementSchedule{types.ScheduleSimplified, types.ScheduleTiered} {
		for _, p := range prices {
			if got := ResolveIncrement(schedule, dec(p)); !got.IsPositive() {
				t.Errorf("ResolveIncrement(%s, %s) = %s, want > 0", schedule, p, got)
			}
		}
	}
}

func TestResolveIncrementMonotonic(t *testing.T) {
	t.Parallel()

	// For a fixed schedule the increment never shrinks as the price rises.
	prices := []string{
		"0", "1", "50", "99.99", "100", "100.01", "499", "500", "999", "1000",
		"1001", "4999", "5000", "9999", "10000", "10001", "49999", "50000",
		"99999", "100000", "500000",
	}
	for _, schedule := range []types.IncrementSchedule{types.ScheduleSimplified, types.ScheduleTiered} {
		prev := decimal.Zero
		for _, p := range prices {
			got := ResolveIncrement(schedule, dec(p))
			if got.LessThan(prev) {
				t.Errorf("ResolveIncrement(%s) not monotonic: %s at price %s after %s", schedule, got, p, prev)
			}
			prev = got
		}
	}
}

func TestResolveIncrementUnknownSchedulePanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown schedule")
		}
	}()
	ResolveIncrement(types.IncrementSchedule("bogus"), dec("10"))
}

func TestMinimumNextBid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		schedule types.IncrementSchedule
		price    string
		want     string
	}{
		{types.ScheduleSimplified, "95", "96"},
		{types.ScheduleSimplified, "100", "101"},
		{types.ScheduleSimplified, "100.01", "105.01"},
		{types.ScheduleTiered, "95", "100"},
		{types.ScheduleTiered, "100", "110"},
		{types.ScheduleTiered, "100000", "101000"},
	}

	for _, tt := range tests {
		got := MinimumNextBid(tt.schedule, dec(tt.price))
		if !got.Equal(dec(tt.want)) {
			t.Errorf("MinimumNextBid(%s, %s) = %s, want %s", tt.schedule, tt.price, got, tt.want)
		}
	}
}
