// Package bidding implements the bid eligibility and increment engine.
//
// All four parts are pure, synchronous functions over caller-supplied
// snapshots:
//
//   - increment.go:   resolves the minimum increment for a price under a
//     seller-chosen schedule and derives the minimum next bid
//   - validate.go:    accepts or rejects a proposed bid with a tagged reason
//   - entitlement.go: gates override bids and auto-bid by tier, verification,
//     and per-listing usage
//   - autobid.go:     previews the proxy bidder's next counter-bid and drives
//     the auto-bid order state machine
//
// The engine performs no I/O. A local "accepted" decision is an admissibility
// check only — the marketplace backend remains authoritative, and callers
// must treat its rejection of a submitted bid as final.
package bidding

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bidpilot/pkg/types"
)

// band is one step of an increment curve: below (or at) Upper, bid in
// multiples of Step. A nil Upper bound means the band is open-ended.
type band struct {
	upper decimal.Decimal
	step  decimal.Decimal
}

func d(v int) decimal.Decimal { return decimal.NewFromInt(int64(v)) }

// simplifiedBands use INCLUSIVE upper bounds: a price of exactly 100 still
// takes the 1-unit step.
var simplifiedBands = []band{
	{upper: d(100), step: d(1)},
	{upper: d(1000), step: d(5)},
	{upper: d(10000), step: d(25)},
}

const simplifiedTopStep = 100

// tieredBands use EXCLUSIVE upper bounds: a price of exactly 100 has already
// moved to the 10-unit step.
var tieredBands = []band{
	{upper: d(100), step: d(5)},
	{upper: d(500), step: d(10)},
	{upper: d(1000), step: d(25)},
	{upper: d(5000), step: d(50)},
	{upper: d(10000), step: d(100)},
	{upper: d(50000), step: d(250)},
	{upper: d(100000), step: d(500)},
}

const tieredTopStep = 1000

// ResolveIncrement returns the minimum allowed bid increment for a listing at
// currentPrice under the given schedule. Always positive for any non-negative
// price. A negative price violates the caller contract; it is not checked
// here. An unknown schedule is a programmer error and panics.
func ResolveIncrement(schedule types.IncrementSchedule, currentPrice decimal.Decimal) decimal.Decimal {
	switch schedule {
	case types.ScheduleSimplified:
		for _, b := range simplifiedBands {
			if currentPrice.LessThanOrEqual(b.upper) {
				return b.step
			}
		}
		return d(simplifiedTopStep)
	case types.ScheduleTiered:
		for _, b := range tieredBands {
			if currentPrice.LessThan(b.upper) {
				return b.step
			}
		}
		return d(tieredTopStep)
	default:
		panic(fmt.Sprintf("bidding: unknown increment schedule %q", schedule))
	}
}

// MinimumNextBid returns the lowest amount a normal bid must reach:
// currentPrice + ResolveIncrement(schedule, currentPrice).
func MinimumNextBid(schedule types.IncrementSchedule, currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Add(ResolveIncrement(schedule, currentPrice))
}
