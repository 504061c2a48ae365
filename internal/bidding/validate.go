package bidding

import (
	"time"

	"github.com/shopspring/decimal"

	"bidpilot/pkg/types"
)

// Decision is the outcome of local bid validation. MinimumNextBid is always
// populated, even on the override path and on rejection, so callers can
// render the "bid at least X" hint.
type Decision struct {
	Accepted       bool
	Reason         types.RejectReason // empty when Accepted
	MinimumNextBid decimal.Decimal
}

// Validate decides whether a proposed bid is locally admissible.
//
// Check order, first failure wins:
//
//  1. AUCTION_ENDED      — lot end time set and in the past, any bid type
//  2. NORMAL path:   BID_BELOW_MINIMUM if amount < minimum next bid
//     OVERRIDE path: BID_BELOW_CURRENT if amount <= current price,
//     then ENTITLEMENT_DENIED if the gate refuses
//
// The function is pure: now is supplied by the caller, no counters are
// mutated (use RecordOverrideUsed after the backend accepts the bid), and no
// network calls happen here. Remote race rejections — another bid landing
// first — surface from the marketplace client, not from this validator.
func Validate(p types.BidProposal, state types.ListingPriceState, ent types.UserEntitlement, now time.Time) Decision {
	min := MinimumNextBid(state.Schedule, state.CurrentPrice)

	if state.LotEndTime != nil && state.LotEndTime.Before(now) {
		return Decision{Reason: types.ReasonAuctionEnded, MinimumNextBid: min}
	}

	switch p.Type {
	case types.BidOverride:
		if p.Amount.LessThanOrEqual(state.CurrentPrice) {
			return Decision{Reason: types.ReasonBidBelowCurrent, MinimumNextBid: min}
		}
		if !CanUseOverrideBid(ent, p.ListingID) {
			return Decision{Reason: types.ReasonEntitlementDenied, MinimumNextBid: min}
		}
	default:
		if p.Amount.LessThan(min) {
			return Decision{Reason: types.ReasonBidBelowMinimum, MinimumNextBid: min}
		}
	}

	return Decision{Accepted: true, MinimumNextBid: min}
}
