package bidding

import (
	"errors"

	"github.com/shopspring/decimal"

	"bidpilot/pkg/types"
)

// Errors returned by auto-bid order transitions.
var (
	ErrAutoBidNotPermitted  = errors.New("auto-bid not permitted for this account")
	ErrAutoBidAlreadyActive = errors.New("auto-bid order is already active")
	ErrAutoBidNotActive     = errors.New("auto-bid order is not active")
)

// CounterBid is the proxy policy's verdict for one outbid event. When
// WillExceedMax is true no amount is proposed and the order should be
// deactivated; persisting that deactivation is the caller's job.
type CounterBid struct {
	BidAmount     decimal.Decimal
	WillExceedMax bool
}

// NextCounterBid previews the proxy bidder's next move for an order: the
// schedule's minimum next bid, always along the NORMAL path — auto-bid never
// uses override pricing. If that candidate exceeds the order's ceiling the
// policy signals auto-deactivation instead of proposing an amount.
func NextCounterBid(order types.AutoBidOrder, state types.ListingPriceState) CounterBid {
	candidate := MinimumNextBid(state.Schedule, state.CurrentPrice)
	if candidate.GreaterThan(order.MaxBid) {
		return CounterBid{WillExceedMax: true}
	}
	return CounterBid{BidAmount: candidate}
}

// ActivateAutoBid transitions an order INACTIVE → ACTIVE. Setup requires the
// auto-bid entitlement; re-activating an active order is invalid.
func ActivateAutoBid(order *types.AutoBidOrder, ent types.UserEntitlement) error {
	if order.Status == types.AutoBidActive {
		return ErrAutoBidAlreadyActive
	}
	if !CanUseAutoBid(ent) {
		return ErrAutoBidNotPermitted
	}
	order.Status = types.AutoBidActive
	return nil
}

// DeactivateAutoBid transitions an order ACTIVE → INACTIVE. Used for explicit
// deactivation, for the ceiling being exceeded, and for auction end.
func DeactivateAutoBid(order *types.AutoBidOrder) error {
	if order.Status != types.AutoBidActive {
		return ErrAutoBidNotActive
	}
	order.Status = types.AutoBidInactive
	return nil
}
