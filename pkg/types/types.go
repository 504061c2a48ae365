// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the agent — listing state,
// bid proposals, entitlements, auto-bid orders, and the wire shapes of the
// marketplace REST API. It has no dependencies on internal packages, so it
// can be imported by any layer.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// IncrementSchedule selects which bid-increment curve a listing uses.
// Sellers pick one at listing-creation time; the resolver must reproduce
// both curves exactly since they gate monetary validity.
type IncrementSchedule string

const (
	ScheduleSimplified IncrementSchedule = "simplified" // fine curve: 1/5/25/100 steps
	ScheduleTiered     IncrementSchedule = "tiered"     // coarse curve: 5 up to 1000 steps
)

// BidType distinguishes the two bid paths.
type BidType string

const (
	BidNormal   BidType = "NORMAL"   // must meet the schedule-computed minimum
	BidOverride BidType = "OVERRIDE" // schedule waived, gated by entitlement
)

// SubscriptionTier is the account's paid tier on the marketplace.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "FREE"
	TierPremium SubscriptionTier = "PREMIUM"
	TierVIP     SubscriptionTier = "VIP"
)

// RejectReason identifies why the validator turned a bid down. These are
// expected business outcomes, never Go errors.
type RejectReason string

const (
	ReasonAuctionEnded      RejectReason = "AUCTION_ENDED"      // lot end time has passed
	ReasonBidBelowMinimum   RejectReason = "BID_BELOW_MINIMUM"  // normal bid under schedule minimum
	ReasonBidBelowCurrent   RejectReason = "BID_BELOW_CURRENT"  // override bid at or under current price
	ReasonEntitlementDenied RejectReason = "ENTITLEMENT_DENIED" // tier/usage/verification blocks the action
)

// AutoBidStatus is the lifecycle state of an auto-bid order.
// INACTIVE → ACTIVE on setup (requires the auto-bid entitlement),
// ACTIVE → INACTIVE on explicit deactivation, on the ceiling being exceeded,
// or on auction end. No other transitions exist.
type AutoBidStatus string

const (
	AutoBidActive   AutoBidStatus = "ACTIVE"
	AutoBidInactive AutoBidStatus = "INACTIVE"
)

// ————————————————————————————————————————————————————————————————————————
// Engine inputs
// ————————————————————————————————————————————————————————————————————————

// ListingPriceState is the pricing snapshot of one listing (or one lot of a
// multi-item listing). Fetched from the marketplace and passed read-only into
// the bidding engine; only the backend mutates it, on a successful bid.
// Invariant: CurrentPrice >= StartingPrice.
type ListingPriceState struct {
	ListingID     string
	LotNumber     int // 0 for single-item listings
	Title         string
	Currency      string // ISO code the prices are denominated in
	CurrentPrice  decimal.Decimal
	StartingPrice decimal.Decimal
	Schedule      IncrementSchedule
	LotEndTime    *time.Time // nil = no timed close
}

// BidProposal is one user-submitted bid, created transiently per submission
// and discarded once the validation result is consumed.
type BidProposal struct {
	ListingID string
	LotNumber int // 0 for single-item listings
	Amount    decimal.Decimal
	Type      BidType
}

// UserEntitlement is the session account's bidding privileges, sourced from
// the subscription endpoint. OverrideBidsUsed counts accepted override bids
// per listing; the monster-bid and power-bid surfaces share this one counter.
type UserEntitlement struct {
	Tier             SubscriptionTier
	PhoneVerified    bool
	HasPaymentMethod bool
	OverrideBidsUsed map[string]int // listingID → accepted override bids
}

// AutoBidOrder is a server-side proxy-bidding order: the backend counter-bids
// on the user's behalf up to MaxBid. One active order per (user, listing);
// the backend is the source of truth, the agent previews and toggles it.
type AutoBidOrder struct {
	ListingID string          `json:"listing_id"`
	MaxBid    decimal.Decimal `json:"max_bid"`
	Status    AutoBidStatus   `json:"status"`
}

// BidRecord is one entry of a listing's bid history.
type BidRecord struct {
	BidID    string
	BidderID string
	Amount   decimal.Decimal
	PlacedAt time.Time
}

// BidReceipt is the authoritative outcome of a remote bid submission.
// Even a locally-validated bid can be rejected here (another bidder raced
// ahead); callers must treat this result, not the local decision, as final.
type BidReceipt struct {
	BidID        string
	Accepted     bool
	CurrentPrice decimal.Decimal // price after the bid settled
}

// ————————————————————————————————————————————————————————————————————————
// Wire shapes
// ————————————————————————————————————————————————————————————————————————
// These structs map 1:1 to the JSON the marketplace REST API exchanges.
// Prices travel as strings to preserve decimal precision and are converted
// at the boundary with fail-fast parsing — loose payloads never reach the
// engine as zero values.

// ListingResponse is GET /listings/{id}.
type ListingResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Currency        string `json:"currency"`
	CurrentPrice    string `json:"current_price"`
	StartingPrice   string `json:"starting_price"`
	IncrementOption string `json:"increment_option,omitempty"`
	LotEndTime      string `json:"lot_end_time,omitempty"` // RFC3339, empty = untimed
}

// MultiItemListingResponse is GET /multi-item-listings/{id}.
type MultiItemListingResponse struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Currency string        `json:"currency"`
	Lots     []LotResponse `json:"lots"`
}

// LotResponse is one lot inside a multi-item listing.
type LotResponse struct {
	LotNumber     int    `json:"lot_number"`
	Title         string `json:"title"`
	CurrentPrice  string `json:"current_price"`
	StartingPrice string `json:"starting_price"`
	LotEndTime    string `json:"lot_end_time,omitempty"`
}

// IncrementInfoResponse is GET /multi-item-listings/{id}/increment-info.
type IncrementInfoResponse struct {
	IncrementOption string `json:"increment_option"` // "simplified" | "tiered"
}

// SubscriptionStatusResponse is GET /subscription/status.
type SubscriptionStatusResponse struct {
	Tier             string         `json:"tier"`
	PhoneVerified    bool           `json:"phone_verified"`
	HasPaymentMethod bool           `json:"has_payment_method"`
	MonsterBidsUsed  map[string]int `json:"monster_bids_used"` // shared by monster and power surfaces
}

// AutoBidResponse is the wire shape of one auto-bid order.
type AutoBidResponse struct {
	ListingID string `json:"listing_id"`
	MaxBid    string `json:"max_bid"`
	Active    bool   `json:"active"`
}

// CreateAutoBidRequest is POST /bids/auto-bid.
type CreateAutoBidRequest struct {
	ListingID string `json:"listing_id"`
	MaxBid    string `json:"max_bid"`
}

// PlaceBidRequest is the body for POST /bids, the per-lot bid endpoint, and
// POST /bids/monster. IdempotencyKey dedupes retries server-side.
type PlaceBidRequest struct {
	ListingID      string `json:"listing_id"`
	LotNumber      int    `json:"lot_number,omitempty"`
	Amount         string `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

// PlaceBidResponse is the server's verdict on a bid submission.
type PlaceBidResponse struct {
	BidID        string `json:"bid_id"`
	Accepted     bool   `json:"accepted"`
	ErrorCode    string `json:"error_code,omitempty"` // e.g. "outbid", "auction_ended"
	CurrentPrice string `json:"current_price"`
}

// BidHistoryResponse is GET /listings/{id}/bids.
type BidHistoryResponse struct {
	Bids []BidHistoryEntry `json:"bids"`
}

// BidHistoryEntry is one historical bid on the wire.
type BidHistoryEntry struct {
	BidID    string `json:"bid_id"`
	BidderID string `json:"bidder_id"`
	Amount   string `json:"amount"`
	PlacedAt string `json:"placed_at"` // RFC3339
}
