package api

import "time"

// DashboardEvent is the wrapper for all events sent to the dashboard
type DashboardEvent struct {
	Type       string      `json:"type"`        // "snapshot", "listing", "bid", "outbid", "autobid", "stop"
	Timestamp  time.Time   `json:"timestamp"`   // Event time
	ListingKey string      `json:"listing_key"` // empty for global events
	Data       interface{} `json:"data"`        // Event-specific payload
}

// BidPlacedEvent represents a bid submission outcome
type BidPlacedEvent struct {
	BidID    string `json:"bid_id,omitempty"`
	Amount   string `json:"amount"`
	BidType  string `json:"bid_type"` // "NORMAL" or "OVERRIDE"
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"` // rejection reason, local or server-side
}

// OutbidEvent is emitted when the account loses the top-bidder spot
type OutbidEvent struct {
	Title        string `json:"title"`
	CurrentPrice string `json:"current_price"`
	TopBidder    string `json:"top_bidder"`
}

// AutoBidEvent is emitted on auto-bid order transitions
type AutoBidEvent struct {
	Status         string `json:"status"` // "ACTIVE" or "INACTIVE"
	MaxBid         string `json:"max_bid"`
	Reason         string `json:"reason,omitempty"` // why the order deactivated
	NextCounterBid string `json:"next_counter_bid,omitempty"`
}

// StopEvent is emitted when the spend guard engages the brake
type StopEvent struct {
	Reason string    `json:"reason"`
	Until  time.Time `json:"until"` // Cooldown expiry
}

// NewBidPlacedEvent creates a bid event
func NewBidPlacedEvent(bidID, amount, bidType string, accepted bool, reason string) BidPlacedEvent {
	return BidPlacedEvent{
		BidID:    bidID,
		Amount:   amount,
		BidType:  bidType,
		Accepted: accepted,
		Reason:   reason,
	}
}

// NewStopEvent creates a guard stop event
func NewStopEvent(reason string, until time.Time) StopEvent {
	return StopEvent{Reason: reason, Until: until}
}
