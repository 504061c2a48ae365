package api

import (
	"time"

	"bidpilot/internal/config"
)

// DashboardSnapshot represents the complete dashboard state
type DashboardSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	// Watched listings
	Listings []ListingStatus `json:"listings"`

	// Spend guard status
	Guard GuardStatus `json:"guard"`

	// Account entitlement
	Entitlement EntitlementStatus `json:"entitlement"`

	// Configuration
	Config ConfigSummary `json:"config"`
}

// ListingStatus represents per-listing state
type ListingStatus struct {
	ListingKey string `json:"listing_key"` // "listingID" or "listingID/lot"
	ListingID  string `json:"listing_id"`
	LotNumber  int    `json:"lot_number,omitempty"`
	Title      string `json:"title"`

	// Price state
	Currency       string     `json:"currency"`
	CurrentPrice   string     `json:"current_price"`
	DisplayPrice   string     `json:"display_price"` // formatted in the display currency
	MinimumNextBid string     `json:"minimum_next_bid"`
	Schedule       string     `json:"schedule"`
	LotEndTime     *time.Time `json:"lot_end_time,omitempty"`
	LastUpdated    time.Time  `json:"last_updated"`
	IsStale        bool       `json:"is_stale"`

	// Standing
	TopBidder string `json:"top_bidder,omitempty"`
	Winning   bool   `json:"winning"`

	// Auto-bid preview (nil when no order exists)
	AutoBid *AutoBidStatus `json:"auto_bid,omitempty"`

	// Recent bids, newest first
	History []BidHistoryItem `json:"history"`
}

// AutoBidStatus represents one auto-bid order and its next-move preview
type AutoBidStatus struct {
	MaxBid         string `json:"max_bid"`
	Status         string `json:"status"` // "ACTIVE" or "INACTIVE"
	NextCounterBid string `json:"next_counter_bid,omitempty"`
	WillExceedMax  bool   `json:"will_exceed_max"`
}

// BidHistoryItem is one row of a listing's bid history
type BidHistoryItem struct {
	BidderID string    `json:"bidder_id"`
	Amount   string    `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
}

// GuardStatus represents aggregate spend-guard metrics
type GuardStatus struct {
	TotalCommitment    string    `json:"total_commitment"`
	MaxTotalCommitment float64   `json:"max_total_commitment"`
	CommitmentPct      float64   `json:"commitment_pct"` // % of max
	Stopped            bool      `json:"stopped"`
	StoppedUntil       time.Time `json:"stopped_until,omitempty"`
	StopReason         string    `json:"stop_reason,omitempty"`

	MaxCommitmentPerListing float64 `json:"max_commitment_per_listing"`
	ListingsTracked         int     `json:"listings_tracked"`
}

// EntitlementStatus represents the account's bidding privileges
type EntitlementStatus struct {
	Tier             string         `json:"tier"`
	PhoneVerified    bool           `json:"phone_verified"`
	HasPaymentMethod bool           `json:"has_payment_method"`
	OverrideBidsUsed map[string]int `json:"override_bids_used"`
}

// ConfigSummary represents the agent configuration shown on the dashboard
type ConfigSummary struct {
	DryRun          bool   `json:"dry_run"`
	AutoPlaceBids   bool   `json:"auto_place_bids"`
	PollInterval    string `json:"poll_interval"`
	DisplayCurrency string `json:"display_currency"`

	MaxCommitmentPerListing float64 `json:"max_commitment_per_listing"`
	MaxTotalCommitment      float64 `json:"max_total_commitment"`
}

// NewConfigSummary extracts dashboard-relevant configuration
func NewConfigSummary(cfg config.Config) ConfigSummary {
	display := cfg.Currency.Display
	if display == "" {
		display = cfg.Currency.Base
	}
	return ConfigSummary{
		DryRun:                  cfg.DryRun,
		AutoPlaceBids:           cfg.Agent.AutoPlaceBids,
		PollInterval:            cfg.Watch.PollInterval.String(),
		DisplayCurrency:         display,
		MaxCommitmentPerListing: cfg.Guard.MaxCommitmentPerListing,
		MaxTotalCommitment:      cfg.Guard.MaxTotalCommitment,
	}
}

// BidRequest is the POST /api/bid body
type BidRequest struct {
	ListingID string `json:"listing_id"`
	LotNumber int    `json:"lot_number,omitempty"`
	Amount    string `json:"amount"`
	Override  bool   `json:"override"`
}

// BidResponse is the POST /api/bid reply
type BidResponse struct {
	Accepted       bool   `json:"accepted"`
	Reason         string `json:"reason,omitempty"`
	MinimumNextBid string `json:"minimum_next_bid"`
	BidID          string `json:"bid_id,omitempty"`
	CurrentPrice   string `json:"current_price,omitempty"`
}

// AutoBidRequest is the POST /api/auto-bid body
type AutoBidRequest struct {
	ListingID string `json:"listing_id"`
	MaxBid    string `json:"max_bid"`
}

// TaxInterviewRequest is the POST /api/tax-interview body: the seller's
// answers so far. Step narrows validation to one interview page; empty means
// validate the whole interview.
type TaxInterviewRequest struct {
	Step       string `json:"step,omitempty"`
	FullName   string `json:"full_name"`
	Country    string `json:"country"`
	TaxIDType  string `json:"tax_id_type"`
	TaxID      string `json:"tax_id"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Signature  string `json:"signature"`
	Certified  bool   `json:"certified"`
}

// TaxFieldError is one invalid interview field
type TaxFieldError struct {
	Step    string `json:"step"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// TaxInterviewResponse is the POST /api/tax-interview reply
type TaxInterviewResponse struct {
	Valid  bool            `json:"valid"`
	Errors []TaxFieldError `json:"errors,omitempty"`
}
