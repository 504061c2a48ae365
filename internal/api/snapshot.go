package api

import (
	"context"
	"errors"
	"time"

	"bidpilot/internal/config"
)

// ErrInvalidAmount marks a bid or ceiling amount the provider could not
// parse. Handlers map it to a 400 instead of treating it as an upstream
// failure.
var ErrInvalidAmount = errors.New("invalid amount")

// AgentProvider is the slice of the agent the dashboard needs: snapshot
// reads plus the bidding actions exposed over REST.
type AgentProvider interface {
	ListingsSnapshot() []ListingStatus
	GuardStatus() GuardStatus
	EntitlementStatus() EntitlementStatus
	DashboardEvents() <-chan DashboardEvent

	PlaceBid(ctx context.Context, req BidRequest) (BidResponse, error)
	SetAutoBid(ctx context.Context, listingID, maxBid string) (*AutoBidStatus, error)
	CancelAutoBid(ctx context.Context, listingID string) error
}

// BuildSnapshot aggregates state from the agent into a dashboard snapshot
func BuildSnapshot(provider AgentProvider, cfg config.Config) DashboardSnapshot {
	return DashboardSnapshot{
		Timestamp:   time.Now(),
		Listings:    provider.ListingsSnapshot(),
		Guard:       provider.GuardStatus(),
		Entitlement: provider.EntitlementStatus(),
		Config:      NewConfigSummary(cfg),
	}
}
