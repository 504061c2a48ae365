package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bidpilot/internal/api"
	"bidpilot/internal/bidding"
	"bidpilot/internal/watch"
	"bidpilot/pkg/types"
)

// This file implements api.AgentProvider: the snapshot reads and bid actions
// the dashboard server calls into.

// DashboardEvents returns the dashboard event channel (may be nil).
func (a *Agent) DashboardEvents() <-chan api.DashboardEvent {
	return a.dashboardEvents
}

// ListingsSnapshot returns the current state of all watched listings.
// Listings without a first snapshot yet are omitted.
func (a *Agent) ListingsSnapshot() []api.ListingStatus {
	a.mu.RLock()
	orders := make(map[string]types.AutoBidOrder, len(a.autoBids))
	for id, order := range a.autoBids {
		orders[id] = *order
	}
	a.mu.RUnlock()

	refs := a.watcher.Refs()
	result := make([]api.ListingStatus, 0, len(refs))
	for _, ref := range refs {
		mirror := a.watcher.Mirror(ref)
		state := mirror.State()
		if state == nil {
			continue
		}

		minNext := bidding.MinimumNextBid(state.Schedule, state.CurrentPrice)
		display, err := a.conv.FormatDisplay(state.CurrentPrice, state.Currency)
		if err != nil {
			display = state.CurrentPrice.String()
		}

		history := mirror.History()
		items := make([]api.BidHistoryItem, 0, len(history))
		for _, rec := range history {
			items = append(items, api.BidHistoryItem{
				BidderID: rec.BidderID,
				Amount:   rec.Amount.String(),
				PlacedAt: rec.PlacedAt,
			})
		}

		topBidder := ""
		if len(history) > 0 {
			topBidder = history[0].BidderID
		}

		status := api.ListingStatus{
			ListingKey:     ref.String(),
			ListingID:      ref.ListingID,
			LotNumber:      ref.LotNumber,
			Title:          state.Title,
			Currency:       state.Currency,
			CurrentPrice:   state.CurrentPrice.String(),
			DisplayPrice:   display,
			MinimumNextBid: minNext.String(),
			Schedule:       string(state.Schedule),
			LotEndTime:     state.LotEndTime,
			LastUpdated:    mirror.LastUpdated(),
			IsStale:        mirror.IsStale(a.cfg.Watch.StaleTimeout),
			TopBidder:      topBidder,
			Winning:        topBidder != "" && topBidder == a.cfg.Account.BidderID,
			History:        items,
		}

		if order, ok := orders[ref.ListingID]; ok {
			ab := &api.AutoBidStatus{
				MaxBid: order.MaxBid.String(),
				Status: string(order.Status),
			}
			if order.Status == types.AutoBidActive {
				cb := bidding.NextCounterBid(order, *state)
				ab.WillExceedMax = cb.WillExceedMax
				if !cb.WillExceedMax {
					ab.NextCounterBid = cb.BidAmount.String()
				}
			}
			status.AutoBid = ab
		}

		result = append(result, status)
	}
	return result
}

// GuardStatus returns aggregate spend-guard metrics.
func (a *Agent) GuardStatus() api.GuardStatus {
	snap := a.guard.Snapshot()
	return api.GuardStatus{
		TotalCommitment:         snap.TotalCommitment.String(),
		MaxTotalCommitment:      snap.MaxTotalCommitment,
		CommitmentPct:           snap.CommitmentPct,
		Stopped:                 snap.Stopped,
		StoppedUntil:            snap.StoppedUntil,
		StopReason:              snap.StopReason,
		MaxCommitmentPerListing: snap.MaxCommitmentPerListing,
		ListingsTracked:         snap.ListingsTracked,
	}
}

// EntitlementStatus returns the account's current bidding privileges.
func (a *Agent) EntitlementStatus() api.EntitlementStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	used := make(map[string]int, len(a.ent.OverrideBidsUsed))
	for id, n := range a.ent.OverrideBidsUsed {
		used[id] = n
	}
	return api.EntitlementStatus{
		Tier:             string(a.ent.Tier),
		PhoneVerified:    a.ent.PhoneVerified,
		HasPaymentMethod: a.ent.HasPaymentMethod,
		OverrideBidsUsed: used,
	}
}

// PlaceBid validates and submits a bid on the dashboard user's behalf.
// A local rejection returns accepted=false with the reason and the minimum
// next bid; only transport failures and authoritative server refusals come
// back as errors.
func (a *Agent) PlaceBid(ctx context.Context, req api.BidRequest) (api.BidResponse, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return api.BidResponse{}, fmt.Errorf("bad amount %q: %w", req.Amount, api.ErrInvalidAmount)
	}

	ref := watch.ListingRef{ListingID: req.ListingID, LotNumber: req.LotNumber}
	mirror := a.watcher.Mirror(ref)
	if mirror == nil {
		return api.BidResponse{}, ErrListingNotWatched
	}
	state := mirror.State()
	if state == nil {
		return api.BidResponse{}, ErrListingNotWatched
	}

	bidType := types.BidNormal
	if req.Override {
		bidType = types.BidOverride
	}
	p := types.BidProposal{
		ListingID: req.ListingID,
		LotNumber: req.LotNumber,
		Amount:    amount,
		Type:      bidType,
	}

	a.mu.RLock()
	ent := a.ent
	a.mu.RUnlock()

	decision := bidding.Validate(p, *state, ent, time.Now())
	if !decision.Accepted {
		return api.BidResponse{
			Accepted:       false,
			Reason:         string(decision.Reason),
			MinimumNextBid: decision.MinimumNextBid.String(),
		}, nil
	}

	receipt, err := a.client.PlaceBid(ctx, p)
	if err != nil {
		return api.BidResponse{}, err
	}

	// An accepted override burns one use; the counter moves only after the
	// server accepted, never on local validation.
	if receipt.Accepted && bidType == types.BidOverride {
		a.recordOverrideUsed(req.ListingID)
	}

	a.emitEvent(api.DashboardEvent{
		Type:       "bid",
		Timestamp:  time.Now(),
		ListingKey: ref.String(),
		Data:       api.NewBidPlacedEvent(receipt.BidID, req.Amount, string(bidType), receipt.Accepted, ""),
	})

	return api.BidResponse{
		Accepted:       receipt.Accepted,
		MinimumNextBid: decision.MinimumNextBid.String(),
		BidID:          receipt.BidID,
		CurrentPrice:   receipt.CurrentPrice.String(),
	}, nil
}

func (a *Agent) recordOverrideUsed(listingID string) {
	a.mu.Lock()
	bidding.RecordOverrideUsed(&a.ent, listingID)
	usage := make(map[string]int, len(a.ent.OverrideBidsUsed))
	for id, n := range a.ent.OverrideBidsUsed {
		usage[id] = n
	}
	a.mu.Unlock()

	if err := a.store.SaveOverrideUsage(usage); err != nil {
		a.logger.Error("failed to persist override usage", "listing", listingID, "error", err)
	}
}

// SetAutoBid activates an auto-bid order with the given ceiling. The
// entitlement gate runs locally first; the server-side order is only created
// when the transition is valid.
func (a *Agent) SetAutoBid(ctx context.Context, listingID, maxBid string) (*api.AutoBidStatus, error) {
	ceiling, err := decimal.NewFromString(maxBid)
	if err != nil {
		return nil, fmt.Errorf("bad max bid %q: %w", maxBid, api.ErrInvalidAmount)
	}
	if ceiling.Sign() <= 0 {
		return nil, fmt.Errorf("max bid must be positive: %w", api.ErrInvalidAmount)
	}

	a.mu.Lock()
	ent := a.ent
	order := types.AutoBidOrder{ListingID: listingID, MaxBid: ceiling}
	if existing, ok := a.autoBids[listingID]; ok {
		order.Status = existing.Status
	}
	if err := bidding.ActivateAutoBid(&order, ent); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	a.mu.Unlock()

	created, err := a.client.CreateAutoBid(ctx, listingID, ceiling)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.autoBids[listingID] = created
	a.mu.Unlock()

	if err := a.store.SaveAutoBid(*created); err != nil {
		a.logger.Error("failed to persist auto-bid", "listing", listingID, "error", err)
	}

	a.logger.Info("auto-bid activated", "listing", listingID, "max_bid", ceiling.String())
	a.emitEvent(api.DashboardEvent{
		Type:       "autobid",
		Timestamp:  time.Now(),
		ListingKey: listingID,
		Data: api.AutoBidEvent{
			Status: string(created.Status),
			MaxBid: created.MaxBid.String(),
		},
	})

	return &api.AutoBidStatus{
		MaxBid: created.MaxBid.String(),
		Status: string(created.Status),
	}, nil
}

// CancelAutoBid removes an auto-bid order, locally and server-side.
func (a *Agent) CancelAutoBid(ctx context.Context, listingID string) error {
	a.mu.Lock()
	order, ok := a.autoBids[listingID]
	if ok {
		// An already-inactive order can still be removed.
		_ = bidding.DeactivateAutoBid(order)
		delete(a.autoBids, listingID)
	}
	a.mu.Unlock()

	if err := a.client.DeleteAutoBid(ctx, listingID); err != nil {
		return err
	}
	if err := a.store.DeleteAutoBid(listingID); err != nil {
		a.logger.Error("failed to remove persisted auto-bid", "listing", listingID, "error", err)
	}

	a.logger.Info("auto-bid cancelled", "listing", listingID)
	a.emitEvent(api.DashboardEvent{
		Type:       "autobid",
		Timestamp:  time.Now(),
		ListingKey: listingID,
		Data:       api.AutoBidEvent{Status: string(types.AutoBidInactive)},
	})
	return nil
}
