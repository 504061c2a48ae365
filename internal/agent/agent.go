// Package agent is the central orchestrator of the bidding assistant.
//
// It wires together all subsystems:
//
//  1. Watcher polls the marketplace for each configured listing.
//  2. Guard tracks standing commitments and engages a brake on breaches.
//  3. The bidding engine (pure functions) decides validity, minimum next
//     bids, entitlement gates, and auto-bid counter-bid previews.
//  4. The marketplace client submits bids; its receipt is authoritative.
//  5. The dashboard reads snapshots and receives events; its bid actions
//     come back in through PlaceBid / SetAutoBid / CancelAutoBid.
//
// Lifecycle: New() → Start() → [runs until SIGINT] → Stop()
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bidpilot/internal/api"
	"bidpilot/internal/bidding"
	"bidpilot/internal/config"
	"bidpilot/internal/currency"
	"bidpilot/internal/guard"
	"bidpilot/internal/marketplace"
	"bidpilot/internal/store"
	"bidpilot/internal/watch"
	"bidpilot/pkg/types"
)

// Marketplace is the slice of the REST client the agent uses. The concrete
// implementation is marketplace.Client.
type Marketplace interface {
	GetListing(ctx context.Context, listingID string) (*types.ListingPriceState, error)
	GetLot(ctx context.Context, listingID string, lotNumber int) (*types.ListingPriceState, error)
	GetBidHistory(ctx context.Context, listingID string) ([]types.BidRecord, error)
	GetSubscriptionStatus(ctx context.Context) (*types.UserEntitlement, error)
	GetAutoBids(ctx context.Context) ([]types.AutoBidOrder, error)
	CreateAutoBid(ctx context.Context, listingID string, maxBid decimal.Decimal) (*types.AutoBidOrder, error)
	DeleteAutoBid(ctx context.Context, listingID string) error
	PlaceBid(ctx context.Context, p types.BidProposal) (*types.BidReceipt, error)
}

// ErrListingNotWatched is returned when a bid action names a listing the
// agent has no fresh state for.
var ErrListingNotWatched = errors.New("listing is not watched or has no state yet")

// Agent orchestrates all components of the bidding assistant. It owns the
// lifecycle of all goroutines and serializes entitlement and auto-bid state.
type Agent struct {
	cfg     config.Config
	client  Marketplace
	watcher *watch.Watcher
	guard   *guard.Guard
	store   *store.Store
	conv    *currency.Converter
	logger  *slog.Logger

	// mu protects ent, autoBids, and paused.
	mu       sync.RWMutex
	ent      types.UserEntitlement
	autoBids map[string]*types.AutoBidOrder // listingID → order
	paused   map[string]time.Time           // listing key → pause expiry

	// dashboardEvents is nil when the dashboard is disabled.
	dashboardEvents chan api.DashboardEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and wires all agent components.
func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	client := marketplace.NewClient(cfg, logger)
	return newWithClient(cfg, client, logger)
}

func newWithClient(cfg config.Config, client Marketplace, logger *slog.Logger) (*Agent, error) {
	watcher, err := watch.NewWatcher(client, cfg, logger)
	if err != nil {
		return nil, err
	}

	conv, err := currency.NewConverter(cfg.Currency)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}

	// Restore persisted state: override usage seeds the entitlement until
	// the first subscription refresh, auto-bid orders seed the order map.
	usage, err := st.LoadOverrideUsage()
	if err != nil {
		return nil, err
	}
	orders, err := st.LoadAutoBids()
	if err != nil {
		return nil, err
	}
	autoBids := make(map[string]*types.AutoBidOrder, len(orders))
	for i := range orders {
		autoBids[orders[i].ListingID] = &orders[i]
	}

	ctx, cancel := context.WithCancel(context.Background())

	var dashEvents chan api.DashboardEvent
	if cfg.Dashboard.Enabled {
		dashEvents = make(chan api.DashboardEvent, 100)
	}

	return &Agent{
		cfg:             cfg,
		client:          client,
		watcher:         watcher,
		guard:           guard.New(cfg.Guard, logger),
		store:           st,
		conv:            conv,
		logger:          logger.With("component", "agent"),
		ent:             types.UserEntitlement{Tier: types.TierFree, OverrideBidsUsed: usage},
		autoBids:        autoBids,
		paused:          make(map[string]time.Time),
		dashboardEvents: dashEvents,
		ctx:             ctx,
		cancel:          cancel,
	}, nil
}

// Start fetches the account entitlement and launches all background
// goroutines: watcher, guard, and the main event loop.
func (a *Agent) Start() error {
	if err := a.refreshEntitlement(a.ctx); err != nil {
		return fmt.Errorf("initial entitlement fetch: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.watcher.Run(a.ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.guard.Run(a.ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run()
	}()

	return nil
}

// Stop gracefully shuts down: cancels all goroutines, persists override
// usage, and closes the store.
func (a *Agent) Stop() {
	a.logger.Info("shutting down...")

	a.cancel()
	a.wg.Wait()

	a.mu.RLock()
	usage := a.ent.OverrideBidsUsed
	a.mu.RUnlock()
	if err := a.store.SaveOverrideUsage(usage); err != nil {
		a.logger.Error("failed to save override usage", "error", err)
	}
	a.store.Close()

	a.logger.Info("shutdown complete")
}

// run is the main agent loop. It reacts to three events: listing updates
// from the watcher, stop signals from the guard, and the entitlement
// refresh ticker.
func (a *Agent) run() {
	refresh := a.cfg.Agent.EntitlementRefresh
	if refresh <= 0 {
		refresh = 5 * time.Minute
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case u := <-a.watcher.Updates():
			a.handleUpdate(u)
		case sig := <-a.guard.StopCh():
			a.handleStopSignal(sig)
		case <-ticker.C:
			if err := a.refreshEntitlement(a.ctx); err != nil && a.ctx.Err() == nil {
				a.logger.Error("entitlement refresh failed", "error", err)
			}
		}
	}
}

// refreshEntitlement pulls the subscription status and the server's auto-bid
// orders, merging the server's override counters with locally recorded ones.
// The higher count wins: the server may lag an override the agent just
// placed, and the agent may have missed one placed elsewhere.
func (a *Agent) refreshEntitlement(ctx context.Context) error {
	ent, err := a.client.GetSubscriptionStatus(ctx)
	if err != nil {
		return err
	}

	orders, err := a.client.GetAutoBids(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	for id, n := range a.ent.OverrideBidsUsed {
		if n > ent.OverrideBidsUsed[id] {
			if ent.OverrideBidsUsed == nil {
				ent.OverrideBidsUsed = make(map[string]int)
			}
			ent.OverrideBidsUsed[id] = n
		}
	}
	a.ent = *ent

	// The server only returns live orders; a deactivated one disappears
	// from its response after the DELETE. Locally-known INACTIVE orders are
	// kept so the dashboard can still show the spent ceiling.
	merged := make(map[string]*types.AutoBidOrder, len(orders))
	for id, order := range a.autoBids {
		if order.Status == types.AutoBidInactive {
			merged[id] = order
		}
	}
	for i := range orders {
		merged[orders[i].ListingID] = &orders[i]
	}
	a.autoBids = merged
	a.mu.Unlock()

	for i := range orders {
		if err := a.store.SaveAutoBid(orders[i]); err != nil {
			a.logger.Error("failed to persist auto-bid", "listing", orders[i].ListingID, "error", err)
		}
	}

	a.logger.Info("entitlement refreshed",
		"tier", string(ent.Tier),
		"phone_verified", ent.PhoneVerified,
		"auto_bids", len(orders),
	)
	return nil
}

// handleUpdate processes one listing refresh: reports commitment to the
// guard, previews the auto-bid proxy's next move, deactivates exhausted
// orders, and counter-bids when configured to.
func (a *Agent) handleUpdate(u watch.Update) {
	key := u.Ref.String()
	state := u.State

	// Standing commitment: the current price if the account is the top
	// bidder, in the base currency.
	winning := len(u.History) > 0 && u.History[0].BidderID == a.cfg.Account.BidderID
	commitment := decimal.Zero
	if winning {
		converted, err := a.conv.Convert(state.CurrentPrice, state.Currency, a.cfg.Currency.Base)
		if err != nil {
			a.logger.Error("commitment conversion failed", "listing", key, "error", err)
		} else {
			commitment = converted
		}
	}
	a.guard.Report(guard.CommitmentReport{
		ListingKey:   key,
		CurrentPrice: state.CurrentPrice,
		Commitment:   commitment,
		Timestamp:    u.FetchedAt,
	})

	if u.Outbid {
		topBidder := ""
		if len(u.History) > 0 {
			topBidder = u.History[0].BidderID
		}
		a.emitEvent(api.DashboardEvent{
			Type:       "outbid",
			Timestamp:  time.Now(),
			ListingKey: key,
			Data: api.OutbidEvent{
				Title:        state.Title,
				CurrentPrice: state.CurrentPrice.String(),
				TopBidder:    topBidder,
			},
		})
	}

	a.mu.RLock()
	order, hasOrder := a.autoBids[state.ListingID]
	var orderCopy types.AutoBidOrder
	if hasOrder {
		orderCopy = *order
	}
	a.mu.RUnlock()

	if !hasOrder || orderCopy.Status != types.AutoBidActive {
		return
	}

	if state.LotEndTime != nil && state.LotEndTime.Before(time.Now()) {
		a.deactivateAutoBid(state.ListingID, "auction ended")
		return
	}

	cb := bidding.NextCounterBid(orderCopy, *state)
	if cb.WillExceedMax {
		a.deactivateAutoBid(state.ListingID, "next required bid exceeds ceiling")
		return
	}

	if u.Outbid && a.cfg.Agent.AutoPlaceBids {
		a.tryCounterBid(key, state, cb.BidAmount)
	}
}

// tryCounterBid places the proxy's counter-bid if the guard allows it.
func (a *Agent) tryCounterBid(key string, state *types.ListingPriceState, amount decimal.Decimal) {
	if a.guard.IsStopped() {
		a.logger.Warn("counter-bid skipped, guard engaged", "listing", key)
		return
	}
	a.mu.RLock()
	until, isPaused := a.paused[key]
	ent := a.ent
	a.mu.RUnlock()
	if isPaused && time.Now().Before(until) {
		a.logger.Warn("counter-bid skipped, listing paused", "listing", key, "until", until)
		return
	}

	budget := a.guard.RemainingBudget(key)
	needed, err := a.conv.Convert(amount, state.Currency, a.cfg.Currency.Base)
	if err != nil {
		a.logger.Error("budget conversion failed", "listing", key, "error", err)
		return
	}
	if needed.GreaterThan(budget) {
		a.logger.Warn("counter-bid skipped, over budget",
			"listing", key, "needed", needed.String(), "budget", budget.String())
		return
	}

	p := types.BidProposal{
		ListingID: state.ListingID,
		LotNumber: state.LotNumber,
		Amount:    amount,
		Type:      types.BidNormal,
	}
	decision := bidding.Validate(p, *state, ent, time.Now())
	if !decision.Accepted {
		a.logger.Warn("counter-bid rejected locally",
			"listing", key, "reason", string(decision.Reason))
		if decision.Reason == types.ReasonAuctionEnded {
			a.deactivateAutoBid(state.ListingID, "auction ended")
		}
		return
	}

	receipt, err := a.client.PlaceBid(a.ctx, p)
	if err != nil {
		// A server rejection is expected in bid races; the next poll will
		// pick up the new price and retry from there.
		a.logger.Warn("counter-bid refused by marketplace", "listing", key, "error", err)
		return
	}

	a.logger.Info("counter-bid placed",
		"listing", key, "amount", amount.String(), "bid_id", receipt.BidID)
	a.emitEvent(api.DashboardEvent{
		Type:       "bid",
		Timestamp:  time.Now(),
		ListingKey: key,
		Data:       api.NewBidPlacedEvent(receipt.BidID, amount.String(), string(types.BidNormal), receipt.Accepted, ""),
	})
}

// deactivateAutoBid turns an order off locally and server-side and keeps the
// inactive record so the dashboard can show the spent ceiling.
func (a *Agent) deactivateAutoBid(listingID, reason string) {
	a.mu.Lock()
	order, ok := a.autoBids[listingID]
	if !ok || order.Status != types.AutoBidActive {
		a.mu.Unlock()
		return
	}
	if err := bidding.DeactivateAutoBid(order); err != nil {
		a.mu.Unlock()
		return
	}
	orderCopy := *order
	a.mu.Unlock()

	if err := a.client.DeleteAutoBid(a.ctx, listingID); err != nil {
		a.logger.Error("failed to delete auto-bid order", "listing", listingID, "error", err)
	}
	if err := a.store.SaveAutoBid(orderCopy); err != nil {
		a.logger.Error("failed to persist auto-bid", "listing", listingID, "error", err)
	}

	a.logger.Info("auto-bid deactivated", "listing", listingID, "reason", reason)
	a.emitEvent(api.DashboardEvent{
		Type:       "autobid",
		Timestamp:  time.Now(),
		ListingKey: listingID,
		Data: api.AutoBidEvent{
			Status: string(types.AutoBidInactive),
			MaxBid: orderCopy.MaxBid.String(),
			Reason: reason,
		},
	})
}

// handleStopSignal pauses automatic bidding: globally the guard's own
// cooldown covers it, per-listing the pause is tracked here.
func (a *Agent) handleStopSignal(sig guard.StopSignal) {
	until := time.Now().Add(a.cfg.Guard.CooldownAfterStop)
	if sig.ListingKey != "" {
		a.mu.Lock()
		a.paused[sig.ListingKey] = until
		a.mu.Unlock()
	}

	a.logger.Error("STOP SIGNAL received",
		"listing", sig.ListingKey,
		"reason", sig.Reason,
	)
	a.emitEvent(api.DashboardEvent{
		Type:       "stop",
		Timestamp:  time.Now(),
		ListingKey: sig.ListingKey,
		Data:       api.NewStopEvent(sig.Reason, until),
	})
}

// emitEvent sends an event to the dashboard (non-blocking).
func (a *Agent) emitEvent(evt api.DashboardEvent) {
	if a.dashboardEvents == nil {
		return
	}

	select {
	case a.dashboardEvents <- evt:
	default:
		// Dashboard can't keep up, drop event
	}
}
