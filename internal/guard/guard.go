// Package guard enforces spend limits across all watched listings.
//
// The guard runs as a standalone goroutine that receives CommitmentReports
// from the agent after every price refresh and checks them against
// configured limits:
//
//   - Per-listing commitment: caps standing bid exposure on one listing
//   - Total commitment:       caps exposure summed across all listings
//   - Price spike:            pauses bidding if a listing's price jumps more
//     than PriceSpikePct within PriceSpikeWindowSec seconds (bid-war brake)
//
// When a limit is breached, the guard emits a StopSignal on StopCh(). The
// agent reads the signal and suspends automatic bidding (globally or for one
// listing). After a stop, the brake stays engaged for CooldownAfterStop,
// during which the agent skips auto-placement.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bidpilot/internal/config"
)

// CommitmentReport is sent by the agent after each listing refresh. It
// carries the account's standing exposure on the listing: the amount the
// account is on the hook for if no-one outbids it, in the base currency.
type CommitmentReport struct {
	ListingKey   string // "listingID" or "listingID/lot"
	CurrentPrice decimal.Decimal
	Commitment   decimal.Decimal // standing exposure in base currency, zero when not winning
	Timestamp    time.Time
}

// StopSignal tells the agent to suspend automatic bidding. If ListingKey is
// empty, bidding pauses on ALL listings.
type StopSignal struct {
	ListingKey string // empty = pause ALL listings
	Reason     string
}

// priceAnchor stores a reference price at a point in time for detecting
// rapid price spikes within a rolling window.
type priceAnchor struct {
	price     decimal.Decimal
	timestamp time.Time
}

// Guard enforces spend limits across all watched listings. It aggregates
// commitment reports, checks limits, and emits stop signals when breached.
type Guard struct {
	cfg    config.GuardConfig
	logger *slog.Logger

	mu           sync.RWMutex
	commitments  map[string]CommitmentReport // latest report per listing
	total        decimal.Decimal             // sum of all commitments
	stopped      bool                        // true while in cooldown
	stoppedUntil time.Time                   // when cooldown expires
	priceAnchors map[string]priceAnchor      // reference prices for spike detection

	reportCh chan CommitmentReport // agent writes here
	stopCh   chan StopSignal       // agent reads stop signals from here
}

// New creates a spend guard.
func New(cfg config.GuardConfig, logger *slog.Logger) *Guard {
	return &Guard{
		cfg:          cfg,
		logger:       logger.With("component", "guard"),
		commitments:  make(map[string]CommitmentReport),
		priceAnchors: make(map[string]priceAnchor),
		reportCh:     make(chan CommitmentReport, 100),
		stopCh:       make(chan StopSignal, 10),
	}
}

// Run starts the guard loop.
func (g *Guard) Run(ctx context.Context) {
	// Periodic check clears the brake even when no reports arrive
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case report := <-g.reportCh:
			g.processReport(report)
		case <-ticker.C:
			g.clearExpiredStop()
		}
	}
}

// Report submits a commitment report (non-blocking).
func (g *Guard) Report(report CommitmentReport) {
	select {
	case g.reportCh <- report:
	default:
		g.logger.Warn("guard report channel full, dropping report",
			"listing", report.ListingKey)
	}
}

// StopCh returns the channel for reading stop signals.
func (g *Guard) StopCh() <-chan StopSignal {
	return g.stopCh
}

// RemoveListing cleans up state for a listing no longer watched.
func (g *Guard) RemoveListing(listingKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.commitments, listingKey)
	delete(g.priceAnchors, listingKey)
	g.recalcTotal()
}

// IsStopped returns whether the brake is engaged.
func (g *Guard) IsStopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.stopped {
		return false
	}
	if time.Now().After(g.stoppedUntil) {
		g.stopped = false
		g.logger.Info("guard cooldown expired")
		return false
	}
	return true
}

// RemainingBudget returns how much additional commitment is allowed for the
// given listing. It takes the minimum of:
//   - per-listing headroom: MaxCommitmentPerListing − current commitment
//   - total headroom:       MaxTotalCommitment − total across all listings
//
// Returns zero if either limit is already exceeded (the agent will skip
// automatic bids).
func (g *Guard) RemainingBudget(listingKey string) decimal.Decimal {
	g.mu.RLock()
	defer g.mu.RUnlock()

	current := decimal.Zero
	if report, ok := g.commitments[listingKey]; ok {
		current = report.Commitment
	}

	perListing := decimal.NewFromFloat(g.cfg.MaxCommitmentPerListing).Sub(current)
	total := decimal.NewFromFloat(g.cfg.MaxTotalCommitment).Sub(g.total)

	remaining := perListing
	if total.LessThan(remaining) {
		remaining = total
	}
	if remaining.Sign() < 0 {
		return decimal.Zero
	}
	return remaining
}

// Snapshot returns current aggregate guard metrics for the dashboard.
func (g *Guard) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var pct float64
	if g.cfg.MaxTotalCommitment > 0 {
		f, _ := g.total.Float64()
		pct = f / g.cfg.MaxTotalCommitment * 100
	}

	// The Run-loop ticker clears the flag eventually; until it does, an
	// expired cooldown must not be reported as an engaged brake.
	stopped := g.stopped && time.Now().Before(g.stoppedUntil)

	var reason string
	if stopped {
		reason = "cooldown"
	}

	return Snapshot{
		TotalCommitment:         g.total,
		MaxTotalCommitment:      g.cfg.MaxTotalCommitment,
		CommitmentPct:           pct,
		Stopped:                 stopped,
		StoppedUntil:            g.stoppedUntil,
		StopReason:              reason,
		MaxCommitmentPerListing: g.cfg.MaxCommitmentPerListing,
		ListingsTracked:         len(g.commitments),
	}
}

// Snapshot is the aggregate guard state shown on the dashboard.
type Snapshot struct {
	TotalCommitment         decimal.Decimal
	MaxTotalCommitment      float64
	CommitmentPct           float64
	Stopped                 bool
	StoppedUntil            time.Time
	StopReason              string
	MaxCommitmentPerListing float64
	ListingsTracked         int
}

func (g *Guard) processReport(report CommitmentReport) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.commitments[report.ListingKey] = report
	g.recalcTotal()

	// Check per-listing limit
	if report.Commitment.GreaterThan(decimal.NewFromFloat(g.cfg.MaxCommitmentPerListing)) {
		g.emitStop(report.ListingKey, "per-listing commitment limit breached")
	}

	// Check total limit
	if g.total.GreaterThan(decimal.NewFromFloat(g.cfg.MaxTotalCommitment)) {
		g.emitStop("", "total commitment limit breached")
	}

	g.checkPriceSpike(report)
}

func (g *Guard) recalcTotal() {
	total := decimal.Zero
	for _, report := range g.commitments {
		total = total.Add(report.Commitment)
	}
	g.total = total
}

// checkPriceSpike detects bid wars using a rolling anchor. On each report it
// compares the current price to the anchor set at the start of the window.
// If the anchor is older than PriceSpikeWindowSec, it resets. If the price
// rose more than PriceSpikePct from the anchor, the brake fires for that
// listing.
func (g *Guard) checkPriceSpike(report CommitmentReport) {
	window := time.Duration(g.cfg.PriceSpikeWindowSec) * time.Second

	anchor, ok := g.priceAnchors[report.ListingKey]
	if !ok || report.Timestamp.Sub(anchor.timestamp) > window {
		// No anchor or anchor expired, reset to current price
		g.priceAnchors[report.ListingKey] = priceAnchor{
			price:     report.CurrentPrice,
			timestamp: report.Timestamp,
		}
		return
	}

	if anchor.price.Sign() == 0 {
		return
	}

	change, _ := report.CurrentPrice.Sub(anchor.price).Div(anchor.price).Float64()
	if change > g.cfg.PriceSpikePct {
		g.emitStop(report.ListingKey, fmt.Sprintf(
			"price spike: %.1f%% in %ds",
			change*100, g.cfg.PriceSpikeWindowSec,
		))
	}
}

func (g *Guard) clearExpiredStop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped && time.Now().After(g.stoppedUntil) {
		g.stopped = false
		g.logger.Info("guard cooldown expired")
	}
}

// emitStop engages the brake, starts the cooldown timer, and sends a
// StopSignal to the agent. If the stop channel is full, it drains the stale
// signal first so the latest stop reason is always delivered.
func (g *Guard) emitStop(listingKey, reason string) {
	g.stopped = true
	g.stoppedUntil = time.Now().Add(g.cfg.CooldownAfterStop)

	g.logger.Error("BIDDING STOPPED",
		"listing", listingKey,
		"reason", reason,
		"cooldown_until", g.stoppedUntil,
	)

	sig := StopSignal{ListingKey: listingKey, Reason: reason}
	select {
	case g.stopCh <- sig:
	default:
		select {
		case <-g.stopCh:
		default:
		}
		g.stopCh <- sig
	}
}
