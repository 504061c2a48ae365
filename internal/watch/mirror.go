// Package watch polls the marketplace for listing state and surfaces changes.
//
// Mirror keeps a concurrency-safe local copy of one listing's price state and
// recent bid history, updated from REST snapshots. The Watcher refetches each
// watched listing on a fixed interval and publishes an Update whenever the
// mirrored state changes. The agent reads Updates from the Updates() channel
// and decides whether to react.
package watch

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bidpilot/pkg/types"
)

// Mirror maintains a local copy of one listing's state between polls.
// It is concurrency-safe: the watcher writes, the agent and dashboard read.
type Mirror struct {
	mu      sync.RWMutex
	ref     ListingRef
	state   *types.ListingPriceState
	history []types.BidRecord // newest first
	updated time.Time         // last time a snapshot arrived
}

// NewMirror creates an empty mirror for a listing.
func NewMirror(ref ListingRef) *Mirror {
	return &Mirror{ref: ref}
}

// Ref returns the listing reference this mirror tracks.
func (m *Mirror) Ref() ListingRef {
	return m.ref
}

// Apply replaces the mirrored state and history with a fresh snapshot.
// It reports whether the current price moved and whether the account's
// standing as top bidder was lost since the previous snapshot.
func (m *Mirror) Apply(state *types.ListingPriceState, history []types.BidRecord, bidderID string) (priceChanged, outbid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != nil {
		priceChanged = !m.state.CurrentPrice.Equal(state.CurrentPrice)
		wasTop := len(m.history) > 0 && m.history[0].BidderID == bidderID
		isTop := len(history) > 0 && history[0].BidderID == bidderID
		outbid = wasTop && !isTop
	}

	m.state = state
	m.history = history
	m.updated = time.Now()
	return priceChanged, outbid
}

// State returns a copy of the mirrored price state, or nil before the first
// snapshot.
func (m *Mirror) State() *types.ListingPriceState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state == nil {
		return nil
	}
	cp := *m.state
	return &cp
}

// History returns a copy of the mirrored bid history, newest first.
func (m *Mirror) History() []types.BidRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.BidRecord, len(m.history))
	copy(out, m.history)
	return out
}

// CurrentPrice returns the mirrored current price. Returns false before the
// first snapshot.
func (m *Mirror) CurrentPrice() (decimal.Decimal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state == nil {
		return decimal.Zero, false
	}
	return m.state.CurrentPrice, true
}

// IsStale reports whether the mirror has not been refreshed within maxAge.
func (m *Mirror) IsStale(maxAge time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.updated.IsZero() {
		return true
	}
	return time.Since(m.updated) > maxAge
}

// LastUpdated returns the timestamp of the last applied snapshot.
func (m *Mirror) LastUpdated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}
