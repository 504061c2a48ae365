package watch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"bidpilot/internal/config"
	"bidpilot/pkg/types"
)

// ListingRef identifies a watched listing, optionally one lot of a
// multi-item listing.
type ListingRef struct {
	ListingID string
	LotNumber int // 0 for single-item listings
}

// String renders the ref in config form: "listingID" or "listingID/lot".
func (r ListingRef) String() string {
	if r.LotNumber > 0 {
		return r.ListingID + "/" + strconv.Itoa(r.LotNumber)
	}
	return r.ListingID
}

// ParseListingRef parses a config entry of the form "listingID" or
// "listingID/lotNumber".
func ParseListingRef(s string) (ListingRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ListingRef{}, fmt.Errorf("empty listing ref")
	}

	id, lotStr, found := strings.Cut(s, "/")
	if !found {
		return ListingRef{ListingID: id}, nil
	}
	lot, err := strconv.Atoi(lotStr)
	if err != nil || lot < 1 {
		return ListingRef{}, fmt.Errorf("listing ref %q: bad lot number %q", s, lotStr)
	}
	return ListingRef{ListingID: id, LotNumber: lot}, nil
}

// Update is one observed change to a watched listing.
type Update struct {
	Ref          ListingRef
	State        *types.ListingPriceState
	History      []types.BidRecord
	PriceChanged bool // current price moved since the previous poll
	Outbid       bool // account lost the top-bidder spot since the previous poll
	FetchedAt    time.Time
}

// MarketClient is the slice of the marketplace client the watcher needs.
type MarketClient interface {
	GetListing(ctx context.Context, listingID string) (*types.ListingPriceState, error)
	GetLot(ctx context.Context, listingID string, lotNumber int) (*types.ListingPriceState, error)
	GetBidHistory(ctx context.Context, listingID string) ([]types.BidRecord, error)
}

// Watcher polls the marketplace for each watched listing and publishes
// Updates when state changes. The first poll after an update always
// publishes so consumers can seed their view.
type Watcher struct {
	client   MarketClient
	cfg      config.WatchConfig
	bidderID string
	logger   *slog.Logger
	mirrors  map[ListingRef]*Mirror
	updateCh chan Update
}

// NewWatcher builds a watcher for the configured listings.
func NewWatcher(client MarketClient, cfg config.Config, logger *slog.Logger) (*Watcher, error) {
	mirrors := make(map[ListingRef]*Mirror, len(cfg.Watch.Listings))
	for _, entry := range cfg.Watch.Listings {
		ref, err := ParseListingRef(entry)
		if err != nil {
			return nil, fmt.Errorf("watch config: %w", err)
		}
		mirrors[ref] = NewMirror(ref)
	}

	return &Watcher{
		client:   client,
		cfg:      cfg.Watch,
		bidderID: cfg.Account.BidderID,
		logger:   logger.With("component", "watcher"),
		mirrors:  mirrors,
		updateCh: make(chan Update, len(mirrors)+1),
	}, nil
}

// Updates returns the channel the agent reads from.
func (w *Watcher) Updates() <-chan Update {
	return w.updateCh
}

// Mirror returns the mirror for a watched listing, or nil if the listing is
// not watched.
func (w *Watcher) Mirror(ref ListingRef) *Mirror {
	return w.mirrors[ref]
}

// Refs returns the watched listing references.
func (w *Watcher) Refs() []ListingRef {
	refs := make([]ListingRef, 0, len(w.mirrors))
	for ref := range w.mirrors {
		refs = append(refs, ref)
	}
	return refs
}

// Run starts the polling loop. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	// Immediate poll on startup, then on the ticker.
	w.pollAll(ctx)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollAll(ctx)
		}
	}
}

func (w *Watcher) pollAll(ctx context.Context) {
	for ref, mirror := range w.mirrors {
		if err := w.poll(ctx, ref, mirror); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("poll failed", "listing", ref.String(), "error", err)
		}
	}
}

func (w *Watcher) poll(ctx context.Context, ref ListingRef, mirror *Mirror) error {
	var state *types.ListingPriceState
	var err error
	if ref.LotNumber > 0 {
		state, err = w.client.GetLot(ctx, ref.ListingID, ref.LotNumber)
	} else {
		state, err = w.client.GetListing(ctx, ref.ListingID)
	}
	if err != nil {
		return err
	}

	history, err := w.client.GetBidHistory(ctx, ref.ListingID)
	if err != nil {
		return err
	}
	if w.cfg.HistoryDepth > 0 && len(history) > w.cfg.HistoryDepth {
		history = history[:w.cfg.HistoryDepth]
	}

	firstPoll := mirror.LastUpdated().IsZero()
	priceChanged, outbid := mirror.Apply(state, history, w.bidderID)
	if !firstPoll && !priceChanged && !outbid {
		return nil
	}

	update := Update{
		Ref:          ref,
		State:        state,
		History:      history,
		PriceChanged: priceChanged,
		Outbid:       outbid,
		FetchedAt:    time.Now(),
	}

	if priceChanged || outbid {
		w.logger.Info("listing update",
			"listing", ref.String(),
			"price", state.CurrentPrice.String(),
			"price_changed", priceChanged,
			"outbid", outbid,
		)
	}

	// Non-blocking send
	select {
	case w.updateCh <- update:
	default:
		// Replace stale update
		select {
		case <-w.updateCh:
		default:
		}
		w.updateCh <- update
	}
	return nil
}
