// parse.go converts loose wire payloads into typed engine inputs.
//
// The marketplace API sends prices as strings and enums as free text. Every
// field is converted here, at the boundary, and a malformed value fails the
// whole response — a half-parsed ListingPriceState never reaches the engine.
package marketplace

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bidpilot/pkg/types"
)

// parseMoney converts a wire price string to a decimal amount.
func parseMoney(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Decimal{}, fmt.Errorf("%s: empty amount", field)
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: bad amount %q: %w", field, value, err)
	}
	if v.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%s: negative amount %q", field, value)
	}
	return v, nil
}

// parseSchedule maps the wire increment_option to the schedule enum.
func parseSchedule(value string) (types.IncrementSchedule, error) {
	switch value {
	case "simplified":
		return types.ScheduleSimplified, nil
	case "tiered":
		return types.ScheduleTiered, nil
	default:
		return "", fmt.Errorf("increment_option: unknown value %q", value)
	}
}

// parseEndTime parses an optional RFC3339 lot end time. Empty means untimed.
func parseEndTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("lot_end_time: bad timestamp %q: %w", value, err)
	}
	return &t, nil
}

// parseListing converts a single-item listing response. The listing's own
// increment_option is used when present; schedule may also be supplied
// separately for multi-item listings.
func parseListing(resp *types.ListingResponse) (*types.ListingPriceState, error) {
	current, err := parseMoney("current_price", resp.CurrentPrice)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", resp.ID, err)
	}
	starting, err := parseMoney("starting_price", resp.StartingPrice)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", resp.ID, err)
	}
	if current.LessThan(starting) {
		return nil, fmt.Errorf("listing %s: current_price %s below starting_price %s", resp.ID, current, starting)
	}
	schedule, err := parseSchedule(resp.IncrementOption)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", resp.ID, err)
	}
	end, err := parseEndTime(resp.LotEndTime)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", resp.ID, err)
	}

	return &types.ListingPriceState{
		ListingID:     resp.ID,
		Title:         resp.Title,
		Currency:      resp.Currency,
		CurrentPrice:  current,
		StartingPrice: starting,
		Schedule:      schedule,
		LotEndTime:    end,
	}, nil
}

// parseLot converts one lot of a multi-item listing. The schedule comes from
// the listing-level increment-info endpoint, not the lot payload.
func parseLot(listingID, currency string, schedule types.IncrementSchedule, lot *types.LotResponse) (*types.ListingPriceState, error) {
	current, err := parseMoney("current_price", lot.CurrentPrice)
	if err != nil {
		return nil, fmt.Errorf("listing %s lot %d: %w", listingID, lot.LotNumber, err)
	}
	starting, err := parseMoney("starting_price", lot.StartingPrice)
	if err != nil {
		return nil, fmt.Errorf("listing %s lot %d: %w", listingID, lot.LotNumber, err)
	}
	if current.LessThan(starting) {
		return nil, fmt.Errorf("listing %s lot %d: current_price %s below starting_price %s",
			listingID, lot.LotNumber, current, starting)
	}
	end, err := parseEndTime(lot.LotEndTime)
	if err != nil {
		return nil, fmt.Errorf("listing %s lot %d: %w", listingID, lot.LotNumber, err)
	}

	return &types.ListingPriceState{
		ListingID:     listingID,
		LotNumber:     lot.LotNumber,
		Title:         lot.Title,
		Currency:      currency,
		CurrentPrice:  current,
		StartingPrice: starting,
		Schedule:      schedule,
		LotEndTime:    end,
	}, nil
}

// parseEntitlement converts the subscription status payload.
func parseEntitlement(resp *types.SubscriptionStatusResponse) (*types.UserEntitlement, error) {
	var tier types.SubscriptionTier
	switch resp.Tier {
	case "FREE", "free":
		tier = types.TierFree
	case "PREMIUM", "premium":
		tier = types.TierPremium
	case "VIP", "vip":
		tier = types.TierVIP
	default:
		return nil, fmt.Errorf("subscription: unknown tier %q", resp.Tier)
	}

	used := make(map[string]int, len(resp.MonsterBidsUsed))
	for id, n := range resp.MonsterBidsUsed {
		if n < 0 {
			return nil, fmt.Errorf("subscription: negative override count for listing %s", id)
		}
		used[id] = n
	}

	return &types.UserEntitlement{
		Tier:             tier,
		PhoneVerified:    resp.PhoneVerified,
		HasPaymentMethod: resp.HasPaymentMethod,
		OverrideBidsUsed: used,
	}, nil
}

// parseAutoBid converts one auto-bid order payload.
func parseAutoBid(resp *types.AutoBidResponse) (*types.AutoBidOrder, error) {
	max, err := parseMoney("max_bid", resp.MaxBid)
	if err != nil {
		return nil, fmt.Errorf("auto-bid %s: %w", resp.ListingID, err)
	}
	status := types.AutoBidInactive
	if resp.Active {
		status = types.AutoBidActive
	}
	return &types.AutoBidOrder{ListingID: resp.ListingID, MaxBid: max, Status: status}, nil
}

// parseHistory converts a bid-history payload, newest first as served.
func parseHistory(listingID string, resp *types.BidHistoryResponse) ([]types.BidRecord, error) {
	records := make([]types.BidRecord, 0, len(resp.Bids))
	for i, b := range resp.Bids {
		amount, err := parseMoney("amount", b.Amount)
		if err != nil {
			return nil, fmt.Errorf("listing %s bid[%d]: %w", listingID, i, err)
		}
		placedAt, err := time.Parse(time.RFC3339, b.PlacedAt)
		if err != nil {
			return nil, fmt.Errorf("listing %s bid[%d]: bad placed_at %q: %w", listingID, i, b.PlacedAt, err)
		}
		records = append(records, types.BidRecord{
			BidID:    b.BidID,
			BidderID: b.BidderID,
			Amount:   amount,
			PlacedAt: placedAt,
		})
	}
	return records, nil
}
