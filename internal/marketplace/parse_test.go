package marketplace

import (
	"strings"
	"testing"

	"bidpilot/pkg/types"
)

func TestParseListing(t *testing.T) {
	t.Parallel()

	resp := &types.ListingResponse{
		ID:              "lst-1",
		Title:           "Art Deco clock",
		Currency:        "EUR",
		CurrentPrice:    "150.00",
		StartingPrice:   "50",
		IncrementOption: "tiered",
		LotEndTime:      "2026-09-01T18:00:00Z",
	}

	state, err := parseListing(resp)
	if err != nil {
		t.Fatalf("parseListing: %v", err)
	}
	if state.ListingID != "lst-1" {
		t.Errorf("ListingID = %q", state.ListingID)
	}
	if !state.CurrentPrice.Equal(mustDec("150")) {
		t.Errorf("CurrentPrice = %s, want 150", state.CurrentPrice)
	}
	if state.Schedule != types.ScheduleTiered {
		t.Errorf("Schedule = %s, want tiered", state.Schedule)
	}
	if state.LotEndTime == nil {
		t.Error("LotEndTime = nil, want parsed timestamp")
	}
}

func TestParseListingRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	base := func() *types.ListingResponse {
		return &types.ListingResponse{
			ID: "lst-1", Currency: "EUR",
			CurrentPrice: "150", StartingPrice: "50", IncrementOption: "simplified",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*types.ListingResponse)
		wantSub string
	}{
		{"empty price", func(r *types.ListingResponse) { r.CurrentPrice = "" }, "empty amount"},
		{"garbage price", func(r *types.ListingResponse) { r.CurrentPrice = "lots" }, "bad amount"},
		{"negative price", func(r *types.ListingResponse) { r.CurrentPrice = "-5" }, "negative amount"},
		{"unknown schedule", func(r *types.ListingResponse) { r.IncrementOption = "dynamic" }, "unknown value"},
		{"bad end time", func(r *types.ListingResponse) { r.LotEndTime = "tomorrow" }, "bad timestamp"},
		{"price below start", func(r *types.ListingResponse) { r.CurrentPrice = "10" }, "below starting_price"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := base()
			tt.mutate(resp)
			_, err := parseListing(resp)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestParseLotUsesListingSchedule(t *testing.T) {
	t.Parallel()

	lot := &types.LotResponse{LotNumber: 3, Title: "Lot 3", CurrentPrice: "95", StartingPrice: "10"}
	state, err := parseLot("lst-9", "USD", types.ScheduleSimplified, lot)
	if err != nil {
		t.Fatalf("parseLot: %v", err)
	}
	if state.LotNumber != 3 {
		t.Errorf("LotNumber = %d, want 3", state.LotNumber)
	}
	if state.Schedule != types.ScheduleSimplified {
		t.Errorf("Schedule = %s, want simplified", state.Schedule)
	}
	if state.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", state.Currency)
	}
}

func TestParseEntitlement(t *testing.T) {
	t.Parallel()

	resp := &types.SubscriptionStatusResponse{
		Tier:             "premium",
		PhoneVerified:    true,
		HasPaymentMethod: true,
		MonsterBidsUsed:  map[string]int{"lst-1": 2},
	}

	ent, err := parseEntitlement(resp)
	if err != nil {
		t.Fatalf("parseEntitlement: %v", err)
	}
	if ent.Tier != types.TierPremium {
		t.Errorf("Tier = %s, want PREMIUM", ent.Tier)
	}
	if ent.OverrideBidsUsed["lst-1"] != 2 {
		t.Errorf("OverrideBidsUsed[lst-1] = %d, want 2", ent.OverrideBidsUsed["lst-1"])
	}
}

func TestParseEntitlementUnknownTier(t *testing.T) {
	t.Parallel()

	_, err := parseEntitlement(&types.SubscriptionStatusResponse{Tier: "PLATINUM"})
	if err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestParseHistory(t *testing.T) {
	t.Parallel()

	resp := &types.BidHistoryResponse{Bids: []types.BidHistoryEntry{
		{BidID: "b2", BidderID: "alice", Amount: "110", PlacedAt: "2026-08-30T10:01:00Z"},
		{BidID: "b1", BidderID: "bob", Amount: "100", PlacedAt: "2026-08-30T10:00:00Z"},
	}}

	records, err := parseHistory("lst-1", resp)
	if err != nil {
		t.Fatalf("parseHistory: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].BidderID != "alice" || !records[0].Amount.Equal(mustDec("110")) {
		t.Errorf("records[0] = %+v", records[0])
	}
}
