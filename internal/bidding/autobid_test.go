package bidding

import (
	"errors"
	"testing"

	"bidpilot/pkg/types"
)

func premiumEnt() types.UserEntitlement {
	return types.UserEntitlement{Tier: types.TierPremium, PhoneVerified: true, HasPaymentMethod: true}
}

func TestNextCounterBidWithinMax(t *testing.T) {
	t.Parallel()

	order := types.AutoBidOrder{ListingID: "lst-1", MaxBid: dec("150"), Status: types.AutoBidActive}
	state := openListing(types.ScheduleSimplified, "95")

	cb := NextCounterBid(order, state)
	if cb.WillExceedMax {
		t.Fatal("counter-bid of 96 should be within a 150 ceiling")
	}
	if !cb.BidAmount.Equal(dec("96")) {
		t.Errorf("BidAmount = %s, want 96", cb.BidAmount)
	}
}

func TestNextCounterBidAtExactCeiling(t *testing.T) {
	t.Parallel()

	// Candidate 96 equals the ceiling: still placeable, not exceeded.
	order := types.AutoBidOrder{ListingID: "lst-1", MaxBid: dec("96"), Status: types.AutoBidActive}
	cb := NextCounterBid(order, openListing(types.ScheduleSimplified, "95"))
	if cb.WillExceedMax {
		t.Fatal("candidate equal to max should not exceed it")
	}
	if !cb.BidAmount.Equal(dec("96")) {
		t.Errorf("BidAmount = %s, want 96", cb.BidAmount)
	}
}

func TestNextCounterBidExceedsMax(t *testing.T) {
	t.Parallel()

	// TIERED at 4990: increment 50 → candidate 5040 > 5000 ceiling.
	order := types.AutoBidOrder{ListingID: "lst-1", MaxBid: dec("5000"), Status: types.AutoBidActive}
	cb := NextCounterBid(order, openListing(types.ScheduleTiered, "4990"))
	if !cb.WillExceedMax {
		t.Fatal("candidate 5040 should exceed a 5000 ceiling")
	}
	if !cb.BidAmount.IsZero() {
		t.Errorf("BidAmount = %s, want none proposed beyond max", cb.BidAmount)
	}
}

func TestActivateAutoBid(t *testing.T) {
	t.Parallel()

	order := types.AutoBidOrder{ListingID: "lst-1", MaxBid: dec("100"), Status: types.AutoBidInactive}
	if err := ActivateAutoBid(&order, premiumEnt()); err != nil {
		t.Fatalf("ActivateAutoBid: %v", err)
	}
	if order.Status != types.AutoBidActive {
		t.Errorf("status = %s, want %s", order.Status, types.AutoBidActive)
	}

	// Activating an active order is invalid.
	if err := ActivateAutoBid(&order, premiumEnt()); !errors.Is(err, ErrAutoBidAlreadyActive) {
		t.Errorf("err = %v, want ErrAutoBidAlreadyActive", err)
	}
}

func TestActivateAutoBidDeniedForFreeTier(t *testing.T) {
	t.Parallel()

	order := types.AutoBidOrder{ListingID: "lst-1", MaxBid: dec("100"), Status: types.AutoBidInactive}
	err := ActivateAutoBid(&order, verifiedFree())
	if !errors.Is(err, ErrAutoBidNotPermitted) {
		t.Fatalf("err = %v, want ErrAutoBidNotPermitted", err)
	}
	if order.Status != types.AutoBidInactive {
		t.Errorf("status changed on denied activation: %s", order.Status)
	}
}

func TestDeactivateAutoBid(t *testing.T) {
	t.Parallel()

	order := types.AutoBidOrder{ListingID: "lst-1", MaxBid: dec("100"), Status: types.AutoBidActive}
	if err := DeactivateAutoBid(&order); err != nil {
		t.Fatalf("DeactivateAutoBid: %v", err)
	}
	if order.Status != types.AutoBidInactive {
		t.Errorf("status = %s, want %s", order.Status, types.AutoBidInactive)
	}

	if err := DeactivateAutoBid(&order); !errors.Is(err, ErrAutoBidNotActive) {
		t.Errorf("err = %v, want ErrAutoBidNotActive", err)
	}
}
