package bidding

import (
	"testing"

	"bidpilot/pkg/types"
)

func TestCanUseOverrideBidFreeTierPerListing(t *testing.T) {
	t.Parallel()

	ent := verifiedFree()

	// First override on listing X is allowed.
	if !CanUseOverrideBid(ent, "x") {
		t.Fatal("first override on free tier should be allowed")
	}

	RecordOverrideUsed(&ent, "x")

	// Second override on the same listing is denied.
	if CanUseOverrideBid(ent, "x") {
		t.Error("second override on same listing should be denied for free tier")
	}

	// A different listing has its own counter.
	if !CanUseOverrideBid(ent, "y") {
		t.Error("override on a different listing should still be allowed")
	}
}

func TestCanUseOverrideBidPaidTiersUnlimited(t *testing.T) {
	t.Parallel()

	for _, tier := range []types.SubscriptionTier{types.TierPremium, types.TierVIP} {
		ent := types.UserEntitlement{Tier: tier, PhoneVerified: true, HasPaymentMethod: true}
		for i := 0; i < 5; i++ {
			if !CanUseOverrideBid(ent, "x") {
				t.Fatalf("%s tier override #%d denied, want unlimited", tier, i+1)
			}
			RecordOverrideUsed(&ent, "x")
		}
	}
}

func TestCanUseOverrideBidRequiresVerification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		phone bool
		pay   bool
	}{
		{"no phone", false, true},
		{"no payment method", true, false},
		{"neither", false, false},
	}

	for _, tt := range tests {
		ent := types.UserEntitlement{Tier: types.TierVIP, PhoneVerified: tt.phone, HasPaymentMethod: tt.pay}
		if CanUseOverrideBid(ent, "x") {
			t.Errorf("%s: override allowed without full verification", tt.name)
		}
		if CanUseAutoBid(ent) {
			t.Errorf("%s: auto-bid allowed without full verification", tt.name)
		}
	}
}

func TestCanUseAutoBidByTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tier types.SubscriptionTier
		want bool
	}{
		{types.TierFree, false},
		{types.TierPremium, true},
		{types.TierVIP, true},
	}

	for _, tt := range tests {
		ent := types.UserEntitlement{Tier: tt.tier, PhoneVerified: true, HasPaymentMethod: true}
		if got := CanUseAutoBid(ent); got != tt.want {
			t.Errorf("CanUseAutoBid(%s) = %v, want %v", tt.tier, got, tt.want)
		}
	}
}

func TestRecordOverrideUsedInitialisesMap(t *testing.T) {
	t.Parallel()

	ent := types.UserEntitlement{Tier: types.TierFree}
	RecordOverrideUsed(&ent, "x")
	RecordOverrideUsed(&ent, "x")

	if got := ent.OverrideBidsUsed["x"]; got != 2 {
		t.Errorf("OverrideBidsUsed[x] = %d, want 2", got)
	}
}
