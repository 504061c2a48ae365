package bidding

import "bidpilot/pkg/types"

// freeTierOverrideLimit caps override bids per listing on the FREE tier.
const freeTierOverrideLimit = 1

// verified reports whether the account may take privileged bid actions at
// all. Override and auto-bid both require a verified phone number and a
// payment method on file, regardless of tier.
func verified(ent types.UserEntitlement) bool {
	return ent.PhoneVerified && ent.HasPaymentMethod
}

// CanUseOverrideBid reports whether the account may place an override bid
// ("monster"/"power" bid — two skins, one entitlement) on the given listing.
// FREE accounts get one per listing; PREMIUM and VIP are unlimited.
func CanUseOverrideBid(ent types.UserEntitlement, listingID string) bool {
	if !verified(ent) {
		return false
	}
	switch ent.Tier {
	case types.TierPremium, types.TierVIP:
		return true
	default:
		return ent.OverrideBidsUsed[listingID] < freeTierOverrideLimit
	}
}

// CanUseAutoBid reports whether the account may activate auto-bid orders.
// FREE accounts cannot; PREMIUM and VIP can.
func CanUseAutoBid(ent types.UserEntitlement) bool {
	if !verified(ent) {
		return false
	}
	return ent.Tier == types.TierPremium || ent.Tier == types.TierVIP
}

// RecordOverrideUsed increments the per-listing override counter. Call it
// exactly once per override bid the backend ACCEPTS — never on local
// validation alone. Kept separate from Validate so the validator stays pure.
func RecordOverrideUsed(ent *types.UserEntitlement, listingID string) {
	if ent.OverrideBidsUsed == nil {
		ent.OverrideBidsUsed = make(map[string]int)
	}
	ent.OverrideBidsUsed[listingID]++
}
