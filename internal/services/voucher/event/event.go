// Package event defines the journal entries recorded for every state change
// of the voucher engine.
package event

import (
	"strings"
	"time"
)

// Type identifies the type of a journal event.
type Type string

// Profile events.
const (
	TypeVendorProfileCreated      Type = "profile.vendor_created"
	TypeVendorProfileUpdated      Type = "profile.vendor_updated"
	TypeVendorVerified            Type = "profile.vendor_verified"
	TypeVendorRated               Type = "profile.vendor_rated"
	TypeAliasRegistered           Type = "profile.alias_registered"
	TypeBuyerProfileCreated       Type = "profile.buyer_created"
	TypeBeneficiaryProfileCreated Type = "profile.beneficiary_created"
)

// Plate and voucher lifecycle events.
const (
	// TypePlateCreated records a plate listing and the mint of its vouchers.
	TypePlateCreated Type = "plate.created"
	// TypeVoucherPurchased records a purchase and the escrow deposit.
	TypeVoucherPurchased Type = "voucher.purchased"
	// TypeVoucherClaimed records a beneficiary claiming a voucher.
	TypeVoucherClaimed Type = "voucher.claimed"
	// TypeVoucherRedeemed records redemption and the escrow settlement.
	TypeVoucherRedeemed Type = "voucher.redeemed"
	// TypeVoucherRefunded records escrow returned to the buyer after expiry.
	TypeVoucherRefunded Type = "voucher.refunded"
)

// Platform administration events.
const (
	TypePlatformFeeSet      Type = "platform.fee_set"
	TypePlatformRegistrySet Type = "platform.registry_set"
	TypePlatformAssetAdded  Type = "platform.asset_added"
)

// Entity types referenced by events.
const (
	EntityProfile     = "profile"
	EntityPlate       = "plate"
	EntityTransaction = "transaction"
	EntityPlatform    = "platform"
)

// Event is an immutable entry of the journal.
type Event struct {
	// ID is a random identifier assigned by the writer.
	ID string
	// Seq is the journal position (starts at 1). Assigned by storage on append.
	Seq uint64
	// Hash is the content hash of the event. Assigned by storage on append.
	Hash string
	// PrevHash is the chain hash of the previous event, empty for the first.
	PrevHash string
	// ChainHash links Hash to PrevHash. Assigned by storage on append.
	ChainHash string
	Timestamp time.Time
	Type      Type
	// ActorID is the hex address of the caller that caused the event.
	ActorID     string
	EntityType  string
	EntityID    string
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the prefix of the event type (e.g. "voucher", "plate").
func (t Type) Domain() string {
	if i := strings.IndexByte(string(t), '.'); i >= 0 {
		return string(t[:i])
	}
	return string(t)
}
