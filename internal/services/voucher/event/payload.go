package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// VendorProfileCreatedPayload is the payload of TypeVendorProfileCreated.
type VendorProfileCreatedPayload struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Alias   string `json:"alias,omitempty"`
}

// VendorProfileUpdatedPayload is the payload of TypeVendorProfileUpdated.
type VendorProfileUpdatedPayload struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	ContentRef string `json:"content_ref,omitempty"`
}

// VendorVerifiedPayload is the payload of TypeVendorVerified.
type VendorVerifiedPayload struct {
	Address string `json:"address"`
}

// VendorRatedPayload is the payload of TypeVendorRated.
type VendorRatedPayload struct {
	TransactionID uint64 `json:"transaction_id"`
	Vendor        string `json:"vendor"`
	Rater         string `json:"rater"`
	Score         int    `json:"score"`
}

// AliasRegisteredPayload is the payload of TypeAliasRegistered.
type AliasRegisteredPayload struct {
	Address string `json:"address"`
	Alias   string `json:"alias"`
}

// BuyerProfileCreatedPayload is the payload of TypeBuyerProfileCreated.
type BuyerProfileCreatedPayload struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// BeneficiaryProfileCreatedPayload is the payload of TypeBeneficiaryProfileCreated.
type BeneficiaryProfileCreatedPayload struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// PlateCreatedPayload is the payload of TypePlateCreated.
type PlateCreatedPayload struct {
	Registry     string    `json:"registry"`
	Vendor       string    `json:"vendor"`
	PlateID      uint64    `json:"plate_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ContentRef   string    `json:"content_ref,omitempty"`
	MaxSupply    int64     `json:"max_supply"`
	ExpiresAt    time.Time `json:"expires_at"`
	FirstTokenID uint64    `json:"first_token_id"`
}

// VoucherPurchasedPayload is the payload of TypeVoucherPurchased.
type VoucherPurchasedPayload struct {
	TransactionID uint64 `json:"transaction_id"`
	Registry      string `json:"registry"`
	TokenID       uint64 `json:"token_id"`
	PlateID       uint64 `json:"plate_id"`
	Buyer         string `json:"buyer"`
	Vendor        string `json:"vendor"`
	Amount        string `json:"amount"`
	Asset         string `json:"asset"`
}

// VoucherClaimedPayload is the payload of TypeVoucherClaimed.
type VoucherClaimedPayload struct {
	TransactionID uint64 `json:"transaction_id"`
	Beneficiary   string `json:"beneficiary"`
}

// VoucherRedeemedPayload is the payload of TypeVoucherRedeemed.
type VoucherRedeemedPayload struct {
	TransactionID uint64 `json:"transaction_id"`
	Registry      string `json:"registry"`
	TokenID       uint64 `json:"token_id"`
	Vendor        string `json:"vendor"`
	VendorShare   string `json:"vendor_share"`
	Fee           string `json:"fee"`
	Asset         string `json:"asset"`
	// Direct is set when the voucher was redeemed without a prior claim.
	Direct bool `json:"direct,omitempty"`
}

// VoucherRefundedPayload is the payload of TypeVoucherRefunded.
type VoucherRefundedPayload struct {
	TransactionID uint64 `json:"transaction_id"`
	Buyer         string `json:"buyer"`
	Amount        string `json:"amount"`
	Asset         string `json:"asset"`
}

// PlatformFeeSetPayload is the payload of TypePlatformFeeSet.
type PlatformFeeSetPayload struct {
	Percent string `json:"percent"`
}

// PlatformRegistrySetPayload is the payload of TypePlatformRegistrySet.
type PlatformRegistrySetPayload struct {
	Registry string `json:"registry"`
}

// PlatformAssetAddedPayload is the payload of TypePlatformAssetAdded.
type PlatformAssetAddedPayload struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// Decode unmarshals an event payload into target.
func Decode(evt Event, target any) error {
	if err := json.Unmarshal(evt.PayloadJSON, target); err != nil {
		return fmt.Errorf("decode %s payload (seq %d): %w", evt.Type, evt.Seq, err)
	}
	return nil
}
