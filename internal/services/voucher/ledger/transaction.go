package ledger

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Status describes where a voucher transaction is in its lifecycle.
type Status int

const (
	// StatusUnspecified represents an invalid status value.
	StatusUnspecified Status = iota
	// StatusPending means the voucher was bought and its funds are escrowed.
	StatusPending
	// StatusClaimed means a beneficiary holds the voucher.
	StatusClaimed
	// StatusRedeemed means the vendor served the meal and was paid.
	StatusRedeemed
	// StatusRefunded means the voucher expired and the buyer got the escrow back.
	StatusRefunded
)

// String returns a stable label for a status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusClaimed:
		return "claimed"
	case StatusRedeemed:
		return "redeemed"
	case StatusRefunded:
		return "refunded"
	default:
		return "unspecified"
	}
}

// ParseStatus resolves a status label.
func ParseStatus(label string) (Status, bool) {
	for _, s := range []Status{StatusPending, StatusClaimed, StatusRedeemed, StatusRefunded} {
		if s.String() == label {
			return s, true
		}
	}
	return StatusUnspecified, false
}

// IsSettled reports whether the escrow of a transaction has been released.
func (s Status) IsSettled() bool {
	return s == StatusRedeemed || s == StatusRefunded
}

// isTransitionAllowed reports whether a status change is permitted. Direct
// redemption from pending is gated separately by policy.
func isTransitionAllowed(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusClaimed || to == StatusRedeemed || to == StatusRefunded
	case StatusClaimed:
		return to == StatusRedeemed || to == StatusRefunded
	default:
		return false
	}
}

// Transaction records one voucher purchase and what happened to it.
type Transaction struct {
	ID          uint64
	Buyer       common.Address
	Vendor      common.Address
	Beneficiary common.Address
	Amount      decimal.Decimal
	Asset       common.Address
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	TokenID     uint64
	PlateID     uint64
	Registry    common.Address
	// Escrow is the amount still held for this transaction.
	Escrow decimal.Decimal
	Rated  bool
}

// TransactionFilter narrows Transactions. Zero fields match everything.
type TransactionFilter struct {
	Buyer       common.Address
	Vendor      common.Address
	Beneficiary common.Address
	Status      Status
}

func (f TransactionFilter) matches(tx *Transaction) bool {
	var zero common.Address
	switch {
	case f.Buyer != zero && tx.Buyer != f.Buyer:
		return false
	case f.Vendor != zero && tx.Vendor != f.Vendor:
		return false
	case f.Beneficiary != zero && tx.Beneficiary != f.Beneficiary:
		return false
	case f.Status != StatusUnspecified && tx.Status != f.Status:
		return false
	}
	return true
}

// SplitFee divides a payment into the vendor share and the platform fee.
// The fee is truncated to the asset's smallest unit, so the two parts always
// add back up to amount.
func SplitFee(amount, feePercent decimal.Decimal, decimals int32) (vendorShare, fee decimal.Decimal) {
	fee = amount.Mul(feePercent).Shift(-2).Truncate(decimals)
	return amount.Sub(fee), fee
}
