package ledger

import (
	"fmt"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
)

var (
	ErrCallerRequired         = apperrors.New(apperrors.CodeCallerRequired, "caller address is required")
	ErrNotAVendor             = apperrors.New(apperrors.CodeNotAVendor, "caller has no vendor profile")
	ErrNotABuyer              = apperrors.New(apperrors.CodeNotABuyer, "caller has no buyer profile")
	ErrNotABeneficiary        = apperrors.New(apperrors.CodeNotABeneficiary, "caller has no beneficiary profile")
	ErrNotOwner               = apperrors.New(apperrors.CodeNotOwner, "caller is not allowed to perform this action")
	ErrNotVendorOfTransaction = apperrors.New(apperrors.CodeNotVendorOfTransaction, "caller is not the vendor of this transaction")
	ErrTransactionNotFound    = apperrors.New(apperrors.CodeNotFound, "transaction not found")
	ErrProfileNotFound        = apperrors.New(apperrors.CodeNotFound, "profile not found")
	ErrVoucherExpired         = apperrors.New(apperrors.CodeVoucherExpired, "voucher has expired")
	ErrVoucherNotExpired      = apperrors.New(apperrors.CodeVoucherNotExpired, "voucher has not expired yet")
	ErrVoucherUnavailable     = apperrors.New(apperrors.CodeVoucherUnavailable, "voucher is not available")
	ErrAlreadyRedeemed        = apperrors.New(apperrors.CodeAlreadyRedeemed, "voucher already redeemed")
	ErrAlreadyRated           = apperrors.New(apperrors.CodeAlreadyRated, "transaction already rated")
	ErrInvalidRating          = apperrors.New(apperrors.CodeInvalidRating, "rating must be between 1 and 5")
	ErrInvalidRegistry        = apperrors.New(apperrors.CodeInvalidRegistry, "registry address is required")
	ErrEmptyName              = apperrors.New(apperrors.CodeInvalidInput, "name is required")
	ErrInvalidAlias           = apperrors.New(apperrors.CodeInvalidInput, "alias must be a lowercase .eth name")
	ErrNegativeFee            = apperrors.New(apperrors.CodeInvalidInput, "platform fee cannot be negative")
)

func alreadyRegistered(role string) error {
	return apperrors.WithMetadata(apperrors.CodeAlreadyRegistered,
		"already registered as "+role,
		map[string]string{"Role": role})
}

func invalidState(tx *Transaction, operation string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidState,
		fmt.Sprintf("transaction %d is %s and cannot be %s", tx.ID, tx.Status, operation),
		map[string]string{"Status": tx.Status.String(), "Operation": operation})
}

func feeTooHigh() error {
	return apperrors.WithMetadata(apperrors.CodeFeeTooHigh,
		fmt.Sprintf("fee too high (max %d%%)", maxFeePercent),
		map[string]string{"Max": fmt.Sprint(maxFeePercent)})
}

func unsupportedAsset(ref string) error {
	return apperrors.WithMetadata(apperrors.CodeUnsupportedAsset,
		"unsupported payment asset "+ref,
		map[string]string{"Asset": ref})
}
