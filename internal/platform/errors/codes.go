// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeInvalidExpiry    Code = "INVALID_EXPIRY"
	CodeInvalidSupply    Code = "INVALID_SUPPLY"
	CodeInvalidRating    Code = "INVALID_RATING"
	CodeUnsupportedAsset Code = "UNSUPPORTED_ASSET"
	CodeFeeTooHigh       Code = "FEE_TOO_HIGH"
	CodeInvalidRegistry  Code = "INVALID_REGISTRY"

	// Identity and authorization errors
	CodeCallerRequired         Code = "CALLER_REQUIRED"
	CodeNotAVendor             Code = "NOT_A_VENDOR"
	CodeNotABuyer              Code = "NOT_A_BUYER"
	CodeNotABeneficiary        Code = "NOT_A_BENEFICIARY"
	CodeNotOwner               Code = "NOT_OWNER"
	CodeNotVendorOfTransaction Code = "NOT_VENDOR_OF_TRANSACTION"

	// Registration errors
	CodeAlreadyRegistered Code = "ALREADY_REGISTERED"
	CodeAlreadyRated      Code = "ALREADY_RATED"

	// Voucher lifecycle errors
	CodeInvalidState       Code = "INVALID_STATE"
	CodeAlreadyRedeemed    Code = "ALREADY_REDEEMED"
	CodeVoucherExpired     Code = "VOUCHER_EXPIRED"
	CodeVoucherNotExpired  Code = "VOUCHER_NOT_EXPIRED"
	CodeVoucherUnavailable Code = "VOUCHER_UNAVAILABLE"

	// Funds errors
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidInput,
		CodeInvalidExpiry,
		CodeInvalidSupply,
		CodeInvalidRating,
		CodeUnsupportedAsset,
		CodeFeeTooHigh,
		CodeInvalidRegistry:
		return codes.InvalidArgument

	// Unauthenticated - no caller identity supplied
	case CodeCallerRequired:
		return codes.Unauthenticated

	// PermissionDenied - caller lacks the role for the operation
	case CodeNotAVendor,
		CodeNotABuyer,
		CodeNotABeneficiary,
		CodeNotOwner,
		CodeNotVendorOfTransaction:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeInvalidState,
		CodeAlreadyRedeemed,
		CodeVoucherExpired,
		CodeVoucherNotExpired,
		CodeVoucherUnavailable,
		CodeInsufficientFunds:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeAlreadyRegistered,
		CodeAlreadyRated:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}
