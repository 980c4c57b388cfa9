package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnknown                = "UNKNOWN"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidExpiry          = "INVALID_EXPIRY"
	CodeInvalidSupply          = "INVALID_SUPPLY"
	CodeInvalidRating          = "INVALID_RATING"
	CodeUnsupportedAsset       = "UNSUPPORTED_ASSET"
	CodeFeeTooHigh             = "FEE_TOO_HIGH"
	CodeInvalidRegistry        = "INVALID_REGISTRY"
	CodeCallerRequired         = "CALLER_REQUIRED"
	CodeNotAVendor             = "NOT_A_VENDOR"
	CodeNotABuyer              = "NOT_A_BUYER"
	CodeNotABeneficiary        = "NOT_A_BENEFICIARY"
	CodeNotOwner               = "NOT_OWNER"
	CodeNotVendorOfTransaction = "NOT_VENDOR_OF_TRANSACTION"
	CodeAlreadyRegistered      = "ALREADY_REGISTERED"
	CodeAlreadyRated           = "ALREADY_RATED"
	CodeInvalidState           = "INVALID_STATE"
	CodeAlreadyRedeemed        = "ALREADY_REDEEMED"
	CodeVoucherExpired         = "VOUCHER_EXPIRED"
	CodeVoucherNotExpired      = "VOUCHER_NOT_EXPIRED"
	CodeVoucherUnavailable     = "VOUCHER_UNAVAILABLE"
	CodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	CodeNotFound               = "NOT_FOUND"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		CodeUnknown: "Something went wrong",

		// Input errors
		CodeInvalidInput:     "The request contains invalid data",
		CodeInvalidExpiry:    "Expiration must be in the future",
		CodeInvalidSupply:    "Supply must be greater than zero",
		CodeInvalidRating:    "Rating must be between 1 and 5",
		CodeUnsupportedAsset: "Payment asset {{.Asset}} is not supported",
		CodeFeeTooHigh:       "Fee too high (max {{.Max}}%)",
		CodeInvalidRegistry:  "Invalid plate registry",

		// Identity and authorization errors
		CodeCallerRequired:         "A connected account is required",
		CodeNotAVendor:             "Only vendors can perform this action",
		CodeNotABuyer:              "Only registered buyers can purchase vouchers",
		CodeNotABeneficiary:        "Only registered beneficiaries can claim vouchers",
		CodeNotOwner:               "Not voucher owner",
		CodeNotVendorOfTransaction: "Only the vendor of this voucher can confirm it",

		// Registration errors
		CodeAlreadyRegistered: "Already registered as {{.Role}}",
		CodeAlreadyRated:      "This voucher has already been rated",

		// Voucher lifecycle errors
		CodeInvalidState:       "Voucher is {{.Status}} and cannot be {{.Operation}}",
		CodeAlreadyRedeemed:    "Voucher already redeemed",
		CodeVoucherExpired:     "Voucher has expired",
		CodeVoucherNotExpired:  "Voucher has not expired yet",
		CodeVoucherUnavailable: "Voucher is no longer available",

		// Funds errors
		CodeInsufficientFunds: "Insufficient funds",

		// Storage errors
		CodeNotFound: "The requested resource was not found",
	},
}
