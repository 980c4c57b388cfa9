package i18n

var esESCatalog = &Catalog{
	locale: "es-ES",
	messages: map[Code]string{
		CodeUnknown: "Algo salió mal",

		CodeInvalidInput:     "La solicitud contiene datos inválidos",
		CodeInvalidExpiry:    "La expiración debe ser en el futuro",
		CodeInvalidSupply:    "La cantidad debe ser mayor que cero",
		CodeInvalidRating:    "La calificación debe estar entre 1 y 5",
		CodeUnsupportedAsset: "El activo de pago {{.Asset}} no está soportado",
		CodeFeeTooHigh:       "Comisión demasiado alta (máximo {{.Max}}%)",
		CodeInvalidRegistry:  "Registro de platos inválido",

		CodeCallerRequired:         "Se requiere una cuenta conectada",
		CodeNotAVendor:             "Solo los vendedores pueden realizar esta acción",
		CodeNotABuyer:              "Solo los compradores registrados pueden comprar vales",
		CodeNotABeneficiary:        "Solo los beneficiarios registrados pueden reclamar vales",
		CodeNotOwner:               "No eres el dueño del vale",
		CodeNotVendorOfTransaction: "Solo el vendedor de este vale puede confirmarlo",

		CodeAlreadyRegistered: "Ya estás registrado como {{.Role}}",
		CodeAlreadyRated:      "Este vale ya fue calificado",

		CodeInvalidState:       "El vale está {{.Status}} y no se puede {{.Operation}}",
		CodeAlreadyRedeemed:    "El vale ya fue canjeado",
		CodeVoucherExpired:     "El vale ha expirado",
		CodeVoucherNotExpired:  "El vale aún no ha expirado",
		CodeVoucherUnavailable: "El vale ya no está disponible",

		CodeInsufficientFunds: "Fondos insuficientes",

		CodeNotFound: "El recurso solicitado no existe",
	},
}
