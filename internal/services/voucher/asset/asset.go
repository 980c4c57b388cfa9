// Package asset defines the payment assets accepted by the marketplace and
// the asset-transfer primitive the ledger uses for escrow custody.
package asset

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
)

// ErrInsufficientFunds indicates the source account cannot cover a transfer.
var ErrInsufficientFunds = apperrors.New(apperrors.CodeInsufficientFunds, "insufficient funds")

// Asset describes one fungible payment token.
type Asset struct {
	Address  common.Address
	Symbol   string
	Decimals int32
}

// Transferer moves fungible balances between accounts. Implementations must
// return ErrInsufficientFunds (matched with errors.Is) when the source
// balance is short and must leave balances untouched on any failure.
type Transferer interface {
	Transfer(ctx context.Context, from, to, asset common.Address, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, account, asset common.Address) (decimal.Decimal, error)
}

// Celo mainnet stablecoins accepted by default.
var (
	CeloUSD  = Asset{Address: common.HexToAddress("0x765DE816845861e75A25fCA122bb6898B8B1282a"), Symbol: "cUSD", Decimals: 18}
	CeloUSDC = Asset{Address: common.HexToAddress("0xcebA9300f2b948710d2653dD7B07f33A8B32118C"), Symbol: "USDC", Decimals: 6}
	CeloUSDT = Asset{Address: common.HexToAddress("0x48065fbBE25f71C9282ddf5e1cD6D6A887483D5e"), Symbol: "USDT", Decimals: 6}
)

// DefaultAssets returns the assets accepted when none are configured.
func DefaultAssets() []Asset {
	return []Asset{CeloUSD, CeloUSDC, CeloUSDT}
}

// Validate checks the asset descriptor itself.
func (a Asset) Validate() error {
	if a.Address == (common.Address{}) {
		return apperrors.New(apperrors.CodeInvalidInput, "asset address is required")
	}
	if strings.TrimSpace(a.Symbol) == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "asset symbol is required")
	}
	if a.Decimals < 0 || a.Decimals > 36 {
		return apperrors.New(apperrors.CodeInvalidInput, "asset decimals must be in range 0..36")
	}
	return nil
}

// ValidateAmount reports whether amount is a positive quantity expressible
// in the asset's smallest unit.
func (a Asset) ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.WithMetadata(apperrors.CodeInvalidInput,
			fmt.Sprintf("amount %s must be greater than zero", amount),
			map[string]string{"Amount": amount.String()})
	}
	if !amount.Equal(amount.Truncate(a.Decimals)) {
		return apperrors.WithMetadata(apperrors.CodeInvalidInput,
			fmt.Sprintf("amount %s exceeds %d decimals of %s", amount, a.Decimals, a.Symbol),
			map[string]string{"Amount": amount.String(), "Asset": a.Symbol})
	}
	return nil
}

// Resolve finds an asset by symbol (case-insensitive) or hex address.
func Resolve(assets []Asset, ref string) (Asset, bool) {
	ref = strings.TrimSpace(ref)
	if common.IsHexAddress(ref) {
		addr := common.HexToAddress(ref)
		for _, a := range assets {
			if a.Address == addr {
				return a, true
			}
		}
		return Asset{}, false
	}
	for _, a := range assets {
		if strings.EqualFold(a.Symbol, ref) {
			return a, true
		}
	}
	return Asset{}, false
}
