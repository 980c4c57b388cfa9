package asset

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
)

type balanceKey struct {
	account common.Address
	asset   common.Address
}

// Bank is an in-memory Transferer. It stands in for the token contracts of a
// deployment in tests and local tooling.
type Bank struct {
	mu       sync.Mutex
	balances map[balanceKey]decimal.Decimal
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{balances: make(map[balanceKey]decimal.Decimal)}
}

// Credit mints amount of asset into account.
func (b *Bank) Credit(ctx context.Context, account, asset common.Address, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return apperrors.New(apperrors.CodeInvalidInput, "credit amount must be greater than zero")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := balanceKey{account: account, asset: asset}
	b.balances[key] = b.balances[key].Add(amount)
	return nil
}

// Transfer moves amount of asset from one account to another.
func (b *Bank) Transfer(ctx context.Context, from, to, asset common.Address, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return apperrors.New(apperrors.CodeInvalidInput, "transfer amount must be greater than zero")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	fromKey := balanceKey{account: from, asset: asset}
	available := b.balances[fromKey]
	if available.LessThan(amount) {
		return apperrors.WithMetadata(apperrors.CodeInsufficientFunds,
			fmt.Sprintf("balance %s is less than %s", available, amount),
			map[string]string{"Have": available.String(), "Need": amount.String()})
	}
	toKey := balanceKey{account: to, asset: asset}
	b.balances[fromKey] = available.Sub(amount)
	b.balances[toKey] = b.balances[toKey].Add(amount)
	return nil
}

// BalanceOf returns the balance of account in asset.
func (b *Bank) BalanceOf(ctx context.Context, account, asset common.Address) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[balanceKey{account: account, asset: asset}], nil
}

var _ Transferer = (*Bank)(nil)
