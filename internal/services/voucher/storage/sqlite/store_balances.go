package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/storage"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Credit adds amount of asset to account.
func (s *Store) Credit(ctx context.Context, account, asset common.Address, amount decimal.Decimal) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return apperrors.New(apperrors.CodeInvalidInput, "credit amount must be greater than zero")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credit: %w", err)
	}
	defer tx.Rollback()

	current, err := balanceOf(ctx, tx, account, asset)
	if err != nil {
		return err
	}
	if err := s.putBalance(ctx, tx, account, asset, current.Add(amount)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credit: %w", err)
	}
	return nil
}

// Transfer moves amount of asset between accounts in one SQL transaction.
func (s *Store) Transfer(ctx context.Context, from, to, asset common.Address, amount decimal.Decimal) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return apperrors.New(apperrors.CodeInvalidInput, "transfer amount must be greater than zero")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback()

	if err := s.transferTx(ctx, tx, storage.Transfer{From: from, To: to, Asset: asset, Amount: amount}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}

func (s *Store) transferTx(ctx context.Context, tx *sql.Tx, t storage.Transfer) error {
	available, err := balanceOf(ctx, tx, t.From, t.Asset)
	if err != nil {
		return err
	}
	if available.LessThan(t.Amount) {
		return apperrors.WithMetadata(apperrors.CodeInsufficientFunds,
			fmt.Sprintf("balance %s is less than %s", available, t.Amount),
			map[string]string{"Have": available.String(), "Need": t.Amount.String()})
	}
	if t.From == t.To {
		return nil
	}
	received, err := balanceOf(ctx, tx, t.To, t.Asset)
	if err != nil {
		return err
	}
	if err := s.putBalance(ctx, tx, t.From, t.Asset, available.Sub(t.Amount)); err != nil {
		return err
	}
	return s.putBalance(ctx, tx, t.To, t.Asset, received.Add(t.Amount))
}

// BalanceOf returns the balance of account in asset.
func (s *Store) BalanceOf(ctx context.Context, account, asset common.Address) (decimal.Decimal, error) {
	if err := s.ready(ctx); err != nil {
		return decimal.Zero, err
	}
	return balanceOf(ctx, s.sqlDB, account, asset)
}

func balanceOf(ctx context.Context, q queryer, account, asset common.Address) (decimal.Decimal, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE account = ? AND asset = ?`,
		account.Hex(),
		asset.Hex(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return amount, nil
}

func (s *Store) putBalance(ctx context.Context, tx *sql.Tx, account, asset common.Address, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO balances (account, asset, amount, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (account, asset) DO UPDATE SET
		   amount = excluded.amount,
		   updated_at = excluded.updated_at`,
		account.Hex(),
		asset.Hex(),
		amount.String(),
		toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}
