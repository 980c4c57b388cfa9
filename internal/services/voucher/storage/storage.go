// Package storage defines persistence contracts for the voucher engine.
package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/asset"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/event"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrChainBroken indicates the journal hash chain does not verify.
	ErrChainBroken = errors.New("event chain broken")
)

// EventStore is the append-only journal every ledger mutation is written to.
type EventStore interface {
	// AppendEvent assigns Seq and the hash fields and persists the event.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// ListEvents returns up to limit events with Seq greater than afterSeq.
	ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error)
	// LatestSeq returns the highest sequence in the journal, zero when empty.
	LatestSeq(ctx context.Context) (uint64, error)
}

// BalanceStore persists payment-asset balances and moves them atomically.
type BalanceStore interface {
	asset.Transferer
	Credit(ctx context.Context, account, asset common.Address, amount decimal.Decimal) error
}

// Transfer is one balance movement recorded together with a journal event.
type Transfer struct {
	From   common.Address
	To     common.Address
	Asset  common.Address
	Amount decimal.Decimal
}

// SettlementStore is a journal that also holds balances, so an event and
// the fund movements it records commit in one storage transaction.
type SettlementStore interface {
	EventStore
	asset.Transferer
	AppendEventWithTransfers(ctx context.Context, evt event.Event, transfers []Transfer) (event.Event, error)
}
