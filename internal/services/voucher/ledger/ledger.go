// Package ledger runs the marketplace: participant profiles, the
// purchase → claim → redeem lifecycle, escrow custody and fee distribution.
//
// Every mutating operation holds one ledger-wide lock and follows the same
// order: validate, move funds, append to the journal, apply in memory. Funds
// moved before a later failure are returned with a reverse transfer.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
	"github.com/gonzalobarria/mesa-compartida/internal/platform/requestctx"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/asset"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/event"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/registry"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/storage"
)

const maxFeePercent = 10

var tracer = otel.Tracer("github.com/gonzalobarria/mesa-compartida/internal/services/voucher/ledger")

// Registry is the voucher registry the ledger drives.
type Registry interface {
	Address() common.Address
	Sequences() (lastPlateID, lastTokenID uint64)
	CreatePlate(vendor common.Address, input registry.CreatePlateInput, now time.Time) (registry.Plate, []uint64, error)
	SellVoucher(tokenID uint64, from, to common.Address, now time.Time) error
	TransferVoucher(caller common.Address, tokenID uint64, to common.Address) error
	RedeemVoucher(tokenID uint64) error
	TokenByCode(code string) (uint64, error)
	Plate(id uint64) (registry.Plate, error)
	Voucher(tokenID uint64) (registry.Voucher, error)
	VendorPlates(vendor common.Address) []registry.Plate
	ActivePlates(now time.Time) []registry.Plate
}

// DirectRedemptionPolicy controls whether a vendor may redeem a voucher
// that was never claimed.
type DirectRedemptionPolicy int

const (
	// DirectRedemptionAllowed lets the vendor redeem a pending voucher the
	// buyer still holds.
	DirectRedemptionAllowed DirectRedemptionPolicy = iota
	// DirectRedemptionDenied requires a claim before redemption.
	DirectRedemptionDenied
)

// Config configures a Ledger.
type Config struct {
	// Admin may change platform settings and receives platform fees.
	Admin common.Address
	// Escrow is the custody account holding purchase funds.
	Escrow common.Address
	// FeePercent is the platform fee in percent, 0 to 10.
	FeePercent       decimal.Decimal
	DirectRedemption DirectRedemptionPolicy
	// Assets are the accepted payment assets. Defaults to asset.DefaultAssets.
	Assets []asset.Asset
	// Journal receives every state change. Optional.
	Journal storage.EventStore
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type earningsKey struct {
	vendor common.Address
	asset  common.Address
}

type voucherKey struct {
	registry common.Address
	tokenID  uint64
}

type sequence struct {
	last uint64
}

func (s *sequence) next() uint64 {
	s.last++
	return s.last
}

// Ledger is the marketplace and escrow state machine.
type Ledger struct {
	mu sync.Mutex

	admin            common.Address
	escrow           common.Address
	feePercent       decimal.Decimal
	directRedemption DirectRedemptionPolicy
	assets           []asset.Asset
	journal          storage.EventStore
	settlement       storage.SettlementStore
	clock            func() time.Time
	funds            asset.Transferer

	registry   Registry
	registries map[common.Address]Registry

	vendors       map[common.Address]*VendorProfile
	buyers        map[common.Address]*BuyerProfile
	beneficiaries map[common.Address]*BeneficiaryProfile
	aliases       map[string]common.Address

	txSeq        sequence
	transactions map[uint64]*Transaction
	voucherTx    map[voucherKey]uint64

	earnings map[earningsKey]decimal.Decimal
	accrual  map[common.Address]decimal.Decimal

	applied uint64
}

// New creates a ledger bound to reg that moves funds through funds.
func New(cfg Config, reg Registry, funds asset.Transferer) (*Ledger, error) {
	var zero common.Address
	if cfg.Admin == zero {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "admin address is required")
	}
	if cfg.Escrow == zero {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "escrow address is required")
	}
	if funds == nil {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "asset transferer is required")
	}
	if err := validateRegistry(reg); err != nil {
		return nil, err
	}
	if err := validateFee(cfg.FeePercent); err != nil {
		return nil, err
	}
	assets := cfg.Assets
	if len(assets) == 0 {
		assets = asset.DefaultAssets()
	}
	for _, a := range assets {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	var settlement storage.SettlementStore
	if store, ok := cfg.Journal.(storage.SettlementStore); ok && any(store) == any(funds) {
		settlement = store
	}
	return &Ledger{
		admin:            cfg.Admin,
		escrow:           cfg.Escrow,
		feePercent:       cfg.FeePercent,
		directRedemption: cfg.DirectRedemption,
		assets:           slices.Clone(assets),
		journal:          cfg.Journal,
		settlement:       settlement,
		clock:            clock,
		funds:            funds,
		registry:         reg,
		registries:       map[common.Address]Registry{reg.Address(): reg},
		vendors:          make(map[common.Address]*VendorProfile),
		buyers:           make(map[common.Address]*BuyerProfile),
		beneficiaries:    make(map[common.Address]*BeneficiaryProfile),
		aliases:          make(map[string]common.Address),
		transactions:     make(map[uint64]*Transaction),
		voucherTx:        make(map[voucherKey]uint64),
		earnings:         make(map[earningsKey]decimal.Decimal),
		accrual:          make(map[common.Address]decimal.Decimal),
	}, nil
}

func validateRegistry(reg Registry) error {
	if reg == nil || reg.Address() == (common.Address{}) {
		return ErrInvalidRegistry
	}
	return nil
}

func validateFee(pct decimal.Decimal) error {
	if pct.IsNegative() {
		return ErrNegativeFee
	}
	if pct.GreaterThan(decimal.NewFromInt(maxFeePercent)) {
		return feeTooHigh()
	}
	return nil
}

// now reads the clock once, at the journal's millisecond precision.
func (l *Ledger) now() time.Time {
	return l.clock().UTC().Truncate(time.Millisecond)
}

// mutate runs fn under the ledger lock inside a span, with the caller taken
// from ctx.
func (l *Ledger) mutate(ctx context.Context, op string, fn func(ctx context.Context, caller common.Address, now time.Time) error) error {
	ctx, span := tracer.Start(ctx, "ledger."+op, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	err := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		caller, ok := requestctx.CallerFromContext(ctx)
		if !ok {
			return ErrCallerRequired
		}
		span.SetAttributes(attribute.String("mesa.caller", caller.Hex()))

		l.mu.Lock()
		defer l.mu.Unlock()
		return fn(ctx, caller, l.now())
	}()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
	}
	return err
}

func newEvent(caller common.Address, now time.Time, typ event.Type, entityType, entityID string, payload any) (event.Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return event.Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return event.Event{
		Timestamp:   now,
		Type:        typ,
		ActorID:     caller.Hex(),
		EntityType:  entityType,
		EntityID:    entityID,
		PayloadJSON: data,
	}, nil
}

func idString(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// commit journals evt and applies it to memory.
func (l *Ledger) commit(ctx context.Context, evt event.Event) error {
	if l.journal != nil {
		stored, err := l.journal.AppendEvent(ctx, evt)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeUnknown, "append journal event", err)
		}
		evt = stored
	}
	return l.applyCommitted(evt)
}

// settle moves funds and commits evt as one unit. When the journal also
// holds the balances both happen in a single storage transaction; otherwise
// the transfers run first and are reversed if the commit fails.
func (l *Ledger) settle(ctx context.Context, evt event.Event, transfers ...transfer) error {
	if l.settlement != nil {
		moves := make([]storage.Transfer, 0, len(transfers))
		for _, t := range transfers {
			moves = append(moves, storage.Transfer{From: t.from, To: t.to, Asset: t.asset, Amount: t.amount})
		}
		stored, err := l.settlement.AppendEventWithTransfers(ctx, evt, moves)
		if err != nil {
			if apperrors.CodeOf(err) != apperrors.CodeUnknown {
				return err
			}
			return apperrors.Wrap(apperrors.CodeUnknown, "append journal event", err)
		}
		return l.applyCommitted(stored)
	}
	undo, err := l.transferAll(ctx, transfers...)
	if err != nil {
		return err
	}
	if err := l.commit(ctx, evt); err != nil {
		undo()
		return err
	}
	return nil
}

func (l *Ledger) applyCommitted(evt event.Event) error {
	if err := l.apply(evt); err != nil {
		log.Printf("ledger: apply %s (seq %d) after journal append: %v", evt.Type, evt.Seq, err)
		return err
	}
	return nil
}

type transfer struct {
	from   common.Address
	to     common.Address
	asset  common.Address
	amount decimal.Decimal
}

// transferAll performs transfers in order. When one fails the completed ones
// are reversed. The returned undo reverses all of them.
func (l *Ledger) transferAll(ctx context.Context, transfers ...transfer) (undo func(), err error) {
	var done []transfer
	undo = func() {
		for i := len(done) - 1; i >= 0; i-- {
			t := done[i]
			// The reversal must run even when ctx was cancelled mid-operation.
			if err := l.funds.Transfer(context.WithoutCancel(ctx), t.to, t.from, t.asset, t.amount); err != nil {
				log.Printf("ledger: compensate transfer %s %s -> %s: %v", t.amount, t.to.Hex(), t.from.Hex(), err)
			}
		}
	}
	for _, t := range transfers {
		if !t.amount.IsPositive() {
			continue
		}
		if err := l.funds.Transfer(ctx, t.from, t.to, t.asset, t.amount); err != nil {
			undo()
			return func() {}, err
		}
		done = append(done, t)
	}
	return undo, nil
}

func (l *Ledger) findAsset(addr common.Address) (asset.Asset, error) {
	for _, a := range l.assets {
		if a.Address == addr {
			return a, nil
		}
	}
	return asset.Asset{}, unsupportedAsset(addr.Hex())
}

// registryFor returns the registry a transaction's voucher lives in.
func (l *Ledger) registryFor(addr common.Address) (Registry, error) {
	reg, ok := l.registries[addr]
	if !ok {
		return nil, apperrors.New(apperrors.CodeInvalidRegistry, "unknown registry "+addr.Hex())
	}
	return reg, nil
}

func (l *Ledger) requireAdmin(caller common.Address) error {
	if caller != l.admin {
		return ErrNotOwner
	}
	return nil
}
