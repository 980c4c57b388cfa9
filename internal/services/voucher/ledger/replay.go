package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/asset"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/event"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/registry"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/storage"
)

const replayPageSize = 200

// Restore rebuilds a fresh ledger, and the empty registries passed in, from
// a journal. Balances are not touched: the transferer already holds them.
func (l *Ledger) Restore(ctx context.Context, journal storage.EventStore, registries ...Registry) error {
	if journal == nil {
		return fmt.Errorf("journal is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.applied > 0 {
		return fmt.Errorf("restore requires an empty ledger, %d events already applied", l.applied)
	}
	for _, reg := range registries {
		if err := validateRegistry(reg); err != nil {
			return err
		}
		l.registries[reg.Address()] = reg
	}
	for addr, reg := range l.registries {
		if plateID, tokenID := reg.Sequences(); plateID != 0 || tokenID != 0 {
			return fmt.Errorf("registry %s is not empty", addr.Hex())
		}
	}

	var afterSeq uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		events, err := journal.ListEvents(ctx, afterSeq, replayPageSize)
		if err != nil {
			return fmt.Errorf("list events after %d: %w", afterSeq, err)
		}
		for _, evt := range events {
			if evt.Seq != afterSeq+1 {
				return fmt.Errorf("%w: expected seq %d, got %d", storage.ErrChainBroken, afterSeq+1, evt.Seq)
			}
			if err := l.apply(evt); err != nil {
				return fmt.Errorf("replay seq %d: %w", evt.Seq, err)
			}
			afterSeq = evt.Seq
		}
		if len(events) < replayPageSize {
			return nil
		}
	}
}

// apply mutates memory for one journal event. It is shared by live
// operations, after validation, and by Restore.
func (l *Ledger) apply(evt event.Event) error {
	var err error
	switch evt.Type {
	case event.TypeVendorProfileCreated:
		var p event.VendorProfileCreatedPayload
		if err = event.Decode(evt, &p); err == nil {
			addr := common.HexToAddress(p.Address)
			l.vendors[addr] = &VendorProfile{Address: addr, Name: p.Name, Alias: p.Alias, CreatedAt: evt.Timestamp}
			if p.Alias != "" {
				l.aliases[p.Alias] = addr
			}
		}
	case event.TypeVendorProfileUpdated:
		var p event.VendorProfileUpdatedPayload
		if err = event.Decode(evt, &p); err == nil {
			var profile *VendorProfile
			if profile, err = l.vendorFor(p.Address); err == nil {
				profile.Name = p.Name
				profile.ContentRef = p.ContentRef
			}
		}
	case event.TypeVendorVerified:
		var p event.VendorVerifiedPayload
		if err = event.Decode(evt, &p); err == nil {
			var profile *VendorProfile
			if profile, err = l.vendorFor(p.Address); err == nil {
				profile.Verified = true
			}
		}
	case event.TypeAliasRegistered:
		var p event.AliasRegisteredPayload
		if err = event.Decode(evt, &p); err == nil {
			var profile *VendorProfile
			if profile, err = l.vendorFor(p.Address); err == nil {
				if profile.Alias != "" {
					delete(l.aliases, profile.Alias)
				}
				profile.Alias = p.Alias
				l.aliases[p.Alias] = profile.Address
			}
		}
	case event.TypeVendorRated:
		var p event.VendorRatedPayload
		if err = event.Decode(evt, &p); err == nil {
			err = l.applyRating(p)
		}
	case event.TypeBuyerProfileCreated:
		var p event.BuyerProfileCreatedPayload
		if err = event.Decode(evt, &p); err == nil {
			addr := common.HexToAddress(p.Address)
			l.buyers[addr] = &BuyerProfile{Address: addr, Name: p.Name, CreatedAt: evt.Timestamp}
		}
	case event.TypeBeneficiaryProfileCreated:
		var p event.BeneficiaryProfileCreatedPayload
		if err = event.Decode(evt, &p); err == nil {
			addr := common.HexToAddress(p.Address)
			l.beneficiaries[addr] = &BeneficiaryProfile{Address: addr, Name: p.Name, CreatedAt: evt.Timestamp}
		}
	case event.TypePlateCreated:
		var p event.PlateCreatedPayload
		if err = event.Decode(evt, &p); err == nil {
			err = l.applyPlateCreated(evt, p)
		}
	case event.TypeVoucherPurchased:
		var p event.VoucherPurchasedPayload
		if err = event.Decode(evt, &p); err == nil {
			err = l.applyPurchase(evt, p)
		}
	case event.TypeVoucherClaimed:
		var p event.VoucherClaimedPayload
		if err = event.Decode(evt, &p); err == nil {
			err = l.applyClaim(evt, p)
		}
	case event.TypeVoucherRedeemed:
		var p event.VoucherRedeemedPayload
		if err = event.Decode(evt, &p); err == nil {
			err = l.applyRedeem(evt, p)
		}
	case event.TypeVoucherRefunded:
		var p event.VoucherRefundedPayload
		if err = event.Decode(evt, &p); err == nil {
			var tx *Transaction
			if tx, err = l.transactionFor(p.TransactionID, StatusRefunded); err == nil {
				tx.Status = StatusRefunded
				tx.Escrow = decimal.Zero
				tx.UpdatedAt = evt.Timestamp
			}
		}
	case event.TypePlatformFeeSet:
		var p event.PlatformFeeSetPayload
		if err = event.Decode(evt, &p); err == nil {
			var pct decimal.Decimal
			if pct, err = decimal.NewFromString(p.Percent); err == nil {
				l.feePercent = pct
			}
		}
	case event.TypePlatformRegistrySet:
		var p event.PlatformRegistrySetPayload
		if err = event.Decode(evt, &p); err == nil {
			var reg Registry
			if reg, err = l.registryFor(common.HexToAddress(p.Registry)); err == nil {
				l.registry = reg
			}
		}
	case event.TypePlatformAssetAdded:
		var p event.PlatformAssetAddedPayload
		if err = event.Decode(evt, &p); err == nil {
			l.assets = append(l.assets, asset.Asset{
				Address:  common.HexToAddress(p.Address),
				Symbol:   p.Symbol,
				Decimals: p.Decimals,
			})
		}
	default:
		err = fmt.Errorf("unknown event type %q", evt.Type)
	}
	if err != nil {
		return err
	}
	l.applied++
	return nil
}

func (l *Ledger) applyPlateCreated(evt event.Event, p event.PlateCreatedPayload) error {
	reg, err := l.registryFor(common.HexToAddress(p.Registry))
	if err != nil {
		return err
	}
	plate, tokens, err := reg.CreatePlate(common.HexToAddress(p.Vendor), registry.CreatePlateInput{
		Name:        p.Name,
		Description: p.Description,
		ContentRef:  p.ContentRef,
		MaxSupply:   p.MaxSupply,
		ExpiresAt:   p.ExpiresAt,
	}, evt.Timestamp)
	if err != nil {
		return err
	}
	if plate.ID != p.PlateID || len(tokens) == 0 || tokens[0] != p.FirstTokenID {
		return diverged("plate %d with first token %d minted as plate %d", p.PlateID, p.FirstTokenID, plate.ID)
	}
	return nil
}

func (l *Ledger) applyPurchase(evt event.Event, p event.VoucherPurchasedPayload) error {
	if p.TransactionID != l.txSeq.last+1 {
		return diverged("transaction %d follows %d", p.TransactionID, l.txSeq.last)
	}
	regAddr := common.HexToAddress(p.Registry)
	reg, err := l.registryFor(regAddr)
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}
	buyer := common.HexToAddress(p.Buyer)
	vendor := common.HexToAddress(p.Vendor)
	if err := reg.SellVoucher(p.TokenID, vendor, buyer, evt.Timestamp); err != nil {
		return err
	}
	id := l.txSeq.next()
	l.transactions[id] = &Transaction{
		ID:        id,
		Buyer:     buyer,
		Vendor:    vendor,
		Amount:    amount,
		Asset:     common.HexToAddress(p.Asset),
		Status:    StatusPending,
		CreatedAt: evt.Timestamp,
		UpdatedAt: evt.Timestamp,
		TokenID:   p.TokenID,
		PlateID:   p.PlateID,
		Registry:  regAddr,
		Escrow:    amount,
	}
	l.voucherTx[voucherKey{registry: regAddr, tokenID: p.TokenID}] = id
	if profile, ok := l.buyers[buyer]; ok {
		profile.TotalPurchases++
	}
	if profile, ok := l.vendors[vendor]; ok {
		profile.TotalSales++
	}
	return nil
}

func (l *Ledger) applyClaim(evt event.Event, p event.VoucherClaimedPayload) error {
	tx, err := l.transactionFor(p.TransactionID, StatusClaimed)
	if err != nil {
		return err
	}
	reg, err := l.registryFor(tx.Registry)
	if err != nil {
		return err
	}
	beneficiary := common.HexToAddress(p.Beneficiary)
	if err := reg.TransferVoucher(tx.Buyer, tx.TokenID, beneficiary); err != nil {
		return err
	}
	tx.Beneficiary = beneficiary
	tx.Status = StatusClaimed
	tx.UpdatedAt = evt.Timestamp
	return nil
}

func (l *Ledger) applyRedeem(evt event.Event, p event.VoucherRedeemedPayload) error {
	tx, err := l.transactionFor(p.TransactionID, StatusRedeemed)
	if err != nil {
		return err
	}
	reg, err := l.registryFor(tx.Registry)
	if err != nil {
		return err
	}
	share, err := decimal.NewFromString(p.VendorShare)
	if err != nil {
		return fmt.Errorf("parse vendor share: %w", err)
	}
	fee, err := decimal.NewFromString(p.Fee)
	if err != nil {
		return fmt.Errorf("parse fee: %w", err)
	}
	if !share.Add(fee).Equal(tx.Escrow) {
		return diverged("settlement %s + %s does not match escrow %s", share, fee, tx.Escrow)
	}
	if err := reg.RedeemVoucher(tx.TokenID); err != nil {
		return err
	}
	tx.Status = StatusRedeemed
	tx.Escrow = decimal.Zero
	tx.UpdatedAt = evt.Timestamp
	key := earningsKey{vendor: tx.Vendor, asset: tx.Asset}
	l.earnings[key] = l.earnings[key].Add(share)
	l.accrual[tx.Asset] = l.accrual[tx.Asset].Add(fee)
	if profile, ok := l.beneficiaries[tx.Beneficiary]; ok {
		profile.TotalRedemptions++
	}
	return nil
}

func (l *Ledger) applyRating(p event.VendorRatedPayload) error {
	tx, ok := l.transactions[p.TransactionID]
	if !ok {
		return ErrTransactionNotFound
	}
	if tx.Rated {
		return ErrAlreadyRated
	}
	profile, err := l.vendorFor(p.Vendor)
	if err != nil {
		return err
	}
	tx.Rated = true
	profile.RatingSum += uint64(p.Score)
	profile.RatingCount++
	return nil
}

func (l *Ledger) vendorFor(hex string) (*VendorProfile, error) {
	profile, ok := l.vendors[common.HexToAddress(hex)]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func (l *Ledger) transactionFor(id uint64, next Status) (*Transaction, error) {
	tx, ok := l.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	if !isTransitionAllowed(tx.Status, next) {
		return nil, invalidState(tx, next.String())
	}
	return tx, nil
}

func diverged(format string, args ...any) error {
	return apperrors.New(apperrors.CodeUnknown, "journal diverged: "+fmt.Sprintf(format, args...))
}
