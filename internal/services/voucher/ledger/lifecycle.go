package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/event"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/registry"
)

// CreatePlate lists a plate for the calling vendor in the current registry.
func (l *Ledger) CreatePlate(ctx context.Context, input registry.CreatePlateInput) (registry.Plate, error) {
	var plate registry.Plate
	err := l.mutate(ctx, "CreatePlate", func(ctx context.Context, caller common.Address, now time.Time) error {
		if _, ok := l.vendors[caller]; !ok {
			return ErrNotAVendor
		}
		if err := registry.ValidatePlateInput(caller, input, now); err != nil {
			return err
		}
		lastPlateID, lastTokenID := l.registry.Sequences()
		if err := registry.CheckTokenSpace(lastTokenID, input.MaxSupply); err != nil {
			return err
		}
		plateID := lastPlateID + 1
		evt, err := newEvent(caller, now, event.TypePlateCreated, event.EntityPlate, idString(plateID),
			event.PlateCreatedPayload{
				Registry:     l.registry.Address().Hex(),
				Vendor:       caller.Hex(),
				PlateID:      plateID,
				Name:         input.Name,
				Description:  input.Description,
				ContentRef:   input.ContentRef,
				MaxSupply:    input.MaxSupply,
				ExpiresAt:    input.ExpiresAt.UTC(),
				FirstTokenID: lastTokenID + 1,
			})
		if err != nil {
			return err
		}
		if err := l.commit(ctx, evt); err != nil {
			return err
		}
		plate, err = l.registry.Plate(plateID)
		return err
	})
	return plate, err
}

// PurchaseVoucher buys an unsold voucher for the caller. The payment moves
// from the buyer into escrow and stays there until redemption or refund.
func (l *Ledger) PurchaseVoucher(ctx context.Context, tokenID uint64, amount decimal.Decimal, assetAddr common.Address) (uint64, error) {
	var txID uint64
	err := l.mutate(ctx, "PurchaseVoucher", func(ctx context.Context, caller common.Address, now time.Time) error {
		if _, ok := l.buyers[caller]; !ok {
			return ErrNotABuyer
		}
		payment, err := l.findAsset(assetAddr)
		if err != nil {
			return err
		}
		if err := payment.ValidateAmount(amount); err != nil {
			return err
		}
		voucher, err := l.registry.Voucher(tokenID)
		if err != nil {
			return err
		}
		plate, err := l.registry.Plate(voucher.PlateID)
		if err != nil {
			return err
		}
		if caller == plate.Vendor {
			return apperrors.New(apperrors.CodeInvalidInput, "vendors cannot buy their own vouchers")
		}
		if voucher.Holder != plate.Vendor || voucher.Circulating || voucher.Redeemed ||
			plate.AvailableVouchers == 0 || plate.IsExpired(now) {
			return ErrVoucherUnavailable
		}

		nextID := l.txSeq.last + 1
		evt, err := newEvent(caller, now, event.TypeVoucherPurchased, event.EntityTransaction, idString(nextID),
			event.VoucherPurchasedPayload{
				TransactionID: nextID,
				Registry:      l.registry.Address().Hex(),
				TokenID:       tokenID,
				PlateID:       plate.ID,
				Buyer:         caller.Hex(),
				Vendor:        plate.Vendor.Hex(),
				Amount:        amount.String(),
				Asset:         payment.Address.Hex(),
			})
		if err != nil {
			return err
		}
		if err := l.settle(ctx, evt, transfer{from: caller, to: l.escrow, asset: payment.Address, amount: amount}); err != nil {
			return err
		}
		txID = nextID
		return nil
	})
	return txID, err
}

// ClaimVoucher hands a pending voucher to the calling beneficiary.
func (l *Ledger) ClaimVoucher(ctx context.Context, txID uint64) error {
	return l.mutate(ctx, "ClaimVoucher", func(ctx context.Context, caller common.Address, now time.Time) error {
		if _, ok := l.beneficiaries[caller]; !ok {
			return ErrNotABeneficiary
		}
		tx, ok := l.transactions[txID]
		if !ok {
			return ErrTransactionNotFound
		}
		if tx.Status != StatusPending {
			return invalidState(tx, "claimed")
		}
		voucher, plate, err := l.voucherOf(tx)
		if err != nil {
			return err
		}
		if plate.IsExpired(now) {
			return ErrVoucherExpired
		}
		if voucher.Holder != tx.Buyer {
			return ErrVoucherUnavailable
		}
		evt, err := newEvent(caller, now, event.TypeVoucherClaimed, event.EntityTransaction, idString(txID),
			event.VoucherClaimedPayload{TransactionID: txID, Beneficiary: caller.Hex()})
		if err != nil {
			return err
		}
		return l.commit(ctx, evt)
	})
}

// RedeemVoucher is the vendor's confirmation that the meal was served. The
// escrow is split between the vendor and the platform fee.
func (l *Ledger) RedeemVoucher(ctx context.Context, txID uint64) error {
	return l.mutate(ctx, "RedeemVoucher", func(ctx context.Context, caller common.Address, now time.Time) error {
		tx, ok := l.transactions[txID]
		if !ok {
			return ErrTransactionNotFound
		}
		return l.redeem(ctx, caller, now, tx)
	})
}

// RedeemVoucherByCode settles the transaction behind a redemption code read
// out at the counter, exactly as RedeemVoucher does. It returns the
// transaction id.
func (l *Ledger) RedeemVoucherByCode(ctx context.Context, code string) (uint64, error) {
	var txID uint64
	err := l.mutate(ctx, "RedeemVoucherByCode", func(ctx context.Context, caller common.Address, now time.Time) error {
		tokenID, err := l.registry.TokenByCode(code)
		if err != nil {
			return err
		}
		id, ok := l.voucherTx[voucherKey{registry: l.registry.Address(), tokenID: tokenID}]
		if !ok {
			return ErrTransactionNotFound
		}
		if err := l.redeem(ctx, caller, now, l.transactions[id]); err != nil {
			return err
		}
		txID = id
		return nil
	})
	return txID, err
}

func (l *Ledger) redeem(ctx context.Context, caller common.Address, now time.Time, tx *Transaction) error {
	if caller != tx.Vendor {
		return ErrNotVendorOfTransaction
	}
	voucher, plate, err := l.voucherOf(tx)
	if err != nil {
		return err
	}
	direct := false
	switch tx.Status {
	case StatusClaimed:
	case StatusPending:
		if l.directRedemption != DirectRedemptionAllowed || voucher.Holder != tx.Buyer {
			return invalidState(tx, "redeemed")
		}
		direct = true
	default:
		return invalidState(tx, "redeemed")
	}
	if voucher.Redeemed {
		return ErrAlreadyRedeemed
	}
	if plate.IsExpired(now) {
		return ErrVoucherExpired
	}
	payment, err := l.findAsset(tx.Asset)
	if err != nil {
		return err
	}
	vendorShare, fee := SplitFee(tx.Escrow, l.feePercent, payment.Decimals)

	evt, err := newEvent(caller, now, event.TypeVoucherRedeemed, event.EntityTransaction, idString(tx.ID),
		event.VoucherRedeemedPayload{
			TransactionID: tx.ID,
			Registry:      tx.Registry.Hex(),
			TokenID:       tx.TokenID,
			Vendor:        tx.Vendor.Hex(),
			VendorShare:   vendorShare.String(),
			Fee:           fee.String(),
			Asset:         tx.Asset.Hex(),
			Direct:        direct,
		})
	if err != nil {
		return err
	}
	return l.settle(ctx, evt,
		transfer{from: l.escrow, to: tx.Vendor, asset: tx.Asset, amount: vendorShare},
		transfer{from: l.escrow, to: l.admin, asset: tx.Asset, amount: fee},
	)
}

// RefundExpired returns the escrow of an expired, unredeemed voucher to its
// buyer.
func (l *Ledger) RefundExpired(ctx context.Context, txID uint64) error {
	return l.mutate(ctx, "RefundExpired", func(ctx context.Context, caller common.Address, now time.Time) error {
		tx, ok := l.transactions[txID]
		if !ok {
			return ErrTransactionNotFound
		}
		if caller != tx.Buyer {
			return ErrNotOwner
		}
		if !isTransitionAllowed(tx.Status, StatusRefunded) {
			return invalidState(tx, "refunded")
		}
		voucher, plate, err := l.voucherOf(tx)
		if err != nil {
			return err
		}
		if voucher.Redeemed {
			return ErrAlreadyRedeemed
		}
		if !plate.IsExpired(now) {
			return ErrVoucherNotExpired
		}
		evt, err := newEvent(caller, now, event.TypeVoucherRefunded, event.EntityTransaction, idString(txID),
			event.VoucherRefundedPayload{
				TransactionID: txID,
				Buyer:         tx.Buyer.Hex(),
				Amount:        tx.Escrow.String(),
				Asset:         tx.Asset.Hex(),
			})
		if err != nil {
			return err
		}
		return l.settle(ctx, evt, transfer{from: l.escrow, to: tx.Buyer, asset: tx.Asset, amount: tx.Escrow})
	})
}

func (l *Ledger) voucherOf(tx *Transaction) (registry.Voucher, registry.Plate, error) {
	reg, err := l.registryFor(tx.Registry)
	if err != nil {
		return registry.Voucher{}, registry.Plate{}, err
	}
	voucher, err := reg.Voucher(tx.TokenID)
	if err != nil {
		return registry.Voucher{}, registry.Plate{}, err
	}
	plate, err := reg.Plate(voucher.PlateID)
	if err != nil {
		return registry.Voucher{}, registry.Plate{}, err
	}
	return voucher, plate, nil
}
