package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/asset"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/event"
)

// SetPlatformFee changes the fee applied to later redemptions.
func (l *Ledger) SetPlatformFee(ctx context.Context, pct decimal.Decimal) error {
	return l.mutate(ctx, "SetPlatformFee", func(ctx context.Context, caller common.Address, now time.Time) error {
		if err := l.requireAdmin(caller); err != nil {
			return err
		}
		if err := validateFee(pct); err != nil {
			return err
		}
		evt, err := newEvent(caller, now, event.TypePlatformFeeSet, event.EntityPlatform, "fee",
			event.PlatformFeeSetPayload{Percent: pct.String()})
		if err != nil {
			return err
		}
		return l.commit(ctx, evt)
	})
}

// SetPlateRegistry rebinds the registry used for new plates and purchases.
// Transactions already opened keep settling against their own registry.
func (l *Ledger) SetPlateRegistry(ctx context.Context, reg Registry) error {
	return l.mutate(ctx, "SetPlateRegistry", func(ctx context.Context, caller common.Address, now time.Time) error {
		if err := l.requireAdmin(caller); err != nil {
			return err
		}
		if err := validateRegistry(reg); err != nil {
			return err
		}
		addr := reg.Address()
		bound, known := l.registries[addr]
		if known && bound != reg {
			return apperrors.New(apperrors.CodeInvalidRegistry, "a different registry is bound to "+addr.Hex())
		}
		l.registries[addr] = reg
		evt, err := newEvent(caller, now, event.TypePlatformRegistrySet, event.EntityPlatform, "registry",
			event.PlatformRegistrySetPayload{Registry: addr.Hex()})
		if err == nil {
			err = l.commit(ctx, evt)
		}
		if err != nil && !known {
			delete(l.registries, addr)
		}
		return err
	})
}

// VerifyVendor marks a vendor profile as verified by the platform.
func (l *Ledger) VerifyVendor(ctx context.Context, vendor common.Address) error {
	return l.mutate(ctx, "VerifyVendor", func(ctx context.Context, caller common.Address, now time.Time) error {
		if err := l.requireAdmin(caller); err != nil {
			return err
		}
		profile, ok := l.vendors[vendor]
		if !ok {
			return ErrProfileNotFound
		}
		if profile.Verified {
			return nil
		}
		evt, err := newEvent(caller, now, event.TypeVendorVerified, event.EntityProfile, vendor.Hex(),
			event.VendorVerifiedPayload{Address: vendor.Hex()})
		if err != nil {
			return err
		}
		return l.commit(ctx, evt)
	})
}

// AddSupportedAsset accepts another payment asset.
func (l *Ledger) AddSupportedAsset(ctx context.Context, a asset.Asset) error {
	return l.mutate(ctx, "AddSupportedAsset", func(ctx context.Context, caller common.Address, now time.Time) error {
		if err := l.requireAdmin(caller); err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return err
		}
		if _, err := l.findAsset(a.Address); err == nil {
			return alreadyRegistered("asset " + a.Symbol)
		}
		evt, err := newEvent(caller, now, event.TypePlatformAssetAdded, event.EntityPlatform, a.Address.Hex(),
			event.PlatformAssetAddedPayload{Address: a.Address.Hex(), Symbol: a.Symbol, Decimals: a.Decimals})
		if err != nil {
			return err
		}
		return l.commit(ctx, evt)
	})
}
