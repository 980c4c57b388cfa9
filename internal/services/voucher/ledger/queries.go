package ledger

import (
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/asset"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/registry"
)

// MarketplaceVouchers lists unexpired plates with vouchers left, across all
// vendors of the current registry.
func (l *Ledger) MarketplaceVouchers() []registry.Plate {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.ActivePlates(l.now())
}

// AvailableToken returns an unsold token of a plate that can be purchased.
func (l *Ledger) AvailableToken(plateID uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	plate, err := l.registry.Plate(plateID)
	if err != nil {
		return 0, err
	}
	if plate.AvailableVouchers == 0 || plate.IsExpired(l.now()) {
		return 0, ErrVoucherUnavailable
	}
	for _, tokenID := range plate.TokenIDs {
		voucher, err := l.registry.Voucher(tokenID)
		if err != nil {
			return 0, err
		}
		if voucher.Holder == plate.Vendor && !voucher.Circulating && !voucher.Redeemed {
			return tokenID, nil
		}
	}
	return 0, ErrVoucherUnavailable
}

// AvailableVouchersForBeneficiary lists pending transactions whose vouchers
// can still be claimed, oldest first.
func (l *Ledger) AvailableVouchersForBeneficiary() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	var out []Transaction
	for id := uint64(1); id <= l.txSeq.last; id++ {
		tx := l.transactions[id]
		if tx.Status != StatusPending {
			continue
		}
		voucher, plate, err := l.voucherOf(tx)
		if err != nil || plate.IsExpired(now) || voucher.Holder != tx.Buyer {
			continue
		}
		out = append(out, *tx)
	}
	return out
}

// VoucherBeneficiary returns who claimed a voucher of the current registry,
// or the zero address when it is unclaimed.
func (l *Ledger) VoucherBeneficiary(tokenID uint64) common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	txID, ok := l.voucherTx[voucherKey{registry: l.registry.Address(), tokenID: tokenID}]
	if !ok {
		return common.Address{}
	}
	return l.transactions[txID].Beneficiary
}

// EscrowAmount returns the funds held for a transaction. Unknown and settled
// transactions hold nothing.
func (l *Ledger) EscrowAmount(txID uint64) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.transactions[txID]
	if !ok {
		return decimal.Zero
	}
	return tx.Escrow
}

// VendorEarnings returns what a vendor has been paid in an asset.
func (l *Ledger) VendorEarnings(vendor, assetAddr common.Address) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.earnings[earningsKey{vendor: vendor, asset: assetAddr}]
}

// PlatformAccrual returns the fees collected in an asset.
func (l *Ledger) PlatformAccrual(assetAddr common.Address) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accrual[assetAddr]
}

// Transaction returns a transaction by id.
func (l *Ledger) Transaction(txID uint64) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.transactions[txID]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return *tx, nil
}

// Transactions returns the transactions matching filter in id order.
func (l *Ledger) Transactions(filter TransactionFilter) []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Transaction
	for id := uint64(1); id <= l.txSeq.last; id++ {
		if tx := l.transactions[id]; filter.matches(tx) {
			out = append(out, *tx)
		}
	}
	return out
}

// VendorPlates returns a vendor's plates in the current registry.
func (l *Ledger) VendorPlates(vendor common.Address) []registry.Plate {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.VendorPlates(vendor)
}

// PlatformFee returns the current fee percent.
func (l *Ledger) PlatformFee() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.feePercent
}

// RegistryAddress returns the address of the current registry.
func (l *Ledger) RegistryAddress() common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Address()
}

// SupportedAssets returns the accepted payment assets.
func (l *Ledger) SupportedAssets() []asset.Asset {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.assets)
}

// Admin returns the platform administrator address.
func (l *Ledger) Admin() common.Address {
	return l.admin
}

// Escrow returns the escrow custody address.
func (l *Ledger) Escrow() common.Address {
	return l.escrow
}
