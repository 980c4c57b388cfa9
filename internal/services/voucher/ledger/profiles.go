package ledger

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/event"
)

// VendorProfile is a registered food vendor.
type VendorProfile struct {
	Address     common.Address
	Name        string
	Alias       string
	ContentRef  string
	Verified    bool
	RatingSum   uint64
	RatingCount uint64
	TotalSales  uint64
	CreatedAt   time.Time
}

// AverageRating returns the mean score, zero when unrated.
func (p VendorProfile) AverageRating() decimal.Decimal {
	if p.RatingCount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(p.RatingSum)).DivRound(decimal.NewFromInt(int64(p.RatingCount)), 2)
}

// BuyerProfile is a registered purchaser or donor.
type BuyerProfile struct {
	Address        common.Address
	Name           string
	TotalPurchases uint64
	CreatedAt      time.Time
}

// BeneficiaryProfile is a registered voucher recipient.
type BeneficiaryProfile struct {
	Address          common.Address
	Name             string
	TotalRedemptions uint64
	CreatedAt        time.Time
}

// aliasPattern matches ENS-style names such as "la-picada.mesa.eth".
var aliasPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+eth$`)

// NormalizeAlias lowercases and validates an ENS-style alias.
func NormalizeAlias(alias string) (string, error) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if len(alias) > 253 || !aliasPattern.MatchString(alias) {
		return "", ErrInvalidAlias
	}
	return alias, nil
}

// CreateVendorProfile registers the caller as a vendor. The alias is optional.
func (l *Ledger) CreateVendorProfile(ctx context.Context, name, alias string) (VendorProfile, error) {
	var profile VendorProfile
	err := l.mutate(ctx, "CreateVendorProfile", func(ctx context.Context, caller common.Address, now time.Time) error {
		if _, ok := l.vendors[caller]; ok {
			return alreadyRegistered("vendor")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return ErrEmptyName
		}
		if strings.TrimSpace(alias) != "" {
			normalized, err := l.checkAlias(caller, alias)
			if err != nil {
				return err
			}
			alias = normalized
		} else {
			alias = ""
		}
		evt, err := newEvent(caller, now, event.TypeVendorProfileCreated, event.EntityProfile, caller.Hex(),
			event.VendorProfileCreatedPayload{Address: caller.Hex(), Name: name, Alias: alias})
		if err != nil {
			return err
		}
		if err := l.commit(ctx, evt); err != nil {
			return err
		}
		profile = *l.vendors[caller]
		return nil
	})
	return profile, err
}

// CreateBuyerProfile registers the caller as a buyer.
func (l *Ledger) CreateBuyerProfile(ctx context.Context, name string) (BuyerProfile, error) {
	var profile BuyerProfile
	err := l.mutate(ctx, "CreateBuyerProfile", func(ctx context.Context, caller common.Address, now time.Time) error {
		if _, ok := l.buyers[caller]; ok {
			return alreadyRegistered("buyer")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return ErrEmptyName
		}
		evt, err := newEvent(caller, now, event.TypeBuyerProfileCreated, event.EntityProfile, caller.Hex(),
			event.BuyerProfileCreatedPayload{Address: caller.Hex(), Name: name})
		if err != nil {
			return err
		}
		if err := l.commit(ctx, evt); err != nil {
			return err
		}
		profile = *l.buyers[caller]
		return nil
	})
	return profile, err
}

// CreateBeneficiaryProfile registers the caller as a beneficiary.
func (l *Ledger) CreateBeneficiaryProfile(ctx context.Context, name string) (BeneficiaryProfile, error) {
	var profile BeneficiaryProfile
	err := l.mutate(ctx, "CreateBeneficiaryProfile", func(ctx context.Context, caller common.Address, now time.Time) error {
		if _, ok := l.beneficiaries[caller]; ok {
			return alreadyRegistered("beneficiary")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return ErrEmptyName
		}
		evt, err := newEvent(caller, now, event.TypeBeneficiaryProfileCreated, event.EntityProfile, caller.Hex(),
			event.BeneficiaryProfileCreatedPayload{Address: caller.Hex(), Name: name})
		if err != nil {
			return err
		}
		if err := l.commit(ctx, evt); err != nil {
			return err
		}
		profile = *l.beneficiaries[caller]
		return nil
	})
	return profile, err
}

// UpdateVendorProfile changes the caller's display name and content reference.
func (l *Ledger) UpdateVendorProfile(ctx context.Context, name, contentRef string) (VendorProfile, error) {
	var profile VendorProfile
	err := l.mutate(ctx, "UpdateVendorProfile", func(ctx context.Context, caller common.Address, now time.Time) error {
		if _, ok := l.vendors[caller]; !ok {
			return ErrNotAVendor
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return ErrEmptyName
		}
		evt, err := newEvent(caller, now, event.TypeVendorProfileUpdated, event.EntityProfile, caller.Hex(),
			event.VendorProfileUpdatedPayload{Address: caller.Hex(), Name: name, ContentRef: strings.TrimSpace(contentRef)})
		if err != nil {
			return err
		}
		if err := l.commit(ctx, evt); err != nil {
			return err
		}
		profile = *l.vendors[caller]
		return nil
	})
	return profile, err
}

// RegisterAlias assigns an ENS-style alias to the caller's vendor profile,
// releasing any previous one.
func (l *Ledger) RegisterAlias(ctx context.Context, alias string) error {
	return l.mutate(ctx, "RegisterAlias", func(ctx context.Context, caller common.Address, now time.Time) error {
		profile, ok := l.vendors[caller]
		if !ok {
			return ErrNotAVendor
		}
		normalized, err := l.checkAlias(caller, alias)
		if err != nil {
			return err
		}
		if profile.Alias == normalized {
			return nil
		}
		evt, err := newEvent(caller, now, event.TypeAliasRegistered, event.EntityProfile, caller.Hex(),
			event.AliasRegisteredPayload{Address: caller.Hex(), Alias: normalized})
		if err != nil {
			return err
		}
		return l.commit(ctx, evt)
	})
}

// RateVendor scores the vendor of a redeemed transaction. Only the buyer or
// the beneficiary may rate, once per transaction.
func (l *Ledger) RateVendor(ctx context.Context, txID uint64, score int) error {
	return l.mutate(ctx, "RateVendor", func(ctx context.Context, caller common.Address, now time.Time) error {
		if score < 1 || score > 5 {
			return ErrInvalidRating
		}
		tx, ok := l.transactions[txID]
		if !ok {
			return ErrTransactionNotFound
		}
		if caller != tx.Buyer && caller != tx.Beneficiary {
			return ErrNotOwner
		}
		if tx.Status != StatusRedeemed {
			return invalidState(tx, "rated")
		}
		if tx.Rated {
			return ErrAlreadyRated
		}
		evt, err := newEvent(caller, now, event.TypeVendorRated, event.EntityTransaction, idString(txID),
			event.VendorRatedPayload{TransactionID: txID, Vendor: tx.Vendor.Hex(), Rater: caller.Hex(), Score: score})
		if err != nil {
			return err
		}
		return l.commit(ctx, evt)
	})
}

func (l *Ledger) checkAlias(owner common.Address, alias string) (string, error) {
	normalized, err := NormalizeAlias(alias)
	if err != nil {
		return "", err
	}
	if holder, taken := l.aliases[normalized]; taken && holder != owner {
		return "", alreadyRegistered("alias " + normalized)
	}
	return normalized, nil
}

// VendorProfile returns the vendor profile of addr.
func (l *Ledger) VendorProfile(addr common.Address) (VendorProfile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	profile, ok := l.vendors[addr]
	if !ok {
		return VendorProfile{}, ErrProfileNotFound
	}
	return *profile, nil
}

// VendorByAlias resolves an alias to its vendor profile.
func (l *Ledger) VendorByAlias(alias string) (VendorProfile, error) {
	normalized, err := NormalizeAlias(alias)
	if err != nil {
		return VendorProfile{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	addr, ok := l.aliases[normalized]
	if !ok {
		return VendorProfile{}, ErrProfileNotFound
	}
	return *l.vendors[addr], nil
}

// BuyerProfile returns the buyer profile of addr.
func (l *Ledger) BuyerProfile(addr common.Address) (BuyerProfile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	profile, ok := l.buyers[addr]
	if !ok {
		return BuyerProfile{}, ErrProfileNotFound
	}
	return *profile, nil
}

// BeneficiaryProfile returns the beneficiary profile of addr.
func (l *Ledger) BeneficiaryProfile(addr common.Address) (BeneficiaryProfile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	profile, ok := l.beneficiaries[addr]
	if !ok {
		return BeneficiaryProfile{}, ErrProfileNotFound
	}
	return *profile, nil
}
