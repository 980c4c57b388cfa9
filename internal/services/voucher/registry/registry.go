// Package registry tracks meal plates and the fixed-supply voucher batches
// minted for them.
package registry

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
)

// MaxPlateSupply bounds how many vouchers a single plate can mint.
const MaxPlateSupply = 10_000

var (
	ErrEmptyName          = apperrors.New(apperrors.CodeInvalidInput, "plate name is required")
	ErrZeroVendor         = apperrors.New(apperrors.CodeInvalidInput, "vendor address is required")
	ErrZeroRecipient      = apperrors.New(apperrors.CodeInvalidInput, "recipient address is required")
	ErrInvalidExpiry      = apperrors.New(apperrors.CodeInvalidExpiry, "expiration must be in the future")
	ErrInvalidSupply      = apperrors.New(apperrors.CodeInvalidSupply, "max supply must be between 1 and 10000")
	ErrPlateNotFound      = apperrors.New(apperrors.CodeNotFound, "plate not found")
	ErrVoucherNotFound    = apperrors.New(apperrors.CodeNotFound, "voucher not found")
	ErrNotHolder          = apperrors.New(apperrors.CodeNotOwner, "caller does not hold the voucher")
	ErrAlreadyRedeemed    = apperrors.New(apperrors.CodeAlreadyRedeemed, "voucher already redeemed")
	ErrVoucherUnavailable = apperrors.New(apperrors.CodeVoucherUnavailable, "voucher is not available for sale")
	ErrTokenSpaceFull     = apperrors.New(apperrors.CodeInvalidSupply, "token id space exhausted")
)

// CreatePlateInput describes a plate listing.
type CreatePlateInput struct {
	Name        string
	Description string
	ContentRef  string
	MaxSupply   int64
	ExpiresAt   time.Time
}

// Plate is a vendor's meal offering backed by a batch of vouchers.
type Plate struct {
	ID                uint64
	Name              string
	Description       string
	ContentRef        string
	Vendor            common.Address
	CreatedAt         time.Time
	ExpiresAt         time.Time
	MaxSupply         uint64
	AvailableVouchers uint64
	TokenIDs          []uint64
}

// IsExpired reports whether the plate's expiry has been reached at now.
func (p Plate) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// Voucher is a single redeemable token of a plate.
type Voucher struct {
	TokenID        uint64
	PlateID        uint64
	Holder         common.Address
	Redeemed       bool
	RedemptionCode string
	// Circulating is set once the voucher has left the vendor's unsold pool.
	Circulating bool
}

type sequence struct {
	last uint64
}

func (s *sequence) next() uint64 {
	s.last++
	return s.last
}

// Registry owns plates, vouchers and the redemption-code index.
type Registry struct {
	address common.Address

	mu           sync.RWMutex
	plateSeq     sequence
	tokenSeq     sequence
	plates       map[uint64]*Plate
	plateOrder   []uint64
	vouchers     map[uint64]*Voucher
	codes        map[string]uint64
	vendorPlates map[common.Address][]uint64
}

// New creates an empty registry identified by address.
func New(address common.Address) *Registry {
	return &Registry{
		address:      address,
		plates:       make(map[uint64]*Plate),
		vouchers:     make(map[uint64]*Voucher),
		codes:        make(map[string]uint64),
		vendorPlates: make(map[common.Address][]uint64),
	}
}

// Address returns the registry's identifying address.
func (r *Registry) Address() common.Address {
	return r.address
}

// ValidatePlateInput checks a listing without touching registry state.
func ValidatePlateInput(vendor common.Address, input CreatePlateInput, now time.Time) error {
	if vendor == (common.Address{}) {
		return ErrZeroVendor
	}
	if strings.TrimSpace(input.Name) == "" {
		return ErrEmptyName
	}
	if !input.ExpiresAt.After(now) {
		return ErrInvalidExpiry
	}
	if input.MaxSupply <= 0 || input.MaxSupply > MaxPlateSupply {
		return ErrInvalidSupply
	}
	return nil
}

// CheckTokenSpace fails with ErrTokenSpaceFull when minting supply tokens
// after lastTokenID would run past the redemption code space.
func CheckTokenSpace(lastTokenID uint64, supply int64) error {
	if supply > 0 && (lastTokenID > maxTokenID || uint64(supply) > maxTokenID-lastTokenID) {
		return ErrTokenSpaceFull
	}
	return nil
}

// CreatePlate lists a plate for vendor and mints its full voucher supply to
// the vendor.
func (r *Registry) CreatePlate(vendor common.Address, input CreatePlateInput, now time.Time) (Plate, []uint64, error) {
	if err := ValidatePlateInput(vendor, input, now); err != nil {
		return Plate{}, nil, err
	}
	name := strings.TrimSpace(input.Name)
	supply := uint64(input.MaxSupply)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := CheckTokenSpace(r.tokenSeq.last, input.MaxSupply); err != nil {
		return Plate{}, nil, err
	}

	plate := &Plate{
		ID:                r.plateSeq.next(),
		Name:              name,
		Description:       strings.TrimSpace(input.Description),
		ContentRef:        strings.TrimSpace(input.ContentRef),
		Vendor:            vendor,
		CreatedAt:         now.UTC(),
		ExpiresAt:         input.ExpiresAt.UTC(),
		MaxSupply:         supply,
		AvailableVouchers: supply,
		TokenIDs:          make([]uint64, 0, supply),
	}
	for range supply {
		tokenID := r.tokenSeq.next()
		code := RedemptionCode(tokenID)
		r.vouchers[tokenID] = &Voucher{
			TokenID:        tokenID,
			PlateID:        plate.ID,
			Holder:         vendor,
			RedemptionCode: code,
		}
		r.codes[code] = tokenID
		plate.TokenIDs = append(plate.TokenIDs, tokenID)
	}
	r.plates[plate.ID] = plate
	r.plateOrder = append(r.plateOrder, plate.ID)
	r.vendorPlates[vendor] = append(r.vendorPlates[vendor], plate.ID)

	return plate.clone(), slices.Clone(plate.TokenIDs), nil
}

// Sequences returns the last assigned plate and token ids.
func (r *Registry) Sequences() (lastPlateID, lastTokenID uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plateSeq.last, r.tokenSeq.last
}

// TransferVoucher moves a voucher held by caller to another address.
func (r *Registry) TransferVoucher(caller common.Address, tokenID uint64, to common.Address) error {
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	voucher, ok := r.vouchers[tokenID]
	if !ok {
		return ErrVoucherNotFound
	}
	if voucher.Holder != caller {
		return ErrNotHolder
	}
	r.release(voucher)
	voucher.Holder = to
	return nil
}

// SellVoucher hands an unsold voucher from its vendor to a buyer and
// decrements the plate's availability.
func (r *Registry) SellVoucher(tokenID uint64, from, to common.Address, now time.Time) error {
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	voucher, ok := r.vouchers[tokenID]
	if !ok {
		return ErrVoucherNotFound
	}
	plate := r.plates[voucher.PlateID]
	switch {
	case voucher.Holder != from, voucher.Circulating:
		return apperrors.Wrap(apperrors.CodeVoucherUnavailable, "voucher has already been sold", ErrVoucherUnavailable)
	case voucher.Redeemed:
		return apperrors.Wrap(apperrors.CodeVoucherUnavailable, "voucher has been redeemed", ErrVoucherUnavailable)
	case plate.AvailableVouchers == 0:
		return apperrors.Wrap(apperrors.CodeVoucherUnavailable, "plate is sold out", ErrVoucherUnavailable)
	case plate.IsExpired(now):
		return apperrors.Wrap(apperrors.CodeVoucherUnavailable, "plate has expired", ErrVoucherUnavailable)
	}
	r.release(voucher)
	voucher.Holder = to
	return nil
}

// RedeemVoucher marks a voucher as consumed. It succeeds once per voucher.
func (r *Registry) RedeemVoucher(tokenID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	voucher, ok := r.vouchers[tokenID]
	if !ok {
		return ErrVoucherNotFound
	}
	if voucher.Redeemed {
		return ErrAlreadyRedeemed
	}
	r.release(voucher)
	voucher.Redeemed = true
	return nil
}

// RedeemVoucherByCode redeems the voucher a redemption code refers to and
// returns its token id.
func (r *Registry) RedeemVoucherByCode(code string) (uint64, error) {
	tokenID, err := r.TokenByCode(code)
	if err != nil {
		return 0, err
	}
	if err := r.RedeemVoucher(tokenID); err != nil {
		return 0, err
	}
	return tokenID, nil
}

// TokenByCode resolves a redemption code to its token id.
func (r *Registry) TokenByCode(code string) (uint64, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tokenID, ok := r.codes[normalized]
	if !ok {
		return 0, ErrVoucherNotFound
	}
	return tokenID, nil
}

// IsVoucherValid reports whether a voucher exists, is unredeemed and its
// plate has not expired at now.
func (r *Registry) IsVoucherValid(tokenID uint64, now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	voucher, ok := r.vouchers[tokenID]
	if !ok || voucher.Redeemed {
		return false
	}
	return !r.plates[voucher.PlateID].IsExpired(now)
}

// IsVoucherExpired reports whether the voucher's plate has expired at now.
func (r *Registry) IsVoucherExpired(tokenID uint64, now time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	voucher, ok := r.vouchers[tokenID]
	if !ok {
		return false, ErrVoucherNotFound
	}
	return r.plates[voucher.PlateID].IsExpired(now), nil
}

// VendorPlates returns the vendor's plates in creation order.
func (r *Registry) VendorPlates(vendor common.Address) []Plate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.vendorPlates[vendor]
	plates := make([]Plate, 0, len(ids))
	for _, id := range ids {
		plates = append(plates, r.plates[id].clone())
	}
	return plates
}

// ActivePlates returns unexpired plates with vouchers left, in creation order.
func (r *Registry) ActivePlates(now time.Time) []Plate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var plates []Plate
	for _, id := range r.plateOrder {
		plate := r.plates[id]
		if plate.AvailableVouchers > 0 && !plate.IsExpired(now) {
			plates = append(plates, plate.clone())
		}
	}
	return plates
}

// Plate returns a plate by id.
func (r *Registry) Plate(id uint64) (Plate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plate, ok := r.plates[id]
	if !ok {
		return Plate{}, ErrPlateNotFound
	}
	return plate.clone(), nil
}

// Voucher returns a voucher by token id.
func (r *Registry) Voucher(tokenID uint64) (Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	voucher, ok := r.vouchers[tokenID]
	if !ok {
		return Voucher{}, ErrVoucherNotFound
	}
	return *voucher, nil
}

// OwnerOf returns the current holder of a voucher.
func (r *Registry) OwnerOf(tokenID uint64) (common.Address, error) {
	voucher, err := r.Voucher(tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return voucher.Holder, nil
}

// RedemptionCode returns the code printed for a voucher.
func (r *Registry) RedemptionCode(tokenID uint64) (string, error) {
	voucher, err := r.Voucher(tokenID)
	if err != nil {
		return "", err
	}
	return voucher.RedemptionCode, nil
}

// release moves a voucher out of the vendor's unsold pool. Availability only
// ever decreases; a voucher returned to its vendor stays circulating.
func (r *Registry) release(voucher *Voucher) {
	if voucher.Circulating {
		return
	}
	voucher.Circulating = true
	plate := r.plates[voucher.PlateID]
	if plate.AvailableVouchers > 0 {
		plate.AvailableVouchers--
	}
}

func (p *Plate) clone() Plate {
	out := *p
	out.TokenIDs = slices.Clone(p.TokenIDs)
	return out
}
