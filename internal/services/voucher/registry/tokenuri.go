package registry

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const tokenURIPrefix = "data:application/json;base64,"

type tokenMetadata struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	Attributes  []tokenAttribute `json:"attributes"`
}

type tokenAttribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// TokenURI renders the voucher's metadata as an inline JSON data URI.
func (r *Registry) TokenURI(tokenID uint64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	voucher, ok := r.vouchers[tokenID]
	if !ok {
		return "", ErrVoucherNotFound
	}
	plate := r.plates[voucher.PlateID]

	meta := tokenMetadata{
		Name:        fmt.Sprintf("%s #%d", plate.Name, voucher.TokenID),
		Description: plate.Description,
		Image:       plate.ContentRef,
		Attributes: []tokenAttribute{
			{TraitType: "Plate", Value: plate.ID},
			{TraitType: "Vendor", Value: plate.Vendor.Hex()},
			{TraitType: "Expires At", Value: plate.ExpiresAt.Unix()},
			{TraitType: "Redeemed", Value: voucher.Redeemed},
		},
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal token metadata: %w", err)
	}
	return tokenURIPrefix + base64.StdEncoding.EncodeToString(payload), nil
}
