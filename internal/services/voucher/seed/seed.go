// Package seed loads demo scenarios into a voucher ledger.
//
// A scenario is a YAML document describing balances, profiles, plates and
// purchases. Apply replays it through the public ledger operations so every
// seeded fact lands in the journal exactly as a live call would.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/gonzalobarria/mesa-compartida/internal/platform/requestctx"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/asset"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/ledger"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/registry"
)

// Scenario is the root of a seed document.
type Scenario struct {
	Name          string        `yaml:"name"`
	FeePercent    string        `yaml:"fee_percent,omitempty"`
	Balances      []Balance     `yaml:"balances"`
	Vendors       []Vendor      `yaml:"vendors"`
	Buyers        []Participant `yaml:"buyers"`
	Beneficiaries []Participant `yaml:"beneficiaries"`
	Plates        []Plate       `yaml:"plates"`
	Purchases     []Purchase    `yaml:"purchases"`
}

// Balance credits an account before any operation runs.
type Balance struct {
	Account string `yaml:"account"`
	Asset   string `yaml:"asset"`
	Amount  string `yaml:"amount"`
}

// Vendor is a vendor profile to register.
type Vendor struct {
	Address  string `yaml:"address"`
	Name     string `yaml:"name"`
	Alias    string `yaml:"alias,omitempty"`
	Verified bool   `yaml:"verified,omitempty"`
}

// Participant is a buyer or beneficiary profile.
type Participant struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
}

// Plate is a plate listing. Key names it for purchases in the same document.
type Plate struct {
	Key         string        `yaml:"key"`
	Vendor      string        `yaml:"vendor"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	ContentRef  string        `yaml:"content_ref,omitempty"`
	MaxSupply   int64         `yaml:"max_supply"`
	ExpiresIn   time.Duration `yaml:"expires_in"`
}

// Purchase buys one voucher of a plate and optionally walks it further
// through the lifecycle.
type Purchase struct {
	Plate       string `yaml:"plate"`
	Buyer       string `yaml:"buyer"`
	Amount      string `yaml:"amount"`
	Asset       string `yaml:"asset"`
	Beneficiary string `yaml:"beneficiary,omitempty"`
	Redeem      bool   `yaml:"redeem,omitempty"`
	Rating      int    `yaml:"rating,omitempty"`
}

// Funder credits balances outside the escrow flow.
type Funder interface {
	Credit(ctx context.Context, account, asset common.Address, amount decimal.Decimal) error
}

// Result summarizes what Apply created.
type Result struct {
	Plates       map[string]uint64
	Transactions []uint64
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return Scenario{}, err
	}
	return scenario, nil
}

// Load reads and parses a scenario file.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks references and addresses without touching a ledger.
func (s Scenario) Validate() error {
	for i, b := range s.Balances {
		if !common.IsHexAddress(b.Account) {
			return fmt.Errorf("balances[%d]: invalid account %q", i, b.Account)
		}
		if _, err := decimal.NewFromString(b.Amount); err != nil {
			return fmt.Errorf("balances[%d]: invalid amount %q", i, b.Amount)
		}
	}
	for i, v := range s.Vendors {
		if !common.IsHexAddress(v.Address) {
			return fmt.Errorf("vendors[%d]: invalid address %q", i, v.Address)
		}
	}
	for i, p := range s.Buyers {
		if !common.IsHexAddress(p.Address) {
			return fmt.Errorf("buyers[%d]: invalid address %q", i, p.Address)
		}
	}
	for i, p := range s.Beneficiaries {
		if !common.IsHexAddress(p.Address) {
			return fmt.Errorf("beneficiaries[%d]: invalid address %q", i, p.Address)
		}
	}
	keys := make(map[string]struct{}, len(s.Plates))
	for i, p := range s.Plates {
		key := strings.TrimSpace(p.Key)
		if key == "" {
			return fmt.Errorf("plates[%d]: key is required", i)
		}
		if _, dup := keys[key]; dup {
			return fmt.Errorf("plates[%d]: duplicate key %q", i, key)
		}
		keys[key] = struct{}{}
		if !common.IsHexAddress(p.Vendor) {
			return fmt.Errorf("plates[%d]: invalid vendor %q", i, p.Vendor)
		}
		if p.ExpiresIn <= 0 {
			return fmt.Errorf("plates[%d]: expires_in must be positive", i)
		}
	}
	for i, p := range s.Purchases {
		if _, ok := keys[strings.TrimSpace(p.Plate)]; !ok {
			return fmt.Errorf("purchases[%d]: unknown plate %q", i, p.Plate)
		}
		if !common.IsHexAddress(p.Buyer) {
			return fmt.Errorf("purchases[%d]: invalid buyer %q", i, p.Buyer)
		}
		if p.Beneficiary != "" && !common.IsHexAddress(p.Beneficiary) {
			return fmt.Errorf("purchases[%d]: invalid beneficiary %q", i, p.Beneficiary)
		}
		if _, err := decimal.NewFromString(p.Amount); err != nil {
			return fmt.Errorf("purchases[%d]: invalid amount %q", i, p.Amount)
		}
		if p.Rating != 0 && !p.Redeem {
			return fmt.Errorf("purchases[%d]: rating requires redeem", i)
		}
	}
	return nil
}

// Apply runs the scenario against l. Plate expiry is measured from now.
func Apply(ctx context.Context, l *ledger.Ledger, funds Funder, s Scenario, now time.Time) (Result, error) {
	result := Result{Plates: make(map[string]uint64, len(s.Plates))}
	assets := l.SupportedAssets()

	for i, b := range s.Balances {
		a, ok := asset.Resolve(assets, b.Asset)
		if !ok {
			return result, fmt.Errorf("balances[%d]: unsupported asset %q", i, b.Asset)
		}
		amount, _ := decimal.NewFromString(b.Amount)
		if err := funds.Credit(ctx, common.HexToAddress(b.Account), a.Address, amount); err != nil {
			return result, fmt.Errorf("balances[%d]: %w", i, err)
		}
	}

	admin := requestctx.WithCaller(ctx, l.Admin())
	if s.FeePercent != "" {
		pct, err := decimal.NewFromString(s.FeePercent)
		if err != nil {
			return result, fmt.Errorf("fee_percent: %w", err)
		}
		if err := l.SetPlatformFee(admin, pct); err != nil {
			return result, fmt.Errorf("fee_percent: %w", err)
		}
	}

	for i, v := range s.Vendors {
		addr := common.HexToAddress(v.Address)
		if _, err := l.CreateVendorProfile(requestctx.WithCaller(ctx, addr), v.Name, v.Alias); err != nil {
			return result, fmt.Errorf("vendors[%d]: %w", i, err)
		}
		if v.Verified {
			if err := l.VerifyVendor(admin, addr); err != nil {
				return result, fmt.Errorf("vendors[%d]: verify: %w", i, err)
			}
		}
	}
	for i, p := range s.Buyers {
		if _, err := l.CreateBuyerProfile(requestctx.WithCaller(ctx, common.HexToAddress(p.Address)), p.Name); err != nil {
			return result, fmt.Errorf("buyers[%d]: %w", i, err)
		}
	}
	for i, p := range s.Beneficiaries {
		if _, err := l.CreateBeneficiaryProfile(requestctx.WithCaller(ctx, common.HexToAddress(p.Address)), p.Name); err != nil {
			return result, fmt.Errorf("beneficiaries[%d]: %w", i, err)
		}
	}

	for i, p := range s.Plates {
		plate, err := l.CreatePlate(requestctx.WithCaller(ctx, common.HexToAddress(p.Vendor)), registry.CreatePlateInput{
			Name:        p.Name,
			Description: p.Description,
			ContentRef:  p.ContentRef,
			MaxSupply:   p.MaxSupply,
			ExpiresAt:   now.Add(p.ExpiresIn),
		})
		if err != nil {
			return result, fmt.Errorf("plates[%d]: %w", i, err)
		}
		result.Plates[strings.TrimSpace(p.Key)] = plate.ID
	}

	for i, p := range s.Purchases {
		txID, err := applyPurchase(ctx, l, assets, result.Plates[strings.TrimSpace(p.Plate)], p)
		if err != nil {
			return result, fmt.Errorf("purchases[%d]: %w", i, err)
		}
		result.Transactions = append(result.Transactions, txID)
	}
	return result, nil
}

func applyPurchase(ctx context.Context, l *ledger.Ledger, assets []asset.Asset, plateID uint64, p Purchase) (uint64, error) {
	a, ok := asset.Resolve(assets, p.Asset)
	if !ok {
		return 0, fmt.Errorf("unsupported asset %q", p.Asset)
	}
	amount, _ := decimal.NewFromString(p.Amount)
	tokenID, err := l.AvailableToken(plateID)
	if err != nil {
		return 0, err
	}
	buyer := requestctx.WithCaller(ctx, common.HexToAddress(p.Buyer))
	txID, err := l.PurchaseVoucher(buyer, tokenID, amount, a.Address)
	if err != nil {
		return 0, err
	}
	rater := buyer
	if p.Beneficiary != "" {
		beneficiary := requestctx.WithCaller(ctx, common.HexToAddress(p.Beneficiary))
		if err := l.ClaimVoucher(beneficiary, txID); err != nil {
			return txID, fmt.Errorf("claim: %w", err)
		}
		rater = beneficiary
	}
	if !p.Redeem {
		return txID, nil
	}
	tx, err := l.Transaction(txID)
	if err != nil {
		return txID, err
	}
	if err := l.RedeemVoucher(requestctx.WithCaller(ctx, tx.Vendor), txID); err != nil {
		return txID, fmt.Errorf("redeem: %w", err)
	}
	if p.Rating != 0 {
		if err := l.RateVendor(rater, txID, p.Rating); err != nil {
			return txID, fmt.Errorf("rate: %w", err)
		}
	}
	return txID, nil
}
