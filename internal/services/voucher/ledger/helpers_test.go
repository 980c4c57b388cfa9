package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
	"github.com/gonzalobarria/mesa-compartida/internal/platform/requestctx"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/asset"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/registry"
)

var (
	adminAddr       = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	escrowAddr      = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	registryAddr    = common.HexToAddress("0x0000000000000000000000000000000000000f01")
	vendorAddr      = common.HexToAddress("0x0000000000000000000000000000000000000001")
	buyerAddr       = common.HexToAddress("0x0000000000000000000000000000000000000002")
	beneficiaryAddr = common.HexToAddress("0x0000000000000000000000000000000000000003")
	strangerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000004")

	cusd = asset.CeloUSD.Address
	usdc = asset.CeloUSDC.Address

	startTime = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	t        *testing.T
	ledger   *Ledger
	registry *registry.Registry
	bank     *asset.Bank
	clock    *testClock
}

func newTestEnv(t *testing.T, configure ...func(*Config)) *testEnv {
	t.Helper()
	clock := &testClock{now: startTime}
	cfg := Config{
		Admin:  adminAddr,
		Escrow: escrowAddr,
		Clock:  clock.Now,
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	reg := registry.New(registryAddr)
	bank := asset.NewBank()
	l, err := New(cfg, reg, bank)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return &testEnv{t: t, ledger: l, registry: reg, bank: bank, clock: clock}
}

func as(addr common.Address) context.Context {
	return requestctx.WithCaller(context.Background(), addr)
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s, got nil", want)
	}
	if got := apperrors.CodeOf(err); got != want {
		t.Fatalf("code = %s, want %s (err %v)", got, want, err)
	}
}

func (e *testEnv) fund(account, assetAddr common.Address, amount string) {
	e.t.Helper()
	if err := e.bank.Credit(context.Background(), account, assetAddr, dec(amount)); err != nil {
		e.t.Fatalf("credit: %v", err)
	}
}

func (e *testEnv) balance(account, assetAddr common.Address) decimal.Decimal {
	e.t.Helper()
	b, err := e.bank.BalanceOf(context.Background(), account, assetAddr)
	if err != nil {
		e.t.Fatalf("balance: %v", err)
	}
	return b
}

// setupParticipants registers one vendor, buyer and beneficiary and funds
// the buyer with 100 cUSD.
func (e *testEnv) setupParticipants() {
	e.t.Helper()
	if _, err := e.ledger.CreateVendorProfile(as(vendorAddr), "La Picada", "picada.eth"); err != nil {
		e.t.Fatalf("create vendor: %v", err)
	}
	if _, err := e.ledger.CreateBuyerProfile(as(buyerAddr), "Donante"); err != nil {
		e.t.Fatalf("create buyer: %v", err)
	}
	if _, err := e.ledger.CreateBeneficiaryProfile(as(beneficiaryAddr), "Vecina"); err != nil {
		e.t.Fatalf("create beneficiary: %v", err)
	}
	e.fund(buyerAddr, cusd, "100")
}

func (e *testEnv) createPlate(supply int64) registry.Plate {
	e.t.Helper()
	plate, err := e.ledger.CreatePlate(as(vendorAddr), registry.CreatePlateInput{
		Name:        "Cazuela",
		Description: "Cazuela de vacuno",
		ContentRef:  "ipfs://cazuela",
		MaxSupply:   supply,
		ExpiresAt:   e.clock.Now().Add(24 * time.Hour),
	})
	if err != nil {
		e.t.Fatalf("create plate: %v", err)
	}
	return plate
}

func (e *testEnv) purchase(plate registry.Plate, amount string) uint64 {
	e.t.Helper()
	tokenID, err := e.ledger.AvailableToken(plate.ID)
	if err != nil {
		e.t.Fatalf("available token: %v", err)
	}
	txID, err := e.ledger.PurchaseVoucher(as(buyerAddr), tokenID, dec(amount), cusd)
	if err != nil {
		e.t.Fatalf("purchase: %v", err)
	}
	return txID
}
