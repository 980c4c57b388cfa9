package mesa

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"google.golang.org/grpc/codes"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/ledger"
)

const scenarioYAML = `
name: cli-demo
balances:
  - account: "0x00000000000000000000000000000000000000b1"
    asset: cUSD
    amount: "10"
vendors:
  - address: "0x00000000000000000000000000000000000000a1"
    name: Fonda Central
buyers:
  - address: "0x00000000000000000000000000000000000000b1"
    name: Ana
plates:
  - key: empanadas
    vendor: "0x00000000000000000000000000000000000000a1"
    name: Empanadas de pino
    max_supply: 5
    expires_in: 48h
purchases:
  - plate: empanadas
    buyer: "0x00000000000000000000000000000000000000b1"
    amount: "2"
    asset: cUSD
    redeem: true
  - plate: empanadas
    buyer: "0x00000000000000000000000000000000000000b1"
    amount: "2"
    asset: cUSD
`

func init() {
	color.NoColor = true
}

func testConfig(t *testing.T, command string, args ...string) Config {
	t.Helper()
	fs := flag.NewFlagSet("mesa", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, append([]string{"-db", filepath.Join(t.TempDir(), "mesa.db"), command}, args...))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func runCommand(t *testing.T, cfg Config) string {
	t.Helper()
	var out bytes.Buffer
	if err := execute(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("%s: %v", cfg.Command, err)
	}
	return out.String()
}

func TestParseConfigDefaultsAndFlags(t *testing.T) {
	t.Setenv("MESA_PLATFORM_FEE_PERCENT", "3")
	fs := flag.NewFlagSet("mesa", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-direct-redemption", "denied", "-status", "pending", "transactions"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/mesa.db" {
		t.Fatalf("db path = %q, want data/mesa.db", cfg.DBPath)
	}
	if cfg.FeePercent != "3" {
		t.Fatalf("fee = %q, want 3", cfg.FeePercent)
	}
	if cfg.Command != "transactions" || cfg.Status != "pending" {
		t.Fatalf("command = %q status = %q, want transactions pending", cfg.Command, cfg.Status)
	}
	ledgerCfg, _, err := cfg.ledgerConfig()
	if err != nil {
		t.Fatalf("ledger config: %v", err)
	}
	if ledgerCfg.DirectRedemption != ledger.DirectRedemptionDenied {
		t.Fatalf("direct redemption = %v, want denied", ledgerCfg.DirectRedemption)
	}
}

func TestParseConfigRequiresCommand(t *testing.T) {
	if _, err := ParseConfig(flag.NewFlagSet("mesa", flag.ContinueOnError), nil); err == nil {
		t.Fatal("expected missing command error")
	}
	if _, err := ParseConfig(nil, []string{"plates"}); err == nil {
		t.Fatal("expected nil parser error")
	}
}

func TestLedgerConfigRejectsInvalidValues(t *testing.T) {
	base := Config{
		AdminAddress:    "0x00000000000000000000000000000000000000ad",
		EscrowAddress:   "0x00000000000000000000000000000000000000e5",
		RegistryAddress: "0x0000000000000000000000000000000000000f01",
		FeePercent:      "0",
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"admin", func(c *Config) { c.AdminAddress = "admin" }},
		{"escrow", func(c *Config) { c.EscrowAddress = "" }},
		{"registry", func(c *Config) { c.RegistryAddress = "0x12" }},
		{"fee", func(c *Config) { c.FeePercent = "ten" }},
		{"policy", func(c *Config) { c.DirectRedemption = "sometimes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, _, err := cfg.ledgerConfig(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSeedThenQueryJournal(t *testing.T) {
	scenarioPath := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(scenarioPath, []byte(scenarioYAML), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	cfg := testConfig(t, "seed", scenarioPath)

	out := runCommand(t, cfg)
	if !strings.Contains(out, "Seeded cli-demo: 1 plates, 2 transactions") {
		t.Fatalf("seed output = %q", out)
	}

	cfg.Command, cfg.Args = "plates", nil
	out = runCommand(t, cfg)
	if !strings.Contains(out, "Empanadas de pino  3/5 available") {
		t.Fatalf("plates output = %q", out)
	}

	cfg.Command, cfg.Status = "transactions", "pending"
	out = runCommand(t, cfg)
	if !strings.Contains(out, "Transactions (1)") || !strings.Contains(out, "#2 pending") {
		t.Fatalf("transactions output = %q", out)
	}

	cfg.Command, cfg.Status = "events", ""
	out = runCommand(t, cfg)
	if !strings.Contains(out, "plate.created") || !strings.Contains(out, "voucher.redeemed") {
		t.Fatalf("events output = %q", out)
	}

	cfg.Command = "verify"
	out = runCommand(t, cfg)
	if !strings.Contains(out, "Journal verified through seq") {
		t.Fatalf("verify output = %q", out)
	}
}

func TestRunRejectsUnknownInputs(t *testing.T) {
	cfg := testConfig(t, "launch")
	if err := execute(context.Background(), cfg, nil, nil); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("error = %v, want unknown command", err)
	}

	cfg = testConfig(t, "transactions")
	cfg.Status = "lost"
	if err := execute(context.Background(), cfg, nil, nil); err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("error = %v, want unknown status", err)
	}

	cfg = testConfig(t, "seed")
	if err := execute(context.Background(), cfg, nil, nil); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Fatalf("error = %v, want usage", err)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(nil, "en-US"); got != "" {
		t.Fatalf("nil message = %q, want empty", got)
	}
	plain := os.ErrNotExist
	if got := UserMessage(plain, "en-US"); got != plain.Error() {
		t.Fatalf("plain message = %q, want %q", got, plain.Error())
	}
	domain := apperrors.New(apperrors.CodeInsufficientFunds, "insufficient funds")
	want := codes.FailedPrecondition.String() + ": " + apperrors.LocalizedMessage(domain, "es-ES")
	if got := UserMessage(domain, "es-ES"); got != want {
		t.Fatalf("domain message = %q, want %q", got, want)
	}
	notFound := fmt.Errorf("redeem: %w", apperrors.New(apperrors.CodeNotFound, "transaction not found"))
	if got := UserMessage(notFound, "en-US"); !strings.HasPrefix(got, codes.NotFound.String()+": ") {
		t.Fatalf("not found message = %q, want NotFound prefix", got)
	}
}

func TestParseConfigShutdownTimeout(t *testing.T) {
	t.Setenv("MESA_SHUTDOWN_TIMEOUT", "2s")
	cfg, err := ParseConfig(flag.NewFlagSet("mesa", flag.ContinueOnError), []string{"plates"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.ShutdownTimeout != 2*time.Second {
		t.Fatalf("shutdown timeout = %v, want 2s", cfg.ShutdownTimeout)
	}
	cfg, err = ParseConfig(flag.NewFlagSet("mesa", flag.ContinueOnError), []string{"-shutdown-timeout", "250ms", "plates"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.ShutdownTimeout != 250*time.Millisecond {
		t.Fatalf("shutdown timeout = %v, want 250ms", cfg.ShutdownTimeout)
	}
}
