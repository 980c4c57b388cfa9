// Package mesa wires the voucher ledger to its SQLite journal for the mesa
// command.
package mesa

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"

	platformcmd "github.com/gonzalobarria/mesa-compartida/internal/platform/cmd"
	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
	"github.com/gonzalobarria/mesa-compartida/internal/platform/timeouts"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/ledger"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/registry"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/seed"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/storage/sqlite"
)

const eventsPageSize = 100

// Config holds mesa command configuration.
type Config struct {
	DBPath           string        `env:"DB_PATH" envDefault:"data/mesa.db"`
	AdminAddress     string        `env:"ADMIN_ADDRESS" envDefault:"0x00000000000000000000000000000000000000ad"`
	EscrowAddress    string        `env:"ESCROW_ADDRESS" envDefault:"0x00000000000000000000000000000000000000e5"`
	RegistryAddress  string        `env:"REGISTRY_ADDRESS" envDefault:"0x0000000000000000000000000000000000000f01"`
	FeePercent       string        `env:"PLATFORM_FEE_PERCENT" envDefault:"0"`
	DirectRedemption string        `env:"DIRECT_REDEMPTION" envDefault:"allowed"`
	Locale           string        `env:"LOCALE" envDefault:"en-US"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	Status  string
	Command string
	Args    []string
}

// ParseConfig binds the flags, loads MESA_ environment values and then
// parses args. Flags given on the command line win over the environment.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	if fs == nil {
		return Config{}, errors.New("flag parser is required")
	}
	var cfg Config
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite journal path (MESA_DB_PATH)")
	fs.StringVar(&cfg.AdminAddress, "admin", "", "platform admin address (MESA_ADMIN_ADDRESS)")
	fs.StringVar(&cfg.EscrowAddress, "escrow", "", "escrow custody address (MESA_ESCROW_ADDRESS)")
	fs.StringVar(&cfg.RegistryAddress, "registry", "", "plate registry address (MESA_REGISTRY_ADDRESS)")
	fs.StringVar(&cfg.FeePercent, "fee", "", "initial platform fee percent (MESA_PLATFORM_FEE_PERCENT)")
	fs.StringVar(&cfg.DirectRedemption, "direct-redemption", "", "direct redemption policy, allowed or denied (MESA_DIRECT_REDEMPTION)")
	fs.StringVar(&cfg.Locale, "locale", "", "locale for error messages (MESA_LOCALE)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 0, "telemetry shutdown timeout (MESA_SHUTDOWN_TIMEOUT)")
	fs.StringVar(&cfg.Status, "status", "", "transaction status filter")
	if err := platformcmd.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	if fs.NArg() == 0 {
		return Config{}, errors.New("command is required: seed, plates, transactions, events, verify")
	}
	cfg.Command = fs.Arg(0)
	cfg.Args = fs.Args()[1:]
	return cfg, nil
}

// ledgerConfig validates the address and policy settings.
func (c Config) ledgerConfig() (ledger.Config, common.Address, error) {
	var out ledger.Config
	for _, field := range []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"admin", c.AdminAddress, &out.Admin},
		{"escrow", c.EscrowAddress, &out.Escrow},
	} {
		if !common.IsHexAddress(field.value) {
			return ledger.Config{}, common.Address{}, fmt.Errorf("invalid %s address %q", field.name, field.value)
		}
		*field.dst = common.HexToAddress(field.value)
	}
	if !common.IsHexAddress(c.RegistryAddress) {
		return ledger.Config{}, common.Address{}, fmt.Errorf("invalid registry address %q", c.RegistryAddress)
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(c.FeePercent))
	if err != nil {
		return ledger.Config{}, common.Address{}, fmt.Errorf("invalid fee percent %q", c.FeePercent)
	}
	out.FeePercent = fee
	switch strings.ToLower(strings.TrimSpace(c.DirectRedemption)) {
	case "", "allowed":
		out.DirectRedemption = ledger.DirectRedemptionAllowed
	case "denied":
		out.DirectRedemption = ledger.DirectRedemptionDenied
	default:
		return ledger.Config{}, common.Address{}, fmt.Errorf("invalid direct redemption policy %q", c.DirectRedemption)
	}
	return out, common.HexToAddress(c.RegistryAddress), nil
}

type session struct {
	store  *sqlite.Store
	ledger *ledger.Ledger
	out    io.Writer
}

// Run executes the configured subcommand under the process telemetry setup.
func Run(ctx context.Context, cfg Config, out, errOut io.Writer) error {
	options := platformcmd.RunOptions{ShutdownTimeout: cfg.ShutdownTimeout}
	return platformcmd.RunWithTelemetryAndOptions(ctx, platformcmd.ServiceMesa, options, func(ctx context.Context) error {
		return execute(ctx, cfg, out, errOut)
	})
}

// UserMessage renders err for the terminal as its status code followed by
// the localized message. Errors without a domain code print as is.
func UserMessage(err error, locale string) string {
	if err == nil {
		return ""
	}
	if apperrors.CodeOf(err) == apperrors.CodeUnknown {
		return err.Error()
	}
	st := status.Convert(apperrors.ToStatus(err, locale))
	message := st.Message()
	for _, detail := range st.Details() {
		if localized, ok := detail.(*errdetails.LocalizedMessage); ok {
			message = localized.GetMessage()
		}
	}
	return fmt.Sprintf("%s: %s", st.Code(), message)
}

// execute opens the journal, restores the ledger and runs the subcommand.
func execute(ctx context.Context, cfg Config, out, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	ledgerCfg, registryAddr, err := cfg.ledgerConfig()
	if err != nil {
		return err
	}

	openCtx, cancel := context.WithTimeout(ctx, timeouts.StoreOpen)
	store, err := sqlite.Open(openCtx, cfg.DBPath)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(errOut, "close store: %v\n", err)
		}
	}()

	ledgerCfg.Journal = store
	l, err := ledger.New(ledgerCfg, registry.New(registryAddr), store)
	if err != nil {
		return err
	}
	restoreCtx, cancel := context.WithTimeout(ctx, timeouts.Restore)
	err = l.Restore(restoreCtx, store)
	cancel()
	if err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}

	rt := session{store: store, ledger: l, out: out}
	switch cfg.Command {
	case "seed":
		return rt.seed(ctx, cfg.Args)
	case "plates":
		return rt.plates()
	case "transactions":
		return rt.transactions(cfg.Status)
	case "events":
		return rt.events(ctx)
	case "verify":
		return rt.verify(ctx)
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	muted   = color.New(color.FgHiBlack)
)

func (rt session) seed(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: mesa seed <scenario.yaml>")
	}
	scenario, err := seed.Load(args[0])
	if err != nil {
		return err
	}
	result, err := seed.Apply(ctx, rt.ledger, rt.store, scenario, time.Now())
	if err != nil {
		return err
	}
	success.Fprintf(rt.out, "Seeded %s: %d plates, %d transactions\n",
		scenario.Name, len(result.Plates), len(result.Transactions))
	return nil
}

func (rt session) plates() error {
	plates := rt.ledger.MarketplaceVouchers()
	heading.Fprintf(rt.out, "Marketplace (%d plates)\n", len(plates))
	for _, p := range plates {
		fmt.Fprintf(rt.out, "  #%d %s  %d/%d available  expires %s\n",
			p.ID, p.Name, p.AvailableVouchers, p.MaxSupply, p.ExpiresAt.Format(time.RFC3339))
		muted.Fprintf(rt.out, "     vendor %s\n", p.Vendor.Hex())
	}
	return nil
}

func (rt session) transactions(status string) error {
	var filter ledger.TransactionFilter
	if status != "" {
		s, ok := ledger.ParseStatus(strings.ToLower(status))
		if !ok {
			return fmt.Errorf("unknown status %q", status)
		}
		filter.Status = s
	}
	txs := rt.ledger.Transactions(filter)
	heading.Fprintf(rt.out, "Transactions (%d)\n", len(txs))
	for _, tx := range txs {
		fmt.Fprintf(rt.out, "  #%d %-9s token %d  %s escrow %s\n",
			tx.ID, tx.Status, tx.TokenID, tx.Amount, tx.Escrow)
	}
	return nil
}

func (rt session) events(ctx context.Context) error {
	var afterSeq uint64
	for {
		events, err := rt.store.ListEvents(ctx, afterSeq, eventsPageSize)
		if err != nil {
			return err
		}
		for _, evt := range events {
			fmt.Fprintf(rt.out, "%6d %s %-28s %s %s:%s\n",
				evt.Seq, evt.Timestamp.Format(time.RFC3339), evt.Type, evt.ActorID, evt.EntityType, evt.EntityID)
			afterSeq = evt.Seq
		}
		if len(events) < eventsPageSize {
			return nil
		}
	}
}

func (rt session) verify(ctx context.Context) error {
	if err := rt.store.VerifyChain(ctx); err != nil {
		return err
	}
	latest, err := rt.store.LatestSeq(ctx)
	if err != nil {
		return err
	}
	success.Fprintf(rt.out, "Journal verified through seq %d\n", latest)
	return nil
}
