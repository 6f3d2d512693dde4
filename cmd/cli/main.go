package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solbotics/trade-engine/pkg/config"
	"github.com/solbotics/trade-engine/pkg/engine"
	"github.com/solbotics/trade-engine/pkg/jito"
	"github.com/solbotics/trade-engine/pkg/pool"
	enginerpc "github.com/solbotics/trade-engine/pkg/rpc"
	"github.com/solbotics/trade-engine/pkg/submit"
	"github.com/solbotics/trade-engine/pkg/swap"
	"github.com/solbotics/trade-engine/pkg/wallet"
)

func main() {
	// Optional; flags and env still work without a .env file.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalOpts struct {
	rpcURL         string
	wsURL          string
	commitment     string
	keypairPath    string
	keypairB58     string
	extraKeypairs  []string
	logLevel       string
	rateLimitRPS   float64
	retryAttempts  int
	timeoutSec     int
	jitoUUID       string
	noJito         bool
	tipFloor       uint64
	fallbackRounds int
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:   "tradecli",
		Short: "AMM token trading engine CLI",
	}

	root.PersistentFlags().StringVar(&opts.rpcURL, "rpc-url", os.Getenv("RPC_URL"), "RPC endpoint (default mainnet if empty)")
	root.PersistentFlags().StringVar(&opts.wsURL, "ws-url", os.Getenv("WS_URL"), "websocket endpoint (derived from rpc-url if empty)")
	root.PersistentFlags().StringVar(&opts.commitment, "commitment", "confirmed", "RPC commitment level")
	root.PersistentFlags().StringVar(&opts.keypairPath, "keypair", os.Getenv("KEYPAIR_PATH"), "path to solana-keygen json for the primary wallet")
	root.PersistentFlags().StringVar(&opts.keypairB58, "keypair-b58", os.Getenv("PRIVATE_KEY"), "base58 private key for the primary wallet (alternative to --keypair)")
	root.PersistentFlags().StringArrayVar(&opts.extraKeypairs, "extra-keypair", nil, "additional wallet keypair path (repeatable)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	root.PersistentFlags().Float64Var(&opts.rateLimitRPS, "rate-limit-rps", 8, "rate limit RPS (0 to disable)")
	root.PersistentFlags().IntVar(&opts.retryAttempts, "retry-attempts", 3, "RPC retry attempts")
	root.PersistentFlags().IntVar(&opts.timeoutSec, "timeout-sec", 20, "RPC timeout seconds")
	root.PersistentFlags().StringVar(&opts.jitoUUID, "jito-uuid", os.Getenv("JITO_UUID"), "jito auth uuid (optional)")
	root.PersistentFlags().BoolVar(&opts.noJito, "no-jito", false, "disable the bundle path entirely")
	root.PersistentFlags().Uint64Var(&opts.tipFloor, "tip-floor", 100_000, "minimum tip in lamports for the bundle path")
	root.PersistentFlags().IntVar(&opts.fallbackRounds, "fallback-rounds", 50, "broadcast rounds before giving up")

	root.AddCommand(
		newBuyCmd(opts),
		newSellCmd(opts),
		newQuoteCmd(opts),
		newMaxCmd(opts),
		newTriggerCmd(opts),
	)
	return root
}

// runtime holds everything a command needs, wired once per invocation.
type runtime struct {
	client  *enginerpc.Client
	ws      *enginerpc.WSClient
	dir     *pool.ChainDirectory
	engine  *engine.Engine
	ledger  *engine.Ledger
	wallets wallet.Static
	log     zerolog.Logger
}

func (r *runtime) close() {
	if r.ws != nil {
		r.ws.Close()
	}
}

func newRuntime(cmd *cobra.Command, opts *globalOpts) (*runtime, error) {
	cfg := config.DefaultRPCConfig()
	if opts.rpcURL != "" {
		cfg.RPCURL = opts.rpcURL
	}
	if opts.wsURL != "" {
		cfg.WSURL = opts.wsURL
	}
	if opts.commitment != "" {
		cfg.Commitment = opts.commitment
	}
	cfg.RateLimit.RPS = opts.rateLimitRPS
	cfg.Retry.MaxAttempts = opts.retryAttempts
	if opts.timeoutSec > 0 {
		cfg.Timeout = time.Duration(opts.timeoutSec) * time.Second
	}
	log := zerolog.New(cmd.ErrOrStderr()).Level(parseLogLevel(opts.logLevel)).With().Timestamp().Logger()
	cfg.Logger = log

	client := enginerpc.NewClient(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	ws, err := enginerpc.ConnectWS(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	var relay submit.BundleRelay
	if !opts.noJito {
		relay = jito.NewClient(nil, opts.jitoUUID, log)
	}

	submitCfg := config.DefaultSubmitConfig()
	submitCfg.TipFloorLamports = opts.tipFloor
	if opts.fallbackRounds > 0 {
		submitCfg.FallbackRounds = opts.fallbackRounds
	}

	simulator := submit.RPCSimulator{Client: client}
	pipeline := submit.NewPipeline(submitCfg, simulator, relay, submit.RPCBroadcaster{Client: client}, ws, log)
	builder := swap.NewBuilder(client, log)
	dir := pool.NewChainDirectory(client, log)
	eng := engine.New(dir, builder, pipeline, engine.RPCBalances{Client: client}, simulator, log)

	wallets, err := loadWallets(opts)
	if err != nil {
		ws.Close()
		return nil, err
	}

	return &runtime{
		client:  client,
		ws:      ws,
		dir:     dir,
		engine:  eng,
		ledger:  engine.NewLedger(client, log),
		wallets: wallets,
		log:     log,
	}, nil
}

func loadWallets(opts *globalOpts) (wallet.Static, error) {
	var primary wallet.Local
	var err error
	switch {
	case opts.keypairPath != "":
		primary, err = wallet.NewLocalFromKeygen(opts.keypairPath)
	case opts.keypairB58 != "":
		primary, err = wallet.NewLocalFromBase58(opts.keypairB58)
	default:
		return wallet.Static{}, fmt.Errorf("primary wallet is required (use --keypair, --keypair-b58, KEYPAIR_PATH or PRIVATE_KEY)")
	}
	if err != nil {
		return wallet.Static{}, err
	}
	out := wallet.Static{Primary: primary}
	for _, path := range opts.extraKeypairs {
		extra, err := wallet.NewLocalFromKeygen(path)
		if err != nil {
			return wallet.Static{}, fmt.Errorf("extra keypair %s: %w", path, err)
		}
		out.Additional = append(out.Additional, extra)
	}
	return out, nil
}

func parseLogLevel(lvl string) zerolog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func parsePubkey(name, value string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return pk, nil
}
