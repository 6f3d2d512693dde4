package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/solbotics/trade-engine/pkg/amount"
	"github.com/solbotics/trade-engine/pkg/quote"
	"github.com/solbotics/trade-engine/pkg/types"
)

type tradeFlags struct {
	mint        string
	pool        string
	quantity    string
	slippageBps uint64
	priority    string
	tipLamports uint64
}

func (f *tradeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mint, "mint", "", "token mint (base58)")
	cmd.Flags().StringVar(&f.pool, "pool", "", "AMM pool account to trade against (base58)")
	cmd.Flags().StringVar(&f.quantity, "amount", "", `quantity: decimal, "<n>%" of balance, or "max"`)
	cmd.Flags().Uint64Var(&f.slippageBps, "slippage-bps", 100, "max slippage in basis points")
	cmd.Flags().StringVar(&f.priority, "priority", "avg", "priority preset (slow|avg|fast|max)")
	cmd.Flags().Uint64Var(&f.tipLamports, "tip", 0, "validator tip in lamports (bundle path needs tip >= floor)")
	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("pool")
	_ = cmd.MarkFlagRequired("amount")
}

func (f *tradeFlags) intent(side types.Side) (types.SwapIntent, error) {
	mint, err := parsePubkey("mint", f.mint)
	if err != nil {
		return types.SwapIntent{}, err
	}
	return types.SwapIntent{
		Mint:        mint,
		Side:        side,
		Quantity:    f.quantity,
		SlippageBps: f.slippageBps,
		Priority:    types.PriorityPreset(f.priority),
		TipLamports: f.tipLamports,
	}, nil
}

// registerPool feeds the CLI-provided pool into the directory, standing in
// for the background discovery feed a long-running deployment would have.
func registerPool(rt *runtime, mintStr, poolStr string) error {
	mint, err := parsePubkey("mint", mintStr)
	if err != nil {
		return err
	}
	amm, err := parsePubkey("pool", poolStr)
	if err != nil {
		return err
	}
	rt.dir.Register(mint, amm)
	return nil
}

func runSwap(cmd *cobra.Command, opts *globalOpts, flags *tradeFlags, side types.Side) error {
	rt, err := newRuntime(cmd, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := registerPool(rt, flags.mint, flags.pool); err != nil {
		return err
	}
	intent, err := flags.intent(side)
	if err != nil {
		return err
	}

	exec, err := rt.engine.ExecuteSwap(cmd.Context(), rt.wallets.Primary, intent)
	if err != nil {
		return err
	}

	out := map[string]any{
		"signature":       exec.Result.Signature.String(),
		"slot":            exec.Result.Slot,
		"path":            exec.Result.Path,
		"amount_in":       exec.Quote.AmountIn,
		"amount_out":      exec.Quote.AmountOut,
		"min_amount_out":  exec.Quote.MinAmountOut,
		"execution_price": exec.Quote.ExecutionPrice,
		"price_impact":    exec.Quote.PriceImpact,
	}

	// Realized outcome from the confirmed transaction's balance meta. The
	// trade already landed, so a ledger miss only trims the output.
	mint, err := parsePubkey("mint", flags.mint)
	if err != nil {
		return err
	}
	entry, err := rt.ledger.Record(cmd.Context(), exec.Result.Signature, rt.wallets.Primary.PublicKey(), mint)
	if err != nil {
		rt.log.Warn().Err(err).Msg("realized trade outcome unavailable")
	} else {
		out["realized_sol_delta"] = entry.SolDelta
		out["realized_token_delta"] = entry.TokenDelta
		out["fee_lamports"] = entry.FeeLamports
	}

	return printJSON(cmd, out)
}

func newBuyCmd(opts *globalOpts) *cobra.Command {
	flags := &tradeFlags{}
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Buy a token with SOL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwap(cmd, opts, flags, types.SideBuy)
		},
	}
	flags.register(cmd)
	return cmd
}

func newSellCmd(opts *globalOpts) *cobra.Command {
	flags := &tradeFlags{}
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Sell a token for SOL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwap(cmd, opts, flags, types.SideSell)
		},
	}
	flags.register(cmd)
	return cmd
}

func newQuoteCmd(opts *globalOpts) *cobra.Command {
	flags := &tradeFlags{}
	var sideStr string
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap without executing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := types.ParseSide(sideStr)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.close()
			if err := registerPool(rt, flags.mint, flags.pool); err != nil {
				return err
			}

			mint, err := parsePubkey("mint", flags.mint)
			if err != nil {
				return err
			}
			h, err := rt.dir.FindBestPool(cmd.Context(), mint)
			if err != nil {
				return err
			}
			r, err := rt.dir.GetReserves(cmd.Context(), h)
			if err != nil {
				return err
			}

			qty, err := decimal.NewFromString(flags.quantity)
			if err != nil {
				return fmt.Errorf("%w: --amount must be a literal decimal for quotes", types.ErrInvalidAmount)
			}
			decimals := uint8(9)
			if side == types.SideSell {
				decimals = h.TokenDecimals()
			}
			units, err := amount.ToBaseUnits(qty, decimals)
			if err != nil {
				return err
			}

			q, err := quote.Compute(h, r, side, units, flags.slippageBps)
			if err != nil {
				return err
			}
			return printJSON(cmd, q)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&sideStr, "side", "buy", "trade side (buy|sell)")
	return cmd
}

func newMaxCmd(opts *globalOpts) *cobra.Command {
	flags := &tradeFlags{}
	var sideStr string
	cmd := &cobra.Command{
		Use:   "max",
		Short: "Find the largest amount that passes simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := types.ParseSide(sideStr)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.close()
			if err := registerPool(rt, flags.mint, flags.pool); err != nil {
				return err
			}
			intent, err := flags.intent(side)
			if err != nil {
				return err
			}
			intent.Quantity = types.QuantityMax

			max, err := rt.engine.FindMaxAmount(cmd.Context(), rt.wallets.Primary, intent)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"max_amount_in": max})
		},
	}
	cmd.Flags().StringVar(&flags.mint, "mint", "", "token mint (base58)")
	cmd.Flags().StringVar(&flags.pool, "pool", "", "AMM pool account (base58)")
	cmd.Flags().Uint64Var(&flags.slippageBps, "slippage-bps", 100, "max slippage in basis points")
	cmd.Flags().StringVar(&sideStr, "side", "buy", "trade side (buy|sell)")
	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
