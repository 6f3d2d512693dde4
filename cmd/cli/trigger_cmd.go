package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/solbotics/trade-engine/pkg/config"
	"github.com/solbotics/trade-engine/pkg/store"
	"github.com/solbotics/trade-engine/pkg/trigger"
	"github.com/solbotics/trade-engine/pkg/types"
)

func newTriggerCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Standing auto-trigger orders",
	}
	var dsn string
	cmd.PersistentFlags().StringVar(&dsn, "postgres-dsn", "", "postgres DSN for durable orders (in-memory store if empty)")
	cmd.AddCommand(
		newTriggerRunCmd(opts, &dsn),
		newTriggerAddCmd(opts, &dsn),
		newTriggerUpdateCmd(opts, &dsn),
		newTriggerListCmd(opts, &dsn),
		newTriggerCancelCmd(opts, &dsn),
		newTriggerPoolLiveCmd(opts, &dsn),
	)
	return cmd
}

func openOrders(cmd *cobra.Command, dsn string) (store.Orders, func(), error) {
	if dsn == "" {
		return store.NewMemory(), func() {}, nil
	}
	if err := store.Migrate(cmd.Context(), dsn); err != nil {
		return nil, nil, err
	}
	pg, err := store.NewPostgres(cmd.Context(), dsn)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

func newTriggerRunCmd(opts *globalOpts, dsn *string) *cobra.Command {
	var pollMs int
	var maxWallets int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trigger poll loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.close()

			orders, closeOrders, err := openOrders(cmd, *dsn)
			if err != nil {
				return err
			}
			defer closeOrders()

			cfg := config.DefaultTriggerConfig()
			if pollMs > 0 {
				cfg.PollInterval = time.Duration(pollMs) * time.Millisecond
			}
			if maxWallets > 0 {
				cfg.MaxWallets = maxWallets
			}

			eng := trigger.NewEngine(cfg, orders, rt.engine, trigger.DirectoryPrices{Dir: rt.dir}, rt.wallets, rt.log)
			return eng.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&pollMs, "poll-ms", 1000, "poll interval in milliseconds")
	cmd.Flags().IntVar(&maxWallets, "max-wallets", 100, "wallet fan-out ceiling per order")
	return cmd
}

func newTriggerAddCmd(opts *globalOpts, dsn *string) *cobra.Command {
	var (
		owner     string
		mintStr   string
		sideStr   string
		quantity  string
		slippage  uint64
		priority  string
		tip       uint64
		kindStr   string
		threshold string
		anchor    string
		multi     bool
		disabled  bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a pending auto order",
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parsePubkey("mint", mintStr)
			if err != nil {
				return err
			}
			side, err := types.ParseSide(sideStr)
			if err != nil {
				return err
			}

			kind := store.Kind(kindStr)
			var anchorPrice decimal.Decimal
			switch kind {
			case store.KindTakeProfit, store.KindStopLoss:
				if threshold == "" || anchor == "" {
					return fmt.Errorf("%s orders need --threshold and --anchor", kind)
				}
				anchorPrice, err = decimal.NewFromString(anchor)
				if err != nil || !anchorPrice.IsPositive() {
					return fmt.Errorf("%w: anchor price %q must be a positive decimal", types.ErrInvalidAmount, anchor)
				}
			case store.KindSnipe:
				// Snipes fire on the pool-live event; no threshold to arm.
			default:
				return fmt.Errorf("invalid kind %q (take_profit|stop_loss|snipe)", kindStr)
			}

			orders, closeOrders, err := openOrders(cmd, *dsn)
			if err != nil {
				return err
			}
			defer closeOrders()

			order := &store.AutoOrder{
				Owner:       owner,
				Mint:        mint,
				Side:        side,
				Quantity:    quantity,
				SlippageBps: slippage,
				Priority:    types.PriorityPreset(priority),
				TipLamports: tip,
				Kind:        kind,
				Threshold:   threshold,
				AnchorPrice: anchorPrice,
				Multi:       multi,
				Disabled:    disabled,
			}
			if err := orders.Create(cmd.Context(), order); err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"id": order.ID, "state": order.State})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "default", "order owner id")
	cmd.Flags().StringVar(&mintStr, "mint", "", "token mint (base58)")
	cmd.Flags().StringVar(&sideStr, "side", "sell", "trade side when the trigger fires")
	cmd.Flags().StringVar(&quantity, "amount", "100%", "quantity spec for the fired swap")
	cmd.Flags().Uint64Var(&slippage, "slippage-bps", 100, "max slippage in basis points")
	cmd.Flags().StringVar(&priority, "priority", "fast", "priority preset (slow|avg|fast|max)")
	cmd.Flags().Uint64Var(&tip, "tip", 0, "validator tip in lamports")
	cmd.Flags().StringVar(&kindStr, "kind", "take_profit", "trigger kind (take_profit|stop_loss|snipe)")
	cmd.Flags().StringVar(&threshold, "threshold", "", `threshold spec ("100%", "-50%", or absolute price)`)
	cmd.Flags().StringVar(&anchor, "anchor", "", "anchor price in SOL per token")
	cmd.Flags().BoolVar(&multi, "multi", false, "fan the fired swap out across additional wallets")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the order parked")
	_ = cmd.MarkFlagRequired("mint")
	return cmd
}

func newTriggerUpdateCmd(opts *globalOpts, dsn *string) *cobra.Command {
	var id int64
	var threshold string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace the threshold of a pending order",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, closeOrders, err := openOrders(cmd, *dsn)
			if err != nil {
				return err
			}
			defer closeOrders()
			return orders.UpdateThreshold(cmd.Context(), id, threshold)
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "order id")
	cmd.Flags().StringVar(&threshold, "threshold", "", `new threshold spec ("100%", "-50%", or absolute price)`)
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("threshold")
	return cmd
}

func newTriggerListCmd(opts *globalOpts, dsn *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending auto orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, closeOrders, err := openOrders(cmd, *dsn)
			if err != nil {
				return err
			}
			defer closeOrders()

			pending, err := orders.Pending(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, pending)
		},
	}
}

func newTriggerPoolLiveCmd(opts *globalOpts, dsn *string) *cobra.Command {
	var mintStr, poolStr string
	var maxWallets int
	cmd := &cobra.Command{
		Use:   "pool-live",
		Short: "Feed a pool-live event and fire pending snipe orders for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parsePubkey("mint", mintStr)
			if err != nil {
				return err
			}
			amm, err := parsePubkey("pool", poolStr)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.close()

			orders, closeOrders, err := openOrders(cmd, *dsn)
			if err != nil {
				return err
			}
			defer closeOrders()

			s := trigger.NewSniper(maxWallets, orders, rt.dir, rt.engine, rt.wallets, rt.log)
			s.OnPoolLive(cmd.Context(), mint, amm)
			return nil
		},
	}
	cmd.Flags().StringVar(&mintStr, "mint", "", "token mint (base58)")
	cmd.Flags().StringVar(&poolStr, "pool", "", "AMM pool account (base58)")
	cmd.Flags().IntVar(&maxWallets, "max-wallets", 100, "wallet fan-out ceiling per order")
	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func newTriggerCancelCmd(opts *globalOpts, dsn *string) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a pending auto order",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, closeOrders, err := openOrders(cmd, *dsn)
			if err != nil {
				return err
			}
			defer closeOrders()
			return orders.Delete(cmd.Context(), id)
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "order id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
