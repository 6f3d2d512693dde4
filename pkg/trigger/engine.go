// Package trigger evaluates standing auto orders against live prices and
// fires their swaps, and reacts to pool-live events for snipes.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"

	"github.com/solbotics/trade-engine/pkg/amount"
	"github.com/solbotics/trade-engine/pkg/config"
	"github.com/solbotics/trade-engine/pkg/engine"
	"github.com/solbotics/trade-engine/pkg/pool"
	"github.com/solbotics/trade-engine/pkg/store"
	"github.com/solbotics/trade-engine/pkg/types"
	"github.com/solbotics/trade-engine/pkg/wallet"
)

// Executor runs one swap for one signer. Satisfied by *engine.Engine.
type Executor interface {
	ExecuteSwap(ctx context.Context, signer wallet.Signer, intent types.SwapIntent) (*engine.Execution, error)
}

// PriceSource reads the live SOL price of a token.
type PriceSource interface {
	Price(ctx context.Context, mint solana.PublicKey) (decimal.Decimal, error)
}

// DirectoryPrices derives prices from pool reserves.
type DirectoryPrices struct {
	Dir pool.Directory
}

func (p DirectoryPrices) Price(ctx context.Context, mint solana.PublicKey) (decimal.Decimal, error) {
	h, err := p.Dir.FindBestPool(ctx, mint)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := p.Dir.GetReserves(ctx, h)
	if err != nil {
		return decimal.Zero, err
	}
	price := pool.SpotPrice(h, r)
	if price.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: pool %s has no price", types.ErrPoolNotFound, h.Amm)
	}
	return price, nil
}

// Engine is the poll loop. Orders are claimed before execution so several
// instances can share one store without double-firing.
type Engine struct {
	cfg     config.TriggerConfig
	orders  store.Orders
	exec    Executor
	prices  PriceSource
	wallets wallet.Provider
	log     zerolog.Logger
}

// NewEngine wires a trigger engine.
func NewEngine(cfg config.TriggerConfig, orders store.Orders, exec Executor, prices PriceSource, wallets wallet.Provider, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		orders:  orders,
		exec:    exec,
		prices:  prices,
		wallets: wallets,
		log:     log.With().Str("component", "trigger").Logger(),
	}
}

// Run polls until the context is cancelled.
func (t *Engine) Run(ctx context.Context) error {
	interval := t.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.log.Info().Dur("interval", interval).Msg("trigger loop started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Poll(ctx)
		}
	}
}

// Poll evaluates every pending order once. Price lookups are batched per
// distinct mint so a hundred orders on one token cost a single fetch.
// Claims happen inline; each claimed order then executes on its own task so
// one slow submission pipeline cannot stall the others.
func (t *Engine) Poll(ctx context.Context) {
	pending, err := t.orders.Pending(ctx)
	if err != nil {
		t.log.Error().Err(err).Msg("list pending orders")
		return
	}
	if len(pending) == 0 {
		return
	}

	prices := t.fetchPrices(ctx, pending)
	var wg conc.WaitGroup
	for _, order := range pending {
		order := order
		if t.evaluate(ctx, order, prices) {
			wg.Go(func() { t.execute(ctx, order) })
		}
	}
	wg.Wait()
}

func (t *Engine) fetchPrices(ctx context.Context, orders []*store.AutoOrder) map[solana.PublicKey]decimal.Decimal {
	distinct := make(map[solana.PublicKey]struct{})
	for _, o := range orders {
		if o.Kind == store.KindSnipe || o.Disabled {
			continue
		}
		distinct[o.Mint] = struct{}{}
	}
	prices := make(map[solana.PublicKey]decimal.Decimal, len(distinct))
	for mint := range distinct {
		price, err := t.prices.Price(ctx, mint)
		if err != nil {
			t.log.Warn().Stringer("mint", mint).Err(err).Msg("price fetch failed, skipping mint this round")
			continue
		}
		prices[mint] = price
	}
	return prices
}

// evaluate checks one order's threshold and claims it when crossed. It
// reports whether the caller now owns the order and must execute it.
func (t *Engine) evaluate(ctx context.Context, order *store.AutoOrder, prices map[solana.PublicKey]decimal.Decimal) bool {
	// Snipes wait for their pool-live event; disabled orders stay parked.
	if order.Kind == store.KindSnipe || order.Disabled {
		return false
	}
	spec, err := amount.ParseThreshold(order.Threshold, thresholdRole(order.Kind))
	if err != nil || !order.AnchorPrice.IsPositive() {
		// The stored order can never be evaluated; keeping it would make
		// every future poll re-fail the same way.
		t.log.Warn().Int64("order", order.ID).Err(err).Msg("deleting unevaluable order")
		if derr := t.orders.Delete(ctx, order.ID); derr != nil {
			t.log.Error().Int64("order", order.ID).Err(derr).Msg("delete failed")
		}
		return false
	}

	live, ok := prices[order.Mint]
	if !ok {
		return false
	}
	if !spec.Crossed(order.AnchorPrice, live) {
		return false
	}

	claimed, err := t.orders.Claim(ctx, order.ID)
	if err != nil {
		t.log.Error().Int64("order", order.ID).Err(err).Msg("claim failed")
		return false
	}
	if !claimed {
		return false
	}

	t.log.Info().
		Int64("order", order.ID).
		Stringer("mint", order.Mint).
		Str("anchor", order.AnchorPrice.String()).
		Str("live", live.String()).
		Msg("threshold crossed, executing")
	return true
}

func thresholdRole(kind store.Kind) amount.ThresholdRole {
	if kind == store.KindStopLoss {
		return amount.StopLoss
	}
	return amount.TakeProfit
}

func (t *Engine) execute(ctx context.Context, order *store.AutoOrder) {
	executeClaimed(ctx, t.orders, t.exec, t.wallets, t.cfg.MaxWallets, order, t.log)
}

// executeClaimed fans a claimed order out across the owner's wallets. Only
// the primary wallet's outcome decides the order's terminal state;
// additional wallets trade best-effort, their fills recorded on the order.
// Shared by the poll loop and the sniper.
func executeClaimed(ctx context.Context, orders store.Orders, exec Executor, wallets wallet.Provider, maxWallets int, order *store.AutoOrder, log zerolog.Logger) {
	finish := func(state store.OrderState, signature, reason string) {
		if err := orders.Finish(ctx, order.ID, state, signature, reason); err != nil {
			log.Error().Int64("order", order.ID).Err(err).Msg("finish failed")
		}
	}
	// A terminally failed order self-deletes: the threshold is consumed and
	// must not re-arm. The failure is logged before removal.
	fail := func(reason string) {
		log.Error().Int64("order", order.ID).Str("reason", reason).Msg("order failed")
		finish(store.OrderFailed, "", reason)
		if err := orders.Delete(ctx, order.ID); err != nil {
			log.Error().Int64("order", order.ID).Err(err).Msg("delete failed order")
		}
	}

	primary, err := wallets.PrimaryWallet(ctx, order.Owner)
	if err != nil {
		fail(fmt.Sprintf("primary wallet: %v", err))
		return
	}
	var additional []wallet.Signer
	if order.Multi {
		additional, err = wallets.AdditionalWallets(ctx, order.Owner)
		if err != nil {
			log.Warn().Str("owner", order.Owner).Err(err).Msg("additional wallets unavailable")
			additional = nil
		}
		if maxWallets > 0 && len(additional) > maxWallets-1 {
			additional = additional[:maxWallets-1]
		}
	}

	intent := order.Intent()

	record := func(signature string) {
		if err := orders.AppendTransaction(ctx, order.ID, signature); err != nil {
			log.Error().Int64("order", order.ID).Err(err).Msg("record transaction failed")
		}
	}

	var primaryExec *engine.Execution
	var primaryErr error
	var wg conc.WaitGroup
	wg.Go(func() {
		primaryExec, primaryErr = exec.ExecuteSwap(ctx, primary, intent)
		if primaryErr == nil {
			record(primaryExec.Result.Signature.String())
		}
	})
	for _, w := range additional {
		w := w
		wg.Go(func() {
			res, err := exec.ExecuteSwap(ctx, w, intent)
			if err != nil {
				log.Warn().
					Int64("order", order.ID).
					Stringer("wallet", w.PublicKey()).
					Err(err).
					Msg("additional wallet swap failed")
				return
			}
			record(res.Result.Signature.String())
		})
	}
	wg.Wait()

	switch {
	case primaryErr == nil:
		finish(store.OrderExecuted, primaryExec.Result.Signature.String(), "")
	case errors.Is(primaryErr, types.ErrConfirmationTimeout):
		// The trade may still land next round with fresh state.
		if err := orders.Release(ctx, order.ID); err != nil {
			log.Error().Int64("order", order.ID).Err(err).Msg("release failed")
		}
	default:
		fail(primaryErr.Error())
	}
}
