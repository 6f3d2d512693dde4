package trigger

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/solbotics/trade-engine/pkg/store"
	"github.com/solbotics/trade-engine/pkg/wallet"
)

// Registrar accepts newly discovered pools. Satisfied by *pool.ChainDirectory.
type Registrar interface {
	Register(mint, amm solana.PublicKey)
}

// Sniper fires stored snipe orders the moment their token's pool goes live.
// Unlike the poll loop it is event-driven: the discovery feed calls
// OnPoolLive directly, and the trigger condition is the pool existing, not a
// price crossing a threshold.
type Sniper struct {
	maxWallets int
	orders     store.Orders
	registrar  Registrar
	exec       Executor
	wallets    wallet.Provider
	log        zerolog.Logger
}

// NewSniper wires a Sniper over the shared order store.
func NewSniper(maxWallets int, orders store.Orders, registrar Registrar, exec Executor, wallets wallet.Provider, log zerolog.Logger) *Sniper {
	return &Sniper{
		maxWallets: maxWallets,
		orders:     orders,
		registrar:  registrar,
		exec:       exec,
		wallets:    wallets,
		log:        log.With().Str("component", "sniper").Logger(),
	}
}

// OnPoolLive registers the fresh pool, then claims and fires every pending
// snipe order waiting on that mint. Orders run in parallel; each one's
// claim keeps a concurrent event or poll tick from double-firing it.
func (s *Sniper) OnPoolLive(ctx context.Context, mint, amm solana.PublicKey) {
	s.registrar.Register(mint, amm)
	s.log.Info().Stringer("mint", mint).Stringer("amm", amm).Msg("pool live")

	pending, err := s.orders.Pending(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("list pending snipe orders")
		return
	}

	var wg conc.WaitGroup
	for _, order := range pending {
		if order.Kind != store.KindSnipe || order.Disabled || !order.Mint.Equals(mint) {
			continue
		}
		order := order
		wg.Go(func() {
			claimed, err := s.orders.Claim(ctx, order.ID)
			if err != nil {
				s.log.Error().Int64("order", order.ID).Err(err).Msg("claim failed")
				return
			}
			if !claimed {
				return
			}
			s.log.Info().Int64("order", order.ID).Stringer("mint", mint).Msg("sniping")
			executeClaimed(ctx, s.orders, s.exec, s.wallets, s.maxWallets, order, s.log)
		})
	}
	wg.Wait()
}
