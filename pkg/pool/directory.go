package pool

import (
	"context"
	"fmt"
	"sync"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/solbotics/trade-engine/pkg/rpc"
	"github.com/solbotics/trade-engine/pkg/types"
)

// AmmV4Program is the AMM program the directory resolves pools for.
var AmmV4Program = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

// AmmAuthority is the fixed swap authority PDA of the AMM program.
var AmmAuthority = solana.MustPublicKeyFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")

// ChainDirectory resolves pool handles and reserves directly from chain
// accounts. The mint-to-pool index is fed by the external discovery process
// through Register; everything else is fetched fresh per call.
type ChainDirectory struct {
	client *rpc.Client
	log    zerolog.Logger

	mu    sync.RWMutex
	index map[solana.PublicKey][]solana.PublicKey // mint -> candidate amm ids
}

// NewChainDirectory builds a directory over the shared RPC client.
func NewChainDirectory(client *rpc.Client, log zerolog.Logger) *ChainDirectory {
	return &ChainDirectory{
		client: client,
		log:    log.With().Str("component", "pool-directory").Logger(),
		index:  make(map[solana.PublicKey][]solana.PublicKey),
	}
}

// Register records a discovered pool for a mint. Called by the external
// indexer / snipe event source.
func (d *ChainDirectory) Register(mint, amm solana.PublicKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.index[mint] {
		if existing == amm {
			return
		}
	}
	d.index[mint] = append(d.index[mint], amm)
}

// FindBestPool returns the SOL-paired pool with the largest SOL-side
// effective reserve among the registered candidates for the mint.
func (d *ChainDirectory) FindBestPool(ctx context.Context, mint solana.PublicKey) (*Handle, error) {
	d.mu.RLock()
	candidates := append([]solana.PublicKey(nil), d.index[mint]...)
	d.mu.RUnlock()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: mint %s", types.ErrPoolNotFound, mint)
	}

	var best *Handle
	var bestSOL uint64
	for _, amm := range candidates {
		h, err := d.LoadHandle(ctx, amm)
		if err != nil {
			d.log.Warn().Stringer("amm", amm).Err(err).Msg("skip candidate pool")
			continue
		}
		if h.BaseMint != solana.WrappedSol && h.QuoteMint != solana.WrappedSol {
			continue
		}
		res, err := d.GetReserves(ctx, h)
		if err != nil {
			d.log.Warn().Stringer("amm", amm).Err(err).Msg("skip pool without reserves")
			continue
		}
		solSide := res.EffectiveQuote()
		if h.BaseIsSOL() {
			solSide = res.EffectiveBase()
		}
		if best == nil || solSide > bestSOL {
			best = h
			bestSOL = solSide
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: mint %s has no usable SOL-paired pool", types.ErrPoolNotFound, mint)
	}
	return best, nil
}

// LoadHandle fetches and decodes a pool account plus its serum market into
// an immutable Handle.
func (d *ChainDirectory) LoadHandle(ctx context.Context, amm solana.PublicKey) (*Handle, error) {
	info, err := d.client.Raw().GetAccountInfo(ctx, amm)
	if err != nil {
		return nil, fmt.Errorf("fetch amm %s: %w", amm, err)
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return nil, fmt.Errorf("%w: amm account %s", types.ErrPoolNotFound, amm)
	}
	state, err := decodeLiquidityState(info.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("amm %s: %w", amm, err)
	}

	minfo, err := d.client.Raw().GetAccountInfo(ctx, state.MarketID)
	if err != nil {
		return nil, fmt.Errorf("fetch market %s: %w", state.MarketID, err)
	}
	if minfo == nil || minfo.Value == nil || minfo.Value.Data == nil {
		return nil, fmt.Errorf("market account %s not found", state.MarketID)
	}
	market, err := decodeMarketState(minfo.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("market %s: %w", state.MarketID, err)
	}
	vaultSigner, err := marketVaultSigner(state.MarketID, market.VaultSignerNonce, state.MarketProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive vault signer for market %s: %w", state.MarketID, err)
	}

	feeBps := uint64(25)
	if state.SwapFeeDenominator > 0 {
		feeBps = state.SwapFeeNumerator * 10_000 / state.SwapFeeDenominator
	}

	return &Handle{
		Amm:          amm,
		Authority:    AmmAuthority,
		BaseMint:     state.BaseMint,
		QuoteMint:    state.QuoteMint,
		BaseVault:    state.BaseVault,
		QuoteVault:   state.QuoteVault,
		LpMint:       state.LpMint,
		OpenOrders:   state.OpenOrders,
		TargetOrders: state.TargetOrders,
		Market: MarketAccounts{
			Program:     state.MarketProgramID,
			Market:      state.MarketID,
			Bids:        market.Bids,
			Asks:        market.Asks,
			EventQueue:  market.EventQueue,
			BaseVault:   market.BaseVault,
			QuoteVault:  market.QuoteVault,
			VaultSigner: vaultSigner,
		},
		BaseDecimals:  uint8(state.BaseDecimal),
		QuoteDecimals: uint8(state.QuoteDecimal),
		SwapFeeBps:    feeBps,
	}, nil
}

// GetReserves batch-fetches the vaults, open-orders account, and amm state
// and folds them into effective reserves.
func (d *ChainDirectory) GetReserves(ctx context.Context, h *Handle) (Reserves, error) {
	accounts, err := d.client.GetMultipleAccounts(ctx, h.BaseVault, h.QuoteVault, h.OpenOrders, h.Amm)
	if err != nil {
		return Reserves{}, fmt.Errorf("fetch reserves for amm %s: %w", h.Amm, err)
	}

	var res Reserves
	res.BaseVault, err = decodeTokenAmount(accounts[h.BaseVault.String()])
	if err != nil {
		return Reserves{}, fmt.Errorf("base vault %s: %w", h.BaseVault, err)
	}
	res.QuoteVault, err = decodeTokenAmount(accounts[h.QuoteVault.String()])
	if err != nil {
		return Reserves{}, fmt.Errorf("quote vault %s: %w", h.QuoteVault, err)
	}

	if acc := accounts[h.OpenOrders.String()]; acc != nil && acc.Data != nil {
		oo, err := decodeOpenOrders(acc.Data.GetBinary())
		if err != nil {
			return Reserves{}, fmt.Errorf("open orders %s: %w", h.OpenOrders, err)
		}
		res.BaseOpenOrders = oo.BaseTokenTotal
		res.QuoteOpenOrders = oo.QuoteTokenTotal
	}

	if acc := accounts[h.Amm.String()]; acc != nil && acc.Data != nil {
		state, err := decodeLiquidityState(acc.Data.GetBinary())
		if err != nil {
			return Reserves{}, fmt.Errorf("amm %s: %w", h.Amm, err)
		}
		res.BasePendingPnl = state.BaseNeedTakePnl
		res.QuotePendingPnl = state.QuoteNeedTakePnl
	}

	return res, nil
}

func decodeTokenAmount(acc *solanarpc.Account) (uint64, error) {
	if acc == nil || acc.Data == nil {
		return 0, fmt.Errorf("account not found")
	}
	data := acc.Data.GetBinary()
	if len(data) == 0 {
		return 0, fmt.Errorf("empty account data")
	}
	var tok token.Account
	if err := bin.NewBinDecoder(data).Decode(&tok); err != nil {
		return 0, fmt.Errorf("decode token account: %w", err)
	}
	return tok.Amount, nil
}
