package pool

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// liquidityStateV4 is the on-chain AMM pool account layout (v4).
// Field order matters: the account is a packed little-endian struct.
type liquidityStateV4 struct {
	Status                 uint64
	Nonce                  uint64
	MaxOrder               uint64
	Depth                  uint64
	BaseDecimal            uint64
	QuoteDecimal           uint64
	State                  uint64
	ResetFlag              uint64
	MinSize                uint64
	VolMaxCutRatio         uint64
	AmountWaveRatio        uint64
	BaseLotSize            uint64
	QuoteLotSize           uint64
	MinPriceMultiplier     uint64
	MaxPriceMultiplier     uint64
	SystemDecimalValue     uint64
	MinSeparateNumerator   uint64
	MinSeparateDenominator uint64
	TradeFeeNumerator      uint64
	TradeFeeDenominator    uint64
	PnlNumerator           uint64
	PnlDenominator         uint64
	SwapFeeNumerator       uint64
	SwapFeeDenominator     uint64
	BaseNeedTakePnl        uint64
	QuoteNeedTakePnl       uint64
	QuoteTotalPnl          uint64
	BaseTotalPnl           uint64
	PoolOpenTime           uint64
	PunishPcAmount         uint64
	PunishCoinAmount       uint64
	OrderbookToInitTime    uint64
	SwapBaseInAmount       bin.Uint128
	SwapQuoteOutAmount     bin.Uint128
	SwapBase2QuoteFee      uint64
	SwapQuoteInAmount      bin.Uint128
	SwapBaseOutAmount      bin.Uint128
	SwapQuote2BaseFee      uint64
	BaseVault              solana.PublicKey
	QuoteVault             solana.PublicKey
	BaseMint               solana.PublicKey
	QuoteMint              solana.PublicKey
	LpMint                 solana.PublicKey
	OpenOrders             solana.PublicKey
	MarketID               solana.PublicKey
	MarketProgramID        solana.PublicKey
	TargetOrders           solana.PublicKey
	WithdrawQueue          solana.PublicKey
	LpVault                solana.PublicKey
	Owner                  solana.PublicKey
	LpReserve              uint64
	Padding                [3]uint64
}

func decodeLiquidityState(data []byte) (*liquidityStateV4, error) {
	var s liquidityStateV4
	if err := bin.NewBinDecoder(data).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode amm state: %w", err)
	}
	return &s, nil
}

// openOrdersV2 is the serum open-orders account layout, decoded only as far
// as the resting totals the quoter needs.
type openOrdersV2 struct {
	Padding         [5]byte
	AccountFlags    uint64
	Market          solana.PublicKey
	Owner           solana.PublicKey
	BaseTokenFree   uint64
	BaseTokenTotal  uint64
	QuoteTokenFree  uint64
	QuoteTokenTotal uint64
}

func decodeOpenOrders(data []byte) (*openOrdersV2, error) {
	var s openOrdersV2
	if err := bin.NewBinDecoder(data).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}
	return &s, nil
}

// marketStateV3 is the serum market account layout, decoded as far as the
// accounts the swap instruction routes through.
type marketStateV3 struct {
	Padding           [5]byte
	AccountFlags      uint64
	OwnAddress        solana.PublicKey
	VaultSignerNonce  uint64
	BaseMint          solana.PublicKey
	QuoteMint         solana.PublicKey
	BaseVault         solana.PublicKey
	BaseDepositsTotal uint64
	BaseFeesAccrued   uint64
	QuoteVault        solana.PublicKey
	QuoteDepositsTotal uint64
	QuoteFeesAccrued   uint64
	QuoteDustThreshold uint64
	RequestQueue       solana.PublicKey
	EventQueue         solana.PublicKey
	Bids               solana.PublicKey
	Asks               solana.PublicKey
	BaseLotSize        uint64
	QuoteLotSize       uint64
	FeeRateBps         uint64
}

func decodeMarketState(data []byte) (*marketStateV3, error) {
	var s marketStateV3
	if err := bin.NewBinDecoder(data).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode market state: %w", err)
	}
	return &s, nil
}

// marketVaultSigner derives the PDA that owns the serum market vaults.
func marketVaultSigner(market solana.PublicKey, nonce uint64, program solana.PublicKey) (solana.PublicKey, error) {
	seed := make([]byte, 8)
	for i := 0; i < 8; i++ {
		seed[i] = byte(nonce >> (8 * i))
	}
	return solana.CreateProgramAddress([][]byte{market[:], seed}, program)
}
