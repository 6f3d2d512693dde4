// Package store persists auto-trigger orders. Two implementations exist:
// an in-memory store for tests and single-process runs, and a Postgres
// store for durable deployments. Both enforce the same claim semantics:
// an order moves from pending to processing exactly once.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/solbotics/trade-engine/pkg/types"
)

// ErrOrderNotFound is returned for lookups of unknown order ids.
var ErrOrderNotFound = errors.New("order not found")

// OrderState is the lifecycle position of an auto order.
type OrderState string

const (
	// OrderPending is eligible for evaluation by the trigger engine.
	OrderPending OrderState = "pending"
	// OrderProcessing is claimed by exactly one engine instance.
	OrderProcessing OrderState = "processing"
	// OrderExecuted landed on-chain.
	OrderExecuted OrderState = "executed"
	// OrderFailed hit a terminal error.
	OrderFailed OrderState = "failed"
	// OrderCancelled was withdrawn by the user.
	OrderCancelled OrderState = "cancelled"
)

// Kind is the trigger direction of an auto order.
type Kind string

const (
	KindTakeProfit Kind = "take_profit"
	KindStopLoss   Kind = "stop_loss"
	// KindSnipe fires on pool-live events instead of a price threshold.
	// Threshold and AnchorPrice are unused for snipes.
	KindSnipe Kind = "snipe"
)

// AutoOrder is one standing instruction: when the live price of Mint crosses
// the threshold relative to AnchorPrice (or, for snipes, when the pool goes
// live), execute the embedded swap.
type AutoOrder struct {
	ID    int64
	Owner string
	Mint  solana.PublicKey

	Side        types.Side
	Quantity    string
	SlippageBps uint64
	Priority    types.PriorityPreset
	TipLamports uint64

	Kind Kind
	// Threshold is the raw spec ("100%", "-50%", or an absolute price),
	// parsed against AnchorPrice at evaluation time.
	Threshold   string
	AnchorPrice decimal.Decimal

	// Multi fans the fired swap out across the owner's additional wallets.
	Multi bool
	// Disabled parks the order: it stays stored but is never triggered.
	Disabled bool

	State      OrderState
	Signature  string
	FailReason string
	// Transactions collects every confirmed signature across the wallet
	// fan-out; Signature stays the primary wallet's.
	Transactions []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Intent converts the stored order into a swap intent.
func (o *AutoOrder) Intent() types.SwapIntent {
	return types.SwapIntent{
		Mint:        o.Mint,
		Side:        o.Side,
		Quantity:    o.Quantity,
		SlippageBps: o.SlippageBps,
		Priority:    o.Priority,
		TipLamports: o.TipLamports,
	}
}

// Orders is the order repository consumed by the trigger engine.
type Orders interface {
	// Create persists a new pending order and assigns its ID.
	Create(ctx context.Context, order *AutoOrder) error
	// Get returns one order by id, or ErrOrderNotFound.
	Get(ctx context.Context, id int64) (*AutoOrder, error)
	// Pending lists all orders currently eligible for evaluation.
	Pending(ctx context.Context) ([]*AutoOrder, error)
	// Claim atomically moves an order from pending to processing. It
	// returns false when another claimant won the race; the caller must
	// then skip the order.
	Claim(ctx context.Context, id int64) (bool, error)
	// Release returns a processing order to pending after a transient
	// failure so the next poll retries it.
	Release(ctx context.Context, id int64) error
	// Finish records a terminal state with its signature or failure reason.
	Finish(ctx context.Context, id int64, state OrderState, signature, reason string) error
	// UpdateThreshold replaces the threshold spec of a still-pending order.
	UpdateThreshold(ctx context.Context, id int64, threshold string) error
	// AppendTransaction records one confirmed fill signature on the order.
	AppendTransaction(ctx context.Context, id int64, signature string) error
	// Delete removes an order outright. Used for orders whose stored
	// anchor can no longer be evaluated.
	Delete(ctx context.Context, id int64) error
}
