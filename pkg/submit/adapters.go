package submit

import (
	"context"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/solbotics/trade-engine/pkg/rpc"
	"github.com/solbotics/trade-engine/pkg/types"
)

// RPCSimulator adapts the shared RPC client to the Simulator interface.
type RPCSimulator struct {
	Client *rpc.Client
}

// Simulate runs the signed transaction and surfaces program failures as a
// types.SimulationError carrying the chain logs.
func (s RPCSimulator) Simulate(ctx context.Context, tx *solana.Transaction) error {
	res, err := s.Client.SimulateTransaction(ctx, tx, &solanarpc.SimulateTransactionOpts{
		SigVerify:  true,
		Commitment: s.Client.Commitment(),
	})
	if err != nil {
		return types.NewSimulationError(err.Error(), nil)
	}
	if res != nil && res.Value != nil && res.Value.Err != nil {
		return types.NewSimulationError(res.Value.Err, res.Value.Logs)
	}
	return nil
}

// RPCBroadcaster adapts the shared RPC client to the Broadcaster interface.
// Preflight is skipped: the pipeline already simulated once and rebroadcast
// rounds must not be throttled by repeated preflights.
type RPCBroadcaster struct {
	Client *rpc.Client
}

func (b RPCBroadcaster) Broadcast(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return b.Client.SendTransaction(ctx, tx, solanarpc.TransactionOpts{
		SkipPreflight: true,
		MaxRetries:    new(uint),
	})
}
