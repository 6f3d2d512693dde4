package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/rs/zerolog"

	"github.com/solbotics/trade-engine/pkg/config"
)

// WSClient wraps the solana-go websocket client for signature and slot
// subscriptions. Like Client it is a long-lived shared handle.
type WSClient struct {
	conn       *ws.Client
	commitment solanarpc.CommitmentType
	log        zerolog.Logger
}

// ConnectWS dials the configured websocket endpoint.
func ConnectWS(ctx context.Context, cfg config.RPCConfig) (*WSClient, error) {
	endpoint := cfg.ResolveWSURL()
	conn, err := ws.Connect(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect ws %s: %w", endpoint, err)
	}
	log := cfg.Logger
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}
	return &WSClient{
		conn:       conn,
		commitment: solanarpc.CommitmentType(cfg.Commitment),
		log:        log,
	}, nil
}

// Close tears down the websocket connection.
func (w *WSClient) Close() {
	w.conn.Close()
}

// WaitForSignature subscribes to a signature and blocks until the
// transaction reaches the configured commitment or the timeout elapses.
// It returns the slot the confirmation was observed in.
func (w *WSClient) WaitForSignature(ctx context.Context, sig solana.Signature, timeout time.Duration) (uint64, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sub, err := w.conn.SignatureSubscribe(sig, w.commitment)
	if err != nil {
		return 0, fmt.Errorf("signature subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	res, err := sub.Recv(ctx)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, fmt.Errorf("signature subscription closed")
	}
	if res.Value.Err != nil {
		return 0, fmt.Errorf("transaction failed on-chain: %v", res.Value.Err)
	}
	return res.Context.Slot, nil
}
