// Package jito routes signed transactions through the Jito block engine as
// single-transaction bundles with a validator tip.
package jito

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	jitorpc "github.com/jito-labs/jito-go-rpc"
	"github.com/rs/zerolog"

	"github.com/solbotics/trade-engine/pkg/types"
)

// MainnetEndpoints are the regional block engine endpoints, rotated to
// spread rate limits.
var MainnetEndpoints = []string{
	"https://mainnet.block-engine.jito.wtf/api/v1",
	"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1",
	"https://frankfurt.mainnet.block-engine.jito.wtf/api/v1",
	"https://ny.mainnet.block-engine.jito.wtf/api/v1",
	"https://tokyo.mainnet.block-engine.jito.wtf/api/v1",
}

// mainnetTipAccounts are the well-known validator tip accounts. Using the
// static list avoids a getTipAccounts round trip per submission.
var mainnetTipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// RandomTipAccount picks a tip destination from the static list.
func RandomTipAccount() solana.PublicKey {
	return mainnetTipAccounts[rand.Intn(len(mainnetTipAccounts))]
}

// Client is a multi-endpoint bundle relay client. Endpoints rotate
// round-robin and rate-limited calls fail over to the next region.
type Client struct {
	endpoints  []string
	uuid       string
	next       uint32
	maxRetries int
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewClient builds a client over the given endpoints, defaulting to the
// mainnet regional set.
func NewClient(endpoints []string, uuid string, log zerolog.Logger) *Client {
	if len(endpoints) == 0 {
		endpoints = MainnetEndpoints
	}
	return &Client{
		endpoints:  endpoints,
		uuid:       uuid,
		maxRetries: len(endpoints) + 2,
		retryDelay: 100 * time.Millisecond,
		log:        log.With().Str("component", "jito").Logger(),
	}
}

func (c *Client) nextClient() *jitorpc.JitoJsonRpcClient {
	idx := atomic.AddUint32(&c.next, 1)
	return jitorpc.NewJitoJsonRpcClient(c.endpoints[int(idx)%len(c.endpoints)], c.uuid)
}

func rateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "congested") ||
		strings.Contains(msg, "429")
}

// Submission identifies an in-flight bundle.
type Submission struct {
	Signature solana.Signature
	BundleID  string
}

// SendTransaction submits a fully signed transaction as a single-transaction
// bundle and returns its bundle id for status polling.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (Submission, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return Submission{}, fmt.Errorf("marshal transaction: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return Submission{}, err
		}
		resp, err := c.nextClient().SendBundle([][]string{{encoded}})
		if err != nil {
			lastErr = err
			if rateLimited(err) {
				c.log.Debug().Err(err).Msg("bundle relay rate limited, rotating endpoint")
				time.Sleep(c.retryDelay)
				continue
			}
			return Submission{}, fmt.Errorf("%w: %v", types.ErrBundleRejected, err)
		}

		var bundleID string
		if err := json.Unmarshal(resp, &bundleID); err != nil {
			return Submission{}, fmt.Errorf("unmarshal bundle id: %w", err)
		}

		var sig solana.Signature
		if len(tx.Signatures) > 0 {
			sig = tx.Signatures[0]
		}
		c.log.Debug().Str("bundle_id", bundleID).Stringer("signature", sig).Msg("bundle submitted")
		return Submission{Signature: sig, BundleID: bundleID}, nil
	}
	return Submission{}, fmt.Errorf("%w: all relay endpoints exhausted: %v", types.ErrBundleRejected, lastErr)
}

// WaitForInclusion polls bundle status until the bundle confirms, fails, or
// the context expires. It returns the slot the bundle landed in.
func (c *Client) WaitForInclusion(ctx context.Context, bundleID string) (uint64, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
			statuses, err := c.getBundleStatuses(ctx, []string{bundleID})
			if err != nil {
				c.log.Debug().Err(err).Msg("bundle status poll failed")
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 {
				continue
			}
			status := statuses.Value[0]
			switch status.ConfirmationStatus {
			case "confirmed", "finalized":
				return uint64(status.Slot), nil
			}
		}
	}
}

func (c *Client) getBundleStatuses(ctx context.Context, bundleIDs []string) (*jitorpc.BundleStatusResponse, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		statuses, err := c.nextClient().GetBundleStatuses(bundleIDs)
		if err != nil {
			lastErr = err
			if rateLimited(err) {
				time.Sleep(c.retryDelay)
				continue
			}
			return nil, fmt.Errorf("get bundle statuses: %w", err)
		}
		return statuses, nil
	}
	return nil, fmt.Errorf("get bundle statuses failed after %d attempts: %w", c.maxRetries, lastErr)
}

// TipAccounts fetches the relay's current tip accounts. Most callers should
// use RandomTipAccount instead and skip the round trip.
func (c *Client) TipAccounts(ctx context.Context) ([]solana.PublicKey, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := c.nextClient().GetTipAccounts()
		if err != nil {
			lastErr = err
			if rateLimited(err) {
				time.Sleep(c.retryDelay)
				continue
			}
			return nil, fmt.Errorf("get tip accounts: %w", err)
		}

		var raw []string
		if err := json.Unmarshal(resp, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal tip accounts: %w", err)
		}
		accounts := make([]solana.PublicKey, 0, len(raw))
		for _, s := range raw {
			pk, err := solana.PublicKeyFromBase58(s)
			if err != nil {
				continue
			}
			accounts = append(accounts, pk)
		}
		return accounts, nil
	}
	return nil, fmt.Errorf("get tip accounts failed after %d attempts: %w", c.maxRetries, lastErr)
}
