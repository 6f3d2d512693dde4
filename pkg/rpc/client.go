package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/solbotics/trade-engine/pkg/config"
)

// Client wraps solana-go rpc.Client with retry, timeout, and rate limiting.
// It is the single shared handle to the chain: constructed once, injected
// into every component, and safe for concurrent read-only calls.
type Client struct {
	raw     *solanarpc.Client
	cfg     config.RPCConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient builds a configured Client.
func NewClient(cfg config.RPCConfig) *Client {
	endpoint := cfg.ResolveRPCURL()
	rpcClient := solanarpc.New(endpoint)

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst == 0 {
			burst = int(cfg.RateLimit.RPS * 2)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}

	log := cfg.Logger
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}

	return &Client{
		raw:     rpcClient,
		cfg:     cfg,
		limiter: limiter,
		log:     log,
	}
}

// Raw exposes the underlying solana-go client.
func (c *Client) Raw() *solanarpc.Client {
	return c.raw
}

// Commitment returns the configured commitment level.
func (c *Client) Commitment() solanarpc.CommitmentType {
	return solanarpc.CommitmentType(c.cfg.Commitment)
}

// GetLatestBlockhash fetches the latest blockhash at the configured commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*solanarpc.GetLatestBlockhashResult, error) {
	var out *solanarpc.GetLatestBlockhashResult
	err := c.call(ctx, "getLatestBlockhash", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetLatestBlockhash(ctx, solanarpc.CommitmentType(c.cfg.Commitment))
		return err
	})
	return out, err
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error) {
	var sig solana.Signature
	err := c.call(ctx, "sendTransaction", func(ctx context.Context) error {
		var err error
		sig, err = c.raw.SendTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return sig, err
}

// SimulateTransaction simulates a transaction without broadcasting it.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts *solanarpc.SimulateTransactionOpts) (*solanarpc.SimulateTransactionResponse, error) {
	var res *solanarpc.SimulateTransactionResponse
	err := c.call(ctx, "simulateTransaction", func(ctx context.Context) error {
		var err error
		res, err = c.raw.SimulateTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return res, err
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var out uint64
	err := c.call(ctx, "getBalance", func(ctx context.Context) error {
		res, err := c.raw.GetBalance(ctx, account, solanarpc.CommitmentType(c.cfg.Commitment))
		if err != nil {
			return err
		}
		out = res.Value
		return nil
	})
	return out, err
}

// GetTokenBalance returns the base-unit balance of a token account. A
// missing account reads as zero balance.
func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var out uint64
	err := c.call(ctx, "getTokenAccountBalance", func(ctx context.Context) error {
		res, err := c.raw.GetTokenAccountBalance(ctx, account, solanarpc.CommitmentType(c.cfg.Commitment))
		if err != nil {
			if strings.Contains(err.Error(), "could not find account") {
				out = 0
				return nil
			}
			return err
		}
		if res == nil || res.Value == nil {
			out = 0
			return nil
		}
		amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
		if err != nil {
			return fmt.Errorf("parse token balance %q: %w", res.Value.Amount, err)
		}
		out = amount
		return nil
	})
	return out, err
}

// GetTransaction fetches a confirmed transaction with metadata.
func (c *Client) GetTransaction(ctx context.Context, sig solana.Signature) (*solanarpc.GetTransactionResult, error) {
	var out *solanarpc.GetTransactionResult
	maxVersion := uint64(0)
	err := c.call(ctx, "getTransaction", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetTransaction(ctx, sig, &solanarpc.GetTransactionOpts{
			Commitment:                     solanarpc.CommitmentType(c.cfg.Commitment),
			MaxSupportedTransactionVersion: &maxVersion,
		})
		return err
	})
	return out, err
}

// GetMultipleAccounts pulls several accounts in one call, keyed by address.
func (c *Client) GetMultipleAccounts(ctx context.Context, addrs ...solana.PublicKey) (map[string]*solanarpc.Account, error) {
	if len(addrs) == 0 {
		return map[string]*solanarpc.Account{}, nil
	}
	var res *solanarpc.GetMultipleAccountsResult
	err := c.call(ctx, "getMultipleAccounts", func(ctx context.Context) error {
		var err error
		res, err = c.raw.GetMultipleAccountsWithOpts(ctx, addrs, &solanarpc.GetMultipleAccountsOpts{
			Commitment: solanarpc.CommitmentType(c.cfg.Commitment),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*solanarpc.Account, len(addrs))
	for i, v := range res.Value {
		if v == nil {
			continue
		}
		out[addrs[i].String()] = v
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if !c.cfg.Retry.Enabled {
		return fn(ctx)
	}

	attempts := c.cfg.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		if !retryable(err) || i == attempts-1 {
			break
		}
		backoff := c.backoff(i)
		c.log.Debug().
			Str("op", op).
			Int("attempt", i+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("rpc retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := c.cfg.Retry.InitialBackoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > c.cfg.Retry.MaxBackoff && c.cfg.Retry.MaxBackoff > 0 {
			delay = c.cfg.Retry.MaxBackoff
			break
		}
	}
	if c.cfg.Retry.Jitter {
		jitter := rand.Int63n(int64(delay / 2))
		delay = delay/2 + time.Duration(jitter)
	}
	return delay
}

func retryable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Conservative: retry on all other errors to keep liveness unless caller decides otherwise.
	return true
}
