package config

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Network defines the target Solana cluster.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkDevnet  Network = "devnet"
	NetworkCustom  Network = "custom"
)

// DefaultRPCURL returns the standard RPC endpoint for a known network.
func DefaultRPCURL(network Network) string {
	switch network {
	case NetworkMainnet:
		return "https://api.mainnet-beta.solana.com"
	case NetworkTestnet:
		return "https://api.testnet.solana.com"
	case NetworkDevnet:
		return "https://api.devnet.solana.com"
	default:
		return ""
	}
}

// RetryConfig controls RPC retry behavior.
type RetryConfig struct {
	Enabled        bool
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Jitter         bool
}

// RateLimitConfig throttles outbound RPC calls.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RPCConfig aggregates runtime settings for RPC usage.
type RPCConfig struct {
	Network    Network
	RPCURL     string
	WSURL      string
	Commitment string
	Timeout    time.Duration
	Retry      RetryConfig
	RateLimit  RateLimitConfig
	Logger     zerolog.Logger
}

// DefaultRPCConfig yields production-safe defaults (mainnet, confirmed commitment).
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		Network:    NetworkMainnet,
		RPCURL:     DefaultRPCURL(NetworkMainnet),
		Commitment: "confirmed",
		Timeout:    20 * time.Second,
		Retry: RetryConfig{
			Enabled:        true,
			MaxAttempts:    3,
			InitialBackoff: 150 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Jitter:         true,
		},
		RateLimit: RateLimitConfig{
			RPS:   8,
			Burst: 16,
		},
		Logger: zerolog.New(io.Discard),
	}
}

// ResolveRPCURL returns RPCURL if set, otherwise falls back to network defaults.
func (c RPCConfig) ResolveRPCURL() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	return DefaultRPCURL(c.Network)
}

// ResolveWSURL returns WSURL if set, otherwise derives it from the RPC URL.
func (c RPCConfig) ResolveWSURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	url := c.ResolveRPCURL()
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	default:
		return url
	}
}

// SubmitConfig tunes the transaction submission pipeline.
type SubmitConfig struct {
	// TipFloorLamports is the minimum tip worth routing through the bundle
	// relay; smaller tips go straight to plain broadcast.
	TipFloorLamports uint64
	// BundleTimeout bounds the wait for the relay's inclusion signal.
	BundleTimeout time.Duration
	// FallbackRounds is the number of rebroadcast rounds before giving up.
	FallbackRounds int
	// BroadcastBurst is how many times each round rebroadcasts the raw tx.
	BroadcastBurst int
	// RoundTimeout bounds each round's confirmation wait.
	RoundTimeout time.Duration
}

// DefaultSubmitConfig returns the submission defaults.
func DefaultSubmitConfig() SubmitConfig {
	return SubmitConfig{
		TipFloorLamports: 100_000,
		BundleTimeout:    15 * time.Second,
		FallbackRounds:   50,
		BroadcastBurst:   3,
		RoundTimeout:     1500 * time.Millisecond,
	}
}

// TriggerConfig tunes the auto-trigger poll loop.
type TriggerConfig struct {
	// PollInterval is the cadence of the pending-order scan.
	PollInterval time.Duration
	// MaxWallets bounds the multi-wallet fan-out.
	MaxWallets int
}

// DefaultTriggerConfig returns the trigger defaults.
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		PollInterval: time.Second,
		MaxWallets:   100,
	}
}
