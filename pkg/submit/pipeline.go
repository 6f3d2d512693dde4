// Package submit drives a built swap through signing, simulation, the
// bundle relay, and the plain-broadcast fallback until it confirms.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/solbotics/trade-engine/pkg/config"
	"github.com/solbotics/trade-engine/pkg/jito"
	"github.com/solbotics/trade-engine/pkg/swap"
	"github.com/solbotics/trade-engine/pkg/types"
	"github.com/solbotics/trade-engine/pkg/wallet"
)

// Path records which delivery route landed the transaction.
type Path string

const (
	PathBundle    Path = "bundle"
	PathBroadcast Path = "broadcast"
)

// Stage is the submission state machine position reported to observers.
type Stage string

const (
	StageSigned    Stage = "signed"
	StageSimulated Stage = "simulated"
	StageBundle    Stage = "bundle"
	StageBroadcast Stage = "broadcast"
	StageConfirmed Stage = "confirmed"
	StageFailed    Stage = "failed"
)

// Result is the terminal state of a successful submission.
type Result struct {
	Signature solana.Signature
	Slot      uint64
	Path      Path
}

// Event is one state transition, pushed to the Notifier as it happens.
type Event struct {
	Stage     Stage
	Signature solana.Signature
	Err       error
}

// Notifier receives submission progress. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// Simulator runs the signed transaction against current chain state without
// broadcasting. A failure means the trade must be re-quoted, not retried.
type Simulator interface {
	Simulate(ctx context.Context, tx *solana.Transaction) error
}

// BundleRelay is the tip-gated fast path.
type BundleRelay interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (jito.Submission, error)
	WaitForInclusion(ctx context.Context, bundleID string) (uint64, error)
}

// Broadcaster pushes the raw transaction to the public mempool.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Confirmer blocks until a signature reaches commitment or the timeout
// elapses, returning the confirmation slot.
type Confirmer interface {
	WaitForSignature(ctx context.Context, sig solana.Signature, timeout time.Duration) (uint64, error)
}

// Pipeline wires the stages together. All collaborators are injected; the
// relay may be nil to disable the bundle path entirely.
type Pipeline struct {
	cfg       config.SubmitConfig
	simulator Simulator
	relay     BundleRelay
	caster    Broadcaster
	confirmer Confirmer
	notifier  Notifier
	log       zerolog.Logger
}

// NewPipeline builds a Pipeline.
func NewPipeline(cfg config.SubmitConfig, sim Simulator, relay BundleRelay, caster Broadcaster, confirmer Confirmer, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		simulator: sim,
		relay:     relay,
		caster:    caster,
		confirmer: confirmer,
		log:       log.With().Str("component", "submit").Logger(),
	}
}

// WithNotifier attaches a progress observer.
func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

func (p *Pipeline) notify(e Event) {
	if p.notifier != nil {
		p.notifier.Notify(e)
	}
}

// Submit signs, simulates, and lands the transaction. The bundle path is
// taken only when the tip clears the configured floor; any relay failure
// falls through to repeated plain broadcasts with short confirmation waits.
func (p *Pipeline) Submit(ctx context.Context, built *swap.BuiltSwap, signer wallet.Signer) (*Result, error) {
	if err := p.sign(ctx, built.Tx, signer); err != nil {
		p.notify(Event{Stage: StageFailed, Err: err})
		return nil, err
	}
	sig := built.Tx.Signatures[0]
	p.notify(Event{Stage: StageSigned, Signature: sig})

	if err := p.simulator.Simulate(ctx, built.Tx); err != nil {
		p.notify(Event{Stage: StageFailed, Signature: sig, Err: err})
		return nil, err
	}
	p.notify(Event{Stage: StageSimulated, Signature: sig})

	if p.relay != nil && built.TipLamports >= p.cfg.TipFloorLamports {
		if res, err := p.viaBundle(ctx, built.Tx); err == nil {
			p.notify(Event{Stage: StageConfirmed, Signature: res.Signature})
			return res, nil
		} else if ctx.Err() != nil {
			p.notify(Event{Stage: StageFailed, Signature: sig, Err: ctx.Err()})
			return nil, ctx.Err()
		} else {
			p.log.Warn().Err(err).Stringer("signature", sig).Msg("bundle path failed, falling back to broadcast")
		}
	}

	res, err := p.viaBroadcast(ctx, built.Tx, sig)
	if err != nil {
		p.notify(Event{Stage: StageFailed, Signature: sig, Err: err})
		return nil, err
	}
	p.notify(Event{Stage: StageConfirmed, Signature: res.Signature})
	return res, nil
}

func (p *Pipeline) sign(ctx context.Context, tx *solana.Transaction, signer wallet.Signer) error {
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	sig, err := signer.SignMessage(ctx, message)
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	tx.Signatures = []solana.Signature{sig}
	return nil
}

func (p *Pipeline) viaBundle(ctx context.Context, tx *solana.Transaction) (*Result, error) {
	sub, err := p.relay.SendTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	p.notify(Event{Stage: StageBundle, Signature: sub.Signature})

	waitCtx := ctx
	if p.cfg.BundleTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.cfg.BundleTimeout)
		defer cancel()
	}
	slot, err := p.relay.WaitForInclusion(waitCtx, sub.BundleID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: bundle %s not included in time", types.ErrBundleRejected, sub.BundleID)
		}
		return nil, err
	}
	return &Result{Signature: sub.Signature, Slot: slot, Path: PathBundle}, nil
}

func (p *Pipeline) viaBroadcast(ctx context.Context, tx *solana.Transaction, sig solana.Signature) (*Result, error) {
	rounds := p.cfg.FallbackRounds
	if rounds <= 0 {
		rounds = 1
	}
	burst := p.cfg.BroadcastBurst
	if burst <= 0 {
		burst = 1
	}

	for round := 0; round < rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := 0; i < burst; i++ {
			if _, err := p.caster.Broadcast(ctx, tx); err != nil {
				// Duplicate-send errors are expected on later rounds.
				p.log.Debug().Int("round", round).Err(err).Msg("broadcast attempt failed")
			}
		}
		p.notify(Event{Stage: StageBroadcast, Signature: sig})

		slot, err := p.confirmer.WaitForSignature(ctx, sig, p.cfg.RoundTimeout)
		if err == nil {
			return &Result{Signature: sig, Slot: slot, Path: PathBroadcast}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Debug().Int("round", round).Err(err).Msg("no confirmation this round")
	}
	return nil, fmt.Errorf("%w: %d broadcast rounds exhausted for %s", types.ErrConfirmationTimeout, rounds, sig)
}
