package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solbotics/trade-engine/pkg/config"
	"github.com/solbotics/trade-engine/pkg/jito"
	"github.com/solbotics/trade-engine/pkg/swap"
	"github.com/solbotics/trade-engine/pkg/types"
	"github.com/solbotics/trade-engine/pkg/wallet"
)

type fakeSimulator struct {
	err   error
	calls int
}

func (f *fakeSimulator) Simulate(ctx context.Context, tx *solana.Transaction) error {
	f.calls++
	return f.err
}

type fakeRelay struct {
	sendErr   error
	waitErr   error
	slot      uint64
	sendCalls int
}

func (f *fakeRelay) SendTransaction(ctx context.Context, tx *solana.Transaction) (jito.Submission, error) {
	f.sendCalls++
	if f.sendErr != nil {
		return jito.Submission{}, f.sendErr
	}
	return jito.Submission{Signature: tx.Signatures[0], BundleID: "bundle-1"}, nil
}

func (f *fakeRelay) WaitForInclusion(ctx context.Context, bundleID string) (uint64, error) {
	if f.waitErr != nil {
		return 0, f.waitErr
	}
	return f.slot, nil
}

type fakeBroadcaster struct {
	calls int
}

func (f *fakeBroadcaster) Broadcast(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.calls++
	return tx.Signatures[0], nil
}

type fakeConfirmer struct {
	succeedOnCall int
	slot          uint64
	calls         int
}

func (f *fakeConfirmer) WaitForSignature(ctx context.Context, sig solana.Signature, timeout time.Duration) (uint64, error) {
	f.calls++
	if f.succeedOnCall > 0 && f.calls >= f.succeedOnCall {
		return f.slot, nil
	}
	return 0, errors.New("not yet confirmed")
}

func testBuilt(t *testing.T, tip uint64) (*swap.BuiltSwap, wallet.Signer) {
	t.Helper()
	w := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, w.PublicKey(), solana.NewWallet().PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(w.PublicKey()),
	)
	require.NoError(t, err)
	return &swap.BuiltSwap{
		Tx:          tx,
		Owner:       w.PublicKey(),
		TipLamports: tip,
	}, wallet.NewLocalFromPrivateKey(w.PrivateKey)
}

func testConfig() config.SubmitConfig {
	cfg := config.DefaultSubmitConfig()
	cfg.FallbackRounds = 5
	cfg.BroadcastBurst = 2
	cfg.RoundTimeout = 10 * time.Millisecond
	return cfg
}

func TestSubmitBundlePath(t *testing.T) {
	relay := &fakeRelay{slot: 123}
	caster := &fakeBroadcaster{}
	p := NewPipeline(testConfig(), &fakeSimulator{}, relay, caster, &fakeConfirmer{succeedOnCall: 1}, zerolog.Nop())

	built, signer := testBuilt(t, 200_000)
	res, err := p.Submit(context.Background(), built, signer)
	require.NoError(t, err)

	assert.Equal(t, PathBundle, res.Path)
	assert.Equal(t, uint64(123), res.Slot)
	assert.Equal(t, 1, relay.sendCalls)
	assert.Zero(t, caster.calls, "bundle success must not broadcast")
}

func TestSubmitTipBelowFloorSkipsRelay(t *testing.T) {
	relay := &fakeRelay{slot: 123}
	caster := &fakeBroadcaster{}
	p := NewPipeline(testConfig(), &fakeSimulator{}, relay, caster, &fakeConfirmer{succeedOnCall: 1, slot: 99}, zerolog.Nop())

	built, signer := testBuilt(t, 50_000) // below the 100k floor
	res, err := p.Submit(context.Background(), built, signer)
	require.NoError(t, err)

	assert.Equal(t, PathBroadcast, res.Path)
	assert.Equal(t, uint64(99), res.Slot)
	assert.Zero(t, relay.sendCalls)
}

func TestSubmitFallbackAfterBundleFailure(t *testing.T) {
	relay := &fakeRelay{sendErr: types.ErrBundleRejected}
	caster := &fakeBroadcaster{}
	confirmer := &fakeConfirmer{succeedOnCall: 3, slot: 77}
	p := NewPipeline(testConfig(), &fakeSimulator{}, relay, caster, confirmer, zerolog.Nop())

	built, signer := testBuilt(t, 200_000)
	res, err := p.Submit(context.Background(), built, signer)
	require.NoError(t, err)

	assert.Equal(t, PathBroadcast, res.Path)
	assert.Equal(t, uint64(77), res.Slot)
	assert.Equal(t, 3, confirmer.calls, "confirmed on the third round")
	assert.Equal(t, 6, caster.calls, "each round bursts twice")
}

func TestSubmitSimulationFailure(t *testing.T) {
	caster := &fakeBroadcaster{}
	sim := &fakeSimulator{err: types.NewSimulationError("custom program error: 0x28", nil)}
	p := NewPipeline(testConfig(), sim, &fakeRelay{}, caster, &fakeConfirmer{}, zerolog.Nop())

	built, signer := testBuilt(t, 200_000)
	_, err := p.Submit(context.Background(), built, signer)
	assert.ErrorIs(t, err, types.ErrSimulationFailed)
	assert.Zero(t, caster.calls, "failed simulation must never broadcast")
}

func TestSubmitConfirmationTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.FallbackRounds = 3
	confirmer := &fakeConfirmer{} // never confirms
	p := NewPipeline(cfg, &fakeSimulator{}, nil, &fakeBroadcaster{}, confirmer, zerolog.Nop())

	built, signer := testBuilt(t, 0)
	_, err := p.Submit(context.Background(), built, signer)
	assert.ErrorIs(t, err, types.ErrConfirmationTimeout)
	assert.Equal(t, 3, confirmer.calls)
}

func TestSubmitNotifierSequence(t *testing.T) {
	var stages []Stage
	p := NewPipeline(testConfig(), &fakeSimulator{}, &fakeRelay{slot: 1}, &fakeBroadcaster{}, &fakeConfirmer{succeedOnCall: 1}, zerolog.Nop()).
		WithNotifier(NotifierFunc(func(e Event) { stages = append(stages, e.Stage) }))

	built, signer := testBuilt(t, 200_000)
	_, err := p.Submit(context.Background(), built, signer)
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageSigned, StageSimulated, StageBundle, StageConfirmed}, stages)
}
