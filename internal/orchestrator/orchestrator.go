// Package orchestrator drives the multi-step transaction flow:
// approve → verify allowance → simulate → submit → confirm, with
// network-mismatch detection and chain switching before submission.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/counterstake/bridge-client/internal/stake"
	"github.com/counterstake/bridge-client/internal/wallet"
)

var ErrInvalidConfig = errors.New("orchestrator: invalid config")

type State int

const (
	StateIdle State = iota
	StateApproving
	StateApproved
	StateSubmitting
	StateConfirming
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateApproving:
		return "approving"
	case StateApproved:
		return "approved"
	case StateSubmitting:
		return "submitting"
	case StateConfirming:
		return "confirming"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Config struct {
	Provider wallet.Provider

	// MaxSwitchWait bounds the wait for the wallet's chain-changed event
	// after a switch request. On expiry the operation fails with
	// ErrSwitchTimeout rather than hanging.
	MaxSwitchWait time.Duration

	// PostConfirmDelay is slept after a successful confirmation before
	// returning, so that lagging RPC nodes catch up before any re-fetch.
	PostConfirmDelay time.Duration

	ReceiptPollInterval time.Duration

	Logger *slog.Logger

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

type Orchestrator struct {
	provider wallet.Provider
	cfg      Config
	log      *slog.Logger

	mu    sync.Mutex
	state State
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrInvalidConfig)
	}
	if cfg.MaxSwitchWait <= 0 {
		cfg.MaxSwitchWait = 90 * time.Second
	}
	if cfg.PostConfirmDelay < 0 {
		return nil, fmt.Errorf("%w: negative post-confirm delay", ErrInvalidConfig)
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	return &Orchestrator{provider: cfg.Provider, cfg: cfg, log: cfg.Logger, state: StateIdle}, nil
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.log.Debug("state", "state", s.String())
}

// Plan is one submit-ready operation: the transaction itself plus its
// allowance precondition.
type Plan struct {
	// ChainID is the network the transaction must land on.
	ChainID uint64

	To    common.Address
	Data  []byte
	Value *big.Int

	// Token/Spender/Required describe the ERC20 allowance precondition.
	// A zero Token is the native sentinel: no approval step at all.
	Token    common.Address
	Spender  common.Address
	Required *big.Int

	// ApprovalTx overrides the default single approve with prebuilt
	// calldata against ApprovalTarget (the batched dual approval of
	// wrapped-import assistants).
	ApprovalTx     []byte
	ApprovalTarget common.Address
}

// Execute runs the plan through the full state machine and returns the
// mined receipt. Any failure moves the machine to failed and propagates a
// classifiable error.
func (o *Orchestrator) Execute(ctx context.Context, plan Plan) (*types.Receipt, error) {
	o.setState(StateIdle)

	receipt, err := o.execute(ctx, plan)
	if err != nil {
		o.setState(StateFailed)
		return nil, err
	}
	o.setState(StateSucceeded)
	return receipt, nil
}

func (o *Orchestrator) execute(ctx context.Context, plan Plan) (*types.Receipt, error) {
	if len(plan.Data) == 0 {
		return nil, fmt.Errorf("%w: empty calldata", ErrInvalidConfig)
	}
	if plan.ChainID == 0 {
		return nil, fmt.Errorf("%w: no chain id on plan", ErrConfiguration)
	}

	if err := o.ensureChain(ctx, plan.ChainID); err != nil {
		return nil, err
	}

	if err := o.ensureApproved(ctx, plan); err != nil {
		return nil, err
	}

	// Dry-run with identical arguments before spending gas; a simulated
	// revert carries the precise contract reason.
	if err := o.simulate(ctx, plan.To, plan.Value, plan.Data); err != nil {
		return nil, err
	}

	o.setState(StateSubmitting)
	txHash, err := o.provider.SendTransaction(ctx, wallet.TxRequest{
		To:    plan.To,
		Data:  plan.Data,
		Value: plan.Value,
	})
	if err != nil {
		return nil, err
	}
	o.log.Info("transaction submitted", "tx", txHash)

	o.setState(StateConfirming)
	receipt, err := o.waitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s", ErrExecutionFailed, txHash)
	}

	if o.cfg.PostConfirmDelay > 0 {
		if err := o.cfg.Sleep(ctx, o.cfg.PostConfirmDelay); err != nil {
			return nil, err
		}
	}
	return receipt, nil
}

// ensureChain verifies the wallet's active chain and switches when needed.
// The switch is trusted only after a chain-changed event arrives and a fresh
// ChainID read agrees; the RPC call returning success is not enough.
func (o *Orchestrator) ensureChain(ctx context.Context, want uint64) error {
	active, err := o.provider.ChainID(ctx)
	if err != nil {
		return err
	}
	if active == want {
		return nil
	}
	o.log.Info("switching chain", "from", active, "to", want)

	events := o.provider.ChainChanged()
	if err := o.provider.SwitchChain(ctx, want); err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkMismatch, err)
	}

	deadline := time.NewTimer(o.cfg.MaxSwitchWait)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: waited %s for chain %d", ErrSwitchTimeout, o.cfg.MaxSwitchWait, want)
		case got := <-events:
			if got != want {
				continue
			}
			active, err := o.provider.ChainID(ctx)
			if err != nil {
				return err
			}
			if active != want {
				return fmt.Errorf("%w: wallet reports chain %d after switch to %d", ErrNetworkMismatch, active, want)
			}
			return nil
		}
	}
}

func (o *Orchestrator) ensureApproved(ctx context.Context, plan Plan) error {
	if plan.Token == (common.Address{}) {
		// Native stake: approving is skipped entirely.
		return nil
	}

	status, err := stake.EnsureAllowance(ctx, providerCaller{o.provider}, plan.Token, o.provider.From(), plan.Spender, plan.Required)
	if err != nil {
		return err
	}
	if status.Sufficient {
		return nil
	}

	o.setState(StateApproving)

	target := plan.Token
	calldata := plan.ApprovalTx
	if len(calldata) == 0 {
		if calldata, err = stake.ApproveCalldata(plan.Spender); err != nil {
			return err
		}
	} else {
		target = plan.ApprovalTarget
		if target == (common.Address{}) {
			return fmt.Errorf("%w: approval calldata without target", ErrInvalidConfig)
		}
	}

	if err := o.simulate(ctx, target, nil, calldata); err != nil {
		return err
	}
	txHash, err := o.provider.SendTransaction(ctx, wallet.TxRequest{To: target, Data: calldata})
	if err != nil {
		return err
	}
	receipt, err := o.waitMined(ctx, txHash)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: approval tx %s", ErrExecutionFailed, txHash)
	}

	// Re-verify rather than assume: the allowance the chain reports is
	// what later calls will see.
	status, err = stake.EnsureAllowance(ctx, providerCaller{o.provider}, plan.Token, o.provider.From(), plan.Spender, plan.Required)
	if err != nil {
		return err
	}
	if !status.Sufficient {
		return fmt.Errorf("%w: allowance still insufficient after approval", ErrExecutionFailed)
	}
	o.setState(StateApproved)
	return nil
}

func (o *Orchestrator) simulate(ctx context.Context, to common.Address, value *big.Int, data []byte) error {
	_, err := o.provider.CallContract(ctx, ethereum.CallMsg{
		From:  o.provider.From(),
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err == nil {
		return nil
	}
	if reason, ok := revertReason(err); ok {
		return &SimulationRevertError{Reason: reason}
	}
	return fmt.Errorf("orchestrator: simulation failed: %w", err)
}

func (o *Orchestrator) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := o.provider.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		if err := o.cfg.Sleep(ctx, o.cfg.ReceiptPollInterval); err != nil {
			return nil, err
		}
	}
}

type providerCaller struct {
	p wallet.Provider
}

func (c providerCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return c.p.CallContract(ctx, msg)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
