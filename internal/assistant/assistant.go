// Package assistant reads pooled-liquidity assistant state: fee schedule,
// manager, and a depositor's share position.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/counterstake/bridge-client/internal/bridgeabi"
	"github.com/counterstake/bridge-client/internal/network"
)

var ErrInvalidDeposit = errors.New("assistant: invalid deposit request")

// CallBackend is the read surface pool-stat queries need.
type CallBackend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Fees are the assistant's fee schedule in basis points of 1e4.
type Fees struct {
	Management uint16
	Success    uint16
	Swap       uint16
}

// Stats is a point-in-time read of one assistant pool.
type Stats struct {
	Assistant common.Address
	Manager   common.Address
	Fees      Fees
	// ShareDecimals come from the assistant's own ERC20 share token.
	ShareDecimals uint8
}

// Position is one account's share holding in a pool.
type Position struct {
	Assistant common.Address
	Account   common.Address
	Shares    *big.Int
}

func feeView(ctx context.Context, backend CallBackend, assistant common.Address, name string) (uint16, error) {
	calldata, err := bridgeabi.PackAssistantFeeCall(name)
	if err != nil {
		return 0, err
	}
	ret, err := backend.CallContract(ctx, ethereum.CallMsg{To: &assistant, Data: calldata}, nil)
	if err != nil {
		return 0, fmt.Errorf("assistant: %s call: %w", name, err)
	}
	return bridgeabi.UnpackAssistantFee(name, ret)
}

// FetchStats reads the fee views, manager and share decimals of one pool.
func FetchStats(ctx context.Context, backend CallBackend, assistant common.Address) (Stats, error) {
	stats := Stats{Assistant: assistant}

	var err error
	if stats.Fees.Management, err = feeView(ctx, backend, assistant, "management_fee10000"); err != nil {
		return Stats{}, err
	}
	if stats.Fees.Success, err = feeView(ctx, backend, assistant, "success_fee10000"); err != nil {
		return Stats{}, err
	}
	if stats.Fees.Swap, err = feeView(ctx, backend, assistant, "swap_fee10000"); err != nil {
		return Stats{}, err
	}

	calldata, err := bridgeabi.PackManagerAddressCall()
	if err != nil {
		return Stats{}, err
	}
	ret, err := backend.CallContract(ctx, ethereum.CallMsg{To: &assistant, Data: calldata}, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("assistant: managerAddress call: %w", err)
	}
	if stats.Manager, err = bridgeabi.UnpackManagerAddress(ret); err != nil {
		return Stats{}, err
	}

	calldata, err = bridgeabi.PackDecimalsCall()
	if err != nil {
		return Stats{}, err
	}
	ret, err = backend.CallContract(ctx, ethereum.CallMsg{To: &assistant, Data: calldata}, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("assistant: decimals call: %w", err)
	}
	if stats.ShareDecimals, err = bridgeabi.UnpackDecimals(ret); err != nil {
		return Stats{}, err
	}

	return stats, nil
}

// FetchPosition reads account's share balance in the pool. Shares are the
// assistant contract's own ERC20 balance.
func FetchPosition(ctx context.Context, backend CallBackend, assistant, account common.Address) (Position, error) {
	calldata, err := bridgeabi.PackBalanceOf(account)
	if err != nil {
		return Position{}, err
	}
	ret, err := backend.CallContract(ctx, ethereum.CallMsg{To: &assistant, Data: calldata}, nil)
	if err != nil {
		return Position{}, fmt.Errorf("assistant: balanceOf call: %w", err)
	}
	shares, err := bridgeabi.UnpackBalanceOf(ret)
	if err != nil {
		return Position{}, err
	}
	return Position{Assistant: assistant, Account: account, Shares: shares}, nil
}

// Deposit describes the token amounts one buyShares call must carry.
type Deposit struct {
	// StakeAmount is always required.
	StakeAmount *big.Int
	// ImageAmount is set only for wrapped-import pools, which take both the
	// stake token and the wrapped image token.
	ImageAmount *big.Int
	// NeedsImage reports whether ImageAmount participates at all.
	NeedsImage bool
}

// PrepareDeposit validates the amounts a deposit into cfg's pool must carry.
// Wrapped-import pools require both legs; every other pool type takes the
// stake token alone and rejects a stray image amount.
func PrepareDeposit(cfg network.AssistantConfig, stakeAmount, imageAmount *big.Int) (Deposit, error) {
	if stakeAmount == nil || stakeAmount.Sign() <= 0 {
		return Deposit{}, fmt.Errorf("%w: stake amount must be > 0", ErrInvalidDeposit)
	}

	if cfg.Type == network.BridgeImportWrapper {
		if imageAmount == nil || imageAmount.Sign() <= 0 {
			return Deposit{}, fmt.Errorf("%w: wrapped-import pool requires an image amount", ErrInvalidDeposit)
		}
		return Deposit{
			StakeAmount: new(big.Int).Set(stakeAmount),
			ImageAmount: new(big.Int).Set(imageAmount),
			NeedsImage:  true,
		}, nil
	}

	if imageAmount != nil && imageAmount.Sign() != 0 {
		return Deposit{}, fmt.Errorf("%w: pool type %s takes the stake token only", ErrInvalidDeposit, cfg.Type)
	}
	return Deposit{StakeAmount: new(big.Int).Set(stakeAmount)}, nil
}
