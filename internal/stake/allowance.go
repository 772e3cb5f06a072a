package stake

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/counterstake/bridge-client/internal/bridgeabi"
)

var ErrInvalidApproval = errors.New("stake: invalid approval request")

// ApprovalCeiling is the default approve amount: large enough to amortize
// future deposits (no repeated approval transactions), below MaxUint256 so
// an accidental max stands out.
var ApprovalCeiling = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

// CallBackend is the read surface allowance checks need.
type CallBackend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// AllowanceStatus reports an allowance precheck.
type AllowanceStatus struct {
	Sufficient bool
	// Current is nil for native tokens, which have no allowance concept.
	Current *big.Int
}

// EnsureAllowance checks owner's ERC20 allowance toward spender. The zero
// token address is the native-coin sentinel and short-circuits as sufficient
// without any RPC call.
func EnsureAllowance(ctx context.Context, backend CallBackend, token, owner, spender common.Address, required *big.Int) (AllowanceStatus, error) {
	if token == (common.Address{}) {
		return AllowanceStatus{Sufficient: true}, nil
	}
	if required == nil || required.Sign() < 0 {
		return AllowanceStatus{}, fmt.Errorf("%w: required amount must be >= 0", ErrInvalidApproval)
	}

	calldata, err := bridgeabi.PackAllowance(owner, spender)
	if err != nil {
		return AllowanceStatus{}, err
	}
	ret, err := backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: calldata}, nil)
	if err != nil {
		return AllowanceStatus{}, fmt.Errorf("stake: allowance call: %w", err)
	}
	current, err := bridgeabi.UnpackAllowance(ret)
	if err != nil {
		return AllowanceStatus{}, err
	}
	return AllowanceStatus{
		Sufficient: current.Cmp(required) >= 0,
		Current:    current,
	}, nil
}

// ApproveCalldata builds a single approve(spender, ApprovalCeiling) call.
func ApproveCalldata(spender common.Address) ([]byte, error) {
	return bridgeabi.PackApprove(spender, ApprovalCeiling)
}

// DualApprovalBatch packs both ERC20 approvals a wrapped-import assistant
// deposit needs into one batchAll transaction. Issuing them atomically closes
// the window where a concurrent reader observes one approval and treats the
// pair as sufficient.
func DualApprovalBatch(stakeToken, imageToken, spender common.Address) ([]byte, error) {
	if stakeToken == (common.Address{}) || imageToken == (common.Address{}) {
		return nil, fmt.Errorf("%w: both tokens must be contracts", ErrInvalidApproval)
	}
	if stakeToken == imageToken {
		return nil, fmt.Errorf("%w: stake and image token are the same", ErrInvalidApproval)
	}

	approveStake, err := bridgeabi.PackApprove(spender, ApprovalCeiling)
	if err != nil {
		return nil, err
	}
	approveImage, err := bridgeabi.PackApprove(spender, ApprovalCeiling)
	if err != nil {
		return nil, err
	}
	return bridgeabi.PackBatchAll(
		[]common.Address{stakeToken, imageToken},
		[]*big.Int{nil, nil},
		[][]byte{approveStake, approveImage},
		[]uint64{0, 0},
	)
}
