package bridgeabi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BridgeSettings is the subset of the on-chain settings() tuple the client
// consumes. TokenAddress is the stake token; the zero address means the
// network's native coin.
type BridgeSettings struct {
	TokenAddress        common.Address
	Ratio100            uint16
	CounterstakeCoef100 uint16
	MinTxAge            uint32
	MinStake            *big.Int
	LargeThreshold      *big.Int
}

func PackClaim(txid string, txts uint32, amount, reward, stake *big.Int, senderAddress string, recipient common.Address, data string) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if txid == "" {
		return nil, fmt.Errorf("%w: empty txid", ErrInvalidInput)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be > 0", ErrInvalidInput)
	}
	if stake == nil || stake.Sign() <= 0 {
		return nil, fmt.Errorf("%w: stake must be > 0", ErrInvalidInput)
	}
	if reward == nil {
		reward = big.NewInt(0)
	}
	b, err := bridgeABI.Pack("claim", txid, txts, amount, reward, stake, senderAddress, recipient, data)
	if err != nil {
		return nil, fmt.Errorf("bridgeabi: pack claim: %w", err)
	}
	return b, nil
}

// PackChallenge builds challenge calldata. claimNum must be the on-chain
// claim number from the NewClaim event, not a display index.
func PackChallenge(claimNum *big.Int, outcome uint8, stake *big.Int) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if claimNum == nil || claimNum.Sign() <= 0 {
		return nil, fmt.Errorf("%w: claim number must be > 0", ErrInvalidInput)
	}
	if outcome > 1 {
		return nil, fmt.Errorf("%w: outcome must be 0 or 1", ErrInvalidInput)
	}
	if stake == nil || stake.Sign() <= 0 {
		return nil, fmt.Errorf("%w: stake must be > 0", ErrInvalidInput)
	}
	b, err := bridgeABI.Pack("challenge", claimNum, outcome, stake)
	if err != nil {
		return nil, fmt.Errorf("bridgeabi: pack challenge: %w", err)
	}
	return b, nil
}

func PackWithdraw(claimNum *big.Int) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if claimNum == nil || claimNum.Sign() <= 0 {
		return nil, fmt.Errorf("%w: claim number must be > 0", ErrInvalidInput)
	}
	b, err := bridgeABI.Pack("withdraw", claimNum)
	if err != nil {
		return nil, fmt.Errorf("bridgeabi: pack withdraw: %w", err)
	}
	return b, nil
}

func PackSettingsCall() ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	return bridgeABI.Pack("settings")
}

func UnpackSettings(ret []byte) (BridgeSettings, error) {
	if err := initABI(); err != nil {
		return BridgeSettings{}, err
	}
	var out BridgeSettings
	if err := bridgeABI.UnpackIntoInterface(&out, "settings", ret); err != nil {
		return BridgeSettings{}, fmt.Errorf("bridgeabi: unpack settings: %w", err)
	}
	return out, nil
}

func PackGetRequiredStake(amount *big.Int) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be > 0", ErrInvalidInput)
	}
	return bridgeABI.Pack("getRequiredStake", amount)
}

func UnpackGetRequiredStake(ret []byte) (*big.Int, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	vals, err := bridgeABI.Unpack("getRequiredStake", ret)
	if err != nil {
		return nil, fmt.Errorf("bridgeabi: unpack getRequiredStake: %w", err)
	}
	n, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: getRequiredStake returned %T", ErrInvalidInput, vals[0])
	}
	return n, nil
}

func PackBuyShares(stakeAmount *big.Int) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if stakeAmount == nil || stakeAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: stake amount must be > 0", ErrInvalidInput)
	}
	return assistantABI.Pack("buyShares", stakeAmount)
}

// PackBuySharesWithImage packs the two-argument buyShares overload used by
// wrapped-import assistants (stake asset plus image asset in one call).
// abi.JSON exposes the second overload under the suffixed key.
func PackBuySharesWithImage(stakeAmount, imageAmount *big.Int) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if stakeAmount == nil || stakeAmount.Sign() < 0 || imageAmount == nil || imageAmount.Sign() < 0 {
		return nil, fmt.Errorf("%w: share amounts must be >= 0", ErrInvalidInput)
	}
	if stakeAmount.Sign() == 0 && imageAmount.Sign() == 0 {
		return nil, fmt.Errorf("%w: both share amounts are zero", ErrInvalidInput)
	}
	return assistantABI.Pack("buyShares0", stakeAmount, imageAmount)
}

func PackRedeemShares(sharesAmount *big.Int) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if sharesAmount == nil || sharesAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: shares amount must be > 0", ErrInvalidInput)
	}
	return assistantABI.Pack("redeemShares", sharesAmount)
}

func PackWithdrawManagementFee() ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	return assistantABI.Pack("withdrawManagementFee")
}

func PackWithdrawSuccessFee() ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	return assistantABI.Pack("withdrawSuccessFee")
}

func PackAssignNewManager(newManager common.Address) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if newManager == (common.Address{}) {
		return nil, fmt.Errorf("%w: new manager must be non-zero", ErrInvalidInput)
	}
	return assistantABI.Pack("assignNewManager", newManager)
}

// PackAssistantFeeCall packs one of the assistant uint16 fee views by name
// (management_fee10000, success_fee10000, swap_fee10000).
func PackAssistantFeeCall(name string) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if _, ok := assistantABI.Methods[name]; !ok {
		return nil, fmt.Errorf("%w: no assistant view %q", ErrInvalidInput, name)
	}
	return assistantABI.Pack(name)
}

func UnpackAssistantFee(name string, ret []byte) (uint16, error) {
	if err := initABI(); err != nil {
		return 0, err
	}
	vals, err := assistantABI.Unpack(name, ret)
	if err != nil {
		return 0, fmt.Errorf("bridgeabi: unpack %s: %w", name, err)
	}
	n, ok := vals[0].(uint16)
	if !ok {
		return 0, fmt.Errorf("%w: %s returned %T", ErrInvalidInput, name, vals[0])
	}
	return n, nil
}

func PackManagerAddressCall() ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	return assistantABI.Pack("managerAddress")
}

func UnpackManagerAddress(ret []byte) (common.Address, error) {
	if err := initABI(); err != nil {
		return common.Address{}, err
	}
	vals, err := assistantABI.Unpack("managerAddress", ret)
	if err != nil {
		return common.Address{}, fmt.Errorf("bridgeabi: unpack managerAddress: %w", err)
	}
	a, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: managerAddress returned %T", ErrInvalidInput, vals[0])
	}
	return a, nil
}

func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if spender == (common.Address{}) {
		return nil, fmt.Errorf("%w: spender must be non-zero", ErrInvalidInput)
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: approve amount must be >= 0", ErrInvalidInput)
	}
	return erc20ABI.Pack("approve", spender, amount)
}

func PackAllowance(owner, spender common.Address) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	return erc20ABI.Pack("allowance", owner, spender)
}

func UnpackAllowance(ret []byte) (*big.Int, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	vals, err := erc20ABI.Unpack("allowance", ret)
	if err != nil {
		return nil, fmt.Errorf("bridgeabi: unpack allowance: %w", err)
	}
	n, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: allowance returned %T", ErrInvalidInput, vals[0])
	}
	return n, nil
}

func PackBalanceOf(account common.Address) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	return erc20ABI.Pack("balanceOf", account)
}

func UnpackBalanceOf(ret []byte) (*big.Int, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	vals, err := erc20ABI.Unpack("balanceOf", ret)
	if err != nil {
		return nil, fmt.Errorf("bridgeabi: unpack balanceOf: %w", err)
	}
	n, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: balanceOf returned %T", ErrInvalidInput, vals[0])
	}
	return n, nil
}

func PackDecimalsCall() ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	return erc20ABI.Pack("decimals")
}

func UnpackDecimals(ret []byte) (uint8, error) {
	if err := initABI(); err != nil {
		return 0, err
	}
	vals, err := erc20ABI.Unpack("decimals", ret)
	if err != nil {
		return 0, fmt.Errorf("bridgeabi: unpack decimals: %w", err)
	}
	n, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: decimals returned %T", ErrInvalidInput, vals[0])
	}
	return n, nil
}

// PackBatchAll builds one batchAll call carrying several sub-calls. All four
// slices must be the same length; a zero gas limit lets the precompile
// forward the remaining gas.
func PackBatchAll(targets []common.Address, values []*big.Int, calldata [][]byte, gasLimits []uint64) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	n := len(targets)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
	if len(values) != n || len(calldata) != n || len(gasLimits) != n {
		return nil, fmt.Errorf("%w: batch slice lengths differ", ErrInvalidInput)
	}
	vals := make([]*big.Int, n)
	for i, v := range values {
		if v == nil {
			v = big.NewInt(0)
		}
		vals[i] = v
	}
	b, err := batchABI.Pack("batchAll", targets, vals, calldata, gasLimits)
	if err != nil {
		return nil, fmt.Errorf("bridgeabi: pack batchAll: %w", err)
	}
	return b, nil
}
