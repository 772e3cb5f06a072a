package orchestrator

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/counterstake/bridge-client/internal/bridgeabi"
	"github.com/counterstake/bridge-client/internal/claims"
	"github.com/counterstake/bridge-client/internal/network"
	"github.com/counterstake/bridge-client/internal/stake"
)

// ClaimParams describe one claim submission on the destination chain.
type ClaimParams struct {
	Txid          string
	Txts          uint32
	Amount        *big.Int
	Reward        *big.Int
	Stake         *big.Int
	SenderAddress string
	Recipient     common.Address
	Data          string
}

// ClaimPlan builds the plan for submitting a new claim on a bridge.
func ClaimPlan(cfg network.NetworkConfig, bridge network.BridgeConfig, p ClaimParams) (Plan, error) {
	data, err := bridgeabi.PackClaim(p.Txid, p.Txts, p.Amount, p.Reward, p.Stake, p.SenderAddress, p.Recipient, p.Data)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		ChainID: cfg.ChainID,
		To:      bridge.Address,
		Data:    data,
	}
	total := new(big.Int).Set(p.Stake)
	if bridge.Type.IsImport() && sameToken(bridge.StakeTokenAddress, bridge.ForeignTokenAddress) {
		// Import claims paid in the image token stake amount+stake together.
		total.Add(total, p.Amount)
	}
	applyStakePayment(&plan, bridge, total)
	return plan, nil
}

// ChallengePlan builds the plan for challenging an existing claim with the
// opposing outcome. The calldata carries the claim's on-chain number; the
// display index never reaches the wire.
func ChallengePlan(cfg network.NetworkConfig, c claims.Claim, outcome claims.Outcome, stakeAmount *big.Int) (Plan, error) {
	if outcome != c.CurrentOutcome.Opposite() {
		return Plan{}, fmt.Errorf("%w: can only challenge with outcome %s", ErrConfiguration, c.CurrentOutcome.Opposite())
	}
	bridge, ok := cfg.Bridges[network.AddrKey(c.BridgeAddress)]
	if !ok {
		return Plan{}, fmt.Errorf("%w: bridge %s not configured on %s", ErrConfiguration, c.BridgeAddress, cfg.Key)
	}

	data, err := bridgeabi.PackChallenge(c.BigClaimNum(), uint8(outcome), stakeAmount)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{
		ChainID: cfg.ChainID,
		To:      bridge.Address,
		Data:    data,
	}
	applyStakePayment(&plan, bridge, stakeAmount)
	return plan, nil
}

// CounterStakePlan is ChallengePlan with the stake computed at the protocol
// minimum.
func CounterStakePlan(cfg network.NetworkConfig, c claims.Claim) (Plan, error) {
	required, outcome, err := stake.RequiredCounterStake(c)
	if err != nil {
		return Plan{}, err
	}
	return ChallengePlan(cfg, c, outcome, required)
}

// WithdrawPlan collects a finished claim's payout.
func WithdrawPlan(cfg network.NetworkConfig, c claims.Claim) (Plan, error) {
	data, err := bridgeabi.PackWithdraw(c.BigClaimNum())
	if err != nil {
		return Plan{}, err
	}
	return Plan{ChainID: cfg.ChainID, To: c.BridgeAddress, Data: data}, nil
}

// BuySharesParams describe one assistant deposit.
type BuySharesParams struct {
	StakeAmount *big.Int
	// ImageAmount is set only for wrapped-import assistants, which take the
	// stake asset and the image asset in one call.
	ImageAmount *big.Int

	StakeToken common.Address
	ImageToken common.Address
	// BatchPrecompile executes the atomic dual approval when both tokens
	// are contracts.
	BatchPrecompile common.Address
}

func BuySharesPlan(cfg network.NetworkConfig, assistant network.AssistantConfig, p BuySharesParams) (Plan, error) {
	plan := Plan{ChainID: cfg.ChainID, To: assistant.Address}

	if p.ImageAmount != nil && assistant.Type == network.BridgeImportWrapper {
		data, err := bridgeabi.PackBuySharesWithImage(p.StakeAmount, p.ImageAmount)
		if err != nil {
			return Plan{}, err
		}
		plan.Data = data
		plan.Token = p.StakeToken
		plan.Spender = assistant.Address
		plan.Required = p.StakeAmount
		if p.StakeToken != (common.Address{}) && p.ImageToken != (common.Address{}) {
			if p.BatchPrecompile == (common.Address{}) {
				return Plan{}, fmt.Errorf("%w: dual approval needs a batch precompile address", ErrConfiguration)
			}
			batch, err := stake.DualApprovalBatch(p.StakeToken, p.ImageToken, assistant.Address)
			if err != nil {
				return Plan{}, err
			}
			plan.ApprovalTx = batch
			plan.ApprovalTarget = p.BatchPrecompile
		}
		return plan, nil
	}

	data, err := bridgeabi.PackBuyShares(p.StakeAmount)
	if err != nil {
		return Plan{}, err
	}
	plan.Data = data
	if p.StakeToken == (common.Address{}) {
		plan.Value = p.StakeAmount
	} else {
		plan.Token = p.StakeToken
		plan.Spender = assistant.Address
		plan.Required = p.StakeAmount
	}
	return plan, nil
}

func RedeemSharesPlan(cfg network.NetworkConfig, assistant network.AssistantConfig, shares *big.Int) (Plan, error) {
	data, err := bridgeabi.PackRedeemShares(shares)
	if err != nil {
		return Plan{}, err
	}
	// Shares are burned by the assistant itself; no allowance precondition.
	return Plan{ChainID: cfg.ChainID, To: assistant.Address, Data: data}, nil
}

func WithdrawManagementFeePlan(cfg network.NetworkConfig, assistant network.AssistantConfig) (Plan, error) {
	data, err := bridgeabi.PackWithdrawManagementFee()
	if err != nil {
		return Plan{}, err
	}
	return Plan{ChainID: cfg.ChainID, To: assistant.Address, Data: data}, nil
}

func WithdrawSuccessFeePlan(cfg network.NetworkConfig, assistant network.AssistantConfig) (Plan, error) {
	data, err := bridgeabi.PackWithdrawSuccessFee()
	if err != nil {
		return Plan{}, err
	}
	return Plan{ChainID: cfg.ChainID, To: assistant.Address, Data: data}, nil
}

func AssignNewManagerPlan(cfg network.NetworkConfig, assistant network.AssistantConfig, newManager common.Address) (Plan, error) {
	data, err := bridgeabi.PackAssignNewManager(newManager)
	if err != nil {
		return Plan{}, err
	}
	return Plan{ChainID: cfg.ChainID, To: assistant.Address, Data: data}, nil
}

// applyStakePayment routes the stake through msg.value for a native stake
// token and through the allowance precondition otherwise.
func applyStakePayment(plan *Plan, bridge network.BridgeConfig, amount *big.Int) {
	if bridge.StakeTokenAddress == (common.Address{}) {
		plan.Value = amount
		return
	}
	plan.Token = bridge.StakeTokenAddress
	plan.Spender = bridge.Address
	plan.Required = amount
}

func sameToken(a, b common.Address) bool { return a == b }
