package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/counterstake/bridge-client/internal/bridgeabi"
	"github.com/counterstake/bridge-client/internal/rpcpool"
	"github.com/counterstake/bridge-client/internal/wallet"
)

// The write path never swallows errors: every failure surfaces as one of
// these classifiable values so callers can choose user messaging.
var (
	ErrUserRejected      = errors.New("orchestrator: user rejected request")
	ErrInsufficientFunds = errors.New("orchestrator: insufficient funds")
	ErrNetworkMismatch   = errors.New("orchestrator: wallet on wrong network")
	ErrSwitchTimeout     = errors.New("orchestrator: chain switch timed out")
	ErrRPCTransient      = errors.New("orchestrator: transient rpc failure")
	ErrConfiguration     = errors.New("orchestrator: configuration missing")
	ErrExecutionFailed   = errors.New("orchestrator: transaction reverted on-chain")
)

// SimulationRevertError carries the decoded revert reason from a failed
// dry-run; the reason is the primary user-facing message.
type SimulationRevertError struct {
	Reason string
}

func (e *SimulationRevertError) Error() string {
	return fmt.Sprintf("orchestrator: simulation reverted: %s", e.Reason)
}

// Kind buckets errors for user messaging.
type Kind int

const (
	KindUnknown Kind = iota
	KindUserRejected
	KindInsufficientFunds
	KindNetworkMismatch
	KindSimulationRevert
	KindRPCTransient
	KindTimeout
	KindConfiguration
	KindExecutionFailed
)

func (k Kind) String() string {
	switch k {
	case KindUserRejected:
		return "user_rejected"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindNetworkMismatch:
		return "network_mismatch"
	case KindSimulationRevert:
		return "simulation_revert"
	case KindRPCTransient:
		return "rpc_transient"
	case KindTimeout:
		return "timeout"
	case KindConfiguration:
		return "configuration"
	case KindExecutionFailed:
		return "execution_failed"
	default:
		return "unknown"
	}
}

func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUserRejected), errors.Is(err, wallet.ErrRejected):
		return KindUserRejected
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrSwitchTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNetworkMismatch), errors.Is(err, wallet.ErrUnknownChain):
		return KindNetworkMismatch
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrExecutionFailed):
		return KindExecutionFailed
	case errors.Is(err, ErrRPCTransient), errors.Is(err, rpcpool.ErrAllEndpointsFailed):
		return KindRPCTransient
	default:
		var sim *SimulationRevertError
		if errors.As(err, &sim) {
			return KindSimulationRevert
		}
		if isInsufficientFundsMessage(err) {
			return KindInsufficientFunds
		}
		if isUserRejectedMessage(err) {
			return KindUserRejected
		}
		if rpcpool.IsTransient(err) {
			return KindRPCTransient
		}
		return KindUnknown
	}
}

func isUserRejectedMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied")
}

func isInsufficientFundsMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "insufficient funds") || strings.Contains(msg, "insufficient balance")
}

// dataError matches go-ethereum's rpc.DataError, which carries the raw
// revert payload alongside the message.
type dataError interface {
	Error() string
	ErrorData() interface{}
}

// revertReason extracts an Error(string) reason from a failed eth_call.
// ok is false when the error carries no decodable revert payload.
func revertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var de dataError
	if errors.As(err, &de) {
		if hexData, isStr := de.ErrorData().(string); isStr {
			if raw, decErr := hexutil.Decode(hexData); decErr == nil {
				if reason, ok := bridgeabi.DecodeRevert(raw); ok {
					return reason, true
				}
			}
		}
	}
	// Some providers fold the reason into the message text.
	msg := err.Error()
	const marker = "execution reverted"
	if i := strings.Index(strings.ToLower(msg), marker); i >= 0 {
		rest := strings.TrimSpace(msg[i+len(marker):])
		rest = strings.TrimPrefix(rest, ":")
		rest = strings.TrimSpace(rest)
		if rest != "" {
			return rest, true
		}
		return "", true
	}
	return "", false
}
