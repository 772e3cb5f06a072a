// Package wallet abstracts the transaction-submitting wallet: what a browser
// extension provides in the original front-end (active chain, chain
// switching, transaction signing) is an interface here, with a local-key
// implementation for headless use.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrUnknownChain = errors.New("wallet: chain not known to wallet")
	ErrRejected     = errors.New("wallet: request rejected")
)

// TxRequest describes one transaction to submit from the wallet's address.
type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64 // 0 => estimate
}

// Provider is the wallet surface the orchestrator drives.
//
// SwitchChain may return before the wallet has actually moved; callers must
// wait for a ChainChanged event and re-verify ChainID rather than trust the
// call's return alone.
type Provider interface {
	From() common.Address
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	ChainChanged() <-chan uint64

	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}
