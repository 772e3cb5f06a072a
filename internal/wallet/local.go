package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/counterstake/bridge-client/internal/rpcpool"
)

var ErrInvalidWalletConfig = errors.New("wallet: invalid config")

// LocalWallet signs with a local key and submits through per-chain RPC
// pools. Switching chains is instantaneous but still flows through the
// ChainChanged event so orchestration code exercises the same path a remote
// wallet would.
type LocalWallet struct {
	signer Signer

	mu      sync.Mutex
	pools   map[uint64]*rpcpool.Pool
	active  uint64
	changed chan uint64
}

func NewLocalWallet(signer Signer, pools map[uint64]*rpcpool.Pool, initialChain uint64) (*LocalWallet, error) {
	if signer == nil || (signer.Address() == common.Address{}) {
		return nil, fmt.Errorf("%w: nil signer", ErrInvalidWalletConfig)
	}
	if len(pools) == 0 {
		return nil, fmt.Errorf("%w: no chains configured", ErrInvalidWalletConfig)
	}
	if _, ok := pools[initialChain]; !ok {
		return nil, fmt.Errorf("%w: initial chain %d not configured", ErrInvalidWalletConfig, initialChain)
	}
	m := make(map[uint64]*rpcpool.Pool, len(pools))
	for id, p := range pools {
		if p == nil {
			return nil, fmt.Errorf("%w: nil pool for chain %d", ErrInvalidWalletConfig, id)
		}
		m[id] = p
	}
	return &LocalWallet{
		signer:  signer,
		pools:   m,
		active:  initialChain,
		changed: make(chan uint64, 8),
	}, nil
}

func (w *LocalWallet) From() common.Address { return w.signer.Address() }

func (w *LocalWallet) ChainID(_ context.Context) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active, nil
}

// AddChain registers a chain the wallet did not know, the local analog of
// wallet_addEthereumChain.
func (w *LocalWallet) AddChain(chainID uint64, pool *rpcpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("%w: nil pool", ErrInvalidWalletConfig)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pools[chainID] = pool
	return nil
}

func (w *LocalWallet) SwitchChain(_ context.Context, chainID uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pools[chainID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	w.active = chainID
	select {
	case w.changed <- chainID:
	default:
		// A slow consumer misses intermediate events, same as a browser
		// wallet; the orchestrator re-verifies ChainID regardless.
	}
	return nil
}

func (w *LocalWallet) ChainChanged() <-chan uint64 { return w.changed }

func (w *LocalWallet) activePool() (*rpcpool.Pool, uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pools[w.active]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownChain, w.active)
	}
	return p, w.active, nil
}

func (w *LocalWallet) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	pool, _, err := w.activePool()
	if err != nil {
		return nil, err
	}
	return pool.Backend().CallContract(ctx, msg, nil)
}

func (w *LocalWallet) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	pool, _, err := w.activePool()
	if err != nil {
		return nil, err
	}
	client, err := pool.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.TransactionReceipt(ctx, txHash)
}

// SendTransaction signs and submits one EIP-1559 transaction on the active
// chain. Writes never rotate endpoints and are never resubmitted.
func (w *LocalWallet) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	pool, chainID, err := w.activePool()
	if err != nil {
		return common.Hash{}, err
	}
	client, err := pool.Client(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	from := w.signer.Address()
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		est, err := client.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &req.To,
			Value: value,
			Data:  req.Data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("wallet: estimate gas: %w", err)
		}
		gasLimit = est + est/5
	}

	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wallet: suggest tip: %w", err)
	}
	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wallet: latest header: %w", err)
	}
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(big.NewInt(2), headerBaseFee(header)))

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wallet: pending nonce: %w", err)
	}

	bigChain := new(big.Int).SetUint64(chainID)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   bigChain,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &req.To,
		Value:     value,
		Data:      req.Data,
	})
	signed, err := w.signer.SignTx(tx, bigChain)
	if err != nil {
		return common.Hash{}, err
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

func headerBaseFee(h *types.Header) *big.Int {
	if h == nil || h.BaseFee == nil {
		return big.NewInt(0)
	}
	return h.BaseFee
}
