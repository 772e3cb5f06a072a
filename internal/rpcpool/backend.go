package rpcpool

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend adapts the pool to the read-side interface the scanners and
// calculators consume, with endpoint rotation behind every call.
type Backend struct {
	pool *Pool
}

func (p *Pool) Backend() *Backend {
	return &Backend{pool: p}
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	var out uint64
	err := b.pool.Do(ctx, func(ctx context.Context, c *ethclient.Client) error {
		n, err := c.BlockNumber(ctx)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

func (b *Backend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var out []types.Log
	err := b.pool.Do(ctx, func(ctx context.Context, c *ethclient.Client) error {
		logs, err := c.FilterLogs(ctx, q)
		if err != nil {
			return err
		}
		out = logs
		return nil
	})
	return out, err
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := b.pool.Do(ctx, func(ctx context.Context, c *ethclient.Client) error {
		ret, err := c.CallContract(ctx, msg, blockNumber)
		if err != nil {
			return err
		}
		out = ret
		return nil
	})
	return out, err
}
