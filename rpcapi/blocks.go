package rpcapi

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/summit-chain/evmix/chainstate"
)

// BlockResult is what eth_getBlockByNumber/Hash returns: the header plus
// the block's transaction hashes. Full transaction bodies are not
// returned.
type BlockResult struct {
	Header       *types.Header
	Transactions []common.Hash
}

// BlockNumber implements eth_blockNumber.
func (b *Backend) BlockNumber(ctx context.Context) (uint32, error) {
	return b.Getter.LatestHeight(ctx)
}

// GetBlockByNumber implements eth_getBlockByNumber. A missing block
// resolves to (nil, nil) — spec.md §7's NotFound-as-null rule.
func (b *Backend) GetBlockByNumber(ctx context.Context, bn chainstate.BlockNumber) (*BlockResult, error) {
	height, _, err := b.resolveHeight(ctx, bn)
	if err != nil {
		if chainstate.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	hash, ok, err := b.Getter.GetBlockHashByHeight(ctx, height)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return b.GetBlockByHash(ctx, hash)
}

// GetBlockByHash implements eth_getBlockByHash.
func (b *Backend) GetBlockByHash(ctx context.Context, hash common.Hash) (*BlockResult, error) {
	block, ok, err := b.Getter.GetBlockByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &BlockResult{Header: block.Header, Transactions: block.Transactions}, nil
}

// GetBlockTransactionCountByHash implements
// eth_getBlockTransactionCountByHash.
func (b *Backend) GetBlockTransactionCountByHash(ctx context.Context, hash common.Hash) (*uint64, error) {
	block, ok, err := b.Getter.GetBlockByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	n := uint64(len(block.Transactions))
	return &n, nil
}

// GetBalance implements eth_getBalance.
func (b *Backend) GetBalance(ctx context.Context, addr common.Address, bn chainstate.BlockNumber) (*big.Int, error) {
	height, pending, err := b.resolveHeight(ctx, bn)
	if err != nil {
		return nil, err
	}
	if pending {
		if bal, ok, err := b.Getter.GetPendingBalance(ctx, addr); err != nil {
			return nil, err
		} else if ok {
			return bal.ToBig(), nil
		}
	}
	bal, err := b.Getter.GetBalance(ctx, height, addr)
	if err != nil {
		return nil, err
	}
	return bal.ToBig(), nil
}

// GetTransactionCount implements eth_getTransactionCount.
func (b *Backend) GetTransactionCount(ctx context.Context, addr common.Address, bn chainstate.BlockNumber) (uint64, error) {
	height, pending, err := b.resolveHeight(ctx, bn)
	if err != nil {
		return 0, err
	}
	if pending {
		if n, ok, err := b.Getter.GetPendingNonce(ctx, addr); err != nil {
			return 0, err
		} else if ok {
			return n, nil
		}
	}
	return b.Getter.GetNonce(ctx, height, addr)
}

// GetCode implements eth_getCode.
func (b *Backend) GetCode(ctx context.Context, addr common.Address, bn chainstate.BlockNumber) ([]byte, error) {
	height, pending, err := b.resolveHeight(ctx, bn)
	if err != nil {
		return nil, err
	}
	if pending {
		if code, ok, err := b.Getter.GetPendingCode(ctx, addr); err != nil {
			return nil, err
		} else if ok {
			return code, nil
		}
	}
	return b.Getter.GetByteCode(ctx, height, addr)
}

// GetStorageAt implements eth_getStorageAt.
func (b *Backend) GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash, bn chainstate.BlockNumber) (common.Hash, error) {
	height, pending, err := b.resolveHeight(ctx, bn)
	if err != nil {
		return common.Hash{}, err
	}
	if pending {
		if v, ok, err := b.Getter.GetPendingState(ctx, addr, slot); err != nil {
			return common.Hash{}, err
		} else if ok {
			return v, nil
		}
	}
	return b.Getter.GetState(ctx, height, addr, slot)
}

// ChainId implements eth_chainId.
func (b *Backend) ChainId() *big.Int {
	return b.ChainID
}

// GasPriceSuggestion implements eth_gasPrice: this service is read-only
// against a fixed-fee chain, so it returns the configured flat price
// rather than estimating from recent blocks.
func (b *Backend) GasPriceSuggestion() *big.Int {
	return b.GasPrice
}

// Syncing implements eth_syncing.
func (b *Backend) Syncing(ctx context.Context) (bool, error) {
	return b.Upstream.IsSyncing(ctx)
}

// NetVersion implements net_version.
func (b *Backend) NetVersion() string {
	return b.ChainID.String()
}
