// Package rpcapi implements the Ethereum JSON-RPC surface (C8) by
// composing the Getter (C4), the EVM backend adapter (C6), and the
// precompile set (C7), grounded on the teacher's rpc/backend/blocks.go,
// tx_info.go, and tx_pool.go for Go-ethereum type usage, logging, and
// error propagation style. Transport (HTTP/WS framing) is out of scope
// (spec.md §1); this package exposes plain Go methods a transport layer
// calls into.
package rpcapi

import (
	"context"
	"math/big"
	"sync"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/summit-chain/evmix/chainstate"
	"github.com/summit-chain/evmix/evmadapter"
	"github.com/summit-chain/evmix/precompiles"
	"github.com/summit-chain/evmix/upstream"
)

// Backend is the composition root every RPC method hangs off, mirroring
// the teacher's own *backend.Backend but generalized off gRPC/ABCI query
// clients and onto the chainstate Getter plus the upstream CometBFT
// client.
type Backend struct {
	Logger   log.Logger
	Getter   *chainstate.Getter
	Upstream *upstream.Client

	ChainID  *big.Int
	GasPrice *big.Int

	filters *filterPool

	// traceMu serializes the debug_trace* path (spec.md §5). The teacher's
	// own trace surface needs this because an embedded JS-tracer runtime is
	// not concurrency-safe; this service only ships the built-in struct-log
	// tracer (SPEC_FULL.md's resolution of the JS-tracer open question) but
	// keeps the same serialization guarantee.
	traceMu sync.Mutex
}

// NewBackend constructs a Backend. gasPrice is the configured flat price
// evmadapter.Config.GasPrice resolves to for every call/estimate built off
// this backend. It also starts the filter pool's background cleaner.
func NewBackend(logger log.Logger, getter *chainstate.Getter, up *upstream.Client, chainID, gasPrice *big.Int) *Backend {
	b := &Backend{
		Logger:   logger.With("module", ModuleName),
		Getter:   getter,
		Upstream: up,
		ChainID:  chainID,
		GasPrice: gasPrice,
		filters:  newFilterPool(),
	}
	go b.filters.runCleaner(context.Background(), getter.LatestHeight)
	return b
}

// adapterConfig builds the evmadapter.Config for a call/estimate/trace at
// the given height, with from as the message origin.
func (b *Backend) adapterConfig(height uint32, pending bool, from common.Address) evmadapter.Config {
	return evmadapter.Config{
		Height:    height,
		IsPending: pending,
		ChainID:   new(big.Int).Set(b.ChainID),
		GasPrice:  new(big.Int).Set(b.GasPrice),
		Origin:    from,
	}
}

// resolveHeight resolves an RPC block-number tag to a concrete height
// plus pending flag, per chainstate.Getter.ResolveBlockNumber.
func (b *Backend) resolveHeight(ctx context.Context, bn chainstate.BlockNumber) (uint32, bool, error) {
	return b.Getter.ResolveBlockNumber(ctx, bn)
}

// newPrecompiles builds the precompile set (C7) for one call at height,
// reading through the Backend's Getter.
func (b *Backend) newPrecompiles(ctx context.Context, height uint32) (*precompiles.Set, error) {
	return precompiles.New(ctx, b.Getter, height)
}
