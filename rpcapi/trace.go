package rpcapi

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/eth/tracers/logger"

	"github.com/summit-chain/evmix/chainstate"
)

// TraceConfig mirrors the handful of debug_traceTransaction config fields
// this service honors. Custom JS tracers are out of scope (SPEC_FULL.md's
// resolution of the §9 open question): only the built-in struct-log
// tracer is offered.
type TraceConfig struct {
	DisableStack   bool
	DisableMemory  bool
	DisableStorage bool
}

// TraceResult is the struct-log trace output for one execution.
type TraceResult struct {
	Gas         uint64
	Failed      bool
	ReturnValue string
	StructLogs  []logger.StructLogRes
}

// TraceCall implements debug_traceCall: runs args at the resolved height
// with a struct-log tracer attached, never touching persisted state
// (spec.md §4.6's read-only EVM backend contract).
func (b *Backend) TraceCall(ctx context.Context, args CallArgs, bn chainstate.BlockNumber, cfg TraceConfig) (*TraceResult, error) {
	b.traceMu.Lock()
	defer b.traceMu.Unlock()

	height, pending, err := b.resolveHeight(ctx, bn)
	if err != nil {
		return nil, err
	}
	return b.traceAt(ctx, args, height, pending, cfg)
}

// TraceTransaction implements debug_traceTransaction: replays the named
// transaction at the height it executed in, using only its stored from/to
// (no calldata or value).
func (b *Backend) TraceTransaction(ctx context.Context, txHash common.Hash, cfg TraceConfig) (*TraceResult, error) {
	b.traceMu.Lock()
	defer b.traceMu.Unlock()

	result, err := b.GetTransactionByHash(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errorsmod.Wrapf(ErrInvalidInput, "transaction %s not found", txHash)
	}

	args := CallArgs{From: result.From, To: result.To}
	return b.traceAt(ctx, args, result.BlockNumber, false, cfg)
}

// TraceBlockByHash implements debug_traceBlockByHash: traces every
// transaction in the named block in index order.
func (b *Backend) TraceBlockByHash(ctx context.Context, hash common.Hash, cfg TraceConfig) ([]*TraceResult, error) {
	height, ok, err := b.Getter.GetHeightByBlockHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return b.traceBlock(ctx, hash, height, cfg)
}

// TraceBlockByNumber implements debug_traceBlockByNumber.
func (b *Backend) TraceBlockByNumber(ctx context.Context, bn chainstate.BlockNumber, cfg TraceConfig) ([]*TraceResult, error) {
	height, _, err := b.resolveHeight(ctx, bn)
	if err != nil {
		return nil, err
	}
	hash, ok, err := b.Getter.GetBlockHashByHeight(ctx, height)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return b.traceBlock(ctx, hash, height, cfg)
}

func (b *Backend) traceBlock(ctx context.Context, hash common.Hash, height uint32, cfg TraceConfig) ([]*TraceResult, error) {
	b.traceMu.Lock()
	defer b.traceMu.Unlock()

	statuses, ok, err := b.Getter.GetTransactionStatusByBlockHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	results := make([]*TraceResult, len(statuses))
	for i, status := range statuses {
		args := CallArgs{From: status.From, To: status.To}
		res, err := b.traceAt(ctx, args, height, false, cfg)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func (b *Backend) traceAt(ctx context.Context, args CallArgs, height uint32, pending bool, cfg TraceConfig) (*TraceResult, error) {
	structLogger := logger.NewStructLogger(&logger.Config{
		DisableStack:   cfg.DisableStack,
		DisableMemory:  cfg.DisableMemory,
		DisableStorage: cfg.DisableStorage,
	})

	vmConfig := vm.Config{Tracer: structLogger.Hooks()}
	res, err := b.execute(ctx, args, height, pending, gasOrDefault(args.Gas), vmConfig)
	if err != nil {
		return nil, err
	}

	return &TraceResult{
		Gas:         res.UsedGas,
		Failed:      res.Reverted,
		ReturnValue: common.Bytes2Hex(res.ReturnData),
		StructLogs:  logger.FormatLogs(structLogger.StructLogs()),
	}, nil
}
