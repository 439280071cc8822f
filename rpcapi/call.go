package rpcapi

import (
	"context"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/summit-chain/evmix/chainstate"
	"github.com/summit-chain/evmix/evmadapter"
	"github.com/summit-chain/evmix/precompiles/frc20"
)

// CallArgs mirrors the handful of eth_call / eth_estimateGas request
// fields this layer cares about, grounded on the teacher's
// rpc/backend/blocks.go parameter handling for eth_call-adjacent RPCs.
type CallArgs struct {
	From     common.Address
	To       *common.Address
	Gas      *uint64
	GasPrice *big.Int
	Value    *big.Int
	Data     []byte
}

// gasLimitCeiling caps any estimate/call gas limit at the u32::MAX bound
// spec.md §4.8 names for eth_estimateGas's upper search bound.
const gasLimitCeiling = uint64(^uint32(0))

// CallResult is the outcome of an eth_call-shaped execution: either
// returned data, or (if reverted) the raw revert payload plus any decoded
// ABI revert string.
type CallResult struct {
	ReturnData []byte
	UsedGas    uint64
	Reverted   bool
	RevertMsg  string
	Logs       []*types.Log
}

// Call implements eth_call (spec.md §4.8): builds a C6 adapter at the
// resolved height, invokes the call, and decodes a standard ABI revert
// reason out of bytes 36..68+len when the execution reverts.
func (b *Backend) Call(ctx context.Context, args CallArgs, bn chainstate.BlockNumber) (*CallResult, error) {
	height, pending, err := b.resolveHeight(ctx, bn)
	if err != nil {
		return nil, err
	}
	return b.execute(ctx, args, height, pending, gasOrDefault(args.Gas), vm.Config{})
}

// EstimateGas implements spec.md §4.8's binary-search gas estimator.
func (b *Backend) EstimateGas(ctx context.Context, args CallArgs, bn chainstate.BlockNumber) (uint64, error) {
	height, pending, err := b.resolveHeight(ctx, bn)
	if err != nil {
		return 0, err
	}

	header, err := b.blockHeader(ctx, height)
	if err != nil {
		return 0, err
	}

	lo := uint64(21_000)
	hi := header.GasLimit
	if args.Gas != nil && *args.Gas > 0 && *args.Gas < hi {
		hi = *args.Gas
	}
	if hi > gasLimitCeiling {
		hi = gasLimitCeiling
	}
	if args.GasPrice != nil && args.GasPrice.Sign() > 0 {
		balance, err := b.Getter.GetBalance(ctx, height, args.From)
		if err != nil {
			return 0, err
		}
		affordable := new(big.Int).Div(balance.ToBig(), args.GasPrice)
		if affordable.IsUint64() && affordable.Uint64() < hi {
			hi = affordable.Uint64()
		}
	}

	executable := func(gas uint64) (bool, uint64, error) {
		res, err := b.execute(ctx, args, height, pending, gas, vm.Config{})
		if err != nil {
			return false, 0, err
		}
		return !res.Reverted, res.UsedGas, nil
	}

	ok, used, err := executable(hi)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errorsmod.Wrapf(ErrExec, "gas estimation failed: tx reverts even at gas limit %d", hi)
	}

	mid := min3(3*used, (hi+lo)/2)
	prevHi := hi
	for {
		ok, _, err := executable(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid
		}
		if hi-lo <= 1 {
			break
		}
		if prevHi > 0 {
			narrowed := float64(prevHi-hi) / float64(prevHi)
			if narrowed < 0.1 {
				break
			}
		}
		prevHi = hi
		mid = (hi + lo) / 2
	}
	return hi, nil
}

func min3(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func gasOrDefault(gas *uint64) uint64 {
	if gas == nil || *gas == 0 {
		return gasLimitCeiling
	}
	return *gas
}

func (b *Backend) blockHeader(ctx context.Context, height uint32) (*types.Header, error) {
	hash, ok, err := b.Getter.GetBlockHashByHeight(ctx, height)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Header{}, nil
	}
	block, ok, err := b.Getter.GetBlockByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok || block.Header == nil {
		return &types.Header{}, nil
	}
	return block.Header, nil
}

// execute runs one call at a fixed gas limit, building a fresh C6 adapter
// and C7 precompile set scoped to this single execution, per spec.md
// §4.6/§4.7. vmConfig lets trace.go attach a struct-log tracer without
// duplicating the EVM wiring below.
func (b *Backend) execute(ctx context.Context, args CallArgs, height uint32, pending bool, gas uint64, vmConfig vm.Config) (*CallResult, error) {
	set, err := b.newPrecompiles(ctx, height)
	if err != nil {
		return nil, err
	}

	gasPrice := args.GasPrice
	if gasPrice == nil {
		gasPrice = new(big.Int).Set(b.GasPrice)
	}

	cfg := b.adapterConfig(height, pending, args.From)
	cfg.GasPrice = gasPrice
	statedb := evmadapter.New(ctx, b.Getter, b.Upstream, cfg, evmadapter.NewEmptyTxConfig())

	value := new(big.Int)
	if args.Value != nil {
		value = args.Value
	}
	valueU256, overflow := uint256.FromBig(value)
	if overflow {
		return nil, errorsmod.Wrap(ErrInvalidInput, "call value overflows uint256")
	}

	// A top-level call directly addressed at the FRC-20 ledger carries the
	// caller (the external msg.sender) through precisely, which the
	// generic vm.PrecompiledContract dispatch used for nested calls
	// cannot do (precompiles.Set.CallFRC20 doc comment).
	if args.To != nil && *args.To == frc20.Address {
		readOnly := false
		out, err := set.CallFRC20(args.From, args.Data, readOnly)
		if err != nil {
			return &CallResult{Reverted: true, RevertMsg: err.Error(), Logs: set.FRC20Logs()}, nil
		}
		return &CallResult{ReturnData: out, Logs: set.FRC20Logs()}, nil
	}

	ethCfg := new(params.ChainConfig)
	*ethCfg = *params.TestChainConfig
	ethCfg.ChainID = cfg.ChainID

	blockCtx := vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     statedb.BlockHash,
		Coinbase:    statedb.BlockCoinbase(),
		GasLimit:    statedb.BlockGasLimit(),
		BlockNumber: statedb.BlockNumber(),
		Time:        statedb.BlockTimestamp(),
		Difficulty:  statedb.BlockDifficulty(),
		BaseFee:     statedb.BlockBaseFeePerGas(),
		Random:      &common.Hash{},
	}

	txCtx := vm.TxContext{Origin: args.From, GasPrice: gasPrice}
	evm := vm.NewEVM(blockCtx, txCtx, statedb, ethCfg, vmConfig)
	evm.SetPrecompiles(set.Contracts())

	var (
		ret      []byte
		leftover uint64
		vmErr    error
	)
	if args.To == nil {
		_, _, leftover, vmErr = evm.Create(args.From, args.Data, gas, valueU256)
	} else {
		ret, leftover, vmErr = evm.Call(args.From, *args.To, args.Data, gas, valueU256)
	}

	used := gas - leftover
	result := &CallResult{UsedGas: used, Logs: append(statedb.Logs(), set.FRC20Logs()...)}

	if vmErr != nil {
		result.Reverted = true
		if vmErr == vm.ErrExecutionReverted {
			result.ReturnData = ret
			result.RevertMsg = decodeRevertReason(ret)
		} else {
			result.RevertMsg = vmErr.Error()
		}
		return result, nil
	}

	result.ReturnData = ret
	return result, nil
}

// decodeRevertReason decodes a standard ABI-encoded revert string out of
// data bytes 36..68+len, per spec.md §4.8.
func decodeRevertReason(data []byte) string {
	if len(data) < 68 {
		return ""
	}
	length := new(big.Int).SetBytes(data[36:68]).Uint64()
	if uint64(len(data)) < 68+length {
		return ""
	}
	return string(data[68 : 68+length])
}
