package rpcapi

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/summit-chain/evmix/chainstate"
)

func writeTestBlock(t *testing.T, ctx context.Context, setter *chainstate.Setter, height uint32) *chainstate.Block {
	t.Helper()
	header := &types.Header{Number: big.NewInt(int64(height))}
	block := &chainstate.Block{Header: header, Transactions: []common.Hash{}}
	require.NoError(t, setter.SetBlockInfo(ctx, block, nil, nil, nil))
	require.NoError(t, setter.EndBlock(ctx, height))
	return block
}

func TestBlockNumberAndGetBlockByNumber(t *testing.T) {
	backend, setter := newTestBackend(t)
	ctx := context.Background()

	writeTestBlock(t, ctx, setter, 1)
	block := writeTestBlock(t, ctx, setter, 2)

	latest, err := backend.BlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(2), latest)

	result, err := backend.GetBlockByNumber(ctx, latestBlockNumber())
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, block.Header.Hash(), result.Header.Hash())
}

func TestGetBlockByNumberMissingReturnsNil(t *testing.T) {
	backend, _ := newTestBackend(t)
	ctx := context.Background()

	result, err := backend.GetBlockByNumber(ctx, chainstate.BlockNumber{Kind: chainstate.BlockNumberNum, Num: 99})
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestGetBalanceHistoricalVersusLatest(t *testing.T) {
	backend, setter := newTestBackend(t)
	ctx := context.Background()
	addr := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")

	setter.BeginBlock(1)
	require.NoError(t, setter.UpdateBasic(ctx, addr, chainstate.AccountBasic{Balance: uint256.NewInt(100)}))
	require.NoError(t, setter.EndBlock(ctx, 1))

	setter.BeginBlock(2)
	require.NoError(t, setter.UpdateBasic(ctx, addr, chainstate.AccountBasic{Balance: uint256.NewInt(500)}))
	require.NoError(t, setter.EndBlock(ctx, 2))

	atHeight1, err := backend.GetBalance(ctx, addr, chainstate.BlockNumber{Kind: chainstate.BlockNumberNum, Num: 1})
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), atHeight1)

	atLatest, err := backend.GetBalance(ctx, addr, latestBlockNumber())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), atLatest)
}

func TestGetCodeAndStorageAt(t *testing.T) {
	backend, setter := newTestBackend(t)
	ctx := context.Background()
	addr := common.HexToAddress("0xcccc000000000000000000000000000000cccc")
	slot := common.HexToHash("0x01")
	value := common.HexToHash("0x2a")

	setter.BeginBlock(1)
	require.NoError(t, setter.UpdateBasic(ctx, addr, chainstate.AccountBasic{Code: []byte{0x60, 0x00}}))
	require.NoError(t, setter.UpdateState(ctx, addr, slot, value))
	require.NoError(t, setter.EndBlock(ctx, 1))

	code, err := backend.GetCode(ctx, addr, latestBlockNumber())
	require.NoError(t, err)
	require.Equal(t, []byte{0x60, 0x00}, code)

	got, err := backend.GetStorageAt(ctx, addr, slot, latestBlockNumber())
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestChainIdAndGasPrice(t *testing.T) {
	backend, _ := newTestBackend(t)
	require.Equal(t, big.NewInt(2025), backend.ChainId())
	require.Equal(t, big.NewInt(1), backend.GasPriceSuggestion())
	require.Equal(t, "2025", backend.NetVersion())
}
