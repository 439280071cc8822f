package rpcapi

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/summit-chain/evmix/chainstate"
)

func TestGetLogsFiltersByAddressAndBloom(t *testing.T) {
	backend, setter := newTestBackend(t)
	ctx := context.Background()

	emitter := common.HexToAddress("0x1000000000000000000000000000000000000a")
	other := common.HexToAddress("0x1000000000000000000000000000000000000b")
	topic := common.HexToHash("0x01")

	log1 := &types.Log{Address: emitter, Topics: []common.Hash{topic}, Data: []byte{1}}
	receipt := &types.Receipt{Logs: []*types.Log{log1}}
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})

	header := &types.Header{Number: big.NewInt(1), Bloom: receipt.Bloom}
	block := &chainstate.Block{Header: header, Transactions: []common.Hash{}}

	require.NoError(t, setter.SetBlockInfo(ctx, block, []*types.Receipt{receipt}, nil, nil))
	require.NoError(t, setter.EndBlock(ctx, 1))

	matching, err := backend.GetLogs(ctx, LogFilter{
		FromBlock: 1, ToBlock: 1,
		Addresses: []common.Address{emitter},
	})
	require.NoError(t, err)
	require.Len(t, matching, 1)

	none, err := backend.GetLogs(ctx, LogFilter{
		FromBlock: 1, ToBlock: 1,
		Addresses: []common.Address{other},
	})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestGetLogsByBlockHash(t *testing.T) {
	backend, setter := newTestBackend(t)
	ctx := context.Background()

	emitter := common.HexToAddress("0x2000000000000000000000000000000000000a")
	log1 := &types.Log{Address: emitter}
	receipt := &types.Receipt{Logs: []*types.Log{log1}}
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})

	header := &types.Header{Number: big.NewInt(5), Bloom: receipt.Bloom}
	block := &chainstate.Block{Header: header, Transactions: []common.Hash{}}
	blockHash := header.Hash()

	require.NoError(t, setter.SetBlockInfo(ctx, block, []*types.Receipt{receipt}, nil, nil))
	require.NoError(t, setter.EndBlock(ctx, 5))

	got, err := backend.GetLogs(ctx, LogFilter{BlockHash: &blockHash})
	require.NoError(t, err)
	require.Len(t, got, 1)
}
