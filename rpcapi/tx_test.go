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

func TestGetTransactionByHashAndReceipt(t *testing.T) {
	backend, setter := newTestBackend(t)
	ctx := context.Background()

	from := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	to := common.HexToAddress("0xbbbb000000000000000000000000000000bbbb")
	txHash := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	blockHeader := &types.Header{Number: big.NewInt(1)}
	block := &chainstate.Block{Header: blockHeader, Transactions: []common.Hash{txHash}}
	blockHash := blockHeader.Hash()

	status := chainstate.TransactionStatus{
		TxHash: txHash, TxIndex: 0, BlockHash: blockHash, BlockNumber: 1,
		From: from, To: &to,
	}
	receipt := &types.Receipt{TxHash: txHash, Status: types.ReceiptStatusSuccessful, GasUsed: 21000}

	require.NoError(t, setter.SetBlockInfo(
		ctx, block,
		[]*types.Receipt{receipt},
		[]chainstate.TransactionStatus{status},
		[]chainstate.TxIndexEntry{{BlockHash: blockHash, Index: 0}},
	))
	require.NoError(t, setter.EndBlock(ctx, 1))

	got, err := backend.GetTransactionByHash(ctx, txHash)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, from, got.From)
	require.Equal(t, to, *got.To)
	require.Equal(t, uint64(21000), got.GasUsed)

	rc, err := backend.GetTransactionReceipt(ctx, txHash)
	require.NoError(t, err)
	require.NotNil(t, rc)
	require.Equal(t, types.ReceiptStatusSuccessful, rc.Status)
}

func TestGetTransactionByHashMissing(t *testing.T) {
	backend, _ := newTestBackend(t)
	got, err := backend.GetTransactionByHash(context.Background(), common.HexToHash("0xdead"))
	require.NoError(t, err)
	require.Nil(t, got)
}
