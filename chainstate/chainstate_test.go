package chainstate

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/summit-chain/evmix/indexkv"
	"github.com/summit-chain/evmix/indexkv/indexkvtest"
)

func newTestSetterGetter(t *testing.T) (*Setter, *Getter) {
	conn := indexkvtest.NewConn(t)
	schema := indexkv.NewSchema("evmix")
	return NewSetter(conn, schema), NewGetter(conn, schema)
}

func TestUpdateBasicIsVersionedByHeight(t *testing.T) {
	ctx := context.Background()
	setter, getter := newTestSetterGetter(t)
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")

	setter.BeginBlock(10)
	require.NoError(t, setter.UpdateBasic(ctx, addr, AccountBasic{
		Nonce:   1,
		Balance: uint256.NewInt(100),
		Code:    []byte{0x60, 0x00},
	}))
	require.NoError(t, setter.EndBlock(ctx, 10))

	setter.BeginBlock(20)
	require.NoError(t, setter.UpdateBasic(ctx, addr, AccountBasic{
		Nonce:   2,
		Balance: uint256.NewInt(200),
		Code:    []byte{0x60, 0x01},
	}))
	require.NoError(t, setter.EndBlock(ctx, 20))

	bal10, err := getter.GetBalance(ctx, 10, addr)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(100), bal10)

	bal15, err := getter.GetBalance(ctx, 15, addr)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(100), bal15, "height between writes resolves to the most recent write at or before it")

	bal20, err := getter.GetBalance(ctx, 20, addr)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(200), bal20)

	nonce20, err := getter.GetNonce(ctx, 20, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce20)

	latest, err := getter.LatestHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(20), latest)
}

func TestGetBalanceBeforeAnyWriteIsZero(t *testing.T) {
	ctx := context.Background()
	_, getter := newTestSetterGetter(t)
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")

	bal, err := getter.GetBalance(ctx, 5, addr)
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int), bal)
}

func TestUpdateStateTombstonesOnZero(t *testing.T) {
	ctx := context.Background()
	setter, getter := newTestSetterGetter(t)
	addr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	slot := common.HexToHash("0x01")
	val := common.HexToHash("0xdeadbeef")

	setter.BeginBlock(1)
	require.NoError(t, setter.UpdateState(ctx, addr, slot, val))
	require.NoError(t, setter.EndBlock(ctx, 1))

	got, err := getter.GetState(ctx, 1, addr, slot)
	require.NoError(t, err)
	require.Equal(t, val, got)

	setter.BeginBlock(2)
	require.NoError(t, setter.UpdateState(ctx, addr, slot, common.Hash{}))
	require.NoError(t, setter.EndBlock(ctx, 2))

	gotAfterClear, err := getter.GetState(ctx, 2, addr, slot)
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, gotAfterClear, "writing the zero value tombstones the slot")

	gotBeforeClear, err := getter.GetState(ctx, 1, addr, slot)
	require.NoError(t, err)
	require.Equal(t, val, gotBeforeClear, "historical read before the tombstone still sees the old value")
}

func TestAddrStateExistsIsVersionedByHeight(t *testing.T) {
	ctx := context.Background()
	setter, getter := newTestSetterGetter(t)
	addr := common.HexToAddress("0x9999999999999999999999999999999999999999")
	slot := common.HexToHash("0x01")

	existsBefore, err := getter.AddrStateExists(ctx, 5, addr)
	require.NoError(t, err)
	require.False(t, existsBefore)

	setter.BeginBlock(10)
	require.NoError(t, setter.UpdateState(ctx, addr, slot, common.HexToHash("0xaa")))
	require.NoError(t, setter.EndBlock(ctx, 10))

	existsAtEarlierHeight, err := getter.AddrStateExists(ctx, 5, addr)
	require.NoError(t, err)
	require.False(t, existsAtEarlierHeight, "state written at height 10 must not be visible at height 5")

	existsAtOrAfter, err := getter.AddrStateExists(ctx, 10, addr)
	require.NoError(t, err)
	require.True(t, existsAtOrAfter)
}

func TestSetBlockInfoAndLookups(t *testing.T) {
	ctx := context.Background()
	setter, getter := newTestSetterGetter(t)

	header := &types.Header{Number: big.NewInt(7)}
	block := &Block{Header: header, Transactions: []common.Hash{common.HexToHash("0xaa")}}
	txHash := common.HexToHash("0xaa")
	receipt := &types.Receipt{TxHash: txHash, Status: types.ReceiptStatusSuccessful}
	status := TransactionStatus{TxHash: txHash, TxIndex: 0, BlockHash: header.Hash(), BlockNumber: 7}
	txIndex := TxIndexEntry{BlockHash: header.Hash(), Index: 0}

	require.NoError(t, setter.SetBlockInfo(ctx, block, []*types.Receipt{receipt}, []TransactionStatus{status}, []TxIndexEntry{txIndex}))

	gotBlock, found, err := getter.GetBlockByHash(ctx, header.Hash())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(7), gotBlock.Header.Number.Uint64())

	height, found, err := getter.GetHeightByBlockHash(ctx, header.Hash())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(7), height)

	receipts, found, err := getter.GetTransactionReceiptByBlockHash(ctx, header.Hash())
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, receipts, 1)
	require.Equal(t, txHash, receipts[0].TxHash)

	entry, found, err := getter.GetTransactionIndexByTxHash(ctx, txHash)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, header.Hash(), entry.BlockHash)
}

func TestResolveBlockNumber(t *testing.T) {
	ctx := context.Background()
	setter, getter := newTestSetterGetter(t)

	setter.BeginBlock(3)
	require.NoError(t, setter.EndBlock(ctx, 3))

	h, pending, err := getter.ResolveBlockNumber(ctx, BlockNumber{Kind: BlockNumberLatest})
	require.NoError(t, err)
	require.False(t, pending)
	require.Equal(t, uint32(3), h)

	h, pending, err = getter.ResolveBlockNumber(ctx, BlockNumber{Kind: BlockNumberPending})
	require.NoError(t, err)
	require.True(t, pending)
	require.Equal(t, uint32(3), h)

	h, pending, err = getter.ResolveBlockNumber(ctx, BlockNumber{Kind: BlockNumberNum, Num: 42})
	require.NoError(t, err)
	require.False(t, pending)
	require.Equal(t, uint32(42), h)

	_, _, err = getter.ResolveBlockNumber(ctx, BlockNumber{Kind: BlockNumberHash, Hash: common.HexToHash("0xbad0bad0")})
	require.Error(t, err)
	require.True(t, IsNotFound(err))
}
