package importer

import (
	"context"
	"encoding/json"
	"testing"

	dbm "github.com/cosmos/cosmos-db"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/summit-chain/evmix/chainstate"
	"github.com/summit-chain/evmix/indexkv"
	"github.com/summit-chain/evmix/indexkv/indexkvtest"
)

func TestSplitKeyFieldsSkipsVERSegment(t *testing.T) {
	require.Equal(t, []string{"Foo", "bar"}, splitKeyFields([]byte("Foo_bar")))
	require.Equal(t, []string{"Foo", "bar", "baz"}, splitKeyFields([]byte("VER_00000000000000000001_Foo_bar_baz")))
}

func TestIsTombstone(t *testing.T) {
	require.True(t, isTombstone(nil))
	require.True(t, isTombstone([]byte{0x01}))
	require.False(t, isTombstone([]byte{0x01, 0x02}))
}

func TestParseCurrentHeight(t *testing.T) {
	v, err := json.Marshal(uint64(42))
	require.NoError(t, err)
	h, err := ParseCurrentHeight(v)
	require.NoError(t, err)
	require.Equal(t, uint32(42), h)
}

func TestParseBlockHash(t *testing.T) {
	v, err := json.Marshal(common.HexToHash("0xabc").Hex())
	require.NoError(t, err)
	h, hash, err := ParseBlockHash([]byte("EthereumBlockHash_7"), v)
	require.NoError(t, err)
	require.Equal(t, uint32(7), h)
	require.Equal(t, common.HexToHash("0xabc"), hash)
}

func TestParseAccountCode(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	code := []byte{0x60, 0x00, 0x60, 0x01}
	a, got, err := ParseAccountCode([]byte("EVMAccountCodes_"+addr.Hex()), code)
	require.NoError(t, err)
	require.Equal(t, addr, a)
	require.Equal(t, code, got)
}

func TestParseAccountStorage(t *testing.T) {
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	slot := common.HexToHash("0x01")
	val := common.HexToHash("0xdeadbeef")
	v, err := json.Marshal(val.Hex())
	require.NoError(t, err)

	rawKey := []byte("EVMAccountStorages_" + addr.Hex() + "_" + slot.Hex())
	gotAddr, gotSlot, gotVal, err := ParseAccountStorage(rawKey, v)
	require.NoError(t, err)
	require.Equal(t, addr, gotAddr)
	require.Equal(t, slot, gotSlot)
	require.Equal(t, val, gotVal)
}

// encodeBech32ForTest mirrors decodeBech32Address's algorithm in reverse,
// for constructing well-formed test fixtures. It doesn't compute a real
// checksum since decodeBech32Address never verifies one — it only drops
// the trailing 6 symbols unconditionally.
func encodeBech32ForTest(t *testing.T, hrp string, payload []byte) string {
	t.Helper()
	values, ok := convertBits(payload, 8, 5, true)
	require.True(t, ok)
	var sb []byte
	for _, v := range values {
		sb = append(sb, bech32Charset[v])
	}
	return hrp + "1" + string(sb) + "qpzry9"
}

func TestParseAccountEntryEVMAccount(t *testing.T) {
	addr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	payload := append([]byte(evmAddressMarker), addr.Bytes()...)
	key := encodeBech32ForTest(t, "evm", payload)

	val, err := json.Marshal(smartAccountJSON{Nonce: "5", Balance: "1000"})
	require.NoError(t, err)

	entry, ok, err := ParseAccountEntry([]byte("AccountAccountStore_"+key), val)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, addr, entry.Address)
	require.Equal(t, uint64(5), entry.Nonce)
	require.Equal(t, uint64(1000), entry.Balance.Uint64())
}

func TestParseAccountEntryNonEVMAccountIsSkipped(t *testing.T) {
	addr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	payload := append([]byte("cos:"), addr.Bytes()...)
	key := encodeBech32ForTest(t, "cosmos", payload)

	val, err := json.Marshal(smartAccountJSON{Nonce: "1", Balance: "1"})
	require.NoError(t, err)

	_, ok, err := ParseAccountEntry([]byte("AccountAccountStore_"+key), val)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseAccountEntryInvalidBech32Errors(t *testing.T) {
	_, _, err := ParseAccountEntry([]byte("AccountAccountStore_notbech32"), []byte(`{}`))
	require.Error(t, err)
}

func newTestExternalStore(t *testing.T) *ExternalStore {
	t.Helper()
	stateDB, err := dbm.NewDB("state", dbm.GoLevelDBBackend, t.TempDir())
	require.NoError(t, err)
	historyDB, err := dbm.NewDB("history", dbm.GoLevelDBBackend, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = stateDB.Close()
		_ = historyDB.Close()
	})
	return &ExternalStore{StateDB: stateDB, HistoryDB: historyDB}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestImporterRunReplaysASingleHeight(t *testing.T) {
	ctx := context.Background()
	store := newTestExternalStore(t)

	addr := common.HexToAddress("0x5555555555555555555555555555555555555555")
	slot := common.HexToHash("0x01")
	hash := common.HexToHash("0xaa")

	require.NoError(t, store.HistoryDB.Set(prefixCurrentHeight, mustJSON(t, uint64(1))))
	require.NoError(t, store.HistoryDB.Set([]byte("EthereumBlockHash_1"), mustJSON(t, hash.Hex())))

	receipt := &ethtypes.Receipt{TxHash: hash, Status: ethtypes.ReceiptStatusSuccessful, Logs: []*ethtypes.Log{}}
	require.NoError(t, store.HistoryDB.Set([]byte("EthereumCurrentReceipts_"+hash.Hex()), mustJSON(t, []*ethtypes.Receipt{receipt})))

	status := chainstate.TransactionStatus{TxHash: hash, TxIndex: 0, BlockHash: hash, BlockNumber: 1}
	require.NoError(t, store.HistoryDB.Set([]byte("EthereumCurrentTransactionStatuses_"+hash.Hex()), mustJSON(t, []chainstate.TransactionStatus{status})))

	payload := append([]byte(evmAddressMarker), addr.Bytes()...)
	bechKey := encodeBech32ForTest(t, "evm", payload)
	require.NoError(t, store.StateDB.Set([]byte("AccountAccountStore_"+bechKey), mustJSON(t, smartAccountJSON{Nonce: "3", Balance: "777"})))
	require.NoError(t, store.StateDB.Set([]byte("EVMAccountCodes_"+addr.Hex()), []byte{0x60, 0x00}))
	require.NoError(t, store.StateDB.Set([]byte("EVMAccountStorages_"+addr.Hex()+"_"+slot.Hex()), mustJSON(t, common.HexToHash("0xbeef").Hex())))

	conn := indexkvtest.NewConn(t)
	schema := indexkv.NewSchema("evmix")
	setter := chainstate.NewSetter(conn, schema)
	getter := chainstate.NewGetter(conn, schema)

	im := New(store, setter, nil)
	require.NoError(t, im.Run(ctx))

	latest, err := getter.LatestHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(1), latest)

	nonce, err := getter.GetNonce(ctx, 1, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(3), nonce)

	bal, err := getter.GetBalance(ctx, 1, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(777), bal.Uint64())

	code, err := getter.GetByteCode(ctx, 1, addr)
	require.NoError(t, err)
	require.Equal(t, []byte{0x60, 0x00}, code)

	got, err := getter.GetState(ctx, 1, addr, slot)
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0xbeef"), got)

	_, found, err := getter.GetBlockByHash(ctx, hash)
	require.NoError(t, err)
	require.True(t, found)
}

// TestImporterRunDivergesPerHeight exercises the "default" vs "aux" row
// split directly: height 1 (historical, VER-framed rows) and height 2
// (the head height, bare rows) carry different balances, codes, and
// storage values for the same address, and every height must read back
// its own distinct point-in-time snapshot rather than the head's rows.
func TestImporterRunDivergesPerHeight(t *testing.T) {
	ctx := context.Background()
	store := newTestExternalStore(t)

	addr := common.HexToAddress("0x6666666666666666666666666666666666666666")
	slot := common.HexToHash("0x02")
	hash1 := common.HexToHash("0xa1")
	hash2 := common.HexToHash("0xa2")

	require.NoError(t, store.HistoryDB.Set(prefixCurrentHeight, mustJSON(t, uint64(2))))
	require.NoError(t, store.HistoryDB.Set([]byte("EthereumBlockHash_1"), mustJSON(t, hash1.Hex())))
	require.NoError(t, store.HistoryDB.Set([]byte("EthereumBlockHash_2"), mustJSON(t, hash2.Hex())))

	for _, h := range []struct {
		hash common.Hash
		num  uint32
	}{{hash1, 1}, {hash2, 2}} {
		receipt := &ethtypes.Receipt{TxHash: h.hash, Status: ethtypes.ReceiptStatusSuccessful, Logs: []*ethtypes.Log{}}
		require.NoError(t, store.HistoryDB.Set([]byte("EthereumCurrentReceipts_"+h.hash.Hex()), mustJSON(t, []*ethtypes.Receipt{receipt})))
		status := chainstate.TransactionStatus{TxHash: h.hash, TxIndex: 0, BlockHash: h.hash, BlockNumber: h.num}
		require.NoError(t, store.HistoryDB.Set([]byte("EthereumCurrentTransactionStatuses_"+h.hash.Hex()), mustJSON(t, []chainstate.TransactionStatus{status})))
	}

	payload := append([]byte(evmAddressMarker), addr.Bytes()...)
	bechKey := encodeBech32ForTest(t, "evm", payload)

	// Height 1 is historical: rows live under the VER_<20-digit-height>_
	// prefix, glued directly onto the module+storage prefix.
	h1AccountKey := append(historicalPrefix(1, prefixAccountStore), []byte("_"+bechKey)...)
	require.NoError(t, store.StateDB.Set(h1AccountKey, mustJSON(t, smartAccountJSON{Nonce: "1", Balance: "100"})))
	h1CodeKey := append(historicalPrefix(1, prefixAccountCode), []byte("_"+addr.Hex())...)
	require.NoError(t, store.StateDB.Set(h1CodeKey, []byte{0xaa}))
	h1StorageKey := append(historicalPrefix(1, prefixAccountStorage), []byte("_"+addr.Hex()+"_"+slot.Hex())...)
	require.NoError(t, store.StateDB.Set(h1StorageKey, mustJSON(t, common.HexToHash("0x01").Hex())))

	// Height 2 is the head height: rows live under the bare column
	// prefix, with no VER segment.
	require.NoError(t, store.StateDB.Set([]byte("AccountAccountStore_"+bechKey), mustJSON(t, smartAccountJSON{Nonce: "2", Balance: "200"})))
	require.NoError(t, store.StateDB.Set([]byte("EVMAccountCodes_"+addr.Hex()), []byte{0xbb}))
	require.NoError(t, store.StateDB.Set([]byte("EVMAccountStorages_"+addr.Hex()+"_"+slot.Hex()), mustJSON(t, common.HexToHash("0x02").Hex())))

	conn := indexkvtest.NewConn(t)
	schema := indexkv.NewSchema("evmix")
	setter := chainstate.NewSetter(conn, schema)
	getter := chainstate.NewGetter(conn, schema)

	im := New(store, setter, nil)
	require.NoError(t, im.Run(ctx))

	bal1, err := getter.GetBalance(ctx, 1, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(100), bal1.Uint64(), "height 1 must see its own historical balance, not height 2's")

	bal2, err := getter.GetBalance(ctx, 2, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(200), bal2.Uint64())

	nonce1, err := getter.GetNonce(ctx, 1, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce1)

	nonce2, err := getter.GetNonce(ctx, 2, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce2)

	code1, err := getter.GetByteCode(ctx, 1, addr)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa}, code1)

	code2, err := getter.GetByteCode(ctx, 2, addr)
	require.NoError(t, err)
	require.Equal(t, []byte{0xbb}, code2)

	state1, err := getter.GetState(ctx, 1, addr, slot)
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0x01"), state1)

	state2, err := getter.GetState(ctx, 2, addr, slot)
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0x02"), state2)
}

func TestImporterRunSkipsMissingBlockHash(t *testing.T) {
	ctx := context.Background()
	store := newTestExternalStore(t)
	require.NoError(t, store.HistoryDB.Set(prefixCurrentHeight, mustJSON(t, uint64(1))))

	conn := indexkvtest.NewConn(t)
	schema := indexkv.NewSchema("evmix")
	setter := chainstate.NewSetter(conn, schema)
	getter := chainstate.NewGetter(conn, schema)

	im := New(store, setter, nil)
	require.NoError(t, im.Run(ctx))

	latest, err := getter.LatestHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(0), latest, "no heights were ever advanced, since the only height's block hash was absent")
}
