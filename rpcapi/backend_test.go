package rpcapi

import (
	"math/big"
	"testing"

	"cosmossdk.io/log"

	"github.com/summit-chain/evmix/chainstate"
	"github.com/summit-chain/evmix/indexkv"
	"github.com/summit-chain/evmix/indexkv/indexkvtest"
)

// newTestBackend builds a Backend over a fresh miniredis-backed Getter, with
// no upstream client — tests that would exercise upstream paths (syncing,
// sendRawTransaction) construct their own.
func newTestBackend(t *testing.T) (*Backend, *chainstate.Setter) {
	t.Helper()
	conn := indexkvtest.NewConn(t)
	schema := indexkv.NewSchema("evmix")
	setter := chainstate.NewSetter(conn, schema)
	getter := chainstate.NewGetter(conn, schema)

	backend := NewBackend(log.NewNopLogger(), getter, nil, big.NewInt(2025), big.NewInt(1))
	return backend, setter
}

func latestBlockNumber() chainstate.BlockNumber {
	return chainstate.BlockNumber{Kind: chainstate.BlockNumberLatest}
}
