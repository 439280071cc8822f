package precompiles

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/summit-chain/evmix/chainstate"
	"github.com/summit-chain/evmix/indexkv"
	"github.com/summit-chain/evmix/indexkv/indexkvtest"
	"github.com/summit-chain/evmix/precompiles/anemoi"
	"github.com/summit-chain/evmix/precompiles/frc20"
)

func TestSetMergesBerlinAndCustomEntries(t *testing.T) {
	conn := indexkvtest.NewConn(t)
	schema := indexkv.NewSchema("evmix")
	getter := chainstate.NewGetter(conn, schema)

	set, err := New(context.Background(), getter, 1)
	require.NoError(t, err)

	ecrecover := common.BytesToAddress([]byte{0x01})
	_, ok := set.Lookup(ecrecover)
	require.True(t, ok)

	_, ok = set.Lookup(frc20.Address)
	require.True(t, ok)

	_, ok = set.Lookup(anemoi.Address)
	require.True(t, ok)

	_, ok = set.Lookup(common.BytesToAddress([]byte{0xff, 0xff}))
	require.False(t, ok)
}

func TestCallFRC20ThreadsCallerThroughApprove(t *testing.T) {
	conn := indexkvtest.NewConn(t)
	schema := indexkv.NewSchema("evmix")
	getter := chainstate.NewGetter(conn, schema)

	set, err := New(context.Background(), getter, 1)
	require.NoError(t, err)

	owner := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	spender := common.HexToAddress("0xbbbb000000000000000000000000000000bbbb")

	abiJSON, err := set.frc20.ABI()
	require.NoError(t, err)
	input, err := abiJSON.Pack("approve", spender, big.NewInt(100))
	require.NoError(t, err)

	_, err = set.CallFRC20(owner, input, false)
	require.NoError(t, err)
	require.Len(t, set.FRC20Logs(), 1)
}
