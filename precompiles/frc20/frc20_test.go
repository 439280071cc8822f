package frc20

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/summit-chain/evmix/chainstate"
	"github.com/summit-chain/evmix/indexkv"
	"github.com/summit-chain/evmix/indexkv/indexkvtest"
)

func newTestPrecompile(t *testing.T) (*Precompile, *chainstate.Setter) {
	t.Helper()
	conn := indexkvtest.NewConn(t)
	schema := indexkv.NewSchema("evmix")
	setter := chainstate.NewSetter(conn, schema)
	getter := chainstate.NewGetter(conn, schema)

	p, err := New(context.Background(), getter, 1)
	require.NoError(t, err)
	return p, setter
}

func TestNameSymbolDecimals(t *testing.T) {
	p, _ := newTestPrecompile(t)

	input, err := p.abi.Pack("name")
	require.NoError(t, err)
	out, err := p.Run(input)
	require.NoError(t, err)
	name, err := p.abi.Methods["name"].Outputs.Unpack(out)
	require.NoError(t, err)
	require.Equal(t, tokenName, name[0])

	input, err = p.abi.Pack("symbol")
	require.NoError(t, err)
	out, err = p.Run(input)
	require.NoError(t, err)
	sym, err := p.abi.Methods["symbol"].Outputs.Unpack(out)
	require.NoError(t, err)
	require.Equal(t, tokenSymbol, sym[0])

	input, err = p.abi.Pack("decimals")
	require.NoError(t, err)
	out, err = p.Run(input)
	require.NoError(t, err)
	dec, err := p.abi.Methods["decimals"].Outputs.Unpack(out)
	require.NoError(t, err)
	require.Equal(t, tokenDecimals, dec[0])
}

func TestTransferUpdatesOverlayNotLedger(t *testing.T) {
	p, setter := newTestPrecompile(t)
	ctx := context.Background()
	alice := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	bob := common.HexToAddress("0xbbbb000000000000000000000000000000bbbb")

	setter.BeginBlock(1)
	require.NoError(t, setter.UpdateBasic(ctx, alice, chainstate.AccountBasic{
		Balance: uint256.NewInt(1000),
	}))
	require.NoError(t, setter.EndBlock(ctx, 1))

	err := p.transfer(alice, bob, big.NewInt(400))
	require.NoError(t, err)

	aliceBal, err := p.balanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, "600", aliceBal.Dec())

	bobBal, err := p.balanceOf(bob)
	require.NoError(t, err)
	require.Equal(t, "400", bobBal.Dec())

	require.Len(t, p.Logs(), 1)
	require.Equal(t, transferEventID, p.Logs()[0].Topics[0])

	ledgerBal, err := p.getter.GetBalance(ctx, 1, alice)
	require.NoError(t, err)
	require.Equal(t, "1000", ledgerBal.Dec())
}

func TestTransferToZeroAddressRejected(t *testing.T) {
	p, _ := newTestPrecompile(t)
	alice := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	err := p.transfer(alice, common.Address{}, big.NewInt(1))
	require.ErrorIs(t, err, errTransferToZeroAddress)
}

func TestTransferFromRespectsAllowance(t *testing.T) {
	p, _ := newTestPrecompile(t)
	owner := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	spender := common.HexToAddress("0xbbbb000000000000000000000000000000bbbb")
	to := common.HexToAddress("0xcccc000000000000000000000000000000cccc")

	err := p.transferFrom(spender, owner, to, big.NewInt(1))
	require.ErrorIs(t, err, errAllowanceExceeded)

	require.NoError(t, p.approve(owner, spender, big.NewInt(100)))
	require.NoError(t, p.transferFrom(spender, owner, to, big.NewInt(40)))

	remaining, err := p.allowanceOf(owner, spender)
	require.NoError(t, err)
	require.Equal(t, "60", remaining.Dec())
}
