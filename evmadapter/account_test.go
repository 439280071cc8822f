package evmadapter

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestNewEmptyAccountHasNoCode(t *testing.T) {
	acc := NewEmptyAccount()
	require.False(t, acc.HasCodeHash())
	require.True(t, acc.Balance.IsZero())
}

func TestHasCodeHashWithRealCode(t *testing.T) {
	acc := NewEmptyAccount()
	acc.CodeHash = common.FromHex("0xdeadbeef")
	require.True(t, acc.HasCodeHash())
}

func TestStorageCopyIsIndependent(t *testing.T) {
	s := Storage{common.HexToHash("0x01"): common.HexToHash("0xaa")}
	cpy := s.Copy()
	cpy[common.HexToHash("0x02")] = common.HexToHash("0xbb")

	require.Len(t, s, 1)
	require.Len(t, cpy, 2)
}

func TestStorageSortedKeysIsDeterministic(t *testing.T) {
	s := Storage{
		common.HexToHash("0x03"): common.HexToHash("0xcc"),
		common.HexToHash("0x01"): common.HexToHash("0xaa"),
		common.HexToHash("0x02"): common.HexToHash("0xbb"),
	}
	keys := s.SortedKeys()
	require.Equal(t, []common.Hash{
		common.HexToHash("0x01"),
		common.HexToHash("0x02"),
		common.HexToHash("0x03"),
	}, keys)
}
