// Package evmadapter implements the EVM Backend Adapter (C6): a
// read-only go-ethereum core/vm.StateDB backed by chainstate.Getter at a
// fixed height, generalizing the teacher's x/vm/statedb stateObject/
// journal machinery away from a Cosmos Keeper and onto the VKV
// (SPEC_FULL.md §4.6).
package evmadapter

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Account is the in-memory account snapshot read from chainstate.Getter,
// adapted from the teacher's statedb.Account.
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash []byte
}

// NewEmptyAccount returns the zero-valued account spec.md's zero values
// require for balances/nonces/code.
func NewEmptyAccount() *Account {
	return &Account{
		Balance:  new(uint256.Int),
		CodeHash: emptyCodeHashBytes(),
	}
}

// HasCodeHash reports whether the account carries contract code.
func (a Account) HasCodeHash() bool {
	return !bytes.Equal(a.CodeHash, emptyCodeHashBytes())
}

// Storage is an in-memory overlay of contract storage slots, used by the
// substate stack below.
type Storage map[common.Hash]common.Hash

// Copy returns a shallow copy of the overlay.
func (s Storage) Copy() Storage {
	cpy := make(Storage, len(s))
	for k, v := range s {
		cpy[k] = v
	}
	return cpy
}

// SortedKeys returns the overlay's keys in byte order, for deterministic
// iteration (e.g. debug_traceCall diffs).
func (s Storage) SortedKeys() []common.Hash {
	keys := make([]common.Hash, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) < 0
	})
	return keys
}
