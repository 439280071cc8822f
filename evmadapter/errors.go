package evmadapter

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "evmadapter"

// ErrInsufficientBalance is raised by Transfer when the source account
// cannot cover the requested value.
var ErrInsufficientBalance = errorsmod.Register(ModuleName, 1, "insufficient balance")

func errInsufficientBalance(addr common.Address, have, want *uint256.Int) error {
	return errorsmod.Wrapf(ErrInsufficientBalance, "address %s: have %s, want %s", addr, have, want)
}

func crypto256(data []byte) common.Hash {
	return crypto.Keccak256Hash(data)
}

func emptyCodeHashBytes() []byte {
	return crypto.Keccak256(nil)
}
