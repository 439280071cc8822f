package indexkv

import (
	errorsmod "cosmossdk.io/errors"
)

// ModuleName is the cosmossdk.io/errors registration namespace for every
// error kind raised below the RPC boundary. Errors from every package in
// this repository are wrapped with these codes (spec.md §7).
const ModuleName = "indexkv"

var (
	// ErrBackend is raised when a KV backend round-trip fails outright.
	ErrBackend = errorsmod.Register(ModuleName, 1, "backend error")
	// ErrParse is raised when a stored value fails to decode.
	ErrParse = errorsmod.Register(ModuleName, 2, "parse error")
)
