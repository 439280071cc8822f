package rpcapi

import (
	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "rpcapi"

// Every error kind spec.md §7 names gets its own registered code, so the
// JSON-RPC boundary can map codes to the right response shape instead of
// string-matching.
var (
	ErrExec              = errorsmod.Register(ModuleName, 1, "evm execution failed")
	ErrInvalidInput      = errorsmod.Register(ModuleName, 2, "invalid rpc input")
	ErrUnsupportedTxType = errorsmod.Register(ModuleName, 3, "unsupported transaction type")
	ErrFilter            = errorsmod.Register(ModuleName, 4, "filter error")
)
