package chainstate

import (
	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "chainstate"

var (
	// ErrNotFound is returned by Getter lookups whose spec.md zero value
	// is "none"/"opt" rather than a numeric zero.
	ErrNotFound = errorsmod.Register(ModuleName, 1, "not found")
	// ErrEncode wraps JSON marshal/unmarshal failures for block/receipt/
	// status records.
	ErrEncode = errorsmod.Register(ModuleName, 2, "encode error")
)

// IsNotFound reports whether err is, or wraps, ErrNotFound — used at RPC
// boundaries to turn a not-found condition into a null result rather than
// an error response (spec.md §7).
func IsNotFound(err error) bool {
	return errorsmod.IsOf(err, ErrNotFound)
}
