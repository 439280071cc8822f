// Package common holds the calldata-dispatch helpers shared by every
// stateful precompile in this repository, adapted from the teacher's
// precompiles/common/precompile.go with the Cosmos gas-meter/multistore
// machinery dropped — this adapter has no SDK context to snapshot, and
// gas accounting for the custom precompiles is a flat RequiredGas value
// instead (SPEC_FULL.md §4.7).
package common

import (
	"embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/vm"
)

// ErrUnknownMethod matches the teacher's error string for an
// ABI-dispatchable method with no handler.
const ErrUnknownMethod = "unknown method: %s"

// LoadABI parses the embedded ABI JSON file at path within fs.
func LoadABI(fs embed.FS, path string) (abi.ABI, error) {
	f, err := fs.Open(path)
	if err != nil {
		return abi.ABI{}, err
	}
	defer f.Close()
	return abi.JSON(f)
}

// SetupABI resolves the ABI method and unpacked arguments for a precompile
// call's raw input, adapted one-to-one from the teacher's SetupABI.
func SetupABI(api abi.ABI, input []byte, value int, readOnly bool, isTransaction func(*abi.Method) bool) (method *abi.Method, args []interface{}, err error) {
	isEmptyCallData := len(input) == 0
	isShortCallData := len(input) > 0 && len(input) < 4
	isStandardCallData := len(input) >= 4

	switch {
	case isEmptyCallData:
		method, err = emptyCallData(api, value)
	case isShortCallData:
		method, err = methodIDCallData(api)
	case isStandardCallData:
		method, err = standardCallData(api, input)
	}
	if err != nil {
		return nil, nil, err
	}

	if readOnly && isTransaction(method) {
		return nil, nil, vm.ErrWriteProtection
	}

	if method.Type == abi.Function {
		args, err = method.Inputs.Unpack(input[4:])
		if err != nil {
			return nil, nil, err
		}
	}
	return method, args, nil
}

func emptyCallData(api abi.ABI, value int) (*abi.Method, error) {
	switch {
	case value > 0 && api.HasReceive():
		return &api.Receive, nil
	case api.HasFallback():
		return &api.Fallback, nil
	default:
		return nil, vm.ErrExecutionReverted
	}
}

func methodIDCallData(api abi.ABI) (*abi.Method, error) {
	if !api.HasFallback() {
		return nil, vm.ErrExecutionReverted
	}
	return &api.Fallback, nil
}

func standardCallData(api abi.ABI, input []byte) (*abi.Method, error) {
	method, err := api.MethodById(input[:4])
	if err != nil {
		if api.HasFallback() {
			return &api.Fallback, nil
		}
		return nil, err
	}
	return method, nil
}

// UnknownMethodError formats ErrUnknownMethod for method.
func UnknownMethodError(method string) error {
	return fmt.Errorf(ErrUnknownMethod, method)
}
