// Package precompiles assembles the address-to-contract table C6's
// interpreter dispatches every CALL/STATICCALL against, merging
// go-ethereum's own Berlin precompile set (0x01-0x09) with this
// service's two custom entries (SPEC_FULL.md §4.7): the FRC-20
// native-token ledger at 0x1000 and the Anemoi hash stand-in at 0x2002.
package precompiles

import (
	"context"
	"maps"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/summit-chain/evmix/chainstate"
	"github.com/summit-chain/evmix/precompiles/anemoi"
	"github.com/summit-chain/evmix/precompiles/frc20"
)

// Set holds the merged precompile table for one top-level EVM execution,
// plus a handle back to the FRC-20 instance so its accumulated
// Transfer/Approval logs can be collected once execution completes.
type Set struct {
	contracts map[common.Address]vm.PrecompiledContract
	frc20     *frc20.Precompile
}

// New builds the precompile table for a call at height reading through
// getter. The FRC-20 entry is call-scoped: its balance/allowance
// overlays live only as long as this Set does.
func New(ctx context.Context, getter *chainstate.Getter, height uint32) (*Set, error) {
	token, err := frc20.New(ctx, getter, height)
	if err != nil {
		return nil, err
	}

	contracts := make(map[common.Address]vm.PrecompiledContract, len(vm.PrecompiledContractsBerlin)+2)
	maps.Copy(contracts, vm.PrecompiledContractsBerlin)
	contracts[frc20.Address] = &staticCallerAdapter{token}
	contracts[anemoi.Address] = anemoi.New()

	return &Set{contracts: contracts, frc20: token}, nil
}

// Contracts returns the address-to-contract table for
// core/vm.Config.PrecompiledContracts-style wiring.
func (s *Set) Contracts() map[common.Address]vm.PrecompiledContract {
	return s.contracts
}

// Lookup resolves addr to a precompile and reports whether one exists.
func (s *Set) Lookup(addr common.Address) (vm.PrecompiledContract, bool) {
	c, ok := s.contracts[addr]
	return c, ok
}

// FRC20Logs returns the Transfer/Approval events the FRC-20 precompile
// accumulated across every call it served during this execution.
func (s *Set) FRC20Logs() []*types.Log {
	return s.frc20.Logs()
}

// CallFRC20 runs the FRC-20 precompile with the calling contract's
// address and read-only flag threaded through, since go-ethereum's plain
// vm.PrecompiledContract.Run has no room for either. rpcapi's execute
// calls this for a top-level call to frc20.Address; calls to that address
// made from inside contract code go through the table's generic Run.
func (s *Set) CallFRC20(caller common.Address, input []byte, readOnly bool) ([]byte, error) {
	return s.frc20.RunWithCaller(caller, input, readOnly)
}

// staticCallerAdapter satisfies vm.PrecompiledContract for table
// membership (required so Contracts() type-checks against go-ethereum's
// map shape). Its Run passes the zero address as caller and readOnly
// false, so nested calls to approve/transfer/transferFrom see the zero
// address as msg.sender and are not write-protected under a staticcall;
// only CallFRC20 carries the real caller.
type staticCallerAdapter struct {
	token *frc20.Precompile
}

func (a *staticCallerAdapter) RequiredGas(input []byte) uint64 {
	return a.token.RequiredGas(input)
}

func (a *staticCallerAdapter) Run(input []byte) ([]byte, error) {
	return a.token.RunWithCaller(common.Address{}, input, false)
}

var _ vm.PrecompiledContract = (*staticCallerAdapter)(nil)
