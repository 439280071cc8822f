// Package frc20 implements the native-token ERC-20-compatible precompile
// at address 0x1000, grounded on
// original_source/web3-service/src/vm/precompile/frc20/mod.rs. It reads
// the native ledger (balance, allowance) straight off the chainstate
// Getter and keeps its transfer/approval mutations in a call-scoped
// overlay that is discarded at the end of the top-level execution — the
// ledger itself is never written back through this adapter, matching
// evmadapter's read-only contract against the VKV.
package frc20

import (
	"context"
	"embed"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/summit-chain/evmix/chainstate"
	pcommon "github.com/summit-chain/evmix/precompiles/common"
)

// Address is the fixed precompile address for the native token ledger.
var Address = common.BytesToAddress([]byte{0x10, 0x00})

//go:embed abi.json
var abiFS embed.FS

const (
	tokenName     = "Findora"
	tokenSymbol   = "FRA"
	tokenDecimals = uint8(18)
)

// Gas costs, lifted one-to-one from the Rust implementation's constants.
const (
	gasName         = 3283
	gasSymbol       = 3437
	gasDecimals     = 243
	gasTotalSupply  = 1003
	gasBalanceOf    = 1350
	gasAllowance    = 1624
	gasApprove      = 20750
	gasTransfer     = 23661
	gasTransferFrom = 6610
)

var transferEventID = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
var approvalEventID = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// Precompile is the FRC-20 native-token ledger precompile. One instance
// is constructed per top-level EVM execution and shared across every
// inner call/delegatecall that lands on Address, so its overlays
// accumulate for the whole transaction and are thrown away with it.
type Precompile struct {
	ctx    context.Context
	getter *chainstate.Getter
	height uint32
	abi    abi.ABI

	balanceOverrides   map[common.Address]*uint256.Int
	allowanceOverrides map[allowanceKey]*uint256.Int

	logs []*types.Log
}

// New constructs a Precompile reading the native ledger at height through
// getter. ctx bounds every chainstate read issued during the call.
func New(ctx context.Context, getter *chainstate.Getter, height uint32) (*Precompile, error) {
	parsed, err := pcommon.LoadABI(abiFS, "abi.json")
	if err != nil {
		return nil, err
	}
	return &Precompile{
		ctx:                ctx,
		getter:             getter,
		height:             height,
		abi:                parsed,
		balanceOverrides:   make(map[common.Address]*uint256.Int),
		allowanceOverrides: make(map[allowanceKey]*uint256.Int),
	}, nil
}

// Logs returns the Transfer/Approval events emitted by this precompile's
// calls during the execution it was constructed for.
func (p *Precompile) Logs() []*types.Log {
	return p.logs
}

// ABI exposes the parsed contract ABI, mainly so callers can pack
// calldata for Run/RunWithCaller without re-parsing abi.json themselves.
func (p *Precompile) ABI() (abi.ABI, error) {
	return p.abi, nil
}

func (p *Precompile) isTransaction(method *abi.Method) bool {
	switch method.Name {
	case "approve", "transfer", "transferFrom":
		return true
	default:
		return false
	}
}

// RequiredGas implements vm.PrecompiledContract.
func (p *Precompile) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return 0
	}
	method, err := p.abi.MethodById(input[:4])
	if err != nil {
		return 0
	}
	switch method.Name {
	case "name":
		return gasName
	case "symbol":
		return gasSymbol
	case "decimals":
		return gasDecimals
	case "totalSupply":
		return gasTotalSupply
	case "balanceOf":
		return gasBalanceOf
	case "allowance":
		return gasAllowance
	case "approve":
		return gasApprove
	case "transfer":
		return gasTransfer
	case "transferFrom":
		return gasTransferFrom
	default:
		return 0
	}
}

// Run implements vm.PrecompiledContract. It calls RunWithCaller with the
// zero address as caller and readOnly false, so it applies no write
// protection; RunWithCaller with readOnly true makes approve/transfer/
// transferFrom return vm.ErrWriteProtection, mirroring the teacher's
// SetupABI readOnly gate.
func (p *Precompile) Run(input []byte) ([]byte, error) {
	return p.RunWithCaller(common.Address{}, input, false)
}

// RunWithCaller is Run plus the caller address, which approve and
// transfer need as the implicit msg.sender and which the plain
// vm.PrecompiledContract interface has no room for. precompiles.Set's
// CallFRC20 calls this directly for a top-level call to Address.
func (p *Precompile) RunWithCaller(caller common.Address, input []byte, readOnly bool) ([]byte, error) {
	method, args, err := pcommon.SetupABI(p.abi, input, 0, readOnly, p.isTransaction)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "name":
		return method.Outputs.Pack(tokenName)
	case "symbol":
		return method.Outputs.Pack(tokenSymbol)
	case "decimals":
		return method.Outputs.Pack(tokenDecimals)
	case "totalSupply":
		supply, err := p.getter.GetTotalIssuance(p.ctx, p.height)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(supply.ToBig())
	case "balanceOf":
		addr := args[0].(common.Address)
		bal, err := p.balanceOf(addr)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(bal.ToBig())
	case "allowance":
		owner := args[0].(common.Address)
		spender := args[1].(common.Address)
		al, err := p.allowanceOf(owner, spender)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(al.ToBig())
	case "approve":
		spender := args[0].(common.Address)
		amount := args[1].(*big.Int)
		if err := p.approve(caller, spender, amount); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
	case "transfer":
		to := args[0].(common.Address)
		amount := args[1].(*big.Int)
		if err := p.transfer(caller, to, amount); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
	case "transferFrom":
		from := args[0].(common.Address)
		to := args[1].(common.Address)
		amount := args[2].(*big.Int)
		if err := p.transferFrom(caller, from, to, amount); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
	default:
		return nil, pcommon.UnknownMethodError(method.Name)
	}
}

// balanceOf reads the overlay first, falling back to the VKV-backed
// native balance, matching the Rust getter's
// `self.balance.get(&addr).cloned().unwrap_or(ledger_balance)` precedence.
func (p *Precompile) balanceOf(addr common.Address) (*uint256.Int, error) {
	if ov, ok := p.balanceOverrides[addr]; ok {
		return ov, nil
	}
	return p.getter.GetBalance(p.ctx, p.height, addr)
}

func (p *Precompile) allowanceOf(owner, spender common.Address) (*uint256.Int, error) {
	key := allowanceKey{owner: owner, spender: spender}
	if ov, ok := p.allowanceOverrides[key]; ok {
		return ov, nil
	}
	return p.getter.GetAllowances(p.ctx, p.height, owner, spender)
}

func (p *Precompile) setBalance(addr common.Address, v *uint256.Int) {
	p.balanceOverrides[addr] = v
}

func (p *Precompile) setAllowance(owner, spender common.Address, v *uint256.Int) {
	p.allowanceOverrides[allowanceKey{owner: owner, spender: spender}] = v
}

func (p *Precompile) approve(owner, spender common.Address, amount *big.Int) error {
	if spender == (common.Address{}) {
		return errApproveToZeroAddress
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return errAmountOverflow
	}
	p.setAllowance(owner, spender, value)
	p.emitApproval(owner, spender, amount)
	return nil
}

func (p *Precompile) transfer(from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return errTransferToZeroAddress
	}
	if from == (common.Address{}) {
		return errTransferFromZeroAddress
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return errAmountOverflow
	}
	fromBal, err := p.balanceOf(from)
	if err != nil {
		return err
	}
	toBal, err := p.balanceOf(to)
	if err != nil {
		return err
	}
	newFrom := saturatingSub(fromBal, value)
	newTo := saturatingAdd(toBal, value)
	p.setBalance(from, newFrom)
	p.setBalance(to, newTo)
	p.emitTransfer(from, to, amount)
	return nil
}

func (p *Precompile) transferFrom(spender, from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return errTransferToZeroAddress
	}
	if from == (common.Address{}) {
		return errTransferFromZeroAddress
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return errAmountOverflow
	}
	allowed, err := p.allowanceOf(from, spender)
	if err != nil {
		return err
	}
	if allowed.Lt(value) {
		return errAllowanceExceeded
	}
	fromBal, err := p.balanceOf(from)
	if err != nil {
		return err
	}
	toBal, err := p.balanceOf(to)
	if err != nil {
		return err
	}
	p.setAllowance(from, spender, saturatingSub(allowed, value))
	p.setBalance(from, saturatingSub(fromBal, value))
	p.setBalance(to, saturatingAdd(toBal, value))
	p.emitTransfer(from, to, amount)
	return nil
}

func saturatingSub(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(a, b)
}

func saturatingAdd(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Add(a, b)
}

func (p *Precompile) emitTransfer(from, to common.Address, value *big.Int) {
	p.logs = append(p.logs, &types.Log{
		Address: Address,
		Topics:  []common.Hash{transferEventID, addressTopic(from), addressTopic(to)},
		Data:    common.LeftPadBytes(value.Bytes(), 32),
	})
}

func (p *Precompile) emitApproval(owner, spender common.Address, value *big.Int) {
	p.logs = append(p.logs, &types.Log{
		Address: Address,
		Topics:  []common.Hash{approvalEventID, addressTopic(owner), addressTopic(spender)},
		Data:    common.LeftPadBytes(value.Bytes(), 32),
	})
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
